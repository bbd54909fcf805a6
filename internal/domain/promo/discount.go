package promo

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	vo "msgdeck/internal/domain/shared/valueobjects"
)

type DiscountType string

const (
	DiscountTypePercentage  DiscountType = "PERCENTAGE"
	DiscountTypeFixedAmount DiscountType = "FIXED_AMOUNT"
)

func ParseDiscountType(value string) (DiscountType, error) {
	t := DiscountType(strings.ToUpper(strings.TrimSpace(value)))
	switch t {
	case DiscountTypePercentage, DiscountTypeFixedAmount:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDiscountType, value)
}

func (t DiscountType) String() string {
	return string(t)
}

// Discount is the outcome of applying a promo to a price.
type Discount struct {
	OriginalAmount decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// computeDiscount keeps 0 <= discount <= original and final = original - discount, all at 2dp.
func computeDiscount(discountType DiscountType, value decimal.Decimal, maxDiscount *decimal.Decimal, original decimal.Decimal) Discount {
	original = vo.RoundMoney(original)
	if original.IsNegative() {
		original = decimal.Zero
	}

	var discount decimal.Decimal
	switch discountType {
	case DiscountTypePercentage:
		discount = original.Mul(value).Div(hundred)
		if maxDiscount != nil && discount.GreaterThan(*maxDiscount) {
			discount = *maxDiscount
		}
	case DiscountTypeFixedAmount:
		discount = decimal.Min(value, original)
	}

	discount = vo.RoundMoney(discount)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(original) {
		discount = original
	}

	return Discount{
		OriginalAmount: original,
		DiscountAmount: discount,
		FinalAmount:    decimal.Max(decimal.Zero, original.Sub(discount)),
	}
}

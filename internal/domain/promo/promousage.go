package promo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	vo "msgdeck/internal/domain/shared/valueobjects"
)

// PromoUsage records one redemption. Rows are never updated.
type PromoUsage struct {
	ID             uint
	PromoCodeID    uint
	UserID         uint
	SubscriptionID uint
	TransactionID  uint
	DiscountAmount decimal.Decimal
	UsedAt         time.Time
}

func NewPromoUsage(promoCodeID, userID, subscriptionID, transactionID uint, discount decimal.Decimal, usedAt time.Time) (*PromoUsage, error) {
	if promoCodeID == 0 {
		return nil, fmt.Errorf("promo code ID is required")
	}
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if discount.IsNegative() {
		return nil, fmt.Errorf("discount: %w", vo.ErrNegativeAmount)
	}
	return &PromoUsage{
		PromoCodeID:    promoCodeID,
		UserID:         userID,
		SubscriptionID: subscriptionID,
		TransactionID:  transactionID,
		DiscountAmount: vo.RoundMoney(discount),
		UsedAt:         usedAt.UTC(),
	}, nil
}

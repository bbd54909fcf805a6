package valueobjects

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits every stored amount carries.
const MoneyScale = 2

var ErrNegativeAmount = errors.New("amount cannot be negative")

func init() {
	// Amounts are JSON numbers on the wire, e.g. 49.9 not "49.9".
	decimal.MarshalJSONWithoutQuotes = true
}

// RoundMoney rounds half away from zero to two decimal places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// Prices is the per-cycle price table of a plan. A missing cycle is not sold.
type Prices map[BillingCycle]decimal.Decimal

// For returns the price for cycle, rounded, and false when the plan is not sold on it.
func (p Prices) For(cycle BillingCycle) (decimal.Decimal, bool) {
	price, ok := p[cycle]
	if !ok {
		return decimal.Zero, false
	}
	return RoundMoney(price), true
}

// Validate rejects unknown cycles and negative prices.
func (p Prices) Validate() error {
	for cycle, price := range p {
		if !cycle.IsValid() {
			return fmt.Errorf("%w: %q", ErrInvalidBillingCycle, cycle)
		}
		if price.IsNegative() {
			return fmt.Errorf("%s price: %w", cycle, ErrNegativeAmount)
		}
	}
	return nil
}

// Wire converts to a map keyed by cycle name.
func (p Prices) Wire() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(p))
	for cycle, price := range p {
		out[string(cycle)] = RoundMoney(price)
	}
	return out
}

// PricesFromWire parses a map keyed by cycle name in any letter case.
func PricesFromWire(in map[string]decimal.Decimal) (Prices, error) {
	out := make(Prices, len(in))
	for k, v := range in {
		cycle, err := ParseBillingCycle(k)
		if err != nil {
			return nil, err
		}
		out[cycle] = RoundMoney(v)
	}
	return out, out.Validate()
}

package promo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "msgdeck/internal/domain/shared/valueobjects"
)

var now = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func intPtr(n int) *int { return &n }

func newPromo(t *testing.T, mutate func(*CreateParams)) *PromoCode {
	t.Helper()
	params := CreateParams{
		Code:          "summer25",
		DiscountType:  DiscountTypePercentage,
		DiscountValue: dec("25"),
		ValidFrom:     now.Add(-24 * time.Hour),
		ValidUntil:    now.Add(24 * time.Hour),
		IsActive:      true,
	}
	if mutate != nil {
		mutate(&params)
	}
	p, err := NewPromoCode(params)
	require.NoError(t, err)
	return p
}

func TestNewPromoCode(t *testing.T) {
	p := newPromo(t, nil)
	assert.Equal(t, "SUMMER25", p.Code())
	assert.Equal(t, 1, p.MaxUsesPerUser())
	assert.Nil(t, p.MaxUses())

	tests := []struct {
		name    string
		mutate  func(*CreateParams)
		wantErr error
	}{
		{"percentage above 100", func(p *CreateParams) { p.DiscountValue = dec("100.01") }, ErrInvalidDiscountValue},
		{"percentage zero", func(p *CreateParams) { p.DiscountValue = decimal.Zero }, ErrInvalidDiscountValue},
		{"fixed zero", func(p *CreateParams) {
			p.DiscountType = DiscountTypeFixedAmount
			p.DiscountValue = decimal.Zero
		}, ErrInvalidDiscountValue},
		{"unknown type", func(p *CreateParams) { p.DiscountType = "BOGO" }, ErrInvalidDiscountType},
		{"inverted window", func(p *CreateParams) { p.ValidUntil = p.ValidFrom }, ErrInvalidValidityRange},
		{"per user below one", func(p *CreateParams) { p.MaxUsesPerUser = -1 }, ErrInvalidUsageCap},
		{"global cap zero", func(p *CreateParams) { p.MaxUses = intPtr(0) }, ErrInvalidUsageCap},
		{"bad code", func(p *CreateParams) { p.Code = "a b" }, ErrInvalidPromoCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := CreateParams{
				Code:          "VALID1",
				DiscountType:  DiscountTypePercentage,
				DiscountValue: dec("10"),
				ValidFrom:     now,
				ValidUntil:    now.Add(time.Hour),
			}
			tt.mutate(&params)
			_, err := NewPromoCode(params)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCheckAvailability(t *testing.T) {
	assert.NoError(t, newPromo(t, nil).CheckAvailability(now))

	inactive := newPromo(t, func(p *CreateParams) { p.IsActive = false })
	assert.ErrorIs(t, inactive.CheckAvailability(now), ErrPromoInactive)

	future := newPromo(t, func(p *CreateParams) {
		p.ValidFrom = now.Add(time.Hour)
		p.ValidUntil = now.Add(2 * time.Hour)
	})
	assert.ErrorIs(t, future.CheckAvailability(now), ErrPromoNotYetValid)

	past := newPromo(t, func(p *CreateParams) {
		p.ValidFrom = now.Add(-2 * time.Hour)
		p.ValidUntil = now.Add(-time.Hour)
	})
	assert.ErrorIs(t, past.CheckAvailability(now), ErrPromoExpired)

	exhausted, err := ReconstructPromoCode(ReconstructParams{
		ID: 1, Code: "FULL", DiscountType: DiscountTypePercentage, DiscountValue: dec("10"),
		ValidFrom: now.Add(-time.Hour), ValidUntil: now.Add(time.Hour),
		MaxUses: intPtr(5), CurrentUses: 5, MaxUsesPerUser: 1, IsActive: true,
	})
	require.NoError(t, err)
	assert.ErrorIs(t, exhausted.CheckAvailability(now), ErrPromoExhausted)
	assert.False(t, exhausted.IsBrowsable(now))
}

func TestCheckUserUsage(t *testing.T) {
	p := newPromo(t, nil)
	assert.NoError(t, p.CheckUserUsage(0))
	assert.ErrorIs(t, p.CheckUserUsage(1), ErrPromoAlreadyUsed)

	twice := newPromo(t, func(p *CreateParams) { p.MaxUsesPerUser = 2 })
	assert.NoError(t, twice.CheckUserUsage(1))
	assert.ErrorIs(t, twice.CheckUserUsage(2), ErrPromoAlreadyUsed)
}

func TestAllowLists(t *testing.T) {
	open := newPromo(t, nil)
	assert.NoError(t, open.CheckPlan(99))
	assert.NoError(t, open.CheckCycle(vo.BillingCycleLifetime))

	scoped := newPromo(t, func(p *CreateParams) {
		p.ApplicablePlans = []uint{1, 2}
		p.ApplicableCycles = []vo.BillingCycle{vo.BillingCycleYearly}
	})
	assert.NoError(t, scoped.CheckPlan(2))
	assert.ErrorIs(t, scoped.CheckPlan(3), ErrPromoPlanNotApplicable)
	assert.NoError(t, scoped.CheckCycle(vo.BillingCycleYearly))
	assert.ErrorIs(t, scoped.CheckCycle(vo.BillingCycleMonthly), ErrPromoCycleNotApplicable)
}

func TestCalculateDiscount(t *testing.T) {
	capped := dec("300")
	tests := []struct {
		name         string
		discountType DiscountType
		value        string
		maxDiscount  *decimal.Decimal
		original     string
		wantDiscount string
		wantFinal    string
	}{
		{"percentage capped", DiscountTypePercentage, "50", &capped, "1000", "300.00", "700.00"},
		{"percentage under cap", DiscountTypePercentage, "20", &capped, "1000", "200.00", "800.00"},
		{"fixed larger than price", DiscountTypeFixedAmount, "150", nil, "100", "100.00", "0.00"},
		{"fixed smaller than price", DiscountTypeFixedAmount, "15.5", nil, "100", "15.50", "84.50"},
		{"full percentage", DiscountTypePercentage, "100", nil, "49.99", "49.99", "0.00"},
		{"rounds half away from zero", DiscountTypePercentage, "12.5", nil, "0.99", "0.12", "0.87"},
		{"free plan", DiscountTypePercentage, "30", nil, "0", "0.00", "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPromo(t, func(p *CreateParams) {
				p.DiscountType = tt.discountType
				p.DiscountValue = dec(tt.value)
				p.MaxDiscountAmount = tt.maxDiscount
			})
			got := p.CalculateDiscount(dec(tt.original))
			assert.Equal(t, tt.wantDiscount, got.DiscountAmount.StringFixed(2))
			assert.Equal(t, tt.wantFinal, got.FinalAmount.StringFixed(2))
			assert.True(t, got.OriginalAmount.Sub(got.DiscountAmount).Equal(got.FinalAmount))
		})
	}
}

func TestCalculateDiscount_Bounds(t *testing.T) {
	for _, value := range []string{"0.01", "33.33", "99.99", "100"} {
		for _, original := range []string{"0.01", "1", "9.99", "123.45", "100000"} {
			for _, typ := range []DiscountType{DiscountTypePercentage, DiscountTypeFixedAmount} {
				p := newPromo(t, func(p *CreateParams) {
					p.DiscountType = typ
					p.DiscountValue = dec(value)
				})
				got := p.CalculateDiscount(dec(original))
				assert.False(t, got.DiscountAmount.IsNegative())
				assert.True(t, got.DiscountAmount.LessThanOrEqual(got.OriginalAmount))
				assert.True(t, got.FinalAmount.Equal(got.OriginalAmount.Sub(got.DiscountAmount)))
				assert.LessOrEqual(t, -got.FinalAmount.Exponent(), int32(2))
			}
		}
	}
}

func TestUpdate(t *testing.T) {
	p := newPromo(t, nil)

	value := dec("40")
	require.NoError(t, p.Update(UpdateParams{DiscountValue: &value, MaxUses: intPtr(10)}))
	assert.Equal(t, "40.00", p.DiscountValue().StringFixed(2))
	require.NotNil(t, p.MaxUses())
	assert.Equal(t, 10, *p.MaxUses())

	require.NoError(t, p.Update(UpdateParams{ClearMaxUses: true}))
	assert.Nil(t, p.MaxUses())

	tooMuch := dec("120")
	assert.ErrorIs(t, p.Update(UpdateParams{DiscountValue: &tooMuch}), ErrInvalidDiscountValue)
	assert.Equal(t, "40.00", p.DiscountValue().StringFixed(2))

	p.Deactivate()
	assert.False(t, p.IsActive())
}

func TestNewPromoUsage(t *testing.T) {
	u, err := NewPromoUsage(1, 2, 3, 4, dec("10.005"), now)
	require.NoError(t, err)
	assert.Equal(t, "10.01", u.DiscountAmount.StringFixed(2))

	_, err = NewPromoUsage(0, 2, 3, 4, decimal.Zero, now)
	assert.Error(t, err)
	_, err = NewPromoUsage(1, 2, 3, 4, dec("-1"), now)
	assert.ErrorIs(t, err, vo.ErrNegativeAmount)
}

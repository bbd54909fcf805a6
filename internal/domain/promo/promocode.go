// Package promo models promotional codes and their redemptions.
package promo

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	vo "msgdeck/internal/domain/shared/valueobjects"
	"msgdeck/internal/shared/biztime"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9_-]{3,32}$`)

type PromoCode struct {
	id                uint
	code              string
	description       string
	discountType      DiscountType
	discountValue     decimal.Decimal
	maxDiscountAmount *decimal.Decimal
	applicablePlans   []uint
	applicableCycles  []vo.BillingCycle
	validFrom         time.Time
	validUntil        time.Time
	maxUses           *int
	maxUsesPerUser    int
	currentUses       int
	isActive          bool
	createdAt         time.Time
	updatedAt         time.Time
}

// NormalizeCode upper-cases and trims a promo code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type CreateParams struct {
	Code              string
	Description       string
	DiscountType      DiscountType
	DiscountValue     decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	ApplicablePlans   []uint
	ApplicableCycles  []vo.BillingCycle
	ValidFrom         time.Time
	ValidUntil        time.Time
	MaxUses           *int
	// MaxUsesPerUser defaults to 1 when zero.
	MaxUsesPerUser int
	IsActive       bool
}

func NewPromoCode(p CreateParams) (*PromoCode, error) {
	code := NormalizeCode(p.Code)
	if !codePattern.MatchString(code) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPromoCode, p.Code)
	}
	if p.MaxUsesPerUser == 0 {
		p.MaxUsesPerUser = 1
	}

	now := biztime.NowUTC()
	promo := &PromoCode{
		code:        code,
		description: p.Description,
		isActive:    p.IsActive,
		createdAt:   now,
		updatedAt:   now,
	}
	if err := promo.apply(terms{
		discountType:      p.DiscountType,
		discountValue:     p.DiscountValue,
		maxDiscountAmount: p.MaxDiscountAmount,
		applicablePlans:   p.ApplicablePlans,
		applicableCycles:  p.ApplicableCycles,
		validFrom:         p.ValidFrom,
		validUntil:        p.ValidUntil,
		maxUses:           p.MaxUses,
		maxUsesPerUser:    p.MaxUsesPerUser,
	}); err != nil {
		return nil, err
	}
	return promo, nil
}

type ReconstructParams struct {
	ID                uint
	Code              string
	Description       string
	DiscountType      DiscountType
	DiscountValue     decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	ApplicablePlans   []uint
	ApplicableCycles  []vo.BillingCycle
	ValidFrom         time.Time
	ValidUntil        time.Time
	MaxUses           *int
	MaxUsesPerUser    int
	CurrentUses       int
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func ReconstructPromoCode(p ReconstructParams) (*PromoCode, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("promo code ID cannot be zero")
	}
	if p.Code == "" {
		return nil, fmt.Errorf("promo code is required")
	}
	return &PromoCode{
		id:                p.ID,
		code:              p.Code,
		description:       p.Description,
		discountType:      p.DiscountType,
		discountValue:     p.DiscountValue,
		maxDiscountAmount: p.MaxDiscountAmount,
		applicablePlans:   p.ApplicablePlans,
		applicableCycles:  p.ApplicableCycles,
		validFrom:         p.ValidFrom,
		validUntil:        p.ValidUntil,
		maxUses:           p.MaxUses,
		maxUsesPerUser:    p.MaxUsesPerUser,
		currentUses:       p.CurrentUses,
		isActive:          p.IsActive,
		createdAt:         p.CreatedAt,
		updatedAt:         p.UpdatedAt,
	}, nil
}

func (p *PromoCode) ID() uint                            { return p.id }
func (p *PromoCode) Code() string                        { return p.code }
func (p *PromoCode) Description() string                 { return p.description }
func (p *PromoCode) DiscountType() DiscountType          { return p.discountType }
func (p *PromoCode) DiscountValue() decimal.Decimal      { return p.discountValue }
func (p *PromoCode) MaxDiscountAmount() *decimal.Decimal { return p.maxDiscountAmount }
func (p *PromoCode) ApplicablePlans() []uint             { return p.applicablePlans }
func (p *PromoCode) ApplicableCycles() []vo.BillingCycle { return p.applicableCycles }
func (p *PromoCode) ValidFrom() time.Time                { return p.validFrom }
func (p *PromoCode) ValidUntil() time.Time               { return p.validUntil }
func (p *PromoCode) MaxUses() *int                       { return p.maxUses }
func (p *PromoCode) MaxUsesPerUser() int                 { return p.maxUsesPerUser }
func (p *PromoCode) CurrentUses() int                    { return p.currentUses }
func (p *PromoCode) IsActive() bool                      { return p.isActive }
func (p *PromoCode) CreatedAt() time.Time                { return p.createdAt }
func (p *PromoCode) UpdatedAt() time.Time                { return p.updatedAt }

// SetID sets the promo ID (only for persistence layer use)
func (p *PromoCode) SetID(id uint) error {
	if p.id != 0 {
		return fmt.Errorf("promo code ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("promo code ID cannot be zero")
	}
	p.id = id
	return nil
}

// CheckAvailability covers the code-level checks: active, inside the window, under the global cap.
func (p *PromoCode) CheckAvailability(now time.Time) error {
	if !p.isActive {
		return ErrPromoInactive
	}
	if now.Before(p.validFrom) {
		return ErrPromoNotYetValid
	}
	if now.After(p.validUntil) {
		return ErrPromoExpired
	}
	if p.IsExhausted() {
		return ErrPromoExhausted
	}
	return nil
}

// IsExhausted reports whether the global cap has been reached.
func (p *PromoCode) IsExhausted() bool {
	return p.maxUses != nil && p.currentUses >= *p.maxUses
}

// CheckUserUsage rejects a user who already redeemed the code maxUsesPerUser times.
func (p *PromoCode) CheckUserUsage(timesUsed int64) error {
	if timesUsed >= int64(p.maxUsesPerUser) {
		return ErrPromoAlreadyUsed
	}
	return nil
}

// CheckPlan passes when the allow-list is empty or contains planID.
func (p *PromoCode) CheckPlan(planID uint) error {
	if len(p.applicablePlans) > 0 && !slices.Contains(p.applicablePlans, planID) {
		return ErrPromoPlanNotApplicable
	}
	return nil
}

// CheckCycle passes when the allow-list is empty or contains cycle.
func (p *PromoCode) CheckCycle(cycle vo.BillingCycle) error {
	if len(p.applicableCycles) > 0 && !slices.Contains(p.applicableCycles, cycle) {
		return ErrPromoCycleNotApplicable
	}
	return nil
}

// IsBrowsable reports whether the code may be listed publicly.
func (p *PromoCode) IsBrowsable(now time.Time) bool {
	return p.CheckAvailability(now) == nil
}

// CalculateDiscount applies the code to original.
func (p *PromoCode) CalculateDiscount(original decimal.Decimal) Discount {
	return computeDiscount(p.discountType, p.discountValue, p.maxDiscountAmount, original)
}

type UpdateParams struct {
	Description       *string
	DiscountType      *DiscountType
	DiscountValue     *decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	ClearMaxDiscount  bool
	ApplicablePlans   []uint
	ApplicableCycles  []vo.BillingCycle
	ValidFrom         *time.Time
	ValidUntil        *time.Time
	MaxUses           *int
	ClearMaxUses      bool
	MaxUsesPerUser    *int
	IsActive          *bool
}

// Update validates the merged terms before changing anything.
func (p *PromoCode) Update(u UpdateParams) error {
	t := p.terms()
	if u.DiscountType != nil {
		t.discountType = *u.DiscountType
	}
	if u.DiscountValue != nil {
		t.discountValue = *u.DiscountValue
	}
	if u.ClearMaxDiscount {
		t.maxDiscountAmount = nil
	} else if u.MaxDiscountAmount != nil {
		t.maxDiscountAmount = u.MaxDiscountAmount
	}
	if u.ApplicablePlans != nil {
		t.applicablePlans = u.ApplicablePlans
	}
	if u.ApplicableCycles != nil {
		t.applicableCycles = u.ApplicableCycles
	}
	if u.ValidFrom != nil {
		t.validFrom = *u.ValidFrom
	}
	if u.ValidUntil != nil {
		t.validUntil = *u.ValidUntil
	}
	if u.ClearMaxUses {
		t.maxUses = nil
	} else if u.MaxUses != nil {
		t.maxUses = u.MaxUses
	}
	if u.MaxUsesPerUser != nil {
		t.maxUsesPerUser = *u.MaxUsesPerUser
	}

	if err := p.apply(t); err != nil {
		return err
	}
	if u.Description != nil {
		p.description = *u.Description
	}
	if u.IsActive != nil {
		p.isActive = *u.IsActive
	}
	p.updatedAt = biztime.NowUTC()
	return nil
}

// Deactivate is the soft delete used by admins. Redemption history is kept.
func (p *PromoCode) Deactivate() {
	if !p.isActive {
		return
	}
	p.isActive = false
	p.updatedAt = biztime.NowUTC()
}

type terms struct {
	discountType      DiscountType
	discountValue     decimal.Decimal
	maxDiscountAmount *decimal.Decimal
	applicablePlans   []uint
	applicableCycles  []vo.BillingCycle
	validFrom         time.Time
	validUntil        time.Time
	maxUses           *int
	maxUsesPerUser    int
}

func (p *PromoCode) terms() terms {
	return terms{
		discountType:      p.discountType,
		discountValue:     p.discountValue,
		maxDiscountAmount: p.maxDiscountAmount,
		applicablePlans:   p.applicablePlans,
		applicableCycles:  p.applicableCycles,
		validFrom:         p.validFrom,
		validUntil:        p.validUntil,
		maxUses:           p.maxUses,
		maxUsesPerUser:    p.maxUsesPerUser,
	}
}

func (p *PromoCode) apply(t terms) error {
	switch t.discountType {
	case DiscountTypePercentage:
		if !t.discountValue.IsPositive() || t.discountValue.GreaterThan(hundred) {
			return fmt.Errorf("%w: percentage must be in (0, 100]", ErrInvalidDiscountValue)
		}
	case DiscountTypeFixedAmount:
		if !t.discountValue.IsPositive() {
			return fmt.Errorf("%w: fixed amount must be greater than 0", ErrInvalidDiscountValue)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDiscountType, t.discountType)
	}
	if t.maxDiscountAmount != nil && !t.maxDiscountAmount.IsPositive() {
		return fmt.Errorf("%w: max discount must be greater than 0", ErrInvalidDiscountValue)
	}
	if !t.validUntil.After(t.validFrom) {
		return ErrInvalidValidityRange
	}
	if t.maxUses != nil && *t.maxUses < 1 {
		return fmt.Errorf("%w: max_uses must be at least 1", ErrInvalidUsageCap)
	}
	if t.maxUsesPerUser < 1 {
		return fmt.Errorf("%w: max_uses_per_user must be at least 1", ErrInvalidUsageCap)
	}
	for _, c := range t.applicableCycles {
		if !c.IsValid() {
			return fmt.Errorf("%w: %q", vo.ErrInvalidBillingCycle, c)
		}
	}

	p.discountType = t.discountType
	p.discountValue = vo.RoundMoney(t.discountValue)
	if t.maxDiscountAmount != nil {
		capped := vo.RoundMoney(*t.maxDiscountAmount)
		p.maxDiscountAmount = &capped
	} else {
		p.maxDiscountAmount = nil
	}
	p.applicablePlans = slices.Clone(t.applicablePlans)
	p.applicableCycles = slices.Clone(t.applicableCycles)
	p.validFrom = t.validFrom.UTC()
	p.validUntil = t.validUntil.UTC()
	p.maxUses = t.maxUses
	p.maxUsesPerUser = t.maxUsesPerUser
	return nil
}

// Snapshot returns every field in reconstructable form, for caching.
func (p *PromoCode) Snapshot() ReconstructParams {
	return ReconstructParams{
		ID:                p.id,
		Code:              p.code,
		Description:       p.description,
		DiscountType:      p.discountType,
		DiscountValue:     p.discountValue,
		MaxDiscountAmount: p.maxDiscountAmount,
		ApplicablePlans:   slices.Clone(p.applicablePlans),
		ApplicableCycles:  slices.Clone(p.applicableCycles),
		ValidFrom:         p.validFrom,
		ValidUntil:        p.validUntil,
		MaxUses:           p.maxUses,
		MaxUsesPerUser:    p.maxUsesPerUser,
		CurrentUses:       p.currentUses,
		IsActive:          p.isActive,
		CreatedAt:         p.createdAt,
		UpdatedAt:         p.updatedAt,
	}
}

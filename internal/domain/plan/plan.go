// Package plan holds the tiered plan catalogue: prices per billing cycle and resource limits.
package plan

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	vo "msgdeck/internal/domain/shared/valueobjects"
	"msgdeck/internal/shared/biztime"
)

var codePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,49}$`)

// MessagePrices is the per-message price by category.
type MessagePrices map[vo.MessageCategory]decimal.Decimal

type Plan struct {
	id            uint
	code          string
	name          string
	description   string
	family        string
	prices        vo.Prices
	limits        vo.Limits
	features      map[string]bool
	messagePrices MessagePrices
	isActive      bool
	isVisible     bool
	sortOrder     int
	version       int
	createdAt     time.Time
	updatedAt     time.Time
}

// CreateParams carries the fields accepted when a plan is created.
type CreateParams struct {
	Code          string
	Name          string
	Description   string
	Family        string
	Prices        vo.Prices
	Limits        vo.Limits
	Features      map[string]bool
	MessagePrices MessagePrices
	IsActive      bool
	IsVisible     bool
	SortOrder     int
}

// NormalizeCode lower-cases and trims a plan code.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func NewPlan(p CreateParams) (*Plan, error) {
	code := NormalizeCode(p.Code)
	if !codePattern.MatchString(code) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlanCode, p.Code)
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, fmt.Errorf("plan name is required")
	}
	if len(name) > 100 {
		return nil, fmt.Errorf("plan name too long (max 100 characters)")
	}
	if err := validatePricing(p.Prices, p.MessagePrices); err != nil {
		return nil, err
	}

	now := biztime.NowUTC()
	return &Plan{
		code:          code,
		name:          name,
		description:   p.Description,
		family:        strings.TrimSpace(p.Family),
		prices:        roundPrices(p.Prices),
		limits:        copyLimits(p.Limits),
		features:      copyFeatures(p.Features),
		messagePrices: roundMessagePrices(p.MessagePrices),
		isActive:      p.IsActive,
		isVisible:     p.IsVisible,
		sortOrder:     p.SortOrder,
		version:       1,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// ReconstructParams carries every persisted field.
type ReconstructParams struct {
	ID            uint
	Code          string
	Name          string
	Description   string
	Family        string
	Prices        vo.Prices
	Limits        vo.Limits
	Features      map[string]bool
	MessagePrices MessagePrices
	IsActive      bool
	IsVisible     bool
	SortOrder     int
	Version       int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ReconstructPlan rebuilds a plan from persistence without re-running creation rules.
func ReconstructPlan(p ReconstructParams) (*Plan, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("plan ID cannot be zero")
	}
	if p.Code == "" {
		return nil, fmt.Errorf("plan code is required")
	}
	return &Plan{
		id:            p.ID,
		code:          p.Code,
		name:          p.Name,
		description:   p.Description,
		family:        p.Family,
		prices:        roundPrices(p.Prices),
		limits:        copyLimits(p.Limits),
		features:      copyFeatures(p.Features),
		messagePrices: roundMessagePrices(p.MessagePrices),
		isActive:      p.IsActive,
		isVisible:     p.IsVisible,
		sortOrder:     p.SortOrder,
		version:       p.Version,
		createdAt:     p.CreatedAt,
		updatedAt:     p.UpdatedAt,
	}, nil
}

func (p *Plan) ID() uint                     { return p.id }
func (p *Plan) Code() string                 { return p.code }
func (p *Plan) Name() string                 { return p.name }
func (p *Plan) Description() string          { return p.description }
func (p *Plan) Family() string               { return p.family }
func (p *Plan) Prices() vo.Prices            { return p.prices }
func (p *Plan) Limits() vo.Limits            { return p.limits }
func (p *Plan) Features() map[string]bool    { return p.features }
func (p *Plan) MessagePrices() MessagePrices { return p.messagePrices }
func (p *Plan) IsActive() bool               { return p.isActive }
func (p *Plan) IsVisible() bool              { return p.isVisible }
func (p *Plan) SortOrder() int               { return p.sortOrder }
func (p *Plan) Version() int                 { return p.version }
func (p *Plan) CreatedAt() time.Time         { return p.createdAt }
func (p *Plan) UpdatedAt() time.Time         { return p.updatedAt }

// SetID sets the plan ID (only for persistence layer use)
func (p *Plan) SetID(id uint) error {
	if p.id != 0 {
		return fmt.Errorf("plan ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("plan ID cannot be zero")
	}
	p.id = id
	return nil
}

// PriceFor returns the price of one period on cycle.
func (p *Plan) PriceFor(cycle vo.BillingCycle) (decimal.Decimal, error) {
	if !cycle.IsValid() {
		return decimal.Zero, fmt.Errorf("%w: %q", vo.ErrInvalidBillingCycle, cycle)
	}
	price, ok := p.prices.For(cycle)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrPriceNotAvailable, cycle)
	}
	return price, nil
}

// LimitFor returns the cap for rt.
func (p *Plan) LimitFor(rt vo.ResourceType) vo.Limit {
	return p.limits.For(rt)
}

// HasFeature reports whether the named feature flag is on.
func (p *Plan) HasFeature(name string) bool {
	return p.features[name]
}

// UpdateParams carries optional changes; nil fields are left untouched.
type UpdateParams struct {
	Name          *string
	Description   *string
	Family        *string
	Prices        vo.Prices
	Limits        vo.Limits
	Features      map[string]bool
	MessagePrices MessagePrices
	IsActive      *bool
	IsVisible     *bool
	SortOrder     *int
}

// Update applies params atomically: nothing changes when validation fails.
func (p *Plan) Update(params UpdateParams) error {
	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return fmt.Errorf("plan name is required")
		}
		if len(name) > 100 {
			return fmt.Errorf("plan name too long (max 100 characters)")
		}
	}

	prices := p.prices
	if params.Prices != nil {
		prices = params.Prices
	}
	messagePrices := p.messagePrices
	if params.MessagePrices != nil {
		messagePrices = params.MessagePrices
	}
	if err := validatePricing(prices, messagePrices); err != nil {
		return err
	}

	if params.Name != nil {
		p.name = strings.TrimSpace(*params.Name)
	}
	if params.Description != nil {
		p.description = *params.Description
	}
	if params.Family != nil {
		p.family = strings.TrimSpace(*params.Family)
	}
	p.prices = roundPrices(prices)
	p.messagePrices = roundMessagePrices(messagePrices)
	if params.Limits != nil {
		p.limits = copyLimits(params.Limits)
	}
	if params.Features != nil {
		p.features = copyFeatures(params.Features)
	}
	if params.IsActive != nil {
		p.isActive = *params.IsActive
	}
	if params.IsVisible != nil {
		p.isVisible = *params.IsVisible
	}
	if params.SortOrder != nil {
		p.sortOrder = *params.SortOrder
	}

	p.updatedAt = biztime.NowUTC()
	p.version++
	return nil
}

func validatePricing(prices vo.Prices, messagePrices MessagePrices) error {
	if len(prices) == 0 {
		return ErrNoPrices
	}
	if err := prices.Validate(); err != nil {
		return err
	}
	for category, price := range messagePrices {
		if _, err := vo.ParseMessageCategory(string(category)); err != nil {
			return err
		}
		if price.IsNegative() {
			return fmt.Errorf("%s message price: %w", category, vo.ErrNegativeAmount)
		}
	}
	return nil
}

func roundPrices(in vo.Prices) vo.Prices {
	out := make(vo.Prices, len(in))
	for cycle, price := range in {
		out[cycle] = vo.RoundMoney(price)
	}
	return out
}

// Message prices keep four decimals: they are per-message fractions of a cent.
func roundMessagePrices(in MessagePrices) MessagePrices {
	out := make(MessagePrices, len(in))
	for category, price := range in {
		out[category] = price.Round(4)
	}
	return out
}

func copyLimits(in vo.Limits) vo.Limits {
	out := make(vo.Limits, len(in))
	for rt, l := range in {
		out[rt] = l
	}
	return out
}

func copyFeatures(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Snapshot returns every field in reconstructable form, for caching.
func (p *Plan) Snapshot() ReconstructParams {
	return ReconstructParams{
		ID:            p.id,
		Code:          p.code,
		Name:          p.name,
		Description:   p.description,
		Family:        p.family,
		Prices:        roundPrices(p.prices),
		Limits:        copyLimits(p.limits),
		Features:      copyFeatures(p.features),
		MessagePrices: roundMessagePrices(p.messagePrices),
		IsActive:      p.isActive,
		IsVisible:     p.isVisible,
		SortOrder:     p.sortOrder,
		Version:       p.version,
		CreatedAt:     p.createdAt,
		UpdatedAt:     p.updatedAt,
	}
}

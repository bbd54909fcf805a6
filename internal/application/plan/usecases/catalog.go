// Package usecases holds the plan catalogue: cached reads, pricing lookup and admin writes.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"msgdeck/internal/application/plan/dto"
	"msgdeck/internal/domain/plan"
	vo "msgdeck/internal/domain/shared/valueobjects"
	"msgdeck/internal/infrastructure/cache"
	"msgdeck/internal/shared/db"
	apperrors "msgdeck/internal/shared/errors"
	"msgdeck/internal/shared/logger"
)

// PlanCatalog serves plans read-through the cache. Concurrent misses on one key
// share a single database load.
type PlanCatalog struct {
	repo     plan.Repository
	cache    *cache.BestEffort
	ttl      time.Duration
	currency string
	group    singleflight.Group
	logger   logger.Interface
}

func NewPlanCatalog(
	repo plan.Repository,
	planCache *cache.BestEffort,
	ttl time.Duration,
	currency string,
	logger logger.Interface,
) *PlanCatalog {
	return &PlanCatalog{
		repo:     repo,
		cache:    planCache,
		ttl:      ttl,
		currency: strings.ToUpper(currency),
		logger:   logger,
	}
}

// ListActivePlans returns active, visible plans ordered by sort order then id.
func (c *PlanCatalog) ListActivePlans(ctx context.Context) ([]*plan.Plan, error) {
	var snaps []plan.ReconstructParams
	if c.cache.GetJSON(ctx, cache.KeyActivePlans, &snaps) {
		if plans, err := reconstructAll(snaps); err == nil {
			return plans, nil
		}
	}

	v, err := c.shared(ctx, cache.KeyActivePlans, func(ctx context.Context) (any, error) {
		plans, err := c.repo.ListActiveVisible(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]plan.ReconstructParams, 0, len(plans))
		for _, p := range plans {
			out = append(out, p.Snapshot())
		}
		c.cache.SetJSON(ctx, cache.KeyActivePlans, out, c.ttl)
		return out, nil
	})
	if err != nil {
		c.logger.Errorw("failed to list active plans", "error", err)
		return nil, apperrors.NewInternalError("failed to list plans")
	}

	plans, err := reconstructAll(v.([]plan.ReconstructParams))
	if err != nil {
		c.logger.Errorw("failed to rebuild plans", "error", err)
		return nil, apperrors.NewInternalError("failed to list plans")
	}
	return plans, nil
}

func (c *PlanCatalog) FindByID(ctx context.Context, id uint) (*plan.Plan, error) {
	if id == 0 {
		return nil, apperrors.NewValidationError("plan ID is required")
	}
	return c.load(ctx, cache.PlanKey(id), func(ctx context.Context) (*plan.Plan, error) {
		return c.repo.GetByID(ctx, id)
	})
}

// FindByCode looks the plan up by its lower-cased code.
func (c *PlanCatalog) FindByCode(ctx context.Context, code string) (*plan.Plan, error) {
	code = plan.NormalizeCode(code)
	if code == "" {
		return nil, apperrors.NewValidationError("plan code is required")
	}
	return c.load(ctx, cache.PlanCodeKey(code), func(ctx context.Context) (*plan.Plan, error) {
		return c.repo.GetByCode(ctx, code)
	})
}

// sharedFetchTimeout bounds a load that no longer follows any single caller's context.
const sharedFetchTimeout = 10 * time.Second

// shared runs fn once per key across concurrent callers. The load is detached from the
// first caller's cancellation, and each caller stops waiting when its own ctx ends.
// Inside a database transaction fn runs alone on the caller's ctx.
func (c *PlanCatalog) shared(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	if db.InTransaction(ctx) {
		return fn(ctx)
	}

	ch := c.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		return fn(loadCtx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *PlanCatalog) load(ctx context.Context, key string, fetch func(context.Context) (*plan.Plan, error)) (*plan.Plan, error) {
	var snap plan.ReconstructParams
	if c.cache.GetJSON(ctx, key, &snap) {
		if p, err := plan.ReconstructPlan(snap); err == nil {
			return p, nil
		}
	}

	v, err := c.shared(ctx, key, func(ctx context.Context) (any, error) {
		p, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, plan.ErrPlanNotFound
		}
		snap := p.Snapshot()
		c.cache.SetJSON(ctx, key, snap, c.ttl)
		return snap, nil
	})
	if err != nil {
		if errors.Is(err, plan.ErrPlanNotFound) {
			return nil, apperrors.NewNotFoundError("plan not found")
		}
		c.logger.Errorw("failed to load plan", "key", key, "error", err)
		return nil, apperrors.NewInternalError("failed to get plan")
	}

	p, err := plan.ReconstructPlan(v.(plan.ReconstructParams))
	if err != nil {
		c.logger.Errorw("failed to rebuild plan", "key", key, "error", err)
		return nil, apperrors.NewInternalError("failed to get plan")
	}
	return p, nil
}

// GetPricing returns the price of one billing cycle. The cycle is case-insensitive.
func (c *PlanCatalog) GetPricing(ctx context.Context, id uint, cycle string) (*dto.PricingDTO, error) {
	billingCycle, err := vo.ParseBillingCycle(cycle)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid billing cycle", "must be one of MONTHLY, YEARLY, LIFETIME")
	}

	p, err := c.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	price, err := p.PriceFor(billingCycle)
	if err != nil {
		return nil, apperrors.NewValidationError("plan is not available for this billing cycle", billingCycle.String())
	}

	return &dto.PricingDTO{
		PlanID:       p.ID(),
		PlanName:     p.Name(),
		BillingCycle: billingCycle.String(),
		Price:        price,
		Currency:     c.currency,
	}, nil
}

// ListPlans is the admin listing; it includes inactive and hidden plans.
func (c *PlanCatalog) ListPlans(ctx context.Context, filter plan.Filter) ([]*plan.Plan, int64, error) {
	plans, total, err := c.repo.List(ctx, filter)
	if err != nil {
		c.logger.Errorw("failed to list plans", "error", err)
		return nil, 0, apperrors.NewInternalError("failed to list plans")
	}
	return plans, total, nil
}

type CreatePlanCommand struct {
	Code          string
	Name          string
	Description   string
	Family        string
	Prices        map[string]decimal.Decimal
	Limits        map[string]int64
	Features      map[string]bool
	MessagePrices map[string]decimal.Decimal
	IsActive      bool
	IsVisible     bool
	SortOrder     int
}

func (c *PlanCatalog) CreatePlan(ctx context.Context, cmd CreatePlanCommand) (*plan.Plan, error) {
	prices, limits, messagePrices, err := parseTerms(cmd.Prices, cmd.Limits, cmd.MessagePrices)
	if err != nil {
		return nil, err
	}

	exists, err := c.repo.ExistsByCode(ctx, plan.NormalizeCode(cmd.Code))
	if err != nil {
		c.logger.Errorw("failed to check plan code", "code", cmd.Code, "error", err)
		return nil, apperrors.NewInternalError("failed to create plan")
	}
	if exists {
		return nil, apperrors.NewConflictError("plan code already exists", plan.NormalizeCode(cmd.Code))
	}

	p, err := plan.NewPlan(plan.CreateParams{
		Code:          cmd.Code,
		Name:          cmd.Name,
		Description:   cmd.Description,
		Family:        cmd.Family,
		Prices:        prices,
		Limits:        limits,
		Features:      cmd.Features,
		MessagePrices: messagePrices,
		IsActive:      cmd.IsActive,
		IsVisible:     cmd.IsVisible,
		SortOrder:     cmd.SortOrder,
	})
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	if err := c.repo.Create(ctx, p); err != nil {
		if apperrors.IsDuplicateError(err) {
			return nil, apperrors.NewConflictError("plan code already exists", p.Code())
		}
		c.logger.Errorw("failed to create plan", "code", p.Code(), "error", err)
		return nil, apperrors.NewInternalError("failed to create plan")
	}

	c.Invalidate(ctx)
	c.logger.Infow("plan created", "plan_id", p.ID(), "code", p.Code())
	return p, nil
}

// UpdatePlanCommand leaves nil fields untouched.
type UpdatePlanCommand struct {
	ID            uint
	Name          *string
	Description   *string
	Family        *string
	Prices        map[string]decimal.Decimal
	Limits        map[string]int64
	Features      map[string]bool
	MessagePrices map[string]decimal.Decimal
	IsActive      *bool
	IsVisible     *bool
	SortOrder     *int
}

func (c *PlanCatalog) UpdatePlan(ctx context.Context, cmd UpdatePlanCommand) (*plan.Plan, error) {
	prices, limits, messagePrices, err := parseTerms(cmd.Prices, cmd.Limits, cmd.MessagePrices)
	if err != nil {
		return nil, err
	}

	p, err := c.repo.GetByID(ctx, cmd.ID)
	if err != nil {
		c.logger.Errorw("failed to get plan", "plan_id", cmd.ID, "error", err)
		return nil, apperrors.NewInternalError("failed to update plan")
	}
	if p == nil {
		return nil, apperrors.NewNotFoundError("plan not found")
	}

	if err := p.Update(plan.UpdateParams{
		Name:          cmd.Name,
		Description:   cmd.Description,
		Family:        cmd.Family,
		Prices:        prices,
		Limits:        limits,
		Features:      cmd.Features,
		MessagePrices: messagePrices,
		IsActive:      cmd.IsActive,
		IsVisible:     cmd.IsVisible,
		SortOrder:     cmd.SortOrder,
	}); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	if err := c.repo.Update(ctx, p); err != nil {
		if errors.Is(err, plan.ErrPlanNotFound) {
			return nil, apperrors.NewNotFoundError("plan not found")
		}
		c.logger.Errorw("failed to update plan", "plan_id", cmd.ID, "error", err)
		return nil, apperrors.NewInternalError("failed to update plan")
	}

	c.Invalidate(ctx)
	c.logger.Infow("plan updated", "plan_id", p.ID(), "version", p.Version())
	return p, nil
}

// Invalidate drops every plan:* and plans:* key.
func (c *PlanCatalog) Invalidate(ctx context.Context) {
	c.cache.DeletePattern(ctx, cache.PatternPlans)
}

// Warm reloads the active plan list into the cache.
func (c *PlanCatalog) Warm(ctx context.Context) error {
	c.cache.Delete(ctx, cache.KeyActivePlans)
	plans, err := c.ListActivePlans(ctx)
	if err != nil {
		return err
	}
	for _, p := range plans {
		c.cache.SetJSON(ctx, cache.PlanKey(p.ID()), p.Snapshot(), c.ttl)
	}
	return nil
}

// parseTerms converts the wire maps; nil inputs stay nil so updates leave them alone.
func parseTerms(
	rawPrices map[string]decimal.Decimal,
	rawLimits map[string]int64,
	rawMessagePrices map[string]decimal.Decimal,
) (vo.Prices, vo.Limits, plan.MessagePrices, error) {
	var (
		prices        vo.Prices
		limits        vo.Limits
		messagePrices plan.MessagePrices
		err           error
	)
	if rawPrices != nil {
		if prices, err = vo.PricesFromWire(rawPrices); err != nil {
			return nil, nil, nil, apperrors.NewValidationError("invalid prices", err.Error())
		}
	}
	if rawLimits != nil {
		if limits, err = vo.LimitsFromWire(rawLimits); err != nil {
			return nil, nil, nil, apperrors.NewValidationError("invalid limits", err.Error())
		}
	}
	if rawMessagePrices != nil {
		messagePrices = make(plan.MessagePrices, len(rawMessagePrices))
		for k, v := range rawMessagePrices {
			category, err := vo.ParseMessageCategory(k)
			if err != nil || category == "" {
				return nil, nil, nil, apperrors.NewValidationError("invalid message prices", fmt.Sprintf("unknown category %q", k))
			}
			messagePrices[category] = v
		}
	}
	return prices, limits, messagePrices, nil
}

func reconstructAll(snaps []plan.ReconstructParams) ([]*plan.Plan, error) {
	plans := make([]*plan.Plan, 0, len(snaps))
	for _, s := range snaps {
		p, err := plan.ReconstructPlan(s)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

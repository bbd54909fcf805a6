// Package usecases implements promo validation, discount maths, redemption and admin CRUD.
package usecases

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	plandto "msgdeck/internal/application/plan/dto"
	"msgdeck/internal/application/promo/dto"
	"msgdeck/internal/domain/promo"
	vo "msgdeck/internal/domain/shared/valueobjects"
	"msgdeck/internal/infrastructure/cache"
	"msgdeck/internal/shared/biztime"
	"msgdeck/internal/shared/db"
	apperrors "msgdeck/internal/shared/errors"
	"msgdeck/internal/shared/logger"
)

// Messages returned to clients. They are part of the API contract.
const (
	MsgValid             = "Promo code is valid"
	MsgInvalidOrInactive = "Invalid or inactive promo code"
	MsgNotYetValid       = "Promo code is not yet valid"
	MsgExpired           = "Promo code has expired"
	MsgUsageLimitReached = "Promo code usage limit reached"
	MsgAlreadyUsed       = "You have already used this promo code"
	MsgPlanNotApplicable = "Promo code is not applicable to this plan"
	MsgCycleNotAllowed   = "Promo code is not applicable to this billing cycle"
)

var messages = map[error]string{
	promo.ErrPromoNotFound:           MsgInvalidOrInactive,
	promo.ErrPromoInactive:           MsgInvalidOrInactive,
	promo.ErrPromoNotYetValid:        MsgNotYetValid,
	promo.ErrPromoExpired:            MsgExpired,
	promo.ErrPromoExhausted:          MsgUsageLimitReached,
	promo.ErrPromoAlreadyUsed:        MsgAlreadyUsed,
	promo.ErrPromoPlanNotApplicable:  MsgPlanNotApplicable,
	promo.ErrPromoCycleNotApplicable: MsgCycleNotAllowed,
}

// ValidationResult is Valid with the promo, or not valid with the reason.
type ValidationResult struct {
	Valid   bool
	Promo   *promo.PromoCode
	Message string
}

func invalid(err error) *ValidationResult {
	return &ValidationResult{Message: messages[err]}
}

// PriceLookup resolves the price a discount is computed against.
type PriceLookup interface {
	GetPricing(ctx context.Context, planID uint, cycle string) (*plandto.PricingDTO, error)
}

type PromoEngine struct {
	repo   promo.Repository
	txm    db.Runner
	cache  *cache.BestEffort
	ttl    time.Duration
	prices PriceLookup
	logger logger.Interface
	now    func() time.Time
}

func NewPromoEngine(
	repo promo.Repository,
	txm db.Runner,
	promoCache *cache.BestEffort,
	ttl time.Duration,
	prices PriceLookup,
	logger logger.Interface,
) *PromoEngine {
	return &PromoEngine{
		repo:   repo,
		txm:    txm,
		cache:  promoCache,
		ttl:    ttl,
		prices: prices,
		logger: logger,
		now:    biztime.NowUTC,
	}
}

// findByCode reads the promo row through the cache. Unknown codes are not cached.
func (e *PromoEngine) findByCode(ctx context.Context, code string) (*promo.PromoCode, error) {
	key := cache.PromoKey(code)

	var snap promo.ReconstructParams
	if e.cache.GetJSON(ctx, key, &snap) {
		if p, err := promo.ReconstructPromoCode(snap); err == nil {
			return p, nil
		}
	}

	p, err := e.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if p != nil {
		e.cache.SetJSON(ctx, key, p.Snapshot(), e.ttl)
	}
	return p, nil
}

// Validate runs the checks in order and stops at the first failure. A failed check is
// a normal result with a message; only infrastructure failures return an error.
func (e *PromoEngine) Validate(ctx context.Context, code string, userID, planID uint, cycle vo.BillingCycle) (*ValidationResult, error) {
	code = promo.NormalizeCode(code)
	if code == "" {
		return invalid(promo.ErrPromoNotFound), nil
	}

	p, err := e.findByCode(ctx, code)
	if err != nil {
		e.logger.Errorw("failed to get promo code", "code", code, "error", err)
		return nil, apperrors.NewInternalError("failed to validate promo code")
	}
	if p == nil {
		return invalid(promo.ErrPromoNotFound), nil
	}

	if err := p.CheckAvailability(e.now()); err != nil {
		return invalid(err), nil
	}

	// Per-user usage always comes from the redemption rows, never from the cache.
	used, err := e.repo.CountUsagesByUser(ctx, p.ID(), userID)
	if err != nil {
		e.logger.Errorw("failed to count promo usages", "promo_id", p.ID(), "user_id", userID, "error", err)
		return nil, apperrors.NewInternalError("failed to validate promo code")
	}
	if err := p.CheckUserUsage(used); err != nil {
		return invalid(err), nil
	}
	if err := p.CheckPlan(planID); err != nil {
		return invalid(err), nil
	}
	if err := p.CheckCycle(cycle); err != nil {
		return invalid(err), nil
	}

	return &ValidationResult{Valid: true, Promo: p, Message: MsgValid}, nil
}

// CalculateDiscount applies p to originalAmount.
func (e *PromoEngine) CalculateDiscount(p *promo.PromoCode, originalAmount decimal.Decimal) promo.Discount {
	return p.CalculateDiscount(originalAmount)
}

type QuoteCommand struct {
	Code         string
	UserID       uint
	PlanID       uint
	BillingCycle string
}

// Quote validates code and prices it against the plan's price for the cycle.
func (e *PromoEngine) Quote(ctx context.Context, cmd QuoteCommand) (*dto.DiscountDTO, error) {
	pricing, err := e.prices.GetPricing(ctx, cmd.PlanID, cmd.BillingCycle)
	if err != nil {
		return nil, err
	}
	cycle := vo.BillingCycle(pricing.BillingCycle)

	result, err := e.Validate(ctx, cmd.Code, cmd.UserID, cmd.PlanID, cycle)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, apperrors.NewValidationError(result.Message)
	}

	d := e.CalculateDiscount(result.Promo, pricing.Price)
	return &dto.DiscountDTO{
		Code:           result.Promo.Code(),
		PlanID:         pricing.PlanID,
		BillingCycle:   pricing.BillingCycle,
		OriginalAmount: d.OriginalAmount,
		DiscountAmount: d.DiscountAmount,
		FinalAmount:    d.FinalAmount,
		Currency:       pricing.Currency,
	}, nil
}

type RecordUsageCommand struct {
	PromoID        uint
	UserID         uint
	SubscriptionID uint
	TransactionID  uint
	DiscountAmount decimal.Decimal
}

// RecordUsage claims one use of the promo. The capped increment, the redemption row and
// the per-user recount share one transaction (the caller's when there is one), so a
// concurrent redemption past either cap rolls back.
func (e *PromoEngine) RecordUsage(ctx context.Context, cmd RecordUsageCommand) error {
	var code string
	err := e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := e.repo.GetByID(ctx, cmd.PromoID)
		if err != nil {
			e.logger.Errorw("failed to get promo code", "promo_id", cmd.PromoID, "error", err)
			return apperrors.NewInternalError("failed to record promo usage")
		}
		if p == nil {
			return apperrors.NewNotFoundError("promo code not found")
		}
		code = p.Code()

		claimed, err := e.repo.IncrementUsesGuarded(ctx, p.ID())
		if err != nil {
			e.logger.Errorw("failed to increment promo uses", "promo_id", p.ID(), "error", err)
			return apperrors.NewInternalError("failed to record promo usage")
		}
		if !claimed {
			return apperrors.NewConflictError(MsgUsageLimitReached)
		}

		usage, err := promo.NewPromoUsage(p.ID(), cmd.UserID, cmd.SubscriptionID, cmd.TransactionID, cmd.DiscountAmount, e.now())
		if err != nil {
			return apperrors.NewValidationError(err.Error())
		}
		if err := e.repo.CreateUsage(ctx, usage); err != nil {
			e.logger.Errorw("failed to create promo usage", "promo_id", p.ID(), "user_id", cmd.UserID, "error", err)
			return apperrors.NewInternalError("failed to record promo usage")
		}

		used, err := e.repo.CountUsagesByUser(ctx, p.ID(), cmd.UserID)
		if err != nil {
			e.logger.Errorw("failed to count promo usages", "promo_id", p.ID(), "user_id", cmd.UserID, "error", err)
			return apperrors.NewInternalError("failed to record promo usage")
		}
		if used > int64(p.MaxUsesPerUser()) {
			return apperrors.NewConflictError(MsgAlreadyUsed)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.cache.Delete(ctx, cache.PromoKey(code))
	e.logger.Infow("promo code redeemed",
		"promo_id", cmd.PromoID,
		"code", code,
		"user_id", cmd.UserID,
		"subscription_id", cmd.SubscriptionID,
		"discount", cmd.DiscountAmount.StringFixed(vo.MoneyScale),
	)
	return nil
}

// ListActive returns codes that are active, inside their window and not exhausted.
func (e *PromoEngine) ListActive(ctx context.Context) ([]*promo.PromoCode, error) {
	now := e.now()
	promos, err := e.repo.ListBrowsable(ctx, now)
	if err != nil {
		e.logger.Errorw("failed to list active promo codes", "error", err)
		return nil, apperrors.NewInternalError("failed to list promo codes")
	}
	out := promos[:0]
	for _, p := range promos {
		if p.IsBrowsable(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

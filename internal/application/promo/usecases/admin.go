package usecases

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"msgdeck/internal/domain/promo"
	vo "msgdeck/internal/domain/shared/valueobjects"
	"msgdeck/internal/infrastructure/cache"
	apperrors "msgdeck/internal/shared/errors"
)

type CreatePromoCommand struct {
	Code              string
	Description       string
	DiscountType      string
	DiscountValue     decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	ApplicablePlans   []uint
	ApplicableCycles  []string
	ValidFrom         time.Time
	ValidUntil        time.Time
	MaxUses           *int
	MaxUsesPerUser    int
	IsActive          bool
}

func (e *PromoEngine) CreatePromo(ctx context.Context, cmd CreatePromoCommand) (*promo.PromoCode, error) {
	discountType, err := promo.ParseDiscountType(cmd.DiscountType)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid discount type", "must be PERCENTAGE or FIXED_AMOUNT")
	}
	cycles, err := parseCycles(cmd.ApplicableCycles)
	if err != nil {
		return nil, err
	}

	p, err := promo.NewPromoCode(promo.CreateParams{
		Code:              cmd.Code,
		Description:       cmd.Description,
		DiscountType:      discountType,
		DiscountValue:     cmd.DiscountValue,
		MaxDiscountAmount: cmd.MaxDiscountAmount,
		ApplicablePlans:   cmd.ApplicablePlans,
		ApplicableCycles:  cycles,
		ValidFrom:         cmd.ValidFrom,
		ValidUntil:        cmd.ValidUntil,
		MaxUses:           cmd.MaxUses,
		MaxUsesPerUser:    cmd.MaxUsesPerUser,
		IsActive:          cmd.IsActive,
	})
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	exists, err := e.repo.ExistsByCode(ctx, p.Code())
	if err != nil {
		e.logger.Errorw("failed to check promo code", "code", p.Code(), "error", err)
		return nil, apperrors.NewInternalError("failed to create promo code")
	}
	if exists {
		return nil, apperrors.NewConflictError("promo code already exists", p.Code())
	}

	if err := e.repo.Create(ctx, p); err != nil {
		if apperrors.IsDuplicateError(err) {
			return nil, apperrors.NewConflictError("promo code already exists", p.Code())
		}
		e.logger.Errorw("failed to create promo code", "code", p.Code(), "error", err)
		return nil, apperrors.NewInternalError("failed to create promo code")
	}

	e.logger.Infow("promo code created", "promo_id", p.ID(), "code", p.Code())
	return p, nil
}

// UpdatePromoCommand leaves nil fields untouched. The code itself is immutable.
type UpdatePromoCommand struct {
	ID                uint
	Description       *string
	DiscountType      *string
	DiscountValue     *decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	ClearMaxDiscount  bool
	ApplicablePlans   []uint
	ApplicableCycles  []string
	ValidFrom         *time.Time
	ValidUntil        *time.Time
	MaxUses           *int
	ClearMaxUses      bool
	MaxUsesPerUser    *int
	IsActive          *bool
}

func (e *PromoEngine) UpdatePromo(ctx context.Context, cmd UpdatePromoCommand) (*promo.PromoCode, error) {
	p, err := e.getForWrite(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}

	params := promo.UpdateParams{
		Description:       cmd.Description,
		DiscountValue:     cmd.DiscountValue,
		MaxDiscountAmount: cmd.MaxDiscountAmount,
		ClearMaxDiscount:  cmd.ClearMaxDiscount,
		ApplicablePlans:   cmd.ApplicablePlans,
		ValidFrom:         cmd.ValidFrom,
		ValidUntil:        cmd.ValidUntil,
		MaxUses:           cmd.MaxUses,
		ClearMaxUses:      cmd.ClearMaxUses,
		MaxUsesPerUser:    cmd.MaxUsesPerUser,
		IsActive:          cmd.IsActive,
	}
	if cmd.DiscountType != nil {
		t, err := promo.ParseDiscountType(*cmd.DiscountType)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid discount type", "must be PERCENTAGE or FIXED_AMOUNT")
		}
		params.DiscountType = &t
	}
	if cmd.ApplicableCycles != nil {
		cycles, err := parseCycles(cmd.ApplicableCycles)
		if err != nil {
			return nil, err
		}
		params.ApplicableCycles = cycles
	}

	if err := p.Update(params); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	if err := e.save(ctx, p); err != nil {
		return nil, err
	}
	e.logger.Infow("promo code updated", "promo_id", p.ID(), "code", p.Code())
	return p, nil
}

// DeletePromo deactivates the code. Redemption rows keep pointing at it.
func (e *PromoEngine) DeletePromo(ctx context.Context, id uint) error {
	p, err := e.getForWrite(ctx, id)
	if err != nil {
		return err
	}
	p.Deactivate()
	if err := e.save(ctx, p); err != nil {
		return err
	}
	e.logger.Infow("promo code deactivated", "promo_id", p.ID(), "code", p.Code())
	return nil
}

func (e *PromoEngine) GetPromo(ctx context.Context, id uint) (*promo.PromoCode, error) {
	return e.getForWrite(ctx, id)
}

func (e *PromoEngine) ListPromos(ctx context.Context, filter promo.Filter) ([]*promo.PromoCode, int64, error) {
	filter.Code = strings.ToUpper(strings.TrimSpace(filter.Code))
	promos, total, err := e.repo.List(ctx, filter)
	if err != nil {
		e.logger.Errorw("failed to list promo codes", "error", err)
		return nil, 0, apperrors.NewInternalError("failed to list promo codes")
	}
	return promos, total, nil
}

func (e *PromoEngine) getForWrite(ctx context.Context, id uint) (*promo.PromoCode, error) {
	p, err := e.repo.GetByID(ctx, id)
	if err != nil {
		e.logger.Errorw("failed to get promo code", "promo_id", id, "error", err)
		return nil, apperrors.NewInternalError("failed to get promo code")
	}
	if p == nil {
		return nil, apperrors.NewNotFoundError("promo code not found")
	}
	return p, nil
}

func (e *PromoEngine) save(ctx context.Context, p *promo.PromoCode) error {
	if err := e.repo.Update(ctx, p); err != nil {
		e.logger.Errorw("failed to update promo code", "promo_id", p.ID(), "error", err)
		return apperrors.NewInternalError("failed to update promo code")
	}
	e.cache.Delete(ctx, cache.PromoKey(p.Code()))
	return nil
}

func parseCycles(raw []string) ([]vo.BillingCycle, error) {
	if raw == nil {
		return nil, nil
	}
	out := make([]vo.BillingCycle, 0, len(raw))
	for _, r := range raw {
		c, err := vo.ParseBillingCycle(r)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid billing cycle", r)
		}
		out = append(out, c)
	}
	return out, nil
}

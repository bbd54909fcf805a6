package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"msgdeck/internal/domain/promo"
	"msgdeck/internal/infrastructure/persistence/mappers"
	"msgdeck/internal/infrastructure/persistence/models"
	"msgdeck/internal/shared/db"
	"msgdeck/internal/shared/logger"
)

type PromoRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.PromoMapper
	logger logger.Interface
}

func NewPromoRepository(db *gorm.DB, logger logger.Interface) promo.Repository {
	return &PromoRepositoryImpl{
		db:     db,
		mapper: mappers.NewPromoMapper(),
		logger: logger,
	}
}

func (r *PromoRepositoryImpl) Create(ctx context.Context, p *promo.PromoCode) error {
	model := r.mapper.ToModel(p)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create promo code", "error", err, "code", p.Code())
		return fmt.Errorf("failed to create promo code: %w", err)
	}

	if err := p.SetID(model.ID); err != nil {
		return err
	}

	r.logger.Infow("promo code created successfully", "promo_id", model.ID, "code", p.Code())
	return nil
}

// Update never writes current_uses; that column only moves through IncrementUsesGuarded.
func (r *PromoRepositoryImpl) Update(ctx context.Context, p *promo.PromoCode) error {
	model := r.mapper.ToModel(p)

	result := db.GetTxFromContext(ctx, r.db).Model(&models.PromoCodeModel{}).
		Where("id = ?", p.ID()).
		Updates(map[string]any{
			"description":         model.Description,
			"discount_type":       model.DiscountType,
			"discount_value":      model.DiscountValue,
			"max_discount_amount": model.MaxDiscountAmount,
			"applicable_plans":    model.ApplicablePlans,
			"applicable_cycles":   model.ApplicableCycles,
			"valid_from":          model.ValidFrom,
			"valid_until":         model.ValidUntil,
			"max_uses":            model.MaxUses,
			"max_uses_per_user":   model.MaxUsesPerUser,
			"is_active":           model.IsActive,
			"updated_at":          model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update promo code", "error", result.Error, "promo_id", p.ID())
		return fmt.Errorf("failed to update promo code: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return promo.ErrPromoNotFound
	}

	r.logger.Infow("promo code updated successfully", "promo_id", p.ID())
	return nil
}

func (r *PromoRepositoryImpl) GetByID(ctx context.Context, id uint) (*promo.PromoCode, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *PromoRepositoryImpl) GetByCode(ctx context.Context, code string) (*promo.PromoCode, error) {
	return r.first(ctx, "code = ?", promo.NormalizeCode(code))
}

func (r *PromoRepositoryImpl) first(ctx context.Context, query string, arg any) (*promo.PromoCode, error) {
	var model models.PromoCodeModel
	err := withReadRetry(ctx, func(ctx context.Context) error {
		return db.GetTxFromContext(ctx, r.db).Where(query, arg).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get promo code", "error", err, "lookup", arg)
		return nil, fmt.Errorf("failed to get promo code: %w", err)
	}
	return r.mapper.ToEntity(&model)
}

func (r *PromoRepositoryImpl) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := withReadRetry(ctx, func(ctx context.Context) error {
		return db.GetTxFromContext(ctx, r.db).Model(&models.PromoCodeModel{}).
			Where("code = ?", promo.NormalizeCode(code)).
			Count(&count).Error
	})
	if err != nil {
		r.logger.Errorw("failed to check promo code", "error", err, "code", code)
		return false, fmt.Errorf("failed to check promo code: %w", err)
	}
	return count > 0, nil
}

func (r *PromoRepositoryImpl) List(ctx context.Context, filter promo.Filter) ([]*promo.PromoCode, int64, error) {
	page, pageSize := normalizePage(filter.Page, filter.PageSize)

	var (
		promoModels []*models.PromoCodeModel
		total       int64
	)
	err := withReadRetry(ctx, func(ctx context.Context) error {
		query := db.GetTxFromContext(ctx, r.db).Model(&models.PromoCodeModel{})
		if filter.IsActive != nil {
			query = query.Where("is_active = ?", *filter.IsActive)
		}
		if code := strings.TrimSpace(filter.Code); code != "" {
			query = query.Where("code LIKE ?", "%"+promo.NormalizeCode(code)+"%")
		}
		if err := query.Count(&total).Error; err != nil {
			return err
		}
		promoModels = nil
		return query.Order("created_at DESC, id DESC").
			Offset((page - 1) * pageSize).
			Limit(pageSize).
			Find(&promoModels).Error
	})
	if err != nil {
		r.logger.Errorw("failed to list promo codes", "error", err)
		return nil, 0, fmt.Errorf("failed to list promo codes: %w", err)
	}

	entities, err := r.mapper.ToEntities(promoModels)
	if err != nil {
		return nil, 0, err
	}
	return entities, total, nil
}

func (r *PromoRepositoryImpl) ListBrowsable(ctx context.Context, now time.Time) ([]*promo.PromoCode, error) {
	var promoModels []*models.PromoCodeModel
	err := withReadRetry(ctx, func(ctx context.Context) error {
		promoModels = nil
		return db.GetTxFromContext(ctx, r.db).
			Where("is_active = ? AND valid_from <= ? AND valid_until >= ?", true, now.UTC(), now.UTC()).
			Where("(max_uses IS NULL OR current_uses < max_uses)").
			Order("valid_until ASC, id ASC").
			Find(&promoModels).Error
	})
	if err != nil {
		r.logger.Errorw("failed to list browsable promo codes", "error", err)
		return nil, fmt.Errorf("failed to list browsable promo codes: %w", err)
	}
	return r.mapper.ToEntities(promoModels)
}

// IncrementUsesGuarded is a single conditional UPDATE; the database serializes
// concurrent redemptions on the row, so the cap cannot be overshot.
func (r *PromoRepositoryImpl) IncrementUsesGuarded(ctx context.Context, id uint) (bool, error) {
	result := db.GetTxFromContext(ctx, r.db).Model(&models.PromoCodeModel{}).
		Where("id = ? AND (max_uses IS NULL OR current_uses < max_uses)", id).
		UpdateColumn("current_uses", gorm.Expr("current_uses + ?", 1))
	if result.Error != nil {
		r.logger.Errorw("failed to increment promo usage", "error", result.Error, "promo_id", id)
		return false, fmt.Errorf("failed to increment promo usage: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *PromoRepositoryImpl) CreateUsage(ctx context.Context, usage *promo.PromoUsage) error {
	model := r.mapper.UsageToModel(usage)
	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create promo usage", "error", err, "promo_id", usage.PromoCodeID, "user_id", usage.UserID)
		return fmt.Errorf("failed to create promo usage: %w", err)
	}
	usage.ID = model.ID
	return nil
}

// CountUsagesByUser always reads the database; inside a transaction it sees the
// caller's own uncommitted insert.
func (r *PromoRepositoryImpl) CountUsagesByUser(ctx context.Context, promoCodeID, userID uint) (int64, error) {
	var count int64
	err := withReadRetry(ctx, func(ctx context.Context) error {
		return db.GetTxFromContext(ctx, r.db).Model(&models.PromoUsageModel{}).
			Where("promo_code_id = ? AND user_id = ?", promoCodeID, userID).
			Count(&count).Error
	})
	if err != nil {
		r.logger.Errorw("failed to count promo usages", "error", err, "promo_id", promoCodeID, "user_id", userID)
		return 0, fmt.Errorf("failed to count promo usages: %w", err)
	}
	return count, nil
}

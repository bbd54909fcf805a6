package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"msgdeck/internal/domain/plan"
	"msgdeck/internal/infrastructure/persistence/mappers"
	"msgdeck/internal/infrastructure/persistence/models"
	"msgdeck/internal/shared/db"
	"msgdeck/internal/shared/logger"
)

type PlanRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.PlanMapper
	logger logger.Interface
}

func NewPlanRepository(db *gorm.DB, logger logger.Interface) plan.Repository {
	return &PlanRepositoryImpl{
		db:     db,
		mapper: mappers.NewPlanMapper(),
		logger: logger,
	}
}

func (r *PlanRepositoryImpl) Create(ctx context.Context, p *plan.Plan) error {
	model, err := r.mapper.ToModel(p)
	if err != nil {
		r.logger.Errorw("failed to convert plan to model", "error", err)
		return fmt.Errorf("failed to convert plan to model: %w", err)
	}

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create plan", "error", err, "code", p.Code())
		return fmt.Errorf("failed to create plan: %w", err)
	}

	if err := p.SetID(model.ID); err != nil {
		return err
	}

	r.logger.Infow("plan created successfully", "plan_id", model.ID, "code", p.Code())
	return nil
}

func (r *PlanRepositoryImpl) Update(ctx context.Context, p *plan.Plan) error {
	model, err := r.mapper.ToModel(p)
	if err != nil {
		r.logger.Errorw("failed to convert plan to model", "error", err)
		return fmt.Errorf("failed to convert plan to model: %w", err)
	}

	result := db.GetTxFromContext(ctx, r.db).Model(&models.PlanModel{}).
		Where("id = ?", p.ID()).
		Updates(map[string]any{
			"name":           model.Name,
			"description":    model.Description,
			"family":         model.Family,
			"prices":         model.Prices,
			"limits":         model.Limits,
			"features":       model.Features,
			"message_prices": model.MessagePrices,
			"is_active":      model.IsActive,
			"is_visible":     model.IsVisible,
			"sort_order":     model.SortOrder,
			"version":        model.Version,
			"updated_at":     model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update plan", "error", result.Error, "plan_id", p.ID())
		return fmt.Errorf("failed to update plan: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return plan.ErrPlanNotFound
	}

	r.logger.Infow("plan updated successfully", "plan_id", p.ID())
	return nil
}

func (r *PlanRepositoryImpl) GetByID(ctx context.Context, id uint) (*plan.Plan, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *PlanRepositoryImpl) GetByCode(ctx context.Context, code string) (*plan.Plan, error) {
	return r.first(ctx, "code = ?", plan.NormalizeCode(code))
}

func (r *PlanRepositoryImpl) first(ctx context.Context, query string, arg any) (*plan.Plan, error) {
	var model models.PlanModel
	err := withReadRetry(ctx, func(ctx context.Context) error {
		return db.GetTxFromContext(ctx, r.db).Where(query, arg).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get plan", "error", err, "lookup", arg)
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return r.mapper.ToEntity(&model)
}

func (r *PlanRepositoryImpl) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := withReadRetry(ctx, func(ctx context.Context) error {
		return db.GetTxFromContext(ctx, r.db).Model(&models.PlanModel{}).
			Where("code = ?", plan.NormalizeCode(code)).
			Count(&count).Error
	})
	if err != nil {
		r.logger.Errorw("failed to check plan code", "error", err, "code", code)
		return false, fmt.Errorf("failed to check plan code: %w", err)
	}
	return count > 0, nil
}

func (r *PlanRepositoryImpl) ListActiveVisible(ctx context.Context) ([]*plan.Plan, error) {
	var planModels []*models.PlanModel
	err := withReadRetry(ctx, func(ctx context.Context) error {
		planModels = nil
		return db.GetTxFromContext(ctx, r.db).
			Where("is_active = ? AND is_visible = ?", true, true).
			Order("sort_order ASC, id ASC").
			Find(&planModels).Error
	})
	if err != nil {
		r.logger.Errorw("failed to list active plans", "error", err)
		return nil, fmt.Errorf("failed to list active plans: %w", err)
	}
	return r.mapper.ToEntities(planModels)
}

func (r *PlanRepositoryImpl) List(ctx context.Context, filter plan.Filter) ([]*plan.Plan, int64, error) {
	page, pageSize := normalizePage(filter.Page, filter.PageSize)

	var (
		planModels []*models.PlanModel
		total      int64
	)
	err := withReadRetry(ctx, func(ctx context.Context) error {
		query := db.GetTxFromContext(ctx, r.db).Model(&models.PlanModel{})
		if filter.IsActive != nil {
			query = query.Where("is_active = ?", *filter.IsActive)
		}
		if filter.IsVisible != nil {
			query = query.Where("is_visible = ?", *filter.IsVisible)
		}
		if filter.Family != "" {
			query = query.Where("family = ?", filter.Family)
		}
		if err := query.Count(&total).Error; err != nil {
			return err
		}
		planModels = nil
		return query.Order("sort_order ASC, id ASC").
			Offset((page - 1) * pageSize).
			Limit(pageSize).
			Find(&planModels).Error
	})
	if err != nil {
		r.logger.Errorw("failed to list plans", "error", err)
		return nil, 0, fmt.Errorf("failed to list plans: %w", err)
	}

	entities, err := r.mapper.ToEntities(planModels)
	if err != nil {
		return nil, 0, err
	}
	return entities, total, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	vo "msgdeck/internal/domain/shared/valueobjects"
	"msgdeck/internal/domain/usage"
	"msgdeck/internal/infrastructure/persistence/mappers"
	"msgdeck/internal/infrastructure/persistence/models"
	"msgdeck/internal/shared/biztime"
	"msgdeck/internal/shared/db"
	"msgdeck/internal/shared/logger"
)

type UsageRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.UsageRecordMapper
	logger logger.Interface
}

func NewUsageRepository(db *gorm.DB, logger logger.Interface) usage.Repository {
	return &UsageRepositoryImpl{
		db:     db,
		mapper: mappers.NewUsageRecordMapper(),
		logger: logger,
	}
}

func (r *UsageRepositoryImpl) GetByUserAndMonth(ctx context.Context, userID uint, month string) (*usage.UsageRecord, error) {
	var model models.UsageRecordModel
	err := withReadRetry(ctx, func(ctx context.Context) error {
		return db.GetTxFromContext(ctx, r.db).
			Where("user_id = ? AND month = ?", userID, month).
			Take(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get usage record", "error", err, "user_id", userID, "month", month)
		return nil, fmt.Errorf("failed to get usage record: %w", err)
	}
	return r.mapper.ToEntity(&model), nil
}

// CreateIfAbsent inserts with ON CONFLICT DO NOTHING, so losing the race never aborts
// the surrounding transaction.
func (r *UsageRepositoryImpl) CreateIfAbsent(ctx context.Context, record *usage.UsageRecord) (bool, error) {
	model := r.mapper.ToModel(record)
	result := db.GetTxFromContext(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "month"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		r.logger.Errorw("failed to create usage record", "error", result.Error, "user_id", record.UserID(), "month", record.Month())
		return false, fmt.Errorf("failed to create usage record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	record.SetID(model.ID)
	r.logger.Debugw("usage record created", "user_id", record.UserID(), "month", record.Month())
	return true, nil
}

func (r *UsageRepositoryImpl) Increment(ctx context.Context, userID uint, month string, rt vo.ResourceType, category vo.MessageCategory, delta int64) error {
	updates, err := counterUpdates(rt, category, func(col string) any {
		return gorm.Expr(col+" + ?", delta)
	})
	if err != nil {
		return err
	}
	return r.apply(ctx, "increment", userID, month, updates)
}

func (r *UsageRepositoryImpl) Decrement(ctx context.Context, userID uint, month string, rt vo.ResourceType, category vo.MessageCategory, delta int64) error {
	updates, err := counterUpdates(rt, category, func(col string) any {
		return gorm.Expr("CASE WHEN "+col+" > ? THEN "+col+" - ? ELSE 0 END", delta, delta)
	})
	if err != nil {
		return err
	}
	return r.apply(ctx, "decrement", userID, month, updates)
}

func (r *UsageRepositoryImpl) ResetMonthly(ctx context.Context, userID uint, month string, at time.Time) error {
	updates := map[string]any{"last_reset_at": at.UTC()}
	for _, rt := range vo.AllResourceTypes() {
		if rt.ResetsMonthly() {
			updates[mappers.ResourceColumn[rt]] = 0
		}
	}
	for _, col := range mappers.CategoryColumn {
		updates[col] = 0
	}
	return r.apply(ctx, "reset", userID, month, updates)
}

func (r *UsageRepositoryImpl) apply(ctx context.Context, op string, userID uint, month string, updates map[string]any) error {
	updates["updated_at"] = biztime.NowUTC()

	result := db.GetTxFromContext(ctx, r.db).Model(&models.UsageRecordModel{}).
		Where("user_id = ? AND month = ?", userID, month).
		UpdateColumns(updates)
	if result.Error != nil {
		r.logger.Errorw("failed to update usage counters", "error", result.Error, "op", op, "user_id", userID, "month", month)
		return fmt.Errorf("failed to %s usage: %w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return usage.ErrUsageRecordNotFound
	}
	return nil
}

func (r *UsageRepositoryImpl) LatestBefore(ctx context.Context, userID uint, month string) (*usage.UsageRecord, error) {
	var model models.UsageRecordModel
	err := withReadRetry(ctx, func(ctx context.Context) error {
		return db.GetTxFromContext(ctx, r.db).
			Where("user_id = ? AND month < ?", userID, month).
			Order("month DESC").
			Take(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get previous usage record", "error", err, "user_id", userID, "month", month)
		return nil, fmt.Errorf("failed to get previous usage record: %w", err)
	}
	return r.mapper.ToEntity(&model), nil
}

func (r *UsageRepositoryImpl) ListRecent(ctx context.Context, userID uint, limit int) ([]*usage.UsageRecord, error) {
	var usageModels []*models.UsageRecordModel
	err := withReadRetry(ctx, func(ctx context.Context) error {
		usageModels = nil
		return db.GetTxFromContext(ctx, r.db).
			Where("user_id = ?", userID).
			Order("month DESC").
			Limit(limit).
			Find(&usageModels).Error
	})
	if err != nil {
		r.logger.Errorw("failed to list usage history", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to list usage history: %w", err)
	}
	return r.mapper.ToEntities(usageModels), nil
}

// counterUpdates builds the column expressions for a resource and, for messages,
// its optional category.
func counterUpdates(rt vo.ResourceType, category vo.MessageCategory, expr func(col string) any) (map[string]any, error) {
	col, ok := mappers.ResourceColumn[rt]
	if !ok {
		return nil, fmt.Errorf("%w: %q", vo.ErrUnknownResourceType, rt)
	}
	updates := map[string]any{col: expr(col)}
	if category != "" && rt == vo.ResourceMessages {
		catCol, ok := mappers.CategoryColumn[category]
		if !ok {
			return nil, fmt.Errorf("%w: %q", vo.ErrUnknownMessageCategory, category)
		}
		updates[catCol] = expr(catCol)
	}
	return updates, nil
}

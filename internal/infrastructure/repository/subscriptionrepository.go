package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"msgdeck/internal/domain/subscription"
	subvo "msgdeck/internal/domain/subscription/valueobjects"
	"msgdeck/internal/infrastructure/persistence/mappers"
	"msgdeck/internal/infrastructure/persistence/models"
	"msgdeck/internal/shared/db"
	"msgdeck/internal/shared/logger"
)

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.SubscriptionMapper
	logger logger.Interface
}

func NewSubscriptionRepository(db *gorm.DB, logger logger.Interface) subscription.Repository {
	return &SubscriptionRepositoryImpl{
		db:     db,
		mapper: mappers.NewSubscriptionMapper(),
		logger: logger,
	}
}

// Create returns the raw driver error on a unique violation of active_user_key so the
// caller can map it to a conflict.
func (r *SubscriptionRepositoryImpl) Create(ctx context.Context, sub *subscription.Subscription) error {
	model := r.mapper.ToModel(sub)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Warnw("failed to create subscription", "error", err, "user_id", sub.UserID(), "plan_id", sub.PlanID())
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	if err := sub.SetID(model.ID); err != nil {
		return err
	}

	r.logger.Infow("subscription created successfully", "subscription_id", model.ID, "user_id", sub.UserID())
	return nil
}

func (r *SubscriptionRepositoryImpl) Update(ctx context.Context, sub *subscription.Subscription) error {
	model := r.mapper.ToModel(sub)

	result := db.GetTxFromContext(ctx, r.db).Model(&models.SubscriptionModel{}).
		Where("id = ? AND version = ?", sub.ID(), sub.Version()-1).
		Updates(map[string]any{
			"status":              model.Status,
			"end_date":            model.EndDate,
			"next_billing_date":   model.NextBillingDate,
			"amount_paid":         model.AmountPaid,
			"auto_renew":          model.AutoRenew,
			"cancelled_at":        model.CancelledAt,
			"cancellation_reason": model.CancellationReason,
			"cancelled_by":        model.CancelledBy,
			"active_user_key":     model.ActiveUserKey,
			"version":             model.Version,
			"updated_at":          model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update subscription", "error", result.Error, "subscription_id", sub.ID())
		return fmt.Errorf("failed to update subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		r.logger.Warnw("subscription version conflict", "subscription_id", sub.ID(), "version", sub.Version())
		return subscription.ErrConcurrentModification
	}

	r.logger.Infow("subscription updated successfully", "subscription_id", sub.ID(), "status", model.Status)
	return nil
}

func (r *SubscriptionRepositoryImpl) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	var model models.SubscriptionModel
	err := withReadRetry(ctx, func(ctx context.Context) error {
		return db.GetTxFromContext(ctx, r.db).First(&model, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get subscription by ID", "error", err, "subscription_id", id)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return r.mapper.ToEntity(&model)
}

func (r *SubscriptionRepositoryImpl) FindActiveByUser(ctx context.Context, userID uint, now time.Time) (*subscription.Subscription, error) {
	var model models.SubscriptionModel
	err := withReadRetry(ctx, func(ctx context.Context) error {
		return db.GetTxFromContext(ctx, r.db).
			Where("user_id = ? AND status = ?", userID, subvo.StatusActive.String()).
			Where("(end_date IS NULL OR end_date > ?)", now.UTC()).
			Order("created_at DESC, id DESC").
			Limit(1).
			Take(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to find active subscription", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to find active subscription: %w", err)
	}
	return r.mapper.ToEntity(&model)
}

func (r *SubscriptionRepositoryImpl) ListByUser(ctx context.Context, userID uint, page, pageSize int) ([]*subscription.Subscription, int64, error) {
	page, pageSize = normalizePage(page, pageSize)

	var (
		subModels []*models.SubscriptionModel
		total     int64
	)
	err := withReadRetry(ctx, func(ctx context.Context) error {
		query := db.GetTxFromContext(ctx, r.db).Model(&models.SubscriptionModel{}).Where("user_id = ?", userID)
		if err := query.Count(&total).Error; err != nil {
			return err
		}
		subModels = nil
		return query.Order("created_at DESC, id DESC").
			Offset((page - 1) * pageSize).
			Limit(pageSize).
			Find(&subModels).Error
	})
	if err != nil {
		r.logger.Errorw("failed to list subscriptions", "error", err, "user_id", userID)
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	entities, err := r.mapper.ToEntities(subModels)
	if err != nil {
		return nil, 0, err
	}
	return entities, total, nil
}

func (r *SubscriptionRepositoryImpl) FindDueForExpiry(ctx context.Context, now time.Time, limit int) ([]*subscription.Subscription, error) {
	if limit <= 0 {
		limit = 500
	}

	var subModels []*models.SubscriptionModel
	err := withReadRetry(ctx, func(ctx context.Context) error {
		subModels = nil
		return db.GetTxFromContext(ctx, r.db).
			Where("status = ? AND end_date IS NOT NULL AND end_date < ?", subvo.StatusActive.String(), now.UTC()).
			Order("end_date ASC, id ASC").
			Limit(limit).
			Find(&subModels).Error
	})
	if err != nil {
		r.logger.Errorw("failed to find subscriptions due for expiry", "error", err)
		return nil, fmt.Errorf("failed to find subscriptions due for expiry: %w", err)
	}
	return r.mapper.ToEntities(subModels)
}

func (r *SubscriptionRepositoryImpl) FindLapsedByUser(ctx context.Context, userID uint, now time.Time) ([]*subscription.Subscription, error) {
	var subModels []*models.SubscriptionModel
	err := withReadRetry(ctx, func(ctx context.Context) error {
		subModels = nil
		return db.GetTxFromContext(ctx, r.db).
			Where("user_id = ? AND status = ? AND end_date IS NOT NULL AND end_date < ?", userID, subvo.StatusActive.String(), now.UTC()).
			Order("id ASC").
			Find(&subModels).Error
	})
	if err != nil {
		r.logger.Errorw("failed to find lapsed subscriptions", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to find lapsed subscriptions: %w", err)
	}
	return r.mapper.ToEntities(subModels)
}

func (r *SubscriptionRepositoryImpl) ListActiveUserIDs(ctx context.Context) ([]uint, error) {
	var userIDs []uint
	err := withReadRetry(ctx, func(ctx context.Context) error {
		userIDs = nil
		return db.GetTxFromContext(ctx, r.db).Model(&models.SubscriptionModel{}).
			Where("status = ?", subvo.StatusActive.String()).
			Distinct("user_id").
			Order("user_id ASC").
			Pluck("user_id", &userIDs).Error
	})
	if err != nil {
		r.logger.Errorw("failed to list active user IDs", "error", err)
		return nil, fmt.Errorf("failed to list active user IDs: %w", err)
	}
	return userIDs, nil
}

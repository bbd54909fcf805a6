package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"msgdeck/internal/domain/transaction"
	txvo "msgdeck/internal/domain/transaction/valueobjects"
	"msgdeck/internal/infrastructure/persistence/mappers"
	"msgdeck/internal/infrastructure/persistence/models"
	"msgdeck/internal/shared/db"
	"msgdeck/internal/shared/logger"
)

type TransactionRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.TransactionMapper
	logger logger.Interface
}

func NewTransactionRepository(db *gorm.DB, logger logger.Interface) transaction.Repository {
	return &TransactionRepositoryImpl{
		db:     db,
		mapper: mappers.NewTransactionMapper(),
		logger: logger,
	}
}

func (r *TransactionRepositoryImpl) Create(ctx context.Context, tx *transaction.Transaction) error {
	model := r.mapper.ToModel(tx)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create transaction", "error", err, "reference", tx.Reference())
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	if err := tx.SetID(model.ID); err != nil {
		return err
	}

	r.logger.Infow("transaction recorded",
		"transaction_id", model.ID,
		"reference", tx.Reference(),
		"type", model.Type,
		"amount", model.Amount.StringFixed(2),
	)
	return nil
}

func (r *TransactionRepositoryImpl) Update(ctx context.Context, tx *transaction.Transaction) error {
	model := r.mapper.ToModel(tx)

	result := db.GetTxFromContext(ctx, r.db).Model(&models.TransactionModel{}).
		Where("id = ?", tx.ID()).
		Updates(map[string]any{
			"payment_status":    model.PaymentStatus,
			"gateway_reference": model.GatewayReference,
			"refunded_at":       model.RefundedAt,
			"refund_amount":     model.RefundAmount,
			"refund_reason":     model.RefundReason,
			"refunded_by":       model.RefundedBy,
			"updated_at":        model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update transaction", "error", result.Error, "transaction_id", tx.ID())
		return fmt.Errorf("failed to update transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return transaction.ErrTransactionNotFound
	}

	r.logger.Infow("transaction updated", "transaction_id", tx.ID(), "payment_status", model.PaymentStatus)
	return nil
}

func (r *TransactionRepositoryImpl) GetByID(ctx context.Context, id uint) (*transaction.Transaction, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *TransactionRepositoryImpl) GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error) {
	return r.first(ctx, "reference = ?", reference)
}

func (r *TransactionRepositoryImpl) first(ctx context.Context, query string, arg any) (*transaction.Transaction, error) {
	var model models.TransactionModel
	err := withReadRetry(ctx, func(ctx context.Context) error {
		return db.GetTxFromContext(ctx, r.db).Where(query, arg).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get transaction", "error", err, "lookup", arg)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return r.mapper.ToEntity(&model)
}

func (r *TransactionRepositoryImpl) List(ctx context.Context, filter transaction.Filter) ([]*transaction.Transaction, int64, error) {
	page, pageSize := normalizePage(filter.Page, filter.PageSize)

	var (
		txModels []*models.TransactionModel
		total    int64
	)
	err := withReadRetry(ctx, func(ctx context.Context) error {
		query := db.GetTxFromContext(ctx, r.db).Model(&models.TransactionModel{})
		if filter.UserID != nil {
			query = query.Where("user_id = ?", *filter.UserID)
		}
		if filter.Type != nil {
			query = query.Where("type = ?", filter.Type.String())
		}
		if filter.PaymentStatus != nil {
			query = query.Where("payment_status = ?", filter.PaymentStatus.String())
		}
		if filter.BillingCycle != nil {
			query = query.Where("billing_cycle = ?", filter.BillingCycle.String())
		}
		if filter.From != nil {
			query = query.Where("created_at >= ?", filter.From.UTC())
		}
		if filter.To != nil {
			query = query.Where("created_at < ?", filter.To.UTC())
		}
		if err := query.Count(&total).Error; err != nil {
			return err
		}
		txModels = nil
		return query.Order("created_at DESC, id DESC").
			Offset((page - 1) * pageSize).
			Limit(pageSize).
			Find(&txModels).Error
	})
	if err != nil {
		r.logger.Errorw("failed to list transactions", "error", err)
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}

	entities, err := r.mapper.ToEntities(txModels)
	if err != nil {
		return nil, 0, err
	}
	return entities, total, nil
}

var collectedStatuses = []string{txvo.PaymentStatusSuccess.String(), txvo.PaymentStatusRefunded.String()}

// collected scopes to money actually taken: SUCCESS or later REFUNDED, excluding
// standalone REFUND rows.
func (r *TransactionRepositoryImpl) collected(ctx context.Context, from, to time.Time) *gorm.DB {
	return db.GetTxFromContext(ctx, r.db).Model(&models.TransactionModel{}).
		Where("payment_status IN ? AND type <> ?", collectedStatuses, txvo.TransactionTypeRefund.String()).
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC())
}

func (r *TransactionRepositoryImpl) RevenueTotals(ctx context.Context, from, to time.Time) (transaction.RevenueTotals, error) {
	var row struct {
		Collected decimal.NullDecimal
		Refunded  decimal.NullDecimal
		RowCount  int64
	}
	err := withReadRetry(ctx, func(ctx context.Context) error {
		return r.collected(ctx, from, to).
			Select("SUM(amount) AS collected, SUM(COALESCE(refund_amount, 0)) AS refunded, COUNT(*) AS row_count").
			Scan(&row).Error
	})
	if err != nil {
		r.logger.Errorw("failed to compute revenue totals", "error", err)
		return transaction.RevenueTotals{}, fmt.Errorf("failed to compute revenue totals: %w", err)
	}
	return transaction.RevenueTotals{
		Collected: row.Collected.Decimal,
		Refunded:  row.Refunded.Decimal,
		Count:     row.RowCount,
	}, nil
}

func (r *TransactionRepositoryImpl) RevenueByType(ctx context.Context, from, to time.Time) ([]transaction.RevenueBucket, error) {
	return r.bucketBy(ctx, "type", from, to)
}

func (r *TransactionRepositoryImpl) RevenueByBillingCycle(ctx context.Context, from, to time.Time) ([]transaction.RevenueBucket, error) {
	return r.bucketBy(ctx, "billing_cycle", from, to)
}

func (r *TransactionRepositoryImpl) bucketBy(ctx context.Context, column string, from, to time.Time) ([]transaction.RevenueBucket, error) {
	var rows []struct {
		BucketKey   string
		BucketTotal decimal.NullDecimal
		BucketCount int64
	}
	err := withReadRetry(ctx, func(ctx context.Context) error {
		rows = nil
		return r.collected(ctx, from, to).
			Select(column + " AS bucket_key, SUM(amount) AS bucket_total, COUNT(*) AS bucket_count").
			Group(column).
			Order(column).
			Scan(&rows).Error
	})
	if err != nil {
		r.logger.Errorw("failed to compute revenue buckets", "error", err, "by", column)
		return nil, fmt.Errorf("failed to compute revenue by %s: %w", column, err)
	}

	buckets := make([]transaction.RevenueBucket, 0, len(rows))
	for _, row := range rows {
		buckets = append(buckets, transaction.RevenueBucket{
			Key:    row.BucketKey,
			Amount: row.BucketTotal.Decimal,
			Count:  row.BucketCount,
		})
	}
	return buckets, nil
}

func (r *TransactionRepositoryImpl) CollectedPoints(ctx context.Context, from, to time.Time) ([]transaction.RevenuePoint, error) {
	var rows []struct {
		CreatedAt    time.Time
		Amount       decimal.Decimal
		RefundAmount decimal.NullDecimal
	}
	err := withReadRetry(ctx, func(ctx context.Context) error {
		rows = nil
		return r.collected(ctx, from, to).
			Select("created_at, amount, refund_amount").
			Order("created_at ASC").
			Scan(&rows).Error
	})
	if err != nil {
		r.logger.Errorw("failed to load revenue points", "error", err)
		return nil, fmt.Errorf("failed to load revenue points: %w", err)
	}

	points := make([]transaction.RevenuePoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, transaction.RevenuePoint{
			CreatedAt:    row.CreatedAt,
			Amount:       row.Amount,
			RefundAmount: row.RefundAmount.Decimal,
		})
	}
	return points, nil
}

// Package usecases is the billing ledger: appends, forward-only payment status,
// refunds and revenue reporting.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"msgdeck/internal/application/transaction/dto"
	"msgdeck/internal/domain/shared/events"
	vo "msgdeck/internal/domain/shared/valueobjects"
	"msgdeck/internal/domain/transaction"
	txvo "msgdeck/internal/domain/transaction/valueobjects"
	"msgdeck/internal/infrastructure/pubsub"
	"msgdeck/internal/shared/biztime"
	"msgdeck/internal/shared/db"
	apperrors "msgdeck/internal/shared/errors"
	"msgdeck/internal/shared/id"
	"msgdeck/internal/shared/logger"
)

type AppendCommand struct {
	SubscriptionID uint
	UserID         uint
	Type           txvo.TransactionType
	BillingCycle   vo.BillingCycle
	Amount         decimal.Decimal
	DiscountAmount decimal.Decimal
	Currency       string
	PaymentMethod  string
	PaymentStatus  txvo.PaymentStatus
	Description    string
	Metadata       map[string]any
	// Reference is generated when empty.
	Reference string
}

type UpdatePaymentStatusCommand struct {
	ID               uint
	Status           string
	GatewayReference string
}

type RefundCommand struct {
	ID     uint
	Amount decimal.Decimal
	Reason string
	By     uint
}

// ListQuery is a user's own history unless IsAdmin, in which case UserID optionally
// narrows it.
type ListQuery struct {
	RequesterID  uint
	IsAdmin      bool
	UserID       *uint
	Type         string
	Status       string
	BillingCycle string
	From         *time.Time
	To           *time.Time
	Page         int
	PageSize     int
}

type TransactionLog struct {
	repo      transaction.Repository
	txm       db.Runner
	publisher events.EventPublisher
	logger    logger.Interface
	now       func() time.Time
}

func NewTransactionLog(
	repo transaction.Repository,
	txm db.Runner,
	publisher events.EventPublisher,
	logger logger.Interface,
) *TransactionLog {
	return &TransactionLog{
		repo:      repo,
		txm:       txm,
		publisher: publisher,
		logger:    logger,
		now:       biztime.NowUTC,
	}
}

// Append writes a charge row. Refund rows are only written by Refund.
func (l *TransactionLog) Append(ctx context.Context, cmd AppendCommand) (*transaction.Transaction, error) {
	if cmd.Type == txvo.TransactionTypeRefund {
		return nil, apperrors.NewValidationError("refund rows are created by refunding a transaction")
	}
	return l.append(ctx, cmd)
}

func (l *TransactionLog) append(ctx context.Context, cmd AppendCommand) (*transaction.Transaction, error) {
	ref := cmd.Reference
	if ref == "" {
		var err error
		if ref, err = id.NewTransactionReference(); err != nil {
			l.logger.Errorw("failed to generate transaction reference", "error", err)
			return nil, apperrors.NewInternalError("failed to create transaction")
		}
	}
	invoice, err := id.NewInvoiceNumber()
	if err != nil {
		l.logger.Errorw("failed to generate invoice number", "error", err)
		return nil, apperrors.NewInternalError("failed to create transaction")
	}

	tx, err := transaction.NewTransaction(transaction.CreateParams{
		Reference:      ref,
		InvoiceNumber:  invoice,
		SubscriptionID: cmd.SubscriptionID,
		UserID:         cmd.UserID,
		Type:           cmd.Type,
		BillingCycle:   cmd.BillingCycle,
		Amount:         cmd.Amount,
		DiscountAmount: cmd.DiscountAmount,
		Currency:       cmd.Currency,
		PaymentMethod:  cmd.PaymentMethod,
		PaymentStatus:  cmd.PaymentStatus,
		Description:    cmd.Description,
		Metadata:       cmd.Metadata,
	})
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if err := l.repo.Create(ctx, tx); err != nil {
		l.logger.Errorw("failed to create transaction", "error", err, "user_id", cmd.UserID, "type", cmd.Type)
		return nil, apperrors.NewInternalError("failed to create transaction")
	}

	l.logger.Infow("transaction recorded",
		"transaction_id", tx.ID(),
		"reference", tx.Reference(),
		"type", tx.Type(),
		"amount", tx.Amount().StringFixed(vo.MoneyScale),
		"status", tx.PaymentStatus(),
	)
	return tx, nil
}

// UpdatePaymentStatus moves a row forward: PENDING to SUCCESS or FAILED, SUCCESS to REFUNDED.
func (l *TransactionLog) UpdatePaymentStatus(ctx context.Context, cmd UpdatePaymentStatusCommand) (*transaction.Transaction, error) {
	status, err := txvo.ParsePaymentStatus(cmd.Status)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid payment status", cmd.Status)
	}

	tx, err := l.getForWrite(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	from := tx.PaymentStatus()
	if err := tx.UpdatePaymentStatus(status, cmd.GatewayReference, l.now()); err != nil {
		return nil, apperrors.NewConflictError(fmt.Sprintf("cannot change payment status from %s to %s", from, status))
	}
	if err := l.repo.Update(ctx, tx); err != nil {
		l.logger.Errorw("failed to update transaction", "error", err, "transaction_id", cmd.ID)
		return nil, apperrors.NewInternalError("failed to update transaction")
	}

	l.logger.Infow("payment status changed", "transaction_id", tx.ID(), "from", from, "to", status)
	pubsub.PublishAll(ctx, l.publisher, l.logger,
		events.NewTransactionChanged(events.TypeTransactionUpdated, tx.ID(), tx.Reference(), tx.UserID(), status.String(), nil, l.now()),
	)
	return tx, nil
}

// Refund stamps refund metadata on a SUCCESS row and appends a negative REFUND row
// in the same database transaction.
func (l *TransactionLog) Refund(ctx context.Context, cmd RefundCommand) (*transaction.Transaction, error) {
	var refunded *transaction.Transaction

	err := l.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		tx, err := l.getForWrite(ctx, cmd.ID)
		if err != nil {
			return err
		}
		if err := tx.Refund(cmd.Amount, cmd.Reason, cmd.By, l.now()); err != nil {
			return refundError(err)
		}
		if err := l.repo.Update(ctx, tx); err != nil {
			l.logger.Errorw("failed to update transaction", "error", err, "transaction_id", cmd.ID)
			return apperrors.NewInternalError("failed to refund transaction")
		}

		_, err = l.append(ctx, AppendCommand{
			SubscriptionID: tx.SubscriptionID(),
			UserID:         tx.UserID(),
			Type:           txvo.TransactionTypeRefund,
			BillingCycle:   tx.BillingCycle(),
			Amount:         tx.RefundAmount().Neg(),
			Currency:       tx.Currency(),
			PaymentMethod:  tx.PaymentMethod(),
			PaymentStatus:  txvo.PaymentStatusSuccess,
			Description:    "Refund of " + tx.Reference(),
			Metadata: map[string]any{
				"refund_of":     tx.Reference(),
				"refund_reason": tx.RefundReason(),
			},
		})
		if err != nil {
			return err
		}
		refunded = tx
		return nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		l.logger.Errorw("refund transaction failed", "error", err, "transaction_id", cmd.ID)
		return nil, apperrors.NewInternalError("failed to refund transaction")
	}

	l.logger.Infow("transaction refunded",
		"transaction_id", refunded.ID(),
		"amount", refunded.RefundAmount().StringFixed(vo.MoneyScale),
		"by", cmd.By,
	)
	pubsub.PublishAll(ctx, l.publisher, l.logger,
		events.NewTransactionChanged(events.TypeTransactionRefunded, refunded.ID(), refunded.Reference(), refunded.UserID(),
			refunded.PaymentStatus().String(), refunded.RefundAmount(), l.now()),
	)
	return refunded, nil
}

func refundError(err error) error {
	switch {
	case errors.Is(err, transaction.ErrNotRefundable):
		return apperrors.NewConflictError(err.Error())
	case errors.Is(err, transaction.ErrRefundExceedsAmount), errors.Is(err, transaction.ErrInvalidRefundAmount):
		return apperrors.NewValidationError(err.Error())
	}
	return err
}

// Get returns the row to its owner or to an admin.
func (l *TransactionLog) Get(ctx context.Context, txID, userID uint, isAdmin bool) (*transaction.Transaction, error) {
	tx, err := l.getForWrite(ctx, txID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !tx.BelongsTo(userID) {
		return nil, apperrors.NewForbiddenError("access denied to this transaction")
	}
	return tx, nil
}

func (l *TransactionLog) List(ctx context.Context, q ListQuery) ([]*transaction.Transaction, int64, error) {
	filter := transaction.Filter{
		From:     q.From,
		To:       q.To,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	if q.IsAdmin {
		filter.UserID = q.UserID
	} else {
		requester := q.RequesterID
		filter.UserID = &requester
	}
	if q.Type != "" {
		t, err := txvo.ParseTransactionType(q.Type)
		if err != nil {
			return nil, 0, apperrors.NewValidationError("invalid transaction type", q.Type)
		}
		filter.Type = &t
	}
	if q.Status != "" {
		s, err := txvo.ParsePaymentStatus(q.Status)
		if err != nil {
			return nil, 0, apperrors.NewValidationError("invalid payment status", q.Status)
		}
		filter.PaymentStatus = &s
	}
	if q.BillingCycle != "" {
		c, err := vo.ParseBillingCycle(q.BillingCycle)
		if err != nil {
			return nil, 0, apperrors.NewValidationError("invalid billing cycle", q.BillingCycle)
		}
		filter.BillingCycle = &c
	}

	txs, total, err := l.repo.List(ctx, filter)
	if err != nil {
		l.logger.Errorw("failed to list transactions", "error", err)
		return nil, 0, apperrors.NewInternalError("failed to list transactions")
	}
	return txs, total, nil
}

// RevenueStats aggregates collected revenue created in [from, to).
func (l *TransactionLog) RevenueStats(ctx context.Context, from, to time.Time) (*dto.RevenueStatsDTO, error) {
	if !to.After(from) {
		return nil, apperrors.NewValidationError("invalid date range", "to must be after from")
	}

	var (
		totals  transaction.RevenueTotals
		byType  []transaction.RevenueBucket
		byCycle []transaction.RevenueBucket
		points  []transaction.RevenuePoint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		totals, err = l.repo.RevenueTotals(gctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		byType, err = l.repo.RevenueByType(gctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		byCycle, err = l.repo.RevenueByBillingCycle(gctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		points, err = l.repo.CollectedPoints(gctx, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		l.logger.Errorw("failed to compute revenue stats", "error", err, "from", from, "to", to)
		return nil, apperrors.NewInternalError("failed to compute revenue stats")
	}

	return &dto.RevenueStatsDTO{
		From:             from.UTC(),
		To:               to.UTC(),
		TotalRevenue:     vo.RoundMoney(totals.Collected),
		TotalRefunded:    vo.RoundMoney(totals.Refunded),
		NetRevenue:       vo.RoundMoney(totals.Collected.Sub(totals.Refunded)),
		TransactionCount: totals.Count,
		ByType:           dto.ToRevenueBucketDTOs(byType),
		ByBillingCycle:   dto.ToRevenueBucketDTOs(byCycle),
		ByMonth:          monthlySeries(from, to, points),
	}, nil
}

// monthlySeries has one entry per business month touching [from, to), oldest first,
// including months with no revenue.
func monthlySeries(from, to time.Time, points []transaction.RevenuePoint) []dto.MonthlyRevenueDTO {
	index := make(map[string]int)
	var series []dto.MonthlyRevenueDTO

	last := biztime.MonthKey(to.Add(-time.Nanosecond))
	start, _ := biztime.ParseMonthKey(biztime.MonthKey(from))
	for m := start; ; m = m.In(biztime.Location()).AddDate(0, 1, 0) {
		key := biztime.MonthKey(m)
		index[key] = len(series)
		series = append(series, dto.MonthlyRevenueDTO{
			Month:    key,
			Revenue:  decimal.Zero,
			Refunded: decimal.Zero,
			Net:      decimal.Zero,
		})
		if key >= last {
			break
		}
	}

	for _, p := range points {
		i, ok := index[biztime.MonthKey(p.CreatedAt)]
		if !ok {
			continue
		}
		s := &series[i]
		s.Revenue = s.Revenue.Add(p.Amount)
		s.Refunded = s.Refunded.Add(p.RefundAmount)
		s.Count++
	}
	for i := range series {
		series[i].Revenue = vo.RoundMoney(series[i].Revenue)
		series[i].Refunded = vo.RoundMoney(series[i].Refunded)
		series[i].Net = vo.RoundMoney(series[i].Revenue.Sub(series[i].Refunded))
	}
	return series
}

func (l *TransactionLog) getForWrite(ctx context.Context, txID uint) (*transaction.Transaction, error) {
	tx, err := l.repo.GetByID(ctx, txID)
	if err != nil {
		l.logger.Errorw("failed to get transaction", "error", err, "transaction_id", txID)
		return nil, apperrors.NewInternalError("failed to get transaction")
	}
	if tx == nil {
		return nil, apperrors.NewNotFoundError("transaction not found")
	}
	return tx, nil
}

// Package usecases owns the subscription lifecycle after purchase: lookup, cancel,
// renew, expiry and auto-renew.
package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	txusecases "msgdeck/internal/application/transaction/usecases"
	"msgdeck/internal/domain/shared/events"
	vo "msgdeck/internal/domain/shared/valueobjects"
	"msgdeck/internal/domain/subscription"
	"msgdeck/internal/domain/transaction"
	txvo "msgdeck/internal/domain/transaction/valueobjects"
	"msgdeck/internal/infrastructure/cache"
	"msgdeck/internal/infrastructure/pubsub"
	"msgdeck/internal/shared/biztime"
	"msgdeck/internal/shared/db"
	apperrors "msgdeck/internal/shared/errors"
	"msgdeck/internal/shared/logger"
)

const (
	MsgAlreadyCancelled     = "subscription is already cancelled"
	MsgNotActive            = "subscription is not active"
	MsgConcurrentUpdate     = "subscription was modified by another request, please retry"
	MsgActiveSubscription   = "You already have an active subscription"
	msgSubscriptionNotFound = "subscription not found"

	expiryBatchSize = 500
)

// TransactionAppender is the part of the transaction log a renewal writes to.
type TransactionAppender interface {
	Append(ctx context.Context, cmd txusecases.AppendCommand) (*transaction.Transaction, error)
}

// ExpiryRecorder is satisfied by *metrics.Metrics.
type ExpiryRecorder interface {
	SubscriptionsExpiredAdd(n int)
}

type OpenCommand struct {
	UserID       uint
	PlanID       uint
	BillingCycle vo.BillingCycle
	AmountPaid   decimal.Decimal
	Currency     string
	StartDate    time.Time
	AutoRenew    bool
}

type CancelCommand struct {
	ID      uint
	Reason  string
	By      uint
	IsAdmin bool
}

type RenewCommand struct {
	ID              uint
	NewEndDate      time.Time
	NextBillingDate *time.Time
	AmountPaid      decimal.Decimal
	PaymentMethod   string
	By              uint
}

type SubscriptionLedger struct {
	repo         subscription.Repository
	txm          db.Runner
	transactions TransactionAppender
	cache        *cache.BestEffort
	ttl          time.Duration
	publisher    events.EventPublisher
	recorder     ExpiryRecorder
	logger       logger.Interface
	now          func() time.Time
}

func NewSubscriptionLedger(
	repo subscription.Repository,
	txm db.Runner,
	transactions TransactionAppender,
	subCache *cache.BestEffort,
	ttl time.Duration,
	publisher events.EventPublisher,
	recorder ExpiryRecorder,
	logger logger.Interface,
) *SubscriptionLedger {
	return &SubscriptionLedger{
		repo:         repo,
		txm:          txm,
		transactions: transactions,
		cache:        subCache,
		ttl:          ttl,
		publisher:    publisher,
		recorder:     recorder,
		logger:       logger,
		now:          biztime.NowUTC,
	}
}

// GetActiveSubscription returns the user's current subscription, or nil when there is
// none. Inside a database transaction the cache is bypassed.
func (l *SubscriptionLedger) GetActiveSubscription(ctx context.Context, userID uint) (*subscription.Subscription, error) {
	now := l.now()
	key := cache.ActiveSubscriptionKey(userID)
	inTx := db.InTransaction(ctx)

	if !inTx {
		var snap subscription.ReconstructParams
		if l.cache.GetJSON(ctx, key, &snap) {
			if sub, err := subscription.ReconstructSubscription(snap); err == nil && sub.IsCurrentlyActive(now) {
				return sub, nil
			}
			l.cache.Delete(ctx, key)
		}
	}

	sub, err := l.repo.FindActiveByUser(ctx, userID, now)
	if err != nil {
		l.logger.Errorw("failed to get active subscription", "error", err, "user_id", userID)
		return nil, apperrors.NewInternalError("failed to get subscription")
	}
	if sub != nil && !inTx {
		l.cache.SetJSON(ctx, key, sub.Snapshot(), l.ttl)
	}
	return sub, nil
}

// Open inserts a new ACTIVE subscription. A unique-index rejection means the user
// already holds one and is reported as a conflict.
func (l *SubscriptionLedger) Open(ctx context.Context, cmd OpenCommand) (*subscription.Subscription, error) {
	sub, err := subscription.NewSubscription(subscription.CreateParams{
		UserID:       cmd.UserID,
		PlanID:       cmd.PlanID,
		BillingCycle: cmd.BillingCycle,
		AmountPaid:   cmd.AmountPaid,
		Currency:     cmd.Currency,
		StartDate:    cmd.StartDate,
		AutoRenew:    cmd.AutoRenew,
	})
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if err := l.repo.Create(ctx, sub); err != nil {
		if apperrors.IsDuplicateError(err) {
			l.logger.Warnw("active subscription already exists", "user_id", cmd.UserID)
			return nil, apperrors.NewConflictError(MsgActiveSubscription)
		}
		l.logger.Errorw("failed to create subscription", "error", err, "user_id", cmd.UserID)
		return nil, apperrors.NewInternalError("failed to create subscription")
	}
	return sub, nil
}

// Cancel is allowed for the owner or an admin.
func (l *SubscriptionLedger) Cancel(ctx context.Context, cmd CancelCommand) (*subscription.Subscription, error) {
	sub, err := l.get(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	if !cmd.IsAdmin && !sub.BelongsTo(cmd.By) {
		return nil, apperrors.NewForbiddenError("access denied to this subscription")
	}
	if err := sub.Cancel(cmd.Reason, cmd.By, l.now()); err != nil {
		return nil, l.domainError(err)
	}
	if err := l.save(ctx, sub); err != nil {
		return nil, err
	}

	l.logger.Infow("subscription cancelled",
		"subscription_id", sub.ID(),
		"user_id", sub.UserID(),
		"by", cmd.By,
		"reason", sub.CancellationReason(),
	)
	pubsub.PublishAll(ctx, l.publisher, l.logger,
		events.NewSubscriptionStatusChanged(events.TypeSubscriptionCancelled, sub.ID(), sub.UserID(),
			sub.Status().String(), sub.CancellationReason(), sub.EndDate(), l.now()),
	)
	return sub, nil
}

// CheckExpiration expires the subscription once its end date has passed and reports
// whether it changed.
func (l *SubscriptionLedger) CheckExpiration(ctx context.Context, id uint) (bool, error) {
	sub, err := l.get(ctx, id)
	if err != nil {
		return false, err
	}
	return l.expire(ctx, sub)
}

func (l *SubscriptionLedger) expire(ctx context.Context, sub *subscription.Subscription) (bool, error) {
	if !sub.Expire(l.now()) {
		return false, nil
	}
	if err := l.save(ctx, sub); err != nil {
		return false, err
	}
	l.logger.Infow("subscription expired", "subscription_id", sub.ID(), "user_id", sub.UserID())
	pubsub.PublishAll(ctx, l.publisher, l.logger,
		events.NewSubscriptionStatusChanged(events.TypeSubscriptionExpired, sub.ID(), sub.UserID(),
			sub.Status().String(), "", sub.EndDate(), l.now()),
	)
	return true, nil
}

// ExpireDue expires every ACTIVE subscription whose end date has passed, in batches.
// A row that fails or races is skipped and retried on the next run.
func (l *SubscriptionLedger) ExpireDue(ctx context.Context) (int, error) {
	expired := 0
	for {
		due, err := l.repo.FindDueForExpiry(ctx, l.now(), expiryBatchSize)
		if err != nil {
			l.logger.Errorw("failed to find subscriptions due for expiry", "error", err)
			return expired, apperrors.NewInternalError("failed to expire subscriptions")
		}

		batch := 0
		for _, sub := range due {
			if ctx.Err() != nil {
				return expired, ctx.Err()
			}
			changed, err := l.expire(ctx, sub)
			if err != nil {
				l.logger.Warnw("failed to expire subscription", "subscription_id", sub.ID(), "error", err)
				continue
			}
			if changed {
				batch++
			}
		}
		expired += batch

		if len(due) < expiryBatchSize || batch == 0 {
			break
		}
	}

	if l.recorder != nil && expired > 0 {
		l.recorder.SubscriptionsExpiredAdd(expired)
	}
	l.logger.Infow("expiry run finished", "expired", expired)
	return expired, nil
}

// ExpireLapsed expires the user's ACTIVE rows whose end date has passed but which the
// expiry job has not reached yet. It runs inside the caller's transaction and leaves
// events to AnnounceExpired once that transaction commits.
func (l *SubscriptionLedger) ExpireLapsed(ctx context.Context, userID uint) ([]*subscription.Subscription, error) {
	now := l.now()
	lapsed, err := l.repo.FindLapsedByUser(ctx, userID, now)
	if err != nil {
		l.logger.Errorw("failed to find lapsed subscriptions", "error", err, "user_id", userID)
		return nil, apperrors.NewInternalError("failed to get subscription")
	}

	expired := make([]*subscription.Subscription, 0, len(lapsed))
	for _, sub := range lapsed {
		if !sub.Expire(now) {
			continue
		}
		if err := l.update(ctx, sub); err != nil {
			return nil, err
		}
		expired = append(expired, sub)
	}
	return expired, nil
}

// AnnounceExpired publishes expiry events for rows expired by ExpireLapsed.
func (l *SubscriptionLedger) AnnounceExpired(ctx context.Context, subs []*subscription.Subscription) {
	if len(subs) == 0 {
		return
	}
	evts := make([]events.DomainEvent, 0, len(subs))
	for _, sub := range subs {
		l.logger.Infow("subscription expired", "subscription_id", sub.ID(), "user_id", sub.UserID())
		evts = append(evts, events.NewSubscriptionStatusChanged(events.TypeSubscriptionExpired, sub.ID(), sub.UserID(),
			sub.Status().String(), "", sub.EndDate(), l.now()))
	}
	pubsub.PublishAll(ctx, l.publisher, l.logger, evts...)
	if l.recorder != nil {
		l.recorder.SubscriptionsExpiredAdd(len(subs))
	}
}

// Renew extends an ACTIVE subscription and records a RENEWAL transaction in the same
// database transaction.
func (l *SubscriptionLedger) Renew(ctx context.Context, cmd RenewCommand) (*subscription.Subscription, *transaction.Transaction, error) {
	var (
		sub *subscription.Subscription
		tx  *transaction.Transaction
	)
	err := l.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if sub, err = l.get(ctx, cmd.ID); err != nil {
			return err
		}
		if err := sub.Renew(cmd.NewEndDate, cmd.NextBillingDate, cmd.AmountPaid, l.now()); err != nil {
			return l.domainError(err)
		}
		if err := l.update(ctx, sub); err != nil {
			return err
		}

		tx, err = l.transactions.Append(ctx, txusecases.AppendCommand{
			SubscriptionID: sub.ID(),
			UserID:         sub.UserID(),
			Type:           txvo.TransactionTypeRenewal,
			BillingCycle:   sub.BillingCycle(),
			Amount:         sub.AmountPaid(),
			Currency:       sub.Currency(),
			PaymentMethod:  cmd.PaymentMethod,
			PaymentStatus:  txvo.PaymentStatusSuccess,
			Description:    "Subscription renewal",
			Metadata:       map[string]any{"renewed_by": cmd.By},
		})
		return err
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, nil, err
		}
		l.logger.Errorw("renewal failed", "error", err, "subscription_id", cmd.ID)
		return nil, nil, apperrors.NewInternalError("failed to renew subscription")
	}

	l.InvalidateActive(ctx, sub.UserID())
	l.logger.Infow("subscription renewed",
		"subscription_id", sub.ID(),
		"end_date", sub.EndDate(),
		"transaction_reference", tx.Reference(),
	)
	pubsub.PublishAll(ctx, l.publisher, l.logger,
		events.NewSubscriptionStatusChanged(events.TypeSubscriptionRenewed, sub.ID(), sub.UserID(),
			sub.Status().String(), "", sub.EndDate(), l.now()),
	)
	return sub, tx, nil
}

// ToggleAutoRenew is owner-only. Setting the current value is a no-op.
func (l *SubscriptionLedger) ToggleAutoRenew(ctx context.Context, id, userID uint, enabled bool) (*subscription.Subscription, error) {
	sub, err := l.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sub.BelongsTo(userID) {
		return nil, apperrors.NewForbiddenError("access denied to this subscription")
	}

	version := sub.Version()
	if err := sub.SetAutoRenew(enabled, l.now()); err != nil {
		return nil, l.domainError(err)
	}
	if sub.Version() == version {
		return sub, nil
	}
	if err := l.save(ctx, sub); err != nil {
		return nil, err
	}
	l.logger.Infow("auto-renew changed", "subscription_id", sub.ID(), "auto_renew", enabled)
	return sub, nil
}

// ListHistory returns the user's subscriptions, newest first.
func (l *SubscriptionLedger) ListHistory(ctx context.Context, userID uint, page, pageSize int) ([]*subscription.Subscription, int64, error) {
	subs, total, err := l.repo.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		l.logger.Errorw("failed to list subscription history", "error", err, "user_id", userID)
		return nil, 0, apperrors.NewInternalError("failed to list subscriptions")
	}
	return subs, total, nil
}

func (l *SubscriptionLedger) ListActiveUserIDs(ctx context.Context) ([]uint, error) {
	ids, err := l.repo.ListActiveUserIDs(ctx)
	if err != nil {
		l.logger.Errorw("failed to list active users", "error", err)
		return nil, apperrors.NewInternalError("failed to list active users")
	}
	return ids, nil
}

func (l *SubscriptionLedger) InvalidateActive(ctx context.Context, userID uint) {
	l.cache.Delete(ctx, cache.ActiveSubscriptionKey(userID))
}

func (l *SubscriptionLedger) get(ctx context.Context, id uint) (*subscription.Subscription, error) {
	sub, err := l.repo.GetByID(ctx, id)
	if err != nil {
		l.logger.Errorw("failed to get subscription", "error", err, "subscription_id", id)
		return nil, apperrors.NewInternalError("failed to get subscription")
	}
	if sub == nil {
		return nil, apperrors.NewNotFoundError(msgSubscriptionNotFound)
	}
	return sub, nil
}

// save persists and drops the owner's cached active subscription.
func (l *SubscriptionLedger) save(ctx context.Context, sub *subscription.Subscription) error {
	if err := l.update(ctx, sub); err != nil {
		return err
	}
	l.InvalidateActive(ctx, sub.UserID())
	return nil
}

func (l *SubscriptionLedger) update(ctx context.Context, sub *subscription.Subscription) error {
	if err := l.repo.Update(ctx, sub); err != nil {
		if errors.Is(err, subscription.ErrConcurrentModification) {
			return apperrors.NewConflictError(MsgConcurrentUpdate)
		}
		l.logger.Errorw("failed to update subscription", "error", err, "subscription_id", sub.ID())
		return apperrors.NewInternalError("failed to update subscription")
	}
	return nil
}

func (l *SubscriptionLedger) domainError(err error) error {
	switch {
	case errors.Is(err, subscription.ErrAlreadyCancelled):
		return apperrors.NewConflictError(MsgAlreadyCancelled)
	case errors.Is(err, subscription.ErrNotActive):
		return apperrors.NewConflictError(MsgNotActive)
	}
	return apperrors.NewValidationError(err.Error())
}

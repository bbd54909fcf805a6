// Package usecases orchestrates a purchase across plans, promos, subscriptions,
// transactions and usage.
package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"msgdeck/internal/application/billing/dto"
	promousecases "msgdeck/internal/application/promo/usecases"
	subusecases "msgdeck/internal/application/subscription/usecases"
	txusecases "msgdeck/internal/application/transaction/usecases"
	"msgdeck/internal/domain/plan"
	"msgdeck/internal/domain/promo"
	"msgdeck/internal/domain/shared/events"
	vo "msgdeck/internal/domain/shared/valueobjects"
	"msgdeck/internal/domain/subscription"
	"msgdeck/internal/domain/transaction"
	txvo "msgdeck/internal/domain/transaction/valueobjects"
	"msgdeck/internal/domain/usage"
	"msgdeck/internal/infrastructure/pubsub"
	"msgdeck/internal/shared/biztime"
	"msgdeck/internal/shared/db"
	apperrors "msgdeck/internal/shared/errors"
	"msgdeck/internal/shared/id"
	"msgdeck/internal/shared/logger"
)

const (
	MsgPaymentDeclined = "payment was declined"

	outcomeSuccess  = "success"
	outcomeConflict = "conflict"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

type PlanSource interface {
	FindByID(ctx context.Context, id uint) (*plan.Plan, error)
}

type PromoService interface {
	Validate(ctx context.Context, code string, userID, planID uint, cycle vo.BillingCycle) (*promousecases.ValidationResult, error)
	CalculateDiscount(p *promo.PromoCode, originalAmount decimal.Decimal) promo.Discount
	RecordUsage(ctx context.Context, cmd promousecases.RecordUsageCommand) error
}

type SubscriptionStore interface {
	GetActiveSubscription(ctx context.Context, userID uint) (*subscription.Subscription, error)
	ExpireLapsed(ctx context.Context, userID uint) ([]*subscription.Subscription, error)
	AnnounceExpired(ctx context.Context, subs []*subscription.Subscription)
	Open(ctx context.Context, cmd subusecases.OpenCommand) (*subscription.Subscription, error)
	InvalidateActive(ctx context.Context, userID uint)
}

type TransactionAppender interface {
	Append(ctx context.Context, cmd txusecases.AppendCommand) (*transaction.Transaction, error)
}

type UsageInitializer interface {
	GetOrCreateMonthlyUsage(ctx context.Context, userID, subscriptionID uint) (*usage.UsageRecord, error)
}

// BillingRecorder is satisfied by *metrics.Metrics.
type BillingRecorder interface {
	SubscribeOutcome(billingCycle, outcome string)
	PromoRedeemed(code string)
	RevenueAdd(currency string, amount float64)
}

type SubscribeCommand struct {
	UserID        uint
	PlanID        uint
	BillingCycle  string
	PromoCode     string
	PaymentMethod string
}

type SubscribeUseCase struct {
	txm           db.Runner
	plans         PlanSource
	promos        PromoService
	subscriptions SubscriptionStore
	transactions  TransactionAppender
	usage         UsageInitializer
	confirmer     txusecases.PaymentConfirmer
	publisher     events.EventPublisher
	recorder      BillingRecorder
	currency      string
	timeout       time.Duration
	logger        logger.Interface
	now           func() time.Time
}

func NewSubscribeUseCase(
	txm db.Runner,
	plans PlanSource,
	promos PromoService,
	subscriptions SubscriptionStore,
	transactions TransactionAppender,
	usage UsageInitializer,
	confirmer txusecases.PaymentConfirmer,
	publisher events.EventPublisher,
	recorder BillingRecorder,
	currency string,
	timeout time.Duration,
	logger logger.Interface,
) *SubscribeUseCase {
	return &SubscribeUseCase{
		txm:           txm,
		plans:         plans,
		promos:        promos,
		subscriptions: subscriptions,
		transactions:  transactions,
		usage:         usage,
		confirmer:     confirmer,
		publisher:     publisher,
		recorder:      recorder,
		currency:      currency,
		timeout:       timeout,
		logger:        logger,
		now:           biztime.NowUTC,
	}
}

// purchase is what the transaction produced, kept for the post-commit steps.
type purchase struct {
	plan     *plan.Plan
	cycle    vo.BillingCycle
	discount promo.Discount
	promo    *promo.PromoCode
	sub      *subscription.Subscription
	tx       *transaction.Transaction
	expired  []*subscription.Subscription
}

// Execute buys a plan. Every write happens in one database transaction; events,
// cache invalidation and metrics follow the commit. The flow is never retried.
func (uc *SubscribeUseCase) Execute(ctx context.Context, cmd SubscribeCommand) (*dto.SubscribeResult, error) {
	if cmd.UserID == 0 {
		return nil, apperrors.NewValidationError("user ID is required")
	}
	if cmd.PlanID == 0 {
		return nil, apperrors.NewValidationError("plan ID is required")
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	uc.logger.Infow("executing subscribe use case",
		"user_id", cmd.UserID,
		"plan_id", cmd.PlanID,
		"billing_cycle", cmd.BillingCycle,
		"promo_code", cmd.PromoCode,
	)

	var p purchase
	err := uc.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return uc.run(ctx, cmd, &p)
	})
	if err != nil {
		return nil, uc.fail(ctx, cmd, err)
	}

	uc.afterCommit(ctx, cmd, &p)
	return uc.result(&p), nil
}

func (uc *SubscribeUseCase) run(ctx context.Context, cmd SubscribeCommand, p *purchase) error {
	// (a) plan
	pl, err := uc.plans.FindByID(ctx, cmd.PlanID)
	if err != nil {
		return err
	}
	if !pl.IsActive() {
		return apperrors.NewValidationError("plan is not available")
	}
	p.plan = pl

	// (b) cycle, (c) price
	cycle, err := vo.ParseBillingCycle(cmd.BillingCycle)
	if err != nil {
		return apperrors.NewValidationError("invalid billing cycle", "must be MONTHLY, YEARLY or LIFETIME")
	}
	p.cycle = cycle
	price, err := pl.PriceFor(cycle)
	if err != nil {
		return apperrors.NewValidationError("plan is not sold on this billing cycle", cycle.String())
	}
	p.discount = promo.Discount{OriginalAmount: price, DiscountAmount: decimal.Zero, FinalAmount: price}

	// (d) promo
	if cmd.PromoCode != "" {
		result, err := uc.promos.Validate(ctx, cmd.PromoCode, cmd.UserID, pl.ID(), cycle)
		if err != nil {
			return err
		}
		if !result.Valid {
			return apperrors.NewValidationError(result.Message)
		}
		p.promo = result.Promo
		p.discount = uc.promos.CalculateDiscount(result.Promo, price)
	}

	// (e) one active subscription per user. Lapsed rows the expiry job has not swept
	// still hold the unique key, so they are expired first.
	if p.expired, err = uc.subscriptions.ExpireLapsed(ctx, cmd.UserID); err != nil {
		return err
	}
	existing, err := uc.subscriptions.GetActiveSubscription(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	if existing != nil {
		return uc.activeConflict(ctx, existing)
	}

	// (f, g) dates and insert
	start := uc.now()
	sub, err := uc.subscriptions.Open(ctx, subusecases.OpenCommand{
		UserID:       cmd.UserID,
		PlanID:       pl.ID(),
		BillingCycle: cycle,
		AmountPaid:   p.discount.FinalAmount,
		Currency:     uc.currency,
		StartDate:    start,
		AutoRenew:    !cycle.IsLifetime(),
	})
	if err != nil {
		return err
	}
	p.sub = sub

	// (h) transaction
	ref, err := id.NewTransactionReference()
	if err != nil {
		uc.logger.Errorw("failed to generate transaction reference", "error", err)
		return apperrors.NewInternalError("failed to create transaction")
	}
	confirmation, err := uc.confirmer.Confirm(ctx, txusecases.PaymentRequest{
		UserID:        cmd.UserID,
		Reference:     ref,
		Amount:        p.discount.FinalAmount,
		Currency:      uc.currency,
		PaymentMethod: cmd.PaymentMethod,
	})
	if err != nil {
		uc.logger.Errorw("payment confirmation failed", "error", err, "reference", ref)
		return apperrors.NewInternalError("failed to confirm payment")
	}
	if confirmation.Status == txvo.PaymentStatusFailed {
		return apperrors.NewValidationError(MsgPaymentDeclined)
	}

	metadata := map[string]any{
		"plan_code":       pl.Code(),
		"original_amount": p.discount.OriginalAmount.StringFixed(vo.MoneyScale),
	}
	if p.promo != nil {
		metadata["promo_code"] = p.promo.Code()
	}
	tx, err := uc.transactions.Append(ctx, txusecases.AppendCommand{
		Reference:      ref,
		SubscriptionID: sub.ID(),
		UserID:         cmd.UserID,
		Type:           txvo.TransactionTypeNew,
		BillingCycle:   cycle,
		Amount:         p.discount.FinalAmount,
		DiscountAmount: p.discount.DiscountAmount,
		Currency:       uc.currency,
		PaymentMethod:  cmd.PaymentMethod,
		PaymentStatus:  confirmation.Status,
		Description:    pl.Name() + " (" + cycle.String() + ")",
		Metadata:       metadata,
	})
	if err != nil {
		return err
	}
	p.tx = tx

	// (i) promo redemption
	if p.promo != nil {
		if err := uc.promos.RecordUsage(ctx, promousecases.RecordUsageCommand{
			PromoID:        p.promo.ID(),
			UserID:         cmd.UserID,
			SubscriptionID: sub.ID(),
			TransactionID:  tx.ID(),
			DiscountAmount: p.discount.DiscountAmount,
		}); err != nil {
			return err
		}
	}

	// (j) usage row for this month
	_, err = uc.usage.GetOrCreateMonthlyUsage(ctx, cmd.UserID, sub.ID())
	return err
}

// activeConflict describes the subscription the user already holds.
func (uc *SubscribeUseCase) activeConflict(ctx context.Context, existing *subscription.Subscription) *apperrors.AppError {
	appErr := apperrors.NewConflictError(subusecases.MsgActiveSubscription).
		WithData("subscription_id", existing.ID()).
		WithData("end_date", existing.EndDate())
	if pl, err := uc.plans.FindByID(ctx, existing.PlanID()); err == nil {
		appErr = appErr.WithData("plan_name", pl.Name())
	}
	return appErr
}

// fail classifies the rolled-back error. A unique-index conflict from the insert is
// enriched with the winning subscription, read after the rollback.
func (uc *SubscribeUseCase) fail(ctx context.Context, cmd SubscribeCommand, err error) error {
	outcome := outcomeError
	appErr := apperrors.GetAppError(err)

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		uc.logger.Errorw("subscribe timed out", "user_id", cmd.UserID, "timeout", uc.timeout, "error", err)
		appErr = apperrors.NewInternalError("subscription request timed out")
	case appErr == nil:
		uc.logger.Errorw("subscribe failed", "user_id", cmd.UserID, "plan_id", cmd.PlanID, "error", err)
		appErr = apperrors.NewInternalError("failed to create subscription")
	case apperrors.IsConflictError(appErr):
		outcome = outcomeConflict
		if appErr.Message == subusecases.MsgActiveSubscription && appErr.Data == nil {
			if existing, lookupErr := uc.subscriptions.GetActiveSubscription(ctx, cmd.UserID); lookupErr == nil && existing != nil {
				appErr = uc.activeConflict(ctx, existing)
			}
		}
		uc.logger.Warnw("subscribe conflict", "user_id", cmd.UserID, "message", appErr.Message)
	case apperrors.IsValidationError(appErr) || apperrors.IsNotFoundError(appErr):
		outcome = outcomeRejected
		uc.logger.Infow("subscribe rejected", "user_id", cmd.UserID, "message", appErr.Message)
	default:
		uc.logger.Errorw("subscribe failed", "user_id", cmd.UserID, "plan_id", cmd.PlanID, "error", err)
	}

	if uc.recorder != nil {
		label := "unknown"
		if cycle, parseErr := vo.ParseBillingCycle(cmd.BillingCycle); parseErr == nil {
			label = cycle.String()
		}
		uc.recorder.SubscribeOutcome(label, outcome)
	}
	return appErr
}

func (uc *SubscribeUseCase) afterCommit(ctx context.Context, cmd SubscribeCommand, p *purchase) {
	uc.subscriptions.InvalidateActive(ctx, cmd.UserID)
	uc.subscriptions.AnnounceExpired(ctx, p.expired)

	at := uc.now()
	evts := []events.DomainEvent{
		events.NewSubscriptionCreated(p.sub.ID(), cmd.UserID, p.plan.ID(), p.cycle.String(),
			p.discount.FinalAmount, uc.currency, p.tx.Reference(), p.sub.EndDate(), at),
	}
	if p.promo != nil {
		evts = append(evts, events.NewPromoRedeemed(p.promo.ID(), p.promo.Code(), cmd.UserID, p.sub.ID(), p.discount.DiscountAmount, at))
	}
	pubsub.PublishAll(ctx, uc.publisher, uc.logger, evts...)

	if uc.recorder != nil {
		uc.recorder.SubscribeOutcome(p.cycle.String(), outcomeSuccess)
		if p.promo != nil {
			uc.recorder.PromoRedeemed(p.promo.Code())
		}
		if p.tx.PaymentStatus() == txvo.PaymentStatusSuccess {
			uc.recorder.RevenueAdd(p.tx.Currency(), p.tx.Amount().InexactFloat64())
		}
	}

	uc.logger.Infow("subscription purchased",
		"subscription_id", p.sub.ID(),
		"user_id", cmd.UserID,
		"plan_id", p.plan.ID(),
		"billing_cycle", p.cycle,
		"final_amount", p.discount.FinalAmount.StringFixed(vo.MoneyScale),
		"transaction_reference", p.tx.Reference(),
		"payment_status", p.tx.PaymentStatus(),
	)
}

func (uc *SubscribeUseCase) result(p *purchase) *dto.SubscribeResult {
	r := &dto.SubscribeResult{
		SubscriptionID:       p.sub.ID(),
		TransactionID:        p.tx.ID(),
		TransactionReference: p.tx.Reference(),
		InvoiceNumber:        p.tx.InvoiceNumber(),
		PlanName:             p.plan.Name(),
		BillingCycle:         p.cycle.String(),
		OriginalAmount:       p.discount.OriginalAmount,
		DiscountAmount:       p.discount.DiscountAmount,
		FinalAmount:          p.discount.FinalAmount,
		Currency:             uc.currency,
		StartDate:            p.sub.StartDate(),
		EndDate:              p.sub.EndDate(),
		NextBillingDate:      p.sub.NextBillingDate(),
		Status:               p.sub.Status().String(),
		PaymentStatus:        p.tx.PaymentStatus().String(),
	}
	if p.promo != nil {
		r.PromoCode = p.promo.Code()
	}
	return r
}

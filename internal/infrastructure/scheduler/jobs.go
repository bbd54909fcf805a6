package scheduler

import (
	"context"
	"errors"

	"msgdeck/internal/domain/subscription"
	"msgdeck/internal/domain/usage"
	"msgdeck/internal/shared/logger"
)

const (
	JobExpireSubscriptions = "expire-subscriptions"
	JobMonthlyReset        = "monthly-usage-reset"
	JobPlanWarm            = "plan-cache-warm"
)

type SubscriptionExpirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// ExpireSubscriptionsJob marks ACTIVE subscriptions past their end date as EXPIRED.
type ExpireSubscriptionsJob struct {
	expirer SubscriptionExpirer
}

func NewExpireSubscriptionsJob(expirer SubscriptionExpirer) *ExpireSubscriptionsJob {
	return &ExpireSubscriptionsJob{expirer: expirer}
}

func (j *ExpireSubscriptionsJob) Execute(ctx context.Context) (int, error) {
	return j.expirer.ExpireDue(ctx)
}

type ActiveSubscriptions interface {
	ListActiveUserIDs(ctx context.Context) ([]uint, error)
	GetActiveSubscription(ctx context.Context, userID uint) (*subscription.Subscription, error)
}

type MonthlyUsage interface {
	GetOrCreateMonthlyUsage(ctx context.Context, userID, subscriptionID uint) (*usage.UsageRecord, error)
	ResetMonthlyCounters(ctx context.Context, userID uint) error
}

// MonthlyResetJob opens this month's usage row for every subscriber and zeroes the
// renewable counters. Per-user failures are logged and skipped.
type MonthlyResetJob struct {
	subscriptions ActiveSubscriptions
	usage         MonthlyUsage
	logger        logger.Interface
}

func NewMonthlyResetJob(subscriptions ActiveSubscriptions, meter MonthlyUsage, log logger.Interface) *MonthlyResetJob {
	return &MonthlyResetJob{subscriptions: subscriptions, usage: meter, logger: log}
}

func (j *MonthlyResetJob) Execute(ctx context.Context) (int, error) {
	userIDs, err := j.subscriptions.ListActiveUserIDs(ctx)
	if err != nil {
		return 0, err
	}

	reset := 0
	var errs []error
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return reset, ctx.Err()
		}
		if err := j.resetUser(ctx, userID); err != nil {
			j.logger.Warnw("monthly reset failed for user", "user_id", userID, "error", err)
			errs = append(errs, err)
			continue
		}
		reset++
	}

	if reset == 0 && len(errs) > 0 {
		return 0, errors.Join(errs...)
	}
	return reset, nil
}

func (j *MonthlyResetJob) resetUser(ctx context.Context, userID uint) error {
	sub, err := j.subscriptions.GetActiveSubscription(ctx, userID)
	if err != nil {
		return err
	}
	if sub == nil {
		return nil
	}
	if _, err := j.usage.GetOrCreateMonthlyUsage(ctx, userID, sub.ID()); err != nil {
		return err
	}
	return j.usage.ResetMonthlyCounters(ctx, userID)
}

type PlanWarmer interface {
	Warm(ctx context.Context) error
}

// PlanWarmJob refreshes the cached plan list.
type PlanWarmJob struct {
	warmer PlanWarmer
}

func NewPlanWarmJob(warmer PlanWarmer) *PlanWarmJob {
	return &PlanWarmJob{warmer: warmer}
}

func (j *PlanWarmJob) Execute(ctx context.Context) (int, error) {
	if err := j.warmer.Warm(ctx); err != nil {
		return 0, err
	}
	return 1, nil
}

// Package usecases meters monthly resource consumption against plan limits.
package usecases

import (
	"context"
	"errors"
	"time"

	"msgdeck/internal/application/usage/dto"
	"msgdeck/internal/domain/plan"
	vo "msgdeck/internal/domain/shared/valueobjects"
	"msgdeck/internal/domain/subscription"
	"msgdeck/internal/domain/usage"
	"msgdeck/internal/infrastructure/cache"
	"msgdeck/internal/shared/biztime"
	"msgdeck/internal/shared/constants"
	apperrors "msgdeck/internal/shared/errors"
	"msgdeck/internal/shared/logger"
)

const msgNoActiveSubscription = "no active subscription"

// SubscriptionFinder returns the user's active subscription, or nil when there is none.
type SubscriptionFinder interface {
	GetActiveSubscription(ctx context.Context, userID uint) (*subscription.Subscription, error)
}

type PlanFinder interface {
	FindByID(ctx context.Context, id uint) (*plan.Plan, error)
}

// UnitsRecorder is satisfied by *metrics.Metrics.
type UnitsRecorder interface {
	UsageUnits(resource, direction string, n int64)
}

type AdjustUsageCommand struct {
	UserID       uint
	ResourceType string
	Category     string
	Count        int64
}

type UsageMeter struct {
	repo     usage.Repository
	subs     SubscriptionFinder
	plans    PlanFinder
	cache    *cache.BestEffort
	ttl      time.Duration
	recorder UnitsRecorder
	logger   logger.Interface
	now      func() time.Time
}

func NewUsageMeter(
	repo usage.Repository,
	subs SubscriptionFinder,
	plans PlanFinder,
	usageCache *cache.BestEffort,
	ttl time.Duration,
	recorder UnitsRecorder,
	logger logger.Interface,
) *UsageMeter {
	return &UsageMeter{
		repo:     repo,
		subs:     subs,
		plans:    plans,
		cache:    usageCache,
		ttl:      ttl,
		recorder: recorder,
		logger:   logger,
		now:      biztime.NowUTC,
	}
}

// GetOrCreateMonthlyUsage returns this month's row, creating it when absent. A new row
// starts with the previous month's standing totals.
func (m *UsageMeter) GetOrCreateMonthlyUsage(ctx context.Context, userID, subscriptionID uint) (*usage.UsageRecord, error) {
	month := biztime.MonthKey(m.now())

	record, err := m.repo.GetByUserAndMonth(ctx, userID, month)
	if err != nil {
		m.logger.Errorw("failed to get usage record", "error", err, "user_id", userID, "month", month)
		return nil, apperrors.NewInternalError("failed to get usage")
	}
	if record != nil {
		return record, nil
	}

	record, err = usage.NewUsageRecord(userID, subscriptionID, month)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	prev, err := m.repo.LatestBefore(ctx, userID, month)
	if err != nil {
		m.logger.Errorw("failed to get previous usage record", "error", err, "user_id", userID)
		return nil, apperrors.NewInternalError("failed to get usage")
	}
	record.CarryOver(prev)

	created, err := m.repo.CreateIfAbsent(ctx, record)
	if err != nil {
		m.logger.Errorw("failed to create usage record", "error", err, "user_id", userID, "month", month)
		return nil, apperrors.NewInternalError("failed to create usage")
	}
	if created {
		m.logger.Infow("monthly usage record created", "user_id", userID, "month", month)
		return record, nil
	}

	// another request created it first
	record, err = m.repo.GetByUserAndMonth(ctx, userID, month)
	if err != nil || record == nil {
		m.logger.Errorw("failed to re-read usage record", "error", err, "user_id", userID, "month", month)
		return nil, apperrors.NewInternalError("failed to get usage")
	}
	return record, nil
}

func (m *UsageMeter) IncrementUsage(ctx context.Context, cmd AdjustUsageCommand) (*dto.UsageDTO, error) {
	return m.adjust(ctx, cmd, "increment")
}

// DecrementUsage floors every counter at zero.
func (m *UsageMeter) DecrementUsage(ctx context.Context, cmd AdjustUsageCommand) (*dto.UsageDTO, error) {
	return m.adjust(ctx, cmd, "decrement")
}

func (m *UsageMeter) adjust(ctx context.Context, cmd AdjustUsageCommand, direction string) (*dto.UsageDTO, error) {
	rt, err := vo.ParseResourceType(cmd.ResourceType)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid resource type", cmd.ResourceType)
	}
	category, err := vo.ParseMessageCategory(cmd.Category)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid message category", cmd.Category)
	}
	if category != "" && rt != vo.ResourceMessages {
		return nil, apperrors.NewValidationError("message category applies to messages only")
	}
	count := cmd.Count
	if count <= 0 {
		count = 1
	}

	sub, err := m.activeSubscription(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	record, err := m.GetOrCreateMonthlyUsage(ctx, cmd.UserID, sub.ID())
	if err != nil {
		return nil, err
	}

	if direction == "increment" {
		err = m.repo.Increment(ctx, cmd.UserID, record.Month(), rt, category, count)
	} else {
		err = m.repo.Decrement(ctx, cmd.UserID, record.Month(), rt, category, count)
	}
	if err != nil {
		m.logger.Errorw("failed to "+direction+" usage", "error", err, "user_id", cmd.UserID, "resource", rt, "count", count)
		return nil, apperrors.NewInternalError("failed to update usage")
	}
	m.cache.Delete(ctx, cache.UsageKey(cmd.UserID, record.Month()))
	if m.recorder != nil {
		m.recorder.UsageUnits(rt.String(), direction, count)
	}

	fresh, err := m.repo.GetByUserAndMonth(ctx, cmd.UserID, record.Month())
	if err != nil || fresh == nil {
		m.logger.Errorw("failed to reload usage record", "error", err, "user_id", cmd.UserID)
		return nil, apperrors.NewInternalError("failed to get usage")
	}
	m.logger.Debugw("usage adjusted",
		"user_id", cmd.UserID,
		"resource", rt,
		"category", category,
		"direction", direction,
		"count", count,
		"current", fresh.Counter(rt),
	)
	return dto.ToUsageDTO(fresh), nil
}

// CheckLimit answers whether the user may consume one more unit of resourceType.
func (m *UsageMeter) CheckLimit(ctx context.Context, userID uint, resourceType string) (*dto.LimitCheckDTO, error) {
	rt, err := vo.ParseResourceType(resourceType)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid resource type", resourceType)
	}
	sub, p, err := m.subscriptionAndPlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	record, err := m.current(ctx, userID, sub.ID())
	if err != nil {
		return nil, err
	}
	return dto.ToLimitCheckDTO(usage.EvaluateLimit(rt, p.LimitFor(rt), record.Counter(rt))), nil
}

func (m *UsageMeter) GetCurrentUsage(ctx context.Context, userID uint) (*dto.CurrentUsageDTO, error) {
	sub, p, err := m.subscriptionAndPlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	record, err := m.current(ctx, userID, sub.ID())
	if err != nil {
		return nil, err
	}
	return dto.ToCurrentUsageDTO(record, sub.ID(), p), nil
}

// ResetMonthlyCounters zeroes campaigns and messages for the current month. A user
// without a row this month has nothing to reset.
func (m *UsageMeter) ResetMonthlyCounters(ctx context.Context, userID uint) error {
	month := biztime.MonthKey(m.now())
	err := m.repo.ResetMonthly(ctx, userID, month, m.now())
	if errors.Is(err, usage.ErrUsageRecordNotFound) {
		return nil
	}
	if err != nil {
		m.logger.Errorw("failed to reset monthly usage", "error", err, "user_id", userID, "month", month)
		return apperrors.NewInternalError("failed to reset usage")
	}
	m.cache.Delete(ctx, cache.UsageKey(userID, month))
	m.logger.Infow("monthly usage counters reset", "user_id", userID, "month", month)
	return nil
}

// GetUsageHistory returns the user's last months records, newest first. Months in
// which nothing created a row do not use up the count.
func (m *UsageMeter) GetUsageHistory(ctx context.Context, userID uint, months int) ([]*dto.UsageDTO, error) {
	if months <= 0 {
		months = constants.DefaultUsageHistoryMonths
	}
	if months > constants.MaxUsageHistoryMonths {
		months = constants.MaxUsageHistoryMonths
	}
	records, err := m.repo.ListRecent(ctx, userID, months)
	if err != nil {
		m.logger.Errorw("failed to get usage history", "error", err, "user_id", userID)
		return nil, apperrors.NewInternalError("failed to get usage history")
	}
	return dto.ToUsageDTOList(records), nil
}

// current reads this month's row through the cache.
func (m *UsageMeter) current(ctx context.Context, userID, subscriptionID uint) (*usage.UsageRecord, error) {
	key := cache.UsageKey(userID, biztime.MonthKey(m.now()))
	var snap usage.ReconstructParams
	if m.cache.GetJSON(ctx, key, &snap) {
		return usage.ReconstructUsageRecord(snap), nil
	}
	record, err := m.GetOrCreateMonthlyUsage(ctx, userID, subscriptionID)
	if err != nil {
		return nil, err
	}
	m.cache.SetJSON(ctx, key, record.Snapshot(), m.ttl)
	return record, nil
}

func (m *UsageMeter) activeSubscription(ctx context.Context, userID uint) (*subscription.Subscription, error) {
	sub, err := m.subs.GetActiveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, apperrors.NewNotFoundError(msgNoActiveSubscription)
	}
	return sub, nil
}

func (m *UsageMeter) subscriptionAndPlan(ctx context.Context, userID uint) (*subscription.Subscription, *plan.Plan, error) {
	sub, err := m.activeSubscription(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	p, err := m.plans.FindByID(ctx, sub.PlanID())
	if err != nil {
		return nil, nil, err
	}
	return sub, p, nil
}

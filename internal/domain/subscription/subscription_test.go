package subscription

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "msgdeck/internal/domain/shared/valueobjects"
	subvo "msgdeck/internal/domain/subscription/valueobjects"
)

var start = time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC)

// --- helpers ---

func newSubscription(t *testing.T, cycle vo.BillingCycle) *Subscription {
	t.Helper()
	sub, err := NewSubscription(CreateParams{
		UserID:       7,
		PlanID:       2,
		BillingCycle: cycle,
		AmountPaid:   decimal.RequireFromString("49.90"),
		Currency:     "usd",
		StartDate:    start,
		AutoRenew:    true,
	})
	require.NoError(t, err)
	require.NoError(t, sub.SetID(1))
	return sub
}

func TestNewSubscription_Dates(t *testing.T) {
	monthly := newSubscription(t, vo.BillingCycleMonthly)
	require.NotNil(t, monthly.EndDate())
	assert.Equal(t, start.AddDate(0, 1, 0), *monthly.EndDate())
	assert.Equal(t, *monthly.EndDate(), *monthly.NextBillingDate())
	assert.Equal(t, "USD", monthly.Currency())
	assert.Equal(t, subvo.StatusActive, monthly.Status())

	yearly := newSubscription(t, vo.BillingCycleYearly)
	assert.Equal(t, start.AddDate(1, 0, 0), *yearly.EndDate())

	lifetime := newSubscription(t, vo.BillingCycleLifetime)
	assert.Nil(t, lifetime.EndDate())
	assert.Nil(t, lifetime.NextBillingDate())
	assert.False(t, lifetime.AutoRenew())
}

func TestNewSubscription_Validation(t *testing.T) {
	_, err := NewSubscription(CreateParams{PlanID: 1, BillingCycle: vo.BillingCycleMonthly, Currency: "USD"})
	assert.Error(t, err)

	_, err = NewSubscription(CreateParams{UserID: 1, PlanID: 1, BillingCycle: "WEEKLY", Currency: "USD"})
	assert.ErrorIs(t, err, vo.ErrInvalidBillingCycle)

	_, err = NewSubscription(CreateParams{
		UserID: 1, PlanID: 1, BillingCycle: vo.BillingCycleMonthly, Currency: "USD",
		AmountPaid: decimal.NewFromInt(-1),
	})
	assert.ErrorIs(t, err, vo.ErrNegativeAmount)
}

func TestActiveUserKey(t *testing.T) {
	sub := newSubscription(t, vo.BillingCycleMonthly)
	require.NotNil(t, sub.ActiveUserKey())
	assert.Equal(t, uint(7), *sub.ActiveUserKey())

	require.NoError(t, sub.Cancel("too expensive", 7, start.Add(time.Hour)))
	assert.Nil(t, sub.ActiveUserKey())
}

func TestCancel(t *testing.T) {
	sub := newSubscription(t, vo.BillingCycleMonthly)
	at := start.Add(48 * time.Hour)

	require.NoError(t, sub.Cancel("  switching vendor ", 7, at))
	assert.Equal(t, subvo.StatusCancelled, sub.Status())
	assert.Equal(t, "switching vendor", sub.CancellationReason())
	require.NotNil(t, sub.CancelledAt())
	assert.Equal(t, at, *sub.CancelledAt())
	require.NotNil(t, sub.CancelledBy())
	assert.Equal(t, uint(7), *sub.CancelledBy())
	assert.False(t, sub.AutoRenew())
	assert.Equal(t, 2, sub.Version())

	assert.ErrorIs(t, sub.Cancel("again", 7, at), ErrAlreadyCancelled)

	expired := newSubscription(t, vo.BillingCycleMonthly)
	require.True(t, expired.Expire(start.AddDate(0, 2, 0)))
	assert.ErrorIs(t, expired.Cancel("late", 7, at), ErrNotActive)
	assert.ErrorIs(t, expired.Cancel("late", 7, at), ErrInvalidStatusTransition)
}

func TestExpire(t *testing.T) {
	sub := newSubscription(t, vo.BillingCycleMonthly)

	assert.False(t, sub.Expire(start.AddDate(0, 0, 10)), "not yet due")
	assert.True(t, sub.IsCurrentlyActive(start.AddDate(0, 0, 10)))

	assert.True(t, sub.Expire(start.AddDate(0, 1, 1)))
	assert.Equal(t, subvo.StatusExpired, sub.Status())
	assert.False(t, sub.Expire(start.AddDate(0, 2, 0)), "terminal")
}

func TestExpire_LifetimeNeverExpires(t *testing.T) {
	sub := newSubscription(t, vo.BillingCycleLifetime)
	farFuture := start.AddDate(100, 0, 0)
	assert.False(t, sub.Expire(farFuture))
	assert.True(t, sub.IsCurrentlyActive(farFuture))
}

func TestRenew(t *testing.T) {
	sub := newSubscription(t, vo.BillingCycleMonthly)
	newEnd := sub.EndDate().AddDate(0, 1, 0)

	require.NoError(t, sub.Renew(newEnd, nil, decimal.RequireFromString("49.90"), start.AddDate(0, 1, 0)))
	assert.Equal(t, newEnd, *sub.EndDate())
	assert.Equal(t, newEnd, *sub.NextBillingDate())

	assert.ErrorIs(t, sub.Renew(newEnd, nil, decimal.Zero, start), ErrInvalidRenewalDate)

	lifetime := newSubscription(t, vo.BillingCycleLifetime)
	assert.ErrorIs(t, lifetime.Renew(start.AddDate(1, 0, 0), nil, decimal.Zero, start), ErrLifetimeNotRenewable)

	cancelled := newSubscription(t, vo.BillingCycleMonthly)
	require.NoError(t, cancelled.Cancel("", 7, start))
	assert.ErrorIs(t, cancelled.Renew(newEnd, nil, decimal.Zero, start), ErrNotActive)
}

func TestSetAutoRenew(t *testing.T) {
	sub := newSubscription(t, vo.BillingCycleYearly)
	require.NoError(t, sub.SetAutoRenew(false, start))
	assert.False(t, sub.AutoRenew())

	lifetime := newSubscription(t, vo.BillingCycleLifetime)
	assert.ErrorIs(t, lifetime.SetAutoRenew(true, start), ErrLifetimeAutoRenew)

	require.NoError(t, sub.Cancel("", 7, start))
	assert.ErrorIs(t, sub.SetAutoRenew(true, start), ErrNotActive)
}

func TestTrial(t *testing.T) {
	trialEnd := start.AddDate(0, 0, 14)
	sub, err := NewSubscription(CreateParams{
		UserID: 1, PlanID: 1, BillingCycle: vo.BillingCycleMonthly, Currency: "USD",
		StartDate: start, TrialEnd: &trialEnd,
	})
	require.NoError(t, err)
	assert.True(t, sub.IsInTrial(start.AddDate(0, 0, 3)))
	assert.False(t, sub.IsInTrial(start.AddDate(0, 0, 20)))
}

package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	txusecases "msgdeck/internal/application/transaction/usecases"
	usagedto "msgdeck/internal/application/usage/dto"
	"msgdeck/internal/domain/plan"
	"msgdeck/internal/domain/shared/events"
	vo "msgdeck/internal/domain/shared/valueobjects"
	"msgdeck/internal/domain/subscription"
	subvo "msgdeck/internal/domain/subscription/valueobjects"
	"msgdeck/internal/domain/transaction"
	txvo "msgdeck/internal/domain/transaction/valueobjects"
	"msgdeck/internal/infrastructure/cache"
	apperrors "msgdeck/internal/shared/errors"
	"msgdeck/internal/shared/logger"
)

var now = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type mockSubscriptionRepository struct {
	mock.Mock
}

func (m *mockSubscriptionRepository) Create(ctx context.Context, s *subscription.Subscription) error {
	args := m.Called(ctx, s)
	if args.Error(0) == nil {
		_ = s.SetID(70)
	}
	return args.Error(0)
}

func (m *mockSubscriptionRepository) Update(ctx context.Context, s *subscription.Subscription) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockSubscriptionRepository) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*subscription.Subscription)
	return s, args.Error(1)
}

func (m *mockSubscriptionRepository) FindActiveByUser(ctx context.Context, userID uint, at time.Time) (*subscription.Subscription, error) {
	args := m.Called(ctx, userID, at)
	s, _ := args.Get(0).(*subscription.Subscription)
	return s, args.Error(1)
}

func (m *mockSubscriptionRepository) ListByUser(ctx context.Context, userID uint, page, pageSize int) ([]*subscription.Subscription, int64, error) {
	args := m.Called(ctx, userID, page, pageSize)
	s, _ := args.Get(0).([]*subscription.Subscription)
	return s, args.Get(1).(int64), args.Error(2)
}

func (m *mockSubscriptionRepository) FindDueForExpiry(ctx context.Context, at time.Time, limit int) ([]*subscription.Subscription, error) {
	args := m.Called(ctx, at, limit)
	s, _ := args.Get(0).([]*subscription.Subscription)
	return s, args.Error(1)
}

func (m *mockSubscriptionRepository) FindLapsedByUser(ctx context.Context, userID uint, at time.Time) ([]*subscription.Subscription, error) {
	args := m.Called(ctx, userID, at)
	s, _ := args.Get(0).([]*subscription.Subscription)
	return s, args.Error(1)
}

func (m *mockSubscriptionRepository) ListActiveUserIDs(ctx context.Context) ([]uint, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]uint)
	return ids, args.Error(1)
}

type inlineRunner struct {
	calls int
}

func (r *inlineRunner) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls++
	return fn(ctx)
}

type fakeAppender struct {
	cmds []txusecases.AppendCommand
	err  error
}

func (f *fakeAppender) Append(_ context.Context, cmd txusecases.AppendCommand) (*transaction.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.cmds = append(f.cmds, cmd)
	return transaction.ReconstructTransaction(transaction.ReconstructParams{
		ID:            900,
		Reference:     "txn_renewal0001",
		UserID:        cmd.UserID,
		Type:          cmd.Type,
		Amount:        cmd.Amount,
		PaymentStatus: cmd.PaymentStatus,
	})
}

type recordingPublisher struct {
	events []events.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.DomainEvent) error {
	p.events = append(p.events, e)
	return nil
}

type expiryCounter struct {
	n int
}

func (c *expiryCounter) SubscriptionsExpiredAdd(n int) { c.n += n }

type fixtureOpts struct {
	id     uint
	userID uint
	cycle  vo.BillingCycle
	status subvo.SubscriptionStatus
	end    *time.Time
	auto   bool
}

func fixtureSubscription(t *testing.T, o fixtureOpts) *subscription.Subscription {
	t.Helper()
	if o.cycle == "" {
		o.cycle = vo.BillingCycleMonthly
	}
	if o.status == "" {
		o.status = subvo.StatusActive
	}
	if o.end == nil && o.cycle != vo.BillingCycleLifetime {
		end := now.AddDate(0, 0, 10)
		o.end = &end
	}
	s, err := subscription.ReconstructSubscription(subscription.ReconstructParams{
		ID:           o.id,
		UserID:       o.userID,
		PlanID:       3,
		BillingCycle: o.cycle,
		AmountPaid:   dec("29.99"),
		Currency:     "USD",
		Status:       o.status,
		StartDate:    now.AddDate(0, -1, 0),
		EndDate:      o.end,
		AutoRenew:    o.auto,
		Version:      1,
	})
	require.NoError(t, err)
	return s
}

type ledgerFixture struct {
	ledger   *SubscriptionLedger
	repo     *mockSubscriptionRepository
	runner   *inlineRunner
	appender *fakeAppender
	pub      *recordingPublisher
	expired  *expiryCounter
	store    *cache.BestEffort
}

func newLedger(t *testing.T) *ledgerFixture {
	t.Helper()
	log := logger.NewNop()
	f := &ledgerFixture{
		repo:     new(mockSubscriptionRepository),
		runner:   &inlineRunner{},
		appender: &fakeAppender{},
		pub:      &recordingPublisher{},
		expired:  &expiryCounter{},
		store:    cache.NewBestEffort(cache.NewMemoryCache("test:", time.Minute, time.Minute), log, nil),
	}
	f.ledger = NewSubscriptionLedger(f.repo, f.runner, f.appender, f.store, time.Minute, f.pub, f.expired, log)
	f.ledger.now = func() time.Time { return now }
	return f
}

func TestSubscriptionLedger_GetActiveSubscription_Cached(t *testing.T) {
	ctx := context.Background()
	f := newLedger(t)
	sub := fixtureSubscription(t, fixtureOpts{id: 1, userID: 5})
	f.repo.On("FindActiveByUser", mock.Anything, uint(5), now).Return(sub, nil).Once()

	first, err := f.ledger.GetActiveSubscription(ctx, 5)
	require.NoError(t, err)
	second, err := f.ledger.GetActiveSubscription(ctx, 5)
	require.NoError(t, err)

	assert.Equal(t, first.ID(), second.ID())
	assert.Equal(t, first.EndDate().Unix(), second.EndDate().Unix())
	f.repo.AssertNumberOfCalls(t, "FindActiveByUser", 1)
}

func TestSubscriptionLedger_GetActiveSubscription_NoneIsNotCached(t *testing.T) {
	ctx := context.Background()
	f := newLedger(t)
	f.repo.On("FindActiveByUser", mock.Anything, uint(5), now).Return(nil, nil)

	for range 2 {
		sub, err := f.ledger.GetActiveSubscription(ctx, 5)
		require.NoError(t, err)
		assert.Nil(t, sub)
	}
	f.repo.AssertNumberOfCalls(t, "FindActiveByUser", 2)
}

func TestSubscriptionLedger_Open_DuplicateIsConflict(t *testing.T) {
	ctx := context.Background()
	f := newLedger(t)
	f.repo.On("Create", mock.Anything, mock.Anything).
		Return(errors.New("failed to create subscription: UNIQUE constraint failed: subscriptions.active_user_key"))

	_, err := f.ledger.Open(ctx, OpenCommand{
		UserID:       5,
		PlanID:       3,
		BillingCycle: vo.BillingCycleMonthly,
		AmountPaid:   dec("29.99"),
		Currency:     "USD",
		StartDate:    now,
	})
	require.True(t, apperrors.IsConflictError(err))
	assert.Equal(t, MsgActiveSubscription, apperrors.GetAppError(err).Message)
}

func TestSubscriptionLedger_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("owner cancels", func(t *testing.T) {
		f := newLedger(t)
		sub := fixtureSubscription(t, fixtureOpts{id: 1, userID: 5, auto: true})
		f.repo.On("GetByID", mock.Anything, uint(1)).Return(sub, nil)
		f.repo.On("Update", mock.Anything, sub).Return(nil)
		f.store.SetJSON(ctx, cache.ActiveSubscriptionKey(5), sub.Snapshot(), time.Minute)

		got, err := f.ledger.Cancel(ctx, CancelCommand{ID: 1, Reason: "too expensive", By: 5})
		require.NoError(t, err)
		assert.Equal(t, subvo.StatusCancelled, got.Status())
		assert.False(t, got.AutoRenew())
		assert.Nil(t, got.ActiveUserKey())
		assert.Equal(t, "too expensive", got.CancellationReason())

		var snap subscription.ReconstructParams
		assert.False(t, f.store.GetJSON(ctx, cache.ActiveSubscriptionKey(5), &snap), "cache invalidated")
		require.Len(t, f.pub.events, 1)
		assert.Equal(t, events.TypeSubscriptionCancelled, f.pub.events[0].GetEventType())
	})

	t.Run("admin cancels another user's subscription", func(t *testing.T) {
		f := newLedger(t)
		sub := fixtureSubscription(t, fixtureOpts{id: 1, userID: 5})
		f.repo.On("GetByID", mock.Anything, uint(1)).Return(sub, nil)
		f.repo.On("Update", mock.Anything, sub).Return(nil)

		got, err := f.ledger.Cancel(ctx, CancelCommand{ID: 1, By: 99, IsAdmin: true})
		require.NoError(t, err)
		require.NotNil(t, got.CancelledBy())
		assert.Equal(t, uint(99), *got.CancelledBy())
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		f := newLedger(t)
		f.repo.On("GetByID", mock.Anything, uint(1)).Return(fixtureSubscription(t, fixtureOpts{id: 1, userID: 5}), nil)

		_, err := f.ledger.Cancel(ctx, CancelCommand{ID: 1, By: 6})
		assert.True(t, apperrors.IsForbiddenError(err))
	})

	t.Run("terminal states", func(t *testing.T) {
		for status, msg := range map[subvo.SubscriptionStatus]string{
			subvo.StatusCancelled: MsgAlreadyCancelled,
			subvo.StatusExpired:   MsgNotActive,
		} {
			f := newLedger(t)
			f.repo.On("GetByID", mock.Anything, uint(1)).Return(fixtureSubscription(t, fixtureOpts{id: 1, userID: 5, status: status}), nil)

			_, err := f.ledger.Cancel(ctx, CancelCommand{ID: 1, By: 5})
			require.True(t, apperrors.IsConflictError(err), status)
			assert.Equal(t, msg, apperrors.GetAppError(err).Message)
		}
	})

	t.Run("not found", func(t *testing.T) {
		f := newLedger(t)
		f.repo.On("GetByID", mock.Anything, uint(1)).Return(nil, nil)

		_, err := f.ledger.Cancel(ctx, CancelCommand{ID: 1, By: 5})
		assert.True(t, apperrors.IsNotFoundError(err))
	})

	t.Run("lost optimistic lock", func(t *testing.T) {
		f := newLedger(t)
		sub := fixtureSubscription(t, fixtureOpts{id: 1, userID: 5})
		f.repo.On("GetByID", mock.Anything, uint(1)).Return(sub, nil)
		f.repo.On("Update", mock.Anything, sub).Return(subscription.ErrConcurrentModification)

		_, err := f.ledger.Cancel(ctx, CancelCommand{ID: 1, By: 5})
		assert.True(t, apperrors.IsConflictError(err))
		assert.Empty(t, f.pub.events)
	})
}

func TestSubscriptionLedger_CheckExpiration(t *testing.T) {
	ctx := context.Background()
	past := now.AddDate(0, 0, -1)

	t.Run("past end date expires", func(t *testing.T) {
		f := newLedger(t)
		sub := fixtureSubscription(t, fixtureOpts{id: 1, userID: 5, end: &past})
		f.repo.On("GetByID", mock.Anything, uint(1)).Return(sub, nil)
		f.repo.On("Update", mock.Anything, sub).Return(nil)

		changed, err := f.ledger.CheckExpiration(ctx, 1)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, subvo.StatusExpired, sub.Status())
	})

	t.Run("lifetime never expires", func(t *testing.T) {
		f := newLedger(t)
		sub := fixtureSubscription(t, fixtureOpts{id: 2, userID: 5, cycle: vo.BillingCycleLifetime})
		f.repo.On("GetByID", mock.Anything, uint(2)).Return(sub, nil)

		changed, err := f.ledger.CheckExpiration(ctx, 2)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Nil(t, sub.EndDate())
		f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestSubscriptionLedger_ExpireDue(t *testing.T) {
	ctx := context.Background()
	past := now.AddDate(0, 0, -1)
	f := newLedger(t)

	a := fixtureSubscription(t, fixtureOpts{id: 1, userID: 5, end: &past})
	b := fixtureSubscription(t, fixtureOpts{id: 2, userID: 6, end: &past})
	c := fixtureSubscription(t, fixtureOpts{id: 3, userID: 7, end: &past})
	f.repo.On("FindDueForExpiry", mock.Anything, now, expiryBatchSize).Return([]*subscription.Subscription{a, b, c}, nil)
	f.repo.On("Update", mock.Anything, a).Return(nil)
	f.repo.On("Update", mock.Anything, b).Return(subscription.ErrConcurrentModification)
	f.repo.On("Update", mock.Anything, c).Return(nil)

	n, err := f.ledger.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, f.expired.n)
	assert.Len(t, f.pub.events, 2)
	f.repo.AssertNumberOfCalls(t, "FindDueForExpiry", 1)
}

func TestSubscriptionLedger_ExpireLapsed(t *testing.T) {
	ctx := context.Background()
	past := now.AddDate(0, 0, -1)

	t.Run("expires without announcing", func(t *testing.T) {
		f := newLedger(t)
		lapsed := fixtureSubscription(t, fixtureOpts{id: 1, userID: 5, end: &past})
		f.repo.On("FindLapsedByUser", mock.Anything, uint(5), now).Return([]*subscription.Subscription{lapsed}, nil)
		f.repo.On("Update", mock.Anything, lapsed).Return(nil)

		expired, err := f.ledger.ExpireLapsed(ctx, 5)
		require.NoError(t, err)
		require.Len(t, expired, 1)
		assert.Equal(t, subvo.StatusExpired, lapsed.Status())
		assert.Empty(t, f.pub.events)
		assert.Zero(t, f.expired.n)

		f.ledger.AnnounceExpired(ctx, expired)
		require.Len(t, f.pub.events, 1)
		assert.Equal(t, events.TypeSubscriptionExpired, f.pub.events[0].GetEventType())
		assert.Equal(t, 1, f.expired.n)
	})

	t.Run("nothing lapsed", func(t *testing.T) {
		f := newLedger(t)
		f.repo.On("FindLapsedByUser", mock.Anything, uint(5), now).Return([]*subscription.Subscription{}, nil)

		expired, err := f.ledger.ExpireLapsed(ctx, 5)
		require.NoError(t, err)
		assert.Empty(t, expired)
		f.ledger.AnnounceExpired(ctx, expired)
		assert.Empty(t, f.pub.events)
		f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("concurrent update is a conflict", func(t *testing.T) {
		f := newLedger(t)
		lapsed := fixtureSubscription(t, fixtureOpts{id: 1, userID: 5, end: &past})
		f.repo.On("FindLapsedByUser", mock.Anything, uint(5), now).Return([]*subscription.Subscription{lapsed}, nil)
		f.repo.On("Update", mock.Anything, lapsed).Return(subscription.ErrConcurrentModification)

		_, err := f.ledger.ExpireLapsed(ctx, 5)
		assert.True(t, apperrors.IsConflictError(err))
	})
}

func TestSubscriptionLedger_Renew(t *testing.T) {
	ctx := context.Background()

	t.Run("extends and records a renewal", func(t *testing.T) {
		f := newLedger(t)
		sub := fixtureSubscription(t, fixtureOpts{id: 1, userID: 5})
		f.repo.On("GetByID", mock.Anything, uint(1)).Return(sub, nil)
		f.repo.On("Update", mock.Anything, sub).Return(nil)
		newEnd := sub.EndDate().AddDate(0, 1, 0)

		got, tx, err := f.ledger.Renew(ctx, RenewCommand{ID: 1, NewEndDate: newEnd, AmountPaid: dec("29.99"), By: 99})
		require.NoError(t, err)
		assert.True(t, got.EndDate().Equal(newEnd))
		assert.Equal(t, "txn_renewal0001", tx.Reference())
		require.Len(t, f.appender.cmds, 1)
		assert.Equal(t, txvo.TransactionTypeRenewal, f.appender.cmds[0].Type)
		assert.Equal(t, uint(1), f.appender.cmds[0].SubscriptionID)
		assert.Equal(t, 1, f.runner.calls)
		require.Len(t, f.pub.events, 1)
		assert.Equal(t, events.TypeSubscriptionRenewed, f.pub.events[0].GetEventType())
	})

	t.Run("lifetime is rejected", func(t *testing.T) {
		f := newLedger(t)
		f.repo.On("GetByID", mock.Anything, uint(1)).Return(fixtureSubscription(t, fixtureOpts{id: 1, userID: 5, cycle: vo.BillingCycleLifetime}), nil)

		_, _, err := f.ledger.Renew(ctx, RenewCommand{ID: 1, NewEndDate: now.AddDate(1, 0, 0)})
		assert.True(t, apperrors.IsValidationError(err))
		assert.Empty(t, f.appender.cmds)
	})

	t.Run("end date must move forward", func(t *testing.T) {
		f := newLedger(t)
		sub := fixtureSubscription(t, fixtureOpts{id: 1, userID: 5})
		f.repo.On("GetByID", mock.Anything, uint(1)).Return(sub, nil)

		_, _, err := f.ledger.Renew(ctx, RenewCommand{ID: 1, NewEndDate: *sub.EndDate()})
		assert.True(t, apperrors.IsValidationError(err))
	})

	t.Run("transaction failure is surfaced", func(t *testing.T) {
		f := newLedger(t)
		sub := fixtureSubscription(t, fixtureOpts{id: 1, userID: 5})
		f.repo.On("GetByID", mock.Anything, uint(1)).Return(sub, nil)
		f.repo.On("Update", mock.Anything, sub).Return(nil)
		f.appender.err = apperrors.NewInternalError("failed to create transaction")

		_, _, err := f.ledger.Renew(ctx, RenewCommand{ID: 1, NewEndDate: sub.EndDate().AddDate(0, 1, 0)})
		require.Error(t, err)
		assert.Equal(t, "failed to create transaction", apperrors.GetAppError(err).Message)
		assert.Empty(t, f.pub.events)
	})
}

func TestSubscriptionLedger_ToggleAutoRenew(t *testing.T) {
	ctx := context.Background()

	t.Run("owner toggles", func(t *testing.T) {
		f := newLedger(t)
		sub := fixtureSubscription(t, fixtureOpts{id: 1, userID: 5})
		f.repo.On("GetByID", mock.Anything, uint(1)).Return(sub, nil)
		f.repo.On("Update", mock.Anything, sub).Return(nil)

		got, err := f.ledger.ToggleAutoRenew(ctx, 1, 5, true)
		require.NoError(t, err)
		assert.True(t, got.AutoRenew())
		assert.Equal(t, 2, got.Version())
	})

	t.Run("unchanged value skips the write", func(t *testing.T) {
		f := newLedger(t)
		sub := fixtureSubscription(t, fixtureOpts{id: 1, userID: 5, auto: true})
		f.repo.On("GetByID", mock.Anything, uint(1)).Return(sub, nil)

		_, err := f.ledger.ToggleAutoRenew(ctx, 1, 5, true)
		require.NoError(t, err)
		f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("admin is not the owner", func(t *testing.T) {
		f := newLedger(t)
		f.repo.On("GetByID", mock.Anything, uint(1)).Return(fixtureSubscription(t, fixtureOpts{id: 1, userID: 5}), nil)

		_, err := f.ledger.ToggleAutoRenew(ctx, 1, 99, false)
		assert.True(t, apperrors.IsForbiddenError(err))
	})

	t.Run("lifetime rejected", func(t *testing.T) {
		f := newLedger(t)
		f.repo.On("GetByID", mock.Anything, uint(1)).Return(fixtureSubscription(t, fixtureOpts{id: 1, userID: 5, cycle: vo.BillingCycleLifetime}), nil)

		_, err := f.ledger.ToggleAutoRenew(ctx, 1, 5, true)
		assert.True(t, apperrors.IsValidationError(err))
	})

	t.Run("cancelled rejected", func(t *testing.T) {
		f := newLedger(t)
		f.repo.On("GetByID", mock.Anything, uint(1)).Return(fixtureSubscription(t, fixtureOpts{id: 1, userID: 5, status: subvo.StatusCancelled}), nil)

		_, err := f.ledger.ToggleAutoRenew(ctx, 1, 5, true)
		assert.True(t, apperrors.IsConflictError(err))
	})
}

type stubPlans struct{ p *plan.Plan }

func (s stubPlans) FindByID(context.Context, uint) (*plan.Plan, error) { return s.p, nil }

type stubUsage struct{ u *usagedto.CurrentUsageDTO }

func (s stubUsage) GetCurrentUsage(context.Context, uint) (*usagedto.CurrentUsageDTO, error) {
	return s.u, nil
}

func TestCurrentSubscriptionUseCase(t *testing.T) {
	ctx := context.Background()
	f := newLedger(t)
	sub := fixtureSubscription(t, fixtureOpts{id: 1, userID: 5})
	f.repo.On("FindActiveByUser", mock.Anything, uint(5), now).Return(sub, nil)
	f.repo.On("FindActiveByUser", mock.Anything, uint(6), now).Return(nil, nil)

	p, err := plan.ReconstructPlan(plan.ReconstructParams{
		ID:       3,
		Code:     "growth",
		Name:     "Growth",
		Prices:   vo.Prices{vo.BillingCycleMonthly: dec("29.99")},
		Features: map[string]bool{"api_access": true},
		IsActive: true,
		Version:  1,
	})
	require.NoError(t, err)
	uc := NewCurrentSubscriptionUseCase(f.ledger, stubPlans{p: p}, stubUsage{u: &usagedto.CurrentUsageDTO{Month: "2025-06"}})

	got, err := uc.Execute(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Growth", got.PlanName)
	assert.Equal(t, "2025-06", got.Usage.Month)
	assert.True(t, got.Features["api_access"])
	assert.Equal(t, uint(1), got.Subscription.ID)

	none, err := uc.Execute(ctx, 6)
	require.NoError(t, err)
	assert.Nil(t, none)
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"msgdeck/internal/domain/plan"
	"msgdeck/internal/domain/promo"
	vo "msgdeck/internal/domain/shared/valueobjects"
	"msgdeck/internal/domain/subscription"
	"msgdeck/internal/domain/transaction"
	txvo "msgdeck/internal/domain/transaction/valueobjects"
	"msgdeck/internal/domain/usage"
	"msgdeck/internal/infrastructure/persistence/models"
	"msgdeck/internal/shared/db"
	sharedErrors "msgdeck/internal/shared/errors"
	"msgdeck/internal/shared/id"
	"msgdeck/internal/shared/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// every pooled connection to :memory: would be a separate database
	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(models.All()...))
	return database
}

func newTestPlan(t *testing.T, code string, sortOrder int) *plan.Plan {
	t.Helper()
	p, err := plan.NewPlan(plan.CreateParams{
		Code: code,
		Name: "Plan " + code,
		Prices: vo.Prices{
			vo.BillingCycleMonthly: decimal.RequireFromString("29.99"),
			vo.BillingCycleYearly:  decimal.RequireFromString("299"),
		},
		Limits: vo.Limits{
			vo.ResourceContacts: vo.LimitOf(1000),
			vo.ResourceMessages: vo.Unlimited(),
		},
		Features:  map[string]bool{"api_access": true},
		IsActive:  true,
		IsVisible: true,
		SortOrder: sortOrder,
	})
	require.NoError(t, err)
	return p
}

func TestPlanRepository_RoundTripAndListing(t *testing.T) {
	database := setupTestDB(t)
	repo := NewPlanRepository(database, logger.NewNop())
	ctx := context.Background()

	pro := newTestPlan(t, "pro", 2)
	starter := newTestPlan(t, "starter", 1)
	hidden := newTestPlan(t, "internal", 0)
	require.NoError(t, hidden.Update(plan.UpdateParams{IsVisible: new(bool)}))

	for _, p := range []*plan.Plan{pro, starter, hidden} {
		require.NoError(t, repo.Create(ctx, p))
		assert.NotZero(t, p.ID())
	}

	found, err := repo.GetByCode(ctx, "PRO")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, pro.ID(), found.ID())
	assert.True(t, found.LimitFor(vo.ResourceMessages).IsUnlimited())
	contacts, _ := found.LimitFor(vo.ResourceContacts).Value()
	assert.Equal(t, int64(1000), contacts)
	price, err := found.PriceFor(vo.BillingCycleMonthly)
	require.NoError(t, err)
	assert.Equal(t, "29.99", price.StringFixed(2))
	assert.True(t, found.HasFeature("api_access"))

	listed, err := repo.ListActiveVisible(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "starter", listed[0].Code())
	assert.Equal(t, "pro", listed[1].Code())

	missing, err := repo.GetByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	exists, err := repo.ExistsByCode(ctx, "starter")
	require.NoError(t, err)
	assert.True(t, exists)

	err = repo.Create(ctx, newTestPlan(t, "pro", 5))
	assert.True(t, sharedErrors.IsDuplicateError(err))
}

func TestPlanRepository_Update(t *testing.T) {
	database := setupTestDB(t)
	repo := NewPlanRepository(database, logger.NewNop())
	ctx := context.Background()

	p := newTestPlan(t, "growth", 1)
	require.NoError(t, repo.Create(ctx, p))

	name := "Growth Plus"
	require.NoError(t, p.Update(plan.UpdateParams{Name: &name}))
	require.NoError(t, repo.Update(ctx, p))

	found, err := repo.GetByID(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, "Growth Plus", found.Name())
	assert.Equal(t, 2, found.Version())

	active := true
	plans, total, err := repo.List(ctx, plan.Filter{IsActive: &active, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, plans, 1)
}

func newTestSubscription(t *testing.T, userID uint, cycle vo.BillingCycle, start time.Time) *subscription.Subscription {
	t.Helper()
	sub, err := subscription.NewSubscription(subscription.CreateParams{
		UserID:       userID,
		PlanID:       1,
		BillingCycle: cycle,
		AmountPaid:   decimal.RequireFromString("29.99"),
		Currency:     "USD",
		StartDate:    start,
		AutoRenew:    true,
	})
	require.NoError(t, err)
	return sub
}

func TestSubscriptionRepository_OneActivePerUser(t *testing.T) {
	database := setupTestDB(t)
	repo := NewSubscriptionRepository(database, logger.NewNop())
	ctx := context.Background()
	now := time.Now().UTC()

	first := newTestSubscription(t, 7, vo.BillingCycleMonthly, now)
	require.NoError(t, repo.Create(ctx, first))

	second := newTestSubscription(t, 7, vo.BillingCycleYearly, now)
	err := repo.Create(ctx, second)
	require.Error(t, err)
	assert.True(t, sharedErrors.IsDuplicateError(err))

	require.NoError(t, first.Cancel("switching", 7, now))
	require.NoError(t, repo.Update(ctx, first))

	third := newTestSubscription(t, 7, vo.BillingCycleYearly, now)
	require.NoError(t, repo.Create(ctx, third), "a cancelled row must not block a new active one")

	active, err := repo.FindActiveByUser(ctx, 7, now)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, third.ID(), active.ID())

	history, total, err := repo.ListByUser(ctx, 7, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, history, 2)
}

func TestSubscriptionRepository_OptimisticLock(t *testing.T) {
	database := setupTestDB(t)
	repo := NewSubscriptionRepository(database, logger.NewNop())
	ctx := context.Background()
	now := time.Now().UTC()

	sub := newTestSubscription(t, 3, vo.BillingCycleMonthly, now)
	require.NoError(t, repo.Create(ctx, sub))

	copyA, err := repo.GetByID(ctx, sub.ID())
	require.NoError(t, err)
	copyB, err := repo.GetByID(ctx, sub.ID())
	require.NoError(t, err)

	require.NoError(t, copyA.SetAutoRenew(false, now))
	require.NoError(t, repo.Update(ctx, copyA))

	require.NoError(t, copyB.Cancel("", 3, now))
	assert.ErrorIs(t, repo.Update(ctx, copyB), subscription.ErrConcurrentModification)
}

func TestSubscriptionRepository_DueForExpiry(t *testing.T) {
	database := setupTestDB(t)
	repo := NewSubscriptionRepository(database, logger.NewNop())
	ctx := context.Background()
	now := time.Now().UTC()

	lapsed := newTestSubscription(t, 1, vo.BillingCycleMonthly, now.AddDate(0, -2, 0))
	lifetime := newTestSubscription(t, 2, vo.BillingCycleLifetime, now.AddDate(-3, 0, 0))
	current := newTestSubscription(t, 3, vo.BillingCycleYearly, now)
	for _, s := range []*subscription.Subscription{lapsed, lifetime, current} {
		require.NoError(t, repo.Create(ctx, s))
	}

	due, err := repo.FindDueForExpiry(ctx, now, 0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, lapsed.ID(), due[0].ID())

	active, err := repo.FindActiveByUser(ctx, 1, now)
	require.NoError(t, err)
	assert.Nil(t, active, "an ACTIVE row past its end date is not current")

	own, err := repo.FindLapsedByUser(ctx, 1, now)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, lapsed.ID(), own[0].ID())
	for _, userID := range []uint{2, 3} {
		none, err := repo.FindLapsedByUser(ctx, userID, now)
		require.NoError(t, err)
		assert.Empty(t, none)
	}

	ids, err := repo.ListActiveUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 3}, ids)
}

func newTestPromo(t *testing.T, code string, maxUses *int) *promo.PromoCode {
	t.Helper()
	now := time.Now().UTC()
	p, err := promo.NewPromoCode(promo.CreateParams{
		Code:             code,
		DiscountType:     promo.DiscountTypePercentage,
		DiscountValue:    decimal.NewFromInt(20),
		ApplicablePlans:  []uint{1, 2},
		ApplicableCycles: []vo.BillingCycle{vo.BillingCycleYearly},
		ValidFrom:        now.Add(-time.Hour),
		ValidUntil:       now.Add(24 * time.Hour),
		MaxUses:          maxUses,
		IsActive:         true,
	})
	require.NoError(t, err)
	return p
}

func TestPromoRepository_GuardedIncrement(t *testing.T) {
	database := setupTestDB(t)
	repo := NewPromoRepository(database, logger.NewNop())
	ctx := context.Background()

	maxUses := 2
	p := newTestPromo(t, "LAUNCH20", &maxUses)
	require.NoError(t, repo.Create(ctx, p))

	for i := 0; i < maxUses; i++ {
		ok, err := repo.IncrementUsesGuarded(ctx, p.ID())
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := repo.IncrementUsesGuarded(ctx, p.ID())
	require.NoError(t, err)
	assert.False(t, ok, "the cap must hold")

	found, err := repo.GetByCode(ctx, "launch20")
	require.NoError(t, err)
	assert.Equal(t, 2, found.CurrentUses())
	assert.True(t, found.IsExhausted())
	assert.Equal(t, []uint{1, 2}, found.ApplicablePlans())
	assert.Equal(t, []vo.BillingCycle{vo.BillingCycleYearly}, found.ApplicableCycles())

	browsable, err := repo.ListBrowsable(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, browsable)
}

func TestPromoRepository_UsagesAndBrowsable(t *testing.T) {
	database := setupTestDB(t)
	repo := NewPromoRepository(database, logger.NewNop())
	ctx := context.Background()

	p := newTestPromo(t, "WELCOME", nil)
	require.NoError(t, repo.Create(ctx, p))

	ok, err := repo.IncrementUsesGuarded(ctx, p.ID())
	require.NoError(t, err)
	assert.True(t, ok, "no cap means the update always applies")

	usageRow, err := promo.NewPromoUsage(p.ID(), 42, 1, 1, decimal.NewFromInt(10), time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.CreateUsage(ctx, usageRow))
	assert.NotZero(t, usageRow.ID)

	count, err := repo.CountUsagesByUser(ctx, p.ID(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	count, err = repo.CountUsagesByUser(ctx, p.ID(), 43)
	require.NoError(t, err)
	assert.Zero(t, count)

	browsable, err := repo.ListBrowsable(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, browsable, 1)

	p.Deactivate()
	require.NoError(t, repo.Update(ctx, p))
	browsable, err = repo.ListBrowsable(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, browsable)

	inactive := false
	list, total, err := repo.List(ctx, promo.Filter{IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, 1, list[0].CurrentUses(), "Update must not overwrite current_uses")
}

func TestUsageRepository_Counters(t *testing.T) {
	database := setupTestDB(t)
	repo := NewUsageRepository(database, logger.NewNop())
	ctx := context.Background()

	record, err := usage.NewUsageRecord(5, 1, "2026-03")
	require.NoError(t, err)
	created, err := repo.CreateIfAbsent(ctx, record)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, record.ID())

	dup, err := usage.NewUsageRecord(5, 1, "2026-03")
	require.NoError(t, err)
	created, err = repo.CreateIfAbsent(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, repo.Increment(ctx, 5, "2026-03", vo.ResourceMessages, vo.MessageCategoryMarketing, 10))
	require.NoError(t, repo.Increment(ctx, 5, "2026-03", vo.ResourceContacts, "", 3))
	require.NoError(t, repo.Decrement(ctx, 5, "2026-03", vo.ResourceContacts, "", 7))

	got, err := repo.GetByUserAndMonth(ctx, 5, "2026-03")
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.Counter(vo.ResourceMessages))
	assert.Equal(t, int64(10), got.MessagesByCategory()[vo.MessageCategoryMarketing])
	assert.Equal(t, int64(0), got.Counter(vo.ResourceContacts), "decrement floors at zero")

	require.NoError(t, repo.Increment(ctx, 5, "2026-03", vo.ResourceContacts, "", 4))
	require.NoError(t, repo.ResetMonthly(ctx, 5, "2026-03", time.Now()))

	got, err = repo.GetByUserAndMonth(ctx, 5, "2026-03")
	require.NoError(t, err)
	assert.Zero(t, got.Counter(vo.ResourceMessages))
	assert.Zero(t, got.MessagesByCategory()[vo.MessageCategoryMarketing])
	assert.Equal(t, int64(4), got.Counter(vo.ResourceContacts), "contacts are not renewable")
	assert.NotNil(t, got.LastResetAt())

	err = repo.Increment(ctx, 5, "2026-04", vo.ResourceContacts, "", 1)
	assert.ErrorIs(t, err, usage.ErrUsageRecordNotFound)

	april, err := usage.NewUsageRecord(5, 1, "2026-04")
	require.NoError(t, err)
	_, err = repo.CreateIfAbsent(ctx, april)
	require.NoError(t, err)

	prev, err := repo.LatestBefore(ctx, 5, "2026-04")
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "2026-03", prev.Month())

	none, err := repo.LatestBefore(ctx, 5, "2026-03")
	require.NoError(t, err)
	assert.Nil(t, none)

	history, err := repo.ListRecent(ctx, 5, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "2026-04", history[0].Month())
}

func TestUsageRepository_ListRecentSkipsGaps(t *testing.T) {
	database := setupTestDB(t)
	repo := NewUsageRepository(database, logger.NewNop())
	ctx := context.Background()

	for _, month := range []string{"2024-01", "2025-06", "2023-11"} {
		record, err := usage.NewUsageRecord(8, 1, month)
		require.NoError(t, err)
		_, err = repo.CreateIfAbsent(ctx, record)
		require.NoError(t, err)
	}
	other, err := usage.NewUsageRecord(9, 1, "2025-07")
	require.NoError(t, err)
	_, err = repo.CreateIfAbsent(ctx, other)
	require.NoError(t, err)

	history, err := repo.ListRecent(ctx, 8, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2025-06", history[0].Month())
	assert.Equal(t, "2024-01", history[1].Month())

	all, err := repo.ListRecent(ctx, 8, 24)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func newTestTransaction(t *testing.T, userID uint, cycle vo.BillingCycle, amount string, status txvo.PaymentStatus) *transaction.Transaction {
	t.Helper()
	ref, err := id.NewTransactionReference()
	require.NoError(t, err)
	inv, err := id.NewInvoiceNumber()
	require.NoError(t, err)
	tx, err := transaction.NewTransaction(transaction.CreateParams{
		Reference:     ref,
		InvoiceNumber: inv,
		UserID:        userID,
		Type:          txvo.TransactionTypeNew,
		BillingCycle:  cycle,
		Amount:        decimal.RequireFromString(amount),
		Currency:      "USD",
		PaymentStatus: status,
		Metadata:      map[string]any{"promo_code": "WELCOME"},
	})
	require.NoError(t, err)
	return tx
}

func TestTransactionRepository_Revenue(t *testing.T) {
	database := setupTestDB(t)
	repo := NewTransactionRepository(database, logger.NewNop())
	ctx := context.Background()

	paid := newTestTransaction(t, 1, vo.BillingCycleMonthly, "100.00", txvo.PaymentStatusSuccess)
	yearly := newTestTransaction(t, 2, vo.BillingCycleYearly, "1000.00", txvo.PaymentStatusSuccess)
	pending := newTestTransaction(t, 3, vo.BillingCycleMonthly, "50.00", txvo.PaymentStatusPending)
	for _, tx := range []*transaction.Transaction{paid, yearly, pending} {
		require.NoError(t, repo.Create(ctx, tx))
	}

	require.NoError(t, yearly.Refund(decimal.RequireFromString("400"), "partial", 99, time.Now()))
	require.NoError(t, repo.Update(ctx, yearly))

	found, err := repo.GetByReference(ctx, yearly.Reference())
	require.NoError(t, err)
	assert.Equal(t, txvo.PaymentStatusRefunded, found.PaymentStatus())
	require.NotNil(t, found.RefundAmount())
	assert.Equal(t, "400.00", found.RefundAmount().StringFixed(2))
	assert.Equal(t, "WELCOME", found.Metadata()["promo_code"])

	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)

	totals, err := repo.RevenueTotals(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, "1100.00", totals.Collected.StringFixed(2))
	assert.Equal(t, "400.00", totals.Refunded.StringFixed(2))
	assert.Equal(t, int64(2), totals.Count)

	byCycle, err := repo.RevenueByBillingCycle(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, byCycle, 2)
	assert.Equal(t, "MONTHLY", byCycle[0].Key)
	assert.Equal(t, "100.00", byCycle[0].Amount.StringFixed(2))

	points, err := repo.CollectedPoints(ctx, from, to)
	require.NoError(t, err)
	assert.Len(t, points, 2)

	status := txvo.PaymentStatusPending
	list, total, err := repo.List(ctx, transaction.Filter{PaymentStatus: &status})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, pending.ID(), list[0].ID())
}

func TestRepositories_JoinContextTransaction(t *testing.T) {
	database := setupTestDB(t)
	tm := db.NewTransactionManager(database)
	repo := NewPlanRepository(database, logger.NewNop())
	ctx := context.Background()

	err := tm.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := repo.Create(txCtx, newTestPlan(t, "rollback", 1)); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	exists, err := repo.ExistsByCode(ctx, "rollback")
	require.NoError(t, err)
	assert.False(t, exists)
}

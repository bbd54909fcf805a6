package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type counterRow struct {
	ID    uint `gorm:"primaryKey"`
	Value int
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(&counterRow{}))
	return database
}

func TestRunInTransaction_CommitAndRollback(t *testing.T) {
	database := setupTestDB(t)
	tm := NewTransactionManager(database)
	ctx := context.Background()

	err := tm.RunInTransaction(ctx, func(txCtx context.Context) error {
		assert.True(t, InTransaction(txCtx))
		return GetTxFromContext(txCtx, database).Create(&counterRow{Value: 1}).Error
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = tm.RunInTransaction(ctx, func(txCtx context.Context) error {
		require.NoError(t, GetTxFromContext(txCtx, database).Create(&counterRow{Value: 2}).Error)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, database.Model(&counterRow{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRunInTransaction_NestedReusesOuter(t *testing.T) {
	database := setupTestDB(t)
	tm := NewTransactionManager(database)

	err := tm.RunInTransaction(context.Background(), func(outer context.Context) error {
		outerTx := GetTxFromContext(outer, database)
		return tm.RunInTransaction(outer, func(inner context.Context) error {
			assert.Same(t, outerTx, GetTxFromContext(inner, database))
			return nil
		})
	})
	assert.NoError(t, err)
	assert.False(t, InTransaction(context.Background()))
}

func TestWithRetry(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	t.Run("retries transient errors until success", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), policy, func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return driver.ErrBadConn
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), policy, func(ctx context.Context) error {
			calls++
			return errors.New("dial tcp: connection refused")
		})
		assert.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry business errors", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), policy, func(ctx context.Context) error {
			calls++
			return gorm.ErrRecordNotFound
		})
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
		assert.Equal(t, 1, calls)
	})

	t.Run("single attempt returns the error unwrapped", func(t *testing.T) {
		once := RetryPolicy{MaxAttempts: 1}
		err := WithRetry(context.Background(), once, func(ctx context.Context) error {
			return gorm.ErrRecordNotFound
		})
		assert.Equal(t, gorm.ErrRecordNotFound, err)
	})

	t.Run("backs off between attempts", func(t *testing.T) {
		spaced := RetryPolicy{MaxAttempts: 3, InitialDelay: 20 * time.Millisecond, MaxDelay: 20 * time.Millisecond}
		start := time.Now()
		calls := 0
		err := WithRetry(context.Background(), spaced, func(ctx context.Context) error {
			calls++
			return driver.ErrBadConn
		})
		assert.ErrorIs(t, err, driver.ErrBadConn)
		assert.Equal(t, 3, calls)
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("stops when context ends", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		slow := RetryPolicy{MaxAttempts: 5, InitialDelay: time.Hour}
		err := WithRetry(ctx, slow, func(ctx context.Context) error {
			return driver.ErrBadConn
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

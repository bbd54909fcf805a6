package repository

import (
	"context"
	"sync/atomic"

	"msgdeck/internal/shared/constants"
	"msgdeck/internal/shared/db"
)

var readRetryPolicy atomic.Pointer[db.RetryPolicy]

// SetReadRetryPolicy replaces the backoff used for read-only lookups.
func SetReadRetryPolicy(policy db.RetryPolicy) {
	readRetryPolicy.Store(&policy)
}

// withReadRetry retries fn on transient connection errors. Inside a transaction fn runs
// once: a broken transaction cannot be resumed.
func withReadRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	if db.InTransaction(ctx) {
		return fn(ctx)
	}
	policy := db.DefaultRetryPolicy
	if p := readRetryPolicy.Load(); p != nil {
		policy = *p
	}
	return db.WithRetry(ctx, policy, fn)
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = constants.DefaultPage
	}
	if pageSize < 1 {
		pageSize = constants.DefaultPageSize
	}
	if pageSize > constants.MaxPageSize {
		pageSize = constants.MaxPageSize
	}
	return page, pageSize
}

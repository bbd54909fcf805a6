package subscription

import (
	"context"
	"time"
)

type Repository interface {
	// Create fails with a duplicate-key error when the user already holds an ACTIVE row.
	Create(ctx context.Context, subscription *Subscription) error
	// Update uses optimistic locking on version and returns ErrConcurrentModification
	// when the row changed underneath.
	Update(ctx context.Context, subscription *Subscription) error
	GetByID(ctx context.Context, id uint) (*Subscription, error)

	// FindActiveByUser returns the newest ACTIVE row whose end date is null or after now.
	FindActiveByUser(ctx context.Context, userID uint, now time.Time) (*Subscription, error)
	ListByUser(ctx context.Context, userID uint, page, pageSize int) ([]*Subscription, int64, error)
	// FindDueForExpiry returns ACTIVE rows whose end date is before now.
	FindDueForExpiry(ctx context.Context, now time.Time, limit int) ([]*Subscription, error)
	// FindLapsedByUser is FindDueForExpiry scoped to one owner.
	FindLapsedByUser(ctx context.Context, userID uint, now time.Time) ([]*Subscription, error)
	// ListActiveUserIDs returns the users holding an ACTIVE subscription.
	ListActiveUserIDs(ctx context.Context) ([]uint, error)
}

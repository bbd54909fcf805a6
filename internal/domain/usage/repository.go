package usage

import (
	"context"
	"time"

	vo "msgdeck/internal/domain/shared/valueobjects"
)

type Repository interface {
	GetByUserAndMonth(ctx context.Context, userID uint, month string) (*UsageRecord, error)
	// CreateIfAbsent inserts a new month row and reports false when a row for the same
	// (user, month) already exists.
	CreateIfAbsent(ctx context.Context, record *UsageRecord) (bool, error)

	// Increment adds delta to the resource column, and to the category column when set.
	Increment(ctx context.Context, userID uint, month string, rt vo.ResourceType, category vo.MessageCategory, delta int64) error
	// Decrement subtracts delta, flooring each column at zero.
	Decrement(ctx context.Context, userID uint, month string, rt vo.ResourceType, category vo.MessageCategory, delta int64) error
	// ResetMonthly zeroes campaigns, messages and the per-category message counters.
	ResetMonthly(ctx context.Context, userID uint, month string, at time.Time) error

	// LatestBefore returns the newest row with month < month, or nil.
	LatestBefore(ctx context.Context, userID uint, month string) (*UsageRecord, error)
	// ListRecent returns the user's newest limit rows, newest first. Months without
	// a row are skipped, not counted.
	ListRecent(ctx context.Context, userID uint, limit int) ([]*UsageRecord, error)
}

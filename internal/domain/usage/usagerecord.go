// Package usage tracks monthly resource consumption per user.
package usage

import (
	"errors"
	"fmt"
	"time"

	vo "msgdeck/internal/domain/shared/valueobjects"
	"msgdeck/internal/shared/biztime"
)

var (
	ErrUsageRecordNotFound = errors.New("usage record not found")
	ErrInvalidMonth        = errors.New("invalid usage month")
)

// UsageRecord is the single row per (user, month).
type UsageRecord struct {
	id             uint
	userID         uint
	subscriptionID uint
	month          string
	counters       map[vo.ResourceType]int64
	messagesByCat  map[vo.MessageCategory]int64
	lastResetAt    *time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

func NewUsageRecord(userID, subscriptionID uint, month string) (*UsageRecord, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if _, err := biztime.ParseMonthKey(month); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMonth, month)
	}
	now := biztime.NowUTC()
	return &UsageRecord{
		userID:         userID,
		subscriptionID: subscriptionID,
		month:          month,
		counters:       make(map[vo.ResourceType]int64),
		messagesByCat:  make(map[vo.MessageCategory]int64),
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

type ReconstructParams struct {
	ID             uint
	UserID         uint
	SubscriptionID uint
	Month          string
	Counters       map[vo.ResourceType]int64
	MessagesByCat  map[vo.MessageCategory]int64
	LastResetAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func ReconstructUsageRecord(p ReconstructParams) *UsageRecord {
	counters := p.Counters
	if counters == nil {
		counters = make(map[vo.ResourceType]int64)
	}
	byCat := p.MessagesByCat
	if byCat == nil {
		byCat = make(map[vo.MessageCategory]int64)
	}
	return &UsageRecord{
		id:             p.ID,
		userID:         p.UserID,
		subscriptionID: p.SubscriptionID,
		month:          p.Month,
		counters:       counters,
		messagesByCat:  byCat,
		lastResetAt:    p.LastResetAt,
		createdAt:      p.CreatedAt,
		updatedAt:      p.UpdatedAt,
	}
}

func (u *UsageRecord) ID() uint                { return u.id }
func (u *UsageRecord) UserID() uint            { return u.userID }
func (u *UsageRecord) SubscriptionID() uint    { return u.subscriptionID }
func (u *UsageRecord) Month() string           { return u.month }
func (u *UsageRecord) LastResetAt() *time.Time { return u.lastResetAt }
func (u *UsageRecord) CreatedAt() time.Time    { return u.createdAt }
func (u *UsageRecord) UpdatedAt() time.Time    { return u.updatedAt }

// SetID sets the record ID (only for persistence layer use)
func (u *UsageRecord) SetID(id uint) {
	u.id = id
}

// Counter returns the current count for rt.
func (u *UsageRecord) Counter(rt vo.ResourceType) int64 {
	return u.counters[rt]
}

// Counters returns a copy with every resource present.
func (u *UsageRecord) Counters() map[vo.ResourceType]int64 {
	out := make(map[vo.ResourceType]int64, len(vo.AllResourceTypes()))
	for _, rt := range vo.AllResourceTypes() {
		out[rt] = u.counters[rt]
	}
	return out
}

// MessagesByCategory returns a copy with every category present.
func (u *UsageRecord) MessagesByCategory() map[vo.MessageCategory]int64 {
	out := make(map[vo.MessageCategory]int64, 3)
	for _, c := range vo.AllMessageCategories() {
		out[c] = u.messagesByCat[c]
	}
	return out
}

// CarryOver copies the standing totals (contacts, templates, team members, numbers)
// from the previous month. Monthly counters stay at zero.
func (u *UsageRecord) CarryOver(prev *UsageRecord) {
	if prev == nil {
		return
	}
	for _, rt := range vo.AllResourceTypes() {
		if !rt.ResetsMonthly() {
			u.counters[rt] = prev.counters[rt]
		}
	}
}

// LimitCheck is the answer to "may this user consume one more unit?".
type LimitCheck struct {
	Resource   vo.ResourceType
	CanProceed bool
	Current    int64
	Limit      vo.Limit
	// Remaining is -1 when the limit is unlimited.
	Remaining int64
}

// EvaluateLimit compares current usage to limit.
func EvaluateLimit(rt vo.ResourceType, limit vo.Limit, current int64) LimitCheck {
	return LimitCheck{
		Resource:   rt,
		CanProceed: limit.Allows(current),
		Current:    current,
		Limit:      limit,
		Remaining:  limit.Remaining(current),
	}
}

// Snapshot returns every field in reconstructable form, for caching.
func (u *UsageRecord) Snapshot() ReconstructParams {
	return ReconstructParams{
		ID:             u.id,
		UserID:         u.userID,
		SubscriptionID: u.subscriptionID,
		Month:          u.month,
		Counters:       u.Counters(),
		MessagesByCat:  u.MessagesByCategory(),
		LastResetAt:    u.lastResetAt,
		CreatedAt:      u.createdAt,
		UpdatedAt:      u.updatedAt,
	}
}

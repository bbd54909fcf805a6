package dto

import (
	"time"

	"msgdeck/internal/domain/plan"
	vo "msgdeck/internal/domain/shared/valueobjects"
	"msgdeck/internal/domain/usage"
)

type UsageDTO struct {
	ID                 uint             `json:"id"`
	UserID             uint             `json:"user_id"`
	SubscriptionID     uint             `json:"subscription_id"`
	Month              string           `json:"month"`
	Counters           map[string]int64 `json:"counters"`
	MessagesByCategory map[string]int64 `json:"messages_by_category"`
	LastResetAt        *time.Time       `json:"last_reset_at,omitempty"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// ResourceUsageDTO is one metered resource against its plan limit. Limit and
// Remaining are -1 when unlimited.
type ResourceUsageDTO struct {
	Current    int64 `json:"current"`
	Limit      int64 `json:"limit"`
	Remaining  int64 `json:"remaining"`
	CanProceed bool  `json:"can_proceed"`
}

type CurrentUsageDTO struct {
	Month              string                      `json:"month"`
	SubscriptionID     uint                        `json:"subscription_id"`
	PlanID             uint                        `json:"plan_id"`
	PlanName           string                      `json:"plan_name"`
	Resources          map[string]ResourceUsageDTO `json:"resources"`
	MessagesByCategory map[string]int64            `json:"messages_by_category"`
	LastResetAt        *time.Time                  `json:"last_reset_at,omitempty"`
}

type LimitCheckDTO struct {
	ResourceType string `json:"resource_type"`
	CanProceed   bool   `json:"can_proceed"`
	Current      int64  `json:"current"`
	Limit        int64  `json:"limit"`
	Remaining    int64  `json:"remaining"`
	Unlimited    bool   `json:"unlimited"`
}

func ToUsageDTO(u *usage.UsageRecord) *UsageDTO {
	if u == nil {
		return nil
	}
	counters := make(map[string]int64, len(vo.AllResourceTypes()))
	for rt, n := range u.Counters() {
		counters[rt.String()] = n
	}
	return &UsageDTO{
		ID:                 u.ID(),
		UserID:             u.UserID(),
		SubscriptionID:     u.SubscriptionID(),
		Month:              u.Month(),
		Counters:           counters,
		MessagesByCategory: categoryMap(u),
		LastResetAt:        u.LastResetAt(),
		UpdatedAt:          u.UpdatedAt(),
	}
}

func ToUsageDTOList(records []*usage.UsageRecord) []*UsageDTO {
	out := make([]*UsageDTO, 0, len(records))
	for _, r := range records {
		out = append(out, ToUsageDTO(r))
	}
	return out
}

func ToLimitCheckDTO(c usage.LimitCheck) *LimitCheckDTO {
	return &LimitCheckDTO{
		ResourceType: c.Resource.String(),
		CanProceed:   c.CanProceed,
		Current:      c.Current,
		Limit:        c.Limit.Wire(),
		Remaining:    c.Remaining,
		Unlimited:    c.Limit.IsUnlimited(),
	}
}

// ToCurrentUsageDTO pairs each counter with the plan's limit for it.
func ToCurrentUsageDTO(u *usage.UsageRecord, subscriptionID uint, p *plan.Plan) *CurrentUsageDTO {
	resources := make(map[string]ResourceUsageDTO, len(vo.AllResourceTypes()))
	for _, rt := range vo.AllResourceTypes() {
		check := usage.EvaluateLimit(rt, p.LimitFor(rt), u.Counter(rt))
		resources[rt.String()] = ResourceUsageDTO{
			Current:    check.Current,
			Limit:      check.Limit.Wire(),
			Remaining:  check.Remaining,
			CanProceed: check.CanProceed,
		}
	}
	return &CurrentUsageDTO{
		Month:              u.Month(),
		SubscriptionID:     subscriptionID,
		PlanID:             p.ID(),
		PlanName:           p.Name(),
		Resources:          resources,
		MessagesByCategory: categoryMap(u),
		LastResetAt:        u.LastResetAt(),
	}
}

func categoryMap(u *usage.UsageRecord) map[string]int64 {
	out := make(map[string]int64, len(vo.AllMessageCategories()))
	for c, n := range u.MessagesByCategory() {
		out[string(c)] = n
	}
	return out
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"

	usagedto "msgdeck/internal/application/usage/dto"
	"msgdeck/internal/domain/subscription"
)

type SubscriptionDTO struct {
	ID                 uint            `json:"id"`
	UserID             uint            `json:"user_id"`
	PlanID             uint            `json:"plan_id"`
	BillingCycle       string          `json:"billing_cycle"`
	AmountPaid         decimal.Decimal `json:"amount_paid"`
	Currency           string          `json:"currency"`
	Status             string          `json:"status"`
	StartDate          time.Time       `json:"start_date"`
	EndDate            *time.Time      `json:"end_date"`
	NextBillingDate    *time.Time      `json:"next_billing_date"`
	AutoRenew          bool            `json:"auto_renew"`
	TrialEnd           *time.Time      `json:"trial_end,omitempty"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
	CancellationReason string          `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// CurrentSubscriptionDTO is the dashboard snapshot: the active subscription, its plan
// and this month's usage against the plan limits.
type CurrentSubscriptionDTO struct {
	Subscription *SubscriptionDTO          `json:"subscription"`
	PlanCode     string                    `json:"plan_code"`
	PlanName     string                    `json:"plan_name"`
	Features     map[string]bool           `json:"features"`
	Usage        *usagedto.CurrentUsageDTO `json:"usage"`
}

func ToSubscriptionDTO(s *subscription.Subscription) *SubscriptionDTO {
	if s == nil {
		return nil
	}
	return &SubscriptionDTO{
		ID:                 s.ID(),
		UserID:             s.UserID(),
		PlanID:             s.PlanID(),
		BillingCycle:       s.BillingCycle().String(),
		AmountPaid:         s.AmountPaid(),
		Currency:           s.Currency(),
		Status:             s.Status().String(),
		StartDate:          s.StartDate(),
		EndDate:            s.EndDate(),
		NextBillingDate:    s.NextBillingDate(),
		AutoRenew:          s.AutoRenew(),
		TrialEnd:           s.TrialEnd(),
		CancelledAt:        s.CancelledAt(),
		CancellationReason: s.CancellationReason(),
		CreatedAt:          s.CreatedAt(),
		UpdatedAt:          s.UpdatedAt(),
	}
}

func ToSubscriptionDTOList(subs []*subscription.Subscription) []*SubscriptionDTO {
	out := make([]*SubscriptionDTO, 0, len(subs))
	for _, s := range subs {
		out = append(out, ToSubscriptionDTO(s))
	}
	return out
}

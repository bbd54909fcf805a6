// Package subscription holds the subscription aggregate and its lifecycle:
// ACTIVE, then CANCELLED or EXPIRED.
package subscription

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	vo "msgdeck/internal/domain/shared/valueobjects"
	subvo "msgdeck/internal/domain/subscription/valueobjects"
	"msgdeck/internal/shared/biztime"
)

// Subscription represents the subscription aggregate root
type Subscription struct {
	id                 uint
	userID             uint
	planID             uint
	billingCycle       vo.BillingCycle
	amountPaid         decimal.Decimal
	currency           string
	status             subvo.SubscriptionStatus
	startDate          time.Time
	endDate            *time.Time
	nextBillingDate    *time.Time
	autoRenew          bool
	trialStart         *time.Time
	trialEnd           *time.Time
	cancelledAt        *time.Time
	cancellationReason string
	cancelledBy        *uint
	version            int
	createdAt          time.Time
	updatedAt          time.Time
}

type CreateParams struct {
	UserID       uint
	PlanID       uint
	BillingCycle vo.BillingCycle
	AmountPaid   decimal.Decimal
	Currency     string
	StartDate    time.Time
	AutoRenew    bool
	// TrialEnd is optional. When set the trial runs from StartDate to TrialEnd.
	TrialEnd *time.Time
}

// NewSubscription creates an ACTIVE subscription. End and next billing dates are one
// period after start; LIFETIME has neither and never auto-renews.
func NewSubscription(p CreateParams) (*Subscription, error) {
	if p.UserID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if p.PlanID == 0 {
		return nil, fmt.Errorf("plan ID is required")
	}
	if !p.BillingCycle.IsValid() {
		return nil, fmt.Errorf("%w: %q", vo.ErrInvalidBillingCycle, p.BillingCycle)
	}
	if p.AmountPaid.IsNegative() {
		return nil, fmt.Errorf("amount paid: %w", vo.ErrNegativeAmount)
	}
	if strings.TrimSpace(p.Currency) == "" {
		return nil, fmt.Errorf("currency is required")
	}

	start := p.StartDate.UTC()
	end := p.BillingCycle.PeriodEnd(start)
	var next *time.Time
	if end != nil {
		n := *end
		next = &n
	}

	var trialStart, trialEnd *time.Time
	if p.TrialEnd != nil {
		if !p.TrialEnd.After(start) {
			return nil, fmt.Errorf("trial end must be after start date")
		}
		ts, te := start, p.TrialEnd.UTC()
		trialStart, trialEnd = &ts, &te
	}

	now := biztime.NowUTC()
	return &Subscription{
		userID:          p.UserID,
		planID:          p.PlanID,
		billingCycle:    p.BillingCycle,
		amountPaid:      vo.RoundMoney(p.AmountPaid),
		currency:        strings.ToUpper(p.Currency),
		status:          subvo.StatusActive,
		startDate:       start,
		endDate:         end,
		nextBillingDate: next,
		autoRenew:       p.AutoRenew && !p.BillingCycle.IsLifetime(),
		trialStart:      trialStart,
		trialEnd:        trialEnd,
		version:         1,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

type ReconstructParams struct {
	ID                 uint
	UserID             uint
	PlanID             uint
	BillingCycle       vo.BillingCycle
	AmountPaid         decimal.Decimal
	Currency           string
	Status             subvo.SubscriptionStatus
	StartDate          time.Time
	EndDate            *time.Time
	NextBillingDate    *time.Time
	AutoRenew          bool
	TrialStart         *time.Time
	TrialEnd           *time.Time
	CancelledAt        *time.Time
	CancellationReason string
	CancelledBy        *uint
	Version            int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ReconstructSubscription reconstructs a subscription from persistence
func ReconstructSubscription(p ReconstructParams) (*Subscription, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("subscription ID cannot be zero")
	}
	if p.UserID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if !p.Status.IsValid() {
		return nil, fmt.Errorf("invalid subscription status: %s", p.Status)
	}
	if !p.BillingCycle.IsValid() {
		return nil, fmt.Errorf("%w: %q", vo.ErrInvalidBillingCycle, p.BillingCycle)
	}
	return &Subscription{
		id:                 p.ID,
		userID:             p.UserID,
		planID:             p.PlanID,
		billingCycle:       p.BillingCycle,
		amountPaid:         p.AmountPaid,
		currency:           p.Currency,
		status:             p.Status,
		startDate:          p.StartDate,
		endDate:            p.EndDate,
		nextBillingDate:    p.NextBillingDate,
		autoRenew:          p.AutoRenew,
		trialStart:         p.TrialStart,
		trialEnd:           p.TrialEnd,
		cancelledAt:        p.CancelledAt,
		cancellationReason: p.CancellationReason,
		cancelledBy:        p.CancelledBy,
		version:            p.Version,
		createdAt:          p.CreatedAt,
		updatedAt:          p.UpdatedAt,
	}, nil
}

func (s *Subscription) ID() uint                         { return s.id }
func (s *Subscription) UserID() uint                     { return s.userID }
func (s *Subscription) PlanID() uint                     { return s.planID }
func (s *Subscription) BillingCycle() vo.BillingCycle    { return s.billingCycle }
func (s *Subscription) AmountPaid() decimal.Decimal      { return s.amountPaid }
func (s *Subscription) Currency() string                 { return s.currency }
func (s *Subscription) Status() subvo.SubscriptionStatus { return s.status }
func (s *Subscription) StartDate() time.Time             { return s.startDate }
func (s *Subscription) EndDate() *time.Time              { return s.endDate }
func (s *Subscription) NextBillingDate() *time.Time      { return s.nextBillingDate }
func (s *Subscription) AutoRenew() bool                  { return s.autoRenew }
func (s *Subscription) TrialStart() *time.Time           { return s.trialStart }
func (s *Subscription) TrialEnd() *time.Time             { return s.trialEnd }
func (s *Subscription) CancelledAt() *time.Time          { return s.cancelledAt }
func (s *Subscription) CancellationReason() string       { return s.cancellationReason }
func (s *Subscription) CancelledBy() *uint               { return s.cancelledBy }
func (s *Subscription) Version() int                     { return s.version }
func (s *Subscription) CreatedAt() time.Time             { return s.createdAt }
func (s *Subscription) UpdatedAt() time.Time             { return s.updatedAt }

// SetID sets the subscription ID (only for persistence layer use)
func (s *Subscription) SetID(id uint) error {
	if s.id != 0 {
		return fmt.Errorf("subscription ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("subscription ID cannot be zero")
	}
	s.id = id
	return nil
}

// ActiveUserKey is the user ID while ACTIVE and nil otherwise. It backs the
// one-active-subscription-per-user unique index.
func (s *Subscription) ActiveUserKey() *uint {
	if s.status != subvo.StatusActive {
		return nil
	}
	key := s.userID
	return &key
}

// IsLifetime reports whether the subscription never ends.
func (s *Subscription) IsLifetime() bool {
	return s.billingCycle.IsLifetime()
}

// IsCurrentlyActive is ACTIVE with no end date or an end date after now.
func (s *Subscription) IsCurrentlyActive(now time.Time) bool {
	return s.status == subvo.StatusActive && (s.endDate == nil || s.endDate.After(now))
}

// IsInTrial reports whether now falls inside the trial window.
func (s *Subscription) IsInTrial(now time.Time) bool {
	return s.trialEnd != nil && s.trialStart != nil && !now.Before(*s.trialStart) && now.Before(*s.trialEnd)
}

// BelongsTo reports whether userID owns the subscription.
func (s *Subscription) BelongsTo(userID uint) bool {
	return s.userID == userID
}

// Cancel moves ACTIVE to CANCELLED and turns off auto-renew.
func (s *Subscription) Cancel(reason string, by uint, now time.Time) error {
	if s.status == subvo.StatusCancelled {
		return ErrAlreadyCancelled
	}
	if !s.status.CanTransitionTo(subvo.StatusCancelled) {
		return fmt.Errorf("%w: %w", ErrNotActive, ErrInvalidTransition(s.status.String(), subvo.StatusCancelled.String()))
	}

	at := now.UTC()
	s.status = subvo.StatusCancelled
	s.cancelledAt = &at
	s.cancellationReason = strings.TrimSpace(reason)
	if by != 0 {
		s.cancelledBy = &by
	}
	s.autoRenew = false
	s.nextBillingDate = nil
	s.touch(now)
	return nil
}

// Expire moves ACTIVE to EXPIRED once the end date has passed. It reports whether
// the status changed. LIFETIME subscriptions never expire.
func (s *Subscription) Expire(now time.Time) bool {
	if s.status != subvo.StatusActive || s.endDate == nil || !s.endDate.Before(now) {
		return false
	}
	s.status = subvo.StatusExpired
	s.autoRenew = false
	s.nextBillingDate = nil
	s.touch(now)
	return true
}

// Renew extends an ACTIVE subscription in place.
func (s *Subscription) Renew(newEndDate time.Time, nextBillingDate *time.Time, amountPaid decimal.Decimal, now time.Time) error {
	if s.status != subvo.StatusActive {
		return ErrNotActive
	}
	if s.IsLifetime() {
		return ErrLifetimeNotRenewable
	}
	if s.endDate != nil && !newEndDate.After(*s.endDate) {
		return ErrInvalidRenewalDate
	}
	if amountPaid.IsNegative() {
		return fmt.Errorf("amount paid: %w", vo.ErrNegativeAmount)
	}

	end := newEndDate.UTC()
	s.endDate = &end
	if nextBillingDate != nil {
		next := nextBillingDate.UTC()
		s.nextBillingDate = &next
	} else {
		next := end
		s.nextBillingDate = &next
	}
	s.amountPaid = vo.RoundMoney(amountPaid)
	s.touch(now)
	return nil
}

// SetAutoRenew toggles auto-renew on an ACTIVE, non-lifetime subscription.
func (s *Subscription) SetAutoRenew(enabled bool, now time.Time) error {
	if s.status != subvo.StatusActive {
		return ErrNotActive
	}
	if s.IsLifetime() {
		return ErrLifetimeAutoRenew
	}
	if s.autoRenew == enabled {
		return nil
	}
	s.autoRenew = enabled
	s.touch(now)
	return nil
}

func (s *Subscription) touch(now time.Time) {
	s.updatedAt = now.UTC()
	s.version++
}

// Snapshot returns every field in reconstructable form, for caching.
func (s *Subscription) Snapshot() ReconstructParams {
	return ReconstructParams{
		ID:                 s.id,
		UserID:             s.userID,
		PlanID:             s.planID,
		BillingCycle:       s.billingCycle,
		AmountPaid:         s.amountPaid,
		Currency:           s.currency,
		Status:             s.status,
		StartDate:          s.startDate,
		EndDate:            s.endDate,
		NextBillingDate:    s.nextBillingDate,
		AutoRenew:          s.autoRenew,
		TrialStart:         s.trialStart,
		TrialEnd:           s.trialEnd,
		CancelledAt:        s.cancelledAt,
		CancellationReason: s.cancellationReason,
		CancelledBy:        s.cancelledBy,
		Version:            s.version,
		CreatedAt:          s.createdAt,
		UpdatedAt:          s.updatedAt,
	}
}

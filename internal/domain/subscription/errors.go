package subscription

import (
	"errors"
	"fmt"
)

var (
	ErrSubscriptionNotFound     = errors.New("subscription not found")
	ErrNoActiveSubscription     = errors.New("no active subscription")
	ErrAlreadyCancelled         = errors.New("subscription is already cancelled")
	ErrNotActive                = errors.New("subscription is not active")
	ErrInvalidStatusTransition  = errors.New("invalid status transition")
	ErrLifetimeNotRenewable     = errors.New("lifetime subscriptions cannot be renewed")
	ErrLifetimeAutoRenew        = errors.New("lifetime subscriptions do not auto-renew")
	ErrInvalidRenewalDate       = errors.New("new end date must be after the current end date")
	ErrActiveSubscriptionExists = errors.New("user already has an active subscription")
	ErrConcurrentModification   = errors.New("subscription was modified concurrently")
)

func ErrInvalidTransition(from, to string) error {
	return fmt.Errorf("%w: from %s to %s", ErrInvalidStatusTransition, from, to)
}

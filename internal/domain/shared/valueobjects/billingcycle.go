package valueobjects

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidBillingCycle is returned when a billing cycle is not MONTHLY, YEARLY or LIFETIME.
var ErrInvalidBillingCycle = errors.New("invalid billing cycle")

type BillingCycle string

const (
	BillingCycleMonthly  BillingCycle = "MONTHLY"
	BillingCycleYearly   BillingCycle = "YEARLY"
	BillingCycleLifetime BillingCycle = "LIFETIME"
)

// AllBillingCycles lists the cycles in display order.
func AllBillingCycles() []BillingCycle {
	return []BillingCycle{BillingCycleMonthly, BillingCycleYearly, BillingCycleLifetime}
}

// ParseBillingCycle accepts any letter case and surrounding whitespace.
func ParseBillingCycle(value string) (BillingCycle, error) {
	cycle := BillingCycle(strings.ToUpper(strings.TrimSpace(value)))
	if !cycle.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidBillingCycle, value)
	}
	return cycle, nil
}

func (b BillingCycle) String() string {
	return string(b)
}

func (b BillingCycle) IsValid() bool {
	switch b {
	case BillingCycleMonthly, BillingCycleYearly, BillingCycleLifetime:
		return true
	}
	return false
}

func (b BillingCycle) IsLifetime() bool {
	return b == BillingCycleLifetime
}

// PeriodEnd returns the end of one billing period starting at start.
// LIFETIME has no end and returns nil.
func (b BillingCycle) PeriodEnd(start time.Time) *time.Time {
	var end time.Time
	switch b {
	case BillingCycleMonthly:
		end = start.AddDate(0, 1, 0)
	case BillingCycleYearly:
		end = start.AddDate(1, 0, 0)
	default:
		return nil
	}
	return &end
}

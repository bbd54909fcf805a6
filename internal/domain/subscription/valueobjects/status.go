package valueobjects

type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "ACTIVE"
	StatusCancelled SubscriptionStatus = "CANCELLED"
	StatusExpired   SubscriptionStatus = "EXPIRED"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) IsValid() bool {
	return ValidStatuses[s]
}

// IsTerminal reports whether no transition leaves s.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusExpired
}

// CanTransitionTo allows ACTIVE -> CANCELLED and ACTIVE -> EXPIRED only.
func (s SubscriptionStatus) CanTransitionTo(target SubscriptionStatus) bool {
	return s == StatusActive && (target == StatusCancelled || target == StatusExpired)
}

var ValidStatuses = map[SubscriptionStatus]bool{
	StatusActive:    true,
	StatusCancelled: true,
	StatusExpired:   true,
}

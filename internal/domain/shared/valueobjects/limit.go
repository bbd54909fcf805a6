package valueobjects

import (
	"encoding/json"
	"errors"
	"fmt"
)

// UnlimitedWire is how an unlimited Limit is written to JSON and to the database.
const UnlimitedWire int64 = -1

var ErrInvalidLimit = errors.New("invalid limit")

// Limit is a resource cap. The zero value is a cap of 0; use Unlimited for no cap.
type Limit struct {
	value     int64
	unlimited bool
}

func Unlimited() Limit {
	return Limit{unlimited: true}
}

// LimitOf returns a finite cap of n. Negative n is clamped to 0.
func LimitOf(n int64) Limit {
	if n < 0 {
		n = 0
	}
	return Limit{value: n}
}

// LimitFromWire decodes the boundary form where -1 means unlimited.
func LimitFromWire(n int64) (Limit, error) {
	switch {
	case n == UnlimitedWire:
		return Unlimited(), nil
	case n < 0:
		return Limit{}, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	return LimitOf(n), nil
}

func (l Limit) IsUnlimited() bool {
	return l.unlimited
}

// Value returns the cap and false when unlimited.
func (l Limit) Value() (int64, bool) {
	if l.unlimited {
		return 0, false
	}
	return l.value, true
}

// Wire returns the boundary form.
func (l Limit) Wire() int64 {
	if l.unlimited {
		return UnlimitedWire
	}
	return l.value
}

// Allows reports whether one more unit may be consumed at current usage.
func (l Limit) Allows(current int64) bool {
	return l.unlimited || current < l.value
}

// Remaining is max(0, cap-current), or -1 when unlimited.
func (l Limit) Remaining(current int64) int64 {
	if l.unlimited {
		return UnlimitedWire
	}
	return max(0, l.value-current)
}

func (l Limit) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Wire())
}

func (l *Limit) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	parsed, err := LimitFromWire(n)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Limits holds one Limit per resource. A resource without an entry has a cap of 0.
type Limits map[ResourceType]Limit

func (ls Limits) For(rt ResourceType) Limit {
	if l, ok := ls[rt]; ok {
		return l
	}
	return LimitOf(0)
}

// Wire converts to the boundary map keyed by resource name.
func (ls Limits) Wire() map[string]int64 {
	out := make(map[string]int64, len(ls))
	for rt, l := range ls {
		out[string(rt)] = l.Wire()
	}
	return out
}

// LimitsFromWire parses a boundary map, rejecting unknown resources and values below -1.
func LimitsFromWire(in map[string]int64) (Limits, error) {
	out := make(Limits, len(in))
	for k, v := range in {
		rt, err := ParseResourceType(k)
		if err != nil {
			return nil, err
		}
		l, err := LimitFromWire(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rt, err)
		}
		out[rt] = l
	}
	return out, nil
}

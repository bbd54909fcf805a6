// Package events defines the domain events emitted by the billing core.
package events

import (
	"context"
	"strconv"
	"time"
)

// DomainEvent represents a domain event interface
type DomainEvent interface {
	// GetAggregateID returns the ID of the aggregate that generated the event
	GetAggregateID() string

	// GetEventType returns the type/name of the event
	GetEventType() string

	// GetOccurredAt returns when the event occurred
	GetOccurredAt() time.Time

	// GetVersion returns the event version for schema evolution
	GetVersion() int
}

// BaseEvent provides common fields for all domain events
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	OccurredAt  time.Time `json:"occurred_at"`
	Version     int       `json:"version"`
}

func newBaseEvent(eventType string, aggregateID uint, at time.Time) BaseEvent {
	return BaseEvent{
		AggregateID: strconv.FormatUint(uint64(aggregateID), 10),
		EventType:   eventType,
		OccurredAt:  at.UTC(),
		Version:     1,
	}
}

func (e BaseEvent) GetAggregateID() string   { return e.AggregateID }
func (e BaseEvent) GetEventType() string     { return e.EventType }
func (e BaseEvent) GetOccurredAt() time.Time { return e.OccurredAt }
func (e BaseEvent) GetVersion() int          { return e.Version }

// EventPublisher publishes domain events after the state change has been committed.
// Delivery is at-most-once: a publish failure never rolls back business state.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
}

// Package pubsub delivers domain events to other services. Events go out over NATS
// after the database commit; when events are disabled a no-op publisher is used.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"msgdeck/internal/domain/shared/events"
	sharedConfig "msgdeck/internal/shared/config"
	"msgdeck/internal/shared/logger"
)

// Envelope is the wire format of a published event.
type Envelope struct {
	ID          string             `json:"id"`
	Type        string             `json:"type"`
	AggregateID string             `json:"aggregate_id"`
	OccurredAt  time.Time          `json:"occurred_at"`
	Version     int                `json:"version"`
	Payload     events.DomainEvent `json:"payload"`
}

func newEnvelope(event events.DomainEvent) Envelope {
	return Envelope{
		ID:          uuid.NewString(),
		Type:        event.GetEventType(),
		AggregateID: event.GetAggregateID(),
		OccurredAt:  event.GetOccurredAt(),
		Version:     event.GetVersion(),
		Payload:     event,
	}
}

// natsConn is the subset of *nats.Conn the publisher uses.
type natsConn interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NatsPublisher publishes each event on "<prefix>.<event type>".
type NatsPublisher struct {
	conn          natsConn
	subjectPrefix string
	logger        logger.Interface
}

// NewNatsPublisher connects to NATS. The connection keeps reconnecting in the
// background if the server goes away later.
func NewNatsPublisher(cfg sharedConfig.EventsConfig, log logger.Interface) (*NatsPublisher, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name("msgdeck-billing"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnw("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Infow("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return newNatsPublisher(conn, cfg.SubjectPrefix, log), nil
}

func newNatsPublisher(conn natsConn, subjectPrefix string, log logger.Interface) *NatsPublisher {
	return &NatsPublisher{
		conn:          conn,
		subjectPrefix: subjectPrefix,
		logger:        log,
	}
}

func (p *NatsPublisher) Subject(eventType string) string {
	if p.subjectPrefix == "" {
		return eventType
	}
	return p.subjectPrefix + "." + eventType
}

func (p *NatsPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	envelope := newEnvelope(event)
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", envelope.Type, err)
	}

	msg := nats.NewMsg(p.Subject(envelope.Type))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, envelope.ID)

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", envelope.Type, err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush event %s: %w", envelope.Type, err)
	}

	p.logger.Debugw("event published", "type", envelope.Type, "aggregate_id", envelope.AggregateID, "id", envelope.ID)
	return nil
}

func (p *NatsPublisher) Close() {
	p.conn.Close()
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, events.DomainEvent) error {
	return nil
}

// NewPublisher returns a NATS publisher when events are enabled and a no-op otherwise.
// The returned func releases the connection.
func NewPublisher(cfg sharedConfig.EventsConfig, log logger.Interface) (events.EventPublisher, func(), error) {
	if !cfg.Enabled {
		return NoopPublisher{}, func() {}, nil
	}
	p, err := NewNatsPublisher(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	log.Infow("event publishing enabled", "url", cfg.NatsURL, "subject_prefix", cfg.SubjectPrefix)
	return p, p.Close, nil
}

// PublishAll sends events in order and logs failures; business state is already
// committed, so a failure here is not returned to the caller.
func PublishAll(ctx context.Context, publisher events.EventPublisher, log logger.Interface, evts ...events.DomainEvent) {
	if publisher == nil {
		return
	}
	for _, e := range evts {
		if err := publisher.Publish(ctx, e); err != nil {
			log.Warnw("failed to publish event", "type", e.GetEventType(), "aggregate_id", e.GetAggregateID(), "error", err)
		}
	}
}

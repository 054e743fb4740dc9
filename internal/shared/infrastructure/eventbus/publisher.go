// Package eventbus carries domain events between instances: in-process in
// local mode, over a RabbitMQ topic exchange in server mode.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/nourish/internal/shared/domain"
	"github.com/google/uuid"
)

// ExchangeName is the topic exchange for domain events.
const ExchangeName = "nourish.domain.events"

// Publisher sends encoded events to a broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}

// Envelope is the wire form of a domain event.
type Envelope struct {
	EventID       uuid.UUID        `json:"event_id"`
	AggregateID   uuid.UUID        `json:"aggregate_id"`
	AggregateType string           `json:"aggregate_type"`
	RoutingKey    string           `json:"routing_key"`
	OccurredAt    time.Time        `json:"occurred_at"`
	Payload       json.RawMessage  `json:"payload,omitempty"`
	Metadata      EnvelopeMetadata `json:"metadata"`
}

// EnvelopeMetadata carries tracing information.
type EnvelopeMetadata struct {
	UserID        uuid.UUID `json:"user_id,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// Encode wraps a domain event and its payload into an envelope.
func Encode(event domain.DomainEvent, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event.RoutingKey(), err)
	}
	metadata := event.Metadata()
	return json.Marshal(Envelope{
		EventID:       event.EventID(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		RoutingKey:    event.RoutingKey(),
		OccurredAt:    event.OccurredAt(),
		Payload:       raw,
		Metadata: EnvelopeMetadata{
			UserID:        metadata.UserID,
			CorrelationID: metadata.CorrelationID,
		},
	})
}

// PublishEvent encodes event and publishes it under its routing key.
func PublishEvent(ctx context.Context, publisher Publisher, event domain.DomainEvent, payload any) error {
	body, err := Encode(event, payload)
	if err != nil {
		return err
	}
	return publisher.Publish(ctx, event.RoutingKey(), body)
}

// DecodePayload unmarshals the envelope payload into out.
func (e *Envelope) DecodePayload(out any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("event %s has no payload", e.EventID)
	}
	return json.Unmarshal(e.Payload, out)
}

// Package outbox stages domain events in the same transaction as the state
// change that raised them and relays them to the broker afterwards.
package outbox

import (
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/nourish/internal/shared/domain"
	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
)

// Message is a staged event. Payload holds the encoded eventbus.Envelope.
type Message struct {
	ID            int64
	EventID       uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	RoutingKey    string
	Payload       json.RawMessage
	CreatedAt     time.Time
	NextRetryAt   *time.Time
	RetryCount    int
	LastError     *string
}

// NewMessage encodes a domain event and its payload into an outbox message.
func NewMessage(event domain.DomainEvent, payload any) (*Message, error) {
	body, err := eventbus.Encode(event, payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventID:       event.EventID(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		RoutingKey:    event.RoutingKey(),
		Payload:       body,
		CreatedAt:     event.OccurredAt(),
	}, nil
}

// Exhausted reports whether failing the current attempt uses up a budget of
// maxRetries attempts.
func (m *Message) Exhausted(maxRetries int) bool {
	return m.RetryCount+1 >= maxRetries
}

// Envelope decodes the staged payload.
func (m *Message) Envelope() (*eventbus.Envelope, error) {
	var envelope eventbus.Envelope
	if err := json.Unmarshal(m.Payload, &envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}

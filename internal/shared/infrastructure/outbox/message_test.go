package outbox

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/nourish/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Data string `json:"data"`
}

func newTestEvent(aggregateID uuid.UUID) *domain.BaseEvent {
	event := domain.NewBaseEvent(aggregateID, "Subscription", "billing.subscription.changed")
	return &event
}

func TestNewMessage(t *testing.T) {
	t.Run("copies event identity", func(t *testing.T) {
		aggregateID := uuid.New()
		event := newTestEvent(aggregateID)

		msg, err := NewMessage(event, testPayload{Data: "x"})

		require.NoError(t, err)
		assert.Equal(t, event.EventID(), msg.EventID)
		assert.Equal(t, "Subscription", msg.AggregateType)
		assert.Equal(t, aggregateID, msg.AggregateID)
		assert.Equal(t, "billing.subscription.changed", msg.RoutingKey)
		assert.Equal(t, event.OccurredAt(), msg.CreatedAt)
		assert.Equal(t, int64(0), msg.ID)
		assert.Nil(t, msg.NextRetryAt)
		assert.Zero(t, msg.RetryCount)
	})

	t.Run("payload is the encoded envelope", func(t *testing.T) {
		userID := uuid.New()
		event := newTestEvent(userID)
		event.SetMetadata(domain.EventMetadata{CorrelationID: "corr-1", UserID: userID})

		msg, err := NewMessage(event, testPayload{Data: "staged"})
		require.NoError(t, err)

		envelope, err := msg.Envelope()
		require.NoError(t, err)
		assert.Equal(t, event.EventID(), envelope.EventID)
		assert.Equal(t, "corr-1", envelope.Metadata.CorrelationID)
		assert.Equal(t, userID, envelope.Metadata.UserID)

		var payload testPayload
		require.NoError(t, envelope.DecodePayload(&payload))
		assert.Equal(t, "staged", payload.Data)
	})

	t.Run("rejects unencodable payload", func(t *testing.T) {
		_, err := NewMessage(newTestEvent(uuid.New()), make(chan int))
		assert.Error(t, err)
	})
}

func TestMessage_Envelope_InvalidPayload(t *testing.T) {
	msg := &Message{Payload: []byte("not json")}
	_, err := msg.Envelope()
	assert.Error(t, err)
}

func TestMessage_Exhausted(t *testing.T) {
	tests := []struct {
		name       string
		retryCount int
		maxRetries int
		want       bool
	}{
		{"first attempt of five", 0, 5, false},
		{"last attempt of five", 4, 5, true},
		{"past the budget", 9, 5, true},
		{"single attempt", 0, 1, true},
		{"retries disabled", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &Message{RetryCount: tt.retryCount}
			assert.Equal(t, tt.want, msg.Exhausted(tt.maxRetries))
		})
	}
}

func TestProcessor_RetryBackoff(t *testing.T) {
	p := NewProcessor(nil, nil, ProcessorConfig{
		RetryBackoffBase: time.Second,
		RetryBackoffMax:  10 * time.Second,
	}, nil, nil)

	assert.Equal(t, time.Second, p.retryBackoff(0))
	assert.Equal(t, time.Second, p.retryBackoff(1))
	assert.Equal(t, 2*time.Second, p.retryBackoff(2))
	assert.Equal(t, 8*time.Second, p.retryBackoff(4))
	assert.Equal(t, 10*time.Second, p.retryBackoff(5))
	assert.Equal(t, 10*time.Second, p.retryBackoff(64))
}

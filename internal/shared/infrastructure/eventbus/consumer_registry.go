package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/nourish/pkg/observability"
)

// ConsumerRegistry routes envelopes to the consumers registered for their
// routing key.
type ConsumerRegistry struct {
	mu     sync.RWMutex
	byKey  map[string][]EventConsumer
	logger *slog.Logger
}

func NewConsumerRegistry(logger *slog.Logger) *ConsumerRegistry {
	return &ConsumerRegistry{
		byKey:  make(map[string][]EventConsumer),
		logger: observability.ForComponent(logger, "consumer_registry"),
	}
}

// Register subscribes consumer to each of its routing keys.
func (r *ConsumerRegistry) Register(consumer EventConsumer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range consumer.EventTypes() {
		r.byKey[key] = append(r.byKey[key], consumer)
	}
}

// EventTypes lists the routing keys with at least one consumer, sorted.
func (r *ConsumerRegistry) EventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.byKey))
}

// Dispatch hands event to every consumer of its routing key. The envelope's
// correlation and user IDs are placed on the context first. Every consumer
// runs even when an earlier one fails; the errors are joined.
func (r *ConsumerRegistry) Dispatch(ctx context.Context, event *Envelope) error {
	r.mu.RLock()
	consumers := r.byKey[event.RoutingKey]
	r.mu.RUnlock()

	if len(consumers) == 0 {
		r.logger.DebugContext(ctx, "no consumer for routing key", "routing_key", event.RoutingKey)
		return nil
	}

	if id := event.Metadata.CorrelationID; id != "" {
		ctx = observability.WithCorrelationID(ctx, id)
	}
	if id := event.Metadata.UserID; id != uuid.Nil {
		ctx = observability.WithUserID(ctx, id)
	}

	var errs []error
	for _, consumer := range consumers {
		err := consumer.Handle(ctx, event)
		if err == nil {
			continue
		}
		r.logger.ErrorContext(ctx, "consumer failed",
			"routing_key", event.RoutingKey,
			"event_id", event.EventID,
			observability.ErrorKey, err,
		)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

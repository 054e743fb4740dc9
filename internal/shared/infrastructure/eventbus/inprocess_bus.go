package eventbus

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/nourish/pkg/observability"
)

// InProcessEventBus delivers events synchronously to consumers registered in
// the same process. Local mode uses it in place of RabbitMQ.
type InProcessEventBus struct {
	registry *ConsumerRegistry
	logger   *slog.Logger
}

func NewInProcessEventBus(logger *slog.Logger) *InProcessEventBus {
	return &InProcessEventBus{
		registry: NewConsumerRegistry(logger),
		logger:   observability.ForComponent(logger, "inprocess_bus"),
	}
}

func (b *InProcessEventBus) RegisterConsumer(consumer EventConsumer) {
	b.registry.Register(consumer)
}

// Publish dispatches payload before returning. Decode and consumer failures
// are logged and never returned to the publisher.
func (b *InProcessEventBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	envelope, err := decodeEnvelope(payload, routingKey)
	if err != nil {
		b.logger.ErrorContext(ctx, "dropping event", "routing_key", routingKey, observability.ErrorKey, err)
		return nil
	}
	if err := b.registry.Dispatch(ctx, envelope); err != nil {
		b.logger.WarnContext(ctx, "dispatch failed", "routing_key", routingKey, "event_id", envelope.EventID, observability.ErrorKey, err)
	}
	return nil
}

// Start blocks until ctx is done; delivery happens inside Publish.
func (b *InProcessEventBus) Start(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (b *InProcessEventBus) Close() error { return nil }

var (
	_ Publisher = (*InProcessEventBus)(nil)
	_ Consumer  = (*InProcessEventBus)(nil)
	_ Publisher = (*RabbitMQPublisher)(nil)
	_ Consumer  = (*RabbitMQConsumer)(nil)
)

package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/felixgeelhaar/nourish/pkg/observability"
)

// RabbitMQPublisher publishes persistent JSON messages to the domain events
// exchange.
type RabbitMQPublisher struct {
	*broker
}

// NewRabbitMQPublisher dials url and declares the exchange.
func NewRabbitMQPublisher(url string, logger *slog.Logger) (*RabbitMQPublisher, error) {
	logger = observability.ForComponent(logger, "rabbitmq_publisher")
	b, err := dialBroker(url, ExchangeName, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to rabbitmq", "exchange", ExchangeName)
	return &RabbitMQPublisher{broker: b}, nil
}

// Publish sends payload under routingKey. amqp channels are not safe for
// concurrent publishes, so calls are serialized.
func (p *RabbitMQPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel == nil {
		return errBrokerClosed
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	}
	if id := observability.CorrelationIDFromContext(ctx); id != "" {
		msg.CorrelationId = id
	}
	if err := p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	p.logger.DebugContext(ctx, "published", "routing_key", routingKey, "bytes", len(payload))
	return nil
}

// Close closes the channel and connection.
func (p *RabbitMQPublisher) Close() error {
	return p.close()
}

// NoopPublisher drops every event. The CLI uses it when no broker is
// configured.
type NoopPublisher struct {
	logger *slog.Logger
}

func NewNoopPublisher(logger *slog.Logger) *NoopPublisher {
	return &NoopPublisher{logger: observability.ForComponent(logger, "noop_publisher")}
}

func (p *NoopPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.logger.DebugContext(ctx, "dropped", "routing_key", routingKey, "bytes", len(payload))
	return nil
}

func (p *NoopPublisher) Close() error { return nil }

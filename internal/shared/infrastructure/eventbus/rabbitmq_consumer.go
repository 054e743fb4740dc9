package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/felixgeelhaar/nourish/pkg/observability"
)

// RabbitMQConsumerConfig configures the RabbitMQ consumer.
type RabbitMQConsumerConfig struct {
	URL string
	// QueueName names a durable shared queue. Empty declares an exclusive,
	// server-named queue so every instance receives every event.
	QueueName string
	Exchange  string
	Logger    *slog.Logger
}

// RabbitMQConsumer consumes envelopes from a queue bound to the exchange.
type RabbitMQConsumer struct {
	*broker
	queue    string
	registry *ConsumerRegistry

	running   bool
	closeOnce sync.Once
	closed    chan struct{}
}

// NewRabbitMQConsumer dials the broker and declares the queue. A nil
// registry gets a fresh one.
func NewRabbitMQConsumer(cfg RabbitMQConsumerConfig, registry *ConsumerRegistry) (*RabbitMQConsumer, error) {
	logger := observability.ForComponent(cfg.Logger, "rabbitmq_consumer")
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = ExchangeName
	}
	if registry == nil {
		registry = NewConsumerRegistry(cfg.Logger)
	}

	b, err := dialBroker(cfg.URL, exchange, logger)
	if err != nil {
		return nil, err
	}

	durable := cfg.QueueName != ""
	queue, err := b.channel.QueueDeclare(cfg.QueueName, durable, !durable, !durable, false, nil)
	if err != nil {
		_ = b.close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	logger.Info("connected to rabbitmq", "queue", queue.Name, "exchange", exchange)

	return &RabbitMQConsumer{
		broker:   b,
		queue:    queue.Name,
		registry: registry,
		closed:   make(chan struct{}),
	}, nil
}

// RegisterConsumer adds consumer to the registry and binds the queue to each
// of its routing keys.
func (c *RabbitMQConsumer) RegisterConsumer(consumer EventConsumer) {
	c.registry.Register(consumer)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range consumer.EventTypes() {
		if err := c.channel.QueueBind(c.queue, key, c.exchange, false, nil); err != nil {
			c.logger.Error("bind queue", "routing_key", key, observability.ErrorKey, err)
		}
	}
}

// Start consumes one delivery at a time until ctx is canceled or Close is
// called. A delivery whose handlers fail is requeued once; undecodable
// deliveries are dropped.
func (c *RabbitMQConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("consumer already running")
	}
	c.running = true
	ch := c.channel
	c.mu.Unlock()

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closed:
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

func (c *RabbitMQConsumer) handle(ctx context.Context, d amqp.Delivery) {
	envelope, err := decodeEnvelope(d.Body, d.RoutingKey)
	if err != nil {
		c.logger.Error("dropping delivery", "routing_key", d.RoutingKey, observability.ErrorKey, err)
		_ = d.Ack(false)
		return
	}

	if err := c.registry.Dispatch(ctx, envelope); err != nil {
		if nackErr := d.Nack(false, !d.Redelivered); nackErr != nil {
			c.logger.Error("nack delivery", observability.ErrorKey, nackErr)
		}
		return
	}
	if err := d.Ack(false); err != nil {
		c.logger.Error("ack delivery", observability.ErrorKey, err)
	}
}

// Close stops Start and closes the connection.
func (c *RabbitMQConsumer) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	return c.close()
}

package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

var errBrokerClosed = errors.New("rabbitmq connection closed")

// broker is an AMQP connection with one channel on which the topic exchange
// has been declared. Publisher and consumer each own one.
type broker struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *slog.Logger
}

func dialBroker(url, exchange string, logger *slog.Logger) (*broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &broker{conn: conn, channel: ch, exchange: exchange, logger: logger}, nil
}

// Ping fails once the connection has been closed by either side.
func (b *broker) Ping(context.Context) error {
	if b.conn == nil || b.conn.IsClosed() {
		return errBrokerClosed
	}
	return nil
}

func (b *broker) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.channel != nil {
		if err := b.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			b.logger.Warn("closing channel", "error", err)
		}
		b.channel = nil
	}
	if b.conn == nil || b.conn.IsClosed() {
		return nil
	}
	return b.conn.Close()
}

// decodeEnvelope parses a delivered body. A missing routing key is taken from
// the delivery.
func decodeEnvelope(body []byte, routingKey string) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.RoutingKey == "" {
		envelope.RoutingKey = routingKey
	}
	return &envelope, nil
}

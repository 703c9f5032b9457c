package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the topic exchange every notification is published to.
const ExchangeName = "auction.events"

// ErrPublishNacked is returned when the broker refuses a message.
var ErrPublishNacked = errors.New("broker nacked message")

// Broker owns the shared AMQP connection. It dials lazily and redials once the
// connection is closed, so an unreachable broker only delays delivery.
type Broker struct {
	url    string
	mu     sync.Mutex
	conn   *amqp.Connection
	logger *slog.Logger
}

// NewBroker creates a broker for the given amqp:// URL without dialing it.
func NewBroker(url string, logger *slog.Logger) *Broker {
	return &Broker{url: url, logger: logger}
}

// Connection returns the live connection, dialing when needed.
func (b *Broker) Connection() (*amqp.Connection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil && !b.conn.IsClosed() {
		return b.conn, nil
	}

	conn, err := amqp.Dial(b.url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	b.logger.Info("RabbitMQ Connected")
	b.conn = conn
	return conn, nil
}

// OpenPublisher opens a fresh confirm-mode channel. Callers close it when done.
func (b *Broker) OpenPublisher(_ context.Context) (EventPublisher, error) {
	conn, err := b.Connection()
	if err != nil {
		return nil, err
	}
	return NewRabbitMQPublisher(conn)
}

// Close closes the underlying connection if one was opened
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil || b.conn.IsClosed() {
		return nil
	}
	return b.conn.Close()
}

// DeclareExchange ensures the notification exchange exists
func DeclareExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		ExchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
}

// RabbitMQPublisher implements EventPublisher on a single channel
type RabbitMQPublisher struct {
	channel *amqp.Channel
}

// NewRabbitMQPublisher opens a channel in confirm mode and declares the exchange
func NewRabbitMQPublisher(conn *amqp.Connection) (*RabbitMQPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	return &RabbitMQPublisher{channel: ch}, nil
}

// Close closes the channel
func (p *RabbitMQPublisher) Close() error {
	return p.channel.Close()
}

// Publish publishes a persistent message and waits for the broker confirm
func (p *RabbitMQPublisher) Publish(ctx context.Context, exchange string, msg Message) error {
	confirm, err := p.channel.PublishWithDeferredConfirmWithContext(ctx,
		exchange,       // exchange
		msg.RoutingKey, // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID,
			Timestamp:    time.Now().UTC(),
			Body:         msg.Body,
		},
	)
	if err != nil {
		return err
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return ErrPublishNacked
	}
	return nil
}

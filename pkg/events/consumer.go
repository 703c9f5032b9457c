package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sethvargo/go-retry"
)

// ErrPoisonMessage marks a message that can never be processed (undecodable,
// unknown type). It is dropped instead of requeued.
var ErrPoisonMessage = errors.New("poison message")

// Handler processes one delivery. It must be safe to call more than once for
// the same message.
type Handler func(ctx context.Context, msg Message) error

// ConsumerConfig binds a durable queue to routing keys on the notification exchange.
type ConsumerConfig struct {
	Queue          string
	RoutingKeys    []string
	Prefetch       int
	ReconnectDelay time.Duration
}

// Consumer delivers notifications from a durable queue to a Handler with manual acks
type Consumer struct {
	broker  *Broker
	cfg     ConsumerConfig
	handler Handler
	logger  *slog.Logger
}

// NewConsumer creates a new consumer
func NewConsumer(broker *Broker, cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 10
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 3 * time.Second
	}
	return &Consumer{
		broker:  broker,
		cfg:     cfg,
		handler: handler,
		logger:  logger.With("queue", cfg.Queue),
	}
}

// Declare creates the exchange, the durable queue and its bindings, retrying
// until the broker is reachable or ctx is cancelled. Workers call it before any
// catch-up so notifications published from then on are retained in the queue.
func (c *Consumer) Declare(ctx context.Context) error {
	return retry.Do(ctx, retry.NewConstant(c.cfg.ReconnectDelay), func(ctx context.Context) error {
		if err := c.declare(); err != nil {
			c.logger.Warn("Failed to declare queue, retrying", "error", err, "delay", c.cfg.ReconnectDelay)
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (c *Consumer) declare() error {
	conn, err := c.broker.Connection()
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	return c.declareTopology(ch)
}

// Run consumes until ctx is cancelled, reopening the session whenever the
// broker connection or channel drops.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn("Consumer session ended, reconnecting", "error", err, "delay", c.cfg.ReconnectDelay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	conn, err := c.broker.Connection()
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if setupErr := c.setup(ch); setupErr != nil {
		return fmt.Errorf("failed to setup rabbitmq: %w", setupErr)
	}

	msgs, err := ch.Consume(
		c.cfg.Queue, // queue
		"",          // consumer tag
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("Waiting for messages...")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("channel closed")
			}
			c.deliver(ctx, d)
		}
	}
}

func (c *Consumer) deliver(ctx context.Context, d amqp.Delivery) {
	msg := Message{ID: d.MessageId, RoutingKey: d.RoutingKey, Body: d.Body}

	err := c.handler(ctx, msg)
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.Error("Failed to Ack message", "error", ackErr)
		}
	case errors.Is(err, ErrPoisonMessage):
		c.logger.Error("Dropping unprocessable message", "routing_key", d.RoutingKey, "message_id", d.MessageId, "error", err)
		if nackErr := d.Nack(false, false); nackErr != nil {
			c.logger.Error("Failed to Nack message", "error", nackErr)
		}
	default:
		c.logger.Error("Failed to process message", "routing_key", d.RoutingKey, "message_id", d.MessageId, "error", err)
		// Requeue and retry
		if nackErr := d.Nack(false, true); nackErr != nil {
			c.logger.Error("Failed to Nack message (requeue)", "error", nackErr)
		}
	}
}

func (c *Consumer) setup(ch *amqp.Channel) error {
	if err := c.declareTopology(ch); err != nil {
		return err
	}
	return ch.Qos(c.cfg.Prefetch, 0, false)
}

func (c *Consumer) declareTopology(ch *amqp.Channel) error {
	if err := DeclareExchange(ch); err != nil {
		return err
	}

	q, err := ch.QueueDeclare(
		c.cfg.Queue, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return err
	}

	for _, key := range c.cfg.RoutingKeys {
		if err := ch.QueueBind(q.Name, key, ExchangeName, false, nil); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

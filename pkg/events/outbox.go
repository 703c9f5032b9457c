package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/floroz/motorbid/pkg/contracts"
	"github.com/floroz/motorbid/pkg/database"
)

// OutboxStatus defines the status of an event in the outbox
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	// OutboxStatusFailed parks an entry for manual inspection. The relay never sets it.
	OutboxStatusFailed OutboxStatus = "failed"
)

// OutboxEvent is a notification waiting to be delivered to the broker.
// It is only ever created inside the transaction of the domain write it describes.
type OutboxEvent struct {
	ID          uuid.UUID    `db:"id"`
	Sequence    int64        `db:"sequence"`
	AggregateID uuid.UUID    `db:"aggregate_id"`
	EventType   string       `db:"event_type"`
	Payload     []byte       `db:"payload"`
	Status      OutboxStatus `db:"status"`
	CreatedAt   time.Time    `db:"created_at"`
	ProcessedAt *time.Time   `db:"processed_at"`
}

// NewOutboxEvent encodes a notification into a pending outbox entry.
func NewOutboxEvent(n contracts.Notification) (*OutboxEvent, error) {
	payload, err := contracts.Encode(n)
	if err != nil {
		return nil, err
	}
	return &OutboxEvent{
		ID:          uuid.New(),
		AggregateID: n.AggregateID(),
		EventType:   n.Type().String(),
		Payload:     payload,
		Status:      OutboxStatusPending,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// OutboxRepository defines the interface for interacting with the outbox table
type OutboxRepository interface {
	// SaveEvent appends an event within the caller's transaction
	SaveEvent(ctx context.Context, tx pgx.Tx, event *OutboxEvent) error

	// AcquireRelayLock takes a transaction-scoped lock so only one relay drains the table at a time.
	// It returns false when another relay holds it.
	AcquireRelayLock(ctx context.Context, tx pgx.Tx) (bool, error)

	// GetPendingEvents returns pending events in append order
	GetPendingEvents(ctx context.Context, tx pgx.Tx, limit int) ([]*OutboxEvent, error)

	// UpdateEventStatus updates the status of an event
	UpdateEventStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status OutboxStatus) error
}

// Message is a single broker message, as published and as consumed.
type Message struct {
	ID         string
	RoutingKey string
	Body       []byte
}

// EventPublisher publishes messages on one broker channel
type EventPublisher interface {
	Publish(ctx context.Context, exchange string, msg Message) error
	Close() error
}

// PublisherFactory hands out a fresh publisher for each relay pass.
type PublisherFactory interface {
	OpenPublisher(ctx context.Context) (EventPublisher, error)
}

// Notifier wakes the relay after a local commit.
type Notifier interface {
	Trigger()
}

// NopNotifier is used where no relay runs in-process; the next tick picks entries up.
type NopNotifier struct{}

func (NopNotifier) Trigger() {}

// OutboxRelay polls the outbox for pending events and publishes them to the broker
type OutboxRelay struct {
	outboxRepo OutboxRepository
	publishers PublisherFactory
	txManager  database.TransactionManager
	batchSize  int
	interval   time.Duration
	exchange   string
	trigger    chan struct{}
	logger     *slog.Logger
}

// NewOutboxRelay creates a new outbox relay
func NewOutboxRelay(
	outboxRepo OutboxRepository,
	publishers PublisherFactory,
	txManager database.TransactionManager,
	batchSize int,
	interval time.Duration,
	exchange string,
	logger *slog.Logger,
) *OutboxRelay {
	return &OutboxRelay{
		outboxRepo: outboxRepo,
		publishers: publishers,
		txManager:  txManager,
		batchSize:  batchSize,
		interval:   interval,
		exchange:   exchange,
		trigger:    make(chan struct{}, 1),
		logger:     logger,
	}
}

// Trigger requests an immediate pass. It never blocks and coalesces with a pending request.
func (r *OutboxRelay) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run starts the polling loop. It returns nil once ctx is cancelled;
// undelivered entries stay pending for the next start.
func (r *OutboxRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Initial run
	r.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.drain(ctx)
		case <-r.trigger:
			r.drain(ctx)
		}
	}
}

// drain processes batches until the backlog is empty or a pass fails.
func (r *OutboxRelay) drain(ctx context.Context) {
	for ctx.Err() == nil {
		delivered, err := r.processBatch(ctx)
		if err != nil {
			r.logger.Error("Error processing outbox batch", "error", err)
			return
		}
		if delivered < r.batchSize {
			return
		}
	}
}

// processBatch delivers up to batchSize entries in append order. It stops at the
// first publish failure so later entries, including later entries of the same
// aggregate, stay pending behind it.
func (r *OutboxRelay) processBatch(ctx context.Context) (int, error) {
	tx, err := r.txManager.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	locked, err := r.outboxRepo.AcquireRelayLock(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire relay lock: %w", err)
	}
	if !locked {
		return 0, nil
	}

	events, err := r.outboxRepo.GetPendingEvents(ctx, tx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch pending events: %w", err)
	}

	if len(events) == 0 {
		return 0, nil
	}

	publisher, err := r.publishers.OpenPublisher(ctx)
	if err != nil {
		return 0, fmt.Errorf("broker unavailable: %w", err)
	}
	defer func() {
		_ = publisher.Close()
	}()

	delivered := 0
	var publishErr error
	for _, event := range events {
		msg := Message{
			ID:         event.ID.String(),
			RoutingKey: event.EventType,
			Body:       event.Payload,
		}
		if err := publisher.Publish(ctx, r.exchange, msg); err != nil {
			publishErr = fmt.Errorf("failed to publish event %s: %w", event.ID, err)
			break
		}

		if err := r.outboxRepo.UpdateEventStatus(ctx, tx, event.ID, OutboxStatusPublished); err != nil {
			// Rolling back re-delivers this batch later; consumers tolerate duplicates.
			return 0, fmt.Errorf("failed to update event status %s: %w", event.ID, err)
		}
		delivered++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if delivered > 0 {
		r.logger.Info("Relayed outbox events", "count", delivered, "pending_in_batch", len(events)-delivered)
	}

	return delivered, publishErr
}

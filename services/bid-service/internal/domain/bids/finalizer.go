package bids

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/floroz/motorbid/pkg/contracts"
	"github.com/floroz/motorbid/pkg/database"
	"github.com/floroz/motorbid/pkg/events"
)

// Finalizer closes auctions whose end time has passed. It is the only
// component that ever moves an auction to a terminal state.
type Finalizer struct {
	txManager  database.TransactionManager
	bidRepo    BidRepository
	snapshots  SnapshotRepository
	outboxRepo events.OutboxRepository
	notifier   events.Notifier
	interval   time.Duration
	batchSize  int
	clock      func() time.Time
	logger     *slog.Logger
}

// NewFinalizer creates a new finalizer
func NewFinalizer(
	txManager database.TransactionManager,
	bidRepo BidRepository,
	snapshots SnapshotRepository,
	outboxRepo events.OutboxRepository,
	notifier events.Notifier,
	interval time.Duration,
	logger *slog.Logger,
) *Finalizer {
	if notifier == nil {
		notifier = events.NopNotifier{}
	}
	return &Finalizer{
		txManager:  txManager,
		bidRepo:    bidRepo,
		snapshots:  snapshots,
		outboxRepo: outboxRepo,
		notifier:   notifier,
		interval:   interval,
		batchSize:  100,
		clock:      time.Now,
		logger:     logger,
	}
}

// Run checks for ended auctions on every tick until ctx is cancelled
func (f *Finalizer) Run(ctx context.Context) error {
	f.logger.Info("Starting check for finished auctions", "interval", f.interval)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		if _, err := f.CheckAuctions(ctx); err != nil && ctx.Err() == nil {
			f.logger.Error("Error checking finished auctions", "error", err)
		}

		select {
		case <-ctx.Done():
			f.logger.Info("Auction check is stopping")
			return nil
		case <-ticker.C:
		}
	}
}

// CheckAuctions finalizes every ended, unfinished auction and returns how many it closed
func (f *Finalizer) CheckAuctions(ctx context.Context) (int, error) {
	ids, err := f.snapshots.ListEndedUnfinished(ctx, f.clock().UTC(), f.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list ended auctions: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	f.logger.Info("Found auctions that have completed", "count", len(ids))

	finalized := 0
	var errs []error
	for _, id := range ids {
		done, err := f.finalize(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("auction %s: %w", id, err))
			continue
		}
		if done {
			finalized++
		}
	}

	if finalized > 0 {
		f.notifier.Trigger()
	}
	return finalized, errors.Join(errs...)
}

// finalize flips the finished flag, picks the winner and appends AuctionFinished
// in one transaction, so the outcome is emitted exactly when the flag is set.
func (f *Finalizer) finalize(ctx context.Context, auctionID uuid.UUID) (bool, error) {
	tx, err := f.txManager.BeginTx(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Waits for in-flight bids on this auction to commit
	auction, err := f.snapshots.GetSnapshotForUpdate(ctx, tx, auctionID)
	if err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to lock auction snapshot: %w", err)
	}
	if auction.Finished {
		// Another instance got here first
		return false, nil
	}

	if err := f.snapshots.MarkFinished(ctx, tx, auctionID); err != nil {
		return false, fmt.Errorf("failed to mark auction finished: %w", err)
	}

	bids, err := f.bidRepo.GetBidsByAuctionIDInTx(ctx, tx, auctionID)
	if err != nil {
		return false, fmt.Errorf("failed to get bids: %w", err)
	}

	outcome := contracts.AuctionFinished{
		AuctionID: auctionID,
		Seller:    auction.Seller,
	}
	if winner := SelectWinner(bids); winner != nil {
		outcome.ItemSold = true
		outcome.Winner = &winner.Bidder
		outcome.Amount = &winner.Amount
	}

	event, err := events.NewOutboxEvent(outcome)
	if err != nil {
		return false, fmt.Errorf("failed to create outbox event: %w", err)
	}
	if err := f.outboxRepo.SaveEvent(ctx, tx, event); err != nil {
		return false, fmt.Errorf("failed to save outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	f.logger.Info("Auction finalized", "auction_id", auctionID, "item_sold", outcome.ItemSold)
	return true, nil
}

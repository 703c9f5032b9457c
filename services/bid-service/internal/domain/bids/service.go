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

// Rejection errors
var (
	ErrAuctionNotFound    = errors.New("cannot accept bids on this auction at this time")
	ErrAuctionUnavailable = errors.New("auction service unavailable, try again later")
	ErrSelfBid            = errors.New("you cannot bid on your own auction")
	ErrInvalidBidAmount   = errors.New("bid amount cannot be negative")
	ErrSnapshotNotFound   = errors.New("auction snapshot not found")
)

type PlaceBidCommand struct {
	AuctionID uuid.UUID
	Bidder    string
	Amount    int64
}

// BiddingService ranks and records bids
type BiddingService struct {
	txManager  database.TransactionManager
	bidRepo    BidRepository
	snapshots  SnapshotRepository
	auctions   AuctionFetcher
	outboxRepo events.OutboxRepository
	notifier   events.Notifier
	clock      func() time.Time
	logger     *slog.Logger
}

// NewBiddingService creates a new bidding service
func NewBiddingService(
	txManager database.TransactionManager,
	bidRepo BidRepository,
	snapshots SnapshotRepository,
	auctions AuctionFetcher,
	outboxRepo events.OutboxRepository,
	notifier events.Notifier,
	logger *slog.Logger,
) *BiddingService {
	if notifier == nil {
		notifier = events.NopNotifier{}
	}
	return &BiddingService{
		txManager:  txManager,
		bidRepo:    bidRepo,
		snapshots:  snapshots,
		auctions:   auctions,
		outboxRepo: outboxRepo,
		notifier:   notifier,
		clock:      time.Now,
		logger:     logger,
	}
}

// PlaceBid evaluates and records a bid. Bids in the accepted family are
// announced through the outbox in the same transaction.
func (s *BiddingService) PlaceBid(ctx context.Context, cmd PlaceBidCommand) (*Bid, error) {
	if cmd.Amount < 0 {
		return nil, ErrInvalidBidAmount
	}

	// Resolve outside the transaction so a slow owner never holds a row lock
	fetched, err := s.resolveSnapshot(ctx, cmd.AuctionID)
	if err != nil {
		return nil, err
	}

	// Start transaction
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // Rollback if commit is not called
	}()

	if fetched != nil {
		if err := s.snapshots.CreateSnapshotIfAbsent(ctx, tx, fetched); err != nil {
			return nil, fmt.Errorf("failed to store auction snapshot: %w", err)
		}
	}

	// Lock the snapshot row so concurrent bids on this auction are ranked one at a time
	auction, err := s.snapshots.GetSnapshotForUpdate(ctx, tx, cmd.AuctionID)
	if err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			// Deleted between resolution and lock
			return nil, ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to lock auction snapshot: %w", err)
	}

	if auction.Seller == cmd.Bidder {
		return nil, ErrSelfBid
	}

	// Postgres keeps microseconds; the notification must carry the stored value
	now := s.clock().UTC().Truncate(time.Microsecond)

	var highest *Bid
	if !auction.HasEnded(now) {
		highest, err = s.bidRepo.GetHighestAcceptedBid(ctx, tx, cmd.AuctionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get highest bid: %w", err)
		}
	}

	bid := &Bid{
		ID:        uuid.New(),
		AuctionID: cmd.AuctionID,
		Bidder:    cmd.Bidder,
		Amount:    cmd.Amount,
		BidTime:   now,
		Status:    EvaluateBid(auction, highest, cmd.Amount, now),
	}

	// Step 1: Save the bid, whatever its status
	if err := s.bidRepo.SaveBid(ctx, tx, bid); err != nil {
		return nil, fmt.Errorf("failed to save bid: %w", err)
	}

	// Step 2: Announce a new high bid in the same transaction
	if bid.Status.IsAcceptedFamily() {
		event, err := events.NewOutboxEvent(bid.PlacedNotification())
		if err != nil {
			return nil, fmt.Errorf("failed to create outbox event: %w", err)
		}
		if err := s.outboxRepo.SaveEvent(ctx, tx, event); err != nil {
			return nil, fmt.Errorf("failed to save outbox event: %w", err)
		}
	}

	// Commit the transaction
	// If this succeeds, both the bid and the event are guaranteed to be saved
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if bid.Status.IsAcceptedFamily() {
		s.notifier.Trigger()
	}

	s.logger.Info("Bid placed", "auction_id", bid.AuctionID, "bid_id", bid.ID, "status", bid.Status)
	return bid, nil
}

// resolveSnapshot returns nil when a local snapshot exists, or the snapshot
// fetched from the owning service when it does not.
func (s *BiddingService) resolveSnapshot(ctx context.Context, auctionID uuid.UUID) (*AuctionSnapshot, error) {
	_, err := s.snapshots.GetSnapshot(ctx, auctionID)
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, ErrSnapshotNotFound) {
		return nil, fmt.Errorf("failed to get auction snapshot: %w", err)
	}

	fetched, err := s.auctions.FetchAuction(ctx, auctionID)
	if err != nil {
		if errors.Is(err, ErrAuctionNotFound) {
			return nil, ErrAuctionNotFound
		}
		s.logger.Warn("Auction read-through failed", "auction_id", auctionID, "error", err)
		if errors.Is(err, ErrAuctionUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrAuctionUnavailable, err)
	}
	return fetched, nil
}

// GetBidsForAuction retrieves all bids for an auction, newest first
func (s *BiddingService) GetBidsForAuction(ctx context.Context, auctionID uuid.UUID) ([]*Bid, error) {
	bids, err := s.bidRepo.GetBidsByAuctionID(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids: %w", err)
	}
	return bids, nil
}

// ApplyAuctionCreated creates or refreshes the local snapshot
func (s *BiddingService) ApplyAuctionCreated(ctx context.Context, n contracts.AuctionCreated) error {
	if err := s.snapshots.UpsertSnapshot(ctx, SnapshotFromCreated(n)); err != nil {
		return fmt.Errorf("failed to upsert auction snapshot: %w", err)
	}
	return nil
}

// ApplyAuctionDeleted removes the local snapshot if present. Recorded bids are kept.
func (s *BiddingService) ApplyAuctionDeleted(ctx context.Context, n contracts.AuctionDeleted) error {
	if err := s.snapshots.DeleteSnapshot(ctx, n.ID); err != nil {
		return fmt.Errorf("failed to delete auction snapshot: %w", err)
	}
	return nil
}

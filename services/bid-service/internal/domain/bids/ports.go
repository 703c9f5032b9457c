package bids

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BidRepository defines the interface for bid persistence
type BidRepository interface {
	// SaveBid saves a bid within a transaction
	SaveBid(ctx context.Context, tx pgx.Tx, bid *Bid) error

	// GetHighestAcceptedBid returns the highest accepted-family bid, earliest first on ties,
	// or nil when the auction has none
	GetHighestAcceptedBid(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) (*Bid, error)

	// GetBidsByAuctionID retrieves all bids for an auction, newest first
	GetBidsByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*Bid, error)

	// GetBidsByAuctionIDInTx is GetBidsByAuctionID within a transaction
	GetBidsByAuctionIDInTx(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) ([]*Bid, error)
}

// SnapshotRepository defines the interface for auction snapshot persistence
type SnapshotRepository interface {
	// GetSnapshot retrieves a snapshot. Returns ErrSnapshotNotFound when absent.
	GetSnapshot(ctx context.Context, auctionID uuid.UUID) (*AuctionSnapshot, error)

	// GetSnapshotForUpdate retrieves and locks a snapshot row so bids on one
	// auction are evaluated one at a time. Must be called within a transaction.
	GetSnapshotForUpdate(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) (*AuctionSnapshot, error)

	// CreateSnapshotIfAbsent inserts a snapshot unless one already exists or
	// the auction was deleted
	CreateSnapshotIfAbsent(ctx context.Context, tx pgx.Tx, snapshot *AuctionSnapshot) error

	// UpsertSnapshot creates or refreshes a snapshot. The finished flag is never
	// cleared and a deleted auction is never recreated.
	UpsertSnapshot(ctx context.Context, snapshot *AuctionSnapshot) error

	// DeleteSnapshot removes a snapshot if present and remembers the deletion
	DeleteSnapshot(ctx context.Context, auctionID uuid.UUID) error

	// ListEndedUnfinished returns ids of auctions that ended at or before now and are not finished
	ListEndedUnfinished(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)

	// MarkFinished sets the finished flag within a transaction
	MarkFinished(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) error
}

// AuctionFetcher looks an auction up on the owning service.
// It returns ErrAuctionNotFound when the owner has no such auction and
// ErrAuctionUnavailable when the owner cannot be reached.
type AuctionFetcher interface {
	FetchAuction(ctx context.Context, auctionID uuid.UUID) (*AuctionSnapshot, error)
}

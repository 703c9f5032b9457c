package auctions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines the interface for auction persistence
type Repository interface {
	// CreateAuction inserts a new auction within a transaction
	CreateAuction(ctx context.Context, tx pgx.Tx, auction *Auction) error

	// GetAuctionByID retrieves an auction by its ID. Returns ErrAuctionNotFound when absent.
	GetAuctionByID(ctx context.Context, id uuid.UUID) (*Auction, error)

	// GetAuctionByIDForUpdate retrieves and locks an auction row. Must be called within a transaction.
	GetAuctionByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Auction, error)

	// UpdateAuction writes the editable fields and refreshes auction.UpdatedAt
	UpdateAuction(ctx context.Context, tx pgx.Tx, auction *Auction) error

	// DeleteAuction removes an auction within a transaction
	DeleteAuction(ctx context.Context, tx pgx.Tx, id uuid.UUID) error

	// ListAuctionsUpdatedSince returns auctions updated strictly after since, or all when since is nil
	ListAuctionsUpdatedSince(ctx context.Context, since *time.Time) ([]*Auction, error)

	// RaiseHighBid sets the current high bid only when amount is strictly higher.
	// It reports whether the row changed.
	RaiseHighBid(ctx context.Context, id uuid.UUID, amount int64) (bool, error)

	// FinishAuction records the outcome. It reports false when the auction does not exist.
	FinishAuction(ctx context.Context, id uuid.UUID, outcome Outcome) (bool, error)
}

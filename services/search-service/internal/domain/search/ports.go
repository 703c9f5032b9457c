package search

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ItemStore defines the interface for the read model document store
type ItemStore interface {
	// Update applies fn to the stored item atomically, retrying on concurrent
	// writes. It reports whether the store was changed.
	Update(ctx context.Context, id uuid.UUID, fn MergeFunc) (bool, error)

	// Get retrieves an item. Returns ErrItemNotFound when absent.
	Get(ctx context.Context, id uuid.UUID) (*Item, error)

	// All returns every stored item
	All(ctx context.Context) ([]Item, error)

	// MaxUpdatedAt returns the newest UpdatedAt held, or nil when the store is empty
	MaxUpdatedAt(ctx context.Context) (*time.Time, error)
}

// AuctionSource pulls auction records from the owning service
type AuctionSource interface {
	// ListAuctionsUpdatedSince returns every auction updated strictly after since,
	// or all auctions when since is nil
	ListAuctionsUpdatedSince(ctx context.Context, since *time.Time) ([]Item, error)
}

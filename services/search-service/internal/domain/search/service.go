package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/floroz/motorbid/pkg/contracts"
)

var ErrItemNotFound = errors.New("item not found")

// Service maintains the read model and answers queries over it
type Service struct {
	store  ItemStore
	clock  func() time.Time
	logger *slog.Logger
}

// NewService creates a new search service
func NewService(store ItemStore, logger *slog.Logger) *Service {
	return &Service{store: store, clock: time.Now, logger: logger}
}

// Search runs q against the read model
func (s *Service) Search(ctx context.Context, q Query) (Page, error) {
	items, err := s.store.All(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("failed to load items: %w", err)
	}
	return q.Run(items, s.clock().UTC()), nil
}

// ApplyRecord merges a full auction record
func (s *Service) ApplyRecord(ctx context.Context, item Item) error {
	if _, err := s.store.Update(ctx, item.ID, MergeRecord(item)); err != nil {
		return fmt.Errorf("failed to store item %s: %w", item.ID, err)
	}
	return nil
}

func (s *Service) ApplyAuctionCreated(ctx context.Context, n contracts.AuctionCreated) error {
	return s.ApplyRecord(ctx, ItemFromCreated(n))
}

func (s *Service) ApplyAuctionUpdated(ctx context.Context, n contracts.AuctionUpdated) error {
	return s.apply(ctx, n.ID, n.Type(), MergeUpdated(n))
}

func (s *Service) ApplyAuctionDeleted(ctx context.Context, n contracts.AuctionDeleted) error {
	if _, err := s.store.Update(ctx, n.ID, MergeDeleted(n.ID)); err != nil {
		return fmt.Errorf("failed to delete item %s: %w", n.ID, err)
	}
	return nil
}

func (s *Service) ApplyBidPlaced(ctx context.Context, n contracts.BidPlaced) error {
	return s.apply(ctx, n.AuctionID, n.Type(), MergeBidPlaced(n))
}

func (s *Service) ApplyAuctionFinished(ctx context.Context, n contracts.AuctionFinished) error {
	return s.apply(ctx, n.AuctionID, n.Type(), MergeFinished(n))
}

// apply runs a merge that requires the item to exist; a missing item is
// logged and otherwise ignored.
func (s *Service) apply(ctx context.Context, id uuid.UUID, eventType contracts.EventType, merge MergeFunc) error {
	var missing bool
	_, err := s.store.Update(ctx, id, func(current *Item) (*Item, bool) {
		missing = current == nil
		return merge(current)
	})
	if err != nil {
		return fmt.Errorf("failed to update item %s: %w", id, err)
	}
	if missing {
		s.logger.Warn("Notification for unknown item ignored", "auction_id", id, "event_type", eventType)
	}
	return nil
}

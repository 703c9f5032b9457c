package auctions

import (
	"context"
	"fmt"

	"github.com/floroz/motorbid/pkg/contracts"
)

// ApplyBidPlaced raises the current high bid. Replays and out-of-order
// deliveries never lower it.
func (s *Service) ApplyBidPlaced(ctx context.Context, n contracts.BidPlaced) error {
	if !n.BidStatus.IsAcceptedFamily() {
		return nil
	}

	raised, err := s.repo.RaiseHighBid(ctx, n.AuctionID, n.Amount)
	if err != nil {
		return fmt.Errorf("failed to raise high bid: %w", err)
	}
	if raised {
		s.logger.Info("High bid raised", "auction_id", n.AuctionID, "amount", n.Amount)
	}
	return nil
}

// ApplyAuctionFinished records the outcome. An unknown auction is logged and skipped.
func (s *Service) ApplyAuctionFinished(ctx context.Context, n contracts.AuctionFinished) error {
	outcome := OutcomeOf(n)

	found, err := s.repo.FinishAuction(ctx, n.AuctionID, outcome)
	if err != nil {
		return fmt.Errorf("failed to finish auction: %w", err)
	}
	if !found {
		s.logger.Warn("Finish notification for unknown auction", "auction_id", n.AuctionID)
		return nil
	}

	s.logger.Info("Auction finished", "auction_id", n.AuctionID, "status", outcome.Status)
	return nil
}

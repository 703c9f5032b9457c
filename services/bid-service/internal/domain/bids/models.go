package bids

import (
	"time"

	"github.com/google/uuid"

	"github.com/floroz/motorbid/pkg/contracts"
)

// Bid represents one bid attempt. It is never updated after it is written.
type Bid struct {
	ID        uuid.UUID           `db:"id"`
	AuctionID uuid.UUID           `db:"auction_id"`
	Bidder    string              `db:"bidder"`
	Amount    int64               `db:"amount"`
	BidTime   time.Time           `db:"bid_time"`
	Status    contracts.BidStatus `db:"status"`
}

// AuctionSnapshot is the local projection of an auction the bid service needs
// to rank bids and finalize the auction.
type AuctionSnapshot struct {
	ID           uuid.UUID `db:"id"`
	AuctionEnd   time.Time `db:"auction_end"`
	Seller       string    `db:"seller"`
	ReservePrice int64     `db:"reserve_price"`
	Finished     bool      `db:"finished"`
}

// HasEnded reports whether bids at now can no longer win
func (s *AuctionSnapshot) HasEnded(now time.Time) bool {
	return s.Finished || now.After(s.AuctionEnd)
}

// SnapshotFromCreated projects an AuctionCreated notification
func SnapshotFromCreated(n contracts.AuctionCreated) *AuctionSnapshot {
	return &AuctionSnapshot{
		ID:           n.ID,
		AuctionEnd:   n.AuctionEnd,
		Seller:       n.Seller,
		ReservePrice: n.ReservePrice,
		Finished:     n.Status != "" && n.Status != "Live",
	}
}

// PlacedNotification describes an accepted-family bid to the other services
func (b *Bid) PlacedNotification() contracts.BidPlaced {
	return contracts.BidPlaced{
		ID:        b.ID,
		AuctionID: b.AuctionID,
		Bidder:    b.Bidder,
		BidTime:   b.BidTime,
		Amount:    b.Amount,
		BidStatus: b.Status,
	}
}

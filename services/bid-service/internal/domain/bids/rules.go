package bids

import (
	"time"

	"github.com/floroz/motorbid/pkg/contracts"
)

// EvaluateBid computes the status of a bid of amount placed at now.
// highest is the current highest accepted-family bid, or nil when there is none.
// A new high bid must be strictly greater than highest, and it meets the
// reserve only when strictly greater than the reserve price.
func EvaluateBid(auction *AuctionSnapshot, highest *Bid, amount int64, now time.Time) contracts.BidStatus {
	if auction.HasEnded(now) {
		return contracts.BidStatusFinished
	}

	if highest != nil && amount <= highest.Amount {
		return contracts.BidStatusTooLow
	}

	if amount > auction.ReservePrice {
		return contracts.BidStatusAccepted
	}
	return contracts.BidStatusAcceptedBelowReserve
}

// SelectWinner returns the highest bid whose status is exactly Accepted,
// breaking ties by the earlier bid time. Bids below reserve never win.
func SelectWinner(bids []*Bid) *Bid {
	var winner *Bid
	for _, b := range bids {
		if b.Status != contracts.BidStatusAccepted {
			continue
		}
		if winner == nil ||
			b.Amount > winner.Amount ||
			(b.Amount == winner.Amount && b.BidTime.Before(winner.BidTime)) {
			winner = b
		}
	}
	return winner
}

// Package auctionclient pulls auction records from the auction service for
// the search catch-up.
package auctionclient

import (
	"context"
	"fmt"
	"time"

	"connectrpc.com/connect"

	"github.com/floroz/motorbid/pkg/rpc"
	"github.com/floroz/motorbid/services/search-service/internal/domain/search"
)

// AuctionLister is the part of rpc.AuctionServiceClient the lister needs.
type AuctionLister interface {
	ListAuctions(ctx context.Context, req *connect.Request[rpc.ListAuctionsRequest]) (*connect.Response[rpc.ListAuctionsResponse], error)
}

// Lister implements search.AuctionSource
type Lister struct {
	client  AuctionLister
	timeout time.Duration
}

var _ search.AuctionSource = (*Lister)(nil)

// NewLister creates a lister whose calls are bounded by timeout
func NewLister(client AuctionLister, timeout time.Duration) *Lister {
	return &Lister{client: client, timeout: timeout}
}

// ListAuctionsUpdatedSince returns every auction updated strictly after since,
// or all of them when since is nil.
func (l *Lister) ListAuctionsUpdatedSince(ctx context.Context, since *time.Time) ([]search.Item, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	res, err := l.client.ListAuctions(ctx, connect.NewRequest(&rpc.ListAuctionsRequest{Since: since}))
	if err != nil {
		return nil, fmt.Errorf("auction service: %w", err)
	}

	items := make([]search.Item, 0, len(res.Msg.Auctions))
	for _, a := range res.Msg.Auctions {
		items = append(items, ToItem(a))
	}
	return items, nil
}

// ToItem converts the wire form of an auction into a search item
func ToItem(a rpc.Auction) search.Item {
	status := a.Status
	if status == "" {
		status = search.StatusLive
	}
	return search.Item{
		ID:             a.ID,
		ReservePrice:   a.ReservePrice,
		Seller:         a.Seller,
		Winner:         a.Winner,
		SoldAmount:     a.SoldAmount,
		CurrentHighBid: a.CurrentHighBid,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		AuctionEnd:     a.AuctionEnd,
		Status:         status,
		Make:           a.Make,
		Model:          a.Model,
		Year:           a.Year,
		Color:          a.Color,
		Mileage:        a.Mileage,
		ImageURL:       a.ImageURL,
	}
}

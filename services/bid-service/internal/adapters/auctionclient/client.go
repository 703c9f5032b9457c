// Package auctionclient looks auctions up on the auction service when the
// bid service has no local snapshot yet.
package auctionclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/floroz/motorbid/pkg/rpc"
	"github.com/floroz/motorbid/services/bid-service/internal/domain/bids"
)

// AuctionGetter is the part of rpc.AuctionServiceClient the fetcher needs.
type AuctionGetter interface {
	GetAuction(ctx context.Context, req *connect.Request[rpc.GetAuctionRequest]) (*connect.Response[rpc.AuctionResponse], error)
}

// Fetcher implements bids.AuctionFetcher over the auction service RPC API
type Fetcher struct {
	client  AuctionGetter
	timeout time.Duration
}

var _ bids.AuctionFetcher = (*Fetcher)(nil)

// NewFetcher creates a fetcher whose calls are bounded by timeout
func NewFetcher(client AuctionGetter, timeout time.Duration) *Fetcher {
	return &Fetcher{client: client, timeout: timeout}
}

// FetchAuction returns the auction projected to a snapshot.
func (f *Fetcher) FetchAuction(ctx context.Context, auctionID uuid.UUID) (*bids.AuctionSnapshot, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	res, err := f.client.GetAuction(ctx, connect.NewRequest(&rpc.GetAuctionRequest{ID: auctionID}))
	if err != nil {
		if connect.CodeOf(err) == connect.CodeNotFound {
			return nil, bids.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("%w: %w", bids.ErrAuctionUnavailable, err)
	}

	a := res.Msg.Auction
	if a.ID != auctionID {
		return nil, fmt.Errorf("%w: %w", bids.ErrAuctionUnavailable, errors.New("auction service returned a different auction"))
	}

	return &bids.AuctionSnapshot{
		ID:           a.ID,
		AuctionEnd:   a.AuctionEnd,
		Seller:       a.Seller,
		ReservePrice: a.ReservePrice,
		Finished:     a.Status != "" && a.Status != "Live",
	}, nil
}

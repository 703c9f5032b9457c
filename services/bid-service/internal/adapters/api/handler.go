package api

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/floroz/motorbid/pkg/auth"
	"github.com/floroz/motorbid/pkg/rpc"
	"github.com/floroz/motorbid/services/bid-service/internal/domain/bids"
)

// PublicProcedures are served without a bearer token.
var PublicProcedures = []string{
	rpc.BidServiceGetBidsForAuctionProcedure,
}

type BidServiceHandler struct {
	service *bids.BiddingService
}

var _ rpc.BidServiceHandler = (*BidServiceHandler)(nil)

func NewBidServiceHandler(service *bids.BiddingService) *BidServiceHandler {
	return &BidServiceHandler{service: service}
}

func (h *BidServiceHandler) PlaceBid(
	ctx context.Context,
	req *connect.Request[rpc.PlaceBidRequest],
) (*connect.Response[rpc.PlaceBidResponse], error) {
	// 1. Caller identity (set by the auth interceptor)
	bidder, ok := auth.GetUsername(ctx)
	if !ok {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("missing caller identity"))
	}

	// 2. Execution
	bid, err := h.service.PlaceBid(ctx, bids.PlaceBidCommand{
		AuctionID: req.Msg.AuctionID,
		Bidder:    bidder,
		Amount:    req.Msg.Amount,
	})
	if err != nil {
		return nil, toConnectError(err)
	}

	// 3. Response Mapping
	return connect.NewResponse(&rpc.PlaceBidResponse{Bid: ToRPC(bid)}), nil
}

// GetBidsForAuction lists every recorded attempt, newest first
func (h *BidServiceHandler) GetBidsForAuction(
	ctx context.Context,
	req *connect.Request[rpc.GetBidsForAuctionRequest],
) (*connect.Response[rpc.GetBidsForAuctionResponse], error) {
	list, err := h.service.GetBidsForAuction(ctx, req.Msg.AuctionID)
	if err != nil {
		return nil, toConnectError(err)
	}

	res := &rpc.GetBidsForAuctionResponse{Bids: make([]rpc.Bid, len(list))}
	for i, b := range list {
		res.Bids[i] = ToRPC(b)
	}
	return connect.NewResponse(res), nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, bids.ErrInvalidBidAmount):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, bids.ErrAuctionNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, bids.ErrSelfBid):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, bids.ErrAuctionUnavailable):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// ToRPC maps a domain Bid to its wire form
func ToRPC(b *bids.Bid) rpc.Bid {
	return rpc.Bid{
		ID:        b.ID,
		AuctionID: b.AuctionID,
		Bidder:    b.Bidder,
		Amount:    b.Amount,
		BidTime:   b.BidTime,
		BidStatus: string(b.Status),
	}
}

package api

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/floroz/motorbid/pkg/auth"
	"github.com/floroz/motorbid/pkg/rpc"
	"github.com/floroz/motorbid/services/auction-service/internal/domain/auctions"
)

// PublicProcedures are served without a bearer token.
var PublicProcedures = []string{
	rpc.AuctionServiceGetAuctionProcedure,
	rpc.AuctionServiceListAuctionsProcedure,
}

type AuctionServiceHandler struct {
	service *auctions.Service
}

var _ rpc.AuctionServiceHandler = (*AuctionServiceHandler)(nil)

func NewAuctionServiceHandler(service *auctions.Service) *AuctionServiceHandler {
	return &AuctionServiceHandler{service: service}
}

func (h *AuctionServiceHandler) CreateAuction(
	ctx context.Context,
	req *connect.Request[rpc.CreateAuctionRequest],
) (*connect.Response[rpc.AuctionResponse], error) {
	username, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}

	auction, err := h.service.CreateAuction(ctx, auctions.CreateAuctionCommand{
		Seller:       username,
		ReservePrice: req.Msg.ReservePrice,
		Make:         req.Msg.Make,
		Model:        req.Msg.Model,
		Year:         req.Msg.Year,
		Color:        req.Msg.Color,
		Mileage:      req.Msg.Mileage,
		ImageURL:     req.Msg.ImageURL,
		AuctionEnd:   req.Msg.AuctionEnd,
	})
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&rpc.AuctionResponse{Auction: ToRPC(auction)}), nil
}

func (h *AuctionServiceHandler) UpdateAuction(
	ctx context.Context,
	req *connect.Request[rpc.UpdateAuctionRequest],
) (*connect.Response[rpc.AuctionResponse], error) {
	username, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}

	auction, err := h.service.UpdateAuction(ctx, auctions.UpdateAuctionCommand{
		ID:      req.Msg.ID,
		User:    username,
		Make:    req.Msg.Make,
		Model:   req.Msg.Model,
		Year:    req.Msg.Year,
		Color:   req.Msg.Color,
		Mileage: req.Msg.Mileage,
	})
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&rpc.AuctionResponse{Auction: ToRPC(auction)}), nil
}

func (h *AuctionServiceHandler) DeleteAuction(
	ctx context.Context,
	req *connect.Request[rpc.DeleteAuctionRequest],
) (*connect.Response[rpc.DeleteAuctionResponse], error) {
	username, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}

	if err := h.service.DeleteAuction(ctx, req.Msg.ID, username); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&rpc.DeleteAuctionResponse{}), nil
}

// GetAuction is also the read-through endpoint used by the bid service.
func (h *AuctionServiceHandler) GetAuction(
	ctx context.Context,
	req *connect.Request[rpc.GetAuctionRequest],
) (*connect.Response[rpc.AuctionResponse], error) {
	auction, err := h.service.GetAuction(ctx, req.Msg.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&rpc.AuctionResponse{Auction: ToRPC(auction)}), nil
}

// ListAuctions serves the search catch-up pull.
func (h *AuctionServiceHandler) ListAuctions(
	ctx context.Context,
	req *connect.Request[rpc.ListAuctionsRequest],
) (*connect.Response[rpc.ListAuctionsResponse], error) {
	list, err := h.service.ListAuctions(ctx, req.Msg.Since)
	if err != nil {
		return nil, toConnectError(err)
	}

	res := &rpc.ListAuctionsResponse{Auctions: make([]rpc.Auction, len(list))}
	for i, a := range list {
		res.Auctions[i] = ToRPC(a)
	}
	return connect.NewResponse(res), nil
}

func callerFrom(ctx context.Context) (string, error) {
	username, ok := auth.GetUsername(ctx)
	if !ok {
		return "", connect.NewError(connect.CodeUnauthenticated, errors.New("missing caller identity"))
	}
	return username, nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, auctions.ErrAuctionNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, auctions.ErrForbidden):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, auctions.ErrInvalidAuction), errors.Is(err, auctions.ErrInvalidEndTime):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// ToRPC maps a domain Auction to its wire form
func ToRPC(a *auctions.Auction) rpc.Auction {
	return rpc.Auction{
		ID:             a.ID,
		ReservePrice:   a.ReservePrice,
		Seller:         a.Seller,
		Winner:         a.Winner,
		SoldAmount:     a.SoldAmount,
		CurrentHighBid: a.CurrentHighBid,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		AuctionEnd:     a.AuctionEnd,
		Status:         string(a.Status),
		Make:           a.Make,
		Model:          a.Model,
		Year:           a.Year,
		Color:          a.Color,
		Mileage:        a.Mileage,
		ImageURL:       a.ImageURL,
	}
}

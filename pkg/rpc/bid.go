package rpc

import (
	"context"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
)

const (
	BidServiceName = "bid.v1.BidService"

	BidServicePlaceBidProcedure          = "/bid.v1.BidService/PlaceBid"
	BidServiceGetBidsForAuctionProcedure = "/bid.v1.BidService/GetBidsForAuction"
)

type Bid struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auctionId"`
	Bidder    string    `json:"bidder"`
	Amount    int64     `json:"amount"`
	BidTime   time.Time `json:"bidTime"`
	BidStatus string    `json:"bidStatus"`
}

type PlaceBidRequest struct {
	AuctionID uuid.UUID `json:"auctionId"`
	Amount    int64     `json:"amount"`
}

type PlaceBidResponse struct {
	Bid Bid `json:"bid"`
}

type GetBidsForAuctionRequest struct {
	AuctionID uuid.UUID `json:"auctionId"`
}

type GetBidsForAuctionResponse struct {
	Bids []Bid `json:"bids"`
}

type BidServiceHandler interface {
	PlaceBid(context.Context, *connect.Request[PlaceBidRequest]) (*connect.Response[PlaceBidResponse], error)
	GetBidsForAuction(context.Context, *connect.Request[GetBidsForAuctionRequest]) (*connect.Response[GetBidsForAuctionResponse], error)
}

func NewBidServiceHandler(svc BidServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return serviceMux("/"+BidServiceName+"/", map[string]http.Handler{
		BidServicePlaceBidProcedure:          connect.NewUnaryHandler(BidServicePlaceBidProcedure, svc.PlaceBid, opts...),
		BidServiceGetBidsForAuctionProcedure: connect.NewUnaryHandler(BidServiceGetBidsForAuctionProcedure, svc.GetBidsForAuction, opts...),
	})
}

type BidServiceClient struct {
	placeBid          *connect.Client[PlaceBidRequest, PlaceBidResponse]
	getBidsForAuction *connect.Client[GetBidsForAuctionRequest, GetBidsForAuctionResponse]
}

func NewBidServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *BidServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &BidServiceClient{
		placeBid:          connect.NewClient[PlaceBidRequest, PlaceBidResponse](httpClient, baseURL+BidServicePlaceBidProcedure, opts...),
		getBidsForAuction: connect.NewClient[GetBidsForAuctionRequest, GetBidsForAuctionResponse](httpClient, baseURL+BidServiceGetBidsForAuctionProcedure, opts...),
	}
}

func (c *BidServiceClient) PlaceBid(ctx context.Context, req *connect.Request[PlaceBidRequest]) (*connect.Response[PlaceBidResponse], error) {
	return c.placeBid.CallUnary(ctx, req)
}

func (c *BidServiceClient) GetBidsForAuction(ctx context.Context, req *connect.Request[GetBidsForAuctionRequest]) (*connect.Response[GetBidsForAuctionResponse], error) {
	return c.getBidsForAuction.CallUnary(ctx, req)
}

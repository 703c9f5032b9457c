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
	AuctionServiceName = "auction.v1.AuctionService"

	AuctionServiceCreateAuctionProcedure = "/auction.v1.AuctionService/CreateAuction"
	AuctionServiceUpdateAuctionProcedure = "/auction.v1.AuctionService/UpdateAuction"
	AuctionServiceDeleteAuctionProcedure = "/auction.v1.AuctionService/DeleteAuction"
	AuctionServiceGetAuctionProcedure    = "/auction.v1.AuctionService/GetAuction"
	AuctionServiceListAuctionsProcedure  = "/auction.v1.AuctionService/ListAuctions"
)

// Auction is the wire form of an auction record.
type Auction struct {
	ID             uuid.UUID `json:"id"`
	ReservePrice   int64     `json:"reservePrice"`
	Seller         string    `json:"seller"`
	Winner         *string   `json:"winner,omitempty"`
	SoldAmount     *int64    `json:"soldAmount,omitempty"`
	CurrentHighBid *int64    `json:"currentHighBid,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	AuctionEnd     time.Time `json:"auctionEnd"`
	Status         string    `json:"status"`
	Make           string    `json:"make"`
	Model          string    `json:"model"`
	Year           int       `json:"year"`
	Color          string    `json:"color"`
	Mileage        int       `json:"mileage"`
	ImageURL       string    `json:"imageUrl"`
}

type CreateAuctionRequest struct {
	ReservePrice int64     `json:"reservePrice"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Year         int       `json:"year"`
	Color        string    `json:"color"`
	Mileage      int       `json:"mileage"`
	ImageURL     string    `json:"imageUrl"`
	AuctionEnd   time.Time `json:"auctionEnd"`
}

// UpdateAuctionRequest edits the listed fields; absent fields keep their value.
type UpdateAuctionRequest struct {
	ID      uuid.UUID `json:"id"`
	Make    *string   `json:"make,omitempty"`
	Model   *string   `json:"model,omitempty"`
	Year    *int      `json:"year,omitempty"`
	Color   *string   `json:"color,omitempty"`
	Mileage *int      `json:"mileage,omitempty"`
}

type DeleteAuctionRequest struct {
	ID uuid.UUID `json:"id"`
}

type DeleteAuctionResponse struct{}

type GetAuctionRequest struct {
	ID uuid.UUID `json:"id"`
}

type AuctionResponse struct {
	Auction Auction `json:"auction"`
}

// ListAuctionsRequest asks for every auction updated strictly after Since,
// or all auctions when Since is nil.
type ListAuctionsRequest struct {
	Since *time.Time `json:"since,omitempty"`
}

type ListAuctionsResponse struct {
	Auctions []Auction `json:"auctions"`
}

// AuctionServiceHandler is implemented by the auction service API adapter.
type AuctionServiceHandler interface {
	CreateAuction(context.Context, *connect.Request[CreateAuctionRequest]) (*connect.Response[AuctionResponse], error)
	UpdateAuction(context.Context, *connect.Request[UpdateAuctionRequest]) (*connect.Response[AuctionResponse], error)
	DeleteAuction(context.Context, *connect.Request[DeleteAuctionRequest]) (*connect.Response[DeleteAuctionResponse], error)
	GetAuction(context.Context, *connect.Request[GetAuctionRequest]) (*connect.Response[AuctionResponse], error)
	ListAuctions(context.Context, *connect.Request[ListAuctionsRequest]) (*connect.Response[ListAuctionsResponse], error)
}

// NewAuctionServiceHandler returns the mount path and handler for svc.
func NewAuctionServiceHandler(svc AuctionServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return serviceMux("/"+AuctionServiceName+"/", map[string]http.Handler{
		AuctionServiceCreateAuctionProcedure: connect.NewUnaryHandler(AuctionServiceCreateAuctionProcedure, svc.CreateAuction, opts...),
		AuctionServiceUpdateAuctionProcedure: connect.NewUnaryHandler(AuctionServiceUpdateAuctionProcedure, svc.UpdateAuction, opts...),
		AuctionServiceDeleteAuctionProcedure: connect.NewUnaryHandler(AuctionServiceDeleteAuctionProcedure, svc.DeleteAuction, opts...),
		AuctionServiceGetAuctionProcedure:    connect.NewUnaryHandler(AuctionServiceGetAuctionProcedure, svc.GetAuction, opts...),
		AuctionServiceListAuctionsProcedure:  connect.NewUnaryHandler(AuctionServiceListAuctionsProcedure, svc.ListAuctions, opts...),
	})
}

// AuctionServiceClient calls the auction service.
type AuctionServiceClient struct {
	createAuction *connect.Client[CreateAuctionRequest, AuctionResponse]
	updateAuction *connect.Client[UpdateAuctionRequest, AuctionResponse]
	deleteAuction *connect.Client[DeleteAuctionRequest, DeleteAuctionResponse]
	getAuction    *connect.Client[GetAuctionRequest, AuctionResponse]
	listAuctions  *connect.Client[ListAuctionsRequest, ListAuctionsResponse]
}

func NewAuctionServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AuctionServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &AuctionServiceClient{
		createAuction: connect.NewClient[CreateAuctionRequest, AuctionResponse](httpClient, baseURL+AuctionServiceCreateAuctionProcedure, opts...),
		updateAuction: connect.NewClient[UpdateAuctionRequest, AuctionResponse](httpClient, baseURL+AuctionServiceUpdateAuctionProcedure, opts...),
		deleteAuction: connect.NewClient[DeleteAuctionRequest, DeleteAuctionResponse](httpClient, baseURL+AuctionServiceDeleteAuctionProcedure, opts...),
		getAuction:    connect.NewClient[GetAuctionRequest, AuctionResponse](httpClient, baseURL+AuctionServiceGetAuctionProcedure, opts...),
		listAuctions:  connect.NewClient[ListAuctionsRequest, ListAuctionsResponse](httpClient, baseURL+AuctionServiceListAuctionsProcedure, opts...),
	}
}

func (c *AuctionServiceClient) CreateAuction(ctx context.Context, req *connect.Request[CreateAuctionRequest]) (*connect.Response[AuctionResponse], error) {
	return c.createAuction.CallUnary(ctx, req)
}

func (c *AuctionServiceClient) UpdateAuction(ctx context.Context, req *connect.Request[UpdateAuctionRequest]) (*connect.Response[AuctionResponse], error) {
	return c.updateAuction.CallUnary(ctx, req)
}

func (c *AuctionServiceClient) DeleteAuction(ctx context.Context, req *connect.Request[DeleteAuctionRequest]) (*connect.Response[DeleteAuctionResponse], error) {
	return c.deleteAuction.CallUnary(ctx, req)
}

func (c *AuctionServiceClient) GetAuction(ctx context.Context, req *connect.Request[GetAuctionRequest]) (*connect.Response[AuctionResponse], error) {
	return c.getAuction.CallUnary(ctx, req)
}

func (c *AuctionServiceClient) ListAuctions(ctx context.Context, req *connect.Request[ListAuctionsRequest]) (*connect.Response[ListAuctionsResponse], error) {
	return c.listAuctions.CallUnary(ctx, req)
}

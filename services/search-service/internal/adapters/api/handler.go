package api

import (
	"context"

	"connectrpc.com/connect"

	"github.com/floroz/motorbid/pkg/rpc"
	"github.com/floroz/motorbid/services/search-service/internal/domain/search"
)

// Searcher is satisfied by the search domain service
type Searcher interface {
	Search(ctx context.Context, q search.Query) (search.Page, error)
}

// SearchServiceHandler serves the public search endpoint
type SearchServiceHandler struct {
	service Searcher
}

var _ rpc.SearchServiceHandler = (*SearchServiceHandler)(nil)

func NewSearchServiceHandler(service Searcher) *SearchServiceHandler {
	return &SearchServiceHandler{service: service}
}

func (h *SearchServiceHandler) Search(
	ctx context.Context,
	req *connect.Request[rpc.SearchRequest],
) (*connect.Response[rpc.SearchResponse], error) {
	page, err := h.service.Search(ctx, search.Query{
		SearchTerm: req.Msg.SearchTerm,
		OrderBy:    req.Msg.OrderBy,
		FilterBy:   req.Msg.FilterBy,
		Seller:     req.Msg.Seller,
		Winner:     req.Msg.Winner,
		PageNumber: req.Msg.PageNumber,
		PageSize:   req.Msg.PageSize,
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	results := make([]rpc.Auction, 0, len(page.Results))
	for _, item := range page.Results {
		results = append(results, ToRPC(item))
	}

	return connect.NewResponse(&rpc.SearchResponse{
		Results:    results,
		PageCount:  page.PageCount,
		TotalCount: page.TotalCount,
	}), nil
}

// ToRPC converts a search item into its wire form
func ToRPC(item search.Item) rpc.Auction {
	return rpc.Auction{
		ID:             item.ID,
		ReservePrice:   item.ReservePrice,
		Seller:         item.Seller,
		Winner:         item.Winner,
		SoldAmount:     item.SoldAmount,
		CurrentHighBid: item.CurrentHighBid,
		CreatedAt:      item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
		AuctionEnd:     item.AuctionEnd,
		Status:         item.Status,
		Make:           item.Make,
		Model:          item.Model,
		Year:           item.Year,
		Color:          item.Color,
		Mileage:        item.Mileage,
		ImageURL:       item.ImageURL,
	}
}

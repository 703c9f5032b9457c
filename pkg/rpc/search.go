package rpc

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	SearchServiceName = "search.v1.SearchService"

	SearchServiceSearchProcedure = "/search.v1.SearchService/Search"
)

// SearchRequest mirrors the query string of the public search endpoint.
// OrderBy is "make", "new" or empty (auction end). FilterBy is "finished",
// "endingSoon" or empty (live).
type SearchRequest struct {
	SearchTerm string `json:"searchTerm,omitempty"`
	OrderBy    string `json:"orderBy,omitempty"`
	FilterBy   string `json:"filterBy,omitempty"`
	Seller     string `json:"seller,omitempty"`
	Winner     string `json:"winner,omitempty"`
	PageNumber int    `json:"pageNumber,omitempty"`
	PageSize   int    `json:"pageSize,omitempty"`
}

type SearchResponse struct {
	Results    []Auction `json:"results"`
	PageCount  int       `json:"pageCount"`
	TotalCount int       `json:"totalCount"`
}

type SearchServiceHandler interface {
	Search(context.Context, *connect.Request[SearchRequest]) (*connect.Response[SearchResponse], error)
}

func NewSearchServiceHandler(svc SearchServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return serviceMux("/"+SearchServiceName+"/", map[string]http.Handler{
		SearchServiceSearchProcedure: connect.NewUnaryHandler(SearchServiceSearchProcedure, svc.Search, opts...),
	})
}

type SearchServiceClient struct {
	search *connect.Client[SearchRequest, SearchResponse]
}

func NewSearchServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *SearchServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	return &SearchServiceClient{
		search: connect.NewClient[SearchRequest, SearchResponse](httpClient, baseURL+SearchServiceSearchProcedure, clientOptions(opts)...),
	}
}

func (c *SearchServiceClient) Search(ctx context.Context, req *connect.Request[SearchRequest]) (*connect.Response[SearchResponse], error) {
	return c.search.CallUnary(ctx, req)
}

package search

import (
	"sort"
	"strings"
	"time"
)

const (
	DefaultPageSize = 4
	endingSoonSpan  = 6 * time.Hour
)

// Query selects and pages read model items.
// OrderBy is "make", "new" or empty for soonest end first.
// FilterBy is "finished", "endingSoon" or empty for live auctions.
type Query struct {
	SearchTerm string
	OrderBy    string
	FilterBy   string
	Seller     string
	Winner     string
	PageNumber int
	PageSize   int
}

// Page is one page of search results
type Page struct {
	Results    []Item
	PageCount  int
	TotalCount int
}

// Run evaluates the query over items at now
func (q Query) Run(items []Item, now time.Time) Page {
	term := strings.ToLower(strings.TrimSpace(q.SearchTerm))

	matched := make([]Item, 0, len(items))
	for _, item := range items {
		if item.Deleted {
			continue
		}
		if term != "" && !matchesTerm(item, term) {
			continue
		}
		if !q.matchesFilter(item, now) {
			continue
		}
		if q.Seller != "" && item.Seller != q.Seller {
			continue
		}
		if q.Winner != "" && (item.Winner == nil || *item.Winner != q.Winner) {
			continue
		}
		matched = append(matched, item)
	}

	sort.SliceStable(matched, q.less(matched))

	pageSize := q.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	pageNumber := q.PageNumber
	if pageNumber < 1 {
		pageNumber = 1
	}

	total := len(matched)
	page := Page{
		Results:    []Item{},
		TotalCount: total,
		PageCount:  (total + pageSize - 1) / pageSize,
	}

	start := (pageNumber - 1) * pageSize
	if start < total {
		end := min(start+pageSize, total)
		page.Results = matched[start:end]
	}
	return page
}

func matchesTerm(item Item, term string) bool {
	for _, field := range []string{item.Make, item.Model, item.Color} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func (q Query) matchesFilter(item Item, now time.Time) bool {
	switch q.FilterBy {
	case "finished":
		return item.AuctionEnd.Before(now)
	case "endingSoon":
		return item.AuctionEnd.After(now) && item.AuctionEnd.Before(now.Add(endingSoonSpan))
	default:
		return item.AuctionEnd.After(now)
	}
}

func (q Query) less(items []Item) func(i, j int) bool {
	return func(i, j int) bool {
		a, b := items[i], items[j]
		switch q.OrderBy {
		case "make":
			if a.Make != b.Make {
				return a.Make < b.Make
			}
		case "new":
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		default:
			if !a.AuctionEnd.Equal(b.AuctionEnd) {
				return a.AuctionEnd.Before(b.AuctionEnd)
			}
		}
		return a.ID.String() < b.ID.String()
	}
}

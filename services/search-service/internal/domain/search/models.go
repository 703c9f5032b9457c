package search

import (
	"time"

	"github.com/google/uuid"

	"github.com/floroz/motorbid/pkg/contracts"
)

// Item statuses, as held by the auction service
const (
	StatusLive     = "Live"
	StatusFinished = "Finished"
)

// Item is the search read model of one auction. UpdatedAt is the owner's
// timestamp and doubles as the catch-up cursor. A deleted auction is kept as a
// tombstone so late notifications for it cannot bring it back.
type Item struct {
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
	Deleted        bool      `json:"deleted,omitempty"`
}

// IsTerminal reports whether the auction has been finalized
func (i *Item) IsTerminal() bool {
	return i.Status != "" && i.Status != StatusLive
}

// ItemFromCreated projects an AuctionCreated notification
func ItemFromCreated(n contracts.AuctionCreated) Item {
	status := n.Status
	if status == "" {
		status = StatusLive
	}
	return Item{
		ID:             n.ID,
		ReservePrice:   n.ReservePrice,
		Seller:         n.Seller,
		Winner:         n.Winner,
		SoldAmount:     n.SoldAmount,
		CurrentHighBid: n.CurrentHighBid,
		CreatedAt:      n.CreatedAt,
		UpdatedAt:      n.UpdatedAt,
		AuctionEnd:     n.AuctionEnd,
		Status:         status,
		Make:           n.Make,
		Model:          n.Model,
		Year:           n.Year,
		Color:          n.Color,
		Mileage:        n.Mileage,
		ImageURL:       n.ImageURL,
	}
}

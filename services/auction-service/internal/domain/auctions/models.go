package auctions

import (
	"time"

	"github.com/google/uuid"

	"github.com/floroz/motorbid/pkg/contracts"
)

// Status represents the lifecycle of an auction
type Status string

const (
	StatusLive     Status = "Live"
	StatusFinished Status = "Finished"
)

// Auction is the authoritative auction record.
type Auction struct {
	ID             uuid.UUID `db:"id"`
	ReservePrice   int64     `db:"reserve_price"`
	Seller         string    `db:"seller"`
	Winner         *string   `db:"winner"`
	SoldAmount     *int64    `db:"sold_amount"`
	CurrentHighBid *int64    `db:"current_high_bid"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
	AuctionEnd     time.Time `db:"auction_end"`
	Status         Status    `db:"status"`
	Make           string    `db:"make"`
	Model          string    `db:"model"`
	Year           int       `db:"year"`
	Color          string    `db:"color"`
	Mileage        int       `db:"mileage"`
	ImageURL       string    `db:"image_url"`
}

// IsOwnedBy checks if the given user is the seller
func (a *Auction) IsOwnedBy(username string) bool {
	return a.Seller == username
}

// Outcome is the final state recorded when the bid service closes an auction.
type Outcome struct {
	Status     Status
	Winner     *string
	SoldAmount *int64
}

// OutcomeOf maps a finish notification to the state the auction record takes.
// Every finished auction is Finished; an unsold one carries no winner or sold amount.
func OutcomeOf(n contracts.AuctionFinished) Outcome {
	if !n.ItemSold {
		return Outcome{Status: StatusFinished}
	}
	return Outcome{Status: StatusFinished, Winner: n.Winner, SoldAmount: n.Amount}
}

// CreatedNotification describes the full record for downstream read models.
func (a *Auction) CreatedNotification() contracts.AuctionCreated {
	return contracts.AuctionCreated{
		ID:             a.ID,
		Seller:         a.Seller,
		ReservePrice:   a.ReservePrice,
		Make:           a.Make,
		Model:          a.Model,
		Year:           a.Year,
		Color:          a.Color,
		Mileage:        a.Mileage,
		ImageURL:       a.ImageURL,
		AuctionEnd:     a.AuctionEnd,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		Status:         string(a.Status),
		CurrentHighBid: a.CurrentHighBid,
		Winner:         a.Winner,
		SoldAmount:     a.SoldAmount,
	}
}

func (a *Auction) UpdatedNotification() contracts.AuctionUpdated {
	return contracts.AuctionUpdated{
		ID:        a.ID,
		Make:      a.Make,
		Model:     a.Model,
		Color:     a.Color,
		Mileage:   a.Mileage,
		Year:      a.Year,
		UpdatedAt: a.UpdatedAt,
	}
}

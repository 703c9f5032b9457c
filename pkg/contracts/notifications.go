// Package contracts defines the notifications exchanged between services.
//
// Each variant is a flat, self-describing payload: a consumer can act on it
// without calling back to the sender. The routing key on the broker is the
// variant's EventType.
package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a notification variant. It doubles as the routing key.
type EventType string

const (
	EventTypeAuctionCreated  EventType = "auction.created"
	EventTypeAuctionUpdated  EventType = "auction.updated"
	EventTypeAuctionDeleted  EventType = "auction.deleted"
	EventTypeBidPlaced       EventType = "bid.placed"
	EventTypeAuctionFinished EventType = "auction.finished"
)

// ErrUnknownEventType is returned when decoding a payload of an unsupported type.
var ErrUnknownEventType = errors.New("unknown event type")

// String returns the string representation of the event type
func (e EventType) String() string {
	return string(e)
}

// IsValid checks if the event type is one of the known variants
func (e EventType) IsValid() bool {
	switch e {
	case EventTypeAuctionCreated,
		EventTypeAuctionUpdated,
		EventTypeAuctionDeleted,
		EventTypeBidPlaced,
		EventTypeAuctionFinished:
		return true
	default:
		return false
	}
}

// Notification is the closed set of variants below.
type Notification interface {
	Type() EventType
	// AggregateID is the auction the notification is about. Delivery order is
	// preserved per aggregate.
	AggregateID() uuid.UUID
}

// BidStatus is the outcome computed for a bid attempt.
type BidStatus string

const (
	BidStatusAccepted             BidStatus = "Accepted"
	BidStatusAcceptedBelowReserve BidStatus = "AcceptedBelowReserve"
	BidStatusTooLow               BidStatus = "TooLow"
	BidStatusFinished             BidStatus = "Finished"
)

// IsAcceptedFamily reports whether the bid became the new current high bid.
func (s BidStatus) IsAcceptedFamily() bool {
	return s == BidStatusAccepted || s == BidStatusAcceptedBelowReserve
}

// AuctionCreated carries the full auction record at creation time.
type AuctionCreated struct {
	ID             uuid.UUID `json:"id"`
	Seller         string    `json:"seller"`
	ReservePrice   int64     `json:"reservePrice"`
	Make           string    `json:"make"`
	Model          string    `json:"model"`
	Year           int       `json:"year"`
	Color          string    `json:"color"`
	Mileage        int       `json:"mileage"`
	ImageURL       string    `json:"imageUrl"`
	AuctionEnd     time.Time `json:"auctionEnd"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Status         string    `json:"status"`
	CurrentHighBid *int64    `json:"currentHighBid,omitempty"`
	Winner         *string   `json:"winner,omitempty"`
	SoldAmount     *int64    `json:"soldAmount,omitempty"`
}

func (AuctionCreated) Type() EventType          { return EventTypeAuctionCreated }
func (n AuctionCreated) AggregateID() uuid.UUID { return n.ID }

// AuctionUpdated carries the editable fields after an edit.
type AuctionUpdated struct {
	ID        uuid.UUID `json:"id"`
	Make      string    `json:"make"`
	Model     string    `json:"model"`
	Color     string    `json:"color"`
	Mileage   int       `json:"mileage"`
	Year      int       `json:"year"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (AuctionUpdated) Type() EventType          { return EventTypeAuctionUpdated }
func (n AuctionUpdated) AggregateID() uuid.UUID { return n.ID }

type AuctionDeleted struct {
	ID uuid.UUID `json:"id"`
}

func (AuctionDeleted) Type() EventType          { return EventTypeAuctionDeleted }
func (n AuctionDeleted) AggregateID() uuid.UUID { return n.ID }

// BidPlaced is emitted for bids in the accepted family.
type BidPlaced struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auctionId"`
	Bidder    string    `json:"bidder"`
	BidTime   time.Time `json:"bidTime"`
	Amount    int64     `json:"amount"`
	BidStatus BidStatus `json:"bidStatus"`
}

func (BidPlaced) Type() EventType          { return EventTypeBidPlaced }
func (n BidPlaced) AggregateID() uuid.UUID { return n.AuctionID }

// AuctionFinished is the terminal outcome of an auction. Winner and Amount
// are set only when ItemSold is true.
type AuctionFinished struct {
	AuctionID uuid.UUID `json:"auctionId"`
	ItemSold  bool      `json:"itemSold"`
	Winner    *string   `json:"winner,omitempty"`
	Seller    string    `json:"seller"`
	Amount    *int64    `json:"amount,omitempty"`
}

func (AuctionFinished) Type() EventType          { return EventTypeAuctionFinished }
func (n AuctionFinished) AggregateID() uuid.UUID { return n.AuctionID }

// Encode serializes a notification payload.
func Encode(n Notification) ([]byte, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", n.Type(), err)
	}
	return payload, nil
}

// Decode parses a payload according to its event type and returns the variant by value.
func Decode(eventType EventType, payload []byte) (Notification, error) {
	switch eventType {
	case EventTypeAuctionCreated:
		return decodeAs[AuctionCreated](payload)
	case EventTypeAuctionUpdated:
		return decodeAs[AuctionUpdated](payload)
	case EventTypeAuctionDeleted:
		return decodeAs[AuctionDeleted](payload)
	case EventTypeBidPlaced:
		return decodeAs[BidPlaced](payload)
	case EventTypeAuctionFinished:
		return decodeAs[AuctionFinished](payload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}
}

func decodeAs[T Notification](payload []byte) (Notification, error) {
	var n T
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", n.Type(), err)
	}
	return n, nil
}

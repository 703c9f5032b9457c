package search

import (
	"github.com/google/uuid"

	"github.com/floroz/motorbid/pkg/contracts"
)

// MergeFunc computes the next version of a stored item. current is nil when
// the item is unknown. It returns changed=false to leave the store untouched,
// and a nil next with changed=true to remove the item. No merge revives a
// tombstone.
type MergeFunc func(current *Item) (next *Item, changed bool)

// MergeRecord applies a full auction record (creation or catch-up pull).
// An older record never overwrites a newer one. The current high bid only
// rises and a terminal outcome is never reverted, since both may have
// arrived through notifications that do not move UpdatedAt.
func MergeRecord(incoming Item) MergeFunc {
	return func(current *Item) (*Item, bool) {
		if current == nil {
			next := incoming
			return &next, true
		}
		if current.Deleted || incoming.UpdatedAt.Before(current.UpdatedAt) {
			return nil, false
		}

		next := incoming
		next.CurrentHighBid = maxAmount(current.CurrentHighBid, incoming.CurrentHighBid)
		if current.IsTerminal() && !incoming.IsTerminal() {
			next.Status = current.Status
			next.Winner = current.Winner
			next.SoldAmount = current.SoldAmount
		}
		return &next, true
	}
}

// MergeUpdated applies the editable fields of an AuctionUpdated notification.
// An edit for an unknown item is dropped.
func MergeUpdated(n contracts.AuctionUpdated) MergeFunc {
	return func(current *Item) (*Item, bool) {
		if !present(current) || n.UpdatedAt.Before(current.UpdatedAt) {
			return nil, false
		}
		next := *current
		next.Make = n.Make
		next.Model = n.Model
		next.Color = n.Color
		next.Mileage = n.Mileage
		next.Year = n.Year
		next.UpdatedAt = n.UpdatedAt
		return &next, true
	}
}

// MergeBidPlaced raises the current high bid when the bid is in the accepted
// family and strictly higher than the stored one.
func MergeBidPlaced(n contracts.BidPlaced) MergeFunc {
	return func(current *Item) (*Item, bool) {
		if !present(current) || !n.BidStatus.IsAcceptedFamily() {
			return nil, false
		}
		if current.CurrentHighBid != nil && *current.CurrentHighBid >= n.Amount {
			return nil, false
		}
		next := *current
		amount := n.Amount
		next.CurrentHighBid = &amount
		return &next, true
	}
}

// MergeFinished records the outcome of an auction. An unsold auction is
// Finished with no winner or sold amount. An outcome for an unknown item is dropped.
func MergeFinished(n contracts.AuctionFinished) MergeFunc {
	return func(current *Item) (*Item, bool) {
		if !present(current) {
			return nil, false
		}
		next := *current
		next.Status = StatusFinished
		next.Winner = nil
		next.SoldAmount = nil
		if n.ItemSold {
			next.Winner = n.Winner
			next.SoldAmount = n.Amount
		}
		return &next, true
	}
}

// MergeDeleted replaces the item with a tombstone, also when the item was never
// seen, so an AuctionCreated delivered after the delete is ignored.
func MergeDeleted(id uuid.UUID) MergeFunc {
	return func(current *Item) (*Item, bool) {
		if current != nil && current.Deleted {
			return nil, false
		}
		tombstone := Item{ID: id, Deleted: true}
		if current != nil {
			tombstone.UpdatedAt = current.UpdatedAt
		}
		return &tombstone, true
	}
}

// present reports whether current holds an auction that has not been deleted
func present(current *Item) bool {
	return current != nil && !current.Deleted
}

func maxAmount(a, b *int64) *int64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *a >= *b:
		return a
	default:
		return b
	}
}

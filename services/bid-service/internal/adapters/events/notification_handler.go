package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/floroz/motorbid/pkg/contracts"
	pkgevents "github.com/floroz/motorbid/pkg/events"
)

// QueueName is the durable queue the bid worker consumes from.
const QueueName = "bid_service_notifications"

// RoutingKeys keep the snapshot table in step with the auction service.
var RoutingKeys = []string{
	contracts.EventTypeAuctionCreated.String(),
	contracts.EventTypeAuctionDeleted.String(),
}

// SnapshotApplier is satisfied by bids.BiddingService.
type SnapshotApplier interface {
	ApplyAuctionCreated(ctx context.Context, n contracts.AuctionCreated) error
	ApplyAuctionDeleted(ctx context.Context, n contracts.AuctionDeleted) error
}

// NotificationHandler maintains auction snapshots from auction lifecycle notifications
type NotificationHandler struct {
	service SnapshotApplier
	logger  *slog.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(service SnapshotApplier, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{service: service, logger: logger}
}

// Handle implements pkgevents.Handler
func (h *NotificationHandler) Handle(ctx context.Context, msg pkgevents.Message) error {
	n, err := contracts.Decode(contracts.EventType(msg.RoutingKey), msg.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", pkgevents.ErrPoisonMessage, err)
	}

	switch v := n.(type) {
	case contracts.AuctionCreated:
		h.logger.Debug("Storing auction snapshot", "auction_id", v.ID)
		return h.service.ApplyAuctionCreated(ctx, v)
	case contracts.AuctionDeleted:
		h.logger.Debug("Removing auction snapshot", "auction_id", v.ID)
		return h.service.ApplyAuctionDeleted(ctx, v)
	default:
		return nil
	}
}

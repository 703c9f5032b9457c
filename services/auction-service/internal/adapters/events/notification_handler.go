package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/floroz/motorbid/pkg/contracts"
	pkgevents "github.com/floroz/motorbid/pkg/events"
)

// QueueName is the durable queue the auction worker consumes from.
const QueueName = "auction_service_notifications"

// RoutingKeys are the notifications the auction service reacts to.
var RoutingKeys = []string{
	contracts.EventTypeBidPlaced.String(),
	contracts.EventTypeAuctionFinished.String(),
}

// NotificationApplier is satisfied by the auction domain service.
type NotificationApplier interface {
	ApplyBidPlaced(ctx context.Context, n contracts.BidPlaced) error
	ApplyAuctionFinished(ctx context.Context, n contracts.AuctionFinished) error
}

// NotificationHandler decodes deliveries and applies them to the auction record
type NotificationHandler struct {
	service NotificationApplier
	logger  *slog.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(service NotificationApplier, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{service: service, logger: logger}
}

// Handle implements pkgevents.Handler
func (h *NotificationHandler) Handle(ctx context.Context, msg pkgevents.Message) error {
	n, err := contracts.Decode(contracts.EventType(msg.RoutingKey), msg.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", pkgevents.ErrPoisonMessage, err)
	}

	switch v := n.(type) {
	case contracts.BidPlaced:
		return h.service.ApplyBidPlaced(ctx, v)
	case contracts.AuctionFinished:
		return h.service.ApplyAuctionFinished(ctx, v)
	default:
		h.logger.Debug("Ignoring notification", "routing_key", msg.RoutingKey)
		return nil
	}
}

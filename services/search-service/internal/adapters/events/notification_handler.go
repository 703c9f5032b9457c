package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/floroz/motorbid/pkg/contracts"
	pkgevents "github.com/floroz/motorbid/pkg/events"
)

// QueueName is the durable queue the search worker consumes from.
const QueueName = "search_service_notifications"

// RoutingKeys are every notification the read model follows.
var RoutingKeys = []string{
	contracts.EventTypeAuctionCreated.String(),
	contracts.EventTypeAuctionUpdated.String(),
	contracts.EventTypeAuctionDeleted.String(),
	contracts.EventTypeBidPlaced.String(),
	contracts.EventTypeAuctionFinished.String(),
}

// NotificationApplier is satisfied by the search domain service.
type NotificationApplier interface {
	ApplyAuctionCreated(ctx context.Context, n contracts.AuctionCreated) error
	ApplyAuctionUpdated(ctx context.Context, n contracts.AuctionUpdated) error
	ApplyAuctionDeleted(ctx context.Context, n contracts.AuctionDeleted) error
	ApplyBidPlaced(ctx context.Context, n contracts.BidPlaced) error
	ApplyAuctionFinished(ctx context.Context, n contracts.AuctionFinished) error
}

// NotificationHandler decodes deliveries and merges them into the read model
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

	h.logger.Debug("Applying notification", "routing_key", msg.RoutingKey, "message_id", msg.ID)

	switch v := n.(type) {
	case contracts.AuctionCreated:
		return h.service.ApplyAuctionCreated(ctx, v)
	case contracts.AuctionUpdated:
		return h.service.ApplyAuctionUpdated(ctx, v)
	case contracts.AuctionDeleted:
		return h.service.ApplyAuctionDeleted(ctx, v)
	case contracts.BidPlaced:
		return h.service.ApplyBidPlaced(ctx, v)
	case contracts.AuctionFinished:
		return h.service.ApplyAuctionFinished(ctx, v)
	default:
		return fmt.Errorf("%w: unhandled notification %T", pkgevents.ErrPoisonMessage, n)
	}
}

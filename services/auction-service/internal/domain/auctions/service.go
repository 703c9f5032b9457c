package auctions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/floroz/motorbid/pkg/contracts"
	"github.com/floroz/motorbid/pkg/database"
	"github.com/floroz/motorbid/pkg/events"
)

// Service errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrForbidden       = errors.New("forbidden: only the seller can perform this action")
	ErrInvalidAuction  = errors.New("invalid auction")
	ErrInvalidEndTime  = errors.New("auction end must be in the future")
)

// CreateAuctionCommand represents the command to create a new auction
type CreateAuctionCommand struct {
	Seller       string
	ReservePrice int64
	Make         string
	Model        string
	Year         int
	Color        string
	Mileage      int
	ImageURL     string
	AuctionEnd   time.Time
}

// UpdateAuctionCommand edits the non-nil fields of an auction
type UpdateAuctionCommand struct {
	ID      uuid.UUID
	User    string
	Make    *string
	Model   *string
	Year    *int
	Color   *string
	Mileage *int
}

// Service implements the auction lifecycle. Every write appends its
// notification to the outbox inside the same transaction.
type Service struct {
	txManager  database.TransactionManager
	repo       Repository
	outboxRepo events.OutboxRepository
	notifier   events.Notifier
	logger     *slog.Logger
}

// NewService creates a new auction service
func NewService(
	txManager database.TransactionManager,
	repo Repository,
	outboxRepo events.OutboxRepository,
	notifier events.Notifier,
	logger *slog.Logger,
) *Service {
	if notifier == nil {
		notifier = events.NopNotifier{}
	}
	return &Service{
		txManager:  txManager,
		repo:       repo,
		outboxRepo: outboxRepo,
		notifier:   notifier,
		logger:     logger,
	}
}

func validateCreate(cmd CreateAuctionCommand) error {
	switch {
	case cmd.Seller == "":
		return fmt.Errorf("%w: seller is required", ErrInvalidAuction)
	case cmd.Make == "", cmd.Model == "", cmd.Color == "":
		return fmt.Errorf("%w: make, model and color are required", ErrInvalidAuction)
	case cmd.ImageURL == "":
		return fmt.Errorf("%w: image url is required", ErrInvalidAuction)
	case cmd.Year <= 0:
		return fmt.Errorf("%w: year must be positive", ErrInvalidAuction)
	case cmd.Mileage < 0:
		return fmt.Errorf("%w: mileage cannot be negative", ErrInvalidAuction)
	case cmd.ReservePrice < 0:
		return fmt.Errorf("%w: reserve price cannot be negative", ErrInvalidAuction)
	case !cmd.AuctionEnd.After(time.Now()):
		return ErrInvalidEndTime
	}
	return nil
}

func validateUpdate(cmd UpdateAuctionCommand) error {
	for _, s := range []*string{cmd.Make, cmd.Model, cmd.Color} {
		if s != nil && *s == "" {
			return fmt.Errorf("%w: make, model and color cannot be blank", ErrInvalidAuction)
		}
	}
	if cmd.Year != nil && *cmd.Year <= 0 {
		return fmt.Errorf("%w: year must be positive", ErrInvalidAuction)
	}
	if cmd.Mileage != nil && *cmd.Mileage < 0 {
		return fmt.Errorf("%w: mileage cannot be negative", ErrInvalidAuction)
	}
	return nil
}

// CreateAuction stores a live auction and its AuctionCreated notification.
func (s *Service) CreateAuction(ctx context.Context, cmd CreateAuctionCommand) (*Auction, error) {
	if err := validateCreate(cmd); err != nil {
		return nil, err
	}

	// Postgres keeps microseconds; the notification must carry the stored value
	now := time.Now().UTC().Truncate(time.Microsecond)
	auction := &Auction{
		ID:           uuid.New(),
		ReservePrice: cmd.ReservePrice,
		Seller:       cmd.Seller,
		CreatedAt:    now,
		UpdatedAt:    now,
		AuctionEnd:   cmd.AuctionEnd.UTC().Truncate(time.Microsecond),
		Status:       StatusLive,
		Make:         cmd.Make,
		Model:        cmd.Model,
		Year:         cmd.Year,
		Color:        cmd.Color,
		Mileage:      cmd.Mileage,
		ImageURL:     cmd.ImageURL,
	}

	err := s.withOutbox(ctx, func(tx pgx.Tx) (contracts.Notification, error) {
		if err := s.repo.CreateAuction(ctx, tx, auction); err != nil {
			return nil, fmt.Errorf("failed to create auction: %w", err)
		}
		return auction.CreatedNotification(), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Auction created", "auction_id", auction.ID, "seller", auction.Seller)
	return auction, nil
}

// UpdateAuction applies the edit when the caller is the seller.
func (s *Service) UpdateAuction(ctx context.Context, cmd UpdateAuctionCommand) (*Auction, error) {
	if err := validateUpdate(cmd); err != nil {
		return nil, err
	}

	var auction *Auction
	err := s.withOutbox(ctx, func(tx pgx.Tx) (contracts.Notification, error) {
		var err error
		auction, err = s.repo.GetAuctionByIDForUpdate(ctx, tx, cmd.ID)
		if err != nil {
			return nil, err
		}

		if !auction.IsOwnedBy(cmd.User) {
			return nil, ErrForbidden
		}

		if cmd.Make != nil {
			auction.Make = *cmd.Make
		}
		if cmd.Model != nil {
			auction.Model = *cmd.Model
		}
		if cmd.Year != nil {
			auction.Year = *cmd.Year
		}
		if cmd.Color != nil {
			auction.Color = *cmd.Color
		}
		if cmd.Mileage != nil {
			auction.Mileage = *cmd.Mileage
		}

		if err := s.repo.UpdateAuction(ctx, tx, auction); err != nil {
			return nil, fmt.Errorf("failed to update auction: %w", err)
		}
		return auction.UpdatedNotification(), nil
	})
	if err != nil {
		return nil, err
	}
	return auction, nil
}

// DeleteAuction removes the auction when the caller is the seller.
func (s *Service) DeleteAuction(ctx context.Context, id uuid.UUID, user string) error {
	err := s.withOutbox(ctx, func(tx pgx.Tx) (contracts.Notification, error) {
		auction, err := s.repo.GetAuctionByIDForUpdate(ctx, tx, id)
		if err != nil {
			return nil, err
		}

		if !auction.IsOwnedBy(user) {
			return nil, ErrForbidden
		}

		if err := s.repo.DeleteAuction(ctx, tx, id); err != nil {
			return nil, fmt.Errorf("failed to delete auction: %w", err)
		}
		return contracts.AuctionDeleted{ID: id}, nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Auction deleted", "auction_id", id)
	return nil
}

// GetAuction retrieves an auction by ID
func (s *Service) GetAuction(ctx context.Context, id uuid.UUID) (*Auction, error) {
	return s.repo.GetAuctionByID(ctx, id)
}

// ListAuctions returns every auction updated strictly after since, or all when since is nil.
func (s *Service) ListAuctions(ctx context.Context, since *time.Time) ([]*Auction, error) {
	auctions, err := s.repo.ListAuctionsUpdatedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}
	return auctions, nil
}

// withOutbox runs write in a transaction, appends the notification it returns
// to the outbox and commits. The relay is woken only after a successful commit.
func (s *Service) withOutbox(ctx context.Context, write func(tx pgx.Tx) (contracts.Notification, error)) error {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // Rollback if commit is not called
	}()

	notification, err := write(tx)
	if err != nil {
		return err
	}

	event, err := events.NewOutboxEvent(notification)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	if err := s.outboxRepo.SaveEvent(ctx, tx, event); err != nil {
		return fmt.Errorf("failed to save outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.notifier.Trigger()
	return nil
}

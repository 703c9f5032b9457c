package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floroz/motorbid/pkg/contracts"
	pkgdb "github.com/floroz/motorbid/pkg/database"
	"github.com/floroz/motorbid/services/bid-service/internal/domain/bids"
)

const bidColumns = `id, auction_id, bidder, amount, bid_time, status`

// PostgresBidRepository implements bids.BidRepository using pgx
type PostgresBidRepository struct {
	pool *pgxpool.Pool // Keep pool for read-only operations
}

// NewPostgresBidRepository creates a new PostgreSQL bid repository
func NewPostgresBidRepository(pool *pgxpool.Pool) *PostgresBidRepository {
	return &PostgresBidRepository{pool: pool}
}

// SaveBid saves a bid within a transaction
func (r *PostgresBidRepository) SaveBid(ctx context.Context, tx pgx.Tx, bid *bids.Bid) error {
	query := `INSERT INTO bids (` + bidColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := tx.Exec(ctx, query,
		bid.ID,
		bid.AuctionID,
		bid.Bidder,
		bid.Amount,
		bid.BidTime,
		bid.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

// GetHighestAcceptedBid returns the current high bid, or nil when there is none
func (r *PostgresBidRepository) GetHighestAcceptedBid(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) (*bids.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE auction_id = $1 AND status IN ($2, $3)
		ORDER BY amount DESC, bid_time ASC
		LIMIT 1
	`
	bid, err := scanBid(tx.QueryRow(ctx, query, auctionID,
		contracts.BidStatusAccepted, contracts.BidStatusAcceptedBelowReserve))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get highest bid: %w", err)
	}
	return bid, nil
}

// GetBidsByAuctionID retrieves all bids for an auction, newest first
func (r *PostgresBidRepository) GetBidsByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*bids.Bid, error) {
	return r.getBidsByAuctionID(ctx, r.pool, auctionID)
}

// GetBidsByAuctionIDInTx retrieves all bids for an auction within a transaction
func (r *PostgresBidRepository) GetBidsByAuctionIDInTx(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) ([]*bids.Bid, error) {
	return r.getBidsByAuctionID(ctx, tx, auctionID)
}

func (r *PostgresBidRepository) getBidsByAuctionID(ctx context.Context, db pkgdb.DBTX, auctionID uuid.UUID) ([]*bids.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE auction_id = $1
		ORDER BY bid_time DESC, id
	`
	rows, err := db.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	defer rows.Close()

	result := []*bids.Bid{}
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		result = append(result, bid)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}

	return result, nil
}

func scanBid(row pgx.Row) (*bids.Bid, error) {
	var bid bids.Bid
	if err := row.Scan(
		&bid.ID,
		&bid.AuctionID,
		&bid.Bidder,
		&bid.Amount,
		&bid.BidTime,
		&bid.Status,
	); err != nil {
		return nil, err
	}
	return &bid, nil
}

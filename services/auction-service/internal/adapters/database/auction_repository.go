package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pkgdb "github.com/floroz/motorbid/pkg/database"
	"github.com/floroz/motorbid/services/auction-service/internal/domain/auctions"
)

const auctionColumns = `id, reserve_price, seller, winner, sold_amount, current_high_bid,
	created_at, updated_at, auction_end, status, make, model, year, color, mileage, image_url`

// bumpUpdatedAt keeps updated_at strictly increasing per row even when two
// writes land in the same microsecond, so catch-up cursors never skip a change.
const bumpUpdatedAt = `updated_at = greatest(NOW(), updated_at + interval '1 microsecond')`

// PostgresAuctionRepository implements auctions.Repository using pgx
type PostgresAuctionRepository struct {
	pool *pgxpool.Pool // Keep pool for non-transactional reads
}

// NewPostgresAuctionRepository creates a new PostgreSQL auction repository
func NewPostgresAuctionRepository(pool *pgxpool.Pool) *PostgresAuctionRepository {
	return &PostgresAuctionRepository{pool: pool}
}

// CreateAuction inserts an auction within a transaction
func (r *PostgresAuctionRepository) CreateAuction(ctx context.Context, tx pgx.Tx, a *auctions.Auction) error {
	query := `INSERT INTO auctions (` + auctionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := tx.Exec(ctx, query,
		a.ID,
		a.ReservePrice,
		a.Seller,
		a.Winner,
		a.SoldAmount,
		a.CurrentHighBid,
		a.CreatedAt,
		a.UpdatedAt,
		a.AuctionEnd,
		a.Status,
		a.Make,
		a.Model,
		a.Year,
		a.Color,
		a.Mileage,
		a.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("failed to insert auction: %w", err)
	}
	return nil
}

// GetAuctionByID retrieves an auction by its ID (non-transactional read)
func (r *PostgresAuctionRepository) GetAuctionByID(ctx context.Context, id uuid.UUID) (*auctions.Auction, error) {
	return r.getAuctionByID(ctx, r.pool, id, false)
}

// GetAuctionByIDForUpdate retrieves an auction and locks the row (transactional)
func (r *PostgresAuctionRepository) GetAuctionByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*auctions.Auction, error) {
	return r.getAuctionByID(ctx, tx, id, true)
}

// getAuctionByID is the internal implementation that works with any DBTX
func (r *PostgresAuctionRepository) getAuctionByID(ctx context.Context, db pkgdb.DBTX, id uuid.UUID, forUpdate bool) (*auctions.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	a, err := scanAuction(db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auctions.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return a, nil
}

// UpdateAuction writes the editable fields and reads back the new updated_at
func (r *PostgresAuctionRepository) UpdateAuction(ctx context.Context, tx pgx.Tx, a *auctions.Auction) error {
	query := `
		UPDATE auctions
		SET make = $2, model = $3, year = $4, color = $5, mileage = $6, ` + bumpUpdatedAt + `
		WHERE id = $1
		RETURNING updated_at
	`
	err := tx.QueryRow(ctx, query, a.ID, a.Make, a.Model, a.Year, a.Color, a.Mileage).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auctions.ErrAuctionNotFound
		}
		return fmt.Errorf("failed to update auction: %w", err)
	}
	return nil
}

// DeleteAuction removes an auction within a transaction
func (r *PostgresAuctionRepository) DeleteAuction(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	result, err := tx.Exec(ctx, `DELETE FROM auctions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete auction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return auctions.ErrAuctionNotFound
	}
	return nil
}

// ListAuctionsUpdatedSince returns auctions updated strictly after since, ordered by make
func (r *PostgresAuctionRepository) ListAuctionsUpdatedSince(ctx context.Context, since *time.Time) ([]*auctions.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions`
	var args []any
	if since != nil {
		query += ` WHERE updated_at > $1`
		args = append(args, *since)
	}
	query += ` ORDER BY make, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query auctions: %w", err)
	}
	defer rows.Close()

	var list []*auctions.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auctions: %w", err)
	}
	return list, nil
}

// RaiseHighBid sets current_high_bid only when amount is strictly higher
func (r *PostgresAuctionRepository) RaiseHighBid(ctx context.Context, id uuid.UUID, amount int64) (bool, error) {
	query := `
		UPDATE auctions
		SET current_high_bid = $2, ` + bumpUpdatedAt + `
		WHERE id = $1 AND (current_high_bid IS NULL OR current_high_bid < $2)
	`
	result, err := r.pool.Exec(ctx, query, id, amount)
	if err != nil {
		return false, fmt.Errorf("failed to update high bid: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// FinishAuction records winner, sold amount and final status
func (r *PostgresAuctionRepository) FinishAuction(ctx context.Context, id uuid.UUID, outcome auctions.Outcome) (bool, error) {
	query := `
		UPDATE auctions
		SET status = $2, winner = $3, sold_amount = $4, ` + bumpUpdatedAt + `
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, outcome.Status, outcome.Winner, outcome.SoldAmount)
	if err != nil {
		return false, fmt.Errorf("failed to finish auction: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func scanAuction(row pgx.Row) (*auctions.Auction, error) {
	var a auctions.Auction
	err := row.Scan(
		&a.ID,
		&a.ReservePrice,
		&a.Seller,
		&a.Winner,
		&a.SoldAmount,
		&a.CurrentHighBid,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.AuctionEnd,
		&a.Status,
		&a.Make,
		&a.Model,
		&a.Year,
		&a.Color,
		&a.Mileage,
		&a.ImageURL,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

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
	"github.com/floroz/motorbid/services/bid-service/internal/domain/bids"
)

const snapshotColumns = `id, auction_end, seller, reserve_price, finished`

// PostgresSnapshotRepository implements bids.SnapshotRepository using pgx
type PostgresSnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSnapshotRepository creates a new PostgreSQL snapshot repository
func NewPostgresSnapshotRepository(pool *pgxpool.Pool) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{pool: pool}
}

// GetSnapshot retrieves a snapshot by auction ID (non-transactional read)
func (r *PostgresSnapshotRepository) GetSnapshot(ctx context.Context, auctionID uuid.UUID) (*bids.AuctionSnapshot, error) {
	return r.getSnapshot(ctx, r.pool, auctionID, false)
}

// GetSnapshotForUpdate retrieves a snapshot and locks the row (transactional)
func (r *PostgresSnapshotRepository) GetSnapshotForUpdate(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) (*bids.AuctionSnapshot, error) {
	return r.getSnapshot(ctx, tx, auctionID, true)
}

func (r *PostgresSnapshotRepository) getSnapshot(ctx context.Context, db pkgdb.DBTX, auctionID uuid.UUID, forUpdate bool) (*bids.AuctionSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM auction_snapshots WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var s bids.AuctionSnapshot
	err := db.QueryRow(ctx, query, auctionID).Scan(
		&s.ID,
		&s.AuctionEnd,
		&s.Seller,
		&s.ReservePrice,
		&s.Finished,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, bids.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get auction snapshot: %w", err)
	}
	return &s, nil
}

// insertLive inserts the snapshot row unless the auction has been deleted
const insertLive = `
		INSERT INTO auction_snapshots (` + snapshotColumns + `)
		SELECT $1::uuid, $2::timestamptz, $3::text, $4::bigint, $5::boolean
		WHERE NOT EXISTS (SELECT 1 FROM deleted_auctions WHERE id = $1::uuid)
`

// CreateSnapshotIfAbsent inserts a snapshot within a transaction unless one
// already exists or the auction was deleted
func (r *PostgresSnapshotRepository) CreateSnapshotIfAbsent(ctx context.Context, tx pgx.Tx, s *bids.AuctionSnapshot) error {
	query := insertLive + `ON CONFLICT (id) DO NOTHING`
	if _, err := tx.Exec(ctx, query, s.ID, s.AuctionEnd, s.Seller, s.ReservePrice, s.Finished); err != nil {
		return fmt.Errorf("failed to insert auction snapshot: %w", err)
	}
	return nil
}

// UpsertSnapshot creates or refreshes a snapshot. A finished auction stays
// finished and a deleted auction is not recreated.
func (r *PostgresSnapshotRepository) UpsertSnapshot(ctx context.Context, s *bids.AuctionSnapshot) error {
	query := insertLive + `
		ON CONFLICT (id) DO UPDATE SET
			auction_end = EXCLUDED.auction_end,
			seller = EXCLUDED.seller,
			reserve_price = EXCLUDED.reserve_price,
			finished = auction_snapshots.finished OR EXCLUDED.finished
	`
	if _, err := r.pool.Exec(ctx, query, s.ID, s.AuctionEnd, s.Seller, s.ReservePrice, s.Finished); err != nil {
		return fmt.Errorf("failed to upsert auction snapshot: %w", err)
	}
	return nil
}

// DeleteSnapshot removes a snapshot if present and records a tombstone for the auction
func (r *PostgresSnapshotRepository) DeleteSnapshot(ctx context.Context, auctionID uuid.UUID) error {
	query := `
		WITH removed AS (
			DELETE FROM auction_snapshots WHERE id = $1
		)
		INSERT INTO deleted_auctions (id) VALUES ($1)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, auctionID); err != nil {
		return fmt.Errorf("failed to delete auction snapshot: %w", err)
	}
	return nil
}

// ListEndedUnfinished returns auctions whose end time has passed and that have not been finalized
func (r *PostgresSnapshotRepository) ListEndedUnfinished(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id
		FROM auction_snapshots
		WHERE NOT finished AND auction_end <= $1
		ORDER BY auction_end ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ended auctions: %w", err)
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to scan ended auctions: %w", err)
	}
	return ids, nil
}

// MarkFinished sets the finished flag within a transaction
func (r *PostgresSnapshotRepository) MarkFinished(ctx context.Context, tx pgx.Tx, auctionID uuid.UUID) error {
	result, err := tx.Exec(ctx, `UPDATE auction_snapshots SET finished = TRUE WHERE id = $1`, auctionID)
	if err != nil {
		return fmt.Errorf("failed to mark auction finished: %w", err)
	}
	if result.RowsAffected() == 0 {
		return bids.ErrSnapshotNotFound
	}
	return nil
}

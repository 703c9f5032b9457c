//go:build integration

package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floroz/motorbid/pkg/contracts"
	pkgdb "github.com/floroz/motorbid/pkg/database"
	"github.com/floroz/motorbid/pkg/testhelpers"
	"github.com/floroz/motorbid/services/bid-service/internal/adapters/database"
	"github.com/floroz/motorbid/services/bid-service/internal/domain/bids"
	"github.com/floroz/motorbid/services/bid-service/migrations"
)

func TestBidRepositories(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testhelpers.NewTestDatabase(t, migrations.FS)
	defer testDB.Close()

	ctx := context.Background()
	pool := testDB.Pool
	txManager := pkgdb.NewPostgresTransactionManager(pool, time.Second)
	bidRepo := database.NewPostgresBidRepository(pool)
	snapshots := database.NewPostgresSnapshotRepository(pool)

	inTx := func(t *testing.T, fn func(tx pgx.Tx)) {
		t.Helper()
		tx, err := txManager.BeginTx(ctx)
		require.NoError(t, err)
		fn(tx)
		require.NoError(t, tx.Commit(ctx))
	}

	newSnapshot := func(end time.Time) *bids.AuctionSnapshot {
		return &bids.AuctionSnapshot{
			ID:           uuid.New(),
			AuctionEnd:   end.UTC().Truncate(time.Microsecond),
			Seller:       "alice",
			ReservePrice: 100,
		}
	}

	t.Run("Snapshot lookup misses with ErrSnapshotNotFound", func(t *testing.T) {
		_, err := snapshots.GetSnapshot(ctx, uuid.New())
		assert.ErrorIs(t, err, bids.ErrSnapshotNotFound)
	})

	t.Run("CreateSnapshotIfAbsent keeps the first copy", func(t *testing.T) {
		s := newSnapshot(time.Now().Add(time.Hour))
		inTx(t, func(tx pgx.Tx) {
			require.NoError(t, snapshots.CreateSnapshotIfAbsent(ctx, tx, s))
		})

		other := *s
		other.ReservePrice = 999
		inTx(t, func(tx pgx.Tx) {
			require.NoError(t, snapshots.CreateSnapshotIfAbsent(ctx, tx, &other))
		})

		got, err := snapshots.GetSnapshot(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(100), got.ReservePrice)
		assert.True(t, s.AuctionEnd.Equal(got.AuctionEnd))
	})

	t.Run("UpsertSnapshot never clears finished", func(t *testing.T) {
		s := newSnapshot(time.Now().Add(-time.Minute))
		require.NoError(t, snapshots.UpsertSnapshot(ctx, s))
		inTx(t, func(tx pgx.Tx) {
			require.NoError(t, snapshots.MarkFinished(ctx, tx, s.ID))
		})

		s.ReservePrice = 250
		require.NoError(t, snapshots.UpsertSnapshot(ctx, s))

		got, err := snapshots.GetSnapshot(ctx, s.ID)
		require.NoError(t, err)
		assert.True(t, got.Finished)
		assert.Equal(t, int64(250), got.ReservePrice)
	})

	t.Run("ListEndedUnfinished skips live and finished auctions", func(t *testing.T) {
		now := time.Now().UTC()
		ended := newSnapshot(now.Add(-time.Minute))
		live := newSnapshot(now.Add(time.Hour))
		done := newSnapshot(now.Add(-time.Hour))
		done.Finished = true
		for _, s := range []*bids.AuctionSnapshot{ended, live, done} {
			require.NoError(t, snapshots.UpsertSnapshot(ctx, s))
		}

		ids, err := snapshots.ListEndedUnfinished(ctx, now, 100)
		require.NoError(t, err)
		assert.Contains(t, ids, ended.ID)
		assert.NotContains(t, ids, live.ID)
		assert.NotContains(t, ids, done.ID)
	})

	t.Run("MarkFinished on a missing snapshot", func(t *testing.T) {
		tx, err := txManager.BeginTx(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback(ctx) }()

		assert.ErrorIs(t, snapshots.MarkFinished(ctx, tx, uuid.New()), bids.ErrSnapshotNotFound)
	})

	t.Run("DeleteSnapshot is idempotent", func(t *testing.T) {
		s := newSnapshot(time.Now().Add(time.Hour))
		require.NoError(t, snapshots.UpsertSnapshot(ctx, s))
		require.NoError(t, snapshots.DeleteSnapshot(ctx, s.ID))
		require.NoError(t, snapshots.DeleteSnapshot(ctx, s.ID))

		_, err := snapshots.GetSnapshot(ctx, s.ID)
		assert.ErrorIs(t, err, bids.ErrSnapshotNotFound)
	})

	t.Run("Deleted auction is not recreated by a late create or upsert", func(t *testing.T) {
		s := newSnapshot(time.Now().Add(-time.Minute))
		require.NoError(t, snapshots.UpsertSnapshot(ctx, s))
		require.NoError(t, snapshots.DeleteSnapshot(ctx, s.ID))

		require.NoError(t, snapshots.UpsertSnapshot(ctx, s))
		inTx(t, func(tx pgx.Tx) {
			require.NoError(t, snapshots.CreateSnapshotIfAbsent(ctx, tx, s))
		})

		_, err := snapshots.GetSnapshot(ctx, s.ID)
		assert.ErrorIs(t, err, bids.ErrSnapshotNotFound)

		ids, err := snapshots.ListEndedUnfinished(ctx, time.Now().UTC(), 100)
		require.NoError(t, err)
		assert.NotContains(t, ids, s.ID)
	})

	t.Run("Delete before create leaves a tombstone", func(t *testing.T) {
		s := newSnapshot(time.Now().Add(time.Hour))
		require.NoError(t, snapshots.DeleteSnapshot(ctx, s.ID))
		require.NoError(t, snapshots.UpsertSnapshot(ctx, s))

		_, err := snapshots.GetSnapshot(ctx, s.ID)
		assert.ErrorIs(t, err, bids.ErrSnapshotNotFound)
	})

	t.Run("Highest accepted bid ignores TooLow and prefers the earlier tie", func(t *testing.T) {
		auctionID := uuid.New()
		base := time.Now().UTC().Truncate(time.Microsecond)
		first := &bids.Bid{ID: uuid.New(), AuctionID: auctionID, Bidder: "bob", Amount: 150, BidTime: base, Status: contracts.BidStatusAccepted}
		tie := &bids.Bid{ID: uuid.New(), AuctionID: auctionID, Bidder: "carol", Amount: 150, BidTime: base.Add(time.Second), Status: contracts.BidStatusAccepted}
		tooLow := &bids.Bid{ID: uuid.New(), AuctionID: auctionID, Bidder: "dave", Amount: 500, BidTime: base.Add(2 * time.Second), Status: contracts.BidStatusTooLow}

		inTx(t, func(tx pgx.Tx) {
			for _, b := range []*bids.Bid{first, tie, tooLow} {
				require.NoError(t, bidRepo.SaveBid(ctx, tx, b))
			}
		})

		inTx(t, func(tx pgx.Tx) {
			highest, err := bidRepo.GetHighestAcceptedBid(ctx, tx, auctionID)
			require.NoError(t, err)
			require.NotNil(t, highest)
			assert.Equal(t, first.ID, highest.ID)
		})

		list, err := bidRepo.GetBidsByAuctionID(ctx, auctionID)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, tooLow.ID, list[0].ID, "newest first")
		assert.Equal(t, contracts.BidStatusTooLow, list[0].Status)
	})

	t.Run("No bids yields nil high bid and an empty list", func(t *testing.T) {
		auctionID := uuid.New()
		inTx(t, func(tx pgx.Tx) {
			highest, err := bidRepo.GetHighestAcceptedBid(ctx, tx, auctionID)
			require.NoError(t, err)
			assert.Nil(t, highest)
		})

		list, err := bidRepo.GetBidsByAuctionID(ctx, auctionID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

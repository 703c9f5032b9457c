//go:build integration

package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floroz/motorbid/pkg/contracts"
	pkgdb "github.com/floroz/motorbid/pkg/database"
	"github.com/floroz/motorbid/pkg/testhelpers"
	"github.com/floroz/motorbid/services/auction-service/internal/adapters/database"
	"github.com/floroz/motorbid/services/auction-service/internal/domain/auctions"
	"github.com/floroz/motorbid/services/auction-service/migrations"
)

func newAuction(carMake string) *auctions.Auction {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &auctions.Auction{
		ID:           uuid.New(),
		ReservePrice: 100,
		Seller:       "alice",
		CreatedAt:    now,
		UpdatedAt:    now,
		AuctionEnd:   now.Add(time.Hour),
		Status:       auctions.StatusLive,
		Make:         carMake,
		Model:        "Model",
		Year:         2020,
		Color:        "Black",
		Mileage:      1000,
		ImageURL:     "https://cdn.example.com/car.jpg",
	}
}

func insert(t *testing.T, pool *pgxpool.Pool, repo *database.PostgresAuctionRepository, a *auctions.Auction) {
	t.Helper()
	ctx := context.Background()
	txManager := pkgdb.NewPostgresTransactionManager(pool, time.Second)
	tx, err := txManager.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.CreateAuction(ctx, tx, a))
	require.NoError(t, tx.Commit(ctx))
}

func TestAuctionRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testhelpers.NewTestDatabase(t, migrations.FS)
	defer testDB.Close()

	ctx := context.Background()
	pool := testDB.Pool
	repo := database.NewPostgresAuctionRepository(pool)

	t.Run("create and get", func(t *testing.T) {
		a := newAuction("Ford")
		insert(t, pool, repo, a)

		got, err := repo.GetAuctionByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.Seller, got.Seller)
		assert.Equal(t, auctions.StatusLive, got.Status)
		assert.True(t, a.UpdatedAt.Equal(got.UpdatedAt))
		assert.Nil(t, got.CurrentHighBid)
	})

	t.Run("missing auction", func(t *testing.T) {
		_, err := repo.GetAuctionByID(ctx, uuid.New())
		assert.ErrorIs(t, err, auctions.ErrAuctionNotFound)
	})

	t.Run("high bid only rises", func(t *testing.T) {
		a := newAuction("Audi")
		insert(t, pool, repo, a)

		raised, err := repo.RaiseHighBid(ctx, a.ID, 150)
		require.NoError(t, err)
		assert.True(t, raised)

		raised, err = repo.RaiseHighBid(ctx, a.ID, 120)
		require.NoError(t, err)
		assert.False(t, raised, "a lower replayed bid must not lower the high bid")

		raised, err = repo.RaiseHighBid(ctx, a.ID, 150)
		require.NoError(t, err)
		assert.False(t, raised)

		got, err := repo.GetAuctionByID(ctx, a.ID)
		require.NoError(t, err)
		require.NotNil(t, got.CurrentHighBid)
		assert.Equal(t, int64(150), *got.CurrentHighBid)
		assert.True(t, got.UpdatedAt.After(a.UpdatedAt))
	})

	t.Run("finish unknown auction", func(t *testing.T) {
		found, err := repo.FinishAuction(ctx, uuid.New(), auctions.Outcome{Status: auctions.StatusFinished})
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("finish records outcome", func(t *testing.T) {
		a := newAuction("Bugatti")
		insert(t, pool, repo, a)
		winner := "bob"
		amount := int64(500)

		found, err := repo.FinishAuction(ctx, a.ID, auctions.Outcome{Status: auctions.StatusFinished, Winner: &winner, SoldAmount: &amount})
		require.NoError(t, err)
		assert.True(t, found)

		got, err := repo.GetAuctionByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, auctions.StatusFinished, got.Status)
		require.NotNil(t, got.Winner)
		assert.Equal(t, "bob", *got.Winner)
	})

	t.Run("finish unsold auction", func(t *testing.T) {
		a := newAuction("Pagani")
		insert(t, pool, repo, a)

		found, err := repo.FinishAuction(ctx, a.ID, auctions.OutcomeOf(contracts.AuctionFinished{AuctionID: a.ID, ItemSold: false, Seller: a.Seller}))
		require.NoError(t, err)
		assert.True(t, found)

		got, err := repo.GetAuctionByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, auctions.StatusFinished, got.Status)
		assert.Nil(t, got.Winner)
		assert.Nil(t, got.SoldAmount)
	})

	t.Run("updated_at is strictly increasing and drives the catch-up query", func(t *testing.T) {
		a := newAuction("Zonda")
		insert(t, pool, repo, a)
		cursor := a.UpdatedAt

		txManager := pkgdb.NewPostgresTransactionManager(pool, time.Second)
		previous := a.UpdatedAt
		for i := 0; i < 3; i++ {
			tx, err := txManager.BeginTx(ctx)
			require.NoError(t, err)
			a.Mileage += 10
			require.NoError(t, repo.UpdateAuction(ctx, tx, a))
			require.NoError(t, tx.Commit(ctx))
			assert.True(t, a.UpdatedAt.After(previous))
			previous = a.UpdatedAt
		}

		since, err := repo.ListAuctionsUpdatedSince(ctx, &cursor)
		require.NoError(t, err)
		ids := make([]uuid.UUID, 0, len(since))
		for _, got := range since {
			ids = append(ids, got.ID)
			assert.True(t, got.UpdatedAt.After(cursor))
		}
		assert.Contains(t, ids, a.ID)

		all, err := repo.ListAuctionsUpdatedSince(ctx, nil)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(all), 4)
		for i := 1; i < len(all); i++ {
			assert.LessOrEqual(t, all[i-1].Make, all[i].Make, "listing is ordered by make")
		}
	})

	t.Run("delete", func(t *testing.T) {
		a := newAuction("Lancia")
		insert(t, pool, repo, a)

		txManager := pkgdb.NewPostgresTransactionManager(pool, time.Second)
		tx, err := txManager.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, repo.DeleteAuction(ctx, tx, a.ID))
		require.NoError(t, tx.Commit(ctx))

		_, err = repo.GetAuctionByID(ctx, a.ID)
		assert.ErrorIs(t, err, auctions.ErrAuctionNotFound)
	})
}

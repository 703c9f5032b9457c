package bids

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/floroz/motorbid/pkg/contracts"
	"github.com/floroz/motorbid/pkg/testhelpers"
)

type serviceFixture struct {
	service   *BiddingService
	store     *memoryStore
	fetcher   *MockAuctionFetcher
	outbox    *recordingOutbox
	notifier  *countingNotifier
	txManager *testhelpers.FakeTxManager
	now       time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		store:     newMemoryStore(),
		fetcher:   new(MockAuctionFetcher),
		outbox:    &recordingOutbox{},
		notifier:  &countingNotifier{},
		txManager: &testhelpers.FakeTxManager{},
		now:       time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}
	f.service = NewBiddingService(f.txManager, f.store, f.store, f.fetcher, f.outbox, f.notifier, discardLogger())
	// Each call moves the clock forward so bid times are distinct
	f.service.clock = func() time.Time {
		f.now = f.now.Add(time.Second)
		return f.now
	}
	return f
}

func (f *serviceFixture) liveAuction(t *testing.T, reserve int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, f.store.UpsertSnapshot(context.Background(), &AuctionSnapshot{
		ID:           id,
		AuctionEnd:   f.now.Add(time.Hour),
		Seller:       "alice",
		ReservePrice: reserve,
	}))
	return id
}

func TestPlaceBid_RanksSequence(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	auctionID := f.liveAuction(t, 90)

	want := []struct {
		bidder string
		amount int64
		status contracts.BidStatus
	}{
		{"bob", 100, contracts.BidStatusAccepted},
		{"carol", 80, contracts.BidStatusTooLow},
		{"dave", 150, contracts.BidStatusAccepted},
		{"erin", 150, contracts.BidStatusTooLow},
	}

	for _, w := range want {
		bid, err := f.service.PlaceBid(ctx, PlaceBidCommand{AuctionID: auctionID, Bidder: w.bidder, Amount: w.amount})
		require.NoError(t, err)
		assert.Equal(t, w.status, bid.Status, "bid of %d by %s", w.amount, w.bidder)
	}

	// Every attempt is recorded, only new high bids are announced
	assert.Len(t, f.store.bidsFor(auctionID), 4)
	placed := f.outbox.notifications()
	require.Len(t, placed, 2)
	assert.Equal(t, int64(100), placed[0].(contracts.BidPlaced).Amount)
	assert.Equal(t, int64(150), placed[1].(contracts.BidPlaced).Amount)
	assert.Equal(t, "dave", placed[1].(contracts.BidPlaced).Bidder)
	assert.Equal(t, 2, f.notifier.Count())

	for _, tx := range f.txManager.Txs {
		assert.True(t, tx.Committed())
	}
	f.fetcher.AssertNotCalled(t, "FetchAuction", mock.Anything, mock.Anything)
}

func TestPlaceBid_BelowReserveIsAnnounced(t *testing.T) {
	f := newServiceFixture(t)
	auctionID := f.liveAuction(t, 500)

	bid, err := f.service.PlaceBid(context.Background(), PlaceBidCommand{AuctionID: auctionID, Bidder: "bob", Amount: 200})
	require.NoError(t, err)
	assert.Equal(t, contracts.BidStatusAcceptedBelowReserve, bid.Status)

	placed := f.outbox.notifications()
	require.Len(t, placed, 1)
	n := placed[0].(contracts.BidPlaced)
	assert.Equal(t, bid.ID, n.ID)
	assert.Equal(t, auctionID, n.AuctionID)
	assert.Equal(t, contracts.BidStatusAcceptedBelowReserve, n.BidStatus)
	assert.True(t, bid.BidTime.Equal(n.BidTime))
}

func TestPlaceBid_SelfBidRecordsNothing(t *testing.T) {
	f := newServiceFixture(t)
	auctionID := f.liveAuction(t, 90)

	_, err := f.service.PlaceBid(context.Background(), PlaceBidCommand{AuctionID: auctionID, Bidder: "alice", Amount: 1000})
	assert.ErrorIs(t, err, ErrSelfBid)

	assert.Empty(t, f.store.bidsFor(auctionID))
	assert.Empty(t, f.outbox.notifications())
	assert.Zero(t, f.notifier.Count())
	assert.True(t, f.txManager.Last().RolledBack())
}

func TestPlaceBid_NegativeAmount(t *testing.T) {
	f := newServiceFixture(t)
	auctionID := f.liveAuction(t, 90)

	_, err := f.service.PlaceBid(context.Background(), PlaceBidCommand{AuctionID: auctionID, Bidder: "bob", Amount: -1})
	assert.ErrorIs(t, err, ErrInvalidBidAmount)
	assert.Empty(t, f.txManager.Txs)
}

func TestPlaceBid_EndedAuctionRecordsFinished(t *testing.T) {
	f := newServiceFixture(t)
	auctionID := uuid.New()
	require.NoError(t, f.store.UpsertSnapshot(context.Background(), &AuctionSnapshot{
		ID:         auctionID,
		AuctionEnd: f.now.Add(-time.Minute),
		Seller:     "alice",
	}))

	bid, err := f.service.PlaceBid(context.Background(), PlaceBidCommand{AuctionID: auctionID, Bidder: "bob", Amount: 1000})
	require.NoError(t, err)
	assert.Equal(t, contracts.BidStatusFinished, bid.Status)

	assert.Len(t, f.store.bidsFor(auctionID), 1)
	assert.Empty(t, f.outbox.notifications())
	assert.Zero(t, f.notifier.Count())
}

func TestPlaceBid_ReadThrough(t *testing.T) {
	t.Run("Missing snapshot is fetched and stored", func(t *testing.T) {
		f := newServiceFixture(t)
		auctionID := uuid.New()
		f.fetcher.On("FetchAuction", mock.Anything, auctionID).Return(&AuctionSnapshot{
			ID:           auctionID,
			AuctionEnd:   f.now.Add(time.Hour),
			Seller:       "alice",
			ReservePrice: 50,
		}, nil).Once()

		bid, err := f.service.PlaceBid(context.Background(), PlaceBidCommand{AuctionID: auctionID, Bidder: "bob", Amount: 60})
		require.NoError(t, err)
		assert.Equal(t, contracts.BidStatusAccepted, bid.Status)

		stored, err := f.store.GetSnapshot(context.Background(), auctionID)
		require.NoError(t, err)
		assert.Equal(t, int64(50), stored.ReservePrice)

		// The second bid uses the stored snapshot
		_, err = f.service.PlaceBid(context.Background(), PlaceBidCommand{AuctionID: auctionID, Bidder: "carol", Amount: 70})
		require.NoError(t, err)
		f.fetcher.AssertExpectations(t)
	})

	t.Run("Unknown auction", func(t *testing.T) {
		f := newServiceFixture(t)
		auctionID := uuid.New()
		f.fetcher.On("FetchAuction", mock.Anything, auctionID).Return(nil, ErrAuctionNotFound)

		_, err := f.service.PlaceBid(context.Background(), PlaceBidCommand{AuctionID: auctionID, Bidder: "bob", Amount: 60})
		assert.ErrorIs(t, err, ErrAuctionNotFound)
		assert.Empty(t, f.store.bidsFor(auctionID))
		assert.Empty(t, f.txManager.Txs)
	})

	t.Run("Owner unreachable", func(t *testing.T) {
		f := newServiceFixture(t)
		auctionID := uuid.New()
		f.fetcher.On("FetchAuction", mock.Anything, auctionID).Return(nil, errBoom)

		_, err := f.service.PlaceBid(context.Background(), PlaceBidCommand{AuctionID: auctionID, Bidder: "bob", Amount: 60})
		assert.ErrorIs(t, err, ErrAuctionUnavailable)
		assert.NotErrorIs(t, err, ErrAuctionNotFound)
		assert.Empty(t, f.store.bidsFor(auctionID))
	})
}

func TestPlaceBid_SaveFailureRollsBack(t *testing.T) {
	f := newServiceFixture(t)
	auctionID := f.liveAuction(t, 90)
	f.store.failSave = errBoom

	_, err := f.service.PlaceBid(context.Background(), PlaceBidCommand{AuctionID: auctionID, Bidder: "bob", Amount: 100})
	assert.ErrorIs(t, err, errBoom)
	assert.True(t, f.txManager.Last().RolledBack())
	assert.Empty(t, f.outbox.notifications())
	assert.Zero(t, f.notifier.Count())
}

func TestGetBidsForAuction_NewestFirst(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	auctionID := f.liveAuction(t, 0)

	for _, amount := range []int64{10, 20, 30} {
		_, err := f.service.PlaceBid(ctx, PlaceBidCommand{AuctionID: auctionID, Bidder: "bob", Amount: amount})
		require.NoError(t, err)
	}

	list, err := f.service.GetBidsForAuction(ctx, auctionID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, int64(30), list[0].Amount)
	assert.Equal(t, int64(10), list[2].Amount)

	empty, err := f.service.GetBidsForAuction(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestApplyAuctionCreated(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	created := contracts.AuctionCreated{
		ID:           uuid.New(),
		Seller:       "alice",
		ReservePrice: 300,
		AuctionEnd:   f.now.Add(time.Hour),
		Status:       "Live",
	}

	// Redelivery is harmless
	require.NoError(t, f.service.ApplyAuctionCreated(ctx, created))
	require.NoError(t, f.service.ApplyAuctionCreated(ctx, created))

	snap, err := f.store.GetSnapshot(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", snap.Seller)
	assert.Equal(t, int64(300), snap.ReservePrice)
	assert.False(t, snap.Finished)
}

func TestApplyAuctionDeleted(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	auctionID := f.liveAuction(t, 0)

	_, err := f.service.PlaceBid(ctx, PlaceBidCommand{AuctionID: auctionID, Bidder: "bob", Amount: 10})
	require.NoError(t, err)

	require.NoError(t, f.service.ApplyAuctionDeleted(ctx, contracts.AuctionDeleted{ID: auctionID}))
	require.NoError(t, f.service.ApplyAuctionDeleted(ctx, contracts.AuctionDeleted{ID: auctionID}))

	_, err = f.store.GetSnapshot(ctx, auctionID)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	assert.Len(t, f.store.bidsFor(auctionID), 1, "bids survive deletion")
}

func TestApplyAuctionDeleted_LateCreateIsIgnored(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	created := contracts.AuctionCreated{
		ID:         uuid.New(),
		Seller:     "alice",
		AuctionEnd: f.now.Add(time.Hour),
		Status:     "Live",
	}

	// A requeued AuctionCreated arrives after the delete
	require.NoError(t, f.service.ApplyAuctionDeleted(ctx, contracts.AuctionDeleted{ID: created.ID}))
	require.NoError(t, f.service.ApplyAuctionCreated(ctx, created))

	_, err := f.store.GetSnapshot(ctx, created.ID)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	f.fetcher.On("FetchAuction", mock.Anything, created.ID).Return(nil, ErrAuctionNotFound)
	_, err = f.service.PlaceBid(ctx, PlaceBidCommand{AuctionID: created.ID, Bidder: "bob", Amount: 100})
	assert.ErrorIs(t, err, ErrAuctionNotFound)
	assert.Empty(t, f.store.bidsFor(created.ID))
}

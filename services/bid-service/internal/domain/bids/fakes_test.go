package bids

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/floroz/motorbid/pkg/contracts"
	"github.com/floroz/motorbid/pkg/events"
)

// memoryStore is an in-memory BidRepository and SnapshotRepository.
// Writes made through a tx are visible immediately; tests assert on commit separately.
type memoryStore struct {
	mu        sync.Mutex
	bids      []*Bid
	snapshots map[uuid.UUID]AuctionSnapshot
	deleted   map[uuid.UUID]bool
	failSave  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{snapshots: map[uuid.UUID]AuctionSnapshot{}, deleted: map[uuid.UUID]bool{}}
}

func (s *memoryStore) SaveBid(_ context.Context, _ pgx.Tx, bid *Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave != nil {
		return s.failSave
	}
	cp := *bid
	s.bids = append(s.bids, &cp)
	return nil
}

func (s *memoryStore) GetHighestAcceptedBid(_ context.Context, _ pgx.Tx, auctionID uuid.UUID) (*Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var highest *Bid
	for _, b := range s.bids {
		if b.AuctionID != auctionID || !b.Status.IsAcceptedFamily() {
			continue
		}
		if highest == nil || b.Amount > highest.Amount ||
			(b.Amount == highest.Amount && b.BidTime.Before(highest.BidTime)) {
			highest = b
		}
	}
	return highest, nil
}

func (s *memoryStore) GetBidsByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*Bid, error) {
	return s.GetBidsByAuctionIDInTx(ctx, nil, auctionID)
}

func (s *memoryStore) GetBidsByAuctionIDInTx(_ context.Context, _ pgx.Tx, auctionID uuid.UUID) ([]*Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []*Bid{}
	for _, b := range s.bids {
		if b.AuctionID == auctionID {
			result = append(result, b)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].BidTime.After(result[j].BidTime) })
	return result, nil
}

func (s *memoryStore) GetSnapshot(_ context.Context, auctionID uuid.UUID) (*AuctionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[auctionID]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return &snap, nil
}

func (s *memoryStore) GetSnapshotForUpdate(ctx context.Context, _ pgx.Tx, auctionID uuid.UUID) (*AuctionSnapshot, error) {
	return s.GetSnapshot(ctx, auctionID)
}

func (s *memoryStore) CreateSnapshotIfAbsent(_ context.Context, _ pgx.Tx, snapshot *AuctionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snapshots[snapshot.ID]; !ok && !s.deleted[snapshot.ID] {
		s.snapshots[snapshot.ID] = *snapshot
	}
	return nil
}

func (s *memoryStore) UpsertSnapshot(_ context.Context, snapshot *AuctionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted[snapshot.ID] {
		return nil
	}
	next := *snapshot
	if existing, ok := s.snapshots[snapshot.ID]; ok && existing.Finished {
		next.Finished = true
	}
	s.snapshots[snapshot.ID] = next
	return nil
}

func (s *memoryStore) DeleteSnapshot(_ context.Context, auctionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, auctionID)
	s.deleted[auctionID] = true
	return nil
}

func (s *memoryStore) ListEndedUnfinished(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for id, snap := range s.snapshots {
		if !snap.Finished && !snap.AuctionEnd.After(now) && len(ids) < limit {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *memoryStore) MarkFinished(_ context.Context, _ pgx.Tx, auctionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[auctionID]
	if !ok {
		return ErrSnapshotNotFound
	}
	snap.Finished = true
	s.snapshots[auctionID] = snap
	return nil
}

func (s *memoryStore) bidsFor(auctionID uuid.UUID) []*Bid {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*Bid
	for _, b := range s.bids {
		if b.AuctionID == auctionID {
			result = append(result, b)
		}
	}
	return result
}

// MockOutboxRepository is a mock implementation of events.OutboxRepository for testing
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) SaveEvent(ctx context.Context, tx pgx.Tx, event *events.OutboxEvent) error {
	args := m.Called(ctx, tx, event)
	return args.Error(0)
}

func (m *MockOutboxRepository) AcquireRelayLock(ctx context.Context, tx pgx.Tx) (bool, error) {
	args := m.Called(ctx, tx)
	return args.Bool(0), args.Error(1)
}

func (m *MockOutboxRepository) GetPendingEvents(ctx context.Context, tx pgx.Tx, limit int) ([]*events.OutboxEvent, error) {
	args := m.Called(ctx, tx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*events.OutboxEvent), args.Error(1)
}

func (m *MockOutboxRepository) UpdateEventStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status events.OutboxStatus) error {
	args := m.Called(ctx, tx, id, status)
	return args.Error(0)
}

// recordingOutbox keeps every saved event for decoding in assertions
type recordingOutbox struct {
	MockOutboxRepository
	mu    sync.Mutex
	saved []*events.OutboxEvent
}

func (r *recordingOutbox) SaveEvent(_ context.Context, _ pgx.Tx, event *events.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, event)
	return nil
}

func (r *recordingOutbox) notifications() []contracts.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []contracts.Notification
	for _, e := range r.saved {
		n, err := contracts.Decode(contracts.EventType(e.EventType), e.Payload)
		if err != nil {
			panic(err)
		}
		result = append(result, n)
	}
	return result
}

// MockAuctionFetcher is a mock implementation of AuctionFetcher for testing
type MockAuctionFetcher struct {
	mock.Mock
}

func (m *MockAuctionFetcher) FetchAuction(ctx context.Context, auctionID uuid.UUID) (*AuctionSnapshot, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AuctionSnapshot), args.Error(1)
}

type countingNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *countingNotifier) Trigger() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
}

func (n *countingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

var errBoom = errors.New("boom")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

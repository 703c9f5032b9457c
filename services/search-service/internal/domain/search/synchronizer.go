package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// Synchronizer pulls every auction changed since the newest item held and
// merges it, so the read model converges after downtime without the broker.
type Synchronizer struct {
	service  *Service
	store    ItemStore
	source   AuctionSource
	interval time.Duration
	logger   *slog.Logger
}

// NewSynchronizer creates a synchronizer that retries every interval until it succeeds
func NewSynchronizer(service *Service, store ItemStore, source AuctionSource, interval time.Duration, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		service:  service,
		store:    store,
		source:   source,
		interval: interval,
		logger:   logger,
	}
}

// Run retries the catch-up pull on a fixed interval until one succeeds or ctx
// is cancelled. Every failure, including not-found answers, is retried.
func (s *Synchronizer) Run(ctx context.Context) (int, error) {
	var synced int
	err := retry.Do(ctx, retry.NewConstant(s.interval), func(ctx context.Context) error {
		n, err := s.SyncOnce(ctx)
		if err != nil {
			s.logger.Warn("Catch-up failed, retrying", "error", err, "delay", s.interval)
			return retry.RetryableError(err)
		}
		synced = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return synced, nil
}

// SyncOnce performs a single catch-up pull
func (s *Synchronizer) SyncOnce(ctx context.Context) (int, error) {
	cursor, err := s.store.MaxUpdatedAt(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read cursor: %w", err)
	}

	items, err := s.source.ListAuctionsUpdatedSince(ctx, cursor)
	if err != nil {
		return 0, fmt.Errorf("failed to pull auctions: %w", err)
	}

	for _, item := range items {
		if err := s.service.ApplyRecord(ctx, item); err != nil {
			return 0, err
		}
	}

	s.logger.Info("Catch-up complete", "count", len(items), "cursor", cursor)
	return len(items), nil
}

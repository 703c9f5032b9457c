// Package redis holds the search read model in Redis: one JSON document per
// auction plus a sorted set indexed by the owner's UpdatedAt.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/floroz/motorbid/services/search-service/internal/domain/search"
)

const (
	itemPrefix = "search:item:"
	updatedKey = "search:items:updated"

	// maxRetries bounds optimistic transaction attempts under contention
	maxRetries = 20
)

// ItemStore implements search.ItemStore
type ItemStore struct {
	client redis.UniversalClient
}

var _ search.ItemStore = (*ItemStore)(nil)

// NewItemStore creates a new Redis item store
func NewItemStore(client redis.UniversalClient) *ItemStore {
	return &ItemStore{client: client}
}

func (s *ItemStore) key(id uuid.UUID) string {
	return itemPrefix + id.String()
}

// Update reads the item under WATCH, runs fn, and writes the result in a
// MULTI block. A concurrent write to the same item aborts the block and fn is
// run again on the fresh value.
func (s *ItemStore) Update(ctx context.Context, id uuid.UUID, fn search.MergeFunc) (bool, error) {
	key := s.key(id)
	var changed bool

	txf := func(tx *redis.Tx) error {
		current, err := loadItem(ctx, tx, key)
		if err != nil {
			return err
		}

		next, ok := fn(current)
		changed = ok
		if !ok {
			return nil
		}

		if next == nil {
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				pipe.ZRem(ctx, updatedKey, id.String())
				return nil
			})
			return err
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal item: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAdd(ctx, updatedKey, redis.Z{Score: float64(next.UpdatedAt.UnixMicro()), Member: id.String()})
			return nil
		})
		return err
	}

	for i := 0; i < maxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return changed, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return false, fmt.Errorf("failed to update item %s: %w", id, err)
	}
	return false, fmt.Errorf("failed to update item %s: too much contention", id)
}

// Get returns one item or search.ErrItemNotFound
func (s *ItemStore) Get(ctx context.Context, id uuid.UUID) (*search.Item, error) {
	item, err := loadItem(ctx, s.client, s.key(id))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, search.ErrItemNotFound
	}
	return item, nil
}

// All returns every item in the read model
func (s *ItemStore) All(ctx context.Context) ([]search.Item, error) {
	ids, err := s.client.ZRange(ctx, updatedKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	if len(ids) == 0 {
		return []search.Item{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = itemPrefix + id
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}

	items := make([]search.Item, 0, len(values))
	for _, v := range values {
		// Deleted between ZRANGE and MGET
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var item search.Item
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// MaxUpdatedAt returns the newest owner timestamp held, or nil when empty
func (s *ItemStore) MaxUpdatedAt(ctx context.Context) (*time.Time, error) {
	top, err := s.client.ZRevRangeWithScores(ctx, updatedKey, 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read cursor: %w", err)
	}
	if len(top) == 0 {
		return nil, nil
	}
	ts := time.UnixMicro(int64(top[0].Score)).UTC()
	return &ts, nil
}

// getter is satisfied by both the client and a WATCH transaction
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func loadItem(ctx context.Context, c getter, key string) (*search.Item, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	var item search.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return &item, nil
}

// internal/rates/redis_store.go
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultSnapshotKey is the Redis key holding the last good rate table.
const DefaultSnapshotKey = "ledger:rates:snapshot"

// RedisStore persists the last good snapshot so restarts and sibling instances
// start from real prices instead of the static table.
type RedisStore struct {
	client     redis.Cmdable
	key        string
	expiration time.Duration
}

// NewRedisStore creates a RedisStore. A zero expiration keeps the snapshot forever.
func NewRedisStore(client redis.Cmdable, key string, expiration time.Duration) *RedisStore {
	if key == "" {
		key = DefaultSnapshotKey
	}
	return &RedisStore{client: client, key: key, expiration: expiration}
}

// Save stores t.
func (s *RedisStore) Save(ctx context.Context, t *Table) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal rate snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, s.expiration).Err(); err != nil {
		return fmt.Errorf("failed to store rate snapshot: %w", err)
	}
	return nil
}

// Load returns the stored snapshot, or nil when there is none.
func (s *RedisStore) Load(ctx context.Context) (*Table, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load rate snapshot: %w", err)
	}
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rate snapshot: %w", err)
	}
	return &t, nil
}

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis. Snapshots are stored as JSON under
// "gridsnap:snapshot:<source>", so several poller replicas, or an external
// dashboard, can share the latest poll. Keys expire TTL after the snapshot's
// CapturedAt, not after the write.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
}

// NewRedisStore creates a new Redis-backed store.
//
// Parameters:
//   - addr: Redis server address (e.g., "localhost:6379")
//   - password: Redis password (empty string for no auth)
//   - db: Redis database number (typically 0)
//   - ttl: Snapshot lifetime from capture (0 uses default of 4 hours)
//
// Returns an error if the connection to Redis fails or if parameters are invalid.
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if db < 0 {
		return nil, errors.New("redis database number must be >= 0")
	}

	if ttl == 0 {
		ttl = 4 * time.Hour
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
	}, nil
}

// Put stores s until its CapturedAt plus the TTL.
func (r *RedisStore) Put(ctx context.Context, s Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}

	remaining := r.ttl - time.Since(s.CapturedAt)
	if remaining <= 0 {
		return fmt.Errorf("put %s: %w", s.File, ErrExpired)
	}
	remaining = min(remaining, r.ttl)

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := r.client.Set(ctx, snapshotKey(s.Source), data, remaining).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot in redis: %w", err)
	}

	return nil
}

// GetLatest returns the snapshot stored for source. A missing or expired key
// is reported as found=false with a nil error.
func (r *RedisStore) GetLatest(ctx context.Context, source string) (Snapshot, bool, error) {
	if err := ValidateSource(source); err != nil {
		return Snapshot{}, false, err
	}

	data, err := r.client.Get(ctx, snapshotKey(source)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("failed to get snapshot from redis: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return snapshot, true, nil
}

func snapshotKey(source string) string {
	return fmt.Sprintf("gridsnap:snapshot:%s", source)
}

// Close closes the Redis client. It is idempotent.
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil
	}

	err := r.client.Close()
	r.client = nil
	if err != nil && err.Error() == "redis: client is closed" {
		return nil
	}

	return err
}

// Ping checks the Redis connection. It backs the poller's /healthz.
func (r *RedisStore) Ping(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.client == nil {
		return errors.New("redis store is closed")
	}
	return r.client.Ping(ctx).Err()
}

package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"passage/internal/pipeline/models"
	"passage/pkg/platform/sentinel"
)

const snapshotKeyPrefix = "passage:snapshot:"

// DefaultTTL bounds how stale a snapshot may be; a session restored from a
// week-old cache would mislead more than an empty screen.
const DefaultTTL = 72 * time.Hour

// Redis stores the collection snapshot as a single JSON blob per session key.
// This is the production store: snapshots survive process restarts and are
// shared by replacement sessions on the same workstation profile.
type Redis struct {
	client     *redis.Client
	sessionKey string
	ttl        time.Duration
}

// RedisOption configures the Redis snapshot store.
type RedisOption func(*Redis)

// WithTTL overrides the snapshot expiry.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewRedis builds a Redis snapshot store scoped to a session key.
func NewRedis(client *redis.Client, sessionKey string, opts ...RedisOption) *Redis {
	r := &Redis{
		client:     client,
		sessionKey: sessionKey,
		ttl:        DefaultTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key() string {
	return snapshotKeyPrefix + r.sessionKey
}

// Save serializes and stores the full collection with TTL.
func (r *Redis) Save(ctx context.Context, candidates []*models.Candidate) error {
	payload, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.key(), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// Load returns the stored collection, or sentinel.ErrNotFound when no
// snapshot exists (never saved, or expired).
func (r *Redis) Load(ctx context.Context) ([]*models.Candidate, error) {
	payload, err := r.client.Get(ctx, r.key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}

	var candidates []*models.Candidate
	if err := json.Unmarshal(payload, &candidates); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return candidates, nil
}

// Clear removes the stored snapshot.
func (r *Redis) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key()).Err()
}

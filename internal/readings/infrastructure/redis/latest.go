package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"mobility-cloud/internal/readings/application"
)

const (
	defaultKeyPrefix = "mobility:latest:"
	defaultTTL       = 24 * time.Hour
)

// LatestCache keeps the newest reading per origin in Redis.
type LatestCache struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// CacheOption configures the cache.
type CacheOption func(*LatestCache)

// WithTTL overrides the entry TTL.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *LatestCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithKeyPrefix overrides the key prefix.
func WithKeyPrefix(prefix string) CacheOption {
	return func(c *LatestCache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// NewLatestCache constructs a cache around an existing Redis client.
func NewLatestCache(client *goredis.Client, opts ...CacheOption) (*LatestCache, error) {
	if client == nil {
		return nil, errors.New("latest cache: nil client")
	}
	cache := &LatestCache{client: client, prefix: defaultKeyPrefix, ttl: defaultTTL}
	for _, opt := range opts {
		opt(cache)
	}
	return cache, nil
}

// SetLatest implements application.LatestCache.
func (c *LatestCache) SetLatest(ctx context.Context, origin string, view application.ReadingView) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("latest cache: marshal: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+origin, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("latest cache: set: %w", err)
	}
	return nil
}

// GetLatest implements application.LatestCache. A missing key is not an
// error; it reports nil so the caller falls back to the store.
func (c *LatestCache) GetLatest(ctx context.Context, origin string) (*application.ReadingView, error) {
	payload, err := c.client.Get(ctx, c.prefix+origin).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest cache: get: %w", err)
	}
	var view application.ReadingView
	if err := json.Unmarshal(payload, &view); err != nil {
		return nil, fmt.Errorf("latest cache: decode: %w", err)
	}
	return &view, nil
}

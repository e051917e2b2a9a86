// Package statscache caches per-recipient daily stats in Redis. The cache is
// strictly optional: a nil *Cache is valid and every call falls through to
// the SQL recompute path.
package statscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evenfall/nightpost/internal/server/models"
)

const statsKeyPrefix = "letters:stats:"

// DefaultTTL keeps stale stats short-lived even if an invalidation is missed.
const DefaultTTL = 60 * time.Second

type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func key(recipientID string) string {
	return statsKeyPrefix + recipientID
}

// Get returns the cached stats or (nil, nil) on a miss.
func (c *Cache) Get(ctx context.Context, recipientID string) (*models.DailyStats, error) {
	if c == nil {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, key(recipientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached stats: %w", err)
	}
	var stats models.DailyStats
	if err := json.Unmarshal(data, &stats); err != nil {
		// Malformed entry: treat as a miss, it will be overwritten.
		return nil, nil
	}
	return &stats, nil
}

func (c *Cache) Set(ctx context.Context, recipientID string, stats *models.DailyStats) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	if err := c.rdb.Set(ctx, key(recipientID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache stats: %w", err)
	}
	return nil
}

func (c *Cache) Invalidate(ctx context.Context, recipientID string) error {
	if c == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, key(recipientID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate stats: %w", err)
	}
	return nil
}

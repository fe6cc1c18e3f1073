package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/signalbeam/signalbeam/internal/model"
)

// Cache key prefixes and TTLs.
const (
	statsKeyPrefix = "stats:"

	// DefaultStatsTTL bounds how stale a cached stats response may be.
	// Dashboards poll the stats endpoint; a short TTL keeps repeated
	// polls off Postgres without hiding fresh data for long.
	DefaultStatsTTL = 30 * time.Second
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// StatsCacheKey derives the cache key for a stats query. The since
// timestamp is truncated to the second so equivalent polls share an
// entry.
func StatsCacheKey(since time.Time, types []string) string {
	key := statsKeyPrefix + since.UTC().Truncate(time.Second).Format(time.RFC3339)
	if len(types) > 0 {
		key += ":" + strings.Join(types, ",")
	}
	return key
}

// GetStats retrieves a cached stats response.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetStats(ctx context.Context, key string) (*model.StatsResponse, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var resp model.StatsResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		// A corrupt entry is treated as a miss; it will be overwritten.
		return nil, ErrCacheMiss
	}

	return &resp, nil
}

// SetStats stores a stats response with the default TTL.
func (c *Cache) SetStats(ctx context.Context, key string, resp *model.StatsResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal stats response: %w", err)
	}

	if err := c.client.SetEx(ctx, key, raw, DefaultStatsTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache stats: %w", err)
	}

	return nil
}

// InvalidateStats removes all cached stats entries. Used by tests and
// the retention sweep after bulk deletes.
func (c *Cache) InvalidateStats(ctx context.Context) error {
	var cursor uint64

	for {
		keys, next, err := c.client.Scan(ctx, cursor, statsKeyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan stats keys: %w", err)
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete stats keys: %w", err)
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return nil
}

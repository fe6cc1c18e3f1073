package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// sessionTTL keeps abandoned session keys from accumulating. Every
// successful Get refreshes the window.
const sessionTTL = 30 * 24 * time.Hour

// RedisStore persists session identifiers in Redis, sharing them
// across processes behind the same key.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store from a Redis URL.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping Redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get returns the stored identifier or ErrNotFound, refreshing the
// key's TTL on a hit.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.GetEx(ctx, key, sessionTTL).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get session key: %w", err)
	}
	return value, nil
}

// Set stores the identifier with the session TTL.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, sessionTTL).Err(); err != nil {
		return fmt.Errorf("set session key: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

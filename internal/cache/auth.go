package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const (
	// authCachePrefix is the Redis key prefix for verified ingest keys.
	authCachePrefix = "auth:ingest:"
	// authCacheTTL is the time-to-live for verification results.
	authCacheTTL = 5 * time.Minute
)

// IsKeyVerified reports whether the presented ingest key recently passed
// Argon2id verification. A cached hit skips the expensive hash on hot paths.
// Redis errors are treated as a miss.
func (c *Cache) IsKeyVerified(ctx context.Context, presentedKey string) bool {
	key := authCachePrefix + fingerprint(presentedKey)

	ok, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return ok == "1"
}

// MarkKeyVerified records a successful ingest-key verification.
func (c *Cache) MarkKeyVerified(ctx context.Context, presentedKey string) error {
	key := authCachePrefix + fingerprint(presentedKey)
	return c.client.Set(ctx, key, "1", authCacheTTL).Err()
}

// fingerprint hashes the presented key so the raw secret never reaches Redis.
func fingerprint(presentedKey string) string {
	sum := sha256.Sum256([]byte(presentedKey))
	return hex.EncodeToString(sum[:16])
}

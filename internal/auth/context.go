// Package auth provides ingest-key generation and verification.
package auth

import (
	"context"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// keyPrefixContextKey is the context key for the verified key prefix.
	keyPrefixContextKey contextKey = "ingest_key_prefix"
)

// ContextWithKeyPrefix records the verified ingest key's visible prefix
// on the context. The prefix is safe to log; the secret never is.
func ContextWithKeyPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, keyPrefixContextKey, prefix)
}

// KeyPrefixFromContext retrieves the verified key prefix from the context.
// Returns empty string if the request was not authenticated.
func KeyPrefixFromContext(ctx context.Context) string {
	prefix, ok := ctx.Value(keyPrefixContextKey).(string)
	if !ok {
		return ""
	}
	return prefix
}

package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/signalbeam/signalbeam/internal/auth"
	"github.com/signalbeam/signalbeam/internal/cache"
)

const (
	// minAuthDuration is the minimum time to spend on auth to prevent timing attacks.
	minAuthDuration = 200 * time.Millisecond
)

// AuthConfig holds configuration for the ingest auth middleware.
type AuthConfig struct {
	Logger *slog.Logger
	Cache  *cache.Cache
	// IngestKeyHash is the Argon2id hash the presented key must match.
	// Empty hash disables authentication (development only).
	IngestKeyHash string
}

// IngestAuth returns a middleware that authenticates ingest requests.
// It extracts the ingest key from the request, verifies it against the
// configured hash, and records the key prefix on the request context.
func IngestAuth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.IngestKeyHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			startTime := time.Now()

			// Ensure consistent timing regardless of outcome
			defer func() {
				elapsed := time.Since(startTime)
				if elapsed < minAuthDuration {
					time.Sleep(minAuthDuration - elapsed)
				}
			}()

			key := extractIngestKey(r)
			if key == "" {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "missing_key"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			// Validate key format
			parsed, err := auth.ParseIngestKey(key)
			if err != nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "invalid_format"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			// Cached verification skips the Argon2 hash on hot paths
			cacheHit := cfg.Cache != nil && cfg.Cache.IsKeyVerified(r.Context(), key)

			if !cacheHit {
				match, err := auth.VerifyKey(key, cfg.IngestKeyHash)
				if err != nil || !match {
					cfg.Logger.Warn("authentication failed",
						slog.String("reason", "invalid_key"),
						slog.String("key_prefix", parsed.Prefix),
						slog.String("ip", r.RemoteAddr),
						slog.String("endpoint", r.Method+" "+r.URL.Path),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					writeAuthError(w)
					return
				}

				if cfg.Cache != nil {
					_ = cfg.Cache.MarkKeyVerified(r.Context(), key)
				}
			}

			cfg.Logger.Info("authentication successful",
				slog.String("key_prefix", parsed.Prefix),
				slog.String("ip", r.RemoteAddr),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.Bool("cache_hit", cacheHit),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.ContextWithKeyPrefix(r.Context(), parsed.Prefix)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractIngestKey extracts the ingest key from the request.
// Supports both "Authorization: Bearer <key>" and "X-Ingest-Key: <key>" headers.
func extractIngestKey(r *http.Request) string {
	// Try Authorization header first
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		if strings.HasPrefix(authHeader, "Bearer ") {
			return strings.TrimPrefix(authHeader, "Bearer ")
		}
	}

	// Fall back to X-Ingest-Key header
	return r.Header.Get("X-Ingest-Key")
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Invalid or missing ingest key"}}`))
}

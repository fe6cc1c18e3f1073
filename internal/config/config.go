// Package config provides collector configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all collector configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache and stream transport (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Ingest authentication. Argon2id hash of the ingest key; when empty
	// the ingest endpoint accepts unauthenticated batches (dev only).
	IngestKeyHash string `env:"INGEST_KEY_HASH" envDefault:""`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Ingest limits
	MaxBatchEvents     int   `env:"MAX_BATCH_EVENTS" envDefault:"100"`
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Rate limiting
	RateLimitIngestEnabled bool `env:"RATE_LIMIT_INGEST_ENABLED" envDefault:"true"`
	RateLimitIngestRPS     int  `env:"RATE_LIMIT_INGEST_RPS" envDefault:"50"`
	RateLimitIngestBurst   int  `env:"RATE_LIMIT_INGEST_BURST" envDefault:"100"`

	// Stream pipeline
	StreamWorkerEnabled bool          `env:"STREAM_WORKER_ENABLED" envDefault:"true"`
	StreamBatchSize     int           `env:"STREAM_BATCH_SIZE" envDefault:"100"`
	StreamBlockTimeout  time.Duration `env:"STREAM_BLOCK_TIMEOUT" envDefault:"5s"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

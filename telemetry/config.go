package telemetry

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/coder/quartz"

	"github.com/signalbeam/signalbeam/session"
)

// Defaults applied when the corresponding Config field is zero.
const (
	// DefaultBatchSize is the queue length that triggers a flush.
	DefaultBatchSize = 10

	// DefaultFlushInterval is the inactivity window before a
	// time-based flush.
	DefaultFlushInterval = 5 * time.Second

	// DefaultEndpoint is the collector ingest path.
	DefaultEndpoint = "/api/telemetry"

	// DefaultSessionKey is the storage key for the persisted session
	// identifier.
	DefaultSessionKey = "signalbeam_session"
)

// Config controls engine construction. All fields are optional; the
// zero value yields a working engine with the documented defaults.
// The configuration is snapshotted at construction time and never
// re-read.
type Config struct {
	// Debug enables verbose informational logging independent of
	// dev-mode detection.
	Debug bool

	// BatchSize is the event count that triggers a flush.
	BatchSize int

	// FlushInterval is how long a non-empty queue may sit idle before
	// a time-based flush is armed.
	FlushInterval time.Duration

	// Endpoint is the collector URL for batch delivery.
	Endpoint string

	// UseBeacon enables the teardown flush on lifecycle signals.
	// Engines are created with it enabled unless DisableBeacon is set.
	DisableBeacon bool

	// SessionKey is the storage key used by the default session
	// resolver.
	SessionKey string

	// SessionProvider overrides session-id resolution. When set,
	// SessionReset should release whatever state it caches.
	SessionProvider func() string
	SessionReset    func()

	// PageProvider resolves the current page path per event.
	PageProvider func() string

	// DevMode reports whether the host runs in development mode;
	// informational logs are emitted when it returns true.
	DevMode func() bool

	// Logger receives engine logs. Defaults to slog.Default().
	Logger *slog.Logger

	// HTTPClient performs standard and teardown sends.
	HTTPClient *http.Client

	// Clock drives all timers; tests inject a quartz mock.
	Clock quartz.Clock

	// Lifecycle supplies teardown signals for the beacon path. Nil
	// disables the teardown flush even when beacons are enabled.
	Lifecycle Lifecycle

	// Sender overrides the delivery transport; used by tests.
	Sender Sender
}

// withDefaults resolves the construction-time snapshot.
func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.SessionKey == "" {
		c.SessionKey = DefaultSessionKey
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Clock == nil {
		c.Clock = quartz.NewReal()
	}
	if c.HTTPClient == nil {
		c.HTTPClient = NewHTTPClient()
	}
	if c.DevMode == nil {
		c.DevMode = defaultDevMode
	}
	if c.PageProvider == nil {
		c.PageProvider = defaultPage
	}
	if c.SessionProvider == nil {
		resolver := session.NewResolver(session.NewMemoryStore(), c.SessionKey)
		c.SessionProvider = resolver.Provider()
		c.SessionReset = resolver.Reset
	}
	return c
}

// defaultDevMode mirrors the collector's environment convention.
func defaultDevMode() bool {
	return os.Getenv("APP_ENV") == "development"
}

// defaultPage stands in for a page path when the host has none.
func defaultPage() string {
	return "/"
}

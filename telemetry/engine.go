package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/quartz"
)

// flushState is the scheduler state of an engine instance.
type flushState int

const (
	// stateIdle: no pending timer, queue below thresholds.
	stateIdle flushState = iota
	// stateArmed: a timer is pending (interval, immediate, or backoff).
	stateArmed
	// stateFlushing: a delivery attempt is in flight.
	stateFlushing
)

// Engine buffers telemetry events and delivers them in batches. Create
// one with New; all methods are safe for concurrent use. Tracking
// calls only append to the in-memory queue and return immediately.
type Engine struct {
	cfg    Config
	logger *slog.Logger
	clock  quartz.Clock
	sender Sender

	mu          sync.Mutex
	queue       eventQueue
	state       flushState
	timer       *quartz.Timer
	immediate   bool // pending timer is zero-delay
	breaker     breaker
	session     string
	disposed    bool
	unsubscribe func()

	stats engineStats
}

// New creates a configured engine. The configuration is snapshotted;
// later mutation of cfg has no effect.
func New(cfg Config) *Engine {
	cfg = cfg.withDefaults()

	e := &Engine{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "telemetry.engine"),
		clock:  cfg.Clock,
		sender: cfg.Sender,
	}
	if e.sender == nil {
		e.sender = NewHTTPSender(cfg.HTTPClient, cfg.Endpoint, cfg.Logger)
	}

	if !cfg.DisableBeacon && cfg.Lifecycle != nil {
		e.unsubscribe = cfg.Lifecycle.OnTeardown(e.teardownFlush)
	}

	return e
}

// TrackMetric records a metric event. Rating and properties may be
// zero values.
func (e *Engine) TrackMetric(name string, value float64, rating Rating, props map[string]any) {
	v := value
	e.track(Event{
		Type:       TypeMetric,
		Name:       name,
		Value:      &v,
		Rating:     rating,
		Properties: props,
	})
}

// TrackEvent records a generic event.
func (e *Engine) TrackEvent(name string, props map[string]any) {
	e.track(Event{
		Type:       TypeEvent,
		Name:       name,
		Properties: props,
	})
}

// TrackError records an error event. The cause may be any value; its
// string form becomes the "message" property and a stack trace is
// attached for structured errors. Caller properties are kept except
// where they collide with the normalized keys.
func (e *Engine) TrackError(name string, cause any, props map[string]any) {
	e.track(Event{
		Type:       TypeError,
		Name:       name,
		Properties: errorProperties(cause, props),
	})
}

// TrackTrace records a trace event.
func (e *Engine) TrackTrace(name string, props map[string]any) {
	e.track(Event{
		Type:       TypeTrace,
		Name:       name,
		Properties: props,
	})
}

// CaptureException records an error event named "exception" with the
// given context and additionally logs the error locally, independent
// of delivery.
func (e *Engine) CaptureException(cause any, context map[string]any) {
	e.logger.Error("exception captured", "error", cause)
	e.TrackError("exception", cause, context)
}

// TrackPageView records a "page_view" event with the path merged into
// its properties.
func (e *Engine) TrackPageView(path string, props map[string]any) {
	merged := make(map[string]any, len(props)+1)
	for k, v := range props {
		merged[k] = v
	}
	merged["path"] = path
	e.TrackEvent("page_view", merged)
}

// Flush requests an out-of-band delivery attempt. It does not bypass
// an open backoff window; within one, the attempt is deferred to the
// window's expiry.
func (e *Engine) Flush() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.queue.len() == 0 {
		return
	}
	e.scheduleImmediateLocked()
}

// SessionID returns the resolved session identifier, caching it on
// first resolution.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	if e.session != "" {
		id := e.session
		e.mu.Unlock()
		return id
	}
	e.mu.Unlock()

	// Resolution may hit storage; keep it outside the engine mutex.
	id := e.cfg.SessionProvider()

	e.mu.Lock()
	if e.session == "" {
		e.session = id
	}
	id = e.session
	e.mu.Unlock()
	return id
}

// Stats returns a snapshot of engine counters.
func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

// Cleanup disposes the engine: lifecycle listeners are deregistered,
// pending timers cancelled, and cached session state cleared. It is
// idempotent. Tracking calls after Cleanup still append to the queue
// but nothing will ever flush again.
func (e *Engine) Cleanup() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.disposed = true
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.state = stateIdle
	e.immediate = false
	e.session = ""
	unsubscribe := e.unsubscribe
	e.unsubscribe = nil
	e.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if e.cfg.SessionReset != nil {
		e.cfg.SessionReset()
	}
}

// track stamps and enqueues one event, then evaluates the flush
// thresholds.
func (e *Engine) track(ev Event) {
	ev.Timestamp = e.clock.Now().UnixMilli()
	ev.SessionID = e.SessionID()
	ev.Page = e.cfg.PageProvider()

	e.mu.Lock()
	n := e.queue.push(ev)
	e.stats.tracked.Add(1)

	if n >= e.cfg.BatchSize {
		e.scheduleImmediateLocked()
	} else if e.state == stateIdle {
		e.armLocked(e.cfg.FlushInterval)
	}
	e.mu.Unlock()
}

// scheduleImmediateLocked arms a zero-delay flush unless one is
// already pending or an attempt is in flight. Within a backoff window
// the timer lands on the window's expiry instead.
func (e *Engine) scheduleImmediateLocked() {
	if e.state == stateFlushing || (e.state == stateArmed && e.immediate) {
		return
	}
	e.armLocked(0)
}

// armLocked sets the flush timer. The effective delay never undercuts
// the remaining backoff window.
func (e *Engine) armLocked(d time.Duration) {
	if e.disposed || e.state == stateFlushing {
		return
	}
	if remaining := e.breaker.remaining(e.clock.Now()); remaining > d {
		d = remaining
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = e.clock.AfterFunc(d, e.onTimer)
	e.immediate = d == 0
	e.state = stateArmed
}

// onTimer runs on the timer goroutine and starts a delivery attempt
// when one is permitted.
func (e *Engine) onTimer() {
	e.mu.Lock()
	e.timer = nil
	e.immediate = false

	if e.disposed || e.state == stateFlushing {
		e.mu.Unlock()
		return
	}
	if e.queue.len() == 0 {
		e.state = stateIdle
		e.mu.Unlock()
		return
	}
	// A failure may have opened a backoff window after this timer was
	// armed; defer rather than drop.
	if remaining := e.breaker.remaining(e.clock.Now()); remaining > 0 {
		e.state = stateIdle
		e.armLocked(remaining)
		e.mu.Unlock()
		return
	}

	batch := e.queue.drain()
	e.state = stateFlushing
	e.mu.Unlock()

	e.deliver(batch)
}

// deliver performs one delivery attempt and applies the outcome to the
// breaker and scheduler. It runs off the tracking path, on the timer
// goroutine.
func (e *Engine) deliver(batch []Event) {
	err := e.sender.Send(context.Background(), batch)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		// The instance was cleaned up mid-flight; discard the result.
		return
	}
	e.state = stateIdle

	if err != nil {
		e.stats.failedAttempts.Add(1)
		dropped := e.queue.requeue(batch)
		if dropped > 0 {
			e.stats.dropped.Add(uint64(dropped))
		}

		now := e.clock.Now()
		delay := e.breaker.failure(now)
		if e.breaker.shouldWarn(now) {
			e.logger.Warn("telemetry delivery failed",
				"attempt", e.breaker.failures,
				"retry_in", delay,
				"requeued", e.queue.len(),
				"dropped", dropped,
				"error", err,
			)
		}
		e.armLocked(delay)
		return
	}

	e.breaker.success()
	e.stats.delivered.Add(uint64(len(batch)))
	e.debugLog("telemetry batch delivered", "count", len(batch))

	// Events collected during the attempt are already in the fresh
	// queue; pick them up on the next cycle.
	if e.queue.len() >= e.cfg.BatchSize {
		e.armLocked(0)
	} else if e.queue.len() > 0 {
		e.armLocked(e.cfg.FlushInterval)
	}
}

// teardownFlush sends the current queue once, fire-and-forget, and
// empties it regardless of outcome. Invoked only from lifecycle
// signals.
func (e *Engine) teardownFlush() {
	e.mu.Lock()
	if e.disposed || e.cfg.DisableBeacon || e.queue.len() == 0 {
		e.mu.Unlock()
		return
	}
	batch := e.queue.drain()
	e.mu.Unlock()

	e.sender.SendBeacon(batch)
}

// debugLog emits informational logs when debug or dev mode is on.
func (e *Engine) debugLog(msg string, args ...any) {
	if e.cfg.Debug || e.cfg.DevMode() {
		e.logger.Debug(msg, args...)
	}
}

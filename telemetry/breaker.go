package telemetry

import "time"

// Backoff schedule for consecutive delivery failures.
// Failure 1: 5s, failure 2: 10s, then doubling up to the 5 minute cap.
const (
	// BackoffBase is the delay after the first failure.
	BackoffBase = 5 * time.Second

	// BackoffMax caps the delay regardless of failure count.
	BackoffMax = 5 * time.Minute

	// WarnInterval is the minimum wall-clock time between failure
	// warnings, independent of how many failures occur in between.
	WarnInterval = 60 * time.Second
)

// BackoffDelay returns the delay before the next delivery attempt
// after the nth consecutive failure (1-indexed).
func BackoffDelay(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}

	delay := BackoffBase
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay >= BackoffMax {
			return BackoffMax
		}
	}
	return delay
}

// breaker tracks consecutive delivery failures and computes the
// backoff window protecting the collector from retry storms. It never
// discards events; it only delays the next attempt.
type breaker struct {
	failures     int
	backoffUntil time.Time
	lastWarn     time.Time
}

// failure records a failed delivery and returns the armed backoff
// delay.
func (b *breaker) failure(now time.Time) time.Duration {
	b.failures++
	delay := BackoffDelay(b.failures)
	b.backoffUntil = now.Add(delay)
	return delay
}

// success resets the breaker unconditionally.
func (b *breaker) success() {
	b.failures = 0
	b.backoffUntil = time.Time{}
}

// remaining returns how much of the backoff window is left, or zero
// when delivery attempts are permitted.
func (b *breaker) remaining(now time.Time) time.Duration {
	if b.backoffUntil.IsZero() || !now.Before(b.backoffUntil) {
		return 0
	}
	return b.backoffUntil.Sub(now)
}

// shouldWarn reports whether a failure warning may be emitted now,
// advancing the suppression window when it returns true.
func (b *breaker) shouldWarn(now time.Time) bool {
	if !b.lastWarn.IsZero() && now.Sub(b.lastWarn) < WarnInterval {
		return false
	}
	b.lastWarn = now
	return true
}

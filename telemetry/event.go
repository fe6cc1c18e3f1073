package telemetry

import (
	"fmt"
	"runtime/debug"
)

// Type classifies a telemetry event.
type Type string

// Event types.
const (
	TypeMetric Type = "metric"
	TypeEvent  Type = "event"
	TypeError  Type = "error"
	TypeTrace  Type = "trace"
)

// Rating is a qualitative classification of a metric value.
type Rating string

// Metric ratings.
const (
	RatingGood             Rating = "good"
	RatingNeedsImprovement Rating = "needs-improvement"
	RatingPoor             Rating = "poor"
)

// Event is a single telemetry record. Events are immutable once they
// enter the queue; the engine stamps Timestamp, SessionID, and Page at
// creation time.
type Event struct {
	Type       Type           `json:"type"`
	Name       string         `json:"name"`
	Value      *float64       `json:"value,omitempty"`
	Rating     Rating         `json:"rating,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`

	// Timestamp is the creation time in Unix milliseconds.
	Timestamp int64  `json:"timestamp"`
	SessionID string `json:"sessionId"`
	Page      string `json:"page"`
}

// ValidType reports whether t is one of the known event types.
func ValidType(t Type) bool {
	switch t {
	case TypeMetric, TypeEvent, TypeError, TypeTrace:
		return true
	}
	return false
}

// ValidRating reports whether r is one of the known ratings.
func ValidRating(r Rating) bool {
	switch r {
	case RatingGood, RatingNeedsImprovement, RatingPoor:
		return true
	}
	return false
}

// errorProperties normalizes an arbitrary error-ish value into event
// properties. The string form of the value becomes "message"; a stack
// trace is attached only when the value is a structured error. Caller
// properties are preserved except where they collide with the two
// normalized keys.
func errorProperties(cause any, props map[string]any) map[string]any {
	merged := make(map[string]any, len(props)+2)
	for k, v := range props {
		merged[k] = v
	}

	switch err := cause.(type) {
	case error:
		merged["message"] = err.Error()
		merged["stack"] = string(debug.Stack())
	default:
		merged["message"] = fmt.Sprint(cause)
	}

	return merged
}

// Package model defines domain entities for the collector.
package model

import (
	"time"

	"github.com/signalbeam/signalbeam/telemetry"
)

// StoredEvent is a telemetry event as persisted by the collector. The
// wire shape comes from the SDK; the collector adds a time-sortable
// identifier and the ingest timestamp.
type StoredEvent struct {
	ID string `json:"id"` // ULID (time-sortable)

	Type       string         `json:"type"`
	Name       string         `json:"name"`
	Value      *float64       `json:"value,omitempty"`
	Rating     string         `json:"rating,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`

	SessionID string `json:"session_id"`
	Page      string `json:"page"`

	// OccurredAt is the client-side creation time.
	OccurredAt time.Time `json:"occurred_at"`
	// ReceivedAt is when the collector accepted the event.
	ReceivedAt time.Time `json:"received_at"`
}

// FromWire converts a wire event into its stored form.
func FromWire(id string, ev telemetry.Event, receivedAt time.Time) *StoredEvent {
	return &StoredEvent{
		ID:         id,
		Type:       string(ev.Type),
		Name:       ev.Name,
		Value:      ev.Value,
		Rating:     string(ev.Rating),
		Properties: ev.Properties,
		SessionID:  ev.SessionID,
		Page:       ev.Page,
		OccurredAt: time.UnixMilli(ev.Timestamp).UTC(),
		ReceivedAt: receivedAt.UTC(),
	}
}

// IngestLag returns how long the event sat between client creation and
// collector receipt.
func (e *StoredEvent) IngestLag() time.Duration {
	return e.ReceivedAt.Sub(e.OccurredAt)
}

// TypeSummary aggregates event counts for the stats endpoint.
type TypeSummary struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// StatsResponse is the stats API payload.
type StatsResponse struct {
	Since       time.Time     `json:"since"`
	Total       int64         `json:"total"`
	ByType      []TypeSummary `json:"by_type"`
	GeneratedAt time.Time     `json:"generated_at"`
}

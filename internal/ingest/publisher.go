// Package ingest provides telemetry event capture and processing.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/signalbeam/signalbeam/internal/model"
)

const (
	// StreamKey is the Redis stream for telemetry events.
	StreamKey = "stream:telemetry_events"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:telemetry_events:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000
)

// EventPayload is the compressed event format for the Redis stream.
// The ULID is minted at ingest so replays stay idempotent downstream.
type EventPayload struct {
	ID         string         `json:"id"`            // ULID
	Type       string         `json:"t"`             // event type
	Name       string         `json:"n"`             // event name
	Value      *float64       `json:"v,omitempty"`   // metric value
	Rating     string         `json:"r,omitempty"`   // metric rating
	Properties map[string]any `json:"p,omitempty"`   // custom properties
	SessionID  string         `json:"s"`             // session_id
	Page       string         `json:"pg"`            // page path
	OccurredAt int64          `json:"oa"`            // client time, Unix ms
	ReceivedAt int64          `json:"ra"`            // ingest time, Unix ms
}

// Stored converts the payload into its persisted form.
func (p EventPayload) Stored() *model.StoredEvent {
	return &model.StoredEvent{
		ID:         p.ID,
		Type:       p.Type,
		Name:       p.Name,
		Value:      p.Value,
		Rating:     p.Rating,
		Properties: p.Properties,
		SessionID:  p.SessionID,
		Page:       p.Page,
		OccurredAt: time.UnixMilli(p.OccurredAt).UTC(),
		ReceivedAt: time.UnixMilli(p.ReceivedAt).UTC(),
	}
}

// PayloadFromStored converts a stored event into its stream form.
func PayloadFromStored(ev *model.StoredEvent) EventPayload {
	return EventPayload{
		ID:         ev.ID,
		Type:       ev.Type,
		Name:       ev.Name,
		Value:      ev.Value,
		Rating:     ev.Rating,
		Properties: ev.Properties,
		SessionID:  ev.SessionID,
		Page:       ev.Page,
		OccurredAt: ev.OccurredAt.UnixMilli(),
		ReceivedAt: ev.ReceivedAt.UnixMilli(),
	}
}

// Publisher enqueues telemetry events to the Redis stream.
type Publisher struct {
	redis  *redis.Client
	logger *slog.Logger
}

// NewPublisher creates a new ingest event publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger) *Publisher {
	return &Publisher{
		redis:  client,
		logger: logger.With("component", "ingest.publisher"),
	}
}

// PublishBatch adds a batch of events to the stream in one pipeline round trip.
// Returns the number of events published before the first error.
func (p *Publisher) PublishBatch(ctx context.Context, events []EventPayload) (int, error) {
	pipe := p.redis.Pipeline()

	for i, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return i, fmt.Errorf("marshal event %d: %w", i, err)
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: StreamKey,
			MaxLen: MaxStreamLen,
			Approx: true,
			ID:     "*",
			Values: map[string]interface{}{
				"payload": string(data),
			},
		})
	}

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		// Count how many XADDs actually landed
		published := 0
		for _, cmd := range cmds {
			if cmd.Err() == nil {
				published++
			}
		}
		return published, fmt.Errorf("pipeline exec: %w", err)
	}

	p.logger.Debug("batch published",
		"events_count", len(events),
		"stream", StreamKey,
	)

	return len(events), nil
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/signalbeam/signalbeam/internal/model"
)

// EventRepository provides database access for telemetry events.
type EventRepository struct {
	repo *Repository
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(repo *Repository) *EventRepository {
	return &EventRepository{repo: repo}
}

// BulkInsert inserts multiple telemetry events with idempotency via
// ON CONFLICT DO NOTHING. Event IDs are ULIDs minted at ingest, so a
// replayed stream entry never produces a duplicate row.
func (r *EventRepository) BulkInsert(ctx context.Context, events []*model.StoredEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Use COPY for large batches, but for moderate sizes (< 1000), use multi-row INSERT
	batch := &pgx.Batch{}

	query := `
		INSERT INTO telemetry_events (
			id, event_type, name, value, rating, properties,
			session_id, page, occurred_at, received_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (id) DO NOTHING
	`

	for _, event := range events {
		propsJSON, err := json.Marshal(event.Properties)
		if err != nil {
			return fmt.Errorf("marshal properties for %s: %w", event.ID, err)
		}

		batch.Queue(query,
			event.ID,
			event.Type,
			event.Name,
			event.Value,
			nullableString(event.Rating),
			propsJSON,
			event.SessionID,
			event.Page,
			event.OccurredAt,
			event.ReceivedAt,
		)
	}

	results := r.repo.pool.SendBatch(ctx, batch)
	defer results.Close()

	// Check for errors in batch execution
	for i := 0; i < len(events); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert event %d: %w", i, err)
		}
	}

	return nil
}

// CountsByType returns per-type event counts since the given time.
// An empty types slice means all types.
func (r *EventRepository) CountsByType(ctx context.Context, since time.Time, types []string) ([]model.TypeSummary, error) {
	query := `
		SELECT event_type, COUNT(*) as count
		FROM telemetry_events
		WHERE received_at >= $1
		  AND (cardinality($2::text[]) = 0 OR event_type = ANY($2::text[]))
		GROUP BY event_type
		ORDER BY count DESC
	`

	rows, err := r.repo.pool.Query(ctx, query, since, pq.Array(types))
	if err != nil {
		return nil, fmt.Errorf("query counts by type: %w", err)
	}
	defer rows.Close()

	var summaries []model.TypeSummary
	for rows.Next() {
		var s model.TypeSummary
		if err := rows.Scan(&s.Type, &s.Count); err != nil {
			return nil, fmt.Errorf("scan type summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

// CountSince returns the total number of events received since the given time.
func (r *EventRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := r.repo.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM telemetry_events WHERE received_at >= $1`, since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("query event count: %w", err)
	}
	return total, nil
}

// RecentBySession returns the most recent events for a session, newest first.
func (r *EventRepository) RecentBySession(ctx context.Context, sessionID string, limit int) ([]*model.StoredEvent, error) {
	query := `
		SELECT id, event_type, name, value, COALESCE(rating, ''), properties,
			   session_id, page, occurred_at, received_at
		FROM telemetry_events
		WHERE session_id = $1
		ORDER BY id DESC
		LIMIT $2
	`

	rows, err := r.repo.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query session events: %w", err)
	}
	defer rows.Close()

	var events []*model.StoredEvent
	for rows.Next() {
		event, err := scanStoredEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// DeleteOlderThan removes events received before the cutoff. Returns the
// number of rows deleted. Used by retention cleanup.
func (r *EventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.repo.pool.Exec(ctx,
		`DELETE FROM telemetry_events WHERE received_at < $1`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete old events: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanStoredEvent scans a row into a StoredEvent.
func scanStoredEvent(rows pgx.Rows) (*model.StoredEvent, error) {
	var event model.StoredEvent
	var propsJSON []byte

	err := rows.Scan(
		&event.ID,
		&event.Type,
		&event.Name,
		&event.Value,
		&event.Rating,
		&propsJSON,
		&event.SessionID,
		&event.Page,
		&event.OccurredAt,
		&event.ReceivedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(propsJSON) > 0 {
		_ = json.Unmarshal(propsJSON, &event.Properties)
	}

	return &event, nil
}

// nullableString returns nil for empty strings.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

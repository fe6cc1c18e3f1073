package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/signalbeam/signalbeam/internal/ingest"
	"github.com/signalbeam/signalbeam/internal/metrics"
	"github.com/signalbeam/signalbeam/internal/model"
	"github.com/signalbeam/signalbeam/telemetry"
)

// EventStore persists events directly, bypassing the stream.
// Used as a fallback when Redis is unavailable.
type EventStore interface {
	BulkInsert(ctx context.Context, events []*model.StoredEvent) error
}

// BatchPublisher enqueues event payloads onto the stream.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, events []ingest.EventPayload) (int, error)
}

// StatsInvalidator drops cached stats responses once new events become
// visible, so the stats endpoint does not serve a full TTL of stale data.
// The stream worker invalidates after its inserts; the handler only does
// so on the direct-insert fallback path.
type StatsInvalidator interface {
	InvalidateStats(ctx context.Context) error
}

// IngestHandler accepts telemetry batches from SDK clients.
type IngestHandler struct {
	publisher BatchPublisher
	store     EventStore
	stats     StatsInvalidator
	logger    *slog.Logger
	metrics   metrics.Recorder
	maxBatch  int
}

// NewIngestHandler creates a new IngestHandler.
// store may be nil; without it a failed publish drops the batch.
// stats may be nil; without it cached stats age out by TTL only.
func NewIngestHandler(publisher BatchPublisher, store EventStore, stats StatsInvalidator, logger *slog.Logger, recorder metrics.Recorder, maxBatch int) *IngestHandler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if maxBatch <= 0 {
		maxBatch = 100
	}
	return &IngestHandler{
		publisher: publisher,
		store:     store,
		stats:     stats,
		logger:    logger.With("component", "handler.ingest"),
		metrics:   recorder,
		maxBatch:  maxBatch,
	}
}

// batchRequest is the wire format sent by the SDK.
type batchRequest struct {
	Events []telemetry.Event `json:"events"`
}

// batchResponse reports how the batch was handled.
type batchResponse struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// Ingest handles telemetry batch submissions.
// POST /api/telemetry
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.metrics.IncBatchReceived("rejected")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	if len(req.Events) == 0 {
		h.metrics.IncBatchReceived("rejected")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "events must not be empty"})
		return
	}
	if len(req.Events) > h.maxBatch {
		h.metrics.IncBatchReceived("rejected")
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "too many events in batch"})
		return
	}

	receivedAt := time.Now().UTC()
	payloads := make([]ingest.EventPayload, 0, len(req.Events))
	rejected := 0

	for _, ev := range req.Events {
		if err := ingest.ValidateWireEvent(ev); err != nil {
			rejected++
			h.metrics.IncEventIngested("invalid")
			h.logger.Debug("dropping invalid event",
				"name", ev.Name,
				"error", err,
			)
			continue
		}

		stored := model.FromWire(ulid.Make().String(), ev, receivedAt)
		payloads = append(payloads, ingest.PayloadFromStored(stored))
	}

	if len(payloads) == 0 {
		h.metrics.IncBatchReceived("rejected")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no valid events in batch"})
		return
	}

	h.metrics.IncBatchReceived("accepted")
	h.metrics.ObserveBatchSize(len(payloads))

	if err := h.enqueue(r.Context(), payloads); err != nil {
		h.logger.Error("failed to enqueue batch",
			"batch_size", len(payloads),
			"error", err,
		)
		for range payloads {
			h.metrics.IncEventIngested("failed")
		}
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "ingest temporarily unavailable"})
		return
	}

	writeJSON(w, http.StatusAccepted, batchResponse{
		Accepted: len(payloads),
		Rejected: rejected,
	})
}

// enqueue publishes to the stream, falling back to a direct insert when
// the stream is unavailable.
func (h *IngestHandler) enqueue(ctx context.Context, payloads []ingest.EventPayload) error {
	_, err := h.publisher.PublishBatch(ctx, payloads)
	if err == nil {
		return nil
	}

	if h.store == nil {
		return err
	}

	h.logger.Warn("stream publish failed, inserting directly", "error", err)

	stored := make([]*model.StoredEvent, len(payloads))
	for i, p := range payloads {
		stored[i] = p.Stored()
	}
	if err := h.store.BulkInsert(ctx, stored); err != nil {
		return err
	}

	// Rows just became visible, bypassing the worker's invalidation.
	if h.stats != nil {
		if err := h.stats.InvalidateStats(ctx); err != nil {
			h.logger.Debug("failed to invalidate stats cache", "error", err)
		}
	}
	return nil
}

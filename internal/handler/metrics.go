package handler

import (
	"fmt"
	"net/http"

	"github.com/signalbeam/signalbeam/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "signalbeam_batches_received_total{status=\"accepted\"} %d\n", snap.BatchesAccepted)
	writeMetric(w, "signalbeam_batches_received_total{status=\"rejected\"} %d\n", snap.BatchesRejected)
	writeMetric(w, "signalbeam_batches_received_total{status=\"unauthorized\"} %d\n", snap.BatchesUnauthorized)

	writeMetric(w, "signalbeam_events_ingested_total{status=\"success\"} %d\n", snap.EventsIngested)
	writeMetric(w, "signalbeam_events_ingested_total{status=\"invalid\"} %d\n", snap.EventsInvalid)
	writeMetric(w, "signalbeam_events_ingested_total{status=\"failed\"} %d\n", snap.EventsFailed)

	writeMetric(w, "signalbeam_batch_size_count %d\n", snap.BatchSizeCount)
	writeMetric(w, "signalbeam_batch_size_sum %d\n", snap.BatchSizeTotal)

	writeMetric(w, "signalbeam_batches_stored_total{status=\"success\"} %d\n", snap.BatchesStored)
	writeMetric(w, "signalbeam_batches_stored_total{status=\"failed\"} %d\n", snap.BatchesStoreFailed)
	writeMetric(w, "signalbeam_insert_duration_seconds_count %d\n", snap.InsertDurationCount)
	writeMetric(w, "signalbeam_insert_duration_seconds_sum %.6f\n", float64(snap.InsertDurationNs)/1e9)

	writeMetric(w, "signalbeam_stream_depth %d\n", snap.StreamDepth)
	writeMetric(w, "signalbeam_ingest_lag_seconds_count %d\n", snap.IngestLagCnt)
	writeMetric(w, "signalbeam_ingest_lag_seconds_sum %.6f\n", float64(snap.IngestLagNs)/1e9)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the collector.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Ingest endpoint metrics
	IncBatchReceived(status string) // status: "accepted", "rejected", "unauthorized"
	IncEventIngested(status string) // status: "success", "invalid", "failed"
	ObserveBatchSize(size int)

	// Persistence pipeline metrics
	IncBatchStored(status string) // status: "success", "failed"
	ObserveInsertDuration(duration time.Duration)
	SetStreamDepth(depth int64)
	ObserveIngestLag(lag time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}

package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncBatchReceived is a no-op.
func (n *NoopRecorder) IncBatchReceived(status string) {}

// IncEventIngested is a no-op.
func (n *NoopRecorder) IncEventIngested(status string) {}

// ObserveBatchSize is a no-op.
func (n *NoopRecorder) ObserveBatchSize(size int) {}

// IncBatchStored is a no-op.
func (n *NoopRecorder) IncBatchStored(status string) {}

// ObserveInsertDuration is a no-op.
func (n *NoopRecorder) ObserveInsertDuration(duration time.Duration) {}

// SetStreamDepth is a no-op.
func (n *NoopRecorder) SetStreamDepth(depth int64) {}

// ObserveIngestLag is a no-op.
func (n *NoopRecorder) ObserveIngestLag(lag time.Duration) {}

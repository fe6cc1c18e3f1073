package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	BatchesAccepted     uint64
	BatchesRejected     uint64
	BatchesUnauthorized uint64

	EventsIngested uint64
	EventsInvalid  uint64
	EventsFailed   uint64

	BatchSizeCount uint64
	BatchSizeTotal uint64

	BatchesStored       uint64
	BatchesStoreFailed  uint64
	InsertDurationCount uint64
	InsertDurationNs    int64

	StreamDepth  int64
	IngestLagCnt uint64
	IngestLagNs  int64
}

// InMemoryRecorder stores metrics in memory for tests and the metrics
// endpoint.
type InMemoryRecorder struct {
	batchesAccepted     atomic.Uint64
	batchesRejected     atomic.Uint64
	batchesUnauthorized atomic.Uint64

	eventsIngested atomic.Uint64
	eventsInvalid  atomic.Uint64
	eventsFailed   atomic.Uint64

	batchSizeCount atomic.Uint64
	batchSizeTotal atomic.Uint64

	batchesStored       atomic.Uint64
	batchesStoreFailed  atomic.Uint64
	insertDurationCount atomic.Uint64
	insertDurationNs    atomic.Int64

	streamDepth  atomic.Int64
	ingestLagCnt atomic.Uint64
	ingestLagNs  atomic.Int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		BatchesAccepted:     m.batchesAccepted.Load(),
		BatchesRejected:     m.batchesRejected.Load(),
		BatchesUnauthorized: m.batchesUnauthorized.Load(),
		EventsIngested:      m.eventsIngested.Load(),
		EventsInvalid:       m.eventsInvalid.Load(),
		EventsFailed:        m.eventsFailed.Load(),
		BatchSizeCount:      m.batchSizeCount.Load(),
		BatchSizeTotal:      m.batchSizeTotal.Load(),
		BatchesStored:       m.batchesStored.Load(),
		BatchesStoreFailed:  m.batchesStoreFailed.Load(),
		InsertDurationCount: m.insertDurationCount.Load(),
		InsertDurationNs:    m.insertDurationNs.Load(),
		StreamDepth:         m.streamDepth.Load(),
		IngestLagCnt:        m.ingestLagCnt.Load(),
		IngestLagNs:         m.ingestLagNs.Load(),
	}
}

// IncBatchReceived increments the batch counter for the given status.
func (m *InMemoryRecorder) IncBatchReceived(status string) {
	switch status {
	case "accepted":
		m.batchesAccepted.Add(1)
	case "unauthorized":
		m.batchesUnauthorized.Add(1)
	default:
		m.batchesRejected.Add(1)
	}
}

// IncEventIngested increments the event counter for the given status.
func (m *InMemoryRecorder) IncEventIngested(status string) {
	switch status {
	case "success":
		m.eventsIngested.Add(1)
	case "invalid":
		m.eventsInvalid.Add(1)
	default:
		m.eventsFailed.Add(1)
	}
}

// ObserveBatchSize records the size of a received batch.
func (m *InMemoryRecorder) ObserveBatchSize(size int) {
	m.batchSizeCount.Add(1)
	m.batchSizeTotal.Add(uint64(size))
}

// IncBatchStored increments the persistence counter.
func (m *InMemoryRecorder) IncBatchStored(status string) {
	if status == "success" {
		m.batchesStored.Add(1)
	} else {
		m.batchesStoreFailed.Add(1)
	}
}

// ObserveInsertDuration records a bulk insert duration.
func (m *InMemoryRecorder) ObserveInsertDuration(duration time.Duration) {
	m.insertDurationCount.Add(1)
	m.insertDurationNs.Add(duration.Nanoseconds())
}

// SetStreamDepth records the pending-stream depth.
func (m *InMemoryRecorder) SetStreamDepth(depth int64) {
	m.streamDepth.Store(depth)
}

// ObserveIngestLag records client-to-collector event lag.
func (m *InMemoryRecorder) ObserveIngestLag(lag time.Duration) {
	m.ingestLagCnt.Add(1)
	m.ingestLagNs.Add(lag.Nanoseconds())
}

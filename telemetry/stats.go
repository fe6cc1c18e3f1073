package telemetry

import "sync/atomic"

// Stats captures a snapshot of engine counters.
type Stats struct {
	Tracked        uint64 // events accepted by track calls
	Delivered      uint64 // events confirmed received by the collector
	Dropped        uint64 // events discarded by the queue cap
	FailedAttempts uint64 // delivery attempts that failed
}

// engineStats stores counters with atomic access so Stats() never
// contends with the engine mutex.
type engineStats struct {
	tracked        atomic.Uint64
	delivered      atomic.Uint64
	dropped        atomic.Uint64
	failedAttempts atomic.Uint64
}

func (s *engineStats) snapshot() Stats {
	return Stats{
		Tracked:        s.tracked.Load(),
		Delivered:      s.delivered.Load(),
		Dropped:        s.dropped.Load(),
		FailedAttempts: s.failedAttempts.Load(),
	}
}

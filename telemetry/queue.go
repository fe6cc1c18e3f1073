package telemetry

// MaxQueuedEvents is the hard ceiling on buffered events. Requeues
// after a failed delivery never grow the queue past this cap; the
// oldest events of the failed batch are dropped first.
const MaxQueuedEvents = 100

// eventQueue is an ordered FIFO buffer of pending events. It is owned
// exclusively by one engine instance and is not safe for concurrent
// use; the engine serializes access under its own mutex.
type eventQueue struct {
	events []Event
}

// push appends an event and returns the new length.
func (q *eventQueue) push(ev Event) int {
	q.events = append(q.events, ev)
	return len(q.events)
}

// len returns the number of pending events.
func (q *eventQueue) len() int {
	return len(q.events)
}

// drain removes and returns all pending events, leaving the queue
// empty. The returned slice preserves insertion order.
func (q *eventQueue) drain() []Event {
	events := q.events
	q.events = nil
	return events
}

// requeue pushes a failed batch back onto the front of the queue,
// ahead of events that arrived during the attempt. The combined queue
// is capped at MaxQueuedEvents with oldest-first truncation; the
// number of dropped events is returned.
func (q *eventQueue) requeue(batch []Event) int {
	combined := make([]Event, 0, len(batch)+len(q.events))
	combined = append(combined, batch...)
	combined = append(combined, q.events...)

	dropped := 0
	if len(combined) > MaxQueuedEvents {
		dropped = len(combined) - MaxQueuedEvents
		combined = combined[dropped:]
	}

	q.events = combined
	return dropped
}

// Package telemetry provides a non-blocking telemetry emitter.
// Applications report metrics, events, errors, and traces; the engine
// buffers them in memory, batches them, and delivers batches to a
// collector endpoint with exponential backoff on failure. Tracking
// calls never perform network I/O and never block the caller.
package telemetry

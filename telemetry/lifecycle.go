package telemetry

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Lifecycle notifies the engine that the host is about to become
// unobservable, triggering the teardown flush. The returned cancel
// function deregisters the callback and is safe to call more than
// once.
type Lifecycle interface {
	OnTeardown(fn func()) (cancel func())
}

// SignalLifecycle triggers teardown callbacks when the process
// receives a shutdown signal. It is the Go counterpart of page-hide
// and unload notifications.
type SignalLifecycle struct {
	signals []os.Signal
}

// NewSignalLifecycle creates a lifecycle source for the given signals,
// defaulting to SIGINT and SIGTERM.
func NewSignalLifecycle(signals ...os.Signal) *SignalLifecycle {
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	return &SignalLifecycle{signals: signals}
}

// OnTeardown registers fn to run once on the first matching signal.
func (l *SignalLifecycle) OnTeardown(fn func()) func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, l.signals...)

	done := make(chan struct{})
	go func() {
		select {
		case <-ch:
			fn()
		case <-done:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}

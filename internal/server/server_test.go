package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

func testServer() *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := http.NewServeMux()
	return New(mux, 0, time.Second, time.Second, 2*time.Second, logger)
}

func TestGracefulShutdown_StopsComponentsInReverseOrder(t *testing.T) {
	s := testServer()

	var order []string
	s.OnShutdown("worker", func(ctx context.Context) error {
		order = append(order, "worker")
		return nil
	})
	s.OnShutdown("flusher", func(ctx context.Context) error {
		order = append(order, "flusher")
		return nil
	})

	if err := s.gracefulShutdown(); err != nil {
		t.Fatalf("gracefulShutdown returned error: %v", err)
	}

	// Last registered stops first, so the worker registered at startup
	// keeps draining the stream until everything else is down.
	if len(order) != 2 || order[0] != "flusher" || order[1] != "worker" {
		t.Errorf("shutdown order = %v, want [flusher worker]", order)
	}
}

func TestGracefulShutdown_CollectsComponentErrors(t *testing.T) {
	s := testServer()

	wantErr := errors.New("worker stuck")
	s.OnShutdown("worker", func(ctx context.Context) error {
		return wantErr
	})
	s.OnShutdown("flusher", func(ctx context.Context) error {
		return nil
	})

	err := s.gracefulShutdown()
	if !errors.Is(err, wantErr) {
		t.Errorf("gracefulShutdown error = %v, want %v", err, wantErr)
	}
}

func TestGracefulShutdown_ComponentsGetDeadline(t *testing.T) {
	s := testServer()

	var hadDeadline bool
	s.OnShutdown("worker", func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return nil
	})

	if err := s.gracefulShutdown(); err != nil {
		t.Fatalf("gracefulShutdown returned error: %v", err)
	}
	if !hadDeadline {
		t.Error("shutdown context should carry the timeout deadline")
	}
}

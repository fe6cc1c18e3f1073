// Signalbeam Instrumented App Example
//
// This is a minimal example of instrumenting a Go service with the
// Signalbeam telemetry SDK. It tracks page views, request latency, and
// errors, and flushes batches to a running collector.
//
// Usage:
//   export SIGNALBEAM_ENDPOINT="http://localhost:8080/api/telemetry"
//   export SIGNALBEAM_INGEST_KEY="tk_live_..."   # optional
//   go run main.go
//
// Then hit http://localhost:9000/ a few times and watch the collector
// receive batches.

package main

import (
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/signalbeam/signalbeam/telemetry"
)

func main() {
	endpoint := os.Getenv("SIGNALBEAM_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:8080" + telemetry.DefaultEndpoint
	}

	httpClient := telemetry.NewHTTPClient()
	if key := os.Getenv("SIGNALBEAM_INGEST_KEY"); key != "" {
		httpClient.Transport = &ingestKeyTransport{key: key, base: httpClient.Transport}
	}

	engine := telemetry.New(telemetry.Config{
		Endpoint:      endpoint,
		BatchSize:     10,
		FlushInterval: 5 * time.Second,
		HTTPClient:    httpClient,
		Lifecycle:     telemetry.NewSignalLifecycle(),
		Logger:        slog.Default(),
		Debug:         true,
	})
	defer engine.Cleanup()

	http.HandleFunc("/", pageHandler(engine, "/"))
	http.HandleFunc("/pricing", pageHandler(engine, "/pricing"))
	http.HandleFunc("/boom", boomHandler(engine))
	http.HandleFunc("/stats", statsHandler(engine))

	log.Println("Starting instrumented app on :9000")
	log.Printf("Telemetry endpoint: %s", endpoint)
	log.Fatal(http.ListenAndServe(":9000", nil))
}

func pageHandler(engine *telemetry.Engine, path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		engine.TrackPageView(path, map[string]any{
			"user_agent": r.UserAgent(),
		})

		// Simulate some work
		time.Sleep(time.Duration(rand.Intn(50)) * time.Millisecond)

		latency := float64(time.Since(start).Milliseconds())
		rating := telemetry.RatingGood
		if latency > 30 {
			rating = telemetry.RatingNeedsImprovement
		}
		engine.TrackMetric("request_latency_ms", latency, rating, map[string]any{
			"path": path,
		})

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"page": path})
	}
}

func boomHandler(engine *telemetry.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := errors.New("simulated failure")
		engine.CaptureException(err, map[string]any{
			"path": "/boom",
		})

		http.Error(w, "boom", http.StatusInternalServerError)
	}
}

func statsHandler(engine *telemetry.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := engine.Stats()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"tracked":         stats.Tracked,
			"delivered":       stats.Delivered,
			"dropped":         stats.Dropped,
			"failed_attempts": stats.FailedAttempts,
			"session_id":      engine.SessionID(),
		})
	}
}

// ingestKeyTransport attaches the ingest key to every outgoing request.
type ingestKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *ingestKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.key)
	return base.RoundTrip(clone)
}

//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/signalbeam/signalbeam/internal/model"
)

type batchResponse struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

func TestE2ESmoke(t *testing.T) {
	baseURL := envOrDefault("SIGNALBEAM_BASE_URL", "http://localhost:8080")
	ingestKey := os.Getenv("SIGNALBEAM_INGEST_KEY")

	sessionID := fmt.Sprintf("e2e-%d", time.Now().UnixNano())

	accepted := postBatch(t, baseURL, ingestKey, sessionID, []map[string]any{
		{
			"type":      "event",
			"name":      "page_view",
			"sessionId": sessionID,
			"page":      "/e2e",
			"timestamp": time.Now().UnixMilli(),
		},
		{
			"type":      "metric",
			"name":      "LCP",
			"value":     1234.5,
			"rating":    "good",
			"sessionId": sessionID,
			"page":      "/e2e",
			"timestamp": time.Now().UnixMilli(),
		},
	})
	if accepted != 2 {
		t.Fatalf("expected 2 accepted events, got %d", accepted)
	}

	waitForStats(t, baseURL, ingestKey, 2)
}

func TestE2EInvalidEventsRejected(t *testing.T) {
	baseURL := envOrDefault("SIGNALBEAM_BASE_URL", "http://localhost:8080")
	ingestKey := os.Getenv("SIGNALBEAM_INGEST_KEY")

	body, _ := json.Marshal(map[string]any{
		"events": []map[string]any{
			{
				"type":      "bogus",
				"name":      "nope",
				"sessionId": "e2e-invalid",
				"timestamp": time.Now().UnixMilli(),
			},
		},
	})

	status, respBody := doPost(t, baseURL+"/api/telemetry", ingestKey, body)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for all-invalid batch, got %d: %s", status, respBody)
	}
}

// TestE2ERateLimiting validates that rate limiting returns 429 with proper headers.
func TestE2ERateLimiting(t *testing.T) {
	baseURL := envOrDefault("SIGNALBEAM_BASE_URL", "http://localhost:8080")
	ingestKey := os.Getenv("SIGNALBEAM_INGEST_KEY")

	if os.Getenv("SIGNALBEAM_RATE_LIMIT_TEST") == "" {
		t.Skip("SIGNALBEAM_RATE_LIMIT_TEST not set; requires a low configured burst")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	var rateLimited bool
	var lastResp *http.Response

	sessionID := fmt.Sprintf("e2e-rl-%d", time.Now().UnixNano())
	body, _ := json.Marshal(map[string]any{
		"events": []map[string]any{
			{
				"type":      "event",
				"name":      "rl_probe",
				"sessionId": sessionID,
				"timestamp": time.Now().UnixMilli(),
			},
		},
	})

	// Hammer the endpoint until the token bucket empties.
	for i := 0; i < 200; i++ {
		req, err := http.NewRequest(http.MethodPost, baseURL+"/api/telemetry", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("create request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if ingestKey != "" {
			req.Header.Set("Authorization", "Bearer "+ingestKey)
		}

		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			rateLimited = true
			lastResp = resp
			break
		}
		resp.Body.Close()
	}

	if !rateLimited {
		t.Fatalf("expected 429 after burst, but never hit rate limit")
	}

	defer lastResp.Body.Close()

	if lastResp.Header.Get("X-RateLimit-Limit") == "" {
		t.Error("missing X-RateLimit-Limit header on 429 response")
	}
	if lastResp.Header.Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("expected X-RateLimit-Remaining=0, got %s", lastResp.Header.Get("X-RateLimit-Remaining"))
	}
	if lastResp.Header.Get("Retry-After") == "" {
		t.Log("Retry-After header not present (optional but recommended)")
	}

	var errResp map[string]any
	if err := json.NewDecoder(lastResp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode 429 response: %v", err)
	}
	if errResp["error"] == nil {
		t.Error("429 response missing 'error' field")
	}
}

// TestE2ENoSecretsInResponses validates that ingest keys are not echoed back.
func TestE2ENoSecretsInResponses(t *testing.T) {
	baseURL := envOrDefault("SIGNALBEAM_BASE_URL", "http://localhost:8080")
	ingestKey := os.Getenv("SIGNALBEAM_INGEST_KEY")
	if ingestKey == "" {
		t.Skip("SIGNALBEAM_INGEST_KEY not set; auth disabled")
	}

	client := &http.Client{Timeout: 10 * time.Second}

	// A rejected fake key must never appear in the error response.
	fakeKey := "tk_live_fake12_" + strings.Repeat("a", 32)
	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/telemetry/stats", nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+fakeKey)

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for fake key, got %d", resp.StatusCode)
	}
	if strings.Contains(string(body), fakeKey) {
		t.Error("SECURITY: error response leaked the presented key")
	}

	// The real key must never appear in successful responses either.
	req2, err := http.NewRequest(http.MethodGet, baseURL+"/api/telemetry/stats", nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req2.Header.Set("Authorization", "Bearer "+ingestKey)

	resp2, err := client.Do(req2)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body2, _ := io.ReadAll(resp2.Body)
	resp2.Body.Close()

	if strings.Contains(string(body2), ingestKey) {
		t.Error("SECURITY: successful response echoed back the ingest key")
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func postBatch(t *testing.T, baseURL, ingestKey, sessionID string, events []map[string]any) int {
	t.Helper()

	body, err := json.Marshal(map[string]any{"events": events})
	if err != nil {
		t.Fatalf("marshal batch: %v", err)
	}

	status, respBody := doPost(t, baseURL+"/api/telemetry", ingestKey, body)
	if status != http.StatusAccepted {
		t.Fatalf("expected 202 from ingest, got %d: %s", status, respBody)
	}

	var resp batchResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		t.Fatalf("decode batch response: %v", err)
	}
	return resp.Accepted
}

func doPost(t *testing.T, url, ingestKey string, body []byte) (int, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if ingestKey != "" {
		req.Header.Set("Authorization", "Bearer "+ingestKey)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s: %v", url, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, respBody
}

// waitForStats polls the stats endpoint until the ingested events land in
// Postgres via the stream worker, or the deadline passes.
func waitForStats(t *testing.T, baseURL, ingestKey string, minTotal int64) {
	t.Helper()

	since := time.Now().Add(-time.Minute).UTC().Format(time.RFC3339)
	endpoint := fmt.Sprintf("%s/api/telemetry/stats?since=%s", baseURL, since)

	client := &http.Client{Timeout: 10 * time.Second}
	deadline := time.Now().Add(10 * time.Second)

	for time.Now().Before(deadline) {
		req, err := http.NewRequest(http.MethodGet, endpoint, nil)
		if err != nil {
			t.Fatalf("create stats request: %v", err)
		}
		if ingestKey != "" {
			req.Header.Set("Authorization", "Bearer "+ingestKey)
		}

		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("stats request: %v", err)
		}

		var stats model.StatsResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&stats)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK && decodeErr == nil && stats.Total >= minTotal {
			return
		}

		time.Sleep(250 * time.Millisecond)
	}

	t.Fatalf("stats did not report %d events in time", minTotal)
}

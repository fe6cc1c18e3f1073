package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	// ClientTimeout is the total request timeout.
	ClientTimeout = 30 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 10 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 15 * time.Second

	// BeaconTimeout bounds the best-effort teardown send. The outcome
	// is never observed; the timeout only keeps process shutdown from
	// hanging on a dead collector.
	BeaconTimeout = 3 * time.Second
)

// userAgent identifies the SDK on delivery requests.
const userAgent = "Signalbeam-Go/1.0"

// Sender delivers event batches to the collector.
type Sender interface {
	// Send performs a standard flush: one POST of the batch, with a
	// non-2xx status reported as an error.
	Send(ctx context.Context, events []Event) error

	// SendBeacon performs a teardown flush: best-effort, at most
	// once, with no failure feedback.
	SendBeacon(events []Event)
}

// batchPayload is the wire format shared by both delivery paths.
type batchPayload struct {
	Events []Event `json:"events"`
}

// NewHTTPClient creates an HTTP client configured for telemetry
// delivery. It has conservative timeouts and does not follow
// redirects.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: ClientTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// HTTPSender delivers batches over HTTP POST as {"events": [...]}.
type HTTPSender struct {
	client   *http.Client
	endpoint string
	logger   *slog.Logger
}

// NewHTTPSender creates a sender targeting the given endpoint URL.
func NewHTTPSender(client *http.Client, endpoint string, logger *slog.Logger) *HTTPSender {
	if client == nil {
		client = NewHTTPClient()
	}
	return &HTTPSender{
		client:   client,
		endpoint: endpoint,
		logger:   logger.With("component", "telemetry.transport"),
	}
}

// Send posts the batch and treats any non-2xx status as a failure.
func (s *HTTPSender) Send(ctx context.Context, events []Event) error {
	body, err := json.Marshal(batchPayload{Events: events})
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close()

	// Drain body to allow connection reuse
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collector returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// SendBeacon posts the batch once and ignores the outcome entirely.
// It blocks at most BeaconTimeout so a teardown flush cannot stall
// process shutdown.
func (s *HTTPSender) SendBeacon(events []Event) {
	body, err := json.Marshal(batchPayload{Events: events})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), BeaconTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
	resp.Body.Close()
}

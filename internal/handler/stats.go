package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/signalbeam/signalbeam/internal/cache"
	"github.com/signalbeam/signalbeam/internal/model"
)

// StatsReader provides aggregate queries over stored events.
type StatsReader interface {
	CountSince(ctx context.Context, since time.Time) (int64, error)
	CountsByType(ctx context.Context, since time.Time, types []string) ([]model.TypeSummary, error)
}

// StatsCache holds recent stats responses so dashboard polling does
// not hit Postgres on every request.
type StatsCache interface {
	GetStats(ctx context.Context, key string) (*model.StatsResponse, error)
	SetStats(ctx context.Context, key string, resp *model.StatsResponse) error
}

// StatsHandler serves aggregate ingest statistics.
type StatsHandler struct {
	reader StatsReader
	cache  StatsCache
	logger *slog.Logger
}

// NewStatsHandler creates a new StatsHandler. cache may be nil, in
// which case every request queries the store.
func NewStatsHandler(reader StatsReader, statsCache StatsCache, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		reader: reader,
		cache:  statsCache,
		logger: logger.With("component", "handler.stats"),
	}
}

// defaultStatsWindow is how far back stats reach without a "since" param.
const defaultStatsWindow = 24 * time.Hour

// Stats returns event counts grouped by type.
// GET /api/telemetry/stats?since=<RFC3339>&types=metric,error
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	since := time.Now().UTC().Add(-defaultStatsWindow)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "since must be RFC3339"})
			return
		}
		since = parsed.UTC()
	}

	var types []string
	if raw := r.URL.Query().Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(t); trimmed != "" {
				types = append(types, trimmed)
			}
		}
	}

	cacheKey := cache.StatsCacheKey(since, types)
	if h.cache != nil {
		if cached, err := h.cache.GetStats(r.Context(), cacheKey); err == nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	total, err := h.reader.CountSince(r.Context(), since)
	if err != nil {
		h.logger.Error("failed to count events", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
		return
	}

	byType, err := h.reader.CountsByType(r.Context(), since, types)
	if err != nil {
		h.logger.Error("failed to count events by type", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
		return
	}

	resp := model.StatsResponse{
		Since:       since,
		Total:       total,
		ByType:      byType,
		GeneratedAt: time.Now().UTC(),
	}

	if h.cache != nil {
		if err := h.cache.SetStats(r.Context(), cacheKey, &resp); err != nil {
			h.logger.Debug("failed to cache stats response", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

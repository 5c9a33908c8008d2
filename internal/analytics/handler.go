package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Snapshot is a persisted copy of the live stats.
type Snapshot struct {
	CapturedAt time.Time       `json:"captured_at"`
	Stats      AggregatedStats `json:"stats"`
}

// HistoryReader lists snapshots captured after since, oldest first.
type HistoryReader interface {
	History(ctx context.Context, since time.Time, limit int) ([]Snapshot, error)
}

// HistoryPoint is one sample of the stats trend.
type HistoryPoint struct {
	CapturedAt    time.Time        `json:"captured_at"`
	TotalScored   int64            `json:"total_scored"`
	Failed        int64            `json:"failed"`
	AvgBrandScore float64          `json:"avg_brand_score"`
	BrandLabels   map[string]int64 `json:"brand_labels"`
}

const (
	defaultHistoryHours = 24
	maxHistoryHours     = 7 * 24
	maxHistoryPoints    = 500
)

// Handler serves the live stats endpoints.
type Handler struct {
	agg     *Aggregator
	history HistoryReader
	logger  *slog.Logger
}

// NewHandler creates a Handler. history may be nil, in which case the
// history endpoint answers 503.
func NewHandler(agg *Aggregator, history HistoryReader) *Handler {
	return &Handler{
		agg:     agg,
		history: history,
		logger:  slog.Default().With("component", "stats-handler"),
	}
}

// Register mounts the stats routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/stats/history", h.History)
}

// Stats writes the current AggregatedStats. ?themes=N trims the theme list
// and ?competitor=name keeps only that competitor.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.agg.Stats()
	q := r.URL.Query()

	if v := q.Get("themes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "themes must be a non-negative integer"})
			return
		}
		if n < len(stats.TopThemes) {
			stats.TopThemes = stats.TopThemes[:n]
		}
	}
	if name := strings.ToLower(strings.TrimSpace(q.Get("competitor"))); name != "" {
		kept := []CompetitorCount{}
		for _, c := range stats.Competitors {
			if c.Name == name {
				kept = append(kept, c)
			}
		}
		stats.Competitors = kept
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// History writes persisted snapshots from the last ?hours=N hours
// (default 24, at most a week) as a trend.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "stats history requires postgres"})
		return
	}
	hours := defaultHistoryHours
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryHours {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "hours must be between 1 and 168"})
			return
		}
		hours = n
	}
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	snaps, err := h.history.History(r.Context(), since, maxHistoryPoints)
	if err != nil {
		h.logger.Error("loading stats history", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	points := make([]HistoryPoint, 0, len(snaps))
	for _, s := range snaps {
		points = append(points, HistoryPoint{
			CapturedAt:    s.CapturedAt,
			TotalScored:   s.Stats.TotalScored,
			Failed:        s.Stats.Failed,
			AvgBrandScore: s.Stats.AvgBrandScore,
			BrandLabels:   s.Stats.BrandLabels,
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hours":  hours,
		"points": points,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

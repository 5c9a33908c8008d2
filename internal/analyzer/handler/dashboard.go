package handler

import (
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/sentiment"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/logger"
)

const (
	defaultDays = 30
	maxDays     = 365
)

type postDetail struct {
	store.Post
	Themes      map[string]float64          `json:"themes"`
	Competitors map[string]sentiment.Result `json:"competitors"`
}

// DashboardOverview serves post counts and the brand sentiment breakdown.
func (h *Handler) DashboardOverview(w http.ResponseWriter, r *http.Request) {
	days, ok := h.days(w, r)
	if !ok {
		return
	}
	out, err := h.repo.Overview(r.Context(), days)
	h.respond(w, r, "overview", out, err)
}

// DashboardThemes serves per-theme mention counts and sentiment.
func (h *Handler) DashboardThemes(w http.ResponseWriter, r *http.Request) {
	days, ok := h.days(w, r)
	if !ok {
		return
	}
	out, err := h.repo.Themes(r.Context(), days)
	h.respond(w, r, "themes", map[string]any{"days": days, "themes": out}, err)
}

// DashboardCompetitors serves per-competitor mention counts and sentiment.
func (h *Handler) DashboardCompetitors(w http.ResponseWriter, r *http.Request) {
	days, ok := h.days(w, r)
	if !ok {
		return
	}
	out, err := h.repo.Competitors(r.Context(), days)
	h.respond(w, r, "competitors", map[string]any{"days": days, "competitors": out}, err)
}

// DashboardTrends serves daily brand sentiment.
func (h *Handler) DashboardTrends(w http.ResponseWriter, r *http.Request) {
	days, ok := h.days(w, r)
	if !ok {
		return
	}
	out, err := h.repo.Trends(r.Context(), days)
	h.respond(w, r, "trends", map[string]any{"days": days, "trends": out}, err)
}

// ListPosts serves stored posts, newest first.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		h.writeError(w, http.StatusServiceUnavailable, "storage is not configured")
		return
	}
	q := r.URL.Query()
	f := store.ListFilter{Platform: q.Get("platform"), Sentiment: q.Get("sentiment")}
	var err error
	if f.Limit, err = optionalInt(q.Get("limit")); err != nil || f.Limit < 0 {
		h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	if f.Offset, err = optionalInt(q.Get("offset")); err != nil || f.Offset < 0 {
		h.writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	posts, err := h.repo.ListPosts(r.Context(), f)
	if posts == nil {
		posts = []store.Post{}
	}
	h.respond(w, r, "posts", map[string]any{"posts": posts, "count": len(posts)}, err)
}

// GetPost serves one post with its stored themes and competitor results.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		h.writeError(w, http.StatusServiceUnavailable, "storage is not configured")
		return
	}
	ctx := r.Context()
	id := r.PathValue("id")
	post, err := h.repo.GetPost(ctx, id)
	if err != nil {
		h.respond(w, r, "post", nil, err)
		return
	}
	themes, err := h.repo.PostThemes(ctx, id)
	if err != nil {
		h.respond(w, r, "post themes", nil, err)
		return
	}
	comps, err := h.repo.CompetitorMentions(ctx, id)
	if err != nil {
		h.respond(w, r, "competitor mentions", nil, err)
		return
	}
	h.writeJSON(w, http.StatusOK, postDetail{Post: *post, Themes: themes, Competitors: comps})
}

func (h *Handler) days(w http.ResponseWriter, r *http.Request) (int, bool) {
	if h.repo == nil {
		h.writeError(w, http.StatusServiceUnavailable, "storage is not configured")
		return 0, false
	}
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return defaultDays, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > maxDays {
		h.writeError(w, http.StatusBadRequest, "days must be an integer between 1 and 365")
		return 0, false
	}
	return days, true
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, what string, data any, err error) {
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			logger.FromContext(r.Context()).Error("query failed", "query", what, "error", err)
		}
		h.writeError(w, status, apperrors.PublicMessage(err))
		return
	}
	h.writeJSON(w, http.StatusOK, data)
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

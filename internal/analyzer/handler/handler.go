// Package handler exposes the scoring engine and the stored analyses over
// HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/analyzer/cache"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/sentiment"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/theme"
	apperrors "github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/logger"
)

const maxRequestBytes = 8 << 20

// Repository is the read side of the store. *store.Store implements it.
type Repository interface {
	GetPost(ctx context.Context, id string) (*store.Post, error)
	ListPosts(ctx context.Context, f store.ListFilter) ([]store.Post, error)
	PostThemes(ctx context.Context, postID string) (map[string]float64, error)
	CompetitorMentions(ctx context.Context, postID string) (map[string]sentiment.Result, error)
	Overview(ctx context.Context, days int) (*store.Overview, error)
	Themes(ctx context.Context, days int) ([]store.ThemeStat, error)
	Competitors(ctx context.Context, days int) ([]store.CompetitorStat, error)
	Trends(ctx context.Context, days int) ([]store.TrendPoint, error)
}

// Handler serves the analyzer API. repo and analysisCache may be nil, in
// which case the stored-data endpoints answer 503 and scoring is uncached.
type Handler struct {
	engine       *pipeline.Engine
	cache        *cache.Cache
	repo         Repository
	maxBatchSize int
	admin        func(http.Handler) http.Handler
	logger       *slog.Logger
}

// New creates a Handler.
func New(engine *pipeline.Engine, analysisCache *cache.Cache, repo Repository, maxBatchSize int) *Handler {
	return &Handler{
		engine:       engine,
		cache:        analysisCache,
		repo:         repo,
		maxBatchSize: maxBatchSize,
		logger:       slog.Default().With("component", "analyzer-handler"),
	}
}

// ProtectAdmin wraps the cache administration routes with mw. Call it before
// Register.
func (h *Handler) ProtectAdmin(mw func(http.Handler) http.Handler) {
	h.admin = mw
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/sentiment", h.Sentiment)
	mux.HandleFunc("POST /api/v1/sentiment/batch", h.SentimentBatch)
	mux.HandleFunc("POST /api/v1/themes", h.Themes)
	mux.HandleFunc("POST /api/v1/analyze", h.Analyze)
	mux.HandleFunc("GET /api/v1/entities", h.Entities)
	mux.HandleFunc("GET /api/v1/posts", h.ListPosts)
	mux.HandleFunc("GET /api/v1/posts/{id}", h.GetPost)
	mux.HandleFunc("GET /api/v1/dashboard/overview", h.DashboardOverview)
	mux.HandleFunc("GET /api/v1/dashboard/themes", h.DashboardThemes)
	mux.HandleFunc("GET /api/v1/dashboard/competitors", h.DashboardCompetitors)
	mux.HandleFunc("GET /api/v1/dashboard/trends", h.DashboardTrends)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	var invalidate http.Handler = http.HandlerFunc(h.CacheInvalidate)
	if h.admin != nil {
		invalidate = h.admin(invalidate)
	}
	mux.Handle("POST /api/v1/cache/invalidate", invalidate)
}

type scoreRequest struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Entity string `json:"entity"`
}

type batchRequest struct {
	Entity string          `json:"entity"`
	Posts  []pipeline.Post `json:"posts"`
}

type batchResponse struct {
	Entity  string             `json:"entity"`
	Count   int                `json:"count"`
	Results []sentiment.Result `json:"results"`
}

type themesResponse struct {
	Entity   string             `json:"entity"`
	Themes   theme.Scores       `json:"themes"`
	Relevant map[string]float64 `json:"relevant"`
	Top      []theme.Ranked     `json:"top"`
}

type analyzeResponse struct {
	pipeline.Analysis
	TopThemes      []theme.Ranked `json:"top_themes"`
	LexiconVersion string         `json:"lexicon_version"`
	Cached         bool           `json:"cached"`
}

// entityOrBrand defaults an empty entity to the brand. Unknown entities are
// passed through and score neutral.
func (h *Handler) entityOrBrand(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return h.engine.Registry().Brand()
	}
	return name
}

// Sentiment scores one post towards one entity.
func (h *Handler) Sentiment(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	entityName := h.entityOrBrand(req.Entity)
	post := pipeline.Post{Title: req.Title, Body: req.Body}

	key := h.cacheKey("sentiment", entityName, req.Title, req.Body)
	res, hit, err := cache.GetOrCompute(ctx, h.cache, key, func() (sentiment.Result, error) {
		res := h.engine.ScoreSentiment(ctx, post, entityName)
		return res, ctx.Err()
	})
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "scoring failed")
		return
	}
	logger.FromContext(ctx).Debug("sentiment scored", "entity", entityName, "label", res.Label, "cache_hit", hit)
	h.writeJSON(w, http.StatusOK, res)
}

// SentimentBatch scores many posts towards one entity. Results keep input
// order.
func (h *Handler) SentimentBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !h.decode(w, r, &req) {
		return
	}
	if h.maxBatchSize > 0 && len(req.Posts) > h.maxBatchSize {
		h.writeError(w, apperrors.HTTPStatusCode(apperrors.ErrBatchTooLarge), "too many posts in one batch")
		return
	}
	ctx := r.Context()
	start := time.Now()
	entityName := h.entityOrBrand(req.Entity)
	results, err := h.engine.ScoreBatch(ctx, req.Posts, entityName)
	if err != nil {
		logger.FromContext(ctx).Warn("batch scoring aborted", "error", err, "posts", len(req.Posts))
		h.writeError(w, http.StatusServiceUnavailable, "batch scoring aborted")
		return
	}
	logger.FromContext(ctx).Info("batch scored",
		"entity", entityName,
		"posts", len(req.Posts),
		"latency", time.Since(start),
	)
	h.writeJSON(w, http.StatusOK, batchResponse{Entity: entityName, Count: len(results), Results: results})
}

// Themes scores the themes of the part of a post about an entity.
func (h *Handler) Themes(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !h.decode(w, r, &req) {
		return
	}
	entityName := h.entityOrBrand(req.Entity)
	scores := h.engine.ScoreThemes(r.Context(), pipeline.Post{Title: req.Title, Body: req.Body}, entityName)
	h.writeJSON(w, http.StatusOK, themesResponse{
		Entity:   entityName,
		Themes:   scores,
		Relevant: theme.Relevant(scores),
		Top:      h.engine.Classifier().Top(scores, 5),
	})
}

// Analyze runs the full analysis of one post.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	post := pipeline.Post{Title: req.Title, Body: req.Body}
	key := h.cacheKey("analyze", req.Title, req.Body)
	a, hit, err := cache.GetOrCompute(ctx, h.cache, key, func() (pipeline.Analysis, error) {
		a := h.engine.Analyze(ctx, post)
		return a, ctx.Err()
	})
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	h.writeJSON(w, http.StatusOK, analyzeResponse{
		Analysis:       a,
		TopThemes:      h.engine.Classifier().Top(a.Themes, 5),
		LexiconVersion: h.engine.LexiconVersion(),
		Cached:         hit,
	})
}

// Entities lists the tracked brand and competitors.
func (h *Handler) Entities(w http.ResponseWriter, r *http.Request) {
	reg := h.engine.Registry()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"brand":           reg.Brand(),
		"entities":        reg.Entities(),
		"competitor_mode": h.engine.CompetitorMode(),
		"themes":          h.engine.Classifier().Descriptions(),
	})
}

// CacheStats reports cache counters.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

// CacheInvalidate drops cached results. ?op=sentiment|analyze limits the
// flush to one operation.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	op := r.URL.Query().Get("op")
	if op != "" && op != "sentiment" && op != "analyze" {
		h.writeError(w, http.StatusBadRequest, "op must be sentiment or analyze")
		return
	}
	n, err := h.cache.Invalidate(r.Context(), op)
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys": n})
}

func (h *Handler) cacheKey(op string, parts ...string) string {
	if h.cache == nil {
		return ""
	}
	return h.cache.Key(op, parts...)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// Package handler exposes the ingestion HTTP endpoints.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/logger"
)

// maxRequestBytes bounds the size of an ingestion request body.
const maxRequestBytes = 8 << 20

// Ingester accepts validated posts.
type Ingester interface {
	Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error)
}

// Handler serves POST /api/v1/posts and POST /api/v1/posts/bulk.
type Handler struct {
	ingester     Ingester
	maxBatchSize int
	logger       *slog.Logger
}

// New creates a Handler. maxBatchSize bounds bulk requests.
func New(ing Ingester, maxBatchSize int) *Handler {
	return &Handler{
		ingester:     ing,
		maxBatchSize: maxBatchSize,
		logger:       slog.Default().With("component", "ingestion-handler"),
	}
}

// Ingest accepts one post.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	var req ingestion.IngestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	validator.Normalize(&req)
	if err := validator.ValidateIngestRequest(&req); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.ingester.Ingest(ctx, &req)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("ingestion failed",
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, apperrors.PublicMessage(err))
		return
	}
	log.Info("post ingested",
		"post_id", resp.PostID,
		"platform", req.Platform,
		"duplicate", resp.Duplicate,
	)
	status := http.StatusAccepted
	if resp.Duplicate {
		status = http.StatusOK
	}
	h.writeJSON(w, status, resp)
}

// IngestBulk accepts many posts; each item is validated and stored
// independently so one bad post does not reject the rest.
func (h *Handler) IngestBulk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ingestion.BulkIngestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Posts) == 0 {
		h.writeError(w, http.StatusBadRequest, "posts must not be empty")
		return
	}
	if h.maxBatchSize > 0 && len(req.Posts) > h.maxBatchSize {
		h.writeError(w, apperrors.HTTPStatusCode(apperrors.ErrBatchTooLarge), "too many posts in one request")
		return
	}

	results := make([]ingestion.BulkItemResult, len(req.Posts))
	accepted := 0
	for i := range req.Posts {
		item := &req.Posts[i]
		results[i].Index = i
		validator.Normalize(item)
		if err := validator.ValidateIngestRequest(item); err != nil {
			var validationErr *validator.ValidationError
			if errors.As(err, &validationErr) {
				results[i].Fields = validationErr.Fields
			}
			results[i].Error = "validation failed"
			continue
		}
		resp, err := h.ingester.Ingest(ctx, item)
		if err != nil {
			logger.FromContext(ctx).Error("bulk item ingestion failed", "index", i, "error", err)
			results[i].Error = "ingestion failed"
			continue
		}
		results[i].Result = resp
		accepted++
	}
	h.writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted": accepted,
		"results":  results,
	})
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

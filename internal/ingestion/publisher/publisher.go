// Package publisher persists posts to PostgreSQL and publishes ingest events
// to Kafka for the scoring worker. Writes are idempotent on
// (platform, external_id).
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/metrics"
)

// PostWriter stores posts.
type PostWriter interface {
	InsertPost(ctx context.Context, p *store.Post) (bool, error)
}

// EventPublisher sends events to Kafka.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Publisher coordinates post persistence and Kafka event production.
type Publisher struct {
	posts    PostWriter
	producer EventPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a Publisher. m may be nil.
func New(posts PostWriter, producer EventPublisher, m *metrics.Metrics) *Publisher {
	return &Publisher{
		posts:    posts,
		producer: producer,
		metrics:  m,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Ingest persists the post and publishes a PostIngestEvent. A duplicate
// returns the existing post without publishing again. A Kafka failure is
// logged and the post stays PENDING until the next re-scoring run picks it
// up.
func (p *Publisher) Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error) {
	post := &store.Post{
		Platform:   req.Platform,
		ExternalID: req.ExternalID,
		Title:      req.Title,
		Body:       req.Body,
		Author:     req.Author,
		URL:        req.URL,
	}
	if req.CreatedAt != nil {
		post.PostedAt = req.CreatedAt.UTC()
	}

	created, err := p.posts.InsertPost(ctx, post)
	if err != nil {
		p.count(req.Platform, "error")
		return nil, fmt.Errorf("storing post: %w", err)
	}
	if !created {
		p.count(req.Platform, "duplicate")
		return &ingestion.IngestResponse{PostID: post.ID, Status: post.Status, Duplicate: true}, nil
	}

	event := kafka.Event{
		Key:  post.ID,
		Type: ingestion.EventTypePostIngested,
		Value: ingestion.PostIngestEvent{
			PostID:     post.ID,
			Platform:   post.Platform,
			Title:      post.Title,
			Body:       post.Body,
			IngestedAt: time.Now().UTC(),
			RequestID:  logger.RequestID(ctx),
		},
	}
	if err := p.producer.Publish(ctx, event); err != nil {
		p.logger.Error("failed to publish to kafka, post stays PENDING",
			"post_id", post.ID,
			"error", err,
		)
	}
	p.count(req.Platform, "accepted")
	return &ingestion.IngestResponse{PostID: post.ID, Status: post.Status}, nil
}

func (p *Publisher) count(platform, status string) {
	if p.metrics != nil {
		p.metrics.PostsIngestedTotal.WithLabelValues(platform, status).Inc()
	}
}

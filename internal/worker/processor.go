// Package worker scores stored posts: it consumes post-ingest events from
// Kafka, persists each analysis and announces it on the post-scored topic.
// It also re-scores the whole corpus on a schedule.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/sentiment"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/theme"
	apperrors "github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/resilience"
)

// Analyzer is the part of pipeline.Engine the worker drives.
type Analyzer interface {
	Analyze(ctx context.Context, p pipeline.Post) pipeline.Analysis
	Workers() int
	LexiconVersion() string
}

// AnalysisWriter persists analyses. *store.Store implements it.
type AnalysisWriter interface {
	SaveAnalysis(ctx context.Context, postID string, a pipeline.Analysis, lexiconVersion string) error
}

// Tracker queues outgoing events. *collector.Outbox implements it.
type Tracker interface {
	Track(key, eventType string, value any)
}

// Processor scores one post at a time and stores the result.
type Processor struct {
	engine      Analyzer
	writer      AnalysisWriter
	tracker     Tracker
	itemTimeout time.Duration
	retry       resilience.Backoff
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewProcessor creates a Processor. tracker and m may be nil; itemTimeout
// <= 0 disables the per-post deadline.
func NewProcessor(engine Analyzer, writer AnalysisWriter, tracker Tracker, itemTimeout time.Duration, m *metrics.Metrics) *Processor {
	return &Processor{
		engine:      engine,
		writer:      writer,
		tracker:     tracker,
		itemTimeout: itemTimeout,
		retry:       resilience.StoreBackoff,
		metrics:     m,
		logger:      slog.Default().With("component", "score-worker"),
	}
}

// HandleMessage returns the Kafka handler for post-ingest events.
// Malformed events and events for posts that no longer exist are poison and
// get committed. Any other error, such as a storage failure, makes the
// consumer retry the same event in place, so the partition does not advance
// past it.
func HandleMessage(p *Processor) kafka.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		event, err := kafka.DecodeJSON[ingestion.PostIngestEvent](msg.Value)
		if err != nil {
			p.logger.Error("failed to decode ingest event", "error", err, "key", string(msg.Key), "offset", msg.Offset)
			return err
		}
		if event.PostID == "" {
			return fmt.Errorf("%w: ingest event without post_id", kafka.ErrPoison)
		}
		if event.RequestID != "" {
			ctx = logger.WithRequestID(ctx, event.RequestID)
		}
		ctx = logger.WithPostID(ctx, event.PostID)

		post := pipeline.Post{ID: event.PostID, Title: event.Title, Body: event.Body}
		return p.Process(ctx, post, event.Platform, false)
	}
}

// Process analyses post and persists the result. A post that cannot be
// analysed within the item timeout is stored as FAILED with a diagnostic.
func (p *Processor) Process(ctx context.Context, post pipeline.Post, platform string, rescore bool) error {
	start := time.Now()
	a, err := p.analyze(ctx, post)
	if err != nil {
		return err
	}
	if err := p.save(ctx, post.ID, a); err != nil {
		return err
	}
	p.track(post.ID, platform, a, time.Since(start), rescore)

	logger.FromContext(ctx).Info("post scored",
		"post_id", post.ID,
		"label", a.Brand.Label,
		"score", a.Brand.Score,
		"competitors", len(a.Competitors),
		"rescore", rescore,
		"latency", time.Since(start),
	)
	return nil
}

func (p *Processor) analyze(ctx context.Context, post pipeline.Post) (pipeline.Analysis, error) {
	a, err := resilience.Bounded(ctx, p.itemTimeout, func(tctx context.Context) (pipeline.Analysis, error) {
		a := p.engine.Analyze(tctx, post)
		return a, tctx.Err()
	})
	if err == nil {
		return a, nil
	}
	if ctx.Err() != nil {
		return pipeline.Analysis{}, ctx.Err()
	}
	p.logger.Warn("analysis timed out, storing neutral result", "post_id", post.ID, "error", err)
	if p.metrics != nil {
		p.metrics.ScoringErrorsTotal.WithLabelValues("timeout").Inc()
	}
	return pipeline.Analysis{
		PostID:      post.ID,
		Brand:       sentiment.Failed(err.Error()),
		Competitors: map[string]sentiment.Result{},
	}, nil
}

func (p *Processor) save(ctx context.Context, postID string, a pipeline.Analysis) error {
	err := resilience.Retry(ctx, "save analysis "+postID, p.retry, func(ctx context.Context, _ int) error {
		err := p.writer.SaveAnalysis(ctx, postID, a, p.engine.LexiconVersion())
		if errors.Is(err, apperrors.ErrPostNotFound) {
			return resilience.Permanent(err)
		}
		return err
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperrors.ErrPostNotFound):
		return fmt.Errorf("%w: %w", kafka.ErrPoison, err)
	default:
		return fmt.Errorf("%w: post %s: %w", apperrors.ErrStoreUnwritten, postID, err)
	}
}

func (p *Processor) track(postID, platform string, a pipeline.Analysis, latency time.Duration, rescore bool) {
	if p.tracker == nil {
		return
	}
	p.tracker.Track(postID, analytics.EventTypePostScored, analytics.PostScoredEvent{
		PostID:         postID,
		Platform:       platform,
		Brand:          a.Brand,
		Themes:         theme.Relevant(a.Themes),
		Competitors:    a.Competitors,
		LatencyMs:      latency.Milliseconds(),
		Rescore:        rescore,
		LexiconVersion: p.engine.LexiconVersion(),
		ScoredAt:       time.Now().UTC(),
	})
}

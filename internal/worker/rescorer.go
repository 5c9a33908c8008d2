package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/metrics"
)

// ErrRescoreRunning is returned when a run is requested while one is in
// progress.
var ErrRescoreRunning = errors.New("rescore already running")

// PostPager pages through stored posts in id order. *store.Store
// implements it.
type PostPager interface {
	PostsAfter(ctx context.Context, afterID string, limit int) ([]store.Post, error)
}

// RescoreReport summarises one run.
type RescoreReport struct {
	Pages    int           `json:"pages"`
	Posts    int           `json:"posts"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Rescorer re-analyses every stored post so results follow lexicon and
// entity changes.
type Rescorer struct {
	pager     PostPager
	processor *Processor
	pageSize  int
	running   atomic.Bool
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewRescorer creates a Rescorer that stores results through processor.
func NewRescorer(pager PostPager, processor *Processor, pageSize int, m *metrics.Metrics) *Rescorer {
	if pageSize <= 0 {
		pageSize = 200
	}
	return &Rescorer{
		pager:     pager,
		processor: processor,
		pageSize:  pageSize,
		metrics:   m,
		logger:    slog.Default().With("component", "rescorer"),
	}
}

// Run re-scores all posts page by page. Posts whose result cannot be stored
// are counted in Failed and skipped; paging errors abort the run.
func (r *Rescorer) Run(ctx context.Context) (RescoreReport, error) {
	if !r.running.CompareAndSwap(false, true) {
		r.count("skipped")
		return RescoreReport{}, ErrRescoreRunning
	}
	defer r.running.Store(false)

	start := time.Now()
	var report RescoreReport
	afterID := ""
	for {
		page, err := r.pager.PostsAfter(ctx, afterID, r.pageSize)
		if err != nil {
			r.count("error")
			return report, fmt.Errorf("loading posts after %q: %w", afterID, err)
		}
		if len(page) == 0 {
			break
		}
		report.Pages++

		batchStart := time.Now()
		analyses, err := r.analyzePage(ctx, page)
		if err != nil {
			r.count("error")
			return report, err
		}
		perPost := time.Since(batchStart) / time.Duration(len(page))
		for i, a := range analyses {
			report.Posts++
			if err := r.processor.save(ctx, page[i].ID, a); err != nil {
				if ctx.Err() != nil {
					r.count("error")
					return report, ctx.Err()
				}
				report.Failed++
				r.logger.Error("failed to store rescored post", "post_id", page[i].ID, "error", err)
				continue
			}
			r.processor.track(page[i].ID, page[i].Platform, a, perPost, true)
		}

		afterID = page[len(page)-1].ID
		if len(page) < r.pageSize {
			break
		}
	}
	report.Duration = time.Since(start)
	r.count("success")
	r.logger.Info("rescore complete",
		"pages", report.Pages,
		"posts", report.Posts,
		"failed", report.Failed,
		"duration", report.Duration,
	)
	return report, nil
}

// analyzePage scores a page in parallel, each post under the processor's
// item timeout, so one slow post cannot stall the run.
func (r *Rescorer) analyzePage(ctx context.Context, page []store.Post) ([]pipeline.Analysis, error) {
	analyses := make([]pipeline.Analysis, len(page))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.processor.engine.Workers()))
	for i, sp := range page {
		g.Go(func() error {
			a, err := r.processor.analyze(gctx, pipeline.Post{ID: sp.ID, Title: sp.Title, Body: sp.Body})
			analyses[i] = a
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return analyses, nil
}

// Schedule runs Run on the cron expression schedule until ctx is done.
func (r *Rescorer) Schedule(ctx context.Context, schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := r.Run(ctx); err != nil && !errors.Is(err, ErrRescoreRunning) {
			r.logger.Error("scheduled rescore failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("parsing rescore schedule %q: %w", schedule, err)
	}
	c.Start()
	r.logger.Info("rescore scheduled", "schedule", schedule)
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}

func (r *Rescorer) count(status string) {
	if r.metrics != nil {
		r.metrics.RescoreRunsTotal.WithLabelValues(status).Inc()
	}
}

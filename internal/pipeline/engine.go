// Package pipeline runs the scoring engine over single posts and batches.
// Batches are scored in parallel with bounded concurrency and results keep
// input order. A failure in one post never fails the batch: the post gets a
// neutral result carrying a diagnostic and the failure is logged.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/entity"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/lexicon"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/segment"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/sentiment"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/theme"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/tracing"
)

// Post is the scoring input: a title (may be empty) and a body.
type Post struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Analysis is everything the engine derives from one post.
type Analysis struct {
	PostID      string                      `json:"post_id,omitempty"`
	Brand       sentiment.Result            `json:"brand"`
	Themes      theme.Scores                `json:"themes"`
	Competitors map[string]sentiment.Result `json:"competitors"`
}

// CompetitorResult is the sentiment of one post towards one competitor it
// mentions.
type CompetitorResult struct {
	PostIndex  int              `json:"post_index"`
	PostID     string           `json:"post_id,omitempty"`
	Competitor string           `json:"competitor"`
	Result     sentiment.Result `json:"result"`
}

// Options controls engine behaviour.
type Options struct {
	Workers        int
	CompetitorMode bool
	// LexiconVersion is recorded against stored results and keys the cache.
	LexiconVersion string
}

// Engine is the entry point for scoring. It holds only immutable
// collaborators and is safe for concurrent use.
type Engine struct {
	registry   *entity.Registry
	analyzer   *sentiment.Analyzer
	classifier *theme.Classifier
	opts       Options
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New assembles an engine from prebuilt components. m may be nil.
func New(reg *entity.Registry, an *sentiment.Analyzer, cl *theme.Classifier, opts Options, m *metrics.Metrics) *Engine {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Engine{
		registry:   reg,
		analyzer:   an,
		classifier: cl,
		opts:       opts,
		metrics:    m,
		logger:     slog.Default().With("component", "scoring-engine"),
	}
}

// Build loads the lexicon and entity registry described by configuration and
// wires the full scoring stack. A lexicon or registry error here is fatal for
// the calling service.
func Build(cfg config.AnalyzerConfig, entities config.EntitiesConfig, m *metrics.Metrics, extOpts ...segment.Option) (*Engine, error) {
	lex, err := lexicon.Load(cfg.LexiconPath)
	if err != nil {
		return nil, err
	}
	reg, err := entity.NewRegistry(entities)
	if err != nil {
		return nil, fmt.Errorf("building entity registry: %w", err)
	}
	ext := segment.NewExtractor(reg, extOpts...)
	an := sentiment.NewAnalyzer(reg, ext, lex)
	cl := theme.NewClassifier(lex, ext)
	return New(reg, an, cl, Options{
		Workers:        cfg.Workers,
		CompetitorMode: cfg.CompetitorMode,
		LexiconVersion: lex.Version,
	}, m), nil
}

// Registry exposes the engine's entity registry.
func (e *Engine) Registry() *entity.Registry { return e.registry }

// Classifier exposes the engine's theme classifier.
func (e *Engine) Classifier() *theme.Classifier { return e.classifier }

// Analyzer exposes the engine's sentiment analyzer.
func (e *Engine) Analyzer() *sentiment.Analyzer { return e.analyzer }

// LexiconVersion identifies the vocabulary results were produced with.
func (e *Engine) LexiconVersion() string { return e.opts.LexiconVersion }

// Workers is the number of posts a batch scores at once.
func (e *Engine) Workers() int { return e.opts.Workers }

// CompetitorMode reports whether Analyze scores mentioned competitors.
func (e *Engine) CompetitorMode() bool { return e.opts.CompetitorMode }

// ScoreSentiment scores one post towards entityName. A panic inside the
// scorers becomes a neutral result with the diagnostic in Error, as does a
// ctx that ends before scoring finishes.
func (e *Engine) ScoreSentiment(ctx context.Context, p Post, entityName string) sentiment.Result {
	start := time.Now()
	var (
		res  sentiment.Result
		cerr error
	)
	err := e.protect(func() {
		var d sentiment.Detail
		d, cerr = e.analyzer.ExplainContext(ctx, p.Title, p.Body, entityName)
		res = d.Result
		e.countSegments(d.Segments)
	})
	switch {
	case err != nil:
		e.fail(ctx, "sentiment", p, entityName, err)
		res = sentiment.Failed(err.Error())
	case cerr != nil:
		return sentiment.Failed(cerr.Error())
	}
	e.observe("sentiment", start)
	e.countResult(entityName, res)
	return res
}

// ScoreThemes scores the themes of the part of p about entityName. A panic
// or an ended ctx yields all-zero scores.
func (e *Engine) ScoreThemes(ctx context.Context, p Post, entityName string) theme.Scores {
	start := time.Now()
	var (
		scores theme.Scores
		cerr   error
	)
	err := e.protect(func() {
		scores, cerr = e.classifier.ScoreThemesContext(ctx, p.Title, p.Body, entityName)
	})
	switch {
	case err != nil:
		e.fail(ctx, "themes", p, entityName, err)
		scores = e.classifier.Zero()
	case cerr != nil:
		return scores
	}
	e.observe("themes", start)
	if e.metrics != nil {
		for name := range theme.Relevant(scores) {
			e.metrics.ThemeAssignmentsTotal.WithLabelValues(name).Inc()
		}
	}
	return scores
}

// Analyze scores brand sentiment and themes for p and, in competitor mode,
// sentiment towards every competitor p mentions. Once ctx is done the
// remaining stages are skipped.
func (e *Engine) Analyze(ctx context.Context, p Post) Analysis {
	brand := e.registry.Brand()
	a := Analysis{
		PostID:      p.ID,
		Brand:       e.ScoreSentiment(ctx, p, brand),
		Themes:      e.ScoreThemes(ctx, p, brand),
		Competitors: map[string]sentiment.Result{},
	}
	if e.opts.CompetitorMode {
		for _, comp := range e.MentionedCompetitors(p) {
			if ctx.Err() != nil {
				break
			}
			a.Competitors[comp] = e.ScoreSentiment(ctx, p, comp)
		}
	}
	return a
}

// MentionedCompetitors lists the competitors whose identifiers occur in p.
func (e *Engine) MentionedCompetitors(p Post) []string {
	if p.Body == "" {
		return nil
	}
	text := sentiment.CombinedText(p.Title, p.Body)
	var out []string
	for _, comp := range e.registry.Competitors() {
		if e.registry.Mentions(text, comp) {
			out = append(out, comp)
		}
	}
	return out
}

// ScoreBatch scores every post towards entityName in parallel. results[i]
// corresponds to posts[i]. The only error is context cancellation.
func (e *Engine) ScoreBatch(ctx context.Context, posts []Post, entityName string) ([]sentiment.Result, error) {
	ctx, span := tracing.StartChildSpan(ctx, "score_batch")
	defer span.End()
	span.SetAttr("entity", entityName)
	span.SetAttr("posts", len(posts))
	e.observeBatch(len(posts))

	results := make([]sentiment.Result, len(posts))
	err := e.forEach(ctx, len(posts), func(i int) {
		results[i] = e.ScoreSentiment(ctx, posts[i], entityName)
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// AnalyzeBatch runs Analyze over posts in parallel, preserving order.
func (e *Engine) AnalyzeBatch(ctx context.Context, posts []Post) ([]Analysis, error) {
	ctx, span := tracing.StartChildSpan(ctx, "analyze_batch")
	defer span.End()
	span.SetAttr("posts", len(posts))
	e.observeBatch(len(posts))

	results := make([]Analysis, len(posts))
	err := e.forEach(ctx, len(posts), func(i int) {
		results[i] = e.Analyze(ctx, posts[i])
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ScoreCompetitors produces one result per (post, competitor) pair for each
// competitor a post mentions, ordered by post then competitor declaration.
func (e *Engine) ScoreCompetitors(ctx context.Context, posts []Post) ([]CompetitorResult, error) {
	ctx, span := tracing.StartChildSpan(ctx, "score_competitors")
	defer span.End()

	perPost := make([][]CompetitorResult, len(posts))
	err := e.forEach(ctx, len(posts), func(i int) {
		for _, comp := range e.MentionedCompetitors(posts[i]) {
			perPost[i] = append(perPost[i], CompetitorResult{
				PostIndex:  i,
				PostID:     posts[i].ID,
				Competitor: comp,
				Result:     e.ScoreSentiment(ctx, posts[i], comp),
			})
		}
	})
	if err != nil {
		return nil, err
	}
	var out []CompetitorResult
	for _, rs := range perPost {
		out = append(out, rs...)
	}
	span.SetAttr("pairs", len(out))
	return out, nil
}

// forEach calls fn(i) for i in [0, n) on at most Workers goroutines.
func (e *Engine) forEach(ctx context.Context, n int, fn func(i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// protect runs fn and converts a panic into an error.
func (e *Engine) protect(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", apperrors.ErrScoringPanic, r)
		}
	}()
	fn()
	return nil
}

func (e *Engine) fail(ctx context.Context, stage string, p Post, entityName string, err error) {
	e.logger.ErrorContext(ctx, "scoring failed, substituting neutral result",
		"stage", stage,
		"post_id", p.ID,
		"entity", entityName,
		"error", err,
	)
	if e.metrics != nil {
		e.metrics.ScoringErrorsTotal.WithLabelValues(stage).Inc()
	}
}

func (e *Engine) observe(op string, start time.Time) {
	if e.metrics != nil {
		e.metrics.ScoringLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

func (e *Engine) observeBatch(n int) {
	if e.metrics != nil {
		e.metrics.BatchSize.Observe(float64(n))
	}
}

func (e *Engine) countResult(entityName string, r sentiment.Result) {
	if e.metrics != nil && e.registry.Known(entityName) {
		name := strings.ToLower(strings.TrimSpace(entityName))
		e.metrics.PostsScoredTotal.WithLabelValues(name, string(r.Label)).Inc()
	}
}

func (e *Engine) countSegments(segs []segment.Segment) {
	if e.metrics == nil {
		return
	}
	for _, s := range segs {
		e.metrics.SegmentsTotal.WithLabelValues(s.Source).Inc()
	}
}

package sentiment

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/entity"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/lexicon"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/segment"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/textnorm"
)

// CompoundScorer produces a normalized compound polarity in [-1, 1].
type CompoundScorer interface {
	Compound(text string) float64
}

// PolarityScorer produces polarity in [-1, 1] and subjectivity in [0, 1].
type PolarityScorer interface {
	Score(text string) (polarity, subjectivity float64)
}

// Detail is a scored result together with the evidence behind it.
type Detail struct {
	Result   Result            `json:"result"`
	Bundle   ScoreBundle       `json:"bundle"`
	Segments []segment.Segment `json:"segments"`
	Scoped   string            `json:"scoped_text"`
}

// Analyzer scores entity-scoped sentiment. All of its collaborators are
// immutable, so one Analyzer serves concurrent callers.
type Analyzer struct {
	registry  *entity.Registry
	extractor *segment.Extractor
	compound  CompoundScorer
	polarity  PolarityScorer
	business  *BusinessScorer
	logger    *slog.Logger
}

// AnalyzerOption customises an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithCompoundScorer replaces the VADER scorer.
func WithCompoundScorer(c CompoundScorer) AnalyzerOption {
	return func(a *Analyzer) { a.compound = c }
}

// WithPolarityScorer replaces the pattern polarity scorer.
func WithPolarityScorer(p PolarityScorer) AnalyzerOption {
	return func(a *Analyzer) { a.polarity = p }
}

// NewAnalyzer wires the default scorers over lex.
func NewAnalyzer(reg *entity.Registry, ext *segment.Extractor, lex *lexicon.Lexicon, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		registry:  reg,
		extractor: ext,
		business:  NewBusinessScorer(lex),
		logger:    slog.Default().With("component", "sentiment-analyzer"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.compound == nil {
		a.compound = lexicon.NewVaderScorer()
	}
	if a.polarity == nil {
		a.polarity = lexicon.NewPatternScorer(lex)
	}
	return a
}

// ScoreSentiment returns the sentiment of the post towards entityName. A
// blank body, an unknown entity or a post that never discusses the entity
// yields the neutral zero result.
func (a *Analyzer) ScoreSentiment(title, body, entityName string) Result {
	return a.Explain(title, body, entityName).Result
}

// Explain is ScoreSentiment with the segments and raw scores attached.
func (a *Analyzer) Explain(title, body, entityName string) Detail {
	d, _ := a.ExplainContext(context.Background(), title, body, entityName)
	return d
}

// ExplainContext is Explain that abandons segment extraction once ctx is
// done, returning ctx's error with a neutral Detail.
func (a *Analyzer) ExplainContext(ctx context.Context, title, body, entityName string) (Detail, error) {
	d := Detail{Result: NeutralResult(), Segments: []segment.Segment{}}
	if strings.TrimSpace(body) == "" || !a.registry.Known(entityName) {
		return d, nil
	}
	segs, err := a.extractor.ExtractContext(ctx, CombinedText(title, body), entityName)
	if err != nil {
		return d, err
	}
	if len(segs) == 0 {
		return d, nil
	}
	d.Segments = segs
	d.Scoped = ScopedText(segs)
	d.Bundle = a.Score(d.Scoped)
	d.Result = Combine(d.Bundle)
	a.logger.Debug("scored entity sentiment",
		"entity", entityName,
		"segments", len(segs),
		"score", d.Result.Score,
		"label", d.Result.Label,
	)
	return d, nil
}

// Score runs the three scorers over already-scoped text.
func (a *Analyzer) Score(scoped string) ScoreBundle {
	clean := textnorm.Clean(scoped)
	pol, subj := a.polarity.Score(clean)
	biz := a.business.Score(clean)
	return ScoreBundle{
		CompoundPolarity:     a.compound.Compound(clean),
		Polarity:             pol,
		Subjectivity:         subj,
		BusinessSentiment:    biz.Sentiment,
		PositiveKeywordCount: biz.Positive,
		NegativeKeywordCount: biz.Negative,
		Aspects:              biz.Aspects,
		ConfidenceComponent:  biz.ConfidenceComponent,
	}
}

// CombinedText joins title and body and normalizes the result. A URL or
// markdown marker never reaches the extractor.
func CombinedText(title, body string) string {
	return textnorm.Clean(title + " " + body)
}

// ScopedText joins segment texts with single spaces.
func ScopedText(segs []segment.Segment) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = s.Text
	}
	return strings.Join(parts, " ")
}

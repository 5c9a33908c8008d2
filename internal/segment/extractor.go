// Package segment isolates the parts of a post that are about one entity.
//
// A post is split into sentences. A sentence that names the target entity
// and no other entity is kept whole. A sentence that also names another
// entity is narrowed by an ordered list of clause strategies, the first
// success winning. When no sentence yields a segment but the text still
// contains an identifier, fixed word windows around each mention are used.
// An empty result means the entity is not discussed.
package segment

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/entity"
)

const (
	// DefaultClauseWindow is the word radius of the in-sentence fallback.
	DefaultClauseWindow = 5
	// DefaultDocumentWindow is the word radius of the document-level fallback.
	DefaultDocumentWindow = 8
)

// Segment is one entity-scoped excerpt and the rule that produced it.
type Segment struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Extractor finds entity-scoped segments. It is immutable after construction
// and safe for concurrent use.
type Extractor struct {
	targets      map[string]*Target
	splitter     Splitter
	strategies   []Strategy
	clauseWindow int
	docWindow    int
	logger       *slog.Logger
}

// Option customises an Extractor.
type Option func(*Extractor)

// WithSplitter replaces the sentence splitter.
func WithSplitter(s Splitter) Option {
	return func(e *Extractor) { e.splitter = s }
}

// WithStrategies replaces the clause strategy list.
func WithStrategies(s ...Strategy) Option {
	return func(e *Extractor) { e.strategies = s }
}

// WithWindows sets the clause-level and document-level fallback radii.
func WithWindows(clause, document int) Option {
	return func(e *Extractor) {
		e.clauseWindow = clause
		e.docWindow = document
	}
}

// NewExtractor compiles matching patterns for every entity in reg.
func NewExtractor(reg *entity.Registry, opts ...Option) *Extractor {
	e := &Extractor{
		targets:      make(map[string]*Target),
		splitter:     ProseSplitter{},
		clauseWindow: DefaultClauseWindow,
		docWindow:    DefaultDocumentWindow,
		logger:       slog.Default().With("component", "segment-extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.strategies == nil {
		e.strategies = DefaultStrategies(e.clauseWindow)
	}
	for _, name := range reg.Names() {
		e.targets[name] = newTarget(name, reg.IdentifiersFor(name), reg.OtherIdentifiers(name))
	}
	return e
}

// Extract returns the ordered segments of text about entityName. An unknown
// entity or blank text yields nil.
func (e *Extractor) Extract(text, entityName string) []string {
	segs := e.ExtractDetailed(text, entityName)
	if len(segs) == 0 {
		return nil
	}
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.Text
	}
	return out
}

// ExtractDetailed is Extract with the producing rule attached to each
// segment.
func (e *Extractor) ExtractDetailed(text, entityName string) []Segment {
	segs, _ := e.ExtractContext(context.Background(), text, entityName)
	return segs
}

// ExtractContext is ExtractDetailed that stops once ctx is done. It checks
// between sentences and between clause strategies and returns ctx's error.
func (e *Extractor) ExtractContext(ctx context.Context, text, entityName string) ([]Segment, error) {
	t, ok := e.targets[strings.ToLower(strings.TrimSpace(entityName))]
	if !ok || strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var out []Segment
	for _, sentence := range e.sentences(text) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := strings.ToLower(strings.TrimSpace(sentence))
		if !t.mentionedIn(s) {
			continue
		}
		if !t.crossMentionIn(s) {
			out = append(out, Segment{Text: s, Source: SourceSentence})
			continue
		}
		for _, st := range e.strategies {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if clause, ok := st.Extract(s, t); ok {
				out = append(out, Segment{Text: clause, Source: st.Name()})
				break
			}
		}
	}
	if len(out) > 0 {
		return out, nil
	}

	lower := strings.ToLower(text)
	if !t.mentionedIn(lower) {
		return nil, nil
	}
	words := strings.Fields(lower)
	for i, w := range words {
		if t.wordMentions(w) {
			out = append(out, Segment{Text: window(words, i, e.docWindow), Source: SourceDocumentWindow})
		}
	}
	return out, nil
}

// sentences splits text with the configured splitter, falling back to a
// period split if it fails or panics.
func (e *Extractor) sentences(text string) (out []string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("sentence splitter panicked, using period split", "panic", r)
			out = splitOnPeriods(text)
		}
	}()
	sents, err := e.splitter.Split(text)
	if err != nil {
		e.logger.Warn("sentence splitter failed, using period split", "error", err)
		return splitOnPeriods(text)
	}
	if len(sents) == 0 {
		return splitOnPeriods(text)
	}
	return sents
}

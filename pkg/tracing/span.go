// Package tracing records in-process span trees for sampled requests. A root
// span is opened per request, scoring stages hang child spans off it, and
// the finished tree is written as one structured log record.
package tracing

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

type spanKey struct{}

// Span is one timed step of a trace. Name and TraceID are fixed at creation;
// everything else is guarded by mu.
type Span struct {
	Name    string
	TraceID string
	ID      string

	mu       sync.Mutex
	start    time.Time
	end      time.Time
	attrs    []slog.Attr
	children []*Span
}

func newSpan(name, traceID string) *Span {
	return &Span{
		Name:    name,
		TraceID: traceID,
		ID:      uuid.NewString()[:8],
		start:   time.Now(),
	}
}

// StartSpan opens a root span. An empty traceID gets a random one.
func StartSpan(ctx context.Context, name, traceID string) (context.Context, *Span) {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	s := newSpan(name, traceID)
	return context.WithValue(ctx, spanKey{}, s), s
}

// StartChildSpan opens a span under the one in ctx. Without a parent the span
// is detached: it has no trace ID and is never logged.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	parent := SpanFromContext(ctx)
	var s *Span
	if parent == nil {
		s = newSpan(name, "")
	} else {
		s = newSpan(name, parent.TraceID)
		parent.mu.Lock()
		parent.children = append(parent.children, s)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, spanKey{}, s), s
}

// SpanFromContext returns the innermost span in ctx, or nil.
func SpanFromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(spanKey{}).(*Span)
	return s
}

// End stops the clock. Later calls are ignored.
func (s *Span) End() {
	s.mu.Lock()
	if s.end.IsZero() {
		s.end = time.Now()
	}
	s.mu.Unlock()
}

// Ended reports whether End was called.
func (s *Span) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.end.IsZero()
}

// Duration is the span's length, or the time elapsed so far if it is open.
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.end.IsZero() {
		return time.Since(s.start)
	}
	return s.end.Sub(s.start)
}

// SetAttr records key=value on the span, replacing an earlier value.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.attrs {
		if a.Key == key {
			s.attrs[i] = slog.Any(key, value)
			return
		}
	}
	s.attrs = append(s.attrs, slog.Any(key, value))
}

// Attr returns the value recorded under key.
func (s *Span) Attr(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attrs {
		if a.Key == key {
			return a.Value.Any(), true
		}
	}
	return nil, false
}

// Children returns a copy of the direct child spans in start order.
func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// LogValue renders the span and its subtree as nested groups.
func (s *Span) LogValue() slog.Value {
	s.mu.Lock()
	attrs := make([]slog.Attr, 0, len(s.attrs)+4)
	attrs = append(attrs,
		slog.String("name", s.Name),
		slog.String("id", s.ID),
	)
	if !s.end.IsZero() {
		attrs = append(attrs, slog.Float64("ms", float64(s.end.Sub(s.start).Microseconds())/1000))
	}
	attrs = append(attrs, s.attrs...)
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	for i, c := range children {
		attrs = append(attrs, slog.Any("child_"+strconv.Itoa(i), c))
	}
	return slog.GroupValue(attrs...)
}

// Log writes the whole tree as a single debug record.
func (s *Span) Log(ctx context.Context) {
	if s.TraceID == "" {
		return
	}
	slog.Default().DebugContext(ctx, "trace", "trace_id", s.TraceID, "span", s)
}


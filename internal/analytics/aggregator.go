// Package analytics aggregates scoring events from Kafka into live
// statistics and publishes those events in batches.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/sentiment"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/kafka"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

// AggregatedStats is the live view served by GET /api/v1/stats.
type AggregatedStats struct {
	TotalScored     int64             `json:"total_scored"`
	Rescored        int64             `json:"rescored"`
	Failed          int64             `json:"failed"`
	BrandLabels     map[string]int64  `json:"brand_labels"`
	AvgBrandScore   float64           `json:"avg_brand_score"`
	Platforms       map[string]int64  `json:"platforms"`
	TopThemes       []NameCount       `json:"top_themes"`
	Competitors     []CompetitorCount `json:"competitors"`
	AvgLatencyMs    float64           `json:"avg_latency_ms"`
	P50LatencyMs    int64             `json:"p50_latency_ms"`
	P95LatencyMs    int64             `json:"p95_latency_ms"`
	P99LatencyMs    int64             `json:"p99_latency_ms"`
	PostsPerMinute  float64           `json:"posts_per_minute"`
	LexiconVersions []string          `json:"lexicon_versions"`
	Since           time.Time         `json:"since"`
}

// NameCount is a named counter.
type NameCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// CompetitorCount aggregates live sentiment towards one competitor.
type CompetitorCount struct {
	Name     string  `json:"name"`
	Mentions int64   `json:"mentions"`
	AvgScore float64 `json:"avg_score"`
}

type competitorAcc struct {
	mentions int64
	sum      float64
}

// Aggregator folds PostScoredEvents into counters. It is safe for
// concurrent use.
type Aggregator struct {
	mu          sync.RWMutex
	total       int64
	rescored    int64
	failed      int64
	scoreSum    float64
	labels      map[string]int64
	platforms   map[string]int64
	themes      map[string]int64
	competitors map[string]*competitorAcc
	versions    map[string]struct{}
	latencies   []int64
	next        int
	startTime   time.Time

	logger *slog.Logger
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		labels:      make(map[string]int64),
		platforms:   make(map[string]int64),
		themes:      make(map[string]int64),
		competitors: make(map[string]*competitorAcc),
		versions:    make(map[string]struct{}),
		latencies:   make([]int64, 0, 1024),
		startTime:   time.Now(),
		logger:      slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent returns the Kafka handler feeding agg.
func HandleEvent(agg *Aggregator) kafka.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		event, err := kafka.DecodeJSON[PostScoredEvent](msg.Value)
		if err != nil {
			return err
		}
		if event.PostID == "" {
			return fmt.Errorf("%w: post-scored event without post_id", kafka.ErrPoison)
		}
		agg.Record(event)
		return nil
	}
}

// Record adds one event.
func (a *Aggregator) Record(e PostScoredEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	if e.Rescore {
		a.rescored++
	}
	if e.Brand.Error != "" {
		a.failed++
	}
	if e.Brand.Label != "" {
		a.labels[string(e.Brand.Label)]++
	}
	a.scoreSum += e.Brand.Score
	if e.Platform != "" {
		a.platforms[e.Platform]++
	}
	for name := range e.Themes {
		a.themes[name]++
	}
	for name, r := range e.Competitors {
		acc, ok := a.competitors[name]
		if !ok {
			acc = &competitorAcc{}
			a.competitors[name] = acc
		}
		acc.mentions++
		acc.sum += r.Score
	}
	if e.LexiconVersion != "" {
		a.versions[e.LexiconVersion] = struct{}{}
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, e.LatencyMs)
	} else {
		a.latencies[a.next] = e.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}
}

// Stats returns a snapshot of the counters.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalScored:     a.total,
		Rescored:        a.rescored,
		Failed:          a.failed,
		BrandLabels:     map[string]int64{},
		Platforms:       map[string]int64{},
		TopThemes:       topN(a.themes, 10),
		Competitors:     []CompetitorCount{},
		LexiconVersions: []string{},
		Since:           a.startTime.UTC(),
	}
	for _, l := range []sentiment.Label{sentiment.Positive, sentiment.Negative, sentiment.Neutral} {
		stats.BrandLabels[string(l)] = a.labels[string(l)]
	}
	for k, v := range a.platforms {
		stats.Platforms[k] = v
	}
	if a.total > 0 {
		stats.AvgBrandScore = a.scoreSum / float64(a.total)
	}
	for name, acc := range a.competitors {
		stats.Competitors = append(stats.Competitors, CompetitorCount{
			Name:     name,
			Mentions: acc.mentions,
			AvgScore: acc.sum / float64(acc.mentions),
		})
	}
	sort.Slice(stats.Competitors, func(i, j int) bool {
		if stats.Competitors[i].Mentions != stats.Competitors[j].Mentions {
			return stats.Competitors[i].Mentions > stats.Competitors[j].Mentions
		}
		return stats.Competitors[i].Name < stats.Competitors[j].Name
	})
	for v := range a.versions {
		stats.LexiconVersions = append(stats.LexiconVersions, v)
	}
	sort.Strings(stats.LexiconVersions)

	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.PostsPerMinute = float64(a.total) / elapsed
	}
	return stats
}

// Restore seeds counters from a persisted snapshot so totals survive
// restarts. Percentiles and rates start fresh.
func (a *Aggregator) Restore(s AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total = s.TotalScored
	a.rescored = s.Rescored
	a.failed = s.Failed
	a.scoreSum = s.AvgBrandScore * float64(s.TotalScored)
	for k, v := range s.BrandLabels {
		a.labels[k] = v
	}
	for k, v := range s.Platforms {
		a.platforms[k] = v
	}
	for _, t := range s.TopThemes {
		a.themes[t.Name] = t.Count
	}
	for _, c := range s.Competitors {
		a.competitors[c.Name] = &competitorAcc{mentions: c.Mentions, sum: c.AvgScore * float64(c.Mentions)}
	}
	for _, v := range s.LexiconVersions {
		a.versions[v] = struct{}{}
	}
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []NameCount {
	result := make([]NameCount, 0, len(counts))
	for name, count := range counts {
		result = append(result, NameCount{Name: name, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Name < result[j].Name
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}

// Package integration contains tests that verify the interaction between
// platform components against a real PostgreSQL database. Kafka is replaced
// by in-memory fakes.
//
// Run with:
//
//	go test -v ./test/integration/...
package integration

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/sentiment"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/worker"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/postgres"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *store.Store {
	t.Helper()
	db, err := postgres.New(testPostgresConfig())
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	if err := st.EnsureSchema(t.Context()); err != nil {
		t.Fatalf("ensuring schema: %v", err)
	}
	return st
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "brandsentiment_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "brandsentiment"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

func newEngine(t *testing.T) *pipeline.Engine {
	t.Helper()
	e, err := pipeline.Build(config.AnalyzerConfig{Workers: 2, CompetitorMode: true}, config.DefaultEntities(), nil)
	if err != nil {
		t.Fatalf("building engine: %v", err)
	}
	return e
}

type memProducer struct {
	mu     sync.Mutex
	events []kafka.Event
}

func (m *memProducer) Publish(_ context.Context, e kafka.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

type memTracker struct {
	mu     sync.Mutex
	events int
}

func (m *memTracker) Track(string, string, any) {
	m.mu.Lock()
	m.events++
	m.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

// TestIngestScoreAndQuery runs a post through ingestion, scoring and the
// dashboard queries.
func TestIngestScoreAndQuery(t *testing.T) {
	st := skipIfNoPostgres(t)
	ctx := t.Context()
	engine := newEngine(t)
	if err := st.SyncThemes(ctx, engine.Classifier().Descriptions()); err != nil {
		t.Fatalf("syncing themes: %v", err)
	}

	prod := &memProducer{}
	pub := publisher.New(st, prod, nil)

	req := &ingestion.IngestRequest{
		Platform:   "reddit",
		ExternalID: "it-" + uuid.NewString(),
		Title:      "Payroll switch",
		Body:       "Switched from ADP to Gusto, ADP's fees kept creeping up but Gusto has been great, no issues at all.",
	}
	resp, err := pub.Ingest(ctx, req)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if resp.Status != store.StatusPending || resp.Duplicate {
		t.Fatalf("unexpected ingest response: %+v", resp)
	}

	again, err := pub.Ingest(ctx, req)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !again.Duplicate || again.PostID != resp.PostID {
		t.Errorf("expected duplicate of %s, got %+v", resp.PostID, again)
	}
	if len(prod.events) != 1 {
		t.Errorf("expected one published event, got %d", len(prod.events))
	}

	tracker := &memTracker{}
	proc := worker.NewProcessor(engine, st, tracker, 5*time.Second, nil)
	post := pipeline.Post{ID: resp.PostID, Title: req.Title, Body: req.Body}
	if err := proc.Process(ctx, post, req.Platform, false); err != nil {
		t.Fatalf("process: %v", err)
	}

	stored, err := st.GetPost(ctx, resp.PostID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if stored.Status != store.StatusScored {
		t.Errorf("status = %s, want SCORED", stored.Status)
	}
	if stored.SentimentLabel != string(sentiment.Positive) {
		t.Errorf("brand label = %s, want positive", stored.SentimentLabel)
	}

	comps, err := st.CompetitorMentions(ctx, resp.PostID)
	if err != nil {
		t.Fatalf("competitor mentions: %v", err)
	}
	if comps["adp"].Label != sentiment.Negative {
		t.Errorf("adp label = %s, want negative", comps["adp"].Label)
	}
	if tracker.events != 1 {
		t.Errorf("expected one scored event, got %d", tracker.events)
	}

	ov, err := st.Overview(ctx, 30)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if ov.ScoredPosts < 1 {
		t.Errorf("expected at least one scored post, got %d", ov.ScoredPosts)
	}
	if _, err := st.Competitors(ctx, 30); err != nil {
		t.Errorf("competitors: %v", err)
	}
	if _, err := st.Trends(ctx, 30); err != nil {
		t.Errorf("trends: %v", err)
	}
}

// TestSaveAnalysisUnknownPost verifies a missing post is reported as not
// found so the worker treats the event as poison.
func TestSaveAnalysisUnknownPost(t *testing.T) {
	st := skipIfNoPostgres(t)
	err := st.SaveAnalysis(t.Context(), uuid.NewString(), pipeline.Analysis{Brand: sentiment.NeutralResult()}, "test")
	if !errors.Is(err, apperrors.ErrPostNotFound) {
		t.Errorf("expected ErrPostNotFound, got %v", err)
	}
}

// TestRescoreRun re-scores stored posts page by page.
func TestRescoreRun(t *testing.T) {
	st := skipIfNoPostgres(t)
	ctx := t.Context()
	engine := newEngine(t)
	if err := st.SyncThemes(ctx, engine.Classifier().Descriptions()); err != nil {
		t.Fatalf("syncing themes: %v", err)
	}

	for i := 0; i < 3; i++ {
		p := &store.Post{Platform: "manual", ExternalID: "rescore-" + uuid.NewString(), Body: "Gusto support was slow today."}
		if _, err := st.InsertPost(ctx, p); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	proc := worker.NewProcessor(engine, st, nil, 5*time.Second, nil)
	report, err := worker.NewRescorer(st, proc, 2, nil).Run(ctx)
	if err != nil {
		t.Fatalf("rescore: %v", err)
	}
	if report.Posts < 3 {
		t.Errorf("expected at least 3 posts rescored, got %d", report.Posts)
	}
}

// ---------------------------------------------------------------------------
// Env helpers
// ---------------------------------------------------------------------------

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

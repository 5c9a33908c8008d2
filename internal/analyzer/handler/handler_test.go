package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/analyzer/cache"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/entity"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/lexicon"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/segment"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/sentiment"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/theme"
	apperrors "github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/errors"
)

type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, goredis.Nil
	}
	return v, nil
}

func (m *memBackend) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.([]byte)
	return nil
}

func (m *memBackend) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if strings.HasPrefix(k, strings.TrimSuffix(pattern, "*")) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

type fakeRepo struct {
	posts map[string]store.Post
	err   error
	days  int
}

func (f *fakeRepo) GetPost(_ context.Context, id string) (*store.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrPostNotFound, http.StatusNotFound, "post %q not found", id)
	}
	return &p, nil
}

func (f *fakeRepo) ListPosts(_ context.Context, lf store.ListFilter) ([]store.Post, error) {
	var out []store.Post
	for _, p := range f.posts {
		if lf.Platform == "" || p.Platform == lf.Platform {
			out = append(out, p)
		}
	}
	return out, f.err
}

func (f *fakeRepo) PostThemes(_ context.Context, _ string) (map[string]float64, error) {
	return map[string]float64{"pricing_cost": 1.2}, nil
}

func (f *fakeRepo) CompetitorMentions(_ context.Context, _ string) (map[string]sentiment.Result, error) {
	return map[string]sentiment.Result{"adp": {Label: sentiment.Negative, Score: -0.4}}, nil
}

func (f *fakeRepo) Overview(_ context.Context, days int) (*store.Overview, error) {
	f.days = days
	if f.err != nil {
		return nil, f.err
	}
	return &store.Overview{Days: days, TotalPosts: 3}, nil
}

func (f *fakeRepo) Themes(_ context.Context, days int) ([]store.ThemeStat, error) {
	f.days = days
	return []store.ThemeStat{{Name: "pricing_cost", TotalMentions: 2}}, f.err
}

func (f *fakeRepo) Competitors(_ context.Context, days int) ([]store.CompetitorStat, error) {
	f.days = days
	return []store.CompetitorStat{{Name: "adp", MentionCount: 1}}, f.err
}

func (f *fakeRepo) Trends(_ context.Context, days int) ([]store.TrendPoint, error) {
	f.days = days
	return []store.TrendPoint{{Date: "2026-10-01", PostCount: 2}}, f.err
}

func newTestEngine() *pipeline.Engine {
	reg := entity.Default()
	lex := lexicon.Default()
	ext := segment.NewExtractor(reg, segment.WithSplitter(segment.PeriodSplitter{}))
	return pipeline.New(reg, sentiment.NewAnalyzer(reg, ext, lex), theme.NewClassifier(lex, ext),
		pipeline.Options{Workers: 2, CompetitorMode: true, LexiconVersion: lex.Version}, nil)
}

func newTestMux(c *cache.Cache, repo Repository, maxBatch int) *http.ServeMux {
	mux := http.NewServeMux()
	New(newTestEngine(), c, repo, maxBatch).Register(mux)
	return mux
}

func do(t *testing.T, mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestSentiment(t *testing.T) {
	mux := newTestMux(nil, nil, 10)
	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantLabel sentiment.Label
	}{
		{"brand default", `{"body":"Gusto is great, setup was easy."}`, http.StatusOK, sentiment.Positive},
		{"competitor", `{"body":"ADP is awful and slow.","entity":"ADP"}`, http.StatusOK, sentiment.Negative},
		{"unknown entity", `{"body":"Gusto is great.","entity":"acme"}`, http.StatusOK, sentiment.Neutral},
		{"empty body", `{"title":"Gusto rocks","body":""}`, http.StatusOK, sentiment.Neutral},
		{"bad json", `{`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, http.MethodPost, "/api/v1/sentiment", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var res sentiment.Result
			if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if res.Label != tt.wantLabel {
				t.Errorf("label = %s, want %s", res.Label, tt.wantLabel)
			}
		})
	}
}

func TestSentimentBatch(t *testing.T) {
	mux := newTestMux(nil, nil, 3)

	rec := do(t, mux, http.MethodPost, "/api/v1/sentiment/batch",
		`{"posts":[{"body":"Gusto is terrible."},{"body":"Nothing here."},{"body":"Gusto is great."}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp batchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Entity != "gusto" || resp.Count != 3 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Results[0].Label != sentiment.Negative || !resp.Results[1].IsZero() || resp.Results[2].Label != sentiment.Positive {
		t.Errorf("results out of order: %+v", resp.Results)
	}

	rec = do(t, mux, http.MethodPost, "/api/v1/sentiment/batch",
		`{"posts":[{"body":"a"},{"body":"b"},{"body":"c"},{"body":"d"}]}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized batch status = %d, want 413", rec.Code)
	}
}

func TestThemes(t *testing.T) {
	mux := newTestMux(nil, nil, 10)
	rec := do(t, mux, http.MethodPost, "/api/v1/themes", `{"body":"Gusto pricing is too expensive."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp themesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Themes) != 10 {
		t.Errorf("expected 10 theme scores, got %d", len(resp.Themes))
	}
	if len(resp.Top) == 0 || resp.Top[0].Name != "pricing_cost" {
		t.Errorf("expected pricing_cost on top, got %+v", resp.Top)
	}
}

func TestAnalyzeCached(t *testing.T) {
	backend := &memBackend{data: map[string][]byte{}}
	c := cache.New(backend, "v1", time.Minute, nil)
	mux := newTestMux(c, nil, 10)
	body := `{"body":"Switched from ADP to Gusto, ADP's fees kept creeping up but Gusto has been great, no issues at all."}`

	var first, second analyzeResponse
	rec := do(t, mux, http.MethodPost, "/api/v1/analyze", body)
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	rec = do(t, mux, http.MethodPost, "/api/v1/analyze", body)
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.Cached || !second.Cached {
		t.Errorf("cached flags = %v, %v; want false, true", first.Cached, second.Cached)
	}
	if second.Brand.Label != sentiment.Positive {
		t.Errorf("brand = %s, want positive", second.Brand.Label)
	}
	if second.Competitors["adp"].Label != sentiment.Negative {
		t.Errorf("adp = %s, want negative", second.Competitors["adp"].Label)
	}
	if second.LexiconVersion == "" {
		t.Error("expected lexicon version in response")
	}

	rec = do(t, mux, http.MethodPost, "/api/v1/cache/invalidate?op=analyze", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("invalidate status = %d", rec.Code)
	}
	if len(backend.data) != 0 {
		t.Errorf("expected cache to be empty, %d keys left", len(backend.data))
	}
	if rec := do(t, mux, http.MethodPost, "/api/v1/cache/invalidate?op=bogus", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bogus op status = %d, want 400", rec.Code)
	}
}

func TestEntities(t *testing.T) {
	mux := newTestMux(nil, nil, 10)
	rec := do(t, mux, http.MethodGet, "/api/v1/entities", "")
	var resp struct {
		Brand    string          `json:"brand"`
		Entities []entity.Entity `json:"entities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Brand != "gusto" || len(resp.Entities) != 9 {
		t.Errorf("unexpected entities: %+v", resp)
	}
}

func TestDashboard(t *testing.T) {
	repo := &fakeRepo{}
	mux := newTestMux(nil, repo, 10)

	tests := []struct {
		path     string
		wantCode int
		wantDays int
	}{
		{"/api/v1/dashboard/overview", http.StatusOK, 30},
		{"/api/v1/dashboard/themes?days=7", http.StatusOK, 7},
		{"/api/v1/dashboard/competitors?days=90", http.StatusOK, 90},
		{"/api/v1/dashboard/trends?days=14", http.StatusOK, 14},
		{"/api/v1/dashboard/trends?days=0", http.StatusBadRequest, 0},
		{"/api/v1/dashboard/overview?days=abc", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			repo.days = 0
			rec := do(t, mux, http.MethodGet, tt.path, "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if repo.days != tt.wantDays {
				t.Errorf("days = %d, want %d", repo.days, tt.wantDays)
			}
		})
	}

	repo.err = errors.New("connection refused")
	if rec := do(t, mux, http.MethodGet, "/api/v1/dashboard/overview", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("store failure status = %d, want 500", rec.Code)
	}
}

func TestDashboardWithoutStore(t *testing.T) {
	mux := newTestMux(nil, nil, 10)
	for _, path := range []string{"/api/v1/dashboard/overview", "/api/v1/posts", "/api/v1/posts/abc"} {
		if rec := do(t, mux, http.MethodGet, path, ""); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", path, rec.Code)
		}
	}
}

func TestPosts(t *testing.T) {
	repo := &fakeRepo{posts: map[string]store.Post{
		"p1": {ID: "p1", Platform: "reddit", Body: "Gusto"},
		"p2": {ID: "p2", Platform: "g2", Body: "ADP"},
	}}
	mux := newTestMux(nil, repo, 10)

	rec := do(t, mux, http.MethodGet, "/api/v1/posts?platform=reddit", "")
	var list struct {
		Count int          `json:"count"`
		Posts []store.Post `json:"posts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Count != 1 || list.Posts[0].ID != "p1" {
		t.Errorf("unexpected list: %+v", list)
	}
	if rec := do(t, mux, http.MethodGet, "/api/v1/posts?limit=-1", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("negative limit status = %d, want 400", rec.Code)
	}

	rec = do(t, mux, http.MethodGet, "/api/v1/posts/p2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var detail postDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if detail.ID != "p2" || detail.Themes["pricing_cost"] != 1.2 || detail.Competitors["adp"].Label != sentiment.Negative {
		t.Errorf("unexpected detail: %+v", detail)
	}

	if rec := do(t, mux, http.MethodGet, "/api/v1/posts/missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing post status = %d, want 404", rec.Code)
	}
}

func TestProtectAdmin(t *testing.T) {
	h := New(newTestEngine(), nil, nil, 10)
	h.ProtectAdmin(func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	})
	mux := http.NewServeMux()
	h.Register(mux)

	if rec := do(t, mux, http.MethodPost, "/api/v1/cache/invalidate?op=analyze", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("invalidate status = %d, want 401", rec.Code)
	}
	if rec := do(t, mux, http.MethodGet, "/api/v1/cache/stats", ""); rec.Code == http.StatusUnauthorized {
		t.Error("cache stats should stay public")
	}
}

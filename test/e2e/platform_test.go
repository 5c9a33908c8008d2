// Package e2e contains end-to-end tests that exercise the full platform
// stack: ingestion → Kafka → worker → PostgreSQL → analyzer dashboard.
//
// Prerequisites:
//   - PostgreSQL, Kafka and Redis running
//   - ingestion, worker and analyzer services started
//
// Run with:
//
//	go test -v -timeout=120s ./test/e2e/...
package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

type e2eConfig struct {
	AnalyzerURL  string
	IngestionURL string
	WorkerURL    string
}

func loadE2EConfig() e2eConfig {
	return e2eConfig{
		AnalyzerURL:  envOrDefault("E2E_ANALYZER_URL", "http://localhost:8080"),
		IngestionURL: envOrDefault("E2E_INGESTION_URL", "http://localhost:8081"),
		WorkerURL:    envOrDefault("E2E_WORKER_URL", "http://localhost:8082"),
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

// TestPlatformHealth verifies all services respond to health checks.
func TestPlatformHealth(t *testing.T) {
	cfg := loadE2EConfig()

	services := []struct {
		name string
		url  string
	}{
		{"analyzer /health/live", cfg.AnalyzerURL + "/health/live"},
		{"analyzer /health/ready", cfg.AnalyzerURL + "/health/ready"},
		{"ingestion /health/ready", cfg.IngestionURL + "/health/ready"},
		{"worker /health/ready", cfg.WorkerURL + "/health/ready"},
	}

	client := &http.Client{Timeout: 5 * time.Second}

	for _, svc := range services {
		t.Run(svc.name, func(t *testing.T) {
			resp, err := client.Get(svc.url)
			if err != nil {
				t.Skipf("service unavailable: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("expected 200, got %d: %s", resp.StatusCode, body)
			}
		})
	}
}

// TestScoreEndpoint checks the synchronous scoring API.
func TestScoreEndpoint(t *testing.T) {
	cfg := loadE2EConfig()
	client := &http.Client{Timeout: 5 * time.Second}

	payload := `{"body":"Switched from ADP to Gusto, ADP's fees kept creeping up but Gusto has been great, no issues at all."}`
	resp, err := client.Post(cfg.AnalyzerURL+"/api/v1/analyze", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Skipf("analyzer unavailable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var out struct {
		Brand struct {
			Label string `json:"label"`
		} `json:"brand"`
		Competitors map[string]struct {
			Label string `json:"label"`
		} `json:"competitors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if out.Brand.Label != "positive" {
		t.Errorf("brand label = %q, want positive", out.Brand.Label)
	}
	if c, ok := out.Competitors["adp"]; ok && c.Label != "negative" {
		t.Errorf("adp label = %q, want negative", c.Label)
	}
}

// TestIngestAndScore exercises the post lifecycle: ingest → wait for the
// worker → read the scored post from the analyzer.
func TestIngestAndScore(t *testing.T) {
	cfg := loadE2EConfig()
	client := &http.Client{Timeout: 10 * time.Second}

	if _, err := client.Get(cfg.IngestionURL + "/health/live"); err != nil {
		t.Skipf("ingestion service unavailable: %v", err)
	}

	externalID := fmt.Sprintf("e2e-%d", time.Now().UnixNano())
	payload := fmt.Sprintf(`{"platform":"manual","external_id":"%s","body":"Gusto support resolved our payroll issue in minutes. Love it."}`, externalID)

	resp, err := client.Post(cfg.IngestionURL+"/api/v1/posts", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("ingest request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 202, got %d: %s", resp.StatusCode, body)
	}

	var ingested struct {
		PostID string `json:"post_id"`
	}
	json.NewDecoder(resp.Body).Decode(&ingested)
	t.Logf("ingested post: id=%s", ingested.PostID)

	t.Log("waiting for post to be scored...")
	var status string
	for attempt := 0; attempt < 30; attempt++ {
		time.Sleep(1 * time.Second)

		postResp, err := client.Get(cfg.AnalyzerURL + "/api/v1/posts/" + ingested.PostID)
		if err != nil {
			t.Logf("attempt %d: request failed: %v", attempt, err)
			continue
		}
		var detail struct {
			Status         string `json:"status"`
			SentimentLabel string `json:"sentiment_label"`
		}
		json.NewDecoder(postResp.Body).Decode(&detail)
		postResp.Body.Close()

		status = detail.Status
		if status == "SCORED" {
			t.Logf("post scored after %d seconds (label=%s)", attempt+1, detail.SentimentLabel)
			return
		}
	}
	t.Logf("post not scored within 30s (status=%q); the worker may not be running", status)
}

// TestDashboardOverview verifies the dashboard aggregates are served.
func TestDashboardOverview(t *testing.T) {
	cfg := loadE2EConfig()
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(cfg.AnalyzerURL + "/api/v1/dashboard/overview?days=7")
	if err != nil {
		t.Skipf("analyzer unavailable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		t.Skip("analyzer running without a database")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var ov map[string]any
	json.NewDecoder(resp.Body).Decode(&ov)
	for _, field := range []string{"total_posts", "scored_posts", "sentiment_breakdown"} {
		if _, ok := ov[field]; !ok {
			t.Errorf("missing expected field: %s", field)
		}
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

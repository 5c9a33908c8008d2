package integration

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/postgres"
)

// TestAPIKeyLifecycle creates a key, uses it against a protected handler and
// revokes it.
func TestAPIKeyLifecycle(t *testing.T) {
	skipIfNoPostgres(t)
	db, err := postgres.New(testPostgresConfig())
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer db.Close()
	v := apikey.NewValidator(db, 0)

	raw, info, err := v.CreateKey(t.Context(), "integration-test", []string{apikey.ScopeIngest}, nil)
	if err != nil {
		t.Fatalf("creating key: %v", err)
	}

	protected := apikey.Middleware(v, apikey.ScopeIngest)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	srv := httptest.NewServer(protected)
	defer srv.Close()

	call := func() int {
		req, _ := http.NewRequest(http.MethodPost, srv.URL, nil)
		req.Header.Set("X-API-Key", raw)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := call(); code != http.StatusAccepted {
		t.Fatalf("expected 202 with valid key, got %d", code)
	}

	if err := v.RevokeKey(t.Context(), info.ID); err != nil {
		t.Fatalf("revoking key: %v", err)
	}
	if code := call(); code != http.StatusUnauthorized {
		t.Errorf("expected 401 after revoke, got %d", code)
	}
	if err := v.RevokeKey(t.Context(), info.ID); !errors.Is(err, apikey.ErrInvalidKey) {
		t.Errorf("second revoke: expected ErrInvalidKey, got %v", err)
	}
}

package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", Newf(ErrInvalidInput, http.StatusUnprocessableEntity, "body: %s", "required"), http.StatusUnprocessableEntity},
		{"wrapped app error", fmt.Errorf("ingest: %w", New(ErrPostNotFound, http.StatusNotFound, "gone")), http.StatusNotFound},
		{"not found", fmt.Errorf("loading: %w", ErrPostNotFound), http.StatusNotFound},
		{"unknown entity", ErrUnknownEntity, http.StatusNotFound},
		{"exists", ErrPostExists, http.StatusConflict},
		{"invalid", ErrInvalidInput, http.StatusBadRequest},
		{"batch", ErrBatchTooLarge, http.StatusRequestEntityTooLarge},
		{"rate", ErrRateLimited, http.StatusTooManyRequests},
		{"circuit", ErrCircuitOpen, http.StatusServiceUnavailable},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrBatchTooLarge, http.StatusRequestEntityTooLarge, "%d posts exceeds %d", 600, 500)
	if !errors.Is(err, ErrBatchTooLarge) {
		t.Error("expected errors.Is to match sentinel")
	}
	if err.Error() != "batch too large: 600 posts exceeds 500" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestPublicMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"app error", Newf(ErrPostNotFound, http.StatusNotFound, "post %q not found", "p1"), `post not found: post "p1" not found`},
		{"wrapped sentinel hides context", fmt.Errorf("querying posts for tenant 7: %w", ErrInvalidInput), "invalid input"},
		{"server failure", fmt.Errorf("pq: password authentication failed: %w", ErrStoreUnwritten), "Internal Server Error"},
		{"unavailable", fmt.Errorf("redis-cache: %w", ErrCircuitOpen), "dependency unavailable"},
		{"bare app error", New(ErrPostExists, http.StatusConflict, ""), "post already exists"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PublicMessage(tt.err); got != tt.want {
				t.Errorf("PublicMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

package apikey

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

const keyInfoKey contextKey = "api_key_info"

// KeyValidator resolves raw keys. *Validator implements it.
type KeyValidator interface {
	Validate(ctx context.Context, rawKey string) (*KeyInfo, error)
}

// Middleware rejects requests that do not present a valid key granting
// scope. Keys are read from Authorization: Bearer, then X-API-Key.
func Middleware(v KeyValidator, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractKey(r)
			if key == "" {
				writeError(w, http.StatusUnauthorized, "missing api key")
				return
			}

			info, err := v.Validate(r.Context(), key)
			switch {
			case errors.Is(err, ErrInvalidKey):
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			case errors.Is(err, ErrExpiredKey):
				writeError(w, http.StatusUnauthorized, "expired api key")
				return
			case err != nil:
				slog.ErrorContext(r.Context(), "api key validation failed", "error", err)
				writeError(w, http.StatusInternalServerError, "authentication error")
				return
			}
			if !info.HasScope(scope) {
				writeError(w, http.StatusForbidden, ErrMissingScope.Error()+": "+scope)
				return
			}

			ctx := context.WithValue(r.Context(), keyInfoKey, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the KeyInfo stored by Middleware, or nil.
func FromContext(ctx context.Context) *KeyInfo {
	info, _ := ctx.Value(keyInfoKey).(*KeyInfo)
	return info
}

func extractKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("X-API-Key")
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

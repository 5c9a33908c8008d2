package middleware

import (
	"math/rand/v2"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/tracing"
)

// Tracing opens a root span per sampled request, reusing the request ID as
// the trace ID, and logs the span tree when the request completes.
// Must run inside RequestID.
func Tracing(sampleRate float64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if sampleRate <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sampleRate < 1 && rand.Float64() >= sampleRate {
				next.ServeHTTP(w, r)
				return
			}
			ctx, span := tracing.StartSpan(r.Context(), r.Method+" "+routeLabel(r.URL.Path), logger.RequestID(r.Context()))
			defer func() {
				span.End()
				span.Log(ctx)
			}()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

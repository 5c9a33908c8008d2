// Package middleware provides reusable HTTP middleware for request IDs,
// Prometheus metrics, CORS, rate limiting, panic recovery and request
// timeouts.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/metrics"
)

// unmatchedRoute labels requests no route answered, so probing random paths
// cannot grow label cardinality.
const unmatchedRoute = "unmatched"

// idCollections are path segments whose following segment is a resource ID,
// except for the listed sub-routes.
var idCollections = map[string]map[string]bool{
	"posts": {"bulk": true},
	"keys":  {},
}

// Metrics counts requests and observes their latency under a templated route
// label. A nil m disables instrumentation.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.HTTPRequestsInFlight.Inc()
			rec := &responseRecorder{ResponseWriter: w}
			start := time.Now()
			defer func() {
				m.HTTPRequestsInFlight.Dec()
				route := unmatchedRoute
				if rec.code() != http.StatusNotFound {
					route = routeLabel(r.URL.Path)
				}
				m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
				m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.code())).Inc()
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

// routeLabel replaces ID segments of path with {id}: anything that parses as
// a UUID or is all digits, and the segment after a known collection.
func routeLabel(path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if s == "" {
			continue
		}
		if isID(s) {
			segs[i] = "{id}"
			continue
		}
		if i > 0 {
			if except, ok := idCollections[segs[i-1]]; ok && !except[s] {
				segs[i] = "{id}"
			}
		}
	}
	return strings.Join(segs, "/")
}

func isID(s string) bool {
	if _, err := uuid.Parse(s); err == nil {
		return true
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// responseRecorder remembers the first status written.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (rr *responseRecorder) WriteHeader(code int) {
	if rr.status == 0 {
		rr.status = code
	}
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}
	return rr.ResponseWriter.Write(b)
}

func (rr *responseRecorder) code() int {
	if rr.status == 0 {
		return http.StatusOK
	}
	return rr.status
}

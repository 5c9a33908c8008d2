// Package health serves liveness and readiness for the platform services.
// Readiness checks every registered dependency concurrently, each under its
// own deadline, and folds the results into one status.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the state of one dependency or of the service overall.
type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// severity orders statuses so the worst one wins.
func (s Status) severity() int {
	switch s {
	case StatusDown:
		return 2
	case StatusDegraded:
		return 1
	}
	return 0
}

// Check tests a single dependency.
type Check func(ctx context.Context) ComponentHealth

// ComponentHealth is the result of one check.
type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report is the readiness response body.
type Report struct {
	Status     Status                     `json:"status"`
	Service    string                     `json:"service"`
	Components map[string]ComponentHealth `json:"components"`
	Info       map[string]string          `json:"info,omitempty"`
	Timestamp  string                     `json:"timestamp"`
}

// DefaultCheckTimeout bounds each check.
const DefaultCheckTimeout = 2 * time.Second

// Checker holds one service's dependency checks and static build details.
type Checker struct {
	service      string
	started      time.Time
	checkTimeout time.Duration
	logger       *slog.Logger

	mu     sync.RWMutex
	checks map[string]Check
	info   map[string]string
}

// NewChecker creates a Checker for service with no checks.
func NewChecker(service string) *Checker {
	return &Checker{
		service:      service,
		started:      time.Now(),
		checkTimeout: DefaultCheckTimeout,
		checks:       map[string]Check{},
		info:         map[string]string{},
		logger:       slog.Default().With("component", "health", "service", service),
	}
}

// Register adds a named check, replacing one of the same name.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	c.checks[name] = check
	c.mu.Unlock()
}

// SetInfo publishes a static detail, such as the lexicon version, in every
// readiness report.
func (c *Checker) SetInfo(key, value string) {
	c.mu.Lock()
	c.info[key] = value
	c.mu.Unlock()
}

// Ping turns a ping function into a Check. A failed ping reports failStatus:
// StatusDown for dependencies the service cannot work without and
// StatusDegraded for ones it can run without, like the cache.
func Ping(ping func(ctx context.Context) error, failStatus Status) Check {
	return func(ctx context.Context) ComponentHealth {
		if err := ping(ctx); err != nil {
			return ComponentHealth{Status: failStatus, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// Run executes every check and returns the combined report.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for k, v := range c.checks {
		checks[k] = v
	}
	info := make(map[string]string, len(c.info))
	for k, v := range c.info {
		info[k] = v
	}
	c.mu.RUnlock()

	var (
		mu         sync.Mutex
		components = make(map[string]ComponentHealth, len(checks))
	)
	g, gctx := errgroup.WithContext(ctx)
	for name, check := range checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, c.checkTimeout)
			defer cancel()
			start := time.Now()
			res := check(cctx)
			res.Latency = time.Since(start).Round(time.Millisecond).String()
			mu.Lock()
			components[name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	overall := StatusUp
	for name, comp := range components {
		if comp.Status.severity() > overall.severity() {
			overall = comp.Status
		}
		if comp.Status != StatusUp {
			c.logger.Warn("dependency not healthy", "check", name, "status", comp.Status, "message", comp.Message)
		}
	}
	report := Report{
		Status:     overall,
		Service:    c.service,
		Components: components,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	if len(info) > 0 {
		report.Info = info
	}
	return report
}

// Mount registers GET /health/live and GET /health/ready on mux.
func (c *Checker) Mount(mux *http.ServeMux) {
	mux.HandleFunc("GET /health/live", c.LiveHandler())
	mux.HandleFunc("GET /health/ready", c.ReadyHandler())
}

// LiveHandler reports the process is up without touching dependencies.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "alive",
			"service": c.service,
			"uptime":  time.Since(c.started).Round(time.Second).String(),
		})
	}
}

// ReadyHandler answers 503 only when a required dependency is down; a
// degraded service still takes traffic.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		code := http.StatusOK
		if report.Status == StatusDown {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

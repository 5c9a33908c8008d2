// Package resilience guards the calls the scoring services make to Redis,
// Postgres and Kafka: a breaker that stops hammering a dependency that keeps
// failing, a jittered backoff loop for transient storage errors, and a
// deadline wrapper for work that must not stall a consumer.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/errors"
)

// BreakerState is the phase a Breaker is in. The numeric values are exported
// as the circuit_breaker_state gauge.
type BreakerState int

const (
	Closed BreakerState = iota
	Open
	HalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// BreakerSettings tunes a Breaker. Zero values take defaults.
type BreakerSettings struct {
	// Trip is the number of consecutive failures that opens the breaker.
	Trip int
	// Cooldown is how long the breaker stays open before admitting trial calls.
	Cooldown time.Duration
	// HalfOpenCalls is how many calls may run while half-open.
	HalfOpenCalls int
	// IsFailure decides whether an error counts against the dependency.
	// Context cancellation never counts.
	IsFailure func(error) bool
	// OnTransition runs after every state change, outside the breaker lock.
	OnTransition func(name string, from, to BreakerState)
}

// Counts is a snapshot of breaker activity since creation or the last Reset.
type Counts struct {
	Calls               uint64 `json:"calls"`
	Failures            uint64 `json:"failures"`
	Rejected            uint64 `json:"rejected"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
}

// Breaker rejects calls to a dependency after Trip consecutive failures and
// lets a limited number of trial calls through once Cooldown has passed. A trial
// success closes it again; a trial failure restarts the cooldown.
type Breaker struct {
	name   string
	set    BreakerSettings
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	state    BreakerState
	openedAt time.Time
	inflight int
	counts   Counts
}

// NewBreaker creates a closed Breaker named after the dependency it guards.
func NewBreaker(name string, set BreakerSettings) *Breaker {
	if set.Trip <= 0 {
		set.Trip = 5
	}
	if set.Cooldown <= 0 {
		set.Cooldown = 30 * time.Second
	}
	if set.HalfOpenCalls <= 0 {
		set.HalfOpenCalls = 1
	}
	return &Breaker{
		name:   name,
		set:    set,
		now:    time.Now,
		logger: slog.Default().With("component", "breaker", "dependency", name),
	}
}

// Do runs fn unless the breaker is rejecting calls, in which case the
// returned error wraps apperrors.ErrCircuitOpen and fn is not called.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	trial, err := b.admit()
	if err != nil {
		return err
	}
	err = fn(ctx)
	b.record(trial, err)
	return err
}

// State reports the current phase.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Counts returns a snapshot of the breaker's counters.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Name is the guarded dependency.
func (b *Breaker) Name() string { return b.name }

// Reset closes the breaker and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	from := b.state
	b.state = Closed
	b.inflight = 0
	b.counts = Counts{}
	b.mu.Unlock()
	b.logger.Info("breaker reset")
	b.notify(from, Closed)
}

func (b *Breaker) admit() (trial bool, err error) {
	b.mu.Lock()
	from := b.state
	switch b.state {
	case Open:
		wait := b.set.Cooldown - b.now().Sub(b.openedAt)
		if wait > 0 {
			b.counts.Rejected++
			b.mu.Unlock()
			return false, fmt.Errorf("%w: %s open for another %v", apperrors.ErrCircuitOpen, b.name, wait.Round(time.Millisecond))
		}
		b.state = HalfOpen
		b.inflight = 0
		fallthrough
	case HalfOpen:
		if b.inflight >= b.set.HalfOpenCalls {
			b.counts.Rejected++
			b.mu.Unlock()
			return false, fmt.Errorf("%w: %s waiting on trial call", apperrors.ErrCircuitOpen, b.name)
		}
		b.inflight++
		trial = true
	}
	b.counts.Calls++
	to := b.state
	b.mu.Unlock()
	if from != to {
		b.logger.Info("breaker admitting trial calls", "cooldown", b.set.Cooldown)
		b.notify(from, to)
	}
	return trial, nil
}

func (b *Breaker) record(trial bool, err error) {
	failed := b.countsAsFailure(err)

	b.mu.Lock()
	from := b.state
	if trial && b.inflight > 0 {
		b.inflight--
	}
	if !failed {
		b.counts.ConsecutiveFailures = 0
		if b.state == HalfOpen {
			b.state = Closed
		}
	} else {
		b.counts.Failures++
		b.counts.ConsecutiveFailures++
		if b.state == HalfOpen || (b.state == Closed && b.counts.ConsecutiveFailures >= b.set.Trip) {
			b.state = Open
			b.openedAt = b.now()
		}
	}
	to := b.state
	streak := b.counts.ConsecutiveFailures
	b.mu.Unlock()

	if from == to {
		return
	}
	if to == Open {
		b.logger.Warn("breaker opened", "consecutive_failures", streak, "error", err)
	} else {
		b.logger.Info("breaker closed, dependency recovered")
	}
	b.notify(from, to)
}

func (b *Breaker) countsAsFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if b.set.IsFailure != nil {
		return b.set.IsFailure(err)
	}
	return true
}

func (b *Breaker) notify(from, to BreakerState) {
	if b.set.OnTransition != nil && from != to {
		b.set.OnTransition(b.name, from, to)
	}
}

package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Backoff describes a retry schedule: the n-th wait is Base*Factor^(n-1),
// spread by ±Jitter of itself and capped at Cap.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Cap      time.Duration
	Factor   float64
	Jitter   float64
}

// StoreBackoff is the schedule used for Postgres writes from the worker.
var StoreBackoff = Backoff{Attempts: 4, Base: 200 * time.Millisecond, Cap: 5 * time.Second, Factor: 2, Jitter: 0.1}

func (b Backoff) normalized() Backoff {
	if b.Attempts <= 0 {
		b.Attempts = 3
	}
	if b.Base <= 0 {
		b.Base = 100 * time.Millisecond
	}
	if b.Cap < b.Base {
		b.Cap = 10 * time.Second
	}
	if b.Factor < 1 {
		b.Factor = 2
	}
	if b.Jitter < 0 || b.Jitter >= 1 {
		b.Jitter = 0.1
	}
	return b
}

// Wait returns the delay before attempt n+1, after attempt n failed.
func (b Backoff) Wait(n int) time.Duration {
	b = b.normalized()
	d := float64(b.Base)
	for i := 1; i < n && d < float64(b.Cap); i++ {
		d *= b.Factor
	}
	d += d * b.Jitter * (2*rand.Float64() - 1)
	if d > float64(b.Cap) {
		d = float64(b.Cap)
	}
	return time.Duration(d)
}

type stopError struct{ err error }

func (s stopError) Error() string { return s.err.Error() }
func (s stopError) Unwrap() error { return s.err }

// Permanent marks err as not worth retrying. Retry returns the wrapped error
// unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return stopError{err: err}
}

// Retry runs fn until it returns nil or a Permanent error, the schedule is
// exhausted, or ctx ends. fn receives the 1-based attempt number.
func Retry(ctx context.Context, op string, b Backoff, fn func(ctx context.Context, attempt int) error) error {
	b = b.normalized()
	var err error
	for attempt := 1; ; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			if err == nil {
				return cerr
			}
			return fmt.Errorf("%s abandoned after %d attempts: %w", op, attempt-1, errors.Join(err, cerr))
		}
		err = fn(ctx, attempt)
		if err == nil {
			return nil
		}
		var stop stopError
		if errors.As(err, &stop) {
			return stop.err
		}
		if attempt >= b.Attempts {
			return fmt.Errorf("%s failed %d times: %w", op, attempt, err)
		}
		wait := b.Wait(attempt)
		slog.Warn("retrying", "component", "retry", "op", op, "attempt", attempt, "wait", wait, "error", err)
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}
}

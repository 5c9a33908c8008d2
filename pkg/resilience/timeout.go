package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/errors"
)

// Bounded runs fn under a deadline of d and returns its value. If the
// deadline passes first the error wraps apperrors.ErrTimeout and fn is left
// to notice its cancelled context. If the parent ctx ends first its error is
// returned. d <= 0 runs fn inline without a deadline.
func Bounded[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}
	dctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		v   T
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		v, err := fn(dctx)
		ch <- outcome{v, err}
	}()

	var zero T
	select {
	case o := <-ch:
		if o.err != nil && ctx.Err() == nil && errors.Is(dctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %v: %w", apperrors.ErrTimeout, d, o.err)
		}
		return o.v, o.err
	case <-dctx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, fmt.Errorf("%w after %v", apperrors.ErrTimeout, d)
	}
}

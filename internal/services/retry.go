package services

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultRetryAttempts = 3
	DefaultRetryBackoff  = 2 * time.Second
)

// Retrier runs generation calls under a fixed retry budget. Only errors marked
// ErrTransient are retried; every other error is returned after the first
// attempt. The delay between attempts is constant.
type Retrier struct {
	Attempts int
	Backoff  time.Duration

	// OnFailure is invoked after every failed attempt, including the last one.
	OnFailure func(attempt int, err error)
	// Sleeper overrides how backoff waits are performed (useful for tests).
	Sleeper func(time.Duration)
}

// NewRetrier constructs a retrier, substituting defaults for non-positive values.
func NewRetrier(attempts int, backoff time.Duration) Retrier {
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}
	if backoff < 0 {
		backoff = DefaultRetryBackoff
	}
	return Retrier{Attempts: attempts, Backoff: backoff}
}

// Do invokes op until it succeeds, fails permanently, or the budget is spent.
// It returns the number of attempts made alongside the final error.
func (r Retrier) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) (int, error) {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}
		err := op(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if r.OnFailure != nil {
			r.OnFailure(attempt, err)
		}
		lastErr = err
		if !IsTransient(err) || errors.Is(err, context.Canceled) {
			return attempt, err
		}
		if attempt == attempts {
			break
		}
		if err := r.sleep(ctx); err != nil {
			return attempt, err
		}
	}
	return attempts, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

func (r Retrier) sleep(ctx context.Context) error {
	if r.Backoff <= 0 {
		return nil
	}
	if r.Sleeper != nil {
		r.Sleeper(r.Backoff)
		return ctx.Err()
	}
	timer := time.NewTimer(r.Backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

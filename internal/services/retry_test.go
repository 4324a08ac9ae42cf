package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"bookforge/internal/services"
)

func TestRetrierRetriesTransientUntilSuccess(t *testing.T) {
	var slept []time.Duration
	var failures []int
	r := services.Retrier{
		Attempts:  3,
		Backoff:   2 * time.Second,
		Sleeper:   func(d time.Duration) { slept = append(slept, d) },
		OnFailure: func(attempt int, _ error) { failures = append(failures, attempt) },
	}
	calls := 0
	attempts, err := r.Do(context.Background(), func(context.Context, int) error {
		calls++
		if calls < 3 {
			return services.Wrap(services.ErrTransient, "raster", "render", "429", nil)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if attempts != 3 || calls != 3 {
		t.Fatalf("expected 3 attempts, got attempts=%d calls=%d", attempts, calls)
	}
	if len(slept) != 2 || slept[0] != 2*time.Second || slept[1] != 2*time.Second {
		t.Fatalf("expected two fixed backoffs, got %v", slept)
	}
	if len(failures) != 2 || failures[0] != 1 || failures[1] != 2 {
		t.Fatalf("unexpected failure callbacks: %v", failures)
	}
}

func TestRetrierStopsOnPermanentError(t *testing.T) {
	r := services.Retrier{Attempts: 5, Backoff: time.Second, Sleeper: func(time.Duration) {
		t.Fatal("permanent errors must not back off")
	}}
	calls := 0
	attempts, err := r.Do(context.Background(), func(context.Context, int) error {
		calls++
		return services.Wrap(services.ErrPermanent, "skeleton", "decode", "bad json", nil)
	})
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 || calls != 1 {
		t.Fatalf("expected a single attempt, got attempts=%d calls=%d", attempts, calls)
	}
}

func TestRetrierExhaustsBudget(t *testing.T) {
	r := services.Retrier{Attempts: 2, Sleeper: func(time.Duration) {}}
	calls := 0
	attempts, err := r.Do(context.Background(), func(context.Context, int) error {
		calls++
		return services.Wrap(services.ErrTransient, "prompts", "call", "timeout", nil)
	})
	if attempts != 2 || calls != 2 {
		t.Fatalf("expected 2 attempts, got attempts=%d calls=%d", attempts, calls)
	}
	if !services.IsTransient(err) {
		t.Fatalf("expected transient marker to survive exhaustion, got %v", err)
	}
	if !strings.Contains(err.Error(), "failed after 2 attempts") {
		t.Fatalf("unexpected error text: %v", err)
	}
}

func TestRetrierHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := services.NewRetrier(3, 0)
	attempts, err := r.Do(ctx, func(context.Context, int) error {
		t.Fatal("op must not run on a cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) || attempts != 0 {
		t.Fatalf("expected cancellation before first attempt, got attempts=%d err=%v", attempts, err)
	}
}

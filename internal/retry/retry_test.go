package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"promptflow/internal/services"
)

func fastPolicy() Policy {
	return Policy{MaxRetries: 3, BaseDelay: time.Millisecond, Timeout: time.Second}
}

func TestDelayDoublesPerRetry(t *testing.T) {
	p := DefaultPolicy()
	want := []time.Duration{0, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	for n, expected := range want {
		if got := p.Delay(n); got != expected {
			t.Fatalf("Delay(%d) = %s, want %s", n, got, expected)
		}
	}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	var attempts []Attempt
	value, outcome, err := Do(context.Background(), "stage", fastPolicy(), func(context.Context) (string, error) {
		return "ok", nil
	}, func(a Attempt) { attempts = append(attempts, a) })
	if err != nil || value != "ok" {
		t.Fatalf("unexpected result %q %v", value, err)
	}
	if outcome.Retries() != 0 || len(attempts) != 1 {
		t.Fatalf("expected single attempt, got %+v %v", outcome, attempts)
	}
}

func TestDoRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	var observed []Attempt
	value, outcome, err := Do(context.Background(), "stage", fastPolicy(), func(context.Context) (int, error) {
		if calls.Add(1) <= 2 {
			return 0, errors.New("flaky")
		}
		return 7, nil
	}, func(a Attempt) { observed = append(observed, a) })
	if err != nil || value != 7 {
		t.Fatalf("unexpected result %d %v", value, err)
	}
	if outcome.Retries() != 2 {
		t.Fatalf("expected 2 retries, got %d", outcome.Retries())
	}
	if len(observed) != 3 || observed[0].Err == nil || observed[2].Err != nil || observed[2].Retries() != 2 {
		t.Fatalf("unexpected observations %+v", observed)
	}
}

func TestDoHonoursBackoffDelays(t *testing.T) {
	p := Policy{MaxRetries: 3, BaseDelay: 10 * time.Millisecond}
	var calls atomic.Int32
	start := time.Now()
	_, outcome, err := Do(context.Background(), "stage", p, func(context.Context) (int, error) {
		if calls.Add(1) <= 2 {
			return 0, errors.New("flaky")
		}
		return 1, nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	minimum := p.Delay(1) + p.Delay(2)
	if elapsed := time.Since(start); elapsed < minimum {
		t.Fatalf("elapsed %s shorter than backoff %s", elapsed, minimum)
	}
	if outcome.Elapsed < minimum {
		t.Fatalf("outcome elapsed %s shorter than backoff %s", outcome.Elapsed, minimum)
	}
}

func TestDoDefaultBackoffWallClock(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the default 2s + 4s backoff")
	}
	p := DefaultPolicy()
	var calls atomic.Int32
	start := time.Now()
	_, outcome, err := Do(context.Background(), "stage", p, func(context.Context) (int, error) {
		if calls.Add(1) <= 2 {
			return 0, errors.New("flaky")
		}
		return 1, nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if outcome.Retries() != 2 {
		t.Fatalf("expected 2 retries, got %d", outcome.Retries())
	}
	if elapsed := time.Since(start); elapsed < 6*time.Second {
		t.Fatalf("elapsed %s, want at least 6s", elapsed)
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	last := errors.New("still broken")
	_, outcome, err := Do(context.Background(), "shotBreakdown", fastPolicy(), func(context.Context) (int, error) {
		calls.Add(1)
		return 0, last
	}, nil)
	if services.CodeOf(err) != services.CodeMaxRetries {
		t.Fatalf("expected MAX_RETRIES_EXCEEDED, got %v", err)
	}
	if !errors.Is(err, last) {
		t.Fatalf("expected last error wrapped, got %v", err)
	}
	if calls.Load() != 4 || outcome.Retries() != 3 {
		t.Fatalf("expected 4 attempts, got %d (retries %d)", calls.Load(), outcome.Retries())
	}
	if services.Details(err).Stage != "shotBreakdown" {
		t.Fatalf("expected stage in details: %+v", services.Details(err))
	}
}

func TestDoDoesNotRetryValidation(t *testing.T) {
	var calls atomic.Int32
	_, outcome, err := Do(context.Background(), "stage", fastPolicy(), func(context.Context) (int, error) {
		calls.Add(1)
		return 0, services.Wrap(services.ErrValidation, "stage", "validate", "bad input", nil)
	}, nil)
	if services.CodeOf(err) != services.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
	if calls.Load() != 1 || outcome.Retries() != 0 {
		t.Fatalf("validation must not be retried, got %d calls", calls.Load())
	}
}

func TestDoTimesOutStageIgnoringContext(t *testing.T) {
	p := Policy{MaxRetries: 1, BaseDelay: time.Millisecond, Timeout: 20 * time.Millisecond}
	var observed []Attempt
	_, outcome, err := Do(context.Background(), "stage", p, func(context.Context) (int, error) {
		time.Sleep(200 * time.Millisecond)
		return 1, nil
	}, func(a Attempt) { observed = append(observed, a) })
	if services.CodeOf(err) != services.CodeMaxRetries {
		t.Fatalf("expected MAX_RETRIES_EXCEEDED, got %v", err)
	}
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected wrapped timeout, got %v", err)
	}
	if outcome.Attempts != 2 || len(observed) != 2 {
		t.Fatalf("expected timeout retried once, got %+v", outcome)
	}
	if services.CodeOf(observed[0].Err) != services.CodeTimeout {
		t.Fatalf("expected TIMEOUT_ERROR per attempt, got %v", observed[0].Err)
	}
}

func TestDoRecoversPanics(t *testing.T) {
	p := Policy{MaxRetries: 0, Timeout: time.Second}
	_, _, err := Do(context.Background(), "stage", p, func(context.Context) (int, error) {
		panic("boom")
	}, nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error from panic, got %v", err)
	}
}

func TestDoStopsOnCancellationDuringBackoff(t *testing.T) {
	p := Policy{MaxRetries: 3, BaseDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	_, _, err := Do(ctx, "stage", p, func(context.Context) (int, error) {
		return 0, errors.New("flaky")
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("cancellation did not interrupt backoff")
	}
}

// Package retry runs stage attempts under a per-attempt timeout with
// exponential backoff between failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"promptflow/internal/services"
)

// Policy configures retries for one stage.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay is scaled by 2^n before retry n.
	BaseDelay time.Duration
	// Timeout bounds each attempt. Zero disables the bound.
	Timeout time.Duration
}

// DefaultPolicy returns 3 retries waiting 2s, 4s and 8s, with 30s attempts.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 3, BaseDelay: time.Second, Timeout: 30 * time.Second}
}

// Delay returns the wait after failed attempt n (1-based): BaseDelay * 2^n.
func (p Policy) Delay(n int) time.Duration {
	if n < 1 || p.BaseDelay <= 0 {
		return 0
	}
	return p.BaseDelay * time.Duration(1<<n)
}

// Attempt describes one finished execution.
type Attempt struct {
	Number    int
	StartedAt time.Time
	Duration  time.Duration
	Err       error
}

// Retries returns the number of retries that preceded this attempt.
func (a Attempt) Retries() int {
	return a.Number - 1
}

// Outcome summarizes a Do call.
type Outcome struct {
	Attempts int
	Elapsed  time.Duration
}

// Retries returns the retries actually performed.
func (o Outcome) Retries() int {
	if o.Attempts == 0 {
		return 0
	}
	return o.Attempts - 1
}

// Observer is told about every attempt as it finishes, before any backoff.
type Observer func(Attempt)

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// policy is exhausted. Exhaustion returns an error marked
// services.ErrMaxRetries wrapping the last failure. Caller cancellation
// stops immediately, including during backoff.
func Do[T any](ctx context.Context, name string, p Policy, fn func(context.Context) (T, error), observe Observer) (T, Outcome, error) {
	var zero T
	start := time.Now()
	outcome := Outcome{}

	for attempt := 1; ; attempt++ {
		began := time.Now()
		value, err := runAttempt(ctx, name, p.Timeout, fn)
		outcome.Attempts = attempt
		outcome.Elapsed = time.Since(start)
		if observe != nil {
			observe(Attempt{Number: attempt, StartedAt: began, Duration: time.Since(began), Err: err})
		}
		if err == nil {
			return value, outcome, nil
		}
		if ctx.Err() != nil {
			return zero, outcome, fmt.Errorf("%s: aborted: %w", name, errors.Join(ctx.Err(), err))
		}
		if !services.Retryable(err) {
			return zero, outcome, err
		}
		if attempt > p.MaxRetries {
			return zero, outcome, services.Wrap(services.ErrMaxRetries, name, "execute",
				fmt.Sprintf("gave up after %d attempts", attempt), err)
		}

		timer := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			outcome.Elapsed = time.Since(start)
			return zero, outcome, fmt.Errorf("%s: aborted during backoff: %w", name, errors.Join(ctx.Err(), err))
		case <-timer.C:
		}
	}
}

func runAttempt[T any](ctx context.Context, name string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attemptCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: services.Wrap(services.ErrTransient, name, "execute", fmt.Sprintf("stage panicked: %v", r), nil)}
			}
		}()
		value, err := fn(attemptCtx)
		done <- result{value: value, err: err}
	}()

	timedOut := func() error {
		return services.Wrap(services.ErrTimeout, name, "execute",
			fmt.Sprintf("attempt exceeded %s", timeout), context.DeadlineExceeded)
	}

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return zero, timedOut()
		}
		return r.value, r.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, timedOut()
	}
}

// Package resilience provides the bounded retry policy shared by every gateway call
// in the approval workflow.
package resilience

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	rperrors "github.com/jumpwire-ai/jwctl/internal/errors"
)

// Policy configures bounded exponential backoff.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt (0 = no retries).
	MaxRetries int
	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the wait between attempts.
	MaxDelay time.Duration
	// Multiplier is the backoff growth factor.
	Multiplier float64
	// Jitter randomizes delays.
	Jitter bool
}

// DefaultPolicy returns the default policy: base 200ms, factor 2, 3 retries.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	}
}

// MaxAttempts returns the total number of calls the policy allows.
func (p Policy) MaxAttempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// Operation is a single attempt. attempt starts at 1.
type Operation[T any] func(ctx context.Context, attempt int) (T, error)

// Do runs op until it succeeds, fails with an error that is not recoverable,
// the attempt budget is spent, or ctx is done.
//
// It returns the number of attempts made and, on failure, the error of the
// last attempt rather than the retrier's summary, so callers can classify it.
// If ctx ends before any attempt runs, the context error is returned.
func Do[T any](ctx context.Context, p Policy, op Operation[T]) (T, int, error) {
	var (
		zero     T
		attempts int
		lastErr  error
	)

	limit := p.MaxAttempts()
	call := func(ctx context.Context) (T, error) {
		if attempts >= limit {
			return zero, rperrors.Wrap(lastErr, rperrors.KindNetwork, "resilience.Do", "retry budget exhausted")
		}
		attempts++
		v, err := op(ctx, attempts)
		lastErr = err
		return v, err
	}

	if err := ctx.Err(); err != nil {
		return zero, 0, err
	}

	if limit == 1 {
		v, err := call(ctx)
		return v, attempts, err
	}

	retrier := retry.New[T](retry.Config{
		MaxAttempts:   limit,
		InitialDelay:  p.InitialDelay,
		MaxDelay:      p.MaxDelay,
		BackoffPolicy: retry.BackoffExponential,
		Multiplier:    p.multiplier(),
		Jitter:        p.Jitter,
		IsRetryable:   rperrors.IsRecoverable,
	})

	v, err := retrier.Do(ctx, call)
	if err == nil && lastErr == nil {
		return v, attempts, nil
	}
	if lastErr == nil {
		return zero, attempts, err
	}
	return zero, attempts, lastErr
}

func (p Policy) multiplier() float64 {
	if p.Multiplier < 1 {
		return 2.0
	}
	return p.Multiplier
}

package provider

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// RetryPolicy bounds a retried operation: a fixed attempt budget, an initial
// delay that grows by BackoffFactor between attempts, and a Jitter applied to
// each delay so concurrent workers do not retry in lockstep.
type RetryPolicy struct {
	// MaxAttempts is the total number of calls, including the first.
	// Values below one mean a single attempt.
	MaxAttempts int
	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration
	// BackoffFactor multiplies the delay after each retry.
	BackoffFactor float64
	// Jitter perturbs each computed delay. Nil leaves delays exact.
	Jitter func(time.Duration) time.Duration
}

// EqualJitter keeps half of the delay and randomizes the other half, so the
// wait stays within [d/2, d].
func EqualJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	return half + rand.N(d-half+1)
}

// Do runs fn until it succeeds, the attempt budget is spent, or retryable
// reports the error as permanent. A nil retryable treats every error as
// transient. Context cancellation wins over any pending delay.
func (p RetryPolicy) Do(ctx context.Context, retryable func(error) bool, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		wait := delay
		if p.Jitter != nil {
			wait = p.Jitter(wait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		delay = time.Duration(float64(delay) * p.BackoffFactor)
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

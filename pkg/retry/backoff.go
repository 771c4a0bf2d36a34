package retry

import (
	"context"
	"math/bits"
	"time"
)

// defaultMax caps ExponentialBackoff when Max is unset.
const defaultMax = 30 * time.Second

// Backoff computes the delay before the next retry attempt.
type Backoff interface {
	Next(attempt int) time.Duration
}

// ExponentialBackoff doubles the delay per attempt, capped at Max (30s when
// unset).
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

// Next returns the delay for the given attempt (1-based).
func (b ExponentialBackoff) Next(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := b.Base
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	limit := b.Max
	if limit <= 0 {
		limit = defaultMax
	}
	shift := attempt - 1
	if shift >= 63-bits.Len64(uint64(base)) {
		return limit
	}
	if delay := base << shift; delay < limit {
		return delay
	}
	return limit
}

// DefaultBackoff returns the policy used by the API client.
func DefaultBackoff() Backoff {
	return ExponentialBackoff{
		Base: 100 * time.Millisecond,
		Max:  2 * time.Second,
	}
}

// Do calls fn until it succeeds, retryable reports false, or retries extra
// attempts have been made. A wait cut short by ctx returns ctx.Err().
func Do(ctx context.Context, retries int, backoff Backoff, fn func() error, retryable func(error) bool, onRetry func(attempt int, delay time.Duration)) error {
	if backoff == nil {
		backoff = DefaultBackoff()
	}
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			delay := backoff.Next(attempt)
			if onRetry != nil {
				onRetry(attempt, delay)
			}
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		err = fn()
		if err == nil || retryable == nil || !retryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

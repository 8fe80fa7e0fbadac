// Package retrier implements exponential backoff with jitter for transient
// failures, such as market data fetches.
package retrier

import (
	"context"
	"math/rand"
	"time"
)

const (
	defaultBaseInterval = 1 * time.Second
	defaultMaxInterval  = 30 * time.Second
	defaultAttempts     = 5
	jitterFraction      = 0.1
)

// Retrier retries an operation with exponentially growing pauses.
type Retrier struct {
	baseInterval time.Duration
	maxInterval  time.Duration
	attempts     int
}

// New creates a retrier with sane defaults for network fetches.
func New() *Retrier {
	return &Retrier{
		baseInterval: defaultBaseInterval,
		maxInterval:  defaultMaxInterval,
		attempts:     defaultAttempts,
	}
}

// NewWith creates a retrier with explicit parameters.
func NewWith(attempts int, baseInterval, maxInterval time.Duration) *Retrier {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrier{
		baseInterval: baseInterval,
		maxInterval:  maxInterval,
		attempts:     attempts,
	}
}

// Do runs fn until it succeeds, attempts are exhausted, or the context ends.
// The last error is returned.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	interval := r.baseInterval

	var err error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			jitter := time.Duration((rand.Float64()*2 - 1) * jitterFraction * float64(interval))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval + jitter):
			}

			interval *= 2
			if interval > r.maxInterval {
				interval = r.maxInterval
			}
		}

		if err = fn(ctx); err == nil {
			return nil
		}
	}

	return err
}

// DoWithData runs fn with retries and returns its value.
func DoWithData[T any](r *Retrier, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = fn(ctx)
		return innerErr
	})
	return result, err
}

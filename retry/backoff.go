package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Backoff retries with exponentially growing delays. The zero value is not
// usable; build one with NewBackoff.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
	Factor   float64
	// Jitter is the fraction of each delay that is randomized, in [0, 1].
	Jitter float64
	// Retryable classifies errors. Defaults to IsTransient.
	Retryable func(error) bool
}

// BackoffOption configures a Backoff.
type BackoffOption func(*Backoff)

// WithAttempts bounds the number of calls, the first included.
func WithAttempts(n int) BackoffOption {
	return func(b *Backoff) { b.Attempts = n }
}

// WithDelays sets the first delay and the cap every later delay stays under.
func WithDelays(initial, max time.Duration) BackoffOption {
	return func(b *Backoff) {
		b.Initial = initial
		b.Max = max
	}
}

// WithoutJitter makes every delay deterministic.
func WithoutJitter() BackoffOption {
	return func(b *Backoff) { b.Jitter = 0 }
}

// WithClassifier replaces IsTransient as the test for retryable errors.
func WithClassifier(fn func(error) bool) BackoffOption {
	return func(b *Backoff) { b.Retryable = fn }
}

// NewBackoff returns a Backoff making 3 attempts, 50ms apart at first,
// doubling up to 2s, with half of each delay randomized.
func NewBackoff(opts ...BackoffOption) *Backoff {
	b := &Backoff{
		Attempts:  3,
		Initial:   50 * time.Millisecond,
		Max:       2 * time.Second,
		Factor:    2,
		Jitter:    0.5,
		Retryable: IsTransient,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backoff) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if n := b.MaxAttempts(); n > 0 && attempt > n {
		return false
	}
	if b.Retryable == nil {
		return IsTransient(err)
	}
	return b.Retryable(err)
}

func (b *Backoff) MaxAttempts() int {
	return b.Attempts
}

// Delay returns the unjittered wait after the given attempt.
func (b *Backoff) Delay(attempt int) time.Duration {
	d := float64(b.Initial)
	for i := 1; i < attempt; i++ {
		d *= b.Factor
		if b.Max > 0 && d >= float64(b.Max) {
			return b.Max
		}
	}
	if b.Max > 0 && d > float64(b.Max) {
		return b.Max
	}
	return time.Duration(d)
}

func (b *Backoff) Wait(ctx context.Context, attempt int) error {
	d := b.Delay(attempt)
	if j := min(max(b.Jitter, 0), 1); j > 0 && d > 0 {
		fixed := time.Duration(float64(d) * (1 - j))
		d = fixed + rand.N(d-fixed+1)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

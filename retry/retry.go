// Package retry reruns store operations that failed for a transient reason:
// a ref or index lock held by a concurrent git process, or an optimistic
// transaction that lost a race in a key/value backend.
//
// Nothing is retried unless a Retrier is attached to the context:
//
//	ctx = retry.ToContext(ctx, retry.NewBackoff(retry.WithAttempts(5)))
package retry

import (
	"context"
	"errors"
)

// ErrTransient marks an error as worth retrying. Wrap it with %w.
var ErrTransient = errors.New("transient failure")

// IsTransient reports whether err wraps ErrTransient. Context errors are
// never transient, even when wrapped together with it.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrTransient)
}

// Retrier decides whether a failed attempt is repeated and how long to wait
// before the next one. Attempts are numbered from 1.
//
//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -o ../mocks/retrier.go . Retrier
type Retrier interface {
	ShouldRetry(err error, attempt int) bool
	// Wait blocks until the next attempt may start or ctx is done.
	Wait(ctx context.Context, attempt int) error
	// MaxAttempts bounds the number of calls, the first included. 0 means no bound.
	MaxAttempts() int
}

// NoopRetrier runs every operation exactly once.
type NoopRetrier struct{}

func (NoopRetrier) ShouldRetry(error, int) bool { return false }

func (NoopRetrier) Wait(context.Context, int) error { return nil }

func (NoopRetrier) MaxAttempts() int { return 1 }

type retrierCtxKey struct{}

// ToContext attaches r to ctx.
func ToContext(ctx context.Context, r Retrier) context.Context {
	return context.WithValue(ctx, retrierCtxKey{}, r)
}

// FromContext returns the retrier attached to ctx, or nil.
func FromContext(ctx context.Context) Retrier {
	r, _ := ctx.Value(retrierCtxKey{}).(Retrier)
	return r
}

// FromContextOrNoop returns the retrier attached to ctx, or a NoopRetrier.
func FromContextOrNoop(ctx context.Context) Retrier {
	if r := FromContext(ctx); r != nil {
		return r
	}
	return NoopRetrier{}
}

package retry

import (
	"context"
	"fmt"
)

// Do calls fn until it succeeds, returns an error the context's retrier
// does not retry, or the retrier runs out of attempts.
func Do[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	retrier := FromContextOrNoop(ctx)
	maxAttempts := retrier.MaxAttempts()

	for attempt := 1; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		if !retrier.ShouldRetry(err, attempt) {
			return zero, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, fmt.Errorf("context cancelled: %w", ctxErr)
		}
		if maxAttempts > 0 && attempt >= maxAttempts {
			return zero, fmt.Errorf("max retry attempts (%d) reached: %w", maxAttempts, err)
		}
		if waitErr := retrier.Wait(ctx, attempt); waitErr != nil {
			return zero, fmt.Errorf("context cancelled: %w", waitErr)
		}
	}
}

// DoVoid is Do for functions without a result.
func DoVoid(ctx context.Context, fn func() error) error {
	_, err := Do(ctx, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

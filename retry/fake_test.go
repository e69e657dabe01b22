package retry_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafana/changeset/mocks"
	"github.com/grafana/changeset/retry"
)

func TestDo_FakeRetrier(t *testing.T) {
	t.Parallel()

	fake := &mocks.FakeRetrier{}
	fake.MaxAttemptsReturns(4)
	fake.ShouldRetryReturnsOnCall(0, true)
	fake.ShouldRetryReturnsOnCall(1, true)
	fake.ShouldRetryReturnsOnCall(2, false)
	ctx := retry.ToContext(context.Background(), fake)

	attempts := 0
	_, err := retry.Do(ctx, func() (int, error) {
		attempts++
		return 0, fmt.Errorf("attempt %d", attempts)
	})

	require.EqualError(t, err, "attempt 3")
	require.Equal(t, 3, attempts)
	require.Equal(t, 3, fake.ShouldRetryCallCount())
	require.Equal(t, 2, fake.WaitCallCount())

	_, waited := fake.WaitArgsForCall(1)
	require.Equal(t, 2, waited)
	gotErr, attempt := fake.ShouldRetryArgsForCall(0)
	require.EqualError(t, gotErr, "attempt 1")
	require.Equal(t, 1, attempt)
}

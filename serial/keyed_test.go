package serial

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyedMutex(t *testing.T) {
	t.Run("drops released keys", func(t *testing.T) {
		k := newKeyedMutex()

		unlock, err := k.lock(t.Context(), "a")
		require.NoError(t, err)
		require.Equal(t, 1, k.size())

		unlock()
		require.Zero(t, k.size())
	})

	t.Run("independent keys do not block", func(t *testing.T) {
		k := newKeyedMutex()

		unlockA, err := k.lock(t.Context(), "a")
		require.NoError(t, err)
		defer unlockA()

		ctx, cancel := context.WithTimeout(t.Context(), time.Second)
		defer cancel()
		unlockB, err := k.lock(ctx, "b")
		require.NoError(t, err)
		unlockB()
	})

	t.Run("waiters give up with their context", func(t *testing.T) {
		k := newKeyedMutex()

		unlock, err := k.lock(t.Context(), "a")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
		defer cancel()
		_, err = k.lock(ctx, "a")
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Equal(t, 1, k.size())

		unlock()
		require.Zero(t, k.size())
	})

	t.Run("hands the key to the next waiter", func(t *testing.T) {
		k := newKeyedMutex()

		unlock, err := k.lock(t.Context(), "a")
		require.NoError(t, err)

		acquired := make(chan func())
		go func() {
			next, err := k.lock(context.Background(), "a")
			if err == nil {
				acquired <- next
			}
		}()

		select {
		case <-acquired:
			t.Fatal("lock acquired while held")
		case <-time.After(20 * time.Millisecond):
		}

		unlock()
		select {
		case next := <-acquired:
			next()
		case <-time.After(5 * time.Second):
			t.Fatal("waiter never acquired the lock")
		}
		require.Zero(t, k.size())
	})
}

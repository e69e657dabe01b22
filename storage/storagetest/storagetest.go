// Package storagetest holds the behaviour every storage.Backend must share.
package storagetest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafana/changeset/storage"
)

// Run exercises a backend created fresh for each subtest by newBackend.
func Run(t *testing.T, newBackend func(t *testing.T) storage.Backend) {
	ctx := context.Background()

	t.Run("Get missing key", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Get(ctx, "objects/missing")
		require.ErrorIs(t, err, storage.ErrKeyNotFound)
	})

	t.Run("Put and Get", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Put(ctx, "objects/a", []byte("first")))
		require.NoError(t, b.Put(ctx, "objects/a", []byte("second")))

		got, err := b.Get(ctx, "objects/a")
		require.NoError(t, err)
		require.Equal(t, []byte("second"), got)
	})

	t.Run("Put empty value", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Put(ctx, "objects/empty", []byte{}))

		got, err := b.Get(ctx, "objects/empty")
		require.NoError(t, err)
		require.Empty(t, got)
	})

	t.Run("PutIfAbsent", func(t *testing.T) {
		b := newBackend(t)
		wrote, err := b.PutIfAbsent(ctx, "objects/a", []byte("first"))
		require.NoError(t, err)
		require.True(t, wrote)

		wrote, err = b.PutIfAbsent(ctx, "objects/a", []byte("second"))
		require.NoError(t, err)
		require.False(t, wrote)

		got, err := b.Get(ctx, "objects/a")
		require.NoError(t, err)
		require.Equal(t, []byte("first"), got)
	})

	t.Run("CompareAndSwap create", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.CompareAndSwap(ctx, "refs/heads/a", nil, []byte("1")))
		require.ErrorIs(t, b.CompareAndSwap(ctx, "refs/heads/a", nil, []byte("2")), storage.ErrConflict)
	})

	t.Run("CompareAndSwap update", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Put(ctx, "refs/heads/a", []byte("1")))

		require.ErrorIs(t, b.CompareAndSwap(ctx, "refs/heads/a", []byte("0"), []byte("2")), storage.ErrConflict)
		require.NoError(t, b.CompareAndSwap(ctx, "refs/heads/a", []byte("1"), []byte("2")))

		got, err := b.Get(ctx, "refs/heads/a")
		require.NoError(t, err)
		require.Equal(t, []byte("2"), got)
	})

	t.Run("CompareAndSwap delete", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Put(ctx, "refs/heads/a", []byte("1")))
		require.NoError(t, b.CompareAndSwap(ctx, "refs/heads/a", []byte("1"), nil))

		_, err := b.Get(ctx, "refs/heads/a")
		require.ErrorIs(t, err, storage.ErrKeyNotFound)
	})

	t.Run("CompareAndSwap is exclusive", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Put(ctx, "refs/heads/a", []byte("base")))

		var wg sync.WaitGroup
		results := make([]error, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = b.CompareAndSwap(ctx, "refs/heads/a", []byte("base"), []byte{byte('a' + i)})
			}(i)
		}
		wg.Wait()

		won := 0
		for _, err := range results {
			if err == nil {
				won++
				continue
			}
			require.ErrorIs(t, err, storage.ErrConflict)
		}
		require.Equal(t, 1, won)
	})

	t.Run("Delete", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Put(ctx, "refs/heads/a", []byte("1")))
		require.NoError(t, b.Delete(ctx, "refs/heads/a"))
		require.NoError(t, b.Delete(ctx, "refs/heads/a"))

		_, err := b.Get(ctx, "refs/heads/a")
		require.ErrorIs(t, err, storage.ErrKeyNotFound)
	})

	t.Run("Keys", func(t *testing.T) {
		b := newBackend(t)
		for _, key := range []string{"refs/heads/b", "refs/heads/a", "refs/notes/commits", "objects/x"} {
			require.NoError(t, b.Put(ctx, key, []byte("v")))
		}

		keys, err := b.Keys(ctx, "refs/heads/")
		require.NoError(t, err)
		require.Equal(t, []string{"refs/heads/a", "refs/heads/b"}, keys)

		keys, err = b.Keys(ctx, "missing/")
		require.NoError(t, err)
		require.Empty(t, keys)
	})
}

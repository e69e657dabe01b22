package storage_test

import (
	"testing"

	"github.com/grafana/changeset/storage"
	"github.com/grafana/changeset/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func TestInMemory(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		return storage.NewInMemory()
	})
}

func TestInMemory_ValuesAreCopied(t *testing.T) {
	s := storage.NewInMemory()
	value := []byte("abc")
	require.NoError(t, s.Put(t.Context(), "k", value))
	value[0] = 'x'

	got, err := s.Get(t.Context(), "k")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), got)
	require.Equal(t, 1, s.Len())
}

func TestMatches(t *testing.T) {
	require.True(t, storage.Matches(nil, false, nil))
	require.False(t, storage.Matches([]byte("a"), true, nil))
	require.True(t, storage.Matches([]byte("a"), true, []byte("a")))
	require.False(t, storage.Matches(nil, false, []byte("a")))
}

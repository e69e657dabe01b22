package serial_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/grafana/changeset"
	"github.com/grafana/changeset/objectstore/kvstore"
	"github.com/grafana/changeset/serial"
)

func newClient(t *testing.T) changeset.Client {
	t.Helper()

	c, err := changeset.NewClient(kvstore.NewInMemory(),
		changeset.WithAuthor(changeset.Author{Name: "Test Author", Email: "author@example.com"}))
	require.NoError(t, err)
	return serial.Wrap(c)
}

func TestClient_SerializesWrites(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)
	require.NoError(t, c.Ensure(ctx, "cs"))

	const writers = 8
	var g errgroup.Group
	for i := range writers {
		g.Go(func() error {
			_, err := c.WriteFile(ctx, "cs", fmt.Sprintf("file-%d.txt", i), []byte("content\n"))
			return err
		})
	}
	require.NoError(t, g.Wait())

	entries, err := c.ReadDir(ctx, "cs", "")
	require.NoError(t, err)
	require.Len(t, entries, writers)

	commits, err := c.ListCommits(ctx, "cs")
	require.NoError(t, err)
	require.Len(t, commits, writers+1)
}

func TestClient_ParallelChangesets(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	var g errgroup.Group
	for i := range 4 {
		name := fmt.Sprintf("cs-%d", i)
		g.Go(func() error {
			if _, err := c.WriteFile(ctx, name, "a.txt", []byte(name)); err != nil {
				return err
			}
			_, err := c.Rename(ctx, name, "a.txt", "b.txt")
			return err
		})
	}
	require.NoError(t, g.Wait())

	names, err := c.ListChangesets(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"cs-0", "cs-1", "cs-2", "cs-3"}, names)

	for _, name := range names {
		got, err := c.ReadFile(ctx, name, "b.txt")
		require.NoError(t, err)
		require.Equal(t, name, string(got))
	}
}

func TestClient_PassesErrorsThrough(t *testing.T) {
	c := newClient(t)

	_, err := c.Unlink(context.Background(), "cs", "missing.txt")
	require.ErrorIs(t, err, changeset.ErrPathNotFound)
}

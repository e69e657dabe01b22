package changeset_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/changeset"
	"github.com/grafana/changeset/objectstore"
	"github.com/grafana/changeset/objectstore/kvstore"
	"github.com/grafana/changeset/objectstore/storetest"
	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/hash"
)

var testAuthor = changeset.Author{Name: "Test Author", Email: "author@example.com"}

// tickingClock returns a clock that advances one second per call, so every
// commit gets its own timestamp.
func tickingClock() func() time.Time {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ticks atomic.Int64
	return func() time.Time {
		return start.Add(time.Duration(ticks.Add(1)) * time.Second)
	}
}

func newClient(t *testing.T, store objectstore.Store, opts ...changeset.Option) changeset.Client {
	t.Helper()

	opts = append([]changeset.Option{changeset.WithAuthor(testAuthor), changeset.WithClock(tickingClock())}, opts...)
	c, err := changeset.NewClient(store, opts...)
	require.NoError(t, err)
	return c
}

// seed commits files to refs/heads/main and returns the commit.
func seed(t *testing.T, s objectstore.Store, files map[string]string) hash.Hash {
	t.Helper()

	id := storetest.Commit(t, s, buildTree(t, s, files), 0)
	require.NoError(t, s.UpdateRef(context.Background(), "refs/heads/main", id, nil))
	return id
}

func buildTree(t *testing.T, s objectstore.Store, files map[string]string) hash.Hash {
	t.Helper()

	ctx := context.Background()
	var entries []objectstore.TreeFile
	for p, content := range files {
		blob, err := s.WriteBlob(ctx, []byte(content))
		require.NoError(t, err)
		entries = append(entries, objectstore.TreeFile{Path: p, Mode: protocol.ModeBlob, Hash: blob})
	}
	tree, err := objectstore.BuildTree(ctx, s, entries)
	require.NoError(t, err)
	return tree
}

func treeOf(t *testing.T, s objectstore.Store, commit hash.Hash) hash.Hash {
	t.Helper()

	c, err := s.ReadCommit(context.Background(), commit)
	require.NoError(t, err)
	return c.Tree
}

func names(entries []changeset.DirEntry) []string {
	result := make([]string, 0, len(entries))
	for _, e := range entries {
		result = append(result, e.Name)
	}
	return result
}

func TestNewClient(t *testing.T) {
	t.Run("requires a store", func(t *testing.T) {
		_, err := changeset.NewClient(nil)
		require.Error(t, err)
	})

	t.Run("rejects invalid options", func(t *testing.T) {
		s := kvstore.NewInMemory()
		for name, opt := range map[string]changeset.Option{
			"nil logger":          changeset.WithLogger(nil),
			"nil patcher":         changeset.WithPatcher(nil),
			"nil clock":           changeset.WithClock(nil),
			"empty notes":         changeset.WithNotesNamespace(""),
			"author without name": changeset.WithAuthor(changeset.Author{Email: "a@example.com"}),
			"overlapping refs":    changeset.WithRefNamespaces("refs/heads/", "refs/heads/shadow/"),
			"refs outside refs/":  changeset.WithRefNamespaces("heads/", "refs/shadow/"),
		} {
			t.Run(name, func(t *testing.T) {
				_, err := changeset.NewClient(s, opt)
				require.Error(t, err)
			})
		}
	})
}

func TestClient_WriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, content := range map[string][]byte{
		"empty":  {},
		"text":   []byte("hello\n"),
		"binary": {0, 1, 2, 0xff, '\n', 0},
	} {
		t.Run(name, func(t *testing.T) {
			c := newClient(t, kvstore.NewInMemory())

			_, err := c.WriteFile(ctx, "cs", "dir/file.bin", content)
			require.NoError(t, err)

			got, err := c.ReadFile(ctx, "cs", "dir/file.bin")
			require.NoError(t, err)
			require.Equal(t, string(content), string(got))

			_, err = c.ReadFile(ctx, "other", "dir/file.bin")
			require.ErrorIs(t, err, changeset.ErrChangesetNotFound)

			require.NoError(t, c.Ensure(ctx, "other"))
			_, err = c.ReadFile(ctx, "other", "dir/file.bin")
			require.ErrorIs(t, err, changeset.ErrPathNotFound)
		})
	}
}

func TestClient_WriteFile(t *testing.T) {
	ctx := context.Background()

	t.Run("overwrites and keeps siblings", func(t *testing.T) {
		c := newClient(t, kvstore.NewInMemory())

		_, err := c.WriteFile(ctx, "cs", "a/b/one.txt", []byte("1\n"))
		require.NoError(t, err)
		_, err = c.WriteFile(ctx, "cs", "a/b/two.txt", []byte("2\n"))
		require.NoError(t, err)
		_, err = c.WriteFile(ctx, "cs", "a/b/one.txt", []byte("one\n"))
		require.NoError(t, err)

		entries, err := c.ReadDir(ctx, "cs", "a/b")
		require.NoError(t, err)
		require.Equal(t, []string{"one.txt", "two.txt"}, names(entries))
		require.Equal(t, "a/b/two.txt", entries[1].Path)

		got, err := c.ReadFile(ctx, "cs", "/a/b/one.txt")
		require.NoError(t, err)
		require.Equal(t, "one\n", string(got))
	})

	t.Run("uses the given message", func(t *testing.T) {
		c := newClient(t, kvstore.NewInMemory())

		_, err := c.WriteFile(ctx, "cs", "a.txt", []byte("a\n"), changeset.Message("add a"))
		require.NoError(t, err)
		_, err = c.WriteFile(ctx, "cs", "b.txt", []byte("b\n"))
		require.NoError(t, err)

		commits, err := c.ListCommits(ctx, "cs")
		require.NoError(t, err)
		require.Len(t, commits, 3)
		require.Equal(t, changeset.PendingMessage, commits[0].Message)
		require.Equal(t, "add a", commits[1].Message)
		require.Equal(t, changeset.StartMessage, commits[2].Message)
	})

	t.Run("rejects directories", func(t *testing.T) {
		c := newClient(t, kvstore.NewInMemory())

		_, err := c.Mkdir(ctx, "cs", "dir")
		require.NoError(t, err)

		_, err = c.WriteFile(ctx, "cs", "dir", []byte("x"))
		require.ErrorIs(t, err, changeset.ErrIsADirectory)

		_, err = c.ReadFile(ctx, "cs", "dir")
		require.ErrorIs(t, err, changeset.ErrIsADirectory)
	})

	t.Run("rejects invalid paths", func(t *testing.T) {
		c := newClient(t, kvstore.NewInMemory())

		for _, p := range []string{"", "/", "../escape.txt", "a/../../b", "nul\x00byte"} {
			_, err := c.WriteFile(ctx, "cs", p, []byte("x"))
			require.ErrorIs(t, err, changeset.ErrInvalidPath, p)

			var pathErr *changeset.InvalidPathError
			require.ErrorAs(t, err, &pathErr, p)
		}
	})

	t.Run("rejects invalid changeset names", func(t *testing.T) {
		c := newClient(t, kvstore.NewInMemory())

		for _, name := range []string{"", "/abs", "a..b", "trailing.lock", "with space"} {
			_, err := c.WriteFile(ctx, name, "a.txt", []byte("x"))
			require.ErrorIs(t, err, changeset.ErrInvalidChangesetName, name)

			var csErr *changeset.ChangesetError
			require.ErrorAs(t, err, &csErr, name)
			require.Equal(t, name, csErr.Name)
		}
	})

	t.Run("requires an author", func(t *testing.T) {
		c, err := changeset.NewClient(kvstore.NewInMemory())
		require.NoError(t, err)

		_, err = c.WriteFile(ctx, "cs", "a.txt", []byte("x"))
		require.ErrorIs(t, err, changeset.ErrMissingIdentity)
	})

	t.Run("stops on a cancelled context", func(t *testing.T) {
		s := kvstore.NewInMemory()
		c := newClient(t, s)
		require.NoError(t, c.Ensure(ctx, "cs"))
		before, err := s.ReadRef(ctx, "refs/heads/cs")
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err = c.WriteFile(cancelled, "cs", "a.txt", []byte("x"))
		require.ErrorIs(t, err, context.Canceled)

		after, err := s.ReadRef(ctx, "refs/heads/cs")
		require.NoError(t, err)
		require.Equal(t, before.String(), after.String())
	})
}

func TestClient_Mkdir(t *testing.T) {
	ctx := context.Background()
	s := kvstore.NewInMemory()
	c := newClient(t, s)

	_, err := c.WriteFile(ctx, "cs", "parent/file.txt", []byte("f\n"))
	require.NoError(t, err)
	before, err := c.ReadDir(ctx, "cs", "parent")
	require.NoError(t, err)

	_, err = c.Mkdir(ctx, "cs", "parent/empty")
	require.NoError(t, err)

	entries, err := c.ReadDir(ctx, "cs", "parent")
	require.NoError(t, err)
	require.Equal(t, []string{"empty", "file.txt"}, names(entries))
	require.True(t, entries[0].IsDir())
	require.Equal(t, changeset.TypeDirectory, entries[0].Type())
	require.Equal(t, hash.EmptyTreeHex, entries[0].Hash.String())

	children, err := c.ReadDir(ctx, "cs", "parent/empty")
	require.NoError(t, err)
	require.Empty(t, children)

	_, err = c.Mkdir(ctx, "cs", "parent/empty")
	require.ErrorIs(t, err, changeset.ErrAlreadyExists)

	_, err = c.Unlink(ctx, "cs", "parent/empty")
	require.NoError(t, err)

	after, err := c.ReadDir(ctx, "cs", "parent")
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestClient_Unlink(t *testing.T) {
	ctx := context.Background()

	t.Run("removes a file", func(t *testing.T) {
		c := newClient(t, kvstore.NewInMemory())

		_, err := c.WriteFile(ctx, "cs", "dir/a.txt", []byte("a\n"))
		require.NoError(t, err)
		_, err = c.Unlink(ctx, "cs", "dir/a.txt")
		require.NoError(t, err)

		_, err = c.ReadFile(ctx, "cs", "dir/a.txt")
		require.ErrorIs(t, err, changeset.ErrPathNotFound)

		var pathErr *changeset.PathError
		require.ErrorAs(t, err, &pathErr)
		require.Equal(t, "dir/a.txt", pathErr.Path)
	})

	t.Run("keeps emptied directories", func(t *testing.T) {
		c := newClient(t, kvstore.NewInMemory())

		_, err := c.WriteFile(ctx, "cs", "dir/a.txt", []byte("a\n"))
		require.NoError(t, err)
		_, err = c.Unlink(ctx, "cs", "dir/a.txt")
		require.NoError(t, err)

		typ, err := c.FileType(ctx, "cs", "dir")
		require.NoError(t, err)
		require.Equal(t, changeset.TypeDirectory, typ)
	})

	t.Run("fails on missing paths", func(t *testing.T) {
		c := newClient(t, kvstore.NewInMemory())

		_, err := c.Unlink(ctx, "cs", "missing.txt")
		require.ErrorIs(t, err, changeset.ErrPathNotFound)
	})
}

func TestClient_Copy(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) changeset.Client {
		c := newClient(t, kvstore.NewInMemory())
		_, err := c.WriteFile(ctx, "cs", "src.txt", []byte("shared\n"))
		require.NoError(t, err)
		_, err = c.Copy(ctx, "cs", "src.txt", "nested/dst.txt")
		require.NoError(t, err)
		return c
	}

	t.Run("shares the object", func(t *testing.T) {
		c := setup(t)

		src, err := c.Stat(ctx, "cs", "src.txt")
		require.NoError(t, err)
		dst, err := c.Stat(ctx, "cs", "nested/dst.txt")
		require.NoError(t, err)
		require.Equal(t, src.Hash.String(), dst.Hash.String())
	})

	t.Run("source can be removed alone", func(t *testing.T) {
		c := setup(t)

		_, err := c.Unlink(ctx, "cs", "src.txt")
		require.NoError(t, err)

		got, err := c.ReadFile(ctx, "cs", "nested/dst.txt")
		require.NoError(t, err)
		require.Equal(t, "shared\n", string(got))
	})

	t.Run("destination can be removed alone", func(t *testing.T) {
		c := setup(t)

		_, err := c.Unlink(ctx, "cs", "nested/dst.txt")
		require.NoError(t, err)

		got, err := c.ReadFile(ctx, "cs", "src.txt")
		require.NoError(t, err)
		require.Equal(t, "shared\n", string(got))
	})

	t.Run("fails without a source", func(t *testing.T) {
		c := setup(t)

		_, err := c.Copy(ctx, "cs", "missing.txt", "other.txt")
		require.ErrorIs(t, err, changeset.ErrSourceNotFound)
	})

	t.Run("refuses to overwrite a directory", func(t *testing.T) {
		c := setup(t)

		_, err := c.Copy(ctx, "cs", "src.txt", "nested")
		require.ErrorIs(t, err, changeset.ErrIsADirectory)
	})
}

func TestClient_Rename(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, kvstore.NewInMemory())

	_, err := c.WriteFile(ctx, "cs", "old.txt", []byte("content\n"))
	require.NoError(t, err)
	before, err := c.ListCommits(ctx, "cs")
	require.NoError(t, err)

	id, err := c.Rename(ctx, "cs", "old.txt", "new/name.txt", changeset.Message("rename"))
	require.NoError(t, err)

	after, err := c.ListCommits(ctx, "cs")
	require.NoError(t, err)
	require.Len(t, after, len(before)+2)
	require.Equal(t, id.String(), after[0].Hash.String())

	_, err = c.ReadFile(ctx, "cs", "old.txt")
	require.ErrorIs(t, err, changeset.ErrPathNotFound)
	got, err := c.ReadFile(ctx, "cs", "new/name.txt")
	require.NoError(t, err)
	require.Equal(t, "content\n", string(got))
}

func TestClient_ReadDir(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, kvstore.NewInMemory())

	_, err := c.WriteFile(ctx, "cs", "b.txt", []byte("b\n"))
	require.NoError(t, err)
	_, err = c.WriteFile(ctx, "cs", "a/c.txt", []byte("c\n"))
	require.NoError(t, err)

	for _, root := range []string{"", "/"} {
		entries, err := c.ReadDir(ctx, "cs", root)
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b.txt"}, names(entries))
	}

	_, err = c.ReadDir(ctx, "cs", "missing")
	require.ErrorIs(t, err, changeset.ErrNotADirectory)

	_, err = c.ReadDir(ctx, "cs", "b.txt")
	require.ErrorIs(t, err, changeset.ErrNotADirectory)
}

func TestClient_Metadata(t *testing.T) {
	ctx := context.Background()
	s := kvstore.NewInMemory()
	c := newClient(t, s)

	id, err := c.WriteFile(ctx, "cs", "dir/hello.txt", []byte("hello\n"))
	require.NoError(t, err)
	_, err = c.WriteFile(ctx, "cs", "other.txt", []byte("other\n"))
	require.NoError(t, err)

	commit, err := s.ReadCommit(ctx, id)
	require.NoError(t, err)
	written, err := commit.Author.Time()
	require.NoError(t, err)

	t.Run("file type", func(t *testing.T) {
		for p, want := range map[string]changeset.EntryType{
			"":              changeset.TypeDirectory,
			"dir":           changeset.TypeDirectory,
			"dir/hello.txt": changeset.TypeFile,
		} {
			got, err := c.FileType(ctx, "cs", p)
			require.NoError(t, err, p)
			require.Equal(t, want, got, p)
		}

		_, err := c.FileType(ctx, "cs", "missing")
		require.ErrorIs(t, err, changeset.ErrPathNotFound)
	})

	t.Run("file size", func(t *testing.T) {
		size, err := c.FileSize(ctx, "cs", "dir/hello.txt")
		require.NoError(t, err)
		require.EqualValues(t, 6, size)

		_, err = c.FileSize(ctx, "cs", "dir")
		require.ErrorIs(t, err, changeset.ErrIsADirectory)
	})

	t.Run("last modified", func(t *testing.T) {
		when, err := c.LastModified(ctx, "cs", "dir/hello.txt")
		require.NoError(t, err)
		require.True(t, written.Equal(when), "want %s, got %s", written, when)

		when, err = c.LastModified(ctx, "cs", "never-written.txt")
		require.NoError(t, err)
		require.Equal(t, int64(0), when.Unix())
	})

	t.Run("stat", func(t *testing.T) {
		info, err := c.Stat(ctx, "cs", "dir/hello.txt")
		require.NoError(t, err)
		assert.Equal(t, "hello.txt", info.Name)
		assert.Equal(t, "dir/hello.txt", info.Path)
		assert.Equal(t, changeset.TypeFile, info.Type)
		assert.Equal(t, protocol.ModeBlob, info.Mode)
		assert.EqualValues(t, 6, info.Size)
		assert.True(t, written.Equal(info.ModTime))
		assert.False(t, info.IsDir())

		info, err = c.Stat(ctx, "cs", "dir")
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Zero(t, info.Size)
	})
}

func TestClient_Bootstrap(t *testing.T) {
	ctx := context.Background()

	t.Run("starts from HEAD", func(t *testing.T) {
		s := kvstore.NewInMemory()
		head := seed(t, s, map[string]string{"readme.md": "# hi\n"})
		c := newClient(t, s)

		_, err := c.ReadFile(ctx, "cs", "readme.md")
		require.ErrorIs(t, err, changeset.ErrChangesetNotFound)

		require.NoError(t, c.Ensure(ctx, "cs"))
		got, err := c.ReadFile(ctx, "cs", "readme.md")
		require.NoError(t, err)
		require.Equal(t, "# hi\n", string(got))

		parent, err := c.ParentOf(ctx, "cs")
		require.NoError(t, err)
		require.Equal(t, head.String(), parent.String())

		commits, err := c.ListCommits(ctx, "cs")
		require.NoError(t, err)
		require.Equal(t, changeset.StartMessage, commits[0].Message)
	})

	t.Run("is idempotent", func(t *testing.T) {
		s := kvstore.NewInMemory()
		c := newClient(t, s)

		require.NoError(t, c.Ensure(ctx, "cs"))
		first, err := s.ReadRef(ctx, "refs/heads/cs")
		require.NoError(t, err)

		require.NoError(t, c.Ensure(ctx, "cs"))
		second, err := s.ReadRef(ctx, "refs/heads/cs")
		require.NoError(t, err)
		require.Equal(t, first.String(), second.String())
	})

	t.Run("starts empty on an unborn HEAD", func(t *testing.T) {
		s := kvstore.NewInMemory()
		c := newClient(t, s)

		require.NoError(t, c.Ensure(ctx, "cs"))

		entries, err := c.ReadDir(ctx, "cs", "")
		require.NoError(t, err)
		require.Empty(t, entries)

		_, err = c.ParentOf(ctx, "cs")
		require.ErrorIs(t, err, changeset.ErrNotACommit)
	})
}

func TestClient_Changesets(t *testing.T) {
	ctx := context.Background()
	s := kvstore.NewInMemory()
	head := seed(t, s, map[string]string{"a.txt": "a\n"})
	c := newClient(t, s)

	_, err := c.WriteFile(ctx, "feature/one", "b.txt", []byte("b\n"))
	require.NoError(t, err)
	require.NoError(t, c.Ensure(ctx, "two"))

	listed, err := c.ListChangesets(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"feature/one", "main", "two"}, listed)

	containing, err := c.ChangesetsContaining(ctx, head.String())
	require.NoError(t, err)
	require.Equal(t, []string{"feature/one", "main", "two"}, containing)

	containing, err = c.ChangesetsContaining(ctx, "feature/one")
	require.NoError(t, err)
	require.Equal(t, []string{"feature/one"}, containing)

	require.NoError(t, c.RemoveChangeset(ctx, "feature/one"))
	require.NoError(t, c.RemoveChangeset(ctx, "feature/one"))

	listed, err = c.ListChangesets(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"main", "two"}, listed)

	_, err = c.ReadFile(ctx, "feature/one", "b.txt")
	require.ErrorIs(t, err, changeset.ErrChangesetNotFound)
}

func TestClient_ShadowWrites(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*kvstore.Store, changeset.Client, hash.Hash) {
		s := kvstore.NewInMemory()
		c := newClient(t, s, changeset.WithShadowWrites())
		require.NoError(t, c.Ensure(ctx, "cs"))
		primary, err := s.ReadRef(ctx, "refs/heads/cs")
		require.NoError(t, err)
		return s, c, primary
	}

	t.Run("starts with the shadow at the primary", func(t *testing.T) {
		s, c, primary := setup(t)

		shadow, err := s.ReadRef(ctx, "refs/changesets/shadow/cs")
		require.NoError(t, err)
		require.Equal(t, primary.String(), shadow.String())

		state, err := c.State(ctx, "cs")
		require.NoError(t, err)
		require.Equal(t, changeset.Clean, state)
	})

	t.Run("primary-only clients create no shadow ref", func(t *testing.T) {
		s := kvstore.NewInMemory()
		require.NoError(t, newClient(t, s).Ensure(ctx, "plain"))

		_, err := s.ReadRef(ctx, "refs/changesets/shadow/plain")
		require.ErrorIs(t, err, objectstore.ErrRefNotFound)
	})

	t.Run("accumulates one pending commit", func(t *testing.T) {
		s, c, primary := setup(t)

		state, err := c.State(ctx, "cs")
		require.NoError(t, err)
		require.Equal(t, changeset.Clean, state)
		_, err = c.PendingCommit(ctx, "cs")
		require.ErrorIs(t, err, changeset.ErrNoPendingCommit)

		_, err = c.WriteFile(ctx, "cs", "a.txt", []byte("a\n"))
		require.NoError(t, err)
		last, err := c.WriteFile(ctx, "cs", "b.txt", []byte("b\n"))
		require.NoError(t, err)

		state, err = c.State(ctx, "cs")
		require.NoError(t, err)
		require.Equal(t, changeset.Dirty, state)

		pending, err := c.PendingCommit(ctx, "cs")
		require.NoError(t, err)
		require.Equal(t, last.String(), pending.String())

		parent, err := c.ParentOf(ctx, pending.String())
		require.NoError(t, err)
		require.Equal(t, primary.String(), parent.String())

		current, err := s.ReadRef(ctx, "refs/heads/cs")
		require.NoError(t, err)
		require.Equal(t, primary.String(), current.String())

		for _, p := range []string{"a.txt", "b.txt"} {
			_, err := c.ReadFile(ctx, "cs", p)
			require.NoError(t, err, p)
		}
	})

	t.Run("promote", func(t *testing.T) {
		s, c, _ := setup(t)

		pending, err := c.WriteFile(ctx, "cs", "a.txt", []byte("a\n"))
		require.NoError(t, err)
		require.NoError(t, c.Promote(ctx, "cs"))

		current, err := s.ReadRef(ctx, "refs/heads/cs")
		require.NoError(t, err)
		require.Equal(t, pending.String(), current.String())

		state, err := c.State(ctx, "cs")
		require.NoError(t, err)
		require.Equal(t, changeset.Clean, state)

		_, err = c.WriteFile(ctx, "cs", "b.txt", []byte("b\n"))
		require.NoError(t, err)
		next, err := c.PendingCommit(ctx, "cs")
		require.NoError(t, err)
		parent, err := c.ParentOf(ctx, next.String())
		require.NoError(t, err)
		require.Equal(t, pending.String(), parent.String())
	})

	t.Run("discard", func(t *testing.T) {
		_, c, _ := setup(t)

		_, err := c.WriteFile(ctx, "cs", "a.txt", []byte("a\n"))
		require.NoError(t, err)
		require.NoError(t, c.Discard(ctx, "cs"))

		state, err := c.State(ctx, "cs")
		require.NoError(t, err)
		require.Equal(t, changeset.Clean, state)

		_, err = c.ReadFile(ctx, "cs", "a.txt")
		require.ErrorIs(t, err, changeset.ErrPathNotFound)
	})

	t.Run("primary write folds pending edits", func(t *testing.T) {
		s, c, _ := setup(t)
		direct := newClient(t, s)

		pending, err := c.WriteFile(ctx, "cs", "a.txt", []byte("a\n"))
		require.NoError(t, err)
		id, err := direct.WriteFile(ctx, "cs", "b.txt", []byte("b\n"))
		require.NoError(t, err)

		parent, err := direct.ParentOf(ctx, id.String())
		require.NoError(t, err)
		require.Equal(t, pending.String(), parent.String())

		state, err := c.State(ctx, "cs")
		require.NoError(t, err)
		require.Equal(t, changeset.Clean, state)

		for _, p := range []string{"a.txt", "b.txt"} {
			_, err := c.ReadFile(ctx, "cs", p)
			require.NoError(t, err, p)
		}
	})
}

// racingStore runs before once, ahead of the first ref update it sees.
type racingStore struct {
	objectstore.Store
	once   sync.Once
	before func()
}

func (s *racingStore) UpdateRef(ctx context.Context, name string, next, prev hash.Hash) error {
	s.once.Do(s.before)
	return s.Store.UpdateRef(ctx, name, next, prev)
}

func TestClient_RefConflict(t *testing.T) {
	ctx := context.Background()
	inner := kvstore.NewInMemory()
	other := newClient(t, inner)
	require.NoError(t, other.Ensure(ctx, "cs"))

	racing := &racingStore{Store: inner, before: func() {
		_, err := other.WriteFile(ctx, "cs", "theirs.txt", []byte("theirs\n"))
		require.NoError(t, err)
	}}
	c := newClient(t, racing)

	_, err := c.WriteFile(ctx, "cs", "ours.txt", []byte("ours\n"))
	require.ErrorIs(t, err, changeset.ErrRefConflict)

	_, err = c.ReadFile(ctx, "cs", "ours.txt")
	require.ErrorIs(t, err, changeset.ErrPathNotFound)
	_, err = c.ReadFile(ctx, "cs", "theirs.txt")
	require.NoError(t, err)

	_, err = c.WriteFile(ctx, "cs", "ours.txt", []byte("ours\n"))
	require.NoError(t, err)
}

// failingRefStore fails every update of one ref.
type failingRefStore struct {
	objectstore.Store
	ref string
}

func (s *failingRefStore) UpdateRef(ctx context.Context, name string, next, prev hash.Hash) error {
	if name == s.ref {
		return errors.New("ref storage unavailable")
	}
	return s.Store.UpdateRef(ctx, name, next, prev)
}

func TestClient_PrimaryWriteOnDirtyChangeset(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*kvstore.Store, changeset.Client) {
		s := kvstore.NewInMemory()
		shadowed := newClient(t, s, changeset.WithShadowWrites())
		_, err := shadowed.WriteFile(ctx, "cs", "a.txt", []byte("a\n"))
		require.NoError(t, err)
		state, err := shadowed.State(ctx, "cs")
		require.NoError(t, err)
		require.Equal(t, changeset.Dirty, state)
		return s, shadowed
	}

	t.Run("folds the pending edit and moves both refs", func(t *testing.T) {
		s, shadowed := setup(t)
		c := newClient(t, s)

		id, err := c.WriteFile(ctx, "cs", "b.txt", []byte("b\n"))
		require.NoError(t, err)

		state, err := c.State(ctx, "cs")
		require.NoError(t, err)
		require.Equal(t, changeset.Clean, state)
		for _, ref := range []string{"refs/heads/cs", "refs/changesets/shadow/cs"} {
			tip, err := s.ReadRef(ctx, ref)
			require.NoError(t, err)
			require.Equal(t, id.String(), tip.String(), ref)
		}
		for _, p := range []string{"a.txt", "b.txt"} {
			_, err := shadowed.ReadFile(ctx, "cs", p)
			require.NoError(t, err, p)
		}
	})

	t.Run("failed primary update keeps the edit pending", func(t *testing.T) {
		s, _ := setup(t)
		before, err := s.ReadRef(ctx, "refs/heads/cs")
		require.NoError(t, err)

		c := newClient(t, &failingRefStore{Store: s, ref: "refs/heads/cs"})
		_, err = c.WriteFile(ctx, "cs", "b.txt", []byte("b\n"))
		require.ErrorContains(t, err, "ref storage unavailable")

		primary, err := s.ReadRef(ctx, "refs/heads/cs")
		require.NoError(t, err)
		require.Equal(t, before.String(), primary.String())

		reader := newClient(t, s)
		state, err := reader.State(ctx, "cs")
		require.NoError(t, err)
		require.Equal(t, changeset.Dirty, state)
		got, err := reader.ReadFile(ctx, "cs", "b.txt")
		require.NoError(t, err)
		require.Equal(t, "b\n", string(got))

		require.NoError(t, reader.Promote(ctx, "cs"))
		got, err = reader.ReadFile(ctx, "cs", "a.txt")
		require.NoError(t, err)
		require.Equal(t, "a\n", string(got))
	})

	t.Run("failed shadow update moves nothing", func(t *testing.T) {
		s, _ := setup(t)
		primary, err := s.ReadRef(ctx, "refs/heads/cs")
		require.NoError(t, err)
		shadow, err := s.ReadRef(ctx, "refs/changesets/shadow/cs")
		require.NoError(t, err)

		c := newClient(t, &failingRefStore{Store: s, ref: "refs/changesets/shadow/cs"})
		_, err = c.WriteFile(ctx, "cs", "b.txt", []byte("b\n"))
		require.ErrorContains(t, err, "ref storage unavailable")

		for ref, want := range map[string]hash.Hash{"refs/heads/cs": primary, "refs/changesets/shadow/cs": shadow} {
			got, err := s.ReadRef(ctx, ref)
			require.NoError(t, err)
			require.Equal(t, want.String(), got.String(), ref)
		}
	})
}

func TestClient_Annotations(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, kvstore.NewInMemory())
	_, err := c.WriteFile(ctx, "cs", "a.txt", []byte("a\n"))
	require.NoError(t, err)

	_, ok, err := c.ReadAnnotation(ctx, "cs", "")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Annotate(ctx, "cs", "", "one"))
	require.NoError(t, c.Annotate(ctx, "cs", "", "two"))
	require.NoError(t, c.Annotate(ctx, "cs", "review", "approved"))

	note, ok, err := c.ReadAnnotation(ctx, "cs", "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "one\n\ntwo", note)

	require.NoError(t, c.ClearAnnotation(ctx, "cs", ""))
	_, ok, err = c.ReadAnnotation(ctx, "cs", "")
	require.NoError(t, err)
	require.False(t, ok)

	note, ok, err = c.ReadAnnotation(ctx, "cs", "review")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "approved", note)
}

func TestClient_DiffCommits(t *testing.T) {
	ctx := context.Background()
	s := kvstore.NewInMemory()
	seed(t, s, map[string]string{"base.txt": "base\n"})
	c := newClient(t, s)

	_, err := c.WriteFile(ctx, "left", "z.txt", []byte("z\n"), changeset.Message("add z"))
	require.NoError(t, err)
	_, err = c.WriteFile(ctx, "left", "y.txt", []byte("y\n"), changeset.Message("add y"))
	require.NoError(t, err)
	require.NoError(t, c.Annotate(ctx, "left", "", "needs review"))

	_, err = c.WriteFile(ctx, "right", "z.txt", []byte("z\n"), changeset.Message("pick z"))
	require.NoError(t, err)
	_, err = c.WriteFile(ctx, "right", "x.txt", []byte("x\n"), changeset.Message("add x"))
	require.NoError(t, err)

	result, err := c.DiffCommits(ctx, "left", "right")
	require.NoError(t, err)

	messages := func(commits []changeset.CommitInfo) []string {
		var out []string
		for _, ci := range commits {
			out = append(out, ci.Message)
		}
		return out
	}
	require.Equal(t, []string{"add y", changeset.StartMessage}, messages(result.Added))
	require.Equal(t, []string{"add x", changeset.StartMessage}, messages(result.Missing))
	require.Equal(t, "needs review", result.Added[0].Note)
	require.Empty(t, result.Missing[0].Note)

	base, err := c.FindCommonBase(ctx, "left", "right")
	require.NoError(t, err)
	main, err := s.ReadRef(ctx, "refs/heads/main")
	require.NoError(t, err)
	require.Equal(t, main.String(), base.String())
}

func TestClient_ListCommitsRange(t *testing.T) {
	ctx := context.Background()
	s := kvstore.NewInMemory()
	seed(t, s, map[string]string{"base.txt": "base\n"})
	c := newClient(t, s)

	_, err := c.WriteFile(ctx, "cs", "a.txt", []byte("a\n"), changeset.Message("add a"))
	require.NoError(t, err)

	commits, err := c.ListCommits(ctx, "main..cs")
	require.NoError(t, err)
	require.Len(t, commits, 2)
	require.Equal(t, "add a", commits[0].Message)

	commits, err = c.ListCommits(ctx, "..cs")
	require.NoError(t, err)
	require.Len(t, commits, 2)

	_, err = c.ListCommits(ctx, "main...cs")
	require.ErrorIs(t, err, changeset.ErrNotACommit)

	_, err = c.ListCommits(ctx, "missing")
	require.ErrorIs(t, err, changeset.ErrNotACommit)
}

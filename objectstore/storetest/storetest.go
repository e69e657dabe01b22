// Package storetest holds the behaviour every objectstore.Store must share,
// including the ids it computes, which must match Git byte for byte.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafana/changeset/objectstore"
	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/hash"
	"github.com/grafana/changeset/protocol/object"
)

const (
	helloBlob = "ce013625030ba8dba906f756967f9e9ca394464a"
	emptyBlob = "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"
	// tree of hello.txt, sub.txt (both helloBlob) and sub (empty tree)
	sampleTree = "8066431e3ff84c7f77866bc43b6933db00f1302e"
	// commit of the empty tree by Author and Committer with message "initial\n"
	sampleCommit = "66fe8b3f2df5c2a6e67944af865f3a0893093d69"
)

var (
	Author    = object.Identity{Name: "A U Thor", Email: "author@example.com", Timestamp: 1112911993, Timezone: "-0700"}
	Committer = object.Identity{Name: "C O Mitter", Email: "committer@example.com", Timestamp: 1112911993, Timezone: "-0700"}
)

// Run exercises a store created fresh for each subtest by newStore.
func Run(t *testing.T, newStore func(t *testing.T) objectstore.Store) {
	ctx := context.Background()

	t.Run("blobs", func(t *testing.T) {
		s := newStore(t)

		id, err := s.WriteBlob(ctx, []byte("hello\n"))
		require.NoError(t, err)
		require.Equal(t, helloBlob, id.String())

		id, err = s.WriteBlob(ctx, []byte{})
		require.NoError(t, err)
		require.Equal(t, emptyBlob, id.String())

		binary := []byte{0, 1, 2, 0xff, '\n', 0}
		id, err = s.WriteBlob(ctx, binary)
		require.NoError(t, err)
		got, err := s.ReadBlob(ctx, id)
		require.NoError(t, err)
		require.Equal(t, binary, got)

		size, err := objectstore.BlobSize(ctx, s, id)
		require.NoError(t, err)
		require.EqualValues(t, len(binary), size)

		_, err = s.ReadBlob(ctx, hash.MustFromHex("1111111111111111111111111111111111111111"))
		require.ErrorIs(t, err, objectstore.ErrObjectNotFound)
	})

	t.Run("trees", func(t *testing.T) {
		s := newStore(t)
		hello := writeBlob(t, s, "hello\n")
		empty, err := s.WriteTree(ctx, nil)
		require.NoError(t, err)
		require.Equal(t, hash.EmptyTreeHex, empty.String())

		id, err := s.WriteTree(ctx, []protocol.TreeEntry{
			{Name: "sub", Mode: protocol.ModeTree, Hash: empty},
			{Name: "sub.txt", Mode: protocol.ModeBlob, Hash: hello},
			{Name: "hello.txt", Mode: protocol.ModeBlob, Hash: hello},
		})
		require.NoError(t, err)
		require.Equal(t, sampleTree, id.String())

		entries, err := s.ReadTree(ctx, id)
		require.NoError(t, err)
		require.Equal(t, []string{"hello.txt", "sub", "sub.txt"}, names(entries))
		require.True(t, entries[1].IsTree())
	})

	t.Run("commits", func(t *testing.T) {
		s := newStore(t)
		empty, err := s.WriteTree(ctx, nil)
		require.NoError(t, err)

		id, err := s.WriteCommit(ctx, objectstore.CommitRequest{
			Tree:      empty,
			Author:    Author,
			Committer: Committer,
			Message:   "initial\n",
		})
		require.NoError(t, err)
		require.Equal(t, sampleCommit, id.String())

		c, err := s.ReadCommit(ctx, id)
		require.NoError(t, err)
		require.Equal(t, empty, c.Tree)
		require.Empty(t, c.Parents)
		require.Equal(t, Author, c.Author)
		require.Equal(t, "initial\n", c.Message)

		child := Commit(t, s, empty, 1, id)
		c, err = s.ReadCommit(ctx, child)
		require.NoError(t, err)
		require.Equal(t, []hash.Hash{id}, c.Parents)
	})

	t.Run("refs", func(t *testing.T) {
		s := newStore(t)
		empty, err := s.WriteTree(ctx, nil)
		require.NoError(t, err)
		first := Commit(t, s, empty, 1)
		second := Commit(t, s, empty, 2, first)

		_, err = s.ReadRef(ctx, "refs/heads/feature")
		require.ErrorIs(t, err, objectstore.ErrRefNotFound)

		require.NoError(t, s.UpdateRef(ctx, "refs/heads/feature", first, nil))
		err = s.UpdateRef(ctx, "refs/heads/feature", second, nil)
		require.ErrorIs(t, err, objectstore.ErrRefConflict)
		err = s.UpdateRef(ctx, "refs/heads/feature", second, second)
		require.ErrorIs(t, err, objectstore.ErrRefConflict)
		require.NoError(t, s.UpdateRef(ctx, "refs/heads/feature", second, first))

		got, err := s.ReadRef(ctx, "refs/heads/feature")
		require.NoError(t, err)
		require.Equal(t, second, got)

		require.NoError(t, s.UpdateRef(ctx, "refs/changesets/shadow/feature", first, nil))
		require.NoError(t, s.UpdateRef(ctx, "refs/heads/alpha", first, nil))

		refs, err := s.ListRefs(ctx, "refs/heads/")
		require.NoError(t, err)
		require.Len(t, refs, 2)
		require.Equal(t, "refs/heads/alpha", refs[0].Name)
		require.Equal(t, "refs/heads/feature", refs[1].Name)
		require.Equal(t, second, refs[1].Hash)

		require.NoError(t, s.DeleteRef(ctx, "refs/heads/feature"))
		err = s.DeleteRef(ctx, "refs/heads/feature")
		require.ErrorIs(t, err, objectstore.ErrRefNotFound)

		refs, err = s.ListRefs(ctx, "refs/heads/")
		require.NoError(t, err)
		require.Len(t, refs, 1)
	})

	t.Run("resolve", func(t *testing.T) {
		s := newStore(t)
		empty, err := s.WriteTree(ctx, nil)
		require.NoError(t, err)
		first := Commit(t, s, empty, 1)
		require.NoError(t, s.UpdateRef(ctx, "refs/heads/feature", first, nil))

		for _, rev := range []string{first.String(), "refs/heads/feature", "feature"} {
			got, err := s.Resolve(ctx, rev)
			require.NoError(t, err, rev)
			require.Equal(t, first, got, rev)
		}

		_, err = s.Resolve(ctx, "does-not-exist")
		require.ErrorIs(t, err, objectstore.ErrNotACommit)

		blob := writeBlob(t, s, "hello\n")
		_, err = s.Resolve(ctx, blob.String())
		require.ErrorIs(t, err, objectstore.ErrNotACommit)
	})

	t.Run("list tree", func(t *testing.T) {
		s := newStore(t)
		root := buildTree(t, s, map[string]string{"a.txt": "a\n", "dir/b.txt": "b\n", "dir/deep/c.txt": "c\n"})
		commit := Commit(t, s, root, 1)

		entries, err := objectstore.ListTree(ctx, s, commit, "")
		require.NoError(t, err)
		require.Equal(t, []string{"a.txt", "dir"}, names(entries))

		entries, err = objectstore.ListTree(ctx, s, commit, "dir/deep/")
		require.NoError(t, err)
		require.Equal(t, []string{"c.txt"}, names(entries))

		_, err = objectstore.ListTree(ctx, s, commit, "missing/")
		require.ErrorIs(t, err, objectstore.ErrPathNotFound)

		_, err = objectstore.ListTree(ctx, s, commit, "a.txt/")
		require.ErrorIs(t, err, objectstore.ErrNotADirectory)

		entry, err := objectstore.EntryAt(ctx, s, commit, "dir/b.txt")
		require.NoError(t, err)
		require.Equal(t, protocol.ModeBlob, entry.Mode)
	})

	t.Run("history", func(t *testing.T) {
		s := newStore(t)
		base := Commit(t, s, buildTree(t, s, map[string]string{"a.txt": "1\n"}), 10)
		left := Commit(t, s, buildTree(t, s, map[string]string{"a.txt": "1\n", "b.txt": "left\n"}), 20, base)
		right := Commit(t, s, buildTree(t, s, map[string]string{"a.txt": "2\n"}), 30, base)
		tip := Commit(t, s, buildTree(t, s, map[string]string{"a.txt": "2\n", "c.txt": "tip\n"}), 40, right)

		ids, err := objectstore.RevList(ctx, s, []hash.Hash{tip}, objectstore.LogOptions{})
		require.NoError(t, err)
		require.Equal(t, []hash.Hash{tip, right, base}, ids)

		ids, err = objectstore.RevList(ctx, s, []hash.Hash{tip}, objectstore.LogOptions{MaxCount: 1})
		require.NoError(t, err)
		require.Equal(t, []hash.Hash{tip}, ids)

		ids, err = objectstore.RevList(ctx, s, []hash.Hash{tip}, objectstore.LogOptions{Exclude: []hash.Hash{left}})
		require.NoError(t, err)
		require.Equal(t, []hash.Hash{tip, right}, ids)

		ids, err = objectstore.RevList(ctx, s, []hash.Hash{tip}, objectstore.LogOptions{Path: "a.txt"})
		require.NoError(t, err)
		require.Equal(t, []hash.Hash{right, base}, ids)

		mergeBase, err := objectstore.MergeBase(ctx, s, left, tip)
		require.NoError(t, err)
		require.Equal(t, base, mergeBase)

		other := Commit(t, s, buildTree(t, s, map[string]string{"z.txt": "z\n"}), 50)
		_, err = objectstore.MergeBase(ctx, s, other, tip)
		require.ErrorIs(t, err, objectstore.ErrNoMergeBase)

		when, err := objectstore.LastModified(ctx, s, tip, "b.txt")
		require.NoError(t, err)
		require.EqualValues(t, 0, when.Unix())

		when, err = objectstore.LastModified(ctx, s, tip, "a.txt")
		require.NoError(t, err)
		require.EqualValues(t, Author.Timestamp+30, when.Unix())
	})

	t.Run("diff", func(t *testing.T) {
		s := newStore(t)
		from := Commit(t, s, buildTree(t, s, map[string]string{"keep.txt": "same\n", "mod.txt": "a\nb\nc\n", "gone.txt": "bye\n"}), 1)
		to := Commit(t, s, buildTree(t, s, map[string]string{"keep.txt": "same\n", "mod.txt": "a\nB\nc\n", "dir/new.txt": "hi\n"}), 2, from)

		files, err := objectstore.DiffCommits(ctx, s, from, to, objectstore.DiffOptions{Context: 0})
		require.NoError(t, err)
		require.Len(t, files, 3)

		require.Equal(t, "dir/new.txt", files[0].TargetPath())
		require.True(t, files[0].IsCreate())
		require.Equal(t, "gone.txt", files[1].TargetPath())
		require.True(t, files[1].IsDelete())
		require.Equal(t, "mod.txt", files[2].TargetPath())
		require.Len(t, files[2].Hunks, 1)
		require.Equal(t, "@@ -2 +2 @@", files[2].Hunks[0].Header())

		files, err = objectstore.DiffCommits(ctx, s, from, to, objectstore.DiffOptions{Context: 0, Prefix: "dir/"})
		require.NoError(t, err)
		require.Len(t, files, 1)

		files, err = objectstore.DiffCommits(ctx, s, nil, from, objectstore.DiffOptions{Context: 3})
		require.NoError(t, err)
		require.Len(t, files, 3)
		for _, f := range files {
			require.True(t, f.IsCreate(), f.TargetPath())
		}
	})

	t.Run("notes", func(t *testing.T) {
		s := newStore(t)
		empty, err := s.WriteTree(ctx, nil)
		require.NoError(t, err)
		first := Commit(t, s, empty, 1)
		second := Commit(t, s, empty, 2, first)

		_, ok, err := objectstore.ReadNote(ctx, s, "", first)
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, objectstore.AppendNote(ctx, s, "", first, "reviewed", Committer))
		require.NoError(t, objectstore.AppendNote(ctx, s, "", first, "shipped", Committer))
		require.NoError(t, objectstore.AppendNote(ctx, s, "audit", second, "other namespace", Committer))

		note, ok, err := objectstore.ReadNote(ctx, s, "", first)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "reviewed\n\nshipped", note)

		_, ok, err = objectstore.ReadNote(ctx, s, "", second)
		require.NoError(t, err)
		require.False(t, ok)

		note, ok, err = objectstore.ReadNote(ctx, s, "audit", second)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "other namespace", note)

		require.NoError(t, objectstore.RemoveNote(ctx, s, "", first, Committer))
		require.NoError(t, objectstore.RemoveNote(ctx, s, "", first, Committer))
		_, ok, err = objectstore.ReadNote(ctx, s, "", first)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

// Commit writes a commit of tree whose author and committer times are
// offset seconds after Author's.
func Commit(t *testing.T, s objectstore.Store, tree hash.Hash, offset int64, parents ...hash.Hash) hash.Hash {
	t.Helper()

	author, committer := Author, Committer
	author.Timestamp += offset
	committer.Timestamp += offset

	id, err := s.WriteCommit(context.Background(), objectstore.CommitRequest{
		Tree:      tree,
		Parents:   parents,
		Author:    author,
		Committer: committer,
		Message:   "commit\n",
	})
	require.NoError(t, err)
	return id
}

func writeBlob(t *testing.T, s objectstore.Store, content string) hash.Hash {
	t.Helper()

	id, err := s.WriteBlob(context.Background(), []byte(content))
	require.NoError(t, err)
	return id
}

// buildTree writes files, keyed by slash separated path, and returns the root tree.
func buildTree(t *testing.T, s objectstore.Store, files map[string]string) hash.Hash {
	t.Helper()

	var entries []objectstore.TreeFile
	for p, content := range files {
		entries = append(entries, objectstore.TreeFile{Path: p, Mode: protocol.ModeBlob, Hash: writeBlob(t, s, content)})
	}

	root, err := objectstore.BuildTree(context.Background(), s, entries)
	require.NoError(t, err)
	return root
}

func names(entries []protocol.TreeEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

package changeset_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafana/changeset"
	"github.com/grafana/changeset/mocks"
	"github.com/grafana/changeset/objectstore/kvstore"
	"github.com/grafana/changeset/objectstore/storetest"
	"github.com/grafana/changeset/patch"
)

var reconstructBase = map[string]string{
	"a.txt":        "one\ntwo\nthree\n",
	"dir/b.txt":    "b\n",
	"dir/keep.txt": "keep\n",
}

func TestClient_CommitFromDiffs(t *testing.T) {
	ctx := context.Background()

	for name, target := range map[string]map[string]string{
		"add": {
			"a.txt":        "one\ntwo\nthree\n",
			"dir/b.txt":    "b\n",
			"dir/keep.txt": "keep\n",
			"new/c.txt":    "c\n",
		},
		"modify": {
			"a.txt":        "zero\none\nTWO\nthree\nfour\n",
			"dir/b.txt":    "b\n",
			"dir/keep.txt": "keep\n",
		},
		"delete": {
			"a.txt":        "one\ntwo\nthree\n",
			"dir/keep.txt": "keep\n",
		},
		"all at once": {
			"a.txt":         "one\n2\nthree\n",
			"dir/keep.txt":  "keep\n",
			"dir/sub/d.txt": "d\n",
			"e.txt":         "",
		},
	} {
		t.Run(name, func(t *testing.T) {
			s := kvstore.NewInMemory()
			c := newClient(t, s)

			base := storetest.Commit(t, s, buildTree(t, s, reconstructBase), 0)
			want := storetest.Commit(t, s, buildTree(t, s, target), 1, base)

			diffs, err := c.ReadCommit(ctx, want.String())
			require.NoError(t, err)
			require.NotEmpty(t, diffs)

			parent, err := c.ParentOf(ctx, want.String())
			require.NoError(t, err)
			require.Equal(t, base.String(), parent.String())

			got, err := c.CommitFromDiffs(ctx, parent.String(), diffs, changeset.Message("replay"))
			require.NoError(t, err)
			require.Equal(t, treeOf(t, s, want).String(), treeOf(t, s, got).String())

			replayed, err := c.ParentOf(ctx, got.String())
			require.NoError(t, err)
			require.Equal(t, base.String(), replayed.String())
		})
	}
}

func TestClient_CommitFromDiffs_Empty(t *testing.T) {
	ctx := context.Background()
	s := kvstore.NewInMemory()
	c := newClient(t, s)
	base := storetest.Commit(t, s, buildTree(t, s, reconstructBase), 0)

	got, err := c.CommitFromDiffs(ctx, base.String(), nil)
	require.NoError(t, err)
	require.NotEqual(t, base.String(), got.String())
	require.Equal(t, treeOf(t, s, base).String(), treeOf(t, s, got).String())

	commits, err := c.ListCommits(ctx, got.String())
	require.NoError(t, err)
	require.Equal(t, changeset.PendingMessage, commits[0].Message)
}

func TestClient_CommitFromDiffs_Duplicates(t *testing.T) {
	ctx := context.Background()
	s := kvstore.NewInMemory()
	c := newClient(t, s)

	base := storetest.Commit(t, s, buildTree(t, s, reconstructBase), 0)
	target := map[string]string{
		"a.txt":        "one\nTWO\nthree\n",
		"dir/b.txt":    "b\n",
		"dir/keep.txt": "keep\n",
		"f.txt":        "f\n",
	}
	want := storetest.Commit(t, s, buildTree(t, s, target), 1, base)

	diffs, err := c.ReadCommit(ctx, want.String())
	require.NoError(t, err)

	got, err := c.CommitFromDiffs(ctx, base.String(), append(diffs, diffs...))
	require.NoError(t, err)
	require.Equal(t, treeOf(t, s, want).String(), treeOf(t, s, got).String())
}

func TestClient_CommitFromDiffs_Rejected(t *testing.T) {
	ctx := context.Background()
	s := kvstore.NewInMemory()
	c := newClient(t, s)

	base := storetest.Commit(t, s, buildTree(t, s, reconstructBase), 0)
	diffs := []string{
		"diff --git a/a.txt b/a.txt\n--- a/a.txt\n+++ b/a.txt\n@@ -2 +2 @@\n-nope\n+yes\n",
	}

	_, err := c.CommitFromDiffs(ctx, base.String(), diffs)
	require.ErrorIs(t, err, changeset.ErrPatchRejected)

	var patchErr *changeset.PatchError
	require.ErrorAs(t, err, &patchErr)
	require.Equal(t, "a.txt", patchErr.Path)
}

func TestClient_CommitFromDiffs_InvalidPath(t *testing.T) {
	ctx := context.Background()
	s := kvstore.NewInMemory()
	c := newClient(t, s)

	base := storetest.Commit(t, s, buildTree(t, s, reconstructBase), 0)
	diffs := []string{
		"diff --git a/../x b/../x\nnew file mode 100644\n--- /dev/null\n+++ b/../x\n@@ -0,0 +1 @@\n+x\n",
	}

	_, err := c.CommitFromDiffs(ctx, base.String(), diffs)
	require.ErrorIs(t, err, changeset.ErrInvalidPath)
}

func TestClient_ApplyDiffs(t *testing.T) {
	ctx := context.Background()
	s := kvstore.NewInMemory()
	c := newClient(t, s)

	_, err := c.WriteFile(ctx, "source", "notes.txt", []byte("first\nsecond\n"))
	require.NoError(t, err)
	require.NoError(t, c.Ensure(ctx, "target"))
	_, err = c.WriteFile(ctx, "target", "notes.txt", []byte("first\nsecond\n"))
	require.NoError(t, err)

	_, err = c.WriteFile(ctx, "source", "notes.txt", []byte("first\nsecond\nthird\n"), changeset.Message("add third"))
	require.NoError(t, err)
	diffs, err := c.ReadCommit(ctx, "source")
	require.NoError(t, err)

	id, err := c.ApplyDiffs(ctx, "target", diffs, changeset.Message("apply third"))
	require.NoError(t, err)

	got, err := c.ReadFile(ctx, "target", "notes.txt")
	require.NoError(t, err)
	require.Equal(t, "first\nsecond\nthird\n", string(got))

	commits, err := c.ListCommits(ctx, "target")
	require.NoError(t, err)
	require.Equal(t, id.String(), commits[0].Hash.String())
	require.Equal(t, "apply third", commits[0].Message)
}

func TestClient_ReadCommitRelativeTo(t *testing.T) {
	ctx := context.Background()
	s := kvstore.NewInMemory()
	c := newClient(t, s)

	_, err := c.WriteFile(ctx, "cs", "a.txt", []byte("a\n"))
	require.NoError(t, err)

	diffs, err := c.ReadCommit(ctx, "cs", changeset.RelativeTo("/repo/sub/dir", "/repo"))
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	require.Contains(t, diffs[0], "--- /dev/null\n")
	require.Contains(t, diffs[0], "+++ b/sub/dir/a.txt\n")
}

func TestClient_CommitFromDiffs_Patcher(t *testing.T) {
	ctx := context.Background()
	diffs := []string{
		"diff --git a/a.txt b/a.txt\n--- a/a.txt\n+++ b/a.txt\n@@ -2 +2 @@\n-two\n+TWO\n",
	}

	t.Run("receives the original content", func(t *testing.T) {
		s := kvstore.NewInMemory()
		fake := &mocks.FakePatcher{}
		fake.ApplyReturns([]byte("patched\n"), nil)
		c := newClient(t, s, changeset.WithPatcher(fake))
		base := storetest.Commit(t, s, buildTree(t, s, reconstructBase), 0)

		got, err := c.CommitFromDiffs(ctx, base.String(), diffs)
		require.NoError(t, err)

		require.Equal(t, 1, fake.ApplyCallCount())
		_, f, original := fake.ApplyArgsForCall(0)
		require.Equal(t, "a.txt", f.TargetPath())
		require.Equal(t, "one\ntwo\nthree\n", string(original))

		want := map[string]string{
			"a.txt":        "patched\n",
			"dir/b.txt":    "b\n",
			"dir/keep.txt": "keep\n",
		}
		require.Equal(t, buildTree(t, s, want).String(), treeOf(t, s, got).String())
	})

	t.Run("rejection leaves no commit", func(t *testing.T) {
		s := kvstore.NewInMemory()
		fake := &mocks.FakePatcher{}
		fake.ApplyReturns(nil, patch.NewError("a.txt", "1 out of 1 hunk FAILED", nil))
		c := newClient(t, s, changeset.WithPatcher(fake))
		base := storetest.Commit(t, s, buildTree(t, s, reconstructBase), 0)
		require.NoError(t, s.UpdateRef(ctx, "refs/heads/target", base, nil))

		_, err := c.ApplyDiffs(ctx, "target", diffs)
		require.ErrorIs(t, err, changeset.ErrPatchRejected)
		require.ErrorContains(t, err, "hunk FAILED")

		tip, err := s.ReadRef(ctx, "refs/heads/target")
		require.NoError(t, err)
		require.Equal(t, base.String(), tip.String())
	})
}

// git diff output with its default abbreviated index lines.
const (
	modifyAbbrev = "diff --git a/a.txt b/a.txt\nindex 4cb29ea..ddc897f 100644\n--- a/a.txt\n+++ b/a.txt\n@@ -1,3 +1,3 @@\n one\n-two\n+TWO\n three\n"
	createAbbrev = "diff --git a/new/c.txt b/new/c.txt\nnew file mode 100644\nindex 0000000..3e75765\n--- /dev/null\n+++ b/new/c.txt\n@@ -0,0 +1 @@\n+new\n"
	deleteAbbrev = "diff --git a/dir/b.txt b/dir/b.txt\ndeleted file mode 100644\nindex 6178079..0000000\n--- a/dir/b.txt\n+++ /dev/null\n@@ -1 +0,0 @@\n-b\n"
)

func TestClient_CommitFromDiffs_AbbreviatedIndex(t *testing.T) {
	ctx := context.Background()

	for name, tc := range map[string]struct {
		diffs []string
		want  map[string]string
	}{
		"create": {
			diffs: []string{createAbbrev},
			want: map[string]string{
				"a.txt":        "one\ntwo\nthree\n",
				"dir/b.txt":    "b\n",
				"dir/keep.txt": "keep\n",
				"new/c.txt":    "new\n",
			},
		},
		"modify": {
			diffs: []string{modifyAbbrev},
			want: map[string]string{
				"a.txt":        "one\nTWO\nthree\n",
				"dir/b.txt":    "b\n",
				"dir/keep.txt": "keep\n",
			},
		},
		"modify with an even length prefix": {
			diffs: []string{"diff --git a/a.txt b/a.txt\nindex 4cb29ea3..ddc897f0 100644\n--- a/a.txt\n+++ b/a.txt\n@@ -2 +2 @@\n-two\n+TWO\n"},
			want: map[string]string{
				"a.txt":        "one\nTWO\nthree\n",
				"dir/b.txt":    "b\n",
				"dir/keep.txt": "keep\n",
			},
		},
		"delete": {
			diffs: []string{deleteAbbrev},
			want: map[string]string{
				"a.txt":        "one\ntwo\nthree\n",
				"dir/keep.txt": "keep\n",
			},
		},
	} {
		t.Run(name, func(t *testing.T) {
			s := kvstore.NewInMemory()
			c := newClient(t, s)
			base := storetest.Commit(t, s, buildTree(t, s, reconstructBase), 0)

			got, err := c.CommitFromDiffs(ctx, base.String(), tc.diffs)
			require.NoError(t, err)
			require.Equal(t, buildTree(t, s, tc.want).String(), treeOf(t, s, got).String())
		})
	}

	t.Run("index of another blob", func(t *testing.T) {
		s := kvstore.NewInMemory()
		c := newClient(t, s)
		base := storetest.Commit(t, s, buildTree(t, s, reconstructBase), 0)

		stale := "diff --git a/a.txt b/a.txt\nindex 1234567..ddc897f 100644\n--- a/a.txt\n+++ b/a.txt\n@@ -2 +2 @@\n-two\n+TWO\n"
		_, err := c.CommitFromDiffs(ctx, base.String(), []string{stale})
		require.ErrorIs(t, err, changeset.ErrPatchRejected)
	})
}

func TestClient_CommitFromDiffs_HeaderlessDeletions(t *testing.T) {
	ctx := context.Background()
	s := kvstore.NewInMemory()
	c := newClient(t, s)
	base := storetest.Commit(t, s, buildTree(t, s, map[string]string{
		"x.txt": "x\n",
		"y.txt": "y\n",
		"k":     "k\n",
	}), 0)

	got, err := c.CommitFromDiffs(ctx, base.String(), []string{
		"--- a/x.txt\n+++ /dev/null\n@@ -1 +0,0 @@\n-x\n",
		"--- a/y.txt\n+++ /dev/null\n@@ -1 +0,0 @@\n-y\n",
	})
	require.NoError(t, err)
	require.Equal(t, buildTree(t, s, map[string]string{"k": "k\n"}).String(), treeOf(t, s, got).String())
}

func TestClient_CommitFromDiffs_MatchesDirectEdits(t *testing.T) {
	ctx := context.Background()
	s := kvstore.NewInMemory()
	c := newClient(t, s)
	base := storetest.Commit(t, s, buildTree(t, s, reconstructBase), 0)
	require.NoError(t, s.UpdateRef(ctx, "refs/heads/direct", base, nil))

	_, err := c.WriteFile(ctx, "direct", "a.txt", []byte("one\nTWO\nthree\n"))
	require.NoError(t, err)
	_, err = c.WriteFile(ctx, "direct", "new/c.txt", []byte("new\n"))
	require.NoError(t, err)
	direct, err := c.Unlink(ctx, "direct", "dir/b.txt")
	require.NoError(t, err)

	replayed, err := c.CommitFromDiffs(ctx, base.String(), []string{modifyAbbrev, createAbbrev, deleteAbbrev})
	require.NoError(t, err)
	require.Equal(t, treeOf(t, s, direct).String(), treeOf(t, s, replayed).String())

	parent, err := c.ParentOf(ctx, replayed.String())
	require.NoError(t, err)
	require.Equal(t, base.String(), parent.String())
}

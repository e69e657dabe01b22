package diff_test

import (
	"testing"

	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/diff"
	"github.com/grafana/changeset/protocol/hash"
	"github.com/stretchr/testify/require"
)

// Output of git diff -U0 --full-index for a modify, a create and a no-newline edit.
const commitDiff = `diff --git a/f.txt b/f.txt
index 4cb29ea38f70d7c61b2a3a25b02e3bdf44905402..ea14db2cbfbc66490839aedb0930134deee503ad 100644
--- a/f.txt
+++ b/f.txt
@@ -2 +2 @@ one
-two
+2
@@ -3,0 +4 @@ three
+four
diff --git a/n.txt b/n.txt
new file mode 100644
index 0000000000000000000000000000000000000000..3e757656cf36eca53338e520d134963a44f793f8
--- /dev/null
+++ b/n.txt
@@ -0,0 +1 @@
+new
diff --git a/nonl.txt b/nonl.txt
index c1b0730e0133447badcfd47fd144e254807b06e1..b77b4eb1d946f923f61785536da9ca5af6909f06 100644
--- a/nonl.txt
+++ b/nonl.txt
@@ -1 +1,2 @@
-x
\ No newline at end of file
+x
+y
`

const deleteDiff = `diff --git a/hello.txt b/hello.txt
deleted file mode 100644
index ce013625030ba8dba906f756967f9e9ca394464a..0000000000000000000000000000000000000000
--- a/hello.txt
+++ /dev/null
@@ -1 +0,0 @@
-hello
`

func TestParse(t *testing.T) {
	files, err := diff.Parse(commitDiff)
	require.NoError(t, err)
	require.Len(t, files, 3)

	modify := files[0]
	require.Equal(t, "f.txt", modify.OldPath)
	require.Equal(t, "f.txt", modify.NewPath)
	require.Equal(t, protocol.ModeBlob, modify.OldMode)
	require.Equal(t, "4cb29ea38f70d7c61b2a3a25b02e3bdf44905402", modify.OldID)
	require.Len(t, modify.Hunks, 2)
	require.Equal(t, diff.Hunk{
		OldStart: 3, OldLines: 0, NewStart: 4, NewLines: 1,
		Section: "three",
		Lines:   []diff.Line{{Op: diff.OpInsert, Text: "four\n"}},
	}, modify.Hunks[1])
	require.False(t, modify.IsCreate())
	require.False(t, modify.IsDelete())

	create := files[1]
	require.True(t, create.IsCreate())
	require.Equal(t, "", create.OldPath)
	require.Equal(t, "n.txt", create.TargetPath())

	nonl := files[2]
	require.Equal(t, []diff.Line{
		{Op: diff.OpDelete, Text: "x"},
		{Op: diff.OpInsert, Text: "x\n"},
		{Op: diff.OpInsert, Text: "y\n"},
	}, nonl.Hunks[0].Lines)
}

func TestParse_Delete(t *testing.T) {
	files, err := diff.Parse(deleteDiff)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.True(t, files[0].IsDelete())
	require.Equal(t, "hello.txt", files[0].TargetPath())
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{
			name: "truncated hunk",
			text: "--- a/x\n+++ b/x\n@@ -1,2 +1,2 @@\n-a\n",
		},
		{
			name: "bad hunk header",
			text: "--- a/x\n+++ b/x\n@@ -x +1 @@\n",
		},
		{
			name: "hunk line with unknown op",
			text: "--- a/x\n+++ b/x\n@@ -1 +1 @@\n*a\n+b\n",
		},
		{
			name: "bad index",
			text: "diff --git a/x b/x\nindex zz..yy\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := diff.Parse(tt.text)
			require.ErrorIs(t, err, diff.ErrMalformedDiff)
		})
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	files, err := diff.Parse(commitDiff)
	require.NoError(t, err)

	var rendered string
	for _, f := range files {
		rendered += f.String()
	}
	require.Equal(t, commitDiff, rendered)

	files, err = diff.Parse(deleteDiff)
	require.NoError(t, err)
	require.Equal(t, deleteDiff, files[0].String())
}

func TestApply(t *testing.T) {
	files, err := diff.Parse(commitDiff)
	require.NoError(t, err)

	t.Run("modify", func(t *testing.T) {
		got, err := files[0].Apply([]byte("one\ntwo\nthree\n"))
		require.NoError(t, err)
		require.Equal(t, "one\n2\nthree\nfour\n", string(got))
	})

	t.Run("create", func(t *testing.T) {
		got, err := files[1].Apply(nil)
		require.NoError(t, err)
		require.Equal(t, "new\n", string(got))
	})

	t.Run("no newline at end of file", func(t *testing.T) {
		got, err := files[2].Apply([]byte("x"))
		require.NoError(t, err)
		require.Equal(t, "x\ny\n", string(got))
	})

	t.Run("mismatched content is rejected", func(t *testing.T) {
		_, err := files[0].Apply([]byte("one\nTWO\nthree\n"))
		require.ErrorIs(t, err, diff.ErrRejected)
	})

	t.Run("out of range is rejected", func(t *testing.T) {
		_, err := files[0].Apply([]byte("one\n"))
		require.ErrorIs(t, err, diff.ErrRejected)
	})
}

func TestUnified(t *testing.T) {
	from := diff.Side{Path: "f.txt", ID: hash.MustFromHex("4cb29ea38f70d7c61b2a3a25b02e3bdf44905402"), Mode: protocol.ModeBlob, Content: []byte("one\ntwo\nthree\n")}
	to := diff.Side{Path: "f.txt", ID: hash.MustFromHex("ea14db2cbfbc66490839aedb0930134deee503ad"), Mode: protocol.ModeBlob, Content: []byte("one\n2\nthree\nfour\n")}

	t.Run("zero context matches git", func(t *testing.T) {
		f := diff.Unified(from, to, 0)
		require.Len(t, f.Hunks, 2)
		require.Equal(t, "@@ -2 +2 @@", f.Hunks[0].Header())
		require.Equal(t, "@@ -3,0 +4 @@", f.Hunks[1].Header())

		got, err := f.Apply(from.Content)
		require.NoError(t, err)
		require.Equal(t, to.Content, got)
	})

	t.Run("with context applies", func(t *testing.T) {
		f := diff.Unified(from, to, 3)
		require.Len(t, f.Hunks, 1)
		got, err := f.Apply(from.Content)
		require.NoError(t, err)
		require.Equal(t, to.Content, got)
	})

	t.Run("creation and deletion", func(t *testing.T) {
		created := diff.Unified(diff.Side{}, to, 0)
		require.True(t, created.IsCreate())
		require.Contains(t, created.String(), "--- /dev/null\n")
		require.Contains(t, created.String(), "index "+hash.SentinelHex+"..")

		deleted := diff.Unified(from, diff.Side{}, 0)
		require.True(t, deleted.IsDelete())
		require.Contains(t, deleted.String(), "+++ /dev/null\n")
	})

	t.Run("identical sides", func(t *testing.T) {
		require.Nil(t, diff.Unified(from, from, 0))
	})

	t.Run("binary", func(t *testing.T) {
		bin := to
		bin.Content = []byte{0, 1, 2}
		f := diff.Unified(from, bin, 0)
		require.True(t, f.Binary)
		_, err := f.Apply(from.Content)
		require.ErrorIs(t, err, diff.ErrRejected)
	})
}

func TestGroupFiles(t *testing.T) {
	files, err := diff.Parse(commitDiff + commitDiff + deleteDiff)
	require.NoError(t, err)
	require.Len(t, files, 7)

	groups := diff.GroupFiles(files)
	require.Len(t, groups, 4)
	for _, g := range groups {
		require.Len(t, g.Fragments, 1, "repeated fragment of %s kept", g.TargetPath())
	}
	require.True(t, groups[1].IsCreate())
	require.True(t, groups[3].IsDelete())
	require.Equal(t, "hello.txt", groups[3].TargetPath())
}

func TestParse_AbbreviatedIndex(t *testing.T) {
	files, err := diff.Parse("diff --git a/c.txt b/c.txt\nindex 0000000..3e75765\n--- /dev/null\n+++ b/c.txt\n@@ -0,0 +1 @@\n+new\n" +
		"diff --git a/a.txt b/a.txt\nindex 4CB29EA..ddc897f 100644\n--- a/a.txt\n+++ b/a.txt\n@@ -2 +2 @@\n-two\n+TWO\n")
	require.NoError(t, err)
	require.Len(t, files, 2)

	require.True(t, files[0].IsCreate())
	require.Equal(t, "3e75765", files[0].NewID)
	require.False(t, files[1].IsCreate())
	require.Equal(t, "4cb29ea", files[1].OldID)
	require.Equal(t, protocol.ModeBlob, files[1].OldMode)
	require.False(t, diff.IsFullID(files[1].OldID))

	require.True(t, diff.IsZeroID("0000000"))
	require.True(t, diff.IsZeroID(hash.SentinelHex))
	require.False(t, diff.IsZeroID(""))
	require.True(t, diff.IsFullID(hash.SentinelHex))
}

func TestGroupFiles_Deletions(t *testing.T) {
	files, err := diff.Parse("--- a/x.txt\n+++ /dev/null\n@@ -1 +0,0 @@\n-x\n--- a/y.txt\n+++ /dev/null\n@@ -1 +0,0 @@\n-y\n")
	require.NoError(t, err)

	groups := diff.GroupFiles(files)
	require.Len(t, groups, 2)
	require.Equal(t, "x.txt", groups[0].TargetPath())
	require.Equal(t, "y.txt", groups[1].TargetPath())
	for _, g := range groups {
		require.True(t, g.IsDelete())
		require.Equal(t, g.TargetPath(), g.Key.Path)
	}
}

func TestGroup_Merged(t *testing.T) {
	first := "--- a/f.txt\n+++ b/f.txt\n@@ -2 +2 @@\n-two\n+2\n"
	second := "--- a/f.txt\n+++ b/f.txt\n@@ -3,0 +4 @@\n+four\n"
	files, err := diff.Parse(first + second + first)
	require.NoError(t, err)

	groups := diff.GroupFiles(files)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Fragments, 2)

	merged := groups[0].Merged()
	require.Len(t, merged.Hunks, 2)
	got, err := merged.Apply([]byte("one\ntwo\nthree\n"))
	require.NoError(t, err)
	require.Equal(t, "one\n2\nthree\nfour\n", string(got))
}

func TestPatchID(t *testing.T) {
	a, err := diff.Parse("--- a/f.txt\n+++ b/f.txt\n@@ -2 +2 @@\n-two\n+2\n")
	require.NoError(t, err)
	b, err := diff.Parse("--- a/f.txt\n+++ b/f.txt\n@@ -7 +7 @@ ctx\n-two \n+2\n")
	require.NoError(t, err)
	c, err := diff.Parse("--- a/f.txt\n+++ b/f.txt\n@@ -2 +2 @@\n-two\n+3\n")
	require.NoError(t, err)

	require.Equal(t, diff.PatchID(a), diff.PatchID(b))
	require.NotEqual(t, diff.PatchID(a), diff.PatchID(c))
}

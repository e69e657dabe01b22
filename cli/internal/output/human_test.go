package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/changeset"
	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/hash"
)

func newHuman(t *testing.T) (*HumanFormatter, *bytes.Buffer) {
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	var buf bytes.Buffer
	return NewHumanFormatter(&buf), &buf
}

func TestHumanFormatter_FormatEntries(t *testing.T) {
	formatter, buf := newHuman(t)

	err := formatter.FormatEntries([]changeset.DirEntry{
		{Name: "README.md", Path: "README.md", Mode: protocol.ModeBlob, Hash: hash.MustFromHex("0123456789abcdef0123456789abcdef01234567")},
		{Name: "src", Path: "src", Mode: protocol.ModeTree, Hash: hash.MustFromHex("1111111111111111111111111111111111111111")},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"100644 file      01234567  README.md\n"+
			"040000 directory 11111111  src/\n",
		buf.String())
}

func TestHumanFormatter_FormatContent(t *testing.T) {
	formatter, buf := newHuman(t)

	require.NoError(t, formatter.FormatContent("test.txt", []byte("Hello, World!")))
	assert.Equal(t, "Hello, World!", buf.String())
}

func TestHumanFormatter_FormatStat(t *testing.T) {
	formatter, buf := newHuman(t)

	err := formatter.FormatStat(&changeset.FileInfo{
		Name:    "a.txt",
		Path:    "dir/a.txt",
		Type:    changeset.TypeFile,
		Mode:    protocol.ModeExecutable,
		Hash:    hash.MustFromHex("0123456789abcdef0123456789abcdef01234567"),
		Size:    12,
		ModTime: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "dir/a.txt\n")
	assert.Contains(t, out, "Mode:     100755\n")
	assert.Contains(t, out, "Size:     12\n")
	assert.Contains(t, out, "Modified: 2024-01-02 03:04:05 UTC\n")
}

func TestHumanFormatter_FormatEdit(t *testing.T) {
	formatter, buf := newHuman(t)

	err := formatter.FormatEdit(EditResult{Action: "wrote", Path: "a.txt", Commit: hash.MustFromHex("0123456789abcdef0123456789abcdef01234567")})
	require.NoError(t, err)
	assert.Equal(t, "✓ wrote a.txt (01234567)\n", buf.String())
}

func TestHumanFormatter_FormatChangesets(t *testing.T) {
	formatter, buf := newHuman(t)

	err := formatter.FormatChangesets([]ChangesetStatus{
		{Name: "main", State: changeset.Clean},
		{Name: "feature", State: changeset.Dirty, Pending: hash.MustFromHex("1111111111111111111111111111111111111111")},
	})
	require.NoError(t, err)
	assert.Equal(t, "main\tclean\nfeature\tdirty 11111111\n", buf.String())
}

func TestHumanFormatter_FormatCommitDiff(t *testing.T) {
	t.Run("both sides", func(t *testing.T) {
		formatter, buf := newHuman(t)

		err := formatter.FormatCommitDiff("left", "right", &changeset.CommitDiff{
			Added:   []changeset.CommitInfo{{Hash: hash.MustFromHex("0123456789abcdef0123456789abcdef01234567"), Message: "add x", Note: "reviewed"}},
			Missing: []changeset.CommitInfo{{Hash: hash.MustFromHex("1111111111111111111111111111111111111111"), Message: "add y"}},
		})
		require.NoError(t, err)
		assert.Equal(t, "+ 01234567 add x [reviewed]\n- 11111111 add y\n", buf.String())
	})

	t.Run("same changes", func(t *testing.T) {
		formatter, buf := newHuman(t)

		require.NoError(t, formatter.FormatCommitDiff("left", "right", &changeset.CommitDiff{}))
		assert.Equal(t, "left and right contain the same changes\n", buf.String())
	})
}

func TestHumanFormatter_FormatPatch(t *testing.T) {
	formatter, buf := newHuman(t)

	patch := "diff --git a/a.txt b/a.txt\n--- a/a.txt\n+++ b/a.txt\n@@ -1 +1 @@\n-old\n+new\n"
	require.NoError(t, formatter.FormatPatch("HEAD", []string{patch}))
	assert.Equal(t, patch, buf.String())
}

func TestHumanFormatter_FormatFileDiff(t *testing.T) {
	t.Run("changed", func(t *testing.T) {
		formatter, buf := newHuman(t)

		require.NoError(t, formatter.FormatFileDiff("a.txt", LineDiff("a\nb\n", "a\nc\n")))
		assert.Equal(t, "--- a/a.txt\n+++ b/a.txt\n a\n-b\n+c\n", buf.String())
	})

	t.Run("unchanged", func(t *testing.T) {
		formatter, buf := newHuman(t)

		require.NoError(t, formatter.FormatFileDiff("a.txt", LineDiff("a\n", "a\n")))
		assert.Equal(t, "a.txt is unchanged\n", buf.String())
	})
}

func TestHumanFormatter_FormatNote(t *testing.T) {
	formatter, buf := newHuman(t)

	require.NoError(t, formatter.FormatNote("HEAD", "refs/notes/commits", "", false))
	require.NoError(t, formatter.FormatNote("HEAD", "refs/notes/commits", "ship it", true))
	assert.Equal(t, "HEAD has no note in refs/notes/commits\nship it\n", buf.String())
}

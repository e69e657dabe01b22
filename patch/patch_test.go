package patch_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/changeset/patch"
	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/diff"
	"github.com/grafana/changeset/protocol/hash"
)

const (
	oldID = "ce013625030ba8dba906f756967f9e9ca394464a"
	newID = "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"
)

func fileDiff(t *testing.T, from, to string) *diff.FileDiff {
	t.Helper()
	f := diff.Unified(
		diff.Side{Path: "doc.txt", ID: hash.MustFromHex(oldID), Mode: protocol.ModeBlob, Content: []byte(from)},
		diff.Side{Path: "doc.txt", ID: hash.MustFromHex(newID), Mode: protocol.ModeBlob, Content: []byte(to)},
		3,
	)
	require.NotNil(t, f)
	return f
}

func patchers(t *testing.T) map[string]patch.Patcher {
	t.Helper()
	ps := map[string]patch.Patcher{"in process": patch.InProcess{}}
	if _, err := exec.LookPath("patch"); err == nil {
		ps["exec"] = patch.Exec{Dir: t.TempDir()}
	}
	return ps
}

func TestPatcher_Apply(t *testing.T) {
	for name, p := range patchers(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("modifies", func(t *testing.T) {
				f := fileDiff(t, "one\ntwo\nthree\n", "one\n2\nthree\nfour\n")
				out, err := p.Apply(t.Context(), f, []byte("one\ntwo\nthree\n"))
				require.NoError(t, err)
				assert.Equal(t, "one\n2\nthree\nfour\n", string(out))
			})

			t.Run("creates", func(t *testing.T) {
				f := diff.Unified(diff.Side{}, diff.Side{Path: "new.txt", Mode: protocol.ModeBlob, Content: []byte("hello\n")}, 3)
				out, err := p.Apply(t.Context(), f, nil)
				require.NoError(t, err)
				assert.Equal(t, "hello\n", string(out))
			})

			t.Run("deletes", func(t *testing.T) {
				f := diff.Unified(diff.Side{Path: "old.txt", Mode: protocol.ModeBlob, Content: []byte("bye\n")}, diff.Side{}, 3)
				out, err := p.Apply(t.Context(), f, []byte("bye\n"))
				require.NoError(t, err)
				assert.Empty(t, out)
			})

			t.Run("rejects", func(t *testing.T) {
				f := fileDiff(t, "one\ntwo\nthree\n", "one\n2\nthree\n")
				_, err := p.Apply(t.Context(), f, []byte("uno\ndos\ntres\n"))
				require.ErrorIs(t, err, patch.ErrRejected)

				var perr *patch.Error
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, "doc.txt", perr.Path)
			})

			t.Run("rejects binary", func(t *testing.T) {
				f := &diff.FileDiff{OldPath: "img.png", NewPath: "img.png", Binary: true}
				_, err := p.Apply(t.Context(), f, []byte{0, 1, 2})
				require.ErrorIs(t, err, patch.ErrRejected)
			})
		})
	}
}

func TestExec_RemovesScratchFiles(t *testing.T) {
	if _, err := exec.LookPath("patch"); err != nil {
		t.Skip("patch is not installed")
	}

	dir := t.TempDir()
	p := patch.Exec{Dir: dir}

	ok := fileDiff(t, "a\n", "b\n")
	_, err := p.Apply(t.Context(), ok, []byte("a\n"))
	require.NoError(t, err)

	_, err = p.Apply(t.Context(), ok, []byte("c\n"))
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(filepath.Base(e.Name()), ".merge_file_"), "left %s behind", e.Name())
	}
}

func TestError(t *testing.T) {
	err := patch.NewError("a.txt", "1 out of 1 hunk FAILED", nil)
	assert.Equal(t, "patch a.txt: hunk does not apply: 1 out of 1 hunk FAILED", err.Error())
	assert.ErrorIs(t, err, patch.ErrRejected)
}

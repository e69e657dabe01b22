package changeset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	for input, want := range map[string]string{
		"file.txt":               "file.txt",
		"dir/subdir/file.txt":    "dir/subdir/file.txt",
		"///dir/file.txt//":      "dir/file.txt",
		"dir//subdir///file.txt": "dir/subdir/file.txt",
		"  /dir/file.txt/  ":     "dir/file.txt",
		"./dir/./file.txt":       "dir/file.txt",
		"dir/file..txt":          "dir/file..txt",
		"///":                    "",
		".":                      "",
		"":                       "",
	} {
		got, err := normalizePath(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, got, "input %q", input)
	}

	for _, input := range []string{"../outside.txt", "dir/../outside.txt", "dir/..", "dir/fi\x00le"} {
		_, err := normalizePath(input)
		require.ErrorIs(t, err, ErrInvalidPath, "input %q", input)

		var pathErr *InvalidPathError
		require.ErrorAs(t, err, &pathErr, "input %q", input)
	}
}

func TestValidateFilePath(t *testing.T) {
	got, err := validateFilePath("/dir//file.txt")
	require.NoError(t, err)
	assert.Equal(t, "dir/file.txt", got)

	for _, input := range []string{"", "///", "  ", "../x"} {
		_, err := validateFilePath(input)
		assert.ErrorIs(t, err, ErrInvalidPath, "input %q", input)
	}
}

func TestValidateDirPath(t *testing.T) {
	for input, want := range map[string]string{
		"":           "",
		"/":          "",
		"dir":        "dir/",
		"dir/sub///": "dir/sub/",
	} {
		got, err := validateDirPath(input)
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %q", input)
	}
}

func TestAncestors(t *testing.T) {
	assert.Equal(t, []string{""}, ancestors("file.txt"))
	assert.Equal(t, []string{"", "a/", "a/b/"}, ancestors("a/b/c.txt"))
}

package output

import (
	"io"

	"github.com/grafana/changeset"
	"github.com/grafana/changeset/protocol/hash"
)

// ChangesetStatus is one row of the changesets listing.
type ChangesetStatus struct {
	Name  string
	State changeset.State
	// Pending is the shadow commit of a dirty changeset.
	Pending hash.Hash
}

// EditResult reports the commit an edit produced.
type EditResult struct {
	Action string
	Path   string
	Commit hash.Hash
}

// Formatter defines the interface for different output formats
type Formatter interface {
	// FormatEntries outputs the entries of a directory
	FormatEntries(entries []changeset.DirEntry) error

	// FormatContent outputs file content
	FormatContent(path string, content []byte) error

	// FormatStat outputs the metadata of one entry
	FormatStat(info *changeset.FileInfo) error

	// FormatEdit outputs the result of a mutating command
	FormatEdit(result EditResult) error

	// FormatChangesets outputs changesets with their state
	FormatChangesets(changesets []ChangesetStatus) error

	// FormatCommits outputs a commit log
	FormatCommits(commits []changeset.CommitInfo) error

	// FormatCommitDiff outputs the commits only one side of a comparison has
	FormatCommitDiff(left, right string, diff *changeset.CommitDiff) error

	// FormatPatch outputs the unified diffs of a commit
	FormatPatch(rev string, diffs []string) error

	// FormatFileDiff outputs a line diff of one file between two revisions
	FormatFileDiff(path string, lines []Line) error

	// FormatNote outputs the annotation of a commit
	FormatNote(rev, namespace, note string, found bool) error
}

// Get returns the appropriate formatter based on format type
func Get(format string, w io.Writer) Formatter {
	switch format {
	case "json":
		return NewJSONFormatter(w)
	default:
		return NewHumanFormatter(w)
	}
}

func short(id hash.Hash) string {
	if id.IsZero() {
		return ""
	}
	return id.Short()
}

func hexOrEmpty(id hash.Hash) string {
	if id.IsZero() {
		return ""
	}
	return id.String()
}

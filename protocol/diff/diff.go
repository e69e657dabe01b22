// Package diff implements the subset of the unified diff format produced by
// git diff: file headers, index lines, hunks and the no-newline marker.
//
// Texts are parsed once into FileDiff values which can be grouped, applied
// in-process or rendered back into patch text for an external patch engine.
package diff

import (
	"errors"
	"fmt"
	"strings"

	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/hash"
)

var (
	// ErrMalformedDiff is returned when a text does not follow the unified diff grammar.
	ErrMalformedDiff = errors.New("malformed diff")

	// ErrRejected is returned when a hunk does not apply to the original content.
	ErrRejected = errors.New("hunk does not apply")
)

const (
	devNull         = "/dev/null"
	noNewlineMarker = `\ No newline at end of file`
)

// Op is the first byte of a hunk body line.
type Op byte

const (
	OpContext Op = ' '
	OpDelete  Op = '-'
	OpInsert  Op = '+'
)

// Line is one body line of a hunk. Text keeps its trailing newline unless the
// line was followed by the no-newline marker.
type Line struct {
	Op   Op
	Text string
}

// Hunk is a contiguous change. Start lines are 1-based; a zero-length range
// starts at the line before the change, as in git diff -U0.
type Hunk struct {
	OldStart, OldLines int
	NewStart, NewLines int
	Section            string
	Lines              []Line
}

// Header renders the "@@ ... @@" line without a trailing newline.
func (h Hunk) Header() string {
	s := fmt.Sprintf("@@ -%s +%s @@", formatRange(h.OldStart, h.OldLines), formatRange(h.NewStart, h.NewLines))
	if h.Section != "" {
		s += " " + h.Section
	}
	return s
}

func (h Hunk) String() string {
	var b strings.Builder
	b.WriteString(h.Header())
	b.WriteByte('\n')
	for _, l := range h.Lines {
		b.WriteByte(byte(l.Op))
		b.WriteString(l.Text)
		if !strings.HasSuffix(l.Text, "\n") {
			b.WriteString("\n" + noNewlineMarker + "\n")
		}
	}
	return b.String()
}

func formatRange(start, count int) string {
	if count == 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}

// FileDiff is the parsed change to a single file.
type FileDiff struct {
	// OldPath and NewPath are repository relative with the a/ and b/ prefixes
	// removed. An empty path stands for /dev/null.
	OldPath, NewPath string
	// OldID and NewID are the hex ids of the index line, full or abbreviated
	// as git diff prints them by default. Empty without an index line.
	OldID, NewID     string
	OldMode, NewMode protocol.Mode
	Binary           bool
	Hunks            []Hunk
}

// IsCreate reports whether the diff adds a file that did not exist.
func (f *FileDiff) IsCreate() bool {
	return f.OldPath == "" || IsZeroID(f.OldID)
}

// IsDelete reports whether the diff removes the file.
func (f *FileDiff) IsDelete() bool {
	return f.NewPath == "" || IsZeroID(f.NewID)
}

// TargetPath is the path the diff writes to, or removes when it is a deletion.
func (f *FileDiff) TargetPath() string {
	if f.NewPath != "" {
		return f.NewPath
	}
	return f.OldPath
}

// String renders the diff in git's format with a/ and b/ prefixes.
func (f *FileDiff) String() string {
	return f.Format("a/", "b/")
}

// Format renders the diff with the given source and destination prefixes.
func (f *FileDiff) Format(srcPrefix, dstPrefix string) string {
	var b strings.Builder

	oldName, newName := f.OldPath, f.NewPath
	if oldName == "" {
		oldName = newName
	}
	if newName == "" {
		newName = oldName
	}
	fmt.Fprintf(&b, "diff --git %s%s %s%s\n", srcPrefix, oldName, dstPrefix, newName)

	switch {
	case f.IsCreate() && f.NewMode != 0:
		fmt.Fprintf(&b, "new file mode %s\n", f.NewMode)
	case f.IsDelete() && f.OldMode != 0:
		fmt.Fprintf(&b, "deleted file mode %s\n", f.OldMode)
	case f.OldMode != 0 && f.NewMode != 0 && f.OldMode != f.NewMode:
		fmt.Fprintf(&b, "old mode %s\nnew mode %s\n", f.OldMode, f.NewMode)
	}

	if f.OldID != "" || f.NewID != "" {
		fmt.Fprintf(&b, "index %s..%s", idOrSentinel(f.OldID), idOrSentinel(f.NewID))
		if !f.IsCreate() && !f.IsDelete() && f.OldMode != 0 && f.OldMode == f.NewMode {
			fmt.Fprintf(&b, " %s", f.OldMode)
		}
		b.WriteByte('\n')
	}

	if f.Binary {
		fmt.Fprintf(&b, "Binary files %s and %s differ\n", side(srcPrefix, f.OldPath), side(dstPrefix, f.NewPath))
		return b.String()
	}
	if len(f.Hunks) == 0 {
		return b.String()
	}

	fmt.Fprintf(&b, "--- %s\n", side(srcPrefix, f.OldPath))
	fmt.Fprintf(&b, "+++ %s\n", side(dstPrefix, f.NewPath))
	for _, h := range f.Hunks {
		b.WriteString(h.String())
	}
	return b.String()
}

func side(prefix, p string) string {
	if p == "" {
		return devNull
	}
	return prefix + p
}

func idOrSentinel(id string) string {
	if id == "" {
		return hash.SentinelHex
	}
	return id
}

// IsZeroID reports whether id is the all-zero id of a missing side, in full
// or abbreviated form.
func IsZeroID(id string) bool {
	return id != "" && strings.Trim(id, "0") == ""
}

// IsFullID reports whether id is a complete hex object id.
func IsFullID(id string) bool {
	return len(id) == len(hash.SentinelHex) && isHex(id)
}

func isHex(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return s != ""
}

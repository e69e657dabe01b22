package diff

import (
	"bytes"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/hash"
)

// binarySniffLen matches the prefix git inspects for NUL bytes.
const binarySniffLen = 8000

// Side is one version of a file in a generated diff. An empty Path marks the
// side as absent, which makes the diff a creation or a deletion.
type Side struct {
	Path    string
	ID      hash.Hash
	Mode    protocol.Mode
	Content []byte
}

// Unified computes the diff from one version of a file to another, keeping
// context lines of unchanged text around each change. It returns nil when
// both sides are identical.
func Unified(from, to Side, context int) *FileDiff {
	if from.Path == to.Path && from.Mode == to.Mode && bytes.Equal(from.Content, to.Content) {
		return nil
	}

	f := &FileDiff{
		OldPath: from.Path,
		NewPath: to.Path,
		OldID:   from.ID.String(),
		NewID:   to.ID.String(),
		OldMode: from.Mode,
		NewMode: to.Mode,
	}
	if from.Path == "" {
		f.OldID, f.OldMode = hash.SentinelHex, 0
	}
	if to.Path == "" {
		f.NewID, f.NewMode = hash.SentinelHex, 0
	}

	if isBinary(from.Content) || isBinary(to.Content) {
		f.Binary = true
		return f
	}

	a := SplitLines(string(from.Content))
	b := SplitLines(string(to.Content))
	matcher := difflib.NewMatcher(a, b)
	for _, group := range matcher.GetGroupedOpCodes(context) {
		f.Hunks = append(f.Hunks, hunkFromGroup(group, a, b))
	}

	return f
}

func hunkFromGroup(group []difflib.OpCode, a, b []string) Hunk {
	first, last := group[0], group[len(group)-1]
	h := Hunk{
		OldStart: first.I1 + 1,
		OldLines: last.I2 - first.I1,
		NewStart: first.J1 + 1,
		NewLines: last.J2 - first.J1,
	}
	if h.OldLines == 0 {
		h.OldStart = first.I1
	}
	if h.NewLines == 0 {
		h.NewStart = first.J1
	}

	for _, c := range group {
		switch c.Tag {
		case 'e':
			for _, line := range a[c.I1:c.I2] {
				h.Lines = append(h.Lines, Line{Op: OpContext, Text: line})
			}
		case 'r', 'd', 'i':
			for _, line := range a[c.I1:c.I2] {
				h.Lines = append(h.Lines, Line{Op: OpDelete, Text: line})
			}
			for _, line := range b[c.J1:c.J2] {
				h.Lines = append(h.Lines, Line{Op: OpInsert, Text: line})
			}
		}
	}
	return h
}

func isBinary(content []byte) bool {
	if len(content) > binarySniffLen {
		content = content[:binarySniffLen]
	}
	return bytes.IndexByte(content, 0) >= 0
}

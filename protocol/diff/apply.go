package diff

import (
	"fmt"
	"sort"
	"strings"
)

// SplitLines splits content into lines that keep their trailing newline.
// The last line has no newline when content does not end with one.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Apply patches original with the hunks of f and returns the new content.
// Every context and deleted line must match exactly; no fuzz is applied.
func (f *FileDiff) Apply(original []byte) ([]byte, error) {
	if f.Binary {
		return nil, fmt.Errorf("%w: %s is a binary diff", ErrRejected, f.TargetPath())
	}
	if f.IsDelete() {
		return nil, nil
	}

	src := SplitLines(string(original))
	hunks := make([]Hunk, len(f.Hunks))
	copy(hunks, f.Hunks)
	sort.SliceStable(hunks, func(i, j int) bool {
		return hunks[i].OldStart < hunks[j].OldStart
	})

	var out []string
	pos := 0
	for _, h := range hunks {
		start := h.OldStart - 1
		if h.OldLines == 0 {
			// pure insertion after line OldStart
			start = h.OldStart
		}
		if start < pos || start > len(src) {
			return nil, fmt.Errorf("%w: %s %s is out of range", ErrRejected, f.TargetPath(), h.Header())
		}

		out = append(out, src[pos:start]...)
		pos = start
		for _, l := range h.Lines {
			switch l.Op {
			case OpContext, OpDelete:
				if pos >= len(src) || src[pos] != l.Text {
					return nil, fmt.Errorf("%w: %s %s does not match line %d", ErrRejected, f.TargetPath(), h.Header(), pos+1)
				}
				if l.Op == OpContext {
					out = append(out, src[pos])
				}
				pos++
			case OpInsert:
				out = append(out, l.Text)
			}
		}
	}
	out = append(out, src[pos:]...)

	return []byte(strings.Join(out, "")), nil
}

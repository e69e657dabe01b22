package output

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineOp marks a line of a file diff.
type LineOp int

const (
	LineEqual LineOp = iota
	LineInsert
	LineDelete
)

// Line is one line of a file diff, without its trailing newline.
type Line struct {
	Op   LineOp
	Text string
}

// LineDiff compares before and after line by line.
func LineDiff(before, after string) []Line {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var result []Line
	for _, d := range diffs {
		op := LineEqual
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = LineInsert
		case diffmatchpatch.DiffDelete:
			op = LineDelete
		}
		for _, text := range strings.SplitAfter(d.Text, "\n") {
			if text == "" {
				continue
			}
			result = append(result, Line{Op: op, Text: strings.TrimSuffix(text, "\n")})
		}
	}
	return result
}

// Changed reports whether lines contain an insertion or deletion.
func Changed(lines []Line) bool {
	for _, l := range lines {
		if l.Op != LineEqual {
			return true
		}
	}
	return false
}

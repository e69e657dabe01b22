package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/grafana/changeset"
)

// HumanFormatter outputs in human-readable format with colors
type HumanFormatter struct {
	w       io.Writer
	success *color.Color
	info    *color.Color
	dim     *color.Color
	added   *color.Color
	removed *color.Color
	warn    *color.Color
}

// NewHumanFormatter creates a new human-readable formatter writing to w
func NewHumanFormatter(w io.Writer) *HumanFormatter {
	return &HumanFormatter{
		w:       w,
		success: color.New(color.FgGreen),
		info:    color.New(color.FgCyan),
		dim:     color.New(color.Faint),
		added:   color.New(color.FgGreen),
		removed: color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
	}
}

// FormatEntries outputs directory entries in human-readable format
func (f *HumanFormatter) FormatEntries(entries []changeset.DirEntry) error {
	for _, entry := range entries {
		// Format: [mode] [type] [hash]  [name]
		name := entry.Name
		if entry.Type() == changeset.TypeDirectory {
			name += "/"
		}
		_, err := fmt.Fprintf(f.w, "%s %s %s  %s\n",
			f.dim.Sprint(entry.Mode.String()),
			f.info.Sprintf("%-9s", entry.Type()),
			f.dim.Sprint(short(entry.Hash)),
			name)
		if err != nil {
			return err
		}
	}
	return nil
}

// FormatContent outputs file content raw
func (f *HumanFormatter) FormatContent(path string, content []byte) error {
	_, err := f.w.Write(content)
	return err
}

// FormatStat outputs entry metadata in human-readable format
func (f *HumanFormatter) FormatStat(info *changeset.FileInfo) error {
	_, err := fmt.Fprintf(f.w, "%s\n  Type:     %s\n  Mode:     %s\n  Size:     %d\n  Object:   %s\n  Modified: %s\n",
		f.info.Sprint(info.Path),
		info.Type,
		info.Mode,
		info.Size,
		hexOrEmpty(info.Hash),
		info.ModTime.UTC().Format("2006-01-02 15:04:05 MST"))
	return err
}

// FormatEdit outputs the commit an edit produced
func (f *HumanFormatter) FormatEdit(result EditResult) error {
	_, err := fmt.Fprintf(f.w, "%s %s %s\n",
		f.success.Sprintf("✓ %s", result.Action),
		result.Path,
		f.dim.Sprintf("(%s)", short(result.Commit)))
	return err
}

// FormatChangesets outputs changesets with their state
func (f *HumanFormatter) FormatChangesets(changesets []ChangesetStatus) error {
	for _, cs := range changesets {
		state := f.success.Sprint(cs.State)
		if cs.State == changeset.Dirty {
			state = f.warn.Sprint(cs.State) + " " + f.dim.Sprint(short(cs.Pending))
		}
		if _, err := fmt.Fprintf(f.w, "%s\t%s\n", cs.Name, state); err != nil {
			return err
		}
	}
	return nil
}

// FormatCommits outputs one line per commit
func (f *HumanFormatter) FormatCommits(commits []changeset.CommitInfo) error {
	for _, c := range commits {
		if err := f.commitLine("", c); err != nil {
			return err
		}
	}
	return nil
}

func (f *HumanFormatter) commitLine(marker string, c changeset.CommitInfo) error {
	line := f.dim.Sprint(short(c.Hash)) + " " + c.Message
	if marker != "" {
		line = marker + " " + line
	}
	if c.Note != "" {
		line += " " + f.info.Sprintf("[%s]", strings.ReplaceAll(c.Note, "\n", " "))
	}
	_, err := fmt.Fprintln(f.w, line)
	return err
}

// FormatCommitDiff outputs the commits only one side of a comparison has
func (f *HumanFormatter) FormatCommitDiff(left, right string, diff *changeset.CommitDiff) error {
	if len(diff.Added) == 0 && len(diff.Missing) == 0 {
		_, err := fmt.Fprintf(f.w, "%s and %s contain the same changes\n", left, right)
		return err
	}
	for _, c := range diff.Added {
		if err := f.commitLine(f.added.Sprint("+"), c); err != nil {
			return err
		}
	}
	for _, c := range diff.Missing {
		if err := f.commitLine(f.removed.Sprint("-"), c); err != nil {
			return err
		}
	}
	return nil
}

// FormatPatch outputs unified diffs with colored lines
func (f *HumanFormatter) FormatPatch(rev string, diffs []string) error {
	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d, "\n") {
			if line == "" {
				continue
			}
			if _, err := io.WriteString(f.w, f.patchColor(line).Sprint(line)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *HumanFormatter) patchColor(line string) *color.Color {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"), strings.HasPrefix(line, "diff "):
		return f.dim
	case strings.HasPrefix(line, "+"):
		return f.added
	case strings.HasPrefix(line, "-"):
		return f.removed
	case strings.HasPrefix(line, "@@"):
		return f.info
	default:
		return color.New(color.Reset)
	}
}

// FormatFileDiff outputs a line diff of one file
func (f *HumanFormatter) FormatFileDiff(path string, lines []Line) error {
	if !Changed(lines) {
		_, err := fmt.Fprintf(f.w, "%s is unchanged\n", path)
		return err
	}
	if _, err := fmt.Fprintln(f.w, f.dim.Sprintf("--- a/%s\n+++ b/%s", path, path)); err != nil {
		return err
	}
	for _, l := range lines {
		var out string
		switch l.Op {
		case LineInsert:
			out = f.added.Sprint("+" + l.Text)
		case LineDelete:
			out = f.removed.Sprint("-" + l.Text)
		default:
			out = " " + l.Text
		}
		if _, err := fmt.Fprintln(f.w, out); err != nil {
			return err
		}
	}
	return nil
}

// FormatNote outputs the annotation of a commit
func (f *HumanFormatter) FormatNote(rev, namespace, note string, found bool) error {
	if !found {
		_, err := fmt.Fprintln(f.w, f.dim.Sprintf("%s has no note in %s", rev, namespace))
		return err
	}
	_, err := fmt.Fprintln(f.w, note)
	return err
}

package diff

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/hash"
)

var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@ ?(.*)$`)

type parser struct {
	lines []string
	pos   int
	files []*FileDiff
}

// Parse reads every file section in text. A section starts at a "diff " line,
// or at a "--- " line when the text carries no git header.
func Parse(text string) ([]*FileDiff, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	p := &parser{lines: strings.Split(text, "\n")}
	// a trailing newline produces one empty element
	if n := len(p.lines); n > 0 && p.lines[n-1] == "" {
		p.lines = p.lines[:n-1]
	}

	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		switch {
		case strings.HasPrefix(line, "diff "), strings.HasPrefix(line, "--- "):
			if err := p.file(); err != nil {
				return nil, err
			}
		default:
			// preamble such as commit headers
			p.pos++
		}
	}

	return p.files, nil
}

func (p *parser) file() error {
	f := &FileDiff{}
	p.files = append(p.files, f)

	sawMinus, sawPlus := false, false
	if line := p.lines[p.pos]; strings.HasPrefix(line, "diff ") {
		f.OldPath, f.NewPath = parseGitHeader(line)
		p.pos++
	}

	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		switch {
		case strings.HasPrefix(line, "diff "):
			return p.finish(f, sawMinus, sawPlus)
		case strings.HasPrefix(line, "@@"):
			h, err := p.hunk()
			if err != nil {
				return err
			}
			f.Hunks = append(f.Hunks, h)
			continue
		case strings.HasPrefix(line, "--- ") && len(f.Hunks) == 0 && !sawMinus:
			f.OldPath = stripPrefix(strings.TrimSpace(line[4:]), "a/")
			sawMinus = true
		case strings.HasPrefix(line, "+++ ") && len(f.Hunks) == 0 && !sawPlus:
			f.NewPath = stripPrefix(strings.TrimSpace(line[4:]), "b/")
			sawPlus = true
		case strings.HasPrefix(line, "--- "):
			// next file of a headerless patch
			return p.finish(f, sawMinus, sawPlus)
		case strings.HasPrefix(line, "index "):
			if err := parseIndex(f, line); err != nil {
				return err
			}
		case strings.HasPrefix(line, "new file mode "):
			mode, err := protocol.ParseMode(strings.TrimPrefix(line, "new file mode "))
			if err != nil {
				return fmt.Errorf("%w: %w", ErrMalformedDiff, err)
			}
			f.NewMode = mode
			f.OldPath = ""
		case strings.HasPrefix(line, "deleted file mode "):
			mode, err := protocol.ParseMode(strings.TrimPrefix(line, "deleted file mode "))
			if err != nil {
				return fmt.Errorf("%w: %w", ErrMalformedDiff, err)
			}
			f.OldMode = mode
			f.NewPath = ""
		case strings.HasPrefix(line, "old mode "):
			mode, err := protocol.ParseMode(strings.TrimPrefix(line, "old mode "))
			if err != nil {
				return fmt.Errorf("%w: %w", ErrMalformedDiff, err)
			}
			f.OldMode = mode
		case strings.HasPrefix(line, "new mode "):
			mode, err := protocol.ParseMode(strings.TrimPrefix(line, "new mode "))
			if err != nil {
				return fmt.Errorf("%w: %w", ErrMalformedDiff, err)
			}
			f.NewMode = mode
		case strings.HasPrefix(line, "Binary files ") || line == "GIT binary patch":
			f.Binary = true
		}
		p.pos++
	}

	return p.finish(f, sawMinus, sawPlus)
}

func (p *parser) finish(f *FileDiff, sawMinus, sawPlus bool) error {
	if len(f.Hunks) > 0 && (!sawMinus || !sawPlus) {
		return fmt.Errorf("%w: hunks without ---/+++ headers", ErrMalformedDiff)
	}
	if f.OldPath == "" && f.NewPath == "" {
		return fmt.Errorf("%w: file section names no path", ErrMalformedDiff)
	}
	return nil
}

func (p *parser) hunk() (Hunk, error) {
	header := p.lines[p.pos]
	m := hunkHeader.FindStringSubmatch(header)
	if m == nil {
		return Hunk{}, fmt.Errorf("%w: hunk header %q", ErrMalformedDiff, header)
	}
	h := Hunk{
		OldStart: atoi(m[1]),
		OldLines: atoiDefault(m[2], 1),
		NewStart: atoi(m[3]),
		NewLines: atoiDefault(m[4], 1),
		Section:  m[5],
	}
	p.pos++

	oldLeft, newLeft := h.OldLines, h.NewLines
	for p.pos < len(p.lines) && (oldLeft > 0 || newLeft > 0) {
		line := p.lines[p.pos]
		if line == noNewlineMarker {
			h.markNoNewline()
			p.pos++
			continue
		}

		op, text := OpContext, ""
		if line != "" {
			op, text = Op(line[0]), line[1:]
		}
		switch op {
		case OpContext:
			oldLeft--
			newLeft--
		case OpDelete:
			oldLeft--
		case OpInsert:
			newLeft--
		default:
			return Hunk{}, fmt.Errorf("%w: unexpected hunk line %q", ErrMalformedDiff, line)
		}
		if oldLeft < 0 || newLeft < 0 {
			return Hunk{}, fmt.Errorf("%w: hunk %q has more lines than its header", ErrMalformedDiff, header)
		}
		h.Lines = append(h.Lines, Line{Op: op, Text: text + "\n"})
		p.pos++
	}
	if oldLeft > 0 || newLeft > 0 {
		return Hunk{}, fmt.Errorf("%w: hunk %q is truncated", ErrMalformedDiff, header)
	}
	if p.pos < len(p.lines) && p.lines[p.pos] == noNewlineMarker {
		h.markNoNewline()
		p.pos++
	}

	return h, nil
}

func (h *Hunk) markNoNewline() {
	if n := len(h.Lines); n > 0 {
		h.Lines[n-1].Text = strings.TrimSuffix(h.Lines[n-1].Text, "\n")
	}
}

func parseGitHeader(line string) (string, string) {
	rest := strings.TrimPrefix(strings.TrimPrefix(line, "diff --git "), "diff ")
	idx := strings.LastIndex(rest, " b/")
	if idx < 0 {
		return "", ""
	}
	return stripPrefix(rest[:idx], "a/"), rest[idx+3:]
}

func parseIndex(f *FileDiff, line string) error {
	fields := strings.Fields(strings.TrimPrefix(line, "index "))
	if len(fields) == 0 {
		return fmt.Errorf("%w: index line %q", ErrMalformedDiff, line)
	}
	oldHex, newHex, ok := strings.Cut(fields[0], "..")
	if !ok {
		return fmt.Errorf("%w: index line %q", ErrMalformedDiff, line)
	}

	for _, id := range []string{oldHex, newHex} {
		if !isHex(id) || len(id) > len(hash.SentinelHex) {
			return fmt.Errorf("%w: object id %q in %q", ErrMalformedDiff, id, line)
		}
	}
	f.OldID, f.NewID = strings.ToLower(oldHex), strings.ToLower(newHex)

	if len(fields) > 1 {
		mode, err := protocol.ParseMode(fields[1])
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedDiff, err)
		}
		f.OldMode, f.NewMode = mode, mode
	}
	return nil
}

func stripPrefix(p, prefix string) string {
	if p == devNull {
		return ""
	}
	return strings.TrimPrefix(p, prefix)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	return atoi(s)
}

package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/grafana/changeset"
)

// JSONFormatter outputs in JSON format
type JSONFormatter struct {
	encoder *json.Encoder
}

// NewJSONFormatter creates a new JSON formatter writing to w
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return &JSONFormatter{
		encoder: enc,
	}
}

// entryOutput represents a directory entry for JSON output
type entryOutput struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
	Mode string `json:"mode"`
	Hash string `json:"hash"`
}

// FormatEntries outputs directory entries in JSON format
func (f *JSONFormatter) FormatEntries(entries []changeset.DirEntry) error {
	output := make([]entryOutput, len(entries))
	for i, entry := range entries {
		output[i] = entryOutput{
			Name: entry.Name,
			Path: entry.Path,
			Type: entry.Type().String(),
			Mode: entry.Mode.String(),
			Hash: hexOrEmpty(entry.Hash),
		}
	}
	return f.encoder.Encode(map[string]any{
		"entries": output,
	})
}

// contentOutput represents file content for JSON output
type contentOutput struct {
	Path    string `json:"path"`
	Size    int    `json:"size"`
	Content string `json:"content"`
}

// FormatContent outputs file content in JSON format
func (f *JSONFormatter) FormatContent(path string, content []byte) error {
	return f.encoder.Encode(contentOutput{
		Path:    path,
		Size:    len(content),
		Content: string(content),
	})
}

// statOutput represents entry metadata for JSON output
type statOutput struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Type     string    `json:"type"`
	Mode     string    `json:"mode"`
	Hash     string    `json:"hash"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// FormatStat outputs entry metadata in JSON format
func (f *JSONFormatter) FormatStat(info *changeset.FileInfo) error {
	return f.encoder.Encode(statOutput{
		Name:     info.Name,
		Path:     info.Path,
		Type:     info.Type.String(),
		Mode:     info.Mode.String(),
		Hash:     hexOrEmpty(info.Hash),
		Size:     info.Size,
		Modified: info.ModTime.UTC(),
	})
}

// editOutput represents the result of a mutating command for JSON output
type editOutput struct {
	Action string `json:"action"`
	Path   string `json:"path,omitempty"`
	Commit string `json:"commit"`
}

// FormatEdit outputs the commit an edit produced in JSON format
func (f *JSONFormatter) FormatEdit(result EditResult) error {
	return f.encoder.Encode(editOutput{
		Action: result.Action,
		Path:   result.Path,
		Commit: hexOrEmpty(result.Commit),
	})
}

// changesetOutput represents a changeset for JSON output
type changesetOutput struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	Pending string `json:"pending,omitempty"`
}

// FormatChangesets outputs changesets in JSON format
func (f *JSONFormatter) FormatChangesets(changesets []ChangesetStatus) error {
	output := make([]changesetOutput, len(changesets))
	for i, cs := range changesets {
		output[i] = changesetOutput{
			Name:    cs.Name,
			State:   cs.State.String(),
			Pending: hexOrEmpty(cs.Pending),
		}
	}
	return f.encoder.Encode(map[string]any{
		"changesets": output,
	})
}

// commitOutput represents a commit for JSON output
type commitOutput struct {
	Hash    string `json:"hash"`
	Message string `json:"message"`
	Note    string `json:"note,omitempty"`
}

func commitsOutput(commits []changeset.CommitInfo) []commitOutput {
	output := make([]commitOutput, len(commits))
	for i, c := range commits {
		output[i] = commitOutput{
			Hash:    hexOrEmpty(c.Hash),
			Message: c.Message,
			Note:    c.Note,
		}
	}
	return output
}

// FormatCommits outputs commits in JSON format
func (f *JSONFormatter) FormatCommits(commits []changeset.CommitInfo) error {
	return f.encoder.Encode(map[string]any{
		"commits": commitsOutput(commits),
	})
}

// commitDiffOutput represents a commit comparison for JSON output
type commitDiffOutput struct {
	Left    string         `json:"left"`
	Right   string         `json:"right"`
	Added   []commitOutput `json:"added"`
	Missing []commitOutput `json:"missing"`
}

// FormatCommitDiff outputs a commit comparison in JSON format
func (f *JSONFormatter) FormatCommitDiff(left, right string, diff *changeset.CommitDiff) error {
	return f.encoder.Encode(commitDiffOutput{
		Left:    left,
		Right:   right,
		Added:   commitsOutput(diff.Added),
		Missing: commitsOutput(diff.Missing),
	})
}

// FormatPatch outputs the diffs of a commit in JSON format
func (f *JSONFormatter) FormatPatch(rev string, diffs []string) error {
	if diffs == nil {
		diffs = []string{}
	}
	return f.encoder.Encode(map[string]any{
		"rev":   rev,
		"diffs": diffs,
	})
}

// lineOutput represents one line of a file diff for JSON output
type lineOutput struct {
	Op   string `json:"op"`
	Text string `json:"text"`
}

// FormatFileDiff outputs a line diff in JSON format
func (f *JSONFormatter) FormatFileDiff(path string, lines []Line) error {
	output := make([]lineOutput, len(lines))
	for i, l := range lines {
		op := " "
		switch l.Op {
		case LineInsert:
			op = "+"
		case LineDelete:
			op = "-"
		}
		output[i] = lineOutput{Op: op, Text: l.Text}
	}
	return f.encoder.Encode(map[string]any{
		"path":    path,
		"changed": Changed(lines),
		"lines":   output,
	})
}

// noteOutput represents a commit annotation for JSON output
type noteOutput struct {
	Rev       string `json:"rev"`
	Namespace string `json:"namespace"`
	Found     bool   `json:"found"`
	Note      string `json:"note,omitempty"`
}

// FormatNote outputs an annotation in JSON format
func (f *JSONFormatter) FormatNote(rev, namespace, note string, found bool) error {
	return f.encoder.Encode(noteOutput{
		Rev:       rev,
		Namespace: namespace,
		Found:     found,
		Note:      note,
	})
}

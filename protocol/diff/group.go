package diff

import (
	"bytes"
	"sort"
	"strings"

	"github.com/grafana/changeset/protocol/hash"
	"github.com/grafana/changeset/protocol/object"
)

// Key identifies fragments describing the same file transition.
type Key struct {
	OldID string
	NewID string
	Path  string
}

// KeyOf returns the grouping key of f: both ids and the path written, or
// removed for a deletion. Absent sides use the sentinel id.
func KeyOf(f *FileDiff) Key {
	k := Key{OldID: f.OldID, NewID: f.NewID, Path: f.TargetPath()}
	if f.IsCreate() {
		k.OldID = hash.SentinelHex
	}
	if f.IsDelete() {
		k.NewID = hash.SentinelHex
	}
	return k
}

// Group holds the distinct fragments sharing one Key, in arrival order.
type Group struct {
	Key       Key
	Fragments []*FileDiff
}

// IsCreate reports whether the group adds a new file.
func (g *Group) IsCreate() bool {
	return g.Key.OldID == hash.SentinelHex
}

// IsDelete reports whether the group removes a file.
func (g *Group) IsDelete() bool {
	return g.Key.NewID == hash.SentinelHex
}

// TargetPath is the file the group writes or removes.
func (g *Group) TargetPath() string {
	return g.Fragments[0].TargetPath()
}

// Merged folds all fragments into one diff. Hunks repeated across fragments
// are applied once.
func (g *Group) Merged() *FileDiff {
	first := g.Fragments[0]
	merged := &FileDiff{
		OldPath: first.OldPath,
		NewPath: first.NewPath,
		OldID:   first.OldID,
		NewID:   first.NewID,
		OldMode: first.OldMode,
		NewMode: first.NewMode,
		Binary:  first.Binary,
	}

	seen := make(map[string]bool)
	for _, f := range g.Fragments {
		merged.Binary = merged.Binary || f.Binary
		for _, h := range f.Hunks {
			text := h.String()
			if seen[text] {
				continue
			}
			seen[text] = true
			merged.Hunks = append(merged.Hunks, h)
		}
	}
	return merged
}

// GroupFiles buckets files by Key, dropping fragments whose text repeats an
// earlier fragment of the same group. Groups keep first-appearance order.
func GroupFiles(files []*FileDiff) []*Group {
	var groups []*Group
	byKey := make(map[Key]*Group)
	texts := make(map[Key]map[string]bool)

	for _, f := range files {
		key := KeyOf(f)
		g, ok := byKey[key]
		if !ok {
			g = &Group{Key: key}
			byKey[key] = g
			texts[key] = make(map[string]bool)
			groups = append(groups, g)
		}

		text := f.String()
		if texts[key][text] {
			continue
		}
		texts[key][text] = true
		g.Fragments = append(g.Fragments, f)
	}

	return groups
}

// PatchID identifies a change independently of line numbers, object ids and
// whitespace, so equal changes committed on different lines of history compare equal.
func PatchID(files []*FileDiff) string {
	sorted := make([]*FileDiff, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TargetPath() < sorted[j].TargetPath()
	})

	var buf bytes.Buffer
	for _, f := range sorted {
		buf.WriteString("diff " + f.OldPath + " " + f.NewPath + "\n")
		for _, h := range f.Hunks {
			for _, l := range h.Lines {
				if l.Op == OpContext {
					continue
				}
				buf.WriteByte(byte(l.Op))
				buf.WriteString(strings.Join(strings.Fields(l.Text), ""))
				buf.WriteByte('\n')
			}
		}
	}
	return hash.Of(object.TypeBlob, buf.Bytes()).String()
}

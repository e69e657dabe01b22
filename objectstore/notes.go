package objectstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/hash"
	"github.com/grafana/changeset/protocol/object"
)

// DefaultNotesNamespace is used when no namespace is given.
const DefaultNotesNamespace = "commits"

const (
	notesAppendMessage = "Notes added by 'git notes append'\n"
	notesRemoveMessage = "Notes removed by 'git notes remove'\n"
	noteUpdateAttempts = 3
)

// NotesRef returns the ref holding notes of namespace ns.
func NotesRef(ns string) string {
	if ns == "" {
		ns = DefaultNotesNamespace
	}
	return "refs/notes/" + ns
}

// Noter is implemented by stores with native note support.
type Noter interface {
	ReadNote(ctx context.Context, ns string, commit hash.Hash) (string, bool, error)
	AppendNote(ctx context.Context, ns string, commit hash.Hash, note string, who object.Identity) error
	RemoveNote(ctx context.Context, ns string, commit hash.Hash, who object.Identity) error
}

// ReadNote returns the note attached to commit in namespace ns without its
// trailing newline. A missing note is reported as ("", false, nil).
func ReadNote(ctx context.Context, s Store, ns string, commit hash.Hash) (string, bool, error) {
	if n, ok := s.(Noter); ok {
		return n.ReadNote(ctx, ns, commit)
	}

	_, tree, err := notesTree(ctx, s, ns)
	if err != nil || tree == nil {
		return "", false, err
	}

	entries, err := s.ReadTree(ctx, tree)
	if err != nil {
		return "", false, err
	}

	id, _, err := findNote(ctx, s, entries, commit.String())
	if err != nil || id == nil {
		return "", false, err
	}

	content, err := s.ReadBlob(ctx, id)
	if err != nil {
		return "", false, err
	}
	return strings.TrimSuffix(string(content), "\n"), true, nil
}

// AppendNote adds note to commit in namespace ns. An existing note is kept and
// the new text is appended after a blank line, as git notes append does.
func AppendNote(ctx context.Context, s Store, ns string, commit hash.Hash, note string, who object.Identity) error {
	if n, ok := s.(Noter); ok {
		return n.AppendNote(ctx, ns, commit, note, who)
	}

	note = stripSpace(note)
	if note == "" {
		return nil
	}

	return updateNotes(ctx, s, ns, commit, who, notesAppendMessage, func(existing []byte) ([]byte, bool) {
		if len(existing) == 0 {
			return []byte(note), true
		}
		return []byte(string(existing) + "\n" + note), true
	})
}

// RemoveNote deletes the note of commit in namespace ns. A missing note is not an error.
func RemoveNote(ctx context.Context, s Store, ns string, commit hash.Hash, who object.Identity) error {
	if n, ok := s.(Noter); ok {
		return n.RemoveNote(ctx, ns, commit, who)
	}

	return updateNotes(ctx, s, ns, commit, who, notesRemoveMessage, func(existing []byte) ([]byte, bool) {
		return nil, existing != nil
	})
}

// updateNotes rewrites the note of commit through edit and commits the new
// notes tree. edit returns the new content (nil to delete) and whether
// anything changed. Concurrent writers are retried.
func updateNotes(ctx context.Context, s Store, ns string, commit hash.Hash, who object.Identity, message string, edit func([]byte) ([]byte, bool)) error {
	var err error
	for attempt := 0; attempt < noteUpdateAttempts; attempt++ {
		err = updateNotesOnce(ctx, s, ns, commit, who, message, edit)
		if !errors.Is(err, ErrRefConflict) {
			return err
		}
	}
	return err
}

func updateNotesOnce(ctx context.Context, s Store, ns string, commit hash.Hash, who object.Identity, message string, edit func([]byte) ([]byte, bool)) error {
	head, tree, err := notesTree(ctx, s, ns)
	if err != nil {
		return err
	}

	var entries []protocol.TreeEntry
	if tree != nil {
		if entries, err = s.ReadTree(ctx, tree); err != nil {
			return err
		}
	}

	hex := commit.String()
	id, fanout, err := findNote(ctx, s, entries, hex)
	if err != nil {
		return err
	}

	var existing []byte
	if id != nil {
		if existing, err = s.ReadBlob(ctx, id); err != nil {
			return err
		}
	}

	next, changed := edit(existing)
	if !changed {
		return nil
	}

	if fanout == "" {
		entries = withoutEntry(entries, hex)
	} else if entries, err = withoutFanoutNote(ctx, s, entries, fanout, hex[2:]); err != nil {
		return err
	}

	if next != nil {
		blob, err := s.WriteBlob(ctx, next)
		if err != nil {
			return err
		}
		entries = append(entries, protocol.TreeEntry{Name: hex, Mode: protocol.ModeBlob, Hash: blob})
	}

	newTree, err := s.WriteTree(ctx, entries)
	if err != nil {
		return err
	}

	req := CommitRequest{Tree: newTree, Author: who, Committer: who, Message: message}
	if head != nil {
		req.Parents = []hash.Hash{head}
	}
	notesCommit, err := s.WriteCommit(ctx, req)
	if err != nil {
		return err
	}

	return s.UpdateRef(ctx, NotesRef(ns), notesCommit, head)
}

func withoutEntry(entries []protocol.TreeEntry, name string) []protocol.TreeEntry {
	out := make([]protocol.TreeEntry, 0, len(entries))
	for _, e := range entries {
		if e.Name != name {
			out = append(out, e)
		}
	}
	return out
}

// withoutFanoutNote drops name from the fanout directory dir, removing the
// directory once it is empty.
func withoutFanoutNote(ctx context.Context, s Store, entries []protocol.TreeEntry, dir, name string) ([]protocol.TreeEntry, error) {
	fanout, _ := FindEntry(entries, dir)
	sub, err := s.ReadTree(ctx, fanout.Hash)
	if err != nil {
		return nil, err
	}

	entries = withoutEntry(entries, dir)
	sub = withoutEntry(sub, name)
	if len(sub) == 0 {
		return entries, nil
	}

	id, err := s.WriteTree(ctx, sub)
	if err != nil {
		return nil, err
	}
	return append(entries, protocol.TreeEntry{Name: dir, Mode: protocol.ModeTree, Hash: id}), nil
}

// notesTree returns the notes commit and its root tree, both nil when the
// namespace has no notes yet.
func notesTree(ctx context.Context, s Store, ns string) (hash.Hash, hash.Hash, error) {
	head, err := s.ReadRef(ctx, NotesRef(ns))
	if errors.Is(err, ErrRefNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read notes ref: %w", err)
	}

	c, err := s.ReadCommit(ctx, head)
	if err != nil {
		return nil, nil, err
	}
	return head, c.Tree, nil
}

// findNote looks the note of the commit with id hex up, either flat or in a
// two character fanout directory. It returns the blob id and the fanout
// directory the note lives in, empty for a flat note.
func findNote(ctx context.Context, s Store, entries []protocol.TreeEntry, hex string) (hash.Hash, string, error) {
	if e, ok := FindEntry(entries, hex); ok && !e.IsTree() {
		return e.Hash, "", nil
	}

	fanout, ok := FindEntry(entries, hex[:2])
	if !ok || !fanout.IsTree() {
		return nil, "", nil
	}
	sub, err := s.ReadTree(ctx, fanout.Hash)
	if err != nil {
		return nil, "", err
	}
	if e, ok := FindEntry(sub, hex[2:]); ok && !e.IsTree() {
		return e.Hash, fanout.Name, nil
	}
	return nil, "", nil
}

// stripSpace cleans a note the way git does: trailing whitespace is removed
// from every line, runs of blank lines collapse into one, leading and
// trailing blank lines are dropped and the result ends with a newline.
func stripSpace(text string) string {
	var lines []string
	blank := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			blank = len(lines) > 0
			continue
		}
		if blank {
			lines = append(lines, "")
			blank = false
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/grafana/changeset/protocol/hash"
	"github.com/grafana/changeset/protocol/object"
)

// ErrMalformedTree is returned when a tree object or listing cannot be parsed.
var ErrMalformedTree = errors.New("malformed tree")

// Mode holds the permission and type bits of a tree entry.
type Mode uint32

const (
	ModeTree       Mode = 0o040000
	ModeBlob       Mode = 0o100644
	ModeExecutable Mode = 0o100755
	ModeSymlink    Mode = 0o120000
	ModeSubmodule  Mode = 0o160000
)

// String renders the mode the way ls-tree and mktree do, zero padded to six digits.
func (m Mode) String() string {
	return fmt.Sprintf("%06o", uint32(m))
}

// Type returns the kind of object an entry with this mode points at.
func (m Mode) Type() object.Type {
	switch m {
	case ModeTree:
		return object.TypeTree
	case ModeSubmodule:
		return object.TypeCommit
	default:
		return object.TypeBlob
	}
}

// ParseMode parses an octal mode with or without the leading zero.
func ParseMode(s string) (Mode, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: mode %q: %w", ErrMalformedTree, s, err)
	}
	return Mode(v), nil
}

// TreeEntry is one named entry of a directory.
type TreeEntry struct {
	Name string
	Mode Mode
	Hash hash.Hash
}

// Type returns the kind of object the entry points at.
func (e TreeEntry) Type() object.Type {
	return e.Mode.Type()
}

// IsTree reports whether the entry is a directory.
func (e TreeEntry) IsTree() bool {
	return e.Mode == ModeTree
}

// String renders the entry as a listing line:
//
//	<mode> SP <type> SP <hex-id> TAB <name>
//
// This is the format printed by ls-tree and accepted by mktree.
func (e TreeEntry) String() string {
	return fmt.Sprintf("%s %s %s\t%s", e.Mode, e.Type().Name(), e.Hash, e.Name)
}

// ParseTreeLine parses one listing line produced by ls-tree.
func ParseTreeLine(line string) (TreeEntry, error) {
	meta, name, ok := strings.Cut(line, "\t")
	if !ok || name == "" {
		return TreeEntry{}, fmt.Errorf("%w: listing line %q has no name", ErrMalformedTree, line)
	}

	fields := strings.Fields(meta)
	if len(fields) != 3 {
		return TreeEntry{}, fmt.Errorf("%w: listing line %q", ErrMalformedTree, line)
	}

	mode, err := ParseMode(fields[0])
	if err != nil {
		return TreeEntry{}, err
	}

	typ, err := object.ParseType(fields[1])
	if err != nil {
		return TreeEntry{}, fmt.Errorf("%w: %w", ErrMalformedTree, err)
	}
	if typ != mode.Type() {
		return TreeEntry{}, fmt.Errorf("%w: mode %s does not match type %s", ErrMalformedTree, mode, fields[1])
	}

	id, err := hash.FromHex(fields[2])
	if err != nil {
		return TreeEntry{}, fmt.Errorf("%w: %w", ErrMalformedTree, err)
	}

	return TreeEntry{Name: name, Mode: mode, Hash: id}, nil
}

// ParseTreeListing parses the complete output of ls-tree, one entry per line.
func ParseTreeListing(out string) ([]TreeEntry, error) {
	var entries []TreeEntry
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		entry, err := ParseTreeLine(line)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// SortTreeEntries orders entries the way Git stores them: by name, with
// directories compared as if their name ended in a slash.
func SortTreeEntries(entries []TreeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return sortKey(entries[i]) < sortKey(entries[j])
	})
}

func sortKey(e TreeEntry) string {
	if e.IsTree() {
		return e.Name + "/"
	}
	return e.Name
}

// EncodeTree serializes entries into the body of a tree object.
// The wire format per entry is the octal mode without padding, a space,
// the name, a NUL byte and the raw object id.
func EncodeTree(entries []TreeEntry) []byte {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	SortTreeEntries(sorted)

	var buf bytes.Buffer
	for _, e := range sorted {
		buf.WriteString(strconv.FormatUint(uint64(e.Mode), 8))
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(e.Hash)
	}
	return buf.Bytes()
}

// DecodeTree parses the body of a tree object whose ids are hashSize bytes long.
func DecodeTree(data []byte, hashSize int) ([]TreeEntry, error) {
	reader := bufio.NewReader(bytes.NewReader(data))

	var entries []TreeEntry
	for {
		modeStr, err := reader.ReadString(' ')
		if err != nil {
			if errors.Is(err, io.EOF) && modeStr == "" {
				break
			}
			return nil, fmt.Errorf("%w: %w", ErrMalformedTree, err)
		}
		mode, err := ParseMode(modeStr[:len(modeStr)-1])
		if err != nil {
			return nil, err
		}

		name, err := reader.ReadString(0)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated entry name", ErrMalformedTree)
		}

		id := make(hash.Hash, hashSize)
		if _, err := io.ReadFull(reader, id); err != nil {
			return nil, fmt.Errorf("%w: truncated object id", ErrMalformedTree)
		}

		entries = append(entries, TreeEntry{
			Name: name[:len(name)-1],
			Mode: mode,
			Hash: id,
		})
	}

	return entries, nil
}

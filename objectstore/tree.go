package objectstore

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/hash"
)

// ListTree returns the immediate entries of dir in the tree of commit. dir is
// "" for the root or a slash terminated path such as "a/b/".
func ListTree(ctx context.Context, s Store, commit hash.Hash, dir string) ([]protocol.TreeEntry, error) {
	if l, ok := s.(TreeLister); ok {
		return l.ListTree(ctx, commit, dir)
	}

	c, err := s.ReadCommit(ctx, commit)
	if err != nil {
		return nil, err
	}

	tree, err := TreeAt(ctx, s, c.Tree, dir)
	if err != nil {
		return nil, err
	}
	return s.ReadTree(ctx, tree)
}

// TreeAt descends from the root tree to dir and returns the id of dir's tree.
func TreeAt(ctx context.Context, s Store, root hash.Hash, dir string) (hash.Hash, error) {
	id := root
	walked := ""
	for _, name := range SplitPath(dir) {
		entries, err := s.ReadTree(ctx, id)
		if err != nil {
			return nil, err
		}

		walked += name + "/"
		entry, ok := FindEntry(entries, name)
		if !ok {
			return nil, NewPathNotFoundError(walked)
		}
		if !entry.IsTree() {
			return nil, NewNotADirectoryError(walked)
		}
		id = entry.Hash
	}
	return id, nil
}

// EntryAt returns the entry named by the file or directory path p in commit.
func EntryAt(ctx context.Context, s Store, commit hash.Hash, p string) (protocol.TreeEntry, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return protocol.TreeEntry{}, fmt.Errorf("entry of the root directory: %w", ErrPathNotFound)
	}

	dir, name := path.Split(p)
	entries, err := ListTree(ctx, s, commit, dir)
	if err != nil {
		return protocol.TreeEntry{}, err
	}

	entry, ok := FindEntry(entries, name)
	if !ok {
		return protocol.TreeEntry{}, NewPathNotFoundError(p)
	}
	return entry, nil
}

// BlobSize returns the size of a blob in bytes.
func BlobSize(ctx context.Context, s Store, id hash.Hash) (int64, error) {
	if sizer, ok := s.(BlobSizer); ok {
		return sizer.BlobSize(ctx, id)
	}

	content, err := s.ReadBlob(ctx, id)
	if err != nil {
		return 0, err
	}
	return int64(len(content)), nil
}

// FindEntry looks name up in entries.
func FindEntry(entries []protocol.TreeEntry, name string) (protocol.TreeEntry, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e, true
		}
	}
	return protocol.TreeEntry{}, false
}

// SplitPath returns the non-empty components of a slash separated path.
func SplitPath(p string) []string {
	var parts []string
	for _, part := range strings.Split(p, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// pathID returns the id of whatever p names in the tree root, or nil when
// p does not exist.
func pathID(ctx context.Context, s Store, root hash.Hash, p string) (hash.Hash, error) {
	dir, name := path.Split(strings.Trim(p, "/"))
	tree, err := TreeAt(ctx, s, root, dir)
	if err != nil {
		if isPathError(err) {
			return nil, nil
		}
		return nil, err
	}

	entries, err := s.ReadTree(ctx, tree)
	if err != nil {
		return nil, err
	}
	entry, ok := FindEntry(entries, name)
	if !ok {
		return nil, nil
	}
	return entry.Hash, nil
}

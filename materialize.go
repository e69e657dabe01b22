package changeset

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/hash"
)

// materialize writes every cached directory as a tree, deepest first, and
// records the root tree in op.newRoot.
//
// Directory paths are slash terminated, so a descendant always sorts after
// its ancestors and a descending sort visits children before parents. Each
// written tree is linked into its parent's entries before the parent is
// written, creating the entry when the directory is new. Directories that
// were never loaded keep their ids from the base tree.
func (c *clientImpl) materialize(ctx context.Context, op *operation) error {
	dirs := make([]string, 0, len(op.cache.dirs))
	for dir := range op.cache.dirs {
		dirs = append(dirs, dir)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))

	for _, dir := range dirs {
		entries := make([]protocol.TreeEntry, 0, len(op.cache.dirs[dir]))
		for _, e := range op.cache.dirs[dir] {
			entries = append(entries, e)
		}

		id, err := c.store.WriteTree(ctx, entries)
		if err != nil {
			return fmt.Errorf("write tree %q: %w", dir, err)
		}
		op.logger.Debug("Wrote tree", "dir", dir, "tree", id.String(), "entries", len(entries))

		if dir == "" {
			op.newRoot = id
			return nil
		}
		linkChild(op.cache, dir, id)
	}

	return fmt.Errorf("root directory was not loaded")
}

// linkChild points the parent's entry for dir at id.
func linkChild(cache *treeCache, dir string, id hash.Hash) {
	parent, name := splitPath(strings.TrimSuffix(dir, "/"))
	cache.dirs[parent][name] = protocol.TreeEntry{Name: name, Mode: protocol.ModeTree, Hash: id}
}

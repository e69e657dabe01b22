package changeset

import (
	"context"
	"errors"
	"fmt"

	"github.com/grafana/changeset/objectstore"
	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/hash"
)

// treeCache holds the entries of the directories an operation touches,
// keyed by directory path ("" for the root, "a/b/" below it). Directories
// are listed lazily from the base commit and at most once.
type treeCache struct {
	store objectstore.Store
	base  hash.Hash
	dirs  map[string]map[string]protocol.TreeEntry
}

func newTreeCache(store objectstore.Store, base hash.Hash) *treeCache {
	return &treeCache{
		store: store,
		base:  base,
		dirs:  make(map[string]map[string]protocol.TreeEntry),
	}
}

// load lists every directory containing filePath, root first. Directories
// missing from the base load as empty so edits can create them.
func (c *treeCache) load(ctx context.Context, filePath string) error {
	for _, dir := range ancestors(filePath) {
		if _, ok := c.dirs[dir]; ok {
			continue
		}

		entries, err := objectstore.ListTree(ctx, c.store, c.base, dir)
		switch {
		case errors.Is(err, objectstore.ErrPathNotFound):
			entries = nil
		case err != nil:
			return fmt.Errorf("list %q: %w", dir, err)
		}

		byName := make(map[string]protocol.TreeEntry, len(entries))
		for _, e := range entries {
			byName[e.Name] = e
		}
		c.dirs[dir] = byName
	}
	return nil
}

// lookup returns the entry at filePath. Its directory must be loaded.
func (c *treeCache) lookup(filePath string) (protocol.TreeEntry, bool) {
	dir, name := splitPath(filePath)
	entry, ok := c.dirs[dir][name]
	return entry, ok
}

// inject sets the entry at filePath. Its directory must be loaded.
func (c *treeCache) inject(filePath string, entry protocol.TreeEntry) {
	dir, name := splitPath(filePath)
	entry.Name = name
	c.dirs[dir][name] = entry
}

// injectBlob points filePath at a blob, keeping the mode of a file it replaces.
func (c *treeCache) injectBlob(filePath string, id hash.Hash, mode protocol.Mode) {
	if mode == 0 {
		mode = protocol.ModeBlob
		if existing, ok := c.lookup(filePath); ok && !existing.IsTree() {
			mode = existing.Mode
		}
	}
	c.inject(filePath, protocol.TreeEntry{Mode: mode, Hash: id})
}

// injectEmptyDir places the empty tree at dirPath.
func (c *treeCache) injectEmptyDir(ctx context.Context, dirPath string) error {
	empty, err := c.store.WriteTree(ctx, nil)
	if err != nil {
		return fmt.Errorf("write empty tree: %w", err)
	}
	c.inject(dirPath, protocol.TreeEntry{Mode: protocol.ModeTree, Hash: empty})
	return nil
}

// injectCopy clones the entry at src to dst. Both must be loaded.
func (c *treeCache) injectCopy(src, dst string) error {
	entry, ok := c.lookup(src)
	if !ok || entry.Hash == nil || entry.Hash.IsZero() {
		return NewPathError("copy", src, ErrSourceNotFound)
	}
	c.inject(dst, entry)
	return nil
}

// remove drops the entry at filePath. Directories left empty stay in place.
func (c *treeCache) remove(filePath string) error {
	dir, name := splitPath(filePath)
	if _, ok := c.dirs[dir][name]; !ok {
		return NewPathError("remove", filePath, ErrPathNotFound)
	}
	delete(c.dirs[dir], name)
	return nil
}

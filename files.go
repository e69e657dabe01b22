package changeset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/grafana/changeset/objectstore"
	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/hash"
)

// EntryType is the kind of a directory entry.
type EntryType int

const (
	TypeFile EntryType = iota
	TypeDirectory
	TypeSymlink
	TypeSubmodule
)

func (t EntryType) String() string {
	switch t {
	case TypeDirectory:
		return "directory"
	case TypeSymlink:
		return "symlink"
	case TypeSubmodule:
		return "submodule"
	default:
		return "file"
	}
}

func entryType(m protocol.Mode) EntryType {
	switch m {
	case protocol.ModeTree:
		return TypeDirectory
	case protocol.ModeSymlink:
		return TypeSymlink
	case protocol.ModeSubmodule:
		return TypeSubmodule
	default:
		return TypeFile
	}
}

// DirEntry is one entry of a listed directory.
type DirEntry struct {
	// Name is the entry's base name.
	Name string
	// Path is the entry's path from the repository root.
	Path string
	Mode protocol.Mode
	Hash hash.Hash
}

// Type returns the kind of the entry.
func (e DirEntry) Type() EntryType {
	return entryType(e.Mode)
}

// IsDir reports whether the entry is a directory.
func (e DirEntry) IsDir() bool {
	return e.Mode == protocol.ModeTree
}

// readBase returns the commit reads of name see: the pending shadow commit
// when there is one, the primary commit otherwise.
func (c *clientImpl) readBase(ctx context.Context, name string) (hash.Hash, error) {
	refs, err := c.readRefs(ctx, name)
	if err != nil {
		return nil, err
	}
	return refs.Base(), nil
}

// entry returns the entry at p in the changeset name.
func (c *clientImpl) entry(ctx context.Context, op, name, p string) (protocol.TreeEntry, error) {
	base, err := c.readBase(ctx, name)
	if err != nil {
		return protocol.TreeEntry{}, err
	}

	entry, err := objectstore.EntryAt(ctx, c.store, base, p)
	if err != nil {
		return protocol.TreeEntry{}, NewPathError(op, p, err)
	}
	return entry, nil
}

// ReadFile returns the content of the file at path.
func (c *clientImpl) ReadFile(ctx context.Context, name, path string) ([]byte, error) {
	p, err := validateFilePath(path)
	if err != nil {
		return nil, err
	}

	entry, err := c.entry(ctx, "read", name, p)
	if err != nil {
		return nil, err
	}
	switch entry.Mode {
	case protocol.ModeTree:
		return nil, NewPathError("read", p, ErrIsADirectory)
	case protocol.ModeSubmodule:
		return nil, NewPathError("read", p, objectstore.ErrUnsupported)
	}

	content, err := c.store.ReadBlob(ctx, entry.Hash)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", entry.Hash, err)
	}
	return content, nil
}

// WriteFile stores content at path, creating missing directories. An
// existing file keeps its mode.
func (c *clientImpl) WriteFile(ctx context.Context, name, path string, content []byte, opts ...EditOption) (hash.Hash, error) {
	p, err := validateFilePath(path)
	if err != nil {
		return nil, err
	}
	o := newEditOptions(opts)

	op, err := c.begin(ctx, name, "write")
	if err != nil {
		return nil, err
	}
	if err := op.cache.load(ctx, p); err != nil {
		return nil, NewPathError("write", p, err)
	}
	if existing, ok := op.cache.lookup(p); ok && existing.IsTree() {
		return nil, NewPathError("write", p, ErrIsADirectory)
	}

	blob, err := c.store.WriteBlob(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("write blob: %w", err)
	}
	op.logger.Debug("Wrote blob", "path", p, "blob", blob.String(), "size", len(content))
	op.cache.injectBlob(p, blob, 0)

	return c.finish(ctx, op, o)
}

// Mkdir creates an empty directory at path, along with missing parents.
func (c *clientImpl) Mkdir(ctx context.Context, name, path string, opts ...EditOption) (hash.Hash, error) {
	p, err := validateFilePath(path)
	if err != nil {
		return nil, err
	}
	o := newEditOptions(opts)

	op, err := c.begin(ctx, name, "mkdir")
	if err != nil {
		return nil, err
	}
	if err := op.cache.load(ctx, p); err != nil {
		return nil, NewPathError("mkdir", p, err)
	}
	if _, ok := op.cache.lookup(p); ok {
		return nil, NewPathError("mkdir", p, ErrAlreadyExists)
	}
	if err := op.cache.injectEmptyDir(ctx, p); err != nil {
		return nil, err
	}

	return c.finish(ctx, op, o)
}

// Unlink removes the file or directory at path. Its parent stays in place
// even when left empty.
func (c *clientImpl) Unlink(ctx context.Context, name, path string, opts ...EditOption) (hash.Hash, error) {
	p, err := validateFilePath(path)
	if err != nil {
		return nil, err
	}
	o := newEditOptions(opts)

	op, err := c.begin(ctx, name, "unlink")
	if err != nil {
		return nil, err
	}
	if err := op.cache.load(ctx, p); err != nil {
		return nil, NewPathError("unlink", p, err)
	}
	if err := op.cache.remove(p); err != nil {
		return nil, err
	}

	return c.finish(ctx, op, o)
}

// Copy points dst at the object of src. Both paths share the object but can
// be changed or removed independently.
func (c *clientImpl) Copy(ctx context.Context, name, src, dst string, opts ...EditOption) (hash.Hash, error) {
	from, err := validateFilePath(src)
	if err != nil {
		return nil, err
	}
	to, err := validateFilePath(dst)
	if err != nil {
		return nil, err
	}
	o := newEditOptions(opts)

	op, err := c.begin(ctx, name, "copy")
	if err != nil {
		return nil, err
	}
	for _, p := range []string{from, to} {
		if err := op.cache.load(ctx, p); err != nil {
			return nil, NewPathError("copy", p, err)
		}
	}
	if existing, ok := op.cache.lookup(to); ok && existing.IsTree() {
		return nil, NewPathError("copy", to, ErrIsADirectory)
	}
	if err := op.cache.injectCopy(from, to); err != nil {
		return nil, err
	}

	return c.finish(ctx, op, o)
}

// Rename copies src to dst and then unlinks src. This records two commits;
// when the unlink fails the copy stays committed.
func (c *clientImpl) Rename(ctx context.Context, name, src, dst string, opts ...EditOption) (hash.Hash, error) {
	if _, err := c.Copy(ctx, name, src, dst, opts...); err != nil {
		return nil, err
	}
	return c.Unlink(ctx, name, src, opts...)
}

// finish writes the edited trees and commits them to the configured ref.
func (c *clientImpl) finish(ctx context.Context, op *operation, o editOptions) (hash.Hash, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.materialize(ctx, op); err != nil {
		return nil, err
	}
	if err := c.commitAndAdvance(ctx, op, c.editTarget(), o.message); err != nil {
		return nil, err
	}
	return op.newCommit, nil
}

// ReadDir lists the directory at path. The root is "" or "/".
func (c *clientImpl) ReadDir(ctx context.Context, name, path string) ([]DirEntry, error) {
	dir, err := validateDirPath(path)
	if err != nil {
		return nil, err
	}

	base, err := c.readBase(ctx, name)
	if err != nil {
		return nil, err
	}

	entries, err := objectstore.ListTree(ctx, c.store, base, dir)
	if err != nil {
		if errors.Is(err, objectstore.ErrPathNotFound) {
			return nil, NewPathError("readdir", dir, ErrNotADirectory)
		}
		return nil, NewPathError("readdir", dir, err)
	}

	result := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		result = append(result, DirEntry{
			Name: e.Name,
			Path: dir + e.Name,
			Mode: e.Mode,
			Hash: e.Hash,
		})
	}
	return result, nil
}

// FileType returns the kind of entry at path. The root is a directory.
func (c *clientImpl) FileType(ctx context.Context, name, path string) (EntryType, error) {
	p, err := normalizePath(path)
	if err != nil {
		return TypeFile, err
	}
	if p == "" {
		if _, err := c.readBase(ctx, name); err != nil {
			return TypeFile, err
		}
		return TypeDirectory, nil
	}

	entry, err := c.entry(ctx, "filetype", name, p)
	if err != nil {
		return TypeFile, err
	}
	return entryType(entry.Mode), nil
}

// FileSize returns the size in bytes of the file at path.
func (c *clientImpl) FileSize(ctx context.Context, name, path string) (int64, error) {
	p, err := validateFilePath(path)
	if err != nil {
		return 0, err
	}

	entry, err := c.entry(ctx, "filesize", name, p)
	if err != nil {
		return 0, err
	}
	return c.sizeOf(ctx, p, entry)
}

func (c *clientImpl) sizeOf(ctx context.Context, p string, entry protocol.TreeEntry) (int64, error) {
	switch entry.Mode {
	case protocol.ModeTree:
		return 0, NewPathError("filesize", p, ErrIsADirectory)
	case protocol.ModeSubmodule:
		return 0, NewPathError("filesize", p, objectstore.ErrUnsupported)
	}

	size, err := objectstore.BlobSize(ctx, c.store, entry.Hash)
	if err != nil {
		return 0, fmt.Errorf("size of %s: %w", entry.Hash, err)
	}
	return size, nil
}

// LastModified returns the author time of the newest commit of the
// changeset that changed path, or the Unix epoch when none did.
func (c *clientImpl) LastModified(ctx context.Context, name, path string) (time.Time, error) {
	p, err := normalizePath(path)
	if err != nil {
		return time.Time{}, err
	}

	base, err := c.readBase(ctx, name)
	if err != nil {
		return time.Time{}, err
	}

	when, err := objectstore.LastModified(ctx, c.store, base, p)
	if err != nil {
		return time.Time{}, fmt.Errorf("last modified %s: %w", p, err)
	}
	return when, nil
}

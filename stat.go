package changeset

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/grafana/changeset/objectstore"
	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/hash"
)

// FileInfo describes an entry of a changeset.
type FileInfo struct {
	Name    string
	Path    string
	Type    EntryType
	Mode    protocol.Mode
	Hash    hash.Hash
	Size    int64
	ModTime time.Time
}

// IsDir reports whether the entry is a directory.
func (fi *FileInfo) IsDir() bool {
	return fi.Type == TypeDirectory
}

// Stat returns the type, size and modification time of the entry at path in
// one call. Size is zero for directories and submodules.
func (c *clientImpl) Stat(ctx context.Context, name, path string) (*FileInfo, error) {
	p, err := validateFilePath(path)
	if err != nil {
		return nil, err
	}

	base, err := c.readBase(ctx, name)
	if err != nil {
		return nil, err
	}

	entry, err := objectstore.EntryAt(ctx, c.store, base, p)
	if err != nil {
		return nil, NewPathError("stat", p, err)
	}

	info := &FileInfo{
		Name: entry.Name,
		Path: p,
		Type: entryType(entry.Mode),
		Mode: entry.Mode,
		Hash: entry.Hash,
	}

	g, gctx := errgroup.WithContext(ctx)
	if info.Type == TypeFile || info.Type == TypeSymlink {
		g.Go(func() error {
			size, err := c.sizeOf(gctx, p, entry)
			info.Size = size
			return err
		})
	}
	g.Go(func() error {
		when, err := objectstore.LastModified(gctx, c.store, base, p)
		info.ModTime = when
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, NewPathError("stat", p, err)
	}

	return info, nil
}

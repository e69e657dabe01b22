package changeset

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/grafana/changeset/objectstore"
	"github.com/grafana/changeset/patch"
	"github.com/grafana/changeset/protocol/diff"
	"github.com/grafana/changeset/protocol/hash"
)

// CommitFromDiffs writes a commit on top of parent whose tree is parent's
// tree with diffs applied. No ref moves. Fragments describing the same file
// transition are applied as one patch and repeated hunks only once. Without
// diffs the commit reuses parent's tree.
func (c *clientImpl) CommitFromDiffs(ctx context.Context, parent string, diffs []string, opts ...EditOption) (hash.Hash, error) {
	o := newEditOptions(opts)

	id, err := c.store.Resolve(ctx, parent)
	if err != nil {
		return nil, err
	}

	op := c.newOperation(ctx, "", "reconstruct")
	op.parent, op.base = id, id
	op.cache = newTreeCache(c.store, id)

	if err := c.reconstruct(ctx, op, diffs); err != nil {
		return nil, err
	}
	return c.writeCommit(ctx, op, op.base, o.message)
}

// ApplyDiffs applies diffs to the changeset name and commits the result like
// any other edit.
func (c *clientImpl) ApplyDiffs(ctx context.Context, name string, diffs []string, opts ...EditOption) (hash.Hash, error) {
	o := newEditOptions(opts)

	op, err := c.begin(ctx, name, "apply")
	if err != nil {
		return nil, err
	}
	if err := c.reconstruct(ctx, op, diffs); err != nil {
		return nil, err
	}
	if err := c.commitAndAdvance(ctx, op, c.editTarget(), o.message); err != nil {
		return nil, err
	}
	return op.newCommit, nil
}

// reconstruct sets op.newRoot to op.base's tree with diffs applied. Nothing
// is referenced until the caller commits, so a failed patch leaves only
// unreachable objects behind.
func (c *clientImpl) reconstruct(ctx context.Context, op *operation, diffs []string) error {
	if len(diffs) == 0 {
		commit, err := c.store.ReadCommit(ctx, op.base)
		if err != nil {
			return fmt.Errorf("read parent: %w", err)
		}
		op.newRoot = commit.Tree
		op.logger.Debug("No diffs, reusing parent tree", "tree", commit.Tree.String())
		return nil
	}

	var files []*diff.FileDiff
	for i, text := range diffs {
		parsed, err := diff.Parse(text)
		if err != nil {
			return fmt.Errorf("parse diff %d: %w", i, err)
		}
		files = append(files, parsed...)
	}

	groups := diff.GroupFiles(files)
	for _, g := range groups {
		for _, p := range []string{g.Fragments[0].OldPath, g.Fragments[0].NewPath} {
			if p == "" {
				continue
			}
			if _, err := validateFilePath(p); err != nil {
				return err
			}
			if err := op.cache.load(ctx, p); err != nil {
				return NewPathError("apply", p, err)
			}
		}
	}
	op.logger.Debug("Grouped diffs", "fragments", len(files), "groups", len(groups))

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.applyGroup(ctx, op, g); err != nil {
			return err
		}
	}

	return c.materialize(ctx, op)
}

// applyGroup turns one file transition into a cache edit.
func (c *clientImpl) applyGroup(ctx context.Context, op *operation, g *diff.Group) error {
	f := g.Merged()
	target := g.TargetPath()

	if g.IsDelete() {
		op.logger.Debug("Removing file", "path", f.OldPath)
		return op.cache.remove(f.OldPath)
	}

	var original []byte
	if !g.IsCreate() {
		content, err := c.readOriginal(ctx, op, f)
		if err != nil {
			return err
		}
		original = content
	}

	patched, err := c.patcher.Apply(ctx, f, original)
	if err != nil {
		return err
	}

	blob, err := c.store.WriteBlob(ctx, patched)
	if err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	op.logger.Debug("Patched file", "path", target, "hunks", len(f.Hunks), "blob", blob.String())

	op.cache.injectBlob(target, blob, f.NewMode)
	return nil
}

// readOriginal returns the content a diff applies to. A full index id
// naming an existing blob is read directly. An abbreviated, unknown or
// missing id falls back to the entry at the old path, which must match the
// abbreviation.
func (c *clientImpl) readOriginal(ctx context.Context, op *operation, f *diff.FileDiff) ([]byte, error) {
	if diff.IsFullID(f.OldID) {
		content, err := c.store.ReadBlob(ctx, hash.MustFromHex(f.OldID))
		if err == nil {
			return content, nil
		}
		if !errors.Is(err, objectstore.ErrObjectNotFound) {
			return nil, fmt.Errorf("read original of %s: %w", f.OldPath, err)
		}
	}

	entry, ok := op.cache.lookup(f.OldPath)
	if !ok || entry.Hash == nil {
		return nil, NewPathError("apply", f.OldPath, ErrPathNotFound)
	}
	if f.OldID != "" && !diff.IsFullID(f.OldID) && !strings.HasPrefix(entry.Hash.String(), f.OldID) {
		return nil, patch.NewError(f.OldPath, fmt.Sprintf("index %s does not match %s", f.OldID, entry.Hash.Short()), ErrPatchRejected)
	}

	content, err := c.store.ReadBlob(ctx, entry.Hash)
	if err != nil {
		return nil, fmt.Errorf("read original of %s: %w", f.OldPath, err)
	}
	return content, nil
}

package changeset

import (
	"context"
	"errors"
	"fmt"

	"github.com/grafana/changeset/log"
	"github.com/grafana/changeset/objectstore"
	"github.com/grafana/changeset/protocol/hash"
	"github.com/grafana/changeset/protocol/object"
)

// Ensure creates the changeset name if it does not exist yet. The new
// changeset starts from a commit capturing the working checkout, tracked
// and untracked files alike, without changing the checkout or its index.
// Stores without a checkout start from HEAD, or from an empty tree when
// HEAD is unborn. With shadow writes the shadow ref starts at the same
// commit. Calling Ensure again is a no-op.
func (c *clientImpl) Ensure(ctx context.Context, name string) error {
	_, err := c.readRefs(ctx, name)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, ErrChangesetNotFound):
		return err
	}

	author, committer, err := c.identities()
	if err != nil {
		return err
	}

	logger := log.With(c.loggerFor(ctx), "changeset", name)
	start, release, err := c.startCommit(ctx, author, committer)
	if err != nil {
		return err
	}
	defer release()

	err = c.store.UpdateRef(ctx, c.primaryRef(name), start, nil)
	switch {
	case errors.Is(err, objectstore.ErrRefConflict):
		logger.Debug("Changeset created concurrently")
		return nil
	case err != nil:
		return fmt.Errorf("create primary ref: %w", err)
	}

	if c.shadowWrites {
		err := c.store.UpdateRef(ctx, c.shadowRef(name), start, nil)
		if err != nil && !errors.Is(err, objectstore.ErrRefConflict) {
			return fmt.Errorf("create shadow ref: %w", err)
		}
	}

	logger.Info("Started changeset", "commit", start.String())
	return nil
}

// startCommit writes the commit a changeset starts from. The returned
// release func must be called once the commit is referenced or abandoned.
func (c *clientImpl) startCommit(ctx context.Context, author, committer object.Identity) (hash.Hash, func(), error) {
	noop := func() {}
	message := commitMessage(StartMessage)

	if wc, ok := c.store.(objectstore.WorkingCopy); ok {
		snap, err := wc.Snapshot(ctx, message, author, committer)
		switch {
		case err == nil:
			release := func() {
				if err := snap.Release(); err != nil {
					c.loggerFor(ctx).Warn("Release working copy snapshot", "error", err)
				}
			}
			return snap.Commit(), release, nil
		case !errors.Is(err, objectstore.ErrUnsupported):
			return nil, noop, fmt.Errorf("snapshot working copy: %w", err)
		}
	}

	req := objectstore.CommitRequest{Author: author, Committer: committer, Message: message}
	head, err := c.store.Resolve(ctx, "HEAD")
	switch {
	case err == nil:
		commit, err := c.store.ReadCommit(ctx, head)
		if err != nil {
			return nil, noop, fmt.Errorf("read HEAD: %w", err)
		}
		req.Tree = commit.Tree
		req.Parents = []hash.Hash{head}
	case errors.Is(err, objectstore.ErrNotACommit):
		// unborn HEAD
		req.Tree, err = c.store.WriteTree(ctx, nil)
		if err != nil {
			return nil, noop, fmt.Errorf("write empty tree: %w", err)
		}
	default:
		return nil, noop, fmt.Errorf("resolve HEAD: %w", err)
	}

	id, err := c.store.WriteCommit(ctx, req)
	if err != nil {
		return nil, noop, fmt.Errorf("write start commit: %w", err)
	}
	return id, noop, nil
}

// begin starts a mutating operation on name, creating the changeset first
// when needed.
func (c *clientImpl) begin(ctx context.Context, name, kind string) (*operation, error) {
	if err := c.Ensure(ctx, name); err != nil {
		return nil, err
	}

	op := c.newOperation(ctx, name, kind)
	if err := c.resolveBase(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}

package changeset

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/grafana/changeset/objectstore"
	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/hash"
)

// State tells whether a changeset has edits waiting on its shadow ref.
type State int

const (
	// Clean changesets have no shadow ref, or one equal to the primary ref.
	Clean State = iota
	// Dirty changesets have a shadow commit whose parent is the primary commit.
	Dirty
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// refPair holds the primary and shadow commits of a changeset. Shadow is
// nil when the shadow ref does not exist.
type refPair struct {
	Primary hash.Hash
	Shadow  hash.Hash
}

func (p refPair) State() State {
	if p.Shadow == nil || p.Shadow.Is(p.Primary) {
		return Clean
	}
	return Dirty
}

// Base is the commit new edits apply to.
func (p refPair) Base() hash.Hash {
	if p.State() == Dirty {
		return p.Shadow
	}
	return p.Primary
}

// target selects the ref commitAndAdvance moves.
type target int

const (
	targetPrimary target = iota
	targetShadow
)

func (t target) String() string {
	if t == targetShadow {
		return "shadow"
	}
	return "primary"
}

func (c *clientImpl) primaryRef(name string) string {
	return c.primaryNS + name
}

func (c *clientImpl) shadowRef(name string) string {
	return c.shadowNS + name
}

func (c *clientImpl) editTarget() target {
	if c.shadowWrites {
		return targetShadow
	}
	return targetPrimary
}

// checkName rejects names that cannot form a ref in either namespace.
func (c *clientImpl) checkName(name string) error {
	if name == "" || strings.HasPrefix(name, "/") {
		return NewChangesetError(name, ErrInvalidChangesetName)
	}
	if err := protocol.CheckRefFormat(c.primaryRef(name)); err != nil {
		return NewChangesetError(name, fmt.Errorf("%w: %w", ErrInvalidChangesetName, err))
	}
	return nil
}

// readRefs returns the ref pair of name. A missing primary ref yields
// ErrChangesetNotFound.
func (c *clientImpl) readRefs(ctx context.Context, name string) (refPair, error) {
	if err := c.checkName(name); err != nil {
		return refPair{}, err
	}

	primary, err := c.store.ReadRef(ctx, c.primaryRef(name))
	if err != nil {
		if errors.Is(err, objectstore.ErrRefNotFound) {
			return refPair{}, NewChangesetError(name, ErrChangesetNotFound)
		}
		return refPair{}, fmt.Errorf("read primary ref: %w", err)
	}

	shadow, err := c.store.ReadRef(ctx, c.shadowRef(name))
	switch {
	case errors.Is(err, objectstore.ErrRefNotFound):
		shadow = nil
	case err != nil:
		return refPair{}, fmt.Errorf("read shadow ref: %w", err)
	}

	return refPair{Primary: primary, Shadow: shadow}, nil
}

// resolveBase records the refs of op's changeset and the commit its edits
// apply to.
func (c *clientImpl) resolveBase(ctx context.Context, op *operation) error {
	refs, err := c.readRefs(ctx, op.changeset)
	if err != nil {
		return err
	}

	op.parent = refs.Primary
	op.shadow = refs.Shadow
	op.base = refs.Base()
	op.cache = newTreeCache(c.store, op.base)

	op.logger.Debug("Resolved base", "primary", refs.Primary.String(), "shadow", refs.Shadow.String(), "state", refs.State().String())
	return nil
}

// commitAndAdvance writes a commit of op.newRoot and moves the target ref to
// it. A shadow commit amends the pending edit: its parent is the primary
// commit. A primary commit builds on the effective base, folding a pending
// edit into history, and moves a shadow ref along. Every ref update
// compares against the value resolveBase observed.
func (c *clientImpl) commitAndAdvance(ctx context.Context, op *operation, t target, message string) error {
	parent := op.base
	if t == targetShadow {
		parent = op.parent
	}

	id, err := c.writeCommit(ctx, op, parent, message)
	if err != nil {
		return err
	}

	switch t {
	case targetShadow:
		if err := c.store.UpdateRef(ctx, c.shadowRef(op.changeset), id, op.shadow); err != nil {
			return fmt.Errorf("update shadow ref: %w", err)
		}
	default:
		// The shadow moves first: a shadow ahead of the primary is a valid
		// dirty pair, so a failed primary update leaves the edit pending.
		if op.shadow != nil {
			if err := c.store.UpdateRef(ctx, c.shadowRef(op.changeset), id, op.shadow); err != nil {
				return fmt.Errorf("advance shadow ref: %w", err)
			}
		}
		if err := c.store.UpdateRef(ctx, c.primaryRef(op.changeset), id, op.parent); err != nil {
			return fmt.Errorf("update primary ref: %w", err)
		}
	}

	op.logger.Info("Advanced changeset", "target", t.String(), "commit", id.String(), "tree", op.newRoot.String())
	return nil
}

// writeCommit writes a commit of op.newRoot on top of parent.
func (c *clientImpl) writeCommit(ctx context.Context, op *operation, parent hash.Hash, message string) (hash.Hash, error) {
	author, committer, err := c.identities()
	if err != nil {
		return nil, err
	}

	id, err := c.store.WriteCommit(ctx, objectstore.CommitRequest{
		Tree:      op.newRoot,
		Parents:   []hash.Hash{parent},
		Author:    author,
		Committer: committer,
		Message:   commitMessage(message),
	})
	if err != nil {
		return nil, fmt.Errorf("write commit: %w", err)
	}

	op.newCommit = id
	return id, nil
}

// State reports whether name has pending edits on its shadow ref.
func (c *clientImpl) State(ctx context.Context, name string) (State, error) {
	refs, err := c.readRefs(ctx, name)
	if err != nil {
		return Clean, err
	}
	return refs.State(), nil
}

// Promote fast-forwards the primary ref of a dirty changeset to its shadow
// commit. Clean changesets are left alone.
func (c *clientImpl) Promote(ctx context.Context, name string) error {
	refs, err := c.readRefs(ctx, name)
	if err != nil {
		return err
	}
	if refs.State() == Clean {
		return nil
	}

	if err := c.store.UpdateRef(ctx, c.primaryRef(name), refs.Shadow, refs.Primary); err != nil {
		return fmt.Errorf("promote %s: %w", name, err)
	}

	c.loggerFor(ctx).Info("Promoted changeset", "changeset", name, "commit", refs.Shadow.String())
	return nil
}

// Discard drops the pending edits of a dirty changeset by resetting its
// shadow ref to the primary commit. Clean changesets are left alone.
func (c *clientImpl) Discard(ctx context.Context, name string) error {
	refs, err := c.readRefs(ctx, name)
	if err != nil {
		return err
	}
	if refs.State() == Clean {
		return nil
	}

	if err := c.store.UpdateRef(ctx, c.shadowRef(name), refs.Primary, refs.Shadow); err != nil {
		return fmt.Errorf("discard %s: %w", name, err)
	}

	c.loggerFor(ctx).Info("Discarded pending edits", "changeset", name, "commit", refs.Shadow.String())
	return nil
}

// RemoveChangeset deletes both refs of name. Refs already gone are not an error.
func (c *clientImpl) RemoveChangeset(ctx context.Context, name string) error {
	if err := c.checkName(name); err != nil {
		return err
	}

	for _, ref := range []string{c.shadowRef(name), c.primaryRef(name)} {
		if err := c.store.DeleteRef(ctx, ref); err != nil && !errors.Is(err, objectstore.ErrRefNotFound) {
			return fmt.Errorf("delete %s: %w", ref, err)
		}
	}

	c.loggerFor(ctx).Info("Removed changeset", "changeset", name)
	return nil
}

// ListChangesets returns the names of all changesets, sorted.
func (c *clientImpl) ListChangesets(ctx context.Context) ([]string, error) {
	refs, err := c.store.ListRefs(ctx, c.primaryNS)
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}

	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, strings.TrimPrefix(ref.Name, c.primaryNS))
	}
	return names, nil
}

// PendingCommit returns the shadow commit of a dirty changeset.
func (c *clientImpl) PendingCommit(ctx context.Context, name string) (hash.Hash, error) {
	refs, err := c.readRefs(ctx, name)
	if err != nil {
		return nil, err
	}
	if refs.State() == Clean {
		return nil, NewChangesetError(name, ErrNoPendingCommit)
	}
	return refs.Shadow, nil
}

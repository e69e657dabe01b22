package changeset

import (
	"context"
	"errors"
	"fmt"

	"github.com/grafana/changeset/objectstore"
)

func (c *clientImpl) namespace(ns string) string {
	if ns == "" {
		return c.notesNS
	}
	return ns
}

// Annotate appends note to the annotation of rev in namespace ns, separated
// from earlier text by a blank line. An empty ns selects the client's default.
func (c *clientImpl) Annotate(ctx context.Context, rev, ns, note string) error {
	id, err := c.store.Resolve(ctx, rev)
	if err != nil {
		return err
	}
	_, committer, err := c.identities()
	if err != nil {
		return err
	}

	if err := objectstore.AppendNote(ctx, c.store, c.namespace(ns), id, note, committer); err != nil {
		return fmt.Errorf("annotate %s: %w", rev, err)
	}

	c.loggerFor(ctx).Debug("Annotated commit", "commit", id.String(), "namespace", c.namespace(ns))
	return nil
}

// ReadAnnotation returns the annotation of rev in namespace ns. A commit
// without one yields ("", false, nil).
func (c *clientImpl) ReadAnnotation(ctx context.Context, rev, ns string) (string, bool, error) {
	id, err := c.store.Resolve(ctx, rev)
	if err != nil {
		return "", false, err
	}

	note, ok, err := objectstore.ReadNote(ctx, c.store, c.namespace(ns), id)
	if err != nil {
		return "", false, fmt.Errorf("read annotation of %s: %w", rev, err)
	}
	return note, ok, nil
}

// ClearAnnotation removes the annotation of rev in namespace ns, if any.
func (c *clientImpl) ClearAnnotation(ctx context.Context, rev, ns string) error {
	id, err := c.store.Resolve(ctx, rev)
	if err != nil {
		return err
	}
	_, committer, err := c.identities()
	if err != nil {
		return err
	}

	if err := objectstore.RemoveNote(ctx, c.store, c.namespace(ns), id, committer); err != nil {
		return fmt.Errorf("clear annotation of %s: %w", rev, err)
	}
	return nil
}

// IsIgnored reports whether path matches the ignore rules of the working checkout.
func (c *clientImpl) IsIgnored(ctx context.Context, path string) (bool, error) {
	wc, ok := c.store.(objectstore.WorkingCopy)
	if !ok {
		return false, objectstore.ErrUnsupported
	}
	return wc.IsIgnored(ctx, path)
}

// RepoRoot returns the path from dir to the top of the working checkout.
func (c *clientImpl) RepoRoot(ctx context.Context, dir string) (string, error) {
	wc, ok := c.store.(objectstore.WorkingCopy)
	if !ok {
		return "", objectstore.ErrUnsupported
	}

	root, err := wc.Root(ctx, dir)
	switch {
	case errors.Is(err, objectstore.ErrNotADirectory):
		return "", NewPathError("root", dir, ErrNotADirectory)
	case err != nil:
		return "", fmt.Errorf("repository root of %s: %w", dir, err)
	}
	return root, nil
}

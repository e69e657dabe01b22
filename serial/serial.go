// Package serial runs the mutating operations of a changeset.Client one at a
// time per changeset.
//
// The client itself never blocks: two writers racing on one changeset make
// the loser fail with changeset.ErrRefConflict. Hosts that prefer waiting
// over retrying wrap their client:
//
//	c = serial.Wrap(c)
//
// Operations on different changesets still run in parallel, and reads are
// never serialized.
package serial

import (
	"context"

	"github.com/grafana/changeset"
	"github.com/grafana/changeset/protocol/hash"
)

// Client serializes mutating operations per changeset name. Methods it does
// not override go straight to the wrapped client.
type Client struct {
	changeset.Client

	locks *keyedMutex
}

var _ changeset.Client = (*Client)(nil)

// Wrap returns a Client serializing the mutating operations of c.
func Wrap(c changeset.Client) *Client {
	return &Client{Client: c, locks: newKeyedMutex()}
}

func (c *Client) with(ctx context.Context, name string, fn func() error) error {
	unlock, err := c.locks.lock(ctx, name)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

func (c *Client) withID(ctx context.Context, name string, fn func() (hash.Hash, error)) (hash.Hash, error) {
	var id hash.Hash
	err := c.with(ctx, name, func() error {
		var err error
		id, err = fn()
		return err
	})
	return id, err
}

func (c *Client) Ensure(ctx context.Context, name string) error {
	return c.with(ctx, name, func() error { return c.Client.Ensure(ctx, name) })
}

func (c *Client) Promote(ctx context.Context, name string) error {
	return c.with(ctx, name, func() error { return c.Client.Promote(ctx, name) })
}

func (c *Client) Discard(ctx context.Context, name string) error {
	return c.with(ctx, name, func() error { return c.Client.Discard(ctx, name) })
}

func (c *Client) RemoveChangeset(ctx context.Context, name string) error {
	return c.with(ctx, name, func() error { return c.Client.RemoveChangeset(ctx, name) })
}

func (c *Client) WriteFile(ctx context.Context, name, path string, content []byte, opts ...changeset.EditOption) (hash.Hash, error) {
	return c.withID(ctx, name, func() (hash.Hash, error) { return c.Client.WriteFile(ctx, name, path, content, opts...) })
}

func (c *Client) Mkdir(ctx context.Context, name, path string, opts ...changeset.EditOption) (hash.Hash, error) {
	return c.withID(ctx, name, func() (hash.Hash, error) { return c.Client.Mkdir(ctx, name, path, opts...) })
}

func (c *Client) Unlink(ctx context.Context, name, path string, opts ...changeset.EditOption) (hash.Hash, error) {
	return c.withID(ctx, name, func() (hash.Hash, error) { return c.Client.Unlink(ctx, name, path, opts...) })
}

func (c *Client) Copy(ctx context.Context, name, src, dst string, opts ...changeset.EditOption) (hash.Hash, error) {
	return c.withID(ctx, name, func() (hash.Hash, error) { return c.Client.Copy(ctx, name, src, dst, opts...) })
}

// Rename holds the lock across both of its commits, so no other edit lands
// between the copy and the unlink.
func (c *Client) Rename(ctx context.Context, name, src, dst string, opts ...changeset.EditOption) (hash.Hash, error) {
	return c.withID(ctx, name, func() (hash.Hash, error) { return c.Client.Rename(ctx, name, src, dst, opts...) })
}

func (c *Client) ApplyDiffs(ctx context.Context, name string, diffs []string, opts ...changeset.EditOption) (hash.Hash, error) {
	return c.withID(ctx, name, func() (hash.Hash, error) { return c.Client.ApplyDiffs(ctx, name, diffs, opts...) })
}

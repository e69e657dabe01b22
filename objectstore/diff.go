package objectstore

import (
	"context"
	"sort"
	"strings"

	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/diff"
	"github.com/grafana/changeset/protocol/hash"
)

// DefaultContextLines is the number of unchanged lines git keeps around a change.
const DefaultContextLines = 3

// DiffOptions controls commit diffs.
type DiffOptions struct {
	// Context is the number of unchanged lines kept around each change.
	Context int
	// Prefix limits the diff to paths under this directory, e.g. "docs/".
	Prefix string
}

// Differ is implemented by stores that produce diffs natively.
type Differ interface {
	// DiffCommits returns the per-file changes from one commit to another.
	// A nil from diffs against the empty tree.
	DiffCommits(ctx context.Context, from, to hash.Hash, opts DiffOptions) ([]*diff.FileDiff, error)
}

// DiffCommits returns the per-file changes between two commits ordered by
// path. Renames are reported as a deletion and a creation.
func DiffCommits(ctx context.Context, s Store, from, to hash.Hash, opts DiffOptions) ([]*diff.FileDiff, error) {
	if d, ok := s.(Differ); ok {
		return d.DiffCommits(ctx, from, to, opts)
	}

	var fromTree hash.Hash
	if from != nil {
		c, err := s.ReadCommit(ctx, from)
		if err != nil {
			return nil, err
		}
		fromTree = c.Tree
	}
	c, err := s.ReadCommit(ctx, to)
	if err != nil {
		return nil, err
	}

	d := &treeDiffer{store: s, opts: opts}
	if err := d.compare(ctx, "", fromTree, c.Tree); err != nil {
		return nil, err
	}

	sort.SliceStable(d.files, func(i, j int) bool {
		return d.files[i].TargetPath() < d.files[j].TargetPath()
	})
	return d.files, nil
}

type treeDiffer struct {
	store Store
	opts  DiffOptions
	files []*diff.FileDiff
}

func (d *treeDiffer) compare(ctx context.Context, dir string, from, to hash.Hash) error {
	if from.Is(to) {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	before, err := d.entries(ctx, from)
	if err != nil {
		return err
	}
	after, err := d.entries(ctx, to)
	if err != nil {
		return err
	}

	names := make(map[string]bool, len(before)+len(after))
	for name := range before {
		names[name] = true
	}
	for name := range after {
		names[name] = true
	}

	for name := range names {
		old, hadOld := before[name]
		cur, hasNew := after[name]
		p := dir + name

		switch {
		case hadOld && hasNew && old.IsTree() && cur.IsTree():
			err = d.compare(ctx, p+"/", old.Hash, cur.Hash)
		case hadOld && hasNew && old.IsTree() != cur.IsTree():
			if err = d.side(ctx, p, old, false); err == nil {
				err = d.side(ctx, p, cur, true)
			}
		case hadOld && hasNew:
			if !old.Hash.Is(cur.Hash) || old.Mode != cur.Mode {
				err = d.file(ctx, p, &old, &cur)
			}
		case hadOld:
			err = d.side(ctx, p, old, false)
		default:
			err = d.side(ctx, p, cur, true)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// side records every file under entry as created (added) or deleted.
func (d *treeDiffer) side(ctx context.Context, p string, entry protocol.TreeEntry, added bool) error {
	if entry.IsTree() {
		var from, to hash.Hash
		if added {
			to = entry.Hash
		} else {
			from = entry.Hash
		}
		return d.compare(ctx, p+"/", from, to)
	}

	if added {
		return d.file(ctx, p, nil, &entry)
	}
	return d.file(ctx, p, &entry, nil)
}

func (d *treeDiffer) file(ctx context.Context, p string, old, cur *protocol.TreeEntry) error {
	if d.opts.Prefix != "" && !strings.HasPrefix(p, d.opts.Prefix) {
		return nil
	}
	if (old != nil && old.Mode == protocol.ModeSubmodule) || (cur != nil && cur.Mode == protocol.ModeSubmodule) {
		return nil
	}

	var from, to diff.Side
	if old != nil {
		content, err := d.store.ReadBlob(ctx, old.Hash)
		if err != nil {
			return err
		}
		from = diff.Side{Path: p, ID: old.Hash, Mode: old.Mode, Content: content}
	}
	if cur != nil {
		content, err := d.store.ReadBlob(ctx, cur.Hash)
		if err != nil {
			return err
		}
		to = diff.Side{Path: p, ID: cur.Hash, Mode: cur.Mode, Content: content}
	}

	if f := diff.Unified(from, to, d.opts.Context); f != nil {
		d.files = append(d.files, f)
	}
	return nil
}

func (d *treeDiffer) entries(ctx context.Context, tree hash.Hash) (map[string]protocol.TreeEntry, error) {
	out := make(map[string]protocol.TreeEntry)
	if tree == nil {
		return out, nil
	}

	entries, err := d.store.ReadTree(ctx, tree)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		out[e.Name] = e
	}
	return out, nil
}

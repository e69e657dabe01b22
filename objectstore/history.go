package objectstore

import (
	"container/heap"
	"context"
	"errors"
	"time"

	"github.com/grafana/changeset/protocol/hash"
)

// LogOptions narrows a history walk.
type LogOptions struct {
	// Exclude hides every commit reachable from these commits.
	Exclude []hash.Hash
	// NoMerges skips commits with more than one parent.
	NoMerges bool
	// MaxCount stops the walk after this many commits. Zero means no limit.
	MaxCount int
	// Path keeps only commits that changed the file or directory at Path.
	Path string
}

// HistoryWalker is implemented by stores with a native history walk.
type HistoryWalker interface {
	// RevList lists commits reachable from include, newest first.
	RevList(ctx context.Context, include []hash.Hash, opts LogOptions) ([]hash.Hash, error)
	// MergeBase returns the best common ancestor of a and b, or ErrNoMergeBase.
	MergeBase(ctx context.Context, a, b hash.Hash) (hash.Hash, error)
}

// RevList lists commits reachable from include and not from opts.Exclude,
// ordered by committer date with the newest first.
func RevList(ctx context.Context, s Store, include []hash.Hash, opts LogOptions) ([]hash.Hash, error) {
	if w, ok := s.(HistoryWalker); ok {
		return w.RevList(ctx, include, opts)
	}

	excluded, err := ancestors(ctx, s, opts.Exclude)
	if err != nil {
		return nil, err
	}

	var result []hash.Hash
	err = walkByDate(ctx, s, include, excluded, func(c *dated) (bool, error) {
		if opts.NoMerges && len(c.commit.Parents) > 1 {
			return true, nil
		}
		if opts.Path != "" {
			changed, err := touches(ctx, s, c, opts.Path)
			if err != nil {
				return false, err
			}
			if !changed {
				return true, nil
			}
		}

		result = append(result, c.id)
		return opts.MaxCount <= 0 || len(result) < opts.MaxCount, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MergeBase returns a common ancestor of a and b, preferring the most recent one.
func MergeBase(ctx context.Context, s Store, a, b hash.Hash) (hash.Hash, error) {
	if w, ok := s.(HistoryWalker); ok {
		return w.MergeBase(ctx, a, b)
	}

	fromA, err := ancestors(ctx, s, []hash.Hash{a})
	if err != nil {
		return nil, err
	}

	var base hash.Hash
	err = walkByDate(ctx, s, []hash.Hash{b}, nil, func(c *dated) (bool, error) {
		if fromA[c.id.String()] {
			base = c.id
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if base == nil {
		return nil, ErrNoMergeBase
	}
	return base, nil
}

// LastModified returns the author time of the newest commit reachable from
// commit that changed p, or the Unix epoch when no commit did.
func LastModified(ctx context.Context, s Store, commit hash.Hash, p string) (time.Time, error) {
	ids, err := RevList(ctx, s, []hash.Hash{commit}, LogOptions{MaxCount: 1, Path: p})
	if err != nil {
		return time.Time{}, err
	}
	if len(ids) == 0 {
		return time.Unix(0, 0).UTC(), nil
	}

	c, err := s.ReadCommit(ctx, ids[0])
	if err != nil {
		return time.Time{}, err
	}
	return c.Author.Time()
}

// ancestors returns the ids of every commit reachable from roots, roots included.
func ancestors(ctx context.Context, s Store, roots []hash.Hash) (map[string]bool, error) {
	seen := make(map[string]bool)
	queue := append([]hash.Hash(nil), roots...)
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id := queue[0]
		queue = queue[1:]
		if seen[id.String()] {
			continue
		}
		seen[id.String()] = true

		c, err := s.ReadCommit(ctx, id)
		if err != nil {
			return nil, err
		}
		queue = append(queue, c.Parents...)
	}
	return seen, nil
}

// touches reports whether c changed p relative to its first parent.
func touches(ctx context.Context, s Store, c *dated, p string) (bool, error) {
	current, err := pathID(ctx, s, c.commit.Tree, p)
	if err != nil {
		return false, err
	}
	if len(c.commit.Parents) == 0 {
		return current != nil, nil
	}

	parent, err := s.ReadCommit(ctx, c.commit.Parents[0])
	if err != nil {
		return false, err
	}
	previous, err := pathID(ctx, s, parent.Tree, p)
	if err != nil {
		return false, err
	}
	return !current.Is(previous), nil
}

// walkByDate visits commits reachable from roots, newest committer date
// first, skipping ids in excluded. visit returns false to stop the walk.
func walkByDate(ctx context.Context, s Store, roots []hash.Hash, excluded map[string]bool, visit func(*dated) (bool, error)) error {
	queue := &dateQueue{}
	seen := make(map[string]bool)
	seq := 0

	push := func(id hash.Hash) error {
		key := id.String()
		if seen[key] || excluded[key] {
			return nil
		}
		seen[key] = true

		c, err := s.ReadCommit(ctx, id)
		if err != nil {
			if errors.Is(err, ErrObjectNotFound) {
				return NewNotACommitError(key)
			}
			return err
		}
		seq++
		heap.Push(queue, &dated{id: id, commit: c, seq: seq})
		return nil
	}

	for _, id := range roots {
		if err := push(id); err != nil {
			return err
		}
	}

	for queue.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		next := heap.Pop(queue).(*dated)
		more, err := visit(next)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}

		for _, parent := range next.commit.Parents {
			if err := push(parent); err != nil {
				return err
			}
		}
	}
	return nil
}

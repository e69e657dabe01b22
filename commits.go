package changeset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/grafana/changeset/objectstore"
	"github.com/grafana/changeset/protocol/diff"
	"github.com/grafana/changeset/protocol/hash"
)

// CommitInfo summarizes a commit.
type CommitInfo struct {
	Hash hash.Hash
	// Message is the first line of the commit message.
	Message string
	// Note is the commit's annotation in the client's notes namespace, or "".
	Note string
}

// CommitDiff splits the commits of two histories by side. Commits whose
// change also appears on the other side are left out of both.
type CommitDiff struct {
	// Added holds commits only reachable from the left revision.
	Added []CommitInfo
	// Missing holds commits only reachable from the right revision.
	Missing []CommitInfo
}

// ListCommits lists the commits reachable from rev, newest first, skipping
// merges. rev may be a range "from..to" listing commits of to that are not
// reachable from from; an empty side stands for HEAD.
func (c *clientImpl) ListCommits(ctx context.Context, rev string) ([]CommitInfo, error) {
	include, exclude, err := c.resolveRange(ctx, rev)
	if err != nil {
		return nil, err
	}

	ids, err := objectstore.RevList(ctx, c.store, include, objectstore.LogOptions{Exclude: exclude, NoMerges: true})
	if err != nil {
		return nil, fmt.Errorf("list commits of %s: %w", rev, err)
	}

	commits := make([]CommitInfo, 0, len(ids))
	for _, id := range ids {
		info, err := c.commitInfo(ctx, id, false)
		if err != nil {
			return nil, err
		}
		commits = append(commits, info)
	}
	return commits, nil
}

func (c *clientImpl) resolveRange(ctx context.Context, rev string) ([]hash.Hash, []hash.Hash, error) {
	if strings.Contains(rev, "...") {
		return nil, nil, objectstore.NewNotACommitError(rev)
	}

	from, to, isRange := strings.Cut(rev, "..")
	if !isRange {
		id, err := c.store.Resolve(ctx, rev)
		if err != nil {
			return nil, nil, err
		}
		return []hash.Hash{id}, nil, nil
	}

	if from == "" {
		from = "HEAD"
	}
	if to == "" {
		to = "HEAD"
	}

	include, err := c.store.Resolve(ctx, to)
	if err != nil {
		return nil, nil, err
	}
	exclude, err := c.store.Resolve(ctx, from)
	if err != nil {
		return nil, nil, err
	}
	return []hash.Hash{include}, []hash.Hash{exclude}, nil
}

func (c *clientImpl) commitInfo(ctx context.Context, id hash.Hash, withNote bool) (CommitInfo, error) {
	commit, err := c.store.ReadCommit(ctx, id)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("read commit %s: %w", id, err)
	}

	info := CommitInfo{Hash: id, Message: commit.Subject()}
	if withNote {
		note, _, err := objectstore.ReadNote(ctx, c.store, c.notesNS, id)
		if err != nil {
			return CommitInfo{}, fmt.Errorf("read note of %s: %w", id, err)
		}
		info.Note = note
	}
	return info, nil
}

// DiffCommits compares the histories of left and right since they forked,
// each commit with its note. A commit whose patch also appears on the other
// side, as after a cherry-pick, is reported on neither.
func (c *clientImpl) DiffCommits(ctx context.Context, left, right string) (*CommitDiff, error) {
	l, err := c.store.Resolve(ctx, left)
	if err != nil {
		return nil, err
	}
	r, err := c.store.Resolve(ctx, right)
	if err != nil {
		return nil, err
	}

	leftIDs, err := objectstore.RevList(ctx, c.store, []hash.Hash{l}, objectstore.LogOptions{Exclude: []hash.Hash{r}})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", left, err)
	}
	rightIDs, err := objectstore.RevList(ctx, c.store, []hash.Hash{r}, objectstore.LogOptions{Exclude: []hash.Hash{l}})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", right, err)
	}

	leftPatches, err := c.patchIDs(ctx, leftIDs)
	if err != nil {
		return nil, err
	}
	rightPatches, err := c.patchIDs(ctx, rightIDs)
	if err != nil {
		return nil, err
	}

	result := &CommitDiff{}
	if result.Added, err = c.unmatched(ctx, leftIDs, leftPatches, rightPatches); err != nil {
		return nil, err
	}
	if result.Missing, err = c.unmatched(ctx, rightIDs, rightPatches, leftPatches); err != nil {
		return nil, err
	}
	return result, nil
}

// patchIDs maps each commit to the patch id of its change. Merges get "".
func (c *clientImpl) patchIDs(ctx context.Context, ids []hash.Hash) (map[string]string, error) {
	patches := make(map[string]string, len(ids))
	for _, id := range ids {
		commit, err := c.store.ReadCommit(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("read commit %s: %w", id, err)
		}
		if len(commit.Parents) > 1 {
			continue
		}

		var parent hash.Hash
		if len(commit.Parents) == 1 {
			parent = commit.Parents[0]
		}
		files, err := objectstore.DiffCommits(ctx, c.store, parent, id, objectstore.DiffOptions{Context: objectstore.DefaultContextLines})
		if err != nil {
			return nil, fmt.Errorf("diff %s: %w", id, err)
		}
		if len(files) > 0 {
			patches[id.String()] = diff.PatchID(files)
		}
	}
	return patches, nil
}

func (c *clientImpl) unmatched(ctx context.Context, ids []hash.Hash, own, other map[string]string) ([]CommitInfo, error) {
	seen := make(map[string]bool, len(other))
	for _, p := range other {
		seen[p] = true
	}

	var result []CommitInfo
	for _, id := range ids {
		if p, ok := own[id.String()]; ok && seen[p] {
			continue
		}
		info, err := c.commitInfo(ctx, id, true)
		if err != nil {
			return nil, err
		}
		result = append(result, info)
	}
	return result, nil
}

// ReadCommit returns the change rev made to its first parent as one
// unified diff per file, without context lines and with full object ids.
// The result feeds CommitFromDiffs.
func (c *clientImpl) ReadCommit(ctx context.Context, rev string, opts ...ReadCommitOption) ([]string, error) {
	var o readCommitOptions
	for _, opt := range opts {
		opt(&o)
	}

	srcPrefix, dstPrefix := "a/", "b/"
	if o.dir != "" && o.baseDir != "" {
		rel, err := filepath.Rel(o.baseDir, o.dir)
		if err != nil {
			return nil, fmt.Errorf("relative path of %s: %w", o.dir, err)
		}
		if rel = filepath.ToSlash(rel); rel != "." {
			srcPrefix += rel + "/"
			dstPrefix += rel + "/"
		}
	}

	id, err := c.store.Resolve(ctx, rev)
	if err != nil {
		return nil, err
	}
	commit, err := c.store.ReadCommit(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", id, err)
	}

	var parent hash.Hash
	if len(commit.Parents) > 0 {
		parent = commit.Parents[0]
	}

	files, err := objectstore.DiffCommits(ctx, c.store, parent, id, objectstore.DiffOptions{Context: 0})
	if err != nil {
		return nil, fmt.Errorf("diff %s: %w", rev, err)
	}

	diffs := make([]string, 0, len(files))
	for _, f := range files {
		diffs = append(diffs, f.Format(srcPrefix, dstPrefix))
	}
	return diffs, nil
}

// FindCommonBase returns the best common ancestor of a and b.
func (c *clientImpl) FindCommonBase(ctx context.Context, a, b string) (hash.Hash, error) {
	left, err := c.store.Resolve(ctx, a)
	if err != nil {
		return nil, err
	}
	right, err := c.store.Resolve(ctx, b)
	if err != nil {
		return nil, err
	}

	base, err := objectstore.MergeBase(ctx, c.store, left, right)
	if err != nil {
		return nil, fmt.Errorf("merge base of %s and %s: %w", a, b, err)
	}
	return base, nil
}

// ParentOf returns the first parent of rev.
func (c *clientImpl) ParentOf(ctx context.Context, rev string) (hash.Hash, error) {
	id, err := c.store.Resolve(ctx, rev)
	if err != nil {
		return nil, err
	}
	commit, err := c.store.ReadCommit(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", id, err)
	}
	if len(commit.Parents) == 0 {
		return nil, objectstore.NewNotACommitError(rev + "^")
	}
	return commit.Parents[0], nil
}

// ChangesetsContaining lists the changesets whose primary or pending commit
// has rev in its history.
func (c *clientImpl) ChangesetsContaining(ctx context.Context, rev string) ([]string, error) {
	id, err := c.store.Resolve(ctx, rev)
	if err != nil {
		return nil, err
	}

	names, err := c.ListChangesets(ctx)
	if err != nil {
		return nil, err
	}

	var result []string
	for _, name := range names {
		refs, err := c.readRefs(ctx, name)
		if err != nil {
			if errors.Is(err, ErrChangesetNotFound) || errors.Is(err, ErrInvalidChangesetName) {
				// removed meanwhile, or a ref no changeset name maps to
				continue
			}
			return nil, err
		}

		for _, tip := range []hash.Hash{refs.Primary, refs.Shadow} {
			if tip == nil {
				continue
			}
			ok, err := c.isAncestor(ctx, id, tip)
			if err != nil {
				return nil, err
			}
			if ok {
				result = append(result, name)
				break
			}
		}
	}
	return result, nil
}

func (c *clientImpl) isAncestor(ctx context.Context, ancestor, of hash.Hash) (bool, error) {
	if ancestor.Is(of) {
		return true, nil
	}

	base, err := objectstore.MergeBase(ctx, c.store, ancestor, of)
	switch {
	case errors.Is(err, objectstore.ErrNoMergeBase):
		return false, nil
	case err != nil:
		return false, err
	}
	return base.Is(ancestor), nil
}

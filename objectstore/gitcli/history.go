package gitcli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/grafana/changeset/objectstore"
	"github.com/grafana/changeset/protocol/diff"
	"github.com/grafana/changeset/protocol/hash"
	"github.com/grafana/changeset/protocol/object"
	"github.com/grafana/changeset/retry"
)

func (s *Store) RevList(ctx context.Context, include []hash.Hash, opts objectstore.LogOptions) ([]hash.Hash, error) {
	args := []string{"rev-list"}
	if opts.NoMerges {
		args = append(args, "--no-merges")
	}
	if opts.MaxCount > 0 {
		args = append(args, "--max-count="+strconv.Itoa(opts.MaxCount))
	}
	for _, id := range include {
		args = append(args, id.String())
	}
	for _, id := range opts.Exclude {
		args = append(args, "^"+id.String())
	}
	if opts.Path != "" {
		args = append(args, "--", strings.Trim(opts.Path, "/"))
	}

	out, err := s.run(ctx, args...)
	if err != nil {
		if errors.Is(err, objectstore.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %w", objectstore.ErrNotACommit, err)
		}
		return nil, fmt.Errorf("rev-list: %w", err)
	}
	return parseIDs(out)
}

func (s *Store) MergeBase(ctx context.Context, a, b hash.Hash) (hash.Hash, error) {
	out, err := s.run(ctx, "merge-base", a.String(), b.String())
	if err != nil {
		var storeErr *StoreError
		if errors.As(err, &storeErr) && storeErr.ExitCode == 1 {
			return nil, objectstore.ErrNoMergeBase
		}
		return nil, fmt.Errorf("merge-base: %w", err)
	}
	return hash.FromHex(string(out))
}

// DiffCommits runs diff-tree, which ignores user diff configuration, and
// parses its output. Renames are never detected.
func (s *Store) DiffCommits(ctx context.Context, from, to hash.Hash, opts objectstore.DiffOptions) ([]*diff.FileDiff, error) {
	base := hash.EmptyTreeHex
	if from != nil {
		base = from.String()
	}

	args := []string{
		"diff-tree", "-r", "-p", "--no-renames", "--full-index", "--no-color", "--no-ext-diff",
		"--src-prefix=a/", "--dst-prefix=b/",
		"-U" + strconv.Itoa(opts.Context),
		base, to.String(),
	}
	if opts.Prefix != "" {
		args = append(args, "--", opts.Prefix)
	}

	out, err := s.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("diff %s..%s: %w", base, to, err)
	}
	return diff.Parse(string(out))
}

func (s *Store) ReadNote(ctx context.Context, ns string, commit hash.Hash) (string, bool, error) {
	out, err := s.run(ctx, "notes", "--ref="+objectstore.NotesRef(ns), "show", commit.String())
	if err != nil {
		var storeErr *StoreError
		if errors.As(err, &storeErr) && strings.Contains(storeErr.Stderr, "no note found") {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read note of %s: %w", commit, err)
	}
	return strings.TrimSuffix(string(out), "\n"), true, nil
}

func (s *Store) AppendNote(ctx context.Context, ns string, commit hash.Hash, note string, who object.Identity) error {
	if strings.TrimSpace(note) == "" {
		return nil
	}

	return retry.DoVoid(ctx, func() error {
		_, err := s.exec(ctx, command{
			args: []string{"notes", "--ref=" + objectstore.NotesRef(ns), "append", "-m", note, commit.String()},
			env:  identityEnv(who, who),
		})
		if err != nil {
			return fmt.Errorf("append note to %s: %w", commit, err)
		}
		return nil
	})
}

func (s *Store) RemoveNote(ctx context.Context, ns string, commit hash.Hash, who object.Identity) error {
	return retry.DoVoid(ctx, func() error {
		_, err := s.exec(ctx, command{
			args: []string{"notes", "--ref=" + objectstore.NotesRef(ns), "remove", "--ignore-missing", commit.String()},
			env:  identityEnv(who, who),
		})
		if err != nil {
			return fmt.Errorf("remove note of %s: %w", commit, err)
		}
		return nil
	})
}

func parseIDs(out []byte) ([]hash.Hash, error) {
	var ids []hash.Hash
	for _, line := range strings.Fields(string(out)) {
		id, err := hash.FromHex(line)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

var (
	_ objectstore.HistoryWalker = (*Store)(nil)
	_ objectstore.Differ        = (*Store)(nil)
	_ objectstore.Noter         = (*Store)(nil)
)

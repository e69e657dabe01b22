package gogit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/grafana/changeset/objectstore"
	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/hash"
	"github.com/grafana/changeset/protocol/object"
)

const gitDir = ".git"

// snapshot holds no working copy state: the tree is built from the files
// directly and the index is never written.
type snapshot struct {
	commit hash.Hash
}

func (s *snapshot) Commit() hash.Hash { return s.commit }
func (s *snapshot) Release() error    { return nil }

// Snapshot captures tracked files and untracked files not matched by ignore
// rules into a commit whose parent is HEAD.
func (s *Store) Snapshot(ctx context.Context, message string, author, committer object.Identity) (objectstore.Snapshot, error) {
	wt, err := s.worktree()
	if err != nil {
		return nil, err
	}
	root := wt.Filesystem.Root()

	matcher, err := s.ignoreMatcher(wt)
	if err != nil {
		return nil, err
	}
	tracked := s.trackedPaths()

	var files []objectstore.TreeFile
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if rel == gitDir {
				return filepath.SkipDir
			}
			if matcher.Match(strings.Split(rel, "/"), true) && !tracked.under(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !tracked[rel] && matcher.Match(strings.Split(rel, "/"), false) {
			return nil
		}

		file, err := s.captureFile(ctx, p, rel, d)
		if err != nil {
			return err
		}
		files = append(files, file)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("capture work tree: %w", err)
	}

	tree, err := objectstore.BuildTree(ctx, s, files)
	if err != nil {
		return nil, err
	}

	req := objectstore.CommitRequest{Tree: tree, Author: author, Committer: committer, Message: message}
	head, err := s.Resolve(ctx, "HEAD")
	switch {
	case errors.Is(err, objectstore.ErrNotACommit):
		// unborn branch
	case err != nil:
		return nil, err
	default:
		req.Parents = []hash.Hash{head}
	}

	id, err := s.WriteCommit(ctx, req)
	if err != nil {
		return nil, err
	}
	return &snapshot{commit: id}, nil
}

// IsIgnored reports whether p, relative to the top of the work tree, is
// excluded by ignore rules. Tracked files are never ignored.
func (s *Store) IsIgnored(ctx context.Context, p string) (bool, error) {
	wt, err := s.worktree()
	if err != nil {
		return false, err
	}

	p = strings.Trim(filepath.ToSlash(p), "/")
	if p == "" || s.trackedPaths()[p] {
		return false, nil
	}

	matcher, err := s.ignoreMatcher(wt)
	if err != nil {
		return false, err
	}

	isDir := false
	if info, err := os.Stat(filepath.Join(wt.Filesystem.Root(), filepath.FromSlash(p))); err == nil {
		isDir = info.IsDir()
	}
	return matcher.Match(strings.Split(p, "/"), isDir), nil
}

// Root returns the relative path from dir to the top of the work tree,
// "" when dir is the top, otherwise a chain of "../" segments.
func (s *Store) Root(ctx context.Context, dir string) (string, error) {
	wt, err := s.worktree()
	if err != nil {
		return "", err
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", objectstore.NewNotADirectoryError(dir)
	}

	top, err := filepath.EvalSymlinks(wt.Filesystem.Root())
	if err != nil {
		return "", err
	}
	if abs, err = filepath.EvalSymlinks(abs); err != nil {
		return "", err
	}

	rel, err := filepath.Rel(abs, top)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return "", nil
	}
	if strings.Trim(rel, "./") != "" {
		return "", fmt.Errorf("%w: %s is outside %s", objectstore.ErrNotARepository, dir, top)
	}
	return rel + "/", nil
}

func (s *Store) worktree() (*git.Worktree, error) {
	wt, err := s.repo.Worktree()
	if errors.Is(err, git.ErrIsBareRepository) {
		return nil, fmt.Errorf("%w: repository has no work tree", objectstore.ErrUnsupported)
	}
	if err != nil {
		return nil, fmt.Errorf("open work tree: %w", err)
	}
	return wt, nil
}

func (s *Store) ignoreMatcher(wt *git.Worktree) (gitignore.Matcher, error) {
	patterns, err := gitignore.ReadPatterns(wt.Filesystem, nil)
	if err != nil {
		return nil, fmt.Errorf("read ignore rules: %w", err)
	}
	return gitignore.NewMatcher(append(patterns, wt.Excludes...)), nil
}

func (s *Store) captureFile(ctx context.Context, p, rel string, d fs.DirEntry) (objectstore.TreeFile, error) {
	info, err := d.Info()
	if err != nil {
		return objectstore.TreeFile{}, err
	}

	var content []byte
	mode := protocol.ModeBlob
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(p)
		if err != nil {
			return objectstore.TreeFile{}, err
		}
		content, mode = []byte(target), protocol.ModeSymlink
	default:
		if info.Mode()&0o111 != 0 {
			mode = protocol.ModeExecutable
		}
		if content, err = os.ReadFile(p); err != nil { //nolint:gosec // p comes from walking the work tree
			return objectstore.TreeFile{}, err
		}
	}

	id, err := s.WriteBlob(ctx, content)
	if err != nil {
		return objectstore.TreeFile{}, err
	}
	return objectstore.TreeFile{Path: rel, Mode: mode, Hash: id}, nil
}

type pathSet map[string]bool

func (s pathSet) under(prefix string) bool {
	for p := range s {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// trackedPaths returns the paths recorded in the index, or none when the
// index cannot be read.
func (s *Store) trackedPaths() pathSet {
	tracked := pathSet{}
	idx, err := s.repo.Storer.Index()
	if err != nil {
		return tracked
	}
	for _, e := range idx.Entries {
		tracked[e.Name] = true
	}
	return tracked
}

var _ objectstore.WorkingCopy = (*Store)(nil)

package gitcli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/grafana/changeset/objectstore"
	"github.com/grafana/changeset/protocol/hash"
	"github.com/grafana/changeset/protocol/object"
	"github.com/grafana/changeset/retry"
)

// snapshot owns the temporary index a work tree capture was staged in.
type snapshot struct {
	commit hash.Hash
	tmpDir string
}

func (s *snapshot) Commit() hash.Hash { return s.commit }

// Release removes the temporary index. The real index was never written.
func (s *snapshot) Release() error {
	if s.tmpDir == "" {
		return nil
	}
	err := os.RemoveAll(s.tmpDir)
	s.tmpDir = ""
	return err
}

// Snapshot stages the whole work tree into a copy of the index, so tracked
// and untracked files are captured under the usual ignore rules, and commits
// it on top of HEAD. The repository's own index and files are left as they were.
func (s *Store) Snapshot(ctx context.Context, message string, author, committer object.Identity) (_ objectstore.Snapshot, err error) {
	top, err := s.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("%w: no work tree: %w", objectstore.ErrUnsupported, err)
	}
	indexPath, err := s.run(ctx, "rev-parse", "--path-format=absolute", "--git-path", "index")
	if err != nil {
		return nil, fmt.Errorf("locate index: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "changeset-index-")
	if err != nil {
		return nil, fmt.Errorf("create temporary index: %w", err)
	}
	snap := &snapshot{tmpDir: tmpDir}
	defer func() {
		if err != nil {
			_ = snap.Release()
		}
	}()

	tmpIndex := filepath.Join(tmpDir, "index")
	if err := copyFile(strings.TrimSpace(string(indexPath)), tmpIndex); err != nil {
		return nil, fmt.Errorf("copy index: %w", err)
	}

	env := []string{"GIT_INDEX_FILE=" + tmpIndex}
	root := strings.TrimSpace(string(top))
	err = retry.DoVoid(ctx, func() error {
		_, err := s.exec(ctx, command{args: []string{"add", "-A", "--", "."}, env: env, dir: root})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("stage work tree: %w", err)
	}

	out, err := s.exec(ctx, command{args: []string{"write-tree"}, env: env, dir: root})
	if err != nil {
		return nil, fmt.Errorf("write work tree: %w", err)
	}
	tree, err := hash.FromHex(string(out))
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

	if snap.commit, err = s.WriteCommit(ctx, req); err != nil {
		return nil, err
	}
	return snap, nil
}

// IsIgnored runs check-ignore. Tracked files are never reported as ignored.
func (s *Store) IsIgnored(ctx context.Context, path string) (bool, error) {
	_, err := s.run(ctx, "check-ignore", "-q", "--", path)
	if err == nil {
		return true, nil
	}

	var storeErr *StoreError
	if errors.As(err, &storeErr) && storeErr.ExitCode == 1 {
		return false, nil
	}
	return false, fmt.Errorf("check-ignore %s: %w", path, err)
}

// Root returns the path from dir to the top of the work tree, such as "../../".
func (s *Store) Root(ctx context.Context, dir string) (string, error) {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(s.dir, dir)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", objectstore.NewNotADirectoryError(dir)
	}

	out, err := s.exec(ctx, command{args: []string{"rev-parse", "--show-cdup"}, dir: dir})
	if err != nil {
		return "", fmt.Errorf("find repository root: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// copyFile copies src to dst. A missing src leaves dst absent.
func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // path reported by git
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst) //nolint:gosec // inside our temporary directory
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

var _ objectstore.WorkingCopy = (*Store)(nil)

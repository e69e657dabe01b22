// Package gitcli implements objectstore.Store by driving the git command line
// in an existing repository. It is the only backend attached to a real work
// tree: snapshots, ignore rules and the repository root come from git itself.
package gitcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/grafana/changeset/objectstore"
	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/hash"
	"github.com/grafana/changeset/retry"
)

// Store implements objectstore.Store with git plumbing commands.
type Store struct {
	dir    string
	binary string
	env    []string
}

// Option configures a Store.
type Option func(*Store) error

// WithBinary sets the git executable. Defaults to "git" looked up in PATH.
func WithBinary(path string) Option {
	return func(s *Store) error {
		if path == "" {
			return errors.New("git binary path is empty")
		}
		s.binary = path
		return nil
	}
}

// WithEnv adds KEY=VALUE pairs to the environment of every git invocation.
func WithEnv(env ...string) Option {
	return func(s *Store) error {
		for _, kv := range env {
			if !strings.Contains(kv, "=") {
				return fmt.Errorf("environment entry %q is not KEY=VALUE", kv)
			}
		}
		s.env = append(s.env, env...)
		return nil
	}
}

// Open returns a Store for the repository containing dir.
func Open(ctx context.Context, dir string, opts ...Option) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s does not exist", objectstore.ErrNotARepository, dir)
	}

	s := &Store{dir: dir, binary: "git"}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if _, err := s.run(ctx, "rev-parse", "--git-dir"); err != nil {
		if errors.Is(err, objectstore.ErrNotARepository) {
			return nil, fmt.Errorf("%w: %s", objectstore.ErrNotARepository, dir)
		}
		return nil, err
	}
	return s, nil
}

// Dir is the directory git commands run in.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) WriteBlob(ctx context.Context, content []byte) (hash.Hash, error) {
	out, err := s.exec(ctx, command{
		args:  []string{"hash-object", "-w", "--no-filters", "--stdin"},
		stdin: nonNil(content),
	})
	if err != nil {
		return nil, fmt.Errorf("write blob: %w", err)
	}
	return hash.FromHex(string(out))
}

func (s *Store) ReadBlob(ctx context.Context, id hash.Hash) ([]byte, error) {
	out, err := s.run(ctx, "cat-file", "blob", id.String())
	if err != nil {
		return nil, s.objectError(ctx, id, err)
	}
	return out, nil
}

func (s *Store) BlobSize(ctx context.Context, id hash.Hash) (int64, error) {
	out, err := s.run(ctx, "cat-file", "-s", id.String())
	if err != nil {
		return 0, s.objectError(ctx, id, err)
	}
	return strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
}

func (s *Store) WriteTree(ctx context.Context, entries []protocol.TreeEntry) (hash.Hash, error) {
	var input bytes.Buffer
	for _, e := range entries {
		input.WriteString(e.String())
		input.WriteByte(0)
	}

	out, err := s.exec(ctx, command{args: []string{"mktree", "-z"}, stdin: input.Bytes()})
	if err != nil {
		return nil, fmt.Errorf("write tree: %w", err)
	}
	return hash.FromHex(string(out))
}

func (s *Store) ReadTree(ctx context.Context, id hash.Hash) ([]protocol.TreeEntry, error) {
	out, err := s.run(ctx, "ls-tree", "-z", "--full-tree", id.String())
	if err != nil {
		return nil, s.objectError(ctx, id, err)
	}
	return parseListing(out)
}

// ListTree lists dir of commit with a single ls-tree call. Failures are
// classified by walking the tree.
func (s *Store) ListTree(ctx context.Context, commit hash.Hash, dir string) ([]protocol.TreeEntry, error) {
	dir = strings.Trim(dir, "/")
	out, err := s.run(ctx, "ls-tree", "-z", "--full-tree", commit.String()+":"+dir)
	if err == nil {
		return parseListing(out)
	}

	c, cerr := s.ReadCommit(ctx, commit)
	if cerr != nil {
		return nil, cerr
	}
	if _, terr := objectstore.TreeAt(ctx, s, c.Tree, dir); terr != nil {
		return nil, terr
	}
	return nil, fmt.Errorf("list %s:%s: %w", commit, dir, err)
}

func (s *Store) WriteCommit(ctx context.Context, req objectstore.CommitRequest) (hash.Hash, error) {
	if err := req.Author.Validate(); err != nil {
		return nil, fmt.Errorf("author: %w", err)
	}
	if err := req.Committer.Validate(); err != nil {
		return nil, fmt.Errorf("committer: %w", err)
	}

	args := []string{"commit-tree", "--no-gpg-sign", req.Tree.String()}
	for _, p := range req.Parents {
		args = append(args, "-p", p.String())
	}

	out, err := s.exec(ctx, command{
		args:  args,
		stdin: []byte(req.Message),
		env:   identityEnv(req.Author, req.Committer),
	})
	if err != nil {
		return nil, fmt.Errorf("write commit: %w", err)
	}
	return hash.FromHex(string(out))
}

func (s *Store) ReadCommit(ctx context.Context, id hash.Hash) (*protocol.Commit, error) {
	out, err := s.run(ctx, "cat-file", "commit", id.String())
	if err != nil {
		return nil, s.objectError(ctx, id, err)
	}
	return protocol.DecodeCommit(out)
}

func (s *Store) Resolve(ctx context.Context, rev string) (hash.Hash, error) {
	rev = strings.TrimSpace(rev)
	if rev == "" || strings.HasPrefix(rev, "-") {
		return nil, objectstore.NewNotACommitError(rev)
	}

	out, err := s.run(ctx, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		if errors.Is(err, objectstore.ErrNotARepository) {
			return nil, err
		}
		return nil, objectstore.NewNotACommitError(rev)
	}
	return hash.FromHex(string(out))
}

func (s *Store) ReadRef(ctx context.Context, name string) (hash.Hash, error) {
	refs, err := s.forEachRef(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, ref := range refs {
		if ref.Name == name {
			return ref.Hash, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", objectstore.ErrRefNotFound, name)
}

func (s *Store) UpdateRef(ctx context.Context, name string, next, prev hash.Hash) error {
	if err := protocol.CheckRefFormat(name); err != nil {
		return err
	}
	if !strings.HasPrefix(name, "refs/") {
		return fmt.Errorf("%w: %s", protocol.ErrInvalidRefName, name)
	}

	old := hash.SentinelHex
	if prev != nil {
		old = prev.String()
	}

	err := retry.DoVoid(ctx, func() error {
		_, err := s.run(ctx, "update-ref", "--no-deref", name, next.String(), old)
		return err
	})
	if errors.Is(err, objectstore.ErrRefConflict) {
		actual, _ := s.ReadRef(ctx, name)
		return objectstore.NewRefConflictError(name, prev, actual)
	}
	if err != nil {
		return fmt.Errorf("update ref %s: %w", name, err)
	}
	return nil
}

func (s *Store) DeleteRef(ctx context.Context, name string) error {
	current, err := s.ReadRef(ctx, name)
	if err != nil {
		return err
	}

	err = retry.DoVoid(ctx, func() error {
		_, err := s.run(ctx, "update-ref", "--no-deref", "-d", name, current.String())
		return err
	})
	if errors.Is(err, objectstore.ErrRefConflict) {
		actual, _ := s.ReadRef(ctx, name)
		return objectstore.NewRefConflictError(name, current, actual)
	}
	if err != nil {
		return fmt.Errorf("delete ref %s: %w", name, err)
	}
	return nil
}

func (s *Store) ListRefs(ctx context.Context, prefix string) ([]objectstore.Ref, error) {
	refs, err := s.forEachRef(ctx)
	if err != nil {
		return nil, err
	}

	out := refs[:0]
	for _, ref := range refs {
		if strings.HasPrefix(ref.Name, prefix) {
			out = append(out, ref)
		}
	}
	return out, nil
}

// forEachRef lists refs matching patterns, sorted by name.
func (s *Store) forEachRef(ctx context.Context, patterns ...string) ([]objectstore.Ref, error) {
	args := append([]string{"for-each-ref", "--format=%(objectname) %(refname)"}, patterns...)
	out, err := s.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}

	var refs []objectstore.Ref
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		hex, name, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("unexpected for-each-ref line %q", line)
		}
		id, err := hash.FromHex(hex)
		if err != nil {
			return nil, err
		}
		refs = append(refs, objectstore.Ref{Name: name, Hash: id})
	}
	return refs, nil
}

// objectError turns a failed object read into ErrObjectNotFound when the
// object does not exist.
func (s *Store) objectError(ctx context.Context, id hash.Hash, err error) error {
	if errors.Is(err, objectstore.ErrNotARepository) {
		return err
	}
	if _, existsErr := s.run(ctx, "cat-file", "-e", id.String()); existsErr != nil {
		return objectstore.NewObjectNotFoundError(id)
	}
	return fmt.Errorf("read object %s: %w", id, err)
}

func parseListing(out []byte) ([]protocol.TreeEntry, error) {
	var entries []protocol.TreeEntry
	for _, record := range bytes.Split(out, []byte{0}) {
		if len(record) == 0 {
			continue
		}
		e, err := protocol.ParseTreeLine(string(record))
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

var (
	_ objectstore.Store      = (*Store)(nil)
	_ objectstore.TreeLister = (*Store)(nil)
	_ objectstore.BlobSizer  = (*Store)(nil)
)

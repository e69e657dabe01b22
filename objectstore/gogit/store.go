// Package gogit implements objectstore.Store in process with go-git, over
// either an on-disk repository or memory storage.
package gogit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	gitstorage "github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/grafana/changeset/log"
	"github.com/grafana/changeset/objectstore"
	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/hash"
)

// Store implements objectstore.Store with go-git.
type Store struct {
	repo *git.Repository
	// refs serializes compare-and-swap ref updates issued through this Store.
	refs sync.Mutex
}

// Open opens the repository containing path.
func Open(path string) (*Store, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w: %s", objectstore.ErrNotARepository, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}
	return New(repo), nil
}

// NewInMemory returns a Store over an empty bare repository held in memory.
func NewInMemory() (*Store, error) {
	repo, err := git.Init(memory.NewStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("init in-memory repository: %w", err)
	}
	return New(repo), nil
}

// New wraps an already opened repository.
func New(repo *git.Repository) *Store {
	return &Store{repo: repo}
}

func (s *Store) WriteBlob(ctx context.Context, content []byte) (hash.Hash, error) {
	return s.writeObject(plumbing.BlobObject, content)
}

func (s *Store) ReadBlob(ctx context.Context, id hash.Hash) ([]byte, error) {
	return s.readTyped(id, plumbing.BlobObject)
}

func (s *Store) BlobSize(ctx context.Context, id hash.Hash) (int64, error) {
	obj, err := s.repo.Storer.EncodedObject(plumbing.BlobObject, toPlumbing(id))
	if err != nil {
		return 0, s.objectError(id, err)
	}
	return obj.Size(), nil
}

func (s *Store) WriteTree(ctx context.Context, entries []protocol.TreeEntry) (hash.Hash, error) {
	for _, e := range entries {
		if e.Name == "" || strings.ContainsAny(e.Name, "/\x00") {
			return nil, fmt.Errorf("%w: invalid entry name %q", protocol.ErrMalformedTree, e.Name)
		}
	}
	return s.writeObject(plumbing.TreeObject, protocol.EncodeTree(entries))
}

func (s *Store) ReadTree(ctx context.Context, id hash.Hash) ([]protocol.TreeEntry, error) {
	data, err := s.readTyped(id, plumbing.TreeObject)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeTree(data, hash.Algorithm.Size())
}

func (s *Store) WriteCommit(ctx context.Context, req objectstore.CommitRequest) (hash.Hash, error) {
	if err := req.Author.Validate(); err != nil {
		return nil, fmt.Errorf("author: %w", err)
	}
	if err := req.Committer.Validate(); err != nil {
		return nil, fmt.Errorf("committer: %w", err)
	}

	c := &protocol.Commit{
		Tree:      req.Tree,
		Parents:   req.Parents,
		Author:    req.Author,
		Committer: req.Committer,
		Message:   req.Message,
	}
	return s.writeObject(plumbing.CommitObject, c.Encode())
}

func (s *Store) ReadCommit(ctx context.Context, id hash.Hash) (*protocol.Commit, error) {
	data, err := s.readTyped(id, plumbing.CommitObject)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeCommit(data)
}

func (s *Store) Resolve(ctx context.Context, rev string) (hash.Hash, error) {
	rev = strings.TrimSpace(rev)
	if rev == "" {
		return nil, objectstore.NewNotACommitError(rev)
	}

	var resolved plumbing.Hash
	if plumbing.IsHash(rev) {
		resolved = plumbing.NewHash(rev)
	} else {
		h, err := s.repo.ResolveRevision(plumbing.Revision(rev))
		if err != nil {
			return nil, objectstore.NewNotACommitError(rev)
		}
		resolved = *h
	}

	obj, err := s.repo.Storer.EncodedObject(plumbing.AnyObject, resolved)
	if err != nil || obj.Type() != plumbing.CommitObject {
		return nil, objectstore.NewNotACommitError(rev)
	}
	return fromPlumbing(resolved), nil
}

func (s *Store) ReadRef(ctx context.Context, name string) (hash.Hash, error) {
	ref, err := s.repo.Storer.Reference(plumbing.ReferenceName(name))
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, fmt.Errorf("%w: %s", objectstore.ErrRefNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read ref %s: %w", name, err)
	}
	if ref.Type() != plumbing.HashReference {
		return nil, fmt.Errorf("read ref %s: symbolic ref to %s", name, ref.Target())
	}
	return fromPlumbing(ref.Hash()), nil
}

func (s *Store) UpdateRef(ctx context.Context, name string, next, prev hash.Hash) error {
	if err := protocol.CheckRefFormat(name); err != nil {
		return err
	}
	if !strings.HasPrefix(name, "refs/") {
		return fmt.Errorf("%w: %s", protocol.ErrInvalidRefName, name)
	}
	if _, err := s.repo.Storer.EncodedObject(plumbing.AnyObject, toPlumbing(next)); err != nil {
		return fmt.Errorf("update ref %s: %w", name, s.objectError(next, err))
	}

	s.refs.Lock()
	defer s.refs.Unlock()

	refName := plumbing.ReferenceName(name)
	current, err := s.repo.Storer.Reference(refName)
	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		current = nil
	case err != nil:
		return fmt.Errorf("read ref %s: %w", name, err)
	}

	var actual hash.Hash
	if current != nil {
		actual = fromPlumbing(current.Hash())
	}
	if !actual.Is(prev) {
		return objectstore.NewRefConflictError(name, prev, actual)
	}

	updated := plumbing.NewHashReference(refName, toPlumbing(next))
	if current == nil {
		err = s.repo.Storer.SetReference(updated)
	} else {
		err = s.repo.Storer.CheckAndSetReference(updated, current)
	}
	if errors.Is(err, gitstorage.ErrReferenceHasChanged) {
		return objectstore.NewRefConflictError(name, prev, nil)
	}
	if err != nil {
		return fmt.Errorf("update ref %s: %w", name, err)
	}

	log.FromContextOr(ctx, nil).Debug("Ref updated", "ref", name, "from", prev.String(), "to", next.String())
	return nil
}

func (s *Store) DeleteRef(ctx context.Context, name string) error {
	s.refs.Lock()
	defer s.refs.Unlock()

	refName := plumbing.ReferenceName(name)
	if _, err := s.repo.Storer.Reference(refName); err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return fmt.Errorf("%w: %s", objectstore.ErrRefNotFound, name)
		}
		return fmt.Errorf("read ref %s: %w", name, err)
	}

	if err := s.repo.Storer.RemoveReference(refName); err != nil {
		return fmt.Errorf("delete ref %s: %w", name, err)
	}
	return nil
}

func (s *Store) ListRefs(ctx context.Context, prefix string) ([]objectstore.Ref, error) {
	iter, err := s.repo.Storer.IterReferences()
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	defer iter.Close()

	var refs []objectstore.Ref
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().String()
		if ref.Type() != plumbing.HashReference || !strings.HasPrefix(name, "refs/") || !strings.HasPrefix(name, prefix) {
			return nil
		}
		refs = append(refs, objectstore.Ref{Name: name, Hash: fromPlumbing(ref.Hash())})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}

	sortRefs(refs)
	return refs, nil
}

func (s *Store) writeObject(t plumbing.ObjectType, data []byte) (hash.Hash, error) {
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(t)
	obj.SetSize(int64(len(data)))

	writer, err := obj.Writer()
	if err != nil {
		return nil, fmt.Errorf("get object writer: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("write %s content: %w", t, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close %s writer: %w", t, err)
	}

	id, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return nil, fmt.Errorf("store %s object: %w", t, err)
	}
	return fromPlumbing(id), nil
}

func (s *Store) readTyped(id hash.Hash, t plumbing.ObjectType) ([]byte, error) {
	obj, err := s.repo.Storer.EncodedObject(plumbing.AnyObject, toPlumbing(id))
	if err != nil {
		return nil, s.objectError(id, err)
	}
	if obj.Type() != t {
		return nil, fmt.Errorf("object %s is a %s, not a %s", id, obj.Type(), t)
	}

	reader, err := obj.Reader()
	if err != nil {
		return nil, fmt.Errorf("open %s %s: %w", t, id, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", t, id, err)
	}
	return data, nil
}

func (s *Store) objectError(id hash.Hash, err error) error {
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return objectstore.NewObjectNotFoundError(id)
	}
	return fmt.Errorf("read object %s: %w", id, err)
}

func toPlumbing(id hash.Hash) plumbing.Hash {
	var h plumbing.Hash
	copy(h[:], id)
	return h
}

func fromPlumbing(h plumbing.Hash) hash.Hash {
	out := make(hash.Hash, len(h))
	copy(out, h[:])
	return out
}

func sortRefs(refs []objectstore.Ref) {
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
}

var (
	_ objectstore.Store     = (*Store)(nil)
	_ objectstore.BlobSizer = (*Store)(nil)
)

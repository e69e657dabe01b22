// Package kvstore is a native object store persisted in a storage.Backend.
//
// Objects are kept in Git's loose object encoding, "<type> <size>\0<data>"
// deflated with zlib, under "objects/<hex>". Refs are kept under their full
// name with the hex id as value, and HEAD either holds "ref: <name>" or an id.
// Ids are computed exactly as Git computes them, so trees and commits written
// here are interchangeable with those of any Git repository.
package kvstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zlib"

	"github.com/grafana/changeset/log"
	"github.com/grafana/changeset/objectstore"
	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/hash"
	"github.com/grafana/changeset/protocol/object"
	"github.com/grafana/changeset/storage"
)

const (
	objectsPrefix    = "objects/"
	refsPrefix       = "refs/"
	headKey          = "HEAD"
	symrefPrefix     = "ref: "
	defaultBranch    = "refs/heads/main"
	defaultCacheSize = 4096
)

type rawObject struct {
	typ  object.Type
	data []byte
}

// Store implements objectstore.Store over a key/value backend.
type Store struct {
	backend storage.Backend
	cache   *lru.Cache[string, rawObject]
}

// Option configures a Store.
type Option func(*options) error

type options struct {
	cacheSize int
}

// WithCacheSize sets how many inflated objects are kept in memory.
func WithCacheSize(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("cache size must be positive, got %d", n)
		}
		o.cacheSize = n
		return nil
	}
}

// New returns a Store persisting into backend.
func New(backend storage.Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}

	o := &options{cacheSize: defaultCacheSize}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	cache, err := lru.New[string, rawObject](o.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create object cache: %w", err)
	}

	return &Store{backend: backend, cache: cache}, nil
}

// NewInMemory returns a Store over a fresh in-memory backend.
func NewInMemory() *Store {
	s, err := New(storage.NewInMemory())
	if err != nil {
		// Only invalid options fail.
		panic(err)
	}
	return s
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) WriteBlob(ctx context.Context, content []byte) (hash.Hash, error) {
	return s.writeObject(ctx, object.TypeBlob, content)
}

func (s *Store) ReadBlob(ctx context.Context, id hash.Hash) ([]byte, error) {
	return s.readTyped(ctx, id, object.TypeBlob)
}

func (s *Store) BlobSize(ctx context.Context, id hash.Hash) (int64, error) {
	data, err := s.readTyped(ctx, id, object.TypeBlob)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func (s *Store) WriteTree(ctx context.Context, entries []protocol.TreeEntry) (hash.Hash, error) {
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Name == "" || strings.ContainsAny(e.Name, "/\x00") {
			return nil, fmt.Errorf("%w: invalid entry name %q", protocol.ErrMalformedTree, e.Name)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("%w: duplicate entry %q", protocol.ErrMalformedTree, e.Name)
		}
		seen[e.Name] = true
	}
	return s.writeObject(ctx, object.TypeTree, protocol.EncodeTree(entries))
}

func (s *Store) ReadTree(ctx context.Context, id hash.Hash) ([]protocol.TreeEntry, error) {
	data, err := s.readTyped(ctx, id, object.TypeTree)
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
	return s.writeObject(ctx, object.TypeCommit, c.Encode())
}

func (s *Store) ReadCommit(ctx context.Context, id hash.Hash) (*protocol.Commit, error) {
	data, err := s.readTyped(ctx, id, object.TypeCommit)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeCommit(data)
}

// Resolve accepts a full hex id, HEAD, a full ref name or a name under
// refs/, refs/heads/ or refs/tags/.
func (s *Store) Resolve(ctx context.Context, rev string) (hash.Hash, error) {
	rev = strings.TrimSpace(rev)
	if rev == "" {
		return nil, objectstore.NewNotACommitError(rev)
	}

	if rev == headKey {
		id, err := s.head(ctx)
		if err != nil {
			return nil, err
		}
		return s.commitOrFail(ctx, rev, id)
	}

	if len(rev) == hash.Algorithm.Size()*2 {
		if id, err := hash.FromHex(rev); err == nil {
			return s.commitOrFail(ctx, rev, id)
		}
	}

	for _, name := range []string{rev, refsPrefix + rev, "refs/heads/" + rev, "refs/tags/" + rev} {
		if !strings.HasPrefix(name, refsPrefix) {
			continue
		}
		id, err := s.ReadRef(ctx, name)
		if errors.Is(err, objectstore.ErrRefNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return s.commitOrFail(ctx, rev, id)
	}

	return nil, objectstore.NewNotACommitError(rev)
}

func (s *Store) commitOrFail(ctx context.Context, rev string, id hash.Hash) (hash.Hash, error) {
	obj, err := s.readObject(ctx, id)
	if errors.Is(err, objectstore.ErrObjectNotFound) || (err == nil && obj.typ != object.TypeCommit) {
		return nil, objectstore.NewNotACommitError(rev)
	}
	if err != nil {
		return nil, err
	}
	return id, nil
}

// SetHead points HEAD at the ref target. HEAD defaults to refs/heads/main.
func (s *Store) SetHead(ctx context.Context, target string) error {
	if err := protocol.CheckRefFormat(target); err != nil {
		return err
	}
	return s.backend.Put(ctx, headKey, []byte(symrefPrefix+target))
}

// head returns the commit HEAD points at, or ErrNotACommit when HEAD is unborn.
func (s *Store) head(ctx context.Context) (hash.Hash, error) {
	target := defaultBranch
	value, err := s.backend.Get(ctx, headKey)
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
	case err != nil:
		return nil, fmt.Errorf("read HEAD: %w", err)
	case strings.HasPrefix(string(value), symrefPrefix):
		target = strings.TrimSpace(strings.TrimPrefix(string(value), symrefPrefix))
	default:
		return hash.FromHex(string(value))
	}

	id, err := s.ReadRef(ctx, target)
	if errors.Is(err, objectstore.ErrRefNotFound) {
		return nil, objectstore.NewNotACommitError(headKey)
	}
	return id, err
}

func (s *Store) ReadRef(ctx context.Context, name string) (hash.Hash, error) {
	if !strings.HasPrefix(name, refsPrefix) {
		return nil, fmt.Errorf("%w: %s", protocol.ErrInvalidRefName, name)
	}

	value, err := s.backend.Get(ctx, name)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", objectstore.ErrRefNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read ref %s: %w", name, err)
	}
	return hash.FromHex(string(value))
}

func (s *Store) UpdateRef(ctx context.Context, name string, next, prev hash.Hash) error {
	if !strings.HasPrefix(name, refsPrefix) {
		return fmt.Errorf("%w: %s", protocol.ErrInvalidRefName, name)
	}
	if err := protocol.CheckRefFormat(name); err != nil {
		return err
	}
	if _, err := s.readObject(ctx, next); err != nil {
		return fmt.Errorf("update ref %s: %w", name, err)
	}

	var expected []byte
	if prev != nil {
		expected = []byte(prev.String())
	}

	err := s.backend.CompareAndSwap(ctx, name, expected, []byte(next.String()))
	if errors.Is(err, storage.ErrConflict) {
		actual, _ := s.ReadRef(ctx, name)
		return objectstore.NewRefConflictError(name, prev, actual)
	}
	if err != nil {
		return fmt.Errorf("update ref %s: %w", name, err)
	}

	log.FromContextOr(ctx, nil).Debug("Ref updated", "ref", name, "from", prev.String(), "to", next.String())
	return nil
}

func (s *Store) DeleteRef(ctx context.Context, name string) error {
	current, err := s.backend.Get(ctx, name)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", objectstore.ErrRefNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("read ref %s: %w", name, err)
	}

	if err := s.backend.CompareAndSwap(ctx, name, current, nil); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			actual, _ := s.ReadRef(ctx, name)
			return objectstore.NewRefConflictError(name, hash.MustFromHex(string(current)), actual)
		}
		return fmt.Errorf("delete ref %s: %w", name, err)
	}
	return nil
}

func (s *Store) ListRefs(ctx context.Context, prefix string) ([]objectstore.Ref, error) {
	keys, err := s.backend.Keys(ctx, refsPrefix)
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}

	refs := make([]objectstore.Ref, 0, len(keys))
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		id, err := s.ReadRef(ctx, key)
		if errors.Is(err, objectstore.ErrRefNotFound) {
			// deleted since listing
			continue
		}
		if err != nil {
			return nil, err
		}
		refs = append(refs, objectstore.Ref{Name: key, Hash: id})
	}
	return refs, nil
}

func (s *Store) readTyped(ctx context.Context, id hash.Hash, want object.Type) ([]byte, error) {
	obj, err := s.readObject(ctx, id)
	if err != nil {
		return nil, err
	}
	if obj.typ != want {
		return nil, fmt.Errorf("object %s is a %s, not a %s", id, obj.typ.Name(), want.Name())
	}
	return obj.data, nil
}

func (s *Store) readObject(ctx context.Context, id hash.Hash) (rawObject, error) {
	key := objectsPrefix + id.String()
	if obj, ok := s.cache.Get(key); ok {
		return obj, nil
	}

	value, err := s.backend.Get(ctx, key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return rawObject{}, objectstore.NewObjectNotFoundError(id)
	}
	if err != nil {
		return rawObject{}, fmt.Errorf("read object %s: %w", id, err)
	}

	obj, err := inflate(value)
	if err != nil {
		return rawObject{}, fmt.Errorf("decode object %s: %w", id, err)
	}
	s.cache.Add(key, obj)
	return obj, nil
}

func (s *Store) writeObject(ctx context.Context, t object.Type, data []byte) (hash.Hash, error) {
	id := hash.Of(t, data)
	key := objectsPrefix + id.String()
	if s.cache.Contains(key) {
		return id, nil
	}

	value, err := deflate(t, data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", t.Name(), err)
	}
	if _, err := s.backend.PutIfAbsent(ctx, key, value); err != nil {
		return nil, fmt.Errorf("write %s %s: %w", t.Name(), id, err)
	}

	s.cache.Add(key, rawObject{typ: t, data: bytes.Clone(data)})
	return id, nil
}

func deflate(t object.Type, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := fmt.Fprintf(zw, "%s %d\x00", t.Name(), len(data)); err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(value []byte) (rawObject, error) {
	zr, err := zlib.NewReader(bytes.NewReader(value))
	if err != nil {
		return rawObject{}, err
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return rawObject{}, err
	}

	header, data, ok := bytes.Cut(raw, []byte{0})
	if !ok {
		return rawObject{}, errors.New("missing object header")
	}
	typeName, size, ok := strings.Cut(string(header), " ")
	if !ok {
		return rawObject{}, fmt.Errorf("malformed object header %q", header)
	}
	t, err := object.ParseType(typeName)
	if err != nil {
		return rawObject{}, err
	}
	n, err := strconv.Atoi(size)
	if err != nil || n != len(data) {
		return rawObject{}, fmt.Errorf("object size %q does not match content length %d", size, len(data))
	}
	return rawObject{typ: t, data: data}, nil
}

var (
	_ objectstore.Store     = (*Store)(nil)
	_ objectstore.BlobSizer = (*Store)(nil)
)

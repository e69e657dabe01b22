// Package objectstore defines the plumbing contract of a git-compatible
// object database: content addressed blobs, trees and commits plus a mutable
// ref namespace.
//
// Backends implement Store. History, tree walking, diff and notes helpers in
// this package work over any Store and defer to a backend's native
// implementation when it offers one (TreeLister, HistoryWalker, Differ, Noter).
package objectstore

import (
	"context"

	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/hash"
	"github.com/grafana/changeset/protocol/object"
)

// Ref is a named pointer to a commit.
type Ref struct {
	Name string
	Hash hash.Hash
}

// CommitRequest carries everything needed to write a commit object.
type CommitRequest struct {
	Tree      hash.Hash
	Parents   []hash.Hash
	Author    object.Identity
	Committer object.Identity
	Message   string
}

// Store is the object and ref plumbing every backend provides.
type Store interface {
	// WriteBlob stores content and returns its id.
	WriteBlob(ctx context.Context, content []byte) (hash.Hash, error)
	// ReadBlob returns the content of a blob.
	ReadBlob(ctx context.Context, id hash.Hash) ([]byte, error)
	// WriteTree stores a directory. Entries may come in any order.
	WriteTree(ctx context.Context, entries []protocol.TreeEntry) (hash.Hash, error)
	// ReadTree returns the entries of a tree in Git order.
	ReadTree(ctx context.Context, id hash.Hash) ([]protocol.TreeEntry, error)
	// WriteCommit stores a commit object.
	WriteCommit(ctx context.Context, req CommitRequest) (hash.Hash, error)
	// ReadCommit decodes a commit object.
	ReadCommit(ctx context.Context, id hash.Hash) (*protocol.Commit, error)
	// Resolve turns a revision (full id, ref name, branch name or HEAD) into
	// a commit id. Unknown revisions fail with ErrNotACommit.
	Resolve(ctx context.Context, rev string) (hash.Hash, error)

	// ReadRef returns the commit a full ref name points at, or ErrRefNotFound.
	ReadRef(ctx context.Context, name string) (hash.Hash, error)
	// UpdateRef points name at next if it currently points at prev. A nil
	// prev requires the ref to be absent. Losing the race yields ErrRefConflict.
	UpdateRef(ctx context.Context, name string, next, prev hash.Hash) error
	// DeleteRef removes name. Missing refs yield ErrRefNotFound.
	DeleteRef(ctx context.Context, name string) error
	// ListRefs returns refs whose full name starts with prefix, sorted by name.
	ListRefs(ctx context.Context, prefix string) ([]Ref, error)
}

// TreeLister is implemented by stores that can list a directory of a commit directly.
type TreeLister interface {
	// ListTree returns the immediate entries of dir (root is "") in the tree of commit.
	ListTree(ctx context.Context, commit hash.Hash, dir string) ([]protocol.TreeEntry, error)
}

// BlobSizer is implemented by stores that know a blob's size without reading it.
type BlobSizer interface {
	BlobSize(ctx context.Context, id hash.Hash) (int64, error)
}

// Snapshot is a commit capturing a working copy. Release must be called
// once the commit has been referenced or abandoned; it restores every piece
// of working copy state touched while capturing.
type Snapshot interface {
	Commit() hash.Hash
	Release() error
}

// WorkingCopy is implemented by stores attached to a checked out work tree.
type WorkingCopy interface {
	// Snapshot captures tracked and untracked files, honouring ignore rules,
	// into a commit whose parent is HEAD. The index and files are not changed.
	Snapshot(ctx context.Context, message string, author, committer object.Identity) (Snapshot, error)
	// IsIgnored reports whether path matches the ignore rules.
	IsIgnored(ctx context.Context, path string) (bool, error)
	// Root returns the path from dir to the top of the work tree.
	Root(ctx context.Context, dir string) (string, error)
}

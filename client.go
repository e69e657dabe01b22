// Package changeset keeps named, durable changesets of a filesystem tree on
// top of a git-compatible object store.
//
// Every changeset is a primary ref plus an optional shadow ref holding edits
// that were not promoted yet. File operations never touch the working
// checkout: they load the directories they need from the changeset's base
// commit, edit them in memory, write the changed trees bottom-up and move a
// ref with a compare-and-swap. Concurrent writers to one changeset lose with
// ErrRefConflict instead of silently dropping an edit.
package changeset

import (
	"context"
	"errors"
	"time"

	"github.com/grafana/changeset/log"
	"github.com/grafana/changeset/objectstore"
	"github.com/grafana/changeset/patch"
	"github.com/grafana/changeset/protocol/hash"
)

const (
	// StartMessage is the message of the commit a changeset starts from.
	StartMessage = "[changeset-start]"

	// PendingMessage is used for edits committed without a message.
	PendingMessage = "[changeset-pending]"

	// DefaultPrimaryNamespace holds the primary ref of each changeset.
	DefaultPrimaryNamespace = "refs/heads/"

	// DefaultShadowNamespace holds the shadow ref of each changeset.
	DefaultShadowNamespace = "refs/changesets/shadow/"
)

// Client reads and edits changesets.
//
// File operations take the changeset name first. Mutating operations create
// the changeset on first use, starting from the working checkout when the
// store has one and from HEAD otherwise.
type Client interface {
	// Changeset lifecycle
	Ensure(ctx context.Context, name string) error
	State(ctx context.Context, name string) (State, error)
	Promote(ctx context.Context, name string) error
	Discard(ctx context.Context, name string) error
	ListChangesets(ctx context.Context) ([]string, error)
	RemoveChangeset(ctx context.Context, name string) error

	// File operations
	ReadFile(ctx context.Context, name, path string) ([]byte, error)
	WriteFile(ctx context.Context, name, path string, content []byte, opts ...EditOption) (hash.Hash, error)
	Mkdir(ctx context.Context, name, path string, opts ...EditOption) (hash.Hash, error)
	Unlink(ctx context.Context, name, path string, opts ...EditOption) (hash.Hash, error)
	Copy(ctx context.Context, name, src, dst string, opts ...EditOption) (hash.Hash, error)
	Rename(ctx context.Context, name, src, dst string, opts ...EditOption) (hash.Hash, error)
	ReadDir(ctx context.Context, name, path string) ([]DirEntry, error)
	FileType(ctx context.Context, name, path string) (EntryType, error)
	FileSize(ctx context.Context, name, path string) (int64, error)
	LastModified(ctx context.Context, name, path string) (time.Time, error)
	Stat(ctx context.Context, name, path string) (*FileInfo, error)

	// Commit utilities
	ListCommits(ctx context.Context, rev string) ([]CommitInfo, error)
	DiffCommits(ctx context.Context, left, right string) (*CommitDiff, error)
	ReadCommit(ctx context.Context, rev string, opts ...ReadCommitOption) ([]string, error)
	CommitFromDiffs(ctx context.Context, parent string, diffs []string, opts ...EditOption) (hash.Hash, error)
	ApplyDiffs(ctx context.Context, name string, diffs []string, opts ...EditOption) (hash.Hash, error)
	FindCommonBase(ctx context.Context, a, b string) (hash.Hash, error)
	ParentOf(ctx context.Context, rev string) (hash.Hash, error)
	PendingCommit(ctx context.Context, name string) (hash.Hash, error)
	ChangesetsContaining(ctx context.Context, rev string) ([]string, error)

	// Annotations
	Annotate(ctx context.Context, rev, namespace, note string) error
	ReadAnnotation(ctx context.Context, rev, namespace string) (string, bool, error)
	ClearAnnotation(ctx context.Context, rev, namespace string) error

	// Working copy
	IsIgnored(ctx context.Context, path string) (bool, error)
	RepoRoot(ctx context.Context, dir string) (string, error)
}

// Author names who made an edit. Times come from the client's clock.
type Author struct {
	Name  string
	Email string
}

// Committer names who recorded an edit. It defaults to the author.
type Committer struct {
	Name  string
	Email string
}

var _ Client = (*clientImpl)(nil)

// clientImpl is the private implementation of the Client interface.
type clientImpl struct {
	store   objectstore.Store
	logger  log.Logger
	patcher patch.Patcher
	clock   func() time.Time

	author    *Author
	committer *Committer

	primaryNS    string
	shadowNS     string
	notesNS      string
	shadowWrites bool
}

// NewClient returns a Client over store.
func NewClient(store objectstore.Store, opts ...Option) (Client, error) {
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}

	c := &clientImpl{
		store:     store,
		logger:    log.Noop(),
		patcher:   patch.InProcess{},
		clock:     time.Now,
		primaryNS: DefaultPrimaryNamespace,
		shadowNS:  DefaultShadowNamespace,
		notesNS:   objectstore.DefaultNotesNamespace,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// loggerFor prefers a logger carried by ctx over the configured one.
func (c *clientImpl) loggerFor(ctx context.Context) log.Logger {
	return log.FromContextOr(ctx, c.logger)
}

package objectstore

import (
	"errors"
	"fmt"

	"github.com/grafana/changeset/protocol/hash"
	"github.com/grafana/changeset/retry"
)

var (
	// ErrNotARepository is returned when the store is not backed by a valid repository.
	ErrNotARepository = errors.New("not a git repository")

	// ErrObjectNotFound is returned when a blob, tree or commit does not exist.
	ErrObjectNotFound = errors.New("object not found")

	// ErrRefNotFound is returned when a ref does not exist.
	ErrRefNotFound = errors.New("ref not found")

	// ErrRefConflict is returned when a ref no longer holds the value an update expected.
	ErrRefConflict = errors.New("ref changed concurrently")

	// ErrNotACommit is returned when a revision does not resolve to a commit.
	ErrNotACommit = errors.New("not a commit")

	// ErrPathNotFound is returned when a path does not exist in a tree.
	ErrPathNotFound = errors.New("path not found")

	// ErrNotADirectory is returned when a path component names a file instead of a tree.
	ErrNotADirectory = errors.New("not a directory")

	// ErrNoMergeBase is returned when two commits share no ancestor.
	ErrNoMergeBase = errors.New("no common ancestor")

	// ErrTransient marks failures worth retrying, such as lock contention.
	ErrTransient = retry.ErrTransient

	// ErrUnsupported is returned for capabilities a backend does not offer.
	ErrUnsupported = errors.New("operation not supported by this store")
)

// ObjectNotFoundError provides structured information about a missing object.
type ObjectNotFoundError struct {
	ObjectID string
	Err      error
}

func (e *ObjectNotFoundError) Error() string {
	return fmt.Sprintf("object %s not found: %v", e.ObjectID, e.Err)
}

func (e *ObjectNotFoundError) Unwrap() error {
	return e.Err
}

// NewObjectNotFoundError creates a new ObjectNotFoundError for id.
func NewObjectNotFoundError(id hash.Hash) *ObjectNotFoundError {
	return &ObjectNotFoundError{
		ObjectID: id.String(),
		Err:      ErrObjectNotFound,
	}
}

// RefConflictError describes a compare-and-swap ref update that lost a race.
type RefConflictError struct {
	Ref      string
	Expected hash.Hash
	Actual   hash.Hash
	Err      error
}

func (e *RefConflictError) Error() string {
	return fmt.Sprintf("ref %s expected at %q but found %q: %v", e.Ref, e.Expected, e.Actual, e.Err)
}

func (e *RefConflictError) Unwrap() error {
	return e.Err
}

// NewRefConflictError creates a new RefConflictError.
func NewRefConflictError(ref string, expected, actual hash.Hash) *RefConflictError {
	return &RefConflictError{
		Ref:      ref,
		Expected: expected,
		Actual:   actual,
		Err:      ErrRefConflict,
	}
}

// PathError ties a path to ErrPathNotFound or ErrNotADirectory.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// NewPathNotFoundError creates a PathError wrapping ErrPathNotFound.
func NewPathNotFoundError(path string) *PathError {
	return &PathError{Path: path, Err: ErrPathNotFound}
}

// NewNotADirectoryError creates a PathError wrapping ErrNotADirectory.
func NewNotADirectoryError(path string) *PathError {
	return &PathError{Path: path, Err: ErrNotADirectory}
}

// NewNotACommitError wraps ErrNotACommit with the offending revision.
func NewNotACommitError(rev string) error {
	return fmt.Errorf("%w: %s", ErrNotACommit, rev)
}

func isPathError(err error) bool {
	return errors.Is(err, ErrPathNotFound) || errors.Is(err, ErrNotADirectory)
}

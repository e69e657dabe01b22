package changeset

import (
	"errors"
	"fmt"

	"github.com/grafana/changeset/objectstore"
	"github.com/grafana/changeset/patch"
)

var (
	// ErrNotAGitRepository is returned when the store is not backed by a valid repository.
	ErrNotAGitRepository = objectstore.ErrNotARepository

	// ErrNotADirectory is returned when a directory does not exist or a path
	// component names a file.
	ErrNotADirectory = objectstore.ErrNotADirectory

	// ErrNotACommit is returned when a revision does not resolve to a commit.
	ErrNotACommit = objectstore.ErrNotACommit

	// ErrPathNotFound is returned when a file or directory does not exist in a changeset.
	ErrPathNotFound = objectstore.ErrPathNotFound

	// ErrRefConflict is returned when a changeset moved while an operation was running.
	// Nothing was changed and the operation can be retried.
	ErrRefConflict = objectstore.ErrRefConflict

	// ErrPatchRejected is returned when a diff does not apply to its original content.
	ErrPatchRejected = patch.ErrRejected

	// ErrSourceNotFound is returned when the source of a copy has no object to copy.
	ErrSourceNotFound = errors.New("copy source not found")

	// ErrInvalidPath is returned for paths that cannot name an entry of a tree.
	ErrInvalidPath = errors.New("invalid path")

	// ErrInvalidChangesetName is returned for names that cannot form a ref.
	ErrInvalidChangesetName = errors.New("invalid changeset name")

	// ErrChangesetNotFound is returned when reading a changeset that was never written.
	ErrChangesetNotFound = errors.New("changeset not found")

	// ErrMissingIdentity is returned when a commit is requested without an author.
	ErrMissingIdentity = errors.New("no author configured")

	// ErrNoPendingCommit is returned when a changeset has no shadow commit ahead of its primary ref.
	ErrNoPendingCommit = errors.New("no pending commit")

	// ErrIsADirectory is returned when a file operation targets a directory.
	ErrIsADirectory = errors.New("is a directory")

	// ErrAlreadyExists is returned when creating a directory over an existing entry.
	ErrAlreadyExists = errors.New("already exists")
)

// PatchError describes a diff that could not be applied during reconstruction.
type PatchError = patch.Error

// PathError provides structured information about a path an operation failed on.
// It supports errors.Is for the underlying sentinel.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// NewPathError creates a new PathError.
func NewPathError(op, path string, err error) *PathError {
	return &PathError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// InvalidPathError provides structured information about a rejected path.
type InvalidPathError struct {
	Path   string
	Reason string
	Err    error
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

func (e *InvalidPathError) Unwrap() error {
	return e.Err
}

// NewInvalidPathError creates a new InvalidPathError.
func NewInvalidPathError(path, reason string) *InvalidPathError {
	return &InvalidPathError{
		Path:   path,
		Reason: reason,
		Err:    ErrInvalidPath,
	}
}

// ChangesetError ties a changeset name to ErrInvalidChangesetName,
// ErrChangesetNotFound or ErrNoPendingCommit.
type ChangesetError struct {
	Name string
	Err  error
}

func (e *ChangesetError) Error() string {
	return fmt.Sprintf("changeset %q: %v", e.Name, e.Err)
}

func (e *ChangesetError) Unwrap() error {
	return e.Err
}

// NewChangesetError creates a new ChangesetError.
func NewChangesetError(name string, err error) *ChangesetError {
	return &ChangesetError{
		Name: name,
		Err:  err,
	}
}

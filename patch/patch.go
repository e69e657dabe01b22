// Package patch applies parsed unified diffs to file content, either in
// process or through the patch(1) program.
package patch

import (
	"context"
	"fmt"

	"github.com/grafana/changeset/protocol/diff"
)

// ErrRejected is wrapped by every Error: a hunk did not apply.
var ErrRejected = diff.ErrRejected

// Patcher applies one file's diff to its original content. original is
// empty for creations.
//
//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -o ../mocks/patcher.go . Patcher
type Patcher interface {
	Apply(ctx context.Context, f *diff.FileDiff, original []byte) ([]byte, error)
}

// Error describes a diff that could not be applied.
type Error struct {
	Path   string
	Output string
	Err    error
}

func (e *Error) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("patch %s: %v: %s", e.Path, e.Err, e.Output)
	}
	return fmt.Sprintf("patch %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error for path. A nil err defaults to ErrRejected.
func NewError(path, output string, err error) *Error {
	if err == nil {
		err = ErrRejected
	}
	return &Error{Path: path, Output: output, Err: err}
}

// InProcess applies hunks exactly, without fuzz or offset search.
type InProcess struct{}

func (InProcess) Apply(_ context.Context, f *diff.FileDiff, original []byte) ([]byte, error) {
	out, err := f.Apply(original)
	if err != nil {
		return nil, NewError(f.TargetPath(), "", err)
	}
	return out, nil
}

var _ Patcher = InProcess{}

package gitcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/grafana/changeset/log"
	"github.com/grafana/changeset/objectstore"
	"github.com/grafana/changeset/protocol/object"
)

// ErrCommandFailed is wrapped by every StoreError that maps to no more specific error.
var ErrCommandFailed = errors.New("git command failed")

// StoreError carries the diagnostics of a failed git invocation.
type StoreError struct {
	Op       string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *StoreError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("git %s (exit %d): %s", e.Op, e.ExitCode, msg)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// command is one git invocation.
type command struct {
	args  []string
	stdin []byte
	env   []string
	dir   string
}

// run executes git with args in the repository directory and returns stdout.
func (s *Store) run(ctx context.Context, args ...string) ([]byte, error) {
	return s.exec(ctx, command{args: args})
}

func (s *Store) exec(ctx context.Context, c command) ([]byte, error) {
	logger := log.FromContextOr(ctx, nil)
	dir := c.dir
	if dir == "" {
		dir = s.dir
	}

	cmd := exec.CommandContext(ctx, s.binary, c.args...) //nolint:gosec // arguments are built by this package
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), baseEnv...)
	cmd.Env = append(cmd.Env, s.env...)
	cmd.Env = append(cmd.Env, c.env...)
	if c.stdin != nil {
		cmd.Stdin = bytes.NewReader(c.stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	logger.Debug("git", "args", c.args, "dir", dir, "duration", time.Since(start))
	if err == nil {
		return stdout.Bytes(), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	storeErr := &StoreError{Args: c.args, ExitCode: -1, Stderr: stderr.String(), Err: err}
	if len(c.args) > 0 {
		storeErr.Op = c.args[0]
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		storeErr.ExitCode = exitErr.ExitCode()
		storeErr.Err = classify(storeErr.ExitCode, storeErr.Stderr)
	}
	return stdout.Bytes(), storeErr
}

// baseEnv keeps git from prompting and its messages stable for classify.
var baseEnv = []string{
	"GIT_TERMINAL_PROMPT=0",
	"LC_ALL=C",
	"LANGUAGE=C",
}

func classify(code int, stderr string) error {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "not a git repository"):
		return objectstore.ErrNotARepository
	case strings.Contains(lower, ".lock': file exists"), strings.Contains(lower, "index.lock"):
		return objectstore.ErrTransient
	case strings.Contains(lower, "cannot lock ref"):
		return objectstore.ErrRefConflict
	case code == 128 && (strings.Contains(lower, "not a valid object name") || strings.Contains(lower, "bad object")):
		return objectstore.ErrObjectNotFound
	default:
		return ErrCommandFailed
	}
}

// identityEnv sets the author and committer of commits git writes.
func identityEnv(author, committer object.Identity) []string {
	return []string{
		"GIT_AUTHOR_NAME=" + author.Name,
		"GIT_AUTHOR_EMAIL=" + author.Email,
		"GIT_AUTHOR_DATE=" + gitDate(author),
		"GIT_COMMITTER_NAME=" + committer.Name,
		"GIT_COMMITTER_EMAIL=" + committer.Email,
		"GIT_COMMITTER_DATE=" + gitDate(committer),
	}
}

// gitDate renders the identity's time in git's internal "@<unix> <tz>" form.
func gitDate(i object.Identity) string {
	tz := i.Timezone
	if tz == "" {
		tz = "+0000"
	}
	return fmt.Sprintf("@%d %s", i.Timestamp, tz)
}

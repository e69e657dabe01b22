package changeset

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/grafana/changeset/log"
	"github.com/grafana/changeset/patch"
	"github.com/grafana/changeset/protocol/object"
)

// Option is a function that configures a Client during creation.
type Option func(*clientImpl) error

// WithLogger configures a custom logger for the client.
// If not provided, a no-op logger will be used by default.
func WithLogger(logger log.Logger) Option {
	return func(c *clientImpl) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithAuthor sets the identity recorded as author of every commit the client
// writes. Mutating operations fail with ErrMissingIdentity without one.
func WithAuthor(author Author) Option {
	return func(c *clientImpl) error {
		if err := object.NewIdentity(author.Name, author.Email, time.Unix(0, 0)).Validate(); err != nil {
			return fmt.Errorf("author: %w", err)
		}
		c.author = &author
		return nil
	}
}

// WithCommitter sets the committer identity. It defaults to the author.
func WithCommitter(committer Committer) Option {
	return func(c *clientImpl) error {
		if err := object.NewIdentity(committer.Name, committer.Email, time.Unix(0, 0)).Validate(); err != nil {
			return fmt.Errorf("committer: %w", err)
		}
		c.committer = &committer
		return nil
	}
}

// WithShadowWrites makes file operations commit to the shadow ref. Edits
// then accumulate as one pending commit on top of the primary ref until
// Promote or Discard.
func WithShadowWrites() Option {
	return func(c *clientImpl) error {
		c.shadowWrites = true
		return nil
	}
}

// WithPatcher sets the engine applying diffs in CommitFromDiffs and ApplyDiffs.
// The default applies hunks in process without fuzz.
func WithPatcher(p patch.Patcher) Option {
	return func(c *clientImpl) error {
		if p == nil {
			return errors.New("patcher cannot be nil")
		}
		c.patcher = p
		return nil
	}
}

// WithRefNamespaces sets the ref prefixes holding primary and shadow refs,
// such as "refs/heads/" and "refs/changesets/shadow/".
func WithRefNamespaces(primary, shadow string) Option {
	return func(c *clientImpl) error {
		for _, ns := range []string{primary, shadow} {
			if !strings.HasPrefix(ns, "refs/") || !strings.HasSuffix(ns, "/") {
				return fmt.Errorf("ref namespace %q must start with refs/ and end with a slash", ns)
			}
		}
		if strings.HasPrefix(primary, shadow) || strings.HasPrefix(shadow, primary) {
			return fmt.Errorf("ref namespaces %q and %q overlap", primary, shadow)
		}
		c.primaryNS, c.shadowNS = primary, shadow
		return nil
	}
}

// WithNotesNamespace sets the namespace used when an annotation call passes none.
func WithNotesNamespace(ns string) Option {
	return func(c *clientImpl) error {
		if ns == "" {
			return errors.New("notes namespace cannot be empty")
		}
		c.notesNS = ns
		return nil
	}
}

// WithClock sets the source of commit timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *clientImpl) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		c.clock = now
		return nil
	}
}

// EditOption adjusts a single mutating call.
type EditOption func(*editOptions)

type editOptions struct {
	message string
}

// Message sets the commit message of an edit.
func Message(msg string) EditOption {
	return func(o *editOptions) {
		o.message = msg
	}
}

func newEditOptions(opts []EditOption) editOptions {
	o := editOptions{message: PendingMessage}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ReadCommitOption adjusts ReadCommit.
type ReadCommitOption func(*readCommitOptions)

type readCommitOptions struct {
	dir     string
	baseDir string
}

// RelativeTo renders paths of ReadCommit's diffs as seen from dir inside a
// checkout rooted at baseDir: both prefixes become "a/<rel>/" and "b/<rel>/"
// with rel the path from baseDir to dir.
func RelativeTo(dir, baseDir string) ReadCommitOption {
	return func(o *readCommitOptions) {
		o.dir, o.baseDir = dir, baseDir
	}
}

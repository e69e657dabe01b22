package changeset

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/grafana/changeset/log"
	"github.com/grafana/changeset/protocol/hash"
	"github.com/grafana/changeset/protocol/object"
)

// operation carries the state of one public call from base resolution to
// the ref update. It is never shared or reused.
type operation struct {
	id        string
	changeset string

	// parent is the primary commit observed when the operation started and
	// shadow the shadow commit, nil when the changeset is clean.
	parent hash.Hash
	shadow hash.Hash
	// base is the commit edits apply to: shadow when set, parent otherwise.
	base hash.Hash

	cache     *treeCache
	newRoot   hash.Hash
	newCommit hash.Hash

	logger log.Logger
}

func (c *clientImpl) newOperation(ctx context.Context, name, kind string) *operation {
	id := uuid.NewString()
	return &operation{
		id:        id,
		changeset: name,
		logger:    log.With(c.loggerFor(ctx), "op", id, "kind", kind, "changeset", name),
	}
}

// identities returns the author and committer of a commit written now.
func (c *clientImpl) identities() (object.Identity, object.Identity, error) {
	if c.author == nil {
		return object.Identity{}, object.Identity{}, ErrMissingIdentity
	}

	now := c.clock()
	author := object.NewIdentity(c.author.Name, c.author.Email, now)
	committer := author
	if c.committer != nil {
		committer = object.NewIdentity(c.committer.Name, c.committer.Email, now)
	}
	return author, committer, nil
}

// commitMessage terminates msg with a newline as git does.
func commitMessage(msg string) string {
	if msg == "" {
		msg = PendingMessage
	}
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	return msg
}

package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/grafana/changeset/protocol/hash"
	"github.com/grafana/changeset/protocol/object"
)

// ErrMalformedCommit is returned when a commit object cannot be parsed.
var ErrMalformedCommit = errors.New("malformed commit")

// Commit is the decoded body of a commit object.
type Commit struct {
	Tree      hash.Hash
	Parents   []hash.Hash
	Author    object.Identity
	Committer object.Identity
	Message   string
}

// Encode serializes the commit in canonical Git form. The message is written verbatim.
func (c *Commit) Encode() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.Tree)
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author)
	fmt.Fprintf(&buf, "committer %s\n", c.Committer)
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// DecodeCommit parses the body of a commit object. Headers other than tree,
// parent, author and committer (gpgsig, encoding, mergetag) are skipped.
func DecodeCommit(data []byte) (*Commit, error) {
	header, message, ok := strings.Cut(string(data), "\n\n")
	if !ok {
		header = strings.TrimSuffix(string(data), "\n")
	}

	c := &Commit{Message: message}
	for _, line := range strings.Split(header, "\n") {
		if strings.HasPrefix(line, " ") {
			// continuation of a multi-line header
			continue
		}
		key, value, _ := strings.Cut(line, " ")
		switch key {
		case "tree":
			id, err := hash.FromHex(value)
			if err != nil {
				return nil, fmt.Errorf("%w: tree: %w", ErrMalformedCommit, err)
			}
			c.Tree = id
		case "parent":
			id, err := hash.FromHex(value)
			if err != nil {
				return nil, fmt.Errorf("%w: parent: %w", ErrMalformedCommit, err)
			}
			c.Parents = append(c.Parents, id)
		case "author", "committer":
			id, err := object.ParseIdentity(value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrMalformedCommit, key, err)
			}
			if key == "author" {
				c.Author = *id
			} else {
				c.Committer = *id
			}
		}
	}

	if c.Tree == nil {
		return nil, fmt.Errorf("%w: missing tree header", ErrMalformedCommit)
	}
	return c, nil
}

// Subject returns the first line of the message.
func (c *Commit) Subject() string {
	subject, _, _ := strings.Cut(c.Message, "\n")
	return subject
}

package objectstore

import (
	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/hash"
)

// dated is a commit waiting in a date ordered walk.
type dated struct {
	id     hash.Hash
	commit *protocol.Commit
	seq    int
}

// dateQueue is a max-heap on committer time. Ties keep insertion order.
type dateQueue []*dated

func (q dateQueue) Len() int { return len(q) }

func (q dateQueue) Less(i, j int) bool {
	ti, tj := q[i].commit.Committer.Timestamp, q[j].commit.Committer.Timestamp
	if ti != tj {
		return ti > tj
	}
	return q[i].seq < q[j].seq
}

func (q dateQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *dateQueue) Push(x any) { *q = append(*q, x.(*dated)) }

func (q *dateQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

package objectstore

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/grafana/changeset/protocol"
	"github.com/grafana/changeset/protocol/hash"
)

// TreeFile places an already written object at Path in a tree built by BuildTree.
type TreeFile struct {
	Path string
	Mode protocol.Mode
	Hash hash.Hash
}

// BuildTree writes every tree needed to hold files and returns the root tree
// id. Directories only exist through the files below them.
func BuildTree(ctx context.Context, s Store, files []TreeFile) (hash.Hash, error) {
	dirs := map[string][]protocol.TreeEntry{"": nil}
	for _, f := range files {
		p := strings.Trim(f.Path, "/")
		if p == "" {
			return nil, fmt.Errorf("build tree: empty path")
		}

		dir, name := path.Split(p)
		dirs[dir] = append(dirs[dir], protocol.TreeEntry{Name: name, Mode: f.Mode, Hash: f.Hash})
		for d := dir; d != ""; {
			d, _ = path.Split(strings.TrimSuffix(d, "/"))
			if _, ok := dirs[d]; ok {
				break
			}
			dirs[d] = nil
		}
	}

	order := make([]string, 0, len(dirs))
	for dir := range dirs {
		order = append(order, dir)
	}
	// children sort after their parents
	sort.Sort(sort.Reverse(sort.StringSlice(order)))

	var root hash.Hash
	for _, dir := range order {
		id, err := s.WriteTree(ctx, dirs[dir])
		if err != nil {
			return nil, fmt.Errorf("write tree %q: %w", dir, err)
		}
		if dir == "" {
			root = id
			continue
		}

		parent, name := path.Split(strings.TrimSuffix(dir, "/"))
		dirs[parent] = append(dirs[parent], protocol.TreeEntry{Name: name, Mode: protocol.ModeTree, Hash: id})
	}
	return root, nil
}

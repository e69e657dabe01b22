package hash

import (
	"crypto"
	//nolint:gosec // git object ids are sha1
	_ "crypto/sha1"
	_ "crypto/sha256"
	"errors"
	"fmt"

	"github.com/grafana/changeset/protocol/object"
)

// Algorithm is the hash function used by every store in this module.
// Repositories created with --object-format=sha256 are not supported.
const Algorithm = crypto.SHA1

// ErrUnlinkedAlgorithm is returned for a hash function missing from the binary.
var ErrUnlinkedAlgorithm = errors.New("the algorithm is not linked into the binary")

// Object returns the id git gives data stored as an object of type t:
// the hash of "<type> <size>\x00" followed by data.
func Object(algo crypto.Hash, t object.Type, data []byte) (Hash, error) {
	h, err := NewHasher(algo, t, int64(len(data)))
	if err != nil {
		return nil, err
	}
	if _, err := h.Write(data); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// Of hashes data as an object of type t with Algorithm.
func Of(t object.Type, data []byte) Hash {
	h, err := Object(Algorithm, t, data)
	if err != nil {
		panic(err)
	}
	return h
}

// NewHasher returns a hasher that has already consumed the object header,
// ready for size bytes of content.
func NewHasher(algo crypto.Hash, t object.Type, size int64) (Hasher, error) {
	if !algo.Available() {
		return Hasher{}, ErrUnlinkedAlgorithm
	}

	h := Hasher{Hash: algo.New()}
	if _, err := fmt.Fprintf(h, "%s %d\x00", t.Name(), size); err != nil {
		return Hasher{}, err
	}
	return h, nil
}

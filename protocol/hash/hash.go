// Package hash implements Git object identifiers and the object hashing scheme.
package hash

import (
	"encoding/hex"
	"fmt"
	"hash"
	"slices"
	"strings"
)

// Hash is a raw object identifier. A nil or empty Hash means "no object".
type Hash []byte

// Zero is the absent object id.
var Zero Hash

// SentinelHex is the all-zero id Git prints for a missing side of a diff.
const SentinelHex = "0000000000000000000000000000000000000000"

// Sentinel is SentinelHex decoded.
var Sentinel = MustFromHex(SentinelHex)

// EmptyTreeHex is the id of the tree with no entries in SHA-1 repositories.
const EmptyTreeHex = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// FromHex decodes a hex object id. An empty string yields Zero.
func FromHex(hs string) (Hash, error) {
	hs = strings.TrimSpace(hs)
	if len(hs) == 0 {
		return Zero, nil
	}

	b, err := hex.DecodeString(hs)
	if err != nil {
		return Zero, fmt.Errorf("decode object id %q: %w", hs, err)
	}
	return Hash(b), nil
}

// MustFromHex is FromHex for constants and tests.
func MustFromHex(hs string) Hash {
	h, err := FromHex(hs)
	if err != nil {
		panic(err)
	}
	return h
}

func (h Hash) String() string {
	return hex.EncodeToString(h)
}

// Short returns the abbreviated form used in scratch file names and logs.
func (h Hash) Short() string {
	s := h.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

func (h Hash) Is(other Hash) bool {
	return slices.Equal(h, other)
}

// IsZero reports whether h denotes no object: either absent or all zero bytes.
func (h Hash) IsZero() bool {
	for _, b := range h {
		if b != 0 {
			return false
		}
	}
	return true
}

type Hasher struct {
	hash.Hash
}

// Package object defines the kinds of objects kept in a Git object database
// and the identities recorded on commits.
//
//   - Commit: a tree, its parents, author/committer identities and a message.
//   - Tree: a directory listing referencing blobs, trees and submodule commits.
//   - Blob: a file's contents.
//   - Tag: an annotated reference to another object.
//
// See https://git-scm.com/book/en/v2/Git-Internals-Git-Objects
package object

import "fmt"

// Type represents a Git object type. The values match Git's pack encoding.
type Type uint8

const (
	TypeInvalid Type = 0
	TypeCommit  Type = 1
	TypeTree    Type = 2
	TypeBlob    Type = 3
	TypeTag     Type = 4
)

// String returns the debugging representation of the object type.
func (t Type) String() string {
	switch t {
	case TypeInvalid:
		return "OBJ_INVALID"
	case TypeCommit:
		return "OBJ_COMMIT"
	case TypeTree:
		return "OBJ_TREE"
	case TypeBlob:
		return "OBJ_BLOB"
	case TypeTag:
		return "OBJ_TAG"
	default:
		return fmt.Sprintf("object.Type(%d)", uint8(t))
	}
}

// Bytes returns the name used in object headers and plumbing output,
// e.g. "commit", "tree", "blob".
func (t Type) Bytes() []byte {
	switch t {
	case TypeCommit:
		return []byte("commit")
	case TypeTree:
		return []byte("tree")
	case TypeBlob:
		return []byte("blob")
	case TypeTag:
		return []byte("tag")
	default:
		return []byte("unknown")
	}
}

// Name is Bytes as a string.
func (t Type) Name() string {
	return string(t.Bytes())
}

// ParseType maps a plumbing type name back to a Type.
func ParseType(name string) (Type, error) {
	switch name {
	case "commit":
		return TypeCommit, nil
	case "tree":
		return TypeTree, nil
	case "blob":
		return TypeBlob, nil
	case "tag":
		return TypeTag, nil
	default:
		return TypeInvalid, fmt.Errorf("unknown object type %q", name)
	}
}

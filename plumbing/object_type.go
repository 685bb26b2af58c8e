package plumbing

import "fmt"

// ObjectType identifies one of the four Git object kinds.
type ObjectType int8

const (
	InvalidObject ObjectType = iota
	CommitObject
	TreeObject
	BlobObject
	TagObject
	// OFSDeltaObject and REFDeltaObject only ever appear inside a packfile
	// entry header; they are never a standalone object's type.
	OFSDeltaObject
	REFDeltaObject
)

func (t ObjectType) String() string {
	switch t {
	case CommitObject:
		return "commit"
	case TreeObject:
		return "tree"
	case BlobObject:
		return "blob"
	case TagObject:
		return "tag"
	case OFSDeltaObject:
		return "ofs-delta"
	case REFDeltaObject:
		return "ref-delta"
	default:
		return "invalid"
	}
}

// Bytes returns the wire representation of t, as used in a loose object
// header.
func (t ObjectType) Bytes() []byte { return []byte(t.String()) }

// ParseObjectType parses the textual object type used in loose object
// headers and v1 ref advertisements.
func ParseObjectType(s string) (ObjectType, error) {
	switch s {
	case "commit":
		return CommitObject, nil
	case "tree":
		return TreeObject, nil
	case "blob":
		return BlobObject, nil
	case "tag":
		return TagObject, nil
	default:
		return InvalidObject, fmt.Errorf("invalid object type %q", s)
	}
}

// Valid reports whether t is one of the four standalone object types.
func (t ObjectType) Valid() bool {
	switch t {
	case CommitObject, TreeObject, BlobObject, TagObject:
		return true
	default:
		return false
	}
}

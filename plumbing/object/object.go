// Package object implements the typed Git object model: blobs, trees,
// commits and annotated tags, encoded and decoded from their canonical
// on-disk byte representation.
package object

import (
	"bytes"
	"fmt"
	"io"

	"github.com/opengit/gitcore/plumbing"
)

// Object is the common interface satisfied by Blob, Tree, Commit and Tag.
type Object interface {
	// ID is the hash of the object's encoded form.
	ID() plumbing.Hash
	// Type returns the object's Git type.
	Type() plumbing.ObjectType
	// Encode writes the object's canonical payload (without the
	// "<type> <size>\x00" header) to w.
	Encode(w io.Writer) error
	// Decode populates the object from its canonical payload.
	Decode(id plumbing.Hash, r io.Reader) error
}

// ObjectStorer is the minimal surface needed to resolve objects by hash,
// used by decoders that must dereference children (tag -> object, tree
// entries resolved lazily by callers instead).
type ObjectStorer interface {
	EncodeObject(plumbing.ObjectFormat, Object) (plumbing.Hash, error)
	DecodeObject(plumbing.ObjectFormat, plumbing.Hash) (Object, error)
}

// New allocates a zero-value Object for t.
func New(t plumbing.ObjectType) (Object, error) {
	switch t {
	case plumbing.BlobObject:
		return &Blob{}, nil
	case plumbing.TreeObject:
		return &Tree{}, nil
	case plumbing.CommitObject:
		return &Commit{}, nil
	case plumbing.TagObject:
		return &Tag{}, nil
	default:
		return nil, fmt.Errorf("unsupported object type %s", t)
	}
}

// Encode serializes o's payload and returns its hash, without writing the
// loose-object header/deflate envelope (that's objfile's job).
func Encode(format plumbing.ObjectFormat, o Object) (plumbing.Hash, []byte, error) {
	var buf bytes.Buffer
	if err := o.Encode(&buf); err != nil {
		return plumbing.Hash{}, nil, err
	}
	payload := buf.Bytes()
	hash := plumbing.ComputeHash(format, o.Type(), payload)
	return hash, payload, nil
}

// Decode builds a typed Object of kind t from its raw payload.
func Decode(format plumbing.ObjectFormat, t plumbing.ObjectType, id plumbing.Hash, payload []byte) (Object, error) {
	o, err := New(t)
	if err != nil {
		return nil, err
	}
	if err := o.Decode(id, bytes.NewReader(payload)); err != nil {
		return nil, err
	}
	return o, nil
}

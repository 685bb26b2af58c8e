package object

import (
	"io"

	"github.com/opengit/gitcore/plumbing"
)

// Blob is an opaque sequence of bytes: file content with no interpreted
// structure.
type Blob struct {
	hash plumbing.Hash
	Size int64
	blob io.Reader
	raw  []byte
}

// NewBlob constructs an in-memory Blob from raw content.
func NewBlob(content []byte) *Blob {
	return &Blob{Size: int64(len(content)), raw: content}
}

func (b *Blob) ID() plumbing.Hash          { return b.hash }
func (b *Blob) Type() plumbing.ObjectType  { return plumbing.BlobObject }

// Reader returns a reader over the blob's content.
func (b *Blob) Reader() (io.Reader, error) {
	if b.raw != nil {
		return &byteReader{b: b.raw}, nil
	}
	return b.blob, nil
}

func (b *Blob) Bytes() ([]byte, error) {
	if b.raw != nil {
		return b.raw, nil
	}
	return io.ReadAll(b.blob)
}

func (b *Blob) Encode(w io.Writer) error {
	content, err := b.Bytes()
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}

func (b *Blob) Decode(id plumbing.Hash, r io.Reader) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.hash = id
	b.raw = content
	b.Size = int64(len(content))
	return nil
}

type byteReader struct {
	b []byte
	i int
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.i >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.i:])
	r.i += n
	return n, nil
}

// Package objfile implements the loose-object on-disk format: a zlib
// deflated "<type> <size>\x00<payload>" envelope.
package objfile

import (
	"bufio"
	"compress/zlib"
	"fmt"
	"io"
	"strconv"

	"github.com/opengit/gitcore/plumbing"
)

// Writer deflates a single loose object to an underlying io.Writer.
type Writer struct {
	raw  io.Writer
	zw   *zlib.Writer
	size int64
	n    int64
	closed bool
}

// NewWriter begins writing a loose object of type t and size bytes; the
// caller must then write exactly size bytes via Write, then Close.
func NewWriter(w io.Writer, t plumbing.ObjectType, size int64) (*Writer, error) {
	zw := zlib.NewWriter(w)
	header := fmt.Sprintf("%s %d\x00", t, size)
	if _, err := zw.Write([]byte(header)); err != nil {
		return nil, err
	}
	return &Writer{raw: w, zw: zw, size: size}, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.zw.Write(p)
	w.n += int64(n)
	return n, err
}

func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.n != w.size {
		return fmt.Errorf("objfile: wrote %d bytes, declared size was %d", w.n, w.size)
	}
	return w.zw.Close()
}

// Reader inflates a loose object and exposes its declared type/size and
// payload stream.
type Reader struct {
	zr   io.ReadCloser
	Type plumbing.ObjectType
	Size int64
}

// NewReader parses the header of a loose object from r and returns a
// Reader positioned at the start of the payload.
func NewReader(r io.Reader) (*Reader, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("objfile: zlib: %w", err)
	}
	br := bufio.NewReader(zr)

	typ, err := br.ReadString(' ')
	if err != nil {
		return nil, fmt.Errorf("objfile: malformed header: %w", err)
	}
	typ = typ[:len(typ)-1]
	t, err := plumbing.ParseObjectType(typ)
	if err != nil {
		return nil, fmt.Errorf("objfile: malformed header: %w", err)
	}

	sizeStr, err := br.ReadString(0)
	if err != nil {
		return nil, fmt.Errorf("objfile: malformed header: %w", err)
	}
	sizeStr = sizeStr[:len(sizeStr)-1]
	size, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("objfile: malformed header length: %w", err)
	}

	return &Reader{zr: &readCloserChain{Reader: br, closer: zr}, Type: t, Size: size}, nil
}

func (r *Reader) Read(p []byte) (int, error) { return r.zr.Read(p) }
func (r *Reader) Close() error               { return r.zr.Close() }

type readCloserChain struct {
	io.Reader
	closer io.Closer
}

func (c *readCloserChain) Close() error { return c.closer.Close() }

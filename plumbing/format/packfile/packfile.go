// Package packfile implements the pack v2 object container format:
// header parsing, per-entry type/size varints, OFS_DELTA/REF_DELTA
// resolution, and a writer that emits non-delta packs.
package packfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/opengit/gitcore/plumbing"
)

var packMagic = [4]byte{'P', 'A', 'C', 'K'}

const packVersion = 2

// Header is the 12-byte pack preamble.
type Header struct {
	Version uint32
	Count   uint32
}

// ErrCorrupt is returned (with a detail) for any structural pack failure.
type ErrCorrupt struct{ Detail string }

func (e *ErrCorrupt) Error() string { return fmt.Sprintf("packfile: corrupt pack (%s)", e.Detail) }

// ReadHeader parses the "PACK" magic, version and object count.
func ReadHeader(r io.Reader) (Header, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return Header{}, &ErrCorrupt{"missing magic"}
	}
	if magic != packMagic {
		return Header{}, &ErrCorrupt{"magic"}
	}
	var h Header
	if err := binary.Read(r, binary.BigEndian, &h.Version); err != nil {
		return Header{}, &ErrCorrupt{"version"}
	}
	if h.Version != packVersion {
		return Header{}, &ErrCorrupt{fmt.Sprintf("unsupported version %d", h.Version)}
	}
	if err := binary.Read(r, binary.BigEndian, &h.Count); err != nil {
		return Header{}, &ErrCorrupt{"count"}
	}
	return h, nil
}

// WriteHeader writes the pack preamble for count objects.
func WriteHeader(w io.Writer, count uint32) error {
	if _, err := w.Write(packMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(packVersion)); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, count)
}

// entryType is the on-the-wire type tag for a pack entry (distinct from
// plumbing.ObjectType: it additionally carries OFS_DELTA/REF_DELTA).
type entryType uint8

const (
	typeCommit entryType = 1
	typeTree   entryType = 2
	typeBlob   entryType = 3
	typeTag    entryType = 4
	// 5 is reserved.
	typeOFSDelta entryType = 6
	typeREFDelta entryType = 7
)

func entryTypeFor(t plumbing.ObjectType) entryType {
	switch t {
	case plumbing.CommitObject:
		return typeCommit
	case plumbing.TreeObject:
		return typeTree
	case plumbing.BlobObject:
		return typeBlob
	case plumbing.TagObject:
		return typeTag
	default:
		return 0
	}
}

func (t entryType) objectType() plumbing.ObjectType {
	switch t {
	case typeCommit:
		return plumbing.CommitObject
	case typeTree:
		return plumbing.TreeObject
	case typeBlob:
		return plumbing.BlobObject
	case typeTag:
		return plumbing.TagObject
	default:
		return plumbing.InvalidObject
	}
}

// entryHeader is a parsed per-object pack entry header.
type entryHeader struct {
	Type       entryType
	Size       int64
	OFSDelta   int64        // valid when Type == typeOFSDelta: negative relative offset
	REFDelta   plumbing.Hash // valid when Type == typeREFDelta
	HeaderSize int64
}

// readEntryHeader parses the variable-length type+size byte sequence,
// plus the delta base that follows for delta entries.
func readEntryHeader(br *bufio.Reader, format plumbing.ObjectFormat, baseOffset int64) (entryHeader, error) {
	var h entryHeader
	var consumed int64

	b, err := br.ReadByte()
	if err != nil {
		return h, err
	}
	consumed++
	h.Type = entryType((b >> 4) & 0x07)
	size := int64(b & 0x0f)
	shift := uint(4)
	for b&0x80 != 0 {
		b, err = br.ReadByte()
		if err != nil {
			return h, err
		}
		consumed++
		size |= int64(b&0x7f) << shift
		shift += 7
	}
	h.Size = size

	switch h.Type {
	case typeOFSDelta:
		off, n, err := readOffsetDelta(br)
		if err != nil {
			return h, err
		}
		consumed += n
		h.OFSDelta = off
	case typeREFDelta:
		raw := make([]byte, format.Size())
		if _, err := io.ReadFull(br, raw); err != nil {
			return h, err
		}
		consumed += int64(len(raw))
		hash, ok := plumbing.FromBytes(raw)
		if !ok {
			return h, &ErrCorrupt{"ref-delta base"}
		}
		h.REFDelta = hash
	}
	h.HeaderSize = consumed
	return h, nil
}

// readOffsetDelta reads the OFS_DELTA varint-encoded negative offset, per
// pack-format.txt's big-endian-ish base-128 continuation encoding.
func readOffsetDelta(br *bufio.Reader) (int64, int64, error) {
	var n int64
	b, err := br.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	n++
	off := int64(b & 0x7f)
	for b&0x80 != 0 {
		b, err = br.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		n++
		off = ((off + 1) << 7) | int64(b&0x7f)
	}
	return off, n, nil
}

// writeEntryHeader writes the variable-length type+size header only; it
// writes no delta base.
func writeEntryHeader(w io.Writer, t plumbing.ObjectType, size int64) error {
	first := byte(entryTypeFor(t)) << 4
	b := first | byte(size&0x0f)
	size >>= 4
	for size != 0 {
		if _, err := w.Write([]byte{b | 0x80}); err != nil {
			return err
		}
		b = byte(size & 0x7f)
		size >>= 7
	}
	_, err := w.Write([]byte{b})
	return err
}

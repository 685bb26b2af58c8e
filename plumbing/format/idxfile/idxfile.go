// Package idxfile implements the pack index v2 format: a fanout table,
// sorted object ids, CRC32s and offsets pairing a packfile with random
// access to its entries.
package idxfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/opengit/gitcore/plumbing"
)

var (
	idxMagic   = [4]byte{0xff, 't', 'O', 'c'}
	idxVersion = uint32(2)
)

// Entry is one object's index record.
type Entry struct {
	Hash   plumbing.Hash
	CRC32  uint32
	Offset uint64
}

// Index is an in-memory, parsed pack index v2.
type Index struct {
	Fanout  [256]uint32
	Entries []Entry // sorted by Hash
	PackSum plumbing.Hash
	IdxSum  plumbing.Hash
}

// FindOffset returns the packfile offset of h, if present.
func (idx *Index) FindOffset(h plumbing.Hash) (uint64, bool) {
	b := h.Bytes()[0]
	lo := uint32(0)
	if b > 0 {
		lo = idx.Fanout[b-1]
	}
	hi := idx.Fanout[b]
	entries := idx.Entries[lo:hi]
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].Hash.Compare(h) >= 0
	})
	if i < len(entries) && entries[i].Hash.Compare(h) == 0 {
		return entries[i].Offset, true
	}
	return 0, false
}

// Contains reports whether h is present in the index.
func (idx *Index) Contains(h plumbing.Hash) bool {
	_, ok := idx.FindOffset(h)
	return ok
}

// Count returns the number of indexed objects.
func (idx *Index) Count() int { return len(idx.Entries) }

// ErrCorrupt is returned (wrapped with a detail) when an idx file fails
// structural validation.
type ErrCorrupt struct{ Detail string }

func (e *ErrCorrupt) Error() string { return fmt.Sprintf("idxfile: corrupt index (%s)", e.Detail) }

// Decode parses a pack-*.idx file (version 2 only; legacy v1 is rejected).
func Decode(r io.Reader, format plumbing.ObjectFormat) (*Index, error) {
	br := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, &ErrCorrupt{"empty"}
	}
	if magic != idxMagic {
		return nil, &ErrCorrupt{"magic"}
	}

	var version uint32
	if err := binary.Read(br, binary.BigEndian, &version); err != nil {
		return nil, &ErrCorrupt{"version"}
	}
	if version != idxVersion {
		return nil, &ErrCorrupt{"version"}
	}

	idx := &Index{}
	if err := binary.Read(br, binary.BigEndian, &idx.Fanout); err != nil {
		return nil, &ErrCorrupt{"fanout"}
	}
	count := int(idx.Fanout[255])
	for i := 1; i < 256; i++ {
		if idx.Fanout[i] < idx.Fanout[i-1] {
			return nil, &ErrCorrupt{"fanout"}
		}
	}

	hashSize := format.Size()
	idx.Entries = make([]Entry, count)
	for i := 0; i < count; i++ {
		raw := make([]byte, hashSize)
		if _, err := io.ReadFull(br, raw); err != nil {
			return nil, &ErrCorrupt{"oids"}
		}
		h, ok := plumbing.FromBytes(raw)
		if !ok {
			return nil, &ErrCorrupt{"oids"}
		}
		idx.Entries[i].Hash = h
	}

	for i := 0; i < count; i++ {
		var crc uint32
		if err := binary.Read(br, binary.BigEndian, &crc); err != nil {
			return nil, &ErrCorrupt{"crc32"}
		}
		idx.Entries[i].CRC32 = crc
	}

	offsets32 := make([]uint32, count)
	var large []uint32
	for i := 0; i < count; i++ {
		var off uint32
		if err := binary.Read(br, binary.BigEndian, &off); err != nil {
			return nil, &ErrCorrupt{"offsets"}
		}
		offsets32[i] = off
	}
	for i := 0; i < count; i++ {
		if offsets32[i]&0x80000000 != 0 {
			var off64 uint64
			if err := binary.Read(br, binary.BigEndian, &off64); err != nil {
				return nil, &ErrCorrupt{"offsets64"}
			}
			idx.Entries[i].Offset = off64
			large = append(large, offsets32[i])
			continue
		}
		idx.Entries[i].Offset = uint64(offsets32[i])
	}

	packSumRaw := make([]byte, hashSize)
	if _, err := io.ReadFull(br, packSumRaw); err != nil {
		return nil, &ErrCorrupt{"checksum"}
	}
	idx.PackSum, _ = plumbing.FromBytes(packSumRaw)

	idxSumRaw := make([]byte, hashSize)
	if _, err := io.ReadFull(br, idxSumRaw); err != nil {
		return nil, &ErrCorrupt{"checksum"}
	}
	idx.IdxSum, _ = plumbing.FromBytes(idxSumRaw)

	return idx, nil
}

// Encode writes idx in pack index v2 format. Entries must already be
// sorted by Hash and Fanout must already be computed (see BuildFromEntries).
func Encode(w io.Writer, idx *Index, format plumbing.ObjectFormat, collisionDetection bool) (plumbing.Hash, error) {
	h := format.NewHash(collisionDetection)
	mw := io.MultiWriter(w, h)

	if _, err := mw.Write(idxMagic[:]); err != nil {
		return plumbing.Hash{}, err
	}
	if err := binary.Write(mw, binary.BigEndian, idxVersion); err != nil {
		return plumbing.Hash{}, err
	}
	if err := binary.Write(mw, binary.BigEndian, idx.Fanout); err != nil {
		return plumbing.Hash{}, err
	}
	for _, e := range idx.Entries {
		if _, err := mw.Write(e.Hash.Bytes()); err != nil {
			return plumbing.Hash{}, err
		}
	}
	for _, e := range idx.Entries {
		if err := binary.Write(mw, binary.BigEndian, e.CRC32); err != nil {
			return plumbing.Hash{}, err
		}
	}

	var large []uint64
	for _, e := range idx.Entries {
		if e.Offset > 0x7fffffff {
			idxNum := uint32(0x80000000 | len(large))
			if err := binary.Write(mw, binary.BigEndian, idxNum); err != nil {
				return plumbing.Hash{}, err
			}
			large = append(large, e.Offset)
			continue
		}
		if err := binary.Write(mw, binary.BigEndian, uint32(e.Offset)); err != nil {
			return plumbing.Hash{}, err
		}
	}
	for _, off := range large {
		if err := binary.Write(mw, binary.BigEndian, off); err != nil {
			return plumbing.Hash{}, err
		}
	}

	if _, err := mw.Write(idx.PackSum.Bytes()); err != nil {
		return plumbing.Hash{}, err
	}

	sum, _ := plumbing.FromBytes(h.Sum(nil))
	if _, err := w.Write(sum.Bytes()); err != nil {
		return plumbing.Hash{}, err
	}
	return sum, nil
}

// BuildFromEntries computes the fanout table for a set of entries already
// sorted by Hash. fanout[i] = count of objects with first byte <= i.
func BuildFromEntries(entries []Entry) *Index {
	idx := &Index{Entries: entries}
	var counts [256]uint32
	for _, e := range entries {
		counts[e.Hash.Bytes()[0]]++
	}
	var running uint32
	for i := 0; i < 256; i++ {
		running += counts[i]
		idx.Fanout[i] = running
	}
	return idx
}

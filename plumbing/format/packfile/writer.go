package packfile

import (
	"compress/zlib"
	"hash/crc32"
	"io"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/format/idxfile"
)

// ObjectSource supplies an object's type and payload for writing.
type ObjectSource interface {
	Object(h plumbing.Hash) (plumbing.ObjectType, []byte, error)
}

// Write emits a pack containing exactly the objects in oids (in the
// given order, deduplicated), sourced from src. It never emits deltas
// (spec.md's pack-delta-writer open question resolves to a non-delta
// writer; readers must still resolve deltas from packs produced
// elsewhere). It returns the paired index, ready for idxfile.Encode.
func Write(w io.Writer, oids []plumbing.Hash, src ObjectSource, format plumbing.ObjectFormat, collisionDetection bool) (*idxfile.Index, plumbing.Hash, error) {
	seen := make(map[plumbing.Hash]bool, len(oids))
	unique := make([]plumbing.Hash, 0, len(oids))
	for _, h := range oids {
		if seen[h] {
			continue
		}
		seen[h] = true
		unique = append(unique, h)
	}

	fullHash := format.NewHash(collisionDetection)
	mw := io.MultiWriter(w, fullHash)

	if err := WriteHeader(mw, uint32(len(unique))); err != nil {
		return nil, plumbing.Hash{}, err
	}

	entries := make([]idxfile.Entry, 0, len(unique))
	var offset uint64 = 12 // magic(4) + version(4) + count(4)

	for _, h := range unique {
		t, payload, err := src.Object(h)
		if err != nil {
			return nil, plumbing.Hash{}, err
		}

		crcw := &crcWriter{w: mw}
		if err := writeEntryHeader(crcw, t, int64(len(payload))); err != nil {
			return nil, plumbing.Hash{}, err
		}
		zw := zlib.NewWriter(crcw)
		if _, err := zw.Write(payload); err != nil {
			return nil, plumbing.Hash{}, err
		}
		if err := zw.Close(); err != nil {
			return nil, plumbing.Hash{}, err
		}

		entries = append(entries, idxfile.Entry{Hash: h, CRC32: crcw.crc.Sum32(), Offset: offset})
		offset += uint64(crcw.n)
	}

	sum, _ := plumbing.FromBytes(fullHash.Sum(nil))
	if _, err := w.Write(sum.Bytes()); err != nil {
		return nil, plumbing.Hash{}, err
	}

	sortEntries(entries)
	idx := idxfile.BuildFromEntries(entries)
	idx.PackSum = sum
	return idx, sum, nil
}

func sortEntries(entries []idxfile.Entry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j-1].Hash.Compare(entries[j].Hash) > 0; j-- {
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
}

// crcWriter wraps an io.Writer, tracking both the IEEE CRC32 and the
// byte count of everything written through it, so writer.go can record
// each entry's index metadata without a second pass.
type crcWriter struct {
	w   io.Writer
	crc crcAccum
	n   int64
}

type crcAccum struct{ h uint32 }

func (c *crcAccum) Sum32() uint32 { return c.h }

func (c *crcWriter) Write(p []byte) (int, error) {
	c.crc.h = crc32.Update(c.crc.h, crc32.IEEETable, p)
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

package packfile

import (
	"bufio"
	"compress/zlib"
	"hash/crc32"
	"io"
	"sort"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/format/idxfile"
)

// Visitor receives each fully-resolved object as the indexer walks the
// pack, so callers (e.g. fetch ingestion) can persist it without a
// second pass.
type Visitor func(h plumbing.Hash, t plumbing.ObjectType, payload []byte) error

// BuildIndex performs a single sequential pass over a packfile (accessed
// by ReaderAt so entry payloads can be re-inflated by byte range without
// holding the whole pack in memory), resolving every OFS_DELTA against an
// already-seen offset and every REF_DELTA against an already-seen hash or
// resolveExternal, and returns the pack index ready to pair with the
// packfile on disk.
//
// visit, if non-nil, is called once per object in stream order.
func BuildIndex(ra io.ReaderAt, size int64, format plumbing.ObjectFormat, resolveExternal ResolveREFDelta, visit Visitor) (*idxfile.Index, error) {
	sr := io.NewSectionReader(ra, 0, size)
	cr := &countingReader{r: sr}
	br := bufio.NewReader(cr)

	hdr, err := ReadHeader(br)
	if err != nil {
		return nil, err
	}

	type seen struct {
		typ     plumbing.ObjectType
		payload []byte
	}
	byOffset := map[uint64]seen{}
	byHash := map[plumbing.Hash]seen{}

	// pos reports the logical stream position already consumed by the
	// caller, compensating for bufio's read-ahead buffering.
	pos := func() uint64 { return cr.n - uint64(br.Buffered()) }

	entries := make([]idxfile.Entry, 0, hdr.Count)

	for i := uint32(0); i < hdr.Count; i++ {
		entryStart := pos()

		eh, err := readEntryHeader(br, format, int64(entryStart))
		if err != nil {
			return nil, err
		}

		crcStart := pos()
		var payload []byte
		var objType plumbing.ObjectType

		switch eh.Type {
		case typeCommit, typeTree, typeBlob, typeTag:
			objType = eh.Type.objectType()
			payload, err = inflateFromReader(br, eh.Size)
			if err != nil {
				return nil, err
			}
		case typeOFSDelta:
			baseOff := entryStart - uint64(eh.OFSDelta)
			base, ok := byOffset[baseOff]
			if !ok {
				return nil, &ErrCorrupt{"ofs-delta base not yet seen"}
			}
			delta, err := inflateFromReader(br, eh.Size)
			if err != nil {
				return nil, err
			}
			payload, err = ApplyDelta(base.payload, delta)
			if err != nil {
				return nil, err
			}
			objType = base.typ
		case typeREFDelta:
			base, ok := byHash[eh.REFDelta]
			if !ok {
				if resolveExternal == nil {
					return nil, &ErrCorrupt{"ref-delta base unavailable"}
				}
				t, p, err := resolveExternal(eh.REFDelta)
				if err != nil {
					return nil, err
				}
				base = seen{typ: t, payload: p}
			}
			delta, err := inflateFromReader(br, eh.Size)
			if err != nil {
				return nil, err
			}
			payload, err = ApplyDelta(base.payload, delta)
			if err != nil {
				return nil, err
			}
			objType = base.typ
		default:
			return nil, &ErrCorrupt{"unknown entry type"}
		}

		crcEnd := pos()
		crc := crc32.ChecksumIEEE(mustReadRange(ra, int64(crcStart), int64(crcEnd-crcStart)))

		hash := plumbing.ComputeHash(format, objType, payload)
		byOffset[entryStart] = seen{typ: objType, payload: payload}
		byHash[hash] = seen{typ: objType, payload: payload}
		entries = append(entries, idxfile.Entry{Hash: hash, CRC32: crc, Offset: entryStart})

		if visit != nil {
			if err := visit(hash, objType, payload); err != nil {
				return nil, err
			}
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Hash.Compare(entries[j].Hash) < 0 })
	idx := idxfile.BuildFromEntries(entries)

	trailer := make([]byte, format.Size())
	if _, err := ra.ReadAt(trailer, size-int64(len(trailer))); err == nil {
		idx.PackSum, _ = plumbing.FromBytes(trailer)
	}
	return idx, nil
}

func inflateFromReader(br *bufio.Reader, size int64) ([]byte, error) {
	zr, err := zlib.NewReader(br)
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		zr.Close()
		return nil, err
	}
	return out, zr.Close()
}

func mustReadRange(ra io.ReaderAt, off, n int64) []byte {
	buf := make([]byte, n)
	ra.ReadAt(buf, off)
	return buf
}

// countingReader tracks the number of bytes consumed so entry start
// offsets can be recorded while reading through a buffered reader.
type countingReader struct {
	r io.Reader
	n uint64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += uint64(n)
	return n, err
}

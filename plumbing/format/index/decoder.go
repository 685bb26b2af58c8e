package index

import (
	"bufio"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/opengit/gitcore/plumbing"
)

var indexMagic = [4]byte{'D', 'I', 'R', 'C'}

// ErrCorrupt reports a structural index validation failure, per
// spec.md's IndexCorrupt(detail) taxonomy.
type ErrCorrupt struct{ Detail string }

func (e *ErrCorrupt) Error() string { return fmt.Sprintf("index: corrupt (%s)", e.Detail) }

// Decode parses a dircache index file. Trailer verification and magic
// checks run before any entry is interpreted, so "empty"/"magic"/
// "checksum" failures are reported exactly as spec.md requires.
func Decode(r io.Reader) (*Index, error) {
	all, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, &ErrCorrupt{"empty"}
	}
	if len(all) < 4+4+4+20 {
		return nil, &ErrCorrupt{"empty"}
	}

	body := all[:len(all)-20]
	trailer := all[len(all)-20:]
	sum := sha1.Sum(body)
	for i := range sum {
		if sum[i] != trailer[i] {
			return nil, &ErrCorrupt{"checksum"}
		}
	}

	br := bufio.NewReader(&sliceReader{b: body})

	var magic [4]byte
	io.ReadFull(br, magic[:])
	if magic != indexMagic {
		return nil, &ErrCorrupt{"magic"}
	}

	var version, count uint32
	binary.Read(br, binary.BigEndian, &version)
	binary.Read(br, binary.BigEndian, &count)
	if version != 2 && version != 3 {
		return nil, &ErrCorrupt{"version"}
	}

	idx := &Index{Version: version}
	consumed := uint32(12)
	for i := uint32(0); i < count; i++ {
		e, n, err := decodeEntry(br, version)
		if err != nil {
			return nil, err
		}
		idx.Entries = append(idx.Entries, e)
		consumed += n
	}
	_ = consumed
	return idx, nil
}

func decodeEntry(br *bufio.Reader, version uint32) (*Entry, uint32, error) {
	var ctimeSec, ctimeNano, mtimeSec, mtimeNano uint32
	var dev, ino, mode, uid, gid, size uint32
	var rawHash [20]byte
	var flags uint16

	fields := []*uint32{&ctimeSec, &ctimeNano, &mtimeSec, &mtimeNano, &dev, &ino, &mode, &uid, &gid, &size}
	for _, f := range fields {
		if err := binary.Read(br, binary.BigEndian, f); err != nil {
			return nil, 0, &ErrCorrupt{"entry header"}
		}
	}
	if _, err := io.ReadFull(br, rawHash[:]); err != nil {
		return nil, 0, &ErrCorrupt{"entry hash"}
	}
	if err := binary.Read(br, binary.BigEndian, &flags); err != nil {
		return nil, 0, &ErrCorrupt{"entry flags"}
	}

	extended := flags&0x4000 != 0
	var extFlags uint16
	if extended && version >= 3 {
		binary.Read(br, binary.BigEndian, &extFlags)
	}

	nameLen := int(flags & 0x0fff)
	var nameBytes []byte
	if nameLen < 0x0fff {
		nameBytes = make([]byte, nameLen)
		if _, err := io.ReadFull(br, nameBytes); err != nil {
			return nil, 0, &ErrCorrupt{"entry name"}
		}
	} else {
		nameBytes, _ = br.ReadBytes(0)
		if len(nameBytes) > 0 {
			nameBytes = nameBytes[:len(nameBytes)-1]
		}
	}

	// 62-byte fixed header + name, padded with NULs to a multiple of 8.
	entryLen := 62 + len(nameBytes)
	pad := (8 - entryLen%8) % 8
	if pad == 0 {
		pad = 8
	}
	// When nameLen hit the 0xfff sentinel the trailing NUL already read
	// above counts toward padding; otherwise consume the full pad here.
	if nameLen < 0x0fff {
		io.CopyN(io.Discard, br, int64(pad))
	} else {
		io.CopyN(io.Discard, br, int64(pad-1))
	}

	h, _ := plumbing.FromBytes(rawHash[:])
	e := &Entry{
		Name:       string(nameBytes),
		Stage:      Stage((flags >> 12) & 0x3),
		Hash:       h,
		Mode:       plumbing.FileMode(mode),
		CreatedAt:  time.Unix(int64(ctimeSec), int64(ctimeNano)).UTC(),
		ModifiedAt: time.Unix(int64(mtimeSec), int64(mtimeNano)).UTC(),
		Dev:        dev,
		Inode:      ino,
		UID:        uid,
		GID:        gid,
		Size:       size,
		AssumeValid: flags&0x8000 != 0,
	}
	if extended {
		e.IntentToAdd = extFlags&0x2000 != 0
		e.SkipWorktree = extFlags&0x4000 != 0
	}
	return e, uint32(entryLen + pad), nil
}

type sliceReader struct {
	b []byte
	i int
}

func (r *sliceReader) Read(p []byte) (int, error) {
	if r.i >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.i:])
	r.i += n
	return n, nil
}

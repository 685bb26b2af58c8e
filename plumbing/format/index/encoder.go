package index

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"io"
)

// Encode writes idx in its canonical, deterministic on-disk form:
// entries already sorted by (path, stage), followed by the SHA-1
// trailer over every preceding byte.
func Encode(w io.Writer, idx *Index) error {
	idx.sort()

	var buf bytes.Buffer
	buf.Write(indexMagic[:])
	binary.Write(&buf, binary.BigEndian, uint32(2))
	binary.Write(&buf, binary.BigEndian, uint32(len(idx.Entries)))

	for _, e := range idx.Entries {
		encodeEntry(&buf, e)
	}

	sum := sha1.Sum(buf.Bytes())
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(sum[:])
	return err
}

func encodeEntry(buf *bytes.Buffer, e *Entry) {
	start := buf.Len()

	binary.Write(buf, binary.BigEndian, uint32(e.CreatedAt.Unix()))
	binary.Write(buf, binary.BigEndian, uint32(e.CreatedAt.Nanosecond()))
	binary.Write(buf, binary.BigEndian, uint32(e.ModifiedAt.Unix()))
	binary.Write(buf, binary.BigEndian, uint32(e.ModifiedAt.Nanosecond()))
	binary.Write(buf, binary.BigEndian, e.Dev)
	binary.Write(buf, binary.BigEndian, e.Inode)
	binary.Write(buf, binary.BigEndian, uint32(e.Mode))
	binary.Write(buf, binary.BigEndian, e.UID)
	binary.Write(buf, binary.BigEndian, e.GID)
	binary.Write(buf, binary.BigEndian, e.Size)
	buf.Write(e.Hash.Bytes())

	nameLen := len(e.Name)
	flagLen := nameLen
	if flagLen > 0x0fff {
		flagLen = 0x0fff
	}
	flags := uint16(flagLen) | uint16(e.Stage)<<12
	if e.AssumeValid {
		flags |= 0x8000
	}
	if e.IntentToAdd || e.SkipWorktree {
		flags |= 0x4000 // extended flag bit
	}
	binary.Write(buf, binary.BigEndian, flags)

	if flags&0x4000 != 0 {
		var extFlags uint16
		if e.IntentToAdd {
			extFlags |= 0x2000
		}
		if e.SkipWorktree {
			extFlags |= 0x4000
		}
		binary.Write(buf, binary.BigEndian, extFlags)
	}

	buf.WriteString(e.Name)
	buf.WriteByte(0)

	entryLen := buf.Len() - start
	pad := (8 - entryLen%8) % 8
	for i := 0; i < pad; i++ {
		buf.WriteByte(0)
	}
}

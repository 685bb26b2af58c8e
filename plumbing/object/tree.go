package object

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/opengit/gitcore/plumbing"
)

// TreeEntry is a single (mode, name, oid) record inside a Tree.
type TreeEntry struct {
	Name string
	Mode plumbing.FileMode
	Hash plumbing.Hash
}

// Tree is a flat directory listing; nested directories are represented
// by entries whose Hash points to another Tree object.
type Tree struct {
	hash    plumbing.Hash
	Entries []TreeEntry
}

func (t *Tree) ID() plumbing.Hash         { return t.hash }
func (t *Tree) Type() plumbing.ObjectType { return plumbing.TreeObject }

// Sort orders entries the way Git compares tree entries: byte-wise on the
// name, with directories compared as if their name had a trailing '/'.
func (t *Tree) Sort() {
	sort.Slice(t.Entries, func(i, j int) bool {
		return treeEntryLess(t.Entries[i], t.Entries[j])
	})
}

func treeEntryLess(a, b TreeEntry) bool {
	na, nb := a.Name, b.Name
	if a.Mode.IsDir() {
		na += "/"
	}
	if b.Mode.IsDir() {
		nb += "/"
	}
	return na < nb
}

// Entry looks up the direct child named name.
func (t *Tree) Entry(name string) (TreeEntry, bool) {
	for _, e := range t.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return TreeEntry{}, false
}

func (t *Tree) Encode(w io.Writer) error {
	t.Sort()
	bw := bufio.NewWriter(w)
	for _, e := range t.Entries {
		if _, err := fmt.Fprintf(bw, "%o %s\x00", uint32(e.Mode), e.Name); err != nil {
			return err
		}
		if _, err := bw.Write(e.Hash.Bytes()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (t *Tree) Decode(id plumbing.Hash, r io.Reader) error {
	t.hash = id
	t.Entries = nil
	br := bufio.NewReader(r)
	hashSize := id.Format().Size()
	if hashSize == 0 {
		hashSize = 20
	}
	for {
		header, err := br.ReadString(' ')
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		header = strings.TrimSuffix(header, " ")
		mode, err := plumbing.ParseFileMode(header)
		if err != nil {
			return fmt.Errorf("malformed tree entry: %w", err)
		}
		name, err := br.ReadString(0)
		if err != nil {
			return fmt.Errorf("malformed tree entry name: %w", err)
		}
		name = strings.TrimSuffix(name, "\x00")
		raw := make([]byte, hashSize)
		if _, err := io.ReadFull(br, raw); err != nil {
			return fmt.Errorf("malformed tree entry hash: %w", err)
		}
		hash, ok := plumbing.FromBytes(raw)
		if !ok {
			return fmt.Errorf("malformed tree entry hash")
		}
		t.Entries = append(t.Entries, TreeEntry{Name: name, Mode: mode, Hash: hash})
	}
	return nil
}

package walker

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/format/index"
	"github.com/opengit/gitcore/plumbing/object"
	"github.com/opengit/gitcore/plumbing/odb"
	"github.com/opengit/gitcore/storage/memory"
)

func newTestODB(t *testing.T) (*odb.ODB, plumbing.ObjectFormat) {
	t.Helper()
	s := memory.NewStorage()
	return odb.New(s), s.ObjectFormat()
}

func mustBlob(t *testing.T, o *odb.ODB, format plumbing.ObjectFormat, content string) plumbing.Hash {
	t.Helper()
	h, err := o.EncodeObject(format, object.NewBlob([]byte(content)))
	require.NoError(t, err)
	return h
}

func mustTree(t *testing.T, o *odb.ODB, format plumbing.ObjectFormat, files map[string]string) plumbing.Hash {
	t.Helper()
	tree := &object.Tree{}
	for name, content := range files {
		tree.Entries = append(tree.Entries, object.TreeEntry{
			Name: name,
			Mode: plumbing.FileModeRegular,
			Hash: mustBlob(t, o, format, content),
		})
	}
	tree.Sort()
	h, err := o.EncodeObject(format, tree)
	require.NoError(t, err)
	return h
}

func changePaths(cs Changes) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Path
	}
	sort.Strings(out)
	return out
}

func TestDiff_TreeVsStage_InsertModifyDelete(t *testing.T) {
	o, format := newTestODB(t)
	from := NewTreeNode(o, format, mustTree(t, o, format, map[string]string{
		"a.txt": "a\n",
		"b.txt": "b\n",
	}))

	idx := index.NewIndex()
	idx.Insert(&index.Entry{Name: "a.txt", Hash: mustBlob(t, o, format, "a\n"), Mode: plumbing.FileModeRegular})
	idx.Insert(&index.Entry{Name: "c.txt", Hash: mustBlob(t, o, format, "c\n"), Mode: plumbing.FileModeRegular})
	to := NewStageNode(idx)

	changes, err := Diff(from, to)
	require.NoError(t, err)
	require.Len(t, changes, 2)

	byPath := map[string]Change{}
	for _, c := range changes {
		byPath[c.Path] = c
	}
	assert.Equal(t, Delete, byPath["b.txt"].Action)
	assert.Equal(t, Insert, byPath["c.txt"].Action)
}

func TestDiff_TreeVsStage_NestedPaths(t *testing.T) {
	o, format := newTestODB(t)
	subFrom := mustTree(t, o, format, map[string]string{"x.txt": "x\n"})
	rootFrom := &object.Tree{Entries: []object.TreeEntry{
		{Name: "dir", Mode: plumbing.FileModeDir, Hash: subFrom},
	}}
	rootFrom.Sort()
	fromHash, err := o.EncodeObject(format, rootFrom)
	require.NoError(t, err)
	from := NewTreeNode(o, format, fromHash)

	idx := index.NewIndex()
	idx.Insert(&index.Entry{Name: "dir/x.txt", Hash: mustBlob(t, o, format, "x-changed\n"), Mode: plumbing.FileModeRegular})
	to := NewStageNode(idx)

	changes, err := Diff(from, to)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "dir/x.txt", changes[0].Path)
	assert.Equal(t, Modify, changes[0].Action)
}

func TestDiff_IdenticalTreesProduceNoChanges(t *testing.T) {
	o, format := newTestODB(t)
	h := mustTree(t, o, format, map[string]string{"a.txt": "a\n", "b.txt": "b\n"})
	from := NewTreeNode(o, format, h)
	to := NewTreeNode(o, format, h)

	changes, err := Diff(from, to)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestDiff_DirReplacedByFile(t *testing.T) {
	o, format := newTestODB(t)
	subHash := mustTree(t, o, format, map[string]string{"x.txt": "x\n"})
	rootFrom := &object.Tree{Entries: []object.TreeEntry{
		{Name: "thing", Mode: plumbing.FileModeDir, Hash: subHash},
	}}
	rootFrom.Sort()
	fromHash, err := o.EncodeObject(format, rootFrom)
	require.NoError(t, err)
	from := NewTreeNode(o, format, fromHash)

	to := NewTreeNode(o, format, mustTree(t, o, format, map[string]string{"thing": "now a file\n"}))

	changes, err := Diff(from, to)
	require.NoError(t, err)
	paths := changePaths(changes)
	assert.Equal(t, []string{"thing", "thing/x.txt"}, paths)
}

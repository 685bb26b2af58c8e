package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengit/gitcore/plumbing"
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

func mustTree(t *testing.T, o *odb.ODB, format plumbing.ObjectFormat, entries map[string]string) plumbing.Hash {
	t.Helper()
	tree := &object.Tree{}
	for name, content := range entries {
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

func TestMergeTrees_NonOverlappingAdds(t *testing.T) {
	o, format := newTestODB(t)
	base := mustTree(t, o, format, map[string]string{"a.txt": "a\n"})
	ours := mustTree(t, o, format, map[string]string{"a.txt": "a\n", "b.txt": "b\n"})
	theirs := mustTree(t, o, format, map[string]string{"a.txt": "a\n", "c.txt": "c\n"})

	res, err := MergeTrees(o, format, base, ours, theirs)
	require.NoError(t, err)
	assert.False(t, res.HasConflicts())
	assert.Len(t, res.Entries, 3)
	assert.Contains(t, res.Entries, "a.txt")
	assert.Contains(t, res.Entries, "b.txt")
	assert.Contains(t, res.Entries, "c.txt")
}

func TestMergeTrees_OneSideDeletesUnchangedOnOther(t *testing.T) {
	o, format := newTestODB(t)
	base := mustTree(t, o, format, map[string]string{"a.txt": "a\n", "b.txt": "b\n"})
	ours := mustTree(t, o, format, map[string]string{"a.txt": "a\n", "b.txt": "b\n"})
	theirs := mustTree(t, o, format, map[string]string{"a.txt": "a\n"})

	res, err := MergeTrees(o, format, base, ours, theirs)
	require.NoError(t, err)
	assert.False(t, res.HasConflicts())
	assert.NotContains(t, res.Entries, "b.txt")
}

func TestMergeTrees_NonConflictingLineEdits(t *testing.T) {
	o, format := newTestODB(t)
	base := mustTree(t, o, format, map[string]string{"a.txt": "one\ntwo\nthree\n"})
	ours := mustTree(t, o, format, map[string]string{"a.txt": "ONE\ntwo\nthree\n"})
	theirs := mustTree(t, o, format, map[string]string{"a.txt": "one\ntwo\nTHREE\n"})

	res, err := MergeTrees(o, format, base, ours, theirs)
	require.NoError(t, err)
	assert.False(t, res.HasConflicts())

	blob, err := o.Blob(format, res.Entries["a.txt"].Hash)
	require.NoError(t, err)
	content, err := blob.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "ONE\ntwo\nTHREE\n", string(content))
}

func TestMergeTrees_ConflictingLineEdits(t *testing.T) {
	o, format := newTestODB(t)
	base := mustTree(t, o, format, map[string]string{"a.txt": "one\n"})
	ours := mustTree(t, o, format, map[string]string{"a.txt": "ours\n"})
	theirs := mustTree(t, o, format, map[string]string{"a.txt": "theirs\n"})

	res, err := MergeTrees(o, format, base, ours, theirs)
	require.NoError(t, err)
	require.True(t, res.HasConflicts())
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, "a.txt", res.Conflicts[0].Path)
	assert.True(t, res.Conflicts[0].TextConflict)
}

func TestMergeTrees_ModifyDeleteConflict(t *testing.T) {
	o, format := newTestODB(t)
	base := mustTree(t, o, format, map[string]string{"a.txt": "one\n"})
	ours := mustTree(t, o, format, map[string]string{"a.txt": "changed\n"})
	theirs := mustTree(t, o, format, map[string]string{})

	res, err := MergeTrees(o, format, base, ours, theirs)
	require.NoError(t, err)
	require.True(t, res.HasConflicts())
	require.Len(t, res.Conflicts, 1)
	assert.NotNil(t, res.Conflicts[0].Ours)
	assert.Nil(t, res.Conflicts[0].Theirs)
}

func TestBuildTree_RoundTrips(t *testing.T) {
	o, format := newTestODB(t)
	entries := map[string]object.TreeEntry{
		"a.txt":        {Mode: plumbing.FileModeRegular, Hash: mustBlob(t, o, format, "a\n")},
		"dir/b.txt":    {Mode: plumbing.FileModeRegular, Hash: mustBlob(t, o, format, "b\n")},
		"dir/sub/c.txt": {Mode: plumbing.FileModeRegular, Hash: mustBlob(t, o, format, "c\n")},
	}

	h, err := BuildTree(o, format, entries)
	require.NoError(t, err)

	flat, err := flattenTree(o, format, h)
	require.NoError(t, err)
	assert.Len(t, flat, 3)
	for p, e := range entries {
		assert.Equal(t, e.Hash, flat[p].Hash, p)
	}
}

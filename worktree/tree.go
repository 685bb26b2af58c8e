package worktree

import (
	"fmt"
	"os"
	"path"
	"sort"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/format/index"
	"github.com/opengit/gitcore/plumbing/object"
	"github.com/opengit/gitcore/plumbing/odb"
)

// WriteTree serializes the current index (its Merged-stage entries) as a
// nested tree object and returns its id, the way a commit captures
// "what's staged right now".
func (w *Worktree) WriteTree() (plumbing.Hash, error) {
	idx, err := w.index()
	if err != nil {
		return plumbing.Hash{}, err
	}
	if idx.HasConflicts() {
		return plumbing.Hash{}, fmt.Errorf("worktree: cannot write a tree with unresolved conflicts: %v", idx.ConflictedPaths())
	}

	root := &treeDir{dirs: map[string]*treeDir{}, files: map[string]object.TreeEntry{}}
	for _, e := range idx.Entries {
		if e.Stage != 0 {
			continue
		}
		root.insert(e.Name, object.TreeEntry{Name: e.Name, Mode: e.Mode, Hash: e.Hash})
	}
	return root.write(w.ODB, w.Format)
}

// ApplyEntries stages entries into the index and writes matching
// content for every non-submodule path into the worktree, overwriting
// whatever is there. Used to materialize a merge or cherry-pick result
// that was computed off the object database directly, with no tree
// object of its own yet (e.g. a --no-commit cherry-pick).
func (w *Worktree) ApplyEntries(entries map[string]object.TreeEntry) error {
	idx, err := w.index()
	if err != nil {
		return err
	}
	for p, e := range entries {
		if e.Mode.IsSubmodule() {
			continue
		}
		blob, err := w.ODB.Blob(w.Format, e.Hash)
		if err != nil {
			return err
		}
		content, err := blob.Bytes()
		if err != nil {
			return err
		}
		if w.Filter != nil {
			content = w.Filter.Smudge(p, content)
		}
		if dir := parentDir(p); dir != "" {
			if err := w.FS.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		if e.Mode.IsSymlink() {
			_ = w.FS.Remove(p)
			if err := w.FS.Symlink(string(content), p); err != nil {
				return err
			}
		} else {
			perm := os.FileMode(0o644)
			if e.Mode == plumbing.FileModeExecutable {
				perm = 0o755
			}
			f, err := w.FS.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
			if err != nil {
				return err
			}
			_, werr := f.Write(content)
			cerr := f.Close()
			if werr != nil {
				return werr
			}
			if cerr != nil {
				return cerr
			}
		}
		ie := &index.Entry{Name: p, Hash: e.Hash, Mode: e.Mode}
		if fi, err := w.FS.Lstat(p); err == nil {
			ie.ModifiedAt = fi.ModTime()
			if e.Mode.IsRegular() {
				ie.Size = uint32(fi.Size())
			}
		}
		idx.Insert(ie)
	}
	return w.Store.WriteIndex(idx)
}

type treeDir struct {
	dirs  map[string]*treeDir
	files map[string]object.TreeEntry
}

func (d *treeDir) insert(p string, e object.TreeEntry) {
	dir, base := path.Split(p)
	dir = path.Clean(dir)
	node := d
	if dir != "." && dir != "" {
		for _, seg := range splitClean(dir) {
			next, ok := node.dirs[seg]
			if !ok {
				next = &treeDir{dirs: map[string]*treeDir{}, files: map[string]object.TreeEntry{}}
				node.dirs[seg] = next
			}
			node = next
		}
	}
	node.files[base] = e
}

func (d *treeDir) write(o *odb.ODB, format plumbing.ObjectFormat) (plumbing.Hash, error) {
	t := &object.Tree{}
	names := make([]string, 0, len(d.dirs))
	for name := range d.dirs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h, err := d.dirs[name].write(o, format)
		if err != nil {
			return plumbing.Hash{}, err
		}
		t.Entries = append(t.Entries, object.TreeEntry{Name: name, Mode: plumbing.FileModeDir, Hash: h})
	}
	for name, e := range d.files {
		e.Name = name
		t.Entries = append(t.Entries, e)
	}
	t.Sort()
	return o.EncodeObject(format, t)
}

// Package worktree implements the operations that read or mutate the
// three trees a checkout sits between: the commit HEAD points at, the
// staged index, and the files on disk. Status, add/remove, checkout and
// reset are all built on plumbing/walker's three-tree diff.
package worktree

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-billy/v5"
	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/format/index"
	"github.com/opengit/gitcore/plumbing/object"
	"github.com/opengit/gitcore/plumbing/odb"
	"github.com/opengit/gitcore/plumbing/walker"
	"github.com/opengit/gitcore/storage"
)

var (
	ErrUnstagedChanges  = errors.New("worktree: unstaged changes present, refusing to proceed")
	ErrNoSuchPath       = errors.New("worktree: no such path in the target tree")
	ErrIsSubmodule      = errors.New("worktree: path is a submodule, checkout not supported")
)

// Worktree binds a working tree filesystem to the repository storage and
// object database backing it.
type Worktree struct {
	FS     billy.Filesystem
	Store  storage.Storer
	ODB    *odb.ODB
	Format plumbing.ObjectFormat

	// Filter post-processes file content on checkout/add (autocrlf, LFS
	// smudge/clean); nil means no filtering.
	Filter *FilterSet

	// Sparse lists cone-mode directory prefixes Reset limits its changes
	// to; empty means everything is in cone.
	Sparse []string
}

// New returns a Worktree for fs backed by s and o.
func New(fs billy.Filesystem, s storage.Storer, o *odb.ODB) *Worktree {
	return &Worktree{FS: fs, Store: s, ODB: o, Format: s.ObjectFormat()}
}

// headTree resolves HEAD down to the tree of the commit it names. An
// unborn HEAD (no commits yet) reports plumbing.ZeroHash with no error.
func (w *Worktree) headTree() (plumbing.Hash, error) {
	head, err := w.Store.ReadHEAD()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return plumbing.Hash{}, nil
		}
		return plumbing.Hash{}, err
	}

	var commitHash plumbing.Hash
	if head.Type() == plumbing.HashReference {
		commitHash = head.Hash()
	} else {
		ref, err := w.Store.ReadRef(head.Target())
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return plumbing.Hash{}, nil
			}
			return plumbing.Hash{}, err
		}
		commitHash = ref.Hash()
	}
	if commitHash.IsZero() {
		return plumbing.Hash{}, nil
	}
	c, err := w.ODB.Commit(w.Format, commitHash)
	if err != nil {
		return plumbing.Hash{}, err
	}
	return c.Tree, nil
}

func (w *Worktree) index() (*index.Index, error) {
	idx, err := w.Store.ReadIndex()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return index.NewIndex(), nil
		}
		return nil, err
	}
	return idx, nil
}

func (w *Worktree) treeNode() (walker.Node, error) {
	h, err := w.headTree()
	if err != nil {
		return nil, err
	}
	if h.IsZero() {
		return nil, nil
	}
	return walker.NewTreeNode(w.ODB, w.Format, h), nil
}

func (w *Worktree) stageNode() (walker.Node, *index.Index, error) {
	idx, err := w.index()
	if err != nil {
		return nil, nil, err
	}
	return walker.NewStageNode(idx), idx, nil
}

func (w *Worktree) workdirNode() walker.Node { return walker.NewWorkdirNode(w.FS) }

// Status reports how the worktree and index differ from HEAD.
func (w *Worktree) Status() (Status, error) {
	headNode, err := w.treeNode()
	if err != nil {
		return nil, err
	}
	stageNode, _, err := w.stageNode()
	if err != nil {
		return nil, err
	}

	s := Status{}

	left, err := walker.Diff(headNode, stageNode)
	if err != nil {
		return nil, err
	}
	for _, ch := range left {
		fs := s.File(ch.Path)
		switch ch.Action {
		case walker.Delete:
			fs.Staging = Deleted
		case walker.Insert:
			fs.Staging = Added
		case walker.Modify:
			fs.Staging = Modified
		}
	}

	right, err := walker.Diff(stageNode, w.workdirNode())
	if err != nil {
		return nil, err
	}
	for _, ch := range right {
		fs := s.File(ch.Path)
		switch ch.Action {
		case walker.Delete:
			fs.Worktree = Deleted
		case walker.Insert:
			fs.Worktree = Untracked
			fs.Staging = Untracked
		case walker.Modify:
			fs.Worktree = Modified
		}
	}

	return s, nil
}

// unstagedChanges reports whether the index and worktree disagree on
// any path (the "dirty worktree" guard Checkout/Reset apply unless
// Force is set).
func (w *Worktree) unstagedChanges() (bool, error) {
	stageNode, _, err := w.stageNode()
	if err != nil {
		return false, err
	}
	ch, err := walker.Diff(stageNode, w.workdirNode())
	if err != nil {
		return false, err
	}
	return len(ch) != 0, nil
}

// Add stages path's current worktree content, hashing and writing it as
// a loose blob and recording it in the index.
func (w *Worktree) Add(path string) (plumbing.Hash, error) {
	h, err := w.hashBlob(path)
	if err != nil {
		return plumbing.Hash{}, err
	}
	content, err := w.readFile(path)
	if err != nil {
		return plumbing.Hash{}, err
	}
	if _, err := w.ODB.EncodeObject(w.Format, object.NewBlob(content)); err != nil {
		return plumbing.Hash{}, err
	}
	if err := w.stageFile(path, h); err != nil {
		return plumbing.Hash{}, err
	}
	return h, nil
}

// AddAll stages every path the worktree diff reports as added or
// modified relative to the index.
func (w *Worktree) AddAll() error {
	stageNode, _, err := w.stageNode()
	if err != nil {
		return err
	}
	changes, err := walker.Diff(stageNode, w.workdirNode())
	if err != nil {
		return err
	}
	for _, ch := range changes {
		if ch.Action == walker.Delete {
			if err := w.removeFromIndex(ch.Path); err != nil {
				return err
			}
			continue
		}
		if _, err := w.Add(ch.Path); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worktree) readFile(p string) ([]byte, error) {
	fi, err := w.FS.Lstat(p)
	if err != nil {
		return nil, err
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		target, err := w.FS.Readlink(p)
		if err != nil {
			return nil, err
		}
		return []byte(target), nil
	}
	f, err := w.FS.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if w.Filter != nil {
		content = w.Filter.Clean(p, content)
	}
	return content, nil
}

func (w *Worktree) hashBlob(p string) (plumbing.Hash, error) {
	content, err := w.readFile(p)
	if err != nil {
		return plumbing.Hash{}, err
	}
	return plumbing.ComputeHash(w.Format, plumbing.BlobObject, content), nil
}

func (w *Worktree) stageFile(p string, h plumbing.Hash) error {
	idx, err := w.index()
	if err != nil {
		return err
	}
	fi, err := w.FS.Lstat(p)
	if err != nil {
		return err
	}
	mode := plumbing.NewFileMode(fi.Mode(), true, true)
	e, ok := idx.Entry(p)
	if !ok {
		e = &index.Entry{Name: p}
	}
	e.Hash = h
	e.Mode = mode
	e.ModifiedAt = fi.ModTime()
	if mode.IsRegular() {
		e.Size = uint32(fi.Size())
	}
	idx.Insert(e)
	return w.Store.WriteIndex(idx)
}

func (w *Worktree) removeFromIndex(p string) error {
	idx, err := w.index()
	if err != nil {
		return err
	}
	idx.Remove(p)
	return w.Store.WriteIndex(idx)
}

// Remove deletes path from both the index and the worktree.
func (w *Worktree) Remove(path string) error {
	if err := w.removeFromIndex(path); err != nil {
		return err
	}
	if err := w.FS.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Move renames path in both the index and the worktree.
func (w *Worktree) Move(from, to string) (plumbing.Hash, error) {
	if _, err := w.FS.Lstat(from); err != nil {
		return plumbing.Hash{}, err
	}
	idx, err := w.index()
	if err != nil {
		return plumbing.Hash{}, err
	}
	e, ok := idx.Entry(from)
	if !ok {
		return plumbing.Hash{}, fmt.Errorf("worktree: %s is not staged", from)
	}
	h := e.Hash
	if err := w.FS.Rename(from, to); err != nil {
		return plumbing.Hash{}, err
	}
	idx.Remove(from)
	if err := w.Store.WriteIndex(idx); err != nil {
		return plumbing.Hash{}, err
	}
	return w.Add(to)
}

// securePath joins the worktree root with a repository-relative path,
// rejecting any result that would escape the root (a malicious symlink
// or a "../" path component in a tree/index entry).
func securePath(root, rel string) (string, error) {
	return securejoin.SecureJoin(root, rel)
}

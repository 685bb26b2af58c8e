// Package walker implements the three interchangeable tree views that
// checkout, merge, diff and status are all built on: a commit's TREE, the
// staged snapshot in STAGE (the index) and the files actually present in
// WORKDIR. Each view is exposed as the same Node interface so any two of
// them can be compared by walking both in lockstep, depth first, the way
// a radix-tree diff does it.
package walker

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/format/index"
	"github.com/opengit/gitcore/plumbing/object"
	"github.com/opengit/gitcore/plumbing/odb"
)

// Node is one path in a walked tree, directory or file.
type Node interface {
	Name() string
	IsDir() bool
	Mode() plumbing.FileMode
	// Hash returns the content id of a file node (the blob id) or, for a
	// directory, its tree id if one is already known (zero otherwise:
	// STAGE and WORKDIR directories have no precomputed tree id).
	Hash() (plumbing.Hash, error)
	Children() ([]Node, error)
}

// ---- TREE(ref) ----

type treeNode struct {
	name   string
	mode   plumbing.FileMode
	hash   plumbing.Hash
	odb    *odb.ODB
	format plumbing.ObjectFormat
}

// NewTreeNode returns the TREE root for the tree object id root.
func NewTreeNode(o *odb.ODB, format plumbing.ObjectFormat, root plumbing.Hash) Node {
	return &treeNode{name: "", mode: plumbing.FileModeDir, hash: root, odb: o, format: format}
}

func (n *treeNode) Name() string             { return n.name }
func (n *treeNode) IsDir() bool              { return n.mode.IsDir() }
func (n *treeNode) Mode() plumbing.FileMode  { return n.mode }
func (n *treeNode) Hash() (plumbing.Hash, error) { return n.hash, nil }

func (n *treeNode) Children() ([]Node, error) {
	if !n.IsDir() {
		return nil, nil
	}
	t, err := n.odb.Tree(n.format, n.hash)
	if err != nil {
		return nil, fmt.Errorf("walker: resolving tree %s: %w", n.hash, err)
	}
	out := make([]Node, 0, len(t.Entries))
	for _, e := range t.Entries {
		out = append(out, &treeNode{name: e.Name, mode: e.Mode, hash: e.Hash, odb: n.odb, format: n.format})
	}
	return out, nil
}

// ---- STAGE (index) ----

type stageDir struct {
	name     string
	children []Node
}

func (n *stageDir) Name() string                { return n.name }
func (n *stageDir) IsDir() bool                  { return true }
func (n *stageDir) Mode() plumbing.FileMode      { return plumbing.FileModeDir }
func (n *stageDir) Hash() (plumbing.Hash, error) { return plumbing.Hash{}, nil }
func (n *stageDir) Children() ([]Node, error)    { return n.children, nil }

type stageFile struct {
	name  string
	entry *index.Entry
}

func (n *stageFile) Name() string                { return n.name }
func (n *stageFile) IsDir() bool                  { return false }
func (n *stageFile) Mode() plumbing.FileMode      { return n.entry.Mode }
func (n *stageFile) Hash() (plumbing.Hash, error) { return n.entry.Hash, nil }
func (n *stageFile) Children() ([]Node, error)    { return nil, nil }

// Entry exposes the backing index entry, for callers that need stage
// bookkeeping (size, timestamps) beyond Hash/Mode.
func (n *stageFile) Entry() *index.Entry { return n.entry }

// NewStageNode builds the STAGE root from the merged (stage 0) entries of
// idx, materializing the flat entry list into a directory trie once.
func NewStageNode(idx *index.Index) Node {
	root := &trieDir{dirs: map[string]*trieDir{}, files: map[string]*index.Entry{}}
	for _, e := range idx.Entries {
		if e.Stage != index.Merged {
			continue
		}
		root.insert(e.Name, e)
	}
	return root.toNode("")
}

type trieDir struct {
	dirs  map[string]*trieDir
	files map[string]*index.Entry
}

func (d *trieDir) insert(p string, e *index.Entry) {
	dir, base := path.Split(p)
	dir = path.Clean(dir)
	node := d
	if dir != "." && dir != "" {
		for _, seg := range splitPath(dir) {
			next, ok := node.dirs[seg]
			if !ok {
				next = &trieDir{dirs: map[string]*trieDir{}, files: map[string]*index.Entry{}}
				node.dirs[seg] = next
			}
			node = next
		}
	}
	node.files[base] = e
}

func splitPath(p string) []string {
	var out []string
	for _, seg := range bytes.Split([]byte(p), []byte("/")) {
		if len(seg) > 0 {
			out = append(out, string(seg))
		}
	}
	return out
}

func (d *trieDir) toNode(name string) Node {
	children := make([]Node, 0, len(d.dirs)+len(d.files))
	for n, sub := range d.dirs {
		children = append(children, sub.toNode(n))
	}
	for n, e := range d.files {
		children = append(children, &stageFile{name: n, entry: e})
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name() < children[j].Name() })
	return &stageDir{name: name, children: children}
}

// ---- WORKDIR ----

type workdirNode struct {
	fs   billy.Filesystem
	path string // full path from the worktree root
	name string
	fi   os.FileInfo

	hashOnce bool
	hash     plumbing.Hash
}

// NewWorkdirNode returns the WORKDIR root rooted at fs.
func NewWorkdirNode(fs billy.Filesystem) Node {
	return &workdirNode{fs: fs, path: "", name: ""}
}

func (n *workdirNode) Name() string { return n.name }

func (n *workdirNode) stat() (os.FileInfo, error) {
	if n.fi != nil {
		return n.fi, nil
	}
	if n.path == "" {
		n.fi = rootFileInfo{}
		return n.fi, nil
	}
	fi, err := n.fs.Lstat(n.path)
	if err != nil {
		return nil, err
	}
	n.fi = fi
	return fi, nil
}

type rootFileInfo struct{ os.FileInfo }

func (rootFileInfo) IsDir() bool { return true }
func (rootFileInfo) Name() string { return "" }

func (n *workdirNode) IsDir() bool {
	fi, err := n.stat()
	if err != nil {
		return false
	}
	return fi.IsDir()
}

func (n *workdirNode) Mode() plumbing.FileMode {
	fi, err := n.stat()
	if err != nil {
		return plumbing.FileModeRegular
	}
	return plumbing.NewFileMode(fi.Mode(), true, true)
}

// Hash computes the blob id of the file's current on-disk content
// (or the link target for a symlink), caching the result.
func (n *workdirNode) Hash() (plumbing.Hash, error) {
	if n.hashOnce {
		return n.hash, nil
	}
	mode := n.Mode()
	if mode.IsSymlink() {
		target, err := n.fs.Readlink(n.path)
		if err != nil {
			return plumbing.Hash{}, err
		}
		n.hash = plumbing.ComputeHash(plumbing.FormatSHA1, plumbing.BlobObject, []byte(target))
		n.hashOnce = true
		return n.hash, nil
	}

	f, err := n.fs.Open(n.path)
	if err != nil {
		return plumbing.Hash{}, err
	}
	defer f.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		return plumbing.Hash{}, err
	}
	n.hash = plumbing.ComputeHash(plumbing.FormatSHA1, plumbing.BlobObject, buf.Bytes())
	n.hashOnce = true
	return n.hash, nil
}

func (n *workdirNode) Children() ([]Node, error) {
	if !n.IsDir() {
		return nil, nil
	}
	infos, err := n.fs.ReadDir(n.path)
	if err != nil {
		return nil, err
	}
	out := make([]Node, 0, len(infos))
	for _, fi := range infos {
		if n.path == "" && fi.Name() == ".git" {
			continue
		}
		out = append(out, &workdirNode{fs: n.fs, path: n.fs.Join(n.path, fi.Name()), name: fi.Name(), fi: fi})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// ---- diff ----

// Action classifies one path-level change between two Node trees.
type Action int

const (
	Insert Action = iota
	Delete
	Modify
)

func (a Action) String() string {
	switch a {
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	default:
		return "modify"
	}
}

// Change is one file-level difference between a "from" and a "to" tree.
// Exactly one of From/To is nil for Insert/Delete.
type Change struct {
	Action Action
	Path   string
	From   Node
	To     Node
}

// Changes is an ordered list of file-level differences, depth-first in
// path order.
type Changes []Change

// Diff compares two Node trees (any pairing of TREE/STAGE/WORKDIR) and
// returns every path whose content or presence differs. Directories
// never appear directly in the result: only the files under them do.
func Diff(from, to Node) (Changes, error) {
	var out Changes
	if err := diffNode("", from, to, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func diffNode(base string, from, to Node, out *Changes) error {
	switch {
	case from == nil && to == nil:
		return nil
	case from == nil:
		return walkInsert(base, to, out)
	case to == nil:
		return walkDelete(base, from, out)
	}

	if from.IsDir() != to.IsDir() {
		// base is already from/to's own path here (diffNode was entered
		// with the joined path of this node), unlike the sibling loop
		// below where base is still the parent's path.
		if err := walkOneSidedAt(base, from, Delete, out); err != nil {
			return err
		}
		return walkOneSidedAt(base, to, Insert, out)
	}

	if !from.IsDir() {
		fh, err := from.Hash()
		if err != nil {
			return err
		}
		th, err := to.Hash()
		if err != nil {
			return err
		}
		if fh == th && from.Mode() == to.Mode() {
			return nil
		}
		*out = append(*out, Change{Action: Modify, Path: base, From: from, To: to})
		return nil
	}

	fc, err := from.Children()
	if err != nil {
		return err
	}
	tc, err := to.Children()
	if err != nil {
		return err
	}

	i, j := 0, 0
	for i < len(fc) || j < len(tc) {
		switch {
		case j >= len(tc) || (i < len(fc) && fc[i].Name() < tc[j].Name()):
			if err := walkDelete(base, fc[i], out); err != nil {
				return err
			}
			i++
		case i >= len(fc) || (j < len(tc) && tc[j].Name() < fc[i].Name()):
			if err := walkInsert(base, tc[j], out); err != nil {
				return err
			}
			j++
		default:
			if err := diffNode(joinPath(base, fc[i].Name()), fc[i], tc[j], out); err != nil {
				return err
			}
			i++
			j++
		}
	}
	return nil
}

func walkInsert(base string, n Node, out *Changes) error { return walkOneSided(base, n, Insert, out) }
func walkDelete(base string, n Node, out *Changes) error { return walkOneSided(base, n, Delete, out) }

// walkOneSided emits n (and everything under it, if n is a dir) as all
// Insert or all Delete, where base is n's PARENT path (n's own name is
// still unjoined).
func walkOneSided(base string, n Node, action Action, out *Changes) error {
	return walkOneSidedAt(joinPath(base, n.Name()), n, action, out)
}

// walkOneSidedAt is walkOneSided's counterpart for callers that already
// hold n's own resolved path (e.g. a node reached by recursing into
// matched-by-name children, where the path was joined one level up).
func walkOneSidedAt(path string, n Node, action Action, out *Changes) error {
	if !n.IsDir() {
		ch := Change{Action: action, Path: path}
		if action == Insert {
			ch.To = n
		} else {
			ch.From = n
		}
		*out = append(*out, ch)
		return nil
	}
	children, err := n.Children()
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := walkOneSidedAt(joinPath(path, c.Name()), c, action, out); err != nil {
			return err
		}
	}
	return nil
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	if name == "" {
		return base
	}
	return base + "/" + name
}

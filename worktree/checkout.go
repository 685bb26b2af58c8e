package worktree

import (
	"fmt"
	"os"
	"strings"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/format/index"
	"github.com/opengit/gitcore/plumbing/object"
	"github.com/opengit/gitcore/plumbing/walker"
	"github.com/opengit/gitcore/storage"
)

// ResetMode controls how far Reset reaches: just HEAD, HEAD and the
// index, or HEAD, the index and the worktree.
type ResetMode int8

const (
	SoftReset ResetMode = iota
	MixedReset
	HardReset
	MergeReset
)

// CheckoutOptions configures Worktree.Checkout.
type CheckoutOptions struct {
	Branch plumbing.ReferenceName
	Hash   plumbing.Hash
	Create bool
	Force  bool
	// Sparse lists cone-mode directory prefixes to materialize; empty
	// means a full (non-sparse) checkout.
	Sparse []string
}

func (o *CheckoutOptions) Validate() error {
	if o.Create && !o.Hash.IsZero() {
		return fmt.Errorf("worktree: cannot create a branch from a bare commit hash")
	}
	if o.Branch == "" && o.Hash.IsZero() {
		return fmt.Errorf("worktree: checkout requires a branch or a commit hash")
	}
	return nil
}

// ResetOptions configures Worktree.Reset.
type ResetOptions struct {
	Commit plumbing.Hash
	Mode   ResetMode
}

// Checkout switches HEAD (creating Branch first if Create is set) and
// updates the index and worktree to match, refusing to clobber unstaged
// changes unless Force is set.
func (w *Worktree) Checkout(o *CheckoutOptions) error {
	if err := o.Validate(); err != nil {
		return err
	}
	w.Sparse = o.Sparse

	if !o.Force {
		dirty, err := w.unstagedChanges()
		if err != nil {
			return err
		}
		if dirty {
			return ErrUnstagedChanges
		}
	}

	commit, err := w.resolveCheckoutTarget(o)
	if err != nil {
		return err
	}

	if o.Create {
		if err := w.Store.WriteRef(o.Branch, plumbing.NewHashReference(o.Branch, commit), storage.RefUpdateOptions{}); err != nil {
			return err
		}
	}

	mode := MergeReset
	if o.Force {
		mode = HardReset
	}

	if !o.Hash.IsZero() && !o.Create {
		if err := w.Store.WriteHEAD(plumbing.NewHashReference(plumbing.HEAD, commit)); err != nil {
			return err
		}
	} else {
		target := o.Branch
		ref, err := w.Store.ReadRef(target)
		if err != nil {
			return fmt.Errorf("worktree: resolving %s: %w", target, err)
		}
		head := plumbing.NewSymbolicReference(plumbing.HEAD, ref.Name())
		if err := w.Store.WriteHEAD(head); err != nil {
			return err
		}
	}

	return w.Reset(&ResetOptions{Commit: commit, Mode: mode})
}

func (w *Worktree) resolveCheckoutTarget(o *CheckoutOptions) (plumbing.Hash, error) {
	if !o.Hash.IsZero() {
		return o.Hash, nil
	}
	ref, err := w.Store.ReadRef(o.Branch)
	if err != nil {
		if o.Create {
			return w.headCommitHash()
		}
		return plumbing.Hash{}, err
	}
	if !ref.Name().IsTag() {
		return ref.Hash(), nil
	}
	obj, err := w.ODB.DecodeObject(w.Format, ref.Hash())
	if err != nil {
		return plumbing.Hash{}, err
	}
	switch t := obj.(type) {
	case *object.Tag:
		return t.Object, nil
	default:
		return ref.Hash(), nil
	}
}

func (w *Worktree) headCommitHash() (plumbing.Hash, error) {
	head, err := w.Store.ReadHEAD()
	if err != nil {
		return plumbing.Hash{}, err
	}
	if head.Type() == plumbing.HashReference {
		return head.Hash(), nil
	}
	ref, err := w.Store.ReadRef(head.Target())
	if err != nil {
		return plumbing.Hash{}, err
	}
	return ref.Hash(), nil
}

// Reset rewrites the index (and, depending on Mode, the worktree) to
// match Commit's tree, then moves the current branch (or a detached
// HEAD) to Commit.
func (w *Worktree) Reset(o *ResetOptions) error {
	c, err := w.ODB.Commit(w.Format, o.Commit)
	if err != nil {
		return err
	}

	if o.Mode == SoftReset {
		return w.moveHEAD(o.Commit)
	}

	if o.Mode == MergeReset {
		dirty, err := w.unstagedChanges()
		if err != nil {
			return err
		}
		if dirty {
			return ErrUnstagedChanges
		}
	}

	targetNode := walker.NewTreeNode(w.ODB, w.Format, c.Tree)
	stageNode, idx, err := w.stageNode()
	if err != nil {
		return err
	}

	changes, err := walker.Diff(stageNode, targetNode)
	if err != nil {
		return err
	}
	changes = w.applySparseFilter(changes)

	// Deletions first, then creates/modifications, matching the
	// delete-before-write ordering a case-insensitive or path-colliding
	// rename needs to not clobber itself mid-checkout.
	for _, ch := range changes {
		if ch.Action != walker.Delete {
			continue
		}
		if o.Mode == HardReset || o.Mode == MergeReset {
			if err := w.FS.Remove(ch.Path); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
		idx.Remove(ch.Path)
	}
	for _, ch := range changes {
		if ch.Action == walker.Delete {
			continue
		}
		if o.Mode == HardReset || o.Mode == MergeReset {
			if err := w.writeWorktreeFile(ch.Path, c.Tree); err != nil {
				return err
			}
		}
		if err := w.stageTreeEntry(idx, ch.Path, c.Tree); err != nil {
			return err
		}
	}

	// A hard reset also discards worktree edits to paths whose index entry
	// already matches the target; untracked files are left in place.
	if o.Mode == HardReset {
		wchanges, err := walker.Diff(w.workdirNode(), targetNode)
		if err != nil {
			return err
		}
		for _, ch := range w.applySparseFilter(wchanges) {
			if ch.Action == walker.Delete {
				continue
			}
			if err := w.writeWorktreeFile(ch.Path, c.Tree); err != nil {
				return err
			}
		}
	}

	if err := w.Store.WriteIndex(idx); err != nil {
		return err
	}
	return w.moveHEAD(o.Commit)
}

// applySparseFilter drops changes outside the configured cone when
// sparse checkout is in effect; an empty Sparse list means everything is
// in cone.
func (w *Worktree) applySparseFilter(changes walker.Changes) walker.Changes {
	if len(w.Sparse) == 0 {
		return changes
	}
	out := changes[:0]
	for _, ch := range changes {
		if w.inCone(ch.Path) {
			out = append(out, ch)
		}
	}
	return out
}

func (w *Worktree) inCone(p string) bool {
	for _, prefix := range w.Sparse {
		prefix = strings.TrimSuffix(prefix, "/")
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}

func (w *Worktree) moveHEAD(commit plumbing.Hash) error {
	head, err := w.Store.ReadHEAD()
	if err != nil {
		return err
	}
	if head.Type() == plumbing.HashReference {
		return w.Store.WriteHEAD(plumbing.NewHashReference(plumbing.HEAD, commit))
	}
	branch, err := w.Store.ReadRef(head.Target())
	if err != nil && err != storage.ErrNotFound {
		return err
	}
	name := head.Target()
	if branch != nil {
		name = branch.Name()
	}
	return w.Store.WriteRef(name, plumbing.NewHashReference(name, commit), storage.RefUpdateOptions{Force: true})
}

// resolveTreeEntry walks root/path segment by segment, resolving nested
// trees as needed.
func (w *Worktree) resolveTreeEntry(root plumbing.Hash, p string) (object.TreeEntry, error) {
	segs := splitClean(p)
	cur := root
	var entry object.TreeEntry
	for i, seg := range segs {
		t, err := w.ODB.Tree(w.Format, cur)
		if err != nil {
			return object.TreeEntry{}, err
		}
		e, ok := t.Entry(seg)
		if !ok {
			return object.TreeEntry{}, ErrNoSuchPath
		}
		entry = e
		if i < len(segs)-1 {
			cur = e.Hash
		}
	}
	return entry, nil
}

func splitClean(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func (w *Worktree) writeWorktreeFile(p string, root plumbing.Hash) error {
	entry, err := w.resolveTreeEntry(root, p)
	if err != nil {
		return err
	}
	if entry.Mode.IsSubmodule() {
		return nil
	}

	full, err := securePath(w.FS.Root(), p)
	_ = full // securejoin validates the join; billy operations below stay
	// relative to the worktree root, matching the rest of this package.
	if err != nil {
		return err
	}

	if dir := parentDir(p); dir != "" {
		if err := w.FS.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	blob, err := w.ODB.Blob(w.Format, entry.Hash)
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

	if entry.Mode.IsSymlink() {
		return w.FS.Symlink(string(content), p)
	}

	perm := os.FileMode(0o644)
	if entry.Mode.IsRegular() && entry.Mode == plumbing.FileModeExecutable {
		perm = 0o755
	}
	f, err := w.FS.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(content)
	return err
}

func parentDir(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return ""
	}
	return p[:i]
}

func (w *Worktree) stageTreeEntry(idx *index.Index, p string, root plumbing.Hash) error {
	entry, err := w.resolveTreeEntry(root, p)
	if err != nil {
		return err
	}
	e := &index.Entry{Name: p, Hash: entry.Hash, Mode: entry.Mode}
	if fi, err := w.FS.Lstat(p); err == nil {
		e.ModifiedAt = fi.ModTime()
		if entry.Mode.IsRegular() {
			e.Size = uint32(fi.Size())
		}
	}
	idx.Insert(e)
	return nil
}

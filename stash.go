package gitcore

import (
	"errors"
	"fmt"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/object"
	"github.com/opengit/gitcore/storage"
	"github.com/opengit/gitcore/worktree"
)

var ErrNoStash = errors.New("gitcore: no stash entries")

const stashRef = plumbing.ReferenceName("refs/stash")

// Stash records the worktree and index as a commit (parented on HEAD,
// so "stash pop" is just a checkout of its tree) and resets the
// worktree back to HEAD, the way a throwaway WIP commit would.
func (r *Repository) Stash(o *StashOptions) (plumbing.Hash, error) {
	wt, err := r.Worktree()
	if err != nil {
		return plumbing.Hash{}, err
	}

	if o.IncludeUntracked {
		if err := wt.AddAll(); err != nil {
			return plumbing.Hash{}, err
		}
	}

	status, err := wt.Status()
	if err != nil {
		return plumbing.Hash{}, err
	}
	if status.IsClean() {
		return plumbing.Hash{}, ErrEmptyCommit
	}
	for path, fs := range status {
		switch fs.Worktree {
		case worktree.Modified:
			if _, err := wt.Add(path); err != nil {
				return plumbing.Hash{}, err
			}
		case worktree.Deleted:
			if err := wt.Remove(path); err != nil {
				return plumbing.Hash{}, err
			}
		}
	}

	head, err := r.s.ReadHEAD()
	if err != nil {
		return plumbing.Hash{}, err
	}
	headHash, err := r.resolveHead(head)
	if err != nil {
		return plumbing.Hash{}, err
	}

	tree, err := wt.WriteTree()
	if err != nil {
		return plumbing.Hash{}, err
	}

	msg := o.Message
	if msg == "" {
		msg = "WIP on " + headRefShortName(head)
	}
	sig := toObjectSignature(Signature{})

	c := &object.Commit{
		Tree:      tree,
		Parents:   []plumbing.Hash{headHash},
		Author:    sig,
		Committer: sig,
		Message:   msg,
	}
	hash, err := r.odb.EncodeObject(r.s.ObjectFormat(), c)
	if err != nil {
		return plumbing.Hash{}, err
	}

	prev, err := r.s.ReadRef(stashRef)
	var old plumbing.Hash
	if err == nil {
		old = prev.Hash()
	} else if !errors.Is(err, storage.ErrNotFound) {
		return plumbing.Hash{}, err
	}
	if err := r.s.WriteRef(stashRef, plumbing.NewHashReference(stashRef, hash), storage.RefUpdateOptions{
		Force:  true,
		Reflog: storage.ReflogEntry{Old: old, New: hash, Message: msg},
	}); err != nil {
		return plumbing.Hash{}, err
	}

	return hash, wt.Reset(&worktree.ResetOptions{Commit: headHash, Mode: worktree.HardReset})
}

// StashPop applies the most recent stash entry's tree to the worktree
// and index, then drops it.
func (r *Repository) StashPop() error {
	ref, err := r.s.ReadRef(stashRef)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNoStash
		}
		return err
	}

	wt, err := r.Worktree()
	if err != nil {
		return err
	}
	head, err := r.s.ReadHEAD()
	if err != nil {
		return err
	}
	headHash, err := r.resolveHead(head)
	if err != nil {
		return err
	}
	if err := wt.Reset(&worktree.ResetOptions{Commit: ref.Hash(), Mode: worktree.HardReset}); err != nil {
		return fmt.Errorf("gitcore: applying stash: %w", err)
	}
	// The hard reset moved the current branch onto the stash commit; move
	// it back, keeping the stash's index and worktree.
	if err := wt.Reset(&worktree.ResetOptions{Commit: headHash, Mode: worktree.SoftReset}); err != nil {
		return err
	}
	return r.s.DeleteRef(stashRef)
}

func headRefShortName(head *plumbing.Reference) string {
	if head.Type() == plumbing.SymbolicReference {
		return head.Target().Short()
	}
	return head.Hash().String()[:7]
}

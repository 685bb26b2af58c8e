package gitcore

import (
	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/worktree"
)

// Worktree returns the working-tree view of the repository (status,
// add/remove, checkout). It errors for bare repositories.
func (r *Repository) Worktree() (*worktree.Worktree, error) {
	if r.IsBare() {
		return nil, ErrWorktreeRequired
	}
	return worktree.New(r.worktreeFS, r.s, r.odb), nil
}

// Add stages path's current worktree content.
func (r *Repository) Add(path string) (plumbing.Hash, error) {
	wt, err := r.Worktree()
	if err != nil {
		return plumbing.Hash{}, err
	}
	return wt.Add(path)
}

// AddAll stages every added or modified path in the worktree.
func (r *Repository) AddAll() error {
	wt, err := r.Worktree()
	if err != nil {
		return err
	}
	return wt.AddAll()
}

// Status reports how the worktree and index differ from HEAD.
func (r *Repository) Status() (worktree.Status, error) {
	wt, err := r.Worktree()
	if err != nil {
		return nil, err
	}
	return wt.Status()
}

// Checkout switches HEAD and updates the index/worktree to match.
func (r *Repository) Checkout(o *CheckoutOptions) error {
	wt, err := r.Worktree()
	if err != nil {
		return err
	}
	return wt.Checkout(&worktree.CheckoutOptions{
		Branch: o.Branch,
		Hash:   o.Hash,
		Create: o.Create,
		Force:  o.Force,
		Sparse: o.Sparse,
	})
}

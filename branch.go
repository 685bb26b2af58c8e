package gitcore

import (
	"errors"
	"fmt"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/storage"
)

var ErrBranchExists = errors.New("gitcore: branch already exists")

// Branch creates a new branch pointing at Hash (or the current HEAD
// commit if Hash is zero).
func (r *Repository) Branch(o *BranchOptions) (*plumbing.Reference, error) {
	name := plumbing.NewBranchReferenceName(o.Name)

	target := o.Hash
	if target.IsZero() {
		head, err := r.Head()
		if err != nil {
			return nil, fmt.Errorf("gitcore: creating branch %s: %w", o.Name, err)
		}
		target = head.Hash()
	}

	opts := storage.RefUpdateOptions{Force: o.Force}
	if !o.Force {
		if _, err := r.s.ReadRef(name); err == nil {
			return nil, ErrBranchExists
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}

	ref := plumbing.NewHashReference(name, target)
	if err := r.s.WriteRef(name, ref, opts); err != nil {
		return nil, err
	}
	return ref, nil
}

// DeleteBranch removes a local branch ref.
func (r *Repository) DeleteBranch(name string) error {
	return r.s.DeleteRef(plumbing.NewBranchReferenceName(name))
}

// Branches lists every local branch ref.
func (r *Repository) Branches() ([]*plumbing.Reference, error) {
	return r.s.ListRefs(plumbing.ReferenceName("refs/heads/"))
}

package gitcore

import (
	"errors"
	"time"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/object"
	"github.com/opengit/gitcore/storage"
)

var ErrEmptyCommit = errors.New("gitcore: nothing to commit, worktree matches HEAD")

func toObjectSignature(s Signature) object.Signature {
	when := time.Now()
	if s.When != 0 {
		when = time.Unix(s.When, 0)
	}
	return object.Signature{Name: s.Name, Email: s.Email, When: when}
}

// Commit writes a commit object from the current index against HEAD's
// current branch and advances that branch (or HEAD itself, if detached)
// to point at it.
func (r *Repository) Commit(o *CommitOptions) (plumbing.Hash, error) {
	if o.All {
		if err := r.AddAll(); err != nil {
			return plumbing.Hash{}, err
		}
	}

	wt, err := r.Worktree()
	if err != nil {
		return plumbing.Hash{}, err
	}
	tree, err := wt.WriteTree()
	if err != nil {
		return plumbing.Hash{}, err
	}

	head, err := r.s.ReadHEAD()
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return plumbing.Hash{}, err
	}

	parents := o.Parents
	var headHash plumbing.Hash
	if head != nil {
		if h, err := r.resolveHead(head); err == nil {
			headHash = h
			if len(parents) == 0 {
				parents = []plumbing.Hash{h}
			}
		}
	}

	if len(parents) == 1 && !headHash.IsZero() {
		if c, err := r.odb.Commit(r.s.ObjectFormat(), headHash); err == nil && c.Tree == tree {
			return plumbing.Hash{}, ErrEmptyCommit
		}
	}

	author := toObjectSignature(o.Author)
	committer := author
	if o.Committer.Name != "" {
		committer = toObjectSignature(o.Committer)
	}

	c := &object.Commit{
		Tree:      tree,
		Parents:   parents,
		Author:    author,
		Committer: committer,
		Message:   o.Message,
	}
	hash, err := r.odb.EncodeObject(r.s.ObjectFormat(), c)
	if err != nil {
		return plumbing.Hash{}, err
	}

	if err := r.updateHeadBranch(head, headHash, hash, "commit: "+firstLine(o.Message)); err != nil {
		return plumbing.Hash{}, err
	}
	return hash, nil
}

// resolveHead dereferences head (symbolic or direct) to a commit hash.
func (r *Repository) resolveHead(head *plumbing.Reference) (plumbing.Hash, error) {
	if head.Type() == plumbing.HashReference {
		return head.Hash(), nil
	}
	ref, err := r.s.ReadRef(head.Target())
	if err != nil {
		return plumbing.Hash{}, err
	}
	return ref.Hash(), nil
}

// updateHeadBranch advances the branch HEAD points at (or HEAD itself,
// detached) from oldHash to newHash, appending a reflog entry.
func (r *Repository) updateHeadBranch(head *plumbing.Reference, oldHash, newHash plumbing.Hash, reflogMsg string) error {
	name := plumbing.HEAD
	if head != nil && head.Type() == plumbing.SymbolicReference {
		name = head.Target()
	}
	opts := storage.RefUpdateOptions{
		Force:  true,
		Reflog: storage.ReflogEntry{Old: oldHash, New: newHash, Message: reflogMsg},
	}
	if err := r.s.WriteRef(name, plumbing.NewHashReference(name, newHash), opts); err != nil {
		return err
	}
	if head == nil || head.Type() == plumbing.HashReference {
		return r.s.WriteHEAD(plumbing.NewHashReference(plumbing.HEAD, newHash))
	}
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

package gitcore

import (
	"fmt"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/object"
	"github.com/opengit/gitcore/worktree/merge"
)

// CherryPick replays o.Commit's change (relative to its first parent)
// onto HEAD, three-way merging it the same way Merge does, and commits
// the result unless NoCommit is set.
func (r *Repository) CherryPick(o *CherryPickOptions) (plumbing.Hash, error) {
	format := r.s.ObjectFormat()

	pick, err := r.odb.Commit(format, o.Commit)
	if err != nil {
		return plumbing.Hash{}, fmt.Errorf("gitcore: resolving %s: %w", o.Commit, err)
	}
	if len(pick.Parents) == 0 {
		return plumbing.Hash{}, fmt.Errorf("gitcore: cannot cherry-pick a root commit")
	}
	parent, err := r.odb.Commit(format, pick.Parents[0])
	if err != nil {
		return plumbing.Hash{}, err
	}

	head, err := r.s.ReadHEAD()
	if err != nil {
		return plumbing.Hash{}, err
	}
	ours, err := r.resolveHead(head)
	if err != nil {
		return plumbing.Hash{}, err
	}
	ourCommit, err := r.odb.Commit(format, ours)
	if err != nil {
		return plumbing.Hash{}, err
	}

	result, err := merge.MergeTrees(r.odb, format, parent.Tree, ourCommit.Tree, pick.Tree)
	if err != nil {
		return plumbing.Hash{}, err
	}
	if result.HasConflicts() {
		if err := r.stageMergeConflicts(result); err != nil {
			return plumbing.Hash{}, err
		}
		if err := r.s.WriteStateFile("CHERRY_PICK_HEAD", []byte(o.Commit.String()+"\n")); err != nil {
			return plumbing.Hash{}, err
		}
		return plumbing.Hash{}, ErrMergeConflicts
	}

	tree, err := merge.BuildTree(r.odb, format, result.Entries)
	if err != nil {
		return plumbing.Hash{}, err
	}

	if wt, err := r.Worktree(); err == nil {
		if err := wt.ApplyEntries(result.Entries); err != nil {
			return plumbing.Hash{}, err
		}
	}

	if o.NoCommit {
		return tree, nil
	}

	committer := o.Committer
	if committer.Name == "" {
		committer = Signature{Name: pick.Committer.Name, Email: pick.Committer.Email}
	}
	sig := toObjectSignature(committer)

	c := &object.Commit{
		Tree:      tree,
		Parents:   []plumbing.Hash{ours},
		Author:    pick.Author,
		Committer: sig,
		Message:   pick.Message,
	}
	hash, err := r.odb.EncodeObject(format, c)
	if err != nil {
		return plumbing.Hash{}, err
	}
	if err := r.updateHeadBranch(head, ours, hash, "cherry-pick: "+firstLine(pick.Message)); err != nil {
		return plumbing.Hash{}, err
	}
	return hash, nil
}

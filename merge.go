package gitcore

import (
	"errors"
	"fmt"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/format/index"
	"github.com/opengit/gitcore/plumbing/object"
	"github.com/opengit/gitcore/plumbing/revlist"
	"github.com/opengit/gitcore/storage"
	"github.com/opengit/gitcore/worktree"
	"github.com/opengit/gitcore/worktree/merge"
)

var (
	ErrMergeConflicts = errors.New("gitcore: merge left conflicts, resolve and commit")
	ErrNotFastForward = errors.New("gitcore: not a fast-forward merge")
)

const mergeHeadFile = "MERGE_HEAD"
const mergeMsgFile = "MERGE_MSG"

// Merge merges o.Branch into the current branch. A fast-forward is
// taken whenever possible unless NoFastForward is set; FastForwardOnly
// makes a non-fast-forward merge an error instead of creating a merge
// commit.
func (r *Repository) Merge(o *MergeOptions) (plumbing.Hash, error) {
	format := r.s.ObjectFormat()

	theirRef, err := r.s.ReadRef(o.Branch)
	if err != nil {
		return plumbing.Hash{}, fmt.Errorf("gitcore: resolving %s: %w", o.Branch, err)
	}
	theirs := theirRef.Hash()

	head, err := r.s.ReadHEAD()
	if err != nil {
		return plumbing.Hash{}, err
	}
	ours, err := r.resolveHead(head)
	if err != nil {
		return plumbing.Hash{}, err
	}

	if ours == theirs {
		return ours, nil
	}

	if !o.NoFastForward {
		isFF, err := revlist.IsAncestor(r.odb, format, ours, theirs)
		if err != nil {
			return plumbing.Hash{}, err
		}
		if isFF {
			if err := r.updateHeadBranch(head, ours, theirs, "merge "+o.Branch.Short()+": Fast-forward"); err != nil {
				return plumbing.Hash{}, err
			}
			if err := r.syncWorktreeTo(theirs); err != nil {
				return plumbing.Hash{}, err
			}
			return theirs, nil
		}
	}

	if o.FastForwardOnly {
		return plumbing.Hash{}, ErrNotFastForward
	}

	base, err := merge.CommonAncestor(r.odb, format, ours, theirs)
	if err != nil {
		return plumbing.Hash{}, err
	}

	ourCommit, err := r.odb.Commit(format, ours)
	if err != nil {
		return plumbing.Hash{}, err
	}
	theirCommit, err := r.odb.Commit(format, theirs)
	if err != nil {
		return plumbing.Hash{}, err
	}
	baseCommit, err := r.odb.Commit(format, base)
	if err != nil {
		return plumbing.Hash{}, err
	}

	result, err := merge.MergeTrees(r.odb, format, baseCommit.Tree, ourCommit.Tree, theirCommit.Tree)
	if err != nil {
		return plumbing.Hash{}, err
	}

	msg := o.CommitMessage
	if msg == "" {
		msg = "Merge branch '" + o.Branch.Short() + "'"
	}

	if result.HasConflicts() {
		if err := r.stageMergeConflicts(result); err != nil {
			return plumbing.Hash{}, err
		}
		if err := r.s.WriteStateFile(mergeHeadFile, []byte(theirs.String()+"\n")); err != nil {
			return plumbing.Hash{}, err
		}
		_ = r.s.WriteStateFile(mergeMsgFile, []byte(msg+"\n"))
		return plumbing.Hash{}, ErrMergeConflicts
	}

	tree, err := merge.BuildTree(r.odb, format, result.Entries)
	if err != nil {
		return plumbing.Hash{}, err
	}

	committer := o.Committer
	if committer.Name == "" {
		committer = Signature{Name: ourCommit.Committer.Name, Email: ourCommit.Committer.Email}
	}
	sig := toObjectSignature(committer)

	c := &object.Commit{
		Tree:      tree,
		Parents:   []plumbing.Hash{ours, theirs},
		Author:    sig,
		Committer: sig,
		Message:   msg,
	}
	hash, err := r.odb.EncodeObject(format, c)
	if err != nil {
		return plumbing.Hash{}, err
	}

	if err := r.updateHeadBranch(head, ours, hash, "merge "+o.Branch.Short()+": Merge made by recursive."); err != nil {
		return plumbing.Hash{}, err
	}
	_ = r.s.DeleteStateFile(mergeHeadFile)
	_ = r.s.DeleteStateFile(mergeMsgFile)

	if err := r.syncWorktreeTo(hash); err != nil {
		return plumbing.Hash{}, err
	}
	return hash, nil
}

// syncWorktreeTo hard-resets the worktree (when there is one) to
// commit's tree, the way Merge's caller expects the files on disk to
// reflect the newly advanced branch.
func (r *Repository) syncWorktreeTo(commit plumbing.Hash) error {
	wt, err := r.Worktree()
	if errors.Is(err, ErrWorktreeRequired) {
		return nil
	}
	if err != nil {
		return err
	}
	return wt.Reset(&worktree.ResetOptions{Commit: commit, Mode: worktree.HardReset})
}

// stageMergeConflicts writes every cleanly-resolved path to the index
// and stages each conflicted path across its base/ours/theirs slots.
func (r *Repository) stageMergeConflicts(result *merge.Result) error {
	idx, err := r.s.ReadIndex()
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if idx == nil {
		idx = index.NewIndex()
	}

	for p, e := range result.Entries {
		idx.Insert(&index.Entry{Name: p, Hash: e.Hash, Mode: e.Mode})
	}
	for _, c := range result.Conflicts {
		idx.StageConflict(c.Path, toIndexEntry(c.Base), toIndexEntry(c.Ours), toIndexEntry(c.Theirs))
	}
	return r.s.WriteIndex(idx)
}

func toIndexEntry(e *object.TreeEntry) *index.Entry {
	if e == nil {
		return nil
	}
	return &index.Entry{Hash: e.Hash, Mode: e.Mode}
}

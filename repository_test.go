package gitcore

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/storage/memory"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	s := memory.NewStorage()
	r, err := Init(s, memfs.New())
	require.NoError(t, err)
	return r
}

func writeWorktreeFile(t *testing.T, r *Repository, path, content string) {
	t.Helper()
	wt, err := r.Worktree()
	require.NoError(t, err)
	f, err := wt.FS.Create(path)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func commitFile(t *testing.T, r *Repository, path, content, msg string) plumbing.Hash {
	t.Helper()
	writeWorktreeFile(t, r, path, content)
	_, err := r.Add(path)
	require.NoError(t, err)
	hash, err := r.Commit(&CommitOptions{Message: msg, Author: Signature{Name: "Test", Email: "test@example.com"}})
	require.NoError(t, err)
	return hash
}

func TestCommit_CreatesInitialCommit(t *testing.T) {
	r := newTestRepo(t)
	hash := commitFile(t, r, "a.txt", "hello\n", "initial")
	assert.False(t, hash.IsZero())

	head, err := r.Head()
	require.NoError(t, err)
	assert.Equal(t, hash, head.Hash())
}

func TestCommit_NothingStagedIsEmptyCommit(t *testing.T) {
	r := newTestRepo(t)
	commitFile(t, r, "a.txt", "hello\n", "initial")

	_, err := r.Commit(&CommitOptions{Message: "again", Author: Signature{Name: "Test", Email: "test@example.com"}})
	assert.ErrorIs(t, err, ErrEmptyCommit)
}

func TestBranchAndCheckout(t *testing.T) {
	r := newTestRepo(t)
	hash := commitFile(t, r, "a.txt", "hello\n", "initial")

	_, err := r.Branch(&BranchOptions{Name: "feature"})
	require.NoError(t, err)

	err = r.Checkout(&CheckoutOptions{Branch: plumbing.NewBranchReferenceName("feature")})
	require.NoError(t, err)

	head, err := r.s.ReadHEAD()
	require.NoError(t, err)
	assert.Equal(t, plumbing.NewBranchReferenceName("feature"), head.Target())

	ref, err := r.s.ReadRef(plumbing.NewBranchReferenceName("feature"))
	require.NoError(t, err)
	assert.Equal(t, hash, ref.Hash())
}

func TestBranch_DuplicateWithoutForceFails(t *testing.T) {
	r := newTestRepo(t)
	commitFile(t, r, "a.txt", "hello\n", "initial")

	_, err := r.Branch(&BranchOptions{Name: "feature"})
	require.NoError(t, err)

	_, err = r.Branch(&BranchOptions{Name: "feature"})
	assert.ErrorIs(t, err, ErrBranchExists)
}

func TestTag_LightweightAndAnnotated(t *testing.T) {
	r := newTestRepo(t)
	hash := commitFile(t, r, "a.txt", "hello\n", "initial")

	lw, err := r.Tag(&TagOptions{Name: "v1", Target: hash})
	require.NoError(t, err)
	assert.Equal(t, hash, lw.Hash())

	annotated, err := r.Tag(&TagOptions{
		Name:    "v2",
		Target:  hash,
		Message: "release v2",
		Tagger:  Signature{Name: "Test", Email: "test@example.com"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, hash, annotated.Hash())

	tags, err := r.Tags()
	require.NoError(t, err)
	assert.Len(t, tags, 2)
}

func TestMerge_FastForward(t *testing.T) {
	r := newTestRepo(t)
	commitFile(t, r, "a.txt", "one\n", "initial")

	_, err := r.Branch(&BranchOptions{Name: "feature"})
	require.NoError(t, err)
	require.NoError(t, r.Checkout(&CheckoutOptions{Branch: plumbing.NewBranchReferenceName("feature")}))

	tip := commitFile(t, r, "b.txt", "two\n", "add b")

	require.NoError(t, r.Checkout(&CheckoutOptions{Branch: plumbing.NewBranchReferenceName("master")}))

	hash, err := r.Merge(&MergeOptions{Branch: plumbing.NewBranchReferenceName("feature")})
	require.NoError(t, err)
	assert.Equal(t, tip, hash)
}

func TestCherryPick_AppliesCommitOntoCurrentBranch(t *testing.T) {
	r := newTestRepo(t)
	commitFile(t, r, "a.txt", "base\n", "initial")

	_, err := r.Branch(&BranchOptions{Name: "feature"})
	require.NoError(t, err)
	require.NoError(t, r.Checkout(&CheckoutOptions{Branch: plumbing.NewBranchReferenceName("feature")}))
	picked := commitFile(t, r, "b.txt", "feature content\n", "add b")

	require.NoError(t, r.Checkout(&CheckoutOptions{Branch: plumbing.NewBranchReferenceName("master")}))

	hash, err := r.CherryPick(&CherryPickOptions{Commit: picked})
	require.NoError(t, err)
	assert.False(t, hash.IsZero())

	wt, err := r.Worktree()
	require.NoError(t, err)
	f, err := wt.FS.Open("b.txt")
	require.NoError(t, err)
	buf := make([]byte, 32)
	n, _ := f.Read(buf)
	assert.Equal(t, "feature content\n", string(buf[:n]))
}

func TestStashRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	commitFile(t, r, "a.txt", "one\n", "initial")

	writeWorktreeFile(t, r, "a.txt", "changed\n")

	_, err := r.Stash(&StashOptions{})
	require.NoError(t, err)

	status, err := r.Status()
	require.NoError(t, err)
	assert.True(t, status.IsClean())

	require.NoError(t, r.StashPop())

	wt, err := r.Worktree()
	require.NoError(t, err)
	f, err := wt.FS.Open("a.txt")
	require.NoError(t, err)
	buf := make([]byte, 32)
	n, _ := f.Read(buf)
	assert.Equal(t, "changed\n", string(buf[:n]))
}

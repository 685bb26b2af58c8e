package gitcore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengit/gitcore/plumbing"
)

func TestBundleRoundTrip(t *testing.T) {
	src := newTestRepo(t)
	hash := commitFile(t, src, "a.txt", "hello\n", "initial")

	var buf bytes.Buffer
	require.NoError(t, src.CreateBundle(&buf, &BundleOptions{}))
	assert.Greater(t, buf.Len(), 0)

	dst := newTestRepo(t)
	updated, err := dst.UnbundleInto(&buf)
	require.NoError(t, err)
	assert.Contains(t, updated, plumbing.NewBranchReferenceName("master"))

	ref, err := dst.s.ReadRef(plumbing.NewBranchReferenceName("master"))
	require.NoError(t, err)
	assert.Equal(t, hash, ref.Hash())

	commit, err := dst.odb.Commit(dst.s.ObjectFormat(), hash)
	require.NoError(t, err)
	assert.Equal(t, "initial", commit.Message)
}

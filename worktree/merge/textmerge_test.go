package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeText_Clean(t *testing.T) {
	base := []byte("alpha\nbeta\ngamma\n")
	ours := []byte("ALPHA\nbeta\ngamma\n")
	theirs := []byte("alpha\nbeta\nGAMMA\n")

	merged, conflict := MergeText(base, ours, theirs)
	assert.False(t, conflict)
	assert.Equal(t, "ALPHA\nbeta\nGAMMA\n", string(merged))
}

func TestMergeText_Conflict(t *testing.T) {
	base := []byte("alpha\n")
	ours := []byte("ours-alpha\n")
	theirs := []byte("theirs-alpha\n")

	merged, conflict := MergeText(base, ours, theirs)
	assert.True(t, conflict)
	s := string(merged)
	assert.Contains(t, s, "<<<<<<< ours\n")
	assert.Contains(t, s, "ours-alpha\n")
	assert.Contains(t, s, "=======\n")
	assert.Contains(t, s, "theirs-alpha\n")
	assert.Contains(t, s, ">>>>>>> theirs\n")
}

func TestMergeText_IdenticalEditConverges(t *testing.T) {
	base := []byte("alpha\nbeta\n")
	ours := []byte("ALPHA\nbeta\n")
	theirs := []byte("ALPHA\nbeta\n")

	merged, conflict := MergeText(base, ours, theirs)
	assert.False(t, conflict)
	assert.Equal(t, "ALPHA\nbeta\n", string(merged))
}

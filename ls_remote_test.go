package gitcore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opengit/gitcore/plumbing"
)

func TestLsRemoteWanted_NoFilterKeepsEverything(t *testing.T) {
	o := &LsRemoteOptions{}
	assert.True(t, lsRemoteWanted(plumbing.ReferenceName("refs/heads/main"), o))
	assert.True(t, lsRemoteWanted(plumbing.ReferenceName("HEAD"), o))
}

func TestLsRemoteWanted_HeadsOnly(t *testing.T) {
	o := &LsRemoteOptions{Heads: true}
	assert.True(t, lsRemoteWanted(plumbing.ReferenceName("refs/heads/main"), o))
	assert.False(t, lsRemoteWanted(plumbing.ReferenceName("refs/tags/v1"), o))
	assert.False(t, lsRemoteWanted(plumbing.ReferenceName("HEAD"), o))
}

func TestLsRemoteWanted_TagsOnly(t *testing.T) {
	o := &LsRemoteOptions{Tags: true}
	assert.False(t, lsRemoteWanted(plumbing.ReferenceName("refs/heads/main"), o))
	assert.True(t, lsRemoteWanted(plumbing.ReferenceName("refs/tags/v1"), o))
}

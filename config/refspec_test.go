package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opengit/gitcore/plumbing"
)

func TestRefSpec_Validate(t *testing.T) {
	assert.NoError(t, RefSpec("refs/heads/*:refs/remotes/origin/*").Validate())
	assert.NoError(t, RefSpec("+refs/heads/master:refs/remotes/origin/master").Validate())
	assert.ErrorIs(t, RefSpec("refs/heads/master").Validate(), ErrRefSpecMalformedSeparator)
	assert.ErrorIs(t, RefSpec("refs/heads/*:refs/remotes/origin/x/*/*").Validate(), ErrRefSpecMalformedWildcard)
}

func TestRefSpec_IsForceUpdate(t *testing.T) {
	assert.True(t, RefSpec("+refs/heads/*:refs/remotes/origin/*").IsForceUpdate())
	assert.False(t, RefSpec("refs/heads/*:refs/remotes/origin/*").IsForceUpdate())
}

func TestRefSpec_IsDelete(t *testing.T) {
	assert.True(t, RefSpec(":refs/heads/gone").IsDelete())
	assert.False(t, RefSpec("refs/heads/master:refs/heads/master").IsDelete())
}

func TestRefSpec_MatchAndDst_Glob(t *testing.T) {
	rs := RefSpec("+refs/heads/*:refs/remotes/origin/*")
	name := plumbing.ReferenceName("refs/heads/feature")

	assert.True(t, rs.Match(name))
	assert.False(t, rs.Match(plumbing.ReferenceName("refs/tags/v1")))
	assert.Equal(t, plumbing.ReferenceName("refs/remotes/origin/feature"), rs.Dst(name))
}

func TestRefSpec_MatchAndDst_Exact(t *testing.T) {
	rs := RefSpec("refs/heads/master:refs/heads/master")
	name := plumbing.ReferenceName("refs/heads/master")

	assert.True(t, rs.Match(name))
	assert.Equal(t, plumbing.ReferenceName("refs/heads/master"), rs.Dst(name))
}

func TestMatchAny(t *testing.T) {
	specs := []RefSpec{"refs/heads/*:refs/remotes/origin/*"}
	assert.True(t, MatchAny(specs, plumbing.ReferenceName("refs/heads/main")))
	assert.False(t, MatchAny(specs, plumbing.ReferenceName("refs/tags/v1")))
}

func TestRemoteConfig_Validate(t *testing.T) {
	rc := &RemoteConfig{Name: "origin", URLs: []string{"https://example.com/repo.git"}}
	assert.NoError(t, rc.Validate())

	rc = &RemoteConfig{URLs: []string{"https://example.com/repo.git"}}
	assert.Error(t, rc.Validate())

	rc = &RemoteConfig{Name: "origin"}
	assert.Error(t, rc.Validate())

	rc = &RemoteConfig{Name: "origin", URLs: []string{"x"}, Fetch: []RefSpec{"bad"}}
	assert.Error(t, rc.Validate())
}

package gitcore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/storage/memory"
)

func TestParseShallowInfo(t *testing.T) {
	h1 := plumbing.NewHash(strings.Repeat("1", 40))
	h2 := plumbing.NewHash(strings.Repeat("2", 40))

	shallows, unshallows := parseShallowInfo([]string{
		"shallow " + h1.String(),
		"unshallow " + h2.String(),
		"garbage line",
	})
	assert.Equal(t, []plumbing.Hash{h1}, shallows)
	assert.Equal(t, []plumbing.Hash{h2}, unshallows)
}

func TestRemote_UpdateShallow_MergesAndDrops(t *testing.T) {
	h1 := plumbing.NewHash(strings.Repeat("1", 40))
	h2 := plumbing.NewHash(strings.Repeat("2", 40))
	h3 := plumbing.NewHash(strings.Repeat("3", 40))

	s := memory.NewStorage()
	require.NoError(t, s.WriteShallow([]plumbing.Hash{h1, h2}))

	r := &Remote{s: s}
	require.NoError(t, r.updateShallow([]plumbing.Hash{h3}, []plumbing.Hash{h2}))

	got, err := s.ReadShallow()
	require.NoError(t, err)
	assert.ElementsMatch(t, []plumbing.Hash{h1, h3}, got)
}

func TestRemote_UpdateShallow_NoOpWhenEmpty(t *testing.T) {
	s := memory.NewStorage()
	require.NoError(t, s.WriteShallow([]plumbing.Hash{plumbing.NewHash(strings.Repeat("1", 40))}))

	r := &Remote{s: s}
	require.NoError(t, r.updateShallow(nil, nil))

	got, err := s.ReadShallow()
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

package packp

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengit/gitcore/plumbing"
)

func TestDecodeV2Capabilities(t *testing.T) {
	buf := writePktLines(t,
		"version 2\n",
		"ls-refs\n",
		"fetch=shallow\n",
		"",
	)

	v2, err := DecodeV2Capabilities(buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"ls-refs", "fetch"}, v2.Commands)
	val, ok := v2.Capabilities.Get("fetch")
	require.True(t, ok)
	assert.Equal(t, "shallow", val)
}

func TestLsRefsRequest_Encode(t *testing.T) {
	req := &LsRefsRequest{SymRefs: true, PeelTags: true, RefPrefixes: []string{"refs/heads/"}}
	buf := &bytes.Buffer{}
	require.NoError(t, req.Encode(buf))

	out := buf.String()
	assert.Contains(t, out, "command=ls-refs\n")
	assert.Contains(t, out, "symrefs\n")
	assert.Contains(t, out, "peel\n")
	assert.Contains(t, out, "ref-prefix refs/heads/\n")
}

func TestDecodeLsRefsResponse(t *testing.T) {
	h := plumbing.NewHash(strings.Repeat("a", 40))
	buf := writePktLines(t,
		h.String()+" HEAD symref-target:refs/heads/main\n",
		h.String()+" refs/heads/main\n",
		"",
	)

	resp, err := DecodeLsRefsResponse(buf)
	require.NoError(t, err)
	require.Len(t, resp.RefOrder, 2)
	assert.Equal(t, h, resp.Refs[plumbing.HEAD])
	assert.Equal(t, plumbing.ReferenceName("refs/heads/main"), resp.SymrefTargets[plumbing.HEAD])
}

func TestFetchRequest_Encode(t *testing.T) {
	h := plumbing.NewHash(strings.Repeat("b", 40))
	req := &FetchRequest{Wants: []plumbing.Hash{h}, Depth: 1, Done: true}
	buf := &bytes.Buffer{}
	require.NoError(t, req.Encode(buf))

	out := buf.String()
	assert.Contains(t, out, "command=fetch\n")
	assert.Contains(t, out, "want "+h.String()+"\n")
	assert.Contains(t, out, "deepen 1\n")
	assert.Contains(t, out, "done\n")
}

func TestDecodeFetchResponse_StopsAtPackfileSection(t *testing.T) {
	h := plumbing.NewHash(strings.Repeat("c", 40))
	buf := writePktLines(t,
		"acknowledgments\n",
		"ACK "+h.String()+"\n",
		"ready\n",
		"shallow-info\n",
		"shallow "+h.String()+"\n",
		"packfile\n",
		"PACK-BYTES-WOULD-FOLLOW",
	)

	resp, err := DecodeFetchResponse(buf)
	require.NoError(t, err)
	assert.True(t, resp.Ready)
	require.Len(t, resp.Acknowledgments, 1)
	assert.Equal(t, h, resp.Acknowledgments[0])
	require.Len(t, resp.ShallowInfo, 1)
	assert.Equal(t, "shallow "+h.String(), resp.ShallowInfo[0])
	assert.True(t, resp.PackSection)
	assert.Contains(t, buf.String(), "PACK-BYTES-WOULD-FOLLOW")
}

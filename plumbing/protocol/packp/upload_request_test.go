package packp

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/format/pktline"
)

func writePktLines(t *testing.T, lines ...string) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	w := pktline.NewWriter(buf)
	for _, l := range lines {
		if l == "" {
			require.NoError(t, w.WriteFlush())
			continue
		}
		_, err := w.WritePacketString(l)
		require.NoError(t, err)
	}
	return buf
}

func TestDecodeServerResponse_ShallowThenACK(t *testing.T) {
	h1 := plumbing.NewHash(strings.Repeat("a", 40))
	h2 := plumbing.NewHash(strings.Repeat("b", 40))

	buf := writePktLines(t,
		"shallow "+h1.String()+"\n",
		"ACK "+h2.String()+"\n",
		"",
	)

	resp, err := DecodeServerResponse(buf)
	require.NoError(t, err)
	require.Len(t, resp.Shallows, 1)
	assert.Equal(t, h1, resp.Shallows[0])
	require.Len(t, resp.ACKs, 1)
	assert.Equal(t, h2, resp.ACKs[0])
	assert.False(t, resp.NAK)
}

func TestDecodeServerResponse_Unshallow(t *testing.T) {
	h1 := plumbing.NewHash(strings.Repeat("c", 40))
	buf := writePktLines(t,
		"unshallow "+h1.String()+"\n",
		"NAK\n",
	)

	resp, err := DecodeServerResponse(buf)
	require.NoError(t, err)
	require.Len(t, resp.Unshallows, 1)
	assert.Equal(t, h1, resp.Unshallows[0])
	assert.True(t, resp.NAK)
}

func TestDecodeServerResponse_PlainACKEndsImmediately(t *testing.T) {
	h1 := plumbing.NewHash(strings.Repeat("d", 40))
	buf := writePktLines(t,
		"ACK "+h1.String()+"\n",
		"have should not be reached\n",
	)

	resp, err := DecodeServerResponse(buf)
	require.NoError(t, err)
	require.Len(t, resp.ACKs, 1)
	assert.Equal(t, h1, resp.ACKs[0])
}

func TestUploadPackRequest_Encode(t *testing.T) {
	req := NewUploadPackRequest()
	h1 := plumbing.NewHash(strings.Repeat("1", 40))
	req.Wants = append(req.Wants, h1)
	req.Depth = 5
	req.Done = true

	buf := &bytes.Buffer{}
	require.NoError(t, req.Encode(buf))

	out := buf.String()
	assert.Contains(t, out, "want "+h1.String())
	assert.Contains(t, out, "deepen 5\n")
	assert.Contains(t, out, "done\n")
}

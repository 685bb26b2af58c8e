package packp

import (
	"fmt"
	"io"
	"strings"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/format/pktline"
	"github.com/opengit/gitcore/plumbing/protocol/packp/capability"
)

// UploadPackRequest is a v1 upload-pack negotiation: the objects the
// client wants, the shallow boundary it already has, and the haves it
// offers across however many negotiation rounds the transport allows.
type UploadPackRequest struct {
	Wants        []plumbing.Hash
	Haves        []plumbing.Hash
	Shallows     []plumbing.Hash
	Depth        int // 0 means unset; a non-zero DepthSince or non-empty DepthNot below takes precedence
	DepthSince   int64
	DepthNot     []plumbing.Hash
	Filter       string
	Capabilities *capability.List
	Done         bool
}

// NewUploadPackRequest returns an empty request with a default
// capability set this implementation asks for.
func NewUploadPackRequest() *UploadPackRequest {
	caps := capability.NewList()
	caps.Add(capability.MultiACKDetailed)
	caps.Add(capability.SideBand64k)
	caps.Add(capability.ThinPack)
	caps.Add(capability.OFSDelta)
	caps.Add(capability.Agent, "gitcore/1.0")
	return &UploadPackRequest{Capabilities: caps}
}

// Encode writes the request as pkt-lines: one "want" per wanted oid (the
// first carrying the capability list), shallow/deepen lines, a flush,
// then one "have" per round and a closing "done".
func (req *UploadPackRequest) Encode(w io.Writer) error {
	pw := pktline.NewWriter(w)

	for i, h := range req.Wants {
		var err error
		if i == 0 {
			_, err = pw.WritePacketString(fmt.Sprintf("want %s %s\n", h, req.Capabilities.String()))
		} else {
			_, err = pw.WritePacketString(fmt.Sprintf("want %s\n", h))
		}
		if err != nil {
			return err
		}
	}
	for _, h := range req.Shallows {
		if _, err := pw.WritePacketString(fmt.Sprintf("shallow %s\n", h)); err != nil {
			return err
		}
	}
	switch {
	case req.DepthSince != 0:
		if _, err := pw.WritePacketString(fmt.Sprintf("deepen-since %d\n", req.DepthSince)); err != nil {
			return err
		}
	case len(req.DepthNot) > 0:
		for _, h := range req.DepthNot {
			if _, err := pw.WritePacketString(fmt.Sprintf("deepen-not %s\n", h)); err != nil {
				return err
			}
		}
	case req.Depth > 0:
		if _, err := pw.WritePacketString(fmt.Sprintf("deepen %d\n", req.Depth)); err != nil {
			return err
		}
	}
	if req.Filter != "" {
		if _, err := pw.WritePacketString(fmt.Sprintf("filter %s\n", req.Filter)); err != nil {
			return err
		}
	}
	if err := pw.WriteFlush(); err != nil {
		return err
	}

	for _, h := range req.Haves {
		if _, err := pw.WritePacketString(fmt.Sprintf("have %s\n", h)); err != nil {
			return err
		}
	}
	if req.Done {
		if _, err := pw.WritePacketString("done\n"); err != nil {
			return err
		}
	} else {
		if err := pw.WriteFlush(); err != nil {
			return err
		}
	}
	return nil
}

// ServerResponse is the ACK/NAK negotiation result preceding the packfile
// in a v1 upload-pack response.
type ServerResponse struct {
	Shallows   []plumbing.Hash
	Unshallows []plumbing.Hash
	ACKs       []plumbing.Hash
	NAK        bool
}

// DecodeServerResponse parses any leading shallow/unshallow lines (sent
// when the request carried "deepen") and the ACK/NAK lines up to (and
// including) the first that signals negotiation is complete: a bare
// NAK, or an ACK without "continue"/"common"/"ready".
func DecodeServerResponse(r io.Reader) (*ServerResponse, error) {
	sr := &ServerResponse{}
	sc := pktline.NewScanner(r)
	for sc.Scan() {
		if sc.Status() == pktline.Flush {
			break
		}
		line := string(sc.Bytes())
		switch {
		case strings.HasPrefix(line, "shallow "):
			if h, ok := plumbing.FromHex(strings.TrimSpace(strings.TrimPrefix(line, "shallow "))); ok {
				sr.Shallows = append(sr.Shallows, h)
			}
		case strings.HasPrefix(line, "unshallow "):
			if h, ok := plumbing.FromHex(strings.TrimSpace(strings.TrimPrefix(line, "unshallow "))); ok {
				sr.Unshallows = append(sr.Unshallows, h)
			}
		case line == "NAK\n" || line == "NAK":
			sr.NAK = true
			return sr, nil
		case len(line) > 4 && line[:4] == "ACK ":
			fields := splitFields(line)
			if len(fields) < 2 {
				continue
			}
			h, ok := plumbing.FromHex(fields[1])
			if !ok {
				continue
			}
			sr.ACKs = append(sr.ACKs, h)
			if len(fields) == 2 {
				// a plain "ACK <oid>" with no multi_ack qualifier ends
				// negotiation immediately.
				return sr, nil
			}
		}
	}
	return sr, sc.Err()
}

func splitFields(s string) []string {
	var out []string
	start := -1
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ' ' || s[i] == '\n' {
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	return out
}

package packp

import (
	"fmt"
	"io"
	"strings"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/format/pktline"
	"github.com/opengit/gitcore/plumbing/protocol/packp/capability"
)

// V2Capabilities is the capability-advertisement response to
// "GET .../info/refs?service=..." with protocol v2 requested: a flat
// "version 2" line followed by one line per supported command/capability.
type V2Capabilities struct {
	Commands     []string
	Capabilities *capability.List
}

// DecodeV2Capabilities parses a v2 capability advertisement.
func DecodeV2Capabilities(r io.Reader) (*V2Capabilities, error) {
	lines, err := readAllLines(r)
	if err != nil {
		return nil, err
	}
	v2 := &V2Capabilities{Capabilities: capability.NewList()}
	for _, line := range lines {
		if line == "version 2" {
			continue
		}
		name, val, has := strings.Cut(line, "=")
		if has {
			v2.Capabilities.Add(capability.Capability(name), val)
		} else {
			v2.Capabilities.Add(capability.Capability(name))
		}
		v2.Commands = append(v2.Commands, name)
	}
	return v2, nil
}

// Encode writes the v2 capability advertisement.
func (v2 *V2Capabilities) Encode(w io.Writer) error {
	pw := pktline.NewWriter(w)
	if _, err := pw.WritePacketString("version 2\n"); err != nil {
		return err
	}
	for _, name := range v2.Commands {
		val, hasVal := v2.Capabilities.Get(name2cap(name))
		var line string
		if hasVal {
			line = name + "=" + val + "\n"
		} else {
			line = name + "\n"
		}
		if _, err := pw.WritePacketString(line); err != nil {
			return err
		}
	}
	return pw.WriteFlush()
}

func name2cap(s string) capability.Capability { return capability.Capability(s) }

// LsRefsRequest is the v2 "command=ls-refs" request.
type LsRefsRequest struct {
	Prefixes    []string
	SymRefs     bool
	PeelTags    bool
	RefPrefixes []string
}

// Encode writes the ls-refs command block (command line, delim, args,
// flush), the shape every v2 command request shares.
func (req *LsRefsRequest) Encode(w io.Writer) error {
	pw := pktline.NewWriter(w)
	if _, err := pw.WritePacketString("command=ls-refs\n"); err != nil {
		return err
	}
	if err := pw.WriteDelim(); err != nil {
		return err
	}
	if req.SymRefs {
		if _, err := pw.WritePacketString("symrefs\n"); err != nil {
			return err
		}
	}
	if req.PeelTags {
		if _, err := pw.WritePacketString("peel\n"); err != nil {
			return err
		}
	}
	for _, p := range req.RefPrefixes {
		if _, err := pw.WritePacketString(fmt.Sprintf("ref-prefix %s\n", p)); err != nil {
			return err
		}
	}
	return pw.WriteFlush()
}

// LsRefsResponse is a parsed ls-refs reply: one ref per line, optionally
// carrying a "symref-target" or peeled oid suffix.
type LsRefsResponse struct {
	Refs        map[plumbing.ReferenceName]plumbing.Hash
	RefOrder    []plumbing.ReferenceName
	SymrefTargets map[plumbing.ReferenceName]plumbing.ReferenceName
}

// DecodeLsRefsResponse parses a flush-terminated ls-refs reply.
func DecodeLsRefsResponse(r io.Reader) (*LsRefsResponse, error) {
	lines, err := readAllLines(r)
	if err != nil {
		return nil, err
	}
	resp := &LsRefsResponse{
		Refs:          map[plumbing.ReferenceName]plumbing.Hash{},
		SymrefTargets: map[plumbing.ReferenceName]plumbing.ReferenceName{},
	}
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		h, ok := plumbing.FromHex(fields[0])
		if !ok {
			continue
		}
		name := plumbing.ReferenceName(fields[1])
		resp.Refs[name] = h
		resp.RefOrder = append(resp.RefOrder, name)
		for _, attr := range fields[2:] {
			if strings.HasPrefix(attr, "symref-target:") {
				resp.SymrefTargets[name] = plumbing.ReferenceName(strings.TrimPrefix(attr, "symref-target:"))
			}
		}
	}
	return resp, nil
}

// FetchRequest is the v2 "command=fetch" request: the same want/have/
// shallow/depth/filter vocabulary as v1, framed as command arguments
// instead of the legacy want/have pkt-line stream.
type FetchRequest struct {
	Wants      []plumbing.Hash
	Haves      []plumbing.Hash
	Shallows   []plumbing.Hash
	Depth      int
	DepthSince int64
	DepthNot   []plumbing.Hash
	Filter     string
	NoProgress bool
	Done       bool
}

// Encode writes the fetch command block.
func (req *FetchRequest) Encode(w io.Writer) error {
	pw := pktline.NewWriter(w)
	if _, err := pw.WritePacketString("command=fetch\n"); err != nil {
		return err
	}
	if err := pw.WriteDelim(); err != nil {
		return err
	}
	for _, h := range req.Wants {
		if _, err := pw.WritePacketString(fmt.Sprintf("want %s\n", h)); err != nil {
			return err
		}
	}
	for _, h := range req.Haves {
		if _, err := pw.WritePacketString(fmt.Sprintf("have %s\n", h)); err != nil {
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
	if req.NoProgress {
		if _, err := pw.WritePacketString("no-progress\n"); err != nil {
			return err
		}
	}
	if req.Done {
		if _, err := pw.WritePacketString("done\n"); err != nil {
			return err
		}
	}
	return pw.WriteFlush()
}

// FetchResponse is a parsed v2 fetch reply: an acknowledgments section
// (when negotiation isn't done yet) and/or a packfile section.
type FetchResponse struct {
	Acknowledgments []plumbing.Hash
	Ready           bool
	ShallowInfo     []string
	PackSection     bool
}

// DecodeFetchResponse parses the section markers preceding the packfile
// bytes, leaving r positioned right after the "packfile" section marker
// if one was present (the sideband-framed pack data follows).
func DecodeFetchResponse(r io.Reader) (*FetchResponse, error) {
	resp := &FetchResponse{}
	sc := pktline.NewScanner(r)
	section := ""
	for sc.Scan() {
		if sc.Status() == pktline.Delim {
			continue
		}
		if sc.Status() == pktline.Flush {
			break
		}
		line := strings.TrimSuffix(string(sc.Bytes()), "\n")
		switch line {
		case "acknowledgments", "shallow-info", "packfile":
			section = line
			if section == "packfile" {
				resp.PackSection = true
				return resp, sc.Err()
			}
			continue
		}
		switch section {
		case "acknowledgments":
			if line == "ready" {
				resp.Ready = true
				continue
			}
			if strings.HasPrefix(line, "ACK ") {
				if h, ok := plumbing.FromHex(strings.TrimPrefix(line, "ACK ")); ok {
					resp.Acknowledgments = append(resp.Acknowledgments, h)
				}
			}
		case "shallow-info":
			resp.ShallowInfo = append(resp.ShallowInfo, line)
		}
	}
	return resp, sc.Err()
}

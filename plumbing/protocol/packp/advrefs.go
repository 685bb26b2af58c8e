package packp

import (
	"fmt"
	"io"
	"strings"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/format/pktline"
	"github.com/opengit/gitcore/plumbing/protocol/packp/capability"
)

// noHeadMarker is the OID reported for "capabilities^{}" when a
// repository has no refs at all, per the protocol's empty-advertisement
// convention.
const noHeadMarker = "0000000000000000000000000000000000000000"

// AdvRefs is a parsed v1 reference advertisement: the service's
// capability list plus every ref it is offering, in advertisement order.
type AdvRefs struct {
	Prefix       []string // any "# service=..." framing lines seen before the ref list
	Head         *plumbing.Hash
	Capabilities *capability.List
	Refs         map[plumbing.ReferenceName]plumbing.Hash
	RefOrder     []plumbing.ReferenceName
	Shallows     []plumbing.Hash
}

// DecodeAdvRefs parses a v1 ref advertisement (as sent at the start of
// upload-pack/receive-pack) from r.
func DecodeAdvRefs(r io.Reader) (*AdvRefs, error) {
	ar := &AdvRefs{Refs: map[plumbing.ReferenceName]plumbing.Hash{}, Capabilities: capability.NewList()}
	sc := pktline.NewScanner(r)

	first := true
	for sc.Scan() {
		if sc.Status() == pktline.Flush {
			break
		}
		line := strings.TrimSuffix(string(sc.Bytes()), "\n")
		if strings.HasPrefix(line, "# service=") {
			ar.Prefix = append(ar.Prefix, line)
			continue
		}
		if strings.HasPrefix(line, "shallow ") {
			h, ok := plumbing.FromHex(strings.TrimPrefix(line, "shallow "))
			if ok {
				ar.Shallows = append(ar.Shallows, h)
			}
			continue
		}

		hashHex, rest, ok := cutSpace(line)
		if !ok {
			return nil, fmt.Errorf("packp: malformed advertisement line %q", line)
		}

		if first {
			first = false
			if idx := strings.IndexByte(rest, 0); idx >= 0 {
				ar.Capabilities = capability.Parse(rest[idx+1:])
				rest = rest[:idx]
			}
		}

		name := plumbing.ReferenceName(rest)
		if name == "capabilities^{}" {
			if hashHex != noHeadMarker {
				h, ok := plumbing.FromHex(hashHex)
				if ok {
					ar.Head = &h
				}
			}
			continue
		}

		h, ok := plumbing.FromHex(hashHex)
		if !ok {
			return nil, fmt.Errorf("packp: malformed ref oid %q", hashHex)
		}
		ar.Refs[name] = h
		ar.RefOrder = append(ar.RefOrder, name)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ar, nil
}

func cutSpace(s string) (string, string, bool) {
	i := strings.IndexByte(s, ' ')
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+1:], true
}

// Encode writes the advertisement back in v1 wire form, used by a
// server-side upload-pack/receive-pack responder.
func (ar *AdvRefs) Encode(w io.Writer) error {
	pw := pktline.NewWriter(w)
	for _, p := range ar.Prefix {
		if _, err := pw.WritePacketString(p + "\n"); err != nil {
			return err
		}
		if err := pw.WriteFlush(); err != nil {
			return err
		}
	}

	if len(ar.RefOrder) == 0 {
		if _, err := pw.WritePacketString(fmt.Sprintf("%s capabilities^{}\x00%s\n", noHeadMarker, ar.Capabilities.String())); err != nil {
			return err
		}
		return pw.WriteFlush()
	}

	first := true
	for _, name := range ar.RefOrder {
		h := ar.Refs[name]
		var line string
		if first {
			first = false
			line = fmt.Sprintf("%s %s\x00%s\n", h, name, ar.Capabilities.String())
		} else {
			line = fmt.Sprintf("%s %s\n", h, name)
		}
		if _, err := pw.WritePacketString(line); err != nil {
			return err
		}
	}
	for _, h := range ar.Shallows {
		if _, err := pw.WritePacketString(fmt.Sprintf("shallow %s\n", h)); err != nil {
			return err
		}
	}
	return pw.WriteFlush()
}

// readAllLines is a small helper other decoders in this package share
// for slurping a flush-terminated run of pkt-lines as trimmed strings.
func readAllLines(r io.Reader) ([]string, error) {
	sc := pktline.NewScanner(r)
	var out []string
	for sc.Scan() {
		if sc.Status() == pktline.Flush || sc.Status() == pktline.Delim {
			break
		}
		out = append(out, strings.TrimSuffix(string(sc.Bytes()), "\n"))
	}
	return out, sc.Err()
}

// Package capability models the Git smart protocol's capability
// negotiation: the flat set (v1) or per-command set (v2) of features a
// client and server agree to use.
package capability

// Capability is one named protocol feature.
type Capability string

// Capabilities both protocol versions advertise in this implementation.
const (
	MultiACK           Capability = "multi_ack"
	MultiACKDetailed   Capability = "multi_ack_detailed"
	NoDone             Capability = "no-done"
	ThinPack           Capability = "thin-pack"
	SideBand           Capability = "side-band"
	SideBand64k        Capability = "side-band-64k"
	OFSDelta           Capability = "ofs-delta"
	Agent              Capability = "agent"
	Shallow            Capability = "shallow"
	DeepenSince        Capability = "deepen-since"
	DeepenNot          Capability = "deepen-not"
	DeepenRelative     Capability = "deepen-relative"
	NoProgress         Capability = "no-progress"
	IncludeTag         Capability = "include-tag"
	ReportStatus       Capability = "report-status"
	ReportStatusV2     Capability = "report-status-v2"
	DeleteRefs         Capability = "delete-refs"
	Quiet              Capability = "quiet"
	Atomic             Capability = "atomic"
	PushOptions        Capability = "push-options"
	AllowTipSHA1InWant Capability = "allow-tip-sha1-in-want"
	AllowReachableSHA1InWant Capability = "allow-reachable-sha1-in-want"
	Filter             Capability = "filter"
	ObjectFormat       Capability = "object-format"
	SymRef             Capability = "symref"

	// v2-only: version and command are reported as capability-list
	// pseudo-entries rather than feature flags.
	Version Capability = "version"
)

// argumented is the set of capabilities that always carry a value
// ("name=value" on the wire) rather than being a bare flag.
var argumented = map[Capability]bool{
	Agent:        true,
	SymRef:       true,
	ObjectFormat: true,
	Version:      true,
}

// List is an ordered set of capabilities, some bare and some carrying
// one or more values (e.g. symref may appear multiple times).
type List struct {
	order  []Capability
	values map[Capability][]string
}

// NewList returns an empty List.
func NewList() *List { return &List{values: map[Capability][]string{}} }

// Add records capability c, optionally with values (ignored for bare
// capabilities).
func (l *List) Add(c Capability, values ...string) {
	if _, ok := l.values[c]; !ok {
		l.order = append(l.order, c)
	}
	l.values[c] = append(l.values[c], values...)
}

// Supports reports whether c was added.
func (l *List) Supports(c Capability) bool {
	_, ok := l.values[c]
	return ok
}

// Get returns the first value recorded for c, if any.
func (l *List) Get(c Capability) (string, bool) {
	vs, ok := l.values[c]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// All returns every value recorded for c.
func (l *List) All(c Capability) []string { return l.values[c] }

// String renders the list in wire form: space-separated tokens, with
// "name=value" for argumented capabilities.
func (l *List) String() string {
	var out []byte
	for i, c := range l.order {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, c...)
		if argumented[c] {
			for _, v := range l.values[c] {
				out = append(out, '=')
				out = append(out, v...)
			}
			continue
		}
		for _, v := range l.values[c] {
			out = append(out, '=')
			out = append(out, v...)
		}
	}
	return string(out)
}

// Parse decodes a capability string (space-separated, "name=value" or
// bare tokens) into a List.
func Parse(s string) *List {
	l := NewList()
	var tok []byte
	flush := func() {
		if len(tok) == 0 {
			return
		}
		name, value, hasValue := splitOnce(string(tok), '=')
		if hasValue {
			l.Add(Capability(name), value)
		} else {
			l.Add(Capability(name))
		}
		tok = tok[:0]
	}
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			flush()
			continue
		}
		tok = append(tok, s[i])
	}
	flush()
	return l
}

func splitOnce(s string, sep byte) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

package packp

import (
	"fmt"
	"io"
	"strings"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/format/pktline"
	"github.com/opengit/gitcore/plumbing/protocol/packp/capability"
)

// Command is one ref update a push asks the remote to apply.
type Command struct {
	Old  plumbing.Hash
	New  plumbing.Hash
	Name plumbing.ReferenceName
}

// CommandKind classifies a Command for reporting purposes.
type CommandKind int

const (
	CommandUpdate CommandKind = iota
	CommandCreate
	CommandDelete
)

func (c Command) Kind() CommandKind {
	switch {
	case c.Old.IsZero():
		return CommandCreate
	case c.New.IsZero():
		return CommandDelete
	default:
		return CommandUpdate
	}
}

// ReferenceUpdateRequest is a v1 receive-pack request: the ref commands
// a push wants applied, followed by the packfile carrying their new
// objects.
type ReferenceUpdateRequest struct {
	Commands     []*Command
	Capabilities *capability.List
	Pack         io.Reader // nil for a pure ref-deletion push
}

// NewReferenceUpdateRequest returns an empty request with the default
// capability set this implementation asks for.
func NewReferenceUpdateRequest() *ReferenceUpdateRequest {
	caps := capability.NewList()
	caps.Add(capability.ReportStatus)
	caps.Add(capability.OFSDelta)
	caps.Add(capability.Agent, "gitcore/1.0")
	return &ReferenceUpdateRequest{Capabilities: caps}
}

// Encode writes the command list (first line carrying capabilities),
// flush, then the packfile if present.
func (req *ReferenceUpdateRequest) Encode(w io.Writer) error {
	pw := pktline.NewWriter(w)
	for i, c := range req.Commands {
		line := fmt.Sprintf("%s %s %s", c.Old, c.New, c.Name)
		var err error
		if i == 0 {
			_, err = pw.WritePacketString(line + "\x00" + req.Capabilities.String() + "\n")
		} else {
			_, err = pw.WritePacketString(line + "\n")
		}
		if err != nil {
			return err
		}
	}
	if err := pw.WriteFlush(); err != nil {
		return err
	}
	if req.Pack == nil {
		return nil
	}
	_, err := io.Copy(w, req.Pack)
	return err
}

// DecodeReferenceUpdateRequest parses a receive-pack request's command
// section, leaving r positioned at the start of the packfile (if any).
func DecodeReferenceUpdateRequest(r io.Reader) (*ReferenceUpdateRequest, error) {
	req := &ReferenceUpdateRequest{Capabilities: capability.NewList()}
	sc := pktline.NewScanner(r)

	first := true
	for sc.Scan() {
		if sc.Status() == pktline.Flush {
			break
		}
		line := strings.TrimSuffix(string(sc.Bytes()), "\n")
		if first {
			first = false
			if idx := strings.IndexByte(line, 0); idx >= 0 {
				req.Capabilities = capability.Parse(line[idx+1:])
				line = line[:idx]
			}
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("packp: malformed command line %q", line)
		}
		oldH, ok1 := plumbing.FromHex(fields[0])
		newH, ok2 := plumbing.FromHex(fields[1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("packp: malformed command oids %q", line)
		}
		req.Commands = append(req.Commands, &Command{Old: oldH, New: newH, Name: plumbing.ReferenceName(fields[2])})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	req.Pack = r
	return req, nil
}

// CommandStatus is one command's outcome, reported back to the pusher.
type CommandStatus struct {
	Name  plumbing.ReferenceName
	Error string // empty means "ok"
}

// ReportStatus is a v1 receive-pack response: the overall unpack result
// plus a per-command status line.
type ReportStatus struct {
	UnpackError string // empty means "unpack ok"
	Commands    []CommandStatus
}

// Encode writes the report-status reply, sideband-framed by the caller
// if the push negotiated side-band.
func (rs *ReportStatus) Encode(w io.Writer) error {
	pw := pktline.NewWriter(w)
	unpack := "ok"
	if rs.UnpackError != "" {
		unpack = "error " + rs.UnpackError
	}
	if _, err := pw.WritePacketString("unpack " + unpack + "\n"); err != nil {
		return err
	}
	for _, c := range rs.Commands {
		line := "ok " + string(c.Name)
		if c.Error != "" {
			line = "ng " + string(c.Name) + " " + c.Error
		}
		if _, err := pw.WritePacketString(line + "\n"); err != nil {
			return err
		}
	}
	return pw.WriteFlush()
}

// DecodeReportStatus parses a report-status reply.
func DecodeReportStatus(r io.Reader) (*ReportStatus, error) {
	lines, err := readAllLines(r)
	if err != nil {
		return nil, err
	}
	rs := &ReportStatus{}
	for i, line := range lines {
		if i == 0 {
			if line == "unpack ok" {
				continue
			}
			rs.UnpackError = strings.TrimPrefix(line, "unpack ")
			continue
		}
		switch {
		case strings.HasPrefix(line, "ok "):
			rs.Commands = append(rs.Commands, CommandStatus{Name: plumbing.ReferenceName(strings.TrimPrefix(line, "ok "))})
		case strings.HasPrefix(line, "ng "):
			rest := strings.TrimPrefix(line, "ng ")
			name, msg, _ := cutSpace(rest)
			rs.Commands = append(rs.Commands, CommandStatus{Name: plumbing.ReferenceName(name), Error: msg})
		}
	}
	return rs, nil
}

// Error returns the first ng status or the unpack error, if any, as a
// single error value for a caller that just wants success/failure.
func (rs *ReportStatus) Error() error {
	if rs.UnpackError != "" {
		return fmt.Errorf("packp: unpack failed: %s", rs.UnpackError)
	}
	for _, c := range rs.Commands {
		if c.Error != "" {
			return fmt.Errorf("packp: update of %s rejected: %s", c.Name, c.Error)
		}
	}
	return nil
}

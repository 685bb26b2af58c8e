package object

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signature identifies an author or committer: a name, email and
// timestamp, as embedded verbatim in commit and tag objects.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Decode parses "Name <email> unix-ts tz-offset".
func (s *Signature) Decode(b []byte) {
	open := bytes.LastIndexByte(b, '<')
	close := bytes.LastIndexByte(b, '>')
	if open < 0 || close < 0 || close < open {
		s.Name = string(bytes.TrimSpace(b))
		return
	}

	s.Name = string(bytes.TrimSpace(b[:open]))
	s.Email = string(b[open+1 : close])

	rest := bytes.TrimSpace(b[close+1:])
	if len(rest) == 0 {
		return
	}
	fields := bytes.Fields(rest)
	if len(fields) == 0 {
		return
	}
	ts, err := strconv.ParseInt(string(fields[0]), 10, 64)
	if err != nil {
		return
	}
	loc := time.UTC
	if len(fields) > 1 {
		if tz, err := parseTZ(string(fields[1])); err == nil {
			loc = tz
		}
	}
	s.When = time.Unix(ts, 0).In(loc)
}

func parseTZ(s string) (*time.Location, error) {
	if len(s) != 5 || (s[0] != '+' && s[0] != '-') {
		return nil, fmt.Errorf("invalid timezone %q", s)
	}
	h, err := strconv.Atoi(s[1:3])
	if err != nil {
		return nil, err
	}
	m, err := strconv.Atoi(s[3:5])
	if err != nil {
		return nil, err
	}
	offset := h*3600 + m*60
	if s[0] == '-' {
		offset = -offset
	}
	return time.FixedZone(s, offset), nil
}

// Encode writes "Name <email> unix-ts tz-offset" to w.
func (s *Signature) Encode(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, "%s <%s>", s.Name, s.Email); err != nil {
		return err
	}
	when := s.When
	if when.IsZero() {
		when = time.Unix(0, 0).UTC()
	}
	_, offset := when.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	_, err := fmt.Fprintf(w, " %d %s%02d%02d", when.Unix(), sign, offset/3600, (offset%3600)/60)
	return err
}

func (s Signature) String() string {
	return strings.TrimSpace(fmt.Sprintf("%s <%s>", s.Name, s.Email))
}

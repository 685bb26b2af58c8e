package pktline

import "io"

// Scanner reads a stream of pkt-lines from an io.Reader, reassembling
// packets that arrive split across several transport reads.
type Scanner struct {
	r           io.Reader
	payload     []byte
	lastControl string
	err         error
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner { return &Scanner{r: r} }

// Scan reads the next pkt-line. It returns false at EOF or on error; call
// Err to distinguish the two.
func (s *Scanner) Scan() bool {
	var lenBuf [lenSize]byte
	if _, err := io.ReadFull(s.r, lenBuf[:]); err != nil {
		s.err = err
		return false
	}

	n, err := ParseLength(lenBuf[:])
	if err != nil {
		s.err = err
		return false
	}

	if n == 0 {
		s.payload = []byte{}
		s.lastControl = string(lenBuf[:])
		return true
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		s.err = err
		return false
	}
	s.payload = buf
	s.lastControl = ""
	return true
}

// Bytes returns the payload of the most recently scanned packet.
func (s *Scanner) Bytes() []byte { return s.payload }

// Err returns the first non-EOF error encountered, if any.
func (s *Scanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}

// Status reports whether the last scanned packet was a control packet.
func (s *Scanner) Status() Status {
	switch s.lastControl {
	case "0000":
		return Flush
	case "0001":
		return Delim
	case "0002":
		return ResponseEnd
	default:
		return Data
	}
}

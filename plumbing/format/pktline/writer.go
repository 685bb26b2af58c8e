package pktline

import (
	"fmt"
	"io"
)

// Writer frames payloads as pkt-lines onto an underlying io.Writer.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer over w, unwrapping a nested *Writer if given
// one (to avoid double-framing).
func NewWriter(w io.Writer) *Writer {
	if pw, ok := w.(*Writer); ok {
		return pw
	}
	return &Writer{w: w}
}

func (w *Writer) Write(p []byte) (int, error) { return w.w.Write(p) }

// WritePacket frames p as a single pkt-line.
func (w *Writer) WritePacket(p []byte) (int, error) {
	if len(p) > MaxPayloadSize {
		return 0, ErrPayloadTooLong
	}
	n, err := w.Write(asciiHex16(len(p) + lenSize))
	if err != nil {
		return n, err
	}
	n2, err := w.Write(p)
	return n + n2, err
}

// WritePacketString is WritePacket for a string payload.
func (w *Writer) WritePacketString(s string) (int, error) { return w.WritePacket([]byte(s)) }

// WritePacketf is WritePacket for a formatted payload.
func (w *Writer) WritePacketf(format string, a ...interface{}) (int, error) {
	if len(a) == 0 {
		return w.WritePacketString(format)
	}
	return w.WritePacketString(fmt.Sprintf(format, a...))
}

// WriteFlush writes a flush-pkt (0000).
func (w *Writer) WriteFlush() error {
	_, err := w.Write(FlushPkt)
	return err
}

// WriteDelim writes a delim-pkt (0001).
func (w *Writer) WriteDelim() error {
	_, err := w.Write(DelimPkt)
	return err
}

// WriteResponseEnd writes a response-end-pkt (0002).
func (w *Writer) WriteResponseEnd() error {
	_, err := w.Write(ResponseEndPkt)
	return err
}

// WriteError writes an error pkt-line, "ERR <message>\n".
func (w *Writer) WriteError(e error) (int, error) {
	return w.WritePacketString("ERR " + e.Error() + "\n")
}

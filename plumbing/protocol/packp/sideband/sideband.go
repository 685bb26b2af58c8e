// Package sideband demultiplexes the "side-band"/"side-band-64k" pack
// protocol extension: pack data, progress text and fatal errors
// interleaved over one stream, tagged by a one-byte channel prefix.
package sideband

import (
	"fmt"
	"io"

	"github.com/opengit/gitcore/plumbing/format/pktline"
)

// Channel identifies a sideband stream.
type Channel byte

const (
	PackData    Channel = 1
	Progress    Channel = 2
	FatalError  Channel = 3
)

// MaxPacketSize bounds a single sideband frame, per the capability's
// 65520 (side-band) / 999 (legacy side-band) wire limits; this
// implementation only advertises side-band-64k.
const MaxPacketSize = 65520

// Demuxer reads a side-band-64k multiplexed stream, exposing channel 1
// (pack data) through Read and routing channel 2 to Progress and channel
// 3 to an error returned from Read.
type Demuxer struct {
	sc       *pktline.Scanner
	Progress io.Writer // progress text (channel 2) is copied here if set
	buf      []byte
}

// NewDemuxer wraps r, which must be a raw pkt-line stream already
// stripped of anything preceding the multiplexed section.
func NewDemuxer(r io.Reader) *Demuxer {
	return &Demuxer{sc: pktline.NewScanner(r)}
}

func (d *Demuxer) Read(p []byte) (int, error) {
	for len(d.buf) == 0 {
		if !d.sc.Scan() {
			if err := d.sc.Err(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		if d.sc.Status() == pktline.Flush {
			return 0, io.EOF
		}
		raw := d.sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		switch Channel(raw[0]) {
		case PackData:
			d.buf = raw[1:]
		case Progress:
			if d.Progress != nil {
				d.Progress.Write(raw[1:])
			}
		case FatalError:
			return 0, fmt.Errorf("sideband: remote error: %s", string(raw[1:]))
		default:
			return 0, fmt.Errorf("sideband: unknown channel %d", raw[0])
		}
	}
	n := copy(p, d.buf)
	d.buf = d.buf[n:]
	return n, nil
}

// Muxer writes a side-band-64k multiplexed stream: use WritePack for
// channel 1 data and WriteProgress/WriteError for the other two.
type Muxer struct {
	pw *pktline.Writer
}

// NewMuxer wraps w for writing.
func NewMuxer(w io.Writer) *Muxer { return &Muxer{pw: pktline.NewWriter(w)} }

func (m *Muxer) writeChannel(ch Channel, p []byte) error {
	for len(p) > 0 {
		n := len(p)
		if n > MaxPacketSize-5 {
			n = MaxPacketSize - 5
		}
		frame := append([]byte{byte(ch)}, p[:n]...)
		if _, err := m.pw.WritePacket(frame); err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (m *Muxer) WritePack(p []byte) error     { return m.writeChannel(PackData, p) }
func (m *Muxer) WriteProgress(p []byte) error { return m.writeChannel(Progress, p) }
func (m *Muxer) WriteError(p []byte) error    { return m.writeChannel(FatalError, p) }

package config

import (
	"io"

	"github.com/go-git/gcfg"
)

// Decoder parses a Git config file's bytes into a Config.
type Decoder struct {
	r io.Reader
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder { return &Decoder{r} }

// Decode populates cfg from the decoder's input. Section/subsection/option
// boundaries are reported by gcfg's low-level callback reader; Config only
// needs to track the ordering.
func (d *Decoder) Decode(cfg *Config) error {
	cb := func(section, subsection, key, value string, _ bool) error {
		switch {
		case subsection == "" && key == "":
			cfg.Section(section)
		case subsection != "" && key == "":
			cfg.Section(section).Subsection(subsection)
		default:
			cfg.AddOption(section, subsection, key, value)
		}
		return nil
	}
	return gcfg.ReadWithCallback(d.r, cb)
}

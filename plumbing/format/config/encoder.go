package config

import (
	"fmt"
	"io"
	"strings"
)

// Encoder serializes a Config back to Git's config file syntax.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder { return &Encoder{w} }

// Encode writes cfg in canonical form: one block per section/subsection,
// tab-indented options, with no blank lines between blocks.
func (e *Encoder) Encode(cfg *Config) error {
	for _, s := range cfg.Sections {
		if len(s.Options) > 0 {
			if err := e.writeSectionHeader(s.Name, ""); err != nil {
				return err
			}
			if err := e.writeOptions(s.Options); err != nil {
				return err
			}
		}
		for _, ss := range s.Subsections {
			if err := e.writeSectionHeader(s.Name, ss.Name); err != nil {
				return err
			}
			if err := e.writeOptions(ss.Options); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Encoder) writeSectionHeader(name, subsection string) error {
	if subsection == "" {
		_, err := fmt.Fprintf(e.w, "[%s]\n", name)
		return err
	}
	_, err := fmt.Fprintf(e.w, "[%s %q]\n", name, subsection)
	return err
}

func (e *Encoder) writeOptions(opts Options) error {
	for _, o := range opts {
		v := o.Value
		if strings.ContainsAny(v, "\";#\\") || strings.HasPrefix(v, " ") || strings.HasSuffix(v, " ") {
			v = fmt.Sprintf("%q", v)
		}
		if _, err := fmt.Fprintf(e.w, "\t%s = %s\n", o.Key, v); err != nil {
			return err
		}
	}
	return nil
}

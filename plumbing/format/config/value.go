package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseBool parses Git's boolean synonyms: true/yes/on (and the empty
// value, which Git treats as true for flag-style options) vs
// false/no/off.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "":
		return true, nil
	case "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value %q", s)
	}
}

// ParseSize parses an integer with an optional k/m/g suffix (case
// insensitive), as used by core.bigFileThreshold and similar keys.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size value")
	}
	mult := int64(1)
	switch s[len(s)-1] {
	case 'k', 'K':
		mult = 1024
		s = s[:len(s)-1]
	case 'm', 'M':
		mult = 1024 * 1024
		s = s[:len(s)-1]
	case 'g', 'G':
		mult = 1024 * 1024 * 1024
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", s, err)
	}
	return n * mult, nil
}

// Scope identifies where a config value cascades from.
type Scope int

const (
	ScopeSystem Scope = iota
	ScopeGlobal
	ScopeWorktree
	ScopeLocal
)

// Cascade resolves a key by checking sources last-to-first (local wins
// over worktree over global over system), implementing spec.md's
// "system → global → worktree → local" cascade for scalar options.
type Cascade struct {
	// Sources is ordered system, global, worktree, local.
	Sources [4]*Config
}

func (c *Cascade) GetOption(section, subsection, key string) string {
	for i := len(c.Sources) - 1; i >= 0; i-- {
		if c.Sources[i] == nil {
			continue
		}
		if v := c.Sources[i].GetOption(section, subsection, key); v != "" {
			return v
		}
	}
	return ""
}

// GetAllOptions concatenates multi-valued options across the whole
// cascade in system→global→worktree→local order, matching Git's
// behavior for keys like remote.<name>.fetch.
func (c *Cascade) GetAllOptions(section, subsection, key string) []string {
	var out []string
	for _, src := range c.Sources {
		if src == nil {
			continue
		}
		out = append(out, src.GetAllOptions(section, subsection, key)...)
	}
	return out
}

func (c *Cascade) GetBool(section, subsection, key string, def bool) bool {
	v := c.GetOption(section, subsection, key)
	if v == "" {
		return def
	}
	b, err := ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

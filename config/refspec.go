// Package config holds the repository-level configuration types:
// refspecs, remotes and the structures decoded from a repository's
// config file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opengit/gitcore/plumbing"
)

const (
	refSpecWildcard  = "*"
	refSpecForce     = "+"
	refSpecSeparator = ":"
)

var (
	ErrRefSpecMalformedSeparator = errors.New("config: refspec is missing '<src>:<dst>' separator")
	ErrRefSpecMalformedWildcard  = errors.New("config: refspec mismatched wildcard count")
)

// RefSpec is a "+<src>:<dst>" mapping between remote and local
// references, e.g. "+refs/heads/*:refs/remotes/origin/*".
type RefSpec string

// Validate reports whether the refspec is well-formed.
func (s RefSpec) Validate() error {
	spec := string(s)
	if strings.Count(spec, refSpecSeparator) != 1 {
		return ErrRefSpecMalformedSeparator
	}
	sep := strings.Index(spec, refSpecSeparator)
	ws := strings.Count(spec[:sep], refSpecWildcard)
	wd := strings.Count(spec[sep+1:], refSpecWildcard)
	if ws != wd || ws > 1 {
		return ErrRefSpecMalformedWildcard
	}
	return nil
}

// IsForceUpdate reports whether the refspec allows non-fast-forward updates.
func (s RefSpec) IsForceUpdate() bool {
	return len(s) > 0 && s[0] == refSpecForce[0]
}

// IsDelete reports whether the refspec has an empty source, i.e. it
// only ever deletes the destination ref ( ":refs/heads/branch" ).
func (s RefSpec) IsDelete() bool { return s.Src() == "" }

// Src returns the source side of the mapping.
func (s RefSpec) Src() string {
	spec := string(s)
	if s.IsForceUpdate() {
		spec = spec[1:]
	}
	sep := strings.Index(spec, refSpecSeparator)
	return spec[:sep]
}

// Dst computes the destination name a matched source name maps to.
func (s RefSpec) Dst(n plumbing.ReferenceName) plumbing.ReferenceName {
	spec := string(s)
	if s.IsForceUpdate() {
		spec = spec[1:]
	}
	sep := strings.Index(spec, refSpecSeparator)
	src, dst := spec[:sep], spec[sep+1:]

	if !s.isGlob() {
		return plumbing.ReferenceName(dst)
	}

	name := n.String()
	ws := strings.Index(src, refSpecWildcard)
	wd := strings.Index(dst, refSpecWildcard)
	match := name[ws : len(name)-(len(src)-(ws+1))]
	return plumbing.ReferenceName(dst[:wd] + match + dst[wd+1:])
}

func (s RefSpec) isGlob() bool { return strings.Contains(string(s), refSpecWildcard) }

// Match reports whether n matches this refspec's source pattern.
func (s RefSpec) Match(n plumbing.ReferenceName) bool {
	if !s.isGlob() {
		return s.Src() == n.String()
	}
	return s.matchGlob(n)
}

func (s RefSpec) matchGlob(n plumbing.ReferenceName) bool {
	src := s.Src()
	name := n.String()
	wildcard := strings.Index(src, refSpecWildcard)

	prefix := src[:wildcard]
	suffix := ""
	if wildcard+1 < len(src) {
		suffix = src[wildcard+1:]
	}
	return len(name) > len(prefix)+len(suffix) &&
		strings.HasPrefix(name, prefix) &&
		strings.HasSuffix(name, suffix)
}

func (s RefSpec) String() string { return string(s) }

// MatchAny reports whether any refspec in l matches n.
func MatchAny(l []RefSpec, n plumbing.ReferenceName) bool {
	for _, r := range l {
		if r.Match(n) {
			return true
		}
	}
	return false
}

// RemoteConfig holds a remote's name, URLs and default fetch refspecs,
// the subset of "git config" a [remote "name"] section carries.
type RemoteConfig struct {
	Name  string
	URLs  []string
	Fetch []RefSpec
}

// Validate checks the remote config is usable.
func (c *RemoteConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config: remote name cannot be empty")
	}
	if len(c.URLs) == 0 {
		return fmt.Errorf("config: remote %q requires at least one URL", c.Name)
	}
	for _, rs := range c.Fetch {
		if err := rs.Validate(); err != nil {
			return fmt.Errorf("config: remote %q: %w", c.Name, err)
		}
	}
	return nil
}

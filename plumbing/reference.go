package plumbing

import (
	"fmt"
	"strings"
)

// ReferenceName is the full name of a ref, e.g. "refs/heads/main" or the
// bare "HEAD".
type ReferenceName string

const (
	HEAD ReferenceName = "HEAD"
)

// well-known ref namespaces.
const (
	refHeadPrefix    = "refs/heads/"
	refTagPrefix     = "refs/tags/"
	refRemotePrefix  = "refs/remotes/"
	refNotePrefix    = "refs/notes/"
)

func (n ReferenceName) String() string { return string(n) }

// Short strips a well-known prefix (refs/heads/, refs/tags/,
// refs/remotes/, refs/notes/) from the name, returning it unchanged
// otherwise.
func (n ReferenceName) Short() string {
	s := string(n)
	for _, prefix := range []string{refHeadPrefix, refTagPrefix, refRemotePrefix, refNotePrefix} {
		if strings.HasPrefix(s, prefix) {
			return s[len(prefix):]
		}
	}
	return s
}

func (n ReferenceName) IsBranch() bool { return strings.HasPrefix(string(n), refHeadPrefix) }
func (n ReferenceName) IsTag() bool    { return strings.HasPrefix(string(n), refTagPrefix) }
func (n ReferenceName) IsRemote() bool { return strings.HasPrefix(string(n), refRemotePrefix) }
func (n ReferenceName) IsNote() bool   { return strings.HasPrefix(string(n), refNotePrefix) }

func NewBranchReferenceName(name string) ReferenceName { return ReferenceName(refHeadPrefix + name) }
func NewTagReferenceName(name string) ReferenceName     { return ReferenceName(refTagPrefix + name) }
func NewRemoteReferenceName(remote, branch string) ReferenceName {
	return ReferenceName(refRemotePrefix + remote + "/" + branch)
}
func NewRemoteHEADReferenceName(remote string) ReferenceName {
	return ReferenceName(refRemotePrefix + remote + "/HEAD")
}

// ReferenceType distinguishes a direct (hash) ref from a symbolic one.
type ReferenceType int8

const (
	InvalidReference ReferenceType = iota
	HashReference
	SymbolicReference
)

// Reference is either a direct pointer to an object id, or a symbolic
// pointer to another ref name (used by HEAD and any symref).
type Reference struct {
	typ    ReferenceType
	name   ReferenceName
	target ReferenceName
	hash   Hash
}

// NewHashReference builds a direct ref.
func NewHashReference(name ReferenceName, h Hash) *Reference {
	return &Reference{typ: HashReference, name: name, hash: h}
}

// NewSymbolicReference builds a symbolic ref pointing at target.
func NewSymbolicReference(name, target ReferenceName) *Reference {
	return &Reference{typ: SymbolicReference, name: name, target: target}
}

func (r *Reference) Type() ReferenceType   { return r.typ }
func (r *Reference) Name() ReferenceName   { return r.name }
func (r *Reference) Hash() Hash            { return r.hash }
func (r *Reference) Target() ReferenceName { return r.target }

func (r *Reference) String() string {
	switch r.typ {
	case HashReference:
		return fmt.Sprintf("%s %s", r.hash, r.name)
	case SymbolicReference:
		return fmt.Sprintf("ref: %s %s", r.target, r.name)
	default:
		return ""
	}
}

// invalidRefNameChars are the characters Git's check-ref-format rejects
// anywhere in a ref name.
const invalidRefNameChars = " ~^:?*[\\\x7f"

// ValidateReferenceName applies spec.md's ref name validation rules.
func ValidateReferenceName(name string) error {
	if name == "" {
		return fmt.Errorf("empty ref name")
	}
	if name == "HEAD" {
		return nil
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("invalid ref name %q: contains '..'", name)
	}
	if strings.Contains(name, "@{") {
		return fmt.Errorf("invalid ref name %q: contains '@{'", name)
	}
	if strings.Contains(name, "//") {
		return fmt.Errorf("invalid ref name %q: contains '//'", name)
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return fmt.Errorf("invalid ref name %q: leading/trailing slash", name)
	}
	if strings.HasSuffix(name, ".lock") {
		return fmt.Errorf("invalid ref name %q: reserved .lock suffix", name)
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == "" {
			return fmt.Errorf("invalid ref name %q: empty path segment", name)
		}
		if seg == "@" {
			return fmt.Errorf("invalid ref name %q: '@' path segment", name)
		}
		if strings.HasPrefix(seg, ".") {
			return fmt.Errorf("invalid ref name %q: segment starts with '.'", name)
		}
	}
	for _, c := range invalidRefNameChars {
		if strings.ContainsRune(name, c) {
			return fmt.Errorf("invalid ref name %q: contains %q", name, c)
		}
	}
	return nil
}

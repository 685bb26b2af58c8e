package gitcore

import (
	"dario.cat/mergo"

	"github.com/opengit/gitcore/config"
	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/transport"
)

// ProgressFunc reports incremental progress for a long-running
// operation: phase is a short label ("Compressing objects", "Receiving
// objects"), loaded/total describe a unit count (total may be zero when
// unknown).
type ProgressFunc func(phase string, loaded, total int64)

// FetchOptions configures Remote.Fetch.
type FetchOptions struct {
	RemoteName   string
	RefSpecs     []config.RefSpec
	Depth        int
	Tags         TagMode
	Prune        bool
	Force        bool
	Auth         transport.AuthMethod
	Progress     ProgressFunc
}

// TagMode controls which tags a fetch also retrieves.
type TagMode int

const (
	TagFollowing TagMode = iota // only tags reachable from fetched refs
	AllTags
	NoTags
)

// PushOptions configures Remote.Push.
type PushOptions struct {
	RemoteName string
	RefSpecs   []config.RefSpec
	Prune      bool
	Force      bool
	Auth       transport.AuthMethod
	Progress   ProgressFunc
}

// CloneOptions configures Repository clone.
type CloneOptions struct {
	URL    string
	Auth   transport.AuthMethod
	RemoteName string
	// ReferenceName pins the branch or tag to check out; empty means
	// follow the remote's reported default branch.
	ReferenceName plumbing.ReferenceName
	SingleBranch  bool
	Depth         int
	Tags          TagMode
	Progress      ProgressFunc
}

// CheckoutOptions configures Repository.Checkout.
type CheckoutOptions struct {
	Branch plumbing.ReferenceName
	Hash   plumbing.Hash
	Create bool
	Force  bool
	Sparse []string
}

// BranchOptions configures Repository.Branch.
type BranchOptions struct {
	Name   string
	Hash   plumbing.Hash
	Force  bool
	Remote string
}

// CommitOptions configures Repository.Commit.
type CommitOptions struct {
	Message   string
	Author    Signature
	Committer Signature
	All       bool
	Parents   []plumbing.Hash
}

// Signature identifies a commit or tag's author/committer.
type Signature struct {
	Name  string
	Email string
	When  int64 // unix seconds; zero means "now" at commit time
}

// TagOptions configures Repository.Tag.
type TagOptions struct {
	Name      string
	Target    plumbing.Hash
	Message   string // non-empty creates an annotated tag object
	Tagger    Signature
	Force     bool
}

// MergeOptions configures Repository.Merge.
type MergeOptions struct {
	Branch         plumbing.ReferenceName
	CommitMessage  string
	Committer      Signature
	FastForwardOnly bool
	NoFastForward  bool
}

// StashOptions configures Repository.Stash.
type StashOptions struct {
	Message          string
	IncludeUntracked bool
}

// CherryPickOptions configures Repository.CherryPick.
type CherryPickOptions struct {
	Commit    plumbing.Hash
	Committer Signature
	NoCommit  bool
}

// BundleOptions configures Repository.CreateBundle.
type BundleOptions struct {
	RefSpecs []config.RefSpec
	Since    []plumbing.Hash // "have" tips excluded from the bundle
}

// LsRemoteOptions configures LsRemote.
type LsRemoteOptions struct {
	URL  string
	Auth transport.AuthMethod
	Tags bool
	Heads bool
}

// PullOptions configures Repository.Pull.
type PullOptions struct {
	RemoteName    string
	ReferenceName plumbing.ReferenceName
	Depth         int
	Tags          TagMode
	Force         bool
	Auth          transport.AuthMethod
	Progress      ProgressFunc
}

func defaultFetchOptions() *FetchOptions {
	return &FetchOptions{RemoteName: "origin", Tags: TagFollowing}
}

func defaultPushOptions() *PushOptions {
	return &PushOptions{RemoteName: "origin"}
}

func defaultCloneOptions() *CloneOptions {
	return &CloneOptions{RemoteName: "origin", Tags: TagFollowing}
}

func defaultPullOptions() *PullOptions {
	return &PullOptions{RemoteName: "origin", Tags: TagFollowing}
}

// withDefaults merges zero-valued fields of o with a package default,
// the way the teacher's options.go leans on mergo instead of a manual
// field-by-field fallback.
func withDefaults[T any](o *T, def *T) (*T, error) {
	if err := mergo.Merge(o, def); err != nil {
		return nil, err
	}
	return o, nil
}

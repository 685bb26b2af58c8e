// Package storage defines the pluggable persistence contract every
// repository operation is built on: refs, objects, packs, the index,
// reflogs, state files and a handful of miscellaneous repository-level
// concerns (HEAD, config, hooks, shallow, worktrees, LFS).
package storage

import (
	"errors"
	"io"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/format/config"
	"github.com/opengit/gitcore/plumbing/format/idxfile"
	"github.com/opengit/gitcore/plumbing/format/index"
)

var (
	ErrNotFound      = errors.New("storage: not found")
	ErrRefMismatch   = errors.New("storage: ref old-value mismatch")
	ErrObjectExists  = errors.New("storage: object hash mismatch on write")
	ErrStopIteration = errors.New("storage: stop iteration")
)

// RefMismatchError is returned by WriteRef's compare-and-set when the
// observed current value doesn't match the caller's expectation.
type RefMismatchError struct {
	Name     plumbing.ReferenceName
	Expected string
	Actual   string
}

func (e *RefMismatchError) Error() string {
	return "storage: ref " + string(e.Name) + " mismatch: expected " + e.Expected + " got " + e.Actual
}
func (e *RefMismatchError) Is(target error) bool { return target == ErrRefMismatch }

// ObjectHashMismatchError is returned when writing an object whose
// bytes collide with an existing, different object at the same OID.
type ObjectHashMismatchError struct{ Hash plumbing.Hash }

func (e *ObjectHashMismatchError) Error() string {
	return "storage: object hash mismatch for " + e.Hash.String()
}
func (e *ObjectHashMismatchError) Is(target error) bool { return target == ErrObjectExists }

// RefUpdateOptions configures a single WriteRef call.
type RefUpdateOptions struct {
	// Force skips the old-value check entirely.
	Force bool
	// OldValue, if non-nil, makes the update a compare-and-set: the
	// write only applies if the ref's current target equals *OldValue
	// (a Hash for direct refs, or a ReferenceName for symbolic ones, via
	// Reference equality on String()).
	OldValue *plumbing.Reference
	// NoReflog suppresses the reflog entry this update would otherwise
	// produce.
	NoReflog bool
	// Reflog is the entry to append (when not suppressed).
	Reflog ReflogEntry
}

// ReflogEntry is one line of a ref's reflog.
type ReflogEntry struct {
	Old, New         plumbing.Hash
	CommitterName    string
	CommitterEmail   string
	When             int64 // unix seconds
	TZOffsetSeconds  int
	Message          string
}

// RefStorer is the ref half of the backend contract.
type RefStorer interface {
	ReadRef(name plumbing.ReferenceName) (*plumbing.Reference, error)
	WriteRef(name plumbing.ReferenceName, ref *plumbing.Reference, opts RefUpdateOptions) error
	DeleteRef(name plumbing.ReferenceName) error
	ListRefs(prefix plumbing.ReferenceName) ([]*plumbing.Reference, error)

	ReadHEAD() (*plumbing.Reference, error)
	WriteHEAD(ref *plumbing.Reference) error

	ReadPackedRefs() ([]*plumbing.Reference, error)
	WritePackedRefs(refs []*plumbing.Reference) error
}

// ReflogStorer is the reflog half of the backend contract.
type ReflogStorer interface {
	AppendReflog(name plumbing.ReferenceName, e ReflogEntry) error
	ReadReflog(name plumbing.ReferenceName) ([]ReflogEntry, error)
	ListReflogs() ([]plumbing.ReferenceName, error)
}

// ObjectStorer is the loose+packed object half of the backend contract.
type ObjectStorer interface {
	ReadLooseObject(h plumbing.Hash) (io.ReadCloser, error)
	WriteLooseObject(h plumbing.Hash, deflated []byte) error
	HasObject(h plumbing.Hash) (bool, error)
	ListLoosePrefix(prefix string) ([]plumbing.Hash, error)

	ListPackfiles() ([]string, error)
	ReadPack(name string) (ReaderAtCloser, error)
	ReadPackIndex(name string) (*idxfile.Index, error)
	WritePack(name string, r io.Reader) error
	WritePackIndex(name string, r io.Reader) error
	DeletePack(name string) error
}

// ReaderAtCloser is a random-access, closable byte source (a packfile
// handle).
type ReaderAtCloser interface {
	io.ReaderAt
	io.Closer
	Size() (int64, error)
}

// IndexStorer is the dircache half of the backend contract.
type IndexStorer interface {
	ReadIndex() (*index.Index, error)
	WriteIndex(idx *index.Index) error
	HasIndex() bool
}

// StateFileStorer handles the small named files that track
// operation-in-progress state (MERGE_HEAD, ORIG_HEAD, ...).
type StateFileStorer interface {
	ReadStateFile(name string) ([]byte, error)
	WriteStateFile(name string, content []byte) error
	DeleteStateFile(name string) error
	ListStateFiles() ([]string, error)
}

// ShallowStorer tracks the shallow set.
type ShallowStorer interface {
	ReadShallow() ([]plumbing.Hash, error)
	WriteShallow(commits []plumbing.Hash) error
}

// HookRunner spawns an external process for a named hook with the
// documented stdin/argv/stdout contract. Hook execution is outside the
// core's purity guarantees; tests substitute an in-memory runner.
type HookRunner interface {
	RunHook(name string, args []string, stdin io.Reader) (stdout []byte, err error)
	HasHook(name string) bool
}

// WorktreeRecord describes one linked worktree.
type WorktreeRecord struct {
	Name   string
	Path   string
	Head   plumbing.Hash
	Locked bool
	Reason string
}

// WorktreeStorer manages `git worktree` metadata.
type WorktreeStorer interface {
	ListWorktrees() ([]WorktreeRecord, error)
	AddWorktree(rec WorktreeRecord) error
	RemoveWorktree(name string) error
}

// LFSStorer is the minimal Git LFS object store surface the checkout
// smudge filter needs.
type LFSStorer interface {
	HasLFSObject(oid string) (bool, error)
	ReadLFSObject(oid string) (io.ReadCloser, error)
	WriteLFSObject(oid string, r io.Reader) error
}

// Storer is the full backend contract a Repository is built on.
type Storer interface {
	RefStorer
	ReflogStorer
	ObjectStorer
	IndexStorer
	StateFileStorer
	ShallowStorer
	WorktreeStorer
	LFSStorer

	Initialize(bare bool) error
	ReadConfig() (*config.Config, error)
	WriteConfig(cfg *config.Config) error
	Hooks() HookRunner
	IsExportOK() (bool, error)
	SetExportOK(bool) error

	// ObjectFormat reports the hash family this repository was
	// initialized with.
	ObjectFormat() plumbing.ObjectFormat
}

// Package index implements the Git index ("dircache") file: the staged
// snapshot of the working tree consulted by commit, status and checkout.
package index

import (
	"sort"
	"time"

	"github.com/opengit/gitcore/plumbing"
)

// Stage distinguishes the base/ours/theirs copies of a conflicted path;
// stage 0 means "no conflict".
type Stage uint8

const (
	Merged Stage = 0
	AncestorMode Stage = 1
	OurMode      Stage = 2
	TheirMode    Stage = 3
)

// Entry is a single staged file record.
type Entry struct {
	Name  string
	Stage Stage

	Hash plumbing.Hash
	Mode plumbing.FileMode

	CreatedAt  time.Time
	ModifiedAt time.Time
	Dev, Inode uint32
	UID, GID   uint32
	Size       uint32

	IntentToAdd bool
	SkipWorktree bool
	AssumeValid bool
}

// Index is the parsed, in-memory dircache: entries kept sorted by
// (path, stage) at all times.
type Index struct {
	Version uint32
	Entries []*Entry
}

// NewIndex returns an empty, version-2 index.
func NewIndex() *Index { return &Index{Version: 2} }

func less(a, b *Entry) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Stage < b.Stage
}

func (idx *Index) sort() {
	sort.SliceStable(idx.Entries, func(i, j int) bool { return less(idx.Entries[i], idx.Entries[j]) })
}

// Entry returns the stage-0 entry for path, if present.
func (idx *Index) Entry(p string) (*Entry, bool) {
	for _, e := range idx.Entries {
		if e.Name == p && e.Stage == Merged {
			return e, true
		}
	}
	return nil, false
}

// EntriesForPath returns every stage present for path (1 entry if
// merged, up to 3 if conflicted).
func (idx *Index) EntriesForPath(p string) []*Entry {
	var out []*Entry
	for _, e := range idx.Entries {
		if e.Name == p {
			out = append(out, e)
		}
	}
	return out
}

// Insert replaces any existing entry at (e.Name, e.Stage), or appends it,
// preserving path+stage ordering.
func (idx *Index) Insert(e *Entry) {
	for i, existing := range idx.Entries {
		if existing.Name == e.Name && existing.Stage == e.Stage {
			idx.Entries[i] = e
			return
		}
	}
	idx.Entries = append(idx.Entries, e)
	idx.sort()
}

// Remove drops all stages of path.
func (idx *Index) Remove(p string) {
	out := idx.Entries[:0]
	for _, e := range idx.Entries {
		if e.Name != p {
			out = append(out, e)
		}
	}
	idx.Entries = out
}

// StageConflict replaces any stage-0 entry for path with stage 1/2/3
// entries for the three-way conflict inputs, any of which may be nil to
// mean "absent in that tree" (e.g. added-by-them).
func (idx *Index) StageConflict(path string, base, ours, theirs *Entry) {
	idx.Remove(path)
	for stage, e := range map[Stage]*Entry{AncestorMode: base, OurMode: ours, TheirMode: theirs} {
		if e == nil {
			continue
		}
		cp := *e
		cp.Name = path
		cp.Stage = stage
		idx.Entries = append(idx.Entries, &cp)
	}
	idx.sort()
}

// HasConflicts reports whether any path carries a stage > 0 entry,
// i.e. whether a merge is still in progress from the index's point of
// view (spec.md's MERGE_HEAD<=>stage invariant).
func (idx *Index) HasConflicts() bool {
	for _, e := range idx.Entries {
		if e.Stage != Merged {
			return true
		}
	}
	return false
}

// ConflictedPaths returns the distinct paths with stage > 0 entries.
func (idx *Index) ConflictedPaths() []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range idx.Entries {
		if e.Stage != Merged && !seen[e.Name] {
			seen[e.Name] = true
			out = append(out, e.Name)
		}
	}
	sort.Strings(out)
	return out
}

// Clear resets the index to empty (e.g. after a successful commit).
func (idx *Index) Clear() { idx.Entries = nil }

// Glob returns entries whose path falls under dir (dir itself or any of
// its descendants).
func (idx *Index) Glob(dir string) []*Entry {
	var out []*Entry
	for _, e := range idx.Entries {
		if dir == "" || e.Name == dir || (len(e.Name) > len(dir) && e.Name[:len(dir)] == dir && e.Name[len(dir)] == '/') {
			out = append(out, e)
		}
	}
	return out
}

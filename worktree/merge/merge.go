// Package merge implements three-way tree and text merging: given a
// common ancestor and two divergent sides, it produces a merged tree,
// falling back to line-level conflict markers (and, failing that, a
// staged index conflict) wherever the sides touched the same path in
// incompatible ways.
package merge

import (
	"path"
	"sort"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/object"
	"github.com/opengit/gitcore/plumbing/odb"
	"github.com/opengit/gitcore/plumbing/revlist"
)

// Conflict describes one path the two sides edited incompatibly. A nil
// Base/Ours/Theirs means the path was absent on that side.
type Conflict struct {
	Path                string
	Base, Ours, Theirs  *object.TreeEntry
	TextConflict        bool
}

// Result is the outcome of a three-way tree merge. Entries holds every
// path that resolved cleanly or was text-merged (the latter with
// conflict markers embedded in its blob content); Conflicts holds every
// path that needs the caller (or the user) to pick a side.
type Result struct {
	Entries   map[string]object.TreeEntry
	Conflicts []Conflict
}

func (r *Result) HasConflicts() bool { return len(r.Conflicts) > 0 }

// CommonAncestor resolves the merge base of a and b, picking the first
// candidate when history is criss-crossed (the caller can build a
// "virtual" merge base itself by merging the candidates if it needs the
// git-merge-recursive behavior exactly).
func CommonAncestor(g revlist.CommitGetter, format plumbing.ObjectFormat, a, b plumbing.Hash) (plumbing.Hash, error) {
	bases, err := revlist.MergeBase(g, format, a, b)
	if err != nil {
		return plumbing.Hash{}, err
	}
	if len(bases) == 0 {
		return plumbing.Hash{}, errNoCommonAncestor(a, b)
	}
	return bases[0], nil
}

// MergeTrees performs a three-way merge of the trees rooted at base,
// ours and theirs. base may be the zero hash (nothing in common, an
// "unrelated histories" merge).
func MergeTrees(o *odb.ODB, format plumbing.ObjectFormat, base, ours, theirs plumbing.Hash) (*Result, error) {
	baseMap, err := flattenTree(o, format, base)
	if err != nil {
		return nil, err
	}
	oursMap, err := flattenTree(o, format, ours)
	if err != nil {
		return nil, err
	}
	theirsMap, err := flattenTree(o, format, theirs)
	if err != nil {
		return nil, err
	}

	paths := map[string]struct{}{}
	for p := range baseMap {
		paths[p] = struct{}{}
	}
	for p := range oursMap {
		paths[p] = struct{}{}
	}
	for p := range theirsMap {
		paths[p] = struct{}{}
	}

	res := &Result{Entries: map[string]object.TreeEntry{}}

	for p := range paths {
		b, inBase := baseMap[p]
		ou, inOurs := oursMap[p]
		th, inTheirs := theirsMap[p]

		switch {
		case !inBase && inOurs && inTheirs:
			if entriesEqual(ou, th) {
				res.Entries[p] = ou
				continue
			}
			if err := resolveDivergent(o, format, p, nil, ou, th, res); err != nil {
				return nil, err
			}

		case !inBase && inOurs:
			res.Entries[p] = ou

		case !inBase && inTheirs:
			res.Entries[p] = th

		case inBase && !inOurs && !inTheirs:
			// deleted on both sides: nothing to carry forward

		case inBase:
			oursUnchanged := inOurs && entriesEqual(b, ou)
			theirsUnchanged := inTheirs && entriesEqual(b, th)

			switch {
			case oursUnchanged && theirsUnchanged:
				res.Entries[p] = b

			case oursUnchanged:
				// ours left it alone: whatever theirs did to it wins,
				// including deleting it
				if inTheirs {
					res.Entries[p] = th
				}

			case theirsUnchanged:
				if inOurs {
					res.Entries[p] = ou
				}

			case inOurs && inTheirs && entriesEqual(ou, th):
				res.Entries[p] = ou

			case inOurs && inTheirs:
				bb := b
				if err := resolveDivergent(o, format, p, &bb, ou, th, res); err != nil {
					return nil, err
				}

			default:
				// modify/delete conflict: one side edited, the other removed
				bb := b
				c := Conflict{Path: p, Base: &bb}
				if inOurs {
					oo := ou
					c.Ours = &oo
				}
				if inTheirs {
					tt := th
					c.Theirs = &tt
				}
				res.Conflicts = append(res.Conflicts, c)
			}
		}
	}

	return res, nil
}

// resolveDivergent handles a path both sides touched relative to base
// (or both independently added, when base is nil): text-merge regular
// files, conflict everything else outright.
func resolveDivergent(o *odb.ODB, format plumbing.ObjectFormat, p string, base *object.TreeEntry, ours, theirs object.TreeEntry, res *Result) error {
	if ours.Mode != theirs.Mode || !ours.Mode.IsRegular() {
		c := Conflict{Path: p, Base: base, Ours: &ours, Theirs: &theirs}
		res.Conflicts = append(res.Conflicts, c)
		return nil
	}

	var baseContent []byte
	if base != nil {
		blob, err := o.Blob(format, base.Hash)
		if err == nil {
			baseContent, _ = blob.Bytes()
		}
	}
	oursBlob, err := o.Blob(format, ours.Hash)
	if err != nil {
		return err
	}
	theirsBlob, err := o.Blob(format, theirs.Hash)
	if err != nil {
		return err
	}
	oursContent, err := oursBlob.Bytes()
	if err != nil {
		return err
	}
	theirsContent, err := theirsBlob.Bytes()
	if err != nil {
		return err
	}

	merged, conflict := MergeText(baseContent, oursContent, theirsContent)
	hash, err := o.EncodeObject(format, object.NewBlob(merged))
	if err != nil {
		return err
	}
	res.Entries[p] = object.TreeEntry{Mode: ours.Mode, Hash: hash}

	if conflict {
		c := Conflict{Path: p, Base: base, Ours: &ours, Theirs: &theirs, TextConflict: true}
		res.Conflicts = append(res.Conflicts, c)
	}
	return nil
}

func entriesEqual(a, b object.TreeEntry) bool {
	return a.Hash == b.Hash && a.Mode == b.Mode
}

func flattenTree(o *odb.ODB, format plumbing.ObjectFormat, root plumbing.Hash) (map[string]object.TreeEntry, error) {
	out := map[string]object.TreeEntry{}
	if root.IsZero() {
		return out, nil
	}
	var walk func(prefix string, h plumbing.Hash) error
	walk = func(prefix string, h plumbing.Hash) error {
		t, err := o.Tree(format, h)
		if err != nil {
			return err
		}
		for _, e := range t.Entries {
			p := e.Name
			if prefix != "" {
				p = prefix + "/" + e.Name
			}
			if e.Mode.IsDir() {
				if err := walk(p, e.Hash); err != nil {
					return err
				}
				continue
			}
			out[p] = e
		}
		return nil
	}
	if err := walk("", root); err != nil {
		return nil, err
	}
	return out, nil
}

// BuildTree writes entries (a flat path -> TreeEntry map, as produced in
// Result.Entries once every conflict has been resolved) as a nested tree
// object and returns its id.
func BuildTree(o *odb.ODB, format plumbing.ObjectFormat, entries map[string]object.TreeEntry) (plumbing.Hash, error) {
	root := &buildDir{dirs: map[string]*buildDir{}, files: map[string]object.TreeEntry{}}
	names := make([]string, 0, len(entries))
	for p := range entries {
		names = append(names, p)
	}
	sort.Strings(names)
	for _, p := range names {
		root.insert(p, entries[p])
	}
	return root.write(o, format)
}

type buildDir struct {
	dirs  map[string]*buildDir
	files map[string]object.TreeEntry
}

func (d *buildDir) insert(p string, e object.TreeEntry) {
	dir, base := path.Split(p)
	dir = path.Clean(dir)
	node := d
	if dir != "." && dir != "" {
		for _, seg := range splitPath(dir) {
			next, ok := node.dirs[seg]
			if !ok {
				next = &buildDir{dirs: map[string]*buildDir{}, files: map[string]object.TreeEntry{}}
				node.dirs[seg] = next
			}
			node = next
		}
	}
	node.files[base] = e
}

func splitPath(p string) []string {
	var out []string
	for _, seg := range splitSlash(p) {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func splitSlash(p string) []string {
	var out []string
	start := 0
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			out = append(out, p[start:i])
			start = i + 1
		}
	}
	out = append(out, p[start:])
	return out
}

func (d *buildDir) write(o *odb.ODB, format plumbing.ObjectFormat) (plumbing.Hash, error) {
	t := &object.Tree{}
	for name, sub := range d.dirs {
		h, err := sub.write(o, format)
		if err != nil {
			return plumbing.Hash{}, err
		}
		t.Entries = append(t.Entries, object.TreeEntry{Name: name, Mode: plumbing.FileModeDir, Hash: h})
	}
	for name, e := range d.files {
		e.Name = name
		t.Entries = append(t.Entries, e)
	}
	t.Sort()
	return o.EncodeObject(format, t)
}

type ancestorError struct {
	a, b plumbing.Hash
}

func (e *ancestorError) Error() string {
	return "merge: no common ancestor between " + e.a.String() + " and " + e.b.String()
}

func errNoCommonAncestor(a, b plumbing.Hash) error { return &ancestorError{a, b} }

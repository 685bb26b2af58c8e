package odb

import (
	"fmt"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/object"
)

// Closure walks commit, its tree and every blob/subtree it references,
// and every parent commit's closure in turn, appending each newly-seen
// hash to out. It is the traversal a push uses to build the set of
// objects a set of wanted commits needs that the remote doesn't have.
func (o *ODB) Closure(format plumbing.ObjectFormat, start plumbing.Hash, seen map[plumbing.Hash]bool, out *[]plumbing.Hash) error {
	if seen[start] {
		return nil
	}
	seen[start] = true

	c, err := o.Commit(format, start)
	if err != nil {
		return fmt.Errorf("odb: closure: resolving commit %s: %w", start, err)
	}
	*out = append(*out, start)

	if err := o.treeClosure(format, c.Tree, seen, out); err != nil {
		return err
	}
	for _, p := range c.Parents {
		if err := o.Closure(format, p, seen, out); err != nil {
			return err
		}
	}
	return nil
}

func (o *ODB) treeClosure(format plumbing.ObjectFormat, th plumbing.Hash, seen map[plumbing.Hash]bool, out *[]plumbing.Hash) error {
	if seen[th] {
		return nil
	}
	seen[th] = true

	t, err := o.Tree(format, th)
	if err != nil {
		return fmt.Errorf("odb: closure: resolving tree %s: %w", th, err)
	}
	*out = append(*out, th)

	for _, e := range t.Entries {
		if seen[e.Hash] || e.Mode.IsSubmodule() {
			continue
		}
		if e.Mode.IsDir() {
			if err := o.treeClosure(format, e.Hash, seen, out); err != nil {
				return err
			}
			continue
		}
		seen[e.Hash] = true
		*out = append(*out, e.Hash)
	}
	return nil
}

// Object implements packfile.ObjectSource, sourcing both the type and
// raw encoded payload of h for pack writing.
func (o *ODB) Object(h plumbing.Hash) (plumbing.ObjectType, []byte, error) {
	return o.readRaw(h)
}

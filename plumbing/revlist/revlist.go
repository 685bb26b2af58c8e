// Package revlist implements commit reachability: ancestor walks,
// merge-base computation and the want/have set difference the fetch
// negotiation needs.
package revlist

import (
	"github.com/emirpasic/gods/queues/priorityqueue"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/object"
)

// CommitGetter is the minimal surface revlist needs to walk history.
type CommitGetter interface {
	Commit(format plumbing.ObjectFormat, h plumbing.Hash) (*object.Commit, error)
}

// byCommitTimeDesc orders queue items so the most recently committed
// commit is dequeued first, matching native git's walk order and
// letting the walk stop as soon as it crosses into already-seen history.
func byCommitTimeDesc(a, b interface{}) int {
	ca, cb := a.(*object.Commit), b.(*object.Commit)
	switch {
	case ca.Committer.When.After(cb.Committer.When):
		return -1
	case ca.Committer.When.Before(cb.Committer.When):
		return 1
	default:
		return 0
	}
}

// WalkAncestors visits every commit reachable from start (including
// start itself) exactly once, in committer-time descending order,
// stopping early if visit returns false.
func WalkAncestors(g CommitGetter, format plumbing.ObjectFormat, start plumbing.Hash, visit func(*object.Commit) bool) error {
	seen := map[plumbing.Hash]bool{}
	pq := priorityqueue.NewWith(byCommitTimeDesc)

	push := func(h plumbing.Hash) error {
		if seen[h] {
			return nil
		}
		seen[h] = true
		c, err := g.Commit(format, h)
		if err != nil {
			return err
		}
		pq.Enqueue(c)
		return nil
	}

	if err := push(start); err != nil {
		return err
	}

	for !pq.Empty() {
		v, _ := pq.Dequeue()
		c := v.(*object.Commit)
		if !visit(c) {
			return nil
		}
		for _, p := range c.Parents {
			if err := push(p); err != nil {
				return err
			}
		}
	}
	return nil
}

// Ancestors returns every hash reachable from start (including start).
func Ancestors(g CommitGetter, format plumbing.ObjectFormat, start plumbing.Hash) ([]plumbing.Hash, error) {
	var out []plumbing.Hash
	err := WalkAncestors(g, format, start, func(c *object.Commit) bool {
		out = append(out, c.ID())
		return true
	})
	return out, err
}

// reachableSet materializes the full ancestor set of every hash in
// starts, used by Exclude/MergeBase as a plain membership test.
func reachableSet(g CommitGetter, format plumbing.ObjectFormat, starts []plumbing.Hash) (map[plumbing.Hash]bool, error) {
	set := map[plumbing.Hash]bool{}
	for _, start := range starts {
		if err := WalkAncestors(g, format, start, func(c *object.Commit) bool {
			set[c.ID()] = true
			return true
		}); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// Exclude returns every commit reachable from wants that is NOT
// reachable from haves: the set a fetch/push negotiation must still
// transfer once common history is subtracted.
func Exclude(g CommitGetter, format plumbing.ObjectFormat, wants, haves []plumbing.Hash) ([]plumbing.Hash, error) {
	excluded, err := reachableSet(g, format, haves)
	if err != nil {
		return nil, err
	}

	var out []plumbing.Hash
	seen := map[plumbing.Hash]bool{}
	stack := append([]plumbing.Hash{}, wants...)
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[h] || excluded[h] {
			continue
		}
		seen[h] = true
		c, err := g.Commit(format, h)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
		stack = append(stack, c.Parents...)
	}
	return out, nil
}

// MergeBase returns the best common ancestors of a and b: the set of
// commits reachable from both that are not themselves reachable from
// any other common ancestor (i.e. the minimal "merge base" set,
// supporting criss-cross merges with more than one result).
func MergeBase(g CommitGetter, format plumbing.ObjectFormat, a, b plumbing.Hash) ([]plumbing.Hash, error) {
	ra, err := reachableSet(g, format, []plumbing.Hash{a})
	if err != nil {
		return nil, err
	}
	rb, err := reachableSet(g, format, []plumbing.Hash{b})
	if err != nil {
		return nil, err
	}

	var common []plumbing.Hash
	for h := range ra {
		if rb[h] {
			common = append(common, h)
		}
	}
	if len(common) == 0 {
		return nil, nil
	}

	// Drop any common ancestor that is itself an ancestor of another
	// common ancestor: only the "lowest" ones remain.
	isAncestorOfAnother := map[plumbing.Hash]bool{}
	for _, h := range common {
		reach, err := reachableSet(g, format, []plumbing.Hash{h})
		if err != nil {
			return nil, err
		}
		for _, other := range common {
			if other == h {
				continue
			}
			if reach[other] {
				isAncestorOfAnother[other] = true
			}
		}
	}

	var out []plumbing.Hash
	for _, h := range common {
		if !isAncestorOfAnother[h] {
			out = append(out, h)
		}
	}
	return out, nil
}

// IsAncestor reports whether candidate is reachable from descendant.
func IsAncestor(g CommitGetter, format plumbing.ObjectFormat, candidate, descendant plumbing.Hash) (bool, error) {
	found := false
	err := WalkAncestors(g, format, descendant, func(c *object.Commit) bool {
		if c.ID() == candidate {
			found = true
			return false
		}
		return true
	})
	return found, err
}

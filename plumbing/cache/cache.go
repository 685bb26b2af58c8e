// Package cache provides bounded, byte-budgeted object and pack caches
// sitting in front of odb's storage-backed lookups.
package cache

import (
	"container/list"
	"sync"

	"github.com/opengit/gitcore/plumbing"
)

// Default byte budgets, matching the orders of magnitude the teacher
// uses for its object/pack caches.
const (
	DefaultObjectCacheSize = 96 * 1024 * 1024
	DefaultPackCacheSize   = 256 * 1024 * 1024
)

type entry struct {
	key     plumbing.Hash
	typ     plumbing.ObjectType
	payload []byte
}

// Object is an LRU cache of fully-expanded object payloads, evicting by
// total byte size rather than entry count since blobs vary wildly.
type Object struct {
	mu       sync.Mutex
	maxBytes int64
	curBytes int64
	ll       *list.List
	index    map[plumbing.Hash]*list.Element
}

// NewObject returns an Object cache with the given byte budget.
func NewObject(maxBytes int64) *Object {
	if maxBytes <= 0 {
		maxBytes = DefaultObjectCacheSize
	}
	return &Object{maxBytes: maxBytes, ll: list.New(), index: map[plumbing.Hash]*list.Element{}}
}

// Get returns a cached payload, promoting it to most-recently-used.
func (c *Object) Get(h plumbing.Hash) (plumbing.ObjectType, []byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.index[h]
	if !ok {
		return plumbing.InvalidObject, nil, false
	}
	c.ll.MoveToFront(el)
	e := el.Value.(*entry)
	return e.typ, e.payload, true
}

// Put stores payload for h, evicting least-recently-used entries until
// the cache fits within its byte budget.
func (c *Object) Put(h plumbing.Hash, t plumbing.ObjectType, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[h]; ok {
		c.ll.MoveToFront(el)
		old := el.Value.(*entry)
		c.curBytes += int64(len(payload)) - int64(len(old.payload))
		el.Value = &entry{key: h, typ: t, payload: payload}
	} else {
		el := c.ll.PushFront(&entry{key: h, typ: t, payload: payload})
		c.index[h] = el
		c.curBytes += int64(len(payload))
	}
	for c.curBytes > c.maxBytes && c.ll.Len() > 0 {
		c.evictOldest()
	}
}

func (c *Object) evictOldest() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	e := el.Value.(*entry)
	delete(c.index, e.key)
	c.curBytes -= int64(len(e.payload))
}

// Clear empties the cache.
func (c *Object) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.index = map[plumbing.Hash]*list.Element{}
	c.curBytes = 0
}

// Len reports the current entry count.
func (c *Object) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

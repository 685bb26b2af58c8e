// Package odb resolves and writes typed objects against a
// storage.Storer, hiding whether a given object lives loose on disk or
// inside one of the repository's packs.
package odb

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/cache"
	"github.com/opengit/gitcore/plumbing/format/idxfile"
	"github.com/opengit/gitcore/plumbing/format/objfile"
	"github.com/opengit/gitcore/plumbing/format/packfile"
	"github.com/opengit/gitcore/plumbing/object"
	"github.com/opengit/gitcore/storage"
)

// ODB is the object half of a repository: a storage.Storer plus the
// in-memory pack index cache needed to serve random object lookups.
type ODB struct {
	store storage.Storer
	cache *cache.Object

	mu    sync.Mutex
	packs map[string]*packHandle
}

type packHandle struct {
	idx *idxfile.Index
	ra  storage.ReaderAtCloser
}

// New wraps store with a default-sized object cache in front of it.
func New(store storage.Storer) *ODB {
	return &ODB{store: store, cache: cache.NewObject(cache.DefaultObjectCacheSize), packs: map[string]*packHandle{}}
}

// NewWithCache wraps store using an explicitly sized or shared object cache.
func NewWithCache(store storage.Storer, c *cache.Object) *ODB {
	return &ODB{store: store, cache: c, packs: map[string]*packHandle{}}
}

var _ object.ObjectStorer = (*ODB)(nil)

// EncodeObject serializes o, stores it as a loose object (a no-op if
// already present) and returns its id.
func (o *ODB) EncodeObject(format plumbing.ObjectFormat, obj object.Object) (plumbing.Hash, error) {
	hash, payload, err := object.Encode(format, obj)
	if err != nil {
		return plumbing.Hash{}, err
	}
	has, err := o.store.HasObject(hash)
	if err != nil {
		return plumbing.Hash{}, err
	}
	if has {
		return hash, nil
	}

	var buf bytes.Buffer
	w, err := objfile.NewWriter(&buf, obj.Type(), int64(len(payload)))
	if err != nil {
		return plumbing.Hash{}, err
	}
	if _, err := w.Write(payload); err != nil {
		return plumbing.Hash{}, err
	}
	if err := w.Close(); err != nil {
		return plumbing.Hash{}, err
	}
	if err := o.store.WriteLooseObject(hash, buf.Bytes()); err != nil {
		return plumbing.Hash{}, err
	}
	o.cache.Put(hash, obj.Type(), payload)
	return hash, nil
}

// DecodeObject resolves h to its type and payload (loose, then every
// pack in turn) and decodes it into a typed Object.
func (o *ODB) DecodeObject(format plumbing.ObjectFormat, h plumbing.Hash) (object.Object, error) {
	t, payload, err := o.readRaw(h)
	if err != nil {
		return nil, err
	}
	return object.Decode(format, t, h, payload)
}

// readRaw returns an object's type and fully-expanded payload, checking
// the in-memory cache, then loose storage, then every known pack.
func (o *ODB) readRaw(h plumbing.Hash) (plumbing.ObjectType, []byte, error) {
	if t, payload, ok := o.cache.Get(h); ok {
		return t, payload, nil
	}

	rc, err := o.store.ReadLooseObject(h)
	if err == nil {
		defer rc.Close()
		r, err := objfile.NewReader(rc)
		if err != nil {
			return plumbing.InvalidObject, nil, err
		}
		defer r.Close()
		payload, err := io.ReadAll(r)
		if err != nil {
			return plumbing.InvalidObject, nil, err
		}
		o.cache.Put(h, r.Type, payload)
		return r.Type, payload, nil
	}
	if err != storage.ErrNotFound {
		return plumbing.InvalidObject, nil, err
	}

	names, err := o.store.ListPackfiles()
	if err != nil {
		return plumbing.InvalidObject, nil, err
	}
	for _, name := range names {
		ph, err := o.packHandle(name)
		if err != nil {
			continue
		}
		if !ph.idx.Contains(h) {
			continue
		}
		reader := packfile.NewReader(ph.ra, ph.idx, h.Format(), o.resolveExternal)
		t, payload, err := reader.Get(h)
		if err != nil {
			return plumbing.InvalidObject, nil, err
		}
		o.cache.Put(h, t, payload)
		return t, payload, nil
	}
	return plumbing.InvalidObject, nil, storage.ErrNotFound
}

// resolveExternal lets one pack's thin REF_DELTA base resolve against
// loose storage or another pack, for the (rare, but legal) case of a
// delta base that lives outside the pack currently being read.
func (o *ODB) resolveExternal(h plumbing.Hash) (plumbing.ObjectType, []byte, error) {
	return o.readRaw(h)
}

func (o *ODB) packHandle(name string) (*packHandle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if ph, ok := o.packs[name]; ok {
		return ph, nil
	}
	idx, err := o.store.ReadPackIndex(name)
	if err != nil {
		return nil, err
	}
	ra, err := o.store.ReadPack(name)
	if err != nil {
		return nil, err
	}
	ph := &packHandle{idx: idx, ra: ra}
	o.packs[name] = ph
	return ph, nil
}

// Close releases any open pack handles.
func (o *ODB) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	var firstErr error
	for _, ph := range o.packs {
		if err := ph.ra.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	o.packs = map[string]*packHandle{}
	return firstErr
}

// HasObject reports whether h is present, loose or packed.
func (o *ODB) HasObject(h plumbing.Hash) (bool, error) { return o.store.HasObject(h) }

// Tree is a convenience wrapper resolving h as a *object.Tree.
func (o *ODB) Tree(format plumbing.ObjectFormat, h plumbing.Hash) (*object.Tree, error) {
	obj, err := o.DecodeObject(format, h)
	if err != nil {
		return nil, err
	}
	t, ok := obj.(*object.Tree)
	if !ok {
		return nil, fmt.Errorf("odb: %s is not a tree", h)
	}
	return t, nil
}

// Commit is a convenience wrapper resolving h as a *object.Commit.
func (o *ODB) Commit(format plumbing.ObjectFormat, h plumbing.Hash) (*object.Commit, error) {
	obj, err := o.DecodeObject(format, h)
	if err != nil {
		return nil, err
	}
	c, ok := obj.(*object.Commit)
	if !ok {
		return nil, fmt.Errorf("odb: %s is not a commit", h)
	}
	return c, nil
}

// Blob is a convenience wrapper resolving h as a *object.Blob.
func (o *ODB) Blob(format plumbing.ObjectFormat, h plumbing.Hash) (*object.Blob, error) {
	obj, err := o.DecodeObject(format, h)
	if err != nil {
		return nil, err
	}
	b, ok := obj.(*object.Blob)
	if !ok {
		return nil, fmt.Errorf("odb: %s is not a blob", h)
	}
	return b, nil
}

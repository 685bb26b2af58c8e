// Package memory implements an in-process, non-persistent Storer backend
// backed by Go maps — the "embedded indexed store" alternative to the
// filesystem backend, useful for ephemeral clones and tests.
package memory

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/format/config"
	"github.com/opengit/gitcore/plumbing/format/idxfile"
	"github.com/opengit/gitcore/plumbing/format/index"
	"github.com/opengit/gitcore/storage"
)

// Storage is a fully in-memory Storer.
type Storage struct {
	mu sync.Mutex

	format plumbing.ObjectFormat

	objects map[plumbing.Hash][]byte // deflated loose-style bytes, header included

	refs       map[plumbing.ReferenceName]*plumbing.Reference
	packedRefs map[plumbing.ReferenceName]*plumbing.Reference
	head       *plumbing.Reference
	reflogs    map[plumbing.ReferenceName][]storage.ReflogEntry

	idx *index.Index

	packs    map[string][]byte
	packIdxs map[string][]byte

	state map[string][]byte

	shallow []plumbing.Hash

	cfg *config.Config

	worktrees map[string]storage.WorktreeRecord
	lfs       map[string][]byte

	exportOK bool
	hooks    storage.HookRunner
}

// NewStorage returns an initialized, empty in-memory backend.
func NewStorage() *Storage {
	return &Storage{
		format:     plumbing.FormatSHA1,
		objects:    map[plumbing.Hash][]byte{},
		refs:       map[plumbing.ReferenceName]*plumbing.Reference{},
		packedRefs: map[plumbing.ReferenceName]*plumbing.Reference{},
		reflogs:    map[plumbing.ReferenceName][]storage.ReflogEntry{},
		packs:      map[string][]byte{},
		packIdxs:   map[string][]byte{},
		state:      map[string][]byte{},
		cfg:        config.New(),
		worktrees:  map[string]storage.WorktreeRecord{},
		lfs:        map[string][]byte{},
		hooks:      noopHooks{},
	}
}

func (s *Storage) ObjectFormat() plumbing.ObjectFormat { return s.format }

func (s *Storage) Initialize(bare bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.SetOption("core", "", "repositoryformatversion", "0")
	s.cfg.SetOption("core", "", "bare", fmt.Sprintf("%v", bare))
	s.head = plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("master"))
	return nil
}

// --- refs ---

func (s *Storage) ReadRef(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == plumbing.HEAD {
		if s.head == nil {
			return nil, storage.ErrNotFound
		}
		return s.head, nil
	}
	if r, ok := s.refs[name]; ok {
		return r, nil
	}
	if r, ok := s.packedRefs[name]; ok {
		return r, nil
	}
	return nil, storage.ErrNotFound
}

func (s *Storage) WriteRef(name plumbing.ReferenceName, ref *plumbing.Reference, opts storage.RefUpdateOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !opts.Force {
		current, _ := s.readRefLocked(name)
		if opts.OldValue != nil {
			var curStr string
			if current != nil {
				curStr = refTargetString(current)
			}
			wantStr := refTargetString(opts.OldValue)
			if curStr != wantStr {
				return &storage.RefMismatchError{Name: name, Expected: wantStr, Actual: curStr}
			}
		}
	}

	if name == plumbing.HEAD {
		s.head = ref
	} else {
		s.refs[name] = ref
	}

	if !opts.NoReflog {
		s.reflogs[name] = append(s.reflogs[name], opts.Reflog)
	}
	return nil
}

func (s *Storage) readRefLocked(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	if name == plumbing.HEAD {
		return s.head, nil
	}
	if r, ok := s.refs[name]; ok {
		return r, nil
	}
	if r, ok := s.packedRefs[name]; ok {
		return r, nil
	}
	return nil, storage.ErrNotFound
}

func refTargetString(r *plumbing.Reference) string {
	if r.Type() == plumbing.SymbolicReference {
		return "ref:" + string(r.Target())
	}
	return r.Hash().String()
}

func (s *Storage) DeleteRef(name plumbing.ReferenceName) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refs, name)
	delete(s.packedRefs, name)
	return nil
}

func (s *Storage) ListRefs(prefix plumbing.ReferenceName) ([]*plumbing.Reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[plumbing.ReferenceName]bool{}
	var out []*plumbing.Reference
	add := func(r *plumbing.Reference) {
		if seen[r.Name()] {
			return
		}
		if prefix != "" && !strings.HasPrefix(string(r.Name()), string(prefix)) {
			return
		}
		seen[r.Name()] = true
		out = append(out, r)
	}
	for _, r := range s.refs {
		add(r)
	}
	for _, r := range s.packedRefs {
		add(r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func (s *Storage) ReadHEAD() (*plumbing.Reference, error) { return s.ReadRef(plumbing.HEAD) }
func (s *Storage) WriteHEAD(ref *plumbing.Reference) error {
	return s.WriteRef(plumbing.HEAD, ref, storage.RefUpdateOptions{Force: true, NoReflog: false})
}

func (s *Storage) ReadPackedRefs() ([]*plumbing.Reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*plumbing.Reference
	for _, r := range s.packedRefs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func (s *Storage) WritePackedRefs(refs []*plumbing.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packedRefs = map[plumbing.ReferenceName]*plumbing.Reference{}
	for _, r := range refs {
		s.packedRefs[r.Name()] = r
	}
	return nil
}

// --- reflog ---

func (s *Storage) AppendReflog(name plumbing.ReferenceName, e storage.ReflogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reflogs[name] = append(s.reflogs[name], e)
	return nil
}

func (s *Storage) ReadReflog(name plumbing.ReferenceName) ([]storage.ReflogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storage.ReflogEntry{}, s.reflogs[name]...), nil
}

func (s *Storage) ListReflogs() ([]plumbing.ReferenceName, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []plumbing.ReferenceName
	for name := range s.reflogs {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// --- objects ---

func (s *Storage) ReadLooseObject(h plumbing.Hash) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[h]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *Storage) WriteLooseObject(h plumbing.Hash, deflated []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.objects[h]; ok {
		if !bytes.Equal(existing, deflated) && !sameInflated(existing, deflated) {
			return &storage.ObjectHashMismatchError{Hash: h}
		}
		return nil
	}
	s.objects[h] = deflated
	return nil
}

func sameInflated(a, b []byte) bool {
	ra, errA := zlib.NewReader(bytes.NewReader(a))
	rb, errB := zlib.NewReader(bytes.NewReader(b))
	if errA != nil || errB != nil {
		return false
	}
	defer ra.Close()
	defer rb.Close()
	da, _ := io.ReadAll(ra)
	db, _ := io.ReadAll(rb)
	return bytes.Equal(da, db)
}

func (s *Storage) HasObject(h plumbing.Hash) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[h]
	if ok {
		return true, nil
	}
	for name, raw := range s.packIdxs {
		idx, err := idxfile.Decode(bytes.NewReader(raw), s.format)
		if err != nil {
			continue
		}
		if idx.Contains(h) {
			return true, nil
		}
		_ = name
	}
	return false, nil
}

func (s *Storage) ListLoosePrefix(prefix string) ([]plumbing.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []plumbing.Hash
	for h := range s.objects {
		if strings.HasPrefix(h.String(), prefix) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *Storage) ListPackfiles() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for name := range s.packs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

type memReaderAt struct{ b []byte }

func (m *memReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.b)) {
		return 0, io.EOF
	}
	n := copy(p, m.b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
func (m *memReaderAt) Close() error          { return nil }
func (m *memReaderAt) Size() (int64, error) { return int64(len(m.b)), nil }

func (s *Storage) ReadPack(name string) (storage.ReaderAtCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.packs[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &memReaderAt{b: b}, nil
}

func (s *Storage) ReadPackIndex(name string) (*idxfile.Index, error) {
	s.mu.Lock()
	raw, ok := s.packIdxs[name]
	s.mu.Unlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	return idxfile.Decode(bytes.NewReader(raw), s.format)
}

func (s *Storage) WritePack(name string, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packs[name] = b
	return nil
}

func (s *Storage) WritePackIndex(name string, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packIdxs[name] = b
	return nil
}

func (s *Storage) DeletePack(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.packs, name)
	delete(s.packIdxs, name+".idx")
	return nil
}

// --- index ---

func (s *Storage) ReadIndex() (*index.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx == nil {
		return index.NewIndex(), nil
	}
	return s.idx, nil
}

func (s *Storage) WriteIndex(idx *index.Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idx = idx
	return nil
}

func (s *Storage) HasIndex() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx != nil
}

// --- state files ---

func (s *Storage) ReadStateFile(name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.state[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return b, nil
}

func (s *Storage) WriteStateFile(name string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[name] = content
	return nil
}

func (s *Storage) DeleteStateFile(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state, name)
	return nil
}

func (s *Storage) ListStateFiles() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for name := range s.state {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// --- shallow ---

func (s *Storage) ReadShallow() ([]plumbing.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]plumbing.Hash{}, s.shallow...), nil
}

func (s *Storage) WriteShallow(commits []plumbing.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shallow = commits
	return nil
}

// --- config ---

func (s *Storage) ReadConfig() (*config.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg, nil
}

func (s *Storage) WriteConfig(cfg *config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return nil
}

// --- worktrees ---

func (s *Storage) ListWorktrees() ([]storage.WorktreeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.WorktreeRecord
	for _, w := range s.worktrees {
		out = append(out, w)
	}
	return out, nil
}

func (s *Storage) AddWorktree(rec storage.WorktreeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.worktrees[rec.Name]; ok {
		return fmt.Errorf("worktree %s already exists", rec.Name)
	}
	s.worktrees[rec.Name] = rec
	return nil
}

func (s *Storage) RemoveWorktree(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.worktrees, name)
	return nil
}

// --- LFS ---

func (s *Storage) HasLFSObject(oid string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.lfs[oid]
	return ok, nil
}

func (s *Storage) ReadLFSObject(oid string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.lfs[oid]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *Storage) WriteLFSObject(oid string, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lfs[oid] = b
	return nil
}

// --- misc ---

func (s *Storage) Hooks() storage.HookRunner { return s.hooks }

func (s *Storage) IsExportOK() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportOK, nil
}

func (s *Storage) SetExportOK(v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exportOK = v
	return nil
}

type noopHooks struct{}

func (noopHooks) RunHook(name string, args []string, stdin io.Reader) ([]byte, error) {
	return nil, fmt.Errorf("memory storage: hook %q not configured", name)
}
func (noopHooks) HasHook(string) bool { return false }

var _ storage.Storer = (*Storage)(nil)

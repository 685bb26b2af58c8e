// Package filesystem implements storage.Storer directly on disk, laid
// out the way the native git tool expects: loose objects under
// objects/xx/yyyy…, packs under objects/pack, refs as files under refs/
// or folded into packed-refs, reflogs under logs/, and the usual
// top-level state files (HEAD, config, index, MERGE_HEAD, shallow, ...).
package filesystem

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/format/config"
	"github.com/opengit/gitcore/plumbing/format/idxfile"
	"github.com/opengit/gitcore/plumbing/format/index"
	"github.com/opengit/gitcore/storage"
	"github.com/opengit/gitcore/storage/filesystem/dotgit"
)

// Storage is a disk-backed storage.Storer rooted at a single git
// directory (bare, or the .git of a working copy).
type Storage struct {
	mu     sync.Mutex
	dg     *dotgit.DotGit
	format plumbing.ObjectFormat
}

var _ storage.Storer = (*Storage)(nil)

// NewStorage roots a Storage at fs, which must already point at the git
// directory itself (not the working tree).
func NewStorage(fs billy.Filesystem, format plumbing.ObjectFormat) *Storage {
	return &Storage{dg: dotgit.New(fs), format: format}
}

func (s *Storage) ObjectFormat() plumbing.ObjectFormat { return s.format }

func (s *Storage) Initialize(bare bool) error { return s.dg.Initialize(bare) }

// --- refs ---

func (s *Storage) ReadRef(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readRefLocked(name)
}

func (s *Storage) readRefLocked(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	path := dotgit.RefPath(string(name))
	if s.dg.Exists(path) {
		line, err := s.dg.ReadRefFile(path)
		if err != nil {
			return nil, err
		}
		return parseRefLine(name, line)
	}

	packed, err := s.readPackedRefsLocked()
	if err != nil {
		return nil, err
	}
	for _, r := range packed {
		if r.Name() == name {
			return r, nil
		}
	}
	return nil, storage.ErrNotFound
}

// refFileContent is what a loose ref or HEAD file holds on disk: either
// a bare hex oid or a "ref: <target>" symref pointer, without the name
// plumbing.Reference.String() prefixes for display.
func refFileContent(ref *plumbing.Reference) string {
	if ref.Type() == plumbing.SymbolicReference {
		return "ref: " + string(ref.Target())
	}
	return ref.Hash().String()
}

func parseRefLine(name plumbing.ReferenceName, line string) (*plumbing.Reference, error) {
	if strings.HasPrefix(line, "ref: ") {
		return plumbing.NewSymbolicReference(name, plumbing.ReferenceName(strings.TrimSpace(line[5:]))), nil
	}
	h, ok := plumbing.FromHex(strings.TrimSpace(line))
	if !ok {
		return nil, fmt.Errorf("filesystem: malformed ref %s: %q", name, line)
	}
	return plumbing.NewHashReference(name, h), nil
}

func (s *Storage) WriteRef(name plumbing.ReferenceName, ref *plumbing.Reference, opts storage.RefUpdateOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !opts.Force {
		current, err := s.readRefLocked(name)
		if err != nil && err != storage.ErrNotFound {
			return err
		}
		if opts.OldValue != nil {
			var currentStr string
			if current != nil {
				currentStr = current.String()
			}
			if currentStr != opts.OldValue.String() {
				return &storage.RefMismatchError{Name: name, Expected: opts.OldValue.String(), Actual: currentStr}
			}
		}
	}

	path := dotgit.RefPath(string(name))
	if err := s.dg.WriteRefFile(path, refFileContent(ref)); err != nil {
		return err
	}

	if !opts.NoReflog {
		line := formatReflogLine(opts.Reflog)
		if line != "" {
			if err := s.dg.AppendReflogLine(string(name), line); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatReflogLine(e storage.ReflogEntry) string {
	if e.CommitterName == "" && e.Old.IsZero() && e.New.IsZero() {
		return ""
	}
	sign := "+"
	off := e.TZOffsetSeconds
	if off < 0 {
		sign = "-"
		off = -off
	}
	tz := fmt.Sprintf("%s%02d%02d", sign, off/3600, (off%3600)/60)
	msg := strings.ReplaceAll(e.Message, "\n", " ")
	return fmt.Sprintf("%s %s %s <%s> %d %s\t%s", e.Old, e.New, e.CommitterName, e.CommitterEmail, e.When, tz, msg)
}

func (s *Storage) DeleteRef(name plumbing.ReferenceName) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := dotgit.RefPath(string(name))
	if s.dg.Exists(path) {
		if err := s.dg.Remove(path); err != nil {
			return err
		}
	}

	packed, err := s.readPackedRefsLocked()
	if err != nil {
		return err
	}
	var kept []*plumbing.Reference
	for _, r := range packed {
		if r.Name() != name {
			kept = append(kept, r)
		}
	}
	if len(kept) != len(packed) {
		return s.writePackedRefsLocked(kept)
	}
	return nil
}

func (s *Storage) ListRefs(prefix plumbing.ReferenceName) ([]*plumbing.Reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := map[plumbing.ReferenceName]bool{}
	var out []*plumbing.Reference

	loose, err := s.dg.WalkRefs()
	if err != nil {
		return nil, err
	}
	for _, path := range loose {
		name := plumbing.ReferenceName(path)
		if prefix != "" && !strings.HasPrefix(string(name), string(prefix)) {
			continue
		}
		line, err := s.dg.ReadRefFile(path)
		if err != nil {
			continue
		}
		ref, err := parseRefLine(name, line)
		if err != nil {
			continue
		}
		seen[name] = true
		out = append(out, ref)
	}

	packed, err := s.readPackedRefsLocked()
	if err != nil {
		return nil, err
	}
	for _, r := range packed {
		if seen[r.Name()] {
			continue
		}
		if prefix != "" && !strings.HasPrefix(string(r.Name()), string(prefix)) {
			continue
		}
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func (s *Storage) ReadHEAD() (*plumbing.Reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readRefLocked(plumbing.HEAD)
}

func (s *Storage) WriteHEAD(ref *plumbing.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dg.WriteRefFile("HEAD", refFileContent(ref))
}

func (s *Storage) ReadPackedRefs() ([]*plumbing.Reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readPackedRefsLocked()
}

func (s *Storage) readPackedRefsLocked() ([]*plumbing.Reference, error) {
	if !s.dg.Exists("packed-refs") {
		return nil, nil
	}
	raw, err := s.dg.ReadFile("packed-refs")
	if err != nil {
		return nil, err
	}
	var out []*plumbing.Reference
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "^") {
			continue // peeled tag target, not a ref of its own
		}
		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			continue
		}
		h, ok := plumbing.FromHex(parts[0])
		if !ok {
			continue
		}
		out = append(out, plumbing.NewHashReference(plumbing.ReferenceName(parts[1]), h))
	}
	return out, nil
}

func (s *Storage) WritePackedRefs(refs []*plumbing.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writePackedRefsLocked(refs)
}

func (s *Storage) writePackedRefsLocked(refs []*plumbing.Reference) error {
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name() < refs[j].Name() })
	var buf bytes.Buffer
	buf.WriteString("# pack-refs with: peeled fully-peeled sorted\n")
	for _, r := range refs {
		if r.Type() != plumbing.HashReference {
			continue
		}
		fmt.Fprintf(&buf, "%s %s\n", r.Hash(), r.Name())
	}
	return s.dg.WriteFileAtomic("packed-refs", buf.Bytes())
}

// --- reflogs ---

func (s *Storage) AppendReflog(name plumbing.ReferenceName, e storage.ReflogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dg.AppendReflogLine(string(name), formatReflogLine(e))
}

func (s *Storage) ReadReflog(name plumbing.ReferenceName) ([]storage.ReflogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines, err := s.dg.ReadReflog(string(name))
	if err != nil {
		return nil, err
	}
	out := make([]storage.ReflogEntry, 0, len(lines))
	for _, line := range lines {
		e, err := parseReflogLine(line)
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func parseReflogLine(line string) (storage.ReflogEntry, error) {
	var e storage.ReflogEntry
	tabParts := strings.SplitN(line, "\t", 2)
	if len(tabParts) == 2 {
		e.Message = tabParts[1]
	}
	fields := strings.Fields(tabParts[0])
	if len(fields) < 6 {
		return e, fmt.Errorf("filesystem: malformed reflog line %q", line)
	}
	old, ok1 := plumbing.FromHex(fields[0])
	new_, ok2 := plumbing.FromHex(fields[1])
	if !ok1 || !ok2 {
		return e, fmt.Errorf("filesystem: malformed reflog oids %q", line)
	}
	e.Old, e.New = old, new_

	// name <email> ts tz, with name possibly spanning multiple fields.
	emailIdx := -1
	for i, f := range fields {
		if strings.HasPrefix(f, "<") {
			emailIdx = i
			break
		}
	}
	if emailIdx < 2 || emailIdx+2 >= len(fields) {
		return e, fmt.Errorf("filesystem: malformed reflog identity %q", line)
	}
	e.CommitterName = strings.Join(fields[2:emailIdx], " ")
	e.CommitterEmail = strings.Trim(fields[emailIdx], "<>")
	ts, err := strconv.ParseInt(fields[emailIdx+1], 10, 64)
	if err != nil {
		return e, err
	}
	e.When = ts

	tz := fields[emailIdx+2]
	if len(tz) == 5 {
		sign := int64(1)
		if tz[0] == '-' {
			sign = -1
		}
		h, _ := strconv.Atoi(tz[1:3])
		m, _ := strconv.Atoi(tz[3:5])
		e.TZOffsetSeconds = int(sign) * (h*3600 + m*60)
	}
	return e, nil
}

func (s *Storage) ListReflogs() ([]plumbing.ReferenceName, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths, err := s.dg.ListReflogs()
	if err != nil {
		return nil, err
	}
	out := make([]plumbing.ReferenceName, len(paths))
	for i, p := range paths {
		out[i] = plumbing.ReferenceName(p)
	}
	return out, nil
}

// --- objects ---

func (s *Storage) ReadLooseObject(h plumbing.Hash) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.dg.OpenLooseObject(h.String())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *Storage) WriteLooseObject(h plumbing.Hash, deflated []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dg.WriteLooseObject(h.String(), deflated)
}

func (s *Storage) HasObject(h plumbing.Hash) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dg.HasLooseObject(h.String()) {
		return true, nil
	}
	names, err := s.dg.ListPackfiles()
	if err != nil {
		return false, err
	}
	for _, name := range names {
		idx, err := s.readPackIndexLocked(name)
		if err != nil {
			continue
		}
		if idx.Contains(h) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Storage) ListLoosePrefix(prefix string) ([]plumbing.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(prefix) < 2 {
		var out []plumbing.Hash
		prefixes, err := s.dg.ListLooseObjectPrefixes()
		if err != nil {
			return nil, err
		}
		for _, p := range prefixes {
			if !strings.HasPrefix(p, prefix) {
				continue
			}
			names, err := s.dg.ListLooseObjectsInPrefix(p)
			if err != nil {
				return nil, err
			}
			for _, n := range names {
				if h, ok := plumbing.FromHex(n); ok {
					out = append(out, h)
				}
			}
		}
		return out, nil
	}
	names, err := s.dg.ListLooseObjectsInPrefix(prefix[:2])
	if err != nil {
		return nil, err
	}
	var out []plumbing.Hash
	for _, n := range names {
		if strings.HasPrefix(n, prefix) {
			if h, ok := plumbing.FromHex(n); ok {
				out = append(out, h)
			}
		}
	}
	return out, nil
}

func (s *Storage) ListPackfiles() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dg.ListPackfiles()
}

// fsReaderAt adapts a billy.File (already io.ReaderAt) with a Size method
// backed by Stat, satisfying storage.ReaderAtCloser.
type fsReaderAt struct {
	billy.File
	size int64
}

func (f *fsReaderAt) Size() (int64, error) { return f.size, nil }

func (s *Storage) ReadPack(name string) (storage.ReaderAtCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.dg.Root().Open(s.dg.PackPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	fi, err := s.dg.Root().Stat(s.dg.PackPath(name))
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fsReaderAt{File: f, size: fi.Size()}, nil
}

func (s *Storage) ReadPackIndex(name string) (*idxfile.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readPackIndexLocked(name)
}

func (s *Storage) readPackIndexLocked(name string) (*idxfile.Index, error) {
	raw, err := s.dg.ReadFile(s.dg.PackIndexPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return idxfile.Decode(bytes.NewReader(raw), s.format)
}

func (s *Storage) WritePack(name string, r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dg.WriteFileStreamAtomic(s.dg.PackPath(name), r)
}

func (s *Storage) WritePackIndex(name string, r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dg.WriteFileStreamAtomic(s.dg.PackIndexPath(name), r)
}

func (s *Storage) DeletePack(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.dg.Remove(s.dg.PackPath(name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := s.dg.Remove(s.dg.PackIndexPath(name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// --- index (dircache) ---

func (s *Storage) ReadIndex() (*index.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dg.Exists("index") {
		return index.NewIndex(), nil
	}
	raw, err := s.dg.ReadFile("index")
	if err != nil {
		return nil, err
	}
	return index.Decode(bytes.NewReader(raw))
}

func (s *Storage) WriteIndex(idx *index.Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var buf bytes.Buffer
	if err := index.Encode(&buf, idx); err != nil {
		return err
	}
	return s.dg.WriteFileAtomic("index", buf.Bytes())
}

func (s *Storage) HasIndex() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dg.Exists("index")
}

// --- state files ---

var stateFiles = []string{"MERGE_HEAD", "ORIG_HEAD", "CHERRY_PICK_HEAD", "REVERT_HEAD", "BISECT_HEAD", "FETCH_HEAD", "MERGE_MSG", "COMMIT_EDITMSG", "SQUASH_MSG"}

func (s *Storage) ReadStateFile(name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.dg.ReadFile(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *Storage) WriteStateFile(name string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dg.WriteFileAtomic(name, content)
}

func (s *Storage) DeleteStateFile(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.dg.Remove(name); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Storage) ListStateFiles() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, name := range stateFiles {
		if s.dg.Exists(name) {
			out = append(out, name)
		}
	}
	return out, nil
}

// --- shallow ---

func (s *Storage) ReadShallow() ([]plumbing.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dg.Exists("shallow") {
		return nil, nil
	}
	raw, err := s.dg.ReadFile("shallow")
	if err != nil {
		return nil, err
	}
	var out []plumbing.Hash
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if h, ok := plumbing.FromHex(line); ok {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *Storage) WriteShallow(commits []plumbing.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(commits) == 0 {
		s.dg.Remove("shallow")
		return nil
	}
	var buf bytes.Buffer
	for _, h := range commits {
		fmt.Fprintln(&buf, h.String())
	}
	return s.dg.WriteFileAtomic("shallow", buf.Bytes())
}

// --- worktrees ---

func (s *Storage) ListWorktrees() ([]storage.WorktreeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.dg.Root().ReadDir("worktrees")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []storage.WorktreeRecord
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		rec := storage.WorktreeRecord{Name: e.Name()}
		if b, err := s.dg.ReadFile("worktrees/" + e.Name() + "/gitdir"); err == nil {
			rec.Path = strings.TrimSpace(string(b))
		}
		if b, err := s.dg.ReadFile("worktrees/" + e.Name() + "/HEAD"); err == nil {
			if h, ok := plumbing.FromHex(strings.TrimSpace(string(b))); ok {
				rec.Head = h
			}
		}
		if s.dg.Exists("worktrees/" + e.Name() + "/locked") {
			rec.Locked = true
			if b, err := s.dg.ReadFile("worktrees/" + e.Name() + "/locked"); err == nil {
				rec.Reason = strings.TrimSpace(string(b))
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Storage) AddWorktree(rec storage.WorktreeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := "worktrees/" + rec.Name
	if err := s.dg.WriteFileAtomic(base+"/gitdir", []byte(rec.Path+"\n")); err != nil {
		return err
	}
	if err := s.dg.WriteFileAtomic(base+"/HEAD", []byte(rec.Head.String()+"\n")); err != nil {
		return err
	}
	if rec.Locked {
		return s.dg.WriteFileAtomic(base+"/locked", []byte(rec.Reason))
	}
	return nil
}

func (s *Storage) RemoveWorktree(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return billyRemoveAll(s.dg.Root(), "worktrees/"+name)
}

func billyRemoveAll(fs billy.Filesystem, path string) error {
	entries, err := fs.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		p := path + "/" + e.Name()
		if e.IsDir() {
			if err := billyRemoveAll(fs, p); err != nil {
				return err
			}
			continue
		}
		if err := fs.Remove(p); err != nil {
			return err
		}
	}
	return fs.Remove(path)
}

// --- LFS ---

func lfsPath(oid string) string {
	if len(oid) < 4 {
		return "lfs/objects/" + oid
	}
	return "lfs/objects/" + oid[:2] + "/" + oid[2:4] + "/" + oid
}

func (s *Storage) HasLFSObject(oid string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dg.Exists(lfsPath(oid)), nil
}

func (s *Storage) ReadLFSObject(oid string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.dg.Root().Open(lfsPath(oid))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *Storage) WriteLFSObject(oid string, r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dg.WriteFileStreamAtomic(lfsPath(oid), r)
}

// --- config ---

func (s *Storage) ReadConfig() (*config.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := config.New()
	if !s.dg.Exists("config") {
		return cfg, nil
	}
	raw, err := s.dg.ReadFile("config")
	if err != nil {
		return nil, err
	}
	if err := config.NewDecoder(bytes.NewReader(raw)).Decode(cfg); err != nil {
		return nil, fmt.Errorf("filesystem: parsing config: %w", err)
	}
	return cfg, nil
}

func (s *Storage) WriteConfig(cfg *config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var buf bytes.Buffer
	if err := config.NewEncoder(&buf).Encode(cfg); err != nil {
		return err
	}
	return s.dg.WriteFileAtomic("config", buf.Bytes())
}

func (s *Storage) IsExportOK() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dg.Exists("git-daemon-export-ok"), nil
}

func (s *Storage) SetExportOK(ok bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		return s.dg.WriteFileAtomic("git-daemon-export-ok", nil)
	}
	return s.dg.Remove("git-daemon-export-ok")
}

// --- hooks ---

func (s *Storage) Hooks() storage.HookRunner { return &execHooks{dg: s.dg} }

// execHooks spawns each hook as a child process reading the repository's
// hooks/<name> script, the layout native git and its server-side hosts
// rely on for pre-receive/update/post-receive/post-update wiring.
type execHooks struct{ dg *dotgit.DotGit }

func (h *execHooks) HasHook(name string) bool { return h.dg.Exists("hooks/" + name) }

func (h *execHooks) RunHook(name string, args []string, stdin io.Reader) ([]byte, error) {
	root, ok := h.dg.Root().(interface{ Root() string })
	if !ok {
		return nil, fmt.Errorf("filesystem: hooks require an on-disk filesystem")
	}
	path := root.Root() + "/hooks/" + name
	cmd := exec.Command(path, args...)
	cmd.Dir = root.Root()
	cmd.Stdin = stdin
	return cmd.Output()
}

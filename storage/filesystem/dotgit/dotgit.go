// Package dotgit knows the physical layout of a .git directory: where
// refs, objects, packs, the index and state files live, and how to
// touch them atomically. storage/filesystem builds the Storer contract
// on top of this.
package dotgit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// DotGit wraps a billy.Filesystem rooted at a repository's git
// directory, providing path-aware helpers for every file spec.md's
// external-interfaces section names.
type DotGit struct {
	fs billy.Filesystem
}

// New returns a DotGit rooted at fs.
func New(fs billy.Filesystem) *DotGit { return &DotGit{fs: fs} }

func (d *DotGit) Root() billy.Filesystem { return d.fs }

// Initialize lays out an empty repository's directory skeleton.
func (d *DotGit) Initialize(bare bool) error {
	for _, dir := range []string{
		"objects", "objects/pack", "objects/info",
		"refs", "refs/heads", "refs/tags", "refs/remotes",
		"hooks", "info",
	} {
		if err := d.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := util.WriteFile(d.fs, "info/exclude", []byte("# git ls-files --others --exclude-from=.git/info/exclude\n"), 0o644); err != nil {
		return err
	}
	return nil
}

// --- loose objects: objects/ab/cdef... ---

func looseObjectPath(hex string) string {
	return filepath.ToSlash(filepath.Join("objects", hex[:2], hex[2:]))
}

func (d *DotGit) LooseObjectPath(hex string) string { return looseObjectPath(hex) }

func (d *DotGit) HasLooseObject(hex string) bool {
	_, err := d.fs.Stat(looseObjectPath(hex))
	return err == nil
}

func (d *DotGit) OpenLooseObject(hex string) (billy.File, error) {
	return d.fs.Open(looseObjectPath(hex))
}

// WriteLooseObject stores content at its OID path, writing to a temp
// file and renaming into place so a crash never leaves a partial object.
func (d *DotGit) WriteLooseObject(hex string, content []byte) error {
	path := looseObjectPath(hex)
	if _, err := d.fs.Stat(path); err == nil {
		return nil // idempotent: identical OID already present
	}
	dir := filepath.ToSlash(filepath.Dir(path))
	if err := d.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := util.TempFile(d.fs, dir, "tmp_obj_")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		d.fs.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return d.fs.Rename(tmp.Name(), path)
}

func (d *DotGit) ListLooseObjectPrefixes() ([]string, error) {
	entries, err := d.fs.ReadDir("objects")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && len(e.Name()) == 2 && e.Name() != "pack" && e.Name() != "info" {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func (d *DotGit) ListLooseObjectsInPrefix(prefix string) ([]string, error) {
	entries, err := d.fs.ReadDir(filepath.ToSlash(filepath.Join("objects", prefix)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			out = append(out, prefix+e.Name())
		}
	}
	return out, nil
}

// --- packs: objects/pack/pack-<sha>.{pack,idx} ---

func (d *DotGit) PackPath(name string) string {
	return filepath.ToSlash(filepath.Join("objects", "pack", name+".pack"))
}
func (d *DotGit) PackIndexPath(name string) string {
	return filepath.ToSlash(filepath.Join("objects", "pack", name+".idx"))
}

func (d *DotGit) ListPackfiles() ([]string, error) {
	entries, err := d.fs.ReadDir(filepath.ToSlash(filepath.Join("objects", "pack")))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".pack") {
			out = append(out, strings.TrimSuffix(e.Name(), ".pack"))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (d *DotGit) WriteFileAtomic(path string, content []byte) error {
	dir := filepath.ToSlash(filepath.Dir(path))
	if dir != "." {
		if err := d.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := util.TempFile(d.fs, dir, "tmp_")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		d.fs.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return d.fs.Rename(tmp.Name(), path)
}

func (d *DotGit) WriteFileStreamAtomic(path string, r io.Reader) error {
	dir := filepath.ToSlash(filepath.Dir(path))
	if dir != "." {
		if err := d.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := util.TempFile(d.fs, dir, "tmp_")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		d.fs.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return d.fs.Rename(tmp.Name(), path)
}

func (d *DotGit) Remove(path string) error { return d.fs.Remove(path) }

func (d *DotGit) ReadFile(path string) ([]byte, error) {
	f, err := d.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (d *DotGit) Exists(path string) bool {
	_, err := d.fs.Stat(path)
	return err == nil
}

// --- refs ---

func RefPath(name string) string { return filepath.ToSlash(name) }

func (d *DotGit) ReadRefFile(path string) (string, error) {
	b, err := d.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\n"), nil
}

func (d *DotGit) WriteRefFile(path, content string) error {
	return d.WriteFileAtomic(path, []byte(content+"\n"))
}

// WalkRefs lists every loose ref file under refs/, returning paths
// relative to the git dir (e.g. "refs/heads/main").
func (d *DotGit) WalkRefs() ([]string, error) {
	var out []string
	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := d.fs.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		for _, e := range entries {
			p := filepath.ToSlash(filepath.Join(dir, e.Name()))
			if e.IsDir() {
				if err := walk(p); err != nil {
					return err
				}
				continue
			}
			out = append(out, p)
		}
		return nil
	}
	if err := walk("refs"); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// --- reflogs ---

func ReflogPath(refName string) string {
	return filepath.ToSlash(filepath.Join("logs", refName))
}

func (d *DotGit) AppendReflogLine(refName, line string) error {
	path := ReflogPath(refName)
	dir := filepath.ToSlash(filepath.Dir(path))
	if err := d.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := d.fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, line)
	return err
}

func (d *DotGit) ReadReflog(refName string) ([]string, error) {
	b, err := d.ReadFile(ReflogPath(refName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	return lines, nil
}

func (d *DotGit) ListReflogs() ([]string, error) {
	var out []string
	var walk func(dir, rel string) error
	walk = func(dir, rel string) error {
		entries, err := d.fs.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		for _, e := range entries {
			p := filepath.ToSlash(filepath.Join(rel, e.Name()))
			if e.IsDir() {
				if err := walk(filepath.Join(dir, e.Name()), p); err != nil {
					return err
				}
				continue
			}
			out = append(out, p)
		}
		return nil
	}
	if err := walk("logs", ""); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

package worktree

import (
	"bytes"
	"strings"

	"github.com/opengit/gitcore/storage"
)

// AutoCRLFMode mirrors core.autocrlf: how line endings are translated
// between the repository (always LF) and the worktree.
type AutoCRLFMode int8

const (
	AutoCRLFFalse AutoCRLFMode = iota
	AutoCRLFTrue
	AutoCRLFInput
)

// FilterSet holds the checkout-time (smudge) and add-time (clean)
// content filters a worktree applies: autocrlf translation and LFS
// pointer smudging.
type FilterSet struct {
	AutoCRLF AutoCRLFMode
	LFS      storage.LFSStorer
	// LFSPatterns lists the gitattributes patterns ("*.bin") tracked by
	// LFS; a plain suffix/prefix/exact match is enough for the cases
	// this module's checkout needs to support.
	LFSPatterns []string
}

// Smudge transforms blob content on its way from the object database into
// the worktree: LFS pointer resolution, then autocrlf LF->CRLF.
func (f *FilterSet) Smudge(path string, content []byte) []byte {
	if f == nil {
		return content
	}
	if f.isLFSTracked(path) {
		if oid, ok := parseLFSPointer(content); ok && f.LFS != nil {
			if has, _ := f.LFS.HasLFSObject(oid); has {
				if rc, err := f.LFS.ReadLFSObject(oid); err == nil {
					defer rc.Close()
					var buf bytes.Buffer
					if _, err := buf.ReadFrom(rc); err == nil {
						content = buf.Bytes()
					}
				}
			}
		}
	}
	if f.AutoCRLF == AutoCRLFTrue && !looksBinary(content) {
		content = lfToCRLF(content)
	}
	return content
}

// Clean transforms worktree content on its way into the index/object
// database: autocrlf CRLF->LF (the inverse of Smudge).
func (f *FilterSet) Clean(path string, content []byte) []byte {
	if f == nil {
		return content
	}
	if (f.AutoCRLF == AutoCRLFTrue || f.AutoCRLF == AutoCRLFInput) && !looksBinary(content) {
		content = crlfToLF(content)
	}
	return content
}

func (f *FilterSet) isLFSTracked(path string) bool {
	for _, pat := range f.LFSPatterns {
		if matchSimpleGlob(pat, path) {
			return true
		}
	}
	return false
}

// matchSimpleGlob supports the "*.ext" and exact-path forms gitattributes
// LFS entries typically use, without pulling in a full gitignore-style
// matcher for this narrow case.
func matchSimpleGlob(pattern, path string) bool {
	if pattern == path {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(path, pattern[1:])
	}
	return false
}

const lfsPointerPrefix = "version https://git-lfs.github.com/spec/v1"

// parseLFSPointer recognizes a Git LFS text pointer and extracts its oid.
func parseLFSPointer(content []byte) (string, bool) {
	if !bytes.HasPrefix(content, []byte(lfsPointerPrefix)) {
		return "", false
	}
	for _, line := range strings.Split(string(content), "\n") {
		if oid, ok := strings.CutPrefix(line, "oid sha256:"); ok {
			return strings.TrimSpace(oid), true
		}
	}
	return "", false
}

func looksBinary(b []byte) bool {
	n := len(b)
	if n > 8000 {
		n = 8000
	}
	return bytes.IndexByte(b[:n], 0) >= 0
}

func lfToCRLF(b []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(b) + len(b)/20)
	for i := 0; i < len(b); i++ {
		if b[i] == '\n' && (i == 0 || b[i-1] != '\r') {
			out.WriteByte('\r')
		}
		out.WriteByte(b[i])
	}
	return out.Bytes()
}

func crlfToLF(b []byte) []byte {
	return bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
}

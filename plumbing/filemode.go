package plumbing

import (
	"fmt"
	"os"
	"strconv"
)

// FileMode is a Git tree entry mode. Git only recognizes a small, fixed
// set of values; arbitrary POSIX permission bits are not preserved.
type FileMode uint32

const (
	FileModeEmpty      FileMode = 0
	FileModeDir        FileMode = 0o40000
	FileModeRegular     FileMode = 0o100644
	FileModeExecutable  FileMode = 0o100755
	FileModeSymlink     FileMode = 0o120000
	FileModeSubmodule   FileMode = 0o160000
)

// String renders the mode as six zero-padded octal digits ("040000" for
// a directory). Tree objects store the unpadded form ("40000") instead.
func (m FileMode) String() string {
	return fmt.Sprintf("%06o", uint32(m))
}

// ParseFileMode parses the octal text form of a mode.
func ParseFileMode(s string) (FileMode, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid file mode %q: %w", s, err)
	}
	return FileMode(v), nil
}

// IsMalformed reports whether the mode is not one of the modes Git
// recognizes.
func (m FileMode) IsMalformed() bool {
	switch m {
	case FileModeDir, FileModeRegular, FileModeExecutable, FileModeSymlink, FileModeSubmodule:
		return false
	default:
		return true
	}
}

func (m FileMode) IsDir() bool       { return m == FileModeDir }
func (m FileMode) IsRegular() bool   { return m == FileModeRegular || m == FileModeExecutable }
func (m FileMode) IsSymlink() bool   { return m == FileModeSymlink }
func (m FileMode) IsSubmodule() bool { return m == FileModeSubmodule }

// NewFileMode derives a Git file mode from a standard library FileMode,
// honoring core.filemode/core.symlinks the way the caller requests via
// honorExecBit/honorSymlinks.
func NewFileMode(fi os.FileMode, honorExecBit, honorSymlinks bool) FileMode {
	switch {
	case fi&os.ModeSymlink != 0 && honorSymlinks:
		return FileModeSymlink
	case fi.IsDir():
		return FileModeDir
	case honorExecBit && fi&0o111 != 0:
		return FileModeExecutable
	default:
		return FileModeRegular
	}
}

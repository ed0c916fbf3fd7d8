package fileset

import (
	"io/fs"
	"os"
)

// FS is the set of filesystem queries the tracker depends on.
// Nothing here writes to the filesystem.
type FS interface {
	// Stat follows symlinks; it is the existence check.
	Stat(name string) (fs.FileInfo, error)
	// Lstat never follows symlinks; it is used to classify walked entries.
	Lstat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
}

// OSFS implements FS on the host filesystem.
type OSFS struct{}

func (OSFS) Stat(name string) (fs.FileInfo, error)      { return os.Stat(name) }
func (OSFS) Lstat(name string) (fs.FileInfo, error)     { return os.Lstat(name) }
func (OSFS) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }

// Exists reports whether path can be stat'ed. Any stat failure counts as
// absence; the error is returned so callers can attach it as the cause.
func Exists(fsys FS, path string) (bool, error) {
	if fsys == nil {
		fsys = OSFS{}
	}
	if _, err := fsys.Stat(path); err != nil {
		return false, err
	}
	return true, nil
}

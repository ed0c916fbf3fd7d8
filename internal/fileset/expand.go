package fileset

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
)

// AddFunc receives each regular file found by ExpandDir.
type AddFunc func(path string) error

// ExpandDir walks root recursively and calls add for every regular file found
// at any depth.
//
// Entries are classified with Lstat, so a symlink is never followed: a link to
// a directory is not descended into, and a link to a file (or a broken link)
// is skipped along with sockets, devices and pipes.
//
// The caller is responsible for checking that root exists. Once the walk has
// started, an entry that disappears before it can be inspected, and any error
// returned by add, aborts the walk. Nothing is rolled back: files already
// passed to add stay added.
func ExpandDir(fsys FS, root string, add AddFunc) error {
	if fsys == nil {
		fsys = OSFS{}
	}
	if add == nil {
		return errors.New("fileset: nil AddFunc")
	}
	return expand(fsys, filepath.Clean(root), add)
}

func expand(fsys FS, dir string, add AddFunc) error {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound("expand directory", dir, err)
		}
		return fmt.Errorf("list %q: %w", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		info, err := fsys.Lstat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return notFound("expand directory", path, err)
			}
			return fmt.Errorf("lstat %q: %w", path, err)
		}

		mode := info.Mode()
		switch {
		case mode.IsDir():
			if err := expand(fsys, path, add); err != nil {
				return err
			}
		case mode.IsRegular():
			if err := add(path); err != nil {
				return err
			}
		default:
			// symlinks and special files
		}
	}
	return nil
}

package fileset

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(filepath.Base(path)), 0o644))
}

func collect(t *testing.T, fsys FS, root string) ([]string, error) {
	t.Helper()
	set := NewSet()
	err := ExpandDir(fsys, root, func(p string) error {
		set.Add(p)
		return nil
	})
	return set.Paths(), err
}

func TestExpandDir_NestedRegularFilesOnly(t *testing.T) {
	root := t.TempDir()
	want := []string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "sub", "b.txt"),
		filepath.Join(root, "sub", "deeper", "c.txt"),
		filepath.Join(root, "sub", "deeper", "deepest", "d.txt"),
	}
	for _, p := range want {
		writeFile(t, p)
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty", "dir"), 0o755))

	got, err := collect(t, OSFS{}, root)
	require.NoError(t, err)
	assert.ElementsMatch(t, want, got)
}

func TestExpandDir_SkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "target.txt")
	writeFile(t, target)
	writeFile(t, filepath.Join(outside, "linked-dir", "inner.txt"))
	regular := filepath.Join(root, "regular.txt")
	writeFile(t, regular)

	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "broken")))
	require.NoError(t, os.Symlink(target, filepath.Join(root, "file-link")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "linked-dir"), filepath.Join(root, "dir-link")))

	got, err := collect(t, OSFS{}, root)
	require.NoError(t, err)
	assert.Equal(t, []string{regular}, got)
}

func TestExpandDir_EmptyDirectory(t *testing.T) {
	got, err := collect(t, OSFS{}, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExpandDir_AddErrorAbortsWalk(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"))
	writeFile(t, filepath.Join(root, "b.txt"))

	boom := errors.New("boom")
	calls := 0
	err := ExpandDir(OSFS{}, root, func(string) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

// vanishingFS reports one path as missing on Lstat, as if it were deleted
// between listing its parent and inspecting it.
type vanishingFS struct {
	OSFS
	gone string
}

func (v vanishingFS) Lstat(name string) (fs.FileInfo, error) {
	if name == v.gone {
		return nil, &fs.PathError{Op: "lstat", Path: name, Err: fs.ErrNotExist}
	}
	return v.OSFS.Lstat(name)
}

func TestExpandDir_EntryVanishingMidWalkIsNotFound(t *testing.T) {
	root := t.TempDir()
	gone := filepath.Join(root, "gone.txt")
	writeFile(t, gone)

	_, err := collect(t, vanishingFS{gone: gone}, root)
	require.Error(t, err)

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, gone, nf.Path)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestExpandDir_MissingRootIsNotFound(t *testing.T) {
	_, err := collect(t, OSFS{}, filepath.Join(t.TempDir(), "nope"))
	assert.True(t, IsNotFound(err))
}

func TestExpandDir_NilAddFunc(t *testing.T) {
	assert.Error(t, ExpandDir(nil, t.TempDir(), nil))
}

func TestExists(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "f")
	writeFile(t, file)

	ok, err := Exists(nil, file)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Exists(OSFS{}, filepath.Join(root, "missing"))
	assert.False(t, ok)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

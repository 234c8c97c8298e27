package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exercise(t *testing.T, fsys FileSystem, dir string) {
	t.Helper()
	out := filepath.Join(dir, "fits", "voxels.csv")
	require.NoError(t, fsys.MkdirAll(filepath.Dir(out), 0755))
	assert.True(t, fsys.Exists(filepath.Dir(out)))
	assert.False(t, fsys.Exists(out))

	w, err := fsys.Create(out)
	require.NoError(t, err)
	_, err = io.WriteString(w, "1,2,3\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.True(t, fsys.Exists(out))

	r, err := fsys.Open(out)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "1,2,3\n", string(data))

	_, err = fsys.Open(filepath.Join(dir, "missing.csv"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestOSFileSystem(t *testing.T) {
	exercise(t, OSFileSystem{}, t.TempDir())
}

func TestMemoryFileSystem(t *testing.T) {
	m := NewMemoryFileSystem()
	exercise(t, m, "/data")
	assert.Equal(t, []string{"/data/fits/voxels.csv"}, m.Files())
	assert.True(t, m.Exists("/data"))

	m.WriteFile("/data/a.csv", []byte("x"))
	got, err := m.ReadFile("/data/a.csv")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}

func TestMemoryFileSystemCommitOnClose(t *testing.T) {
	m := NewMemoryFileSystem()
	m.WriteFile("out.csv", []byte("old"))
	w, err := m.Create("out.csv")
	require.NoError(t, err)
	_, _ = io.WriteString(w, "new")

	got, err := m.ReadFile("out.csv")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, w.Close())
	got, err = m.ReadFile("out.csv")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

package local

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreatesDirectory(t *testing.T) {
	t.Parallel()

	base := filepath.Join(t.TempDir(), "nested", "reports")
	dir, err := New(base)
	require.NoError(t, err)
	assert.Equal(t, base, dir.Path())

	info, err := os.Stat(base)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewRejectsFilesAndEmpty(t *testing.T) {
	t.Parallel()

	_, err := New("  ")
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	_, err = New(file)
	require.Error(t, err)
}

func TestWriteReadRemove(t *testing.T) {
	t.Parallel()

	dir, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := dir.WriteJSON("raw/devfolio.json", map[string]int{"count": 3})
	require.NoError(t, err)
	assert.FileExists(t, path)

	var got map[string]int
	require.NoError(t, dir.ReadJSON("raw/devfolio.json", &got))
	assert.Equal(t, 3, got["count"])

	require.NoError(t, dir.Remove("raw/devfolio.json"))
	require.NoError(t, dir.Remove("raw/devfolio.json"))
	assert.NoFileExists(t, path)
}

func TestPathTraversalRejected(t *testing.T) {
	t.Parallel()

	dir, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = dir.WriteJSON("../escape.json", 1)
	require.ErrorContains(t, err, "path traversal")
	require.Error(t, dir.Remove("../../etc/passwd"))
}

func TestLatest(t *testing.T) {
	t.Parallel()

	dir, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = dir.Latest("run-", ".json")
	require.ErrorIs(t, err, fs.ErrNotExist)

	for _, name := range []string{"run-2099-01-01.json", "run-2099-02-01.json", "other.json"} {
		_, err := dir.WriteJSON(name, struct{}{})
		require.NoError(t, err)
	}
	latest, err := dir.Latest("run-", ".json")
	require.NoError(t, err)
	assert.Equal(t, "run-2099-02-01.json", latest)
}

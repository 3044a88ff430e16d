package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save("tt-1/abc.pdf", []byte("%PDF-1.3"))
	require.NoError(t, err)
	assert.Equal(t, "tt-1/abc.pdf", name)
	assert.True(t, store.Exists(name))

	_, err = store.Save(name, []byte("%PDF-1.4"))
	require.NoError(t, err)

	file, err := store.Open(name)
	require.NoError(t, err)
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.Equal(t, "%PDF-1.4", string(content))

	entries, err := os.ReadDir(filepath.Join(store.baseDir, "tt-1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, store.Delete(name))
	assert.False(t, store.Exists(name))
	require.NoError(t, store.Delete(name))
}

func TestLocalStorageRejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../secret", "/etc/passwd", ".", ""} {
		_, err := store.Save(name, []byte("x"))
		assert.Error(t, err, name)
		assert.False(t, store.Exists(name))
	}
}

func TestLocalStorageCleanupPrunesEmptyDirs(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("tt-1/old.csv", []byte("a"))
	require.NoError(t, err)
	_, err = store.Save("tt-2/fresh.csv", []byte("b"))
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(store.baseDir, "tt-1", "old.csv"), past, past))

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("tt-1", "old.csv")}, deleted)

	_, err = os.Stat(filepath.Join(store.baseDir, "tt-1"))
	assert.True(t, os.IsNotExist(err))
	assert.True(t, store.Exists("tt-2/fresh.csv"))
}

package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveAndOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save("job-1/notes-export.json", []byte(`{"ok":true}`))
	require.NoError(t, err)
	require.Equal(t, "job-1/notes-export.json", name)

	file, err := store.Open(name)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck

	data, err := os.ReadFile(file.Name())
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(data))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("stale/notes-export.json", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("fresh/notes-export.json", []byte("new"))
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "stale/notes-export.json"), past, past))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join("stale", "notes-export.json")}, deleted)

	_, err = store.Open("stale/notes-export.json")
	require.Error(t, err)
	_, err = store.Open("fresh/notes-export.json")
	require.NoError(t, err)
}

package integration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStore(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadAllCountsAndAbsence(t *testing.T) {
	dir := t.TempDir()
	writeStore(t, dir, "collections.json", `[
		{"id":"1","selected":true,"confirmed":true},
		{"id":"2","selected":true},
		{"id":"3"},
		{"id":"4"},
		{"id":"5","confirmed":true}
	]`)
	// uploads.json intentionally absent

	m := NewRegistry(dir).LoadAll("build-1")

	col := m.Store(StoreCollections)
	assert.True(t, col.HasData)
	assert.Equal(t, 5, col.Count)
	assert.Equal(t, 2, col.Selected)
	assert.Equal(t, 2, col.Confirmed)

	up := m.Store(StoreUploads)
	assert.False(t, up.HasData)
	assert.Equal(t, 0, up.Count)
	assert.Empty(t, m.Warnings)
}

func TestLoadAllMalformedStoreIsWarningNotError(t *testing.T) {
	dir := t.TempDir()
	writeStore(t, dir, "social-posts.json", `{"not":"an array"`)

	m := NewRegistry(dir).LoadAll("build-2")

	s := m.Store(StoreSocialPosts)
	assert.False(t, s.HasData)
	assert.NotEmpty(t, s.Warning)
	require.Len(t, m.Warnings, 1)
	assert.Contains(t, m.Warnings[0], "social-posts")
}

func TestLoadAllMissingDataDir(t *testing.T) {
	m := NewRegistry(filepath.Join(t.TempDir(), "nope")).LoadAll("")
	assert.False(t, m.Store(StoreCollections).HasData)
	assert.Empty(t, m.Warnings)
}

func TestWriteAndReadManifest(t *testing.T) {
	dir := t.TempDir()
	writeStore(t, dir, "uploads.json", `[{"file":"a.png","confirmed":true}]`)

	m := NewRegistry(dir).LoadAll("build-3")
	path := filepath.Join(dir, "out", "integrations.json")
	require.NoError(t, WriteManifest(m, path))

	loaded, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "build-3", loaded.BuildID)
	assert.Equal(t, 1, loaded.Store(StoreUploads).Count)
	assert.Equal(t, 1, loaded.Store(StoreUploads).Confirmed)
}

func TestDoesNotMutateSourceStores(t *testing.T) {
	dir := t.TempDir()
	original := `[{"id":"1","selected":true}]`
	writeStore(t, dir, "collections.json", original)

	_ = NewRegistry(dir).LoadAll("")

	data, err := os.ReadFile(filepath.Join(dir, "collections.json"))
	require.NoError(t, err)
	assert.Equal(t, original, string(data))
}

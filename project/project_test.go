package project_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kamaros/historyindex"
	"kamaros/project"
	"kamaros/storage"
)

func newManager(t *testing.T) *project.Manager {
	t.Helper()
	return project.New(storage.NewMemoryAdapter())
}

// Scenario 1 (spec §8): checkpoint, overwrite, checkpoint, restore.
func TestCheckpointThenRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	m.CreateProject("DemoApp", "", "")

	require.NoError(t, m.AddFile("README.md", []byte("# Demo Project\nInitial content.")))
	v1, err := m.SaveCheckpoint(ctx, "initial", "alice")
	require.NoError(t, err)

	require.NoError(t, m.AddFile("README.md", []byte("# Demo Project\nUpdated content with new features.")))
	_, err = m.SaveCheckpoint(ctx, "update", "alice")
	require.NoError(t, err)

	content, ok, err := m.GetFile("README.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(content), "Updated")

	_, err = m.RestoreVersion(ctx, v1)
	require.NoError(t, err)

	content, ok, err = m.GetFile("README.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(content), "Initial content")
}

// Scenario 2 (spec §8): identical bytes under distinct paths dedup to one blob.
func TestCheckpointDeduplicatesIdenticalContent(t *testing.T) {
	ctx := context.Background()
	adapter := storage.NewMemoryAdapter()
	m := project.New(adapter)
	m.CreateProject("Demo", "", "")

	require.NoError(t, m.AddFile("a.txt", []byte("X")))
	require.NoError(t, m.AddFile("b.txt", []byte("X")))
	_, err := m.SaveCheckpoint(ctx, "dedup", "")

	require.NoError(t, err)

	blobKeys, err := adapter.List(ctx, ".store/blobs")
	require.NoError(t, err)
	assert.Len(t, blobKeys, 1)

	report, err := m.VerifyIntegrity(ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 2, report.Checked) // two file-states, one distinct blob
}

// Scenario 3 (spec §8): tag uniqueness and lookup.
func TestTagVersionUniquenessAndLookup(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	m.CreateProject("Demo", "", "")

	require.NoError(t, m.AddFile("file.txt", []byte("Version 1")))
	v1, err := m.SaveCheckpoint(ctx, "v1", "")
	require.NoError(t, err)

	require.NoError(t, m.AddFile("file.txt", []byte("Version 2")))
	v2, err := m.SaveCheckpoint(ctx, "v2", "")
	require.NoError(t, err)

	ok, err := m.TagVersion(ctx, v1, "release-1.0")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.TagVersion(ctx, v2, "release-1.0")
	require.NoError(t, err)
	assert.False(t, ok)

	resolved, found, err := m.GetVersionByTag("release-1.0")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, v1, resolved)
}

// Scenario 4 (spec §8): multi-version restore across add/modify/delete.
func TestRestoreAcrossAddModifyDelete(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	m.CreateProject("Demo", "", "")

	require.NoError(t, m.AddFile("file1", []byte("Content 1")))
	v1, err := m.SaveCheckpoint(ctx, "v1", "")
	require.NoError(t, err)

	require.NoError(t, m.AddFile("file1", []byte("Content 1 Modified")))
	require.NoError(t, m.AddFile("file2", []byte("Content 2")))
	_, err = m.SaveCheckpoint(ctx, "v2", "")
	require.NoError(t, err)

	_, err = m.DeleteFile("file1")
	require.NoError(t, err)
	v3, err := m.SaveCheckpoint(ctx, "v3", "")
	require.NoError(t, err)

	_, err = m.RestoreVersion(ctx, v1)
	require.NoError(t, err)

	content, ok, err := m.GetFile("file1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Content 1", string(content))
	_, ok, err = m.GetFile("file2")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = m.RestoreVersion(ctx, v3)
	require.NoError(t, err)

	_, ok, err = m.GetFile("file1")
	require.NoError(t, err)
	assert.False(t, ok)
	content, ok, err = m.GetFile("file2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Content 2", string(content))
}

// Scenario 5 (spec §8): compare_versions and get_file_history.
func TestCompareVersionsAndFileHistory(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	m.CreateProject("Demo", "", "")

	require.NoError(t, m.AddFile("config.json", []byte(`{"v":1}`)))
	require.NoError(t, m.AddFile("data.txt", []byte("Initial data")))
	v1, err := m.SaveCheckpoint(ctx, "v1", "")
	require.NoError(t, err)

	require.NoError(t, m.AddFile("config.json", []byte(`{"v":2}`)))
	require.NoError(t, m.AddFile("new_file.txt", []byte("new")))
	v2, err := m.SaveCheckpoint(ctx, "v2", "")
	require.NoError(t, err)

	require.NoError(t, m.AddFile("data.txt", []byte("Updated data")))
	_, err = m.DeleteFile("new_file.txt")
	require.NoError(t, err)
	v3, err := m.SaveCheckpoint(ctx, "v3", "")
	require.NoError(t, err)

	diff12, err := m.CompareVersions(v1, v2)
	require.NoError(t, err)
	assert.Equal(t, []string{"new_file.txt"}, diff12.Added)

	diff23, err := m.CompareVersions(v2, v3)
	require.NoError(t, err)
	assert.Equal(t, []string{"new_file.txt"}, diff23.Removed)

	history, err := m.GetFileHistory("config.json")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, project.ChangeCreated, history[0].Change)
	assert.Equal(t, v1, history[0].VersionID)
	assert.Equal(t, project.ChangeModified, history[1].Change)
	assert.Equal(t, v2, history[1].VersionID)
}

// Diff symmetry testable property (spec §8).
func TestCompareVersionsDiffSymmetry(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	m.CreateProject("Demo", "", "")

	require.NoError(t, m.AddFile("only-in-a.txt", []byte("a")))
	va, err := m.SaveCheckpoint(ctx, "a", "")
	require.NoError(t, err)

	_, err = m.DeleteFile("only-in-a.txt")
	require.NoError(t, err)
	require.NoError(t, m.AddFile("only-in-b.txt", []byte("b")))
	vb, err := m.SaveCheckpoint(ctx, "b", "")
	require.NoError(t, err)

	ab, err := m.CompareVersions(va, vb)
	require.NoError(t, err)
	ba, err := m.CompareVersions(vb, va)
	require.NoError(t, err)
	assert.Equal(t, ab.Added, ba.Removed)
}

// Scenario 6 (spec §8): archive round-trip into a fresh adapter.
func TestArchiveSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	srcAdapter := storage.NewMemoryAdapter()
	m := project.New(srcAdapter)
	m.CreateProject("Demo", "", "")

	binary := []byte{0x00, 0x01, 0xFF, 0xFE, 0x10}
	require.NoError(t, m.AddFile("image.bin", binary))
	v1, err := m.SaveCheckpoint(ctx, "add binary", "")
	require.NoError(t, err)

	require.NoError(t, m.Save(ctx, "x.jcf"))

	archiveBytes, err := srcAdapter.Read(ctx, "x.jcf")
	require.NoError(t, err)

	freshAdapter := storage.NewMemoryAdapter()
	require.NoError(t, freshAdapter.Write(ctx, "x.jcf", archiveBytes))

	loaded := project.New(freshAdapter)
	loaded.CreateProject("placeholder", "", "")
	require.NoError(t, loaded.Load(ctx, "x.jcf"))

	_, err = loaded.RestoreVersion(ctx, v1)
	require.NoError(t, err)

	content, ok, err := loaded.GetFile("image.bin")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, binary, content)

	report, err := loaded.VerifyIntegrity(ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)
}

func TestRenamePreservesInodeID(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	m.CreateProject("Demo", "", "")

	require.NoError(t, m.AddFile("a.txt", []byte("hi")))
	before := m.Manifest().FileMap["a.txt"].InodeID

	ok, err := m.RenameFile("a.txt", "b.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	after, exists := m.Manifest().FileMap["b.txt"]
	require.True(t, exists)
	assert.Equal(t, before, after.InodeID)

	_, err = m.SaveCheckpoint(ctx, "rename", "")
	require.NoError(t, err)

	assert.Equal(t, m.Manifest().VersionHistory[0].ID, m.Manifest().RenameLog[0].VersionID)
}

func TestOperationsFailWithoutProject(t *testing.T) {
	m := newManager(t)
	assert.ErrorIs(t, m.AddFile("a.txt", []byte("x")), project.ErrNoProject)

	_, err := m.SaveCheckpoint(context.Background(), "msg", "")
	assert.ErrorIs(t, err, project.ErrNoProject)
}

func TestRestoreUnknownVersionFails(t *testing.T) {
	m := newManager(t)
	m.CreateProject("Demo", "", "")
	_, err := m.RestoreVersion(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, project.ErrVersionNotFound)
}

// With a history index attached, checkpoint and tag both keep it in sync,
// and lookups answer from it instead of scanning the manifest.
func TestHistoryIndexStaysInSyncAcrossCheckpointAndTag(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	m.CreateProject("Demo", "", "")

	idx, err := historyindex.Open(filepath.Join(t.TempDir(), "history.db"), historyindex.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	m.AttachHistoryIndex(idx)

	require.NoError(t, m.AddFile("a.txt", []byte("hi")))
	v1, err := m.SaveCheckpoint(ctx, "initial", "alice")
	require.NoError(t, err)

	summary, found, err := m.LookupVersionByID(ctx, v1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "initial", summary.Message)
	assert.Equal(t, "alice", summary.Author)

	ok, err := m.TagVersion(ctx, v1, "release-1.0")
	require.NoError(t, err)
	assert.True(t, ok)

	resolved, found, err := m.LookupVersionByTag(ctx, "release-1.0")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, v1, resolved)

	_, found, err = m.LookupVersionByID(ctx, "nonexistent")
	require.NoError(t, err)
	assert.False(t, found)
}

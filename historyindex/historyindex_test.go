package historyindex_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kamaros/historyindex"
	"kamaros/manifest"
)

func openTestIndex(t *testing.T) *historyindex.Index {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	idx, err := historyindex.Open(dbPath, historyindex.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func sampleManifest() *manifest.Manifest {
	mf := manifest.New("Demo")
	v1 := manifest.Version{
		ID:        "v1",
		Message:   "initial",
		Author:    "alice",
		Timestamp: manifest.Now(),
		FileStates: map[string]manifest.FileState{
			"a.txt": {ContentRef: "blobs/sha256-aaa"},
		},
	}
	v1ID := v1.ID
	v2 := manifest.Version{
		ID:         "v2",
		ParentID:   &v1ID,
		Message:    "second",
		Author:     "alice",
		Timestamp:  manifest.Now(),
		FileStates: map[string]manifest.FileState{},
	}
	mf.VersionHistory = append(mf.VersionHistory, v1, v2)
	mf.Refs.Head = "v2"
	mf.TagVersion("v1", "release-1.0")
	return mf
}

func TestRebuildAndLookupVersion(t *testing.T) {
	ctx := context.Background()
	idx := openTestIndex(t)
	require.NoError(t, idx.RebuildFromManifest(ctx, sampleManifest()))

	summary, found, err := idx.LookupVersion(ctx, "v2")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v1", summary.ParentID)
	assert.Equal(t, "second", summary.Message)
	assert.Equal(t, 0, summary.FileCount)

	_, found, err = idx.LookupVersion(ctx, "nonexistent")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRebuildAndLookupTag(t *testing.T) {
	ctx := context.Background()
	idx := openTestIndex(t)
	require.NoError(t, idx.RebuildFromManifest(ctx, sampleManifest()))

	versionID, found, err := idx.LookupTag(ctx, "release-1.0")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v1", versionID)

	_, found, err = idx.LookupTag(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRebuildIsIdempotentReplace(t *testing.T) {
	ctx := context.Background()
	idx := openTestIndex(t)
	require.NoError(t, idx.RebuildFromManifest(ctx, sampleManifest()))
	require.NoError(t, idx.RebuildFromManifest(ctx, sampleManifest()))

	summary, found, err := idx.LookupVersion(ctx, "v1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "", summary.ParentID)
}

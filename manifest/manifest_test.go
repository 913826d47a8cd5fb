package manifest_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kamaros/manifest"
)

func TestNewManifestDefaults(t *testing.T) {
	m := manifest.New("DemoApp")
	assert.Equal(t, manifest.FormatVersion, m.FormatVersion)
	assert.Equal(t, "DemoApp", m.Metadata.Name)
	assert.Empty(t, m.Refs.Head)
	assert.Empty(t, m.VersionHistory)
}

func TestKindForPath(t *testing.T) {
	assert.Equal(t, manifest.KindText, manifest.KindForPath("README.md"))
	assert.Equal(t, manifest.KindBinary, manifest.KindForPath("photo.png"))
	assert.Equal(t, manifest.KindBinary, manifest.KindForPath("no_extension"))
}

func TestTagVersionRequiresExistingVersionAndUniqueName(t *testing.T) {
	m := manifest.New("Demo")
	m.VersionHistory = append(m.VersionHistory, manifest.Version{ID: "v1"})

	assert.False(t, m.TagVersion("missing", "tag"))
	assert.True(t, m.TagVersion("v1", "release"))
	assert.False(t, m.TagVersion("v1", "release"))

	id, ok := m.VersionByTag("release")
	assert.True(t, ok)
	assert.Equal(t, "v1", id)
}

func TestManifestJSONRoundTripPreservesUnknownFields(t *testing.T) {
	raw := `{
		"formatVersion": "1.0.0",
		"metadata": {"name": "Demo", "created": "2024-01-01T00:00:00Z", "lastModified": "2024-01-01T00:00:00Z"},
		"fileMap": {},
		"versionHistory": [],
		"refs": {"head": ""},
		"renameLog": [],
		"futureField": {"nested": 42}
	}`

	var m manifest.Manifest
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	out, err := json.Marshal(m)
	require.NoError(t, err)

	var roundTripped map[string]any
	require.NoError(t, json.Unmarshal(out, &roundTripped))
	assert.Contains(t, roundTripped, "futureField")
}

func TestFileStateAcceptsLegacyBlobRef(t *testing.T) {
	var fs manifest.FileState
	require.NoError(t, json.Unmarshal([]byte(`{"blobRef": "blobs/sha256-abc"}`), &fs))
	assert.Equal(t, "blobs/sha256-abc", fs.ContentRef)

	// contentRef takes priority when both are present.
	require.NoError(t, json.Unmarshal([]byte(`{"contentRef": "blobs/sha256-new", "blobRef": "blobs/sha256-old"}`), &fs))
	assert.Equal(t, "blobs/sha256-new", fs.ContentRef)
}

func TestComputeVersionIDIsDeterministic(t *testing.T) {
	ts := manifest.Timestamp{}
	states := map[string]manifest.FileState{"a.txt": {ContentRef: "blobs/sha256-aaa"}}

	id1, err := manifest.ComputeVersionID("", "msg", "author", ts, states)
	require.NoError(t, err)
	id2, err := manifest.ComputeVersionID("", "msg", "author", ts, states)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	id3, err := manifest.ComputeVersionID("parent", "msg", "author", ts, states)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
}

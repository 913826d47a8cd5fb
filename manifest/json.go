package manifest

import (
	"encoding/json"
	"time"
)

// rawField is an undecoded JSON value, used to round-trip manifest fields
// this package doesn't know about.
type rawField = json.RawMessage

// MarshalJSON renders t as an RFC3339 (ISO-8601) string.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// UnmarshalJSON parses an RFC3339 string into t.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
	}
	t.Time = parsed
	return nil
}

// legacyFileState is the on-wire shape accepted for backward compatibility
// with manifests written before "contentRef" replaced "blobRef".
type legacyFileState struct {
	ContentRef string `json:"contentRef"`
	BlobRef    string `json:"blobRef"`
}

// UnmarshalJSON accepts either "contentRef" (canonical) or "blobRef"
// (legacy), preferring "contentRef" when both are present.
func (fs *FileState) UnmarshalJSON(data []byte) error {
	var legacy legacyFileState
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}
	if legacy.ContentRef != "" {
		fs.ContentRef = legacy.ContentRef
	} else {
		fs.ContentRef = legacy.BlobRef
	}
	return nil
}

// manifestOnWire mirrors Manifest's known fields for decoding; unknown
// sibling keys are captured separately by UnmarshalJSON below.
type manifestOnWire struct {
	FormatVersion  string               `json:"formatVersion"`
	Metadata       Metadata             `json:"metadata"`
	FileMap        map[string]FileEntry `json:"fileMap"`
	VersionHistory []Version            `json:"versionHistory"`
	Refs           Refs                 `json:"refs"`
	RenameLog      []RenameLogEntry     `json:"renameLog"`
}

var knownManifestKeys = map[string]bool{
	"formatVersion": true, "metadata": true, "fileMap": true,
	"versionHistory": true, "refs": true, "renameLog": true,
}

// MarshalJSON emits the known fields plus any preserved unknown top-level
// fields from a prior load, so that load-then-save round-trips don't drop
// data produced by a newer manifest writer.
func (m Manifest) MarshalJSON() ([]byte, error) {
	out := make(map[string]rawField, len(m.unknown)+6)
	for k, v := range m.unknown {
		out[k] = v
	}

	known := manifestOnWire{
		FormatVersion:  m.FormatVersion,
		Metadata:       m.Metadata,
		FileMap:        m.FileMap,
		VersionHistory: m.VersionHistory,
		Refs:           m.Refs,
		RenameLog:      m.RenameLog,
	}
	if known.FileMap == nil {
		known.FileMap = map[string]FileEntry{}
	}
	if known.VersionHistory == nil {
		known.VersionHistory = []Version{}
	}
	if known.RenameLog == nil {
		known.RenameLog = []RenameLogEntry{}
	}

	encoded, err := json.Marshal(known)
	if err != nil {
		return nil, err
	}
	var knownFields map[string]rawField
	if err := json.Unmarshal(encoded, &knownFields); err != nil {
		return nil, err
	}
	for k, v := range knownFields {
		out[k] = v
	}

	return json.Marshal(out)
}

// UnmarshalJSON decodes the known manifest fields and stashes any
// unrecognized top-level keys in m.unknown for later round-tripping.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var known manifestOnWire
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var all map[string]rawField
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	m.FormatVersion = known.FormatVersion
	m.Metadata = known.Metadata
	m.FileMap = known.FileMap
	if m.FileMap == nil {
		m.FileMap = make(map[string]FileEntry)
	}
	m.VersionHistory = known.VersionHistory
	m.Refs = known.Refs
	m.RenameLog = known.RenameLog

	m.unknown = make(map[string]rawField)
	for k, v := range all {
		if !knownManifestKeys[k] {
			m.unknown[k] = v
		}
	}
	return nil
}

package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// versionIDInput is the canonical structure hashed to produce a version
// id: content-addressing the commit itself makes ids reproducible across
// independent implementations fed the same inputs (spec §4.4 step 3, §9).
type versionIDInput struct {
	ParentID   string               `json:"parentId"`
	Message    string               `json:"message"`
	Author     string               `json:"author"`
	Timestamp  string               `json:"timestamp"`
	FileStates map[string]FileState `json:"fileStates"`
}

// ComputeVersionID deterministically derives a version id from its parent,
// message, author, timestamp, and file-states, by hashing their canonical
// JSON encoding. Go's encoding/json sorts map keys alphabetically when
// marshaling, which is what makes this canonical across runs.
func ComputeVersionID(parentID string, message, author string, ts Timestamp, fileStates map[string]FileState) (string, error) {
	input := versionIDInput{
		ParentID:   parentID,
		Message:    message,
		Author:     author,
		Timestamp:  ts.Format(rfc3339NanoLayout),
		FileStates: fileStates,
	}
	encoded, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

const rfc3339NanoLayout = "2006-01-02T15:04:05.999999999Z07:00"

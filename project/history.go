package project

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"kamaros/blobstore"
	"kamaros/manifest"
	"kamaros/storage"
)

// VersionInfo is the read-only projection returned by GetVersionInfo.
type VersionInfo struct {
	ID         string
	Message    string
	Author     string
	Timestamp  manifest.Timestamp
	ParentID   *string
	FileStates map[string]manifest.FileState
	FileCount  int
}

// GetVersionInfo returns the Version Record named by id, or false if no
// such version exists (spec §4.6 get_version_info).
func (m *Manager) GetVersionInfo(id string) (VersionInfo, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mf, err := m.requireProject()
	if err != nil {
		return VersionInfo{}, false, err
	}

	v := mf.FindVersion(id)
	if v == nil {
		return VersionInfo{}, false, nil
	}
	return VersionInfo{
		ID:         v.ID,
		Message:    v.Message,
		Author:     v.Author,
		Timestamp:  v.Timestamp,
		ParentID:   v.ParentID,
		FileStates: v.FileStates,
		FileCount:  v.FileCount(),
	}, true, nil
}

// GetFileAtVersion resolves path's content at the named version through
// the Blob Store. It returns false if path is absent from that version's
// snapshot, the version itself does not exist, or the blob is missing
// (spec §4.6 get_file_at_version, §7 propagation policy: this is a
// read-only query that returns null on absence rather than raising).
func (m *Manager) GetFileAtVersion(ctx context.Context, path, versionID string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mf, err := m.requireProject()
	if err != nil {
		return nil, false, err
	}

	v := mf.FindVersion(versionID)
	if v == nil {
		return nil, false, nil
	}
	state, ok := v.FileStates[path]
	if !ok {
		return nil, false, nil
	}

	data, err := m.readBlobRef(ctx, state.ContentRef)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) || errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("project: get file at version: %w", err)
	}
	return data, true, nil
}

// FileHistoryEntry is one change-point for a path across the version
// history (spec §4.6 get_file_history).
type FileHistoryEntry struct {
	VersionID string
	Change    string // "created", "modified", or "deleted"
}

const (
	ChangeCreated  = "created"
	ChangeModified = "modified"
	ChangeDeleted  = "deleted"
)

// GetFileHistory walks versionHistory in insertion order and emits an
// entry each time path's contentRef changes: "created" on first
// appearance, "modified" when the ref differs from the predecessor's,
// "deleted" when the predecessor had it and this version doesn't. A
// version where path is absent in both neighbors produces nothing.
func (m *Manager) GetFileHistory(path string) ([]FileHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mf, err := m.requireProject()
	if err != nil {
		return nil, err
	}

	var history []FileHistoryEntry
	var prevRef string
	var havePrev bool

	for _, v := range mf.VersionHistory {
		state, present := v.FileStates[path]
		switch {
		case present && !havePrev:
			history = append(history, FileHistoryEntry{VersionID: v.ID, Change: ChangeCreated})
		case present && havePrev && state.ContentRef != prevRef:
			history = append(history, FileHistoryEntry{VersionID: v.ID, Change: ChangeModified})
		case !present && havePrev:
			history = append(history, FileHistoryEntry{VersionID: v.ID, Change: ChangeDeleted})
		}
		havePrev = present
		if present {
			prevRef = state.ContentRef
		}
	}
	return history, nil
}

// VersionDiff summarizes the path-level differences between two versions
// (spec §4.6 compare_versions).
type VersionDiff struct {
	Added     []string
	Removed   []string
	Modified  []string
	Unchanged []string
}

// Summary renders the diff as "+A -R ~M =U".
func (d VersionDiff) Summary() string {
	return fmt.Sprintf("+%d -%d ~%d =%d", len(d.Added), len(d.Removed), len(d.Modified), len(d.Unchanged))
}

// CompareVersions computes the set-difference of two versions' file-states
// by path key, classifying each shared path as modified (contentRef
// differs) or unchanged (spec §4.6 compare_versions). Fails with
// ErrVersionNotFound if either id is absent.
func (m *Manager) CompareVersions(a, b string) (VersionDiff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mf, err := m.requireProject()
	if err != nil {
		return VersionDiff{}, err
	}

	va := mf.FindVersion(a)
	vb := mf.FindVersion(b)
	if va == nil || vb == nil {
		return VersionDiff{}, ErrVersionNotFound
	}

	var diff VersionDiff
	for p := range vb.FileStates {
		if _, ok := va.FileStates[p]; !ok {
			diff.Added = append(diff.Added, p)
		}
	}
	for p := range va.FileStates {
		if _, ok := vb.FileStates[p]; !ok {
			diff.Removed = append(diff.Removed, p)
		}
	}
	for p, sa := range va.FileStates {
		if sb, ok := vb.FileStates[p]; ok {
			if sa.ContentRef != sb.ContentRef {
				diff.Modified = append(diff.Modified, p)
			} else {
				diff.Unchanged = append(diff.Unchanged, p)
			}
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Modified)
	sort.Strings(diff.Unchanged)
	return diff, nil
}

// IntegrityErrorEntry describes one blob that failed verification (spec
// §4.6 verify_integrity).
type IntegrityErrorEntry struct {
	Version    string
	Path       string
	ContentRef string
	Kind       string
}

// IntegrityReport is the accumulated result of VerifyIntegrity.
type IntegrityReport struct {
	Valid   bool
	Checked int
	Errors  []IntegrityErrorEntry
}

// VerifyIntegrity fetches every contentRef referenced by every version's
// file-states and recomputes its SHA-256, accumulating a report rather
// than raising (spec §4.6, §7 propagation policy). It does not mutate
// state.
func (m *Manager) VerifyIntegrity(ctx context.Context) (IntegrityReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mf, err := m.requireProject()
	if err != nil {
		return IntegrityReport{}, err
	}

	report := IntegrityReport{Valid: true}
	seen := make(map[string]bool)

	for _, v := range mf.VersionHistory {
		paths := make([]string, 0, len(v.FileStates))
		for p := range v.FileStates {
			paths = append(paths, p)
		}
		sort.Strings(paths)

		for _, path := range paths {
			state := v.FileStates[path]
			report.Checked++
			seen[state.ContentRef] = true

			ref, err := blobstore.ParseRef(state.ContentRef)
			if err != nil {
				report.Valid = false
				report.Errors = append(report.Errors, IntegrityErrorEntry{
					Version: v.ID, Path: path, ContentRef: state.ContentRef, Kind: "MalformedRef",
				})
				continue
			}

			ok, err := m.blobs.Verify(ctx, ref)
			if err != nil {
				report.Valid = false
				report.Errors = append(report.Errors, IntegrityErrorEntry{
					Version: v.ID, Path: path, ContentRef: state.ContentRef, Kind: "NotFound",
				})
				continue
			}
			if !ok {
				report.Valid = false
				report.Errors = append(report.Errors, IntegrityErrorEntry{
					Version: v.ID, Path: path, ContentRef: state.ContentRef, Kind: "IntegrityError",
				})
			}
		}
	}

	return report, nil
}

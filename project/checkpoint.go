package project

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"kamaros/manifest"
)

// SaveCheckpoint promotes the current working set to a new immutable
// version (spec §4.4). It hashes and stores every staged file through the
// Blob Store, builds the file-state snapshot, appends the Version Record,
// advances the head, reconciles the file map to the working-set key set,
// back-fills any pending rename-log entries, and bumps the project's
// lastModified timestamp. An empty working set is legal and yields a
// version with empty file-states.
func (m *Manager) SaveCheckpoint(ctx context.Context, message, author string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mf, err := m.requireProject()
	if err != nil {
		return "", err
	}

	if author == "" {
		author = "unknown"
	}

	// Step 1-2: hash and store every staged file, building the snapshot.
	// Blobs are written first so that a crash here only leaves unreferenced
	// garbage in the store, never a version pointing at a missing blob.
	paths := make([]string, 0, len(m.workingSet))
	for p := range m.workingSet {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	fileStates := make(map[string]manifest.FileState, len(paths))
	for _, p := range paths {
		ref, err := m.blobs.Put(ctx, m.workingSet[p])
		if err != nil {
			return "", fmt.Errorf("project: checkpoint: storing blob for %q: %w", p, err)
		}
		fileStates[p] = manifest.FileState{ContentRef: ref.String()}
	}

	now := manifest.Now()

	var parentID *string
	if mf.Refs.Head != "" {
		head := mf.Refs.Head
		parentID = &head
	}

	// Step 3: deterministic content-addressed version id (spec §4.4 step 3,
	// §9's resolution of the ambiguous source behavior).
	parentIDStr := ""
	if parentID != nil {
		parentIDStr = *parentID
	}
	versionID, err := manifest.ComputeVersionID(parentIDStr, message, author, now, fileStates)
	if err != nil {
		return "", fmt.Errorf("project: checkpoint: computing version id: %w", err)
	}

	// Step 4-5: append the version and advance head.
	mf.VersionHistory = append(mf.VersionHistory, manifest.Version{
		ID:         versionID,
		ParentID:   parentID,
		Message:    message,
		Author:     author,
		Timestamp:  now,
		FileStates: fileStates,
	})
	mf.Refs.Head = versionID

	// Step 6: reconcile the file map to the working-set key set.
	live := make(map[string]bool, len(paths))
	for _, p := range paths {
		live[p] = true
	}
	for path := range mf.FileMap {
		if !live[path] {
			delete(mf.FileMap, path)
		}
	}
	for _, p := range paths {
		if _, ok := mf.FileMap[p]; !ok {
			// Reachable when a path re-enters the working set (e.g. via
			// RestoreVersion) after a prior checkpoint dropped its File
			// Entry: it needs a fresh inode-id here just as AddFile mints
			// one, since §3 requires an inode-id on every live path.
			mf.FileMap[p] = manifest.FileEntry{
				InodeID:  uuid.New().String(),
				Created:  now,
				Modified: now,
				Kind:     manifest.KindForPath(p),
			}
		}
	}

	// Step 7: back-fill pending rename-log entries.
	for i := range mf.RenameLog {
		if mf.RenameLog[i].VersionID == "" {
			mf.RenameLog[i].VersionID = versionID
		}
	}

	// Step 8: bump project lastModified.
	mf.Metadata.LastModified = now

	if err := m.syncHistoryIndex(ctx); err != nil {
		return "", err
	}

	return versionID, nil
}

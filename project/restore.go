package project

import (
	"context"
	"fmt"

	"kamaros/blobstore"
)

// RestoreVersion computes the minimal plan that turns the current working
// set into the target version's snapshot, applies it, and moves the head
// pointer to versionID (spec §4.5). It does not append a new version: head
// may move backward or forward along the existing linear chain, and a
// repeated restore to the same id is a no-op beyond re-pointing head.
func (m *Manager) RestoreVersion(ctx context.Context, versionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mf, err := m.requireProject()
	if err != nil {
		return "", err
	}

	target := mf.FindVersion(versionID)
	if target == nil {
		return "", ErrVersionNotFound
	}

	filesToDelete := make([]string, 0)
	for path := range m.workingSet {
		if _, inTarget := target.FileStates[path]; !inTarget {
			filesToDelete = append(filesToDelete, path)
		}
	}

	for path, state := range target.FileStates {
		current, ok := m.workingSet[path]
		if ok {
			currentRef := blobstore.Hash(current)
			if currentRef.String() == state.ContentRef {
				continue
			}
		}
		data, err := m.readBlobRef(ctx, state.ContentRef)
		if err != nil {
			return "", fmt.Errorf("project: restore: reading %q at %s: %w", path, versionID, err)
		}
		m.workingSet[path] = data
	}

	for _, path := range filesToDelete {
		delete(m.workingSet, path)
	}

	mf.Refs.Head = versionID
	return versionID, nil
}

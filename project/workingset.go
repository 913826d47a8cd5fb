package project

import (
	"sort"

	"github.com/google/uuid"

	"kamaros/manifest"
)

// AddFile stages content under path in the working set, creating or
// updating the entry. The blob itself is not written to the store until
// SaveCheckpoint (spec §4.3): the working set is purely in-memory staging.
func (m *Manager) AddFile(path string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mf, err := m.requireProject()
	if err != nil {
		return err
	}

	buf := make([]byte, len(content))
	copy(buf, content)
	m.workingSet[path] = buf

	now := manifest.Now()
	if entry, exists := mf.FileMap[path]; exists {
		entry.Modified = now
		entry.Kind = manifest.KindForPath(path)
		mf.FileMap[path] = entry
	} else {
		mf.FileMap[path] = manifest.FileEntry{
			InodeID:  uuid.New().String(),
			Kind:     manifest.KindForPath(path),
			Created:  now,
			Modified: now,
		}
	}
	return nil
}

// GetFile returns the staged content for path, or false if path is not in
// the working set. It never reaches into history (spec §4.3 get_file).
func (m *Manager) GetFile(path string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.requireProject(); err != nil {
		return nil, false, err
	}

	content, ok := m.workingSet[path]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(content))
	copy(out, content)
	return out, true, nil
}

// DeleteFile removes path from the working set. It reports whether path
// was present. The file map is reconciled at the next checkpoint, not
// immediately (spec §4.3 delete_file).
func (m *Manager) DeleteFile(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.requireProject(); err != nil {
		return false, err
	}

	if _, ok := m.workingSet[path]; !ok {
		return false, nil
	}
	delete(m.workingSet, path)
	return true, nil
}

// RenameFile moves staged content from oldPath to newPath, preserving the
// File Entry's inode-id under the new key, and appends a Rename Log entry
// with an empty version-id to be back-filled by the next checkpoint (spec
// §4.3 rename_file). It returns false without effect if oldPath is absent
// or newPath is already live.
func (m *Manager) RenameFile(oldPath, newPath string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mf, err := m.requireProject()
	if err != nil {
		return false, err
	}

	content, ok := m.workingSet[oldPath]
	if !ok {
		return false, nil
	}
	if _, taken := m.workingSet[newPath]; taken {
		return false, nil
	}

	m.workingSet[newPath] = content
	delete(m.workingSet, oldPath)

	if entry, exists := mf.FileMap[oldPath]; exists {
		delete(mf.FileMap, oldPath)
		mf.FileMap[newPath] = entry
	}

	mf.RenameLog = append(mf.RenameLog, manifest.RenameLogEntry{
		From:      oldPath,
		To:        newPath,
		Timestamp: manifest.Now(),
		VersionID: "",
	})
	return true, nil
}

// ListFiles returns the paths currently staged in the working set, sorted
// lexically for deterministic output.
func (m *Manager) ListFiles() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.requireProject(); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(m.workingSet))
	for p := range m.workingSet {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

package project

import "context"

// TagVersion binds name to id if id exists in history and name isn't
// already taken (spec §4.6 tag_version). A duplicate tag name surfaces as
// a false return, not an error (spec §7 DuplicateTag).
func (m *Manager) TagVersion(ctx context.Context, id, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mf, err := m.requireProject()
	if err != nil {
		return false, err
	}
	ok := mf.TagVersion(id, name)
	if !ok {
		return false, nil
	}
	if err := m.syncHistoryIndex(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// GetVersionByTag resolves a tag name to a version id (spec §4.6
// get_version_by_tag).
func (m *Manager) GetVersionByTag(name string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mf, err := m.requireProject()
	if err != nil {
		return "", false, err
	}
	id, ok := mf.VersionByTag(name)
	return id, ok, nil
}

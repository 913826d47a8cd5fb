package project

import (
	"context"
	"fmt"
	"time"

	"kamaros/historyindex"
)

// AttachHistoryIndex wires an optional SQLite secondary index (SPEC_FULL
// §B) into Manager. Once attached, it is rebuilt from the manifest after
// every SaveCheckpoint and every successful TagVersion. Attaching does not
// populate the index, and Load and Reload do not rebuild it, so until the
// next SaveCheckpoint or TagVersion it holds whatever it held before. A
// Manager with no attached index behaves exactly as before.
func (m *Manager) AttachHistoryIndex(idx *historyindex.Index) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historyIndex = idx
}

// syncHistoryIndex rebuilds the attached index from the current manifest.
// Callers must hold m.mu. No-op if no index is attached.
func (m *Manager) syncHistoryIndex(ctx context.Context) error {
	if m.historyIndex == nil {
		return nil
	}
	if err := m.historyIndex.RebuildFromManifest(ctx, m.manifest); err != nil {
		return fmt.Errorf("project: syncing history index: %w", err)
	}
	return nil
}

// LookupVersionByID resolves a version id through the attached history
// index, which answers in O(log n) against its SQLite primary key rather
// than GetVersionInfo's O(n) scan of versionHistory. Falls back to
// GetVersionInfo when no index is attached. With an index attached, the
// answer reflects the manifest as of the index's last rebuild (see
// AttachHistoryIndex).
func (m *Manager) LookupVersionByID(ctx context.Context, id string) (historyindex.VersionSummary, bool, error) {
	m.mu.Lock()
	idx := m.historyIndex
	m.mu.Unlock()

	if idx != nil {
		return idx.LookupVersion(ctx, id)
	}

	info, found, err := m.GetVersionInfo(id)
	if err != nil || !found {
		return historyindex.VersionSummary{}, found, err
	}
	var parentID string
	if info.ParentID != nil {
		parentID = *info.ParentID
	}
	return historyindex.VersionSummary{
		ID:        info.ID,
		ParentID:  parentID,
		Message:   info.Message,
		Author:    info.Author,
		Timestamp: info.Timestamp.Format(time.RFC3339Nano),
		FileCount: info.FileCount,
	}, true, nil
}

// LookupVersionByTag resolves a tag name through the attached history
// index, falling back to GetVersionByTag when none is attached.
func (m *Manager) LookupVersionByTag(ctx context.Context, name string) (string, bool, error) {
	m.mu.Lock()
	idx := m.historyIndex
	m.mu.Unlock()

	if idx != nil {
		return idx.LookupTag(ctx, name)
	}
	return m.GetVersionByTag(name)
}

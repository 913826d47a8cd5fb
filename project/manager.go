// Package project implements the Manager: the single-process orchestrator
// that owns a Manifest, a working set, and the Blob Store behind it, and
// exposes the working-set mutations, checkpoint/restore engines, history
// services, and archive codec described in spec §4.
package project

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"kamaros/blobstore"
	"kamaros/historyindex"
	"kamaros/manifest"
	"kamaros/storage"
)

// Manager is the embedding application's single entry point. It holds the
// authoritative manifest and working set by value and presents synchronous,
// single-threaded-per-instance operations (spec §5): every public method
// completes before returning, and callers must not invoke a given Manager
// from more than one goroutine at a time.
//
// Multiple Manager instances may share one storage.Adapter; the documented
// expectation remains single-writer (spec §5), so Manager itself performs
// no cross-instance locking.
type Manager struct {
	adapter storage.Adapter
	blobs   *blobstore.BlobStore

	mu           sync.Mutex
	manifest     *manifest.Manifest
	workingSet   map[string][]byte
	historyIndex *historyindex.Index
}

// New constructs a Manager over adapter. Operations that need a project
// fail with ErrNoProject until CreateProject, Load, or Reload supplies one.
func New(adapter storage.Adapter) *Manager {
	return &Manager{
		adapter: adapter,
		blobs:   blobstore.New(adapter),
	}
}

// CreateProject initializes a new empty project with the given name and
// optional description/author (spec §3 "Project Metadata").
func (m *Manager) CreateProject(name string, description, author string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.manifest = manifest.New(name)
	if description != "" {
		m.manifest.Metadata.Description = description
	}
	if author != "" {
		m.manifest.Metadata.Author = author
	}
	m.workingSet = make(map[string][]byte)
}

// requireProject returns the loaded manifest or ErrNoProject. Callers must
// hold m.mu.
func (m *Manager) requireProject() (*manifest.Manifest, error) {
	if m.manifest == nil {
		return nil, ErrNoProject
	}
	return m.manifest, nil
}

// ProjectInfo is the cheap project summary the original implementation's
// demos print before and after checkpoint/restore round-trips (SPEC_FULL
// §C.1): name, version count, file count.
type ProjectInfo struct {
	Name         string
	VersionCount int
	FileCount    int
}

// ProjectInfo returns a summary of the current project, or false if no
// project is loaded.
func (m *Manager) ProjectInfo() (ProjectInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.manifest == nil {
		return ProjectInfo{}, false
	}
	return ProjectInfo{
		Name:         m.manifest.Metadata.Name,
		VersionCount: len(m.manifest.VersionHistory),
		FileCount:    len(m.manifest.FileMap),
	}, true
}

// Manifest returns the current manifest snapshot (by pointer into Manager's
// state; callers must not mutate it directly through non-Manager methods).
// Returns nil if no project is loaded.
func (m *Manager) Manifest() *manifest.Manifest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.manifest
}

// readBlobRef resolves a manifest-facing contentRef string through the
// Blob Store. Callers must hold m.mu.
func (m *Manager) readBlobRef(ctx context.Context, contentRef string) ([]byte, error) {
	ref, err := blobstore.ParseRef(contentRef)
	if err != nil {
		return nil, err
	}
	return m.blobs.Get(ctx, ref)
}

// Persist serializes the current manifest to canonical JSON and writes it
// through the adapter at manifestKey, so a fresh Manager attached to the
// same adapter can pick the project back up with Reload.
func (m *Manager) Persist(ctx context.Context, manifestKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.manifest == nil {
		return ErrNoProject
	}
	data, err := json.Marshal(m.manifest)
	if err != nil {
		return fmt.Errorf("project: persist: marshaling manifest: %w", err)
	}
	if err := m.adapter.Write(ctx, manifestKey, data); err != nil {
		return fmt.Errorf("project: persist: writing manifest: %w", err)
	}
	return nil
}

// Reload re-reads whatever state is current for this project from the
// adapter, for the multi-instance "last writer wins" coexistence model of
// spec §5 (SPEC_FULL §C.4): a Manager that only reads can re-attach to a
// sibling Manager's latest checkpoint without restarting.
func (m *Manager) Reload(ctx context.Context, manifestKey string) error {
	data, err := m.adapter.Read(ctx, manifestKey)
	if err != nil {
		return err
	}

	var loaded manifest.Manifest
	if err := json.Unmarshal(data, &loaded); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifest = &loaded
	if m.workingSet == nil {
		m.workingSet = make(map[string][]byte)
	}
	return nil
}

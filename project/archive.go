package project

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"kamaros/manifest"
)

// mimetypeBody is the literal content of the archive's uncompressed first
// entry, allowing signature-sniffing the way ODF/EPUB containers do (spec
// §4.7, §6).
const mimetypeBody = "application/x-jcf"

const (
	archiveMimetypeEntry = "mimetype"
	archiveManifestEntry = "manifest.json"
	archiveContentPrefix = "content/"
	archiveStorePrefix   = ".store/"
)

// Save packages the current manifest, working set, and every blob the
// version history references into a single ZIP-shaped container, and
// writes it through the adapter at archivePath (spec §4.7 save).
func (m *Manager) Save(ctx context.Context, archivePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mf, err := m.requireProject()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	mimeWriter, err := zw.CreateHeader(&zip.FileHeader{
		Name:   archiveMimetypeEntry,
		Method: zip.Store,
	})
	if err != nil {
		return fmt.Errorf("project: save: writing mimetype entry: %w", err)
	}
	if _, err := mimeWriter.Write([]byte(mimetypeBody)); err != nil {
		return fmt.Errorf("project: save: writing mimetype entry: %w", err)
	}

	manifestBytes, err := json.Marshal(mf)
	if err != nil {
		return fmt.Errorf("project: save: marshaling manifest: %w", err)
	}
	if err := writeDeflatedEntry(zw, archiveManifestEntry, manifestBytes); err != nil {
		return fmt.Errorf("project: save: writing manifest entry: %w", err)
	}

	for path, content := range m.workingSet {
		if err := writeDeflatedEntry(zw, archiveContentPrefix+path, content); err != nil {
			return fmt.Errorf("project: save: writing content entry %q: %w", path, err)
		}
	}

	blobRefs := referencedBlobRefs(mf)
	for ref := range blobRefs {
		data, err := m.readBlobRef(ctx, ref)
		if err != nil {
			return fmt.Errorf("project: save: reading blob %q: %w", ref, err)
		}
		if err := writeDeflatedEntry(zw, archiveStorePrefix+ref, data); err != nil {
			return fmt.Errorf("project: save: writing blob entry %q: %w", ref, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("project: save: closing archive: %w", err)
	}

	if err := m.adapter.Write(ctx, archivePath, buf.Bytes()); err != nil {
		return fmt.Errorf("project: save: writing archive: %w", err)
	}
	return nil
}

// Load reads the container at archivePath, replaces the current manifest
// and working set with its contents, and writes every ".store/" entry
// through the adapter so that a subsequent restore finds its blobs without
// an out-of-band copy (spec §4.7 load).
func (m *Manager) Load(ctx context.Context, archivePath string) error {
	raw, err := m.adapter.Read(ctx, archivePath)
	if err != nil {
		return fmt.Errorf("project: load: reading archive: %w", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return fmt.Errorf("%w: not a zip container: %v", ErrInvalidArchive, err)
	}

	entries := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		entries[f.Name] = f
	}

	if _, ok := entries[archiveMimetypeEntry]; !ok {
		return fmt.Errorf("%w: missing %q", ErrInvalidArchive, archiveMimetypeEntry)
	}
	manifestEntry, ok := entries[archiveManifestEntry]
	if !ok {
		return fmt.Errorf("%w: missing %q", ErrInvalidArchive, archiveManifestEntry)
	}

	manifestBytes, err := readZipEntry(manifestEntry)
	if err != nil {
		return fmt.Errorf("project: load: reading manifest entry: %w", err)
	}
	var loaded manifest.Manifest
	if err := json.Unmarshal(manifestBytes, &loaded); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	workingSet := make(map[string][]byte)
	for name, f := range entries {
		if !strings.HasPrefix(name, archiveContentPrefix) {
			continue
		}
		path := strings.TrimPrefix(name, archiveContentPrefix)
		data, err := readZipEntry(f)
		if err != nil {
			return fmt.Errorf("project: load: reading content entry %q: %w", path, err)
		}
		workingSet[path] = data
	}

	for name, f := range entries {
		if !strings.HasPrefix(name, archiveStorePrefix) {
			continue
		}
		data, err := readZipEntry(f)
		if err != nil {
			return fmt.Errorf("project: load: reading blob entry %q: %w", name, err)
		}
		if err := m.adapter.Write(ctx, name, data); err != nil {
			return fmt.Errorf("project: load: materializing blob %q: %w", name, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifest = &loaded
	m.workingSet = workingSet
	return nil
}

// referencedBlobRefs collects the distinct contentRef strings across every
// version's file-states, so Save can materialize exactly the blobs history
// needs for portability (spec §9 ".store inclusion is required").
func referencedBlobRefs(mf *manifest.Manifest) map[string]bool {
	refs := make(map[string]bool)
	for _, v := range mf.VersionHistory {
		for _, state := range v.FileStates {
			refs[state.ContentRef] = true
		}
	}
	return refs
}

func writeDeflatedEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: zip.Deflate,
	})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

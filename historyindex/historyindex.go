// Package historyindex is an optional secondary index over a project's
// version history, backed by SQLite through mattn/go-sqlite3. It exists
// purely as a fast-lookup enrichment layer: the manifest remains the
// authoritative state (spec §4.2), and the index can always be rebuilt
// from it. Losing the index file loses nothing but query speed.
package historyindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"kamaros/manifest"
)

// Options configures the underlying SQLite connection, mirroring the shape
// the teacher's storage layer uses for its own database wrapper.
type Options struct {
	// JournalMode defaults to WAL, matching the teacher's default.
	JournalMode string
	// Synchronous defaults to NORMAL.
	Synchronous string
	// BusyTimeout defaults to 5s.
	BusyTimeout time.Duration
}

// Index is a thin wrapper around *sql.DB holding the version and tag
// lookup tables. It is safe for concurrent reads; writes should come from
// a single RebuildFromManifest caller at a time.
type Index struct {
	db *sql.DB
}

// Open creates or attaches to the SQLite database at path and ensures the
// schema exists. mattn/go-sqlite3 registers itself under the driver name
// "sqlite3" (not "sqlite"), which this package hardcodes since it has no
// reason to support an alternate driver.
func Open(path string, opts Options) (*Index, error) {
	if path == "" {
		return nil, errors.New("historyindex: empty path")
	}

	journal := opts.JournalMode
	if journal == "" {
		journal = "WAL"
	}
	syncMode := opts.Synchronous
	if syncMode == "" {
		syncMode = "NORMAL"
	}
	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("historyindex: open: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pragmas := []string{
		fmt.Sprintf("PRAGMA journal_mode=%s", journal),
		fmt.Sprintf("PRAGMA synchronous=%s", syncMode),
		fmt.Sprintf("PRAGMA busy_timeout=%d", busy.Milliseconds()),
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("historyindex: apply %s: %w", pragma, err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS versions (
			id TEXT PRIMARY KEY,
			parent_id TEXT,
			message TEXT NOT NULL,
			author TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			file_count INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tags (
			name TEXT PRIMARY KEY,
			version_id TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_versions_parent ON versions(parent_id)`,
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("historyindex: schema: %w", err)
		}
	}

	return &Index{db: db}, nil
}

// Close releases the underlying connection.
func (idx *Index) Close() error {
	if idx == nil || idx.db == nil {
		return nil
	}
	return idx.db.Close()
}

// RebuildFromManifest truncates and repopulates the index from mf. It is
// the index's only write path: callers never insert rows individually, so
// the index can never drift from a subset of a stale write.
func (idx *Index) RebuildFromManifest(ctx context.Context, mf *manifest.Manifest) error {
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("historyindex: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM versions`); err != nil {
		return fmt.Errorf("historyindex: clear versions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tags`); err != nil {
		return fmt.Errorf("historyindex: clear tags: %w", err)
	}

	insertVersion, err := tx.PrepareContext(ctx, `INSERT INTO versions (id, parent_id, message, author, timestamp, file_count) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("historyindex: prepare version insert: %w", err)
	}
	defer insertVersion.Close()

	for _, v := range mf.VersionHistory {
		var parentID any
		if v.ParentID != nil {
			parentID = *v.ParentID
		}
		if _, err := insertVersion.ExecContext(ctx, v.ID, parentID, v.Message, v.Author, v.Timestamp.Format(time.RFC3339Nano), v.FileCount()); err != nil {
			return fmt.Errorf("historyindex: insert version %q: %w", v.ID, err)
		}
	}

	insertTag, err := tx.PrepareContext(ctx, `INSERT INTO tags (name, version_id) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("historyindex: prepare tag insert: %w", err)
	}
	defer insertTag.Close()

	for name, versionID := range mf.Refs.Tags {
		if _, err := insertTag.ExecContext(ctx, name, versionID); err != nil {
			return fmt.Errorf("historyindex: insert tag %q: %w", name, err)
		}
	}

	return tx.Commit()
}

// VersionSummary is the row-shaped projection LookupVersion returns.
type VersionSummary struct {
	ID        string
	ParentID  string
	Message   string
	Author    string
	Timestamp string
	FileCount int
}

// LookupVersion finds a version by id without walking the full manifest
// history in memory, which matters once a project accumulates enough
// versions that a linear scan becomes the bottleneck.
func (idx *Index) LookupVersion(ctx context.Context, id string) (VersionSummary, bool, error) {
	row := idx.db.QueryRowContext(ctx, `SELECT id, COALESCE(parent_id, ''), message, author, timestamp, file_count FROM versions WHERE id = ?`, id)

	var s VersionSummary
	if err := row.Scan(&s.ID, &s.ParentID, &s.Message, &s.Author, &s.Timestamp, &s.FileCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return VersionSummary{}, false, nil
		}
		return VersionSummary{}, false, fmt.Errorf("historyindex: lookup version: %w", err)
	}
	return s, true, nil
}

// LookupTag resolves a tag name to a version id through the index.
func (idx *Index) LookupTag(ctx context.Context, name string) (string, bool, error) {
	row := idx.db.QueryRowContext(ctx, `SELECT version_id FROM tags WHERE name = ?`, name)

	var versionID string
	if err := row.Scan(&versionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("historyindex: lookup tag: %w", err)
	}
	return versionID, true, nil
}

package manifest

import (
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// Manifest is the local sidecar index of uploads. It decouples lifetime
// tracking from the stored leaf name: the remote repository stays the
// source of truth for what exists, the manifest records when each path
// was uploaded. Entries missing here (uploads made by older deployments)
// fall back to name decoding.
type Manifest struct {
	db *sql.DB
}

// Record is one tracked upload.
type Record struct {
	Path       string
	FileName   string
	UploadedAt int64 // unix millis
	Size       int64
	SHA        string
}

// Open opens (and if needed initializes) the manifest database.
func Open(dbPath string) (*Manifest, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS uploads (
		path        TEXT PRIMARY KEY,
		file_name   TEXT NOT NULL,
		uploaded_at INTEGER NOT NULL,
		size        INTEGER NOT NULL DEFAULT 0,
		sha         TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_uploads_uploaded_at ON uploads(uploaded_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Manifest{db: db}, nil
}

// Put records an upload, replacing any previous record for the same
// path (last write wins, matching the remote store's overwrite
// semantics).
func (m *Manifest) Put(rec Record) error {
	_, err := m.db.Exec(
		`INSERT OR REPLACE INTO uploads (path, file_name, uploaded_at, size, sha)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.Path, rec.FileName, rec.UploadedAt, rec.Size, rec.SHA,
	)
	return err
}

// Get returns the record for a path, or nil when the path is not
// tracked.
func (m *Manifest) Get(path string) (*Record, error) {
	var rec Record
	err := m.db.QueryRow(
		`SELECT path, file_name, uploaded_at, size, sha FROM uploads WHERE path = ?`,
		path,
	).Scan(&rec.Path, &rec.FileName, &rec.UploadedAt, &rec.Size, &rec.SHA)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete drops the record for a path. Deleting an untracked path is a
// no-op.
func (m *Manifest) Delete(path string) error {
	_, err := m.db.Exec(`DELETE FROM uploads WHERE path = ?`, path)
	return err
}

// List returns every tracked upload, oldest first.
func (m *Manifest) List() ([]Record, error) {
	rows, err := m.db.Query(
		`SELECT path, file_name, uploaded_at, size, sha FROM uploads ORDER BY uploaded_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Path, &rec.FileName, &rec.UploadedAt, &rec.Size, &rec.SHA); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (m *Manifest) Close() error {
	return m.db.Close()
}

// Package store persists deployment records, the orchestrator's memory of
// the last known-good version per service target. Records are written only
// on successful deployment and read during rollback.
package store

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the records database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open records database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to records database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenInDir opens the database under the given directory with the default
// file name.
func OpenInDir(dir, name string) (*Store, error) {
	return Open(filepath.Join(dir, name))
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS deployments (
    id TEXT NOT NULL,                      -- ULID of the pipeline run
    environment TEXT NOT NULL,
    service TEXT NOT NULL,
    image_ref TEXT NOT NULL,
    version TEXT NOT NULL,                 -- version identifier baked into the image tag
    rolled_back_from TEXT,                 -- version this record replaced during a rollback
    created_at TEXT NOT NULL,              -- RFC 3339
    PRIMARY KEY (id, service)
);

CREATE INDEX IF NOT EXISTS idx_deployments_env_service
    ON deployments(environment, service, created_at);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create deployments table: %w", err)
	}
	return nil
}

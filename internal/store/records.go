package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Record is one service target's deployed version within a pipeline run.
type Record struct {
	ID             string
	Environment    string
	Service        string
	ImageRef       string
	Version        string
	RolledBackFrom *string
	CreatedAt      time.Time
}

// ErrNoRecord is returned when no deployment record exists for a service.
// Rollback treats this as a double-fault: there is nothing to roll back to.
var ErrNoRecord = errors.New("no deployment record")

// SaveRecord inserts a record. Called only after a fully successful
// deployment of the service.
func (s *Store) SaveRecord(record Record) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO deployments (id, environment, service, image_ref, version, rolled_back_from, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query,
		record.ID, record.Environment, record.Service, record.ImageRef,
		record.Version, record.RolledBackFrom, record.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save deployment record for %s: %w", record.Service, err)
	}
	return nil
}

// LatestSuccessful returns the most recent record for a service in an
// environment, or ErrNoRecord.
func (s *Store) LatestSuccessful(environment, service string) (Record, error) {
	query := `SELECT id, environment, service, image_ref, version, rolled_back_from, created_at
              FROM deployments
              WHERE environment = ? AND service = ?
              ORDER BY created_at DESC, id DESC
              LIMIT 1`
	record, err := scanRecord(s.db.QueryRow(query, environment, service))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("%w for service %s in %s", ErrNoRecord, service, environment)
		}
		return Record{}, fmt.Errorf("failed to load deployment record for %s: %w", service, err)
	}
	return record, nil
}

// LatestBefore returns the most recent record for a service whose version
// differs from the given one. Used by rollback so the known-good target is
// never the currently failing version.
func (s *Store) LatestBefore(environment, service, failingVersion string) (Record, error) {
	query := `SELECT id, environment, service, image_ref, version, rolled_back_from, created_at
              FROM deployments
              WHERE environment = ? AND service = ? AND version != ?
              ORDER BY created_at DESC, id DESC
              LIMIT 1`
	record, err := scanRecord(s.db.QueryRow(query, environment, service, failingVersion))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("%w for service %s in %s distinct from version %s",
				ErrNoRecord, service, environment, failingVersion)
		}
		return Record{}, fmt.Errorf("failed to load deployment record for %s: %w", service, err)
	}
	return record, nil
}

// History returns records for an environment, newest first.
func (s *Store) History(environment string, limit int) ([]Record, error) {
	query := `SELECT id, environment, service, image_ref, version, rolled_back_from, created_at
              FROM deployments
              WHERE environment = ?
              ORDER BY created_at DESC, id DESC, service
              LIMIT ?`
	rows, err := s.db.Query(query, environment, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load deployment history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deployment record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Prune keeps the newest keep runs per service in an environment and drops
// the rest.
func (s *Store) Prune(environment string, keep int) error {
	query := `DELETE FROM deployments
              WHERE environment = ?
                AND id NOT IN (
                    SELECT d.id FROM deployments AS d
                    WHERE d.environment = ? AND d.service = deployments.service
                    ORDER BY d.created_at DESC, d.id DESC
                    LIMIT ?
                )`
	if _, err := s.db.Exec(query, environment, environment, keep); err != nil {
		return fmt.Errorf("failed to prune old deployment records: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var record Record
	var createdAt string
	if err := row.Scan(&record.ID, &record.Environment, &record.Service,
		&record.ImageRef, &record.Version, &record.RolledBackFrom, &createdAt); err != nil {
		return Record{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Record{}, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	record.CreatedAt = t
	return record, nil
}

// Package storage persists dataset snapshots to SQLite so the service can
// serve the last good report across restarts and keep a bounded history of
// fetches. The computation engines never read from here directly; they
// operate on the record slice of whichever snapshot the caller hands them.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/snackclub/snackboard/internal/models"
)

// ErrNoSnapshots is returned by LatestSnapshot when nothing has been saved.
var ErrNoSnapshots = errors.New("no snapshots stored")

// Storage is a SQLite-backed snapshot store. Use ":memory:" as the path
// for an ephemeral store in tests.
type Storage struct {
	db           *sql.DB
	maxSnapshots int
	mu           sync.Mutex
}

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id          TEXT PRIMARY KEY,
	fetched_at  TEXT NOT NULL,
	source      TEXT NOT NULL,
	snack_names TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS records (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	person      TEXT NOT NULL,
	snack_id    TEXT NOT NULL,
	scores      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_snapshot ON records(snapshot_id, seq);
`

// New opens (and if needed creates) the snapshot database at path.
func New(path string, maxSnapshots int) (*Storage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Serialize access through a single connection; the store's own mutex
	// guards writes, and modernc's driver has no shared cache for :memory:.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Storage{db: db, maxSnapshots: maxSnapshots}, nil
}

// SaveSnapshot persists a snapshot and its records, then drops the oldest
// snapshots beyond the configured maximum.
func (s *Storage) SaveSnapshot(snap *models.Snapshot, categories []string) error {
	if err := snap.Validate(categories); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	namesJSON, err := json.Marshal(snap.SnackNames)
	if err != nil {
		return fmt.Errorf("failed to marshal snack names: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO snapshots (id, fetched_at, source, snack_names) VALUES (?, ?, ?, ?)",
		snap.ID, snap.FetchedAt.UTC().Format(time.RFC3339Nano), snap.Source, string(namesJSON),
	); err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	for i, record := range snap.Records {
		scoresJSON, err := json.Marshal(record.Scores)
		if err != nil {
			return fmt.Errorf("failed to marshal scores: %w", err)
		}
		if _, err := tx.Exec(
			"INSERT INTO records (snapshot_id, seq, person, snack_id, scores) VALUES (?, ?, ?, ?, ?)",
			snap.ID, i, record.Person, record.SnackID, string(scoresJSON),
		); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	if _, err := tx.Exec(
		`DELETE FROM snapshots WHERE id NOT IN (
			SELECT id FROM snapshots ORDER BY fetched_at DESC LIMIT ?
		)`, s.maxSnapshots,
	); err != nil {
		return fmt.Errorf("failed to rotate snapshots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recently fetched snapshot, or
// ErrNoSnapshots when the store is empty.
func (s *Storage) LatestSnapshot() (*models.Snapshot, error) {
	row := s.db.QueryRow(
		"SELECT id, fetched_at, source, snack_names FROM snapshots ORDER BY fetched_at DESC LIMIT 1",
	)

	var snap models.Snapshot
	var fetchedAt, namesJSON string
	if err := row.Scan(&snap.ID, &fetchedAt, &snap.Source, &namesJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSnapshots
		}
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fetched_at: %w", err)
	}
	snap.FetchedAt = t

	if err := json.Unmarshal([]byte(namesJSON), &snap.SnackNames); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snack names: %w", err)
	}

	records, err := s.loadRecords(snap.ID)
	if err != nil {
		return nil, err
	}
	snap.Records = records

	return &snap, nil
}

// SnapshotCount returns the number of stored snapshots.
func (s *Storage) SnapshotCount() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return count, nil
}

func (s *Storage) loadRecords(snapshotID string) ([]models.RatingRecord, error) {
	rows, err := s.db.Query(
		"SELECT person, snack_id, scores FROM records WHERE snapshot_id = ? ORDER BY seq",
		snapshotID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []models.RatingRecord
	for rows.Next() {
		var record models.RatingRecord
		var scoresJSON string
		if err := rows.Scan(&record.Person, &record.SnackID, &scoresJSON); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if err := json.Unmarshal([]byte(scoresJSON), &record.Scores); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scores: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (s *Storage) Close() error {
	return s.db.Close()
}

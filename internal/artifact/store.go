package artifact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists rendered artifacts in an in-memory sqlite database. One
// row exists per (job, format, options) key; a new version overwrites the
// stale row, so the table never grows beyond one artifact per key.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	job_id     TEXT NOT NULL,
	format     TEXT NOT NULL,
	opts       TEXT NOT NULL,
	version    INTEGER NOT NULL,
	payload    BLOB NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (job_id, format, opts)
);
CREATE INDEX IF NOT EXISTS idx_artifacts_job ON artifacts(job_id);
`

// OpenStore creates the in-memory database and its schema. The single shared
// connection serializes writers, which sqlite requires anyway.
func OpenStore() (*Store, error) {
	db, err := sql.Open("sqlite", "file:vectra-artifacts?mode=memory&cache=shared&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening artifact store: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating artifact schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Get returns the payload for the key if its stamp matches version. A row
// with a different stamp is a stale artifact and reads as a miss.
func (s *Store) Get(ctx context.Context, jobID, format, opts string, version uint64) ([]byte, bool, error) {
	var payload []byte
	var stored int64
	err := s.db.QueryRowContext(ctx,
		`SELECT version, payload FROM artifacts WHERE job_id = ? AND format = ? AND opts = ?`,
		jobID, format, opts).Scan(&stored, &payload)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("reading artifact: %w", err)
	case uint64(stored) != version:
		return nil, false, nil
	default:
		return payload, true, nil
	}
}

// Put stores the payload, replacing any previous version for the key.
func (s *Store) Put(ctx context.Context, jobID, format, opts string, version uint64, payload []byte) error {
	err := s.execRetry(ctx,
		`INSERT OR REPLACE INTO artifacts (job_id, format, opts, version, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		jobID, format, opts, int64(version), payload, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("storing artifact: %w", err)
	}
	return nil
}

// EvictJob removes every artifact belonging to the job.
func (s *Store) EvictJob(ctx context.Context, jobID string) error {
	if err := s.execRetry(ctx, `DELETE FROM artifacts WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("evicting artifacts: %w", err)
	}
	return nil
}

// execRetry retries briefly on lock contention.
func (s *Store) execRetry(ctx context.Context, query string, args ...any) error {
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		if _, err = s.db.ExecContext(ctx, query, args...); err == nil {
			return nil
		}
		if !isBusy(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 10 * time.Millisecond):
		}
	}
	return err
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// sqliteBusyTimeout is the SQLite busy handler timeout in milliseconds.
const sqliteBusyTimeout = 5000

const sqliteSchema = `CREATE TABLE IF NOT EXISTS audit_records (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp      TEXT NOT NULL,
	target         TEXT NOT NULL,
	action         TEXT NOT NULL,
	arguments      TEXT NOT NULL DEFAULT '',
	classification TEXT NOT NULL,
	outcome        TEXT NOT NULL,
	task_id        TEXT NOT NULL DEFAULT '',
	detail         TEXT NOT NULL DEFAULT ''
)`

// SQLiteSink persists audit records to a SQLite table. The table is
// insert-only; no update or delete statements exist in this package.
type SQLiteSink struct {
	db       *sql.DB
	redactor *Redactor
	now      func() time.Time
}

// OpenSQLiteSink opens (or creates) a SQLite database at path and migrates
// the audit schema. The database uses WAL mode and a single connection,
// since SQLite serialises writes anyway.
func OpenSQLiteSink(path string, redactor *Redactor) (*SQLiteSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("audit: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", sqliteBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: set busy_timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: migrate schema: %w", err)
	}

	return &SQLiteSink{db: db, redactor: redactor, now: time.Now}, nil
}

// Append implements Sink.
func (s *SQLiteSink) Append(ctx context.Context, rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	rec = s.redactor.RedactRecord(rec)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_records
			(timestamp, target, action, arguments, classification, outcome, task_id, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.Target,
		rec.Action,
		string(rec.Arguments),
		string(rec.Classification),
		string(rec.Outcome),
		rec.TaskID,
		rec.Detail,
	)
	if err != nil {
		return fmt.Errorf("audit: insert record: %w", err)
	}
	return nil
}

// Close implements Sink.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// Count returns the number of stored records. Used by the admin surface
// and tests.
func (s *SQLiteSink) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_records").Scan(&n); err != nil {
		return 0, fmt.Errorf("audit: count records: %w", err)
	}
	return n, nil
}

// Package history keeps a journal of login attempts in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Pure-Go SQLite driver registered as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/yllada/portal-login/common"
)

// Entry is one recorded login attempt.
type Entry struct {
	ID        string
	Username  string
	Outcome   string
	Reason    string
	Attempt   int
	Headless  bool
	StartedAt time.Time
	Duration  time.Duration
}

// Journal stores attempt entries.
type Journal interface {
	Record(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// SQLiteJournal implements Journal on a SQLite database.
type SQLiteJournal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal at path.
func Open(path string) (*SQLiteJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	j, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// OpenDefault opens the journal in the configuration directory.
func OpenDefault() (*SQLiteJournal, error) {
	dir, err := common.GetConfigDir()
	if err != nil {
		return nil, err
	}
	return Open(filepath.Join(dir, common.HistoryFileName))
}

// New wraps an open database and creates the schema.
func New(db *sql.DB) (*SQLiteJournal, error) {
	j := &SQLiteJournal{db: db}
	if err := j.ensureSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return j, nil
}

func (j *SQLiteJournal) ensureSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS login_attempts (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			outcome TEXT NOT NULL,
			reason TEXT,
			attempt INTEGER NOT NULL DEFAULT 1,
			headless INTEGER NOT NULL DEFAULT 0,
			started_at INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_attempts_started ON login_attempts(started_at);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record stores e. A missing ID is generated.
func (j *SQLiteJournal) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = common.GenerateID()
	}
	headless := 0
	if e.Headless {
		headless = 1
	}

	query := `
		INSERT INTO login_attempts (id, username, outcome, reason, attempt, headless, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := j.db.ExecContext(ctx, query,
		e.ID,
		e.Username,
		e.Outcome,
		e.Reason,
		e.Attempt,
		headless,
		e.StartedAt.UnixMilli(),
		e.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	query := `
		SELECT id, username, outcome, reason, attempt, headless, started_at, duration_ms
		FROM login_attempts
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`
	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			reason     sql.NullString
			headless   int
			startedAt  int64
			durationMs int64
		)
		if err := rows.Scan(&e.ID, &e.Username, &e.Outcome, &reason, &e.Attempt, &headless, &startedAt, &durationMs); err != nil {
			return nil, err
		}
		e.Reason = reason.String
		e.Headless = headless != 0
		e.StartedAt = time.UnixMilli(startedAt)
		e.Duration = time.Duration(durationMs) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

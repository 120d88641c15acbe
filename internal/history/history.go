// Package history keeps a SQLite ledger of every job the watcher has
// observed. The spooler forgets jobs the moment they finish; the ledger
// answers "what printed last night" after the queue has drained.
package history

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/msageha/cupswatch/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id               TEXT PRIMARY KEY,
	owner            TEXT NOT NULL DEFAULT '',
	status_text      TEXT NOT NULL DEFAULT '',
	file_description TEXT NOT NULL DEFAULT '',
	submitted_at     INTEGER,
	first_seen       INTEGER NOT NULL,
	last_seen        INTEGER NOT NULL,
	gone_at          INTEGER
);
CREATE INDEX IF NOT EXISTS idx_jobs_owner ON jobs(owner);
CREATE INDEX IF NOT EXISTS idx_jobs_last_seen ON jobs(last_seen);
`

// Entry is one remembered job.
type Entry struct {
	ID              string
	Owner           string
	StatusText      string
	FileDescription string
	SubmittedAt     *time.Time
	FirstSeen       time.Time
	LastSeen        time.Time
	// GoneAt is when the job vanished from a listing: completed or
	// cancelled, the spooler does not say which. Nil while still queued.
	GoneAt *time.Time
}

// Store is the ledger. Safe for one writer; the daemon's refresh path is
// already serialized, which is the only writer.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordSnapshot folds one snapshot into the ledger: jobs in the
// snapshot are inserted or touched, and previously-active jobs missing
// from it are marked gone as of the snapshot's capture time.
func (s *Store) RecordSnapshot(snap *model.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer tx.Rollback()

	seen := snap.CapturedAt.Unix()
	for _, j := range snap.Jobs {
		var submitted any
		if j.HasSubmittedAt() {
			submitted = j.SubmittedAt.Unix()
		}
		_, err := tx.Exec(`
			INSERT INTO jobs (id, owner, status_text, file_description, submitted_at, first_seen, last_seen)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				owner = excluded.owner,
				status_text = excluded.status_text,
				file_description = excluded.file_description,
				last_seen = excluded.last_seen,
				gone_at = NULL
		`, j.ID, j.Owner, j.StatusText, j.FileDescription, submitted, seen, seen)
		if err != nil {
			return fmt.Errorf("upsert job %s: %w", j.ID, err)
		}
	}

	if err := markGone(tx, snap, seen); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history tx: %w", err)
	}
	return nil
}

func markGone(tx *sql.Tx, snap *model.Snapshot, seen int64) error {
	query := "UPDATE jobs SET gone_at = ? WHERE gone_at IS NULL"
	args := []any{seen}

	if len(snap.Jobs) > 0 {
		placeholders := strings.Repeat("?,", len(snap.Jobs))
		query += " AND id NOT IN (" + placeholders[:len(placeholders)-1] + ")"
		for _, j := range snap.Jobs {
			args = append(args, j.ID)
		}
	}

	if _, err := tx.Exec(query, args...); err != nil {
		return fmt.Errorf("mark gone jobs: %w", err)
	}
	return nil
}

// Recent returns the most recently seen jobs, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, owner, status_text, file_description, submitted_at, first_seen, last_seen, gone_at
		FROM jobs ORDER BY last_seen DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Active returns jobs last seen still queued, oldest first.
func (s *Store) Active() ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT id, owner, status_text, file_description, submitted_at, first_seen, last_seen, gone_at
		FROM jobs WHERE gone_at IS NULL ORDER BY first_seen ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query active history: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var submitted, gone sql.NullInt64
		var first, last int64
		if err := rows.Scan(&e.ID, &e.Owner, &e.StatusText, &e.FileDescription,
			&submitted, &first, &last, &gone); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.FirstSeen = time.Unix(first, 0)
		e.LastSeen = time.Unix(last, 0)
		if submitted.Valid {
			ts := time.Unix(submitted.Int64, 0)
			e.SubmittedAt = &ts
		}
		if gone.Valid {
			ts := time.Unix(gone.Int64, 0)
			e.GoneAt = &ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

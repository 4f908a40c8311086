// Package history persists update outcomes in a local SQLite database so the
// shell can show what happened across restarts.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "autoupdater/internal/errors"
	"autoupdater/internal/update"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DefaultLimit is how many events Recent returns when limit <= 0.
const DefaultLimit = 20

// timeLayout is fixed width so created_at sorts lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS update_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	from_version TEXT NOT NULL DEFAULT '',
	to_version TEXT NOT NULL DEFAULT '',
	detail TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_update_events_created ON update_events(created_at);
`

// Store is a SQLite-backed update.Recorder.
type Store struct {
	db   *sql.DB
	path string
}

var _ update.Recorder = (*Store)(nil)

// Open creates (if needed) and opens the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, historyError("open history", fmt.Errorf("empty database path"))
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o750); err != nil {
		return nil, historyError("create history directory", err)
	}

	db, err := sql.Open("sqlite", buildDSN(trimmed))
	if err != nil {
		return nil, historyError("open history db", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, historyError("ping history db", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, historyError("migrate history db", err)
	}
	return &Store{db: db, path: trimmed}, nil
}

// buildDSN creates a read-write WAL DSN for the given path.
func buildDSN(dbPath string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(dbPath),
	}
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(3000)")
	q.Add("_pragma", "journal_mode(WAL)")
	u.RawQuery = q.Encode()
	return u.String()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Record appends ev. A zero timestamp is replaced with the current time.
func (s *Store) Record(ctx context.Context, ev update.Event) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO update_events (kind, from_version, to_version, detail, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, string(ev.Kind), ev.FromVersion, ev.ToVersion, ev.Detail, at.UTC().Format(timeLayout))
	if err != nil {
		return historyError("record event", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]update.Event, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, from_version, to_version, detail, created_at
		FROM update_events
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, historyError("query events", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var events []update.Event
	for rows.Next() {
		var (
			ev      update.Event
			kind    string
			created string
		)
		if err := rows.Scan(&kind, &ev.FromVersion, &ev.ToVersion, &ev.Detail, &created); err != nil {
			return nil, historyError("scan event", err)
		}
		ev.Kind = update.EventKind(kind)
		if t, err := time.Parse(timeLayout, created); err == nil {
			ev.At = t
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, historyError("iterate events", err)
	}
	return events, nil
}

// Prune deletes events older than cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM update_events WHERE created_at < ?`,
		cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, historyError("prune events", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, historyError("prune events", err)
	}
	return n, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func historyError(msg string, err error) error {
	return apperrors.New(apperrors.CodeHistory, msg, err)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dkassen/procmate/internal/history"
)

// Store implements history.Sink backed by SQLite (modernc.org/sqlite
// driver, CGO-free). Unlike the network sinks it also supports reading
// events back for diagnostic display.
// DSN is a filesystem path to the database file; ":memory:" works too.

type Store struct {
	db *sql.DB
}

// New opens a SQLite database at path and ensures the schema.
func New(path string) (*Store, error) {
	p := strings.TrimSpace(strings.TrimPrefix(path, "sqlite://"))
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	s := &Store{db: d}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = d.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS process_events(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL,
			key TEXT NOT NULL,
			pid INTEGER NOT NULL,
			occurred_at TIMESTAMP NOT NULL,
			exit_code INTEGER NULL,
			detail TEXT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_process_events_key ON process_events(key);`,
		`CREATE INDEX IF NOT EXISTS idx_process_events_at ON process_events(occurred_at);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Send(ctx context.Context, e history.Event) error {
	var code sql.NullInt64
	if e.ExitCode != nil {
		code = sql.NullInt64{Int64: int64(*e.ExitCode), Valid: true}
	}
	var detail sql.NullString
	if e.Detail != "" {
		detail = sql.NullString{String: e.Detail, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO process_events(type, key, pid, occurred_at, exit_code, detail)
		VALUES(?, ?, ?, ?, ?, ?);`,
		string(e.Type), e.Key, e.PID, e.OccurredAt.UTC(), code, detail)
	return err
}

// Recent returns up to limit events for key, newest first.
func (s *Store) Recent(ctx context.Context, key string, limit int) ([]history.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, key, pid, occurred_at, exit_code, detail
		FROM process_events WHERE key = ?
		ORDER BY id DESC LIMIT ?;`, key, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []history.Event
	for rows.Next() {
		var (
			e      history.Event
			typ    string
			at     time.Time
			code   sql.NullInt64
			detail sql.NullString
		)
		if err := rows.Scan(&typ, &e.Key, &e.PID, &at, &code, &detail); err != nil {
			return nil, err
		}
		e.Type = history.EventType(typ)
		e.OccurredAt = at
		if code.Valid {
			c := int(code.Int64)
			e.ExitCode = &c
		}
		e.Detail = detail.String
		out = append(out, e)
	}
	return out, rows.Err()
}

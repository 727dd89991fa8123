package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/suykerbuyk/bargain-timeline/internal/negotiation"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	seq         INTEGER NOT NULL,
	article     TEXT    NOT NULL,
	topic       TEXT    NOT NULL DEFAULT '',
	date        TEXT    NOT NULL,
	party       TEXT    NOT NULL,
	description TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS events_article_date ON events (article, date, seq);
CREATE TABLE IF NOT EXISTS imports (
	id          TEXT    PRIMARY KEY,
	source      TEXT    NOT NULL,
	imported_at TEXT    NOT NULL,
	events      INTEGER NOT NULL,
	malformed   INTEGER NOT NULL
);
`

// Store persists the change log in a sqlite database so the timeline can be
// rebuilt without the original CSV.
type Store struct {
	db *sql.DB
}

// Import describes one ReplaceEvents call.
type Import struct {
	ID         string
	Source     string
	ImportedAt time.Time
	Events     int
	Malformed  int
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// One connection keeps :memory: databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceEvents swaps the stored log for events in a single transaction and
// records the import. The log is always replaced whole, never patched.
func (s *Store) ReplaceEvents(ctx context.Context, source string, events []negotiation.Event, malformed int) (Import, error) {
	imp := Import{
		ID:         uuid.NewString(),
		Source:     source,
		ImportedAt: time.Now().UTC(),
		Events:     len(events),
		Malformed:  malformed,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Import{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return Import{}, fmt.Errorf("clear events: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (seq, article, topic, date, party, description)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return Import{}, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx,
			e.Seq, e.Article, e.Topic, negotiation.FormatDate(e.Date), e.Party.String(), e.Description,
		); err != nil {
			return Import{}, fmt.Errorf("insert %s/%s: %w", e.Article, negotiation.FormatDate(e.Date), err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO imports (id, source, imported_at, events, malformed)
		VALUES (?, ?, ?, ?, ?)
	`, imp.ID, imp.Source, imp.ImportedAt.Format(time.RFC3339), imp.Events, imp.Malformed); err != nil {
		return Import{}, fmt.Errorf("record import: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Import{}, fmt.Errorf("commit: %w", err)
	}
	return imp, nil
}

// Events returns the stored log ordered by (article, date, seq).
func (s *Store) Events(ctx context.Context) ([]negotiation.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, article, topic, date, party, description
		FROM events
		ORDER BY article ASC, date ASC, seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []negotiation.Event
	for rows.Next() {
		var (
			e           negotiation.Event
			date, party string
		)
		if err := rows.Scan(&e.Seq, &e.Article, &e.Topic, &date, &party, &e.Description); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if e.Date, err = negotiation.ParseDate(date); err != nil {
			return nil, fmt.Errorf("stored event %s: %w", e.Article, err)
		}
		if e.Party, err = negotiation.ParseParty(party); err != nil {
			return nil, fmt.Errorf("stored event %s: %w", e.Article, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// LastImport returns the most recent import, or ok=false when the store is empty.
func (s *Store) LastImport(ctx context.Context) (Import, bool, error) {
	var (
		imp Import
		at  string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source, imported_at, events, malformed
		FROM imports
		ORDER BY imported_at DESC, rowid DESC
		LIMIT 1
	`).Scan(&imp.ID, &imp.Source, &at, &imp.Events, &imp.Malformed)
	if errors.Is(err, sql.ErrNoRows) {
		return Import{}, false, nil
	}
	if err != nil {
		return Import{}, false, fmt.Errorf("query last import: %w", err)
	}
	if imp.ImportedAt, err = time.Parse(time.RFC3339, at); err != nil {
		return Import{}, false, fmt.Errorf("parse import time: %w", err)
	}
	return imp, true, nil
}

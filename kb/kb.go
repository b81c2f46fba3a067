// Package kb persists the changes made to provers in SQLite, so a knowledge
// base survives restarts.
package kb

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"prolog4go/prolog"
)

type Entry struct {
	ID     string
	Prover string
	Kind   prolog.EntryKind
	Text   string
	At     time.Time
}

// Store is a prolog.Journal backed by SQLite. Entry ids are monotonic ULIDs,
// so id order is recording order.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

var _ prolog.Journal = (*Store)(nil)

// Open opens the database at path with WAL mode enabled, creating it when
// needed. ":memory:" gives a private in-memory store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every connection would get its own database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{
		db:      db,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS entries (
	id TEXT PRIMARY KEY,
	prover TEXT NOT NULL,
	kind TEXT NOT NULL,
	text TEXT NOT NULL,
	recorded_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_prover ON entries(prover, id);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

func (s *Store) newID(now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), s.entropy).String()
}

// Record appends an entry for prover.
func (s *Store) Record(ctx context.Context, prover string, kind prolog.EntryKind, text string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO entries (id, prover, kind, text, recorded_at) VALUES (?, ?, ?, ?, ?)",
		s.newID(now), prover, string(kind), text, now.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record %s entry for %s: %w", kind, prover, err)
	}
	return nil
}

// Entries returns the entries of prover in recording order.
func (s *Store) Entries(ctx context.Context, prover string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, prover, kind, text, recorded_at FROM entries WHERE prover = ? ORDER BY id", prover)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var kind, at string
		if err := rows.Scan(&e.ID, &e.Prover, &kind, &e.Text, &at); err != nil {
			return nil, err
		}
		e.Kind = prolog.EntryKind(kind)
		if e.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Provers lists the provers that have entries.
func (s *Store) Provers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT prover FROM entries ORDER BY prover")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Clear deletes every entry of prover.
func (s *Store) Clear(ctx context.Context, prover string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE prover = ?", prover)
	return err
}

// Restore replays the entries recorded under p's name into p, without
// recording them again. It returns how many entries were applied.
func (s *Store) Restore(ctx context.Context, p *prolog.Prover) (int, error) {
	entries, err := s.Entries(ctx, p.Name())
	if err != nil {
		return 0, err
	}
	for i, e := range entries {
		if err := p.Replay(ctx, e.Kind, e.Text); err != nil {
			return i, fmt.Errorf("replay entry %s: %w", e.ID, err)
		}
	}
	return len(entries), nil
}

// Package store persists player solutions in SQLite.
//
// Solutions are keyed by level id and name; saving a solution under an
// existing key replaces it. The replay log is stored as its JSON envelope so
// rows stay readable with the sqlite3 shell.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/cryptex/internal/entity"
	"github.com/dshills/cryptex/internal/level"
	"github.com/dshills/cryptex/internal/replay"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no solution matches.
var ErrNotFound = errors.New("solution not found")

// Entry is a stored solution with its bookkeeping columns.
type Entry struct {
	Solution level.Solution
	Hash     string
	SavedAt  time.Time
}

// Store is a SQLite-backed solution store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens the database at dsn and creates the schema if needed.
// ":memory:" gives a private in-memory store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	// Each connection to :memory: is its own database.
	db.SetMaxOpenConns(1)
	s, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and migrates it.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	s := &Store{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

var schema = []string{`
	CREATE TABLE IF NOT EXISTS solutions (
		level_id TEXT NOT NULL,
		name     TEXT NOT NULL,
		score    INTEGER,
		hash     TEXT NOT NULL,
		log      JSON NOT NULL,
		saved_at TEXT NOT NULL,
		PRIMARY KEY (level_id, name)
	);`,
	`CREATE INDEX IF NOT EXISTS solutions_by_score ON solutions (level_id, score);`,
}

func (s *Store) migrate(ctx context.Context) error {
	for _, query := range schema {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// Save validates sol against lvl and stores it, replacing any solution with
// the same level and name. The stored hash is the hash of the layer the
// solution produces.
func (s *Store) Save(ctx context.Context, lvl level.Level, sol level.Solution) (Entry, error) {
	if err := sol.Validate(lvl); err != nil {
		return Entry{}, err
	}
	out, err := replay.Apply(lvl.Base, sol.Log)
	if err != nil {
		return Entry{}, err
	}
	hash, err := replay.Hash(out)
	if err != nil {
		return Entry{}, err
	}
	logJSON, err := json.Marshal(sol.Log)
	if err != nil {
		return Entry{}, fmt.Errorf("encode log: %w", err)
	}

	var score sql.NullInt64
	if sol.Score != nil {
		score = sql.NullInt64{Int64: int64(*sol.Score), Valid: true}
	}
	savedAt := s.now().UTC()

	query := `INSERT INTO solutions (level_id, name, score, hash, log, saved_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (level_id, name) DO UPDATE SET
		score = excluded.score,
		hash = excluded.hash,
		log = excluded.log,
		saved_at = excluded.saved_at`
	_, err = s.db.ExecContext(ctx, query,
		sol.LevelID.String(), sol.Name, score, hash, string(logJSON), savedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to save solution %q: %w", sol.Name, err)
	}
	return Entry{Solution: sol, Hash: hash, SavedAt: savedAt}, nil
}

// Get returns the named solution for a level.
func (s *Store) Get(ctx context.Context, levelID entity.ID, name string) (Entry, error) {
	query := `
	SELECT level_id, name, score, hash, log, saved_at
	FROM solutions
	WHERE level_id = ? AND name = ?`
	return scanEntry(s.db.QueryRowContext(ctx, query, levelID.String(), name))
}

// List returns every solution for a level, best score first. Unscored
// solutions sort last, then by name.
func (s *Store) List(ctx context.Context, levelID entity.ID) ([]Entry, error) {
	query := `
	SELECT level_id, name, score, hash, log, saved_at
	FROM solutions
	WHERE level_id = ?
	ORDER BY score IS NULL, score, name`
	rows, err := s.db.QueryContext(ctx, query, levelID.String())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Best returns the lowest-scoring solution for a level.
func (s *Store) Best(ctx context.Context, levelID entity.ID) (Entry, error) {
	query := `
	SELECT level_id, name, score, hash, log, saved_at
	FROM solutions
	WHERE level_id = ? AND score IS NOT NULL
	ORDER BY score, name
	LIMIT 1`
	return scanEntry(s.db.QueryRowContext(ctx, query, levelID.String()))
}

// Delete removes the named solution.
func (s *Store) Delete(ctx context.Context, levelID entity.ID, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM solutions WHERE level_id = ? AND name = ?`, levelID.String(), name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, levelID, name)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		levelID string
		name    string
		score   sql.NullInt64
		hash    string
		logJSON string
		savedAt string
	)
	if err := row.Scan(&levelID, &name, &score, &hash, &logJSON, &savedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}

	id, err := entity.ParseID(levelID)
	if err != nil {
		return Entry{}, fmt.Errorf("solution %q: %w", name, err)
	}
	var log replay.Log
	if err := json.Unmarshal([]byte(logJSON), &log); err != nil {
		return Entry{}, fmt.Errorf("solution %q: decode log: %w", name, err)
	}
	e := Entry{
		Solution: level.Solution{Name: name, LevelID: id, Log: log},
		Hash:     hash,
		SavedAt:  parseTime(savedAt),
	}
	if score.Valid {
		v := int(score.Int64)
		e.Solution.Score = &v
	}
	return e, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

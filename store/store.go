// Package store persists a local genome library: named genome sources plus
// the saved runs they produced. Runs carry the full snapshot timeline in its
// wire encoding, so a stored run can be scrubbed or diffed later without
// re-executing the genome.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a genome or run does not exist.
var ErrNotFound = errors.New("store: not found")

// Genome is one library entry: a named genome source.
type Genome struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Source      string    `db:"source"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Run is one saved execution of a genome. Timeline holds the wire-encoded
// snapshot sequence; Digest binds it to the exact source that produced it.
type Run struct {
	ID        int64     `db:"id"`
	GenomeID  int64     `db:"genome_id"`
	Digest    []byte    `db:"digest"`
	Status    string    `db:"status"`
	Steps     int       `db:"steps"`
	Timeline  []byte    `db:"timeline"`
	CreatedAt time.Time `db:"created_at"`
}

// Store wraps the library database.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the library database at path and applies
// the schema. Use ":memory:" for an ephemeral library.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: create %s: %w", dir, err)
			}
		}
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent API handlers.
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS genomes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			genome_id INTEGER NOT NULL,
			digest BLOB NOT NULL,
			status TEXT NOT NULL,
			steps INTEGER NOT NULL,
			timeline BLOB NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,

			FOREIGN KEY(genome_id) REFERENCES genomes(id)
		)`,
		`CREATE INDEX IF NOT EXISTS runs_genome_idx ON runs(genome_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// PutGenome inserts a genome, or updates the source and description of an
// existing genome with the same name. It returns the genome's ID.
func (s *Store) PutGenome(ctx context.Context, name, source, description string) (int64, error) {
	if name == "" {
		return 0, errors.New("store: genome name must not be empty")
	}
	var id int64
	err := s.db.GetContext(ctx, &id, `
		INSERT INTO genomes (name, source, description)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			source = excluded.source,
			description = excluded.description,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id`,
		name, source, description)
	if err != nil {
		return 0, fmt.Errorf("store: put genome %q: %w", name, err)
	}
	return id, nil
}

// GetGenome returns the genome with the given name.
func (s *Store) GetGenome(ctx context.Context, name string) (*Genome, error) {
	var g Genome
	err := s.db.GetContext(ctx, &g, `SELECT * FROM genomes WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get genome %q: %w", name, err)
	}
	return &g, nil
}

// ListGenomes returns all genomes ordered by name.
func (s *Store) ListGenomes(ctx context.Context) ([]Genome, error) {
	var gs []Genome
	if err := s.db.SelectContext(ctx, &gs, `SELECT * FROM genomes ORDER BY name`); err != nil {
		return nil, fmt.Errorf("store: list genomes: %w", err)
	}
	return gs, nil
}

// DeleteGenome removes a genome and its saved runs.
func (s *Store) DeleteGenome(ctx context.Context, name string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: delete genome %q: %w", name, err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.GetContext(ctx, &id, `SELECT id FROM genomes WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("store: delete genome %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE genome_id = ?`, id); err != nil {
		return fmt.Errorf("store: delete genome %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM genomes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete genome %q: %w", name, err)
	}
	return tx.Commit()
}

// PutRun saves one execution under a genome and returns the run's ID.
func (s *Store) PutRun(ctx context.Context, genomeID int64, digest []byte, status string, steps int, timeline []byte) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, `
		INSERT INTO runs (genome_id, digest, status, steps, timeline)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		genomeID, digest, status, steps, timeline)
	if err != nil {
		return 0, fmt.Errorf("store: put run: %w", err)
	}
	return id, nil
}

// GetRun returns a saved run by ID, timeline included.
func (s *Store) GetRun(ctx context.Context, id int64) (*Run, error) {
	var r Run
	err := s.db.GetContext(ctx, &r, `SELECT * FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get run %d: %w", id, err)
	}
	return &r, nil
}

// ListRuns returns a genome's runs, newest first, without timeline payloads.
func (s *Store) ListRuns(ctx context.Context, genomeID int64) ([]Run, error) {
	var rs []Run
	err := s.db.SelectContext(ctx, &rs, `
		SELECT id, genome_id, digest, status, steps, x'' AS timeline, created_at
		FROM runs WHERE genome_id = ? ORDER BY created_at DESC, id DESC`,
		genomeID)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	return rs, nil
}

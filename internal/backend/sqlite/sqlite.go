// Package sqlite implements store.Catalog over a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"moviecat/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS movies (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	link         TEXT NOT NULL,
	image        TEXT NOT NULL DEFAULT '',
	position     INTEGER NOT NULL,
	created_date TEXT NOT NULL DEFAULT '',
	version      INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_movies_position ON movies(position);
`

// Store implements store.Catalog and store.VersionedStore.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer to prevent lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close implements store.Catalog.
func (s *Store) Close() error {
	return s.db.Close()
}

// ListAll implements store.Store.
func (s *Store) ListAll(ctx context.Context) ([]store.Movie, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, link, image, position, created_date, version FROM movies`)
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	defer rows.Close()

	var result []store.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	return result, nil
}

// UpdatePosition implements store.Store.
func (s *Store) UpdatePosition(ctx context.Context, id string, position int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE movies SET position = ?, version = version + 1 WHERE id = ?`, position, id)
	if err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}
	return expectOneRow(res)
}

// UpdatePositionIfUnchanged implements store.VersionedStore.
func (s *Store) UpdatePositionIfUnchanged(ctx context.Context, id string, position int, version string) error {
	v, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", version, err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE movies SET position = ?, version = version + 1 WHERE id = ? AND version = ?`,
		position, id, v)
	if err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}
	if err := expectOneRow(res); err == nil {
		return nil
	}

	// Distinguish a stale version from a missing row.
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return store.ErrConflict
}

// Get implements store.Catalog.
func (s *Store) Get(ctx context.Context, id string) (store.Movie, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, link, image, position, created_date, version FROM movies WHERE id = ?`, id)
	m, err := scanMovie(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Movie{}, store.ErrNotFound
	}
	return m, err
}

// Create implements store.Catalog.
func (s *Store) Create(ctx context.Context, m store.Movie) (store.Movie, error) {
	m.ID = uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO movies (id, title, link, image, position, created_date, version)
		 VALUES (?, ?, ?, ?, ?, ?, 1)`,
		m.ID, m.Title, m.Link, m.Image, m.Position, m.CreatedDate)
	if err != nil {
		return store.Movie{}, fmt.Errorf("failed to create movie: %w", err)
	}
	m.Version = "1"
	return m, nil
}

// Update implements store.Catalog.
func (s *Store) Update(ctx context.Context, m store.Movie) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE movies SET title = ?, link = ?, image = ?, created_date = ?, version = version + 1
		 WHERE id = ?`,
		m.Title, m.Link, m.Image, m.CreatedDate, m.ID)
	if err != nil {
		return fmt.Errorf("failed to update movie: %w", err)
	}
	return expectOneRow(res)
}

// Delete implements store.Catalog.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	return expectOneRow(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMovie(sc scanner) (store.Movie, error) {
	var (
		m       store.Movie
		version int64
	)
	if err := sc.Scan(&m.ID, &m.Title, &m.Link, &m.Image, &m.Position, &m.CreatedDate, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Movie{}, err
		}
		return store.Movie{}, fmt.Errorf("failed to read movie: %w", err)
	}
	m.Version = strconv.FormatInt(version, 10)
	return m, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

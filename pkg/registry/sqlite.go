package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS classes (
	unit TEXT NOT NULL,
	name TEXT NOT NULL,
	data JSON NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
	PRIMARY KEY (unit, name)
)`

// SQLiteConfig holds SQLite store configuration options.
type SQLiteConfig struct {
	Path string // Database file (defaults to $INHERIT_REGISTRY, then ./.inherit/registry.db)
	// Unit scopes entries to one compilation unit. Empty means a fresh
	// random unit that is deleted on Close.
	Unit string
}

// SQLiteStore is a Store persisted in SQLite. Entries of different units
// never see each other, so separate compilation units can share a file.
type SQLiteStore struct {
	db        *sql.DB
	dbPath    string
	unit      string
	ephemeral bool
	mu        sync.Mutex
}

// OpenSQLite opens (creating if needed) a SQLite-backed store.
// If cfg is nil, defaults are used.
func OpenSQLite(cfg *SQLiteConfig) (*SQLiteStore, error) {
	s := &SQLiteStore{}

	switch {
	case cfg != nil && cfg.Path != "":
		s.dbPath = cfg.Path
	case os.Getenv("INHERIT_REGISTRY") != "":
		s.dbPath = os.Getenv("INHERIT_REGISTRY")
	default:
		s.dbPath = filepath.Join(".inherit", "registry.db")
	}

	if cfg != nil && cfg.Unit != "" {
		s.unit = cfg.Unit
	} else {
		s.unit = "unit_" + uuid.New().String()
		s.ephemeral = true
	}

	if dir := filepath.Dir(s.dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating registry directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening registry database: %w", err)
	}
	s.db = db
	// The pragma below is per connection.
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating classes table: %w", err)
	}

	return s, nil
}

// Unit returns the compilation unit this store reads and writes.
func (s *SQLiteStore) Unit() string {
	return s.unit
}

// Put stores data under name, replacing any previous entry.
func (s *SQLiteStore) Put(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO classes (unit, name, data) VALUES (?, ?, json(?))",
		s.unit, name, string(data),
	)
	if err != nil {
		return fmt.Errorf("saving class %s: %w", name, err)
	}
	return nil
}

// Get returns the data stored under name.
func (s *SQLiteStore) Get(ctx context.Context, name string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM classes WHERE unit = ? AND name = ?", s.unit, name,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("querying class %s: %w", name, err)
	}
	return []byte(data), true, nil
}

// Names returns the class names of this unit, sorted.
func (s *SQLiteStore) Names(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT name FROM classes WHERE unit = ? ORDER BY name", s.unit)
	if err != nil {
		return nil, fmt.Errorf("listing classes: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning class name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close tears the store down. An ephemeral unit's entries are deleted
// first.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	var result *multierror.Error
	if s.ephemeral {
		if _, err := s.db.Exec("DELETE FROM classes WHERE unit = ?", s.unit); err != nil {
			result = multierror.Append(result, fmt.Errorf("dropping unit %s: %w", s.unit, err))
		}
	}
	if err := s.db.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	s.db = nil
	return result.ErrorOrNil()
}

package semcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps entries in a single table, for deployments without Redis.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" is accepted.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Keys returns keys matching the glob pattern in insertion order.
func (s *SQLiteStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM cache_entries WHERE key GLOB ? ORDER BY rowid`, pattern)
	if err != nil {
		return nil, unavailable("sqlite keys", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, unavailable("sqlite keys", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("sqlite keys", err)
	}
	return keys, nil
}

// Get returns the raw payload, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM cache_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("sqlite get", err)
	}
	return value, nil
}

// Set upserts value under key.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return unavailable("sqlite set", err)
	}
	return nil
}

// FlushAll deletes every entry.
func (s *SQLiteStore) FlushAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return unavailable("sqlite flush", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

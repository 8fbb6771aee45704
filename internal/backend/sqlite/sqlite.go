// Package sqlite provides a SQLite-backed KV store. A single database file
// holds every store, partitioned by namespace, so one engine's four stores
// share one file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/docgrep/docgrep/internal/store"
)

// DB wraps the shared database connection. Individual stores are obtained
// through Namespace.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path with WAL mode enabled.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			ns    TEXT NOT NULL,
			key   TEXT NOT NULL,
			value BLOB NOT NULL,
			PRIMARY KEY (ns, key)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating records table: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Namespace returns a KV view scoped to ns.
func (d *DB) Namespace(ns string) store.KV {
	return &KV{db: d.db, ns: ns}
}

var _ store.KV = (*KV)(nil)

// KV is a namespaced view over the shared records table.
type KV struct {
	db *sql.DB
	ns string
}

func (s *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM records WHERE ns = ? AND key = ?", s.ns, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%q: %w", key, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading record %q: %w", key, err)
	}
	return value, nil
}

func (s *KV) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (ns, key, value) VALUES (?, ?, ?)
		ON CONFLICT (ns, key) DO UPDATE SET value = excluded.value
	`, s.ns, key, value)
	if err != nil {
		return fmt.Errorf("writing record %q: %w", key, err)
	}
	return nil
}

func (s *KV) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM records WHERE ns = ? AND key = ?", s.ns, key)
	if err != nil {
		return fmt.Errorf("deleting record %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%q: %w", key, store.ErrNotFound)
	}
	return nil
}

func (s *KV) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM records WHERE ns = ? ORDER BY key", s.ns)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Package state keeps a local record of files that were already handled,
// either validated against a schema or pushed to a server, so unchanged
// files can be skipped on later runs.
package state

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Cache tracks files by path, size, content hash and a scope: the schema
// fingerprint for validation, or the target server for uploads.
type Cache struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite cache at dir/state.db.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "state.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}
	// Batch validation calls in from several goroutines; one connection
	// avoids SQLITE_BUSY on writes.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS processed_files (
		path         TEXT PRIMARY KEY,
		size         INTEGER NOT NULL,
		hash         TEXT NOT NULL,
		scope        TEXT NOT NULL,
		processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state table: %w", err)
	}

	return &Cache{db: db}, nil
}

// Passed reports whether path was recorded under scope and has not changed
// since.
func (c *Cache) Passed(path, scope string) (bool, error) {
	size, hash, err := stat(path)
	if err != nil {
		return false, err
	}
	var count int
	err = c.db.QueryRow(
		`SELECT COUNT(*) FROM processed_files WHERE path = ? AND size = ? AND hash = ? AND scope = ?`,
		key(path), size, hash, scope,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkPassed records path under scope.
func (c *Cache) MarkPassed(path, scope string) error {
	size, hash, err := stat(path)
	if err != nil {
		return err
	}
	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO processed_files (path, size, hash, scope) VALUES (?, ?, ?, ?)`,
		key(path), size, hash, scope,
	)
	return err
}

// Forget drops the record for path.
func (c *Cache) Forget(path string) error {
	_, err := c.db.Exec(`DELETE FROM processed_files WHERE path = ?`, key(path))
	return err
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func key(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func stat(path string) (int64, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, "", err
	}
	hash, err := HashFile(path)
	if err != nil {
		return 0, "", err
	}
	return info.Size(), hash, nil
}

// HashFile computes the SHA-256 hash of a file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

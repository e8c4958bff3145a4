package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DatabaseFile = "embeddings.db"
	// AppDir is the per-application directory under the user cache dir.
	AppDir = "embedsvc"
)

type DB struct {
	conn *sql.DB
	path string
}

// DefaultDir returns <XDG_CACHE_HOME>/embedsvc, falling back to the user
// cache directory when XDG_CACHE_HOME is unset.
func DefaultDir(lookupEnv func(string) (string, bool)) (string, error) {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	if xdg, ok := lookupEnv("XDG_CACHE_HOME"); ok && xdg != "" {
		return filepath.Join(xdg, AppDir), nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve cache directory: %w", err)
	}
	return filepath.Join(base, AppDir), nil
}

// Open creates or opens the embedding store inside dir.
func Open(dir string) (*DB, error) {
	sqlite_vec.Auto()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dbPath := filepath.Join(dir, DatabaseFile)
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	db := &DB{conn: conn, path: dbPath}

	if _, err := db.VecVersion(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	return db, nil
}

// VecVersion returns the loaded sqlite-vec version.
func (db *DB) VecVersion() (string, error) {
	var version string
	if err := db.conn.QueryRow("SELECT vec_version()").Scan(&version); err != nil {
		return "", fmt.Errorf("vec_version() failed: %w", err)
	}
	return version, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Path() string {
	return db.path
}

func (db *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.conn.ExecContext(ctx, query, args...)
}

func (db *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.conn.QueryRowContext(ctx, query, args...)
}

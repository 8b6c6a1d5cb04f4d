package store

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const memoryPath = ":memory:"

// DB is the seedsoil SQLite database. One process owns it; the garden
// mirrors its items in memory.
type DB struct {
	*sql.DB
	Path string
}

// DefaultDBPath returns ~/.seedsoil/seedsoil.db.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".seedsoil", "seedsoil.db"), nil
}

// connPragmas run on every new connection via the driver DSN, so a pool
// that reconnects keeps the same settings.
var connPragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// filePragmas only make sense for an on-disk database.
var filePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

func dsn(path string) string {
	q := url.Values{}
	pragmas := connPragmas
	if path != memoryPath {
		pragmas = append(append([]string{}, connPragmas...), filePragmas...)
	}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

// Open opens or creates the database at path and brings the schema up to date.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return open(path)
}

// OpenMemory opens a private in-memory database. Used by tests.
func OpenMemory() (*DB, error) {
	return open(memoryPath)
}

func open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if path == memoryPath {
		// Each connection to :memory: is its own database.
		sqlDB.SetMaxOpenConns(1)
	}

	db := &DB{DB: sqlDB, Path: path}
	if err := db.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Package db reads closed trade outcomes from a SQLite trade log.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

// Database wraps the SQL handle for easier swapping/testing.
type Database struct {
	DB *sql.DB
}

// New opens (and creates if needed) a writable database at path. Tests and
// fixtures use it with ":memory:".
func New(path string) (*Database, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	return open(path)
}

// Open opens an existing trade log read-only. The host owns the file.
func Open(path string) (*Database, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("trade log %s: %w", path, err)
	}
	return open("file:" + path + "?mode=ro&_pragma=busy_timeout(5000)")
}

func open(dsn string) (*Database, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases alive across queries.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxIdleTime(0)
	return &Database{DB: conn}, nil
}

// Close releases the underlying DB handle.
func (d *Database) Close() error {
	if d == nil || d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

// Trades returns the trade log queries bound to this database.
func (d *Database) Trades() *TradeLog {
	return NewTradeLog(d.DB)
}

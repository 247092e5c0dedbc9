// Package database provides SQLite-backed settings storage for HydraHost.
//
// The database holds the same settings as the TOML configuration file:
//   - Server sections (DNS, SMTP, POP3) with their access lists
//   - DNS domains and resource records
//   - Logging, metrics and API settings
//
// Config Version Tracking:
// Every modification increments a global version counter via SQLite
// triggers, so callers can cheaply tell whether the settings changed.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DB wraps a SQLite database connection with thread-safe operations.
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex // Protects config reads/writes
}

// Open opens or creates a SQLite database at the given path and brings its
// schema up to date.
func Open(path string) (*DB, error) {
	// WAL for concurrent readers while a writer imports.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	db := &DB{conn: conn}

	if err := migrateSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// GetVersion returns the current configuration version.
// This version increments on every modification (via triggers).
func (db *DB) GetVersion(ctx context.Context) (int64, error) {
	var version int64
	err := db.conn.QueryRowContext(ctx, "SELECT version FROM config_version WHERE id = 1").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get config version: %w", err)
	}
	return version, nil
}

// IsEmpty reports whether no settings have been stored yet.
func (db *DB) IsEmpty(ctx context.Context) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var n int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM config").Scan(&n); err != nil {
		return false, fmt.Errorf("failed to count settings: %w", err)
	}
	return n == 0, nil
}

// Health checks database connectivity.
func (db *DB) Health(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Config holds database configuration.
type Config struct {
	// Path is the filesystem path to the SQLite database file.
	Path string

	// WALMode enables Write-Ahead Logging for better concurrency.
	WALMode bool

	// BusyTimeout is the lock wait timeout in seconds.
	BusyTimeout int
}

// DB wraps a sql.DB with PickLight-specific helpers.
type DB struct {
	*sql.DB
	path string
}

// Open opens (creating if necessary) the SQLite database at cfg.Path and
// verifies connectivity with a ping.
func Open(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Parent directory must exist before SQLite can create the file.
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", cfg.Path, cfg.BusyTimeout*1000)
	if cfg.WALMode {
		connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time. A single connection avoids
	// SQLITE_BUSY churn between pooled connections in the same process.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// The database file holds credentials-adjacent state (controller
	// inventory, audit trail). Restrict to the owner.
	if err := os.Chmod(cfg.Path, 0600); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set database file permissions: %w", err)
	}

	return &DB{DB: db, path: cfg.Path}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

// Path returns the filesystem path of the database file.
func (d *DB) Path() string {
	return d.path
}

// HealthCheck verifies the database is reachable and responsive.
func (d *DB) HealthCheck(ctx context.Context) error {
	var result int
	if err := d.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("database health check returned unexpected value: %d", result)
	}
	return nil
}

// Stats returns database connection pool statistics.
func (d *DB) Stats() sql.DBStats {
	return d.DB.Stats()
}

package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// MigrationsFS holds the embedded migration SQL files. The top-level
// migrations package assigns it from an init function, which keeps this
// package free of a dependency on the embedding location.
var MigrationsFS embed.FS

// MigrationsDir is the path within MigrationsFS containing the SQL files.
var MigrationsDir = "."

// Migration pairs the up and down SQL for one schema version.
type Migration struct {
	Version string
	Name    string
	UpSQL   string
	DownSQL string
}

// MigrationStatus reports whether a known migration has been applied.
type MigrationStatus struct {
	Version   string
	Name      string
	Applied   bool
	AppliedAt string
}

// Migrate applies all pending migrations in version order. Each migration
// runs in its own transaction; a failure leaves earlier migrations applied.
func (d *DB) Migrate(ctx context.Context) error {
	if err := d.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	applied, err := d.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := d.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %s (%s) failed: %w", m.Version, m.Name, err)
		}
	}

	return nil
}

// MigrateDown rolls back applied migrations newer than target, newest
// first. An empty target rolls back everything.
func (d *DB) MigrateDown(ctx context.Context, target string) error {
	if err := d.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	applied, err := d.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	for i := len(migrations) - 1; i >= 0; i-- {
		m := migrations[i]
		if !applied[m.Version] || m.Version <= target {
			continue
		}
		if err := d.rollbackMigration(ctx, m); err != nil {
			return fmt.Errorf("rollback of %s (%s) failed: %w", m.Version, m.Name, err)
		}
	}

	return nil
}

// GetMigrationStatus reports every known migration and whether it has been
// applied.
func (d *DB) GetMigrationStatus(ctx context.Context) ([]MigrationStatus, error) {
	if err := d.createMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	rows, err := d.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()

	appliedAt := make(map[string]string)
	for rows.Next() {
		var version, at string
		if err := rows.Scan(&version, &at); err != nil {
			return nil, err
		}
		appliedAt[version] = at
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		at, ok := appliedAt[m.Version]
		statuses = append(statuses, MigrationStatus{
			Version:   m.Version,
			Name:      m.Name,
			Applied:   ok,
			AppliedAt: at,
		})
	}

	return statuses, nil
}

func (d *DB) createMigrationsTable(ctx context.Context) error {
	_, err := d.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	return err
}

func (d *DB) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := d.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// applyMigration runs one migration and records it, atomically.
func (d *DB) applyMigration(ctx context.Context, m Migration) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		m.Version, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (d *DB) rollbackMigration(ctx context.Context, m Migration) error {
	if strings.TrimSpace(m.DownSQL) == "" {
		return fmt.Errorf("migration %s has no down script", m.Version)
	}

	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.DownSQL); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM schema_migrations WHERE version = ?", m.Version,
	); err != nil {
		return err
	}

	return tx.Commit()
}

func loadMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(MigrationsFS, MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	byVersion := make(map[string]*Migration)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, name, direction, err := parseMigrationFilename(entry.Name())
		if err != nil {
			return nil, err
		}

		data, err := fs.ReadFile(MigrationsFS, path.Join(MigrationsDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &Migration{Version: version, Name: name}
			byVersion[version] = m
		}

		switch direction {
		case "up":
			m.UpSQL = string(data)
		case "down":
			m.DownSQL = string(data)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.UpSQL == "" {
			return nil, fmt.Errorf("migration %s has a down script but no up script", m.Version)
		}
		migrations = append(migrations, *m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// parseMigrationFilename splits a name of the form NNNN_description.up.sql
// into its version, description and direction.
func parseMigrationFilename(filename string) (version, name, direction string, err error) {
	base := filename
	switch {
	case strings.HasSuffix(base, ".up.sql"):
		direction = "up"
		base = strings.TrimSuffix(base, ".up.sql")
	case strings.HasSuffix(base, ".down.sql"):
		direction = "down"
		base = strings.TrimSuffix(base, ".down.sql")
	default:
		return "", "", "", fmt.Errorf("migration file %s must end in .up.sql or .down.sql", filename)
	}

	parts := strings.SplitN(base, "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("migration file %s must be named NNNN_description", filename)
	}

	for _, r := range parts[0] {
		if r < '0' || r > '9' {
			return "", "", "", fmt.Errorf("migration file %s has a non-numeric version %q", filename, parts[0])
		}
	}

	return parts[0], parts[1], direction, nil
}

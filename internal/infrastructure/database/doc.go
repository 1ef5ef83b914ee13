// Package database provides SQLite database connectivity for PickLight Core.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Embedded schema migrations with a schema_migrations version table
//   - Connection pooling and lifecycle management
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Performance Characteristics:
//   - WAL mode allows concurrent reads during writes
//   - Busy timeout prevents lock contention errors
//   - Single-writer connection pool matches SQLite's locking model
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are embedded by the top-level migrations package and
// named NNNN_description.up.sql / NNNN_description.down.sql. Migrations
// are additive-only: new columns must be nullable or carry defaults.
package database

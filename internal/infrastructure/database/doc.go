// Package database provides the SQLite store behind the execution audit trail.
//
// This package manages:
//   - Database connection with optional WAL mode
//   - Forward-only schema migrations from an fs.FS
//   - Health checks and lifecycle management
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600 (owner read/write only)
//   - Command output is stored as-is; restrict access to the file accordingly
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "./data/launcher.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database

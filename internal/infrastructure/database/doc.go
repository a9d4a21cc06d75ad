// Package database provides SQLite connectivity for Roofwatch Core.
//
// It manages the connection (WAL mode, busy timeout, foreign keys), a
// health check, and the embedded schema migrations registered by the
// top-level migrations package.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive-only. Each version has an .up.sql and an optional
// .down.sql file named YYYYMMDD_HHMMSS_description.{up,down}.sql.
package database

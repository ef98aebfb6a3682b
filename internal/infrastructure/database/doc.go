// Package database provides SQLite connectivity for the gateway's lookup
// history.
//
// Open configures WAL mode and a busy timeout so the status API can read
// while the gateway writes. Migrate applies forward-only *.up.sql files
// from any fs.FS, normally the embedded migrations package.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.History.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS, "."); err != nil {
//	    return err
//	}
package database

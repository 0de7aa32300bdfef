// Package sqlitedb opens the SQLite handle shared by every component.
//
// Build modes:
//   - Default (CGO_ENABLED=0): pure Go modernc.org/sqlite, driver name "sqlite".
//   - -tags cgo_sqlite (CGO_ENABLED=1): mattn/go-sqlite3, driver name "sqlite3".
//
// The handle is limited to one open connection. All schema mutations and their
// introspection go through it, so every mutation observes the latest committed
// schema and a rebuild transaction is never interleaved with another writer.
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DefaultBusyTimeout bounds how long a statement waits on a locked database file.
const DefaultBusyTimeout = 5 * time.Second

// DriverName returns the SQL driver name registered by the selected implementation.
func DriverName() string {
	return driverName
}

// DriverType returns "cgo" for mattn/go-sqlite3 and "purego" for modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// Open opens the database at path, verifies it is reachable and applies the
// connection settings. The caller owns the returned handle.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if pingErr := db.PingContext(ctx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %v; additionally failed to close connection: %w", pingErr, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	busy := fmt.Sprintf("PRAGMA busy_timeout = %d", DefaultBusyTimeout.Milliseconds())
	if _, err := db.ExecContext(ctx, busy); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	return db, nil
}

// OpenMemory opens a private in-memory database. Used by tests and dry runs.
func OpenMemory(ctx context.Context) (*sql.DB, error) {
	return Open(ctx, ":memory:")
}

// Info contains information about the SQLite driver configuration.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	Package    string `json:"package"`
}

// GetInfo returns information about the current SQLite configuration.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		Package:    driverPackage,
	}
}

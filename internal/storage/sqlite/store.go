// Package sqlite backs the listing store with an embedded, CGO-free SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"trip_hotel/internal/storage/sqlstore"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS hotels (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hotel_id TEXT NOT NULL UNIQUE,
		property_title TEXT NOT NULL,
		city_name TEXT NOT NULL,
		price REAL,
		rating REAL,
		address TEXT,
		latitude REAL,
		longitude REAL,
		room_type TEXT,
		image_url TEXT,
		image_path TEXT,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
	);`,
	`CREATE INDEX IF NOT EXISTS idx_hotels_city ON hotels(city_name);`,
}

var Dialect = sqlstore.Dialect{
	Name:        "sqlite",
	Schema:      schema,
	IsDuplicate: isDuplicate,
}

func isDuplicate(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
		return true
	}
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}

// DefaultBusyTimeout bounds how long a transaction waits for the write lock.
const DefaultBusyTimeout = 10 * time.Second

// Open creates the database file (and its directory) if needed.
// Transactions take the write lock up front and wait on a busy database, so
// concurrent inserts of one hotel_id serialize into one winner and duplicates.
// The driver does not watch the context while it waits for the lock, so busy
// caps that wait; pass the persist timeout here. Zero means DefaultBusyTimeout.
func Open(ctx context.Context, path string, maxConns int, busy time.Duration) (*sqlstore.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	if busy <= 0 {
		busy = DefaultBusyTimeout
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_txlock=immediate",
		path, busy.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return sqlstore.New(db, Dialect), nil
}

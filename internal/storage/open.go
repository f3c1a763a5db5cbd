// Package storage selects the listing backend named by configuration.
package storage

import (
	"context"
	"fmt"
	"strings"

	"trip_hotel/internal/domain"
	"trip_hotel/internal/shared"
	"trip_hotel/internal/storage/mysql"
	"trip_hotel/internal/storage/postgres"
	"trip_hotel/internal/storage/sqlite"
)

// Store is what both binaries need from a backend.
type Store interface {
	domain.ListingGateway
	domain.ListingReader
	EnsureSchema(ctx context.Context) error
	Close() error
}

// Open connects to the configured driver. The pool is sized to cover one
// session per worker plus headroom for reads.
func Open(ctx context.Context, cfg shared.Config) (Store, error) {
	conns := cfg.DBMaxConns
	if floor := cfg.IngestWorkers + 1; conns < floor {
		conns = floor
	}
	switch strings.ToLower(cfg.StoreDriver) {
	case "mysql":
		return mysql.Open(ctx, cfg.MySQLDSN, conns)
	case "postgres", "pgx":
		return postgres.Open(ctx, cfg.DatabaseURL, conns)
	case "sqlite", "":
		return sqlite.Open(ctx, cfg.SQLitePath, conns, cfg.PersistTimeout)
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

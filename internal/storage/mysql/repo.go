package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	driver "github.com/go-sql-driver/mysql"

	"trip_hotel/internal/storage/sqlstore"
)

// ER_DUP_ENTRY
const errDupEntry = 1062

const createHotelsSQL = `
CREATE TABLE IF NOT EXISTS hotels (
  id             BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
  hotel_id       VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
  property_title VARCHAR(255) NOT NULL,
  city_name      VARCHAR(255) NOT NULL,
  price          DOUBLE       NULL,
  rating         DOUBLE       NULL,
  address        TEXT         NULL,
  latitude       DOUBLE       NULL,
  longitude      DOUBLE       NULL,
  room_type      VARCHAR(255) NULL,
  image_url      TEXT         NULL,
  image_path     VARCHAR(1024) NULL,
  created_at     TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE KEY uq_hotels_hotel_id (hotel_id),
  KEY idx_hotels_city (city_name)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
`

var Dialect = sqlstore.Dialect{
	Name:        "mysql",
	Schema:      []string{createHotelsSQL},
	IsDuplicate: isDuplicate,
}

func isDuplicate(err error) bool {
	var me *driver.MySQLError
	return errors.As(err, &me) && me.Number == errDupEntry
}

// New wraps an already opened pool.
func New(db *sql.DB) *sqlstore.Store { return sqlstore.New(db, Dialect) }

// Open connects and pings; maxConns bounds the pool shared by all pipeline workers.
func Open(ctx context.Context, dsn string, maxConns int) (*sqlstore.Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return New(db), nil
}

// Package postgres is the PostgreSQL listing store on a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"trip_hotel/internal/domain"
	"trip_hotel/internal/storage/sqlstore"
)

// SQLSTATE unique_violation
const uniqueViolation = "23505"

const createHotelsSQL = `
CREATE TABLE IF NOT EXISTS hotels (
  id             BIGSERIAL PRIMARY KEY,
  hotel_id       VARCHAR(255) NOT NULL UNIQUE,
  property_title VARCHAR(255) NOT NULL,
  city_name      VARCHAR(255) NOT NULL,
  price          DOUBLE PRECISION,
  rating         DOUBLE PRECISION,
  address        TEXT,
  latitude       DOUBLE PRECISION,
  longitude      DOUBLE PRECISION,
  room_type      VARCHAR(255),
  image_url      TEXT,
  image_path     TEXT,
  created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const createCityIndexSQL = `CREATE INDEX IF NOT EXISTS idx_hotels_city ON hotels (city_name)`

const columns = `hotel_id, property_title, city_name, price, rating, address,
  latitude, longitude, room_type, image_url, image_path`

const insertSQL = `
INSERT INTO hotels (` + columns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id`

const selectSQL = `SELECT id, ` + columns + ` FROM hotels `

type Store struct {
	pool *pgxpool.Pool
}

// Open parses the URL, builds the pool and pings it.
func Open(ctx context.Context, databaseURL string, maxConns int) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL configuration is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func New(pool *pgxpool.Pool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createHotelsSQL, createCityIndexSQL} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Acquire(ctx context.Context) (domain.ListingSession, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: acquire connection: %w", err)
	}
	return &session{s: s, conn: conn}, nil
}

type session struct {
	s    *Store
	conn *pgxpool.Conn
}

func (ss *session) Insert(ctx context.Context, l domain.Listing) (int64, error) {
	if ss.conn == nil {
		// the previous connection broke and could not be replaced then
		c, err := ss.s.pool.Acquire(ctx)
		if err != nil {
			return 0, &domain.PersistenceError{ExternalID: l.ExternalID, Op: "acquire", Err: err}
		}
		ss.conn = c
	}
	id, err := ss.insert(ctx, l)
	if err != nil && ss.conn.Conn().IsClosed() {
		ss.conn.Release()
		ss.conn = nil
		if c, aerr := ss.s.pool.Acquire(context.WithoutCancel(ctx)); aerr == nil {
			ss.conn = c
		}
	}
	return id, err
}

func (ss *session) insert(ctx context.Context, l domain.Listing) (int64, error) {
	fail := func(op string, err error) (int64, error) {
		return 0, &domain.PersistenceError{ExternalID: l.ExternalID, Op: op, Err: err}
	}

	tx, err := ss.conn.Begin(ctx)
	if err != nil {
		return fail("begin", err)
	}
	// no-op once committed
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	var id int64
	err = tx.QueryRow(ctx, insertSQL,
		l.ExternalID, l.Title, l.City,
		l.Price, l.Rating, l.Address,
		l.Latitude, l.Longitude,
		l.RoomType, l.ImageURL, l.ImagePath,
	).Scan(&id)
	if err != nil {
		if isDuplicate(err) {
			return 0, &domain.DuplicateRecordError{ExternalID: l.ExternalID, Err: err}
		}
		return fail("insert", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fail("commit", err)
	}
	return id, nil
}

func (ss *session) Close() error {
	if ss.conn != nil {
		ss.conn.Release()
		ss.conn = nil
	}
	return nil
}

func isDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// ---- read side ----

func scan(row pgx.Row) (domain.Listing, error) {
	var l domain.Listing
	err := row.Scan(
		&l.ID, &l.ExternalID, &l.Title, &l.City,
		&l.Price, &l.Rating, &l.Address,
		&l.Latitude, &l.Longitude,
		&l.RoomType, &l.ImageURL, &l.ImagePath,
	)
	return l, err
}

func (s *Store) getOne(ctx context.Context, where string, arg any) (domain.Listing, error) {
	l, err := scan(s.pool.QueryRow(ctx, selectSQL+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Listing{}, domain.ErrNotFound
	}
	return l, err
}

func (s *Store) GetByExternalID(ctx context.Context, externalID string) (domain.Listing, error) {
	return s.getOne(ctx, "WHERE hotel_id = $1", externalID)
}

func (s *Store) GetByID(ctx context.Context, id int64) (domain.Listing, error) {
	return s.getOne(ctx, "WHERE id = $1", id)
}

func (s *Store) List(ctx context.Context, q domain.ListQuery) (domain.ListingsPage, error) {
	limit := sqlstore.ClampLimit(q.Limit)

	var (
		where []string
		args  []any
	)
	if q.City != nil && strings.TrimSpace(*q.City) != "" {
		args = append(args, strings.TrimSpace(*q.City))
		where = append(where, "LOWER(city_name) = LOWER($"+strconv.Itoa(len(args))+")")
	}
	if after, ok := sqlstore.ParseCursor(q.Cursor); ok {
		args = append(args, after)
		where = append(where, "id > $"+strconv.Itoa(len(args)))
	}
	stmt := selectSQL
	if len(where) > 0 {
		stmt += "WHERE " + strings.Join(where, " AND ") + " "
	}
	args = append(args, limit+1)
	stmt += "ORDER BY id LIMIT $" + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, stmt, args...)
	if err != nil {
		return domain.ListingsPage{}, err
	}
	defer rows.Close()

	var out []domain.Listing
	for rows.Next() {
		l, err := scan(rows)
		if err != nil {
			return domain.ListingsPage{}, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return domain.ListingsPage{}, err
	}
	return sqlstore.Page(out, limit), nil
}

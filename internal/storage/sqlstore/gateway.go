// Package sqlstore implements the listing gateway and reader on database/sql.
// Drivers plug in through a Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"trip_hotel/internal/domain"
)

type Dialect struct {
	Name   string
	Schema []string
	// IsDuplicate reports a unique-key violation on hotels.hotel_id.
	IsDuplicate func(error) bool
}

type Store struct {
	db *sql.DB
	d  Dialect
}

func New(db *sql.DB, d Dialect) *Store { return &Store{db: db, d: d} }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// EnsureSchema creates the hotels table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range s.d.Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: init schema: %w", s.d.Name, err)
		}
	}
	return nil
}

// Acquire reserves one pooled connection for a pipeline run.
func (s *Store) Acquire(ctx context.Context) (domain.ListingSession, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: acquire connection: %w", s.d.Name, err)
	}
	return &session{s: s, conn: conn}, nil
}

type session struct {
	s    *Store
	conn *sql.Conn
}

func (ss *session) Insert(ctx context.Context, l domain.Listing) (int64, error) {
	id, err := ss.insert(ctx, l)
	if err != nil && brokenConn(err) {
		// swap in a fresh connection so the next record is not poisoned
		ss.reconnect(ctx)
	}
	return id, err
}

func (ss *session) insert(ctx context.Context, l domain.Listing) (int64, error) {
	fail := func(op string, err error) (int64, error) {
		return 0, &domain.PersistenceError{ExternalID: l.ExternalID, Op: op, Err: err}
	}

	tx, err := ss.conn.BeginTx(ctx, nil)
	if err != nil {
		return fail("begin", err)
	}
	res, err := tx.ExecContext(ctx, insertListingSQL, listingArgs(l)...)
	if err != nil {
		_ = tx.Rollback()
		if ss.s.d.IsDuplicate(err) {
			return 0, &domain.DuplicateRecordError{ExternalID: l.ExternalID, Err: err}
		}
		return fail("insert", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return fail("insert", err)
	}
	if err := tx.Commit(); err != nil {
		if ss.s.d.IsDuplicate(err) {
			return 0, &domain.DuplicateRecordError{ExternalID: l.ExternalID, Err: err}
		}
		return fail("commit", err)
	}
	return id, nil
}

func (ss *session) reconnect(ctx context.Context) {
	_ = ss.conn.Close()
	if conn, err := ss.s.db.Conn(context.WithoutCancel(ctx)); err == nil {
		ss.conn = conn
	}
}

func (ss *session) Close() error { return ss.conn.Close() }

func brokenConn(err error) bool {
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone)
}

func listingArgs(l domain.Listing) []any {
	return []any{
		l.ExternalID,
		l.Title,
		l.City,
		valF64(l.Price),
		valF64(l.Rating),
		valStr(l.Address),
		valF64(l.Latitude),
		valF64(l.Longitude),
		valStr(l.RoomType),
		valStr(l.ImageURL),
		valStr(l.ImagePath),
	}
}

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

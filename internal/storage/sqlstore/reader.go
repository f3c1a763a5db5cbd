package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"trip_hotel/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(r rowScanner) (domain.Listing, error) {
	var l domain.Listing
	var price, rating, lat, lon sql.NullFloat64
	var addr, room, imgURL, imgPath sql.NullString
	if err := r.Scan(
		&l.ID,
		&l.ExternalID,
		&l.Title,
		&l.City,
		&price, &rating,
		&addr,
		&lat, &lon,
		&room,
		&imgURL, &imgPath,
	); err != nil {
		return domain.Listing{}, err
	}
	l.Price = nullF64(price)
	l.Rating = nullF64(rating)
	l.Latitude = nullF64(lat)
	l.Longitude = nullF64(lon)
	l.Address = nullStr(addr)
	l.RoomType = nullStr(room)
	l.ImageURL = nullStr(imgURL)
	l.ImagePath = nullStr(imgPath)
	return l, nil
}

func nullF64(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func (s *Store) GetByExternalID(ctx context.Context, externalID string) (domain.Listing, error) {
	return s.getOne(ctx, getByExternalIDSQL, externalID)
}

func (s *Store) GetByID(ctx context.Context, id int64) (domain.Listing, error) {
	return s.getOne(ctx, getByIDSQL, id)
}

func (s *Store) getOne(ctx context.Context, q string, arg any) (domain.Listing, error) {
	l, err := scanListing(s.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Listing{}, domain.ErrNotFound
	}
	return l, err
}

// List pages by surrogate key; the cursor is the last id of the previous page.
func (s *Store) List(ctx context.Context, q domain.ListQuery) (domain.ListingsPage, error) {
	limit := ClampLimit(q.Limit)

	var (
		where []string
		args  []any
	)
	if q.City != nil && strings.TrimSpace(*q.City) != "" {
		where = append(where, "LOWER(city_name) = LOWER(?)")
		args = append(args, strings.TrimSpace(*q.City))
	}
	if after, ok := ParseCursor(q.Cursor); ok {
		where = append(where, "id > ?")
		args = append(args, after)
	}
	stmt := selectListingSQL
	if len(where) > 0 {
		stmt += "WHERE " + strings.Join(where, " AND ") + "\n"
	}
	stmt += "ORDER BY id\nLIMIT ?"
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return domain.ListingsPage{}, err
	}
	defer rows.Close()

	var out []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return domain.ListingsPage{}, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return domain.ListingsPage{}, err
	}
	return Page(out, limit), nil
}

// ClampLimit applies the default and upper bound of a page size.
func ClampLimit(n int) int {
	switch {
	case n <= 0:
		return defaultListLimit
	case n > maxListLimit:
		return maxListLimit
	}
	return n
}

func ParseCursor(c *string) (int64, bool) {
	if c == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(*c), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Page trims a limit+1 result set and derives the next cursor.
func Page(items []domain.Listing, limit int) domain.ListingsPage {
	if len(items) <= limit {
		return domain.ListingsPage{Items: items}
	}
	items = items[:limit]
	next := strconv.FormatInt(items[len(items)-1].ID, 10)
	return domain.ListingsPage{Items: items, NextCursor: &next}
}

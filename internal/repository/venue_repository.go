// Package repository contains data access logic separated from the
// conversation layer.  This file defines the venue repository.  A venue is
// a theatre hosting many events; venues are read-only after seeding.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/theater-ticket-bot/internal/model"
)

// ErrVenueNotFound is returned when a venue cannot be found in the DB.
var ErrVenueNotFound = errors.New("venue not found")

// VenueRepo encapsulates all database queries related to venues.  It
// depends on a sql.DB connection which should be configured elsewhere.
type VenueRepo struct {
	db *sql.DB
}

// NewVenueRepo constructs a VenueRepo with the provided DB handle.
func NewVenueRepo(db *sql.DB) *VenueRepo {
	return &VenueRepo{db: db}
}

// ListAll returns every venue ordered by name.  Only ID and Name are
// selected; this is the data needed to render the venue choice list.
// The id tie-breaker keeps the order stable.
func (r *VenueRepo) ListAll(ctx context.Context) ([]*model.Venue, error) {
	const q = `SELECT id, name FROM venues ORDER BY name ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, unavailable("list venues", err)
	}
	defer rows.Close()

	out := make([]*model.Venue, 0)
	for rows.Next() {
		v := &model.Venue{}
		if err := rows.Scan(&v.ID, &v.Name); err != nil {
			return nil, unavailable("list venues", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list venues", err)
	}
	return out, nil
}

// GetByID fetches a full venue row.  It returns ErrVenueNotFound if no
// row is found.
func (r *VenueRepo) GetByID(ctx context.Context, id uint64) (*model.Venue, error) {
	const q = `SELECT id, name, address, lat, lon FROM venues WHERE id = ?`
	var (
		v        model.Venue
		lat, lon sql.NullFloat64
	)
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&v.ID, &v.Name, &v.Address, &lat, &lon); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, unavailable("get venue", err)
	}
	v.Lat = lat.Float64
	v.Lon = lon.Float64
	return &v, nil
}

// DB exposes the underlying handle so callers can open a transaction
// spanning several repositories.
func (r *VenueRepo) DB() *sql.DB {
	return r.db
}

// Create inserts a new venue and populates its generated ID.
func (r *VenueRepo) Create(ctx context.Context, v *model.Venue) error {
	return createVenue(ctx, r.db, v)
}

// CreateTx is Create within the caller's transaction.
func (r *VenueRepo) CreateTx(ctx context.Context, tx *sql.Tx, v *model.Venue) error {
	return createVenue(ctx, tx, v)
}

func createVenue(ctx context.Context, db execer, v *model.Venue) error {
	const q = `INSERT INTO venues (name, address, lat, lon) VALUES (?, ?, ?, ?)`
	res, err := db.ExecContext(ctx, q, v.Name, v.Address, v.Lat, v.Lon)
	if err != nil {
		return unavailable("create venue", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return unavailable("create venue", err)
	}
	v.ID = uint64(id)
	return nil
}

// Count returns the number of venues.  The seeding step uses it to decide
// whether the catalog is empty.
func (r *VenueRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM venues`).Scan(&n); err != nil {
		return 0, unavailable("count venues", err)
	}
	return n, nil
}

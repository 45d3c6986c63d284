package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/theater-ticket-bot/internal/model"
)

// ErrEventNotFound is returned when an event cannot be found in the DB.
var ErrEventNotFound = errors.New("event not found")

// EventRepo provides access to the events table, including the atomic
// ticket reservation.  The remaining counter of an event is only ever
// written by ReserveOne.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// ListAvailableByVenue returns the events of a venue that still have
// tickets, earliest first.  The venue name is joined in so the list can
// be rendered without another query.  No match yields an empty slice.
func (r *EventRepo) ListAvailableByVenue(ctx context.Context, venueID uint64) ([]*model.Event, error) {
	const q = `SELECT e.id, e.venue_id, e.title, e.date, e.time, e.price, e.remaining, v.name
	           FROM events e
	           JOIN venues v ON v.id = e.venue_id
	           WHERE e.venue_id = ? AND e.remaining > 0
	           ORDER BY e.date ASC, e.time ASC, e.id ASC`
	rows, err := r.db.QueryContext(ctx, q, venueID)
	if err != nil {
		return nil, unavailable("list events", err)
	}
	defer rows.Close()

	out := make([]*model.Event, 0)
	for rows.Next() {
		e := &model.Event{}
		if err := rows.Scan(&e.ID, &e.VenueID, &e.Title, &e.Date, &e.Time, &e.Price, &e.Remaining, &e.VenueName); err != nil {
			return nil, unavailable("list events", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list events", err)
	}
	return out, nil
}

// ReserveOne takes one ticket of the event.  The decrement and the
// capacity check are a single conditional UPDATE evaluated by the
// database, so concurrent callers racing for the last ticket cannot both
// succeed.  It returns true iff a ticket was taken; an unknown event or
// an event with no tickets left yields false and a nil error.
func (r *EventRepo) ReserveOne(ctx context.Context, eventID uint64) (bool, error) {
	const q = `UPDATE events SET remaining = remaining - 1 WHERE id = ? AND remaining > 0`
	res, err := r.db.ExecContext(ctx, q, eventID)
	if err != nil {
		return false, unavailable("reserve ticket", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("reserve ticket", err)
	}
	return n == 1, nil
}

// GetByID fetches a single event regardless of its remaining tickets.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT e.id, e.venue_id, e.title, e.date, e.time, e.price, e.remaining, v.name
	           FROM events e
	           JOIN venues v ON v.id = e.venue_id
	           WHERE e.id = ?`
	var e model.Event
	err := r.db.QueryRowContext(ctx, q, id).Scan(&e.ID, &e.VenueID, &e.Title, &e.Date, &e.Time, &e.Price, &e.Remaining, &e.VenueName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, unavailable("get event", err)
	}
	return &e, nil
}

// Create inserts a new event and populates its generated ID.  A zero
// Remaining is replaced by model.DefaultCapacity.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	return createEvent(ctx, r.db, e)
}

// CreateTx is Create within the caller's transaction.
func (r *EventRepo) CreateTx(ctx context.Context, tx *sql.Tx, e *model.Event) error {
	return createEvent(ctx, tx, e)
}

func createEvent(ctx context.Context, db execer, e *model.Event) error {
	if e.Remaining == 0 {
		e.Remaining = model.DefaultCapacity
	}
	const q = `INSERT INTO events (venue_id, title, date, time, price, remaining) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := db.ExecContext(ctx, q, e.VenueID, e.Title, e.Date, e.Time, e.Price, e.Remaining)
	if err != nil {
		return unavailable("create event", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return unavailable("create event", err)
	}
	e.ID = uint64(id)
	return nil
}

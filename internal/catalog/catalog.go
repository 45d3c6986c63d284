// Package catalog exposes the read side of the inventory: the venue list
// and the events that still have tickets.  It keeps no state of its own.
package catalog

import (
	"context"

	"github.com/iliyamo/theater-ticket-bot/internal/model"
)

// VenueStore is the subset of the venue repository the reader needs.
type VenueStore interface {
	ListAll(ctx context.Context) ([]*model.Venue, error)
	GetByID(ctx context.Context, id uint64) (*model.Venue, error)
}

// EventStore is the subset of the event repository the reader needs.
type EventStore interface {
	ListAvailableByVenue(ctx context.Context, venueID uint64) ([]*model.Event, error)
}

// Reader passes listing calls straight through to the store.  Nothing is
// cached, so every listing reflects the committed state at query time.
type Reader struct {
	Venues VenueStore
	Events EventStore
}

// NewReader builds a Reader over the given stores.
func NewReader(venues VenueStore, events EventStore) *Reader {
	return &Reader{Venues: venues, Events: events}
}

// ListVenues returns all venues sorted by name.
func (r *Reader) ListVenues(ctx context.Context) ([]*model.Venue, error) {
	return r.Venues.ListAll(ctx)
}

// ListAvailableEvents returns the events of a venue with tickets left,
// ordered by date and time.
func (r *Reader) ListAvailableEvents(ctx context.Context, venueID uint64) ([]*model.Event, error) {
	return r.Events.ListAvailableByVenue(ctx, venueID)
}

// Venue returns the full venue record, including address and coordinates.
func (r *Reader) Venue(ctx context.Context, id uint64) (*model.Venue, error) {
	return r.Venues.GetByID(ctx, id)
}

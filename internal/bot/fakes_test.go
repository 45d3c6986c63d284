package bot

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/iliyamo/theater-ticket-bot/internal/model"
	"github.com/iliyamo/theater-ticket-bot/internal/repository"
)

var errDown = errors.New("connection refused")

type fakeCatalog struct {
	mu        sync.Mutex
	venues    []*model.Venue
	events    map[uint64][]*model.Event
	listErr   error
	eventsErr error
	venueErr  error
}

func newCatalog() *fakeCatalog {
	return &fakeCatalog{
		venues: []*model.Venue{
			{ID: 1, Name: "Bolshoi", Address: "Teatralnaya sq. 1", Lat: 55.760241, Lon: 37.618644},
			{ID: 2, Name: "Lenkom", Address: "Malaya Dmitrovka 6", Lat: 55.766333, Lon: 37.610321},
			{ID: 3, Name: "Satire", Address: "Triumfalnaya sq. 2"},
		},
		events: map[uint64][]*model.Event{
			1: {
				{ID: 10, VenueID: 1, Title: "Swan Lake", Date: "2026-03-01", Time: "19:00", Price: 2000, Remaining: 250, VenueName: "Bolshoi"},
				{ID: 11, VenueID: 1, Title: "Nutcracker", Date: "2026-03-02", Time: "19:00", Price: 2500, Remaining: 1, VenueName: "Bolshoi"},
			},
			3: {
				{ID: 30, VenueID: 3, Title: "Inspector", Date: "2026-03-01", Time: "19:00", Price: 3000, Remaining: 5, VenueName: "Satire"},
			},
		},
	}
}

func (f *fakeCatalog) ListVenues(context.Context) ([]*model.Venue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*model.Venue, 0, len(f.venues))
	for _, v := range f.venues {
		out = append(out, &model.Venue{ID: v.ID, Name: v.Name})
	}
	return out, nil
}

func (f *fakeCatalog) ListAvailableEvents(_ context.Context, venueID uint64) ([]*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	out := make([]*model.Event, 0)
	for _, e := range f.events[venueID] {
		if e.Remaining > 0 {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeCatalog) Venue(_ context.Context, id uint64) (*model.Venue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.venueErr != nil {
		return nil, f.venueErr
	}
	for _, v := range f.venues {
		if v.ID == id {
			c := *v
			return &c, nil
		}
	}
	return nil, repository.ErrVenueNotFound
}

// fakeReserver shares capacity with a fakeCatalog so listings and
// reservations see the same counters.
type fakeReserver struct {
	cat   *fakeCatalog
	err   error
	calls int
}

func (r *fakeReserver) ReserveOne(_ context.Context, eventID uint64) (bool, error) {
	r.cat.mu.Lock()
	defer r.cat.mu.Unlock()
	r.calls++
	if r.err != nil {
		return false, r.err
	}
	for _, list := range r.cat.events {
		for _, e := range list {
			if e.ID == eventID && e.Remaining > 0 {
				e.Remaining--
				return true, nil
			}
		}
	}
	return false, nil
}

type fakeMaps struct {
	err error
}

func (m fakeMaps) MapImage(_ context.Context, lat, lon float64) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "https://maps.example/static?ll=" + strconv.FormatFloat(lon, 'f', -1, 64) + "," + strconv.FormatFloat(lat, 'f', -1, 64), nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []model.Event
	users  []string
	err    error
}

func (n *fakeNotifier) NotifyPurchase(_ context.Context, userID string, ev model.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, userID)
	n.events = append(n.events, ev)
	return n.err
}

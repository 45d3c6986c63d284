package model

// DefaultCapacity is the number of tickets an event starts with when the
// seeding step does not specify otherwise.
const DefaultCapacity = 250

// Event represents a scheduled performance at a venue.  Remaining is the
// inventory counter; it is decremented by exactly one per purchase and
// never drops below zero.  Events are never deleted: an exhausted event
// simply stops showing up in availability listings.
//
// Date and Time are kept as fixed-width text ("2006-01-02" and "15:04")
// so that ordering by (date, time) is chronological on every driver.
//
// Fields:
//  ID        – primary key identifier.
//  VenueID   – venue hosting the event.
//  Title     – performance title.
//  Date      – calendar day of the performance.
//  Time      – start time of the performance.
//  Price     – ticket price in whole roubles.
//  Remaining – tickets still available.
//  VenueName – name of the hosting venue, filled by listing queries.
type Event struct {
	ID        uint64 `json:"id"`         // events.id
	VenueID   uint64 `json:"venue_id"`   // events.venue_id
	Title     string `json:"title"`      // events.title
	Date      string `json:"date"`       // events.date
	Time      string `json:"time"`       // events.time
	Price     int64  `json:"price"`      // events.price
	Remaining int    `json:"remaining"`  // events.remaining
	VenueName string `json:"venue_name"` // venues.name (joined)
}

// Layouts used for the Date and Time columns.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

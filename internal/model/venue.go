package model

// Venue is a theatre that hosts events.  Venues are created by the
// bootstrap seeding step and never change afterwards.  This struct
// corresponds to a row in the `venues` table.
//
// Fields:
//  ID      – primary key identifier.
//  Name    – unique display name, also used as the button label.
//  Address – street address shown next to the event list.
//  Lat/Lon – coordinates used for the static map image; zero when
//            the row has no coordinates.
type Venue struct {
	ID      uint64  // venues.id
	Name    string  // venues.name
	Address string  // venues.address
	Lat     float64 // venues.lat
	Lon     float64 // venues.lon
}

// HasLocation reports whether the venue carries usable coordinates.
func (v Venue) HasLocation() bool {
	return v.Lat != 0 || v.Lon != 0
}

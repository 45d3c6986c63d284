// Package session holds the per-user conversation state and the stores
// that keep it between messages.  A Session is a plain value: stores hand
// out copies and never share maps between callers.
package session

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/theater-ticket-bot/internal/model"
)

// State is the position of a user in the purchase conversation.
type State string

const (
	StateIdle          State = "idle"
	StateChoosingVenue State = "choosing_venue"
	StatePurchasing    State = "purchasing"
)

// Session is the conversation state of one user.  Venues maps the venue
// names of the last venue list shown to the user onto venue IDs; Events
// maps the event IDs (as the user would type them) of the last event list
// onto copies of the listed events.  Both maps always belong to the most
// recent listing: entering ChoosingVenue replaces Venues, entering
// Purchasing replaces Events and returning to Idle drops both.
type Session struct {
	State     State                  `json:"state"`
	Venues    map[string]uint64      `json:"venues,omitempty"`
	Events    map[string]model.Event `json:"events,omitempty"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// New returns a fresh session in the Idle state with no context.
func New() Session {
	return Session{State: StateIdle}
}

// IsFresh reports whether s carries nothing worth keeping.  Such sessions
// are evicted instead of stored.
func (s Session) IsFresh() bool {
	return s.State == StateIdle && len(s.Venues) == 0 && len(s.Events) == 0
}

// VenueNames returns the cached venue names in display order.
func (s Session) VenueNames() []string {
	names := make([]string, 0, len(s.Venues))
	for name := range s.Venues {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of s.
func (s Session) Clone() Session {
	out := s
	if s.Venues != nil {
		out.Venues = make(map[string]uint64, len(s.Venues))
		for k, v := range s.Venues {
			out.Venues[k] = v
		}
	}
	if s.Events != nil {
		out.Events = make(map[string]model.Event, len(s.Events))
		for k, v := range s.Events {
			out.Events[k] = v
		}
	}
	return out
}

// Store persists sessions keyed by the opaque user identity supplied by
// the transport.  Load reports false when no session is stored.
type Store interface {
	Load(ctx context.Context, userID string) (Session, bool, error)
	Save(ctx context.Context, userID string, s Session) error
	Delete(ctx context.Context, userID string) error
}

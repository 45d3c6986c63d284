// Package bot implements the ticket purchase conversation as a finite
// state machine.  Step is a pure transition: it reads the catalog, may
// reserve one ticket, and returns the next session plus the replies.  It
// never stores sessions or talks to a transport itself.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theater-ticket-bot/internal/model"
	"github.com/iliyamo/theater-ticket-bot/internal/repository"
	"github.com/iliyamo/theater-ticket-bot/internal/session"
)

// ErrStorageUnavailable is returned (wrapped) by Step and Handle when the
// inventory or session storage could not be reached.  It is the only
// error the conversation reports to its caller.
var ErrStorageUnavailable = repository.ErrStorageUnavailable

// Input is one inbound text message.  UserID is the opaque identity
// supplied by the transport; Name is only used in the greeting.
type Input struct {
	UserID string
	Name   string
	Text   string
}

// Catalog is the read side of the inventory.
type Catalog interface {
	ListVenues(ctx context.Context) ([]*model.Venue, error)
	ListAvailableEvents(ctx context.Context, venueID uint64) ([]*model.Event, error)
	Venue(ctx context.Context, id uint64) (*model.Venue, error)
}

// Reserver takes one ticket of an event atomically.
type Reserver interface {
	ReserveOne(ctx context.Context, eventID uint64) (bool, error)
}

// MapProvider returns an image reference for a location.
type MapProvider interface {
	MapImage(ctx context.Context, lat, lon float64) (string, error)
}

// Notifier is told about every completed purchase.
type Notifier interface {
	NotifyPurchase(ctx context.Context, userID string, event model.Event) error
}

// Machine holds the collaborators of the transition function.  Maps and
// Notifier are optional.
type Machine struct {
	Catalog  Catalog
	Reserver Reserver
	Maps     MapProvider
	Notifier Notifier
	Log      logrus.FieldLogger

	// NotifyTimeout bounds a purchase notification.
	NotifyTimeout time.Duration
}

type command int

const (
	cmdNone command = iota
	cmdRestart
	cmdCancel
	cmdListVenues
	cmdBack
)

func parseCommand(text string) command {
	switch strings.ToLower(text) {
	case CommandStart, "restart":
		return cmdRestart
	case CommandCancel:
		return cmdCancel
	case strings.ToLower(ButtonListVenues), "list venues":
		return cmdListVenues
	case strings.ToLower(ButtonBack), "back":
		return cmdBack
	}
	return cmdNone
}

// Step consumes one input against s and returns the next session and at
// least one reply.  Invalid input, stale context and sold out events are
// ordinary transitions.  A non-nil error always wraps
// ErrStorageUnavailable; the returned session is then a fresh Idle one
// and the replies ask the user to try again later.
func (m *Machine) Step(ctx context.Context, s session.Session, in Input) (session.Session, []Message, error) {
	txt := strings.TrimSpace(in.Text)
	cmd := parseCommand(txt)

	switch cmd {
	case cmdRestart:
		return session.New(), []Message{greeting(in.Name)}, nil
	case cmdCancel:
		return session.New(), []Message{text(msgCancelled, nil)}, nil
	}

	switch s.State {
	case session.StateChoosingVenue:
		return m.chooseVenue(ctx, s, in, txt, cmd)
	case session.StatePurchasing:
		return m.purchase(ctx, s, in, txt)
	default:
		return m.idle(ctx, in, cmd)
	}
}

func (m *Machine) idle(ctx context.Context, in Input, cmd command) (session.Session, []Message, error) {
	switch cmd {
	case cmdListVenues:
		return m.listVenues(ctx)
	case cmdBack:
		return session.New(), []Message{greeting(in.Name)}, nil
	}
	return session.New(), []Message{text(msgUseButtons, menuChoices())}, nil
}

func (m *Machine) listVenues(ctx context.Context) (session.Session, []Message, error) {
	venues, err := m.Catalog.ListVenues(ctx)
	if err != nil {
		return m.fail("list venues", err)
	}
	if len(venues) == 0 {
		return session.New(), []Message{text(msgNoVenues, menuChoices())}, nil
	}
	next := session.Session{
		State:  session.StateChoosingVenue,
		Venues: make(map[string]uint64, len(venues)),
	}
	names := make([]string, 0, len(venues))
	for _, v := range venues {
		next.Venues[v.Name] = v.ID
		names = append(names, v.Name)
	}
	return next, []Message{text(msgChooseVenue, venueChoices(names))}, nil
}

func (m *Machine) chooseVenue(ctx context.Context, s session.Session, in Input, txt string, cmd command) (session.Session, []Message, error) {
	switch cmd {
	case cmdBack:
		return session.New(), []Message{greeting(in.Name)}, nil
	case cmdListVenues:
		return m.listVenues(ctx)
	}
	if len(s.Venues) == 0 {
		return session.New(), []Message{text(msgSessionExpired, nil)}, nil
	}

	venueID, ok := lookupVenue(s.Venues, txt)
	if !ok {
		return s, []Message{text(msgChooseFromList, venueChoices(s.VenueNames()))}, nil
	}

	events, err := m.Catalog.ListAvailableEvents(ctx, venueID)
	if err != nil {
		return m.fail("list events", err)
	}
	if len(events) == 0 {
		return s, []Message{text(msgNoEvents, venueChoices(s.VenueNames()))}, nil
	}

	out, err := m.location(ctx, venueID)
	if err != nil {
		return m.fail("get venue", err)
	}

	next := session.Session{
		State:  session.StatePurchasing,
		Events: make(map[string]model.Event, len(events)),
	}
	for _, e := range events {
		next.Events[strconv.FormatUint(e.ID, 10)] = *e
	}
	return next, append(out, text(eventList(events), nil)), nil
}

// lookupVenue matches the typed name exactly first and falls back to a
// case-insensitive match.
func lookupVenue(venues map[string]uint64, name string) (uint64, bool) {
	if id, ok := venues[name]; ok {
		return id, true
	}
	for n, id := range venues {
		if strings.EqualFold(n, name) {
			return id, true
		}
	}
	return 0, false
}

// location renders where the venue is.  A map image is used when the
// venue has coordinates and the provider answers; otherwise the address
// is sent as text.  A venue that vanished yields no message.
func (m *Machine) location(ctx context.Context, venueID uint64) ([]Message, error) {
	v, err := m.Catalog.Venue(ctx, venueID)
	if errors.Is(err, repository.ErrVenueNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if m.Maps != nil && v.HasLocation() {
		img, err := m.Maps.MapImage(ctx, v.Lat, v.Lon)
		if err == nil {
			return []Message{{
				Kind:  KindTextWithImage,
				Body:  fmt.Sprintf(msgLocationCaption, v.Name, v.Address),
				Image: img,
			}}, nil
		}
		m.logger().WithFields(logrus.Fields{"venue_id": v.ID, "error": err}).Warn("map lookup failed")
	}
	return []Message{text(fmt.Sprintf(msgAddress, v.Address), nil)}, nil
}

func (m *Machine) purchase(ctx context.Context, s session.Session, in Input, txt string) (session.Session, []Message, error) {
	if len(s.Events) == 0 {
		return session.New(), []Message{text(msgSessionExpired, nil)}, nil
	}

	if !isDigits(txt) {
		return s, []Message{text(msgEnterNumericID, nil)}, nil
	}
	// Digits too large for any id simply match nothing.
	n, err := strconv.ParseUint(txt, 10, 64)
	if err != nil {
		return s, []Message{text(msgInvalidID, nil)}, nil
	}
	ev, ok := s.Events[strconv.FormatUint(n, 10)]
	if !ok {
		return s, []Message{text(msgInvalidID, nil)}, nil
	}

	// Once started, a reservation is bounded only by the storage timeout.
	reserved, err := m.Reserver.ReserveOne(context.WithoutCancel(ctx), ev.ID)
	if err != nil {
		return m.fail("reserve ticket", err)
	}
	if !reserved {
		m.logger().WithFields(logrus.Fields{"user_id": in.UserID, "event_id": ev.ID}).Info("event sold out")
		return session.New(), []Message{text(msgSoldOut, menuChoices())}, nil
	}

	m.logger().WithFields(logrus.Fields{"user_id": in.UserID, "event_id": ev.ID}).Info("ticket purchased")
	m.notify(ctx, in.UserID, ev)
	return session.New(), []Message{text(fmt.Sprintf(msgPurchased, ev.Title, ev.Date, ev.Time), menuChoices())}, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// notify publishes the purchase without letting a slow or broken broker
// affect the reply.
func (m *Machine) notify(ctx context.Context, userID string, ev model.Event) {
	if m.Notifier == nil {
		return
	}
	timeout := m.NotifyTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := m.Notifier.NotifyPurchase(nctx, userID, ev); err != nil {
		m.logger().WithFields(logrus.Fields{"user_id": userID, "event_id": ev.ID, "error": err}).Warn("purchase notification failed")
	}
}

func (m *Machine) fail(op string, err error) (session.Session, []Message, error) {
	if !errors.Is(err, ErrStorageUnavailable) {
		err = fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return session.New(), []Message{text(msgTryLater, menuChoices())}, fmt.Errorf("%s: %w", op, err)
}

func (m *Machine) logger() logrus.FieldLogger {
	if m.Log == nil {
		return logrus.StandardLogger()
	}
	return m.Log
}

// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/theater-ticket-bot/internal/model"
)

// TicketPurchasedQueue is the durable queue purchases are published to.
const TicketPurchasedQueue = "ticket.purchased"

// TicketPurchasedEvent is published after a ticket was reserved.  It
// contains enough information for downstream consumers to log, notify,
// or trigger analytics without querying the inventory database.
type TicketPurchasedEvent struct {
	PurchaseID  string `json:"purchase_id"`
	UserID      string `json:"user_id"`
	EventID     uint64 `json:"event_id"`
	VenueID     uint64 `json:"venue_id"`
	VenueName   string `json:"venue_name"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Price       int64  `json:"price"`
	PurchasedAt string `json:"purchased_at"`
}

// NewTicketPurchasedEvent describes the purchase of one ticket of ev by
// userID at the given time.
func NewTicketPurchasedEvent(userID string, ev model.Event, at time.Time) TicketPurchasedEvent {
	return TicketPurchasedEvent{
		PurchaseID:  uuid.NewString(),
		UserID:      userID,
		EventID:     ev.ID,
		VenueID:     ev.VenueID,
		VenueName:   ev.VenueName,
		Title:       ev.Title,
		Date:        ev.Date,
		Time:        ev.Time,
		Price:       ev.Price,
		PurchasedAt: at.UTC().Format(time.RFC3339),
	}
}

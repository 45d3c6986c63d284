package bot

import (
	"fmt"
	"strings"

	"github.com/iliyamo/theater-ticket-bot/internal/model"
)

// Button labels and commands understood in every state.
const (
	ButtonListVenues = "🎭 List venues"
	ButtonBack       = "⬅️ Back"

	CommandStart  = "/start"
	CommandCancel = "/cancel"
)

const (
	msgGreeting        = "Hello, %s!\nWelcome to the theatre ticket bot!"
	msgUseButtons      = "Please use the buttons"
	msgNoVenues        = "No venues found"
	msgChooseVenue     = "Choose a venue:"
	msgChooseFromList  = "Please choose a venue from the list"
	msgNoEvents        = "No available events"
	msgEnterNumericID  = "Please enter a numeric event ID:"
	msgInvalidID       = "Invalid ID. Enter a valid event ID from the list:"
	msgSessionExpired  = "Your session has expired. Start again with /start"
	msgCancelled       = "Cancelled. Use /start to begin again."
	msgTryLater        = "Something went wrong. Please try again later."
	msgSoldOut         = "❌ No tickets left for this event.\nTry another one (/start)"
	msgPurchased       = "✅ Ticket purchased!\n🎭 %s\n📅 %s %s\nTo search again press /start"
	msgAddress         = "Address: %s"
	msgLocationCaption = "📍 %s\n🏛 %s"
)

// Kind tells the transport how to render a Message.
type Kind string

const (
	KindText          Kind = "text"
	KindTextWithImage Kind = "text_with_image"
)

// Message is one outbound reply.  Choices are abstract button labels in
// display order; a nil slice asks the transport to remove any keyboard.
// Image is only set for KindTextWithImage.
type Message struct {
	Kind    Kind     `json:"kind"`
	Body    string   `json:"body"`
	Image   string   `json:"image,omitempty"`
	Choices []string `json:"choices,omitempty"`
}

func text(body string, choices []string) Message {
	return Message{Kind: KindText, Body: body, Choices: choices}
}

func menuChoices() []string {
	return []string{ButtonListVenues}
}

func venueChoices(names []string) []string {
	out := make([]string, 0, len(names)+1)
	out = append(out, names...)
	return append(out, ButtonBack)
}

func greeting(name string) Message {
	if name == "" {
		name = "there"
	}
	return text(fmt.Sprintf(msgGreeting, name), menuChoices())
}

func eventList(events []*model.Event) string {
	blocks := make([]string, 0, len(events))
	for _, e := range events {
		blocks = append(blocks, fmt.Sprintf("🎭 %s\n📅 %s %s\n💵 %d rub.\n🎫 Remaining: %d\n🆔 ID: %d",
			e.Title, e.Date, e.Time, e.Price, e.Remaining, e.ID))
	}
	return "Available events:\n\n" + strings.Join(blocks, "\n\n") + "\n\nEnter the event ID to buy a ticket:"
}

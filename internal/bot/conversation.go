package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theater-ticket-bot/internal/session"
)

// Conversation glues the state machine to the session registry: it loads
// the user's session, runs one Step and stores the result.  Callers must
// not run two Handle calls for the same user at once; the dispatcher
// guarantees that.
type Conversation struct {
	machine  *Machine
	registry *session.Registry
	log      logrus.FieldLogger
}

// NewConversation returns a Conversation over machine and registry.
func NewConversation(machine *Machine, registry *session.Registry, log logrus.FieldLogger) *Conversation {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Conversation{machine: machine, registry: registry, log: log}
}

// Handle processes one inbound message and returns the replies.  Even on
// error the replies are meant to be delivered to the user.
func (c *Conversation) Handle(ctx context.Context, in Input) ([]Message, error) {
	s, err := c.registry.GetOrCreate(ctx, in.UserID)
	if err != nil {
		c.log.WithFields(logrus.Fields{"user_id": in.UserID, "error": err}).Error("load session failed")
		return []Message{text(msgTryLater, menuChoices())}, fmt.Errorf("load session: %w: %w", ErrStorageUnavailable, err)
	}

	next, out, stepErr := c.machine.Step(ctx, s, in)
	if stepErr != nil {
		c.log.WithFields(logrus.Fields{"user_id": in.UserID, "state": s.State, "error": stepErr}).Error("conversation step failed")
	}

	if err := c.persist(ctx, in.UserID, next); err != nil {
		c.log.WithFields(logrus.Fields{"user_id": in.UserID, "state": next.State, "error": err}).Error("store session failed")
		// A step that ends the flow may already have sold a ticket, so
		// its replies stand.  The stale session expires with its TTL.
		if stepErr == nil && !next.IsFresh() {
			out = []Message{text(msgTryLater, menuChoices())}
			stepErr = fmt.Errorf("store session: %w: %w", ErrStorageUnavailable, err)
		}
	}
	return out, stepErr
}

// persist drops sessions that returned to a fresh Idle and stores the
// rest.
func (c *Conversation) persist(ctx context.Context, userID string, next session.Session) error {
	if next.IsFresh() {
		return c.registry.Clear(ctx, userID)
	}
	return c.registry.Replace(ctx, userID, next)
}

// IsStorageUnavailable reports whether err came from unreachable storage.
func IsStorageUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

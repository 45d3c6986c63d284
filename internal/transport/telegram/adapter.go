// Package telegram connects the conversation to a Telegram bot through
// long polling.  Updates are routed by Telegram user id, so each user's
// messages are handled in the order they arrived.
package telegram

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theater-ticket-bot/internal/bot"
	"github.com/iliyamo/theater-ticket-bot/internal/dispatch"
	"github.com/iliyamo/theater-ticket-bot/internal/ratelimit"
)

const msgSlowDown = "Too many messages. Please slow down."

// Sender delivers requests to Telegram.  *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Submitter queues an input for its user.
type Submitter interface {
	Submit(ctx context.Context, in bot.Input, reply dispatch.ReplyFunc) error
}

// Adapter feeds Telegram updates into the dispatcher and sends the
// replies back to the chat they came from.
type Adapter struct {
	api     Sender
	queue   Submitter
	limiter *ratelimit.Limiter
	log     logrus.FieldLogger
}

// NewAdapter returns an Adapter.  limiter may be nil.
func NewAdapter(api Sender, queue Submitter, limiter *ratelimit.Limiter, log logrus.FieldLogger) *Adapter {
	return &Adapter{api: api, queue: queue, limiter: limiter, log: log}
}

// Connect logs in with token and returns the bot client.
func Connect(token string) (*tgbotapi.BotAPI, error) {
	return tgbotapi.NewBotAPI(token)
}

// Poll starts long polling on api and runs the adapter until ctx is done.
func Poll(ctx context.Context, api *tgbotapi.BotAPI, a *Adapter, timeoutSec int) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	updates := api.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()
	a.Run(ctx, updates)
}

// Run consumes updates until the channel closes or ctx is done.
func (a *Adapter) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			a.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate routes one update.  Anything but a user message is
// ignored.
func (a *Adapter) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	userID := strconv.FormatInt(msg.From.ID, 10)
	fields := logrus.Fields{"user_id": userID, "chat_id": chatID}

	if a.limiter.Active() {
		d, err := a.limiter.Allow(ctx, "tg:"+userID)
		if err != nil {
			a.log.WithFields(fields).WithError(err).Warn("rate limiter unavailable")
		} else if !d.Allowed {
			a.send(tgbotapi.NewMessage(chatID, msgSlowDown), fields)
			return
		}
	}

	in := bot.Input{UserID: userID, Name: msg.From.FirstName, Text: msg.Text}
	err := a.queue.Submit(ctx, in, func(out []bot.Message, err error) {
		if err != nil {
			a.log.WithFields(fields).WithError(err).Error("conversation failed")
		}
		for _, m := range out {
			a.send(Render(chatID, m), fields)
		}
	})
	if err != nil {
		a.log.WithFields(fields).WithError(err).Warn("update dropped")
	}
}

func (a *Adapter) send(c tgbotapi.Chattable, fields logrus.Fields) {
	if _, err := a.api.Send(c); err != nil {
		a.log.WithFields(fields).WithError(err).Error("telegram send failed")
	}
}

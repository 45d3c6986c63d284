// Package handler exposes the HTTP side of the bot.  Every chat endpoint
// feeds the same conversation as the Telegram adapter, so a client that
// posts text and renders the returned messages is a complete transport.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theater-ticket-bot/internal/bot"
	"github.com/iliyamo/theater-ticket-bot/internal/dispatch"
)

// Dispatcher runs one input through the user's conversation and waits
// for the replies.
type Dispatcher interface {
	Do(ctx context.Context, in bot.Input) ([]bot.Message, error)
}

// ChatHandler serves POST /v1/chat/:user_id/messages.
type ChatHandler struct {
	Dispatch Dispatcher
	Log      logrus.FieldLogger
}

// chatRequest is the body of an inbound chat message.  Name is optional
// and only used to greet the user.
type chatRequest struct {
	Text string `json:"text"`
	Name string `json:"name"`
}

// chatResponse carries the replies in display order.
type chatResponse struct {
	Messages []bot.Message `json:"messages"`
	Error    string        `json:"error,omitempty"`
}

// PostMessage feeds one message into the conversation of :user_id.
// Replies are returned even when storage failed; the status code then
// tells the client that the request did not complete.
func (h *ChatHandler) PostMessage(c echo.Context) error {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id is required"})
	}
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	out, err := h.Dispatch.Do(c.Request().Context(), bot.Input{UserID: userID, Name: req.Name, Text: req.Text})
	if out == nil {
		out = []bot.Message{}
	}
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, chatResponse{Messages: out})
	case bot.IsStorageUnavailable(err):
		return c.JSON(http.StatusServiceUnavailable, chatResponse{Messages: out, Error: "storage unavailable"})
	case errors.Is(err, dispatch.ErrStopped):
		return c.JSON(http.StatusServiceUnavailable, chatResponse{Messages: out, Error: "shutting down"})
	case errors.Is(err, dispatch.ErrPending):
		// The message may still complete, a purchase included.
		return c.JSON(http.StatusAccepted, chatResponse{Messages: out, Error: "pending"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, chatResponse{Messages: out, Error: "timeout"})
	default:
		h.Log.WithFields(logrus.Fields{"user_id": userID, "error": err}).Error("chat message failed")
		return c.JSON(http.StatusInternalServerError, chatResponse{Messages: out, Error: "internal error"})
	}
}

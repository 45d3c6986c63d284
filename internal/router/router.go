package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theater-ticket-bot/internal/handler"
)

// RegisterRoutes registers routes that are always available.  Currently it
// exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring systems poll this endpoint.
	e.GET("/healthz", handler.Health)
}

// RegisterChat registers the chat endpoint.  The middlewares are attached
// to the per-user group so they can read the :user_id path parameter.
func RegisterChat(e *echo.Echo, h *handler.ChatHandler, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1/chat/:user_id", mw...)
	g.POST("/messages", h.PostMessage)
}

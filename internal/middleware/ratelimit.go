package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theater-ticket-bot/internal/ratelimit"
)

// RateLimitByUser throttles chat requests per user.  The bucket key is
// the :user_id path parameter, falling back to the client IP, so the
// middleware must be attached to a route group where that parameter is
// resolved.  Redis failures let the request through.
func RateLimitByUser(l *ratelimit.Limiter, log logrus.FieldLogger) echo.MiddlewareFunc {
	if !l.Active() {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "chat:user:" + c.Param("user_id")
			if c.Param("user_id") == "" {
				key = "chat:ip:" + c.RealIP()
			}

			d, err := l.Allow(c.Request().Context(), key)
			if err != nil {
				log.WithFields(logrus.Fields{"key": key, "error": err}).Warn("rate limiter unavailable")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))

			if !d.Allowed {
				secs := int(math.Ceil(d.RetryAfter.Seconds()))
				h.Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"message":     "rate limit exceeded",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

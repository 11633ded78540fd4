package middleware

import (
	"time"

	"auth-gateway/internal/auth"
	"auth-gateway/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RequestLogger writes one line per request. URIs are sanitized so the
// token query fallback never reaches the log.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status

			var event *zerolog.Event
			switch {
			case status >= 500:
				event = log.Error()
			case status >= 400:
				event = log.Warn()
			default:
				event = log.Info()
			}

			event = event.
				Str("request_id", GetRequestID(c)).
				Str("method", req.Method).
				Str("path", logger.SanitizeURI(req.URL.RequestURI())).
				Int("status", status).
				Int64("latency_ms", time.Since(start).Milliseconds()).
				Str("ip", c.RealIP())

			if route := c.Path(); route != "" {
				event = event.Str("route", route)
			}
			if p, ok := auth.GetPrincipal(c); ok {
				event = event.Str("user_id", p.UserID).Str("auth_type", string(p.AuthType))
			}
			event.Msg("request")

			return nil
		}
	}
}

package http

import (
	"errors"
	"fmt"
	"net/http"

	"auth-gateway/internal/gateway"
	"auth-gateway/internal/http/middleware"
	apperrors "auth-gateway/pkg/errors"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const msgInternalServerError = "Internal server error"

// NewHTTPErrorHandler handles all errors returned by handlers and
// middleware. Sentinels map to their registered status, internal errors
// are logged and hidden from the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := apperrors.StatusOf(err)
		message := msgInternalServerError
		cause := err

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			code = httpErr.Code
			message = fmt.Sprintf("%v", httpErr.Message)
			cause = sentinelForStatus(code)
		} else {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) && code < http.StatusInternalServerError {
				message = appErr.Message
			}
		}

		if code >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("request_id", middleware.GetRequestID(c)).
				Int("status", code).
				Msg("internal_server_error")
			message = msgInternalServerError
			if httpErr == nil {
				cause = apperrors.ErrInternalServer
			}
		} else {
			log.Warn().
				Err(err).
				Str("request_id", middleware.GetRequestID(c)).
				Int("status", code).
				Msg("client_error")
		}

		if err := gateway.WriteError(c, code, cause, message, nil); err != nil {
			log.Error().Err(err).Msg("write error response")
		}
	}
}

func sentinelForStatus(code int) error {
	switch code {
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case http.StatusForbidden:
		return apperrors.ErrForbidden
	case http.StatusRequestTimeout:
		return apperrors.ErrRequestTimeout
	case http.StatusTooManyRequests:
		return apperrors.ErrRateLimited
	}
	if code >= http.StatusBadRequest && code < http.StatusInternalServerError {
		return apperrors.ErrBadRequest
	}
	return apperrors.ErrInternalServer
}

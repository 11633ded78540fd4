package gateway

import (
	"net/http"
	"time"

	apperrors "auth-gateway/pkg/errors"

	"github.com/labstack/echo/v4"
)

const (
	jsonKeySuccess   = "success"
	jsonKeyMessage   = "message"
	jsonKeyError     = "error"
	jsonKeyTimestamp = "timestamp"
)

// ErrorBody builds the gateway error body:
//
//	{ "success": false, "message": "...", "error": "CODE", "timestamp": "..." }
func ErrorBody(err error, message string, detail map[string]any) map[string]any {
	body := make(map[string]any, len(detail)+4)
	for k, v := range detail {
		body[k] = v
	}
	body[jsonKeySuccess] = false
	body[jsonKeyMessage] = message
	if code := apperrors.Code(err); code != "" {
		body[jsonKeyError] = code
	}
	body[jsonKeyTimestamp] = time.Now().UTC().Format(time.RFC3339)
	return body
}

// WriteError renders ErrorBody with status. It is a no-op once the
// response is committed.
func WriteError(c echo.Context, status int, err error, message string, detail map[string]any) error {
	if c.Response().Committed {
		return nil
	}
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, ErrorBody(err, message, detail))
}

// WriteDecision renders a terminal decision.
func WriteDecision(c echo.Context, d Decision) error {
	switch d.Outcome {
	case OutcomeHalt:
		if c.Response().Committed {
			return nil
		}
		return c.NoContent(d.Status)
	case OutcomeDeny:
		return WriteError(c, d.Status, d.Err, d.Message, d.Detail)
	default:
		return nil
	}
}

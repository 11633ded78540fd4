package handler

import (
	"time"

	"auth-gateway/internal/gateway"
	apperrors "auth-gateway/pkg/errors"

	"github.com/labstack/echo/v4"
)

const (
	jsonKeySuccess   = "success"
	jsonKeyData      = "data"
	jsonKeyTimestamp = "timestamp"
)

func respondData(c echo.Context, status int, data any) error {
	return c.JSON(status, map[string]any{
		jsonKeySuccess:   true,
		jsonKeyData:      data,
		jsonKeyTimestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// respondError writes the gateway error body with the status registered
// for err.
func respondError(c echo.Context, err error, message string) error {
	return gateway.WriteError(c, apperrors.StatusOf(err), err, message, nil)
}

package handler

import (
	"net/http"
	"strconv"
	"time"

	"auth-gateway/internal/audit"
	apperrors "auth-gateway/pkg/errors"

	"github.com/labstack/echo/v4"
)

const maxAuditLimit = 500

type AuditHandler struct {
	reader audit.Reader
}

func NewAuditHandler(reader audit.Reader) *AuditHandler {
	return &AuditHandler{reader: reader}
}

// List returns recorded denials. Query parameters: gate, actor_id, ip,
// since and until (RFC 3339), limit and offset.
func (h *AuditHandler) List(c echo.Context) error {
	filter := audit.QueryFilter{
		Gate:      c.QueryParam("gate"),
		ActorID:   c.QueryParam("actor_id"),
		IPAddress: c.QueryParam("ip"),
	}

	var err error
	if filter.StartTime, err = timeParam(c, "since"); err != nil {
		return respondError(c, apperrors.ErrBadRequest, "Invalid since: expected RFC 3339 time")
	}
	if filter.EndTime, err = timeParam(c, "until"); err != nil {
		return respondError(c, apperrors.ErrBadRequest, "Invalid until: expected RFC 3339 time")
	}
	if filter.Limit, err = intParam(c, "limit"); err != nil || filter.Limit > maxAuditLimit {
		return respondError(c, apperrors.ErrBadRequest, "Invalid limit: expected 0-"+strconv.Itoa(maxAuditLimit))
	}
	if filter.Offset, err = intParam(c, "offset"); err != nil {
		return respondError(c, apperrors.ErrBadRequest, "Invalid offset")
	}

	events, err := h.reader.Query(c.Request().Context(), filter)
	if err != nil {
		return apperrors.InternalServer("Failed to query audit events", err)
	}
	return respondData(c, http.StatusOK, events)
}

func timeParam(c echo.Context, name string) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func intParam(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperrors.ErrBadRequest
	}
	return n, nil
}

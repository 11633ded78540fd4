package handler

import (
	"net/http"

	"auth-gateway/internal/http/middleware"
	apperrors "auth-gateway/pkg/errors"

	"github.com/labstack/echo/v4"
)

const msgCSRFUnavailable = "Unable to issue CSRF token"

type CSRFHandler struct {
	manager *middleware.CSRFManager
}

func NewCSRFHandler(manager *middleware.CSRFManager) *CSRFHandler {
	return &CSRFHandler{manager: manager}
}

type CSRFTokenResponse struct {
	CSRFToken string `json:"csrfToken"`
	ExpiresIn int    `json:"expiresIn"`
}

// Token hands the session a CSRF token. The same value is set as the
// httpOnly cookie and the X-CSRF-Token header.
func (h *CSRFHandler) Token(c echo.Context) error {
	token, err := h.manager.Current(c)
	if err != nil {
		return respondError(c, apperrors.ErrInternalServer, msgCSRFUnavailable)
	}

	return respondData(c, http.StatusOK, CSRFTokenResponse{
		CSRFToken: token,
		ExpiresIn: int(h.manager.TTL().Seconds()),
	})
}

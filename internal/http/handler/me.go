package handler

import (
	"net/http"

	"auth-gateway/internal/auth"
	"auth-gateway/internal/rbac"
	apperrors "auth-gateway/pkg/errors"

	"github.com/labstack/echo/v4"
)

const msgNotAuthenticated = "Authentication required"

type MeHandler struct {
	checker *rbac.Checker
}

func NewMeHandler(checker *rbac.Checker) *MeHandler {
	return &MeHandler{checker: checker}
}

type MeResponse struct {
	*auth.Principal
	Permissions []rbac.Permission `json:"permissions"`
	IsAdmin     bool              `json:"isAdmin"`
}

// Me returns the Principal of the request with its effective permissions.
func (h *MeHandler) Me(c echo.Context) error {
	p, ok := auth.GetPrincipal(c)
	if !ok {
		return respondError(c, apperrors.ErrUnauthenticated, msgNotAuthenticated)
	}

	perms := h.checker.Permissions(p.Role)
	if perms == nil {
		perms = []rbac.Permission{}
	}

	return respondData(c, http.StatusOK, MeResponse{
		Principal:   p,
		Permissions: perms,
		IsAdmin:     h.checker.IsAdmin(p.Role),
	})
}

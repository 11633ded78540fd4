package auth

import (
	"auth-gateway/internal/rbac"
	apperrors "auth-gateway/pkg/errors"

	"github.com/labstack/echo/v4"
)

// Principal is the identity attached to a request after its credentials
// were verified. It is never persisted by the gateway.
type Principal struct {
	UserID   string    `json:"userId"`
	Email    string    `json:"email,omitempty"`
	Phone    string    `json:"phone,omitempty"`
	Username string    `json:"username,omitempty"`
	Role     rbac.Role `json:"role"`
	// Fingerprint is set only when the issuer bound the token to a device.
	Fingerprint string   `json:"-"`
	AuthType    AuthType `json:"authType"`
	// TokenSource is where the JWT was found; empty for API keys.
	TokenSource TokenSource `json:"-"`
}

func (p *Principal) HasFingerprint() bool {
	return p != nil && p.Fingerprint != ""
}

// CookieSession reports whether the browser sends the credential on its
// own, which is the only case a forged cross-site request can ride on.
func (p *Principal) CookieSession() bool {
	return p != nil && p.AuthType == AuthTypeJWT && p.TokenSource == TokenSourceCookie
}

// SetPrincipal attaches p to the request. A request keeps the first
// Principal it was given.
func SetPrincipal(c echo.Context, p *Principal) {
	if p == nil {
		return
	}
	if _, ok := GetPrincipal(c); ok {
		return
	}
	c.Set(ContextKeyPrincipal, p)
	c.Set(ContextKeyUserID, p.UserID)
	c.Set(ContextKeyAuthType, p.AuthType)
}

func GetPrincipal(c echo.Context) (*Principal, bool) {
	p, ok := c.Get(ContextKeyPrincipal).(*Principal)
	if !ok || p == nil {
		return nil, false
	}
	return p, true
}

func GetUserID(c echo.Context) (string, error) {
	raw := c.Get(ContextKeyPrincipal)
	if raw == nil {
		return "", apperrors.Unauthorized(msgUserNotAuthenticated)
	}

	p, ok := raw.(*Principal)
	if !ok || p == nil {
		return "", apperrors.InternalServer(msgInvalidPrincipalCtx, nil)
	}

	return p.UserID, nil
}

func GetAuthType(c echo.Context) AuthType {
	authType := c.Get(ContextKeyAuthType)
	if authType == nil {
		return ""
	}

	t, ok := authType.(AuthType)
	if !ok {
		return ""
	}

	return t
}

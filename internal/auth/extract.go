package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// ExtractToken finds the bearer token using one precedence order for every
// caller: "Authorization: Bearer <t>", then a raw Authorization value, then
// the token cookie, then the token query parameter.
func ExtractToken(c echo.Context, cookieName string) (string, TokenSource) {
	if token, source := fromAuthorizationHeader(c.Request().Header.Get(headerAuthorization)); token != "" {
		return token, source
	}

	if cookieName == "" {
		cookieName = defaultTokenCookieName
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		if v := strings.TrimSpace(cookie.Value); v != "" {
			return v, TokenSourceCookie
		}
	}

	if v := strings.TrimSpace(c.QueryParam(queryParamToken)); v != "" {
		return v, TokenSourceQuery
	}

	return "", TokenSourceNone
}

func fromAuthorizationHeader(authHeader string) (string, TokenSource) {
	parts := strings.Fields(authHeader)
	switch len(parts) {
	case authHeaderParts:
		if strings.ToLower(parts[0]) == bearerScheme {
			return parts[1], TokenSourceBearerHeader
		}
	case 1:
		if strings.ToLower(parts[0]) != bearerScheme {
			return parts[0], TokenSourceRawHeader
		}
	}
	return "", TokenSourceNone
}

func extractAPIKey(c echo.Context) string {
	return strings.TrimSpace(c.Request().Header.Get(headerAPIKey))
}

package middleware

import (
	"net/url"

	"auth-gateway/internal/gateway"
	apperrors "auth-gateway/pkg/errors"

	"github.com/labstack/echo/v4"
)

const (
	GateFrontend = "frontend"

	DefaultFrontendCookieName = "frontend_client"

	msgFrontendRejected = "Invalid frontend request"
)

// FrontendValidator checks requests that declare themselves as coming from
// the first-party frontend through the marker cookie. Such requests must
// name an allowed origin in Origin or Referer.
type FrontendValidator struct {
	policy     *CORSPolicy
	cookieName string
}

func NewFrontendValidator(policy *CORSPolicy, cookieName string) *FrontendValidator {
	if cookieName == "" {
		cookieName = DefaultFrontendCookieName
	}
	return &FrontendValidator{policy: policy, cookieName: cookieName}
}

// IsFrontendRequest reports whether the request carries the marker cookie.
func (v *FrontendValidator) IsFrontendRequest(c echo.Context) bool {
	cookie, err := c.Cookie(v.cookieName)
	return err == nil && cookie.Value != ""
}

func (v *FrontendValidator) Gate() gateway.Gate {
	return gateway.NewGate(GateFrontend, func(c echo.Context) gateway.Decision {
		if !v.IsFrontendRequest(c) {
			return gateway.Allow()
		}

		origin := requestOrigin(c)
		if origin == "" || !v.policy.OriginAllowed(origin) {
			return gateway.Deny(apperrors.ErrFrontendRejected, msgFrontendRejected).
				With("origin", origin).
				With("path", c.Request().URL.Path)
		}
		return gateway.Allow()
	})
}

// requestOrigin returns the Origin header, or the origin part of Referer
// when Origin is absent.
func requestOrigin(c echo.Context) string {
	if origin := c.Request().Header.Get(echo.HeaderOrigin); origin != "" {
		return origin
	}
	return refererOrigin(c.Request().Referer())
}

func refererOrigin(referer string) string {
	if referer == "" {
		return ""
	}
	u, err := url.Parse(referer)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"auth-gateway/internal/auth"
	"auth-gateway/internal/gateway"
	apperrors "auth-gateway/pkg/errors"

	"github.com/labstack/echo/v4"
)

const GateCSRF = "csrf"

const (
	csrfTokenLength   = 32
	csrfTokenParts    = 3
	DefaultCSRFTTL    = time.Hour
	csrfClockSkew     = time.Minute
	CSRFHeaderName    = "X-CSRF-Token"
	CSRFFormField     = "_csrf"
	DefaultCSRFCookie = "csrf_token"
	// ContextKeyCSRFToken holds the token minted for the current request.
	ContextKeyCSRFToken = "csrf_token"

	msgCSRFMissing        = "CSRF token missing"
	msgCSRFInvalid        = "Invalid or expired CSRF token"
	msgCSRFOriginMismatch = "CSRF origin check failed"
	msgCSRFMintFailed     = "Unable to issue CSRF token"
)

type CSRFConfig struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	// Secure marks the cookie Secure; on in production.
	Secure bool
	// ExemptPrefixes are paths without a session, such as login.
	ExemptPrefixes []string
}

// CSRFManager issues and verifies signed double-submit tokens of the form
// value:issuedAtMillis:hex(hmac-sha256(value:issuedAtMillis)).
type CSRFManager struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	secure     bool
	exempt     []string
	policy     *CORSPolicy
	now        func() time.Time
}

// NewCSRFManager creates a manager. policy drives the Origin/Referer check
// and may be nil to skip it.
func NewCSRFManager(cfg CSRFConfig, policy *CORSPolicy) *CSRFManager {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCSRFTTL
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCSRFCookie
	}
	return &CSRFManager{
		secret:     []byte(cfg.Secret),
		ttl:        cfg.TTL,
		cookieName: cfg.CookieName,
		secure:     cfg.Secure,
		exempt:     cfg.ExemptPrefixes,
		policy:     policy,
		now:        time.Now,
	}
}

// generateValue generates a cryptographically secure random token value
func generateValue() (string, error) {
	bytes := make([]byte, csrfTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

func (m *CSRFManager) sign(value, issuedAt string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(value + ":" + issuedAt))
	return hex.EncodeToString(mac.Sum(nil))
}

// Generate mints a new token.
func (m *CSRFManager) Generate() (string, error) {
	value, err := generateValue()
	if err != nil {
		return "", err
	}
	issuedAt := strconv.FormatInt(m.now().UnixMilli(), 10)
	return value + ":" + issuedAt + ":" + m.sign(value, issuedAt), nil
}

// Verify checks the signature and age of token.
func (m *CSRFManager) Verify(token string) bool {
	parts := strings.Split(token, ":")
	if len(parts) != csrfTokenParts || parts[0] == "" {
		return false
	}
	value, issuedAt, signature := parts[0], parts[1], parts[2]

	if !hmac.Equal([]byte(signature), []byte(m.sign(value, issuedAt))) {
		return false
	}

	millis, err := strconv.ParseInt(issuedAt, 10, 64)
	if err != nil {
		return false
	}
	age := m.now().Sub(time.UnixMilli(millis))
	return age <= m.ttl && age >= -csrfClockSkew
}

// Issue mints a token and delivers it as an httpOnly cookie and in the
// X-CSRF-Token response header.
func (m *CSRFManager) Issue(c echo.Context) (string, error) {
	token, err := m.Generate()
	if err != nil {
		return "", err
	}

	c.SetCookie(&http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
	c.Response().Header().Set(CSRFHeaderName, token)
	c.Set(ContextKeyCSRFToken, token)
	return token, nil
}

// Current returns the token minted earlier in this request, or mints one.
func (m *CSRFManager) Current(c echo.Context) (string, error) {
	if token, ok := c.Get(ContextKeyCSRFToken).(string); ok && token != "" {
		return token, nil
	}
	return m.Issue(c)
}

func (m *CSRFManager) TTL() time.Duration {
	return m.ttl
}

// cookieToken returns the CSRF cookie value, or "".
func (m *CSRFManager) cookieToken(c echo.Context) string {
	cookie, err := c.Cookie(m.cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// HasValidCookie reports whether the request already holds a usable token.
func (m *CSRFManager) HasValidCookie(c echo.Context) bool {
	token := m.cookieToken(c)
	return token != "" && m.Verify(token)
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// Gate enforces the double-submit check on mutating requests of cookie
// sessions and mints tokens on safe requests that lack one. Bearer header
// and API-key clients, and anonymous requests, are exempt.
func (m *CSRFManager) Gate() gateway.Gate {
	return gateway.NewGate(GateCSRF, func(c echo.Context) gateway.Decision {
		principal, ok := auth.GetPrincipal(c)
		session := ok && principal.CookieSession()

		if isSafeMethod(c.Request().Method) {
			if session && !m.HasValidCookie(c) {
				if _, err := m.Issue(c); err != nil {
					return gateway.Deny(fmt.Errorf("%w: %v", apperrors.ErrInternalServer, err), msgCSRFMintFailed)
				}
			}
			return gateway.Allow()
		}

		if !session || hasAnyPrefix(c.Request().URL.Path, m.exempt) {
			return gateway.Allow()
		}

		return m.check(c)
	})
}

func (m *CSRFManager) check(c echo.Context) gateway.Decision {
	submitted := c.Request().Header.Get(CSRFHeaderName)
	if submitted == "" {
		submitted = c.FormValue(CSRFFormField)
	}
	cookie := m.cookieToken(c)

	if submitted == "" || cookie == "" {
		return gateway.Deny(apperrors.ErrCSRFMissing, msgCSRFMissing)
	}

	// both comparisons always run
	matches := auth.ConstantTimeCompareHashes(submitted, cookie)
	valid := m.Verify(cookie)
	if !matches || !valid {
		return gateway.Deny(apperrors.ErrCSRFInvalid, msgCSRFInvalid)
	}

	if m.policy != nil {
		// non-browser clients send neither header
		if origin := requestOrigin(c); origin != "" && !m.policy.OriginAllowed(origin) {
			return gateway.Deny(apperrors.ErrCSRFOriginMismatch, msgCSRFOriginMismatch).
				With("origin", origin)
		}
	}

	return gateway.Allow()
}

package auth

import (
	"errors"

	"auth-gateway/internal/gateway"
	apperrors "auth-gateway/pkg/errors"

	"github.com/labstack/echo/v4"
)

const GateAuthentication = "authentication"

// mode overrides the path class that decides whether a credential is
// required.
type mode int

const (
	modeByPathClass mode = iota
	modeRequired
	modeOptional
)

type AuthenticatorConfig struct {
	TokenCookieName string
}

// Authenticator is the authentication gate. It verifies the request's
// credential once and attaches the resulting Principal.
type Authenticator struct {
	jwtService *JWTService
	apiKeys    *APIKeyService
	config     AuthenticatorConfig
}

func NewAuthenticator(jwtService *JWTService, apiKeys *APIKeyService, cfg AuthenticatorConfig) *Authenticator {
	if cfg.TokenCookieName == "" {
		cfg.TokenCookieName = defaultTokenCookieName
	}
	return &Authenticator{
		jwtService: jwtService,
		apiKeys:    apiKeys,
		config:     cfg,
	}
}

// Gate returns the pipeline gate. Public paths skip it, optional-auth
// paths attach a Principal when they can, everything else requires one.
func (a *Authenticator) Gate() gateway.Gate {
	return gateway.NewGate(GateAuthentication, func(c echo.Context) gateway.Decision {
		return a.evaluate(c, modeByPathClass)
	})
}

// RequireJWT rejects any request without a valid credential, regardless of
// its path class.
func (a *Authenticator) RequireJWT() echo.MiddlewareFunc {
	return gateway.New(gateway.NewGate(GateAuthentication, func(c echo.Context) gateway.Decision {
		return a.evaluate(c, modeRequired)
	})).Middleware()
}

// OptionalJWT attaches a Principal when a valid credential is present and
// silently continues otherwise.
func (a *Authenticator) OptionalJWT() echo.MiddlewareFunc {
	return gateway.New(gateway.NewGate(GateAuthentication, func(c echo.Context) gateway.Decision {
		return a.evaluate(c, modeOptional)
	})).Middleware()
}

func (a *Authenticator) evaluate(c echo.Context, m mode) gateway.Decision {
	if _, ok := GetPrincipal(c); ok {
		return gateway.Allow()
	}

	if m == modeByPathClass {
		switch gateway.GetPathClass(c) {
		case gateway.ClassPublic:
			return gateway.Allow()
		case gateway.ClassOptionalAuth:
			m = modeOptional
		default:
			m = modeRequired
		}
	}

	principal, err := a.Authenticate(c)
	if err != nil {
		if m == modeOptional {
			return gateway.Allow()
		}
		return denyFor(err)
	}

	SetPrincipal(c, principal)
	return gateway.Allow()
}

// Authenticate verifies the request's credential without touching the
// context. Bearer tokens take precedence over x-api-key.
func (a *Authenticator) Authenticate(c echo.Context) (*Principal, error) {
	token, source := ExtractToken(c, a.config.TokenCookieName)
	if token == "" {
		if key := extractAPIKey(c); key != "" {
			return a.apiKeys.Authenticate(key)
		}
		return nil, apperrors.Wrap(apperrors.ErrTokenMissing, msgNoTokenProvided)
	}

	claims, err := a.jwtService.Verify(token)
	if err != nil {
		return nil, &apperrors.AppError{
			Code:    apperrors.Code(apperrors.ErrTokenInvalid),
			Message: msgInvalidOrExpiredToken,
			Err:     errors.Join(apperrors.ErrTokenInvalid, err),
		}
	}

	// tokens without a fingerprint were not bound by their issuer
	principal := claims.Principal()
	principal.TokenSource = source
	if principal.HasFingerprint() {
		if !MatchFingerprint(principal.Fingerprint, c.Request().UserAgent(), c.RealIP()) {
			return nil, apperrors.Wrap(apperrors.ErrFingerprintMismatch, msgFingerprintMismatch)
		}
	}

	return principal, nil
}

// CheckCredential is used by the CORS preflight on protected paths.
func (a *Authenticator) CheckCredential(c echo.Context) error {
	_, err := a.Authenticate(c)
	return err
}

func denyFor(err error) gateway.Decision {
	message := msgInvalidOrExpiredToken
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	for _, sentinel := range []error{
		apperrors.ErrTokenMissing,
		apperrors.ErrFingerprintMismatch,
		apperrors.ErrAPIKeyInvalid,
	} {
		if errors.Is(err, sentinel) {
			return gateway.Deny(sentinel, message)
		}
	}
	return gateway.Deny(apperrors.ErrTokenInvalid, message)
}

// DenyForCredentialError exposes the credential error mapping to other
// gates that verify tokens, such as the preflight check.
func DenyForCredentialError(err error) gateway.Decision {
	return denyFor(err)
}

package middleware

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"auth-gateway/internal/auth"
	"auth-gateway/internal/gateway"
	apperrors "auth-gateway/pkg/errors"

	"github.com/labstack/echo/v4"
)

const GateCORS = "cors"

const (
	corsAllowHeaders  = "Content-Type, Authorization, x-api-key, X-Requested-With, X-CSRF-Token"
	corsAllowMethods  = "GET,POST,PUT,DELETE,OPTIONS,HEAD"
	corsExposeHeaders = "X-CSRF-Token, X-Request-ID, Retry-After, X-RateLimit-Limit, X-RateLimit-Remaining"
	corsMaxAge        = 24 * time.Hour

	msgOriginRejected = "Origin not allowed by CORS policy"

	wildcardOrigin = "*"
	wildcardPrefix = "*."
)

// CORSConfig is the cross-origin policy loaded at startup.
type CORSConfig struct {
	AllowedOrigins       []string
	PublicPrefixes       []string
	OptionalAuthPrefixes []string
	// DisableLocalhost turns off the localhost / 127.0.0.1 exemption.
	DisableLocalhost bool
	// Production hides the allow-list from rejection bodies.
	Production bool
}

// Verdict is the outcome of classifying (origin, path, method).
type Verdict int

const (
	VerdictReject Verdict = iota
	VerdictAllowPublic
	VerdictAllowOptionalAuth
	VerdictAllowProtected
)

func (v Verdict) String() string {
	switch v {
	case VerdictAllowPublic:
		return "allow-public"
	case VerdictAllowOptionalAuth:
		return "allow-optional-auth"
	case VerdictAllowProtected:
		return "allow-protected"
	default:
		return "reject"
	}
}

type wildcardEntry struct {
	scheme string
	suffix string
}

// CORSPolicy evaluates origins and classifies paths. It is immutable after
// construction.
type CORSPolicy struct {
	config    CORSConfig
	allowAll  bool
	exact     map[string]bool
	wildcards []wildcardEntry
}

func NewCORSPolicy(cfg CORSConfig) *CORSPolicy {
	p := &CORSPolicy{
		config: cfg,
		exact:  make(map[string]bool, len(cfg.AllowedOrigins)),
	}
	for _, raw := range cfg.AllowedOrigins {
		origin := normalizeOrigin(raw)
		switch {
		case origin == "":
			continue
		case origin == wildcardOrigin:
			p.allowAll = true
		case strings.Contains(origin, "://"+wildcardPrefix):
			scheme, host, _ := strings.Cut(origin, "://")
			p.wildcards = append(p.wildcards, wildcardEntry{
				scheme: scheme,
				suffix: strings.TrimPrefix(host, "*"),
			})
		default:
			p.exact[origin] = true
		}
	}
	return p
}

func normalizeOrigin(origin string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(origin)), "/")
}

// OriginAllowed reports whether a browser origin may call the API. An
// absent origin is a non-browser client and is allowed.
func (p *CORSPolicy) OriginAllowed(origin string) bool {
	origin = normalizeOrigin(origin)
	if origin == "" || p.allowAll || p.exact[origin] {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}

	for _, w := range p.wildcards {
		if u.Scheme == w.scheme && strings.HasSuffix(u.Host, w.suffix) && len(u.Host) > len(w.suffix) {
			return true
		}
	}

	if !p.config.DisableLocalhost {
		switch u.Hostname() {
		case "localhost", "127.0.0.1":
			return true
		}
	}
	return false
}

// ClassifyPath maps a request path to its path class.
func (p *CORSPolicy) ClassifyPath(path string) gateway.PathClass {
	if hasAnyPrefix(path, p.config.PublicPrefixes) {
		return gateway.ClassPublic
	}
	if hasAnyPrefix(path, p.config.OptionalAuthPrefixes) {
		return gateway.ClassOptionalAuth
	}
	return gateway.ClassProtected
}

// Classify returns the CORS verdict. Public paths skip the origin check.
func (p *CORSPolicy) Classify(origin, path, method string) Verdict {
	class := p.ClassifyPath(path)
	if class == gateway.ClassPublic {
		return VerdictAllowPublic
	}
	if !p.OriginAllowed(origin) {
		return VerdictReject
	}
	if class == gateway.ClassOptionalAuth {
		return VerdictAllowOptionalAuth
	}
	return VerdictAllowProtected
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// CredentialChecker validates the credential of a preflight request.
type CredentialChecker interface {
	CheckCredential(c echo.Context) error
}

// CORSGate answers preflights and rejects disallowed origins. It records the
// path class for the gates after it. checker may be nil, in which case
// preflights on protected paths are not token checked.
func CORSGate(policy *CORSPolicy, checker CredentialChecker) gateway.Gate {
	return gateway.NewGate(GateCORS, func(c echo.Context) gateway.Decision {
		req := c.Request()
		res := c.Response()
		origin := req.Header.Get(echo.HeaderOrigin)
		path := req.URL.Path

		res.Header().Add(echo.HeaderVary, echo.HeaderOrigin)

		verdict := policy.Classify(origin, path, req.Method)
		if verdict == VerdictReject {
			d := gateway.Deny(apperrors.ErrOriginRejected, msgOriginRejected).
				With("origin", origin).
				With("path", path)
			if !policy.config.Production {
				d = d.With("allowedOrigins", policy.config.AllowedOrigins)
			}
			return d
		}

		class := policy.ClassifyPath(path)
		gateway.SetPathClass(c, class)

		if origin != "" && policy.OriginAllowed(origin) {
			res.Header().Set(echo.HeaderAccessControlAllowOrigin, origin)
			res.Header().Set(echo.HeaderAccessControlAllowCredentials, "true")
			res.Header().Set(echo.HeaderAccessControlExposeHeaders, corsExposeHeaders)
		}

		if req.Method != http.MethodOptions {
			return gateway.Allow()
		}

		res.Header().Set(echo.HeaderAccessControlAllowHeaders, corsAllowHeaders)
		res.Header().Set(echo.HeaderAccessControlAllowMethods, corsAllowMethods)
		res.Header().Set(echo.HeaderAccessControlMaxAge, strconv.Itoa(int(corsMaxAge.Seconds())))

		if class == gateway.ClassProtected && checker != nil {
			if err := checker.CheckCredential(c); err != nil {
				return auth.DenyForCredentialError(err)
			}
		}
		return gateway.Halt(http.StatusOK)
	})
}

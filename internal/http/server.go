package http

import (
	"context"
	stdhttp "net/http"

	"auth-gateway/internal/audit"
	"auth-gateway/internal/auth"
	"auth-gateway/internal/config"
	"auth-gateway/internal/gateway"
	"auth-gateway/internal/http/handler"
	"auth-gateway/internal/http/middleware"
	"auth-gateway/internal/infra/cache"
	"auth-gateway/internal/rbac"
	"auth-gateway/internal/rbac/presets"
	"auth-gateway/pkg/metrics"
	"auth-gateway/pkg/profiling"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

const (
	requestBodyLimit = "1M"

	routeHealth    = "/health"
	routeReady     = "/health/ready"
	routeCSRFToken = "/api/auth/csrf-token"
	routeMe        = "/api/me"
	routeAudit     = "/api/admin/audit"
)

type ServerDependencies struct {
	Config        *config.Config
	Logger        zerolog.Logger
	Checker       *rbac.Checker
	JWTService    *auth.JWTService
	APIKeyService *auth.APIKeyService
	RateStore     cache.RateStore
	Metrics       *metrics.Metrics
	AuditLogger   *audit.Logger
	// AuditReader backs GET /api/admin/audit; the route is absent without it.
	AuditReader audit.Reader
	// ReadinessChecks are pinged by GET /health/ready.
	ReadinessChecks map[string]handler.Pinger
}

type Server struct {
	echo       *echo.Echo
	deps       *ServerDependencies
	pipeline   *gateway.Pipeline
	authorizer *auth.Authorizer
	csrf       *middleware.CSRFManager
}

func NewServer(deps *ServerDependencies) *Server {
	cfg := deps.Config
	if deps.RateStore == nil {
		deps.RateStore = cache.NewMemoryStore()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	policy := middleware.NewCORSPolicy(middleware.CORSConfig{
		AllowedOrigins:       cfg.CORS.AllowedOrigins,
		PublicPrefixes:       cfg.CORS.PublicPrefixes,
		OptionalAuthPrefixes: cfg.CORS.OptionalAuthPrefixes,
		DisableLocalhost:     !cfg.CORS.AllowLocalhost,
		Production:           cfg.IsProduction(),
	})
	authenticator := auth.NewAuthenticator(deps.JWTService, deps.APIKeyService, auth.AuthenticatorConfig{
		TokenCookieName: cfg.JWT.CookieName,
	})
	authorizer := auth.NewAuthorizer(deps.Checker, auth.NewRouteRequirements())
	limiter := middleware.NewFixedWindowLimiter(deps.RateStore, middleware.FixedWindowConfig{
		Limit:          cfg.RateLimit.Max,
		Window:         cfg.RateLimit.Window,
		ExemptPrefixes: cfg.RateLimit.ExemptPrefixes,
	})
	frontend := middleware.NewFrontendValidator(policy, cfg.Frontend.CookieName)
	csrf := middleware.NewCSRFManager(middleware.CSRFConfig{
		Secret:         cfg.CSRF.Secret,
		TTL:            cfg.CSRF.TTL,
		CookieName:     middleware.DefaultCSRFCookie,
		Secure:         cfg.IsProduction(),
		ExemptPrefixes: cfg.CSRF.ExemptPrefixes,
	}, policy)

	pipeline := gateway.New(
		middleware.CORSGate(policy, authenticator),
		limiter.Gate(),
		frontend.Gate(),
		authenticator.Gate(),
		authorizer.Gate(),
		csrf.Gate(),
	).Observe(deps.Metrics)
	if deps.AuditLogger != nil {
		pipeline.Observe(deps.AuditLogger)
	}

	// Request ID middleware (first, so all logs have request ID)
	e.Use(middleware.RequestID())
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(middleware.RequestLogger(deps.Logger))
	e.Use(deps.Metrics.MetricsMiddleware())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.BodyLimit(requestBodyLimit))
	e.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	e.Use(pipeline.Middleware())

	s := &Server{
		echo:       e,
		deps:       deps,
		pipeline:   pipeline,
		authorizer: authorizer,
		csrf:       csrf,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	healthHandler := handler.NewHealthHandler(s.deps.ReadinessChecks)
	csrfHandler := handler.NewCSRFHandler(s.csrf)
	meHandler := handler.NewMeHandler(s.deps.Checker)

	// public: classified by the configured prefixes, no requirements
	s.echo.GET(routeHealth, healthHandler.Live)
	s.echo.GET(routeReady, healthHandler.Ready)
	s.deps.Metrics.RegisterMetricsRoute(s.echo)

	// Strict rate limiting for token minting
	strictRateLimiter := middleware.NewStrictRateLimiter()
	s.HandleWith(stdhttp.MethodGet, routeCSRFToken, csrfHandler.Token,
		[]echo.MiddlewareFunc{strictRateLimiter.Middleware()})
	s.Handle(stdhttp.MethodGet, routeMe, meHandler.Me)

	if s.deps.AuditReader != nil {
		auditHandler := handler.NewAuditHandler(s.deps.AuditReader)
		s.Handle(stdhttp.MethodGet, routeAudit, auditHandler.List, auth.Permission(presets.PermissionUsersManage))
	}

	if s.deps.Config.Server.EnableProfiling {
		profiling.RegisterPprofRoutes(func(method, path string, h echo.HandlerFunc) {
			s.Handle(method, path, h, auth.Permission(presets.PermissionUsersManage))
		})
	}
}

// Handle registers a protected route and declares the requirements the
// authorization gate enforces for it. With no requirements the route only
// needs an authenticated Principal.
func (s *Server) Handle(method, path string, h echo.HandlerFunc, reqs ...auth.Requirement) *echo.Route {
	return s.HandleWith(method, path, h, nil, reqs...)
}

// HandleWith is Handle with route-level middleware, which runs after the
// pipeline. It panics when a requirement names a permission the model does
// not define.
func (s *Server) HandleWith(method, path string, h echo.HandlerFunc, mws []echo.MiddlewareFunc, reqs ...auth.Requirement) *echo.Route {
	if err := s.authorizer.Declare(method, path, reqs...); err != nil {
		panic(err)
	}
	return s.echo.Add(method, path, h, mws...)
}

// Echo exposes the underlying router, mostly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// GateNames lists the pipeline gates in evaluation order.
func (s *Server) GateNames() []string {
	return s.pipeline.Names()
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

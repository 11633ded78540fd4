package app

import (
	"context"
	"fmt"

	"auth-gateway/internal/audit"
	"auth-gateway/internal/auth"
	"auth-gateway/internal/config"
	gatewayhttp "auth-gateway/internal/http"
	"auth-gateway/internal/http/handler"
	"auth-gateway/internal/infra/cache"
	"auth-gateway/internal/infra/postgres"
	"auth-gateway/internal/rbac"
	"auth-gateway/internal/rbac/presets"
	"auth-gateway/pkg/metrics"

	"github.com/rs/zerolog"
)

// InitializeService wires up all dependencies and returns a configured
// Service. Redis and Postgres are connected only when configured.
func InitializeService(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Service, error) {
	s := &Service{config: cfg, log: log}
	checks := map[string]handler.Pinger{}

	// Initialize RBAC checker with the gateway preset
	checker := rbac.MustNew(presets.Gateway())

	apiKeys, err := newAPIKeyService(cfg, checker)
	if err != nil {
		return nil, err
	}

	var store cache.RateStore = cache.NewMemoryStore()
	if cfg.RateLimit.Store == config.RateLimitStoreRedis {
		client, err := cache.NewRedisClient(ctx, cfg.RateLimit.RedisAddr, cfg.RateLimit.RedisPassword, cfg.RateLimit.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.redis = client
		store = cache.NewRedisStore(client, "")
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		log.Info().Str("addr", cfg.RateLimit.RedisAddr).Msg("rate limit store: redis")
	} else {
		log.Info().Msg("rate limit store: memory")
	}

	sinks := []audit.Sink{audit.NewZerologSink(log)}
	var auditReader audit.Reader
	if cfg.Database.URL != "" {
		pool, err := postgres.NewPool(ctx, postgres.Config{
			URL:      cfg.Database.URL,
			MaxConns: int32(cfg.Database.MaxConns),
		})
		if err != nil {
			s.Close()
			return nil, err
		}
		s.pool = pool

		pgSink := audit.NewPostgresSink(pool)
		if err := pgSink.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to prepare audit schema: %w", err)
		}
		sinks = append(sinks, pgSink)
		auditReader = pgSink
		checks["postgres"] = pool
		log.Info().Msg("audit sink: postgres")
	}
	s.audit = audit.NewLogger(log, cfg.Audit.BufferSize, sinks...)

	s.server = gatewayhttp.NewServer(&gatewayhttp.ServerDependencies{
		Config:          cfg,
		Logger:          log,
		Checker:         checker,
		JWTService:      auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryDuration),
		APIKeyService:   apiKeys,
		RateStore:       store,
		Metrics:         metrics.New(),
		AuditLogger:     s.audit,
		AuditReader:     auditReader,
		ReadinessChecks: checks,
	})

	return s, nil
}

// newAPIKeyService hashes the configured keys after checking that every
// role exists in the permission model.
func newAPIKeyService(cfg *config.Config, checker *rbac.Checker) (*auth.APIKeyService, error) {
	defs := make([]auth.APIKeyDefinition, 0, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		role, err := checker.ValidateRole(k.Role)
		if err != nil {
			return nil, fmt.Errorf("api key %q: %w", k.Name, err)
		}
		defs = append(defs, auth.APIKeyDefinition{Name: k.Name, Key: k.Key, Role: role})
	}
	return auth.NewAPIKeyService(defs, cfg.APIKeySalt)
}

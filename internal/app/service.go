package app

import (
	"context"
	"errors"
	"net/http"

	"auth-gateway/internal/audit"
	"auth-gateway/internal/config"
	gatewayhttp "auth-gateway/internal/http"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const serverAddrPrefix = ":"

// Service is the running gateway process.
type Service struct {
	config *config.Config
	log    zerolog.Logger
	server *gatewayhttp.Server
	audit  *audit.Logger
	redis  *redis.Client
	pool   *pgxpool.Pool
}

// NewService creates and initializes a new Service instance
// This is a convenience wrapper around InitializeService
func NewService(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Service, error) {
	return InitializeService(ctx, cfg, log)
}

// Start serves HTTP until Shutdown is called.
func (s *Service) Start() error {
	s.log.Info().
		Str("port", s.config.Server.Port).
		Str("environment", s.config.Environment).
		Strs("gates", s.server.GateNames()).
		Msg("starting auth gateway")

	if err := s.server.Start(serverAddrPrefix + s.config.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, drains pending audit writes and
// closes the backing stores.
func (s *Service) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	s.audit.Close()
	s.Close()
	return err
}

// Close releases the external connections.
func (s *Service) Close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.log.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

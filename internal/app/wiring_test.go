package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auth-gateway/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: config.EnvironmentDevelopment,
		Server:      config.ServerConfig{Port: "0", RequestTimeout: time.Second},
		JWT:         config.JWTConfig{Secret: "Zx8!kQ2#rT5$wY7^uI9&oP1*aS3(dF6)", ExpiryDuration: time.Hour, CookieName: "token"},
		CSRF:        config.CSRFConfig{Secret: "mN4@bV6!cX8#zL1$kJ3%hG5^fD7&sA9*", TTL: time.Hour},
		CORS:        config.CORSConfig{PublicPrefixes: []string{"/health", "/metrics"}},
		RateLimit:   config.RateLimitConfig{Window: time.Minute, Max: 10, Store: config.RateLimitStoreMemory},
		APIKeys:     []config.APIKeyConfig{{Name: "billing", Key: "billing-key", Role: "service"}},
	}
}

func TestInitializeService_Memory(t *testing.T) {
	s, err := InitializeService(context.Background(), testConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	assert.Nil(t, s.redis)
	assert.Nil(t, s.pool)

	rec := httptest.NewRecorder()
	s.server.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInitializeService_UnknownAPIKeyRole(t *testing.T) {
	cfg := testConfig()
	cfg.APIKeys = []config.APIKeyConfig{{Name: "broken", Key: "k", Role: "superuser"}}

	_, err := InitializeService(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestInitializeService_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RateLimit.Store = config.RateLimitStoreRedis
	cfg.RateLimit.RedisAddr = mr.Addr()

	s, err := InitializeService(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()
	require.NotNil(t, s.redis)

	rec := httptest.NewRecorder()
	s.server.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "9", rec.Header().Get("X-RateLimit-Remaining"))

	mr.Close()
	rec = httptest.NewRecorder()
	s.server.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestInitializeService_RedisUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Store = config.RateLimitStoreRedis
	cfg.RateLimit.RedisAddr = "127.0.0.1:1"

	_, err := InitializeService(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

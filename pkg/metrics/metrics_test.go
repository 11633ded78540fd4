package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"auth-gateway/internal/gateway"
	apperrors "auth-gateway/pkg/errors"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetricsMiddleware(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.MetricsMiddleware())
	e.GET("/api/items/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/api/fail", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "nope")
	})

	for _, path := range []string{"/api/items/1", "/api/items/2", "/api/fail"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	out := scrape(t, m)
	assert.Contains(t, out, `auth_gateway_http_requests_total{method="GET",route="/api/items/:id",status="200"} 2`)
	assert.Contains(t, out, `auth_gateway_http_requests_total{method="GET",route="/api/fail",status="418"} 1`)
	assert.Contains(t, out, `auth_gateway_http_request_duration_seconds_count{method="GET",route="/api/items/:id"} 2`)
	assert.Contains(t, out, "auth_gateway_http_requests_active 0")
}

func TestObserveDecision(t *testing.T) {
	m := New()

	m.ObserveDecision(nil, "cors", gateway.Allow())
	m.ObserveDecision(nil, "rate_limit", gateway.Deny(apperrors.ErrRateLimited, "slow down"))
	m.ObserveDecision(nil, "csrf", gateway.Deny(errors.New("unmapped"), "boom"))
	m.ObserveDecision(nil, "cors", gateway.Halt(http.StatusOK))

	out := scrape(t, m)
	assert.Contains(t, out, `auth_gateway_gate_decisions_total{code="",gate="cors",outcome="allow"} 1`)
	assert.Contains(t, out, `auth_gateway_gate_decisions_total{code="RATE_LIMIT_EXCEEDED",gate="rate_limit",outcome="deny"} 1`)
	assert.Contains(t, out, `auth_gateway_gate_decisions_total{code="500",gate="csrf",outcome="deny"} 1`)
	assert.Contains(t, out, `auth_gateway_gate_decisions_total{code="",gate="cors",outcome="halt"} 1`)
}

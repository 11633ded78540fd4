package metrics

import (
	"net/http"
	"strconv"
	"time"

	"auth-gateway/internal/gateway"
	apperrors "auth-gateway/pkg/errors"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "auth_gateway"

// Metrics holds the gateway's Prometheus collectors. Each instance owns
// its registry so tests and multiple servers do not collide.
type Metrics struct {
	registry       *prometheus.Registry
	requests       *prometheus.CounterVec
	activeRequests prometheus.Gauge
	latency        *prometheus.HistogramVec
	decisions      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		activeRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_active",
				Help:      "Requests currently being served.",
			},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Request latency including every gate.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gate_decisions_total",
				Help:      "Gate decisions by gate, outcome and error code.",
			},
			[]string{"gate", "outcome", "code"},
		),
	}

	m.registry.MustRegister(
		m.requests,
		m.activeRequests,
		m.latency,
		m.decisions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// MetricsMiddleware tracks request count, latency and active requests.
func (m *Metrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.activeRequests.Inc()
			start := time.Now()

			err := next(c)
			if err != nil {
				// let the error handler write the response before reading its status
				c.Error(err)
			}

			m.activeRequests.Dec()

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.latency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			m.requests.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()

			return nil
		}
	}
}

// ObserveDecision counts one gate decision.
func (m *Metrics) ObserveDecision(_ echo.Context, gate string, d gateway.Decision) {
	code := apperrors.Code(d.Err)
	if code == "" && d.Outcome == gateway.OutcomeDeny {
		code = strconv.Itoa(d.Status)
	}
	m.decisions.WithLabelValues(gate, d.Outcome.String(), code).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterMetricsRoute adds GET /metrics
func (m *Metrics) RegisterMetricsRoute(e *echo.Echo) {
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
}

package handler

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	jsonKeyStatus  = "status"
	jsonKeyChecks  = "checks"
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusDown     = "unavailable"

	defaultReadinessTimeout = 2 * time.Second
)

// Pinger is a dependency the readiness probe can reach.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	checks  map[string]Pinger
	timeout time.Duration
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: defaultReadinessTimeout}
}

// Live reports that the process serves requests.
func (h *HealthHandler) Live(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		jsonKeyStatus: statusOK,
	})
}

// Ready pings every dependency concurrently and answers 503 when one of
// them is unreachable.
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, name := range names {
		wg.Add(1)
		go func(name string, p Pinger) {
			defer wg.Done()
			result := statusOK
			if err := p.Ping(ctx); err != nil {
				result = statusDown
			}
			mu.Lock()
			results[name] = result
			mu.Unlock()
		}(name, h.checks[name])
	}
	wg.Wait()

	status, code := statusOK, http.StatusOK
	for _, result := range results {
		if result != statusOK {
			status, code = statusDegraded, http.StatusServiceUnavailable
		}
	}

	return c.JSON(code, map[string]any{
		jsonKeyStatus: status,
		jsonKeyChecks: results,
	})
}

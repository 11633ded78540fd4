package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"auth-gateway/internal/auth"
	"auth-gateway/internal/gateway"
	"auth-gateway/internal/infra/cache"
	apperrors "auth-gateway/pkg/errors"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const GateRateLimit = "rate_limit"

const (
	DefaultRateLimitWindow = 60 * time.Second
	DefaultRateLimitMax    = 200

	headerRateLimitLimit     = "X-RateLimit-Limit"
	headerRateLimitRemaining = "X-RateLimit-Remaining"
	headerRateLimitReset     = "X-RateLimit-Reset"

	msgRateLimited        = "Too many requests, please try again later"
	msgRateLimiterFailure = "Rate limiter unavailable"
)

// RateResult is the state of a client's window after counting a request.
type RateResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

// RetryAfter is the whole number of seconds until the window resets, at
// least one.
func (r RateResult) RetryAfter(now time.Time) int {
	secs := int(math.Ceil(r.ResetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// FixedWindowLimiter counts requests per key in fixed windows held by a
// cache.RateStore.
type FixedWindowLimiter struct {
	store  cache.RateStore
	limit  int64
	window time.Duration
	exempt []string
	now    func() time.Time
}

type FixedWindowConfig struct {
	Limit          int
	Window         time.Duration
	ExemptPrefixes []string
}

func NewFixedWindowLimiter(store cache.RateStore, cfg FixedWindowConfig) *FixedWindowLimiter {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultRateLimitMax
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultRateLimitWindow
	}
	return &FixedWindowLimiter{
		store:  store,
		limit:  int64(cfg.Limit),
		window: cfg.Window,
		exempt: cfg.ExemptPrefixes,
		now:    time.Now,
	}
}

// Allow counts one request for key.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (RateResult, error) {
	bucket, err := l.store.Incr(ctx, key)
	if err != nil {
		return RateResult{}, err
	}

	now := l.now()
	if bucket.Count == 1 || bucket.ResetAt.IsZero() {
		if err := l.store.Expire(ctx, key, l.window); err != nil {
			return RateResult{}, err
		}
		bucket.ResetAt = now.Add(l.window)
	}

	remaining := l.limit - bucket.Count
	if remaining < 0 {
		remaining = 0
	}
	return RateResult{
		Allowed:   bucket.Count <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   bucket.ResetAt,
	}, nil
}

// Exempt reports whether path is outside the limiter.
func (l *FixedWindowLimiter) Exempt(path string) bool {
	return hasAnyPrefix(path, l.exempt)
}

// Gate limits each client IP. A store failure denies with 503.
func (l *FixedWindowLimiter) Gate() gateway.Gate {
	return gateway.NewGate(GateRateLimit, func(c echo.Context) gateway.Decision {
		if c.Request().Method == http.MethodOptions || l.Exempt(c.Request().URL.Path) {
			return gateway.Allow()
		}

		result, err := l.Allow(c.Request().Context(), "ip:"+c.RealIP())
		if err != nil {
			return gateway.Deny(fmt.Errorf("%w: %w", apperrors.ErrRateStoreFailure, err), msgRateLimiterFailure)
		}

		h := c.Response().Header()
		h.Set(headerRateLimitLimit, strconv.FormatInt(result.Limit, 10))
		h.Set(headerRateLimitRemaining, strconv.FormatInt(result.Remaining, 10))
		h.Set(headerRateLimitReset, strconv.FormatInt(result.ResetAt.Unix(), 10))

		if result.Allowed {
			return gateway.Allow()
		}

		retryAfter := result.RetryAfter(l.now())
		h.Set(echo.HeaderRetryAfter, strconv.Itoa(retryAfter))
		return gateway.Deny(apperrors.ErrRateLimited, msgRateLimited).
			With("resetTime", result.ResetAt.UTC().Format(time.RFC3339)).
			With("resetTimeMs", result.ResetAt.UnixMilli()).
			With("retryAfter", retryAfter)
	})
}

// RateLimiter implements token bucket rate limiting per identity
type RateLimiter struct {
	limiters sync.Map // key -> *rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter
// requestsPerSecond: number of requests allowed per second
// burst: maximum burst size
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:  rate.Limit(requestsPerSecond),
		burst: burst,
	}
}

// getLimiter gets or creates a rate limiter for the given key
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	limiter, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	return limiter.(*rate.Limiter)
}

// Allow checks if a request should be allowed for the given key
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// identityKey prefers the authenticated principal over the client IP.
func identityKey(c echo.Context) string {
	if p, ok := auth.GetPrincipal(c); ok {
		return string(p.AuthType) + ":" + p.UserID
	}
	return "ip:" + c.RealIP()
}

// Middleware returns an Echo middleware function for rate limiting
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			limiter := rl.getLimiter(identityKey(c))

			h := c.Response().Header()
			h.Set(headerRateLimitLimit, strconv.Itoa(rl.burst))

			if !limiter.Allow() {
				h.Set(headerRateLimitRemaining, "0")
				h.Set(echo.HeaderRetryAfter, "1")
				return gateway.WriteError(c, http.StatusTooManyRequests, apperrors.ErrRateLimited, msgRateLimited, nil)
			}

			h.Set(headerRateLimitRemaining, strconv.Itoa(int(limiter.Tokens())))
			return next(c)
		}
	}
}

// StrictRateLimiter is a more aggressive rate limiter for sensitive endpoints
type StrictRateLimiter struct {
	*RateLimiter
}

// NewStrictRateLimiter creates a strict rate limiter for sensitive operations
func NewStrictRateLimiter() *StrictRateLimiter {
	return &StrictRateLimiter{
		RateLimiter: NewRateLimiter(1, 5),
	}
}

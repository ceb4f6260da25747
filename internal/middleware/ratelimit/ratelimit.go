// Package ratelimit guards the externally reachable settlement endpoints with
// a sliding-window request gate. The window state lives behind CounterStore so
// multi-instance deployments can share it through redis instead of process
// memory.
package ratelimit

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CounterStore records request hits per caller key. Hit registers one request
// at now and returns how many requests remain inside the window ending at now.
type CounterStore interface {
	Hit(ctx context.Context, key string, window time.Duration, now time.Time) (int, error)
}

// Gate is a sliding-window rate limiter keyed by caller fingerprint.
type Gate struct {
	store       CounterStore
	window      time.Duration
	maxRequests int
	logger      *zap.Logger
}

// NewGate creates a new rate limit gate.
func NewGate(store CounterStore, window time.Duration, maxRequests int, logger *zap.Logger) *Gate {
	return &Gate{
		store:       store,
		window:      window,
		maxRequests: maxRequests,
		logger:      logger,
	}
}

// Allow reports whether one more request from key fits in the current window.
// A store failure fails open: blocking settlements on a counter outage would
// be worse than briefly losing the limit.
func (g *Gate) Allow(ctx context.Context, key string) bool {
	count, err := g.store.Hit(ctx, key, g.window, time.Now())
	if err != nil {
		g.logger.Error("Rate limit store unavailable, failing open",
			zap.String("key", key),
			zap.Error(err))
		return true
	}
	return count <= g.maxRequests
}

// Middleware rejects over-limit callers with 429 before any provider call is
// made. The fingerprint combines network address and authenticated user.
func Middleware(gate *Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if userID, ok := c.Get("user_id").(string); ok && userID != "" {
				key += ":" + userID
			}

			if !gate.Allow(c.Request().Context(), key) {
				gate.logger.Warn("Rate limit exceeded",
					zap.String("key", key),
					zap.String("path", c.Request().URL.Path))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"success": false,
					"error":   "rate limit exceeded",
				})
			}

			return next(c)
		}
	}
}

// Package ratelimit bounds request volume per client with fixed windows.
// A memory limiter serves single-instance deployments; RedisLimiter shares
// counters across instances.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

const (
	defaultLimit  = 100
	defaultWindow = time.Minute
)

// ErrInvalidConfig is returned when a limiter is built with a non-positive limit or window
var ErrInvalidConfig = errors.New("ratelimit: limit and window must be positive")

// Limiter decides whether one more request for key fits in the current window
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Config holds limiter settings
type Config struct {
	// Limit is the maximum number of requests per key per window (default: 100)
	Limit int

	// Window is the length of a fixed window (default: 1m)
	Window time.Duration
}

func (c Config) withDefaults() (Config, error) {
	if c.Limit == 0 {
		c.Limit = defaultLimit
	}
	if c.Window == 0 {
		c.Window = defaultWindow
	}
	if c.Limit < 0 || c.Window < 0 {
		return c, ErrInvalidConfig
	}
	return c, nil
}

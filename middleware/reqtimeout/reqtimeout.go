// Package reqtimeout adapts the teacher's timeout middleware
// (bolt/middleware/timeout.go) to Aurora's Middleware shape: a handler
// that overruns its budget is abandoned in place of a 408, rather than
// forcibly killed — Go gives no way to preempt a running goroutine, so
// like the teacher's version this only bounds how long the caller
// waits, not how long the orphaned handler goroutine keeps running.
package reqtimeout

import (
	"context"
	"time"

	"github.com/aurorahttp/aurora"
)

// Config mirrors the teacher's TimeoutConfig (bolt/middleware/timeout.go).
type Config struct {
	// Timeout is the maximum duration a request may run. Default: 30s.
	Timeout time.Duration

	// SkipPaths bypass the timeout entirely (e.g. long-poll/upload routes).
	SkipPaths []string

	// Handler renders the response once Timeout elapses. Default: 408 JSON.
	Handler func(c *aurora.Context) error
}

// DefaultConfig returns a 30-second timeout with no skipped paths.
func DefaultConfig() Config {
	return Config{Timeout: 30 * time.Second}
}

// New builds the middleware from cfg, filling in any zero-valued
// defaults.
func New(cfg Config) aurora.Middleware {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(c *aurora.Context, next aurora.Next) error {
		if skip[c.Path()] {
			return next()
		}

		ctx, cancel := context.WithTimeout(c.Context(), cfg.Timeout)
		defer cancel()

		done := make(chan error, 1)
		go func() { done <- next() }()

		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			if cfg.Handler != nil {
				return cfg.Handler(c)
			}
			return c.JSON(408, map[string]any{
				"error":   "Request timeout",
				"timeout": cfg.Timeout.String(),
			})
		}
	}
}

// Default builds the middleware with DefaultConfig.
func Default() aurora.Middleware { return New(DefaultConfig()) }

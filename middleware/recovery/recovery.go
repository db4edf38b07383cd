// Package recovery adapts the teacher's panic-recovery middleware
// (bolt/middleware/recovery.go) to Aurora's Middleware shape. Handler
// panics are already unconditionally caught one layer down, inside
// App.dispatch (server.go) — that catch is what actually guarantees
// spec §4.11's "nothing propagates out of the fiber" invariant
// regardless of whether an embedder remembers to register middleware.
// This package exists for callers who want the teacher's customization
// knobs (custom response body, custom logging sink, stack-size cap)
// instead of the framework's plain default.
package recovery

import (
	"fmt"
	"io"
	"runtime/debug"

	"github.com/aurorahttp/aurora"
	"github.com/aurorahttp/aurora/internal/alog"
)

// Config mirrors the teacher's RecoveryConfig (bolt/middleware/recovery.go).
type Config struct {
	// PrintStack enables stack trace logging (default: true).
	PrintStack bool

	// StackSize caps how much of the stack trace is logged (default: 4KB).
	StackSize int

	// LogOutput, if set, receives the "PANIC: ...\n<stack>" text instead
	// of the package's structured alog.Logger.
	LogOutput io.Writer

	// Handler, if set, replaces the default 500 JSON body.
	Handler func(c *aurora.Context, recovered any) error
}

// DefaultConfig returns the teacher's defaults: print a 4KB stack, no
// custom output sink, no custom handler.
func DefaultConfig() Config {
	return Config{PrintStack: true, StackSize: 4 << 10}
}

// New builds a recovery Middleware from cfg.
func New(cfg Config) aurora.Middleware {
	if cfg.StackSize <= 0 {
		cfg.StackSize = 4 << 10
	}
	return func(c *aurora.Context, next aurora.Next) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			stack := debug.Stack()
			if len(stack) > cfg.StackSize {
				stack = stack[:cfg.StackSize]
			}
			if cfg.PrintStack {
				if cfg.LogOutput != nil {
					fmt.Fprintf(cfg.LogOutput, "PANIC: %v\n%s\n", r, stack)
				} else {
					alog.Logger.WithFields(alog.Fields{"panic": r, "path": c.Path()}).Error(string(stack))
				}
			}
			if cfg.Handler != nil {
				err = cfg.Handler(c, r)
				return
			}
			err = c.JSON(500, map[string]any{"error": "Internal server error"})
		}()
		return next()
	}
}

// Default returns recovery middleware with DefaultConfig(), the
// teacher's Recovery() convenience constructor.
func Default() aurora.Middleware { return New(DefaultConfig()) }

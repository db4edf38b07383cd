// Package accesslog adapts the teacher's request-logging middleware
// (bolt/middleware/logger.go) to Aurora's Middleware shape. The
// teacher logs through the stdlib "log" package; Aurora's ambient
// logger is internal/alog (a logrus wrapper already used for every
// other server-lifecycle log line in server.go), so this package logs
// through alog.Logger by default instead of reintroducing a second
// logging path — a caller that wants the teacher's plain
// io.Writer-and-JSON-encoder behavior can still set Config.Output.
package accesslog

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aurorahttp/aurora"
	"github.com/aurorahttp/aurora/internal/alog"
)

// Config mirrors the teacher's LoggerConfig (bolt/middleware/logger.go).
type Config struct {
	// Output, if set, receives one JSON object per request instead of
	// going through alog.Logger.
	Output io.Writer

	// SkipPaths bypass logging entirely (e.g. /health, /metrics).
	SkipPaths []string
}

// DefaultConfig returns a Config with no skip list, logging through
// alog.Logger.
func DefaultConfig() Config { return Config{} }

// Entry is one structured access-log record.
type Entry struct {
	Time       string  `json:"time"`
	Method     string  `json:"method"`
	Path       string  `json:"path"`
	Status     int     `json:"status"`
	DurationMS float64 `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}

// New builds the middleware from cfg.
func New(cfg Config) aurora.Middleware {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(c *aurora.Context, next aurora.Next) error {
		if skip[c.Path()] {
			return next()
		}

		start := time.Now()
		err := next()
		duration := time.Since(start)

		status := c.Response().Status
		if status == 0 {
			status = 200
		}

		entry := Entry{
			Time:       start.Format(time.RFC3339),
			Method:     c.Method().String(),
			Path:       c.Path(),
			Status:     status,
			DurationMS: float64(duration.Microseconds()) / 1000.0,
		}
		if err != nil {
			entry.Error = err.Error()
		}

		if cfg.Output != nil {
			if encErr := json.NewEncoder(cfg.Output).Encode(entry); encErr != nil {
				fmt.Fprintf(cfg.Output, "accesslog: encode failed: %v\n", encErr)
			}
		} else {
			fields := alog.Fields{
				"method":      entry.Method,
				"path":        entry.Path,
				"status":      entry.Status,
				"duration_ms": entry.DurationMS,
			}
			line := alog.Logger.WithFields(fields)
			if err != nil {
				line = line.WithError(err)
			}
			line.Info("aurora: access")
		}

		return err
	}
}

// Default builds the middleware with DefaultConfig.
func Default() aurora.Middleware { return New(DefaultConfig()) }

// Package cors adapts the teacher's CORS middleware
// (bolt/middleware/cors.go) to Aurora's Middleware shape: same default
// origin/method/header set, same preflight short-circuit on OPTIONS,
// rebuilt against aurora.Context/aurora.Next instead of a
// next-wrapping Handler chain.
package cors

import (
	"strconv"
	"strings"

	"github.com/aurorahttp/aurora"
	"github.com/aurorahttp/aurora/internal/httpparser"
)

// Config mirrors the teacher's CORSConfig (bolt/middleware/cors.go).
type Config struct {
	// AllowOrigins lists allowed origins. ["*"] (the default) allows all.
	AllowOrigins []string

	// AllowMethods lists allowed HTTP methods.
	AllowMethods []string

	// AllowHeaders lists allowed request headers. ["*"] allows all.
	AllowHeaders []string

	// ExposeHeaders lists headers exposed to the client.
	ExposeHeaders []string

	// AllowCredentials sets Access-Control-Allow-Credentials.
	AllowCredentials bool

	// MaxAge is the preflight cache duration in seconds. Default: 86400.
	MaxAge int
}

// DefaultConfig returns the teacher's defaults: all origins, the usual
// verb set, all headers, no exposed headers, no credentials, 24h cache.
func DefaultConfig() Config {
	return Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"},
		AllowHeaders: []string{"*"},
		MaxAge:       86400,
	}
}

// New builds the middleware from cfg, filling in any zero-valued
// defaults and pre-computing the header values every request reuses.
func New(cfg Config) aurora.Middleware {
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = []string{"*"}
	}
	if len(cfg.AllowMethods) == 0 {
		cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"}
	}
	if len(cfg.AllowHeaders) == 0 {
		cfg.AllowHeaders = []string{"*"}
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 86400
	}

	allowMethods := strings.Join(cfg.AllowMethods, ", ")
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")
	exposeHeaders := strings.Join(cfg.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	allowAllOrigins := false
	originSet := make(map[string]bool, len(cfg.AllowOrigins))
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			allowAllOrigins = true
			break
		}
		originSet[o] = true
	}

	return func(c *aurora.Context, next aurora.Next) error {
		origin := c.Header("Origin")

		var allowOrigin string
		switch {
		case allowAllOrigins:
			allowOrigin = "*"
		case origin != "" && originSet[origin]:
			allowOrigin = origin
		}

		if allowOrigin != "" {
			c.SetHeader("Access-Control-Allow-Origin", allowOrigin)
			if cfg.AllowCredentials {
				c.SetHeader("Access-Control-Allow-Credentials", "true")
			}
			if len(cfg.ExposeHeaders) > 0 {
				c.SetHeader("Access-Control-Expose-Headers", exposeHeaders)
			}
		}

		if c.Method() == httpparser.MethodOPTIONS {
			if allowOrigin != "" {
				c.SetHeader("Access-Control-Allow-Methods", allowMethods)
				c.SetHeader("Access-Control-Allow-Headers", allowHeaders)
				c.SetHeader("Access-Control-Max-Age", maxAge)
			}
			return c.Send(204, "text/plain; charset=utf-8", nil)
		}

		return next()
	}
}

// Default builds the middleware with DefaultConfig.
func Default() aurora.Middleware { return New(DefaultConfig()) }

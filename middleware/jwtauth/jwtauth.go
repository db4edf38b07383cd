// Package jwtauth is a JWT bearer-token authentication middleware for
// Aurora, grounded on the teacher's middleware/jwt package: the same
// Bearer-header parsing, per-path skip list, and validated-token cache,
// rebuilt against aurora.Middleware/aurora.Context instead of a
// next-wrapping Handler chain.
package jwtauth

import (
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aurorahttp/aurora"
)

// Config configures the JWT middleware.
type Config struct {
	// Secret validates HMAC-signed tokens (HS256/HS384/HS512).
	Secret []byte

	// Algorithm is the expected signing algorithm. Default: HS256.
	Algorithm string

	// SkipPaths bypass authentication entirely (e.g. /login).
	SkipPaths []string

	// StorageKey is the Context.Storage() key claims are stored under.
	// Default: "user".
	StorageKey string

	// ErrorHandler renders the response on auth failure. Default: 401 JSON.
	ErrorHandler func(c *aurora.Context, err error) error

	// CacheTTL is how long a validated token is trusted without
	// re-verifying its signature. Default: 5 minutes.
	CacheTTL time.Duration
}

// DefaultConfig returns a Config with secret and sane defaults applied.
func DefaultConfig(secret []byte) Config {
	return Config{
		Secret:     secret,
		Algorithm:  "HS256",
		StorageKey: "user",
		CacheTTL:   5 * time.Minute,
	}
}

// New builds the middleware from cfg, filling in any zero-valued
// defaults and starting the cache's background eviction goroutine.
func New(cfg Config) aurora.Middleware {
	if cfg.Algorithm == "" {
		cfg.Algorithm = "HS256"
	}
	if cfg.StorageKey == "" {
		cfg.StorageKey = "user"
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	cache := newTokenCache(cfg.CacheTTL)
	go cache.evictLoop()

	return func(c *aurora.Context, next aurora.Next) error {
		if skip[c.Path()] {
			return next()
		}

		auth := c.Header("Authorization")
		if auth == "" {
			return fail(c, cfg.ErrorHandler, ErrMissingToken)
		}

		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return fail(c, cfg.ErrorHandler, ErrInvalidAuthHeader)
		}
		tokenString := parts[1]

		if claims, ok := cache.get(tokenString); ok {
			c.Storage().Set(cfg.StorageKey, claims)
			return next()
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != cfg.Algorithm {
				return nil, ErrUnexpectedAlgorithm
			}
			return cfg.Secret, nil
		})
		if err != nil {
			return fail(c, cfg.ErrorHandler, err)
		}
		if !token.Valid {
			return fail(c, cfg.ErrorHandler, ErrInvalidToken)
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return fail(c, cfg.ErrorHandler, ErrInvalidClaims)
		}

		cache.set(tokenString, claims)
		c.Storage().Set(cfg.StorageKey, claims)
		return next()
	}
}

func fail(c *aurora.Context, handler func(*aurora.Context, error) error, err error) error {
	if handler != nil {
		return handler(c, err)
	}
	return c.JSON(401, map[string]string{"error": err.Error()})
}

// HTTPError-free sentinels — this package never returns an
// aurora.HTTPError directly, so embedding apps can map them to their
// own exception classes via ErrorHandler if they want hierarchical
// dispatch instead of the flat 401 default.
var (
	ErrMissingToken        = stringError("jwtauth: missing authorization token")
	ErrInvalidAuthHeader   = stringError("jwtauth: invalid authorization header format")
	ErrInvalidToken        = stringError("jwtauth: invalid token")
	ErrInvalidClaims       = stringError("jwtauth: invalid token claims")
	ErrUnexpectedAlgorithm = stringError("jwtauth: unexpected signing algorithm")
)

type stringError string

func (e stringError) Error() string { return string(e) }

type cacheEntry struct {
	claims    jwt.MapClaims
	expiresAt time.Time
}

type tokenCache struct {
	mu     sync.RWMutex
	tokens map[string]*cacheEntry
	ttl    time.Duration
}

func newTokenCache(ttl time.Duration) *tokenCache {
	return &tokenCache{tokens: make(map[string]*cacheEntry), ttl: ttl}
}

func (tc *tokenCache) get(token string) (jwt.MapClaims, bool) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	entry, ok := tc.tokens[token]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.claims, true
}

func (tc *tokenCache) set(token string, claims jwt.MapClaims) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.tokens[token] = &cacheEntry{claims: claims, expiresAt: time.Now().Add(tc.ttl)}
}

func (tc *tokenCache) evictLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		tc.mu.Lock()
		now := time.Now()
		for k, v := range tc.tokens {
			if now.After(v.expiresAt) {
				delete(tc.tokens, k)
			}
		}
		tc.mu.Unlock()
	}
}

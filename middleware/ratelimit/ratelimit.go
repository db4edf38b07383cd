// Package ratelimit adapts the teacher's rate-limiting middleware
// (bolt/middleware/ratelimit.go) to Aurora's Middleware shape: a
// per-key token bucket, one bucket per client, with a background
// goroutine evicting buckets idle past MaxAge. Distinct from the
// framework-level backpressure hysteresis in backpressure.go, which
// throttles by total in-flight load rather than per-client rate — a
// single abusive client can stay within Aurora's global backpressure
// budget while still needing to be rate limited on its own.
package ratelimit

import (
	"sync"
	"time"

	"github.com/aurorahttp/aurora"
)

// Config mirrors the teacher's RateLimitConfig (bolt/middleware/ratelimit.go).
type Config struct {
	// RequestsPerSecond is the sustained rate allowed per key. Default: 100.
	RequestsPerSecond int

	// Burst is the maximum burst size per key. Default: 20.
	Burst int

	// KeyFunc derives the rate-limit key from the request. Default: the
	// X-Forwarded-For header, then X-Real-IP, then the peer address.
	KeyFunc func(c *aurora.Context) string

	// ErrorHandler renders the response once a key is limited. Default: 429 JSON.
	ErrorHandler func(c *aurora.Context, retryIn time.Duration) error

	// CleanupInterval is how often idle buckets are swept. Default: 1m.
	CleanupInterval time.Duration

	// MaxAge is how long an idle bucket survives before eviction. Default: 5m.
	MaxAge time.Duration
}

// DefaultConfig returns the teacher's defaults: 100 req/s, burst 20,
// keyed by peer address, swept every minute, evicted after 5 idle
// minutes.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 100,
		Burst:             20,
		KeyFunc:           defaultKeyFunc,
		CleanupInterval:   time.Minute,
		MaxAge:            5 * time.Minute,
	}
}

func defaultKeyFunc(c *aurora.Context) string {
	if v := c.Header("X-Forwarded-For"); v != "" {
		return v
	}
	if v := c.Header("X-Real-IP"); v != "" {
		return v
	}
	if addr := c.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "default"
}

// New builds the middleware from cfg, filling in any zero-valued
// defaults, and starts the bucket store's background eviction loop.
func New(cfg Config) aurora.Middleware {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 100
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 20
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = defaultKeyFunc
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 5 * time.Minute
	}

	store := &bucketStore{
		rate:   float64(cfg.RequestsPerSecond),
		burst:  cfg.Burst,
		maxAge: cfg.MaxAge,
	}
	go store.cleanupLoop(cfg.CleanupInterval)

	return func(c *aurora.Context, next aurora.Next) error {
		key := cfg.KeyFunc(c)
		entry := store.get(key)

		if !entry.bucket.allow() {
			if cfg.ErrorHandler != nil {
				return cfg.ErrorHandler(c, entry.bucket.retryIn())
			}
			return c.JSON(429, map[string]any{
				"error":   "Rate limit exceeded",
				"retryIn": entry.bucket.retryIn().Seconds(),
			})
		}
		return next()
	}
}

// Default builds the middleware with DefaultConfig.
func Default() aurora.Middleware { return New(DefaultConfig()) }

type bucketEntry struct {
	bucket     *tokenBucket
	lastAccess atomicTime
}

// bucketStore holds one tokenBucket per key, swept periodically.
type bucketStore struct {
	buckets sync.Map
	rate    float64
	burst   int
	maxAge  time.Duration
}

func (s *bucketStore) get(key string) *bucketEntry {
	if v, ok := s.buckets.Load(key); ok {
		e := v.(*bucketEntry)
		e.lastAccess.set(time.Now())
		return e
	}
	e := &bucketEntry{bucket: newTokenBucket(s.rate, s.burst)}
	e.lastAccess.set(time.Now())
	actual, loaded := s.buckets.LoadOrStore(key, e)
	if loaded {
		return actual.(*bucketEntry)
	}
	return e
}

func (s *bucketStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		s.buckets.Range(func(key, value any) bool {
			e := value.(*bucketEntry)
			if now.Sub(e.lastAccess.get()) > s.maxAge {
				s.buckets.Delete(key)
			}
			return true
		})
	}
}

// atomicTime guards lastAccess with a small mutex per entry — contended
// only between the request path's updates and the cleanup loop's
// occasional read, so a plain mutex is enough.
type atomicTime struct {
	mu sync.Mutex
	t  time.Time
}

func (a *atomicTime) set(t time.Time) {
	a.mu.Lock()
	a.t = t
	a.mu.Unlock()
}

func (a *atomicTime) get() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.t
}

// tokenBucket implements the token-bucket rate-limiting algorithm.
type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
}

func newTokenBucket(rate float64, burst int) *tokenBucket {
	return &tokenBucket{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: rate,
		lastRefill: time.Now(),
	}
}

func (tb *tokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	tb.tokens += now.Sub(tb.lastRefill).Seconds() * tb.refillRate
	if tb.tokens > tb.maxTokens {
		tb.tokens = tb.maxTokens
	}
	tb.lastRefill = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

func (tb *tokenBucket) retryIn() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	needed := 1.0 - tb.tokens
	if needed <= 0 {
		return 0
	}
	return time.Duration(needed / tb.refillRate * float64(time.Second))
}

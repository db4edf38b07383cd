package aurora

import (
	"runtime"
	"time"

	"github.com/aurorahttp/aurora/internal/conn"
)

// OverloadBehavior selects what the server does to a connection it
// accepts while Overloaded (spec §4.12).
type OverloadBehavior uint8

const (
	// OverloadReject503 writes 503 + Retry-After then closes.
	OverloadReject503 OverloadBehavior = iota
	// OverloadClose closes immediately with no response.
	OverloadClose
	// OverloadQueue accepts and processes anyway, relying on the
	// in-flight request cap as the real backstop.
	OverloadQueue
)

// Config is the enumerated configuration surface from spec §6.
type Config struct {
	Host string
	Port int

	// NumWorkers is the number of OS-thread-pinned workers (C8). 0
	// means auto-detect from runtime.NumCPU().
	NumWorkers int

	MaxHeaderSize int
	MaxBodySize   int64

	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	KeepAliveTimeout time.Duration

	// MaxRequestsPerConnection caps how many requests one keep-alive
	// connection serves before the server forces a close. 0 = unlimited.
	MaxRequestsPerConnection int

	MaxConnections       int
	ConnectionHighWater  float64
	ConnectionLowWater   float64
	MaxInFlightRequests  int
	OverloadBehavior     OverloadBehavior
	RetryAfterSeconds    int
	ListenBacklog        int
}

// DefaultConfig matches the defaults spec §4.12/§6 call out explicitly
// (64 KiB headers, 0.8/0.6 hysteresis ratios); everything else is a
// reasonable operational default in the teacher's style
// (bolt/core/types.go's DefaultConfig).
func DefaultConfig() Config {
	return Config{
		Host:                     "0.0.0.0",
		Port:                     8080,
		NumWorkers:               0,
		MaxHeaderSize:            64 << 10,
		MaxBodySize:              10 << 20,
		ReadTimeout:              30 * time.Second,
		WriteTimeout:             30 * time.Second,
		KeepAliveTimeout:         60 * time.Second,
		MaxRequestsPerConnection: 0,
		MaxConnections:           10000,
		ConnectionHighWater:      0.8,
		ConnectionLowWater:       0.6,
		MaxInFlightRequests:      0,
		OverloadBehavior:         OverloadReject503,
		RetryAfterSeconds:        5,
		ListenBacklog:            1024,
	}
}

func (c Config) workerCount() int {
	if c.NumWorkers > 0 {
		return c.NumWorkers
	}
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	return n
}

func (c Config) connConfig() conn.Config {
	return conn.Config{
		KeepAliveTimeout: c.KeepAliveTimeout,
		ReadTimeout:      c.ReadTimeout,
		WriteTimeout:     c.WriteTimeout,
		MaxRequests:      c.MaxRequestsPerConnection,
		MaxHeaderSection: c.MaxHeaderSize,
		MaxBodySize:      c.MaxBodySize,
	}
}

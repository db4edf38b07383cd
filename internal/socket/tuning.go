// Package socket applies the per-connection and per-listener TCP tuning
// Aurora's worker pool (C8) needs: Nagle disabled, generous buffers, and
// a SO_REUSEPORT listener per worker thread so the kernel load-balances
// accepts across workers instead of funneling them through one shared
// accept loop. Cross-platform options live here; Linux- and
// Darwin-specific socket options are in tuning_linux.go / tuning_darwin.go,
// with a no-op fallback in tuning_other.go for everything else.
package socket

import (
	"context"
	"net"
	"syscall"
)

// Config is Aurora's tuning profile for one listener/connection set.
// Zero values mean "use the OS default" for RecvBuffer/SendBuffer.
type Config struct {
	NoDelay     bool // TCP_NODELAY
	RecvBuffer  int  // SO_RCVBUF, bytes
	SendBuffer  int  // SO_SNDBUF, bytes
	QuickAck    bool // TCP_QUICKACK (Linux only)
	DeferAccept bool // TCP_DEFER_ACCEPT (Linux only)
	FastOpen    bool // TCP_FASTOPEN
	KeepAlive   bool // SO_KEEPALIVE
	ReusePort   bool // SO_REUSEPORT on the listening socket

	// ListenBacklog overrides the accept queue depth net.Listen sizes
	// automatically. 0 leaves the OS default alone.
	ListenBacklog int
}

// WorkerDefault is the tuning profile every Aurora worker listener and
// accepted connection uses; App.Run starts from it and sets only
// ReusePort and ListenBacklog.
func WorkerDefault() *Config {
	return &Config{
		NoDelay:     true,
		RecvBuffer:  256 * 1024,
		SendBuffer:  256 * 1024,
		QuickAck:    true,
		DeferAccept: true,
		FastOpen:    true,
		KeepAlive:   true,
		ReusePort:   true,
	}
}

// Apply tunes an accepted connection. Non-TCP connections (e.g. a
// net.Pipe used in tests) are left untouched rather than erroring, since
// socket options simply don't apply to them.
func Apply(conn net.Conn, cfg *Config) error {
	if cfg == nil {
		cfg = WorkerDefault()
	}

	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	rawConn, err := tcpConn.SyscallConn()
	if err != nil {
		return err
	}

	var lastErr error
	err = rawConn.Control(func(fd uintptr) {
		if cfg.NoDelay {
			if err := syscall.SetsockoptInt(int(fd), syscall.IPPROTO_TCP, syscall.TCP_NODELAY, 1); err != nil {
				lastErr = err
				return
			}
		}
		if cfg.RecvBuffer > 0 {
			_ = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_RCVBUF, cfg.RecvBuffer)
		}
		if cfg.SendBuffer > 0 {
			_ = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_SNDBUF, cfg.SendBuffer)
		}
		if cfg.KeepAlive {
			_ = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_KEEPALIVE, 1)
		}
		applyPlatformOptions(int(fd), cfg)
	})
	if err != nil {
		return err
	}
	return lastErr
}

// ApplyListener sets listener-only options (TCP_DEFER_ACCEPT, TCP_FASTOPEN,
// and the accept queue depth) that must be set before the socket starts
// accepting.
func ApplyListener(listener net.Listener, cfg *Config) error {
	if cfg == nil {
		cfg = WorkerDefault()
	}
	tcpListener, ok := listener.(*net.TCPListener)
	if !ok {
		return nil
	}
	file, err := tcpListener.File()
	if err != nil {
		return err
	}
	defer file.Close()

	var lastErr error
	if cfg.ListenBacklog > 0 {
		// net.Listen sizes the accept queue itself with no public way to
		// override it; calling listen(2) again on the same (already
		// listening) socket updates its backlog in place rather than
		// starting a second listen, which is how spec §6's configurable
		// accept-queue-depth knob gets threaded through net.Listener.
		if err := syscall.Listen(int(file.Fd()), cfg.ListenBacklog); err != nil {
			lastErr = err
		}
	}
	if err := applyListenerOptions(int(file.Fd()), cfg); err != nil {
		lastErr = err
	}
	return lastErr
}

// ListenReusePort opens a TCP listener on addr, setting SO_REUSEPORT
// before bind only when cfg.ReusePort is true — so multiple Aurora
// workers can each hold their own listener on the same address and let
// the kernel distribute incoming connections across them, the core
// mechanic behind spec §4.8's per-worker-thread accept loop. A single
// worker has nothing to share the port with, so the caller is expected
// to set cfg.ReusePort only when NumWorkers > 1 and the platform
// supports it (spec §5: "On other platforms, a single acceptor
// dispatches"); cfg == nil behaves like a plain, non-reuseport Listen.
func ListenReusePort(network, addr string, cfg *Config) (net.Listener, error) {
	if cfg == nil || !cfg.ReusePort {
		return net.Listen(network, addr)
	}
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			return c.Control(func(fd uintptr) {
				setReusePort(int(fd))
			})
		},
	}
	return lc.Listen(context.Background(), network, addr)
}

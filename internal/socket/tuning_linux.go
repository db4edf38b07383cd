//go:build linux

package socket

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// Linux socket option constants not always exposed by the syscall
// package on older Go toolchains.
const (
	tcpQuickAck    = 12
	tcpDeferAccept = 9
	tcpFastOpen    = 23
	tcpUserTimeout = 18
	tcpKeepIdle    = 4
	tcpKeepIntvl   = 5
	tcpKeepCnt     = 6
)

// applyPlatformOptions applies Linux-specific per-connection options.
func applyPlatformOptions(fd int, cfg *Config) {
	if cfg.QuickAck {
		// Not persistent — the kernel clears it after the next ACK, and
		// nothing in this module calls SetQuickAck to re-arm it.
		_ = syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, tcpQuickAck, 1)
	}

	_ = syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, tcpUserTimeout, 10000)

	if cfg.KeepAlive {
		_ = syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, tcpKeepIdle, 60)
		_ = syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, tcpKeepIntvl, 10)
		_ = syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, tcpKeepCnt, 3)
	}
}

// applyListenerOptions applies Linux-specific listener-only options.
func applyListenerOptions(fd int, cfg *Config) error {
	var lastErr error

	if cfg.DeferAccept {
		if err := syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, tcpDeferAccept, 5); err != nil {
			lastErr = err
		}
	}
	if cfg.FastOpen {
		if err := syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, tcpFastOpen, 256); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// SetQuickAck re-arms TCP_QUICKACK on fd, which the kernel clears after
// the next ACK it sends. No code in this module calls it.
func SetQuickAck(fd int) error {
	return syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, tcpQuickAck, 1)
}

// setReusePort sets SO_REUSEPORT so each worker's listener on the same
// address gets its own accept queue, load-balanced by the kernel.
func setReusePort(fd int) {
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
}

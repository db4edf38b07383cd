//go:build darwin

package socket

import (
	"syscall"

	"golang.org/x/sys/unix"
)

const (
	tcpFastOpen   = 0x105
	tcpKeepAlive  = 0x10
	soNoSigPipe   = 0x1022
)

// applyPlatformOptions applies Darwin-specific per-connection options.
func applyPlatformOptions(fd int, cfg *Config) {
	_ = syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, soNoSigPipe, 1)
	if cfg.KeepAlive {
		_ = syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, tcpKeepAlive, 60)
	}
}

// applyListenerOptions applies Darwin-specific listener-only options.
// macOS has no TCP_DEFER_ACCEPT equivalent, so DeferAccept is a no-op
// here; FastOpen is the only listener option this platform supports.
func applyListenerOptions(fd int, cfg *Config) error {
	if cfg.FastOpen {
		return syscall.SetsockoptInt(fd, syscall.IPPROTO_TCP, tcpFastOpen, 256)
	}
	return nil
}

// SetQuickAck is a no-op on Darwin: there is no TCP_QUICKACK equivalent.
func SetQuickAck(fd int) error { return nil }

func setReusePort(fd int) {
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
}

//go:build !linux && !darwin

package socket

// applyPlatformOptions is a no-op on platforms without the options above.
func applyPlatformOptions(fd int, cfg *Config) {}

// applyListenerOptions is a no-op on platforms without the options above.
func applyListenerOptions(fd int, cfg *Config) error { return nil }

// SetQuickAck is a no-op on platforms without TCP_QUICKACK.
func SetQuickAck(fd int) error { return nil }

// setReusePort is a no-op where SO_REUSEPORT isn't available (e.g.
// Windows); ListenReusePort still opens a listener for each worker that
// calls it, just without SO_REUSEPORT set on it.
func setReusePort(fd int) {}

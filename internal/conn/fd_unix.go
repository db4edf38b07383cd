//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package conn

import (
	"errors"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// extractFD pulls the raw file descriptor out of a net.Conn that
// supports syscall.Conn (TCPConn, UnixConn, ...) and switches it to
// nonblocking mode so raw unix.Read/unix.Write can be driven directly by
// Aurora's own reactor instead of the Go runtime's netpoller.
func extractFD(c net.Conn) (int, bool) {
	sc, ok := c.(syscall.Conn)
	if !ok {
		return 0, false
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return 0, false
	}

	var fd int
	var ctrlErr error
	err = rc.Control(func(p uintptr) {
		fd = int(p)
		ctrlErr = unix.SetNonblock(fd, true)
	})
	if err != nil || ctrlErr != nil {
		return 0, false
	}
	return fd, true
}

// rawRead issues one nonblocking read. A zero-length, nil-error result
// paired with isWouldBlock(err)==false and err==nil means EOF.
func rawRead(fd int, buf []byte) (int, error) {
	n, err := unix.Read(fd, buf)
	if n < 0 {
		n = 0
	}
	return n, err
}

func rawWrite(fd int, buf []byte) (int, error) {
	n, err := unix.Write(fd, buf)
	if n < 0 {
		n = 0
	}
	return n, err
}

func rawClose(fd int) error {
	return unix.Close(fd)
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

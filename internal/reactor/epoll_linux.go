//go:build linux

package reactor

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// epollReactor is the Linux Reactor implementation, backed by
// EPOLL_CTL_ADD/MOD/DEL and edge-less (level-triggered) epoll_wait,
// matching how the spec describes Aurora's Linux reactor backend.
type epollReactor struct {
	fd int

	mu     sync.Mutex
	closed bool
}

// New constructs the platform Reactor — epoll on Linux.
func New() (Reactor, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollReactor{fd: fd}, nil
}

func toEpollEvents(m EventMask) uint32 {
	var ev uint32
	if m&EventRead != 0 {
		ev |= unix.EPOLLIN
	}
	if m&EventWrite != 0 {
		ev |= unix.EPOLLOUT
	}
	// EPOLLERR and EPOLLHUP are always reported by the kernel regardless
	// of the requested event mask, so there is nothing to set for those.
	return ev
}

func fromEpollEvents(ev uint32) EventMask {
	var m EventMask
	if ev&unix.EPOLLIN != 0 {
		m |= EventRead
	}
	if ev&unix.EPOLLOUT != 0 {
		m |= EventWrite
	}
	if ev&unix.EPOLLERR != 0 {
		m |= EventError
	}
	if ev&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		m |= EventHangup
	}
	return m
}

func (r *epollReactor) Register(fd int, events EventMask) error {
	ev := unix.EpollEvent{Events: toEpollEvents(events), Fd: int32(fd)}
	return unix.EpollCtl(r.fd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (r *epollReactor) Modify(fd int, events EventMask) error {
	ev := unix.EpollEvent{Events: toEpollEvents(events), Fd: int32(fd)}
	return unix.EpollCtl(r.fd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (r *epollReactor) Deregister(fd int) error {
	err := unix.EpollCtl(r.fd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (r *epollReactor) Wait(events []Event, timeout time.Duration) (int, error) {
	raw := make([]unix.EpollEvent, len(events))
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	n, err := unix.EpollWait(r.fd, raw, ms)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		events[i] = Event{Fd: int(raw[i].Fd), Mask: fromEpollEvents(raw[i].Events)}
	}
	return n, nil
}

func (r *epollReactor) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return unix.Close(r.fd)
}

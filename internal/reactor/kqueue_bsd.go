//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package reactor

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// kqueueReactor is the Darwin/BSD Reactor implementation, backed by
// kqueue/kevent. Read and write interest are tracked as independent
// filters since kqueue registers EVFILT_READ and EVFILT_WRITE
// separately, unlike epoll's single combined event mask.
type kqueueReactor struct {
	fd int

	mu     sync.Mutex
	closed bool
}

// New constructs the platform Reactor — kqueue on Darwin/BSD.
func New() (Reactor, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &kqueueReactor{fd: fd}, nil
}

func (r *kqueueReactor) applyFilters(fd int, events EventMask, flags uint16) error {
	var changes []unix.Kevent_t
	if events&EventRead != 0 {
		changes = append(changes, unix.Kevent_t{
			Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags,
		})
	}
	if events&EventWrite != 0 {
		changes = append(changes, unix.Kevent_t{
			Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags,
		})
	}
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(r.fd, changes, nil, nil)
	return err
}

func (r *kqueueReactor) Register(fd int, events EventMask) error {
	return r.applyFilters(fd, events, unix.EV_ADD|unix.EV_ENABLE)
}

func (r *kqueueReactor) Modify(fd int, events EventMask) error {
	// Disable both filters then re-enable the requested set — simplest
	// correct way to change interest without tracking prior state.
	_ = r.applyFilters(fd, EventRead|EventWrite, unix.EV_DELETE)
	return r.applyFilters(fd, events, unix.EV_ADD|unix.EV_ENABLE)
}

func (r *kqueueReactor) Deregister(fd int) error {
	return r.applyFilters(fd, EventRead|EventWrite, unix.EV_DELETE)
}

func (r *kqueueReactor) Wait(events []Event, timeout time.Duration) (int, error) {
	raw := make([]unix.Kevent_t, len(events))
	var tsPtr *unix.Timespec
	if timeout >= 0 {
		ts := unix.NsecToTimespec(timeout.Nanoseconds())
		tsPtr = &ts
	}
	n, err := unix.Kevent(r.fd, nil, raw, tsPtr)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	merged := make(map[int]EventMask, n)
	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		fd := int(raw[i].Ident)
		mask := merged[fd]
		if mask == 0 {
			order = append(order, fd)
		}
		switch raw[i].Filter {
		case unix.EVFILT_READ:
			mask |= EventRead
		case unix.EVFILT_WRITE:
			mask |= EventWrite
		}
		if raw[i].Flags&unix.EV_EOF != 0 {
			mask |= EventHangup
		}
		if raw[i].Flags&unix.EV_ERROR != 0 {
			mask |= EventError
		}
		merged[fd] = mask
	}
	for i, fd := range order {
		events[i] = Event{Fd: fd, Mask: merged[fd]}
	}
	return len(order), nil
}

func (r *kqueueReactor) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return unix.Close(r.fd)
}

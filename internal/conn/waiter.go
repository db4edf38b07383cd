package conn

import "context"

// waiter is the park/resume primitive a fiber blocks on between a
// WouldBlock syscall result and the worker's reactor reporting the fd
// ready again. Notify is safe to call from the worker's poll goroutine
// concurrently with Wait running in the fiber goroutine.
type waiter struct {
	ch chan struct{}
}

func newWaiter() *waiter {
	return &waiter{ch: make(chan struct{}, 1)}
}

// Notify wakes a blocked Wait, or primes the next one if none is blocked.
func (w *waiter) Notify() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until Notify is called or ctx is done.
func (w *waiter) Wait(ctx context.Context) error {
	select {
	case <-w.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

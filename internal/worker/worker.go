// Package worker implements the OS-thread-per-worker model (C8): each
// Worker locks to one OS thread, owns one reactor, and accepts on its
// own SO_REUSEPORT listener so the kernel spreads incoming connections
// across workers without a shared accept lock. Grounded on the
// teacher's socket tuning package (internal/socket, adapted from
// shockwave/pkg/shockwave/socket) for the per-connection/per-listener
// TCP options, combined with internal/reactor and internal/conn for the
// fiber-per-connection execution model spec §4.8 describes.
package worker

import (
	"context"
	"net"
	"runtime"
	"sync"
	"time"

	"github.com/aurorahttp/aurora/internal/alog"
	"github.com/aurorahttp/aurora/internal/bufpool"
	"github.com/aurorahttp/aurora/internal/conn"
	"github.com/aurorahttp/aurora/internal/reactor"
	"github.com/aurorahttp/aurora/internal/socket"
)

// Config configures one Worker.
type Config struct {
	Addr         string
	SocketTuning *socket.Config
	ConnConfig   conn.Config
	Handler      conn.Handler
	PollInterval time.Duration

	// OnAccept, if set, is consulted for every freshly accepted
	// connection before it is adopted into the fiber model. Returning
	// false means the callback has already handled (and closed)
	// netConn itself — e.g. to write a 503 overload response — and the
	// worker does nothing further with it.
	OnAccept func(netConn net.Conn) bool

	// OnOpen and OnClose, if set, fire when a connection is adopted into
	// the fiber model and when its fiber goroutine exits, respectively.
	// The Server layer sets OnClose to keep its own active-connection
	// gauge in sync with worker-level reality.
	OnOpen  func(netConn net.Conn)
	OnClose func(netConn net.Conn)
}

// Worker owns one listener, one reactor, and the fiber goroutines for
// every connection it has accepted.
type Worker struct {
	id       int
	cfg      Config
	bufs     *bufpool.Pool
	listener net.Listener
	rx       reactor.Reactor

	mu    sync.Mutex
	conns map[int]*conn.Connection

	wg     sync.WaitGroup
	cancel context.CancelFunc
	ready  chan struct{}
}

// New constructs a worker. It does not start listening — call Start.
func New(id int, cfg Config, bufs *bufpool.Pool) (*Worker, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}

	rx, err := reactor.New()
	if err != nil {
		return nil, err
	}

	return &Worker{
		id:    id,
		cfg:   cfg,
		bufs:  bufs,
		rx:    rx,
		conns: make(map[int]*conn.Connection),
		ready: make(chan struct{}),
	}, nil
}

// Start locks the calling goroutine's OS thread for the lifetime of the
// worker, binds its SO_REUSEPORT listener, and runs the accept loop and
// reactor poll loop until ctx is cancelled. Intended to be launched as
// `go worker.Start(ctx)` from the server's startup path — one goroutine
// per configured worker, each immediately thread-locked.
func (w *Worker) Start(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ln, err := socket.ListenReusePort("tcp", w.cfg.Addr, w.cfg.SocketTuning)
	if err != nil {
		return err
	}
	if err := socket.ApplyListener(ln, w.cfg.SocketTuning); err != nil {
		alog.Logger.WithFields(alog.Fields{"worker": w.id, "err": err}).Warn("worker: listener tuning failed")
	}
	w.listener = ln
	close(w.ready)

	wctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(2)
	go w.acceptLoop(wctx)
	go w.pollLoop(wctx)

	<-wctx.Done()
	// Closing the listener unblocks acceptLoop's Accept so wg.Wait returns.
	err = w.listener.Close()
	w.wg.Wait()
	return err
}

// Stop cancels the worker's loops and closes its reactor. It does not
// wait for the loops to exit; Start returns once they have.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	_ = w.rx.Close()
}

func (w *Worker) acceptLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		c, err := w.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				alog.Logger.WithFields(alog.Fields{"worker": w.id, "err": err}).Warn("worker: accept error")
				continue
			}
		}
		if err := socket.Apply(c, w.cfg.SocketTuning); err != nil {
			alog.Logger.WithFields(alog.Fields{"worker": w.id, "err": err}).Warn("worker: conn tuning failed")
		}
		if w.cfg.OnAccept != nil && !w.cfg.OnAccept(c) {
			continue
		}
		w.adopt(ctx, c)
	}
}

// adopt registers a freshly accepted connection with the reactor (if the
// connection exposes a raw fd) and spawns its fiber goroutine.
func (w *Worker) adopt(ctx context.Context, netConn net.Conn) {
	c := conn.New(netConn, w.cfg.ConnConfig, w.bufs, w.cfg.Handler)

	if fd, ok := c.FD(); ok {
		w.mu.Lock()
		w.conns[fd] = c
		w.mu.Unlock()
		if err := w.rx.Register(fd, reactor.EventRead|reactor.EventWrite); err != nil {
			alog.Logger.WithFields(alog.Fields{"worker": w.id, "err": err}).Warn("worker: reactor register failed")
		}
	}

	if w.cfg.OnOpen != nil {
		w.cfg.OnOpen(netConn)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		c.Run(ctx)
		if fd, ok := c.FD(); ok {
			w.mu.Lock()
			delete(w.conns, fd)
			w.mu.Unlock()
			_ = w.rx.Deregister(fd)
		}
		if w.cfg.OnClose != nil {
			w.cfg.OnClose(netConn)
		}
	}()
}

func (w *Worker) pollLoop(ctx context.Context) {
	defer w.wg.Done()
	events := make([]reactor.Event, 256)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := w.rx.Wait(events, w.cfg.PollInterval)
		if err != nil {
			alog.Logger.WithFields(alog.Fields{"worker": w.id, "err": err}).Warn("worker: reactor wait error")
			continue
		}

		for i := 0; i < n; i++ {
			w.mu.Lock()
			c, ok := w.conns[events[i].Fd]
			w.mu.Unlock()
			if !ok {
				continue
			}
			if events[i].Mask&(reactor.EventRead|reactor.EventHangup|reactor.EventError) != 0 {
				c.NotifyReadable()
			}
			if events[i].Mask&reactor.EventWrite != 0 {
				c.NotifyWritable()
			}
		}
	}
}

// Addr blocks until the worker's listener is bound and returns its
// address. Intended for tests and for workers that bind an ephemeral
// port (":0") and need to discover which one the kernel assigned.
func (w *Worker) Addr() net.Addr {
	<-w.ready
	return w.listener.Addr()
}

// ConnCount reports how many fd-registered connections this worker is
// currently serving (connections in the blocking-fallback path, such as
// net.Pipe in tests, are not tracked here since they never register).
func (w *Worker) ConnCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.conns)
}

// Package aurora is an HTTP/1.1 server framework: router, middleware
// pipeline, per-request Context, and a Server built on the
// reactor/worker/connection layers in internal/. Grounded throughout on
// the teacher's bolt/core App (route registration, Context pooling,
// error handling) re-architected for the fiber-per-connection,
// OS-thread-per-worker execution model internal/worker implements.
package aurora

import (
	"context"
	"net"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/aurorahttp/aurora/internal/alog"
	"github.com/aurorahttp/aurora/internal/httpparser"
	"github.com/aurorahttp/aurora/internal/bufpool"
	"github.com/aurorahttp/aurora/internal/conn"
	"github.com/aurorahttp/aurora/internal/objpool"
	"github.com/aurorahttp/aurora/internal/response"
	"github.com/aurorahttp/aurora/internal/socket"
	"github.com/aurorahttp/aurora/internal/worker"
)

// App is the top-level Aurora application: route registration,
// middleware, exception handling, lifecycle hooks, and the Server that
// drives them. Mirrors the teacher's App (bolt/core/app.go) as the
// single user-facing entry point.
type App struct {
	router   *Router
	pipeline *pipeline
	errors   *ExceptionRegistry
	hooks    *Hooks
	cfg      Config
	stats    Stats
	bp       *backpressure
	ctxPool  *objpool.Pool[*Context]

	mu          sync.Mutex
	workers     []*worker.Worker
	workerBufs  []*bufpool.Pool
	cancel      context.CancelFunc
	shuttingDown bool
	done        chan struct{}
}

// New constructs an App with DefaultConfig().
func New() *App { return NewWithConfig(DefaultConfig()) }

// NewWithConfig constructs an App with the given configuration.
func NewWithConfig(cfg Config) *App {
	a := &App{
		router:   NewRouter(),
		pipeline: newPipeline(),
		errors:   NewExceptionRegistry(),
		hooks:    &Hooks{},
		cfg:      cfg,
	}
	a.bp = newBackpressure(cfg, &a.stats)
	a.ctxPool = objpool.New(func() *Context { return &Context{} }, 256, false)
	return a
}

// Route registration — one method per HTTP verb, mirroring the
// teacher's App.Get/Post/Put/Delete (bolt/core/app.go).
func (a *App) Get(path string, h Handler) error     { return a.router.Add(httpparser.MethodGET, path, h) }
func (a *App) Post(path string, h Handler) error    { return a.router.Add(httpparser.MethodPOST, path, h) }
func (a *App) Put(path string, h Handler) error     { return a.router.Add(httpparser.MethodPUT, path, h) }
func (a *App) Delete(path string, h Handler) error  { return a.router.Add(httpparser.MethodDELETE, path, h) }
func (a *App) Patch(path string, h Handler) error   { return a.router.Add(httpparser.MethodPATCH, path, h) }
func (a *App) Head(path string, h Handler) error    { return a.router.Add(httpparser.MethodHEAD, path, h) }
func (a *App) Options(path string, h Handler) error { return a.router.Add(httpparser.MethodOPTIONS, path, h) }

// Use appends global middleware, executed in registration order ahead
// of every route's handler.
func (a *App) Use(mws ...Middleware) { a.pipeline.append(mws...) }

// OnException registers handler for the given exception class (spec
// §4.10). "*" overrides the default 500 fallback.
func (a *App) OnException(class string, handler ExceptionHandler) { a.errors.On(class, handler) }

// Mount grafts sub's routes under prefix.
func (a *App) Mount(prefix string, sub *Router) error { return a.router.Mount(prefix, sub) }

// Hooks exposes the lifecycle callback registration API.
func (a *App) Hooks() *Hooks { return a.hooks }

// Stats exposes the atomic counters testable property §8 checks.
func (a *App) Stats() *Stats { return &a.stats }

// Run binds the configured address across cfg.workerCount() workers and
// blocks until ctx is cancelled or Shutdown/GracefulShutdown is called.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.done = make(chan struct{})
	a.mu.Unlock()

	addr := net.JoinHostPort(a.cfg.Host, strconv.Itoa(a.cfg.Port))
	n := a.cfg.workerCount()

	tuning := socket.WorkerDefault()
	// A single worker has no sibling to share the listening port with —
	// SO_REUSEPORT only earns its keep once multiple worker threads need
	// to hold independent listeners on the same address (spec §4.8/§5).
	tuning.ReusePort = n > 1
	tuning.ListenBacklog = a.cfg.ListenBacklog

	errs := make(chan error, n)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		bufs := bufpool.New(false)
		w, err := worker.New(i, worker.Config{
			Addr:         addr,
			SocketTuning: tuning,
			ConnConfig:   a.connConfig(),
			Handler:      a.dispatch,
			OnAccept:     a.onAccept,
			OnClose:      a.onClose,
		}, bufs)
		if err != nil {
			cancel()
			return err
		}

		a.mu.Lock()
		a.workers = append(a.workers, w)
		a.workerBufs = append(a.workerBufs, bufs)
		a.mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Start(runCtx); err != nil {
				errs <- err
			}
		}()
	}

	alog.Logger.WithFields(alog.Fields{"addr": addr, "workers": n}).Info("aurora: starting")
	a.hooks.fireStart()

	go func() {
		wg.Wait()
		alog.Logger.Info("aurora: stopped")
		a.hooks.fireStop()
		close(a.done)
	}()

	<-runCtx.Done()
	<-a.done

	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

func (a *App) connConfig() conn.Config {
	cc := a.cfg.connConfig()
	cc.OnReject = func(kind httpparser.ErrorKind) {
		switch kind {
		case httpparser.ErrHeaderTooLarge:
			a.stats.RejectedHeadersTooLarge.Add(1)
		}
	}
	return cc
}

// Shutdown stops accepting and tears down immediately, not waiting for
// in-flight connections to drain.
func (a *App) Shutdown() {
	a.mu.Lock()
	a.shuttingDown = true
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// GracefulShutdown sets the shutting-down flag (new accepts are
// rejected via onAccept), then waits up to timeout for active
// connections to drain before forcing exit, per spec §4.12.
func (a *App) GracefulShutdown(timeout time.Duration) {
	a.mu.Lock()
	a.shuttingDown = true
	done := a.done
	a.mu.Unlock()

	deadline := time.After(timeout)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for a.activeConnections() > 0 {
		select {
		case <-deadline:
			a.Shutdown()
			return
		case <-ticker.C:
		case <-done:
			return
		}
	}
	a.Shutdown()
}

// Addr blocks until the first worker has bound its listener and
// returns its address — useful when Config.Port is 0 and the caller
// needs to discover the kernel-assigned port (tests, benchmarks).
func (a *App) Addr() net.Addr {
	for {
		a.mu.Lock()
		if len(a.workers) > 0 {
			w := a.workers[0]
			a.mu.Unlock()
			return w.Addr()
		}
		a.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
}

func (a *App) activeConnections() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	total := 0
	for _, w := range a.workers {
		total += w.ConnCount()
	}
	return total
}

// onAccept is the worker-level admission gate: it enforces the
// backpressure hysteresis state machine from spec §4.12, writing a 503
// (or closing, per OverloadBehavior) before the connection is ever
// adopted into the fiber model.
func (a *App) onAccept(netConn net.Conn) bool {
	a.mu.Lock()
	down := a.shuttingDown
	a.mu.Unlock()
	if down {
		a.stats.RejectedDuringShutdown.Add(1)
		_ = netConn.Close()
		return false
	}

	if a.bp.admitConnection() {
		a.stats.TotalConnections.Add(1)
		return true
	}

	a.stats.RejectedOverload.Add(1)
	alog.Logger.WithFields(alog.Fields{"remote": netConn.RemoteAddr()}).Warn("aurora: rejecting connection, overloaded")
	if a.cfg.OverloadBehavior == OverloadReject503 {
		writeOverloadResponse(netConn, a.cfg.RetryAfterSeconds)
	}
	_ = netConn.Close()
	return false
}

func (a *App) onClose(net.Conn) { a.bp.release() }

func writeOverloadResponse(netConn net.Conn, retryAfter int) {
	var resp response.Response
	resp.Reset()
	resp.Status = 503
	resp.Header().Add([]byte("Connection"), []byte("close"))
	resp.Header().Add([]byte("Retry-After"), []byte(strconv.Itoa(retryAfter)))
	resp.SetBody([]byte(`{"error":"Service Unavailable"}`))

	size := resp.EstimateSize()
	buf := make([]byte, size)
	n := resp.BuildInto(buf)
	if n == 0 {
		return
	}
	_ = netConn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_, _ = netConn.Write(buf[:n])
}

// dispatch is the conn.Handler Aurora wires into every worker: it runs
// the in-flight admission check, the middleware pipeline, routing, and
// exception dispatch for exactly one parsed request.
func (a *App) dispatch(std context.Context, cn *conn.Connection, req *httpparser.Request, resp *response.Response) {
	a.stats.TotalRequests.Add(1)

	if !a.bp.admitRequest() {
		a.stats.RejectedInFlight.Add(1)
		resp.Status = 503
		resp.Header().Add([]byte("Retry-After"), []byte(strconv.Itoa(a.cfg.RetryAfterSeconds)))
		resp.SetBody([]byte(`{"error":"Service Unavailable"}`))
		return
	}
	defer a.bp.releaseRequest()

	c, ok := a.ctxPool.Acquire()
	if !ok {
		c = &Context{}
	}
	defer a.ctxPool.Release(c)
	c.reset(std, cn, req, resp)

	a.hooks.fireRequest(c)

	handler, params, found := a.router.Match(req.Method, req.Path)
	c.setParams(params)

	terminal := handler
	if !found {
		terminal = func(cc *Context) error { return ErrNotFound }
	}

	if err := a.runPipeline(c, terminal); err != nil {
		alog.Logger.WithFields(alog.Fields{"path": c.Path(), "method": req.Method}).WithError(err).Warn("aurora: handler error")
		a.hooks.fireError(err, c)
		a.errors.dispatch(c, err)
	}

	a.hooks.fireResponse(c)
}

// runPipeline executes the middleware/handler chain behind a recover
// guard. Spec §4.11 requires that nothing propagates out of the fiber a
// request runs on — "the fiber is a bulkhead" — but handler and
// middleware code is arbitrary and can panic; an unrecovered panic in a
// goroutine crashes the entire process, not just the offending
// connection, which is the exact opposite of that guarantee. A recovered
// panic is turned into a plain *HTTPError and handled by the same
// exception-dispatch path as any other handler error, one line up in
// dispatch. middleware/recovery wraps the same concern as an ordinary
// Middleware for callers who want to customize the response or logging
// it produces; this guard is the unconditional backstop underneath it.
func (a *App) runPipeline(c *Context, terminal Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			alog.Logger.WithFields(alog.Fields{"panic": r, "path": c.Path()}).Error(string(stack))
			err = errPanic(r)
		}
	}()
	return a.pipeline.execute(c, terminal)
}

package aurora

import "github.com/aurorahttp/aurora/internal/alog"

// Hooks are the lifecycle callback vectors spec §4.12/§4.13 describe:
// plain slices, executed in registration order, each call wrapped so a
// panicking hook cannot abort its siblings or the request/server it was
// observing. Grounded on the teacher's flat single-ErrorHandler model
// (bolt/core/app.go), generalized to the five named hook points and
// multi-handler-per-event semantics the spec requires.
type Hooks struct {
	onStart    []func()
	onStop     []func()
	onError    []func(err error, c *Context)
	onRequest  []func(c *Context)
	onResponse []func(c *Context)
}

// OnStart registers a callback run once, right after Run has launched its
// workers. It does not wait for their listeners to bind, so it may run
// before or while the workers start accepting.
func (h *Hooks) OnStart(fn func()) { h.onStart = append(h.onStart, fn) }

// OnStop registers a callback run once, during shutdown.
func (h *Hooks) OnStop(fn func()) { h.onStop = append(h.onStop, fn) }

// OnError registers an observer invoked for every error that reaches
// the exception dispatcher, before the matching ExceptionHandler runs.
// Use this for logging/metrics, not for producing the response.
func (h *Hooks) OnError(fn func(err error, c *Context)) { h.onError = append(h.onError, fn) }

// OnRequest registers a callback run once a request has been parsed,
// before routing.
func (h *Hooks) OnRequest(fn func(c *Context)) { h.onRequest = append(h.onRequest, fn) }

// OnResponse registers a callback run after a response has been built,
// before it is written to the socket.
func (h *Hooks) OnResponse(fn func(c *Context)) { h.onResponse = append(h.onResponse, fn) }

func (h *Hooks) fireStart() {
	for _, fn := range h.onStart {
		safeCall(fn)
	}
}

func (h *Hooks) fireStop() {
	for _, fn := range h.onStop {
		safeCall(fn)
	}
}

func (h *Hooks) fireError(err error, c *Context) {
	for _, fn := range h.onError {
		func() {
			defer recoverHook("onError")
			fn(err, c)
		}()
	}
}

func (h *Hooks) fireRequest(c *Context) {
	for _, fn := range h.onRequest {
		func() {
			defer recoverHook("onRequest")
			fn(c)
		}()
	}
}

func (h *Hooks) fireResponse(c *Context) {
	for _, fn := range h.onResponse {
		func() {
			defer recoverHook("onResponse")
			fn(c)
		}()
	}
}

func safeCall(fn func()) {
	defer recoverHook("lifecycle")
	fn()
}

func recoverHook(point string) {
	if r := recover(); r != nil {
		alog.Logger.WithFields(alog.Fields{"hook": point, "recovered": r}).Error("aurora: hook panicked, continuing")
	}
}

package aurora

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ClassifiedError lets an error describe its own exception-class
// ancestry for ExceptionRegistry.dispatch, most specific class first
// and ending at the registry's catch-all ("*"). Plain errors (anything
// with no ClassifiedError in its wrap chain) are classified by their Go
// type name instead — still walkable, just that one class and then "*".
type ClassifiedError interface {
	error
	Classes() []string
}

// HTTPError is a ClassifiedError carrying the status code and message
// to send when no more specific exception handler claims it. Class is
// a dot-separated hierarchy (e.g. "http.client.not_found"); Classes()
// derives every ancestor from it plus the registry's catch-all.
//
// The common sentinels below mirror the teacher's flat ErrNotFound /
// ErrBadRequest set (bolt/core/types.go), reshaped into the class
// hierarchy spec §4.10 requires so a handler can register against
// "http.client" and catch every 4xx sentinel at once.
type HTTPError struct {
	Status  int
	Class   string
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("aurora: http %d", e.Status)
}

func (e *HTTPError) Unwrap() error { return e.Err }

func (e *HTTPError) Classes() []string { return classAncestry(e.Class) }

func classAncestry(class string) []string {
	if class == "" {
		return []string{"*"}
	}
	parts := strings.Split(class, ".")
	out := make([]string, 0, len(parts)+1)
	for i := len(parts); i > 0; i-- {
		out = append(out, strings.Join(parts[:i], "."))
	}
	return append(out, "*")
}

// Common sentinel errors, each pre-classed so a handler can catch a
// whole family (register on "http.client") or one sentinel exactly
// (register on "http.client.not_found").
var (
	ErrNotFound            = &HTTPError{Status: 404, Class: "http.client.not_found", Message: "Not Found"}
	ErrBadRequest          = &HTTPError{Status: 400, Class: "http.client.bad_request", Message: "Bad Request"}
	ErrUnauthorized        = &HTTPError{Status: 401, Class: "http.client.unauthorized", Message: "Unauthorized"}
	ErrForbidden           = &HTTPError{Status: 403, Class: "http.client.forbidden", Message: "Forbidden"}
	ErrMethodNotAllowed    = &HTTPError{Status: 405, Class: "http.client.method_not_allowed", Message: "Method Not Allowed"}
	ErrRequestTooLarge     = &HTTPError{Status: 413, Class: "http.client.request_too_large", Message: "Request Too Large"}
	ErrInternalServerError = &HTTPError{Status: 500, Class: "http.server.internal", Message: "Internal Server Error"}
)

// errPanic classifies a recovered handler/middleware panic (server.go's
// dispatch) under the http.server.internal family so a handler
// registered for that class (or "*") renders it like any other 500,
// without needing its own special case.
func errPanic(recovered any) *HTTPError {
	return &HTTPError{
		Status:  500,
		Class:   "http.server.internal.panic",
		Message: "Internal Server Error",
		Err:     fmt.Errorf("panic: %v", recovered),
	}
}

// ExceptionHandler renders a response for an error the dispatcher
// matched to its registered class.
type ExceptionHandler func(c *Context, err error)

// ExceptionRegistry maps exception class to handler, implementing the
// hierarchical dispatch spec §4.10 describes: on error, walk the
// error's class ancestry (most specific first) and invoke the first
// handler whose key matches.
type ExceptionRegistry struct {
	handlers map[string]ExceptionHandler
}

// NewExceptionRegistry builds a registry with the default 404 and 500
// handlers pre-registered, overridable via On.
func NewExceptionRegistry() *ExceptionRegistry {
	r := &ExceptionRegistry{handlers: make(map[string]ExceptionHandler)}
	r.On("http.client.not_found", func(c *Context, _ error) {
		_ = c.JSON(404, map[string]string{"error": "Not Found"})
	})
	r.On("*", func(c *Context, err error) {
		status := 500
		msg := "Internal Server Error"
		if he, ok := err.(*HTTPError); ok {
			status = he.Status
			if he.Message != "" {
				msg = he.Message
			}
		}
		_ = c.JSON(status, map[string]string{"error": msg})
	})
	return r
}

// On registers handler for class, overwriting any prior registration.
func (r *ExceptionRegistry) On(class string, handler ExceptionHandler) {
	r.handlers[class] = handler
}

// dispatch classifies err and invokes the most specific matching
// handler. classesOf mirrors the teacher's errors.Is switch chain in
// DefaultErrorHandler (bolt/core/types.go) but walks a real ancestry
// instead of a fixed if/else ladder, so new HTTPError classes need no
// registry code changes to be catchable by a broader ancestor handler.
func (r *ExceptionRegistry) dispatch(c *Context, err error) {
	for _, class := range classesOf(err) {
		if h, ok := r.handlers[class]; ok {
			h(c, err)
			return
		}
	}
	// Unreachable in practice since "*" is always registered by
	// NewExceptionRegistry, but guards a hand-built registry missing it.
	_ = c.JSON(500, map[string]string{"error": "Internal Server Error"})
}

func classesOf(err error) []string {
	var ce ClassifiedError
	if errors.As(err, &ce) {
		return ce.Classes()
	}
	return []string{reflect.TypeOf(err).String(), "*"}
}

package aurora

import (
	"context"
	"net"
	"net/url"

	json "github.com/goccy/go-json"

	"github.com/aurorahttp/aurora/internal/arena"
	"github.com/aurorahttp/aurora/internal/conn"
	"github.com/aurorahttp/aurora/internal/httpparser"
	"github.com/aurorahttp/aurora/internal/response"
)

// ParamPair is one captured path parameter.
type ParamPair struct {
	Key, Value string
}

// Params is the inline-first path-parameter set (spec §3/§9): the first
// 8 captures live in a fixed array with zero allocation; a 9th+ capture
// is silently dropped rather than spilling to a map — the decided Open
// Question recorded in SPEC_FULL.md favoring predictable latency over
// supporting pathologically deep routes.
type Params struct {
	buf [8]ParamPair
	n   int
}

func (p *Params) add(key, value string) {
	if p.n < len(p.buf) {
		p.buf[p.n] = ParamPair{key, value}
		p.n++
	}
}

// Get returns the value captured for key, if any.
func (p *Params) Get(key string) (string, bool) {
	for i := 0; i < p.n; i++ {
		if p.buf[i].Key == key {
			return p.buf[i].Value, true
		}
	}
	return "", false
}

func (p *Params) reset() { p.n = 0 }

type storageEntry struct {
	key string
	val any
}

// Storage is the per-request middleware scratch space (spec §4.11): up
// to 4 entries live inline; a 5th+ spills to a heap map. Mirrors the
// Params truncate-vs-spill trade-off from the other direction — scratch
// values are expected to be rare enough that heap spillover, not
// truncation, is the right failure mode.
type Storage struct {
	buf      [4]storageEntry
	n        int
	overflow map[string]any
}

// Set stores val under key, overwriting any existing value for key.
func (s *Storage) Set(key string, val any) {
	for i := 0; i < s.n; i++ {
		if s.buf[i].key == key {
			s.buf[i].val = val
			return
		}
	}
	if s.n < len(s.buf) {
		s.buf[s.n] = storageEntry{key, val}
		s.n++
		return
	}
	if s.overflow == nil {
		s.overflow = make(map[string]any)
	}
	s.overflow[key] = val
}

// Get retrieves the value stored under key, if any.
func (s *Storage) Get(key string) (any, bool) {
	for i := 0; i < s.n; i++ {
		if s.buf[i].key == key {
			return s.buf[i].val, true
		}
	}
	if s.overflow != nil {
		v, ok := s.overflow[key]
		return v, ok
	}
	return nil, false
}

func (s *Storage) reset() {
	s.n = 0
	s.overflow = nil
}

// Context is the per-request value bound to the Connection's stack-held
// request/response slots (spec §4.11). It is pooled and reused — never
// retain one past the handler call it was passed to, matching the
// teacher's own Context pooling discipline (bolt/core/context_pool.go).
type Context struct {
	std  context.Context
	conn *conn.Connection
	req  *httpparser.Request
	resp *response.Response

	params  Params
	storage Storage

	query      url.Values
	queryTried bool

	hijacked bool

	// scratch is a per-request bump allocator (internal/arena) for
	// callers that need to retain a zero-copy request field (path,
	// header value, param) past the handler call without a heap
	// allocation per retention — e.g. an access-log middleware that
	// queues entries for an async writer. Reset, not reallocated, on
	// every reuse from the Context pool.
	scratch *arena.Arena
}

// NewTestContext builds a standalone Context bound to req/resp, for
// middleware packages to exercise aurora.Middleware/aurora.Handler
// values in their own tests without standing up a full Connection.
func NewTestContext(std context.Context, req *httpparser.Request, resp *response.Response) *Context {
	c := &Context{}
	c.reset(std, nil, req, resp)
	return c
}

func (c *Context) reset(std context.Context, cn *conn.Connection, req *httpparser.Request, resp *response.Response) {
	c.std = std
	c.conn = cn
	c.req = req
	c.resp = resp
	c.params.reset()
	c.storage.reset()
	c.query = nil
	c.queryTried = false
	c.hijacked = false
	if c.scratch != nil {
		c.scratch.Reset()
	}
}

// Context returns the standard context.Context for this request's
// lifetime, carrying cancellation from the connection's fiber.
func (c *Context) Context() context.Context { return c.std }

// Response exposes the in-progress response, for middleware that needs
// to inspect or rewrite the body a downstream handler already set
// (e.g. compression) rather than setting it itself.
func (c *Context) Response() *response.Response { return c.resp }

// Method returns the request's HTTP method.
func (c *Context) Method() httpparser.Method { return c.req.Method }

// Path returns the request path (no query string).
func (c *Context) Path() string { return string(c.req.Path) }

// PathBytes returns the zero-copy path view. Valid only for the
// duration of the handler call.
func (c *Context) PathBytes() []byte { return c.req.Path }

// Header returns the first value of name (case-insensitive), or "".
func (c *Context) Header(name string) string { return c.req.Header.GetString(name) }

// RemoteAddr returns the peer address, or nil for a Context built via
// NewTestContext with no backing Connection.
func (c *Context) RemoteAddr() net.Addr {
	if c.conn == nil {
		return nil
	}
	return c.conn.RemoteAddr()
}

// Body returns the fully-buffered request body, or nil if there was
// none. Valid only for the duration of the handler call.
func (c *Context) Body() []byte { return c.req.Body }

// Param returns the path parameter captured under name, or "" if the
// route had no such capture (or it was silently truncated past the
// 8-capture inline limit).
func (c *Context) Param(name string) string {
	v, _ := c.params.Get(name)
	return v
}

// setParams is called by the router-dispatch path to populate captures;
// exported indirectly through Params rather than here, since the match
// already returns a filled Params by value.
func (c *Context) setParams(p Params) { c.params = p }

// Query returns the first query-string value for key, parsing the raw
// query lazily and caching the result for the rest of the request.
func (c *Context) Query(key string) string {
	if !c.queryTried {
		c.queryTried = true
		c.query, _ = url.ParseQuery(string(c.req.Query))
	}
	if c.query == nil {
		return ""
	}
	return c.query.Get(key)
}

// Storage exposes the request-scoped middleware scratch space.
func (c *Context) Storage() *Storage { return &c.storage }

// CloneBytes copies b into the request's scratch arena and returns the
// copy, for retaining a zero-copy request field (path, header value,
// param) past the handler call without a per-call heap allocation. The
// arena is reset when the pooled Context is reused for another request,
// so the copy is only guaranteed until the request that produced it
// finishes.
func (c *Context) CloneBytes(b []byte) []byte {
	if c.scratch == nil {
		c.scratch = arena.New(0)
	}
	return c.scratch.Clone(b)
}

// CloneString is CloneBytes for a string value.
func (c *Context) CloneString(s string) string {
	if c.scratch == nil {
		c.scratch = arena.New(0)
	}
	return c.scratch.AllocateString(s)
}

// Status sets the response status code. Returns *Context rather than
// error for fluent chaining (Status(...).SetHeader(...)); a mutation
// after Hijack is a silent no-op instead of an error for the same
// reason Send instead returns errHijacked — there is no error channel
// here to carry it through, so the response buffer the caller no
// longer owns is simply left untouched.
func (c *Context) Status(code int) *Context {
	if c.hijacked {
		return c
	}
	c.resp.Status = code
	return c
}

// SetHeader sets a response header, replacing any prior Add/SetHeader
// with the same name is NOT performed (Header is an ordered multimap);
// call this once per name for the common case. A no-op after Hijack,
// per Status's comment above.
func (c *Context) SetHeader(name, value string) *Context {
	if c.hijacked {
		return c
	}
	c.resp.Header().Add([]byte(name), []byte(value))
	return c
}

// Send writes body as the response with the given content type.
func (c *Context) Send(status int, contentType string, body []byte) error {
	if c.hijacked {
		return errHijacked
	}
	c.resp.Status = status
	c.resp.Header().Add([]byte("Content-Type"), []byte(contentType))
	c.resp.SetBody(body)
	return nil
}

// Text writes body as text/plain.
func (c *Context) Text(status int, body string) error {
	return c.Send(status, "text/plain; charset=utf-8", []byte(body))
}

// JSON marshals v with goccy/go-json (the teacher's own JSON encoder,
// bolt/core/context.go) and writes it as application/json.
func (c *Context) JSON(status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Send(status, "application/json; charset=utf-8", body)
}

// IsWebsocketUpgrade reports whether the request asked to upgrade to
// the WebSocket protocol.
func (c *Context) IsWebsocketUpgrade() bool {
	return headerEqualFold(c.req.Header.Get("Upgrade"), "websocket")
}

// IsSSERequest reports whether the client asked for an
// event-stream (Server-Sent Events) response.
func (c *Context) IsSSERequest() bool {
	return headerEqualFold(c.req.Header.Get("Accept"), "text/event-stream")
}

func headerEqualFold(v []byte, s string) bool {
	if len(v) != len(s) {
		return false
	}
	for i := 0; i < len(v); i++ {
		cv, cs := v[i], s[i]
		if 'A' <= cv && cv <= 'Z' {
			cv += 'a' - 'A'
		}
		if 'A' <= cs && cs <= 'Z' {
			cs += 'a' - 'A'
		}
		if cv != cs {
			return false
		}
	}
	return true
}

// Hijack transfers ownership of the raw connection to the caller. The
// server will neither write a response nor close the socket
// afterward — the caller owns both. After a successful Hijack, Send,
// Text and JSON return errHijacked and Status and SetHeader are no-ops,
// so none of them touches the (no longer server-owned) response buffer.
func (c *Context) Hijack() (net.Conn, error) {
	nc, err := c.conn.Hijack()
	if err != nil {
		return nil, err
	}
	c.hijacked = true
	return nc, nil
}

var errHijacked = &HTTPError{
	Status:  500,
	Class:   "http.server.internal.hijacked",
	Message: "response already hijacked",
}

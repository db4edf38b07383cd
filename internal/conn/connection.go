// Package conn implements the per-connection state machine (C7): the
// New → ReadingHeaders → Processing → WritingResponse → KeepAlive/Closed
// lifecycle spec §5 describes, realized as a goroutine ("fiber") that
// never calls a blocking socket syscall — it issues a nonblocking
// read/write, and on WouldBlock parks on a waiter until the owning
// worker's reactor reports the descriptor ready again.
//
// Grounded on the teacher's http11.Connection (lock-free atomic state,
// keep-alive accounting, shouldCloseAfterRequest policy), re-architected
// from bufio-over-blocking-net.Conn to raw nonblocking reads/writes
// driven by internal/reactor, per spec §4.6/§5. When the underlying
// net.Conn cannot yield a raw descriptor (e.g. net.Pipe in tests, or any
// platform without internal/conn's unix fast path), Connection falls
// back to ordinary blocking net.Conn calls — still correct, just parked
// in the Go runtime's netpoller instead of Aurora's own reactor.
package conn

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/aurorahttp/aurora/internal/bufpool"
	"github.com/aurorahttp/aurora/internal/httpparser"
	"github.com/aurorahttp/aurora/internal/response"
)

// State is the connection's lifecycle stage, matching spec §5 exactly.
type State int32

const (
	StateNew State = iota
	StateReadingHeaders
	StateProcessing
	StateWritingResponse
	StateKeepAlive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateReadingHeaders:
		return "reading_headers"
	case StateProcessing:
		return "processing"
	case StateWritingResponse:
		return "writing_response"
	case StateKeepAlive:
		return "keep_alive"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Handler processes one parsed request into a response. It must not
// retain req's byte-slice fields past return, since the connection's
// read buffer is reused or released immediately afterward. conn is
// passed through so the handler can call conn.Hijack() to take over the
// socket (for a protocol upgrade, say); conn must not be used for
// reading or writing otherwise.
type Handler func(ctx context.Context, conn *Connection, req *httpparser.Request, resp *response.Response)

// Config mirrors the teacher's ConnectionConfig, extended with the
// header-section and body-size limits the parser enforces.
type Config struct {
	KeepAliveTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	MaxRequests      int
	MaxHeaderSection int
	MaxBodySize      int64

	// OnReject, if set, is called whenever a request is rejected before
	// ever reaching Handler — a parse failure mapped straight to a
	// status code and written back, per spec §6/§7. Lets the server
	// layer keep its rejected_* counters accurate without conn needing
	// to know anything about Stats.
	OnReject func(httpparser.ErrorKind)
}

func DefaultConfig() Config {
	return Config{
		KeepAliveTimeout: 60 * time.Second,
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     30 * time.Second,
		MaxRequests:      0,
		MaxHeaderSection: httpparser.MaxHeaderSection,
		MaxBodySize:      10 << 20,
	}
}

// Connection is one accepted client socket, driven by exactly one fiber
// goroutine for its whole lifetime.
type Connection struct {
	netConn net.Conn
	fd      int
	hasFD   bool

	readWaiter  *waiter
	writeWaiter *waiter

	state    atomic.Int32
	lastUse  atomic.Int64
	requests atomic.Int32
	closed   atomic.Bool
	hijacked atomic.Bool

	cfg     Config
	bufs    *bufpool.Pool
	handler Handler

	readBuf []byte
	filled  int
}

// New wraps netConn into a Connection. bufs supplies the size-classed
// read/write buffers; handler processes each parsed request.
func New(netConn net.Conn, cfg Config, bufs *bufpool.Pool, handler Handler) *Connection {
	c := &Connection{
		netConn:     netConn,
		readWaiter:  newWaiter(),
		writeWaiter: newWaiter(),
		cfg:         cfg,
		bufs:        bufs,
		handler:     handler,
	}
	c.fd, c.hasFD = extractFD(netConn)
	c.state.Store(int32(StateNew))
	c.lastUse.Store(time.Now().UnixNano())
	return c
}

// FD reports the raw descriptor for reactor registration, if available.
func (c *Connection) FD() (int, bool) { return c.fd, c.hasFD }

// NotifyReadable wakes a fiber parked waiting for read readiness.
func (c *Connection) NotifyReadable() { c.readWaiter.Notify() }

// NotifyWritable wakes a fiber parked waiting for write readiness.
func (c *Connection) NotifyWritable() { c.writeWaiter.Notify() }

func (c *Connection) State() State { return State(c.state.Load()) }

// Hijack transfers ownership of the underlying net.Conn to the caller.
// After a successful Hijack, Run returns as soon as the in-flight
// handler call returns, without writing a response or closing the
// socket — the caller is now solely responsible for both.
func (c *Connection) Hijack() (net.Conn, error) {
	if !c.hijacked.CompareAndSwap(false, true) {
		return nil, errors.New("conn: already hijacked")
	}
	return c.netConn, nil
}

// Hijacked reports whether Hijack has already transferred ownership.
func (c *Connection) Hijacked() bool { return c.hijacked.Load() }

func (c *Connection) setState(s State) {
	c.state.Store(int32(s))
	c.lastUse.Store(time.Now().UnixNano())
}

// Run drives the connection's full lifecycle until it closes. Call this
// from the fiber goroutine the worker spawns per accepted connection.
func (c *Connection) Run(ctx context.Context) {
	defer c.Close()

	for {
		if c.cfg.MaxRequests > 0 && int(c.requests.Load()) >= c.cfg.MaxRequests {
			return
		}

		c.setState(StateReadingHeaders)
		req, n, err := c.readRequest(ctx)
		if err != nil {
			c.rejectParseError(ctx, err)
			return
		}
		if req == nil {
			return // clean EOF between requests
		}

		c.requests.Add(1)
		c.setState(StateProcessing)

		var resp response.Response
		resp.Reset()
		c.handler(ctx, c, req, &resp)

		if c.hijacked.Load() {
			return // ownership transferred; the handler owns the socket now
		}

		willClose := c.shouldClose(req, &resp)
		if willClose {
			resp.Header().Add([]byte("Connection"), []byte("close"))
		}

		c.setState(StateWritingResponse)
		if err := c.writeResponse(ctx, &resp); err != nil {
			return
		}

		c.consumeBuffer(n)

		if willClose {
			return
		}
		c.setState(StateKeepAlive)
	}
}

// readRequest reads and parses exactly one request, growing readBuf as
// needed until the parser reports Complete, NeedMore (read more), or a
// hard parse error. A nil *httpparser.Request with a nil error means a
// clean EOF was observed before any bytes of a new request arrived.
func (c *Connection) readRequest(ctx context.Context) (*httpparser.Request, int, error) {
	if c.readBuf == nil {
		c.readBuf = c.bufs.Acquire(bufpool.Class4K)
		c.filled = 0
	}

	req := &httpparser.Request{}

	for {
		req.Reset()
		status := httpparser.Parse(c.readBuf[:c.filled], req, c.cfg.MaxHeaderSection)
		switch status {
		case httpparser.Complete:
			if c.cfg.MaxBodySize > 0 && req.ContentLength > c.cfg.MaxBodySize {
				return nil, 0, newBodyTooLargeError()
			}
			bodyEnd := req.BodyStart
			if req.ContentLength > 0 {
				bodyEnd += int(req.ContentLength)
			}
			if bodyEnd <= c.filled {
				if bodyEnd > req.BodyStart {
					req.Body = c.readBuf[req.BodyStart:bodyEnd]
				}
				return req, bodyEnd, nil
			}
			// Body not fully buffered yet: growReadBuf (if needed) and
			// read more, then loop back to top to re-Parse from scratch
			// — req's slices must always point into the current
			// c.readBuf, never one that growReadBuf has already
			// released back to the pool.
			if bodyEnd > len(c.readBuf) {
				c.growReadBuf()
			}
			n, err := c.readMore(ctx)
			if err != nil {
				return nil, 0, err
			}
			if n == 0 {
				return nil, 0, context.Canceled
			}
		case httpparser.Errored:
			return nil, 0, req.Err
		case httpparser.NeedMore:
			if c.filled >= len(c.readBuf) {
				c.growReadBuf()
			}
			n, err := c.readMore(ctx)
			if err != nil {
				return nil, 0, err
			}
			if n == 0 {
				if c.filled == 0 {
					return nil, 0, nil // clean EOF between requests
				}
				return nil, 0, context.Canceled // EOF mid-request
			}
		}
	}
}

func (c *Connection) growReadBuf() {
	next := len(c.readBuf) * 4
	if next > bufpool.Class256K {
		next = bufpool.Class256K
	}
	grown := c.bufs.Acquire(next)
	copy(grown, c.readBuf[:c.filled])
	c.bufs.Release(c.readBuf)
	c.readBuf = grown
}

// readMore issues one nonblocking (or blocking-fallback) read into the
// unfilled tail of readBuf, parking on readWaiter across WouldBlock.
func (c *Connection) readMore(ctx context.Context) (int, error) {
	if !c.hasFD {
		_ = c.netConn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		n, err := c.netConn.Read(c.readBuf[c.filled:])
		c.filled += n
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
		return n, nil
	}

	for {
		n, err := rawRead(c.fd, c.readBuf[c.filled:])
		if n > 0 {
			c.filled += n
			return n, nil
		}
		if err == nil {
			return 0, nil // EOF
		}
		if isWouldBlock(err) {
			wctx, cancel := context.WithTimeout(ctx, c.cfg.ReadTimeout)
			werr := c.readWaiter.Wait(wctx)
			cancel()
			if werr != nil {
				return 0, werr
			}
			continue
		}
		return 0, err
	}
}

// consumeBuffer shifts any bytes beyond the just-processed request to
// the front of readBuf, so pipelined requests already in-buffer are
// parsed without another syscall.
func (c *Connection) consumeBuffer(n int) {
	remaining := c.filled - n
	if remaining <= 0 {
		c.bufs.Release(c.readBuf)
		c.readBuf = nil
		c.filled = 0
		return
	}
	copy(c.readBuf, c.readBuf[n:c.filled])
	c.filled = remaining
}

func (c *Connection) writeResponse(ctx context.Context, resp *response.Response) error {
	size := resp.EstimateSize()
	class := bufpool.Class4K
	if size > class {
		class = size
	}

	var buf []byte
	var n int
	for {
		buf = c.bufs.Acquire(class)
		n = resp.BuildInto(buf)
		if n > 0 {
			break
		}
		c.bufs.Release(buf)
		class *= 2
		if class > bufpool.Class256K {
			return c.writeAll(ctx, response.Synthesized500)
		}
	}
	defer c.bufs.Release(buf)

	return c.writeAll(ctx, buf[:n])
}

func (c *Connection) writeAll(ctx context.Context, buf []byte) error {
	written := 0
	for written < len(buf) {
		if !c.hasFD {
			_ = c.netConn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			n, err := c.netConn.Write(buf[written:])
			written += n
			if err != nil {
				return err
			}
			continue
		}

		n, err := rawWrite(c.fd, buf[written:])
		if n > 0 {
			written += n
		}
		if err == nil {
			continue
		}
		if isWouldBlock(err) {
			wctx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
			werr := c.writeWaiter.Wait(wctx)
			cancel()
			if werr != nil {
				return werr
			}
			continue
		}
		return err
	}
	return nil
}

// shouldClose mirrors the teacher's shouldCloseAfterRequest policy,
// extended with the response's own Connection header and HTTP/1.0
// keep-alive opt-in semantics.
func (c *Connection) shouldClose(req *httpparser.Request, resp *response.Response) bool {
	if req.Close {
		return true
	}
	if v := resp.Header().Get("Connection"); v != nil && equalFoldASCII(v, "close") {
		return true
	}
	if req.Version == httpparser.Version10 {
		v := req.Header.Get("Connection")
		if v == nil || !equalFoldASCII(v, "keep-alive") {
			return true
		}
	}
	return false
}

// rejectParseError converts a parse failure into the matching status
// code and writes it before the caller closes the socket, per spec
// §6/§7 ("converted by the server to 400/413/431/411 before any router
// invocation"). Errors with no mapped ErrorKind (a plain I/O error,
// context cancellation) write nothing — there is no well-formed request
// to respond to.
func (c *Connection) rejectParseError(ctx context.Context, err error) {
	kind, ok := httpparser.KindOf(err)
	if !ok {
		return
	}
	var resp response.Response
	resp.Reset()
	resp.Status = statusForErrorKind(kind)
	resp.Header().Add([]byte("Connection"), []byte("close"))
	_ = c.writeResponse(ctx, &resp)
	if c.cfg.OnReject != nil {
		c.cfg.OnReject(kind)
	}
}

func statusForErrorKind(k httpparser.ErrorKind) int {
	switch k {
	case httpparser.ErrHeaderTooLarge:
		return 431
	case httpparser.ErrBodyTooLarge:
		return 413
	default:
		return 400
	}
}

func newBodyTooLargeError() error {
	return &httpparser.Error{Kind: httpparser.ErrBodyTooLarge}
}

func equalFoldASCII(b []byte, s string) bool {
	if len(b) != len(s) {
		return false
	}
	for i := 0; i < len(b); i++ {
		c := b[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		d := s[i]
		if 'A' <= d && d <= 'Z' {
			d += 'a' - 'A'
		}
		if c != d {
			return false
		}
	}
	return true
}

// Close closes the underlying socket exactly once, releasing the read
// buffer back to the pool if one is still held.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.setState(StateClosed)
	if c.readBuf != nil {
		c.bufs.Release(c.readBuf)
		c.readBuf = nil
	}
	if c.hijacked.Load() {
		return nil // caller now owns the socket
	}
	if c.hasFD {
		return rawClose(c.fd)
	}
	return c.netConn.Close()
}

// RequestCount returns the number of requests served on this connection.
func (c *Connection) RequestCount() int { return int(c.requests.Load()) }

// RemoteAddr returns the peer address.
func (c *Connection) RemoteAddr() net.Addr { return c.netConn.RemoteAddr() }

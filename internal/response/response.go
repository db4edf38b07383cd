// Package response implements the pool-backed, allocation-free response
// serializer (C5): a Response value collects a status code, header set,
// and body, then EstimateSize/BuildInto render it into a caller-owned
// buffer with no heap allocation on the hot path. Grounded on the
// teacher's shockwave/pkg/shockwave/http11/response.go ResponseWriter,
// re-architected from an io.Writer-streaming model into the
// estimate-then-build-into-a-pooled-buffer model spec §4.5 requires, so
// the Connection can pick a buffer-pool class sized to the response
// before any byte is written.
package response

import (
	"strconv"

	"github.com/aurorahttp/aurora/internal/httpparser"
)

// Response accumulates a status, headers, and body before serialization.
// The zero value has Status 0; Reset makes it a 200 OK with no headers
// and no body.
type Response struct {
	Status int
	header httpparser.Header
	body   []byte
}

// Reset clears r for reuse from an object pool.
func (r *Response) Reset() {
	r.Status = 200
	r.header.Reset()
	r.body = nil
}

// Header exposes the response's mutable header set.
func (r *Response) Header() *httpparser.Header { return &r.header }

// SetBody assigns the response body slice directly (no copy).
func (r *Response) SetBody(b []byte) { r.body = b }

// Body returns the current body slice.
func (r *Response) Body() []byte { return r.body }

const (
	crlf       = "\r\n"
	colonSpace = ": "
	httpVer    = "HTTP/1.1 "

	// safetyMargin covers the extra bytes the manual integer formatter and
	// status-line rendering need beyond the raw sum of header bytes.
	safetyMargin = 64
)

// EstimateSize returns a conservative upper bound on the serialized size
// of r, per spec §4.5: status line + header lines (each with ": " and
// "\r\n" overhead) + the blank-line separator + body + a safety margin.
// The Connection uses this to pick a buffer-pool class before calling
// BuildInto; a true BuildInto result is always ≤ this estimate.
func (r *Response) EstimateSize() int {
	size := len(httpVer) + 3 /* status code */ + 1 /* SP */ + len(reasonPhrase(r.Status)) + len(crlf)
	r.header.Each(func(name, value []byte) {
		size += len(name) + len(colonSpace) + len(value) + len(crlf)
	})
	// implicit Content-Length header, added by BuildInto if absent
	if r.header.Get("Content-Length") == nil {
		size += len("Content-Length") + len(colonSpace) + 20 + len(crlf)
	}
	size += len(crlf) // header/body separator
	size += len(r.body)
	size += safetyMargin
	return size
}

// BuildInto writes the complete wire response into buf without any heap
// allocation, returning the number of bytes written, or 0 if buf is too
// small for the caller to retry with the next pool class up.
func (r *Response) BuildInto(buf []byte) int {
	n := 0

	n, ok := appendString(buf, n, httpVer)
	if !ok {
		return 0
	}
	n, ok = appendInt(buf, n, r.Status)
	if !ok {
		return 0
	}
	n, ok = appendString(buf, n, " ")
	if !ok {
		return 0
	}
	n, ok = appendString(buf, n, reasonPhrase(r.Status))
	if !ok {
		return 0
	}
	n, ok = appendString(buf, n, crlf)
	if !ok {
		return 0
	}

	hasCL := false
	r.header.Each(func(name, value []byte) {
		if !ok {
			return
		}
		if equalFoldASCII(name, "Content-Length") {
			hasCL = true
		}
		n, ok = appendBytes(buf, n, name)
		if !ok {
			return
		}
		n, ok = appendString(buf, n, colonSpace)
		if !ok {
			return
		}
		n, ok = appendBytes(buf, n, value)
		if !ok {
			return
		}
		n, ok = appendString(buf, n, crlf)
	})
	if !ok {
		return 0
	}

	if !hasCL {
		n, ok = appendString(buf, n, "Content-Length")
		if !ok {
			return 0
		}
		n, ok = appendString(buf, n, colonSpace)
		if !ok {
			return 0
		}
		n, ok = appendInt(buf, n, len(r.body))
		if !ok {
			return 0
		}
		n, ok = appendString(buf, n, crlf)
		if !ok {
			return 0
		}
	}

	n, ok = appendString(buf, n, crlf)
	if !ok {
		return 0
	}
	n, ok = appendBytes(buf, n, r.body)
	if !ok {
		return 0
	}

	return n
}

func appendString(buf []byte, n int, s string) (int, bool) {
	if n+len(s) > len(buf) {
		return n, false
	}
	copy(buf[n:], s)
	return n + len(s), true
}

func appendBytes(buf []byte, n int, b []byte) (int, bool) {
	if n+len(b) > len(buf) {
		return n, false
	}
	copy(buf[n:], b)
	return n + len(b), true
}

// appendInt formats v as decimal ASCII directly into buf, avoiding the
// allocation strconv.Itoa would incur on the hot path.
func appendInt(buf []byte, n int, v int) (int, bool) {
	if v == 0 {
		return appendString(buf, n, "0")
	}
	var tmp [20]byte
	neg := v < 0
	if neg {
		v = -v
	}
	i := len(tmp)
	for v > 0 {
		i--
		tmp[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		tmp[i] = '-'
	}
	return appendBytes(buf, n, tmp[i:])
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

// reasonPhrase returns the textual reason for code, falling back to a
// synthesized one for codes outside the common table — this is the one
// path that may use strconv, since it only runs for uncommon codes.
func reasonPhrase(code int) string {
	if p, ok := commonReasons[code]; ok {
		return p
	}
	return strconv.Itoa(code)
}

var commonReasons = map[int]string{
	100: "Continue",
	101: "Switching Protocols",
	200: "OK",
	201: "Created",
	202: "Accepted",
	204: "No Content",
	206: "Partial Content",
	301: "Moved Permanently",
	302: "Found",
	304: "Not Modified",
	307: "Temporary Redirect",
	308: "Permanent Redirect",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	408: "Request Timeout",
	409: "Conflict",
	411: "Length Required",
	413: "Payload Too Large",
	414: "URI Too Long",
	431: "Request Header Fields Too Large",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
}

// Synthesized500 is the fixed fallback response for when even the
// largest pool class (256 KiB) cannot hold a response, per spec §4.5.
var Synthesized500 = []byte("HTTP/1.1 500 Internal Server Error\r\nContent-Length: 0\r\nConnection: close\r\n\r\n")

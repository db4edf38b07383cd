package httpparser

import (
	"bytes"

	"golang.org/x/net/http/httpguts"
)

// Status is the sans-I/O parser's outcome for one Parse call, matching
// spec §4.4's "NeedMore vs Complete vs Error(kind)" contract.
type Status uint8

const (
	NeedMore Status = iota
	Complete
	Errored
)

// Parse attempts to decode one HTTP/1.1 request from buf, which may be a
// prefix of a complete request (more bytes might arrive on a later call
// with a longer buf). maxHeaderSection bounds the header section size
// (spec default 64 KiB); pass 0 to use MaxHeaderSection.
//
// Parse never mutates buf and never retains it beyond the fields it
// writes into req — every []byte stored on req is a slice of buf itself
// (zero-copy). Re-parsing the same growing buffer on every additional
// read is the trade accepted for a parser with no resumable internal
// state: simpler and still O(header-bytes) per call, at the cost of
// O(n^2) total work across a pathologically slow trickle-feed of a single
// request, which the header-size cap already bounds.
func Parse(buf []byte, req *Request, maxHeaderSection int) Status {
	if maxHeaderSection <= 0 {
		maxHeaderSection = MaxHeaderSection
	}

	idx := bytes.Index(buf, crlfcrlf)
	if idx == -1 {
		if len(buf) > maxHeaderSection {
			req.Err = newErr(ErrHeaderTooLarge)
			return Errored
		}
		return NeedMore
	}
	if idx+4 > maxHeaderSection {
		req.Err = newErr(ErrHeaderTooLarge)
		return Errored
	}

	// Keep the CRLF that ends the last header line (or the request line,
	// when there are no headers) so every line in section is terminated.
	section := buf[:idx+2]

	lineEnd := bytes.Index(section, crlf)
	if lineEnd == -1 {
		req.Err = newErr(ErrMalformedLine)
		return Errored
	}
	reqLine := section[:lineEnd]

	if err := parseRequestLine(req, reqLine); err != nil {
		req.Err = err
		return Errored
	}

	if err := parseHeaders(req, section[lineEnd+2:]); err != nil {
		req.Err = err
		return Errored
	}

	req.BodyStart = idx + 4
	req.Complete = true
	return Complete
}

func parseRequestLine(req *Request, line []byte) error {
	if len(line) > MaxRequestLineSize {
		return newErr(ErrMalformedLine)
	}

	sp1 := bytes.IndexByte(line, ' ')
	if sp1 == -1 {
		return newErr(ErrMalformedLine)
	}
	method, ok := ParseMethod(line[:sp1])
	if !ok {
		return newErr(ErrMethod)
	}

	rest := line[sp1+1:]
	sp2 := bytes.IndexByte(rest, ' ')
	if sp2 == -1 {
		return newErr(ErrMalformedLine)
	}
	uri := rest[:sp2]
	if len(uri) == 0 || (uri[0] != '/' && uri[0] != '*') {
		return newErr(ErrMalformedLine)
	}

	versionTok := rest[sp2+1:]
	version, ok := ParseVersion(versionTok)
	if !ok {
		return newErr(ErrVersion)
	}

	if q := bytes.IndexByte(uri, '?'); q != -1 {
		req.Path = uri[:q]
		req.Query = uri[q+1:]
	} else {
		req.Path = uri
		req.Query = nil
	}
	req.Method = method
	req.Version = version
	return nil
}

func trimSP(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}
	return b
}

func parseHeaders(req *Request, buf []byte) error {
	req.ContentLength = -1
	var (
		hasHost     bool
		hasCL       bool
		clValue     int64
		teCount     int
		teChunked   bool
		teAnomalous bool
	)

	pos := 0
	for pos < len(buf) {
		// A line starting with space/tab is obsolete line-folding — a
		// classic smuggling vector where a continuation line is used to
		// make a proxy and the origin disagree about header boundaries.
		// Reject outright rather than attempt to fold it in.
		if buf[pos] == ' ' || buf[pos] == '\t' {
			return newErr(ErrCrlfInjection)
		}

		lineEnd := bytes.Index(buf[pos:], crlf)
		if lineEnd == -1 {
			return newErr(ErrMalformedLine)
		}
		lineEnd += pos
		line := buf[pos:lineEnd]
		pos = lineEnd + 2

		if len(line) == 0 {
			continue
		}
		if len(line) > MaxHeaderNameLen+MaxHeaderValueLen {
			return newErr(ErrHeaderTooLarge)
		}

		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			return newErr(ErrMalformedLine)
		}
		// RFC 7230 §3.2: no whitespace permitted between field-name and
		// colon — a front-end and back-end that disagree on this is
		// itself a known smuggling technique.
		if line[colon-1] == ' ' || line[colon-1] == '\t' {
			return newErr(ErrMalformedLine)
		}

		name := line[:colon]
		// Full RFC 7230 token-grammar check — the same primitive net/http's
		// own parser trusts — rather than hand-rolling the character class;
		// catches control characters and delimiters the space/tab check
		// above doesn't (e.g. a raw CR smuggled mid-name).
		if !httpguts.ValidHeaderFieldName(string(name)) {
			return newErr(ErrMalformedLine)
		}
		value := trimSP(line[colon+1:])

		req.Header.Add(name, value)

		switch {
		case equalFold(name, headerHost):
			if hasHost {
				return newErr(ErrMultipleHost)
			}
			hasHost = true

		case equalFold(name, headerContentLength):
			n, ok := parseDecimal(value)
			if !ok {
				return newErr(ErrCLInvalid)
			}
			if hasCL {
				if n != clValue {
					return newErr(ErrCLConflict)
				}
			} else {
				hasCL = true
				clValue = n
			}

		case equalFold(name, headerTransferEncoding):
			teCount++
			if hasObfuscatedWhitespace(line[colon+1:]) {
				teAnomalous = true
			}
			last := lastToken(value)
			if equalFold(last, headerChunked) {
				teChunked = true
			} else if len(last) > 0 {
				teAnomalous = true
			}

		case equalFold(name, headerConnection):
			if equalFold(value, headerClose) {
				req.Close = true
			}
		}
	}

	if teCount > 1 || teAnomalous {
		return newErr(ErrTEInvalid)
	}
	hasTE := teCount == 1

	if hasCL && hasTE {
		// Decided policy (spec §9 Open Question, recorded in DESIGN.md):
		// reject outright rather than let Transfer-Encoding silently win.
		return newErr(ErrCLTEConflict)
	}

	if req.Version == Version11 && !hasHost {
		return newErr(ErrMissingHost)
	}

	if hasCL {
		req.ContentLength = clValue
	}
	req.Chunked = hasTE && teChunked
	if hasTE && !teChunked {
		return newErr(ErrTEInvalid)
	}
	return nil
}

// hasObfuscatedWhitespace flags tabs or doubled spaces in a raw
// Transfer-Encoding value — legitimate values are a comma-separated list
// with single spaces, and nonstandard whitespace is the classic
// front/back-end parser-differential smuggling primitive.
func hasObfuscatedWhitespace(raw []byte) bool {
	prevSpace := false
	for _, c := range raw {
		if c == '\t' {
			return true
		}
		if c == ' ' {
			if prevSpace {
				return true
			}
			prevSpace = true
		} else {
			prevSpace = false
		}
	}
	return false
}

func lastToken(value []byte) []byte {
	idx := bytes.LastIndexByte(value, ',')
	if idx == -1 {
		return trimSP(value)
	}
	return trimSP(value[idx+1:])
}

func parseDecimal(b []byte) (int64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	var n int64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		next := n*10 + int64(c-'0')
		if next < n {
			return 0, false // overflow
		}
		n = next
	}
	return n, true
}

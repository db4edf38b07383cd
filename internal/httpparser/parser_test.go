package httpparser

import "testing"

func parse(t *testing.T, raw string) (*Request, Status) {
	t.Helper()
	req := &Request{}
	req.Reset()
	status := Parse([]byte(raw), req, 0)
	return req, status
}

func TestParseSimpleGet(t *testing.T) {
	req, status := parse(t, "GET /hello?x=1 HTTP/1.1\r\nHost: example.com\r\n\r\n")
	if status != Complete {
		t.Fatalf("status = %v, want Complete (err=%v)", status, req.Err)
	}
	if req.Method != MethodGET {
		t.Errorf("method = %v", req.Method)
	}
	if string(req.Path) != "/hello" {
		t.Errorf("path = %q", req.Path)
	}
	if string(req.Query) != "x=1" {
		t.Errorf("query = %q", req.Query)
	}
	if req.Version != Version11 {
		t.Errorf("version = %v", req.Version)
	}
	if req.ContentLength != -1 {
		t.Errorf("content length = %d, want -1", req.ContentLength)
	}
}

func TestParseNeedMore(t *testing.T) {
	_, status := parse(t, "GET / HTTP/1.1\r\nHost: example.com\r\n")
	if status != NeedMore {
		t.Fatalf("status = %v, want NeedMore", status)
	}
}

func TestParseRejectsInvalidHeaderFieldName(t *testing.T) {
	// "(" is a delimiter excluded from the RFC 7230 token grammar, not
	// caught by a bare space/tab check — exercises the httpguts validation.
	req, status := parse(t, "GET / HTTP/1.1\r\nHost: example.com\r\nX-Foo(: bar\r\n\r\n")
	if status != Errored {
		t.Fatalf("status = %v, want Errored", status)
	}
	if k, _ := KindOf(req.Err); k != ErrMalformedLine {
		t.Errorf("kind = %v, want ErrMalformedLine", k)
	}
}

func TestParseMissingHost11(t *testing.T) {
	req, status := parse(t, "GET / HTTP/1.1\r\n\r\n")
	if status != Errored {
		t.Fatalf("status = %v, want Errored", status)
	}
	if k, _ := KindOf(req.Err); k != ErrMissingHost {
		t.Errorf("kind = %v, want ErrMissingHost", k)
	}
}

func TestParseMultipleHost(t *testing.T) {
	req, status := parse(t, "GET / HTTP/1.1\r\nHost: a.com\r\nHost: b.com\r\n\r\n")
	if status != Errored {
		t.Fatalf("status = %v, want Errored", status)
	}
	if k, _ := KindOf(req.Err); k != ErrMultipleHost {
		t.Errorf("kind = %v, want ErrMultipleHost", k)
	}
}

func TestParseCLTEConflictRejected(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nHost: a.com\r\nContent-Length: 5\r\nTransfer-Encoding: chunked\r\n\r\nhello"
	req, status := parse(t, raw)
	if status != Errored {
		t.Fatalf("status = %v, want Errored", status)
	}
	if k, _ := KindOf(req.Err); k != ErrCLTEConflict {
		t.Errorf("kind = %v, want ErrCLTEConflict", k)
	}
}

func TestParseDuplicateContentLengthConflict(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nHost: a.com\r\nContent-Length: 5\r\nContent-Length: 6\r\n\r\nhello"
	req, status := parse(t, raw)
	if status != Errored {
		t.Fatalf("status = %v, want Errored", status)
	}
	if k, _ := KindOf(req.Err); k != ErrCLConflict {
		t.Errorf("kind = %v, want ErrCLConflict", k)
	}
}

func TestParseDuplicateContentLengthIdenticalAllowed(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nHost: a.com\r\nContent-Length: 5\r\nContent-Length: 5\r\n\r\nhello"
	req, status := parse(t, raw)
	if status != Complete {
		t.Fatalf("status = %v, want Complete (err=%v)", status, req.Err)
	}
	if req.ContentLength != 5 {
		t.Errorf("content length = %d, want 5", req.ContentLength)
	}
}

func TestParseObfuscatedTransferEncodingRejected(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nHost: a.com\r\nTransfer-Encoding:  chunked\r\n\r\n"
	req, status := parse(t, raw)
	if status != Errored {
		t.Fatalf("status = %v, want Errored", status)
	}
	if k, _ := KindOf(req.Err); k != ErrTEInvalid {
		t.Errorf("kind = %v, want ErrTEInvalid", k)
	}
}

func TestParseChunkedTransferEncoding(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nHost: a.com\r\nTransfer-Encoding: chunked\r\n\r\n"
	req, status := parse(t, raw)
	if status != Complete {
		t.Fatalf("status = %v, want Complete (err=%v)", status, req.Err)
	}
	if !req.Chunked {
		t.Errorf("chunked = false, want true")
	}
	if req.ContentLength != -1 {
		t.Errorf("content length = %d, want -1", req.ContentLength)
	}
}

func TestParseObsFoldRejected(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nHost: a.com\r\nX-Foo: bar\r\n baz\r\n\r\n"
	req, status := parse(t, raw)
	if status != Errored {
		t.Fatalf("status = %v, want Errored", status)
	}
	if k, _ := KindOf(req.Err); k != ErrCrlfInjection {
		t.Errorf("kind = %v, want ErrCrlfInjection", k)
	}
}

func TestParseWhitespaceBeforeColonRejected(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nHost: a.com\r\nX-Foo : bar\r\n\r\n"
	req, status := parse(t, raw)
	if status != Errored {
		t.Fatalf("status = %v, want Errored", status)
	}
	if k, _ := KindOf(req.Err); k != ErrMalformedLine {
		t.Errorf("kind = %v, want ErrMalformedLine", k)
	}
}

func TestParseInvalidMethod(t *testing.T) {
	req, status := parse(t, "FOO / HTTP/1.1\r\nHost: a.com\r\n\r\n")
	if status != Errored {
		t.Fatalf("status = %v, want Errored", status)
	}
	if k, _ := KindOf(req.Err); k != ErrMethod {
		t.Errorf("kind = %v, want ErrMethod", k)
	}
}

func TestParseInvalidVersion(t *testing.T) {
	req, status := parse(t, "GET / HTTP/2.0\r\nHost: a.com\r\n\r\n")
	if status != Errored {
		t.Fatalf("status = %v, want Errored", status)
	}
	if k, _ := KindOf(req.Err); k != ErrVersion {
		t.Errorf("kind = %v, want ErrVersion", k)
	}
}

func TestParseHeaderSectionTooLarge(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nHost: a.com\r\n"
	for i := 0; i < 5000; i++ {
		raw += "X-Pad: 0123456789012345678901234567890123456789\r\n"
	}
	req, status := parse(t, raw)
	if status != Errored {
		t.Fatalf("status = %v, want Errored", status)
	}
	if k, _ := KindOf(req.Err); k != ErrHeaderTooLarge {
		t.Errorf("kind = %v, want ErrHeaderTooLarge", k)
	}
}

func TestParseHTTP10NoHostOK(t *testing.T) {
	req, status := parse(t, "GET / HTTP/1.0\r\n\r\n")
	if status != Complete {
		t.Fatalf("status = %v, want Complete (err=%v)", status, req.Err)
	}
}

func TestParseConnectionClose(t *testing.T) {
	req, status := parse(t, "GET / HTTP/1.1\r\nHost: a.com\r\nConnection: close\r\n\r\n")
	if status != Complete {
		t.Fatalf("status = %v, want Complete (err=%v)", status, req.Err)
	}
	if !req.Close {
		t.Errorf("close = false, want true")
	}
}

func TestParseBodyStartOffset(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nHost: a.com\r\nContent-Length: 5\r\n\r\nhello"
	req, status := parse(t, raw)
	if status != Complete {
		t.Fatalf("status = %v, want Complete (err=%v)", status, req.Err)
	}
	if req.BodyStart != len(raw)-5 {
		t.Errorf("bodyStart = %d, want %d", req.BodyStart, len(raw)-5)
	}
	if string(raw[req.BodyStart:]) != "hello" {
		t.Errorf("body = %q", raw[req.BodyStart:])
	}
}

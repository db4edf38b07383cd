package response

import (
	"strings"
	"testing"
)

func TestBuildIntoBasic(t *testing.T) {
	var r Response
	r.Reset()
	r.Status = 200
	r.Header().Add([]byte("X-Foo"), []byte("bar"))
	r.SetBody([]byte("hello"))

	buf := make([]byte, r.EstimateSize())
	n := r.BuildInto(buf)
	if n == 0 {
		t.Fatalf("BuildInto returned 0, buffer too small (estimate=%d)", len(buf))
	}
	out := string(buf[:n])
	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Errorf("status line wrong: %q", out)
	}
	if !strings.Contains(out, "X-Foo: bar\r\n") {
		t.Errorf("missing custom header: %q", out)
	}
	if !strings.Contains(out, "Content-Length: 5\r\n") {
		t.Errorf("missing content-length: %q", out)
	}
	if !strings.HasSuffix(out, "\r\n\r\nhello") {
		t.Errorf("missing body: %q", out)
	}
}

func TestBuildIntoTooSmallReturnsZero(t *testing.T) {
	var r Response
	r.Reset()
	r.SetBody([]byte("hello world this is a long body"))
	buf := make([]byte, 4)
	if n := r.BuildInto(buf); n != 0 {
		t.Errorf("BuildInto = %d, want 0 for undersized buffer", n)
	}
}

func TestEstimateSizeUpperBoundsBuildInto(t *testing.T) {
	var r Response
	r.Reset()
	r.Status = 404
	r.Header().Add([]byte("X-Trace-Id"), []byte("abcdef0123456789"))
	r.SetBody([]byte("not found"))

	est := r.EstimateSize()
	buf := make([]byte, est)
	n := r.BuildInto(buf)
	if n == 0 {
		t.Fatalf("BuildInto failed with buffer sized to estimate")
	}
	if n > est {
		t.Errorf("bytes written %d exceeds estimate %d", n, est)
	}
}

func TestBuildIntoExplicitContentLengthNotDuplicated(t *testing.T) {
	var r Response
	r.Reset()
	r.Header().Add([]byte("Content-Length"), []byte("5"))
	r.SetBody([]byte("hello"))

	buf := make([]byte, r.EstimateSize())
	n := r.BuildInto(buf)
	out := string(buf[:n])
	if strings.Count(out, "Content-Length") != 1 {
		t.Errorf("expected exactly one Content-Length header, got: %q", out)
	}
}

func TestUncommonStatusCodeReason(t *testing.T) {
	var r Response
	r.Reset()
	r.Status = 418
	buf := make([]byte, r.EstimateSize())
	n := r.BuildInto(buf)
	if n == 0 {
		t.Fatalf("BuildInto failed")
	}
	if !strings.HasPrefix(string(buf[:n]), "HTTP/1.1 418 418\r\n") {
		t.Errorf("unexpected synthesized reason: %q", string(buf[:n]))
	}
}

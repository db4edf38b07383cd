package reqtimeout

import (
	"context"
	"testing"
	"time"

	"github.com/aurorahttp/aurora"
	"github.com/aurorahttp/aurora/internal/httpparser"
	"github.com/aurorahttp/aurora/internal/response"
)

func newTestCtx(path string) *aurora.Context {
	req := &httpparser.Request{Method: httpparser.MethodGET, Path: []byte(path)}
	var resp response.Response
	resp.Reset()
	return aurora.NewTestContext(context.Background(), req, &resp)
}

func TestReqTimeoutPassesThroughFastHandler(t *testing.T) {
	mw := New(Config{Timeout: 50 * time.Millisecond})
	c := newTestCtx("/fast")

	err := mw(c, func() error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReqTimeoutReturns408WhenHandlerOverruns(t *testing.T) {
	mw := New(Config{Timeout: 10 * time.Millisecond})
	c := newTestCtx("/slow")

	next := func() error {
		time.Sleep(100 * time.Millisecond)
		return nil
	}
	if err := mw(c, next); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Response().Status != 408 {
		t.Fatalf("status = %d, want 408", c.Response().Status)
	}
}

func TestReqTimeoutSkipsConfiguredPaths(t *testing.T) {
	mw := New(Config{Timeout: 10 * time.Millisecond, SkipPaths: []string{"/upload"}})
	c := newTestCtx("/upload")

	next := func() error {
		time.Sleep(50 * time.Millisecond)
		return nil
	}
	if err := mw(c, next); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Response().Status == 408 {
		t.Fatalf("skip-listed path should not be timed out")
	}
}

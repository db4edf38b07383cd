package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/aurorahttp/aurora"
	"github.com/aurorahttp/aurora/internal/httpparser"
	"github.com/aurorahttp/aurora/internal/response"
)

func newTestCtx() *aurora.Context {
	req := &httpparser.Request{Method: httpparser.MethodGET, Path: []byte("/")}
	req.Header.Add([]byte("X-Forwarded-For"), []byte("198.51.100.7"))
	var resp response.Response
	resp.Reset()
	return aurora.NewTestContext(context.Background(), req, &resp)
}

func TestRateLimitAllowsWithinBurst(t *testing.T) {
	mw := New(Config{RequestsPerSecond: 10, Burst: 3})
	c := newTestCtx()

	for i := 0; i < 3; i++ {
		if err := mw(c, func() error { return nil }); err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
		if c.Response().Status == 429 {
			t.Fatalf("request %d: unexpected 429 within burst", i)
		}
	}
}

func TestRateLimitRejectsPastBurst(t *testing.T) {
	mw := New(Config{RequestsPerSecond: 1, Burst: 1})
	c := newTestCtx()

	if err := mw(c, func() error { return nil }); err != nil {
		t.Fatalf("first request: unexpected error: %v", err)
	}
	if err := mw(c, func() error { return nil }); err != nil {
		t.Fatalf("second request: unexpected error: %v", err)
	}
	if c.Response().Status != 429 {
		t.Fatalf("status = %d, want 429 once burst is exhausted", c.Response().Status)
	}
}

func TestRateLimitRefillsOverTime(t *testing.T) {
	mw := New(Config{RequestsPerSecond: 100, Burst: 1})
	c := newTestCtx()

	_ = mw(c, func() error { return nil })
	if c.Response().Status == 429 {
		t.Fatalf("first request should not be limited")
	}

	time.Sleep(20 * time.Millisecond)
	_ = mw(c, func() error { return nil })
	if c.Response().Status == 429 {
		t.Fatalf("bucket should have refilled at 100 req/s after 20ms")
	}
}

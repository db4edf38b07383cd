package accesslog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

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

func TestAccessLogWritesEntryToOutput(t *testing.T) {
	var buf bytes.Buffer
	mw := New(Config{Output: &buf})
	c := newTestCtx("/users")
	c.Response().Status = 201

	if err := mw(c, func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var e Entry
	if err := json.Unmarshal(buf.Bytes(), &e); err != nil {
		t.Fatalf("output not valid JSON: %v (%s)", err, buf.String())
	}
	if e.Method != "GET" || e.Path != "/users" || e.Status != 201 {
		t.Fatalf("entry = %+v, want method GET path /users status 201", e)
	}
}

func TestAccessLogRecordsHandlerError(t *testing.T) {
	var buf bytes.Buffer
	mw := New(Config{Output: &buf})
	c := newTestCtx("/fail")

	wantErr := errors.New("boom")
	if err := mw(c, func() error { return wantErr }); err != wantErr {
		t.Fatalf("expected the handler's error to propagate unchanged, got %v", err)
	}

	var e Entry
	if err := json.Unmarshal(buf.Bytes(), &e); err != nil {
		t.Fatalf("output not valid JSON: %v", err)
	}
	if e.Error != "boom" {
		t.Fatalf("entry.Error = %q, want boom", e.Error)
	}
}

func TestAccessLogSkipsConfiguredPaths(t *testing.T) {
	var buf bytes.Buffer
	mw := New(Config{Output: &buf, SkipPaths: []string{"/health"}})
	c := newTestCtx("/health")

	var nextCalled bool
	if err := mw(c, func() error { nextCalled = true; return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !nextCalled {
		t.Fatalf("expected next to still run for a skipped path")
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no log output for a skipped path, got %q", buf.String())
	}
}

package aurora

import (
	"context"
	"testing"

	"github.com/aurorahttp/aurora/internal/httpparser"
	"github.com/aurorahttp/aurora/internal/response"
)

func newTestContext(method httpparser.Method, path, query string) (*Context, *response.Response) {
	req := &httpparser.Request{Method: method, Path: []byte(path), Query: []byte(query)}
	var resp response.Response
	resp.Reset()
	c := &Context{}
	c.reset(context.Background(), nil, req, &resp)
	return c, &resp
}

func TestContextTextSetsBodyAndContentType(t *testing.T) {
	c, resp := newTestContext(httpparser.MethodGET, "/", "")
	if err := c.Text(200, "hello"); err != nil {
		t.Fatalf("Text: %v", err)
	}
	if string(resp.Body()) != "hello" {
		t.Fatalf("body = %q, want hello", resp.Body())
	}
	if ct := resp.Header().GetString("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Fatalf("content-type = %q", ct)
	}
}

func TestContextJSONMarshalsBody(t *testing.T) {
	c, resp := newTestContext(httpparser.MethodGET, "/", "")
	if err := c.JSON(201, map[string]string{"ok": "yes"}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if resp.Status != 201 {
		t.Fatalf("status = %d, want 201", resp.Status)
	}
	if string(resp.Body()) != `{"ok":"yes"}` {
		t.Fatalf("body = %s", resp.Body())
	}
}

func TestContextQueryParsesLazily(t *testing.T) {
	c, _ := newTestContext(httpparser.MethodGET, "/search", "q=aurora&limit=10")
	if v := c.Query("q"); v != "aurora" {
		t.Fatalf("Query(q) = %q, want aurora", v)
	}
	if v := c.Query("limit"); v != "10" {
		t.Fatalf("Query(limit) = %q, want 10", v)
	}
	if v := c.Query("missing"); v != "" {
		t.Fatalf("Query(missing) = %q, want empty", v)
	}
}

func TestContextParamTruncatesPastEight(t *testing.T) {
	var p Params
	for i := 0; i < 10; i++ {
		p.add(string(rune('a'+i)), "v")
	}
	if p.n != 8 {
		t.Fatalf("Params.n = %d, want 8 (silent truncation)", p.n)
	}
	if _, ok := p.Get("i"); ok {
		t.Fatalf("expected 9th capture to be dropped")
	}
}

func TestStorageSpillsToMapPastFour(t *testing.T) {
	var s Storage
	for i := 0; i < 6; i++ {
		s.Set(string(rune('a'+i)), i)
	}
	for i := 0; i < 6; i++ {
		v, ok := s.Get(string(rune('a' + i)))
		if !ok || v.(int) != i {
			t.Fatalf("Get(%c) = %v,%v, want %d,true", rune('a'+i), v, ok, i)
		}
	}
	if s.overflow == nil || len(s.overflow) != 2 {
		t.Fatalf("expected 2 entries to spill into overflow map, got %v", s.overflow)
	}
}

func TestContextSendRejectedAfterHijack(t *testing.T) {
	c, _ := newTestContext(httpparser.MethodGET, "/", "")
	c.hijacked = true
	if err := c.Text(200, "x"); err != errHijacked {
		t.Fatalf("expected errHijacked after hijack, got %v", err)
	}
}

func TestContextStatusAndSetHeaderNoopAfterHijack(t *testing.T) {
	c, resp := newTestContext(httpparser.MethodGET, "/", "")
	resp.Status = 200
	c.hijacked = true

	if got := c.Status(503); got != c {
		t.Fatalf("Status should still return c for chaining even as a no-op")
	}
	if resp.Status != 200 {
		t.Fatalf("status = %d, want unchanged 200 after hijack", resp.Status)
	}

	c.SetHeader("X-After-Hijack", "set")
	if v := resp.Header().GetString("X-After-Hijack"); v != "" {
		t.Fatalf("expected header not to be set after hijack, got %q", v)
	}
}

func TestContextCloneBytesSurvivesBufferReuse(t *testing.T) {
	c, _ := newTestContext(httpparser.MethodGET, "/x", "")
	buf := []byte("retain-me")
	cloned := c.CloneBytes(buf)

	for i := range buf {
		buf[i] = 'z'
	}
	if string(cloned) != "retain-me" {
		t.Fatalf("cloned bytes = %q, want retain-me (should be independent of the source buffer)", cloned)
	}
}

func TestContextCloneStringAndResetReusesArena(t *testing.T) {
	c, _ := newTestContext(httpparser.MethodGET, "/x", "")
	s := c.CloneString("hello")
	if s != "hello" {
		t.Fatalf("CloneString = %q, want hello", s)
	}

	c.reset(context.Background(), nil, c.req, c.resp)
	if c.scratch.Len() != 0 {
		t.Fatalf("scratch arena should be reset to empty, got len %d", c.scratch.Len())
	}
}

func TestContextIsWebsocketUpgrade(t *testing.T) {
	req := &httpparser.Request{Method: httpparser.MethodGET, Path: []byte("/ws")}
	req.Header.Add([]byte("Upgrade"), []byte("websocket"))
	var resp response.Response
	resp.Reset()
	c := &Context{}
	c.reset(context.Background(), nil, req, &resp)

	if !c.IsWebsocketUpgrade() {
		t.Fatalf("expected IsWebsocketUpgrade to be true")
	}
}

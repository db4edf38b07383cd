package aurora

import "testing"

func TestPipelineRunsInRegistrationOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(ctx *Context, next Next) error {
			order = append(order, name)
			return next()
		}
	}

	p := newPipeline(mw("a"), mw("b"))
	terminal := func(ctx *Context) error {
		order = append(order, "terminal")
		return nil
	}

	if err := p.execute(nil, terminal); err != nil {
		t.Fatalf("execute: %v", err)
	}
	want := []string{"a", "b", "terminal"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestPipelineShortCircuitsWhenNextNotCalled(t *testing.T) {
	terminalCalled := false
	p := newPipeline(func(ctx *Context, next Next) error {
		return nil // never calls next
	})
	terminal := func(ctx *Context) error {
		terminalCalled = true
		return nil
	}

	if err := p.execute(nil, terminal); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if terminalCalled {
		t.Fatalf("terminal handler ran despite middleware not calling next")
	}
}

func TestPipelinePropagatesError(t *testing.T) {
	sentinel := ErrBadRequest
	p := newPipeline(func(ctx *Context, next Next) error {
		return sentinel
	})
	terminal := func(ctx *Context) error { return nil }

	if err := p.execute(nil, terminal); err != sentinel {
		t.Fatalf("execute error = %v, want %v", err, sentinel)
	}
}

func TestPipelineAppendAddsMiddlewareAfterExisting(t *testing.T) {
	var order []string
	p := newPipeline(func(ctx *Context, next Next) error {
		order = append(order, "first")
		return next()
	})
	p.append(func(ctx *Context, next Next) error {
		order = append(order, "second")
		return next()
	})

	terminal := func(ctx *Context) error { return nil }
	if err := p.execute(nil, terminal); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("order = %v", order)
	}
}

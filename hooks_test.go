package aurora

import "testing"

func TestHooksFireInRegistrationOrder(t *testing.T) {
	var h Hooks
	var order []string
	h.OnStart(func() { order = append(order, "s1") })
	h.OnStart(func() { order = append(order, "s2") })

	h.fireStart()
	if len(order) != 2 || order[0] != "s1" || order[1] != "s2" {
		t.Fatalf("order = %v", order)
	}
}

func TestHooksOnRequestAndOnResponseReceiveContext(t *testing.T) {
	var h Hooks
	c := newDispatchTestContext()

	var sawRequest, sawResponse *Context
	h.OnRequest(func(cc *Context) { sawRequest = cc })
	h.OnResponse(func(cc *Context) { sawResponse = cc })

	h.fireRequest(c)
	h.fireResponse(c)

	if sawRequest != c || sawResponse != c {
		t.Fatalf("hooks did not receive the same *Context instance")
	}
}

func TestHooksOnErrorReceivesErrAndContext(t *testing.T) {
	var h Hooks
	c := newDispatchTestContext()

	var gotErr error
	h.OnError(func(err error, cc *Context) { gotErr = err })

	h.fireError(ErrBadRequest, c)
	if gotErr != ErrBadRequest {
		t.Fatalf("gotErr = %v, want ErrBadRequest", gotErr)
	}
}

func TestHooksPanicInOneCallbackDoesNotAbortSiblings(t *testing.T) {
	var h Hooks
	ran := false
	h.OnStart(func() { panic("boom") })
	h.OnStart(func() { ran = true })

	h.fireStart() // must not panic out of this call
	if !ran {
		t.Fatalf("second OnStart callback did not run after the first panicked")
	}
}

func TestHooksOnStopFires(t *testing.T) {
	var h Hooks
	stopped := false
	h.OnStop(func() { stopped = true })
	h.fireStop()
	if !stopped {
		t.Fatalf("OnStop callback did not fire")
	}
}

package jwtauth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aurorahttp/aurora"
	"github.com/aurorahttp/aurora/internal/httpparser"
	"github.com/aurorahttp/aurora/internal/response"
)

func newTestCtx(authHeader string) *aurora.Context {
	req := &httpparser.Request{Method: httpparser.MethodGET, Path: []byte("/secure")}
	if authHeader != "" {
		req.Header.Add([]byte("Authorization"), []byte(authHeader))
	}
	var resp response.Response
	resp.Reset()
	return aurora.NewTestContext(context.Background(), req, &resp)
}

func signToken(t *testing.T, secret []byte) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "42"})
	s, err := tok.SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestJWTMiddlewareRejectsMissingToken(t *testing.T) {
	mw := New(DefaultConfig([]byte("secret")))
	c := newTestCtx("")

	var nextCalled bool
	next := func() error { nextCalled = true; return nil }
	if err := mw(c, next); err != nil {
		t.Fatalf("middleware itself should not error: %v", err)
	}
	if nextCalled {
		t.Fatalf("next should not run without a token")
	}
}

func TestJWTMiddlewareAcceptsValidToken(t *testing.T) {
	secret := []byte("secret")
	mw := New(DefaultConfig(secret))
	c := newTestCtx("Bearer " + signToken(t, secret))

	var nextCalled bool
	next := func() error { nextCalled = true; return nil }
	if err := mw(c, next); err != nil {
		t.Fatalf("middleware error: %v", err)
	}
	if !nextCalled {
		t.Fatalf("next should run for a valid token")
	}
	if _, ok := c.Storage().Get("user"); !ok {
		t.Fatalf("claims should be stored under the default key")
	}
}

func TestJWTMiddlewareSkipsConfiguredPaths(t *testing.T) {
	cfg := DefaultConfig([]byte("secret"))
	cfg.SkipPaths = []string{"/secure"}
	mw := New(cfg)
	c := newTestCtx("")

	var nextCalled bool
	next := func() error { nextCalled = true; return nil }
	if err := mw(c, next); err != nil {
		t.Fatalf("middleware error: %v", err)
	}
	if !nextCalled {
		t.Fatalf("next should run for a skipped path even without a token")
	}
}

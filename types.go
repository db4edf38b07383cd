package aurora

// Handler answers one request through ctx. Returning an error does not
// write a response itself — it hands err to the exception dispatcher
// (errors.go), which may be a typed error carrying its own status, or
// any plain error (mapped to 500).
type Handler func(ctx *Context) error

// Next advances a Middleware pipeline to the next link (or the terminal
// Handler once every middleware has run). Not calling it short-circuits
// the chain — the handler and any remaining middleware never execute.
type Next func() error

// Middleware wraps request handling with cross-cutting behavior: call
// next() to continue the chain, or return without calling it to stop
// there. Grounded on the chain-of-responsibility shape spec §4.10
// requires; the teacher's own Middleware (bolt/core/types.go) instead
// wraps a Handler in a Handler, which can't express "stop without
// calling downstream AND without itself producing the response" as
// cleanly as an explicit next().
type Middleware func(ctx *Context, next Next) error

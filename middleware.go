package aurora

// pipeline is an ordered list of Middleware, invoked around a terminal
// Handler (spec §4.10). execute builds the next() chain lazily as it
// walks the list rather than pre-wrapping handler-in-handler, so a
// middleware that never calls next() genuinely never allocates or runs
// anything past itself.
type pipeline struct {
	mws []Middleware
}

func newPipeline(mws ...Middleware) *pipeline {
	return &pipeline{mws: mws}
}

func (p *pipeline) append(mws ...Middleware) {
	p.mws = append(p.mws, mws...)
}

// execute runs the chain: the first middleware is called with a next
// closure that, when invoked, advances to the next middleware (or to
// terminal once the list is exhausted). A middleware that returns
// without calling next short-circuits everything after it, including
// terminal.
func (p *pipeline) execute(ctx *Context, terminal Handler) error {
	idx := 0
	var next Next
	next = func() error {
		if idx >= len(p.mws) {
			return terminal(ctx)
		}
		mw := p.mws[idx]
		idx++
		return mw(ctx, next)
	}
	return next()
}

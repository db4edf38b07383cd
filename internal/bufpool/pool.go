// Package bufpool implements the size-classed buffer pool that feeds
// Aurora's hot path (C1 in the design). Every class is backed by a
// sync.Pool so Get/Put never touch a managed heap structure of our own on
// a hit; the only allocation is sync.Pool's own (amortized, GC-scannable)
// slot housekeeping, which is the same cost the teacher's BufferPool pays.
package bufpool

import (
	"sync"
	"sync/atomic"
)

// Size classes, strictly as specified: a request for 5000 bytes returns
// the next larger class (16K), never a partially-filled smaller one.
const (
	Class1K   = 1 << 10
	Class4K   = 4 << 10
	Class16K  = 16 << 10
	Class64K  = 64 << 10
	Class256K = 256 << 10

	maxPooledSlots  = 128
	maxTrackedAlien = 256
)

type class struct {
	size     int
	pool     sync.Pool
	inFlight atomic.Int32 // best-effort cap enforcement, see Put
}

func newClass(size int) *class {
	c := &class{size: size}
	c.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return c
}

func (c *class) get() []byte {
	bp := c.pool.Get().(*[]byte)
	c.inFlight.Add(1)
	return (*bp)[:c.size]
}

func (c *class) put(buf []byte) {
	// Bound the freelist: once 128 slots are plausibly outstanding in the
	// pool, further Puts are dropped rather than grown without limit.
	// sync.Pool itself has no cap, so the cap is approximated by the
	// in-flight counter the class maintains alongside it.
	if c.inFlight.Add(-1) < -maxPooledSlots {
		c.inFlight.Store(0)
		return
	}
	b := buf[:c.size]
	c.pool.Put(&b)
}

// Pool is the five-class buffer pool described in spec §4.1.
type Pool struct {
	classes [5]*class

	mu      sync.Mutex
	alien   map[*byte]struct{} // buffers released that didn't come from a class
	debug   bool
	relSeen map[*byte]struct{} // debug-only: catches double release
}

// New constructs a Pool. debug enables double-release assertions; it
// should be wired to a build/config flag, never left on in the hot path
// of a production binary (it takes a lock on every Release).
func New(debug bool) *Pool {
	return &Pool{
		classes: [5]*class{
			newClass(Class1K),
			newClass(Class4K),
			newClass(Class16K),
			newClass(Class64K),
			newClass(Class256K),
		},
		alien:   make(map[*byte]struct{}, maxTrackedAlien),
		debug:   debug,
		relSeen: make(map[*byte]struct{}),
	}
}

func classIndexFor(n int) int {
	switch {
	case n <= Class1K:
		return 0
	case n <= Class4K:
		return 1
	case n <= Class16K:
		return 2
	case n <= Class64K:
		return 3
	default:
		return 4
	}
}

// Acquire returns a buffer whose capacity is at least n. Requests larger
// than the top class fall back to a fresh allocation that Release will
// track as "alien" rather than silently discard.
func (p *Pool) Acquire(n int) []byte {
	if n > Class256K {
		return make([]byte, n)
	}
	buf := p.classes[classIndexFor(n)].get()
	if p.debug {
		// buf is live again, so its next Release is not a double release.
		p.mu.Lock()
		delete(p.relSeen, &buf[0])
		p.mu.Unlock()
	}
	return buf
}

// Release returns buf to the class matching its length. A buffer whose
// length doesn't exactly match any class boundary is tracked as an alien
// allocation (bounded at 256 entries) instead of being pooled.
func (p *Pool) Release(buf []byte) {
	if len(buf) == 0 {
		return
	}
	idx := -1
	switch len(buf) {
	case Class1K:
		idx = 0
	case Class4K:
		idx = 1
	case Class16K:
		idx = 2
	case Class64K:
		idx = 3
	case Class256K:
		idx = 4
	}

	if p.debug {
		p.assertSingleRelease(buf)
	}

	if idx >= 0 {
		p.classes[idx].put(buf)
		return
	}
	p.trackAlien(buf)
}

func (p *Pool) assertSingleRelease(buf []byte) {
	key := &buf[0]
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, dup := p.relSeen[key]; dup {
		panic("bufpool: double release detected")
	}
	p.relSeen[key] = struct{}{}
}

func (p *Pool) trackAlien(buf []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.alien) >= maxTrackedAlien {
		// Oldest-unaware eviction: bounded memory wins over perfect
		// tracking for a defense that only exists to catch bugs.
		for k := range p.alien {
			delete(p.alien, k)
			break
		}
	}
	p.alien[&buf[0]] = struct{}{}
}

// AlienCount reports how many non-class buffers are currently tracked.
// Exposed for tests and diagnostics only.
func (p *Pool) AlienCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.alien)
}

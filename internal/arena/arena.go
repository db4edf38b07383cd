// Package arena implements the per-fiber bump allocator (C3): a fixed
// linear region with pointer-width-aligned bump allocation and a
// heap-tracked fallback for anything the region can't satisfy. Grounded
// on the teacher's memory.Arena (shockwave/pkg/shockwave/memory/arena.go),
// which wraps Go's build-tag-gated experimental `arena` package; that API
// requires GOEXPERIMENT=arenas and is not available in a normal build, so
// this version reimplements the same bump-then-fallback contract over a
// plain byte slice instead of depending on the experimental stdlib arena.
package arena

import (
	"sync"

	"github.com/valyala/bytebufferpool"
)

const (
	ptrAlign    = 8
	defaultSize = 16 << 10 // 16 KiB scratch region, sized for one request

	// maxFallbackSlots caps the heap-tracked fallback at 128 live
	// allocations per Arena. Past the cap, Allocate still succeeds — it
	// just stops pooling: the excess slot is a bare, untracked make()
	// that Reset never sees and fallbackPool never recycles, the same
	// "excess is dropped" shape bufpool uses for its own oversized path.
	maxFallbackSlots = 128
)

// fallbackPool recycles the oversized allocations Allocate falls back to
// once a region is exhausted, instead of handing every one straight to
// the GC. Shared across all Arenas — the spec calls for a real pooled
// byte-buffer library here rather than a second hand-rolled size-classed
// pool alongside bufpool.
var fallbackPool bytebufferpool.Pool

// Arena is a per-fiber (per-request) scratch allocator. It is not
// goroutine-safe — exactly one fiber owns an Arena at a time, matching
// the spec's "per-fiber or per-request scratch only" contract.
type Arena struct {
	region   []byte
	offset   int
	fallback []*bytebufferpool.ByteBuffer // pooled once region is exhausted
}

// New creates an Arena with a region of the given size. size <= 0 uses
// the default 16 KiB.
func New(size int) *Arena {
	if size <= 0 {
		size = defaultSize
	}
	return &Arena{region: make([]byte, size)}
}

func alignUp(n int) int {
	return (n + ptrAlign - 1) &^ (ptrAlign - 1)
}

// Allocate returns a slice of length n. It bumps the arena's offset when
// the region has room; otherwise it falls back to a pooled buffer that is
// tracked and returned to the pool on the next Reset (or, once
// maxFallbackSlots are tracked, to an untracked heap allocation).
// Fallback slices are zeroed; region slices are zero only until the
// region is reused after a Reset.
func (a *Arena) Allocate(n int) []byte {
	if n <= 0 {
		return nil
	}
	aligned := alignUp(n)
	if a.offset+aligned <= len(a.region) {
		buf := a.region[a.offset : a.offset+n : a.offset+aligned]
		a.offset += aligned
		return buf
	}

	if len(a.fallback) >= maxFallbackSlots {
		return make([]byte, n)
	}

	bb := fallbackPool.Get()
	if cap(bb.B) < n {
		bb.B = make([]byte, n)
	} else {
		bb.B = bb.B[:n]
		for i := range bb.B {
			bb.B[i] = 0
		}
	}
	a.fallback = append(a.fallback, bb)
	return bb.B
}

// AllocateString copies s into the arena and returns a string view over
// the copy (safe to retain only for the arena's lifetime).
func (a *Arena) AllocateString(s string) string {
	b := a.Allocate(len(s))
	copy(b, s)
	return string(b)
}

// Clone copies src into the arena.
func (a *Arena) Clone(src []byte) []byte {
	b := a.Allocate(len(src))
	copy(b, src)
	return b
}

// Reset rewinds the bump offset to zero and returns every tracked
// fallback buffer to fallbackPool. The region itself is reused,
// not re-zeroed (callers must not assume freshly-allocated memory is
// zero after a Reset — Go's make already zeroed it once, but bump slices
// handed out before Reset are no longer valid to read after reuse).
func (a *Arena) Reset() {
	a.offset = 0
	for _, bb := range a.fallback {
		fallbackPool.Put(bb)
	}
	a.fallback = a.fallback[:0]
}

// Len reports how many bytes of the fixed region are currently in use.
func (a *Arena) Len() int { return a.offset }

// FallbackCount reports how many heap-tracked allocations are live.
func (a *Arena) FallbackCount() int { return len(a.fallback) }

// Pool recycles Arenas across fibers so each new request doesn't pay for
// a fresh region allocation.
type Pool struct {
	sp        sync.Pool
	regionLen int
}

// NewPool builds an Arena pool; regionLen <= 0 uses the default size.
func NewPool(regionLen int) *Pool {
	if regionLen <= 0 {
		regionLen = defaultSize
	}
	p := &Pool{regionLen: regionLen}
	p.sp.New = func() any { return New(p.regionLen) }
	return p
}

// Get returns an Arena ready for use (already Reset).
func (p *Pool) Get() *Arena {
	return p.sp.Get().(*Arena)
}

// Put resets a then returns it to the pool.
func (p *Pool) Put(a *Arena) {
	a.Reset()
	p.sp.Put(a)
}

package aurora

import (
	"fmt"
	"strings"

	"github.com/aurorahttp/aurora/internal/alog"
	"github.com/aurorahttp/aurora/internal/httpparser"
)

// segment is a short-string-optimized path segment: a route piece of 15
// bytes or fewer lives inline in the node, matching the cache-line field
// packing the teacher uses for its Context buffers (bolt/core/context.go)
// applied here to route segments rather than per-request scratch space.
// Longer segments (rare — most path pieces are short words or :params)
// fall back to an ordinary heap string.
type segment struct {
	small    [15]byte
	smallLen uint8
	big      string
	isBig    bool
}

func newSegment(s string) segment {
	if len(s) <= len(segment{}.small) {
		var sg segment
		copy(sg.small[:], s)
		sg.smallLen = uint8(len(s))
		return sg
	}
	return segment{big: s, isBig: true}
}

func (s *segment) String() string {
	if s.isBig {
		return s.big
	}
	return string(s.small[:s.smallLen])
}

// equalBytes compares without allocating, the fast path for every Match.
func (s *segment) equalBytes(b []byte) bool {
	if s.isBig {
		return len(s.big) == len(b) && s.big == string(b)
	}
	if int(s.smallLen) != len(b) {
		return false
	}
	for i := 0; i < int(s.smallLen); i++ {
		if s.small[i] != b[i] {
			return false
		}
	}
	return true
}

type nodeKind uint8

const (
	nodeStatic nodeKind = iota
	nodeParam
	nodeWildcard
)

// routeNode is one node of a per-method radix tree. At most one Param
// child and one Wildcard child exist per parent (spec §4.9's insert
// policy); any number of Static children exist, linearly scanned until
// the node grows past 3 of them, at which point a small lookup cache
// takes over.
type routeNode struct {
	seg       segment
	kind      nodeKind
	paramName string
	handler   Handler

	staticChildren []*routeNode
	paramChild     *routeNode
	wildcardChild  *routeNode

	// cache is populated lazily once len(staticChildren) > 3, keyed by
	// the segment text borrowed from the route tree itself — never from
	// the request buffer, so its lifetime is the tree's, not a request's.
	cache map[string]*routeNode
}

func (n *routeNode) child(raw string) *routeNode {
	switch {
	case strings.HasPrefix(raw, ":"):
		name := raw[1:]
		if n.paramChild == nil {
			n.paramChild = &routeNode{kind: nodeParam, paramName: name, seg: newSegment(raw)}
		} else if n.paramChild.paramName != name {
			alog.Logger.WithFields(alog.Fields{"existing": n.paramChild.paramName, "new": name}).
				Warn("aurora: route param name conflict, reusing existing node")
		}
		return n.paramChild
	case strings.HasPrefix(raw, "*"):
		name := raw[1:]
		if n.wildcardChild == nil {
			n.wildcardChild = &routeNode{kind: nodeWildcard, paramName: name, seg: newSegment(raw)}
		} else if n.wildcardChild.paramName != name {
			alog.Logger.WithFields(alog.Fields{"existing": n.wildcardChild.paramName, "new": name}).
				Warn("aurora: route wildcard name conflict, reusing existing node")
		}
		return n.wildcardChild
	default:
		rb := []byte(raw)
		for _, c := range n.staticChildren {
			if c.seg.equalBytes(rb) {
				return c
			}
		}
		c := &routeNode{kind: nodeStatic, seg: newSegment(raw)}
		n.staticChildren = append(n.staticChildren, c)
		if len(n.staticChildren) > 3 {
			if n.cache == nil {
				n.cache = make(map[string]*routeNode, len(n.staticChildren))
				for _, sc := range n.staticChildren {
					n.cache[sc.seg.String()] = sc
				}
			} else {
				n.cache[c.seg.String()] = c
			}
		}
		return c
	}
}

func matchStatic(n *routeNode, seg []byte) *routeNode {
	if n.cache != nil {
		if c, ok := n.cache[string(seg)]; ok {
			return c
		}
		return nil
	}
	for _, c := range n.staticChildren {
		if c.seg.equalBytes(seg) {
			return c
		}
	}
	return nil
}

// Router holds one radix tree per HTTP method.
type Router struct {
	trees       map[httpparser.Method]*routeNode
	mountedInto []*Router // ancestors this Router has been mounted into, for Mount cycle checks
}

// NewRouter constructs an empty Router.
func NewRouter() *Router {
	return &Router{trees: make(map[httpparser.Method]*routeNode)}
}

// Add registers handler for method and path. path segments starting with
// ':' are params, '*' are wildcards (must be the final segment to have
// any effect — a wildcard's own children are never reachable since
// matching on it always returns immediately).
func (r *Router) Add(method httpparser.Method, path string, handler Handler) error {
	root, ok := r.trees[method]
	if !ok {
		root = &routeNode{}
		r.trees[method] = root
	}
	node := root
	for _, s := range splitSegments(path) {
		node = node.child(s)
	}
	if node.handler != nil {
		return fmt.Errorf("aurora: route already registered: %s %s", method, path)
	}
	node.handler = handler
	return nil
}

// Mount grafts sub's routes under prefix, recursively. It rejects
// mounts that would create a cycle (r already has sub somewhere in its
// own mount ancestry, or sub is r itself).
func (r *Router) Mount(prefix string, sub *Router) error {
	if sub == r {
		return fmt.Errorf("aurora: cannot mount a router under itself")
	}
	for _, anc := range r.mountedInto {
		if anc == sub {
			return fmt.Errorf("aurora: mounting %q would create a routing cycle", prefix)
		}
	}

	prefixSegs := splitSegments(prefix)
	for method, subRoot := range sub.trees {
		root, ok := r.trees[method]
		if !ok {
			root = &routeNode{}
			r.trees[method] = root
		}
		node := root
		for _, s := range prefixSegs {
			node = node.child(s)
		}
		mergeNode(node, subRoot)
	}

	sub.mountedInto = append(append([]*Router{r}, r.mountedInto...), sub.mountedInto...)
	return nil
}

func mergeNode(dst, src *routeNode) {
	if src.handler != nil {
		dst.handler = src.handler
	}
	for _, c := range src.staticChildren {
		mergeNode(dst.child(c.seg.String()), c)
	}
	if src.paramChild != nil {
		mergeNode(dst.child(":"+src.paramChild.paramName), src.paramChild)
	}
	if src.wildcardChild != nil {
		mergeNode(dst.child("*"+src.wildcardChild.paramName), src.wildcardChild)
	}
}

// frame is one level of the explicit backtracking stack Match drives —
// spec §4.9 calls for iterative matching, so the DFS here is modeled
// with a slice-backed stack instead of Go call recursion.
type frame struct {
	node     *routeNode
	segIdx   int
	paramsAt int
	choice   uint8 // 0=try static, 1=try param, 2=try wildcard, 3=exhausted
}

// Match finds the handler registered for method and pathBytes, filling
// params with any :name/*name captures along the winning path.
// pathBytes is not modified; while it is split into segments, duplicate
// slashes collapse and a trailing slash (other than root) is ignored,
// per spec §4.9.
func (r *Router) Match(method httpparser.Method, pathBytes []byte) (Handler, Params, bool) {
	root, ok := r.trees[method]
	if !ok {
		return nil, Params{}, false
	}

	segs, offsets := splitPathOffsets(pathBytes)

	var params Params
	stack := make([]frame, 1, len(segs)+1)
	stack[0] = frame{node: root, segIdx: 0}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if top.segIdx >= len(segs) {
			if top.node.handler != nil {
				return top.node.handler, params, true
			}
			params.n = top.paramsAt
			stack = stack[:len(stack)-1]
			continue
		}

		seg := segs[top.segIdx]

		var next *routeNode
		switch top.choice {
		case 0:
			top.choice = 1
			next = matchStatic(top.node, seg)
		case 1:
			top.choice = 2
			next = top.node.paramChild
		case 2:
			top.choice = 3
			next = top.node.wildcardChild
		default:
			params.n = top.paramsAt
			stack = stack[:len(stack)-1]
			continue
		}

		if next == nil {
			continue
		}

		paramsAt := params.n
		if next.kind == nodeWildcard {
			params.add(next.paramName, string(pathBytes[offsets[top.segIdx]:]))
			if next.handler != nil {
				return next.handler, params, true
			}
			params.n = paramsAt
			continue
		}
		if next.kind == nodeParam {
			params.add(next.paramName, string(seg))
		}

		stack = append(stack, frame{node: next, segIdx: top.segIdx + 1, paramsAt: paramsAt})
	}

	return nil, Params{}, false
}

// splitSegments tokenizes a registration path, dropping empty pieces
// from leading/trailing/duplicate slashes.
func splitSegments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitPathOffsets tokenizes a request path into zero-copy segment
// views plus each segment's starting byte offset (needed so a wildcard
// match can reconstruct its remainder without rejoining strings).
func splitPathOffsets(path []byte) (segs [][]byte, offsets []int) {
	i, n := 0, len(path)
	for i < n {
		for i < n && path[i] == '/' {
			i++
		}
		if i >= n {
			break
		}
		start := i
		for i < n && path[i] != '/' {
			i++
		}
		segs = append(segs, path[start:i])
		offsets = append(offsets, start)
	}
	return segs, offsets
}

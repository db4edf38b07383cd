package httpparser

// field is one (name, value) pair as parsed — both slices are views into
// the caller's buffer, never copied, matching the zero-copy contract.
type field struct {
	name  []byte
	value []byte
}

// Header is an ordered multimap preserving insertion order and original
// case on iteration, while matching names case-insensitively on lookup —
// the exact contract spec'd in §3. It is grounded on the teacher's
// http11.Header inline-array design, but stores slices that reference the
// caller's buffer directly instead of copying into fixed byte arrays, so
// that returned views share the input buffer's lifetime as §4.4 requires.
type Header struct {
	fields []field
}

// Reset clears the header set for reuse without releasing the backing
// array's capacity.
func (h *Header) Reset() {
	h.fields = h.fields[:0]
}

// Add appends a (name, value) pair, preserving duplicates and order.
func (h *Header) Add(name, value []byte) {
	h.fields = append(h.fields, field{name: name, value: value})
}

func equalFold(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Get returns the first value matching name (case-insensitive), or nil.
func (h *Header) Get(name string) []byte {
	nb := []byte(name)
	for i := range h.fields {
		if equalFold(h.fields[i].name, nb) {
			return h.fields[i].value
		}
	}
	return nil
}

// GetString is a convenience wrapper allocating a string from Get.
func (h *Header) GetString(name string) string {
	v := h.Get(name)
	if v == nil {
		return ""
	}
	return string(v)
}

// Values returns every value for name, in insertion order.
func (h *Header) Values(name string) [][]byte {
	nb := []byte(name)
	var out [][]byte
	for i := range h.fields {
		if equalFold(h.fields[i].name, nb) {
			out = append(out, h.fields[i].value)
		}
	}
	return out
}

// Count returns how many (name, value) pairs have the given name.
func (h *Header) Count(name string) int {
	nb := []byte(name)
	n := 0
	for i := range h.fields {
		if equalFold(h.fields[i].name, nb) {
			n++
		}
	}
	return n
}

// Len returns the total number of header fields.
func (h *Header) Len() int { return len(h.fields) }

// Each iterates all fields in original insertion order with original case
// preserved, matching the spec's iteration invariant.
func (h *Header) Each(fn func(name, value []byte)) {
	for i := range h.fields {
		fn(h.fields[i].name, h.fields[i].value)
	}
}

package httpparser

// ParseMethod matches m against the known verb set, grounded on the
// teacher's length-then-byte-compare ParseMethodID fast path
// (shockwave/pkg/shockwave/http11/method.go). Lowercase or unrecognized
// methods are rejected rather than normalized, per spec §4.4.
func ParseMethod(m []byte) (Method, bool) {
	switch len(m) {
	case 3:
		if m[0] == 'G' && m[1] == 'E' && m[2] == 'T' {
			return MethodGET, true
		}
		if m[0] == 'P' && m[1] == 'U' && m[2] == 'T' {
			return MethodPUT, true
		}
	case 4:
		if m[0] == 'P' && m[1] == 'O' && m[2] == 'S' && m[3] == 'T' {
			return MethodPOST, true
		}
		if m[0] == 'H' && m[1] == 'E' && m[2] == 'A' && m[3] == 'D' {
			return MethodHEAD, true
		}
	case 5:
		if m[0] == 'P' && m[1] == 'A' && m[2] == 'T' && m[3] == 'C' && m[4] == 'H' {
			return MethodPATCH, true
		}
		if m[0] == 'T' && m[1] == 'R' && m[2] == 'A' && m[3] == 'C' && m[4] == 'E' {
			return MethodTRACE, true
		}
	case 6:
		if m[0] == 'D' && m[1] == 'E' && m[2] == 'L' && m[3] == 'E' && m[4] == 'T' && m[5] == 'E' {
			return MethodDELETE, true
		}
	case 7:
		if m[0] == 'O' && m[1] == 'P' && m[2] == 'T' && m[3] == 'I' && m[4] == 'O' && m[5] == 'N' && m[6] == 'S' {
			return MethodOPTIONS, true
		}
	}
	return MethodUnknown, false
}

// ParseVersion matches the HTTP-Version token exactly.
func ParseVersion(v []byte) (Version, bool) {
	switch {
	case len(v) == 8 && string(v) == "HTTP/1.1":
		return Version11, true
	case len(v) == 8 && string(v) == "HTTP/1.0":
		return Version10, true
	default:
		return VersionUnknown, false
	}
}

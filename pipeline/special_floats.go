package pipeline

import (
	"bytes"
	"math"

	"github.com/jqstream/jqstream/value"
)

func nan() float64    { return math.NaN() }
func inf(sign int) float64 { return math.Inf(sign) }

// Bare NaN/Infinity literals aren't valid JSON but several producers emit
// them anyway (Python's json.dumps, for one). The preprocessor (C7)
// substitutes each occurrence outside of a string literal with a sentinel
// string so the value still parses, then restoreSpecialFloats replaces
// the sentinel strings back with the corresponding Double once decoded.
const (
	sentinelNaN     = " jqstream:nan "
	sentinelInf     = " jqstream:inf "
	sentinelNegInf  = " jqstream:neginf "
)

var (
	quotedSentinelNaN    = []byte(`"` + sentinelNaN + `"`)
	quotedSentinelInf    = []byte(`"` + sentinelInf + `"`)
	quotedSentinelNegInf = []byte(`"` + sentinelNegInf + `"`)
)

// substituteSpecialFloats rewrites bare NaN/nan/Infinity/infinity/inf tokens
// (in either sign) that occur outside of string literals into quoted
// sentinels, leaving anything inside a JSON string (where these are just
// ordinary letters) untouched. NaN has no sign of its own: a leading '-' in
// front of NaN/nan is consumed but doesn't change the result, matching the
// convention that -NaN is still NaN.
func substituteSpecialFloats(b []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(b))
	inString := false
	escaped := false
	i := 0
	for i < len(b) {
		c := b[i]
		if inString {
			out.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			i++
			continue
		}
		if c == '"' {
			inString = true
			out.WriteByte(c)
			i++
			continue
		}
		negative := false
		rest := b[i:]
		if c == '-' && i+1 < len(b) {
			negative = true
			rest = b[i+1:]
		}
		if repl, skip, ok := matchSpecialFloat(rest, negative); ok {
			out.Write(repl)
			i += skip
			if negative {
				i++
			}
			continue
		}
		out.WriteByte(c)
		i++
	}
	return out.Bytes()
}

// matchSpecialFloat matches a special float token at the start of s,
// returning the sentinel bytes to emit and how many bytes of s it consumed.
// Order matters: "infinity" must be checked before the shorter "inf" so the
// longer token wins.
func matchSpecialFloat(s []byte, negative bool) (repl []byte, skip int, ok bool) {
	if (bytes.HasPrefix(s, []byte("NaN")) || bytes.HasPrefix(s, []byte("nan"))) && !isIdentByte(byteAt(s, 3)) {
		return quotedSentinelNaN, 3, true
	}
	if bytes.HasPrefix(s, []byte("Infinity")) || bytes.HasPrefix(s, []byte("infinity")) {
		if negative {
			return quotedSentinelNegInf, 8, true
		}
		return quotedSentinelInf, 8, true
	}
	if bytes.HasPrefix(s, []byte("inf")) && !isIdentByte(byteAt(s, 3)) {
		if negative {
			return quotedSentinelNegInf, 3, true
		}
		return quotedSentinelInf, 3, true
	}
	return nil, 0, false
}

func byteAt(b []byte, i int) byte {
	if i < 0 || i >= len(b) {
		return 0
	}
	return b[i]
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// restoreSpecialFloats walks a decoded value.Value tree replacing sentinel
// strings (see substituteSpecialFloats) with the Double they stand for.
func restoreSpecialFloats(v value.Value) value.Value {
	switch x := v.(type) {
	case value.String:
		switch string(x) {
		case sentinelNaN:
			return value.NewDouble(nan())
		case sentinelInf:
			return value.NewDouble(inf(1))
		case sentinelNegInf:
			return value.NewDouble(inf(-1))
		}
		return v
	case *value.Array:
		items := make([]value.Value, len(x.Items))
		for i, it := range x.Items {
			items[i] = restoreSpecialFloats(it)
		}
		return value.NewArray(items)
	case *value.Object:
		o := value.EmptyObject()
		for _, p := range x.Pairs {
			o = o.Set(p.Key, restoreSpecialFloats(p.Value))
		}
		return o
	default:
		return v
	}
}

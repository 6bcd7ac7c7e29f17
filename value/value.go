// Package value implements the immutable JSON value model the filter
// evaluator (package filter) operates over: a tagged union of exactly the
// seven JSON shapes, structurally shared so that a functional update such as
// setpath only ever copies the spine from root to the edited node.
//
// This is deliberately not the token.Token stream used by the NDJSON
// pipeline and the fast-path dispatcher - those operate on raw bytes to
// avoid ever building a Value at all. value.Decode and
// value.FromIteratorValue bridge the two when a fast-path pattern falls
// back to full evaluation.
package value

import (
	"fmt"
	"math"
	"strconv"
)

// A Value is exactly one of Null, Bool, Int, Double, String, *Array or
// *Object. Scalars are plain Go values copied by assignment; Array and
// Object are pointers so that children can be shared by multiple parents.
type Value interface {
	fmt.Stringer

	// TypeName returns jq's name for the value's type, as returned by the
	// "type" builtin: "null", "boolean", "number", "string", "array" or
	// "object".
	TypeName() string
}

// Null is the distinguished absent value. There is exactly one Value of
// this type, NullValue; Null itself carries no data.
type Null struct{}

// NullValue is the single instance of Null in normal use; constructors
// return it rather than allocating.
var NullValue Value = Null{}

func (Null) String() string   { return "null" }
func (Null) TypeName() string { return "null" }

// Bool is a JSON boolean.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) TypeName() string { return "boolean" }

// Int is a 64-bit signed integer. Arithmetic that would overflow promotes
// to Double rather than wrapping (see value/ops.go:Arith).
type Int int64

func (n Int) String() string   { return strconv.FormatInt(int64(n), 10) }
func (Int) TypeName() string   { return "number" }

// Double is an IEEE-754 double. Raw, when non-empty, is the literal JSON
// text the value was parsed from (e.g. "75.80"); the serialiser reproduces
// Raw verbatim so round-tripping doesn't normalise "75.80" to "75.8". Raw
// is cleared by any arithmetic or construction that computes a new double.
type Double struct {
	F   float64
	Raw string
}

func (d Double) String() string {
	if d.Raw != "" {
		return d.Raw
	}
	return FormatDouble(d.F)
}
func (Double) TypeName() string { return "number" }

// NewDouble wraps a computed double with no raw literal attached.
func NewDouble(f float64) Value { return Double{F: f} }

// String is a UTF-8 JSON string. The Go string holds the decoded text, not
// the JSON-escaped source bytes.
type String string

func (s String) String() string   { return string(s) }
func (String) TypeName() string   { return "string" }

// Array is an ordered, immutable sequence of Values. Constructing a new
// array from an old one by changing one element copies the Items slice but
// reuses every untouched element pointer/value - the sharing the spec calls
// "structural sharing".
type Array struct {
	Items []Value
}

// NewArray takes ownership of items; callers must not mutate it afterwards.
func NewArray(items []Value) *Array { return &Array{Items: items} }

func EmptyArray() *Array { return &Array{} }

func (a *Array) String() string { return formatValue(a) }
func (*Array) TypeName() string { return "array" }

// Append returns a new array with v appended; a does not change.
func (a *Array) Append(v Value) *Array {
	items := make([]Value, len(a.Items)+1)
	copy(items, a.Items)
	items[len(a.Items)] = v
	return &Array{Items: items}
}

// WithItemAt returns a new array equal to a except that index i holds v.
// The slice backing the result is always fresh; elements other than i are
// shared with a.
func (a *Array) WithItemAt(i int, v Value) *Array {
	items := make([]Value, len(a.Items))
	copy(items, a.Items)
	items[i] = v
	return &Array{Items: items}
}

// Pair is a single (key, value) entry of an Object, kept in insertion order.
type Pair struct {
	Key   string
	Value Value
}

// Object is an ordered sequence of (key, Value) pairs. Keys are unique;
// inserting a key already present replaces its value in place, preserving
// the key's original position (see Object.Set).
type Object struct {
	Pairs []Pair
}

func NewObject(pairs []Pair) *Object { return &Object{Pairs: pairs} }

func EmptyObject() *Object { return &Object{} }

func (o *Object) String() string { return formatValue(o) }
func (*Object) TypeName() string { return "object" }

// Get returns the value associated with key, and whether it was present.
func (o *Object) Get(key string) (Value, bool) {
	for _, p := range o.Pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Set returns a new object equal to o but with key bound to v: if key is
// already present the new value replaces the old one in place (insertion
// order unchanged), otherwise the pair is appended.
func (o *Object) Set(key string, v Value) *Object {
	for i, p := range o.Pairs {
		if p.Key == key {
			pairs := make([]Pair, len(o.Pairs))
			copy(pairs, o.Pairs)
			pairs[i].Value = v
			return &Object{Pairs: pairs}
		}
	}
	pairs := make([]Pair, len(o.Pairs)+1)
	copy(pairs, o.Pairs)
	pairs[len(o.Pairs)] = Pair{Key: key, Value: v}
	return &Object{Pairs: pairs}
}

// Delete returns a new object equal to o with key removed, or o itself
// (same pointer) if key was not present.
func (o *Object) Delete(key string) *Object {
	for i, p := range o.Pairs {
		if p.Key == key {
			pairs := make([]Pair, 0, len(o.Pairs)-1)
			pairs = append(pairs, o.Pairs[:i]...)
			pairs = append(pairs, o.Pairs[i+1:]...)
			return &Object{Pairs: pairs}
		}
	}
	return o
}

// Truthy implements jq's definition of truthiness: everything except null
// and false is truthy.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case Null:
		return false
	case Bool:
		return bool(x)
	default:
		return true
	}
}

// AsFloat64 returns the numeric value of an Int or Double, coercing Int to
// float64 the way jq does for mixed arithmetic and comparison.
func AsFloat64(v Value) (float64, bool) {
	switch x := v.(type) {
	case Int:
		return float64(x), true
	case Double:
		return x.F, true
	default:
		return 0, false
	}
}

// IsNumber reports whether v is an Int or Double.
func IsNumber(v Value) bool {
	switch v.(type) {
	case Int, Double:
		return true
	default:
		return false
	}
}

func formatValue(v Value) string {
	var b []byte
	b = appendValue(b, v)
	return string(b)
}

func appendValue(b []byte, v Value) []byte {
	switch x := v.(type) {
	case Null:
		return append(b, "null"...)
	case Bool:
		return append(b, x.String()...)
	case Int:
		return append(b, x.String()...)
	case Double:
		return append(b, x.String()...)
	case String:
		return strconv.AppendQuote(b, string(x))
	case *Array:
		b = append(b, '[')
		for i, item := range x.Items {
			if i > 0 {
				b = append(b, ',')
			}
			b = appendValue(b, item)
		}
		return append(b, ']')
	case *Object:
		b = append(b, '{')
		for i, p := range x.Pairs {
			if i > 0 {
				b = append(b, ',')
			}
			b = strconv.AppendQuote(b, p.Key)
			b = append(b, ':')
			b = appendValue(b, p.Value)
		}
		return append(b, '}')
	default:
		panic(fmt.Sprintf("value: unknown variant %T", v))
	}
}

// FormatDouble renders a computed double the way the output serialiser
// does for values with no attached raw literal (see output.Writer's
// writeNumber for the full integer-vs-scientific rule); it is also used by
// builtins such as tostring that need the same textual form.
func FormatDouble(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "null"
	}
	if f == 0 {
		return "0"
	}
	if f == math.Trunc(f) {
		s := strconv.FormatFloat(f, 'f', -1, 64)
		zeros := 0
		for i := len(s) - 1; i >= 0 && s[i] == '0'; i-- {
			zeros++
		}
		if zeros <= 15 {
			return s
		}
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

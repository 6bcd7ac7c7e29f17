package value

import (
	"io"
	"strconv"

	jsondec "github.com/jqstream/jqstream/encoding/json"
	"github.com/jqstream/jqstream/iterator"
	"github.com/jqstream/jqstream/token"
)

// DecodeAll parses every whitespace-separated JSON value in r into a slice
// of materialised Values - the single-document/concatenated-documents path
// of the input preprocessor (C7), as opposed to the NDJSON line-by-line
// path which parses one line at a time via Decode.
func DecodeAll(r io.Reader) ([]Value, error) {
	dec := jsondec.NewDecoder(r)
	var parseErr error
	ch := token.StartStream(dec, func(err error) {
		if err != io.EOF {
			parseErr = err
		}
	})
	it := iterator.New(token.ChannelReadStream(ch))
	var values []Value
	for it.Advance() {
		v, err := FromIteratorValue(it.CurrentValue())
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return values, nil
}

// Decode parses a single JSON value from b, used for the NDJSON path's
// per-line materialisation when the fast-path dispatcher cannot handle the
// filter directly (see fastpath.ErrFallback).
func Decode(b []byte) (Value, error) {
	values, err := DecodeAll(&byteReader{b})
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	return values[0], nil
}

type byteReader struct {
	b []byte
}

func (r *byteReader) Read(p []byte) (int, error) {
	if len(r.b) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.b)
	r.b = r.b[n:]
	return n, nil
}

// FromIteratorValue materialises a full value.Value tree by walking an
// iterator.Value exhaustively. This is the bridge between the lazy
// token/iterator representation the NDJSON pipeline and fast-path
// dispatcher use, and the materialised tree the evaluator (package filter)
// operates on.
func FromIteratorValue(v iterator.Value) (Value, error) {
	if s, ok := v.AsScalar(); ok {
		return scalarToValue(s), nil
	}
	if arr, ok := v.AsArray(); ok {
		var items []Value
		for arr.Advance() {
			item, err := FromIteratorValue(arr.CurrentValue())
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return &Array{Items: items}, nil
	}
	if obj, ok := v.AsObject(); ok {
		var pairs []Pair
		for obj.Advance() {
			key, val := obj.CurrentKeyVal()
			goVal, err := FromIteratorValue(val)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, Pair{Key: key.ToString(), Value: goVal})
		}
		return &Object{Pairs: pairs}, nil
	}
	return NullValue, nil
}

func scalarToValue(s *token.Scalar) Value {
	switch s.Type() {
	case token.Null:
		return NullValue
	case token.Boolean:
		return Bool(s.Bytes[0] == 't')
	case token.Number:
		return numberFromScalar(s)
	case token.String:
		return String(s.ToString())
	default:
		return NullValue
	}
}

func numberFromScalar(s *token.Scalar) Value {
	if s.IsPlainNumber() {
		if n, ok := parseInt64(s.Bytes); ok {
			return Int(n)
		}
	}
	f, err := strconv.ParseFloat(string(s.Bytes), 64)
	if err != nil {
		f = 0
	}
	return Double{F: f, Raw: string(s.Bytes)}
}

func parseInt64(b []byte) (int64, bool) {
	neg := false
	i := 0
	if i < len(b) && b[i] == '-' {
		neg = true
		i++
	}
	if i == len(b) {
		return 0, false
	}
	var n int64
	for ; i < len(b); i++ {
		c := b[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		d := int64(c - '0')
		if n > (1<<63-1-d)/10 {
			return 0, false
		}
		n = n*10 + d
	}
	if neg {
		n = -n
	}
	return n, true
}


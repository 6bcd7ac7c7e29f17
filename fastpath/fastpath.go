// Package fastpath recognises a narrow catalogue of common filter shapes -
// field-chain extraction, select() with a literal comparison, batch
// object/array construction out of field chains, and the direct structural
// queries length/keys/keys_unsorted/type/has - and evaluates them straight
// off a decoded line's token.ReadStream via package iterator, without ever
// building a value.Value tree for the parts of the line the filter never
// looks at.
//
// Compile runs once per configured filter, outside the NDJSON hot loop.
// Program.Run runs once per input line; when it cannot settle the
// computation for a particular line without ambiguity (an escaped string
// that might equal an unescaped one once unescaped, a number written in two
// different but equal forms, ...) it returns ErrFallback and the caller
// falls back to decoding that one line into a value.Value and running it
// through the ordinary evaluator.
package fastpath

import (
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jqstream/jqstream/filter"
	"github.com/jqstream/jqstream/iterator"
	"github.com/jqstream/jqstream/token"
	"github.com/jqstream/jqstream/value"
)

// ErrFallback signals that Run could not definitively evaluate the program
// against this particular line; the caller must materialise the line and
// run the full evaluator instead.
var ErrFallback = errors.New("fastpath: fall back to full evaluation")

type stepKind int

const (
	stepField stepKind = iota
	stepIndex
	stepIterate
)

type step struct {
	kind stepKind
	name string
	idx  int
}

type kind int

const (
	kindFieldPath kind = iota
	kindSelectCompare
	kindLength
	kindType
	kindKeys
	kindHas
	kindBatchArray
	kindBatchObject
	kindSelectStringPred
	kindSelectStringPredField
)

// stringPred is one of the three string-matching builtins this package can
// settle without materialising a value.Value, mirroring the
// StringPred::Test/StartsWith/EndsWith/Contains split the original's
// NdjsonFastPath::SelectStringPred variant makes (minus Test, which needs a
// full regex engine and is left to the general evaluator).
type stringPred int

const (
	predStartsWith stringPred = iota
	predEndsWith
	predContains
)

// Program is a compiled fast-path pattern ready to run against successive
// decoded lines.
type Program struct {
	k       kind
	steps   []step
	op      filter.CompareOp
	lit     value.Value
	sorted  bool
	keys    []string
	multi   [][]step
	pred    stringPred
	predArg string
	outSteps []step
}

// Compile recognises f as one of the supported shapes. ok is false when f
// needs the general evaluator - the common case for anything beyond simple
// navigation, comparison against a literal, or structural introspection.
func Compile(f filter.Filter) (*Program, bool) {
	if steps, ok := compileSteps(f); ok {
		return &Program{k: kindFieldPath, steps: steps}, true
	}
	if sel, ok := f.(filter.Select); ok {
		if prog, ok := compileSelectCompare(sel); ok {
			return prog, true
		}
		if prog, ok := compileSelectStringPred(sel); ok {
			return prog, true
		}
	}
	if b, ok := f.(filter.Builtin); ok {
		if prog, ok := compileStructural(b, nil); ok {
			return prog, true
		}
	}
	if p, ok := f.(filter.Pipe); ok {
		if steps, ok := compileSteps(p.Left); ok {
			if b, ok := p.Right.(filter.Builtin); ok {
				if prog, ok := compileStructural(b, steps); ok {
					return prog, true
				}
			}
		}
		// select(.field | startswith/endswith/contains("...")) | .out.field,
		// grounded on ndjson.rs's detect_select_string_pred_fast_path,
		// which recognises the same select-then-project shape before falling
		// back to decoding the whole line.
		if sel, ok := p.Left.(filter.Select); ok {
			if steps, pred, arg, ok := tryFieldStringPred(sel.Cond); ok {
				if outSteps, ok := compileSteps(p.Right); ok {
					return &Program{k: kindSelectStringPredField, steps: steps, pred: pred, predArg: arg, outSteps: outSteps}, true
				}
			}
		}
	}
	if ac, ok := f.(filter.ArrayConstruct); ok && ac.Inner != nil {
		items := []filter.Filter{ac.Inner}
		if comma, ok := ac.Inner.(filter.Comma); ok {
			items = comma.Items
		}
		var all [][]step
		for _, item := range items {
			st, ok := compileSteps(item)
			if !ok {
				all = nil
				break
			}
			all = append(all, st)
		}
		if all != nil {
			return &Program{k: kindBatchArray, multi: all}, true
		}
	}
	if oc, ok := f.(filter.ObjectConstruct); ok && len(oc.Pairs) > 0 {
		var keys []string
		var all [][]step
		good := true
		for _, pair := range oc.Pairs {
			if pair.Key.Name == "" || pair.Val == nil {
				good = false
				break
			}
			st, ok := compileSteps(pair.Val)
			if !ok {
				good = false
				break
			}
			keys = append(keys, pair.Key.Name)
			all = append(all, st)
		}
		if good {
			return &Program{k: kindBatchObject, keys: keys, multi: all}, true
		}
	}
	return nil, false
}

func compileSelectCompare(sel filter.Select) (*Program, bool) {
	cmp, ok := sel.Cond.(filter.Compare)
	if !ok {
		return nil, false
	}
	if steps, ok := compileSteps(cmp.Left); ok {
		if lit, ok := cmp.Right.(filter.Literal); ok {
			return &Program{k: kindSelectCompare, steps: steps, op: cmp.Op, lit: lit.Value}, true
		}
	}
	if steps, ok := compileSteps(cmp.Right); ok {
		if lit, ok := cmp.Left.(filter.Literal); ok {
			return &Program{k: kindSelectCompare, steps: steps, op: flipOp(cmp.Op), lit: lit.Value}, true
		}
	}
	return nil, false
}

func flipOp(op filter.CompareOp) filter.CompareOp {
	switch op {
	case filter.Lt:
		return filter.Gt
	case filter.Le:
		return filter.Ge
	case filter.Gt:
		return filter.Lt
	case filter.Ge:
		return filter.Le
	default:
		return op
	}
}

// compileSelectStringPred recognises the bare
// select(.field | startswith/endswith/contains("arg")) shape, ndjson.rs's
// NdjsonFastPath::SelectStringPred.
func compileSelectStringPred(sel filter.Select) (*Program, bool) {
	steps, pred, arg, ok := tryFieldStringPred(sel.Cond)
	if !ok {
		return nil, false
	}
	return &Program{k: kindSelectStringPred, steps: steps, pred: pred, predArg: arg}, true
}

// tryFieldStringPred recognises `<field-chain> | startswith("arg")` (and
// endswith/contains), the pipe shape ndjson.rs's try_field_string_pred
// matches before handing off to evaluate_string_predicate.
func tryFieldStringPred(f filter.Filter) (steps []step, pred stringPred, arg string, ok bool) {
	p, isPipe := f.(filter.Pipe)
	if !isPipe {
		return nil, 0, "", false
	}
	steps, ok = compileSteps(p.Left)
	if !ok {
		return nil, 0, "", false
	}
	b, isBuiltin := p.Right.(filter.Builtin)
	if !isBuiltin || len(b.Args) != 1 {
		return nil, 0, "", false
	}
	lit, isLit := b.Args[0].(filter.Literal)
	if !isLit {
		return nil, 0, "", false
	}
	litStr, isStr := lit.Value.(value.String)
	if !isStr {
		return nil, 0, "", false
	}
	switch b.Name {
	case "startswith":
		pred = predStartsWith
	case "endswith":
		pred = predEndsWith
	case "contains":
		pred = predContains
	default:
		return nil, 0, "", false
	}
	return steps, pred, string(litStr), true
}

func compileStructural(b filter.Builtin, steps []step) (*Program, bool) {
	switch {
	case b.Name == "length" && len(b.Args) == 0:
		return &Program{k: kindLength, steps: steps}, true
	case b.Name == "type" && len(b.Args) == 0:
		return &Program{k: kindType, steps: steps}, true
	case b.Name == "keys" && len(b.Args) == 0:
		return &Program{k: kindKeys, steps: steps, sorted: true}, true
	case b.Name == "keys_unsorted" && len(b.Args) == 0:
		return &Program{k: kindKeys, steps: steps}, true
	case b.Name == "has" && len(b.Args) == 1:
		if lit, ok := b.Args[0].(filter.Literal); ok {
			return &Program{k: kindHas, steps: steps, lit: lit.Value}, true
		}
	}
	return nil, false
}

// compileSteps recognises Identity/Field/Index(literal int)/Iterate chains
// composed left-to-right with Pipe, e.g. `.a.b[0][]`.
func compileSteps(f filter.Filter) ([]step, bool) {
	switch x := f.(type) {
	case filter.Identity:
		return nil, true
	case filter.Field:
		return []step{{kind: stepField, name: x.Name}}, true
	case filter.Index:
		lit, ok := x.Expr.(filter.Literal)
		if !ok {
			return nil, false
		}
		i, ok := lit.Value.(value.Int)
		if !ok {
			return nil, false
		}
		return []step{{kind: stepIndex, idx: int(i)}}, true
	case filter.Iterate:
		return []step{{kind: stepIterate}}, true
	case filter.Pipe:
		left, ok := compileSteps(x.Left)
		if !ok {
			return nil, false
		}
		right, ok := compileSteps(x.Right)
		if !ok {
			return nil, false
		}
		return append(left, right...), true
	default:
		return nil, false
	}
}

// Run evaluates the compiled program against one decoded line, emitting
// materialised output values. root must not have been advanced yet.
func (p *Program) Run(root iterator.Value, emit func(value.Value) error) error {
	switch p.k {
	case kindFieldPath:
		return navigate(root, p.steps, func(v iterator.Value) error {
			out, err := value.FromIteratorValue(v)
			if err != nil {
				return err
			}
			return emit(out)
		})
	case kindSelectCompare:
		pass, err := evalSelect(root, p.steps, p.op, p.lit)
		if err != nil {
			return err
		}
		if !pass {
			return nil
		}
		out, err := value.FromIteratorValue(root)
		if err != nil {
			return err
		}
		return emit(out)
	case kindLength, kindType, kindKeys, kindHas:
		var result error
		err := navigate(root, p.steps, func(v iterator.Value) error {
			out, err := structuralResult(p, v)
			if err != nil {
				result = err
				return nil
			}
			return emit(out)
		})
		if result != nil {
			return result
		}
		return err
	case kindSelectStringPred:
		pass, err := evalStringPred(root, p.steps, p.pred, p.predArg)
		if err != nil {
			return err
		}
		if !pass {
			return nil
		}
		out, err := value.FromIteratorValue(root)
		if err != nil {
			return err
		}
		return emit(out)
	case kindSelectStringPredField:
		pass, err := evalStringPred(root, p.steps, p.pred, p.predArg)
		if err != nil {
			return err
		}
		if !pass {
			return nil
		}
		out, err := firstMaterialised(root, p.outSteps)
		if err != nil {
			return err
		}
		return emit(out)
	case kindBatchArray:
		items := make([]value.Value, len(p.multi))
		for i, steps := range p.multi {
			v, err := firstMaterialised(root, steps)
			if err != nil {
				return err
			}
			items[i] = v
		}
		return emit(value.NewArray(items))
	case kindBatchObject:
		o := value.EmptyObject()
		for i, steps := range p.multi {
			v, err := firstMaterialised(root, steps)
			if err != nil {
				return err
			}
			o = o.Set(p.keys[i], v)
		}
		return emit(o)
	default:
		return ErrFallback
	}
}

func firstMaterialised(root iterator.Value, steps []step) (value.Value, error) {
	clone, detach := root.Clone()
	if detach != nil {
		defer detach()
	}
	var out value.Value
	found := false
	err := navigate(clone, steps, func(v iterator.Value) error {
		if found {
			return nil
		}
		found = true
		m, err := value.FromIteratorValue(v)
		if err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return value.NullValue, nil
	}
	return out, nil
}

// navigate walks steps against v, invoking emit once per reachable leaf
// (stepIterate can fan out to more than one). A missing object field or
// out-of-range array index yields a single null, matching jq's getpath
// semantics for plain field/index access.
func navigate(v iterator.Value, steps []step, emit func(iterator.Value) error) error {
	if len(steps) == 0 {
		return emit(v)
	}
	s := steps[0]
	rest := steps[1:]
	switch s.kind {
	case stepField:
		obj, ok := v.AsObject()
		if !ok {
			if _, isArr := v.AsArray(); isArr {
				return ErrFallback
			}
			return ErrFallback
		}
		for obj.Advance() {
			k, val := obj.CurrentKeyVal()
			if k.ToString() == s.name {
				err := navigate(val, rest, emit)
				obj.Discard()
				return err
			}
		}
		return navigate(nullValue(), rest, emit)
	case stepIndex:
		arr, ok := v.AsArray()
		if !ok {
			return ErrFallback
		}
		if s.idx < 0 {
			return ErrFallback
		}
		i := 0
		for arr.Advance() {
			if i == s.idx {
				err := navigate(arr.CurrentValue(), rest, emit)
				arr.Discard()
				return err
			}
			i++
		}
		return navigate(nullValue(), rest, emit)
	case stepIterate:
		if arr, ok := v.AsArray(); ok {
			for arr.Advance() {
				if err := navigate(arr.CurrentValue(), rest, emit); err != nil {
					return err
				}
			}
			return nil
		}
		if obj, ok := v.AsObject(); ok {
			for obj.Advance() {
				_, val := obj.CurrentKeyVal()
				if err := navigate(val, rest, emit); err != nil {
					return err
				}
			}
			return nil
		}
		return ErrFallback
	default:
		return ErrFallback
	}
}

func nullValue() iterator.Value {
	return (*iterator.Scalar)(token.NullScalar)
}

func structuralResult(p *Program, v iterator.Value) (value.Value, error) {
	switch p.k {
	case kindLength:
		return lengthOf(v)
	case kindType:
		return value.String(typeNameOf(v)), nil
	case kindKeys:
		return keysOf(v, p.sorted)
	case kindHas:
		return hasOf(v, p.lit)
	default:
		return nil, ErrFallback
	}
}

func lengthOf(v iterator.Value) (value.Value, error) {
	if s, ok := v.AsScalar(); ok {
		switch s.Type() {
		case token.Null:
			return value.Int(0), nil
		case token.String:
			return value.Int(utf8.RuneCountInString(s.ToString())), nil
		case token.Number:
			goVal, err := value.FromIteratorValue((*iterator.Scalar)(s))
			if err != nil {
				return nil, err
			}
			f, _ := value.AsFloat64(goVal)
			if f < 0 {
				f = -f
			}
			return value.NewDouble(f), nil
		default:
			return nil, ErrFallback
		}
	}
	if arr, ok := v.AsArray(); ok {
		n := 0
		for arr.Advance() {
			n++
		}
		return value.Int(n), nil
	}
	if obj, ok := v.AsObject(); ok {
		n := 0
		for obj.Advance() {
			n++
		}
		return value.Int(n), nil
	}
	return nil, ErrFallback
}

func typeNameOf(v iterator.Value) string {
	if s, ok := v.AsScalar(); ok {
		switch s.Type() {
		case token.Null:
			return "null"
		case token.Boolean:
			return "boolean"
		case token.Number:
			return "number"
		case token.String:
			return "string"
		}
	}
	if _, ok := v.AsArray(); ok {
		return "array"
	}
	return "object"
}

func keysOf(v iterator.Value, sorted bool) (value.Value, error) {
	obj, ok := v.AsObject()
	if !ok {
		return nil, ErrFallback
	}
	var keys []string
	for obj.Advance() {
		k, _ := obj.CurrentKeyVal()
		keys = append(keys, k.ToString())
	}
	if sorted {
		sort.Strings(keys)
	}
	items := make([]value.Value, len(keys))
	for i, k := range keys {
		items[i] = value.String(k)
	}
	return value.NewArray(items), nil
}

func hasOf(v iterator.Value, lit value.Value) (value.Value, error) {
	if obj, ok := v.AsObject(); ok {
		key, ok := lit.(value.String)
		if !ok {
			return nil, ErrFallback
		}
		for obj.Advance() {
			k, _ := obj.CurrentKeyVal()
			if k.ToString() == string(key) {
				obj.Discard()
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	}
	if arr, ok := v.AsArray(); ok {
		idx, ok := lit.(value.Int)
		if !ok {
			return nil, ErrFallback
		}
		n := 0
		for arr.Advance() {
			n++
		}
		return value.Bool(int64(idx) >= 0 && int64(idx) < int64(n)), nil
	}
	return nil, ErrFallback
}

// evalSelect navigates to the field chain's leaf scalar and compares it
// against lit using the definitive-comparison rule: a difference in the
// two values' JSON type is decidable from jq's fixed type ordering alone,
// a same-type comparison of two plain numbers or two unescaped strings or
// two booleans is decidable byte-for-byte, and anything else (an escaped
// string, a number written with an exponent or a decimal point, a compound
// value) falls back to full evaluation for that one line.
func evalSelect(root iterator.Value, steps []step, op filter.CompareOp, lit value.Value) (bool, error) {
	var pass bool
	var fellBack bool
	err := navigate(root, steps, func(v iterator.Value) error {
		s, ok := v.AsScalar()
		if !ok {
			fellBack = true
			return nil
		}
		p, ok := definitiveCompare(s, lit, op)
		if !ok {
			fellBack = true
			return nil
		}
		pass = p
		return nil
	})
	if err != nil {
		return false, err
	}
	if fellBack {
		return false, ErrFallback
	}
	return pass, nil
}

// evalStringPred navigates to the field chain's leaf scalar and applies pred
// to it directly off the raw bytes, the same no-unescape-if-you-don't-have-to
// shortcut ndjson.rs's evaluate_string_predicate takes: an unescaped string
// scalar is compared byte-for-byte; anything else (an escaped string, a
// non-string scalar, a compound value) falls back to full evaluation.
func evalStringPred(root iterator.Value, steps []step, pred stringPred, arg string) (bool, error) {
	var pass bool
	var fellBack bool
	err := navigate(root, steps, func(v iterator.Value) error {
		s, ok := v.AsScalar()
		if !ok || s.Type() != token.String || !s.IsUnescaped() {
			fellBack = true
			return nil
		}
		str := s.ToString()
		switch pred {
		case predStartsWith:
			pass = strings.HasPrefix(str, arg)
		case predEndsWith:
			pass = strings.HasSuffix(str, arg)
		case predContains:
			pass = strings.Contains(str, arg)
		default:
			fellBack = true
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if fellBack {
		return false, ErrFallback
	}
	return pass, nil
}

func typeOrder(k token.ScalarType) int {
	switch k {
	case token.Null:
		return 0
	case token.Boolean:
		return 1
	case token.Number:
		return 2
	case token.String:
		return 3
	}
	return 4
}

func litTypeOrder(v value.Value) (int, bool) {
	switch v.(type) {
	case value.Null:
		return 0, true
	case value.Bool:
		return 1, true
	case value.Int, value.Double:
		return 2, true
	case value.String:
		return 3, true
	default:
		return 0, false
	}
}

func applyOp(cmp int, op filter.CompareOp) bool {
	switch op {
	case filter.Eq:
		return cmp == 0
	case filter.Ne:
		return cmp != 0
	case filter.Lt:
		return cmp < 0
	case filter.Le:
		return cmp <= 0
	case filter.Gt:
		return cmp > 0
	case filter.Ge:
		return cmp >= 0
	default:
		return false
	}
}

func definitiveCompare(s *token.Scalar, lit value.Value, op filter.CompareOp) (bool, bool) {
	litOrder, ok := litTypeOrder(lit)
	if !ok {
		return false, false
	}
	sOrder := typeOrder(s.Type())
	if sOrder != litOrder {
		cmp := sOrder - litOrder
		return applyOp(cmp, op), true
	}
	switch s.Type() {
	case token.Null:
		return applyOp(0, op), true
	case token.Boolean:
		lb, ok := lit.(value.Bool)
		if !ok {
			return false, false
		}
		a, b := s.Bytes[0] == 't', bool(lb)
		cmp := 0
		if a != b {
			if b {
				cmp = -1
			} else {
				cmp = 1
			}
		}
		return applyOp(cmp, op), true
	case token.Number:
		if !s.IsPlainNumber() {
			return false, false
		}
		li, ok := lit.(value.Int)
		if !ok {
			return false, false
		}
		n, ok := parsePlainInt(s.Bytes)
		if !ok {
			return false, false
		}
		cmp := 0
		if n < int64(li) {
			cmp = -1
		} else if n > int64(li) {
			cmp = 1
		}
		return applyOp(cmp, op), true
	case token.String:
		if !s.IsUnescaped() {
			return false, false
		}
		ls, ok := lit.(value.String)
		if !ok {
			return false, false
		}
		a, b := s.ToString(), string(ls)
		cmp := 0
		if a < b {
			cmp = -1
		} else if a > b {
			cmp = 1
		}
		return applyOp(cmp, op), true
	}
	return false, false
}

func parsePlainInt(b []byte) (int64, bool) {
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
		n = n*10 + int64(c-'0')
	}
	if neg {
		n = -n
	}
	return n, true
}

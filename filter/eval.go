package filter

import (
	"fmt"

	"github.com/jqstream/jqstream/value"
)

// Emit is the generator continuation: invoked once per output value, in
// order. Returning a non-nil error aborts the remaining generation - Pipe
// relies on this to let the right side's failure (or a Break unwinding
// through it) stop the left side from producing further values.
type Emit func(value.Value) error

// EvalError wraps a recoverable evaluation failure (type error, domain
// error, division by zero, ...). It is what LAST_ERROR actually holds once
// surfaced as a Go error; Try and the postfix `?` catch it, and Alternative
// treats one raised by its left side as no output.
type EvalError struct {
	Val   value.Value
	Msg   string
}

func (e *EvalError) Error() string { return e.Msg }

func newEvalError(format string, args ...any) *EvalError {
	msg := fmt.Sprintf(format, args...)
	return &EvalError{Val: value.String(msg), Msg: msg}
}

// ErrStopIteration is a sentinel an Emit callback can return to stop its
// generator early without it being mistaken for a catchable EvalError or a
// Label-bound break - used by builtins such as limit/isempty/first(f) that
// only need a generator's first N outputs.
var ErrStopIteration = fmt.Errorf("filter: stop iteration")

// breakSignal unwinds through Eval calls until the matching Label catches
// it; it must never be swallowed by Try, matching jq's `label $out | ...
// break $out` semantics (break is not a catchable error).
type breakSignal struct{ name string }

func (b *breakSignal) Error() string { return "break $" + b.name }

// maxLoopIterations bounds how many items a single reduce or foreach
// folds over. until, while, repeat and recurse(f) are not registered as
// builtins, so no loop of theirs is bounded here.
const maxLoopIterations = 1_000_000

// maxStructuralDepth bounds how deep bare recurse (`..`, recurse/0)
// descends. walk does not check it; setpath/delpath use package value's
// own maxPathDepth.
const maxStructuralDepth = 1000

// Evaluator carries the state that must NOT be shared between goroutines:
// LastError is jq's LAST_ERROR slot. The NDJSON pipeline gives each worker
// its own Evaluator instead of relying on any form of goroutine-local
// storage, which Go doesn't provide natively.
type Evaluator struct {
	LastError value.Value
}

func NewEvaluator() *Evaluator { return &Evaluator{} }

// Eval invokes emit zero or more times with filter's outputs for input
// under env, in order. A non-nil returned error is either an *EvalError
// that propagated uncaught past every enclosing Try, or a *breakSignal
// unwinding to its Label.
func (ev *Evaluator) Eval(f Filter, input value.Value, env *Env, emit Emit) error {
	switch x := f.(type) {
	case Identity:
		return emit(input)

	case Field:
		return ev.evalField(x, input, emit)

	case Index:
		return ev.Eval(x.Expr, input, env, func(idx value.Value) error {
			v, err := indexValue(input, idx)
			if err != nil {
				ev.LastError = value.String(err.Error())
				return &EvalError{Val: ev.LastError, Msg: err.Error()}
			}
			return emit(v)
		})

	case Slice:
		return ev.evalSlice(x, input, env, emit)

	case Iterate:
		return ev.evalIterate(input, emit)

	case Pipe:
		return ev.Eval(x.Left, input, env, func(v value.Value) error {
			return ev.Eval(x.Right, v, env, emit)
		})

	case Comma:
		for _, item := range x.Items {
			if err := ev.Eval(item, input, env, emit); err != nil {
				return err
			}
		}
		return nil

	case Literal:
		return emit(x.Value)

	case ObjectConstruct:
		return ev.evalObjectConstruct(x, input, env, emit)

	case ArrayConstruct:
		var items []value.Value
		if x.Inner != nil {
			if err := ev.Eval(x.Inner, input, env, func(v value.Value) error {
				items = append(items, v)
				return nil
			}); err != nil {
				return err
			}
		}
		return emit(value.NewArray(items))

	case Select:
		return ev.Eval(x.Cond, input, env, func(c value.Value) error {
			if value.Truthy(c) {
				return emit(input)
			}
			return nil
		})

	case Compare:
		return ev.evalCompare(x, input, env, emit)

	case Arith:
		return ev.evalArith(x, input, env, emit)

	case Bool:
		return ev.evalBool(x, input, env, emit)

	case Not:
		return ev.Eval(x.Inner, input, env, func(v value.Value) error {
			return emit(value.Bool(!value.Truthy(v)))
		})

	case Neg:
		return ev.Eval(x.Inner, input, env, func(v value.Value) error {
			switch n := v.(type) {
			case value.Int:
				return emit(value.Int(-n))
			case value.Double:
				return emit(value.NewDouble(-n.F))
			default:
				return ev.fail(fmt.Sprintf("%s cannot be negated", v.TypeName()))
			}
		})

	case IfThenElse:
		return ev.Eval(x.Cond, input, env, func(c value.Value) error {
			if value.Truthy(c) {
				return ev.Eval(x.Then, input, env, emit)
			}
			if x.Else != nil {
				return ev.Eval(x.Else, input, env, emit)
			}
			return emit(input)
		})

	case Alternative:
		return ev.evalAlternative(x, input, env, emit)

	case Try:
		return ev.evalTry(x, input, env, emit)

	case Recurse:
		return ev.recurseAll(input, 0, emit)

	case StringInterp:
		return ev.evalStringInterp(x, input, env, emit)

	case Var:
		v, ok := env.GetVar(x.Name)
		if !ok {
			return ev.fail("$%s is not defined", x.Name)
		}
		return emit(v)

	case Builtin:
		return ev.evalBuiltin(x, input, env, emit)

	case FuncCall:
		return ev.evalFuncCall(x, input, env, emit)

	case Def:
		fn := UserFunc{Params: x.Params, Body: x.Body}
		newEnv := env.BindFunc(x.Name, len(x.Params), fn)
		// a def's body can recurse: rebuild the closure to point at the
		// environment that includes itself.
		fn.Env = newEnv
		newEnv = env.BindFunc(x.Name, len(x.Params), fn)
		return ev.Eval(x.Rest, input, newEnv, emit)

	case Bind:
		return ev.evalBind(x, input, env, emit)

	case Reduce:
		return ev.evalReduce(x, input, env, emit)

	case Foreach:
		return ev.evalForeach(x, input, env, emit)

	case Label:
		err := ev.Eval(x.Body, input, env, emit)
		if brk, ok := err.(*breakSignal); ok && brk.name == x.Name {
			return nil
		}
		return err

	case Break:
		return &breakSignal{name: x.Name}

	default:
		panic(fmt.Sprintf("filter: unknown node %T", f))
	}
}

func (ev *Evaluator) fail(format string, args ...any) error {
	e := newEvalError(format, args...)
	ev.LastError = e.Val
	return e
}

func (ev *Evaluator) evalField(f Field, input value.Value, emit Emit) error {
	switch v := input.(type) {
	case value.Null:
		return emit(value.NullValue)
	case *value.Object:
		if val, ok := v.Get(f.Name); ok {
			return emit(val)
		}
		return emit(value.NullValue)
	default:
		return ev.fail("cannot index %s with %q", input.TypeName(), f.Name)
	}
}

func indexValue(input, idx value.Value) (value.Value, error) {
	if _, ok := input.(value.Null); ok {
		return value.NullValue, nil
	}
	switch i := idx.(type) {
	case value.String:
		o, ok := input.(*value.Object)
		if !ok {
			return nil, fmt.Errorf("cannot index %s with %q", input.TypeName(), string(i))
		}
		if v, ok := o.Get(string(i)); ok {
			return v, nil
		}
		return value.NullValue, nil
	case value.Int, value.Double:
		a, ok := input.(*value.Array)
		if !ok {
			return nil, fmt.Errorf("cannot index %s with number", input.TypeName())
		}
		n, _ := value.AsFloat64(i)
		pos := int(n)
		if pos < 0 {
			pos += len(a.Items)
		}
		if pos < 0 || pos >= len(a.Items) {
			return value.NullValue, nil
		}
		return a.Items[pos], nil
	default:
		return nil, fmt.Errorf("cannot index %s with %s", input.TypeName(), idx.TypeName())
	}
}

func (ev *Evaluator) evalSlice(s Slice, input value.Value, env *Env, emit Emit) error {
	fromVals := []value.Value{nil}
	toVals := []value.Value{nil}
	if s.From != nil {
		fromVals = nil
		if err := ev.Eval(s.From, input, env, func(v value.Value) error {
			fromVals = append(fromVals, v)
			return nil
		}); err != nil {
			return err
		}
	}
	if s.To != nil {
		toVals = nil
		if err := ev.Eval(s.To, input, env, func(v value.Value) error {
			toVals = append(toVals, v)
			return nil
		}); err != nil {
			return err
		}
	}
	for _, fv := range fromVals {
		for _, tv := range toVals {
			result, err := sliceValue(input, fv, tv)
			if err != nil {
				if e2 := ev.fail("%s", err.Error()); e2 != nil {
					return e2
				}
				continue
			}
			if err := emit(result); err != nil {
				return err
			}
		}
	}
	return nil
}

func sliceValue(input, from, to value.Value) (value.Value, error) {
	switch v := input.(type) {
	case value.Null:
		return value.NullValue, nil
	case *value.Array:
		lo, hi := resolveSliceBounds(len(v.Items), from, to)
		return value.NewArray(append([]value.Value{}, v.Items[lo:hi]...)), nil
	case value.String:
		runes := []rune(string(v))
		lo, hi := resolveSliceBounds(len(runes), from, to)
		return value.String(string(runes[lo:hi])), nil
	default:
		return nil, fmt.Errorf("cannot index %s with object", input.TypeName())
	}
}

func resolveSliceBounds(length int, from, to value.Value) (int, int) {
	lo, hi := 0, length
	if from != nil {
		if f, ok := value.AsFloat64(from); ok {
			lo = clampIndex(int(f), length)
		}
	}
	if to != nil {
		if f, ok := value.AsFloat64(to); ok {
			hi = clampIndex(int(f), length)
		}
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func clampIndex(i, length int) int {
	if i < 0 {
		i += length
	}
	if i < 0 {
		return 0
	}
	if i > length {
		return length
	}
	return i
}

func (ev *Evaluator) evalIterate(input value.Value, emit Emit) error {
	switch v := input.(type) {
	case *value.Array:
		for _, item := range v.Items {
			if err := emit(item); err != nil {
				return err
			}
		}
		return nil
	case *value.Object:
		for _, p := range v.Pairs {
			if err := emit(p.Value); err != nil {
				return err
			}
		}
		return nil
	case value.Null:
		return nil
	default:
		return ev.fail("cannot iterate over %s", input.TypeName())
	}
}

func (ev *Evaluator) evalObjectConstruct(o ObjectConstruct, input value.Value, env *Env, emit Emit) error {
	return ev.buildObject(o.Pairs, 0, input, env, value.EmptyObject(), emit)
}

func (ev *Evaluator) buildObject(pairs []ObjectPair, i int, input value.Value, env *Env, acc *value.Object, emit Emit) error {
	if i == len(pairs) {
		return emit(acc)
	}
	pair := pairs[i]
	keyExpr := pair.Key.KeyExpr
	if keyExpr == nil {
		keyExpr = Literal{Value: value.String(resolvedKeyName(pair.Key))}
	}
	return ev.Eval(keyExpr, input, env, func(kv value.Value) error {
		keyStr, ok := kv.(value.String)
		if !ok {
			return ev.fail("object key must be a string")
		}
		valExpr := pair.Val
		if valExpr == nil {
			valExpr = defaultValueExpr(pair.Key)
		}
		return ev.Eval(valExpr, input, env, func(vv value.Value) error {
			return ev.buildObject(pairs, i+1, input, env, acc.Set(string(keyStr), vv), emit)
		})
	})
}

func resolvedKeyName(k ObjectKey) string {
	if k.Name != "" {
		return k.Name
	}
	if k.VarName != "" {
		return k.VarName
	}
	return k.FieldName
}

func defaultValueExpr(k ObjectKey) Filter {
	if k.VarName != "" {
		return Var{Name: k.VarName}
	}
	return Field{Name: resolvedKeyName(k)}
}

func (ev *Evaluator) evalCompare(c Compare, input value.Value, env *Env, emit Emit) error {
	return ev.Eval(c.Left, input, env, func(l value.Value) error {
		return ev.Eval(c.Right, input, env, func(r value.Value) error {
			ord := value.Compare(l, r)
			var result bool
			switch c.Op {
			case Eq:
				result = value.Equal(l, r)
			case Ne:
				result = !value.Equal(l, r)
			case Lt:
				result = ord == value.Less
			case Le:
				result = ord != value.Greater
			case Gt:
				result = ord == value.Greater
			case Ge:
				result = ord != value.Less
			}
			return emit(value.Bool(result))
		})
	})
}

func (ev *Evaluator) evalArith(a Arith, input value.Value, env *Env, emit Emit) error {
	return ev.Eval(a.Left, input, env, func(l value.Value) error {
		return ev.Eval(a.Right, input, env, func(r value.Value) error {
			result, err := value.Arith(l, a.Op, r)
			if err != nil {
				return ev.fail("%s", err.Error())
			}
			return emit(result)
		})
	})
}

func (ev *Evaluator) evalBool(b Bool, input value.Value, env *Env, emit Emit) error {
	return ev.Eval(b.Left, input, env, func(l value.Value) error {
		lt := value.Truthy(l)
		if b.Op == And && !lt {
			return emit(value.Bool(false))
		}
		if b.Op == Or && lt {
			return emit(value.Bool(true))
		}
		return ev.Eval(b.Right, input, env, func(r value.Value) error {
			return emit(value.Bool(value.Truthy(r)))
		})
	})
}

func (ev *Evaluator) evalAlternative(a Alternative, input value.Value, env *Env, emit Emit) error {
	any := false
	err := ev.Eval(a.Left, input, env, func(v value.Value) error {
		if value.Truthy(v) {
			any = true
			return emit(v)
		}
		return nil
	})
	if err != nil {
		if _, ok := err.(*EvalError); !ok {
			return err
		}
		// a recoverable error on the left is treated like "no output"
	}
	if any {
		return nil
	}
	return ev.Eval(a.Right, input, env, emit)
}

func (ev *Evaluator) evalTry(t Try, input value.Value, env *Env, emit Emit) error {
	err := ev.Eval(t.Inner, input, env, emit)
	if err == nil {
		return nil
	}
	evalErr, ok := err.(*EvalError)
	if !ok {
		return err // break signals are not catchable
	}
	ev.LastError = nil
	if t.Catch != nil {
		return ev.Eval(t.Catch, evalErr.Val, env, emit)
	}
	return nil
}

func (ev *Evaluator) recurseAll(v value.Value, depth int, emit Emit) error {
	if depth > maxStructuralDepth {
		return ev.fail("recurse: structure too deep")
	}
	if err := emit(v); err != nil {
		return err
	}
	switch x := v.(type) {
	case *value.Array:
		for _, item := range x.Items {
			if err := ev.recurseAll(item, depth+1, emit); err != nil {
				return err
			}
		}
	case *value.Object:
		for _, p := range x.Pairs {
			if err := ev.recurseAll(p.Value, depth+1, emit); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ev *Evaluator) evalStringInterp(s StringInterp, input value.Value, env *Env, emit Emit) error {
	return ev.buildString(s, 0, input, env, "", emit)
}

func (ev *Evaluator) buildString(s StringInterp, i int, input value.Value, env *Env, acc string, emit Emit) error {
	if i == len(s.Parts) {
		return emit(value.String(acc))
	}
	part := s.Parts[i]
	if !part.IsExpr {
		return ev.buildString(s, i+1, input, env, acc+part.Literal, emit)
	}
	return ev.Eval(part.Expr, input, env, func(v value.Value) error {
		text, err := ev.interpText(v, s.Format)
		if err != nil {
			return ev.fail("%s", err.Error())
		}
		return ev.buildString(s, i+1, input, env, acc+text, emit)
	})
}

func (ev *Evaluator) interpText(v value.Value, format string) (string, error) {
	if format == "" || format == "text" {
		if s, ok := v.(value.String); ok {
			return string(s), nil
		}
		return v.String(), nil
	}
	return applyFormat(format, v)
}

func (ev *Evaluator) evalFuncCall(fc FuncCall, input value.Value, env *Env, emit Emit) error {
	fn, ok := env.GetFunc(fc.Name, len(fc.Args))
	if !ok {
		return ev.fail("%s/%d is not defined", fc.Name, len(fc.Args))
	}
	return ev.bindArgs(fn, fc.Args, 0, input, env, fn.Env, emit)
}

// bindArgs binds each actual argument filter, in the *calling* Env, to the
// corresponding formal parameter in the function's closure Env, then
// evaluates the body. Filter-valued parameters (non-$ names) are bound as
// a zero-arg function in the closure so each reference re-evaluates them
// against the body's current input (jq's call-by-name semantics);
// $-prefixed parameters are bound as a plain value, evaluated once.
func (ev *Evaluator) bindArgs(fn UserFunc, args []Filter, i int, callInput value.Value, callEnv *Env, bodyEnv *Env, emit Emit) error {
	if i == len(fn.Params) {
		return ev.Eval(fn.Body, callInput, bodyEnv, emit)
	}
	param := fn.Params[i]
	argExpr := args[i]
	if len(param) > 0 && param[0] == '$' {
		return ev.Eval(argExpr, callInput, callEnv, func(v value.Value) error {
			return ev.bindArgs(fn, args, i+1, callInput, callEnv, bodyEnv.BindVar(param[1:], v), emit)
		})
	}
	closureFn := UserFunc{Params: nil, Body: argExpr, Env: callEnv}
	return ev.bindArgs(fn, args, i+1, callInput, callEnv, bodyEnv.BindFunc(param, 0, closureFn), emit)
}

func (ev *Evaluator) evalBind(b Bind, input value.Value, env *Env, emit Emit) error {
	return ev.Eval(b.Source, input, env, func(v value.Value) error {
		newEnv := env
		if len(b.Patterns) == 1 {
			newEnv = newEnv.BindVar(b.Patterns[0], v)
		}
		return ev.Eval(b.Rest, input, newEnv, emit)
	})
}

func (ev *Evaluator) evalReduce(r Reduce, input value.Value, env *Env, emit Emit) error {
	var acc value.Value
	gotInit := false
	if err := ev.Eval(r.Init, input, env, func(v value.Value) error {
		if !gotInit {
			acc = v
			gotInit = true
		}
		return nil
	}); err != nil {
		return err
	}
	iterations := 0
	err := ev.Eval(r.Source, input, env, func(item value.Value) error {
		iterations++
		if iterations > maxLoopIterations {
			return ev.fail("reduce: too many iterations")
		}
		itemEnv := env.BindVar(r.Var, item)
		var next value.Value
		got := false
		if err := ev.Eval(r.Update, acc, itemEnv, func(v value.Value) error {
			next = v
			got = true
			return nil
		}); err != nil {
			return err
		}
		if got {
			acc = next
		} else {
			acc = value.NullValue
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !gotInit {
		acc = value.NullValue
	}
	return emit(acc)
}

func (ev *Evaluator) evalForeach(f Foreach, input value.Value, env *Env, emit Emit) error {
	var acc value.Value
	if err := ev.Eval(f.Init, input, env, func(v value.Value) error {
		acc = v
		return nil
	}); err != nil {
		return err
	}
	iterations := 0
	return ev.Eval(f.Source, input, env, func(item value.Value) error {
		iterations++
		if iterations > maxLoopIterations {
			return ev.fail("foreach: too many iterations")
		}
		itemEnv := env.BindVar(f.Var, item)
		return ev.Eval(f.Update, acc, itemEnv, func(v value.Value) error {
			acc = v
			extractExpr := f.Extract
			if extractExpr == nil {
				return emit(v)
			}
			return ev.Eval(extractExpr, v, itemEnv, emit)
		})
	})
}

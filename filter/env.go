package filter

import "github.com/jqstream/jqstream/value"

// UserFunc is a closure over a def: the parameter list, body, and the
// Env the function was defined in (not the Env it's called from) - the
// lexical-scope half of jq's function semantics.
type UserFunc struct {
	Params []string
	Body   Filter
	Env    *Env
}

type funcKey struct {
	name  string
	arity int
}

// Env is a persistent cons-list of scope frames. Every mutator (BindVar,
// BindFunc) returns a new *Env and leaves the receiver untouched, so a
// closure that captured an *Env before a later bind still sees the
// original bindings - this is what makes `def` lexically scoped.
type Env struct {
	parent   *Env
	vars     map[string]value.Value
	funcs    map[funcKey]UserFunc
	constant bool
}

// Empty returns an Env with no bindings, the root of every evaluation.
func Empty() *Env { return nil }

// BindVar returns a new Env with name bound to v, shadowing any outer
// binding of the same name.
func (e *Env) BindVar(name string, v value.Value) *Env {
	return &Env{parent: e, vars: map[string]value.Value{name: v}}
}

// BindConst is like BindVar but marks the frame as constant: IsEmpty
// ignores constant frames when deciding whether the pipeline's
// parallelism gate may fire. It's meant for read-only globals fixed
// before any input is processed, such as $ENV, which are safe to share
// across concurrently-running chunk evaluators.
func (e *Env) BindConst(name string, v value.Value) *Env {
	return &Env{parent: e, vars: map[string]value.Value{name: v}, constant: true}
}

// BindFunc returns a new Env with (name, arity) bound to fn.
func (e *Env) BindFunc(name string, arity int, fn UserFunc) *Env {
	return &Env{parent: e, funcs: map[funcKey]UserFunc{{name, arity}: fn}}
}

// GetVar walks frames from most to least recent looking for name.
func (e *Env) GetVar(name string) (value.Value, bool) {
	for f := e; f != nil; f = f.parent {
		if f.vars != nil {
			if v, ok := f.vars[name]; ok {
				return v, true
			}
		}
	}
	return nil, false
}

// GetFunc walks frames from most to least recent looking for
// (name, arity).
func (e *Env) GetFunc(name string, arity int) (UserFunc, bool) {
	for f := e; f != nil; f = f.parent {
		if f.funcs != nil {
			if fn, ok := f.funcs[funcKey{name, arity}]; ok {
				return fn, true
			}
		}
	}
	return UserFunc{}, false
}

// IsEmpty reports whether e carries no bindings other than constant ones
// (see BindConst) - used by the NDJSON pipeline's parallelism gate, which
// requires the filter to close over no caller-bound variables or
// functions (see fastpath and pipeline packages). A bound $ENV alone
// does not disqualify a run from parallel evaluation.
func (e *Env) IsEmpty() bool {
	for f := e; f != nil; f = f.parent {
		if !f.constant {
			return false
		}
	}
	return true
}

// Package builtins implements jq's standard library of named filters
// (C5): one file per category from the specification's builtin table,
// each registering its functions into package filter's dispatch table via
// filter.RegisterBuiltin in an init function.
//
// Registration rather than a direct call table is used because the
// dependency would otherwise be circular: a builtin's body is itself
// evaluated with filter.Evaluator.Eval (map, reduce, select and friends
// all re-enter the evaluator), so builtins must import filter - meaning
// filter cannot import builtins back. Importing package builtins purely
// for its init-time side effects (a blank import in cmd/jqstream) wires
// the library in.
package builtins

import (
	"fmt"

	"github.com/jqstream/jqstream/filter"
	"github.com/jqstream/jqstream/value"
)

// collect runs f against input and gathers every output into a slice -
// the common shape needed by builtins that consume a generator's entire
// output before producing their own result (sort, group_by, add, ...).
func collect(ev *filter.Evaluator, f filter.Filter, input value.Value, env *filter.Env) ([]value.Value, error) {
	var out []value.Value
	err := ev.Eval(f, input, env, func(v value.Value) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

// first1 runs f against input and returns only its first output, or
// (nil, false) if f produced nothing - used by builtins like index/length
// that are defined in terms of a single-valued sub-expression.
func first1(ev *filter.Evaluator, f filter.Filter, input value.Value, env *filter.Env) (value.Value, bool, error) {
	var out value.Value
	found := false
	err := ev.Eval(f, input, env, func(v value.Value) error {
		if !found {
			out = v
			found = true
		}
		return nil
	})
	return out, found, err
}

func typeError(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

func asString(v value.Value, context string) (string, error) {
	s, ok := v.(value.String)
	if !ok {
		return "", typeError("%s: expected a string, got %s", context, v.TypeName())
	}
	return string(s), nil
}

func asArray(v value.Value, context string) (*value.Array, error) {
	a, ok := v.(*value.Array)
	if !ok {
		return nil, typeError("%s: expected an array, got %s", context, v.TypeName())
	}
	return a, nil
}

package filter

import (
	"sort"

	"github.com/jqstream/jqstream/value"
)

// BuiltinFunc implements one named library function. args are the
// argument filters unevaluated (builtins such as map need to evaluate
// them once per input element, not once per call) and must be evaluated
// against env; input/env is the builtin's own input value and the
// environment it runs in.
type BuiltinFunc func(ev *Evaluator, args []Filter, input value.Value, env *Env, emit Emit) error

type builtinKey struct {
	name  string
	arity int
}

var builtinRegistry = map[builtinKey]BuiltinFunc{}

// RegisterBuiltin installs the named/arity builtin into the global
// dispatch table used by Builtin nodes. Called from package
// filter/builtins' category files' init functions - see that package's
// doc comment for why registration rather than a direct import is used
// (filter must not import builtins, since builtins imports filter).
func RegisterBuiltin(name string, arity int, fn BuiltinFunc) {
	builtinRegistry[builtinKey{name, arity}] = fn
}

// LookupBuiltin reports whether (name, arity) names a registered builtin.
func LookupBuiltin(name string, arity int) (BuiltinFunc, bool) {
	fn, ok := builtinRegistry[builtinKey{name, arity}]
	return fn, ok
}

// BuiltinNames returns the sorted, deduplicated list of registered builtin
// names, for the "builtins" filter.
func BuiltinNames() []string {
	seen := map[string]bool{}
	var names []string
	for k := range builtinRegistry {
		if !seen[k.name] {
			seen[k.name] = true
			names = append(names, k.name)
		}
	}
	sort.Strings(names)
	return names
}

func (ev *Evaluator) evalBuiltin(b Builtin, input value.Value, env *Env, emit Emit) error {
	if fn, ok := LookupBuiltin(b.Name, len(b.Args)); ok {
		return fn(ev, b.Args, input, env, emit)
	}
	// Unknown builtin names emit nothing, per the evaluator contract.
	return nil
}

// formatRegistry lets package filter/builtins install @-format handlers
// (csv, tsv, base64, ...) for use both by Builtin("@name", ...) calls and
// by StringInterp's \(...) format prefix.
var formatRegistry = map[string]func(value.Value) (string, error){}

func RegisterFormat(name string, fn func(value.Value) (string, error)) {
	formatRegistry[name] = fn
}

func applyFormat(name string, v value.Value) (string, error) {
	if fn, ok := formatRegistry[name]; ok {
		return fn(v)
	}
	return v.String(), nil
}

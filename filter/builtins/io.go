package builtins

import (
	"fmt"
	"os"
	"strings"

	"github.com/jqstream/jqstream/filter"
	"github.com/jqstream/jqstream/value"
)

func init() {
	reg := filter.RegisterBuiltin

	reg("error", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return raiseError(ev, input)
	})

	reg("error", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return ev.Eval(args[0], input, env, func(msg value.Value) error {
			return raiseError(ev, msg)
		})
	})

	reg("debug", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		fmt.Fprintf(os.Stderr, "[\"DEBUG:\",%s]\n", input.String())
		return emit(input)
	})

	// debug(msg) evaluates msg for its side effect only and passes input
	// through unchanged, per jq's def debug(msg): (msg | debug | empty), input.
	reg("debug", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		err := ev.Eval(args[0], input, env, func(msg value.Value) error {
			fmt.Fprintf(os.Stderr, "[\"DEBUG:\",%s]\n", msg.String())
			return nil
		})
		if err != nil {
			return err
		}
		return emit(input)
	})

	reg("stderr", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		fmt.Fprint(os.Stderr, input.String())
		return emit(input)
	})

	reg("env", 0, envBuiltin)

	reg("builtins", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		names := filter.BuiltinNames()
		items := make([]value.Value, len(names))
		for i, n := range names {
			items[i] = value.String(n)
		}
		return emit(value.NewArray(items))
	})

	reg("input_line_number", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return emit(value.Int(0))
	})

	reg("halt", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		os.Exit(0)
		return nil
	})

	reg("halt_error", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return haltError(input, 5)
	})

	reg("halt_error", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return ev.Eval(args[0], input, env, func(codeV value.Value) error {
			code, _ := value.AsFloat64(codeV)
			return haltError(input, int(code))
		})
	})

	// input/inputs would need to pull additional values off the same
	// stream the NDJSON pipeline is already reading per-line/per-chunk;
	// how that interacts with windowed, parallel chunk evaluation is an
	// open question this implementation doesn't resolve, so both fail
	// with a catchable error rather than silently returning null.
	reg("input", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return raiseError(ev, value.String("input: reading additional values during NDJSON pipeline evaluation is not supported"))
	})

	reg("inputs", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return raiseError(ev, value.String("inputs: reading additional values during NDJSON pipeline evaluation is not supported"))
	})
}

func raiseError(ev *filter.Evaluator, v value.Value) error {
	msg := ""
	if s, ok := v.(value.String); ok {
		msg = string(s)
	} else {
		msg = v.String()
	}
	ev.LastError = v
	return &filter.EvalError{Val: v, Msg: msg}
}

func haltError(v value.Value, code int) error {
	if s, ok := v.(value.String); ok {
		fmt.Fprint(os.Stderr, string(s))
	} else {
		fmt.Fprintln(os.Stderr, v.String())
	}
	os.Exit(code)
	return nil
}

func envBuiltin(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
	o := value.EmptyObject()
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			o = o.Set(parts[0], value.String(parts[1]))
		}
	}
	return emit(o)
}

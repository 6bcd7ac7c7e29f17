package builtins

import (
	"strconv"
	"strings"

	"github.com/jqstream/jqstream/filter"
	"github.com/jqstream/jqstream/value"
)

func init() {
	reg := filter.RegisterBuiltin

	reg("tostring", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		if s, ok := input.(value.String); ok {
			return emit(s)
		}
		return emit(value.String(input.String()))
	})

	reg("tonumber", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		switch v := input.(type) {
		case value.Int, value.Double:
			return emit(v)
		case value.String:
			if n, err := strconv.ParseInt(string(v), 10, 64); err == nil {
				return emit(value.Int(n))
			}
			f, err := strconv.ParseFloat(string(v), 64)
			if err != nil {
				return typeError("cannot parse %q as number", string(v))
			}
			return emit(value.NewDouble(f))
		default:
			return typeError("cannot parse %s as number", input.TypeName())
		}
	})

	reg("toboolean", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		if b, ok := input.(value.Bool); ok {
			return emit(b)
		}
		s, err := asString(input, "toboolean")
		if err != nil {
			return err
		}
		switch s {
		case "true":
			return emit(value.Bool(true))
		case "false":
			return emit(value.Bool(false))
		default:
			return typeError("cannot parse %q as boolean", s)
		}
	})

	reg("ascii_upcase", 0, stringMap(strings.ToUpper))
	reg("ascii_downcase", 0, stringMap(strings.ToLower))
	reg("ltrimstr", 1, stringTrimArg(func(s, prefix string) string { return strings.TrimPrefix(s, prefix) }))
	reg("rtrimstr", 1, stringTrimArg(func(s, suffix string) string { return strings.TrimSuffix(s, suffix) }))
	reg("trimstr", 1, stringTrimArg(func(s, affix string) string {
		return strings.TrimSuffix(strings.TrimPrefix(s, affix), affix)
	}))

	reg("startswith", 1, stringPredicateArg(strings.HasPrefix))
	reg("endswith", 1, stringPredicateArg(strings.HasSuffix))

	reg("split", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		s, err := asString(input, "split")
		if err != nil {
			return err
		}
		return ev.Eval(args[0], input, env, func(sepV value.Value) error {
			sep, err := asString(sepV, "split")
			if err != nil {
				return err
			}
			parts := strings.Split(s, sep)
			items := make([]value.Value, len(parts))
			for i, p := range parts {
				items[i] = value.String(p)
			}
			return emit(value.NewArray(items))
		})
	})

	reg("join", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		a, err := asArray(input, "join")
		if err != nil {
			return err
		}
		return ev.Eval(args[0], input, env, func(sepV value.Value) error {
			sep, err := asString(sepV, "join")
			if err != nil {
				return err
			}
			var b strings.Builder
			for i, item := range a.Items {
				if i > 0 {
					b.WriteString(sep)
				}
				switch x := item.(type) {
				case value.Null:
				case value.String:
					b.WriteString(string(x))
				default:
					b.WriteString(x.String())
				}
			}
			return emit(value.String(b.String()))
		})
	})

	reg("explode", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		s, err := asString(input, "explode")
		if err != nil {
			return err
		}
		runes := []rune(s)
		items := make([]value.Value, len(runes))
		for i, r := range runes {
			items[i] = value.Int(r)
		}
		return emit(value.NewArray(items))
	})

	reg("implode", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		a, err := asArray(input, "implode")
		if err != nil {
			return err
		}
		runes := make([]rune, len(a.Items))
		for i, item := range a.Items {
			n, ok := item.(value.Int)
			if !ok {
				return typeError("implode: array must contain only codepoints")
			}
			runes[i] = rune(n)
		}
		return emit(value.String(string(runes)))
	})

	reg("tojson", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return emit(value.String(input.String()))
	})

	reg("fromjson", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		s, err := asString(input, "fromjson")
		if err != nil {
			return err
		}
		v, err := value.Decode([]byte(s))
		if err != nil {
			return typeError("fromjson: %s", err.Error())
		}
		return emit(v)
	})

	reg("index", 1, indexSearch(false))
	reg("rindex", 1, indexSearch(true))

	reg("indices", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return ev.Eval(args[0], input, env, func(needle value.Value) error {
			result, err := allIndices(input, needle)
			if err != nil {
				return err
			}
			return emit(result)
		})
	})
}

func stringMap(fn func(string) string) filter.BuiltinFunc {
	return func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		s, err := asString(input, "string")
		if err != nil {
			return err
		}
		return emit(value.String(fn(s)))
	}
}

func stringTrimArg(fn func(s, arg string) string) filter.BuiltinFunc {
	return func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		s, err := asString(input, "trim")
		if err != nil {
			return err
		}
		return ev.Eval(args[0], input, env, func(argV value.Value) error {
			arg, err := asString(argV, "trim")
			if err != nil {
				return err
			}
			return emit(value.String(fn(s, arg)))
		})
	}
}

func stringPredicateArg(fn func(s, arg string) bool) filter.BuiltinFunc {
	return func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		s, err := asString(input, "predicate")
		if err != nil {
			return err
		}
		return ev.Eval(args[0], input, env, func(argV value.Value) error {
			arg, err := asString(argV, "predicate")
			if err != nil {
				return err
			}
			return emit(value.Bool(fn(s, arg)))
		})
	}
}

func indexSearch(last bool) filter.BuiltinFunc {
	return func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return ev.Eval(args[0], input, env, func(needleV value.Value) error {
			switch x := input.(type) {
			case value.String:
				needle, err := asString(needleV, "index")
				if err != nil {
					return err
				}
				idx := strings.Index(string(x), needle)
				if last {
					idx = strings.LastIndex(string(x), needle)
				}
				if idx < 0 {
					return emit(value.NullValue)
				}
				return emit(value.Int(int64(idx)))
			case *value.Array:
				positions := arrayIndices(x, needleV)
				if len(positions) == 0 {
					return emit(value.NullValue)
				}
				if last {
					return emit(value.Int(int64(positions[len(positions)-1])))
				}
				return emit(value.Int(int64(positions[0])))
			default:
				return typeError("index: cannot search %s", input.TypeName())
			}
		})
	}
}

func arrayIndices(a *value.Array, needle value.Value) []int {
	var positions []int
	for i, item := range a.Items {
		if value.Equal(item, needle) {
			positions = append(positions, i)
		}
	}
	return positions
}

func allIndices(input, needle value.Value) (value.Value, error) {
	switch x := input.(type) {
	case value.String:
		n, err := asString(needle, "indices")
		if err != nil {
			return nil, err
		}
		if n == "" {
			return value.NullValue, nil
		}
		var items []value.Value
		s := string(x)
		for i := 0; i+len(n) <= len(s); i++ {
			if s[i:i+len(n)] == n {
				items = append(items, value.Int(int64(i)))
			}
		}
		return value.NewArray(items), nil
	case *value.Array:
		positions := arrayIndices(x, needle)
		items := make([]value.Value, len(positions))
		for i, p := range positions {
			items[i] = value.Int(int64(p))
		}
		return value.NewArray(items), nil
	case value.Null:
		return value.NullValue, nil
	default:
		return nil, typeError("indices: cannot search %s", input.TypeName())
	}
}


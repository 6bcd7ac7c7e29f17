package builtins

import (
	"github.com/jqstream/jqstream/filter"
	"github.com/jqstream/jqstream/value"
)

func init() {
	reg := filter.RegisterBuiltin

	reg("type", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return emit(value.String(input.TypeName()))
	})

	reg("not", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return emit(value.Bool(!value.Truthy(input)))
	})

	reg("length", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		switch v := input.(type) {
		case value.Null:
			return emit(value.Int(0))
		case value.Bool:
			return typeError("boolean has no length")
		case value.Int:
			n := int64(v)
			if n < 0 {
				n = -n
			}
			return emit(value.Int(n))
		case value.Double:
			f := v.F
			if f < 0 {
				f = -f
			}
			return emit(value.NewDouble(f))
		case value.String:
			return emit(value.Int(int64(len([]rune(string(v))))))
		case *value.Array:
			return emit(value.Int(int64(len(v.Items))))
		case *value.Object:
			return emit(value.Int(int64(len(v.Pairs))))
		}
		return nil
	})

	reg("utf8bytelength", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		s, err := asString(input, "utf8bytelength")
		if err != nil {
			return err
		}
		return emit(value.Int(int64(len(s))))
	})

	reg("has", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return ev.Eval(args[0], input, env, func(key value.Value) error {
			result, err := hasKey(input, key)
			if err != nil {
				return err
			}
			return emit(value.Bool(result))
		})
	})

	reg("in", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return ev.Eval(args[0], input, env, func(container value.Value) error {
			result, err := hasKey(container, input)
			if err != nil {
				return err
			}
			return emit(value.Bool(result))
		})
	})

	reg("contains", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return ev.Eval(args[0], input, env, func(needle value.Value) error {
			return emit(value.Bool(contains(input, needle)))
		})
	})

	reg("inside", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return ev.Eval(args[0], input, env, func(haystack value.Value) error {
			return emit(value.Bool(contains(haystack, input)))
		})
	})

	for _, pred := range []struct {
		name string
		ok   func(value.Value) bool
	}{
		{"numbers", value.IsNumber},
		{"strings", func(v value.Value) bool { _, ok := v.(value.String); return ok }},
		{"booleans", func(v value.Value) bool { _, ok := v.(value.Bool); return ok }},
		{"nulls", func(v value.Value) bool { _, ok := v.(value.Null); return ok }},
		{"arrays", func(v value.Value) bool { _, ok := v.(*value.Array); return ok }},
		{"objects", func(v value.Value) bool { _, ok := v.(*value.Object); return ok }},
		{"iterables", func(v value.Value) bool {
			switch v.(type) {
			case *value.Array, *value.Object:
				return true
			}
			return false
		}},
		{"scalars", func(v value.Value) bool {
			switch v.(type) {
			case *value.Array, *value.Object:
				return false
			}
			return true
		}},
	} {
		p := pred
		reg(p.name, 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
			if p.ok(input) {
				return emit(input)
			}
			return nil
		})
	}

	reg("to_entries", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		o, err := asObjectLike(input)
		if err != nil {
			return err
		}
		items := make([]value.Value, len(o.Pairs))
		for i, p := range o.Pairs {
			items[i] = value.EmptyObject().Set("key", value.String(p.Key)).Set("value", p.Value)
		}
		return emit(value.NewArray(items))
	})

	reg("from_entries", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		a, err := asArray(input, "from_entries")
		if err != nil {
			return err
		}
		result := value.EmptyObject()
		for _, entry := range a.Items {
			eo, ok := entry.(*value.Object)
			if !ok {
				return typeError("from_entries: expected an object entry")
			}
			key := entryKey(eo)
			val := entryValue(eo)
			result = result.Set(key, val)
		}
		return emit(result)
	})
}

func hasKey(container, key value.Value) (bool, error) {
	switch c := container.(type) {
	case *value.Object:
		k, ok := key.(value.String)
		if !ok {
			return false, typeError("has: key must be a string for object input")
		}
		_, found := c.Get(string(k))
		return found, nil
	case *value.Array:
		idx, ok := value.AsFloat64(key)
		if !ok {
			return false, typeError("has: key must be a number for array input")
		}
		i := int(idx)
		return i >= 0 && i < len(c.Items), nil
	default:
		return false, typeError("has: cannot check %s", container.TypeName())
	}
}

func contains(a, b value.Value) bool {
	switch bv := b.(type) {
	case value.String:
		as, ok := a.(value.String)
		return ok && stringContains(string(as), string(bv))
	case *value.Array:
		av, ok := a.(*value.Array)
		if !ok {
			return false
		}
		for _, bi := range bv.Items {
			found := false
			for _, ai := range av.Items {
				if contains(ai, bi) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	case *value.Object:
		ao, ok := a.(*value.Object)
		if !ok {
			return false
		}
		for _, p := range bv.Pairs {
			av, ok := ao.Get(p.Key)
			if !ok || !contains(av, p.Value) {
				return false
			}
		}
		return true
	default:
		return value.Equal(a, b)
	}
}

func stringContains(haystack, needle string) bool {
	if len(needle) == 0 {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func asObjectLike(v value.Value) (*value.Object, error) {
	switch x := v.(type) {
	case *value.Object:
		return x, nil
	case *value.Array:
		o := value.EmptyObject()
		for i, item := range x.Items {
			o = o.Set(value.FormatNumber(value.Int(i)), item)
		}
		return o, nil
	default:
		return nil, typeError("to_entries: %s has no keys", v.TypeName())
	}
}

func entryKey(o *value.Object) string {
	if v, ok := o.Get("key"); ok {
		if s, ok := v.(value.String); ok {
			return string(s)
		}
		return value.FormatNumber(v)
	}
	if v, ok := o.Get("k"); ok {
		if s, ok := v.(value.String); ok {
			return string(s)
		}
	}
	if v, ok := o.Get("name"); ok {
		if s, ok := v.(value.String); ok {
			return string(s)
		}
	}
	return ""
}

func entryValue(o *value.Object) value.Value {
	if v, ok := o.Get("value"); ok {
		return v
	}
	if v, ok := o.Get("v"); ok {
		return v
	}
	return value.NullValue
}

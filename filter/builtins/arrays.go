package builtins

import (
	"sort"

	"github.com/jqstream/jqstream/filter"
	"github.com/jqstream/jqstream/value"
)

func init() {
	reg := filter.RegisterBuiltin

	reg("keys", 0, keysBuiltin(true))
	reg("keys_unsorted", 0, keysBuiltin(false))

	reg("values", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		if _, ok := input.(value.Null); ok {
			return nil
		}
		return emit(input)
	})

	reg("map", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		items, err := mapOver(ev, args[0], input, env, false)
		if err != nil {
			return err
		}
		return emit(value.NewArray(items))
	})

	reg("map_values", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		switch v := input.(type) {
		case *value.Array:
			var items []value.Value
			for _, item := range v.Items {
				if out, found, err := first1(ev, args[0], item, env); err != nil {
					return err
				} else if found {
					items = append(items, out)
				}
			}
			return emit(value.NewArray(items))
		case *value.Object:
			result := value.EmptyObject()
			for _, p := range v.Pairs {
				if out, found, err := first1(ev, args[0], p.Value, env); err != nil {
					return err
				} else if found {
					result = result.Set(p.Key, out)
				}
			}
			return emit(result)
		default:
			return typeError("map_values: cannot map over %s", input.TypeName())
		}
	})

	reg("add", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		items, err := iterableItems(input)
		if err != nil {
			return err
		}
		acc := value.Value(value.NullValue)
		for _, item := range items {
			sum, err := value.Arith(acc, value.Add, item)
			if err != nil {
				return err
			}
			acc = sum
		}
		return emit(acc)
	})

	for _, kind := range []struct {
		name string
		all  bool
	}{{"any", false}, {"all", true}} {
		k := kind
		reg(k.name, 0, anyAllBuiltin(k.all, func(ev *filter.Evaluator, item value.Value, env *filter.Env) (bool, error) {
			return value.Truthy(item), nil
		}))
	}
	reg("any", 1, anyAllArg(false))
	reg("all", 1, anyAllArg(true))
	reg("any", 2, anyAllArg2(false))
	reg("all", 2, anyAllArg2(true))

	reg("sort", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		a, err := asArray(input, "sort")
		if err != nil {
			return err
		}
		items := append([]value.Value{}, a.Items...)
		sort.SliceStable(items, func(i, j int) bool { return value.Compare(items[i], items[j]) == value.Less })
		return emit(value.NewArray(items))
	})

	reg("sort_by", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		a, err := asArray(input, "sort_by")
		if err != nil {
			return err
		}
		keyed, err := keyByAllOutputs(ev, args[0], a.Items, env)
		if err != nil {
			return err
		}
		sort.SliceStable(keyed, func(i, j int) bool { return compareKeyTuples(keyed[i].keys, keyed[j].keys) == value.Less })
		items := make([]value.Value, len(keyed))
		for i, k := range keyed {
			items[i] = k.item
		}
		return emit(value.NewArray(items))
	})

	reg("group_by", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		a, err := asArray(input, "group_by")
		if err != nil {
			return err
		}
		keyed, err := keyByAllOutputs(ev, args[0], a.Items, env)
		if err != nil {
			return err
		}
		sort.SliceStable(keyed, func(i, j int) bool { return compareKeyTuples(keyed[i].keys, keyed[j].keys) == value.Less })
		var groups []value.Value
		var current []value.Value
		for i, k := range keyed {
			if i > 0 && compareKeyTuples(keyed[i-1].keys, k.keys) != value.EqualTo {
				groups = append(groups, value.NewArray(current))
				current = nil
			}
			current = append(current, k.item)
		}
		if current != nil {
			groups = append(groups, value.NewArray(current))
		}
		return emit(value.NewArray(groups))
	})

	reg("unique", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		a, err := asArray(input, "unique")
		if err != nil {
			return err
		}
		items := append([]value.Value{}, a.Items...)
		sort.SliceStable(items, func(i, j int) bool { return value.Compare(items[i], items[j]) == value.Less })
		var out []value.Value
		for i, v := range items {
			if i == 0 || value.Compare(items[i-1], v) != value.EqualTo {
				out = append(out, v)
			}
		}
		return emit(value.NewArray(out))
	})

	reg("unique_by", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		a, err := asArray(input, "unique_by")
		if err != nil {
			return err
		}
		keyed, err := keyByAllOutputs(ev, args[0], a.Items, env)
		if err != nil {
			return err
		}
		sort.SliceStable(keyed, func(i, j int) bool { return compareKeyTuples(keyed[i].keys, keyed[j].keys) == value.Less })
		var out []value.Value
		for i, k := range keyed {
			if i == 0 || compareKeyTuples(keyed[i-1].keys, k.keys) != value.EqualTo {
				out = append(out, k.item)
			}
		}
		return emit(value.NewArray(out))
	})

	reg("flatten", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		a, err := asArray(input, "flatten")
		if err != nil {
			return err
		}
		return emit(value.NewArray(flatten(a.Items, -1)))
	})
	reg("flatten", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		a, err := asArray(input, "flatten")
		if err != nil {
			return err
		}
		return ev.Eval(args[0], input, env, func(depthV value.Value) error {
			depth, ok := value.AsFloat64(depthV)
			if !ok || depth < 0 {
				return typeError("flatten depth must not be negative")
			}
			return emit(value.NewArray(flatten(a.Items, int(depth))))
		})
	})

	reg("first", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		a, err := asArray(input, "first")
		if err != nil {
			return err
		}
		if len(a.Items) == 0 {
			return emit(value.NullValue)
		}
		return emit(a.Items[0])
	})
	reg("last", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		a, err := asArray(input, "last")
		if err != nil {
			return err
		}
		if len(a.Items) == 0 {
			return emit(value.NullValue)
		}
		return emit(a.Items[len(a.Items)-1])
	})

	reg("reverse", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		if s, ok := input.(value.String); ok {
			runes := []rune(string(s))
			for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
				runes[i], runes[j] = runes[j], runes[i]
			}
			return emit(value.String(string(runes)))
		}
		a, err := asArray(input, "reverse")
		if err != nil {
			return err
		}
		items := make([]value.Value, len(a.Items))
		for i, v := range a.Items {
			items[len(a.Items)-1-i] = v
		}
		return emit(value.NewArray(items))
	})

	reg("min", 0, minMaxBuiltin(false))
	reg("max", 0, minMaxBuiltin(true))
	reg("min_by", 1, minMaxByBuiltin(false))
	reg("max_by", 1, minMaxByBuiltin(true))

	reg("del", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		// del(f) deletes the paths produced by path(f).
		paths, err := pathsOfFilter(ev, args[0], input, env)
		if err != nil {
			return err
		}
		sortPathsDeepestFirst(paths)
		result := input
		for _, p := range paths {
			var delErr error
			result, delErr = value.DelPath(result, p)
			if delErr != nil {
				return delErr
			}
		}
		return emit(result)
	})

	reg("limit", 2, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return ev.Eval(args[0], input, env, func(nV value.Value) error {
			n, _ := value.AsFloat64(nV)
			if n <= 0 {
				return nil
			}
			count := 0
			err := ev.Eval(args[1], input, env, func(v value.Value) error {
				if count >= int(n) {
					return filter.ErrStopIteration
				}
				count++
				if err := emit(v); err != nil {
					return err
				}
				if count >= int(n) {
					return filter.ErrStopIteration
				}
				return nil
			})
			if err == filter.ErrStopIteration {
				return nil
			}
			return err
		})
	})

	reg("isempty", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		any := false
		err := ev.Eval(args[0], input, env, func(v value.Value) error {
			any = true
			return filter.ErrStopIteration
		})
		if err == filter.ErrStopIteration {
			err = nil
		}
		if err != nil {
			return err
		}
		return emit(value.Bool(!any))
	})

	reg("recurse", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return ev.Eval(filter.Recurse{}, input, env, emit)
	})

	reg("walk", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		result, found, err := walk(ev, args[0], input, env)
		if err != nil || !found {
			return err
		}
		return emit(result)
	})
}

func keysBuiltin(sorted bool) filter.BuiltinFunc {
	return func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		switch v := input.(type) {
		case *value.Object:
			keys := make([]string, len(v.Pairs))
			for i, p := range v.Pairs {
				keys[i] = p.Key
			}
			if sorted {
				sort.Strings(keys)
			}
			items := make([]value.Value, len(keys))
			for i, k := range keys {
				items[i] = value.String(k)
			}
			return emit(value.NewArray(items))
		case *value.Array:
			items := make([]value.Value, len(v.Items))
			for i := range v.Items {
				items[i] = value.Int(int64(i))
			}
			return emit(value.NewArray(items))
		default:
			return typeError("%s has no keys", input.TypeName())
		}
	}
}

func mapOver(ev *filter.Evaluator, f filter.Filter, input value.Value, env *filter.Env, keepErrors bool) ([]value.Value, error) {
	var items []value.Value
	err := ev.Eval(filter.Iterate{}, input, env, func(item value.Value) error {
		return ev.Eval(f, item, env, func(v value.Value) error {
			items = append(items, v)
			return nil
		})
	})
	return items, err
}

func iterableItems(input value.Value) ([]value.Value, error) {
	switch v := input.(type) {
	case *value.Array:
		return v.Items, nil
	case *value.Object:
		items := make([]value.Value, len(v.Pairs))
		for i, p := range v.Pairs {
			items[i] = p.Value
		}
		return items, nil
	case value.Null:
		return nil, nil
	default:
		return nil, typeError("cannot iterate over %s", input.TypeName())
	}
}

func anyAllBuiltin(all bool, pred func(*filter.Evaluator, value.Value, *filter.Env) (bool, error)) filter.BuiltinFunc {
	return func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		items, err := iterableItems(input)
		if err != nil {
			return err
		}
		for _, item := range items {
			ok, err := pred(ev, item, env)
			if err != nil {
				return err
			}
			if all && !ok {
				return emit(value.Bool(false))
			}
			if !all && ok {
				return emit(value.Bool(true))
			}
		}
		return emit(value.Bool(all))
	}
}

func anyAllArg(all bool) filter.BuiltinFunc {
	return func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		items, err := iterableItems(input)
		if err != nil {
			return err
		}
		for _, item := range items {
			out, found, err := first1(ev, args[0], item, env)
			if err != nil {
				return err
			}
			ok := found && value.Truthy(out)
			if all && !ok {
				return emit(value.Bool(false))
			}
			if !all && ok {
				return emit(value.Bool(true))
			}
		}
		return emit(value.Bool(all))
	}
}

func anyAllArg2(all bool) filter.BuiltinFunc {
	return func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		result := all
		err := ev.Eval(args[0], input, env, func(item value.Value) error {
			out, found, err := first1(ev, args[1], item, env)
			if err != nil {
				return err
			}
			ok := found && value.Truthy(out)
			if all && !ok {
				result = false
				return filter.ErrStopIteration
			}
			if !all && ok {
				result = true
				return filter.ErrStopIteration
			}
			return nil
		})
		if err == filter.ErrStopIteration {
			err = nil
		}
		if err != nil {
			return err
		}
		return emit(value.Bool(result))
	}
}

type keyedItem struct {
	item value.Value
	keys []value.Value
}

func keyByAllOutputs(ev *filter.Evaluator, f filter.Filter, items []value.Value, env *filter.Env) ([]keyedItem, error) {
	out := make([]keyedItem, len(items))
	for i, item := range items {
		keys, err := collect(ev, f, item, env)
		if err != nil {
			return nil, err
		}
		out[i] = keyedItem{item: item, keys: keys}
	}
	return out, nil
}

func compareKeyTuples(a, b []value.Value) value.Ordering {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if o := value.Compare(a[i], b[i]); o != value.EqualTo {
			return o
		}
	}
	if len(a) < len(b) {
		return value.Less
	}
	if len(a) > len(b) {
		return value.Greater
	}
	return value.EqualTo
}

func flatten(items []value.Value, depth int) []value.Value {
	var out []value.Value
	for _, item := range items {
		if a, ok := item.(*value.Array); ok && depth != 0 {
			out = append(out, flatten(a.Items, depth-1)...)
		} else {
			out = append(out, item)
		}
	}
	return out
}

func minMaxBuiltin(max bool) filter.BuiltinFunc {
	return func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		a, err := asArray(input, "min/max")
		if err != nil {
			return err
		}
		if len(a.Items) == 0 {
			return emit(value.NullValue)
		}
		best := a.Items[0]
		for _, v := range a.Items[1:] {
			o := value.Compare(v, best)
			if (max && o == value.Greater) || (!max && o == value.Less) || (max && o == value.EqualTo) {
				best = v
			}
		}
		return emit(best)
	}
}

func minMaxByBuiltin(max bool) filter.BuiltinFunc {
	return func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		a, err := asArray(input, "min_by/max_by")
		if err != nil {
			return err
		}
		if len(a.Items) == 0 {
			return emit(value.NullValue)
		}
		keyed, err := keyByAllOutputs(ev, args[0], a.Items, env)
		if err != nil {
			return err
		}
		best := keyed[0]
		for _, k := range keyed[1:] {
			o := compareKeyTuples(k.keys, best.keys)
			if (max && (o == value.Greater || o == value.EqualTo)) || (!max && o == value.Less) {
				best = k
			}
		}
		return emit(best.item)
	}
}

func walk(ev *filter.Evaluator, f filter.Filter, v value.Value, env *filter.Env) (value.Value, bool, error) {
	switch x := v.(type) {
	case *value.Array:
		items := make([]value.Value, 0, len(x.Items))
		for _, item := range x.Items {
			w, found, err := walk(ev, f, item, env)
			if err != nil {
				return nil, false, err
			}
			if found {
				items = append(items, w)
			}
		}
		return applyWalkFunc(ev, f, value.NewArray(items), env)
	case *value.Object:
		result := value.EmptyObject()
		for _, p := range x.Pairs {
			w, found, err := walk(ev, f, p.Value, env)
			if err != nil {
				return nil, false, err
			}
			if found {
				result = result.Set(p.Key, w)
			}
		}
		return applyWalkFunc(ev, f, result, env)
	default:
		return applyWalkFunc(ev, f, v, env)
	}
}

func applyWalkFunc(ev *filter.Evaluator, f filter.Filter, v value.Value, env *filter.Env) (value.Value, bool, error) {
	return first1(ev, f, v, env)
}

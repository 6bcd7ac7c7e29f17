package builtins

import (
	"sort"

	"github.com/jqstream/jqstream/filter"
	"github.com/jqstream/jqstream/value"
)

func init() {
	reg := filter.RegisterBuiltin

	reg("getpath", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return ev.Eval(args[0], input, env, func(pv value.Value) error {
			path, err := value.PathFromValue(pv)
			if err != nil {
				return err
			}
			result, err := value.GetPath(input, path)
			if err != nil {
				return emit(value.NullValue)
			}
			return emit(result)
		})
	})

	reg("setpath", 2, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return ev.Eval(args[0], input, env, func(pv value.Value) error {
			path, err := value.PathFromValue(pv)
			if err != nil {
				return err
			}
			return ev.Eval(args[1], input, env, func(newVal value.Value) error {
				result, err := value.SetPath(input, path, newVal)
				if err != nil {
					return err
				}
				return emit(result)
			})
		})
	})

	reg("delpaths", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return ev.Eval(args[0], input, env, func(pv value.Value) error {
			pathsArr, err := asArray(pv, "delpaths")
			if err != nil {
				return err
			}
			paths := make([]value.Path, len(pathsArr.Items))
			for i, p := range pathsArr.Items {
				path, err := value.PathFromValue(p)
				if err != nil {
					return err
				}
				paths[i] = path
			}
			sortPathsDeepestFirst(paths)
			result := input
			for _, p := range paths {
				result, err = value.DelPath(result, p)
				if err != nil {
					return err
				}
			}
			return emit(result)
		})
	})

	reg("paths", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		var outErr error
		value.EnumPaths(input, true, func(p value.Path, v value.Value) bool {
			if err := emit(value.PathToValue(p)); err != nil {
				outErr = err
				return false
			}
			return true
		})
		return outErr
	})

	reg("leaf_paths", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		var outErr error
		value.EnumPaths(input, false, func(p value.Path, v value.Value) bool {
			if err := emit(value.PathToValue(p)); err != nil {
				outErr = err
				return false
			}
			return true
		})
		return outErr
	})

	reg("path", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		paths, err := pathsOfFilter(ev, args[0], input, env)
		if err != nil {
			return err
		}
		for _, p := range paths {
			if err := emit(value.PathToValue(p)); err != nil {
				return err
			}
		}
		return nil
	})

	reg("pick", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		paths, err := pathsOfFilter(ev, args[0], input, env)
		if err != nil {
			return err
		}
		result := value.Value(value.NullValue)
		for _, p := range paths {
			v, err := value.GetPath(input, p)
			if err != nil {
				return err
			}
			result, err = value.SetPath(result, p, v)
			if err != nil {
				return err
			}
		}
		return emit(result)
	})

	reg("with_entries", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		o, err := asObjectLike(input)
		if err != nil {
			return err
		}
		result := value.EmptyObject()
		for _, p := range o.Pairs {
			entry := value.EmptyObject().Set("key", value.String(p.Key)).Set("value", p.Value)
			out, found, err := first1(ev, args[0], entry, env)
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			eo, ok := out.(*value.Object)
			if !ok {
				return typeError("with_entries: function must return entry objects")
			}
			result = result.Set(entryKey(eo), entryValue(eo))
		}
		return emit(result)
	})
}

// pathsOfFilter reconstructs the paths a path-expression filter would
// navigate to, by walking the same cases the evaluator does but tracking
// the path alongside the value instead of just the value (the spec's
// path_of). Filters outside the path-expression whitelist emit nothing,
// matching "Other filters cause path_of to emit nothing."
func pathsOfFilter(ev *filter.Evaluator, f filter.Filter, input value.Value, env *filter.Env) ([]value.Path, error) {
	var paths []value.Path
	err := walkPath(ev, f, input, nil, env, func(p value.Path) error {
		paths = append(paths, p)
		return nil
	})
	return paths, err
}

func walkPath(ev *filter.Evaluator, f filter.Filter, input value.Value, prefix value.Path, env *filter.Env, emit func(value.Path) error) error {
	switch x := f.(type) {
	case filter.Identity:
		return emit(prefix)
	case filter.Field:
		child, err := value.GetPath(input, value.Path{value.Key(x.Name)})
		if err != nil {
			return err
		}
		_ = child
		return emit(append(clonePath(prefix), value.Key(x.Name)))
	case filter.Index:
		return ev.Eval(x.Expr, input, env, func(idx value.Value) error {
			switch i := idx.(type) {
			case value.String:
				return emit(append(clonePath(prefix), value.Key(string(i))))
			case value.Int:
				return emit(append(clonePath(prefix), value.Idx(int(i))))
			default:
				return typeError("path: invalid index")
			}
		})
	case filter.Iterate:
		switch v := input.(type) {
		case *value.Array:
			for i := range v.Items {
				if err := emit(append(clonePath(prefix), value.Idx(i))); err != nil {
					return err
				}
			}
			return nil
		case *value.Object:
			for _, p := range v.Pairs {
				if err := emit(append(clonePath(prefix), value.Key(p.Key))); err != nil {
					return err
				}
			}
			return nil
		default:
			return typeError("cannot iterate over %s", input.TypeName())
		}
	case filter.Pipe:
		return walkPath(ev, x.Left, input, prefix, env, func(p value.Path) error {
			child, err := value.GetPath(input, p[len(prefix):])
			if err != nil {
				return err
			}
			return walkPath(ev, x.Right, child, p, env, emit)
		})
	case filter.Comma:
		for _, item := range x.Items {
			if err := walkPath(ev, item, input, prefix, env, emit); err != nil {
				return err
			}
		}
		return nil
	case filter.Select:
		return ev.Eval(x.Cond, input, env, func(c value.Value) error {
			if value.Truthy(c) {
				return emit(prefix)
			}
			return nil
		})
	case filter.Recurse:
		return recursePaths(input, prefix, emit)
	case filter.Builtin:
		switch x.Name {
		case "recurse":
			if len(x.Args) == 0 {
				return recursePaths(input, prefix, emit)
			}
		case "empty":
			return nil
		case "first":
			if len(x.Args) == 0 {
				if arr, ok := input.(*value.Array); ok && len(arr.Items) > 0 {
					return emit(append(clonePath(prefix), value.Idx(0)))
				}
				return nil
			}
		case "last":
			if len(x.Args) == 0 {
				if arr, ok := input.(*value.Array); ok && len(arr.Items) > 0 {
					return emit(append(clonePath(prefix), value.Idx(len(arr.Items)-1)))
				}
				return nil
			}
		}
		return nil
	default:
		return nil
	}
}

func recursePaths(v value.Value, prefix value.Path, emit func(value.Path) error) error {
	if err := emit(prefix); err != nil {
		return err
	}
	switch x := v.(type) {
	case *value.Array:
		for i, item := range x.Items {
			if err := recursePaths(item, append(clonePath(prefix), value.Idx(i)), emit); err != nil {
				return err
			}
		}
	case *value.Object:
		for _, p := range x.Pairs {
			if err := recursePaths(p.Value, append(clonePath(prefix), value.Key(p.Key)), emit); err != nil {
				return err
			}
		}
	}
	return nil
}

func clonePath(p value.Path) value.Path {
	out := make(value.Path, len(p))
	copy(out, p)
	return out
}

// sortPathsDeepestFirst orders paths so that deleting them in sequence
// never invalidates a later deletion's indices: longer paths before
// shorter, and within equal length, higher array indices before lower -
// the ordering del/delpaths' caller (see arrays.go:del) relies on.
func sortPathsDeepestFirst(paths []value.Path) {
	sort.SliceStable(paths, func(i, j int) bool {
		a, b := paths[i], paths[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		for k := range a {
			if a[k].IsString != b[k].IsString {
				continue
			}
			if !a[k].IsString && a[k].Index != b[k].Index {
				return a[k].Index > b[k].Index
			}
		}
		return false
	})
}

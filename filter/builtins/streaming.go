package builtins

import (
	"github.com/jqstream/jqstream/filter"
	"github.com/jqstream/jqstream/value"
)

// tostream/fromstream/truncate_stream implement jq's streamed-value
// protocol: a leaf is emitted as [path, value], and the end of each
// container is marked by [path-of-last-child] (a single-element array
// with the path to the last key/index closed), exposed here as ordinary
// filters.
func init() {
	reg := filter.RegisterBuiltin

	reg("tostream", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return toStream(input, nil, emit)
	})

	reg("fromstream", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		var acc value.Value
		started := false
		err := ev.Eval(args[0], input, env, func(event value.Value) error {
			a, ok := event.(*value.Array)
			if !ok || len(a.Items) == 0 {
				return typeError("fromstream: invalid stream event")
			}
			path, err := value.PathFromValue(a.Items[0])
			if err != nil {
				return err
			}
			if len(a.Items) == 2 {
				if len(path) == 0 {
					return emit(a.Items[1])
				}
				if !started {
					acc = value.NullValue
					started = true
				}
				acc, err = value.SetPath(acc, path, a.Items[1])
				return err
			}
			if len(path) <= 1 && started {
				out := acc
				acc = nil
				started = false
				return emit(out)
			}
			return nil
		})
		return err
	})

	reg("truncate_stream", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		depth, ok := value.AsFloat64(input)
		if !ok {
			return typeError("truncate_stream: depth must be a number")
		}
		n := int(depth)
		return ev.Eval(args[0], input, env, func(event value.Value) error {
			a, ok := event.(*value.Array)
			if !ok || len(a.Items) == 0 {
				return typeError("truncate_stream: invalid stream event")
			}
			path, err := value.PathFromValue(a.Items[0])
			if err != nil {
				return err
			}
			if len(path) <= n {
				return nil
			}
			truncated := value.PathToValue(path[n:])
			items := []value.Value{truncated}
			if len(a.Items) == 2 {
				items = append(items, a.Items[1])
			}
			return emit(value.NewArray(items))
		})
	})
}

func toStream(v value.Value, prefix value.Path, emit filter.Emit) error {
	switch x := v.(type) {
	case *value.Array:
		if len(x.Items) == 0 {
			return emit(value.NewArray([]value.Value{value.PathToValue(prefix), v}))
		}
		for i, item := range x.Items {
			if err := toStream(item, append(clonePathStream(prefix), value.Idx(i)), emit); err != nil {
				return err
			}
		}
		last := append(clonePathStream(prefix), value.Idx(len(x.Items)-1))
		return emit(value.NewArray([]value.Value{value.PathToValue(last)}))
	case *value.Object:
		if len(x.Pairs) == 0 {
			return emit(value.NewArray([]value.Value{value.PathToValue(prefix), v}))
		}
		for _, p := range x.Pairs {
			if err := toStream(p.Value, append(clonePathStream(prefix), value.Key(p.Key)), emit); err != nil {
				return err
			}
		}
		last := append(clonePathStream(prefix), value.Key(x.Pairs[len(x.Pairs)-1].Key))
		return emit(value.NewArray([]value.Value{value.PathToValue(last)}))
	default:
		return emit(value.NewArray([]value.Value{value.PathToValue(prefix), v}))
	}
}

func clonePathStream(p value.Path) value.Path {
	out := make(value.Path, len(p))
	copy(out, p)
	return out
}

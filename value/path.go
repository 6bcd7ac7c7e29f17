package value

import "fmt"

// maxPathDepth bounds recursion in SetPath/DelPath so adversarial input (a
// setpath with a million-segment path) fails with an error instead of
// overflowing the Go stack. EnumPaths does not check it: its recursion
// follows the nesting depth of the value it walks.
const maxPathDepth = 1000

// maxArrayAlloc bounds how large an array SetPath will create when a path
// segment indexes far past the end of an existing (or absent) array.
const maxArrayAlloc = 1 << 20

// Segment is one element of a Path: either a string (object key) or an int
// (array index, possibly negative meaning len+i).
type Segment struct {
	Key      string
	Index    int
	IsString bool
}

func Key(k string) Segment  { return Segment{Key: k, IsString: true} }
func Idx(i int) Segment     { return Segment{Index: i} }

type Path []Segment

// GetPath implements get_path: navigation with missing segments yielding
// Null rather than an error.
func GetPath(v Value, path Path) (Value, error) {
	cur := v
	for _, seg := range path {
		next, err := getSegment(cur, seg)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func getSegment(v Value, seg Segment) (Value, error) {
	if _, ok := v.(Null); ok {
		return NullValue, nil
	}
	if seg.IsString {
		o, ok := v.(*Object)
		if !ok {
			return nil, fmt.Errorf("cannot index %s with %q", v.TypeName(), seg.Key)
		}
		if val, ok := o.Get(seg.Key); ok {
			return val, nil
		}
		return NullValue, nil
	}
	a, ok := v.(*Array)
	if !ok {
		return nil, fmt.Errorf("cannot index %s with number", v.TypeName())
	}
	i := resolveIndex(seg.Index, len(a.Items))
	if i < 0 || i >= len(a.Items) {
		return NullValue, nil
	}
	return a.Items[i], nil
}

func resolveIndex(i, length int) int {
	if i < 0 {
		return length + i
	}
	return i
}

// SetPath implements set_path: functional update that creates missing
// intermediate containers (null becomes an object for a string segment, an
// array for a non-negative int segment) and never mutates v.
func SetPath(v Value, path Path, newVal Value) (Value, error) {
	return setPathDepth(v, path, newVal, 0)
}

func setPathDepth(v Value, path Path, newVal Value, depth int) (Value, error) {
	if depth > maxPathDepth {
		return nil, fmt.Errorf("setpath: path too deep")
	}
	if len(path) == 0 {
		return newVal, nil
	}
	seg := path[0]
	rest := path[1:]

	if v == nil {
		v = NullValue
	}

	if seg.IsString {
		var obj *Object
		switch x := v.(type) {
		case *Object:
			obj = x
		case Null:
			obj = EmptyObject()
		default:
			return nil, fmt.Errorf("cannot index %s with %q", v.TypeName(), seg.Key)
		}
		child, _ := obj.Get(seg.Key)
		if child == nil {
			child = NullValue
		}
		updated, err := setPathDepth(child, rest, newVal, depth+1)
		if err != nil {
			return nil, err
		}
		return obj.Set(seg.Key, updated), nil
	}

	var arr *Array
	switch x := v.(type) {
	case *Array:
		arr = x
	case Null:
		arr = EmptyArray()
	default:
		return nil, fmt.Errorf("cannot index %s with number", v.TypeName())
	}
	i := seg.Index
	if i < 0 {
		i = len(arr.Items) + i
		if i < 0 {
			return nil, fmt.Errorf("out of bounds negative array index")
		}
	}
	if i >= maxArrayAlloc {
		return nil, fmt.Errorf("array index too large")
	}
	items := arr.Items
	if i >= len(items) {
		grown := make([]Value, i+1)
		copy(grown, items)
		for j := len(items); j < i; j++ {
			grown[j] = NullValue
		}
		items = grown
	} else {
		grown := make([]Value, len(items))
		copy(grown, items)
		items = grown
	}
	updated, err := setPathDepth(items[i], rest, newVal, depth+1)
	if err != nil {
		return nil, err
	}
	items[i] = updated
	return &Array{Items: items}, nil
}

// DelPath implements del_path: out-of-bounds segments are a no-op. Callers
// deleting multiple paths from one value (delpaths builtin) must sort paths
// deepest-first / highest-index-first themselves so that earlier deletions
// don't shift the indices later deletions target.
func DelPath(v Value, path Path) (Value, error) {
	if len(path) > maxPathDepth {
		return nil, fmt.Errorf("delpath: path too deep")
	}
	if len(path) == 0 {
		return NullValue, nil
	}
	if len(path) == 1 {
		return delLeaf(v, path[0])
	}
	seg := path[0]
	child, err := getSegment(v, seg)
	if err != nil {
		return nil, err
	}
	if _, isNull := child.(Null); isNull {
		return v, nil
	}
	updatedChild, err := DelPath(child, path[1:])
	if err != nil {
		return nil, err
	}
	return setInPlace(v, seg, updatedChild)
}

func delLeaf(v Value, seg Segment) (Value, error) {
	if seg.IsString {
		o, ok := v.(*Object)
		if !ok {
			if _, isNull := v.(Null); isNull {
				return v, nil
			}
			return nil, fmt.Errorf("cannot delete field of %s", v.TypeName())
		}
		return o.Delete(seg.Key), nil
	}
	a, ok := v.(*Array)
	if !ok {
		if _, isNull := v.(Null); isNull {
			return v, nil
		}
		return nil, fmt.Errorf("cannot delete element of %s", v.TypeName())
	}
	i := resolveIndex(seg.Index, len(a.Items))
	if i < 0 || i >= len(a.Items) {
		return v, nil
	}
	items := make([]Value, 0, len(a.Items)-1)
	items = append(items, a.Items[:i]...)
	items = append(items, a.Items[i+1:]...)
	return &Array{Items: items}, nil
}

func setInPlace(v Value, seg Segment, newChild Value) (Value, error) {
	if seg.IsString {
		o, ok := v.(*Object)
		if !ok {
			return nil, fmt.Errorf("cannot index %s with %q", v.TypeName(), seg.Key)
		}
		return o.Set(seg.Key, newChild), nil
	}
	a, ok := v.(*Array)
	if !ok {
		return nil, fmt.Errorf("cannot index %s with number", v.TypeName())
	}
	i := resolveIndex(seg.Index, len(a.Items))
	if i < 0 || i >= len(a.Items) {
		return v, nil
	}
	return a.WithItemAt(i, newChild), nil
}

// EnumPaths performs a depth-first walk of v, invoking visit(path, node)
// for every node below v when includeInternal is true, or only for leaves
// (scalars and empty containers) otherwise. v itself, at the empty path, is
// never visited.
func EnumPaths(v Value, includeInternal bool, visit func(Path, Value) bool) {
	enumPaths(v, nil, includeInternal, visit)
}

func enumPaths(v Value, prefix Path, includeInternal bool, visit func(Path, Value) bool) bool {
	switch x := v.(type) {
	case *Array:
		if includeInternal && len(prefix) > 0 {
			if !visit(clonePath(prefix), v) {
				return false
			}
		}
		if len(x.Items) == 0 && !includeInternal && len(prefix) > 0 {
			return visit(clonePath(prefix), v)
		}
		for i, item := range x.Items {
			if !enumPaths(item, append(prefix, Idx(i)), includeInternal, visit) {
				return false
			}
		}
		return true
	case *Object:
		if includeInternal && len(prefix) > 0 {
			if !visit(clonePath(prefix), v) {
				return false
			}
		}
		if len(x.Pairs) == 0 && !includeInternal && len(prefix) > 0 {
			return visit(clonePath(prefix), v)
		}
		for _, p := range x.Pairs {
			if !enumPaths(p.Value, append(prefix, Key(p.Key)), includeInternal, visit) {
				return false
			}
		}
		return true
	default:
		if len(prefix) == 0 {
			return true
		}
		return visit(clonePath(prefix), v)
	}
}

func clonePath(p Path) Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// PathToValue converts a Path into the jq-visible array-of-segments
// representation ([]string | int), as returned by the path() builtin.
func PathToValue(p Path) *Array {
	items := make([]Value, len(p))
	for i, seg := range p {
		if seg.IsString {
			items[i] = String(seg.Key)
		} else {
			items[i] = Int(seg.Index)
		}
	}
	return &Array{Items: items}
}

// PathFromValue converts a jq path array (as produced by setpath's second
// argument) back into a Path, rejecting anything that isn't a string or
// integer segment.
func PathFromValue(v Value) (Path, error) {
	arr, ok := v.(*Array)
	if !ok {
		return nil, fmt.Errorf("path must be specified as an array")
	}
	path := make(Path, len(arr.Items))
	for i, item := range arr.Items {
		switch x := item.(type) {
		case String:
			path[i] = Key(string(x))
		case Int:
			path[i] = Idx(int(x))
		case Double:
			path[i] = Idx(int(x.F))
		default:
			return nil, fmt.Errorf("invalid path segment %s", item.TypeName())
		}
	}
	return path, nil
}

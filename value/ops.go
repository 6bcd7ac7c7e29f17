package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Equal implements values_equal: structural equality with numeric
// coercion across Int/Double and reference-shortcut for arrays/objects
// that happen to be the same pointer.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Int:
		switch y := b.(type) {
		case Int:
			return x == y
		case Double:
			return float64(x) == y.F
		default:
			return false
		}
	case Double:
		switch y := b.(type) {
		case Int:
			return x.F == float64(y)
		case Double:
			return x.F == y.F || (math.IsNaN(x.F) && math.IsNaN(y.F))
		default:
			return false
		}
	case String:
		y, ok := b.(String)
		return ok && x == y
	case *Array:
		y, ok := b.(*Array)
		if !ok {
			return false
		}
		if x == y {
			return true
		}
		if len(x.Items) != len(y.Items) {
			return false
		}
		for i := range x.Items {
			if !Equal(x.Items[i], y.Items[i]) {
				return false
			}
		}
		return true
	case *Object:
		y, ok := b.(*Object)
		if !ok {
			return false
		}
		if x == y {
			return true
		}
		if len(x.Pairs) != len(y.Pairs) {
			return false
		}
		for i := range x.Pairs {
			if x.Pairs[i].Key != y.Pairs[i].Key || !Equal(x.Pairs[i].Value, y.Pairs[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Ordering is the result of Compare: -1, 0 or 1, with the same meaning as
// strings.Compare.
type Ordering int

const (
	Less    Ordering = -1
	EqualTo Ordering = 0
	Greater Ordering = 1
)

func typeOrder(v Value) int {
	switch x := v.(type) {
	case Null:
		return 0
	case Bool:
		if x {
			return 2
		}
		return 1
	case Int, Double:
		return 3
	case String:
		return 4
	case *Array:
		return 5
	case *Object:
		return 6
	default:
		panic(fmt.Sprintf("value: unknown variant %T", v))
	}
}

// Compare implements values_order, jq's total order:
// null < false < true < numbers < strings < arrays < objects. Within
// numbers, comparison is by f64 value (NaN sorts as though equal to
// itself and less than every other number - see compareFloat).
func Compare(a, b Value) Ordering {
	ta, tb := typeOrder(a), typeOrder(b)
	if ta != tb {
		return ordInt(ta, tb)
	}
	switch x := a.(type) {
	case Null:
		return EqualTo
	case Bool:
		// same typeOrder bucket means both false or both true
		return EqualTo
	case Int:
		switch y := b.(type) {
		case Int:
			return ordInt64(int64(x), int64(y))
		case Double:
			return compareFloat(float64(x), y.F)
		}
	case Double:
		switch y := b.(type) {
		case Int:
			return compareFloat(x.F, float64(y))
		case Double:
			return compareFloat(x.F, y.F)
		}
	case String:
		y := b.(String)
		return ordInt(strings.Compare(string(x), string(y)), 0)
	case *Array:
		y := b.(*Array)
		n := len(x.Items)
		if len(y.Items) < n {
			n = len(y.Items)
		}
		for i := 0; i < n; i++ {
			if o := Compare(x.Items[i], y.Items[i]); o != EqualTo {
				return o
			}
		}
		return ordInt(len(x.Items), len(y.Items))
	case *Object:
		y := b.(*Object)
		if len(x.Pairs) != len(y.Pairs) {
			return ordInt(len(x.Pairs), len(y.Pairs))
		}
		ak := sortedPairs(x.Pairs)
		bk := sortedPairs(y.Pairs)
		for i := range ak {
			if c := strings.Compare(ak[i].Key, bk[i].Key); c != 0 {
				return ordInt(c, 0)
			}
			if o := Compare(ak[i].Value, bk[i].Value); o != EqualTo {
				return o
			}
		}
		return EqualTo
	}
	return EqualTo
}

// compareFloat treats NaN as sorting below every other float so values_order
// is a total order even though IEEE-754 comparison is not; values_equal
// separately treats NaN as equal to NaN per the spec's explicit carve-out.
func compareFloat(a, b float64) Ordering {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return EqualTo
	case aNaN:
		return Less
	case bNaN:
		return Greater
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return EqualTo
	}
}

func ordInt(a, b int) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return EqualTo
	}
}

func ordInt64(a, b int64) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return EqualTo
	}
}

func sortedPairs(pairs []Pair) []Pair {
	sorted := make([]Pair, len(pairs))
	copy(sorted, pairs)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].Key > sorted[j].Key; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	return sorted
}

// ArithOp identifies one of the five binary arithmetic operators the
// filter AST's Arith node carries.
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
	Mod
)

// maxStringRepeat bounds the result length of string*int / string*float so
// a filter like `"x" * 1000000000` fails cleanly instead of exhausting
// memory.
const maxStringRepeat = 100_000_000

// Arith implements arith_values: the per-operator, per-type-pair table.
// Errors are returned as plain Go errors; the evaluator is responsible for
// turning them into a LAST_ERROR value and an empty result set.
func Arith(a Value, op ArithOp, b Value) (Value, error) {
	switch op {
	case Add:
		return arithAdd(a, b)
	case Sub:
		return arithSub(a, b)
	case Mul:
		return arithMul(a, b)
	case Div:
		return arithDiv(a, b)
	case Mod:
		return arithMod(a, b)
	default:
		panic("value: unknown ArithOp")
	}
}

func arithAdd(a, b Value) (Value, error) {
	if _, ok := a.(Null); ok {
		return b, nil
	}
	if _, ok := b.(Null); ok {
		return a, nil
	}
	switch x := a.(type) {
	case Int:
		if y, ok := b.(Int); ok {
			sum := int64(x) + int64(y)
			if overflowedAdd(int64(x), int64(y), sum) {
				return NewDouble(float64(x) + float64(y)), nil
			}
			return Int(sum), nil
		}
		if y, ok := b.(Double); ok {
			return NewDouble(float64(x) + y.F), nil
		}
	case Double:
		if y, ok := b.(Double); ok {
			return NewDouble(x.F + y.F), nil
		}
		if y, ok := b.(Int); ok {
			return NewDouble(x.F + float64(y)), nil
		}
	case String:
		if y, ok := b.(String); ok {
			return x + y, nil
		}
	case *Array:
		if y, ok := b.(*Array); ok {
			items := make([]Value, 0, len(x.Items)+len(y.Items))
			items = append(items, x.Items...)
			items = append(items, y.Items...)
			return &Array{Items: items}, nil
		}
	case *Object:
		if y, ok := b.(*Object); ok {
			return shallowMergeObjects(x, y), nil
		}
	}
	return nil, fmt.Errorf("%s and %s cannot be added", a.TypeName(), b.TypeName())
}

func arithSub(a, b Value) (Value, error) {
	switch x := a.(type) {
	case Int:
		if y, ok := b.(Int); ok {
			diff := int64(x) - int64(y)
			if overflowedSub(int64(x), int64(y), diff) {
				return NewDouble(float64(x) - float64(y)), nil
			}
			return Int(diff), nil
		}
		if y, ok := b.(Double); ok {
			return NewDouble(float64(x) - y.F), nil
		}
	case Double:
		if y, ok := b.(Double); ok {
			return NewDouble(x.F - y.F), nil
		}
		if y, ok := b.(Int); ok {
			return NewDouble(x.F - float64(y)), nil
		}
	case *Array:
		if y, ok := b.(*Array); ok {
			items := make([]Value, 0, len(x.Items))
			for _, v := range x.Items {
				found := false
				for _, r := range y.Items {
					if Equal(v, r) {
						found = true
						break
					}
				}
				if !found {
					items = append(items, v)
				}
			}
			return &Array{Items: items}, nil
		}
	}
	return nil, fmt.Errorf("%s and %s cannot be subtracted", a.TypeName(), b.TypeName())
}

func arithMul(a, b Value) (Value, error) {
	switch x := a.(type) {
	case Int:
		if y, ok := b.(Int); ok {
			prod := int64(x) * int64(y)
			if overflowedMul(int64(x), int64(y), prod) {
				return NewDouble(float64(x) * float64(y)), nil
			}
			return Int(prod), nil
		}
		if y, ok := b.(Double); ok {
			return NewDouble(float64(x) * y.F), nil
		}
	case Double:
		if y, ok := b.(Double); ok {
			return NewDouble(x.F * y.F), nil
		}
		if y, ok := b.(Int); ok {
			return NewDouble(x.F * float64(y)), nil
		}
	case *Object:
		if y, ok := b.(*Object); ok {
			return recursiveMergeObjects(x, y), nil
		}
	case String:
		if n, ok := numericRepeatCount(b); ok {
			return repeatString(string(x), n)
		}
	}
	if s, ok := b.(String); ok {
		if n, ok := numericRepeatCount(a); ok {
			return repeatString(string(s), n)
		}
	}
	if _, ok := a.(Null); ok {
		return NullValue, nil
	}
	if _, ok := b.(Null); ok {
		return NullValue, nil
	}
	return nil, fmt.Errorf("%s and %s cannot be multiplied", a.TypeName(), b.TypeName())
}

// numericRepeatCount extracts the repeat count for string*number,
// returning false for non-numeric operands so arithMul's caller can fall
// through to the error case.
func numericRepeatCount(v Value) (int64, bool) {
	switch x := v.(type) {
	case Int:
		return int64(x), true
	case Double:
		if math.IsNaN(x.F) {
			return 0, true // caller treats n<=0 as empty/null
		}
		return int64(x.F), true
	default:
		return 0, false
	}
}

func repeatString(s string, n int64) (Value, error) {
	if n < 0 {
		return NullValue, nil
	}
	if n == 0 || s == "" {
		return String(""), nil
	}
	total := uint64(n) * uint64(len(s))
	if total > maxStringRepeat {
		return nil, fmt.Errorf("repeat string result too long")
	}
	return String(strings.Repeat(s, int(n))), nil
}

func arithDiv(a, b Value) (Value, error) {
	switch x := a.(type) {
	case Int:
		switch y := b.(type) {
		case Int:
			if y == 0 {
				return nil, fmt.Errorf("number (%v) and number (0) cannot be divided because the divisor is zero", x)
			}
			if x%y == 0 && !(x == Int(math.MinInt64) && y == -1) {
				return Int(int64(x) / int64(y)), nil
			}
			return NewDouble(float64(x) / float64(y)), nil
		case Double:
			if y.F == 0 {
				return nil, fmt.Errorf("number (%v) and number (0) cannot be divided because the divisor is zero", x)
			}
			return NewDouble(float64(x) / y.F), nil
		}
	case Double:
		switch y := b.(type) {
		case Double:
			if y.F == 0 {
				return nil, fmt.Errorf("number and number (0) cannot be divided because the divisor is zero")
			}
			return NewDouble(x.F / y.F), nil
		case Int:
			if y == 0 {
				return nil, fmt.Errorf("number and number (0) cannot be divided because the divisor is zero")
			}
			return NewDouble(x.F / float64(y)), nil
		}
	case String:
		if sep, ok := b.(String); ok {
			parts := strings.Split(string(x), string(sep))
			items := make([]Value, len(parts))
			for i, p := range parts {
				items[i] = String(p)
			}
			return &Array{Items: items}, nil
		}
	}
	return nil, fmt.Errorf("%s and %s cannot be divided", a.TypeName(), b.TypeName())
}

func arithMod(a, b Value) (Value, error) {
	switch x := a.(type) {
	case Int:
		y, ok := b.(Int)
		if !ok {
			return nil, fmt.Errorf("%s and %s cannot be divided (remainder)", a.TypeName(), b.TypeName())
		}
		if y == 0 {
			return nil, fmt.Errorf("number (%v) and number (0) cannot be divided (remainder) because the divisor is zero", x)
		}
		if x == Int(math.MinInt64) && y == -1 {
			return Int(0), nil
		}
		return Int(int64(x) % int64(y)), nil
	case Double:
		bf, ok := AsFloat64(b)
		if !ok {
			return nil, fmt.Errorf("%s and %s cannot be divided (remainder)", a.TypeName(), b.TypeName())
		}
		if bf == 0 {
			return nil, fmt.Errorf("number and number (0) cannot be divided (remainder) because the divisor is zero")
		}
		r := math.Mod(x.F, bf)
		if math.IsNaN(r) && !math.IsNaN(x.F) && !math.IsNaN(bf) {
			return NewDouble(0), nil
		}
		return NewDouble(r), nil
	default:
		return nil, fmt.Errorf("%s and %s cannot be divided (remainder)", a.TypeName(), b.TypeName())
	}
}

func shallowMergeObjects(a, b *Object) *Object {
	result := a
	for _, p := range b.Pairs {
		result = result.Set(p.Key, p.Value)
	}
	return result
}

func recursiveMergeObjects(a, b *Object) *Object {
	result := a
	for _, p := range b.Pairs {
		if existing, ok := result.Get(p.Key); ok {
			eo, eok := existing.(*Object)
			po, pok := p.Value.(*Object)
			if eok && pok {
				result = result.Set(p.Key, recursiveMergeObjects(eo, po))
				continue
			}
		}
		result = result.Set(p.Key, p.Value)
	}
	return result
}

func overflowedAdd(a, b, sum int64) bool {
	return (b > 0 && sum < a) || (b < 0 && sum > a)
}

func overflowedSub(a, b, diff int64) bool {
	return (b < 0 && diff < a) || (b > 0 && diff > a)
}

func overflowedMul(a, b, prod int64) bool {
	if a == 0 || b == 0 {
		return false
	}
	if a == -1 && b == math.MinInt64 {
		return true
	}
	return prod/b != a
}

// FormatNumber renders a jq "number" textual form for strconv-level
// builtins such as tostring, independent of the display rules the output
// serialiser applies to a whole document.
func FormatNumber(v Value) string {
	switch x := v.(type) {
	case Int:
		return strconv.FormatInt(int64(x), 10)
	case Double:
		return FormatDouble(x.F)
	default:
		return v.String()
	}
}

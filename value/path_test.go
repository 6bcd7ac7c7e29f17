package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jqstream/jqstream/value"
)

func TestSetPathCreatesMissingContainers(t *testing.T) {
	t.Parallel()

	root := value.EmptyObject().Set("y", value.Int(1))
	result, err := value.SetPath(root, value.Path{value.Key("x"), value.Key("z")}, value.Int(2))
	require.NoError(t, err)

	obj := result.(*value.Object)
	x, ok := obj.Get("x")
	require.True(t, ok)
	xo := x.(*value.Object)
	z, ok := xo.Get("z")
	require.True(t, ok)
	assert.Equal(t, value.Int(2), z)

	// original untouched
	_, ok = root.Get("x")
	assert.False(t, ok)
}

func TestSetPathGrowsArraysWithNullPadding(t *testing.T) {
	t.Parallel()

	result, err := value.SetPath(value.NullValue, value.Path{value.Idx(2)}, value.String("z"))
	require.NoError(t, err)

	arr := result.(*value.Array)
	require.Len(t, arr.Items, 3)
	assert.Equal(t, value.NullValue, arr.Items[0])
	assert.Equal(t, value.NullValue, arr.Items[1])
	assert.Equal(t, value.String("z"), arr.Items[2])
}

func TestGetPathMissingYieldsNull(t *testing.T) {
	t.Parallel()

	root := value.EmptyObject()
	v, err := value.GetPath(root, value.Path{value.Key("missing")})
	require.NoError(t, err)
	assert.Equal(t, value.NullValue, v)
}

func TestDelPathOutOfBoundsIsNoop(t *testing.T) {
	t.Parallel()

	root := value.NewArray([]value.Value{value.Int(1), value.Int(2)})
	result, err := value.DelPath(root, value.Path{value.Idx(10)})
	require.NoError(t, err)
	assert.Same(t, root, result)
}

func TestDelPathRemovesElement(t *testing.T) {
	t.Parallel()

	root := value.NewArray([]value.Value{value.Int(1), value.Int(2), value.Int(3)})
	result, err := value.DelPath(root, value.Path{value.Idx(1)})
	require.NoError(t, err)
	arr := result.(*value.Array)
	assert.Equal(t, []value.Value{value.Int(1), value.Int(3)}, arr.Items)
}

func TestEnumLeafPaths(t *testing.T) {
	t.Parallel()

	root := value.EmptyObject().
		Set("a", value.NewArray([]value.Value{value.Int(1), value.Int(2)})).
		Set("b", value.Int(3))

	var got [][]value.Segment
	value.EnumPaths(root, false, func(p value.Path, v value.Value) bool {
		got = append(got, p)
		return true
	})

	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0][0].Key)
	assert.Equal(t, 0, got[0][1].Index)
	assert.Equal(t, "a", got[1][0].Key)
	assert.Equal(t, 1, got[1][1].Index)
	assert.Equal(t, "b", got[2][0].Key)
}

func TestPathValueRoundTrip(t *testing.T) {
	t.Parallel()

	p := value.Path{value.Key("a"), value.Idx(3)}
	v := value.PathToValue(p)
	back, err := value.PathFromValue(v)
	require.NoError(t, err)
	assert.Equal(t, p, back)
}

package datum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/vrindex/internal/apperr"
)

func TestGet_Widenings(t *testing.T) {
	i := New(Int(7))
	f, err := i.AsFloat()
	require.NoError(t, err)
	assert.Equal(t, 7.0, f)

	arr, err := i.AsIntArray()
	require.NoError(t, err)
	assert.Equal(t, []int{7}, arr)

	fl := New(Float(3.9))
	n, err := fl.AsInt()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	farr, err := fl.AsFloatArray()
	require.NoError(t, err)
	assert.Equal(t, []float64{3.9}, farr)

	s := New(String("hi"))
	sarr, err := s.AsStringArray()
	require.NoError(t, err)
	assert.Equal(t, []string{"hi"}, sarr)
}

func TestGet_Mismatch(t *testing.T) {
	s := New(String("hi"))
	_, err := s.AsInt()
	assert.ErrorIs(t, err, apperr.ErrTypeMismatch)

	c := New(Container{"a"})
	_, err = Get[String](c)
	assert.ErrorIs(t, err, apperr.ErrTypeMismatch)

	arr := New(IntArray{1, 2})
	_, err = arr.AsInt()
	assert.ErrorIs(t, err, apperr.ErrTypeMismatch)
}

func TestSetValue_TypeIsFixed(t *testing.T) {
	d := New(Int(1))
	require.NoError(t, d.SetValue(Int(2)))
	err := d.SetValue(String("x"))
	assert.ErrorIs(t, err, apperr.ErrTypeMismatch)
	n, _ := d.AsInt()
	assert.Equal(t, 2, n)
}

func TestValue_IsACopy(t *testing.T) {
	d := New(IntArray{1, 2, 3})
	v := d.Value().(IntArray)
	v[0] = 99
	got, _ := d.AsIntArray()
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestAddToContainer_DedupesAndKeepsOrder(t *testing.T) {
	d := New(Container{"b", "a"})
	require.NoError(t, d.AddToContainer([]string{"c", "a", "d", "c"}))
	assert.Equal(t, []string{"b", "a", "c", "d"}, d.Children())

	require.NoError(t, d.RemoveFromContainer("a"))
	assert.Equal(t, []string{"b", "c", "d"}, d.Children())

	err := New(Int(1)).AddToContainer([]string{"x"})
	assert.ErrorIs(t, err, apperr.ErrTypeMismatch)
}

func TestPushPop_RestoresValueAndAttributes(t *testing.T) {
	d := New(Float(4.5))
	d.SetAttribute("unit", "ft")

	d.Push()
	require.Len(t, d.frames, 1, "push alone must not copy")
	require.NoError(t, d.SetValue(Float(9.0)))
	d.SetAttribute("unit", "m")
	d.SetAttribute("extra", "yes")
	require.Len(t, d.frames, 2)

	assert.False(t, d.Pop())
	f, _ := d.AsFloat()
	assert.Equal(t, 4.5, f)
	assert.Equal(t, map[string]string{"unit": "ft"}, d.Attributes())
}

func TestPushPop_NoWriteNoFrame(t *testing.T) {
	d := New(Int(1))
	d.Push()
	assert.False(t, d.Pop())
	assert.Len(t, d.frames, 1)
	n, _ := d.AsInt()
	assert.Equal(t, 1, n)
}

func TestPushPop_Nested(t *testing.T) {
	d := New(Int(1))
	d.Push()
	require.NoError(t, d.SetValue(Int(2)))
	d.Push()
	d.Push()
	require.NoError(t, d.SetValue(Int(3)))

	assert.False(t, d.Pop())
	n, _ := d.AsInt()
	assert.Equal(t, 2, n)

	assert.False(t, d.Pop())
	n, _ = d.AsInt()
	assert.Equal(t, 2, n)

	assert.False(t, d.Pop())
	n, _ = d.AsInt()
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, d.Depth())
}

func TestPop_CreatedAfterPushSignalsDelete(t *testing.T) {
	d := New(String("late"))
	assert.True(t, d.Pop())
}

func TestClone_Independent(t *testing.T) {
	d := New(StringArray{"a", "b"})
	d.SetAttribute("k", "v")
	c := d.Clone()
	require.NoError(t, c.SetValue(StringArray{"z"}))
	c.SetAttribute("k", "w")

	got, _ := d.AsStringArray()
	assert.Equal(t, []string{"a", "b"}, got)
	v, _ := d.Attribute("k")
	assert.Equal(t, "v", v)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	typ, err := r.Lookup("floatarray")
	require.NoError(t, err)
	assert.Equal(t, TypeFloatArray, typ)

	_, err = r.Lookup("matrix")
	assert.ErrorIs(t, err, apperr.ErrTypeMismatch)

	require.NoError(t, r.Register("double", TypeFloat))
	typ, err = r.Lookup("double")
	require.NoError(t, err)
	assert.Equal(t, "float", typ.String())

	other := NewRegistry()
	_, err = other.Lookup("double")
	assert.Error(t, err)
}

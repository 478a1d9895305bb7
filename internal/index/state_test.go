package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/vrindex/internal/apperr"
	"github.com/starford/vrindex/internal/datum"
)

func TestPushPopState_RollsBack(t *testing.T) {
	ix := New()
	_, err := ix.AddData("/a/x", datum.Int(1))
	require.NoError(t, err)
	require.NoError(t, ix.SetAttribute("/a/x", "unit", "m"))

	ix.PushState()

	_, err = ix.AddData("/a/x", datum.Int(2))
	require.NoError(t, err)
	require.NoError(t, ix.SetAttribute("/a/x", "unit", "ft"))
	require.NoError(t, ix.SetAttribute("/a/x", "note", "temp"))
	_, err = ix.AddData("/a/y", datum.String("late"))
	require.NoError(t, err)
	_, err = ix.AddData("/b/z", datum.Float(1))
	require.NoError(t, err)

	require.NoError(t, ix.PopState())

	x, err := ix.Datum("/a/x", Root)
	require.NoError(t, err)
	n, _ := x.AsInt()
	assert.Equal(t, 1, n)
	assert.Equal(t, map[string]string{"unit": "m"}, x.Attributes())

	assert.False(t, ix.Exists("/a/y", Root))
	assert.False(t, ix.Exists("/b/z", Root))
	assert.False(t, ix.Exists("/b", Root))

	a, _ := ix.Datum("/a", Root)
	assert.Equal(t, []string{"x"}, a.Children())
}

func TestPushPopState_Nested(t *testing.T) {
	ix := New()
	_, err := ix.AddData("/v", datum.Int(1))
	require.NoError(t, err)

	ix.PushState()
	_, _ = ix.AddData("/v", datum.Int(2))
	ix.PushState()
	_, _ = ix.AddData("/v", datum.Int(3))
	_, _ = ix.AddData("/w", datum.Int(9))

	require.NoError(t, ix.PopState())
	assert.Equal(t, datum.Int(2), GetValueWithDefault(ix, "/v", Root, datum.Int(0)))
	assert.False(t, ix.Exists("/w", Root))

	require.NoError(t, ix.PopState())
	assert.Equal(t, datum.Int(1), GetValueWithDefault(ix, "/v", Root, datum.Int(0)))
}

func TestPushPopState_AliasPushedOnce(t *testing.T) {
	ix := New()
	_, err := ix.AddData("/src", datum.Int(1))
	require.NoError(t, err)
	require.NoError(t, ix.LinkNode("/src", "/alias"))

	ix.PushState()
	_, _ = ix.AddData("/alias", datum.Int(5))
	require.NoError(t, ix.PopState())

	assert.Equal(t, datum.Int(1), GetValueWithDefault(ix, "/src", Root, datum.Int(0)))
	assert.True(t, ix.Exists("/alias", Root))
	d, _ := ix.Datum("/src", Root)
	assert.Equal(t, 0, d.Depth())
}

func TestPopState_UnbindsLinksMadeAfterPush(t *testing.T) {
	ix := New()
	_, err := ix.AddData("/a/v", datum.Int(1))
	require.NoError(t, err)
	_, err = ix.AddData("/b/keep", datum.Int(2))
	require.NoError(t, err)

	ix.PushState()
	_, err = ix.AddSerializedValue(`<b><late linkNode="/a/v"/></b>`, Root)
	require.NoError(t, err)
	require.True(t, ix.Exists("/b/late", Root))
	require.NoError(t, ix.PopState())

	assert.False(t, ix.Exists("/b/late", Root))
	b, _ := ix.Datum("/b", Root)
	assert.Equal(t, []string{"keep"}, b.Children())
	assert.Equal(t, datum.Int(1), GetValueWithDefault(ix, "/a/v", Root, datum.Int(0)))
}

func TestPopState_UnbindsLinkContentAfterPush(t *testing.T) {
	ix := New()
	_, err := ix.AddSerializedValue(`<MVR><shared><p>1</p></shared><win><first>0</first></win></MVR>`, Root)
	require.NoError(t, err)
	before := ix.Names()

	ix.PushState()
	_, err = ix.AddSerializedValue(`<win><slot linkContent="/MVR/shared"/></win>`, "/MVR")
	require.NoError(t, err)
	require.True(t, ix.Exists("/MVR/win/p", Root))
	require.NoError(t, ix.PopState())

	assert.Equal(t, before, ix.Names())
	win, _ := ix.Datum("/MVR/win", Root)
	assert.Equal(t, []string{"first"}, win.Children())
}

func TestPopState_RestoresRelinkedName(t *testing.T) {
	ix := New()
	_, err := ix.AddData("/a", datum.Int(1))
	require.NoError(t, err)
	_, err = ix.AddData("/t", datum.Int(7))
	require.NoError(t, err)
	orig, _ := ix.Datum("/t", Root)

	ix.PushState()
	require.NoError(t, ix.LinkNode("/a", "/t"))
	require.Equal(t, datum.Int(1), GetValueWithDefault(ix, "/t", Root, datum.Int(0)))
	require.NoError(t, ix.PopState())

	assert.Equal(t, datum.Int(7), GetValueWithDefault(ix, "/t", Root, datum.Int(0)))
	got, _ := ix.Datum("/t", Root)
	assert.Same(t, orig, got)
	assert.Equal(t, 0, orig.Depth())
}

func TestPopState_WithoutPush(t *testing.T) {
	ix := New()
	_, err := ix.AddData("/a/v", datum.Int(1))
	require.NoError(t, err)

	assert.ErrorIs(t, ix.PopState(), apperr.ErrNoPushedState)
	assert.Equal(t, 2, ix.Len())

	ix.PushState()
	assert.Equal(t, 1, ix.StateDepth())
	require.NoError(t, ix.PopState())
	assert.Equal(t, 0, ix.StateDepth())
	assert.ErrorIs(t, ix.PopState(), apperr.ErrNoPushedState)
	assert.True(t, ix.Exists("/a/v", Root))
}

func TestClone_KeepsPushedBindings(t *testing.T) {
	ix := New()
	_, err := ix.AddData("/v", datum.Int(1))
	require.NoError(t, err)
	ix.PushState()
	_, err = ix.AddData("/w", datum.Int(2))
	require.NoError(t, err)

	cp := ix.Clone()
	require.NoError(t, cp.PopState())
	assert.False(t, cp.Exists("/w", Root))
	assert.True(t, ix.Exists("/w", Root))
	assert.Equal(t, 1, ix.StateDepth())
}

func TestClone_PreservesAliasing(t *testing.T) {
	ix, err := FromSerialized(`<MVR><a><v>1</v></a><b linkNode="/a"/></MVR>`)
	require.NoError(t, err)

	cp := ix.Clone()
	_, err = cp.AddData("/a/v", datum.Int(5))
	require.NoError(t, err)

	assert.Equal(t, datum.Int(5), GetValueWithDefault(cp, "/b/v", Root, datum.Int(0)))
	assert.Equal(t, datum.Int(1), GetValueWithDefault(ix, "/a/v", Root, datum.Int(0)))
	assert.Equal(t, datum.Int(1), GetValueWithDefault(ix, "/b/v", Root, datum.Int(0)))

	ca, _ := cp.Datum("/a", Root)
	cb, _ := cp.Datum("/b", Root)
	assert.Same(t, ca, cb)
	oa, _ := ix.Datum("/a", Root)
	assert.NotSame(t, oa, ca)
	assert.Equal(t, ix.Name(), cp.Name())
}

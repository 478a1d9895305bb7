package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/vrindex/internal/apperr"
	"github.com/starford/vrindex/internal/datum"
)

const stanley = `<stanley>
	<height>4.5</height>
	<blanche><height>3.2</height></blanche>
	<stella><eyes>blue</eyes></stella>
</stanley>`

func loadStanley(t *testing.T) *Index {
	t.Helper()
	ix := New()
	_, err := ix.AddSerializedValue(stanley, Root)
	require.NoError(t, err)
	return ix
}

func TestResolve_InnermostWins(t *testing.T) {
	ix := loadStanley(t)

	h, err := Get[datum.Float](ix, "height", "/stanley/blanche/")
	require.NoError(t, err)
	assert.Equal(t, datum.Float(3.2), h)

	h, err = Get[datum.Float](ix, "height", "/stanley/stella/")
	require.NoError(t, err)
	assert.Equal(t, datum.Float(4.5), h)

	full, err := ix.FullKey("height", "stanley/stella")
	require.NoError(t, err)
	assert.Equal(t, "/stanley/height", full)
}

func TestResolve_Failures(t *testing.T) {
	ix := loadStanley(t)

	_, err := ix.GetValue("eyes", "/stanley/blanche/")
	assert.ErrorIs(t, err, apperr.ErrNameNotFound)

	_, err = ix.GetValue("height", "/stanley/nobody/")
	assert.ErrorIs(t, err, apperr.ErrInvalidNamespace)

	_, err = ix.GetValue("/stanley/nobody", Root)
	assert.ErrorIs(t, err, apperr.ErrNameNotFound)

	assert.False(t, ix.Exists("eyes", "/stanley/"))
	assert.True(t, ix.Exists("eyes", "/stanley/stella"))
	assert.True(t, ix.Exists("/stanley/stella/eyes", "/anything/at/all"))
}

func TestValidateNamespace(t *testing.T) {
	ix := loadStanley(t)

	for in, want := range map[string]string{
		"":                 "/",
		"/":                "/",
		"stanley":          "/stanley/",
		"/stanley/blanche": "/stanley/blanche/",
	} {
		got, err := ix.ValidateNamespace(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ix.ValidateNamespace("/stanley/height")
	assert.ErrorIs(t, err, apperr.ErrInvalidNamespace, "a non-container is not a namespace")
}

func TestGetValueWithDefault(t *testing.T) {
	ix := loadStanley(t)

	assert.Equal(t, datum.Float(3.2), GetValueWithDefault(ix, "height", "/stanley/blanche", datum.Float(0)))
	assert.Equal(t, datum.Int(7), GetValueWithDefault(ix, "weight", "/stanley", datum.Int(7)))
	assert.Equal(t, datum.String("x"), GetValueWithDefault(ix, "height", "/stanley", datum.String("x")))
	assert.Equal(t, datum.Int(1), GetValueWithDefault(ix, "height", "/missing/ns", datum.Int(1)))
}

func TestGet_Widening(t *testing.T) {
	ix := loadStanley(t)
	arr, err := Get[datum.FloatArray](ix, "/stanley/height", Root)
	require.NoError(t, err)
	assert.Equal(t, datum.FloatArray{4.5}, arr)

	n, err := Get[datum.Int](ix, "/stanley/height", Root)
	require.NoError(t, err)
	assert.Equal(t, datum.Int(4), n)

	_, err = Get[datum.Int](ix, "/stanley/stella/eyes", Root)
	assert.ErrorIs(t, err, apperr.ErrTypeMismatch)
}

func TestAttributes(t *testing.T) {
	ix := loadStanley(t)

	require.NoError(t, ix.SetAttribute("/stanley/stella/eyes", "shade", "dark"))
	v, err := ix.Attribute("/stanley/stella/eyes", "shade")
	require.NoError(t, err)
	assert.Equal(t, "dark", v)
	assert.True(t, ix.HasAttribute("/stanley/stella/eyes", "shade"))
	assert.False(t, ix.HasAttribute("/stanley/stella/eyes", "tint"))

	_, err = ix.Attribute("/stanley/stella/eyes", "tint")
	assert.ErrorIs(t, err, apperr.ErrNameNotFound)
	assert.ErrorIs(t, ix.SetAttribute("/nobody", "a", "b"), apperr.ErrNameNotFound)
}

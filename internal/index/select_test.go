package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/vrindex/internal/apperr"
	"github.com/starford/vrindex/internal/datum"
)

const royals = `<MVR><!-- some of the children of John I --><John name="Lackland"><Isabella name="Angouleme"><Henry seq="III" title="King">1</Henry> <Richard title="Earl of Cornwall">2</Richard> <Joan title="Queen Consort">3</Joan> <Isabella title="Queen Consort">4</Isabella> <Eleanor type="string">5</Eleanor> </Isabella><Joan title="Lady of Wales"><Richard name="FitzRoy">6</Richard><Oliver name="FitzRoy">7</Oliver></Joan> <Unknown><Geoffrey name="FitzRoy" type="string">8</Geoffrey><John name="FitzRoy">9</John> <Henry name="FitzRoy">10</Henry> <Osbert name="Gifford">11</Osbert> <Eudes name="FitzRoy">12</Eudes> <Bartholomew name="FitzRoy">13</Bartholomew> <Maud name="FitzRoy" title="Abbess of Barking">14</Maud><Isabella name="FitzRoy">15</Isabella><Philip name="FitzRoy" type="string">16</Philip></Unknown> </John></MVR>`

func loadRoyals(t *testing.T) *Index {
	t.Helper()
	ix := New()
	_, err := ix.AddSerializedValue(royals, Root)
	require.NoError(t, err)
	return ix
}

func TestSelectByAttribute_AnyValue(t *testing.T) {
	got, err := loadRoyals(t).SelectByAttribute("name", Wildcard, Root, false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/MVR/John",
		"/MVR/John/Isabella",
		"/MVR/John/Joan/Oliver",
		"/MVR/John/Joan/Richard",
		"/MVR/John/Unknown/Bartholomew",
		"/MVR/John/Unknown/Eudes",
		"/MVR/John/Unknown/Geoffrey",
		"/MVR/John/Unknown/Henry",
		"/MVR/John/Unknown/Isabella",
		"/MVR/John/Unknown/John",
		"/MVR/John/Unknown/Maud",
		"/MVR/John/Unknown/Osbert",
		"/MVR/John/Unknown/Philip",
	}, got)
}

func TestSelectByAttribute_Value(t *testing.T) {
	ix := loadRoyals(t)

	got, err := ix.SelectByAttribute("name", "FitzRoy", Root, false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/MVR/John/Joan/Oliver",
		"/MVR/John/Joan/Richard",
		"/MVR/John/Unknown/Bartholomew",
		"/MVR/John/Unknown/Eudes",
		"/MVR/John/Unknown/Geoffrey",
		"/MVR/John/Unknown/Henry",
		"/MVR/John/Unknown/Isabella",
		"/MVR/John/Unknown/John",
		"/MVR/John/Unknown/Maud",
		"/MVR/John/Unknown/Philip",
	}, got)

	got, err = ix.SelectByAttribute("name", "FitzRoy", "/MVR/John/Joan", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"/MVR/John/Joan/Oliver", "/MVR/John/Joan/Richard"}, got)
}

func TestSelectByAttribute_ChildOnly(t *testing.T) {
	ix := loadRoyals(t)

	got, err := ix.SelectByAttribute("name", Wildcard, "/MVR/John", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"/MVR/John/Isabella"}, got)

	_, err = ix.SelectByAttribute("name", Wildcard, "/MVR/Edward", true)
	assert.ErrorIs(t, err, apperr.ErrInvalidNamespace)
}

func TestSelectByType(t *testing.T) {
	got, err := loadRoyals(t).SelectByType(datum.TypeString, Root, false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/MVR/John/Isabella/Eleanor",
		"/MVR/John/Unknown/Geoffrey",
		"/MVR/John/Unknown/Philip",
	}, got)
}

func TestSelectByKey(t *testing.T) {
	ix := loadRoyals(t)

	assert.Equal(t, []string{"/MVR/John/Isabella/Eleanor"},
		ix.SelectByKey("/MVR/John/Isabella/Eleanor", ""))

	assert.Equal(t, []string{
		"/MVR/John/Isabella",
		"/MVR/John/Isabella/Eleanor",
		"/MVR/John/Isabella/Henry",
		"/MVR/John/Isabella/Isabella",
		"/MVR/John/Isabella/Joan",
		"/MVR/John/Isabella/Richard",
	}, ix.SelectByKey("John/Isabella", ""))

	assert.Equal(t, []string{
		"/MVR/John/Isabella/Isabella",
		"/MVR/John/Unknown/Isabella",
	}, ix.SelectByKey("John/*/Isabella", ""))

	assert.Equal(t, []string{
		"/MVR/John/Joan",
		"/MVR/John/Joan/Oliver",
		"/MVR/John/Joan/Richard",
	}, ix.SelectByKey("Joan", "/MVR/John/"))
	assert.Empty(t, ix.SelectByKey("/MVR/Edward", ""))
}

func TestIsChild(t *testing.T) {
	assert.Equal(t, 0, IsChild("/Norman/Bird/Sanctuary/", "/Norman/Bird/Sanctuary"))
	assert.Equal(t, 1, IsChild("/Norman/Bird/Sanctuary/", "/Norman/Bird/Sanctuary/Egret"))
	assert.Equal(t, 2, IsChild("/Norman/Bird/Sanctuary", "/Norman/Bird/Sanctuary/Egret/Baby"))
	assert.Equal(t, -1, IsChild("/Norman/Bird/Sanctuary", "/Norman/Bird/Egret"))
	assert.Equal(t, -1, IsChild("/Norman/Bird/Sanctuary", "hello darling"))
	assert.Equal(t, -1, IsChild("/Norman/Bird", "/Norman/Birdcage/Door"))
	assert.Equal(t, 1, IsChild("/", "/Norman"))
}

const armory = `<example><A><B weapon="BlueMace"><C title="Duke">1</C><D>2</D><E><F title="Duke">3</F><G weapon="GreenGun">4</G><H>5</H></E><J><K>6</K><L>7</L></J><M><N>8</N><P>9</P></M></B><Q title="Duke" weapon="RedSword">10</Q></A></example>`

func TestGetByAttribute(t *testing.T) {
	ix, err := FromSerialized(armory)
	require.NoError(t, err)
	assert.Equal(t, "example", ix.Name())

	cases := []struct {
		attr, val, ns, want string
	}{
		{"title", "Duke", "/A/B/E", "/A/B/E/F"},
		{"title", "Duke", "/A/B", "/A/B/C"},
		{"title", "Duke", "/A", "/A/Q"},
		{"title", "Duke", "/A/B/J", "/A/B/C"},
		{"weapon", Wildcard, "/A/B/J", "/A/B"},
		{"weapon", "GreenGun", "/A/B/E", "/A/B/E/G"},
	}
	for _, tc := range cases {
		got, err := ix.GetByAttribute(tc.attr, tc.val, tc.ns)
		require.NoError(t, err, "%s=%s in %s", tc.attr, tc.val, tc.ns)
		assert.Equal(t, tc.want, got, "%s=%s in %s", tc.attr, tc.val, tc.ns)
	}

	_, err = ix.GetByAttribute("title", "Earl", "/A")
	assert.ErrorIs(t, err, apperr.ErrNameNotFound)
}

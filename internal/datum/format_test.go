package datum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/vrindex/internal/apperr"
)

func TestParseValue_EscapedSeparator(t *testing.T) {
	v, err := ParseValue(TypeStringArray, `Alpha,Beta,Gamma\,Delta,Epsilon`, ',')
	require.NoError(t, err)
	assert.Equal(t, StringArray{"Alpha", "Beta", "Gamma,Delta", "Epsilon"}, v)
}

func TestFormatValue_EscapesSeparator(t *testing.T) {
	v := StringArray{"Alpha", "Gamma,Delta"}
	text := FormatValue(v, ',')
	assert.Equal(t, `Alpha,Gamma\,Delta`, text)

	back, err := ParseValue(TypeStringArray, text, ',')
	require.NoError(t, err)
	assert.Equal(t, v, back)
}

func TestFormatValue_StringArrayEdges(t *testing.T) {
	cases := map[string]struct {
		in   StringArray
		text string
	}{
		"trailing backslash":     {StringArray{`x\`, "y"}, `x\\,y`},
		"backslash before sep":   {StringArray{`a\,b`}, `a\\\,b`},
		"trailing empty":         {StringArray{"a", ""}, "a,,"},
		"single empty":           {StringArray{""}, ","},
		"empty in the middle":    {StringArray{"a", "", "b"}, "a,,b"},
		"plain backslash inside": {StringArray{`C:\dir`}, `C:\\dir`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			text := FormatValue(tc.in, ',')
			assert.Equal(t, tc.text, text)
			back, err := ParseValue(TypeStringArray, text, ',')
			require.NoError(t, err)
			assert.Equal(t, tc.in, back)
		})
	}
}

func TestSplitEscaped_LoneBackslashKept(t *testing.T) {
	assert.Equal(t, []string{`C:\dir`, "b"}, SplitEscaped(`C:\dir,b`, ','))
	assert.Equal(t, []string{"a", "b"}, SplitEscaped("a,b,", ','))
}

func TestValueString_SeparatorAttribute(t *testing.T) {
	d := New(IntArray{1, 2, 3})
	assert.Equal(t, "1,2,3", d.ValueString())
	d.SetAttribute(SeparatorAttr, "@")
	assert.Equal(t, "1@2@3", d.ValueString())
	assert.Equal(t, byte('@'), d.Separator())
}

func TestFormatFloat_AlwaysDecimal(t *testing.T) {
	assert.Equal(t, "3.0", FormatFloat(3))
	assert.Equal(t, "0.25", FormatFloat(0.25))
	assert.Equal(t, "1e+21", FormatFloat(1e21))
	assert.Equal(t, TypeFloat, InferType(FormatFloat(3), ','))
}

func TestParseValue_Arrays(t *testing.T) {
	v, err := ParseValue(TypeIntArray, " 1, 2 ,3,", ',')
	require.NoError(t, err)
	assert.Equal(t, IntArray{1, 2, 3}, v)

	v, err = ParseValue(TypeFloatArray, "1.5;2", ';')
	require.NoError(t, err)
	assert.Equal(t, FloatArray{1.5, 2}, v)

	_, err = ParseValue(TypeIntArray, "1,two", ',')
	assert.ErrorIs(t, err, apperr.ErrTypeMismatch)

	v, err = ParseValue(TypeIntArray, "", ',')
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestParseValue_Scalars(t *testing.T) {
	v, err := ParseValue(TypeInt, " 42 ", ',')
	require.NoError(t, err)
	assert.Equal(t, Int(42), v)

	_, err = ParseValue(TypeFloat, "abc", ',')
	assert.ErrorIs(t, err, apperr.ErrTypeMismatch)

	v, err = ParseValue(TypeString, " keep spaces ", ',')
	require.NoError(t, err)
	assert.Equal(t, String(" keep spaces "), v)
}

func TestInferType(t *testing.T) {
	cases := map[string]Type{
		"42":          TypeInt,
		"-3":          TypeInt,
		"4.5":         TypeFloat,
		"1e3":         TypeFloat,
		"<a>1</a>":    TypeContainer,
		"":            TypeContainer,
		"1,2,3":       TypeIntArray,
		"1.5,2":       TypeFloatArray,
		"red,green":   TypeString,
		"hello world": TypeString,
		"nan":         TypeString,
	}
	for text, want := range cases {
		assert.Equal(t, want, InferType(text, ','), "InferType(%q)", text)
	}
	assert.Equal(t, TypeIntArray, InferType("1@2", '@'))
}

func TestRoundTrip_EveryType(t *testing.T) {
	values := []Value{
		Int(-12),
		Float(2.5),
		String("a string, with comma"),
		IntArray{4, 5, 6},
		FloatArray{1.25, 3},
		StringArray{"x", "y,z"},
		Container{"one", "two"},
	}
	for _, v := range values {
		t.Run(v.Type().String(), func(t *testing.T) {
			back, err := ParseValue(v.Type(), FormatValue(v, ','), ',')
			require.NoError(t, err)
			assert.Equal(t, v, back)
		})
	}
}

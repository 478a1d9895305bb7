package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/vrindex/internal/apperr"
	"github.com/starford/vrindex/internal/element"
)

func TestParse_NestedWithAttributes(t *testing.T) {
	root, err := ParseString(`<bob type="container" note='single'><flora type="int">42</flora><pi>3.14</pi></bob>`)
	require.NoError(t, err)
	require.Equal(t, element.DocumentName, root.Name)
	require.Len(t, root.Children, 1)

	bob := root.Children[0]
	assert.Equal(t, "bob", bob.Name)
	assert.Equal(t, []element.Attr{{Name: "type", Value: "container"}, {Name: "note", Value: "single"}}, bob.Attrs)
	require.Len(t, bob.Children, 2)
	assert.Equal(t, "flora", bob.Children[0].Name)
	assert.Equal(t, "42", bob.Children[0].Value)
	assert.Equal(t, "3.14", bob.Children[1].Value)
	assert.Same(t, bob, bob.Children[0].Parent)
}

func TestParse_SelfClosingHasNoValue(t *testing.T) {
	root, err := ParseString(`<a><b linkNode="c"/><c/></a>`)
	require.NoError(t, err)
	a := root.Children[0]
	require.Len(t, a.Children, 2)
	b := a.Children[0]
	assert.False(t, b.HasValue)
	v, ok := b.Attr("linkNode")
	assert.True(t, ok)
	assert.Equal(t, "c", v)
	assert.Empty(t, a.Children[1].Attrs)
}

func TestParse_CommentsAndProcessingInstructions(t *testing.T) {
	root, err := ParseString("<?xml version=\"1.0\"?>\n<!-- a comment with <tags> -->\n<cfg>1</cfg>")
	require.NoError(t, err)
	require.Len(t, root.Children, 2)
	assert.True(t, root.Children[0].ProcInst)
	assert.Equal(t, "xml", root.Children[0].Name)
	assert.Equal(t, []*element.Element{root.Children[1]}, root.Elements())
	assert.Equal(t, "1", root.Children[1].Value)
}

func TestParse_TextTrimsControlWhitespaceOnly(t *testing.T) {
	root, err := ParseString("<s>\n\t  two  spaces \r\n</s>")
	require.NoError(t, err)
	assert.Equal(t, "  two  spaces ", root.Children[0].Value)
}

func TestParse_NewlinesBetweenTags(t *testing.T) {
	root, err := ParseString("<a>\n<b>1</b>\n<c>2</c>\n</a>\n")
	require.NoError(t, err)
	a := root.Children[0]
	assert.False(t, a.HasValue)
	assert.Len(t, a.Children, 2)
}

func TestParse_CDATA(t *testing.T) {
	root, err := ParseString("<s><![CDATA[a<b]]></s>")
	require.NoError(t, err)
	assert.Equal(t, "a<b", root.Children[0].Value)
}

func TestParse_MalformedInputFails(t *testing.T) {
	cases := map[string]string{
		"truncated tag":     "<a",
		"unclosed element":  "<a><b>1</b>",
		"mismatched close":  "<a></b>",
		"stray close":       "</a>",
		"unquoted value":    "<a x=1></a>",
		"unterminated attr": `<a x="1></a>`,
		"missing equals":    `<a x "1"></a>`,
		"bad self close":    "<a/ >",
		"open comment":      "<a><!-- never closed",
		"empty name":        "<></>",
		"unterminated pi":   `<?xml version="1.0"`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseString(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrMalformedInput)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	root, err := ParseString("")
	require.NoError(t, err)
	assert.Empty(t, root.Children)
}

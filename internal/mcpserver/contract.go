package mcpserver

// FormatContract describes the markup accepted by add_entries and the source
// files. LLM consumers should read it before writing entries.
const FormatContract = `# vrindex Entry Format Contract

Entries are written as nested XML-like elements. Every element becomes one
entry; its name is the element name joined to the names of its parents with
"/" (for example ` + "`/MVR/Display/width`" + `).

## Structure

` + "```" + `xml
<MVR>
  <Display title="desk">
    <width>1280</width>
    <height type="int">720</height>
    <eyes type="floatarray">-0.032,0.032</eyes>
  </Display>
  <Cave>
    <wall linkNode="/MVR/Display"/>
  </Cave>
</MVR>
` + "```" + `

## Rules

1. **Types.** An element with child elements is a ` + "`container`" + `. A leaf
   holds ` + "`int`, `float`, `string`, `intarray`, `floatarray` or `stringarray`" + `.
   Without a ` + "`type`" + ` attribute the type is inferred from the text.
2. **Containers hold no text.** Text next to child elements is rejected.
3. **Arrays** are separated by "," unless a ` + "`separator`" + ` attribute names
   another single character. Escape a literal separator with a backslash:
   ` + "`Gamma\\,Delta`" + `. A literal backslash is written twice.
4. **Attributes** other than the reserved ones are kept and can be selected on
   with select_by_attribute. A value may not contain both kinds of quote.
5. **Reserved attributes:** ` + "`type`, `separator`, `linkNode`, `linkContent`" + `.
6. **linkNode="source"** makes the element an alias of the source entry and its
   whole subtree. Writes through either name are seen by both.
7. **linkContent="source"** splices the children of the source container into
   the element's parent. The element itself is not stored.
8. **Names** are resolved from the namespace given with the call. A relative
   name is tried in that namespace first, then in each enclosing one.
9. **Text containing "<"** must be wrapped in ` + "`<![CDATA[ ... ]]>`" + `.

## Example: set two values under an existing container

Call add_entries with ns ` + "`/MVR/Display`" + ` and the markup:

` + "```" + `xml
<width>1920</width><height>1080</height>
` + "```" + `
`

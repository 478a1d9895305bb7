package index

import (
	"fmt"
	"slices"
	"strings"

	"github.com/starford/vrindex/internal/apperr"
	"github.com/starford/vrindex/internal/datum"
	"github.com/starford/vrindex/internal/element"
	"github.com/starford/vrindex/internal/parser"
)

// Reserved attribute names.
const (
	AttrType        = "type"
	AttrLinkNode    = "linkNode"
	AttrLinkContent = "linkContent"
)

// Serialize renders the entry name resolves to from ns. Containers nest their
// children in stored order. Serialize(Root, ...) renders the whole index.
func (ix *Index) Serialize(name, ns string) (string, error) {
	if name == Root {
		return ix.SerializeAll()
	}
	full, d, err := ix.GetEntry(name, ns)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := ix.writeEntry(&b, full, d, nil); err != nil {
		return "", err
	}
	return b.String(), nil
}

// SerializeAll wraps every root-level entry in a container tag named after
// the index.
func (ix *Index) SerializeAll() (string, error) {
	var roots []string
	for _, n := range ix.Names() {
		if strings.Count(n, "/") == 1 {
			roots = append(roots, n)
		}
	}

	var b strings.Builder
	b.WriteString("<" + ix.name + ` type="container"`)
	if len(roots) == 0 {
		b.WriteString("/>")
		return b.String(), nil
	}
	b.WriteString(">")
	for _, n := range roots {
		if err := ix.writeEntry(&b, n, ix.entries[n], nil); err != nil {
			return "", err
		}
	}
	b.WriteString("</" + ix.name + ">")
	return b.String(), nil
}

// checkAttrValue rejects values no quoting can carry: entities are not
// decoded, so a value holding both quote characters cannot be written back.
func checkAttrValue(name, value string) error {
	if strings.Contains(value, `"`) && strings.Contains(value, "'") {
		return fmt.Errorf("index: attribute %s holds both quote characters: %w", name, apperr.ErrMalformedInput)
	}
	return nil
}

func writeAttr(b *strings.Builder, name, value string) error {
	if err := checkAttrValue(name, value); err != nil {
		return err
	}
	q := `"`
	if strings.Contains(value, `"`) {
		q = "'"
	}
	b.WriteString(" " + name + "=" + q + value + q)
	return nil
}

// cdata wraps text in CDATA sections, splitting wherever text itself
// contains the section terminator.
func cdata(text string) string {
	return "<![CDATA[" + strings.ReplaceAll(text, "]]>", "]]]]><![CDATA[>") + "]]>"
}

// writeEntry emits one entry. parents holds the containers currently open so
// that a container aliased into its own subtree is reported, not followed.
func (ix *Index) writeEntry(b *strings.Builder, full string, d *datum.Datum, parents []*datum.Datum) error {
	if slices.Contains(parents, d) {
		return fmt.Errorf("index: %s contains itself: %w", full, apperr.ErrCircularReference)
	}
	trim := TrimName(full)
	b.WriteString("<" + trim)
	b.WriteString(" " + AttrType + `="` + d.Type().String() + `"`)
	for _, k := range d.AttributeNames() {
		v, _ := d.Attribute(k)
		if err := writeAttr(b, k, v); err != nil {
			return fmt.Errorf("index: serialize %s: %w", full, err)
		}
	}

	if d.Type() != datum.TypeContainer {
		b.WriteString(">")
		text := d.ValueString()
		if strings.Contains(text, "<") {
			text = cdata(text)
		}
		b.WriteString(text)
		b.WriteString("</" + trim + ">")
		return nil
	}

	children := d.Children()
	if len(children) == 0 {
		b.WriteString("/>")
		return nil
	}
	b.WriteString(">")
	parents = append(parents, d)
	for _, c := range children {
		cf := full + "/" + c
		cd, ok := ix.entries[cf]
		if !ok {
			return fmt.Errorf("index: container %s lists missing child %s: %w", full, c, apperr.ErrNameNotFound)
		}
		if err := ix.writeEntry(b, cf, cd, parents); err != nil {
			return err
		}
	}
	b.WriteString("</" + trim + ">")
	return nil
}

// AddSerializedValue parses text and inserts every top-level element under
// namespace ns, then resolves linkNode and linkContent directives. It returns
// the full name of the last top-level element. A failure part way through
// leaves whatever was inserted before it.
func (ix *Index) AddSerializedValue(text, ns string) (string, error) {
	root, err := parser.ParseString(text)
	if err != nil {
		return "", err
	}
	vns, err := ix.ValidateNamespace(ns)
	if err != nil {
		return "", err
	}

	links := newLinkSet()
	var last string
	for _, el := range root.Elements() {
		if last, err = ix.walk(el, vns, links); err != nil {
			return "", err
		}
	}
	if err := ix.resolveLinks(links); err != nil {
		return "", err
	}
	return last, nil
}

// FromSerialized builds an index from a whole-index serialization. The outer
// tag names the index and its children become root entries. Text that does
// not start with '<' is taken as the name of an empty index.
func FromSerialized(text string, opts ...Option) (*Index, error) {
	ix := New(opts...)
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ix, nil
	}
	if trimmed[0] != '<' {
		ix.name = trimmed
		return ix, nil
	}

	root, err := parser.ParseString(text)
	if err != nil {
		return nil, err
	}
	links := newLinkSet()
	for _, top := range root.Elements() {
		ix.name = top.Name
		for _, el := range top.Elements() {
			if _, err := ix.walk(el, Root, links); err != nil {
				return nil, err
			}
		}
	}
	if err := ix.resolveLinks(links); err != nil {
		return nil, err
	}
	return ix, nil
}

// elementType decides the type of el. An explicit type attribute wins. An
// element with no text or with child elements is a container. Anything else
// is inferred from its text.
func (ix *Index) elementType(el *element.Element, text string, sep byte) (datum.Type, error) {
	if name, ok := el.Attr(AttrType); ok {
		return ix.registry.Lookup(name)
	}
	if text == "" || el.HasChildren() {
		return datum.TypeContainer, nil
	}
	return datum.InferType(text, sep), nil
}

// walk inserts el and its subtree under ns, recording link directives.
func (ix *Index) walk(el *element.Element, ns string, links *linkSet) (string, error) {
	full := ns + el.Name
	text := strings.TrimSpace(el.Value)

	sep := byte(datum.DefaultSeparator)
	if s, ok := el.Attr(datum.SeparatorAttr); ok && s != "" {
		sep = s[0]
	}

	t, err := ix.elementType(el, text, sep)
	if err != nil {
		return "", fmt.Errorf("index: %s: %w", full, err)
	}
	if t == datum.TypeContainer && text != "" {
		return "", fmt.Errorf("index: container %s carries text %q: %w", full, text, apperr.ErrEmptyContainerRejected)
	}
	v, err := datum.ParseValue(t, text, sep)
	if err != nil {
		return "", fmt.Errorf("index: %s: %w", full, err)
	}

	d, wrote, err := ix.add(full, v)
	if err != nil {
		return "", err
	}
	if wrote {
		seen := make(map[string]bool, len(el.Attrs))
		for _, a := range el.Attrs {
			if a.Name == AttrType || seen[a.Name] {
				continue
			}
			seen[a.Name] = true
			d.SetAttribute(a.Name, a.Value)
		}
	}

	if src, ok := el.Attr(AttrLinkNode); ok {
		links.nodes[full] = src
	}
	if src, ok := el.Attr(AttrLinkContent); ok {
		links.contents[full] = src
	}

	for _, c := range el.Elements() {
		if _, err := ix.walk(c, full+"/", links); err != nil {
			return "", err
		}
	}
	return full, nil
}

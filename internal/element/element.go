// Package element defines the generic node produced by the markup parser.
package element

import "strings"

// DocumentName is the name of the synthetic root the parser wraps every document in.
const DocumentName = "XML_DOC"

// Attr is one name="value" pair on an element.
type Attr struct {
	Name  string
	Value string
}

// Element is a parsed markup node. Attrs keep first-seen order and Children keep
// document order. HasValue distinguishes an element with no text from one whose
// text is empty after trimming.
type Element struct {
	Name     string
	Value    string
	HasValue bool
	Attrs    []Attr
	Children []*Element
	Parent   *Element
	// ProcInst marks a <?...?> processing instruction.
	ProcInst bool
}

// New returns an empty element with the given name.
func New(name string) *Element {
	return &Element{Name: name}
}

// AddChild appends a new child named name and returns it.
func (e *Element) AddChild(name string) *Element {
	c := &Element{Name: name, Parent: e}
	e.Children = append(e.Children, c)
	return c
}

// AddAttr appends an attribute. Duplicates are kept; Attr returns the first.
func (e *Element) AddAttr(name, value string) {
	e.Attrs = append(e.Attrs, Attr{Name: name, Value: value})
}

// AppendValue adds text content to the element.
func (e *Element) AppendValue(text string) {
	e.Value += text
	e.HasValue = true
}

// Attr returns the value of the first attribute called name.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// HasChildren reports whether the element has any non-PI child elements.
func (e *Element) HasChildren() bool {
	for _, c := range e.Children {
		if !c.ProcInst {
			return true
		}
	}
	return false
}

// Elements returns the children that are not processing instructions.
func (e *Element) Elements() []*Element {
	out := make([]*Element, 0, len(e.Children))
	for _, c := range e.Children {
		if !c.ProcInst {
			out = append(out, c)
		}
	}
	return out
}

// String renders an indented outline of the tree, one element per line.
func (e *Element) String() string {
	var b strings.Builder
	e.write(&b, "")
	return b.String()
}

func (e *Element) write(b *strings.Builder, prefix string) {
	b.WriteString(prefix)
	if e.ProcInst {
		b.WriteString("?")
	}
	b.WriteString(e.Name)
	for _, a := range e.Attrs {
		b.WriteString(" " + a.Name + "=\"" + a.Value + "\"")
	}
	if e.HasValue && e.Value != "" {
		b.WriteString(" = " + e.Value)
	}
	b.WriteString("\n")
	for _, c := range e.Children {
		c.write(b, prefix+" | ")
	}
}

package datum

import (
	"fmt"
	"maps"
	"slices"

	"github.com/starford/vrindex/internal/apperr"
)

// SeparatorAttr overrides the list separator of a Datum.
const SeparatorAttr = "separator"

// DefaultSeparator joins array elements and container children.
const DefaultSeparator = ','

type frame struct {
	value Value
	attrs map[string]string
}

// Datum is a typed value cell. Several index names may point at the same
// *Datum; writes through any of them are seen by all.
//
// frames holds the history, the last entry is active. marks has one entry per
// outstanding Push; a true mark means the frame for that level was already
// duplicated by a write.
type Datum struct {
	typ    Type
	frames []frame
	marks  []bool
}

// New returns a Datum holding v with no attributes.
func New(v Value) *Datum {
	return &Datum{
		typ:    v.Type(),
		frames: []frame{{value: cloneValue(v), attrs: map[string]string{}}},
	}
}

// NewTyped returns a Datum of type t holding its zero value.
func NewTyped(t Type) (*Datum, error) {
	v, err := Zero(t)
	if err != nil {
		return nil, err
	}
	return New(v), nil
}

func (d *Datum) active() *frame { return &d.frames[len(d.frames)-1] }

// Type returns the tag fixed at creation.
func (d *Datum) Type() Type { return d.typ }

// Value returns a copy of the active value.
func (d *Datum) Value() Value { return cloneValue(d.active().value) }

// Children returns the child names of a container, nil for other types.
func (d *Datum) Children() []string {
	c, ok := d.active().value.(Container)
	if !ok {
		return nil
	}
	return slices.Clone(c)
}

// beforeWrite duplicates the active frame when a Push is still unrealised.
func (d *Datum) beforeWrite() {
	n := len(d.marks)
	if n == 0 || d.marks[n-1] {
		return
	}
	cur := d.active()
	d.frames = append(d.frames, frame{
		value: cloneValue(cur.value),
		attrs: maps.Clone(cur.attrs),
	})
	d.marks[n-1] = true
}

// SetValue replaces the active value. The type must match the Datum's tag.
func (d *Datum) SetValue(v Value) error {
	if v.Type() != d.typ {
		return fmt.Errorf("datum: set %v value on %v: %w", v.Type(), d.typ, apperr.ErrTypeMismatch)
	}
	d.beforeWrite()
	d.active().value = cloneValue(v)
	return nil
}

// AddToContainer appends the names not already listed, keeping their order.
func (d *Datum) AddToContainer(names []string) error {
	if d.typ != TypeContainer {
		return fmt.Errorf("datum: add children to %v: %w", d.typ, apperr.ErrTypeMismatch)
	}
	cur := d.active().value.(Container)
	var add []string
	for _, n := range names {
		if !slices.Contains(cur, n) && !slices.Contains(add, n) {
			add = append(add, n)
		}
	}
	if len(add) == 0 {
		return nil
	}
	next := append(slices.Clone(cur), add...)
	d.beforeWrite()
	d.active().value = next
	return nil
}

// RemoveFromContainer drops name from the child list if present.
func (d *Datum) RemoveFromContainer(name string) error {
	if d.typ != TypeContainer {
		return fmt.Errorf("datum: remove child from %v: %w", d.typ, apperr.ErrTypeMismatch)
	}
	cur := d.active().value.(Container)
	i := slices.Index(cur, name)
	if i < 0 {
		return nil
	}
	d.beforeWrite()
	d.active().value = slices.Delete(slices.Clone(cur), i, i+1)
	return nil
}

// Attribute returns the named attribute of the active frame.
func (d *Datum) Attribute(name string) (string, bool) {
	v, ok := d.active().attrs[name]
	return v, ok
}

// HasAttribute reports whether the attribute is set.
func (d *Datum) HasAttribute(name string) bool {
	_, ok := d.active().attrs[name]
	return ok
}

// SetAttribute sets an attribute on the active frame.
func (d *Datum) SetAttribute(name, value string) {
	if cur, ok := d.active().attrs[name]; ok && cur == value {
		return
	}
	d.beforeWrite()
	d.active().attrs[name] = value
}

// DeleteAttribute removes an attribute from the active frame.
func (d *Datum) DeleteAttribute(name string) {
	if !d.HasAttribute(name) {
		return
	}
	d.beforeWrite()
	delete(d.active().attrs, name)
}

// Attributes returns a copy of the active attribute map.
func (d *Datum) Attributes() map[string]string {
	return maps.Clone(d.active().attrs)
}

// AttributeNames returns the attribute names in sorted order.
func (d *Datum) AttributeNames() []string {
	return slices.Sorted(maps.Keys(d.active().attrs))
}

// Push opens a new history level. Nothing is copied until the next write.
func (d *Datum) Push() {
	d.marks = append(d.marks, false)
}

// Pop closes the innermost history level, discarding any write made since the
// matching Push. It returns true when the Datum has no level left to close,
// meaning it was created after that Push and the owner should drop it.
func (d *Datum) Pop() bool {
	n := len(d.marks)
	if n == 0 {
		return true
	}
	if d.marks[n-1] {
		d.frames = d.frames[:len(d.frames)-1]
	}
	d.marks = d.marks[:n-1]
	return false
}

// Depth is the number of outstanding pushes.
func (d *Datum) Depth() int { return len(d.marks) }

// Clone returns an independent copy, history included.
func (d *Datum) Clone() *Datum {
	out := &Datum{
		typ:    d.typ,
		frames: make([]frame, len(d.frames)),
		marks:  slices.Clone(d.marks),
	}
	for i, f := range d.frames {
		out.frames[i] = frame{value: cloneValue(f.value), attrs: maps.Clone(f.attrs)}
	}
	return out
}

// Separator returns the first byte of the separator attribute, or
// DefaultSeparator.
func (d *Datum) Separator() byte {
	if s, ok := d.Attribute(SeparatorAttr); ok && s != "" {
		return s[0]
	}
	return DefaultSeparator
}

// ValueString formats the active value using the Datum's separator.
func (d *Datum) ValueString() string {
	return FormatValue(d.active().value, d.Separator())
}

func (d *Datum) String() string {
	return fmt.Sprintf("(%v) %s", d.typ, d.ValueString())
}

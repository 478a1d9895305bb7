package index

import (
	"fmt"
	"strings"

	"github.com/starford/vrindex/internal/apperr"
	"github.com/starford/vrindex/internal/datum"
)

// ValidateNamespace normalises ns to "/a/b/" form and checks that the
// container it names exists. The root namespace always exists.
func (ix *Index) ValidateNamespace(ns string) (string, error) {
	out := ns
	if out == "" {
		out = Root
	}
	if !strings.HasPrefix(out, "/") {
		out = "/" + out
	}
	if !strings.HasSuffix(out, "/") {
		out += "/"
	}
	if out == Root {
		return out, nil
	}
	d, ok := ix.entries[strings.TrimSuffix(out, "/")]
	if !ok || d.Type() != datum.TypeContainer {
		return "", fmt.Errorf("index: no namespace called %q: %w", ns, apperr.ErrInvalidNamespace)
	}
	return out, nil
}

// resolve finds the fully-qualified name for name seen from ns. Absolute
// names are looked up directly. Relative names are tried under each prefix of
// ns, innermost first, down to the root.
func (ix *Index) resolve(name, ns string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("index: empty name: %w", apperr.ErrNameNotFound)
	}
	if strings.HasPrefix(name, "/") {
		full := strings.TrimRight(name, "/")
		if full == "" {
			return "", fmt.Errorf("index: the root namespace is not an entry: %w", apperr.ErrNameNotFound)
		}
		if _, ok := ix.entries[full]; !ok {
			return "", fmt.Errorf("index: never heard of %s: %w", name, apperr.ErrNameNotFound)
		}
		return full, nil
	}

	vns, err := ix.ValidateNamespace(ns)
	if err != nil {
		return "", err
	}
	parts := explode(vns)
	for n := len(parts); n >= 0; n-- {
		prefix := strings.Join(parts[:n], "/")
		full := prefix + "/" + name
		if _, ok := ix.entries[full]; ok {
			return full, nil
		}
	}
	return "", fmt.Errorf("index: never heard of %s in namespace %s: %w", name, vns, apperr.ErrNameNotFound)
}

// FullKey returns the fully-qualified name that name resolves to from ns.
func (ix *Index) FullKey(name, ns string) (string, error) {
	return ix.resolve(name, ns)
}

// GetEntry resolves name and returns its full name and datum.
func (ix *Index) GetEntry(name, ns string) (string, *datum.Datum, error) {
	full, err := ix.resolve(name, ns)
	if err != nil {
		return "", nil, err
	}
	return full, ix.entries[full], nil
}

// Datum returns the datum bound to name. Writes through it are seen by every
// alias.
func (ix *Index) Datum(name, ns string) (*datum.Datum, error) {
	_, d, err := ix.GetEntry(name, ns)
	return d, err
}

// GetValue returns a copy of the value bound to name.
func (ix *Index) GetValue(name, ns string) (datum.Value, error) {
	d, err := ix.Datum(name, ns)
	if err != nil {
		return nil, err
	}
	return d.Value(), nil
}

// Get reads name as T, applying the datum widenings.
func Get[T datum.Value](ix *Index, name, ns string) (T, error) {
	d, err := ix.Datum(name, ns)
	if err != nil {
		var zero T
		return zero, err
	}
	return datum.Get[T](d)
}

// GetValueWithDefault reads name as T and returns def on any failure.
func GetValueWithDefault[T datum.Value](ix *Index, name, ns string, def T) T {
	v, err := Get[T](ix, name, ns)
	if err != nil {
		return def
	}
	return v
}

// Exists reports whether name resolves from ns.
func (ix *Index) Exists(name, ns string) bool {
	_, err := ix.resolve(name, ns)
	return err == nil
}

// Type returns the type tag of the datum bound to name.
func (ix *Index) Type(name, ns string) (datum.Type, error) {
	d, err := ix.Datum(name, ns)
	if err != nil {
		return datum.TypeNone, err
	}
	return d.Type(), nil
}

// TypeName returns the serialized type name of the datum bound to name.
func (ix *Index) TypeName(name, ns string) (string, error) {
	t, err := ix.Type(name, ns)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

// Attribute returns an attribute of the entry with the given full key.
func (ix *Index) Attribute(fullKey, attr string) (string, error) {
	d, err := ix.Datum(fullKey, Root)
	if err != nil {
		return "", err
	}
	v, ok := d.Attribute(attr)
	if !ok {
		return "", fmt.Errorf("index: %s has no attribute %q: %w", fullKey, attr, apperr.ErrNameNotFound)
	}
	return v, nil
}

// HasAttribute reports whether the entry exists and carries attr.
func (ix *Index) HasAttribute(fullKey, attr string) bool {
	d, err := ix.Datum(fullKey, Root)
	return err == nil && d.HasAttribute(attr)
}

// SetAttribute sets an attribute on the entry with the given full key. A
// value holding both quote characters fails with apperr.ErrMalformedInput.
func (ix *Index) SetAttribute(fullKey, attr, value string) error {
	if err := checkAttrValue(attr, value); err != nil {
		return err
	}
	d, err := ix.Datum(fullKey, Root)
	if err != nil {
		return err
	}
	d.SetAttribute(attr, value)
	return nil
}

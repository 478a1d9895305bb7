// Package datum implements the typed value cell stored in an index: a tagged
// value, its attributes and a lazily duplicated push/pop history.
package datum

import (
	"fmt"
	"sort"

	"github.com/starford/vrindex/internal/apperr"
)

// Type is the immutable tag of a Datum.
type Type int

const (
	TypeNone Type = iota
	TypeInt
	TypeFloat
	TypeString
	TypeIntArray
	TypeFloatArray
	TypeStringArray
	TypeContainer
)

var typeNames = [...]string{
	TypeNone:        "none",
	TypeInt:         "int",
	TypeFloat:       "float",
	TypeString:      "string",
	TypeIntArray:    "intarray",
	TypeFloatArray:  "floatarray",
	TypeStringArray: "stringarray",
	TypeContainer:   "container",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// IsArray reports whether values of t are separator-joined lists.
func (t Type) IsArray() bool {
	return t == TypeIntArray || t == TypeFloatArray || t == TypeStringArray
}

// Registry maps serialized type names to type tags. Each index owns one, so
// extra aliases registered on one index do not leak into another.
type Registry struct {
	byName map[string]Type
}

// NewRegistry returns a registry preloaded with the canonical type names.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Type, len(typeNames))}
	for t := TypeInt; t <= TypeContainer; t++ {
		r.byName[t.String()] = t
	}
	return r
}

// Register adds an alias for t. Serialization keeps using the canonical name.
func (r *Registry) Register(name string, t Type) error {
	if t <= TypeNone || t > TypeContainer {
		return fmt.Errorf("datum: register %q: unknown type %v: %w", name, t, apperr.ErrTypeMismatch)
	}
	r.byName[name] = t
	return nil
}

// Lookup resolves a type name.
func (r *Registry) Lookup(name string) (Type, error) {
	t, ok := r.byName[name]
	if !ok {
		return TypeNone, fmt.Errorf("datum: no known type called %q: %w", name, apperr.ErrTypeMismatch)
	}
	return t, nil
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

package datum

import (
	"fmt"
	"slices"

	"github.com/starford/vrindex/internal/apperr"
)

// Value is the payload of a Datum. Exactly one concrete type exists per Type.
type Value interface {
	Type() Type
}

type (
	Int         int
	Float       float64
	String      string
	IntArray    []int
	FloatArray  []float64
	StringArray []string
	// Container lists the trimmed names of a namespace's children in stored order.
	Container []string
)

func (Int) Type() Type         { return TypeInt }
func (Float) Type() Type       { return TypeFloat }
func (String) Type() Type      { return TypeString }
func (IntArray) Type() Type    { return TypeIntArray }
func (FloatArray) Type() Type  { return TypeFloatArray }
func (StringArray) Type() Type { return TypeStringArray }
func (Container) Type() Type   { return TypeContainer }

// Zero returns the empty value of t.
func Zero(t Type) (Value, error) {
	switch t {
	case TypeInt:
		return Int(0), nil
	case TypeFloat:
		return Float(0), nil
	case TypeString:
		return String(""), nil
	case TypeIntArray:
		return IntArray{}, nil
	case TypeFloatArray:
		return FloatArray{}, nil
	case TypeStringArray:
		return StringArray{}, nil
	case TypeContainer:
		return Container{}, nil
	}
	return nil, fmt.Errorf("datum: no zero value for %v: %w", t, apperr.ErrTypeMismatch)
}

// cloneValue copies the backing array of slice payloads.
func cloneValue(v Value) Value {
	switch x := v.(type) {
	case IntArray:
		return slices.Clone(x)
	case FloatArray:
		return slices.Clone(x)
	case StringArray:
		return slices.Clone(x)
	case Container:
		return slices.Clone(x)
	}
	return v
}

// convert coerces v to type to. Besides the identity it allows Int and Float
// to read as each other (Float truncates) and any scalar to read as the
// one-element array of its own type.
func convert(v Value, to Type) (Value, error) {
	if v.Type() == to {
		return cloneValue(v), nil
	}
	switch x := v.(type) {
	case Int:
		switch to {
		case TypeFloat:
			return Float(x), nil
		case TypeIntArray:
			return IntArray{int(x)}, nil
		}
	case Float:
		switch to {
		case TypeInt:
			return Int(x), nil
		case TypeFloatArray:
			return FloatArray{float64(x)}, nil
		}
	case String:
		if to == TypeStringArray {
			return StringArray{string(x)}, nil
		}
	}
	return nil, fmt.Errorf("datum: cannot read %v as %v: %w", v.Type(), to, apperr.ErrTypeMismatch)
}

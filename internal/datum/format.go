package datum

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/vrindex/internal/apperr"
)

// FormatFloat renders f so that it always reads back as a float.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// FormatValue renders v as it appears between tags. In string arrays a
// backslash or sep inside an element is written with a backslash before it,
// and a trailing empty element gets an extra separator.
func FormatValue(v Value, sep byte) string {
	s := string(sep)
	switch x := v.(type) {
	case Int:
		return strconv.Itoa(int(x))
	case Float:
		return FormatFloat(float64(x))
	case String:
		return string(x)
	case IntArray:
		parts := make([]string, len(x))
		for i, n := range x {
			parts[i] = strconv.Itoa(n)
		}
		return strings.Join(parts, s)
	case FloatArray:
		parts := make([]string, len(x))
		for i, f := range x {
			parts[i] = FormatFloat(f)
		}
		return strings.Join(parts, s)
	case StringArray:
		esc := strings.NewReplacer(`\`, `\\`, s, `\`+s)
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = esc.Replace(e)
		}
		out := strings.Join(parts, s)
		if len(x) > 0 && x[len(x)-1] == "" {
			// SplitEscaped drops one trailing separator.
			out += s
		}
		return out
	case Container:
		return strings.Join(x, s)
	}
	return ""
}

// SplitEscaped splits text on sep. A backslash before sep or before another
// backslash makes that character literal; any other backslash is kept as is.
// A trailing separator does not produce an empty element.
func SplitEscaped(text string, sep byte) []string {
	if text == "" {
		return []string{}
	}
	var (
		out []string
		b   strings.Builder
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\\' && i+1 < len(text) && (text[i+1] == sep || text[i+1] == '\\') {
			b.WriteByte(text[i+1])
			i++
			continue
		}
		if c == sep {
			out = append(out, b.String())
			b.Reset()
			continue
		}
		b.WriteByte(c)
	}
	if b.Len() > 0 || len(out) == 0 {
		out = append(out, b.String())
	}
	return out
}

func splitNumbers(text string, sep byte) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts := strings.Split(text, string(sep))
	if strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ParseValue reads text as a value of type t.
func ParseValue(t Type, text string, sep byte) (Value, error) {
	switch t {
	case TypeInt:
		n, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return nil, fmt.Errorf("datum: %q is not an int: %w", text, apperr.ErrTypeMismatch)
		}
		return Int(n), nil
	case TypeFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, fmt.Errorf("datum: %q is not a float: %w", text, apperr.ErrTypeMismatch)
		}
		return Float(f), nil
	case TypeString:
		return String(text), nil
	case TypeIntArray:
		parts := splitNumbers(text, sep)
		out := make(IntArray, 0, len(parts))
		for _, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil {
				return nil, fmt.Errorf("datum: intarray element %q: %w", p, apperr.ErrTypeMismatch)
			}
			out = append(out, n)
		}
		return out, nil
	case TypeFloatArray:
		parts := splitNumbers(text, sep)
		out := make(FloatArray, 0, len(parts))
		for _, p := range parts {
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return nil, fmt.Errorf("datum: floatarray element %q: %w", p, apperr.ErrTypeMismatch)
			}
			out = append(out, f)
		}
		return out, nil
	case TypeStringArray:
		return StringArray(SplitEscaped(text, sep)), nil
	case TypeContainer:
		if strings.TrimSpace(text) == "" {
			return Container{}, nil
		}
		return Container(splitNumbers(text, sep)), nil
	}
	return nil, fmt.Errorf("datum: parse %v: %w", t, apperr.ErrTypeMismatch)
}

func isInt(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func isDecimal(s string) bool {
	if !strings.ContainsAny(s, "0123456789") {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// InferType guesses the type of untyped text: a pure integer is an int, a
// pure decimal is a float, a leading '<' marks a container, and text holding
// sep with a numeric head becomes the matching array. Anything else is a
// string.
func InferType(text string, sep byte) Type {
	s := strings.TrimSpace(text)
	switch {
	case s == "":
		return TypeContainer
	case isInt(s):
		return TypeInt
	case isDecimal(s):
		return TypeFloat
	case s[0] == '<':
		return TypeContainer
	}
	if i := strings.IndexByte(s, sep); i >= 0 {
		head := strings.TrimSpace(s[:i])
		switch {
		case isInt(head):
			return TypeIntArray
		case isDecimal(head):
			return TypeFloatArray
		}
	}
	return TypeString
}

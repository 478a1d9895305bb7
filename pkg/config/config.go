// Package config provides YAML-based configuration loading with environment variable expansion.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnresolvedVariable is returned when a ${VAR} reference names an unset
// variable or is not closed.
var ErrUnresolvedVariable = errors.New("unresolved environment variable")

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// ExpandEnv replaces every ${NAME} in s with the value of the environment
// variable NAME. ${NAME:-fallback} uses fallback when NAME is unset. A bare $
// not followed by { is left alone. Every reference must resolve.
func ExpandEnv(s string) (string, error) {
	return expand(s, os.LookupEnv)
}

func expand(s string, lookup func(string) (string, bool)) (string, error) {
	var b strings.Builder
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			b.WriteString(s)
			return b.String(), nil
		}
		end := strings.IndexByte(s[start:], '}')
		if end < 0 {
			return "", fmt.Errorf("%w: unterminated reference in %q", ErrUnresolvedVariable, s)
		}
		ref := s[start+2 : start+end]
		name, fallback, hasFallback := strings.Cut(ref, ":-")
		if name == "" {
			return "", fmt.Errorf("%w: empty reference in %q", ErrUnresolvedVariable, s)
		}
		val, ok := lookup(name)
		switch {
		case ok:
		case hasFallback:
			val = fallback
		default:
			return "", fmt.Errorf("%w: %s", ErrUnresolvedVariable, name)
		}
		b.WriteString(s[:start])
		b.WriteString(val)
		s = s[start+end+1:]
	}
}

// Load loads configuration from a YAML file with environment variable expansion.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	expandedData, err := ExpandEnv(string(data))
	if err != nil {
		return fmt.Errorf("failed to expand config file %s: %w", filename, err)
	}

	if err := yaml.Unmarshal([]byte(expandedData), target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}

// LoadWithDefaults loads configuration, falling back to defaultFile when
// filename does not exist. With no default file the target is only validated,
// so built-in defaults apply.
func LoadWithDefaults[T any](filename, defaultFile string, target *T) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		if defaultFile != "" {
			return Load(defaultFile, target)
		}
		if validator, ok := any(target).(Validator); ok {
			if err := validator.Validate(); err != nil {
				return fmt.Errorf("config validation failed: %w", err)
			}
		}
		return nil
	}
	return Load(filename, target)
}

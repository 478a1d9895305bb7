// Package apperr defines the sentinel errors shared across vrindex packages.
// Callers match them with errors.Is; producers wrap them with context.
package apperr

import "errors"

var (
	ErrNameNotFound           = errors.New("name not found")
	ErrTypeMismatch           = errors.New("type mismatch")
	ErrInvalidNamespace       = errors.New("invalid namespace")
	ErrDuplicateWrite         = errors.New("overwriting values not allowed")
	ErrEmptyContainerRejected = errors.New("container carries text")
	ErrCircularReference      = errors.New("link recursion too deep")
	ErrBadEnvironmentVariable = errors.New("bad environment variable")
	ErrMalformedMix           = errors.New("linkNode and linkContent on the same source")

	// ErrMalformedInput is returned by the parser for truncated or ill-formed markup.
	ErrMalformedInput = errors.New("malformed input")
	// ErrCorruptQueue is returned when a serialized queue does not match its item count.
	ErrCorruptQueue = errors.New("serialized queue appears corrupted")
	ErrNotFound     = errors.New("not found")
	// ErrNoPushedState is returned by a pop with no matching push.
	ErrNoPushedState = errors.New("no pushed state to pop")
)

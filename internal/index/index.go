// Package index holds a namespaced store of datum values keyed by
// slash-delimited names, and converts it to and from markup text.
//
// An Index is not safe for concurrent use.
package index

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/starford/vrindex/internal/apperr"
	"github.com/starford/vrindex/internal/datum"
)

// Root is the root namespace.
const Root = "/"

// DefaultName names an index created without WithName.
const DefaultName = "MVR"

// DefaultLinkDepth bounds recursion when aliasing container subtrees.
const DefaultLinkDepth = 10

// Policy decides what happens when a non-container name is written twice.
type Policy int

const (
	// Overwrite replaces the value in place; aliases see the new value.
	Overwrite Policy = iota
	// Reject silently keeps the existing value.
	Reject
	// Error fails with apperr.ErrDuplicateWrite.
	Error
)

func (p Policy) String() string {
	switch p {
	case Overwrite:
		return "overwrite"
	case Reject:
		return "reject"
	case Error:
		return "error"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy maps a configuration string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "overwrite":
		return Overwrite, nil
	case "reject":
		return Reject, nil
	case "error":
		return Error, nil
	}
	return Overwrite, fmt.Errorf("index: unknown overwrite policy %q", s)
}

// Option configures an Index.
type Option func(*Index)

// WithName sets the name used as the outer tag of a whole-index serialization.
func WithName(name string) Option {
	return func(ix *Index) { ix.name = name }
}

// WithOverwrite sets the overwrite policy.
func WithOverwrite(p Policy) Option {
	return func(ix *Index) { ix.policy = p }
}

// WithLinkDepth sets the recursion limit for node links.
func WithLinkDepth(n int) Option {
	return func(ix *Index) { ix.linkDepth = n }
}

// WithRegistry replaces the type-name registry.
func WithRegistry(r *datum.Registry) Option {
	return func(ix *Index) { ix.registry = r }
}

// WithLogger sets the logger used for link and load diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Index) { ix.log = l }
}

// Index maps fully-qualified names to datums. Several names may share a
// *datum.Datum after linking.
type Index struct {
	name      string
	entries   map[string]*datum.Datum
	policy    Policy
	linkDepth int
	registry  *datum.Registry
	log       *slog.Logger

	// bound holds the name bindings in force at each open PushState.
	bound []map[string]*datum.Datum
}

// New returns an empty index.
func New(opts ...Option) *Index {
	ix := &Index{
		name:      DefaultName,
		entries:   make(map[string]*datum.Datum),
		policy:    Overwrite,
		linkDepth: DefaultLinkDepth,
	}
	for _, o := range opts {
		o(ix)
	}
	if ix.registry == nil {
		ix.registry = datum.NewRegistry()
	}
	if ix.log == nil {
		ix.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return ix
}

// Name returns the index name.
func (ix *Index) Name() string { return ix.name }

// SetName renames the index.
func (ix *Index) SetName(name string) { ix.name = name }

// Policy returns the overwrite policy.
func (ix *Index) Policy() Policy { return ix.policy }

// SetPolicy changes the overwrite policy.
func (ix *Index) SetPolicy(p Policy) { ix.policy = p }

// Registry returns the type-name registry owned by this index.
func (ix *Index) Registry() *datum.Registry { return ix.registry }

// Len returns the number of names.
func (ix *Index) Len() int { return len(ix.entries) }

// Names returns every fully-qualified name, sorted.
func (ix *Index) Names() []string {
	out := make([]string, 0, len(ix.entries))
	for n := range ix.entries {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// TrimName returns the last segment of a name.
func TrimName(name string) string {
	name = strings.TrimRight(name, "/")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Namespace returns the part of a name up to and including the last slash,
// or "" when there is none.
func Namespace(name string) string {
	i := strings.LastIndexByte(name, '/')
	if i < 0 {
		return ""
	}
	return name[:i+1]
}

// explode splits a name on slashes. An absolute name yields a leading empty
// segment standing for the root.
func explode(name string) []string {
	name = strings.TrimRight(name, "/")
	if name == "" {
		return nil
	}
	return strings.Split(name, "/")
}

func qualify(name string) string {
	name = strings.TrimRight(name, "/")
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return name
}

// AddData stores v under name, creating any missing ancestor containers. A
// relative name is placed under the root. Container values merge into an
// existing container; other types follow the overwrite policy. It returns the
// fully-qualified name.
func (ix *Index) AddData(name string, v datum.Value) (string, error) {
	full := qualify(name)
	if full == Root {
		return "", fmt.Errorf("index: cannot replace the root namespace: %w", apperr.ErrInvalidNamespace)
	}
	if _, _, err := ix.add(full, v); err != nil {
		return "", err
	}
	return full, nil
}

// AddDataIn stores v under name resolved against namespace ns. The namespace
// must already exist.
func (ix *Index) AddDataIn(name, ns string, v datum.Value) (string, error) {
	if strings.HasPrefix(name, "/") {
		return ix.AddData(name, v)
	}
	vns, err := ix.ValidateNamespace(ns)
	if err != nil {
		return "", err
	}
	return ix.AddData(vns+name, v)
}

// add does the work of AddData on a qualified name. wrote is false when the
// Reject policy kept an existing value.
func (ix *Index) add(full string, v datum.Value) (*datum.Datum, bool, error) {
	d, ok := ix.entries[full]
	if !ok {
		d = datum.New(v)
		ix.entries[full] = d
		if err := ix.attach(full); err != nil {
			delete(ix.entries, full)
			return nil, false, err
		}
		return d, true, nil
	}

	if c, isContainer := v.(datum.Container); isContainer {
		if d.Type() != datum.TypeContainer {
			return nil, false, fmt.Errorf("index: %s is %v, not a container: %w", full, d.Type(), apperr.ErrTypeMismatch)
		}
		return d, true, d.AddToContainer(c)
	}

	switch ix.policy {
	case Reject:
		return d, false, nil
	case Error:
		return nil, false, fmt.Errorf("index: %s already exists: %w", full, apperr.ErrDuplicateWrite)
	}
	if err := d.SetValue(v); err != nil {
		return nil, false, fmt.Errorf("index: overwrite %s: %w", full, err)
	}
	return d, true, nil
}

// attach lists full in its parent container, creating the parent chain.
func (ix *Index) attach(full string) error {
	ns := Namespace(full)
	if ns == Root || ns == "" {
		return nil
	}
	_, _, err := ix.add(strings.TrimSuffix(ns, "/"), datum.Container{TrimName(full)})
	return err
}

// AddKeyValue parses "name=value" and stores it under the root namespace. An
// existing entry keeps its type; otherwise the type is inferred.
func (ix *Index) AddKeyValue(kv string) (string, error) {
	key, text, ok := strings.Cut(kv, "=")
	if !ok {
		return "", fmt.Errorf("index: expected key=value, got %q: %w", kv, apperr.ErrMalformedInput)
	}
	key = strings.TrimSpace(key)

	var t datum.Type
	if d, err := ix.Datum(key, Root); err == nil {
		t = d.Type()
	} else {
		t = datum.InferType(text, datum.DefaultSeparator)
	}
	v, err := datum.ParseValue(t, text, datum.DefaultSeparator)
	if err != nil {
		return "", fmt.Errorf("index: %s: %w", key, err)
	}
	return ix.AddData(key, v)
}

// remove drops a single name. Container lists are not touched.
func (ix *Index) remove(full string) {
	delete(ix.entries, full)
}

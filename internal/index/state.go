package index

import (
	"fmt"
	"maps"

	"github.com/starford/vrindex/internal/apperr"
	"github.com/starford/vrindex/internal/datum"
)

// distinct returns each datum bound in any of sets once, however many names
// share it.
func distinct(sets ...map[string]*datum.Datum) []*datum.Datum {
	seen := make(map[*datum.Datum]struct{})
	var out []*datum.Datum
	for _, set := range sets {
		for _, d := range set {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}

// PushState opens a history level on every datum and records which datum
// every name is bound to. Pushes and pops must nest.
func (ix *Index) PushState() {
	ix.bound = append(ix.bound, maps.Clone(ix.entries))
	for _, d := range distinct(ix.entries) {
		d.Push()
	}
}

// PopState rolls back to the matching PushState. Every datum returns to its
// pushed value and attributes, and every name is bound as it was then, so
// names added or relinked since are undone. Without an open PushState it
// fails with apperr.ErrNoPushedState and changes nothing.
func (ix *Index) PopState() error {
	n := len(ix.bound)
	if n == 0 {
		return fmt.Errorf("index: pop state: %w", apperr.ErrNoPushedState)
	}
	bound := ix.bound[n-1]
	ix.bound[n-1] = nil
	ix.bound = ix.bound[:n-1]

	dropped := 0
	for _, d := range distinct(ix.entries, bound) {
		if d.Pop() {
			dropped++
		}
	}
	ix.log.Debug("index: pop state",
		"dropped", dropped,
		"names_before", len(ix.entries),
		"names_after", len(bound))
	ix.entries = bound
	return nil
}

// StateDepth reports how many PushState calls are still open.
func (ix *Index) StateDepth() int { return len(ix.bound) }

// Clone returns a deep copy. Names that shared a datum in ix share one
// datum in the copy. The type registry is shared.
func (ix *Index) Clone() *Index {
	out := &Index{
		name:      ix.name,
		entries:   make(map[string]*datum.Datum, len(ix.entries)),
		policy:    ix.policy,
		linkDepth: ix.linkDepth,
		registry:  ix.registry,
		log:       ix.log,
	}
	copies := make(map[*datum.Datum]*datum.Datum, len(ix.entries))
	copyOf := func(d *datum.Datum) *datum.Datum {
		c, ok := copies[d]
		if !ok {
			c = d.Clone()
			copies[d] = c
		}
		return c
	}
	for name, d := range ix.entries {
		out.entries[name] = copyOf(d)
	}
	for _, bound := range ix.bound {
		names := make(map[string]*datum.Datum, len(bound))
		for name, d := range bound {
			names[name] = copyOf(d)
		}
		out.bound = append(out.bound, names)
	}
	return out
}

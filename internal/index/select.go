package index

import (
	"fmt"
	"strings"

	"github.com/starford/vrindex/internal/apperr"
	"github.com/starford/vrindex/internal/datum"
)

// Wildcard matches any attribute value or any name segment.
const Wildcard = "*"

// IsChild reports how far child sits below parent: 0 when they name the same
// entry, the number of levels when child is a descendant, and -1 otherwise.
// A trailing slash on parent is ignored.
func IsChild(parent, child string) int {
	p := strings.TrimSuffix(parent, "/")
	if child == p {
		return 0
	}
	if !strings.HasPrefix(child, p+"/") {
		return -1
	}
	return strings.Count(child[len(p):], "/")
}

func inScope(ns, name string, childOnly bool) bool {
	c := IsChild(ns, name)
	if childOnly {
		return c == 1
	}
	return c >= 1
}

// SelectByAttribute returns the names under ns whose datum carries attr with
// value val, or any value when val is Wildcard. With childOnly only direct
// children of ns are considered. Results are sorted by name.
func (ix *Index) SelectByAttribute(attr, val, ns string, childOnly bool) ([]string, error) {
	vns, err := ix.ValidateNamespace(ns)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, name := range ix.Names() {
		if !inScope(vns, name, childOnly) {
			continue
		}
		if matchAttr(ix.entries[name], attr, val) {
			out = append(out, name)
		}
	}
	return out, nil
}

func matchAttr(d *datum.Datum, attr, val string) bool {
	v, ok := d.Attribute(attr)
	return ok && (val == Wildcard || v == val)
}

// SelectByType returns the names under ns holding type t, sorted.
func (ix *Index) SelectByType(t datum.Type, ns string, childOnly bool) ([]string, error) {
	vns, err := ix.ValidateNamespace(ns)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, name := range ix.Names() {
		if ix.entries[name].Type() == t && inScope(vns, name, childOnly) {
			out = append(out, name)
		}
	}
	return out, nil
}

// SelectByKey returns the names matching pattern, sorted. Segments equal to
// Wildcard match anything. An absolute pattern must match the leading
// segments of a name. A relative pattern, joined to ns first, is anchored at
// the first segment equal to its head and must match from there on. Names
// longer than the pattern match, so a hit selects its whole subtree.
func (ix *Index) SelectByKey(pattern, ns string) []string {
	absolute := strings.HasPrefix(pattern, "/")
	if !absolute {
		pattern = ns + pattern
	}
	want := explode(pattern)
	if len(want) == 0 {
		return nil
	}

	var out []string
	for _, name := range ix.Names() {
		parts := explode(name)
		var ok bool
		if absolute {
			ok = matchFrom(want, parts, 0)
		} else {
			ok = matchRelative(want, parts)
		}
		if ok {
			out = append(out, name)
		}
	}
	return out
}

func segmentMatch(pat, seg string) bool {
	return pat == Wildcard || pat == seg
}

// matchFrom reports whether every segment of want matches parts starting at
// offset.
func matchFrom(want, parts []string, offset int) bool {
	if len(parts)-offset < len(want) {
		return false
	}
	for i, w := range want {
		if !segmentMatch(w, parts[offset+i]) {
			return false
		}
	}
	return true
}

func matchRelative(want, parts []string) bool {
	for i, seg := range parts {
		if segmentMatch(want[0], seg) {
			return matchFrom(want, parts, i)
		}
	}
	return false
}

// GetByAttribute returns the innermost entry visible from ns that carries
// attr with value val (or any value for Wildcard). Candidates in ns itself
// win over those in enclosing namespaces; within one level the first name in
// sorted order wins.
func (ix *Index) GetByAttribute(attr, val, ns string) (string, error) {
	vns, err := ix.ValidateNamespace(ns)
	if err != nil {
		return "", err
	}
	best, bestLen := "", 0
	for _, name := range ix.Names() {
		parent := Namespace(name)
		if !strings.HasPrefix(vns, parent) || len(parent) <= bestLen {
			continue
		}
		if matchAttr(ix.entries[name], attr, val) {
			best, bestLen = name, len(parent)
		}
	}
	if best == "" {
		return "", fmt.Errorf("index: no %s=%q visible from %s: %w", attr, val, vns, apperr.ErrNameNotFound)
	}
	return best, nil
}

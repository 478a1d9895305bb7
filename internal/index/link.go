package index

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/starford/vrindex/internal/apperr"
	"github.com/starford/vrindex/internal/datum"
)

// linkSet records the link directives met during one deserialization,
// keyed by the full name of the element that carried them.
type linkSet struct {
	nodes    map[string]string
	contents map[string]string
}

func newLinkSet() *linkSet {
	return &linkSet{
		nodes:    make(map[string]string),
		contents: make(map[string]string),
	}
}

// resolveLinks applies every node link, then every content link, each in
// sorted target order.
func (ix *Index) resolveLinks(ls *linkSet) error {
	for _, target := range slices.Sorted(maps.Keys(ls.nodes)) {
		if _, both := ls.contents[target]; both {
			return fmt.Errorf("index: %s carries both %s and %s: %w", target, AttrLinkNode, AttrLinkContent, apperr.ErrMalformedMix)
		}
		source, err := ix.resolve(ls.nodes[target], Namespace(target))
		if err != nil {
			return fmt.Errorf("index: link %s: %w", target, err)
		}
		if err := ix.linkNode(source, target, 0); err != nil {
			return err
		}
		ix.log.Debug("index: linked node", slog.String("target", target), slog.String("source", source))
	}

	for _, target := range slices.Sorted(maps.Keys(ls.contents)) {
		if err := ix.linkContent(target, ls.contents[target]); err != nil {
			return err
		}
	}
	return nil
}

// LinkNode binds target to the datum of source so that both names share one
// value. Container sources are linked child by child underneath target.
func (ix *Index) LinkNode(source, target string) error {
	return ix.linkNode(qualify(source), qualify(target), 0)
}

func (ix *Index) linkNode(source, target string, depth int) error {
	if depth > ix.linkDepth {
		return fmt.Errorf("index: linking %s to %s nests deeper than %d: %w", source, target, ix.linkDepth, apperr.ErrCircularReference)
	}
	src, ok := ix.entries[source]
	if !ok {
		return fmt.Errorf("index: link source %s: %w", source, apperr.ErrNameNotFound)
	}
	if src.HasAttribute(AttrLinkContent) {
		return fmt.Errorf("index: cannot node-link %s to %s, it carries %s: %w", source, target, AttrLinkContent, apperr.ErrMalformedMix)
	}
	if source == target {
		return nil
	}

	_, existed := ix.entries[target]
	ix.entries[target] = src
	if !existed {
		if err := ix.attach(target); err != nil {
			return err
		}
	}

	for _, c := range src.Children() {
		if err := ix.linkNode(source+"/"+c, target+"/"+c, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// linkContent replaces the placeholder target with node links to each child
// of the container ref names. The parent of target ends up listing those
// children first, followed by its other children.
func (ix *Index) linkContent(target, ref string) error {
	ns := Namespace(target)
	source, err := ix.resolve(ref, ns)
	if err != nil {
		return fmt.Errorf("index: link content %s: %w", target, err)
	}
	src := ix.entries[source]
	if src.Type() != datum.TypeContainer {
		return fmt.Errorf("index: can only link the contents of a container, %s is %v: %w", source, src.Type(), apperr.ErrTypeMismatch)
	}

	var parent *datum.Datum
	var oldList []string
	if ns != Root {
		parent = ix.entries[strings.TrimSuffix(ns, "/")]
		oldList = parent.Children()
	}

	children := src.Children()
	for _, c := range children {
		if err := ix.linkNode(source+"/"+c, ns+c, 0); err != nil {
			return err
		}
	}

	if parent != nil {
		trim := TrimName(target)
		next := slices.Clone(children)
		for _, n := range oldList {
			if n != trim && !slices.Contains(next, n) {
				next = append(next, n)
			}
		}
		if err := parent.SetValue(datum.Container(next)); err != nil {
			return err
		}
	}
	ix.remove(target)
	ix.log.Debug("index: linked content", slog.String("target", target), slog.String("source", source), slog.Int("children", len(children)))
	return nil
}

package index

import (
	"strconv"
	"strings"

	"github.com/starford/vrindex/internal/datum"
)

// PrintStructure renders the entries at and below name as an indented tree,
// one entry per line with its value, type and attributes. Values longer than
// limit are cut short; limit <= 0 disables the cut. Passing Root prints the
// whole index under its name.
func (ix *Index) PrintStructure(name string, limit int) string {
	var b strings.Builder
	want := explode(name)
	if name == Root {
		b.WriteString(ix.name + "\n")
	}

	for _, full := range ix.Names() {
		parts := explode(full)
		if !prefixMatch(want, parts) {
			continue
		}
		d := ix.entries[full]
		indent := strings.Repeat(" | ", len(parts)-1)

		b.WriteString(indent + parts[len(parts)-1])
		if d.Type() != datum.TypeContainer {
			v := d.ValueString()
			if limit > 0 && len(v) > limit {
				v = v[:max(limit-1, 0)] + "..."
			}
			b.WriteString(" = " + v + " (" + d.Type().String() + ")")
		}
		if names := d.AttributeNames(); len(names) > 0 {
			b.WriteString("\n" + indent + "   [")
			for _, k := range names {
				v, _ := d.Attribute(k)
				b.WriteString(" " + k + "=" + strconv.Quote(v))
			}
			b.WriteString(" ]")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// prefixMatch compares the segments both names have.
func prefixMatch(want, parts []string) bool {
	n := min(len(want), len(parts))
	for i := 1; i < n; i++ {
		if want[i] != parts[i] {
			return false
		}
	}
	return true
}

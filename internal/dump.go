package internal

import (
	"fmt"
	"io"

	"github.com/starford/vrindex/internal/index"
)

// DumpOptions controls Dump.
type DumpOptions struct {
	Files     []string // files to load in order; index.StdinArg reads the input reader
	Sets      []string // name=value assignments applied after loading
	Name      string   // entry to print; empty prints the whole index
	Serialize bool     // print markup instead of the structure tree
	Limit     int      // cut structure values longer than this
	Index     IndexConfig
}

// Dump loads files into a fresh index, applies the assignments and writes the
// structure tree, or the markup, to w.
func Dump(w io.Writer, in io.Reader, opts DumpOptions) error {
	if err := opts.Index.Validate(); err != nil {
		return err
	}
	ix := index.New(opts.Index.Options()...)

	for _, f := range opts.Files {
		if _, err := ix.ProcessXML(f, in); err != nil {
			return err
		}
	}
	for _, kv := range opts.Sets {
		if _, err := ix.AddKeyValue(kv); err != nil {
			return err
		}
	}

	name := opts.Name
	if name == "" {
		name = index.Root
	}
	if !opts.Serialize {
		_, err := io.WriteString(w, ix.PrintStructure(name, opts.Limit))
		return err
	}
	text, err := ix.Serialize(name, index.Root)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, text)
	return err
}

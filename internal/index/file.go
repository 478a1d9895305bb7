package index

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/vrindex/internal/apperr"
	"github.com/starford/vrindex/pkg/config"
)

// StdinArg makes ProcessXML read from its reader instead of a file.
const StdinArg = "-"

// DereferenceEnvVars expands ${VAR} references in path. Every variable must
// be set.
func DereferenceEnvVars(path string) (string, error) {
	out, err := config.ExpandEnv(path)
	if err != nil {
		return "", fmt.Errorf("index: %s: %w: %w", path, apperr.ErrBadEnvironmentVariable, err)
	}
	return out, nil
}

// ProcessXMLFile reads the whole file at path, after environment expansion,
// and adds its contents under namespace ns.
func (ix *Index) ProcessXMLFile(path, ns string) (string, error) {
	resolved, err := DereferenceEnvVars(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("index: read %s: %w", resolved, err)
	}
	last, err := ix.AddSerializedValue(string(data), ns)
	if err != nil {
		return "", fmt.Errorf("index: load %s: %w", resolved, err)
	}
	ix.log.Info("index: loaded file", slog.String("path", resolved), slog.String("namespace", ns))
	return last, nil
}

// ProcessXML loads arg into the root namespace. When arg is StdinArg the
// markup is read from r.
func (ix *Index) ProcessXML(arg string, r io.Reader) (string, error) {
	if arg != StdinArg {
		return ix.ProcessXMLFile(arg, Root)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("index: read input: %w", err)
	}
	return ix.AddSerializedValue(string(data), Root)
}

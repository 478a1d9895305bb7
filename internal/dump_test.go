package internal

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/vrindex/internal/apperr"
	"github.com/starford/vrindex/internal/index"
)

func defaultIndexConfig() IndexConfig {
	return NewDefaultConfig().Index
}

func TestDump_StructureFromFileAndStdin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "desktop.xml")
	if err := os.WriteFile(path, []byte("<MVR><width>1280</width></MVR>"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := Dump(&out, strings.NewReader("<MVR><height>720</height></MVR>"), DumpOptions{
		Files: []string{path, index.StdinArg},
		Sets:  []string{"/MVR/width=1920"},
		Index: defaultIndexConfig(),
	})
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	want := "MVR\n" +
		" | MVR\n" +
		" |  | height = 720 (int)\n" +
		" |  | width = 1920 (int)\n"
	if out.String() != want {
		t.Errorf("structure =\n%s\nwant\n%s", out.String(), want)
	}
}

func TestDump_Serialize(t *testing.T) {
	var out bytes.Buffer
	err := Dump(&out, strings.NewReader(`<cfg><eye>0.065</eye></cfg>`), DumpOptions{
		Files:     []string{index.StdinArg},
		Name:      "/cfg",
		Serialize: true,
		Index:     defaultIndexConfig(),
	})
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if got := out.String(); got != `<cfg type="container"><eye type="float">0.065</eye></cfg>`+"\n" {
		t.Errorf("serialize = %q", got)
	}
}

func TestDump_Errors(t *testing.T) {
	err := Dump(&bytes.Buffer{}, strings.NewReader("<a>1</b>"), DumpOptions{
		Files: []string{index.StdinArg},
		Index: defaultIndexConfig(),
	})
	if !errors.Is(err, apperr.ErrMalformedInput) {
		t.Errorf("malformed input error = %v", err)
	}

	err = Dump(&bytes.Buffer{}, strings.NewReader(""), DumpOptions{
		Sets:  []string{"no-equals"},
		Index: defaultIndexConfig(),
	})
	if !errors.Is(err, apperr.ErrMalformedInput) {
		t.Errorf("bad assignment error = %v", err)
	}

	cfg := defaultIndexConfig()
	cfg.Overwrite = "never"
	if err := Dump(&bytes.Buffer{}, strings.NewReader(""), DumpOptions{Index: cfg}); err == nil {
		t.Error("bad policy should fail")
	}
}

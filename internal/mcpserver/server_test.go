package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/vrindex/internal/service"
	"github.com/starford/vrindex/internal/testutil"
)

const desktop = `<MVR><Display title="desk"><width>1280</width><height>720</height></Display><Cave title="cave"><walls>4</walls></Cave></MVR>`

func testServer(t *testing.T) (*Server, *service.Service, string) {
	t.Helper()
	svc, dir := testutil.TestService(t)
	return New(svc), svc, dir
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "get_value":
		result, err = srv.getValue(ctx, req)
	case "serialize_entry":
		result, err = srv.serializeEntry(ctx, req)
	case "select_by_attribute":
		result, err = srv.selectByAttribute(ctx, req)
	case "select_by_key":
		result, err = srv.selectByKey(ctx, req)
	case "add_entries":
		result, err = srv.addEntries(ctx, req)
	case "set_value":
		result, err = srv.setValue(ctx, req)
	case "print_structure":
		result, err = srv.printStructure(ctx, req)
	case "snapshot":
		result, err = srv.snapshot(ctx, req)
	case "search_snapshots":
		result, err = srv.searchSnapshots(ctx, req)
	case "list_sources":
		result, err = srv.listSources(ctx, req)
	case "get_format_contract":
		result, err = srv.getFormatContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func seed(t *testing.T, srv *Server) {
	t.Helper()
	r := callTool(t, srv, "add_entries", map[string]any{"markup": desktop})
	if r.IsError {
		t.Fatalf("seed: %s", resultText(r))
	}
}

func TestAddEntriesAndGetValue(t *testing.T) {
	srv, _, _ := testServer(t)

	r := callTool(t, srv, "add_entries", map[string]any{"markup": desktop})
	if text := resultText(r); text != "added: /MVR" {
		t.Errorf("add result = %q", text)
	}

	r = callTool(t, srv, "get_value", map[string]any{"name": "width", "ns": "/MVR/Display"})
	var e service.Entry
	if err := json.Unmarshal([]byte(resultText(r)), &e); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	if e.Name != "/MVR/Display/width" || e.Type != "int" || e.Value != "1280" {
		t.Errorf("entry = %+v", e)
	}
}

func TestAddEntriesMalformed(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "add_entries", map[string]any{"markup": "<a>1</b>"})
	if !r.IsError {
		t.Error("expected error for malformed markup")
	}
	r = callTool(t, srv, "add_entries", map[string]any{})
	if !r.IsError {
		t.Error("expected error for missing markup")
	}
}

func TestGetValueMissing(t *testing.T) {
	srv, _, _ := testServer(t)
	seed(t, srv)
	r := callTool(t, srv, "get_value", map[string]any{"name": "/MVR/nope"})
	if !r.IsError {
		t.Error("expected error for missing entry")
	}
}

func TestSerializeEntry(t *testing.T) {
	srv, _, _ := testServer(t)
	seed(t, srv)

	r := callTool(t, srv, "serialize_entry", map[string]any{"name": "/MVR/Cave"})
	want := `<Cave type="container" title="cave"><walls type="int">4</walls></Cave>`
	if text := resultText(r); text != want {
		t.Errorf("serialize = %q", text)
	}

	r = callTool(t, srv, "serialize_entry", map[string]any{})
	if text := resultText(r); !strings.HasPrefix(text, `<MVR type="container">`) {
		t.Errorf("whole index = %q", text)
	}
}

func TestSelectTools(t *testing.T) {
	srv, _, _ := testServer(t)
	seed(t, srv)

	r := callTool(t, srv, "select_by_attribute", map[string]any{"attr": "title"})
	if text := resultText(r); text != "/MVR/Cave\n/MVR/Display" {
		t.Errorf("select any = %q", text)
	}
	r = callTool(t, srv, "select_by_attribute", map[string]any{"attr": "title", "value": "desk"})
	if text := resultText(r); text != "/MVR/Display" {
		t.Errorf("select desk = %q", text)
	}
	r = callTool(t, srv, "select_by_attribute", map[string]any{"attr": "colour"})
	if text := resultText(r); text != "no entries found" {
		t.Errorf("select none = %q", text)
	}
	r = callTool(t, srv, "select_by_attribute", map[string]any{"attr": "title", "ns": "/Nowhere"})
	if !r.IsError {
		t.Error("expected error for missing namespace")
	}

	r = callTool(t, srv, "select_by_key", map[string]any{"pattern": "/MVR/*/width"})
	if text := resultText(r); text != "/MVR/Display/width" {
		t.Errorf("select key = %q", text)
	}
}

func TestSetValueAndStructure(t *testing.T) {
	srv, _, _ := testServer(t)
	seed(t, srv)

	r := callTool(t, srv, "set_value", map[string]any{"assignment": "/MVR/Cave/walls=6"})
	if text := resultText(r); text != "set: /MVR/Cave/walls" {
		t.Errorf("set = %q", text)
	}

	r = callTool(t, srv, "print_structure", map[string]any{"name": "/MVR/Cave"})
	if text := resultText(r); !strings.Contains(text, "walls = 6 (int)") {
		t.Errorf("structure = %q", text)
	}
}

func TestSnapshotAndSearch(t *testing.T) {
	srv, _, _ := testServer(t)
	seed(t, srv)

	r := callTool(t, srv, "snapshot", map[string]any{"names": "width, height", "ns": "/MVR/Display"})
	var snap service.Snapshot
	if err := json.Unmarshal([]byte(resultText(r)), &snap); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	if snap.Payload != `<width type="int">1280</width><height type="int">720</height>` {
		t.Errorf("payload = %q", snap.Payload)
	}

	r = callTool(t, srv, "search_snapshots", map[string]any{"query": "1280"})
	var hits []service.SearchHit
	if err := json.Unmarshal([]byte(resultText(r)), &hits); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	if len(hits) != 1 {
		t.Errorf("hits = %+v", hits)
	}
}

func TestListSources(t *testing.T) {
	srv, _, dir := testServer(t)
	testutil.WriteSource(t, dir, "a.xml", "<a>1</a>")
	testutil.WriteSource(t, dir, "sub/b.xml", "<b>2</b>")

	r := callTool(t, srv, "list_sources", map[string]any{})
	if text := resultText(r); text != "a.xml\nsub/b.xml" {
		t.Errorf("sources = %q", text)
	}
}

func TestFormatContract(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "get_format_contract", map[string]any{})
	if !strings.Contains(resultText(r), "linkNode") {
		t.Error("contract does not mention linkNode")
	}

	contents, err := srv.readFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != FormatURI || tc.Text != FormatContract {
		t.Errorf("resource = %+v", contents[0])
	}
}

// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes vrindex tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/vrindex/internal/index"
	"github.com/starford/vrindex/internal/service"
)

// FormatURI addresses the entry format contract resource.
const FormatURI = "vrindex://format"

// Server wraps the MCP server with vrindex tools.
type Server struct {
	mcp *server.MCPServer
	svc *service.Service
}

// New creates a new MCP server with all vrindex tools registered.
func New(svc *service.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"vrindex",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_value",
		mcp.WithDescription("Look up one entry and return its type, value, children and attributes as JSON."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Entry name, absolute (/MVR/Display/width) or relative to ns")),
		mcp.WithString("ns", mcp.Description("Namespace a relative name is resolved from (default /)")),
	), s.getValue)

	s.mcp.AddTool(mcp.NewTool("serialize_entry",
		mcp.WithDescription("Render an entry and its subtree as markup. Without a name the whole index is rendered."),
		mcp.WithString("name", mcp.Description("Entry name; empty for the whole index")),
		mcp.WithString("ns", mcp.Description("Namespace a relative name is resolved from (default /)")),
	), s.serializeEntry)

	s.mcp.AddTool(mcp.NewTool("select_by_attribute",
		mcp.WithDescription("List entry names under a namespace that carry an attribute, optionally with a given value."),
		mcp.WithString("attr", mcp.Required(), mcp.Description("Attribute name")),
		mcp.WithString("value", mcp.Description("Attribute value; * or empty matches any")),
		mcp.WithString("ns", mcp.Description("Namespace to search (default /)")),
		mcp.WithBoolean("child_only", mcp.Description("Only direct children of ns")),
	), s.selectByAttribute)

	s.mcp.AddTool(mcp.NewTool("select_by_key",
		mcp.WithDescription("List entry names matching a key pattern. A * segment matches any one name segment."),
		mcp.WithString("pattern", mcp.Required(), mcp.Description("Key pattern, e.g. /MVR/*/width or Display")),
		mcp.WithString("ns", mcp.Description("Namespace a relative pattern is joined to")),
	), s.selectByKey)

	s.mcp.AddTool(mcp.NewTool("add_entries",
		mcp.WithDescription("Add or update entries from markup. "+
			"Markup MUST follow the entry format contract. Read it first via "+
			"the get_format_contract tool or the "+FormatURI+" resource."),
		mcp.WithString("markup", mcp.Required(), mcp.Description("One or more elements in the entry format")),
		mcp.WithString("ns", mcp.Description("Existing container to add under (default /)")),
	), s.addEntries)

	s.mcp.AddTool(mcp.NewTool("set_value",
		mcp.WithDescription("Set a single value from a name=value assignment. An existing entry keeps its type."),
		mcp.WithString("assignment", mcp.Required(), mcp.Description("Assignment such as /MVR/Display/width=1920")),
	), s.setValue)

	s.mcp.AddTool(mcp.NewTool("print_structure",
		mcp.WithDescription("Print the entry tree at and below a name with values, types and attributes."),
		mcp.WithString("name", mcp.Description("Absolute entry name; empty for the whole index")),
		mcp.WithNumber("limit", mcp.Description("Cut values longer than this many characters (0 for no cut)")),
	), s.printStructure)

	s.mcp.AddTool(mcp.NewTool("snapshot",
		mcp.WithDescription("Queue and journal a snapshot of the named entries, or of the whole index when none are given."),
		mcp.WithString("names", mcp.Description("Comma-separated entry names")),
		mcp.WithString("ns", mcp.Description("Namespace the names are resolved from")),
	), s.snapshot)

	s.mcp.AddTool(mcp.NewTool("search_snapshots",
		mcp.WithDescription("Search journaled snapshot payloads, newest first."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchSnapshots)

	s.mcp.AddTool(mcp.NewTool("list_sources",
		mcp.WithDescription("List the source files loaded at startup and on change."),
	), s.listSources)

	s.mcp.AddTool(mcp.NewTool("get_format_contract",
		mcp.WithDescription("Returns the entry format contract. "+
			"Call this before adding entries to ensure correct structure."),
	), s.getFormatContract)

	// Resource: entry format contract.
	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Entry Format Contract",
			mcp.WithResourceDescription("Markup format accepted by add_entries and the source files."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) getValue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.svc.Lookup(ctx, name, req.GetString("ns", index.Root))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(e), nil
}

func (s *Server) serializeEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		name = index.Root
	}
	text, err := s.svc.Serialize(ctx, name, req.GetString("ns", index.Root))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) selectByAttribute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	attr, err := req.RequireString("attr")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	val := req.GetString("value", "")
	if val == "" {
		val = index.Wildcard
	}
	names, err := s.svc.SelectByAttribute(ctx, attr, val, req.GetString("ns", index.Root), req.GetBool("child_only", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return namesResult(names), nil
}

func (s *Server) selectByKey(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern, err := req.RequireString("pattern")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return namesResult(s.svc.SelectByKey(ctx, pattern, req.GetString("ns", ""))), nil
}

func namesResult(names []string) *mcp.CallToolResult {
	if len(names) == 0 {
		return mcp.NewToolResultText("no entries found")
	}
	return mcp.NewToolResultText(strings.Join(names, "\n"))
}

func (s *Server) addEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markup, err := req.RequireString("markup")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	last, err := s.svc.Apply(ctx, markup, req.GetString("ns", index.Root))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added: %s", last)), nil
}

func (s *Server) setValue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kv, err := req.RequireString("assignment")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	full, err := s.svc.Set(ctx, kv)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("set: %s", full)), nil
}

func (s *Server) printStructure(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		name = index.Root
	}
	return mcp.NewToolResultText(s.svc.Structure(ctx, name, req.GetInt("limit", 0))), nil
}

func (s *Server) snapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var names []string
	for _, n := range strings.Split(req.GetString("names", ""), ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	snap, err := s.svc.Snapshot(ctx, names, req.GetString("ns", index.Root))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(snap), nil
}

func (s *Server) searchSnapshots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) listSources(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.svc.Sources(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths := make([]string, 0, len(list))
	for _, src := range list {
		paths = append(paths, src.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getFormatContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FormatContract), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     FormatContract,
		},
	}, nil
}

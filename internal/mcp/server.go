// Package mcp exposes the workout compiler and validator as Model Context
// Protocol tools and resources.
package mcp

import (
	"context"
	"log/slog"

	"github.com/claude/zwoforge/internal/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const authorKey contextKey = iota

// AuthorFromContext extracts the caller name injected by the transport
// layer.
func AuthorFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(authorKey).(string); ok {
		return name
	}
	return ""
}

// WithAuthor returns a context carrying the caller name used as the default
// workout author.
func WithAuthor(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, authorKey, name)
}

// Deps are the services behind the MCP tools. Library may be nil, in which
// case the library tools are not registered.
type Deps struct {
	Library         Library
	Allowlist       *schema.Allowlist
	Author          string
	Strict          bool
	UnrollIntervals bool
}

// New creates an MCP server with all tools and resources registered.
func New(deps Deps, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("zwoforge", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("zwoforge compiles YAML or JSON workout plans into Zwift .zwo files and checks .zwo files against the Zwift tag and attribute vocabulary. Power is given as a fraction of FTP, a zone name (z1 to z6), a percentage, a range or watts."),
	)

	h := &handlers{deps: deps, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolCompileWorkout, Handler: h.compileWorkout},
		server.ServerTool{Tool: toolValidateWorkout, Handler: h.validateWorkout},
		server.ServerTool{Tool: toolListZones, Handler: h.listZones},
	)
	if deps.Library != nil {
		s.AddTools(
			server.ServerTool{Tool: toolListWorkouts, Handler: h.listWorkouts},
			server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		)
	}

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resourceSchema, Handler: h.schema},
		server.ServerResource{Resource: resourceZones, Handler: h.zones},
		server.ServerResource{Resource: resourceStandardWarmup, Handler: h.standardWarmup},
	)

	return s
}

type handlers struct {
	deps Deps
	log  *slog.Logger
}

var resourceSchema = mcp.NewResource(
	"zwoforge://schema",
	"ZWO Allowlist",
	mcp.WithResourceDescription("Elements and attributes accepted by the validator, with the allowlist fingerprint"),
	mcp.WithMIMEType("application/json"),
)

var resourceZones = mcp.NewResource(
	"zwoforge://zones",
	"Power Zones",
	mcp.WithResourceDescription("Zone names usable as power targets and their fraction of FTP"),
	mcp.WithMIMEType("application/json"),
)

var resourceStandardWarmup = mcp.NewResource(
	"zwoforge://standard_warmup",
	"Standard Warmup",
	mcp.WithResourceDescription("Steps inserted by a standard_warmup block"),
	mcp.WithMIMEType("application/json"),
)

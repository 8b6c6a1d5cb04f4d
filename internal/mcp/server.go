// Package mcp exposes the garden as Model Context Protocol tools over stdio.
package mcp

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lazypower/seedsoil/internal/engine"
)

type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

var toolRegistry = map[string]toolEntry{
	"seed_capture": {
		def: mcp.NewTool("seed_capture",
			mcp.WithDescription("Plant a new knowledge fragment. It starts active at full strength and is distilled on the next pulse."),
			mcp.WithString("text", mcp.Required(), mcp.Description("The raw text to capture")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCapture },
	},
	"seed_pulse": {
		def: mcp.NewTool("seed_pulse",
			mcp.WithDescription("Distill every undistilled seed and refresh the knowledge gaps. Returns the pulse report."),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePulse },
	},
	"seed_review": {
		def: mcp.NewTool("seed_review",
			mcp.WithDescription("List up to three distilled active seeds to review, strongest first."),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReview },
	},
	"seed_reviewed": {
		def: mcp.NewTool("seed_reviewed",
			mcp.WithDescription("Record a review outcome. Success restores full strength; failure buries the seed."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Seed id")),
			mcp.WithBoolean("success", mcp.Required(), mcp.Description("Whether the seed was recalled")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReviewed },
	},
	"seed_archive": {
		def: mcp.NewTool("seed_archive",
			mcp.WithDescription("Bury an active seed."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Seed id")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleArchive },
	},
	"seed_resurrect": {
		def: mcp.NewTool("seed_resurrect",
			mcp.WithDescription("Bring a buried seed back to active at half strength."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Seed id")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleResurrect },
	},
	"seed_buried": {
		def: mcp.NewTool("seed_buried",
			mcp.WithDescription("List buried seeds."),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBuried },
	},
	"seed_gaps": {
		def: mcp.NewTool("seed_gaps",
			mcp.WithDescription("Return the knowledge gaps found by the last synthesis."),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGaps },
	},
	"seed_get": {
		def: mcp.NewTool("seed_get",
			mcp.WithDescription("Fetch one seed by id, including its raw text and distilled summary."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Seed id")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGet },
	},
}

// ToolNames returns the registered tool names in sorted order.
func ToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewServer creates an MCP server with every seed tool registered.
func NewServer(eng *engine.Engine, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"seedsoil",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(eng)
	for _, entry := range toolRegistry {
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves the tools on stdin/stdout until the client disconnects.
func Run(eng *engine.Engine, version string) error {
	return server.ServeStdio(NewServer(eng, version))
}

package mcp

import (
	"log/slog"

	"github.com/claude/vcday/internal/vc"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server exposing the Visual Coaching client as tools.
// Login stays with the CLI; the tools only read.
func New(client *vc.Client, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("vcday", version,
		server.WithToolCapabilities(false),
		server.WithInstructions("Visual Coaching session reader. Lists a user's scheduled workout sessions for a date and fetches full session content. Requires a prior `vcday login` on this machine; if tools report an expired session, ask the user to log in again."),
	)

	h := &handlers{client: client, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolListSessions, Handler: h.listSessions},
		server.ServerTool{Tool: toolGetSession, Handler: h.getSession},
		server.ServerTool{Tool: toolGetSessionHTML, Handler: h.getSessionHTML},
		server.ServerTool{Tool: toolLoginStatus, Handler: h.loginStatus},
	)

	return s
}

// ServeStdio runs the server over stdio until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// handlers holds dependencies for MCP tool handlers.
type handlers struct {
	client *vc.Client
	log    *slog.Logger
}

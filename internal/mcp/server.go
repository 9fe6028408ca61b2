// Package mcp exposes a drift backend to AI agents as Model Context
// Protocol tools.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ziadkadry99/drift/pkg/drift"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Drift is the part of the drift client the tools call.
type Drift interface {
	Route(ctx context.Context, req drift.RouteRequest) (*drift.RouteResult, error)
	GetBranches(ctx context.Context, conversationID string) ([]drift.Branch, error)
	GetContext(ctx context.Context, branchID string) (*drift.Context, error)
	ExtractFacts(ctx context.Context, branchID string) (*drift.FactsResult, error)
	GetFacts(ctx context.Context, branchID string) ([]drift.Fact, error)
	BuildPrompt(ctx context.Context, branchID string, opts ...drift.PromptOption) (*drift.Prompt, error)
}

// Server wraps an MCP server that exposes drift tools.
type Server struct {
	drift  Drift
	logger *zap.Logger
	mcp    *server.MCPServer
}

// NewServer creates a new MCP server backed by the given client. A nil
// logger disables logging.
func NewServer(d Drift, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		drift:  d,
		logger: logger,
	}

	s.mcp = server.NewMCPServer(
		"drift",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(routeTool, s.handleRoute)
	s.mcp.AddTool(branchesTool, s.handleBranches)
	s.mcp.AddTool(contextTool, s.handleContext)
	s.mcp.AddTool(extractFactsTool, s.handleExtractFacts)
	s.mcp.AddTool(factsTool, s.handleFacts)
	s.mcp.AddTool(buildPromptTool, s.handleBuildPrompt)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}

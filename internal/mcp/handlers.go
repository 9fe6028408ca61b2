package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/ziadkadry99/drift/pkg/drift"
)

func (s *Server) handleRoute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conversationID, err := request.RequireString("conversation_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: conversation_id"), nil
	}
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: content"), nil
	}

	result, err := s.drift.Route(ctx, drift.RouteRequest{
		ConversationID: conversationID,
		Content:        content,
		Role:           drift.Role(request.GetString("role", "")),
	})
	return s.respond("drift_route", result, err)
}

func (s *Server) handleBranches(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conversationID, err := request.RequireString("conversation_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: conversation_id"), nil
	}
	branches, err := s.drift.GetBranches(ctx, conversationID)
	return s.respond("drift_branches", branches, err)
}

func (s *Server) handleContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	branchID, err := request.RequireString("branch_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: branch_id"), nil
	}
	c, err := s.drift.GetContext(ctx, branchID)
	return s.respond("drift_context", c, err)
}

func (s *Server) handleExtractFacts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	branchID, err := request.RequireString("branch_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: branch_id"), nil
	}
	result, err := s.drift.ExtractFacts(ctx, branchID)
	return s.respond("drift_extract_facts", result, err)
}

func (s *Server) handleFacts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	branchID, err := request.RequireString("branch_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: branch_id"), nil
	}
	facts, err := s.drift.GetFacts(ctx, branchID)
	return s.respond("drift_facts", facts, err)
}

func (s *Server) handleBuildPrompt(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	branchID, err := request.RequireString("branch_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: branch_id"), nil
	}

	var opts []drift.PromptOption
	if args := request.GetArguments(); args != nil {
		if system, ok := args["system_prompt"].(string); ok {
			opts = append(opts, drift.WithSystemPrompt(system))
		}
	}
	prompt, err := s.drift.BuildPrompt(ctx, branchID, opts...)
	return s.respond("drift_build_prompt", prompt, err)
}

// respond turns a client result into a tool result. Client failures are
// reported to the agent as tool errors rather than protocol errors.
func (s *Server) respond(tool string, v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		s.logger.Warn("tool call failed", zap.String("tool", tool), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", tool, err)), nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/drift/pkg/drift"
	"github.com/ziadkadry99/drift/pkg/drift/drifttest"
)

func newTestServer(t *testing.T) (*Server, *drifttest.Server) {
	t.Helper()
	backend := drifttest.NewServer(t)
	client, err := drift.New(backend.URL, "")
	require.NoError(t, err)
	return NewServer(client, nil), backend
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText returns the text of a single-content tool result.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		tool     mcp.Tool
		wantName string
		required []string
	}{
		{routeTool, "drift_route", []string{"conversation_id", "content"}},
		{branchesTool, "drift_branches", []string{"conversation_id"}},
		{contextTool, "drift_context", []string{"branch_id"}},
		{extractFactsTool, "drift_extract_facts", []string{"branch_id"}},
		{factsTool, "drift_facts", []string{"branch_id"}},
		{buildPromptTool, "drift_build_prompt", []string{"branch_id"}},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			assert.Equal(t, tt.wantName, tt.tool.Name)
			assert.NotEmpty(t, tt.tool.Description)
			assert.ElementsMatch(t, tt.required, tt.tool.InputSchema.Required)
		})
	}
}

func TestNewServer(t *testing.T) {
	srv, _ := newTestServer(t)
	require.NotNil(t, srv.mcp)
	assert.NotNil(t, srv.logger)
}

func TestHandleRoute(t *testing.T) {
	srv, backend := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleRoute(ctx, callRequest(map[string]any{
		"conversation_id": "conv-1",
		"content":         "hello",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var routed drift.RouteResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &routed))
	assert.Equal(t, drift.ActionBranch, routed.Action)
	assert.Equal(t, "general", routed.BranchTopic)
	assert.Contains(t, string(backend.LastRequest().Body), `"role":"user"`)

	t.Run("assistant role", func(t *testing.T) {
		result, err := srv.handleRoute(ctx, callRequest(map[string]any{
			"conversation_id": "conv-1",
			"content":         "hi there",
			"role":            "assistant",
		}))
		require.NoError(t, err)
		assert.False(t, result.IsError)
		assert.Contains(t, string(backend.LastRequest().Body), `"role":"assistant"`)
	})

	t.Run("missing content", func(t *testing.T) {
		result, err := srv.handleRoute(ctx, callRequest(map[string]any{"conversation_id": "conv-1"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Equal(t, "missing required parameter: content", resultText(t, result))
	})
}

func TestHandleBranchesAndContext(t *testing.T) {
	srv, backend := newTestServer(t)
	ctx := context.Background()

	billing := backend.AddBranch("conv-1", "billing", "")
	backend.AddMessage(billing.ID, drift.RoleUser, "my invoice is wrong")
	backend.AddFact(billing.ID, "plan", "pro", 0.9)

	result, err := srv.handleBranches(ctx, callRequest(map[string]any{"conversation_id": "conv-1"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	var branches []drift.Branch
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &branches))
	require.Len(t, branches, 1)
	assert.Equal(t, "billing", branches[0].Topic)

	result, err = srv.handleContext(ctx, callRequest(map[string]any{"branch_id": billing.ID}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	var c drift.Context
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &c))
	assert.Equal(t, "billing", c.BranchTopic)
	require.Len(t, c.Messages, 1)
	require.Len(t, c.AllFacts, 1)
	assert.True(t, c.AllFacts[0].IsCurrent)
	require.Len(t, c.AllFacts[0].Facts, 1)

	result, err = srv.handleFacts(ctx, callRequest(map[string]any{"branch_id": billing.ID}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), `"key": "plan"`)
}

func TestHandleExtractFacts(t *testing.T) {
	srv, backend := newTestServer(t)
	b := backend.AddBranch("conv-1", "account", "")
	backend.AddMessage(b.ID, drift.RoleUser, "email: a@example.com")

	result, err := srv.handleExtractFacts(context.Background(), callRequest(map[string]any{"branch_id": b.ID}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var extracted drift.FactsResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &extracted))
	assert.Equal(t, 1, extracted.ExtractedCount)
	require.Len(t, extracted.Facts, 1)
	assert.Equal(t, "a@example.com", extracted.Facts[0].Value)
}

func TestHandleBuildPrompt(t *testing.T) {
	srv, backend := newTestServer(t)
	ctx := context.Background()
	b := backend.AddBranch("conv-1", "travel", "")
	backend.AddMessage(b.ID, drift.RoleUser, "book a flight")

	t.Run("default preamble", func(t *testing.T) {
		result, err := srv.handleBuildPrompt(ctx, callRequest(map[string]any{"branch_id": b.ID}))
		require.NoError(t, err)
		require.False(t, result.IsError)

		var p drift.Prompt
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &p))
		assert.Equal(t, drift.DefaultSystemPrompt+"\n\nCurrent topic: travel\n\nKnown facts:\n(none yet)", p.System)
		assert.Equal(t, []drift.PromptMessage{{Role: "user", Content: "book a flight"}}, p.Messages)
	})

	t.Run("custom preamble", func(t *testing.T) {
		result, err := srv.handleBuildPrompt(ctx, callRequest(map[string]any{
			"branch_id":     b.ID,
			"system_prompt": "You are a travel agent.",
		}))
		require.NoError(t, err)
		require.False(t, result.IsError)
		assert.Contains(t, resultText(t, result), "You are a travel agent.")
	})
}

func TestClientFailuresBecomeToolErrors(t *testing.T) {
	srv, backend := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleContext(ctx, callRequest(map[string]any{"branch_id": "missing"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "drift_context failed: branch not found", resultText(t, result))

	backend.FailNext(http.StatusInternalServerError, "")
	result, err = srv.handleBranches(ctx, callRequest(map[string]any{"conversation_id": "conv-1"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "drift_branches failed: request failed: 500", resultText(t, result))
}

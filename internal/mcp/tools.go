package mcp

import "github.com/mark3labs/mcp-go/mcp"

// routeTool defines the drift_route MCP tool.
var routeTool = mcp.NewTool("drift_route",
	mcp.WithDescription("Route a conversation message to a topic branch. Returns whether it stayed on the current branch, moved to an existing one, or opened a new one."),
	mcp.WithString("conversation_id",
		mcp.Required(),
		mcp.Description("Conversation the message belongs to"),
	),
	mcp.WithString("content",
		mcp.Required(),
		mcp.Description("Message text"),
	),
	mcp.WithString("role",
		mcp.Description("Author of the message (default user)"),
		mcp.Enum("user", "assistant"),
	),
)

// branchesTool defines the drift_branches MCP tool.
var branchesTool = mcp.NewTool("drift_branches",
	mcp.WithDescription("List the topic branches of a conversation."),
	mcp.WithString("conversation_id",
		mcp.Required(),
		mcp.Description("Conversation to list branches for"),
	),
)

// contextTool defines the drift_context MCP tool.
var contextTool = mcp.NewTool("drift_context",
	mcp.WithDescription("Get the messages, facts and related branch summary of a branch."),
	mcp.WithString("branch_id",
		mcp.Required(),
		mcp.Description("Branch to read"),
	),
)

// extractFactsTool defines the drift_extract_facts MCP tool.
var extractFactsTool = mcp.NewTool("drift_extract_facts",
	mcp.WithDescription("Extract facts from the messages of a branch and return all of its facts."),
	mcp.WithString("branch_id",
		mcp.Required(),
		mcp.Description("Branch to extract facts from"),
	),
)

// factsTool defines the drift_facts MCP tool.
var factsTool = mcp.NewTool("drift_facts",
	mcp.WithDescription("List the facts already extracted for a branch."),
	mcp.WithString("branch_id",
		mcp.Required(),
		mcp.Description("Branch to list facts for"),
	),
)

// buildPromptTool defines the drift_build_prompt MCP tool.
var buildPromptTool = mcp.NewTool("drift_build_prompt",
	mcp.WithDescription("Assemble a system prompt and message history for a branch, ready to send to a language model."),
	mcp.WithString("branch_id",
		mcp.Required(),
		mcp.Description("Branch to build the prompt for"),
	),
	mcp.WithString("system_prompt",
		mcp.Description("Preamble replacing the default system prompt"),
	),
)

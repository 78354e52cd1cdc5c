package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// FoundationElevateTool handles the foundation_elevate MCP tool: move a
// project foundation into the user-wide global layer.
type FoundationElevateTool struct{}

// NewFoundationElevateTool creates a FoundationElevateTool.
func NewFoundationElevateTool() *FoundationElevateTool {
	return &FoundationElevateTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *FoundationElevateTool) Definition() mcp.Tool {
	return mcp.NewTool("foundation_elevate",
		mcp.WithDescription(
			"Elevate a project foundation to global scope so every project "+
				"sees it. The record gets a new GF- id, keeps its origin "+
				"project, and the project copy is removed. Elevate only rules "+
				"that have proven portable — validate first.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Project foundation id, e.g. F-0001"),
		),
		mcp.WithString("reason",
			mcp.Description("Why this rule generalizes beyond its origin project"),
		),
	)
}

// Handle processes the foundation_elevate tool call.
func (t *FoundationElevateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	h, err := openKnowledge()
	if err != nil {
		return errResult("discovering layers", err)
	}

	f, err := h.Elevate(id, req.GetString("reason", ""))
	if err != nil {
		return errResult("elevating foundation", err)
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Foundation elevated: `%s` is now `%s` at global scope (origin: %s).\n",
		id, f.ID, f.OriginProject,
	)), nil
}

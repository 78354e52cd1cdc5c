package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// FoundationRemoveTool handles the foundation_remove MCP tool.
type FoundationRemoveTool struct{}

// NewFoundationRemoveTool creates a FoundationRemoveTool.
func NewFoundationRemoveTool() *FoundationRemoveTool {
	return &FoundationRemoveTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *FoundationRemoveTool) Definition() mcp.Tool {
	return mcp.NewTool("foundation_remove",
		mcp.WithDescription(
			"Delete a foundation whose exit criteria were met or that turned "+
				"out to be wrong. Pressure events that fed it are untouched.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Foundation id, e.g. F-0001 or GF-0001"),
		),
	)
}

// Handle processes the foundation_remove tool call.
func (t *FoundationRemoveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	h, err := openKnowledge()
	if err != nil {
		return errResult("discovering layers", err)
	}

	for _, layer := range h.Layers() {
		removed, err := layer.RemoveFoundation(id)
		if err != nil {
			return errResult("removing foundation", err)
		}
		if removed {
			return mcp.NewToolResultText(fmt.Sprintf("Foundation `%s` removed.", id)), nil
		}
	}
	return mcp.NewToolResultError(fmt.Sprintf("foundation %q not found in any layer", id)), nil
}

package tools

import (
	"context"
	"fmt"

	"github.com/hindsight-mcp/hindsight/internal/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
)

// FoundationUpdateTool handles the foundation_update MCP tool.
type FoundationUpdateTool struct{}

// NewFoundationUpdateTool creates a FoundationUpdateTool.
func NewFoundationUpdateTool() *FoundationUpdateTool {
	return &FoundationUpdateTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *FoundationUpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("foundation_update",
		mcp.WithDescription(
			"Edit a foundation in place. Only the fields you pass change; "+
				"arrays replace wholesale. Confidence is managed by "+
				"foundation_validate and is deliberately not editable here.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Foundation id, e.g. F-0001 or GF-0001"),
		),
		mcp.WithString("title",
			mcp.Description("New title"),
		),
		mcp.WithString("behavior",
			mcp.Description("New behavior text"),
		),
		mcp.WithArray("tags",
			mcp.Description("Replacement tag list"),
			stringItems(),
		),
		mcp.WithArray("counter_tags",
			mcp.Description("Replacement counter-tag list"),
			stringItems(),
		),
		mcp.WithString("exit_criteria",
			mcp.Description("New exit criteria"),
		),
	)
}

// Handle processes the foundation_update tool call.
func (t *FoundationUpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	h, err := openKnowledge()
	if err != nil {
		return errResult("discovering layers", err)
	}

	var patch knowledge.FoundationPatch
	if v, ok := req.GetArguments()["title"].(string); ok {
		patch.Title = &v
	}
	if v, ok := req.GetArguments()["behavior"].(string); ok {
		patch.Behavior = &v
	}
	if v, ok := req.GetArguments()["exit_criteria"].(string); ok {
		patch.ExitCriteria = &v
	}
	patch.Tags = stringsArg(req, "tags")
	patch.CounterTags = stringsArg(req, "counter_tags")

	// The record lives in whichever layer owns the id; try nearest-first.
	var updated *knowledge.Foundation
	for _, layer := range h.Layers() {
		updated, err = layer.UpdateFoundation(id, patch)
		if err == nil {
			break
		}
		if !knowledge.IsCode(err, knowledge.CodeNotFound) {
			return errResult("updating foundation", err)
		}
	}
	if updated == nil {
		return errResult("updating foundation", err)
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Foundation `%s` updated.\n\n**%s**\n\n%s\n", updated.ID, updated.Title, updated.Behavior,
	)), nil
}

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// FoundationValidateTool handles the foundation_validate MCP tool: record
// that the current project saw a foundation hold up in practice.
type FoundationValidateTool struct{}

// NewFoundationValidateTool creates a FoundationValidateTool.
func NewFoundationValidateTool() *FoundationValidateTool {
	return &FoundationValidateTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *FoundationValidateTool) Definition() mcp.Tool {
	return mcp.NewTool("foundation_validate",
		mcp.WithDescription(
			"Mark a foundation as validated by the current project. Each "+
				"project counts once; confidence climbs (max 3) only after "+
				"three distinct projects have validated. This is the only way "+
				"confidence moves.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Foundation id, e.g. F-0001 or GF-0001"),
		),
	)
}

// Handle processes the foundation_validate tool call.
func (t *FoundationValidateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	h, err := openKnowledge()
	if err != nil {
		return errResult("discovering layers", err)
	}

	f, err := h.ValidateFoundation(id)
	if err != nil {
		return errResult("validating foundation", err)
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Foundation `%s` validated.\n\n- Confidence: %d/3\n- Validated in: %s\n",
		f.ID, f.Confidence, strings.Join(f.ValidatedIn, ", "),
	)), nil
}

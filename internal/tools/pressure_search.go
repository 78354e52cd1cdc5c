package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// PressureSearchTool handles the pressure_search MCP tool: a plain
// substring scan over every pressure event in the project layer.
type PressureSearchTool struct{}

// NewPressureSearchTool creates a PressureSearchTool.
func NewPressureSearchTool() *PressureSearchTool {
	return &PressureSearchTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *PressureSearchTool) Definition() mcp.Tool {
	return mcp.NewTool("pressure_search",
		mcp.WithDescription(
			"Search pressure events across all cases in this project. "+
				"Case-insensitive substring match over expectation, actual, "+
				"adaptation, lesson, and tags. No ranking.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Substring to look for"),
		),
	)
}

// Handle processes the pressure_search tool call.
func (t *PressureSearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	h, err := openKnowledge()
	if err != nil {
		return errResult("discovering layers", err)
	}

	matches, err := h.Nearest().SearchPressures(query)
	if err != nil {
		return errResult("searching pressures", err)
	}
	if len(matches) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No pressure events match %q.", query)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %d match(es) for %q\n\n", len(matches), query)
	for _, ev := range matches {
		fmt.Fprintf(&b, "- `%s` (case `%s`): expected %s; got %s — %s\n",
			ev.ID, ev.CaseID, ev.Expected, ev.Actual, ev.Lesson)
	}
	return mcp.NewToolResultText(b.String()), nil
}

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// CaseStatusTool handles the case_status MCP tool: a read-only view of the
// active case and its pressure events.
type CaseStatusTool struct{}

// NewCaseStatusTool creates a CaseStatusTool.
func NewCaseStatusTool() *CaseStatusTool {
	return &CaseStatusTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *CaseStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("case_status",
		mcp.WithDescription(
			"Show the active case, its context signals, and the pressure "+
				"events logged so far. Use before closing to see what still "+
				"needs promoting.",
		),
	)
}

// Handle processes the case_status tool call.
func (t *CaseStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h, err := openKnowledge()
	if err != nil {
		return errResult("discovering layers", err)
	}

	c, err := h.Nearest().ActiveCase()
	if err != nil {
		return errResult("loading active case", err)
	}
	if c == nil {
		return mcp.NewToolResultText("No active case. Start one with `case_start`."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n**Goal:** %s\n**Status:** %s\n**Started:** %s\n", c.ID, c.Goal, c.Status, c.CreatedAt)
	if len(c.TouchedAreas) > 0 {
		fmt.Fprintf(&b, "**Touched areas:** %s\n", strings.Join(c.TouchedAreas, ", "))
	}
	if c.Signals != nil && len(c.Signals.AffectedSurfaces) > 0 {
		fmt.Fprintf(&b, "**Affected surfaces:** %s\n", strings.Join(c.Signals.AffectedSurfaces, ", "))
	}

	events, err := h.Nearest().Pressures(c.ID)
	if err != nil {
		return errResult("loading pressure events", err)
	}
	if len(events) == 0 {
		b.WriteString("\nNo pressure events yet.\n")
		return mcp.NewToolResultText(b.String()), nil
	}

	fmt.Fprintf(&b, "\n## Pressure events (%d)\n\n", len(events))
	for _, ev := range events {
		marker := "unpromoted"
		if ev.PromotedTo != "" {
			marker = "promoted to " + ev.PromotedTo
		}
		fmt.Fprintf(&b, "- `%s` %s (%s)\n", ev.ID, ev.Lesson, marker)
	}
	return mcp.NewToolResultText(b.String()), nil
}

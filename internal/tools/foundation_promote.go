package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/hindsight-mcp/hindsight/internal/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
)

// FoundationPromoteTool handles the foundation_promote MCP tool: compress
// one or more pressure events into a durable foundation.
type FoundationPromoteTool struct{}

// NewFoundationPromoteTool creates a FoundationPromoteTool.
func NewFoundationPromoteTool() *FoundationPromoteTool {
	return &FoundationPromoteTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *FoundationPromoteTool) Definition() mcp.Tool {
	return mcp.NewTool("foundation_promote",
		mcp.WithDescription(
			"Compress pressure events into a foundation: a reusable behavioral "+
				"rule that outlives its source case. Starts at confidence 1. "+
				"Source events get marked as promoted, which is what lets their "+
				"case be auto-forgotten on close.",
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Short name for the rule; titles deduplicate across layers"),
		),
		mcp.WithString("behavior",
			mcp.Required(),
			mcp.Description("The rule itself, phrased as guidance: 'Prefer X when Y'"),
		),
		mcp.WithArray("sources",
			mcp.Description("Pressure event ids this compresses, e.g. PE-0001"),
			stringItems(),
		),
		mcp.WithArray("tags",
			mcp.Description("Contexts where the rule applies"),
			stringItems(),
		),
		mcp.WithArray("counter_tags",
			mcp.Description("Contexts where the rule explicitly does NOT apply"),
			stringItems(),
		),
		mcp.WithString("exit_criteria",
			mcp.Description("What would make this rule obsolete"),
		),
	)
}

// Handle processes the foundation_promote tool call.
func (t *FoundationPromoteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := req.GetString("title", "")
	behavior := req.GetString("behavior", "")
	if strings.TrimSpace(title) == "" || strings.TrimSpace(behavior) == "" {
		return mcp.NewToolResultError("'title' and 'behavior' are required"), nil
	}

	h, err := openKnowledge()
	if err != nil {
		return errResult("discovering layers", err)
	}

	layer := h.Nearest()
	f, err := layer.Promote(knowledge.PromoteInput{
		Title:         title,
		Behavior:      behavior,
		Tags:          stringsArg(req, "tags"),
		CounterTags:   stringsArg(req, "counter_tags"),
		ExitCriteria:  req.GetString("exit_criteria", ""),
		Sources:       stringsArg(req, "sources"),
		OriginProject: layer.Project(),
	})
	if err != nil {
		return errResult("promoting foundation", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Foundation Created\n\n**ID:** `%s`\n**Title:** %s\n**Confidence:** %d/3\n",
		f.ID, f.Title, f.Confidence)
	if len(f.SourcePressures) > 0 {
		fmt.Fprintf(&b, "**Compressed from:** %s\n", strings.Join(f.SourcePressures, ", "))
	}
	b.WriteString("\nValidate it in other projects with `foundation_validate`; " +
		"elevate it to global scope with `foundation_elevate` once it proves portable.\n")
	return mcp.NewToolResultText(b.String()), nil
}

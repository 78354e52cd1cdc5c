package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/hindsight-mcp/hindsight/internal/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
)

// FoundationListTool handles the foundation_list MCP tool: the merged,
// ranked view of foundations across every discovered layer.
type FoundationListTool struct{}

// NewFoundationListTool creates a FoundationListTool.
func NewFoundationListTool() *FoundationListTool {
	return &FoundationListTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *FoundationListTool) Definition() mcp.Tool {
	return mcp.NewTool("foundation_list",
		mcp.WithDescription(
			"List foundations merged across the project and global layers. "+
				"Same-titled entries keep only the nearest (project wins). "+
				"With an active case the list is ranked by tag overlap with "+
				"that case's context and annotated directly_relevant/general.",
		),
		mcp.WithArray("tags",
			mcp.Description("Only foundations carrying at least one of these tags"),
			stringItems(),
		),
		mcp.WithNumber("min_confidence",
			mcp.Description("Minimum confidence, inclusive (1-3)"),
		),
	)
}

// Handle processes the foundation_list tool call.
func (t *FoundationListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h, err := openKnowledge()
	if err != nil {
		return errResult("discovering layers", err)
	}

	ranked, err := h.RankFoundations(knowledge.FoundationFilter{
		Tags:          stringsArg(req, "tags"),
		MinConfidence: intArg(req, "min_confidence", 0),
	})
	if err != nil {
		return errResult("listing foundations", err)
	}
	if len(ranked) == 0 {
		return mcp.NewToolResultText("No foundations yet. Promote pressure events with `foundation_promote`."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Foundations (%d)\n\n", len(ranked))
	for _, f := range ranked {
		scope := "project"
		if f.Global {
			scope = "global"
		}
		fmt.Fprintf(&b, "## `%s` %s\n\n%s\n\n- Confidence: %d/3 (validated in: %s)\n- Scope: %s\n",
			f.ID, f.Title, f.Behavior, f.Confidence, joinOrDash(f.ValidatedIn), scope)
		if len(f.Tags) > 0 {
			fmt.Fprintf(&b, "- Tags: %s\n", strings.Join(f.Tags, ", "))
		}
		if len(f.CounterTags) > 0 {
			fmt.Fprintf(&b, "- Does NOT apply to: %s\n", strings.Join(f.CounterTags, ", "))
		}
		if f.Relevance != "" {
			fmt.Fprintf(&b, "- Relevance: %s\n", f.Relevance)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/hindsight-mcp/hindsight/internal/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
)

// FoundationConflictsTool handles the foundation_conflicts MCP tool.
type FoundationConflictsTool struct{}

// NewFoundationConflictsTool creates a FoundationConflictsTool.
func NewFoundationConflictsTool() *FoundationConflictsTool {
	return &FoundationConflictsTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *FoundationConflictsTool) Definition() mcp.Tool {
	return mcp.NewTool("foundation_conflicts",
		mcp.WithDescription(
			"Flag project foundations that clash with global ones: same-title "+
				"shadowing, or opposing behavior (always/never, prefer/avoid) "+
				"on overlapping tags. Flags are advisory — resolve by editing, "+
				"removing, or keeping the project override on purpose.",
		),
	)
}

// Handle processes the foundation_conflicts tool call.
func (t *FoundationConflictsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h, err := openKnowledge()
	if err != nil {
		return errResult("discovering layers", err)
	}

	conflicts, err := h.Conflicts()
	if err != nil {
		return errResult("checking conflicts", err)
	}
	if len(conflicts) == 0 {
		return mcp.NewToolResultText("No conflicts between project and global foundations."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %d conflict(s)\n\n", len(conflicts))
	for _, c := range conflicts {
		switch c.Kind {
		case knowledge.ConflictShadows:
			fmt.Fprintf(&b, "- `%s` shadows global `%s` (same title; project wins in merged listings)\n",
				c.ProjectID, c.GlobalID)
		case knowledge.ConflictContradicts:
			fmt.Fprintf(&b, "- `%s` contradicts global `%s` on %s\n",
				c.ProjectID, c.GlobalID, strings.Join(c.Tags, ", "))
		}
	}
	b.WriteString("\nReview each pair: update one side, remove the stale one, or leave a deliberate project override in place.\n")
	return mcp.NewToolResultText(b.String()), nil
}

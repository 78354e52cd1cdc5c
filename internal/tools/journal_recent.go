package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/hindsight-mcp/hindsight/internal/journal"
	"github.com/mark3labs/mcp-go/mcp"
)

// JournalRecentTool handles the journal_recent MCP tool. Only registered
// when the journal subsystem initialized.
type JournalRecentTool struct {
	journal *journal.Journal
}

// NewJournalRecentTool creates a JournalRecentTool with its dependencies.
func NewJournalRecentTool(j *journal.Journal) *JournalRecentTool {
	return &JournalRecentTool{journal: j}
}

// Definition returns the MCP tool definition for registration.
func (t *JournalRecentTool) Definition() mcp.Tool {
	return mcp.NewTool("journal_recent",
		mcp.WithDescription(
			"Show the most recent tool invocations from the operation journal: "+
				"which tools ran, when, and whether they succeeded.",
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum entries to return (default 20)"),
		),
	)
}

// Handle processes the journal_recent tool call.
func (t *JournalRecentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := t.journal.Recent(intArg(req, "limit", 20))
	if err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("Journal is empty."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Journal (%d)\n\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s `%s` %s", e.CreatedAt, e.Tool, e.Outcome)
		if e.Detail != "" {
			fmt.Fprintf(&b, " — %s", e.Detail)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hindsight-mcp/hindsight/internal/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
)

// InitTool handles the hindsight_init MCP tool: it creates the project
// layer for the current working directory.
type InitTool struct{}

// NewInitTool creates an InitTool.
func NewInitTool() *InitTool {
	return &InitTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *InitTool) Definition() mcp.Tool {
	return mcp.NewTool("hindsight_init",
		mcp.WithDescription(
			"Initialize a Hindsight knowledge layer for the current project. "+
				"Creates a .hindsight/ directory here; other tools discover it by "+
				"walking up from wherever they run. Safe to call repeatedly.",
		),
	)
}

// Handle processes the hindsight_init tool call.
func (t *InitTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	h, err := knowledge.Init(dir)
	if err != nil {
		return errResult("initializing layer", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Knowledge Layer Ready\n\n")
	fmt.Fprintf(&b, "**Project:** %s\n\n**Layers in scope (nearest first):**\n", h.Nearest().Project())
	for _, layer := range h.Layers() {
		fmt.Fprintf(&b, "- `%s` (%s)\n", layer.Path(), layer.Scope())
	}
	b.WriteString("\nStart tracking a decision with `case_start`.\n")
	return mcp.NewToolResultText(b.String()), nil
}

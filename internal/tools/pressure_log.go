package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/hindsight-mcp/hindsight/internal/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
)

// PressureLogTool handles the pressure_log MCP tool: record a moment where
// reality diverged from expectation during a case.
type PressureLogTool struct{}

// NewPressureLogTool creates a PressureLogTool.
func NewPressureLogTool() *PressureLogTool {
	return &PressureLogTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *PressureLogTool) Definition() mcp.Tool {
	return mcp.NewTool("pressure_log",
		mcp.WithDescription(
			"Log a pressure event: what you expected, what actually happened, "+
				"and how you adapted. Lands on the active case unless case_id "+
				"says otherwise. These are the raw material foundations are "+
				"compressed from — capture the surprise while it is fresh.",
		),
		mcp.WithString("expected",
			mcp.Required(),
			mcp.Description("What you expected to happen"),
		),
		mcp.WithString("actual",
			mcp.Required(),
			mcp.Description("What actually happened"),
		),
		mcp.WithString("adaptation",
			mcp.Required(),
			mcp.Description("What you did about it"),
		),
		mcp.WithString("lesson",
			mcp.Required(),
			mcp.Description("One memorable line you'd want surfaced next time"),
		),
		mcp.WithString("case_id",
			mcp.Description("Owning case; defaults to the active case"),
		),
		mcp.WithString("category",
			mcp.Description("Optional category, e.g. ASSUMPTION, TOOLING, API"),
		),
		mcp.WithArray("tags",
			mcp.Description("Context tags used for clustering and search, e.g. DATABASE, PERFORMANCE"),
			stringItems(),
		),
	)
}

// Handle processes the pressure_log tool call.
func (t *PressureLogTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	for _, field := range []string{"expected", "actual", "adaptation", "lesson"} {
		if strings.TrimSpace(req.GetString(field, "")) == "" {
			return mcp.NewToolResultError(fmt.Sprintf("'%s' is required", field)), nil
		}
	}

	h, err := openKnowledge()
	if err != nil {
		return errResult("discovering layers", err)
	}

	ev, err := h.Nearest().LogPressure(knowledge.LogPressureInput{
		CaseID:     req.GetString("case_id", ""),
		Category:   req.GetString("category", ""),
		Tags:       stringsArg(req, "tags"),
		Expected:   req.GetString("expected", ""),
		Actual:     req.GetString("actual", ""),
		Adaptation: req.GetString("adaptation", ""),
		Lesson:     req.GetString("lesson", ""),
	})
	if err != nil {
		return errResult("logging pressure", err)
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Pressure event `%s` logged on `%s`.\n\n> %s\n",
		ev.ID, ev.CaseID, ev.Lesson,
	)), nil
}

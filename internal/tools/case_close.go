package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hindsight-mcp/hindsight/internal/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
)

// CaseCloseTool handles the case_close MCP tool. Closing evaluates the
// auto-forget rule: a zero-regret case whose every pressure event has been
// promoted is deleted rather than archived.
type CaseCloseTool struct{}

// NewCaseCloseTool creates a CaseCloseTool.
func NewCaseCloseTool() *CaseCloseTool {
	return &CaseCloseTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *CaseCloseTool) Definition() mcp.Tool {
	return mcp.NewTool("case_close",
		mcp.WithDescription(
			"Close a case with its outcome. Regret 0 with nothing left to "+
				"promote deletes the case outright (auto-forget): knowledge "+
				"must outlive its container, and a container with nothing left "+
				"to teach is removed. Any other outcome keeps the case around.",
		),
		mcp.WithString("case_id",
			mcp.Required(),
			mcp.Description("The case to close, e.g. 0001-add-tile-caching"),
		),
		mcp.WithNumber("regret",
			mcp.Required(),
			mcp.Description("0 = would do exactly this again, 3 = serious regret"),
		),
		mcp.WithString("notes",
			mcp.Description("Closing notes"),
		),
		mcp.WithArray("regressions",
			mcp.Description("Regressions this work caused, if any"),
			stringItems(),
		),
	)
}

// Handle processes the case_close tool call.
func (t *CaseCloseTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	caseID := req.GetString("case_id", "")
	if caseID == "" {
		return mcp.NewToolResultError("'case_id' is required"), nil
	}

	h, err := openKnowledge()
	if err != nil {
		return errResult("discovering layers", err)
	}

	res, err := h.Nearest().CloseCase(caseID, knowledge.Outcome{
		Regret:      strconv.Itoa(intArg(req, "regret", -1)),
		Notes:       req.GetString("notes", ""),
		Regressions: stringsArg(req, "regressions"),
	})
	if err != nil {
		return errResult("closing case", err)
	}

	var b strings.Builder
	if res.Forgotten {
		fmt.Fprintf(&b, "# Case Forgotten\n\n`%s` closed with regret 0 and no unpromoted "+
			"pressure events — it had nothing left to teach, so it is gone.\n", caseID)
		return mcp.NewToolResultText(b.String()), nil
	}

	fmt.Fprintf(&b, "# Case Closed\n\n**ID:** `%s`\n**Regret:** %s\n", caseID, res.Case.Outcome.Regret)
	events, err := h.Nearest().Pressures(caseID)
	if err == nil {
		unpromoted := 0
		for _, ev := range events {
			if ev.PromotedTo == "" {
				unpromoted++
			}
		}
		if unpromoted > 0 {
			fmt.Fprintf(&b, "\n%d pressure event(s) still unpromoted. Compress them with "+
				"`foundation_promote` (see `review_suggest` for clusters) so the case can be forgotten.\n", unpromoted)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

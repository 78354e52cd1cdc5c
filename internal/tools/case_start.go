package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/hindsight-mcp/hindsight/internal/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
)

// CaseStartTool handles the case_start MCP tool. It opens a new unit of
// work, makes it the active case, and reports what the decision policy
// expects for the declared context.
type CaseStartTool struct{}

// NewCaseStartTool creates a CaseStartTool.
func NewCaseStartTool() *CaseStartTool {
	return &CaseStartTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *CaseStartTool) Definition() mcp.Tool {
	return mcp.NewTool("case_start",
		mcp.WithDescription(
			"Start a new case: a bounded unit of work whose decisions you want "+
				"tracked. The case becomes active, so pressure events logged "+
				"without an explicit case land here. Declare context signals to "+
				"get a policy verdict (options comparison, validation level) up front.",
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Short task title; also generates the case id slug. Example: 'Add tile caching' -> 0001-add-tile-caching"),
		),
		mcp.WithString("goal",
			mcp.Description("What done looks like. Defaults to the title."),
		),
		mcp.WithString("risk_level",
			mcp.Description("Blast radius if this goes wrong: HIGH, MEDIUM, LOW, or your own vocabulary"),
		),
		mcp.WithString("reversibility",
			mcp.Description("How hard a rollback would be: HARD, EASY, ..."),
		),
		mcp.WithString("change_frequency",
			mcp.Description("How often this area changes"),
		),
		mcp.WithString("repo_scope",
			mcp.Description("SINGLE_REPO or CROSS_REPO"),
		),
		mcp.WithString("uncertainty",
			mcp.Description("How unsure you are about the approach: HIGH, MEDIUM, LOW"),
		),
		mcp.WithString("novelty",
			mcp.Description("How new this kind of work is to you"),
		),
		mcp.WithArray("affected_surfaces",
			mcp.Description("Surfaces this touches, e.g. CORE_DOMAIN, DATA_MODEL, SECURITY_BOUNDARY, INFRA_DEPLOY, PERFORMANCE_CRITICAL, INTEGRATION"),
			stringItems(),
		),
		mcp.WithArray("touched_areas",
			mcp.Description("Free-form labels for the code areas involved; used for foundation relevance ranking"),
			stringItems(),
		),
	)
}

// Handle processes the case_start tool call.
func (t *CaseStartTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := req.GetString("title", "")
	if strings.TrimSpace(title) == "" {
		return mcp.NewToolResultError("'title' is required — name the unit of work"), nil
	}

	h, err := openKnowledge()
	if err != nil {
		return errResult("discovering layers", err)
	}

	signals := signalsFromRequest(req)
	c, err := h.Nearest().StartCase(knowledge.StartCaseInput{
		Title:        title,
		Goal:         req.GetString("goal", ""),
		Signals:      signals,
		TouchedAreas: stringsArg(req, "touched_areas"),
	})
	if err != nil {
		return errResult("starting case", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Case Started\n\n**ID:** `%s`\n**Goal:** %s\n", c.ID, c.Goal)

	if signals != nil {
		policy := knowledge.CheckPolicy(*signals)
		fmt.Fprintf(&b, "\n## Policy\n\n- Validation level: **%s**\n", policy.ValidationLevel)
		if policy.RequireOptionsComparison {
			b.WriteString("- **Compare options before committing** — this context demands it\n")
		}
	}

	if ranked, err := h.RankFoundations(knowledge.FoundationFilter{}); err == nil {
		wroteHeader := false
		for _, f := range ranked {
			if f.Relevance != knowledge.RelevanceDirect {
				continue
			}
			if !wroteHeader {
				b.WriteString("\n## Relevant foundations\n\n")
				wroteHeader = true
			}
			fmt.Fprintf(&b, "- `%s` %s: %s\n", f.ID, f.Title, f.Behavior)
		}
	}

	b.WriteString("\nLog divergences as they happen with `pressure_log`; close with `case_close`.\n")
	return mcp.NewToolResultText(b.String()), nil
}

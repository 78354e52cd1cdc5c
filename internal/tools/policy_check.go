package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/hindsight-mcp/hindsight/internal/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
)

// PolicyCheckTool handles the policy_check MCP tool: the pure decision
// table, usable without any layer on disk.
type PolicyCheckTool struct{}

// NewPolicyCheckTool creates a PolicyCheckTool.
func NewPolicyCheckTool() *PolicyCheckTool {
	return &PolicyCheckTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *PolicyCheckTool) Definition() mcp.Tool {
	return mcp.NewTool("policy_check",
		mcp.WithDescription(
			"Evaluate context signals against the decision policy without "+
				"touching any case: should options be compared before "+
				"committing, and how much validation does the change deserve "+
				"(BASIC, STANDARD, STRICT).",
		),
		mcp.WithString("risk_level",
			mcp.Description("HIGH, MEDIUM, LOW"),
		),
		mcp.WithString("reversibility",
			mcp.Description("HARD, EASY"),
		),
		mcp.WithString("change_frequency",
			mcp.Description("How often this area changes"),
		),
		mcp.WithString("repo_scope",
			mcp.Description("SINGLE_REPO or CROSS_REPO"),
		),
		mcp.WithString("uncertainty",
			mcp.Description("HIGH, MEDIUM, LOW"),
		),
		mcp.WithString("novelty",
			mcp.Description("How new this kind of work is"),
		),
		mcp.WithArray("affected_surfaces",
			mcp.Description("e.g. CORE_DOMAIN, DATA_MODEL, SECURITY_BOUNDARY, INFRA_DEPLOY, PERFORMANCE_CRITICAL, INTEGRATION"),
			stringItems(),
		),
	)
}

// Handle processes the policy_check tool call.
func (t *PolicyCheckTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	signals := signalsFromRequest(req)
	if signals == nil {
		return mcp.NewToolResultError("at least one context signal is required"), nil
	}

	policy := knowledge.CheckPolicy(*signals)

	var b strings.Builder
	b.WriteString("# Policy Verdict\n\n")
	fmt.Fprintf(&b, "- Validation level: **%s**\n", policy.ValidationLevel)
	if policy.RequireOptionsComparison {
		b.WriteString("- Options comparison: **required** — write down at least two approaches and why you picked one\n")
	} else {
		b.WriteString("- Options comparison: not required\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReviewSuggestTool handles the review_suggest MCP tool: a retrospective
// over the project's closed cases.
type ReviewSuggestTool struct{}

// NewReviewSuggestTool creates a ReviewSuggestTool.
func NewReviewSuggestTool() *ReviewSuggestTool {
	return &ReviewSuggestTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *ReviewSuggestTool) Definition() mcp.Tool {
	return mcp.NewTool("review_suggest",
		mcp.WithDescription(
			"Retrospective over closed cases: which cases are blocked from "+
				"being forgotten by unpromoted pressure events, which closed "+
				"with real regret but no captured lessons, and which unpromoted "+
				"events cluster by tag into promotion candidates.",
		),
	)
}

// Handle processes the review_suggest tool call.
func (t *ReviewSuggestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h, err := openKnowledge()
	if err != nil {
		return errResult("discovering layers", err)
	}

	review, err := h.Nearest().SuggestReview()
	if err != nil {
		return errResult("building review", err)
	}

	var b strings.Builder
	b.WriteString("# Review\n\n")
	fmt.Fprintf(&b, "%s\n", review.Summary)

	if len(review.ForgetBlockers) > 0 {
		b.WriteString("\n## Cases blocked from forgetting\n\n")
		for _, fb := range review.ForgetBlockers {
			fmt.Fprintf(&b, "- `%s`: %d unpromoted event(s): %s\n",
				fb.CaseID, fb.Count, strings.Join(fb.Unpromoted, ", "))
		}
	}

	if len(review.UncapturedRegrets) > 0 {
		b.WriteString("\n## Regret without lessons\n\n")
		for _, ur := range review.UncapturedRegrets {
			fmt.Fprintf(&b, "- `%s` closed with regret %s and no pressure events — the lesson is uncaptured\n",
				ur.CaseID, ur.Regret)
		}
	}

	if len(review.Clusters) > 0 {
		b.WriteString("\n## Promotion candidates\n\n")
		for _, cl := range review.Clusters {
			fmt.Fprintf(&b, "### %s (%d events)\n\n", cl.Tag, len(cl.Members))
			for i, id := range cl.Members {
				lesson := ""
				if i < len(cl.Lessons) {
					lesson = cl.Lessons[i]
				}
				fmt.Fprintf(&b, "- `%s` %s\n", id, lesson)
			}
			if len(cl.SharedTags) > 1 {
				fmt.Fprintf(&b, "\nShared tags: %s\n", strings.Join(cl.SharedTags, ", "))
			}
			fmt.Fprintf(&b, "\nCompress with `foundation_promote` citing sources: %s\n\n",
				strings.Join(cl.Members, ", "))
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

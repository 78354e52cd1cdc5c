// Package prompts implements MCP prompt handlers for the knowledge store.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReviewPrompt handles the hindsight-review MCP prompt.
// It guides the AI through a retrospective over the project's closed cases.
type ReviewPrompt struct{}

// NewReviewPrompt creates a ReviewPrompt.
func NewReviewPrompt() *ReviewPrompt {
	return &ReviewPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ReviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("hindsight-review",
		mcp.WithPromptDescription(
			"Run a retrospective: find cases blocked from forgetting, regret "+
				"that never became lessons, and pressure-event clusters worth "+
				"compressing into foundations.",
		),
		mcp.WithArgument("focus",
			mcp.ArgumentDescription("Optional area to focus on, e.g. a tag like DATABASE"),
		),
	)
}

// Handle processes the hindsight-review prompt request.
func (p *ReviewPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	focus := ""
	if args := req.Params.Arguments; args != nil {
		if f, ok := args["focus"]; ok && f != "" {
			focus = f
		}
	}

	focusLine := ""
	if focus != "" {
		focusLine = fmt.Sprintf("\nFocus the retrospective on: %s\n", focus)
	}

	return &mcp.GetPromptResult{
		Description: "Knowledge retrospective",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Let's run a knowledge retrospective for this project.\n%s\n"+
						"Please:\n"+
						"1. Run `review_suggest` and walk me through what it found\n"+
						"2. For each cluster of unpromoted pressure events, draft a foundation "+
						"(title, behavior, tags, counter-tags) and ask me to confirm before "+
						"calling `foundation_promote` with the cluster's event ids as sources\n"+
						"3. For cases that closed with regret but no captured lessons, ask me "+
						"what went wrong so we can log it\n"+
						"4. Run `foundation_conflicts` and flag anything that clashes with "+
						"global knowledge\n"+
						"5. Finish by closing any case that is now fully compressed",
					focusLine,
				)),
			},
		},
	}, nil
}

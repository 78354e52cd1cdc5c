// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools/prompts/resources that depend on them.
// No business logic lives here — only wiring.
package server

import (
	"context"
	"log"

	"github.com/hindsight-mcp/hindsight/internal/journal"
	"github.com/hindsight-mcp/hindsight/internal/knowledge"
	"github.com/hindsight-mcp/hindsight/internal/prompts"
	"github.com/hindsight-mcp/hindsight/internal/resources"
	"github.com/hindsight-mcp/hindsight/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function closes the journal's database connection
// and must be called on shutdown (typically via defer). It is always
// non-nil and safe to call even if journal init failed.
func New(journalEnabled bool) (*server.MCPServer, func(), error) {
	opts := []server.ServerOption{
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	}

	// --- Journal subsystem ---
	//
	// The journal is independent: if it fails to initialize, every
	// knowledge tool continues working. We log a warning and skip both
	// the middleware and the journal_recent tool.

	cleanup := noop
	var jrnl *journal.Journal
	if journalEnabled {
		j, err := journal.Open(knowledge.GlobalLayerDir())
		if err != nil {
			log.Printf("WARNING: journal subsystem disabled: %v", err)
		} else {
			jrnl = j
			cleanup = func() {
				if err := j.Close(); err != nil {
					log.Printf("WARNING: journal close: %v", err)
				}
			}
			opts = append(opts, server.WithToolHandlerMiddleware(journalMiddleware(j)))
		}
	}

	s := server.NewMCPServer("hindsight", Version, opts...)

	// --- Register case and pressure tools ---

	initTool := tools.NewInitTool()
	s.AddTool(initTool.Definition(), initTool.Handle)

	caseStart := tools.NewCaseStartTool()
	s.AddTool(caseStart.Definition(), caseStart.Handle)

	caseClose := tools.NewCaseCloseTool()
	s.AddTool(caseClose.Definition(), caseClose.Handle)

	caseStatus := tools.NewCaseStatusTool()
	s.AddTool(caseStatus.Definition(), caseStatus.Handle)

	pressureLog := tools.NewPressureLogTool()
	s.AddTool(pressureLog.Definition(), pressureLog.Handle)

	pressureSearch := tools.NewPressureSearchTool()
	s.AddTool(pressureSearch.Definition(), pressureSearch.Handle)

	// --- Register foundation tools ---

	foundationList := tools.NewFoundationListTool()
	s.AddTool(foundationList.Definition(), foundationList.Handle)

	foundationPromote := tools.NewFoundationPromoteTool()
	s.AddTool(foundationPromote.Definition(), foundationPromote.Handle)

	foundationUpdate := tools.NewFoundationUpdateTool()
	s.AddTool(foundationUpdate.Definition(), foundationUpdate.Handle)

	foundationRemove := tools.NewFoundationRemoveTool()
	s.AddTool(foundationRemove.Definition(), foundationRemove.Handle)

	foundationElevate := tools.NewFoundationElevateTool()
	s.AddTool(foundationElevate.Definition(), foundationElevate.Handle)

	foundationValidate := tools.NewFoundationValidateTool()
	s.AddTool(foundationValidate.Definition(), foundationValidate.Handle)

	foundationConflicts := tools.NewFoundationConflictsTool()
	s.AddTool(foundationConflicts.Definition(), foundationConflicts.Handle)

	// --- Register review and policy tools ---

	reviewSuggest := tools.NewReviewSuggestTool()
	s.AddTool(reviewSuggest.Definition(), reviewSuggest.Handle)

	policyCheck := tools.NewPolicyCheckTool()
	s.AddTool(policyCheck.Definition(), policyCheck.Handle)

	if jrnl != nil {
		journalRecent := tools.NewJournalRecentTool(jrnl)
		s.AddTool(journalRecent.Definition(), journalRecent.Handle)
	}

	// --- Register prompts ---

	reviewPrompt := prompts.NewReviewPrompt()
	s.AddPrompt(reviewPrompt.Definition(), reviewPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler()
	s.AddResource(resourceHandler.StatusResource(), resourceHandler.HandleStatus)

	return s, cleanup, nil
}

// noop is a no-op cleanup function used as the default when the journal
// is disabled or hasn't been initialized.
func noop() {}

// journalMiddleware records every tool call's outcome. Journal write
// failures are logged and swallowed — the journal never blocks a tool.
func journalMiddleware(j *journal.Journal) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			res, err := next(ctx, req)

			outcome := journal.OutcomeOK
			detail := ""
			switch {
			case err != nil:
				outcome = journal.OutcomeError
				detail = err.Error()
			case res != nil && res.IsError:
				outcome = journal.OutcomeError
			}
			if _, jerr := j.Record(req.Params.Name, outcome, detail); jerr != nil {
				log.Printf("WARNING: journal record: %v", jerr)
			}
			return res, err
		}
	}
}

// serverInstructions returns the system instructions that tell the AI
// how to use the knowledge store effectively.
func serverInstructions() string {
	return `You have access to Hindsight, a knowledge store for decisions made
under uncertainty.

## Core model

- A CASE is a bounded unit of work (a feature, a fix, an investigation).
- A PRESSURE EVENT records a moment where reality diverged from expectation:
  what you expected, what happened, how you adapted, and the lesson.
- A FOUNDATION is a compressed, reusable behavioral rule promoted from one or
  more pressure events. Foundations are what survive; cases are disposable.

Knowledge lives in layers: each project has its own layer (.hindsight in the
project root), plus one user-wide global layer. Listings merge across layers
with the project winning on title collisions.

## Workflow

1. At the start of a unit of work, call case_start with a title and honest
   context signals (risk, reversibility, uncertainty, affected surfaces).
   Heed the policy verdict: if it demands an options comparison, write down
   at least two approaches before committing to one.
2. Whenever something surprises you — an assumption breaks, a tool misbehaves,
   an API does not work as documented — call pressure_log IMMEDIATELY. The
   value is in capturing the divergence while it is fresh.
3. Before closing, call case_status. Compress worthwhile pressure events into
   foundations with foundation_promote.
4. Close with case_close and an honest regret score (0 = would do exactly
   this again, 3 = serious regret). A fully-compressed zero-regret case is
   deleted on close — that is the system working as intended, not data loss.

## Retrospectives

Run review_suggest periodically. It surfaces cases blocked from forgetting,
regret that never became lessons, and clusters of similar pressure events
that are promotion candidates.

## Cross-project knowledge

- foundation_validate: record that a rule held up in the current project.
  Confidence rises only after three distinct projects have validated.
- foundation_elevate: move a proven project rule to the global layer.
- foundation_conflicts: check project rules against global ones for
  shadowing or contradiction.

## Important rules

- Log pressure events as they happen, not in a batch at the end.
- Regret scores must be honest — a default of 0 defeats the whole system.
- Write foundation behaviors as actionable guidance ("Prefer X when Y"),
  with tags for where they apply and counter-tags for where they do not.
- Use policy_check before risky work even without an active case.`
}

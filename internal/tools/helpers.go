// Package tools implements the MCP tool handlers for the knowledge store.
//
// Each tool is a struct with Definition() and Handle(): Definition declares
// the argument schema for the host, Handle receives the shape-checked call.
// Handlers resolve the layer hierarchy from the working directory on every
// call, so the server works from any subdirectory of a project.
//
// Domain failures (unknown ids, no active case, validation) come back as
// tool error results for the host to render; anything else is an internal
// error and propagates.
package tools

import (
	"fmt"
	"os"

	"github.com/hindsight-mcp/hindsight/internal/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
)

// openKnowledge discovers the hierarchy for the current working directory.
func openKnowledge() (*knowledge.Hierarchy, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	return knowledge.Discover(dir)
}

// errResult maps a store error to a tool result. Errors carrying a store
// code are the caller's problem; everything else is ours.
func errResult(op string, err error) (*mcp.CallToolResult, error) {
	if knowledge.AsCode(err) != "" {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, fmt.Errorf("%s: %w", op, err)
}

// stringsArg extracts a string-array argument, tolerating missing keys.
// JSON arrays arrive as []any.
func stringsArg(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// intArg extracts an integer argument, returning defaultVal if the key is
// missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// stringItems is the item schema for string-array tool arguments.
func stringItems() mcp.PropertyOption {
	return mcp.Items(map[string]any{"type": "string"})
}

// signalsFromRequest assembles context signals from the shared signal
// arguments used by case_start and policy_check. Returns nil when no
// signal was given at all.
func signalsFromRequest(req mcp.CallToolRequest) *knowledge.ContextSignals {
	sig := knowledge.ContextSignals{
		RiskLevel:        req.GetString("risk_level", ""),
		Reversibility:    req.GetString("reversibility", ""),
		ChangeFrequency:  req.GetString("change_frequency", ""),
		RepoScope:        req.GetString("repo_scope", ""),
		Uncertainty:      req.GetString("uncertainty", ""),
		Novelty:          req.GetString("novelty", ""),
		AffectedSurfaces: stringsArg(req, "affected_surfaces"),
	}
	if sig.RiskLevel == "" && sig.Reversibility == "" && sig.ChangeFrequency == "" &&
		sig.RepoScope == "" && sig.Uncertainty == "" && sig.Novelty == "" &&
		len(sig.AffectedSurfaces) == 0 {
		return nil
	}
	return &sig
}

// Package resources implements MCP resource handlers for the knowledge store.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (hindsight://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hindsight-mcp/hindsight/internal/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
)

// Handler manages knowledge resource endpoints.
type Handler struct{}

// NewHandler creates a resource Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// layerStatus is one layer's slice of the status document.
type layerStatus struct {
	Path        string `json:"path"`
	Project     string `json:"project"`
	Scope       string `json:"scope"`
	Cases       int    `json:"cases"`
	Foundations int    `json:"foundations"`
}

// status is the full hindsight://status document.
type status struct {
	Layers     []layerStatus `json:"layers"`
	ActiveCase string        `json:"active_case,omitempty"`
}

// StatusResource returns the MCP resource definition for store status.
func (h *Handler) StatusResource() mcp.Resource {
	return mcp.NewResource(
		"hindsight://status",
		"Knowledge Store Status",
		mcp.WithResourceDescription("Discovered layers, the active case, and per-layer record counts"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStatus returns the current store status as JSON.
func (h *Handler) HandleStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	hier, err := knowledge.Discover(dir)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	doc := status{ActiveCase: hier.Nearest().ActiveCaseID()}
	for _, layer := range hier.Layers() {
		cases, err := layer.Cases()
		if err != nil {
			return errorResource(req.Params.URI, err.Error()), nil
		}
		foundations, err := layer.Foundations(knowledge.FoundationFilter{})
		if err != nil {
			return errorResource(req.Params.URI, err.Error()), nil
		}
		doc.Layers = append(doc.Layers, layerStatus{
			Path:        layer.Path(),
			Project:     layer.Project(),
			Scope:       string(layer.Scope()),
			Cases:       len(cases),
			Foundations: len(foundations),
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling status: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}

// Package resources implements MCP resource handlers for Workbench.
//
// Resources provide read-only data the host can consume for context,
// addressed by wb:// URIs following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ccplugins/workbench/internal/broker"
)

// Handler serves the workbench resource endpoints.
type Handler struct{}

// NewHandler creates a resource Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// DashboardResource returns the MCP resource definition for the
// project health dashboard.
func (h *Handler) DashboardResource() mcp.Resource {
	return mcp.NewResource(
		"wb://project/dashboard",
		"Project Health Dashboard",
		mcp.WithResourceDescription("Per-category project health scores derived from the shared workflow context"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleDashboard computes (and persists) the current dashboard and
// returns it as JSON.
func (h *Handler) HandleDashboard(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	root, err := findResourceRoot()
	if err != nil {
		return nil, fmt.Errorf("finding project root: %w", err)
	}

	dash := broker.New(root).HealthDashboard()
	data, err := json.MarshalIndent(dash, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling dashboard: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// findResourceRoot walks up from cwd looking for a .workflow/
// directory, falling back to cwd.
func findResourceRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	current := dir
	for {
		if _, err := os.Stat(filepath.Join(current, broker.WorkflowDir)); err == nil {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return dir, nil
		}
		current = parent
	}
}

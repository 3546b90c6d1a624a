package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ccplugins/workbench/internal/broker"
)

// DashboardTool handles the wb_dashboard MCP tool.
type DashboardTool struct{}

// NewDashboardTool creates a DashboardTool.
func NewDashboardTool() *DashboardTool { return &DashboardTool{} }

// Definition returns the MCP tool definition for wb_dashboard.
func (t *DashboardTool) Definition() mcp.Tool {
	return mcp.NewTool("wb_dashboard",
		mcp.WithDescription(
			"Score project health per category (performance, accessibility, architecture, deployment, monitoring, "+
				"testing, workflow) from the published shared context. Categories without data report 'unknown'; "+
				"the overall status averages only the known categories.",
		),
		mcp.WithString("project_root",
			mcp.Description("Project root directory (default: discovered from cwd)"),
		),
	)
}

// Handle processes the wb_dashboard tool call.
func (t *DashboardTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, err := resolveRoot(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(broker.New(root).HealthDashboard()), nil
}

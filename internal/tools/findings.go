package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ccplugins/workbench/internal/session"
)

// AddFindingTool handles the wb_add_finding MCP tool.
type AddFindingTool struct{}

// NewAddFindingTool creates an AddFindingTool.
func NewAddFindingTool() *AddFindingTool { return &AddFindingTool{} }

// Definition returns the MCP tool definition for wb_add_finding.
func (t *AddFindingTool) Definition() mcp.Tool {
	return mcp.NewTool("wb_add_finding",
		mcp.WithDescription(
			"Append a finding to the command's session. The finding gets a generated id, timestamp, and 'open' status.",
		),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Workflow command name"),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Finding type (e.g. 'large-bundle', 'slow-query')"),
		),
		mcp.WithString("severity",
			mcp.Required(),
			mcp.Description("One of: critical, high, medium, low"),
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("What was found"),
		),
		mcp.WithString("location",
			mcp.Description("File or component where it was found"),
		),
		mcp.WithString("remediation",
			mcp.Description("Suggested fix"),
		),
		mcp.WithString("project_root",
			mcp.Description("Project root directory (default: discovered from cwd)"),
		),
	)
}

// Handle processes the wb_add_finding tool call.
func (t *AddFindingTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	severity := session.Severity(req.GetString("severity", ""))
	if !session.ValidSeverity(severity) {
		return mcp.NewToolResultError("'severity' must be one of: critical, high, medium, low"), nil
	}
	description := req.GetString("description", "")
	if description == "" {
		return mcp.NewToolResultError("'description' is required"), nil
	}

	store, err := storeFor(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	added, err := store.AddFinding(session.Finding{
		Type:        req.GetString("type", ""),
		Severity:    severity,
		Description: description,
		Location:    req.GetString("location", ""),
		Remediation: req.GetString("remediation", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("adding finding: %v", err)), nil
	}
	return jsonResult(added), nil
}

// UpdateFindingTool handles the wb_update_finding MCP tool.
type UpdateFindingTool struct{}

// NewUpdateFindingTool creates an UpdateFindingTool.
func NewUpdateFindingTool() *UpdateFindingTool { return &UpdateFindingTool{} }

// Definition returns the MCP tool definition for wb_update_finding.
func (t *UpdateFindingTool) Definition() mcp.Tool {
	return mcp.NewTool("wb_update_finding",
		mcp.WithDescription(
			"Update fields of an existing finding by id. Fails loudly if the id does not exist.",
		),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Workflow command name"),
		),
		mcp.WithString("finding_id",
			mcp.Required(),
			mcp.Description("Id of the finding to update"),
		),
		mcp.WithString("status",
			mcp.Description("New status (e.g. 'resolved', 'wont-fix')"),
		),
		mcp.WithString("severity",
			mcp.Description("New severity"),
		),
		mcp.WithString("remediation",
			mcp.Description("New remediation"),
		),
		mcp.WithString("description",
			mcp.Description("New description"),
		),
		mcp.WithString("project_root",
			mcp.Description("Project root directory (default: discovered from cwd)"),
		),
	)
}

// Handle processes the wb_update_finding tool call.
func (t *UpdateFindingTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("finding_id", "")
	if id == "" {
		return mcp.NewToolResultError("'finding_id' is required"), nil
	}
	store, err := storeFor(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var patch session.FindingPatch
	if v := req.GetString("status", ""); v != "" {
		patch.Status = &v
	}
	if v := req.GetString("remediation", ""); v != "" {
		patch.Remediation = &v
	}
	if v := req.GetString("description", ""); v != "" {
		patch.Description = &v
	}
	if v := req.GetString("severity", ""); v != "" {
		sev := session.Severity(v)
		if !session.ValidSeverity(sev) {
			return mcp.NewToolResultError("'severity' must be one of: critical, high, medium, low"), nil
		}
		patch.Severity = &sev
	}

	updated, err := store.UpdateFinding(id, patch)
	if err != nil {
		if errors.Is(err, session.ErrFindingNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("finding %s does not exist in this session", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("updating finding: %v", err)), nil
	}
	return jsonResult(updated), nil
}

// SetMetricsTool handles the wb_set_metrics MCP tool.
type SetMetricsTool struct{}

// NewSetMetricsTool creates a SetMetricsTool.
func NewSetMetricsTool() *SetMetricsTool { return &SetMetricsTool{} }

// Definition returns the MCP tool definition for wb_set_metrics.
func (t *SetMetricsTool) Definition() mcp.Tool {
	return mcp.NewTool("wb_set_metrics",
		mcp.WithDescription(
			"Merge numeric metrics into the session (e.g. bundleSize, queryCount). Existing keys are overwritten, others kept.",
		),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Workflow command name"),
		),
		mcp.WithObject("metrics",
			mcp.Required(),
			mcp.Description("Map of metric name to numeric value"),
		),
		mcp.WithString("project_root",
			mcp.Description("Project root directory (default: discovered from cwd)"),
		),
	)
}

// Handle processes the wb_set_metrics tool call.
func (t *SetMetricsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := objectArg(req, "metrics")
	if len(raw) == 0 {
		return mcp.NewToolResultError("'metrics' must be a non-empty object of numbers"), nil
	}
	metrics := make(map[string]float64, len(raw))
	for k, v := range raw {
		num, ok := v.(float64)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("metric %q is not a number", k)), nil
		}
		metrics[k] = num
	}

	store, err := storeFor(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := store.SetMetrics(metrics); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("setting metrics: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Recorded %d metrics for %s", len(metrics), store.Command())), nil
}

// UpdateProgressTool handles the wb_update_progress MCP tool.
type UpdateProgressTool struct{}

// NewUpdateProgressTool creates an UpdateProgressTool.
func NewUpdateProgressTool() *UpdateProgressTool { return &UpdateProgressTool{} }

// Definition returns the MCP tool definition for wb_update_progress.
func (t *UpdateProgressTool) Definition() mcp.Tool {
	return mcp.NewTool("wb_update_progress",
		mcp.WithDescription(
			"Update the session's progress counters and current step label. Omitted counters keep their values.",
		),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Workflow command name"),
		),
		mcp.WithString("current_step",
			mcp.Required(),
			mcp.Description("Label for the step now in progress"),
		),
		mcp.WithNumber("completed_steps",
			mcp.Description("Number of completed steps"),
		),
		mcp.WithNumber("total_steps",
			mcp.Description("Total number of steps"),
		),
		mcp.WithString("project_root",
			mcp.Description("Project root directory (default: discovered from cwd)"),
		),
	)
}

// Handle processes the wb_update_progress tool call.
func (t *UpdateProgressTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	step := req.GetString("current_step", "")
	if step == "" {
		return mcp.NewToolResultError("'current_step' is required"), nil
	}
	store, err := storeFor(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var completed, total *int
	args := req.GetArguments()
	if v, ok := args["completed_steps"].(float64); ok {
		n := int(v)
		completed = &n
	}
	if v, ok := args["total_steps"].(float64); ok {
		n := int(v)
		total = &n
	}

	if err := store.UpdateProgress(step, completed, total); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("updating progress: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Progress updated for %s: %s", store.Command(), step)), nil
}

package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ccplugins/workbench/internal/broker"
	"github.com/ccplugins/workbench/internal/session"
)

// ShareContextTool handles the wb_share_context MCP tool.
type ShareContextTool struct{}

// NewShareContextTool creates a ShareContextTool.
func NewShareContextTool() *ShareContextTool { return &ShareContextTool{} }

// Definition returns the MCP tool definition for wb_share_context.
func (t *ShareContextTool) Definition() mcp.Tool {
	return mcp.NewTool("wb_share_context",
		mcp.WithDescription(
			"Publish a completed command's derived facts to the project-wide shared context so later commands can consume them. "+
				"Replaces that command's previous publication and records the run in workflow history.",
		),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Publishing command name"),
		),
		mcp.WithObject("data",
			mcp.Required(),
			mcp.Description("Fact name to value map; only facts the command's contract declares are visible to consumers"),
		),
		mcp.WithString("project_root",
			mcp.Description("Project root directory (default: discovered from cwd)"),
		),
	)
}

// Handle processes the wb_share_context tool call.
func (t *ShareContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command := req.GetString("command", "")
	if command == "" {
		return mcp.NewToolResultError("'command' is required"), nil
	}
	data := objectArg(req, "data")
	if len(data) == 0 {
		return mcp.NewToolResultError("'data' must be a non-empty object"), nil
	}
	root, err := resolveRoot(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := broker.New(root).ShareContext(command, data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("sharing context: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Published %d facts from %s", len(data), command)), nil
}

// GetSharedContextTool handles the wb_get_shared_context MCP tool.
type GetSharedContextTool struct{}

// NewGetSharedContextTool creates a GetSharedContextTool.
func NewGetSharedContextTool() *GetSharedContextTool { return &GetSharedContextTool{} }

// Definition returns the MCP tool definition for wb_get_shared_context.
func (t *GetSharedContextTool) Definition() mcp.Tool {
	return mcp.NewTool("wb_get_shared_context",
		mcp.WithDescription(
			"Fetch the facts other commands have published that the requesting command's contract consumes, grouped by source command.",
		),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Requesting command name"),
		),
		mcp.WithArray("required_types",
			mcp.Description("Optional subset of fact names to return"),
		),
		mcp.WithString("project_root",
			mcp.Description("Project root directory (default: discovered from cwd)"),
		),
	)
}

// Handle processes the wb_get_shared_context tool call.
func (t *GetSharedContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command := req.GetString("command", "")
	if command == "" {
		return mcp.NewToolResultError("'command' is required"), nil
	}
	root, err := resolveRoot(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	got := broker.New(root).SharedContextFor(command, stringsArg(req, "required_types"))
	return jsonResult(got), nil
}

// SuggestTool handles the wb_suggest MCP tool.
type SuggestTool struct{}

// NewSuggestTool creates a SuggestTool.
func NewSuggestTool() *SuggestTool { return &SuggestTool{} }

// Definition returns the MCP tool definition for wb_suggest.
func (t *SuggestTool) Definition() mcp.Tool {
	return mcp.NewTool("wb_suggest",
		mcp.WithDescription(
			"Suggest complementary commands to run after the current one, based on its results. "+
				"Commands that ran in the last 24 hours are not re-suggested. Advisory: an empty list is a valid answer.",
		),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Command that just completed"),
		),
		mcp.WithObject("metrics",
			mcp.Description("Numeric metrics from the run (e.g. bundleSize)"),
		),
		mcp.WithArray("findings",
			mcp.Description("Findings from the run"),
		),
		mcp.WithObject("extended_analysis",
			mcp.Description("Extended analysis document, if one was produced"),
		),
		mcp.WithString("project_root",
			mcp.Description("Project root directory (default: discovered from cwd)"),
		),
	)
}

// Handle processes the wb_suggest tool call.
func (t *SuggestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command := req.GetString("command", "")
	if command == "" {
		return mcp.NewToolResultError("'command' is required"), nil
	}
	root, err := resolveRoot(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	analysis := broker.Analysis{
		Metrics:  map[string]float64{},
		Extended: objectArg(req, "extended_analysis"),
	}
	for k, v := range objectArg(req, "metrics") {
		if num, ok := v.(float64); ok {
			analysis.Metrics[k] = num
		}
	}
	if raw, ok := req.GetArguments()["findings"]; ok {
		var findings []session.Finding
		if err := decodeInto(raw, &findings); err == nil {
			analysis.Findings = findings
		}
	}

	return jsonResult(broker.New(root).Suggestions(command, analysis)), nil
}

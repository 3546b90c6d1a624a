package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ccplugins/workbench/internal/complexity"
)

// AssessComplexityTool handles the wb_assess_complexity MCP tool.
type AssessComplexityTool struct{}

// NewAssessComplexityTool creates an AssessComplexityTool.
func NewAssessComplexityTool() *AssessComplexityTool { return &AssessComplexityTool{} }

// Definition returns the MCP tool definition for wb_assess_complexity.
func (t *AssessComplexityTool) Definition() mcp.Tool {
	return mcp.NewTool("wb_assess_complexity",
		mcp.WithDescription(
			"Score discovered signals against the command's complexity thresholds. Returns the triggers, "+
				"the derived level, and — when extended analysis is warranted — the full deterministic breakdown "+
				"(insights, risks, recommendations, scaled plan).",
		),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Workflow command name; accepts '/name' and '-enhanced' variants"),
		),
		mcp.WithObject("signals",
			mcp.Description("Discovered signals, e.g. {\"bundleSize\": 2000000, \"queryCount\": 12}"),
		),
	)
}

// Handle processes the wb_assess_complexity tool call.
func (t *AssessComplexityTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command := req.GetString("command", "")
	if command == "" {
		return mcp.NewToolResultError("'command' is required"), nil
	}
	signals := complexity.Signals(objectArg(req, "signals"))
	if signals == nil {
		signals = complexity.Signals{}
	}

	assessment := complexity.Assess(command, signals)
	result := map[string]any{"assessment": assessment}
	if assessment.RequiresExtendedThinking {
		result["extendedAnalysis"] = complexity.PerformExtendedAnalysis(command, signals, assessment.Triggers)
	}
	return jsonResult(result), nil
}

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ccplugins/workbench/internal/phases"
	"github.com/ccplugins/workbench/internal/registry"
	"github.com/ccplugins/workbench/internal/session"
)

// RunPhasesTool handles the wb_run_phases MCP tool. It drives a
// command's staged pipeline end to end and persists the session.
type RunPhasesTool struct {
	registry *registry.Registry
	observer phases.RunObserver
}

// NewRunPhasesTool creates a RunPhasesTool. observer may be nil.
func NewRunPhasesTool(reg *registry.Registry, observer phases.RunObserver) *RunPhasesTool {
	return &RunPhasesTool{registry: reg, observer: observer}
}

// Definition returns the MCP tool definition for wb_run_phases.
func (t *RunPhasesTool) Definition() mcp.Tool {
	return mcp.NewTool("wb_run_phases",
		mcp.WithDescription(
			"Run a registered command through its five phases (setup, discovery, analysis, execution, validation). "+
				"The free-text argument supports sub-verbs by convention: 'resume' continues an interrupted session, "+
				"'status' or 'summary' reports without running. A hook failure yields a structured error report; "+
				"only a fully successful run is persisted.",
		),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Registered command name or alias"),
		),
		mcp.WithString("args",
			mcp.Description("Free-text argument, including sub-verbs like 'resume' or 'status'"),
		),
		mcp.WithObject("signals",
			mcp.Description("Pre-discovered signals to seed the complexity assessment"),
		),
		mcp.WithString("project_root",
			mcp.Description("Project root directory (default: discovered from cwd)"),
		),
	)
}

// Handle processes the wb_run_phases tool call.
func (t *RunPhasesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("command", "")
	desc, err := t.registry.Get(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	root, err := resolveRoot(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	store := session.NewFileStore(root, desc.Name)

	// Sub-verbs are dispatched by convention from the argument string.
	args := strings.TrimSpace(req.GetString("args", ""))
	switch strings.ToLower(args) {
	case "status", "summary":
		summary, err := store.Summary()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("summarizing session: %v", err)), nil
		}
		return jsonResult(summary), nil
	case "resume":
		if !store.SessionExists() {
			return mcp.NewToolResultText(
				fmt.Sprintf("No session to resume for %s; running from scratch instead.", desc.Name),
			), nil
		}
	}

	impl, err := t.registry.Create(desc.Name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rc := phases.NewRunContext(desc.Name, args)
	for k, v := range objectArg(req, "signals") {
		rc.Signals[k] = v
	}

	runner := phases.NewRunner(store)
	runner.SetObserver(t.observer)
	result := runner.Run(rc, impl.Hooks())

	if result.Failed() {
		return jsonResult(result.Failure), nil
	}
	return jsonResult(map[string]any{
		"state":  result.State,
		"phases": result.Phases,
	}), nil
}

package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ccplugins/workbench/internal/broker"
	"github.com/ccplugins/workbench/internal/phases"
	"github.com/ccplugins/workbench/internal/registry"
	"github.com/ccplugins/workbench/internal/session"
)

// CreateChainTool handles the wb_chain_create MCP tool.
type CreateChainTool struct{}

// NewCreateChainTool creates a CreateChainTool.
func NewCreateChainTool() *CreateChainTool { return &CreateChainTool{} }

// Definition returns the MCP tool definition for wb_chain_create.
func (t *CreateChainTool) Definition() mcp.Tool {
	return mcp.NewTool("wb_chain_create",
		mcp.WithDescription(
			"Validate and persist an ordered command chain. Validation is structural: every step needs a command "+
				"and dependencies may only reference earlier steps.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Chain name"),
		),
		mcp.WithArray("steps",
			mcp.Required(),
			mcp.Description("Ordered steps: [{command, args?, dependencies?}]"),
		),
		mcp.WithString("project_root",
			mcp.Description("Project root directory (default: discovered from cwd)"),
		),
	)
}

// Handle processes the wb_chain_create tool call.
func (t *CreateChainTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}
	var steps []broker.ChainStep
	if err := decodeInto(req.GetArguments()["steps"], &steps); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parsing steps: %v", err)), nil
	}
	root, err := resolveRoot(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	chain, err := broker.New(root).CreateChain(name, steps)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(chain), nil
}

// ExecuteChainTool handles the wb_chain_execute MCP tool.
type ExecuteChainTool struct {
	registry *registry.Registry
	observer phases.RunObserver
}

// NewExecuteChainTool creates an ExecuteChainTool. observer may be nil.
func NewExecuteChainTool(reg *registry.Registry, observer phases.RunObserver) *ExecuteChainTool {
	return &ExecuteChainTool{registry: reg, observer: observer}
}

// Definition returns the MCP tool definition for wb_chain_execute.
func (t *ExecuteChainTool) Definition() mcp.Tool {
	return mcp.NewTool("wb_chain_execute",
		mcp.WithDescription(
			"Execute a persisted chain in order. Each step runs the full phase pipeline; a step whose dependencies "+
				"have not completed is refused, and any failure aborts the remaining steps. Published context flows "+
				"from each step into the next.",
		),
		mcp.WithString("chain_id",
			mcp.Required(),
			mcp.Description("Id returned by wb_chain_create"),
		),
		mcp.WithString("project_root",
			mcp.Description("Project root directory (default: discovered from cwd)"),
		),
	)
}

// Handle processes the wb_chain_execute tool call.
func (t *ExecuteChainTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chainID := req.GetString("chain_id", "")
	if chainID == "" {
		return mcp.NewToolResultError("'chain_id' is required"), nil
	}
	root, err := resolveRoot(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	b := broker.New(root)
	chain, err := b.LoadChain(chainID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := b.ExecuteChain(chain, func(step broker.ChainStep, shared map[string]any) (*broker.StepResult, error) {
		impl, err := t.registry.Create(step.Command)
		if err != nil {
			return nil, err
		}

		rc := phases.NewRunContext(step.Command, step.Args)
		for k, v := range shared {
			rc.Facts[k] = v
		}

		runner := phases.NewRunner(session.NewFileStore(root, step.Command))
		runner.SetObserver(t.observer)
		run := runner.Run(rc, impl.Hooks())
		if run.Failed() {
			return nil, fmt.Errorf("%s", run.Failure.Message)
		}
		return &broker.StepResult{
			Command: step.Command,
			Status:  "completed",
			Context: run.State.Context,
		}, nil
	})

	return jsonResult(result), nil
}

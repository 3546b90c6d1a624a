package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// InitSessionTool handles the wb_session_init MCP tool.
type InitSessionTool struct{}

// NewInitSessionTool creates an InitSessionTool.
func NewInitSessionTool() *InitSessionTool { return &InitSessionTool{} }

// Definition returns the MCP tool definition for wb_session_init.
func (t *InitSessionTool) Definition() mcp.Tool {
	return mcp.NewTool("wb_session_init",
		mcp.WithDescription(
			"Initialize (or resume) a persistent session for a workflow command. "+
				"Idempotent: an existing session is never reset. Call this before any other session operation.",
		),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Workflow command name (e.g. 'performance-audit')"),
		),
		mcp.WithString("project_root",
			mcp.Description("Project root directory (default: discovered from cwd)"),
		),
		mcp.WithString("plan_file",
			mcp.Description("Alternate plan artifact name (default plan.md; e.g. analysis.md, report.md)"),
		),
	)
}

// Handle processes the wb_session_init tool call.
func (t *InitSessionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store, err := storeFor(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	existed := store.SessionExists()
	if err := store.Initialize(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("initializing session: %v", err)), nil
	}

	state := store.LoadState()
	verb := "created"
	if existed {
		verb = "resumed"
	}
	return jsonResult(map[string]any{
		"message":   fmt.Sprintf("Session %s for %s", verb, store.Command()),
		"sessionId": state.SessionID,
		"phase":     state.Phase,
	}), nil
}

// SessionStatusTool handles the wb_session_status MCP tool.
type SessionStatusTool struct{}

// NewSessionStatusTool creates a SessionStatusTool.
func NewSessionStatusTool() *SessionStatusTool { return &SessionStatusTool{} }

// Definition returns the MCP tool definition for wb_session_status.
func (t *SessionStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("wb_session_status",
		mcp.WithDescription(
			"Summarize a command's session: phase, progress, finding counts, plan presence, and age.",
		),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Workflow command name"),
		),
		mcp.WithString("project_root",
			mcp.Description("Project root directory (default: discovered from cwd)"),
		),
	)
}

// Handle processes the wb_session_status tool call.
func (t *SessionStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store, err := storeFor(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summary, err := store.Summary()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("summarizing session: %v", err)), nil
	}
	return jsonResult(summary), nil
}

// ResumeSessionTool handles the wb_session_resume MCP tool.
type ResumeSessionTool struct{}

// NewResumeSessionTool creates a ResumeSessionTool.
func NewResumeSessionTool() *ResumeSessionTool { return &ResumeSessionTool{} }

// Definition returns the MCP tool definition for wb_session_resume.
func (t *ResumeSessionTool) Definition() mcp.Tool {
	return mcp.NewTool("wb_session_resume",
		mcp.WithDescription(
			"Load everything needed to continue an interrupted command: summary, full state, and the saved plan. "+
				"Use wb_session_status first if you only need the overview.",
		),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Workflow command name"),
		),
		mcp.WithString("project_root",
			mcp.Description("Project root directory (default: discovered from cwd)"),
		),
		mcp.WithString("plan_file",
			mcp.Description("Alternate plan artifact name"),
		),
	)
}

// Handle processes the wb_session_resume tool call.
func (t *ResumeSessionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store, err := storeFor(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !store.SessionExists() {
		return mcp.NewToolResultText(
			fmt.Sprintf("No session found for %s. Start one with wb_session_init.", store.Command()),
		), nil
	}

	summary, err := store.Summary()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("summarizing session: %v", err)), nil
	}
	plan, err := store.LoadPlan()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading plan: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"summary": summary,
		"state":   store.LoadState(),
		"plan":    plan,
	}), nil
}

// SavePlanTool handles the wb_save_plan MCP tool.
type SavePlanTool struct{}

// NewSavePlanTool creates a SavePlanTool.
func NewSavePlanTool() *SavePlanTool { return &SavePlanTool{} }

// Definition returns the MCP tool definition for wb_save_plan.
func (t *SavePlanTool) Definition() mcp.Tool {
	return mcp.NewTool("wb_save_plan",
		mcp.WithDescription(
			"Persist the command's markdown plan artifact next to its state file.",
		),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Workflow command name"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Markdown plan content"),
		),
		mcp.WithString("project_root",
			mcp.Description("Project root directory (default: discovered from cwd)"),
		),
		mcp.WithString("plan_file",
			mcp.Description("Alternate plan artifact name (e.g. analysis.md)"),
		),
	)
}

// Handle processes the wb_save_plan tool call.
func (t *SavePlanTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := req.GetString("content", "")
	if content == "" {
		return mcp.NewToolResultError("'content' is required"), nil
	}
	store, err := storeFor(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := store.SavePlan(content); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("saving plan: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Plan saved for %s", store.Command())), nil
}

// RecoverSessionTool handles the wb_session_recover MCP tool.
type RecoverSessionTool struct{}

// NewRecoverSessionTool creates a RecoverSessionTool.
func NewRecoverSessionTool() *RecoverSessionTool { return &RecoverSessionTool{} }

// Definition returns the MCP tool definition for wb_session_recover.
func (t *RecoverSessionTool) Definition() mcp.Tool {
	return mcp.NewTool("wb_session_recover",
		mcp.WithDescription(
			"Back up a corrupt session state file and reinitialize it. The backup path is reported so nothing is lost silently.",
		),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Workflow command name"),
		),
		mcp.WithString("project_root",
			mcp.Description("Project root directory (default: discovered from cwd)"),
		),
	)
}

// Handle processes the wb_session_recover tool call.
func (t *RecoverSessionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store, err := storeFor(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	backup, err := store.RecoverSession()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("recovering session: %v", err)), nil
	}
	if backup == "" {
		return mcp.NewToolResultText(
			fmt.Sprintf("No previous state for %s; a fresh session was created.", store.Command()),
		), nil
	}
	return mcp.NewToolResultText(
		fmt.Sprintf("Session for %s was reset. Previous state backed up to %s", store.Command(), backup),
	), nil
}

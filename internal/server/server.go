// Package server wires all MCP components and creates the server
// instance. This is the composition root: concrete implementations are
// created here and injected into the tools that depend on them. No
// business logic lives here — only wiring.
package server

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ccplugins/workbench/internal/archive"
	"github.com/ccplugins/workbench/internal/phases"
	"github.com/ccplugins/workbench/internal/registry"
	"github.com/ccplugins/workbench/internal/resources"
	"github.com/ccplugins/workbench/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools and
// resources registered.
//
// The returned cleanup function closes the archive database and must
// be called on shutdown (typically via defer). It is always non-nil
// and safe to call even if archive init failed.
func New() (*server.MCPServer, func(), error) {
	reg := registry.New()
	if err := registry.RegisterBuiltins(reg); err != nil {
		return nil, noop, fmt.Errorf("registering built-in commands: %w", err)
	}

	// Project manifests can add custom commands; a bad manifest
	// disables only the additions, never the built-ins.
	if cwd, err := os.Getwd(); err == nil {
		if err := registry.RegisterManifest(reg, cwd); err != nil {
			log.Printf("WARNING: project manifest ignored: %v", err)
		}
	}

	s := server.NewMCPServer(
		"workbench",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// The archive is an independent subsystem: if it fails to open,
	// every session operation still works. We log a warning and run
	// without cross-project history.
	cleanup := noop
	var observer phases.RunObserver
	arc, arcErr := archive.New(archive.DefaultConfig())
	if arcErr != nil {
		log.Printf("WARNING: finding archive disabled: %v", arcErr)
		arc = nil
	} else {
		cleanup = func() {
			if err := arc.Close(); err != nil {
				log.Printf("WARNING: archive close: %v", err)
			}
		}
		if bridge := tools.NewArchiveBridge(arc, projectName()); bridge != nil {
			observer = bridge
		}
	}

	// --- Session lifecycle ---

	initTool := tools.NewInitSessionTool()
	s.AddTool(initTool.Definition(), initTool.Handle)

	statusTool := tools.NewSessionStatusTool()
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	resumeTool := tools.NewResumeSessionTool()
	s.AddTool(resumeTool.Definition(), resumeTool.Handle)

	recoverTool := tools.NewRecoverSessionTool()
	s.AddTool(recoverTool.Definition(), recoverTool.Handle)

	planTool := tools.NewSavePlanTool()
	s.AddTool(planTool.Definition(), planTool.Handle)

	// --- Findings and progress ---

	addFinding := tools.NewAddFindingTool()
	s.AddTool(addFinding.Definition(), addFinding.Handle)

	updateFinding := tools.NewUpdateFindingTool()
	s.AddTool(updateFinding.Definition(), updateFinding.Handle)

	setMetrics := tools.NewSetMetricsTool()
	s.AddTool(setMetrics.Definition(), setMetrics.Handle)

	updateProgress := tools.NewUpdateProgressTool()
	s.AddTool(updateProgress.Definition(), updateProgress.Handle)

	// --- Assessment and execution ---

	assess := tools.NewAssessComplexityTool()
	s.AddTool(assess.Definition(), assess.Handle)

	runPhases := tools.NewRunPhasesTool(reg, observer)
	s.AddTool(runPhases.Definition(), runPhases.Handle)

	// --- Fact exchange ---

	shareContext := tools.NewShareContextTool()
	s.AddTool(shareContext.Definition(), shareContext.Handle)

	getShared := tools.NewGetSharedContextTool()
	s.AddTool(getShared.Definition(), getShared.Handle)

	suggest := tools.NewSuggestTool()
	s.AddTool(suggest.Definition(), suggest.Handle)

	// --- Chains and dashboard ---

	chainCreate := tools.NewCreateChainTool()
	s.AddTool(chainCreate.Definition(), chainCreate.Handle)

	chainExecute := tools.NewExecuteChainTool(reg, observer)
	s.AddTool(chainExecute.Definition(), chainExecute.Handle)

	dashboard := tools.NewDashboardTool()
	s.AddTool(dashboard.Definition(), dashboard.Handle)

	// --- Archive and help ---

	searchFindings := tools.NewSearchFindingsTool(arc)
	s.AddTool(searchFindings.Definition(), searchFindings.Handle)

	help := tools.NewHelpTool(reg)
	s.AddTool(help.Definition(), help.Handle)

	// --- Resources ---

	resourceHandler := resources.NewHandler()
	s.AddResource(resourceHandler.DashboardResource(), resourceHandler.HandleDashboard)

	return s, cleanup, nil
}

// noop is the default cleanup when the archive is disabled.
func noop() {}

// projectName labels archive entries with the working directory's base
// name.
func projectName() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "unknown"
	}
	return filepath.Base(cwd)
}

func serverInstructions() string {
	return `Workbench gives workflow commands durable sessions, complexity-aware
execution, and cross-command fact exchange.

Typical flow:
1. wb_session_init before starting a command's work.
2. wb_add_finding / wb_set_metrics / wb_update_progress as analysis proceeds.
3. wb_assess_complexity once discovery signals are known — follow its
   approach when it escalates.
4. wb_save_plan to persist the markdown artifact.
5. wb_share_context after completing, then wb_suggest for follow-ups.

Interrupted? wb_session_resume returns the summary, state, and plan.
A corrupt state file is never fatal: wb_session_recover backs it up and
starts fresh. Use wb_dashboard for an at-a-glance project health view
and wb_search_findings to recall findings from past runs in any project.`
}

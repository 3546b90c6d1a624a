package phases

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ccplugins/workbench/internal/session"
)

func newTestRunner(t *testing.T) (*Runner, *session.FileStore) {
	t.Helper()
	store := session.NewFileStore(t.TempDir(), "performance-audit")
	if err := store.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return NewRunner(store), store
}

// --- Phase ordering ---

func TestRun_PhasesStrictlySequential(t *testing.T) {
	runner, _ := newTestRunner(t)

	var order []session.Phase
	record := func(phase session.Phase) Hook {
		return func(rc *RunContext, prev *PhaseResult) (*PhaseResult, error) {
			order = append(order, phase)
			return nil, nil
		}
	}

	result := runner.Run(NewRunContext("performance-audit", ""), Hooks{
		Setup:      record(session.PhaseSetup),
		Discovery:  record(session.PhaseDiscovery),
		Analysis:   record(session.PhaseAnalysis),
		Execution:  record(session.PhaseExecution),
		Validation: record(session.PhaseValidation),
	})

	if result.Failed() {
		t.Fatalf("run failed: %+v", result.Failure)
	}
	want := session.PhaseOrder
	if len(order) != len(want) {
		t.Fatalf("ran %d phases, want %d", len(order), len(want))
	}
	for i, p := range want {
		if order[i] != p {
			t.Errorf("phase %d = %s, want %s", i, order[i], p)
		}
	}
}

func TestRun_NilHooksComplete(t *testing.T) {
	runner, _ := newTestRunner(t)

	result := runner.Run(NewRunContext("performance-audit", ""), Hooks{})
	if result.Failed() {
		t.Fatalf("run with nil hooks failed: %+v", result.Failure)
	}
	if len(result.Phases) != 5 {
		t.Errorf("phases = %d, want 5", len(result.Phases))
	}
	for _, pr := range result.Phases {
		if pr.Status != "completed" {
			t.Errorf("phase %s status = %s, want completed", pr.Phase, pr.Status)
		}
		if pr.Timestamp == "" {
			t.Errorf("phase %s has no timestamp", pr.Phase)
		}
	}
}

func TestRun_PreviousResultThreadedForward(t *testing.T) {
	runner, _ := newTestRunner(t)

	var sawPrev *PhaseResult
	result := runner.Run(NewRunContext("performance-audit", ""), Hooks{
		Setup: func(rc *RunContext, prev *PhaseResult) (*PhaseResult, error) {
			return &PhaseResult{Output: map[string]any{"marker": "from-setup"}}, nil
		},
		Discovery: func(rc *RunContext, prev *PhaseResult) (*PhaseResult, error) {
			sawPrev = prev
			return nil, nil
		},
	})

	if result.Failed() {
		t.Fatalf("run failed: %+v", result.Failure)
	}
	if sawPrev == nil || sawPrev.Output["marker"] != "from-setup" {
		t.Errorf("discovery prev = %+v, want setup output threaded through", sawPrev)
	}
}

// --- Escalation between discovery and analysis ---

func TestRun_EscalationThreadedIntoAnalysis(t *testing.T) {
	runner, _ := newTestRunner(t)

	var analysisSawExtended bool
	rc := NewRunContext("performance-audit", "")
	result := runner.Run(rc, Hooks{
		Discovery: func(rc *RunContext, prev *PhaseResult) (*PhaseResult, error) {
			rc.Signals["bundleSize"] = 2_000_000
			return nil, nil
		},
		Analysis: func(rc *RunContext, prev *PhaseResult) (*PhaseResult, error) {
			analysisSawExtended = rc.Extended != nil
			return nil, nil
		},
	})

	if result.Failed() {
		t.Fatalf("run failed: %+v", result.Failure)
	}
	if rc.Assessment == nil || !rc.Assessment.RequiresExtendedThinking {
		t.Fatalf("assessment = %+v, want extended thinking required", rc.Assessment)
	}
	if !analysisSawExtended {
		t.Error("analysis hook did not see the extended analysis")
	}
	if result.State.ExtendedAnalysis == nil {
		t.Error("persisted state missing extendedAnalysis")
	}
}

func TestRun_NoEscalationWithoutTriggers(t *testing.T) {
	runner, _ := newTestRunner(t)

	rc := NewRunContext("performance-audit", "")
	result := runner.Run(rc, Hooks{})

	if result.Failed() {
		t.Fatalf("run failed: %+v", result.Failure)
	}
	if rc.Extended != nil {
		t.Error("extended analysis computed without any trigger")
	}
	if result.State.ExtendedAnalysis != nil {
		t.Error("persisted state has extendedAnalysis without escalation")
	}
}

// --- Aggregation ---

func TestRun_AggregatesFindingsAndMetrics(t *testing.T) {
	runner, _ := newTestRunner(t)

	result := runner.Run(NewRunContext("performance-audit", ""), Hooks{
		Discovery: func(rc *RunContext, prev *PhaseResult) (*PhaseResult, error) {
			return &PhaseResult{
				Findings: []session.Finding{{Type: "perf", Severity: session.SeverityHigh, Description: "d1"}},
				Metrics:  map[string]float64{"bundleSize": 900_000, "shared": 1},
			}, nil
		},
		Execution: func(rc *RunContext, prev *PhaseResult) (*PhaseResult, error) {
			return &PhaseResult{
				Findings: []session.Finding{{Type: "perf", Severity: session.SeverityLow, Description: "d2"}},
				Metrics:  map[string]float64{"shared": 2},
			}, nil
		},
	})

	if result.Failed() {
		t.Fatalf("run failed: %+v", result.Failure)
	}
	state := result.State
	if len(state.Findings) != 2 {
		t.Fatalf("findings = %d, want 2", len(state.Findings))
	}
	if state.Findings[0].Description != "d1" || state.Findings[1].Description != "d2" {
		t.Error("findings not concatenated in phase order")
	}
	if state.Findings[0].ID == "" || state.Findings[0].ID == state.Findings[1].ID {
		t.Error("aggregated findings should have distinct generated ids")
	}
	// Later phases win on metric key collision.
	if state.Metrics["shared"] != 2 {
		t.Errorf("metrics[shared] = %v, want 2", state.Metrics["shared"])
	}
	if state.Metrics["bundleSize"] != 900_000 {
		t.Errorf("metrics[bundleSize] = %v, want 900000", state.Metrics["bundleSize"])
	}
}

func TestRun_SuccessMarksSessionComplete(t *testing.T) {
	runner, store := newTestRunner(t)

	result := runner.Run(NewRunContext("performance-audit", ""), Hooks{})
	if result.Failed() {
		t.Fatalf("run failed: %+v", result.Failure)
	}

	state := store.LoadState()
	if state.Phase != session.PhaseComplete {
		t.Errorf("persisted phase = %s, want complete", state.Phase)
	}
	if state.Progress.CompletedSteps != state.Progress.TotalSteps {
		t.Errorf("progress = %+v, want fully completed", state.Progress)
	}
}

func TestRun_PersistsOnFreshProject(t *testing.T) {
	// No Initialize: the first run on a project must create the session
	// directory itself when it persists.
	store := session.NewFileStore(t.TempDir(), "performance-audit")
	runner := NewRunner(store)

	result := runner.Run(NewRunContext("performance-audit", ""), Hooks{})
	if result.Failed() {
		t.Fatalf("run on fresh project failed: %+v", result.Failure)
	}
	if !store.SessionExists() {
		t.Error("state file should exist after a successful run")
	}
}

// --- Failure handling ---

func TestRun_PersistFailureReportsValidationPhase(t *testing.T) {
	// A plain file squatting on the session directory path makes every
	// state write fail.
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "performance-audit"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(session.NewFileStore(root, "performance-audit"))

	result := runner.Run(NewRunContext("performance-audit", ""), Hooks{})
	if !result.Failed() {
		t.Fatal("expected run to fail when state cannot be written")
	}
	if result.Failure.Phase != session.PhaseValidation {
		t.Errorf("failure phase = %s, want %s", result.Failure.Phase, session.PhaseValidation)
	}
	want := recoveryByPhase[session.PhaseValidation]
	if len(result.Failure.Recovery) != len(want) || result.Failure.Recovery[0] != want[0] {
		t.Errorf("recovery steps = %v, want %v", result.Failure.Recovery, want)
	}
}

func TestRun_HookErrorProducesReport(t *testing.T) {
	runner, _ := newTestRunner(t)

	result := runner.Run(NewRunContext("performance-audit", ""), Hooks{
		Execution: func(rc *RunContext, prev *PhaseResult) (*PhaseResult, error) {
			return nil, errors.New("disk full")
		},
	})

	if !result.Failed() {
		t.Fatal("run should have failed")
	}
	f := result.Failure
	if !f.Error || f.Phase != session.PhaseExecution {
		t.Errorf("failure = %+v, want error in execution phase", f)
	}
	if !strings.Contains(f.Message, "disk full") {
		t.Errorf("message = %q, want to contain the hook error", f.Message)
	}
	if len(f.Recovery) == 0 {
		t.Error("failure carries no recovery steps")
	}
}

func TestRun_FailureDoesNotCorruptPriorState(t *testing.T) {
	runner, store := newTestRunner(t)

	// Establish known-good state first.
	good := runner.Run(NewRunContext("performance-audit", ""), Hooks{
		Discovery: func(rc *RunContext, prev *PhaseResult) (*PhaseResult, error) {
			return &PhaseResult{Metrics: map[string]float64{"bundleSize": 500_000}}, nil
		},
	})
	if good.Failed() {
		t.Fatalf("setup run failed: %+v", good.Failure)
	}

	failed := runner.Run(NewRunContext("performance-audit", ""), Hooks{
		Analysis: func(rc *RunContext, prev *PhaseResult) (*PhaseResult, error) {
			return nil, errors.New("boom")
		},
	})
	if !failed.Failed() {
		t.Fatal("second run should have failed")
	}

	state := store.LoadState()
	if state.Metrics["bundleSize"] != 500_000 {
		t.Errorf("prior metrics lost: %v", state.Metrics)
	}
	if state.Phase != session.PhaseComplete {
		t.Errorf("prior phase = %s, want complete (untouched)", state.Phase)
	}
}

func TestRun_HookPanicIsCaught(t *testing.T) {
	runner, _ := newTestRunner(t)

	result := runner.Run(NewRunContext("performance-audit", ""), Hooks{
		Setup: func(rc *RunContext, prev *PhaseResult) (*PhaseResult, error) {
			panic("unexpected nil")
		},
	})

	if !result.Failed() {
		t.Fatal("panicking hook should fail the run")
	}
	if result.Failure.Phase != session.PhaseSetup {
		t.Errorf("failure phase = %s, want setup", result.Failure.Phase)
	}
	if !strings.Contains(result.Failure.Message, "unexpected nil") {
		t.Errorf("message = %q, want panic value", result.Failure.Message)
	}
}

func TestRun_FailureStopsRemainingPhases(t *testing.T) {
	runner, _ := newTestRunner(t)

	executed := false
	result := runner.Run(NewRunContext("performance-audit", ""), Hooks{
		Discovery: func(rc *RunContext, prev *PhaseResult) (*PhaseResult, error) {
			return nil, errors.New("stop here")
		},
		Execution: func(rc *RunContext, prev *PhaseResult) (*PhaseResult, error) {
			executed = true
			return nil, nil
		},
	})

	if !result.Failed() {
		t.Fatal("run should have failed")
	}
	if executed {
		t.Error("execution hook ran after a discovery failure")
	}
	if len(result.Phases) != 1 {
		t.Errorf("completed phases = %d, want 1 (setup only)", len(result.Phases))
	}
}

// --- Observer bridge ---

type captureObserver struct {
	command  string
	findings []session.Finding
}

func (c *captureObserver) RunCompleted(command string, findings []session.Finding) {
	c.command = command
	c.findings = findings
}

func TestRun_ObserverReceivesFindings(t *testing.T) {
	runner, _ := newTestRunner(t)
	obs := &captureObserver{}
	runner.SetObserver(obs)

	result := runner.Run(NewRunContext("performance-audit", ""), Hooks{
		Analysis: func(rc *RunContext, prev *PhaseResult) (*PhaseResult, error) {
			return &PhaseResult{
				Findings: []session.Finding{{Type: "perf", Severity: session.SeverityHigh, Description: "x"}},
			}, nil
		},
	})

	if result.Failed() {
		t.Fatalf("run failed: %+v", result.Failure)
	}
	if obs.command != "performance-audit" || len(obs.findings) != 1 {
		t.Errorf("observer got command=%q findings=%d, want performance-audit/1", obs.command, len(obs.findings))
	}
}

// Package phases runs the fixed five-phase lifecycle for one command
// invocation: setup, discovery, analysis, execution, validation.
//
// Per-command behavior is supplied as a bundle of named hook functions
// (strategy injection), not inheritance. The runner owns ordering,
// escalation into extended analysis between discovery and analysis,
// aggregation of hook output, and persistence of the final state. A
// failed run never touches previously-good session state.
package phases

import (
	"fmt"
	"time"

	"github.com/ccplugins/workbench/internal/complexity"
	"github.com/ccplugins/workbench/internal/session"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// PhaseResult is what every hook must return: at minimum the phase,
// a timestamp, and a status. Findings and metrics are optional
// contributions the runner aggregates across phases.
type PhaseResult struct {
	Phase     session.Phase      `json:"phase"`
	Timestamp string             `json:"timestamp"`
	Status    string             `json:"status"`
	Findings  []session.Finding  `json:"findings,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Output    map[string]any     `json:"output,omitempty"`
}

// Hook is one phase's behavior. It receives the shared run context and
// the previous phase's fully-settled result (nil for setup).
type Hook func(rc *RunContext, prev *PhaseResult) (*PhaseResult, error)

// Hooks bundles the per-phase behavior a command supplies. Nil hooks
// run as no-ops that simply mark the phase completed.
type Hooks struct {
	Setup      Hook
	Discovery  Hook
	Analysis   Hook
	Execution  Hook
	Validation Hook
}

func (h Hooks) forPhase(p session.Phase) Hook {
	switch p {
	case session.PhaseSetup:
		return h.Setup
	case session.PhaseDiscovery:
		return h.Discovery
	case session.PhaseAnalysis:
		return h.Analysis
	case session.PhaseExecution:
		return h.Execution
	case session.PhaseValidation:
		return h.Validation
	}
	return nil
}

// RunContext is the accumulated state threaded through all hooks of one
// invocation. Discovery hooks populate Signals; the runner fills
// Assessment and Extended before the analysis hook sees them.
type RunContext struct {
	Command string
	Args    string

	// Signals feed the complexity assessor between discovery and
	// analysis. Discovery hooks add entries as they learn facts.
	Signals complexity.Signals

	// Facts accumulate discovered project context and are merged into
	// the session's context map on success.
	Facts map[string]any

	Assessment *complexity.Assessment
	Extended   *complexity.ExtendedAnalysis
}

// NewRunContext creates a run context with initialized maps.
func NewRunContext(command, args string) *RunContext {
	return &RunContext{
		Command: command,
		Args:    args,
		Signals: complexity.Signals{},
		Facts:   map[string]any{},
	}
}

// ErrorReport is the structured, persistable failure result produced
// when a hook errors or panics. It replaces the uncaught failure —
// callers receive guidance, not a stack.
type ErrorReport struct {
	Error     bool          `json:"error"`
	Phase     session.Phase `json:"phase"`
	Message   string        `json:"message"`
	Timestamp string        `json:"timestamp"`
	Recovery  []string      `json:"recovery"`
}

// Result bundles the outcome of one run. Exactly one of State (success)
// or Failure is set.
type Result struct {
	State   *session.State `json:"state,omitempty"`
	Phases  []*PhaseResult `json:"phases"`
	Failure *ErrorReport   `json:"failure,omitempty"`
}

// Failed reports whether the run ended in a hook failure.
func (r *Result) Failed() bool { return r.Failure != nil }

// recoveryByPhase is the fixed table of suggested recovery steps per
// failing phase.
var recoveryByPhase = map[session.Phase][]string{
	session.PhaseSetup: {
		"check required tools are installed and on PATH",
		"verify read permissions on the project directory",
	},
	session.PhaseDiscovery: {
		"confirm the project root is correct",
		"check that file patterns match the project layout",
	},
	session.PhaseAnalysis: {
		"reduce the analysis scope and re-run",
		"inspect discovery output for malformed data",
	},
	session.PhaseExecution: {
		"check write permissions on the project directory",
		"resolve conflicting changes before re-running",
	},
	session.PhaseValidation: {
		"re-run validation on its own",
		"inspect execution output for partial writes",
	},
}

// RunObserver receives the findings of a successfully completed run.
// Used to bridge into the cross-run finding archive; implementations
// must tolerate being skipped entirely (the bridge is optional).
type RunObserver interface {
	RunCompleted(command string, findings []session.Finding)
}

// Runner executes the five-phase lifecycle against one session store.
type Runner struct {
	store    session.Store
	observer RunObserver
}

// NewRunner creates a Runner persisting through the given store.
func NewRunner(store session.Store) *Runner {
	return &Runner{store: store}
}

// SetObserver injects an optional completion observer. Nil-safe.
func (r *Runner) SetObserver(o RunObserver) { r.observer = o }

// Run executes all five phases strictly in order. Between discovery and
// analysis it consults the complexity assessor; when escalation is
// indicated, the extended analysis is computed and threaded into the
// run context for the analysis hook. On any hook failure the run stops
// and the previously persisted session state is left untouched — only a
// fully successful run reaches SaveState.
func (r *Runner) Run(rc *RunContext, hooks Hooks) *Result {
	result := &Result{}

	var prev *PhaseResult
	for _, phase := range session.PhaseOrder {
		out, err := runPhase(hooks.forPhase(phase), phase, rc, prev)
		if err != nil {
			result.Failure = &ErrorReport{
				Error:     true,
				Phase:     phase,
				Message:   err.Error(),
				Timestamp: timeNow().UTC().Format(time.RFC3339),
				Recovery:  recoveryByPhase[phase],
			}
			return result
		}
		result.Phases = append(result.Phases, out)
		prev = out

		if phase == session.PhaseDiscovery {
			rc.Assessment = complexity.Assess(rc.Command, rc.Signals)
			if rc.Assessment.RequiresExtendedThinking {
				rc.Extended = complexity.PerformExtendedAnalysis(rc.Command, rc.Signals, rc.Assessment.Triggers)
			}
		}
	}

	state, err := r.persist(rc, result.Phases)
	if err != nil {
		result.Failure = &ErrorReport{
			Error:     true,
			Phase:     session.PhaseValidation,
			Message:   fmt.Sprintf("persisting session state: %v", err),
			Timestamp: timeNow().UTC().Format(time.RFC3339),
			Recovery:  recoveryByPhase[session.PhaseValidation],
		}
		return result
	}
	result.State = state

	if r.observer != nil && len(state.Findings) > 0 {
		r.observer.RunCompleted(rc.Command, state.Findings)
	}
	return result
}

// runPhase invokes one hook, converting panics into errors so a
// misbehaving hook cannot take down the server. Nil hooks complete
// trivially.
func runPhase(hook Hook, phase session.Phase, rc *RunContext, prev *PhaseResult) (out *PhaseResult, err error) {
	now := timeNow().UTC().Format(time.RFC3339)
	if hook == nil {
		return &PhaseResult{Phase: phase, Timestamp: now, Status: "completed"}, nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = fmt.Errorf("phase %s panicked: %v", phase, rec)
		}
	}()

	out, err = hook(rc, prev)
	if err != nil {
		return nil, fmt.Errorf("phase %s: %w", phase, err)
	}
	if out == nil {
		out = &PhaseResult{Phase: phase, Timestamp: now, Status: "completed"}
	}
	if out.Phase == "" {
		out.Phase = phase
	}
	if out.Timestamp == "" {
		out.Timestamp = now
	}
	if out.Status == "" {
		out.Status = "completed"
	}
	return out, nil
}

// persist aggregates the phase results into the session state and saves
// it: findings concatenated in phase order, metrics shallow-merged with
// later phases winning on key collision.
func (r *Runner) persist(rc *RunContext, results []*PhaseResult) (*session.State, error) {
	state := r.store.LoadState()
	state.Phase = session.PhaseComplete
	state.Progress = session.Progress{
		TotalSteps:     len(session.PhaseOrder),
		CompletedSteps: len(session.PhaseOrder),
		CurrentStep:    "complete",
	}

	for k, v := range rc.Facts {
		state.Context[k] = v
	}
	for _, pr := range results {
		for _, f := range pr.Findings {
			state.Findings = append(state.Findings, session.StampFinding(f))
		}
		for k, v := range pr.Metrics {
			state.Metrics[k] = v
		}
	}

	if rc.Extended != nil {
		ext, err := toDocument(rc.Extended)
		if err != nil {
			return nil, fmt.Errorf("encoding extended analysis: %w", err)
		}
		state.ExtendedAnalysis = ext
	}

	if err := r.store.SaveState(state); err != nil {
		return nil, err
	}
	return state, nil
}

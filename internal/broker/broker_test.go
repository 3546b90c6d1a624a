package broker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ccplugins/workbench/internal/session"
)

func testBroker(t *testing.T) (*Broker, string) {
	t.Helper()
	root := t.TempDir()
	return New(root), root
}

func pinTime(t *testing.T, at time.Time) {
	t.Helper()
	timeNow = func() time.Time { return at }
	t.Cleanup(func() { timeNow = time.Now })
}

// --- shared context ---

func TestShareContext_StampsAndVersions(t *testing.T) {
	b, root := testBroker(t)
	pinTime(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	if err := b.ShareContext("requirements", map[string]any{"requirements": "auth flows"}); err != nil {
		t.Fatal(err)
	}
	if err := b.ShareContext("requirements", map[string]any{"requirements": "auth flows v2"}); err != nil {
		t.Fatal(err)
	}

	sc, err := b.docs.LoadSharedContext()
	if err != nil {
		t.Fatal(err)
	}
	entry := sc.Commands["requirements"]
	if entry.Version != 2 {
		t.Fatalf("version %d after two publishes, want 2", entry.Version)
	}
	if entry.Data["requirements"] != "auth flows v2" {
		t.Fatalf("second publish did not overwrite: %v", entry.Data)
	}
	if entry.Timestamp != "2026-03-01T10:00:00Z" {
		t.Fatalf("timestamp %q", entry.Timestamp)
	}

	// The document lives under .workflow/, not any command folder.
	if _, err := os.Stat(filepath.Join(root, WorkflowDir, "shared-context.json")); err != nil {
		t.Fatalf("shared-context.json not written: %v", err)
	}

	h, err := b.docs.LoadHistory()
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Entries) != 2 {
		t.Fatalf("history has %d entries, want 2", len(h.Entries))
	}
	if h.LastRun["requirements"] == "" {
		t.Fatal("lastRun not recorded")
	}
}

func TestSharedContextFor_IntersectsContracts(t *testing.T) {
	b, _ := testBroker(t)

	// requirements provides "requirements"; plan consumes it.
	// performance-audit provides facts plan does not consume.
	if err := b.ShareContext("requirements", map[string]any{
		"requirements":       "login + sessions",
		"acceptanceCriteria": []any{"2fa works"},
		"internalScratch":    "not a declared fact",
	}); err != nil {
		t.Fatal(err)
	}
	if err := b.ShareContext("performance-audit", map[string]any{"bundleSize": 2048.0}); err != nil {
		t.Fatal(err)
	}

	got := b.SharedContextFor("plan", nil)
	slot, ok := got["requirements"]
	if !ok {
		t.Fatalf("plan should see requirements facts, got %v", got)
	}
	if slot["requirements"] != "login + sessions" {
		t.Fatalf("fact value: %v", slot)
	}
	if _, leaked := slot["internalScratch"]; leaked {
		t.Fatal("undeclared fact leaked through the contract")
	}
	if _, ok := got["performance-audit"]; ok {
		t.Fatal("plan does not consume any performance-audit fact")
	}
}

func TestSharedContextFor_RequiredTypesFilter(t *testing.T) {
	b, _ := testBroker(t)
	if err := b.ShareContext("requirements", map[string]any{
		"requirements":       "checkout",
		"acceptanceCriteria": []any{"tax computed"},
	}); err != nil {
		t.Fatal(err)
	}

	got := b.SharedContextFor("plan", []string{"acceptanceCriteria"})
	slot := got["requirements"]
	if len(slot) != 1 {
		t.Fatalf("filter returned %v", slot)
	}
	if _, ok := slot["acceptanceCriteria"]; !ok {
		t.Fatalf("filtered slot missing acceptanceCriteria: %v", slot)
	}
}

func TestSharedContextFor_EmptyProject(t *testing.T) {
	b, _ := testBroker(t)
	got := b.SharedContextFor("plan", nil)
	if len(got) != 0 {
		t.Fatalf("fresh project returned %v", got)
	}
}

// --- suggestions ---

func auditAnalysis(bundleSize float64) Analysis {
	return Analysis{
		Metrics: map[string]float64{"bundleSize": bundleSize},
	}
}

func TestSuggestions_ConditionGates(t *testing.T) {
	b, _ := testBroker(t)

	// Below the bundle threshold the containerize rule must not fire.
	if got := b.Suggestions("performance-audit", auditAnalysis(500_000)); len(got) != 0 {
		t.Fatalf("small bundle produced suggestions: %v", got)
	}

	got := b.Suggestions("performance-audit", auditAnalysis(2_000_000))
	if len(got) != 1 || got[0].Command != "containerize" {
		t.Fatalf("large bundle: %v", got)
	}
	if got[0].Priority != "high" {
		t.Fatalf("priority %q", got[0].Priority)
	}
}

func TestSuggestions_ThrottledWithin24Hours(t *testing.T) {
	b, _ := testBroker(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	pinTime(t, base)
	if err := b.ShareContext("containerize", map[string]any{"containerConfig": "Dockerfile"}); err != nil {
		t.Fatal(err)
	}

	// 23 hours later: still throttled.
	timeNow = func() time.Time { return base.Add(23 * time.Hour) }
	if got := b.Suggestions("performance-audit", auditAnalysis(2_000_000)); len(got) != 0 {
		t.Fatalf("throttle window ignored: %v", got)
	}

	// 25 hours later: eligible again.
	timeNow = func() time.Time { return base.Add(25 * time.Hour) }
	if got := b.Suggestions("performance-audit", auditAnalysis(2_000_000)); len(got) != 1 {
		t.Fatalf("expired throttle still suppressing: %v", got)
	}
}

func TestSuggestions_Confidence(t *testing.T) {
	b, _ := testBroker(t)

	sparse := b.Suggestions("performance-audit", auditAnalysis(2_000_000))
	if sparse[0].Confidence != 0.5 {
		t.Fatalf("sparse confidence %v, want 0.5", sparse[0].Confidence)
	}

	rich := Analysis{
		Findings: make([]session.Finding, 6),
		Metrics: map[string]float64{
			"bundleSize": 2_000_000, "queryCount": 9, "renderMs": 120, "assets": 40,
		},
		Extended: map[string]any{"insights": []any{"hot path identified"}},
	}
	got := b.Suggestions("performance-audit", rich)
	want := 0.5 + 0.15 + 0.2 + 0.1
	if got[0].Confidence != want {
		t.Fatalf("rich confidence %v, want %v", got[0].Confidence, want)
	}
}

func TestSuggestions_SortedByPriority(t *testing.T) {
	b, _ := testBroker(t)

	// validate-implementation suggests expand-tests (high, needs
	// findings) and retrospective (default medium).
	a := Analysis{Findings: make([]session.Finding, 2)}
	got := b.Suggestions("validate-implementation", a)
	if len(got) != 2 {
		t.Fatalf("got %v", got)
	}
	if got[0].Command != "expand-tests" || got[1].Command != "retrospective" {
		t.Fatalf("priority order wrong: %v", got)
	}
}

func TestSuggestions_NoContract(t *testing.T) {
	b, _ := testBroker(t)
	if got := b.Suggestions("adr", Analysis{}); len(got) != 0 {
		t.Fatalf("adr suggests nothing, got %v", got)
	}
}

// --- chains ---

func TestCreateChain_StructuralValidation(t *testing.T) {
	b, root := testBroker(t)

	if _, err := b.CreateChain("empty", nil); err == nil {
		t.Fatal("empty chain accepted")
	}
	if _, err := b.CreateChain("no-command", []ChainStep{{Args: "x"}}); err == nil {
		t.Fatal("step without command accepted")
	}
	// Forward reference: b depends on a command that comes later.
	_, err := b.CreateChain("forward", []ChainStep{
		{Command: "b", Dependencies: []string{"a"}},
		{Command: "a"},
	})
	if err == nil {
		t.Fatal("forward dependency accepted")
	}

	chain, err := b.CreateChain("release", []ChainStep{
		{Command: "performance-audit"},
		{Command: "containerize", Dependencies: []string{"performance-audit"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if chain.ID == "" {
		t.Fatal("chain has no id")
	}

	// Persisted and loadable.
	data, err := os.ReadFile(filepath.Join(root, WorkflowDir, "chains", chain.ID+".json"))
	if err != nil {
		t.Fatalf("chain not persisted: %v", err)
	}
	var onDisk Chain
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatal(err)
	}
	if len(onDisk.Steps) != 2 {
		t.Fatalf("persisted chain has %d steps", len(onDisk.Steps))
	}

	loaded, err := b.LoadChain(chain.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Name != "release" {
		t.Fatalf("loaded chain name %q", loaded.Name)
	}
}

func TestExecuteChain_ThreadsContext(t *testing.T) {
	b, _ := testBroker(t)
	chain, err := b.CreateChain("flow", []ChainStep{
		{Command: "requirements"},
		{Command: "plan", Dependencies: []string{"requirements"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	var planSaw map[string]any
	result := b.ExecuteChain(chain, func(step ChainStep, shared map[string]any) (*StepResult, error) {
		switch step.Command {
		case "requirements":
			return &StepResult{Context: map[string]any{"requirements": "captured"}}, nil
		case "plan":
			planSaw = map[string]any{}
			for k, v := range shared {
				planSaw[k] = v
			}
			return &StepResult{}, nil
		}
		return nil, nil
	})

	if !result.Success {
		t.Fatalf("chain failed: %s", result.Error)
	}
	if planSaw["requirements"] != "captured" {
		t.Fatalf("plan step did not see threaded context: %v", planSaw)
	}
	if len(result.Steps) != 2 {
		t.Fatalf("results: %v", result.Steps)
	}
}

func TestExecuteChain_DependencyNotCompleted(t *testing.T) {
	b, _ := testBroker(t)
	// Structure allows it (a appears earlier), but a fails at runtime.
	chain := &Chain{ID: "manual", Steps: []ChainStep{
		{Command: "a"},
		{Command: "b", Dependencies: []string{"a"}},
	}}

	// A step that reports a non-completed status stops the chain with
	// the exact dependency message when a later step needs it.
	result := b.ExecuteChain(chain, func(step ChainStep, shared map[string]any) (*StepResult, error) {
		return &StepResult{Status: "skipped"}, nil
	})
	if result.Success {
		t.Fatal("chain with non-completed step reported success")
	}

	// Dependency check message is stable.
	chain2 := &Chain{ID: "manual2", Steps: []ChainStep{
		{Command: "b", Dependencies: []string{"a"}},
	}}
	result = b.ExecuteChain(chain2, func(ChainStep, map[string]any) (*StepResult, error) {
		t.Fatal("step with unmet dependency must not execute")
		return nil, nil
	})
	if result.Error != "Dependency a not completed" {
		t.Fatalf("error %q", result.Error)
	}
}

func TestExecuteChain_FailureAborts(t *testing.T) {
	b, _ := testBroker(t)
	chain := &Chain{ID: "abort", Steps: []ChainStep{
		{Command: "a"},
		{Command: "b"},
		{Command: "c"},
	}}

	ran := []string{}
	result := b.ExecuteChain(chain, func(step ChainStep, shared map[string]any) (*StepResult, error) {
		ran = append(ran, step.Command)
		if step.Command == "b" {
			return nil, os.ErrPermission
		}
		return &StepResult{}, nil
	})

	if result.Success {
		t.Fatal("failed chain reported success")
	}
	if len(ran) != 2 {
		t.Fatalf("steps after failure still ran: %v", ran)
	}
	if result.Steps[1].Status != stepFailed {
		t.Fatalf("failing step status %q", result.Steps[1].Status)
	}
}

// --- dashboard ---

func TestHealthDashboard_UnknownWhenEmpty(t *testing.T) {
	b, _ := testBroker(t)
	dash := b.HealthDashboard()

	if len(dash.Categories) != 7 {
		t.Fatalf("dashboard has %d categories, want 7", len(dash.Categories))
	}
	for cat, h := range dash.Categories {
		if h.Status != StatusUnknown || h.Score != 0 {
			t.Fatalf("empty project category %s: %+v", cat, h)
		}
	}
	if dash.Overall.Status != StatusUnknown {
		t.Fatalf("overall %+v", dash.Overall)
	}
}

func TestHealthDashboard_ScoresAndOverall(t *testing.T) {
	b, root := testBroker(t)

	if err := b.ShareContext("validate-implementation", map[string]any{"testCoverage": 90.0}); err != nil {
		t.Fatal(err)
	}
	if err := b.ShareContext("performance-audit", map[string]any{"bundleSize": 2_000_000.0}); err != nil {
		t.Fatal(err)
	}

	dash := b.HealthDashboard()

	if got := dash.Categories["testing"]; got.Score != 90 || got.Status != StatusGood {
		t.Fatalf("testing %+v", got)
	}
	if got := dash.Categories["performance"]; got.Score != 40 || got.Status != StatusCritical {
		t.Fatalf("performance %+v", got)
	}
	if got := dash.Categories["monitoring"]; got.Status != StatusUnknown {
		t.Fatalf("monitoring %+v", got)
	}

	// Overall averages only the known categories: (90+40)/2 = 65.
	if dash.Overall.Score != 65 || dash.Overall.Status != StatusWarning {
		t.Fatalf("overall %+v", dash.Overall)
	}

	if _, err := os.Stat(filepath.Join(root, WorkflowDir, "dashboard.json")); err != nil {
		t.Fatalf("dashboard not persisted: %v", err)
	}
}

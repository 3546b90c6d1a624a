package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(t.TempDir(), "requirements")
}

// --- Path helpers ---

func TestSessionDir(t *testing.T) {
	got := SessionDir("/proj", "plan")
	want := filepath.Join("/proj", "plan")
	if got != want {
		t.Errorf("SessionDir = %s, want %s", got, want)
	}
}

func TestStatePath(t *testing.T) {
	got := StatePath("/proj", "plan")
	want := filepath.Join("/proj", "plan", StateFileName)
	if got != want {
		t.Errorf("StatePath = %s, want %s", got, want)
	}
}

// --- Initialize ---

func TestInitialize_CreatesDirAndState(t *testing.T) {
	fs := newTestStore(t)

	if err := fs.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !fs.SessionExists() {
		t.Error("state file should exist after Initialize")
	}
}

func TestInitialize_Idempotent(t *testing.T) {
	fs := newTestStore(t)

	if err := fs.Initialize(); err != nil {
		t.Fatalf("first Initialize: %v", err)
	}
	first := fs.LoadState()

	if err := fs.Initialize(); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
	second := fs.LoadState()

	if first.SessionID != second.SessionID {
		t.Errorf("re-initialize reset session id %s -> %s", first.SessionID, second.SessionID)
	}
}

// --- Scenario: fresh session ---

func TestFreshSession(t *testing.T) {
	fs := newTestStore(t)

	if err := fs.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	state := fs.LoadState()

	if state.Phase == PhaseComplete {
		t.Errorf("fresh session phase = %s, want not complete", state.Phase)
	}
	if len(state.Findings) != 0 {
		t.Errorf("fresh session findings = %v, want empty", state.Findings)
	}
	if len(state.Metrics) != 0 {
		t.Errorf("fresh session metrics = %v, want empty", state.Metrics)
	}
}

// --- LoadState ---

func TestLoadState_NoFileReturnsFreshState(t *testing.T) {
	fs := newTestStore(t)

	state := fs.LoadState()
	if state == nil {
		t.Fatal("LoadState returned nil")
	}
	if state.Command != "requirements" {
		t.Errorf("Command = %s, want requirements", state.Command)
	}
}

func TestLoadState_CorruptFileReturnsFreshState(t *testing.T) {
	fs := newTestStore(t)
	if err := fs.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := os.WriteFile(fs.statePath(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupting state: %v", err)
	}

	state := fs.LoadState()
	if state == nil {
		t.Fatal("LoadState returned nil after corruption")
	}
	if state.Phase != PhaseSetup {
		t.Errorf("Phase = %s, want setup", state.Phase)
	}
}

func TestLoadState_PartialFileIsCompleted(t *testing.T) {
	fs := newTestStore(t)
	if err := os.MkdirAll(fs.dir(), 0o755); err != nil {
		t.Fatal(err)
	}
	partial := `{"command": "requirements", "phase": "analysis"}`
	if err := os.WriteFile(fs.statePath(), []byte(partial), 0o644); err != nil {
		t.Fatal(err)
	}

	state := fs.LoadState()
	if state.Phase != PhaseAnalysis {
		t.Errorf("Phase = %s, want analysis (preserved)", state.Phase)
	}
	if state.SessionID == "" {
		t.Error("SessionID should be synthesized for partial state")
	}
	if state.Progress.CurrentStep != "unknown" {
		t.Errorf("CurrentStep = %s, want unknown", state.Progress.CurrentStep)
	}
	if state.Findings == nil || state.Metrics == nil || state.Context == nil {
		t.Error("collections should be non-nil after validation")
	}
}

// --- SaveState / round-trip ---

func TestSaveState_RoundTrip(t *testing.T) {
	fs := newTestStore(t)
	if err := fs.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	state := fs.LoadState()
	state.Phase = PhaseExecution
	state.Context["projectType"] = "cli"
	state.Metrics["files"] = 42
	if err := fs.SaveState(state); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	loaded := fs.LoadState()
	if err := fs.SaveState(loaded); err != nil {
		t.Fatalf("second SaveState: %v", err)
	}
	again := fs.LoadState()

	// Everything but the forced lastUpdated bump must survive byte-for-byte.
	loaded.LastUpdated, again.LastUpdated = "", ""
	a, _ := json.Marshal(loaded)
	b, _ := json.Marshal(again)
	if string(a) != string(b) {
		t.Errorf("round-trip mismatch:\n%s\n%s", a, b)
	}
}

func TestSaveState_CreatesDirWithoutInitialize(t *testing.T) {
	fs := newTestStore(t)

	// First write on a fresh project: the session directory does not
	// exist yet and must be created on demand.
	if err := fs.SaveState(NewState("requirements")); err != nil {
		t.Fatalf("SaveState without Initialize: %v", err)
	}
	if !fs.SessionExists() {
		t.Error("state file should exist after SaveState")
	}
}

func TestAddFinding_CreatesDirWithoutInitialize(t *testing.T) {
	fs := newTestStore(t)

	if _, err := fs.AddFinding(Finding{Severity: "high", Description: "slow query"}); err != nil {
		t.Fatalf("AddFinding without Initialize: %v", err)
	}
	state := fs.LoadState()
	if len(state.Findings) != 1 {
		t.Errorf("Findings = %d, want 1", len(state.Findings))
	}
}

func TestSaveState_StampsLastUpdated(t *testing.T) {
	fs := newTestStore(t)
	if err := fs.Initialize(); err != nil {
		t.Fatal(err)
	}

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return fixed }
	defer func() { timeNow = time.Now }()

	state := fs.LoadState()
	if err := fs.SaveState(state); err != nil {
		t.Fatal(err)
	}
	if state.LastUpdated != "2026-03-01T12:00:00Z" {
		t.Errorf("LastUpdated = %s, want 2026-03-01T12:00:00Z", state.LastUpdated)
	}
}

func TestSaveState_NoTempFileLeftBehind(t *testing.T) {
	fs := newTestStore(t)
	if err := fs.Initialize(); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(fs.dir())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

// --- Plan ---

func TestLoadPlan_AbsentIsNotAnError(t *testing.T) {
	fs := newTestStore(t)

	plan, err := fs.LoadPlan()
	if err != nil {
		t.Fatalf("LoadPlan: %v", err)
	}
	if plan != "" {
		t.Errorf("plan = %q, want empty", plan)
	}
	if fs.PlanExists() {
		t.Error("PlanExists = true, want false")
	}
}

func TestSavePlan_RoundTrip(t *testing.T) {
	fs := newTestStore(t)

	content := "# Plan\n\n- step one\n"
	if err := fs.SavePlan(content); err != nil {
		t.Fatalf("SavePlan: %v", err)
	}
	plan, err := fs.LoadPlan()
	if err != nil {
		t.Fatalf("LoadPlan: %v", err)
	}
	if plan != content {
		t.Errorf("plan = %q, want %q", plan, content)
	}
}

func TestSetPlanFile_AlternateArtifactName(t *testing.T) {
	fs := newTestStore(t)
	fs.SetPlanFile("analysis.md")

	if err := fs.SavePlan("analysis body"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(fs.dir(), "analysis.md")); err != nil {
		t.Errorf("analysis.md not written: %v", err)
	}
}

// --- UpdateProgress ---

func TestUpdateProgress_NilArgsLeavePriorValues(t *testing.T) {
	fs := newTestStore(t)
	if err := fs.Initialize(); err != nil {
		t.Fatal(err)
	}

	total := 10
	completed := 3
	if err := fs.UpdateProgress("scanning", &completed, &total); err != nil {
		t.Fatal(err)
	}
	if err := fs.UpdateProgress("analyzing", nil, nil); err != nil {
		t.Fatal(err)
	}

	state := fs.LoadState()
	if state.Progress.CurrentStep != "analyzing" {
		t.Errorf("CurrentStep = %s, want analyzing", state.Progress.CurrentStep)
	}
	if state.Progress.CompletedSteps != 3 {
		t.Errorf("CompletedSteps = %d, want 3", state.Progress.CompletedSteps)
	}
	if state.Progress.TotalSteps != 10 {
		t.Errorf("TotalSteps = %d, want 10", state.Progress.TotalSteps)
	}
}

// --- Findings ---

func TestAddFinding_AppendOnlyWithUniqueIDs(t *testing.T) {
	fs := newTestStore(t)
	if err := fs.Initialize(); err != nil {
		t.Fatal(err)
	}

	const n = 5
	seen := map[string]bool{}
	prevStamp := ""
	for i := 0; i < n; i++ {
		stored, err := fs.AddFinding(Finding{
			Type:        "style",
			Severity:    SeverityLow,
			Description: "issue",
		})
		if err != nil {
			t.Fatalf("AddFinding %d: %v", i, err)
		}
		if stored.ID == "" {
			t.Fatal("stored finding has no id")
		}
		if seen[stored.ID] {
			t.Fatalf("duplicate finding id %s", stored.ID)
		}
		seen[stored.ID] = true
		if stored.Timestamp < prevStamp {
			t.Errorf("timestamp went backwards: %s < %s", stored.Timestamp, prevStamp)
		}
		prevStamp = stored.Timestamp
	}

	state := fs.LoadState()
	if len(state.Findings) != n {
		t.Errorf("findings length = %d, want %d", len(state.Findings), n)
	}
}

func TestAddFinding_DefaultsStatusOpen(t *testing.T) {
	fs := newTestStore(t)
	if err := fs.Initialize(); err != nil {
		t.Fatal(err)
	}

	stored, err := fs.AddFinding(Finding{Type: "bug", Severity: SeverityHigh, Description: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != "open" {
		t.Errorf("Status = %s, want open", stored.Status)
	}
}

func TestUpdateFinding_MergesPatch(t *testing.T) {
	fs := newTestStore(t)
	if err := fs.Initialize(); err != nil {
		t.Fatal(err)
	}

	stored, err := fs.AddFinding(Finding{Type: "bug", Severity: SeverityHigh, Description: "x"})
	if err != nil {
		t.Fatal(err)
	}

	status := "resolved"
	remediation := "patched in v2"
	updated, err := fs.UpdateFinding(stored.ID, FindingPatch{Status: &status, Remediation: &remediation})
	if err != nil {
		t.Fatalf("UpdateFinding: %v", err)
	}
	if updated.Status != "resolved" {
		t.Errorf("Status = %s, want resolved", updated.Status)
	}
	if updated.Remediation != "patched in v2" {
		t.Errorf("Remediation = %s, want patched in v2", updated.Remediation)
	}
	if updated.Description != "x" {
		t.Errorf("Description = %s, want x (unpatched field preserved)", updated.Description)
	}
	if updated.LastUpdated == "" {
		t.Error("LastUpdated should be stamped on the finding")
	}
}

func TestUpdateFinding_UnknownIDFailsLoudly(t *testing.T) {
	fs := newTestStore(t)
	if err := fs.Initialize(); err != nil {
		t.Fatal(err)
	}

	status := "resolved"
	_, err := fs.UpdateFinding("nope", FindingPatch{Status: &status})
	if !errors.Is(err, ErrFindingNotFound) {
		t.Errorf("err = %v, want ErrFindingNotFound", err)
	}
}

// --- Metrics ---

func TestSetMetrics_MergesNotReplaces(t *testing.T) {
	fs := newTestStore(t)
	if err := fs.Initialize(); err != nil {
		t.Fatal(err)
	}

	if err := fs.SetMetrics(map[string]float64{"a": 1}); err != nil {
		t.Fatal(err)
	}
	if err := fs.SetMetrics(map[string]float64{"b": 2}); err != nil {
		t.Fatal(err)
	}

	state := fs.LoadState()
	if state.Metrics["a"] != 1 || state.Metrics["b"] != 2 {
		t.Errorf("metrics = %v, want {a:1 b:2}", state.Metrics)
	}
}

// --- RecoverSession ---

func TestRecoverSession_PreservesEvidence(t *testing.T) {
	fs := newTestStore(t)
	if err := fs.Initialize(); err != nil {
		t.Fatal(err)
	}

	corrupt := []byte("{definitely not json!!")
	if err := os.WriteFile(fs.statePath(), corrupt, 0o644); err != nil {
		t.Fatal(err)
	}

	backupPath, err := fs.RecoverSession()
	if err != nil {
		t.Fatalf("RecoverSession: %v", err)
	}
	if backupPath == "" {
		t.Fatal("no backup path returned")
	}

	backed, err := os.ReadFile(backupPath)
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	if string(backed) != string(corrupt) {
		t.Errorf("backup content = %q, want original corrupt bytes", backed)
	}

	// Live file must now be a valid fresh initial state.
	data, err := os.ReadFile(fs.statePath())
	if err != nil {
		t.Fatal(err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		t.Fatalf("live state not valid JSON after recovery: %v", err)
	}
	if state.Phase != PhaseSetup {
		t.Errorf("recovered phase = %s, want setup", state.Phase)
	}
}

func TestRecoverSession_NoFileStillInitializes(t *testing.T) {
	fs := newTestStore(t)

	backupPath, err := fs.RecoverSession()
	if err != nil {
		t.Fatalf("RecoverSession: %v", err)
	}
	if backupPath != "" {
		t.Errorf("backup path = %q, want empty (nothing to back up)", backupPath)
	}
	if !fs.SessionExists() {
		t.Error("state file should exist after recovery")
	}
}

// --- Summary ---

func TestSummary(t *testing.T) {
	fs := newTestStore(t)
	if err := fs.Initialize(); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.AddFinding(Finding{Type: "bug", Severity: SeverityCritical, Description: "x"}); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.AddFinding(Finding{Type: "style", Severity: SeverityLow, Description: "y"}); err != nil {
		t.Fatal(err)
	}
	if err := fs.SavePlan("plan"); err != nil {
		t.Fatal(err)
	}

	sum, err := fs.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Command != "requirements" {
		t.Errorf("Command = %s, want requirements", sum.Command)
	}
	if sum.FindingCount != 2 {
		t.Errorf("FindingCount = %d, want 2", sum.FindingCount)
	}
	if sum.CriticalFindings != 1 {
		t.Errorf("CriticalFindings = %d, want 1", sum.CriticalFindings)
	}
	if !sum.HasPlan {
		t.Error("HasPlan = false, want true")
	}
	if sum.SessionAge == "" {
		t.Error("SessionAge should be set")
	}
}

// --- formatAge ---

func TestFormatAge(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "under a minute"},
		{12 * time.Minute, "12m"},
		{83 * time.Minute, "1h 23m"},
		{52 * time.Hour, "2d 4h"},
	}
	for _, tt := range tests {
		if got := formatAge(tt.d); got != tt.want {
			t.Errorf("formatAge(%v) = %s, want %s", tt.d, got, tt.want)
		}
	}
}

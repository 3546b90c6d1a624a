package complexity

import "fmt"

// --- Extended analysis output ---

// Insight is a category-tagged expansion of one trigger.
type Insight struct {
	Category string `json:"category"`
	Trigger  string `json:"trigger"`
	Summary  string `json:"summary"`
}

// Recommendation is a priority-tagged strategic action.
type Recommendation struct {
	Priority  string `json:"priority"`
	Action    string `json:"action"`
	Rationale string `json:"rationale"`
}

// PlanPhase is one step of the phased implementation plan.
type PlanPhase struct {
	Name     string `json:"name"`
	Duration string `json:"duration"`
	Focus    string `json:"focus"`
}

// Plan is the phased implementation plan; phase count and total
// duration scale with complexity level.
type Plan struct {
	Phases        []PlanPhase `json:"phases"`
	TotalDuration string      `json:"totalDuration"`
}

// Risk is a risk record derived from one matched trigger type.
type Risk struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Mitigation  string `json:"mitigation"`
	Likelihood  string `json:"likelihood"`
}

// ExtendedAnalysis is the full deterministic deep-analysis bundle
// attached to a session when escalation fires.
type ExtendedAnalysis struct {
	ComplexityLevel Level            `json:"complexityLevel"`
	Insights        []Insight        `json:"insights"`
	Recommendations []Recommendation `json:"recommendations"`
	Plan            Plan             `json:"implementationPlan"`
	Risks           []Risk           `json:"risks"`
	SuccessMetrics  []string         `json:"successMetrics"`
}

// --- Fixed per-trigger-type tables ---

var recommendationsByTrigger = map[string]Recommendation{
	"large-bundle": {Priority: "high", Action: "split the bundle by route and lazy-load non-critical chunks",
		Rationale: "bundle weight dominates first-load performance"},
	"slow-load": {Priority: "medium", Action: "profile the critical rendering path and defer blocking resources",
		Rationale: "load time above 3s measurably increases abandonment"},
	"request-storm": {Priority: "medium", Action: "batch or cache repeated API calls",
		Rationale: "request fan-out amplifies tail latency"},
	"ssr": {Priority: "high", Action: "audit hydration boundaries before changing rendering code",
		Rationale: "server-side rendering couples server and client performance budgets"},
	"violation-backlog": {Priority: "high", Action: "triage violations by user impact before fixing in bulk",
		Rationale: "a large backlog fixed unsorted wastes effort on low-impact issues"},
	"wide-surface": {Priority: "medium", Action: "audit shared components first",
		Rationale: "fixes in shared components cascade to every consumer"},
	"dynamic-content": {Priority: "medium", Action: "verify live-region announcements for every dynamic update",
		Rationale: "dynamic content is invisible to assistive tech without explicit wiring"},
	"large-codebase": {Priority: "high", Action: "partition the analysis by module ownership",
		Rationale: "whole-tree passes on large codebases produce shallow results"},
	"module-sprawl": {Priority: "medium", Action: "map the dependency graph before restructuring",
		Rationale: "sprawl hides implicit coupling that breaks during moves"},
	"circular-deps": {Priority: "high", Action: "break cycles at the narrowest interface first",
		Rationale: "cycles block incremental refactoring and testing"},
	"many-services": {Priority: "high", Action: "stage the rollout service by service",
		Rationale: "simultaneous multi-service changes compound failure modes"},
	"large-team": {Priority: "medium", Action: "agree on a freeze window before pipeline changes",
		Rationale: "concurrent pushes during pipeline work cause hard-to-trace failures"},
	"multi-region": {Priority: "medium", Action: "validate region failover before and after the change",
		Rationale: "region-specific config drift surfaces only during failover"},
	"coverage-hole": {Priority: "high", Action: "add characterization tests before touching untested files",
		Rationale: "changes to untested code cannot be verified"},
	"coverage-gap": {Priority: "medium", Action: "target the gap in the most-changed files first",
		Rationale: "churn correlates with defect density"},
	"requirement-volume": {Priority: "high", Action: "cluster requirements into independently deliverable slices",
		Rationale: "large undivided requirement sets stall estimation and review"},
	"many-stakeholders": {Priority: "medium", Action: "nominate a single decision owner per requirement cluster",
		Rationale: "unowned decisions reopen repeatedly"},
	"regulatory": {Priority: "high", Action: "capture compliance constraints as explicit acceptance criteria",
		Rationale: "implicit compliance requirements fail audits"},
}

var risksByTrigger = map[string]Risk{
	"large-bundle":       {Type: "performance-regression", Description: "code splitting can break lazy import ordering", Mitigation: "smoke-test every split route", Likelihood: "medium"},
	"slow-load":          {Type: "measurement-noise", Description: "load-time fixes validated on fast hardware miss real users", Mitigation: "measure on throttled profiles", Likelihood: "medium"},
	"request-storm":      {Type: "stale-data", Description: "caching repeated calls can serve stale responses", Mitigation: "set explicit cache invalidation rules", Likelihood: "medium"},
	"ssr":                {Type: "hydration-mismatch", Description: "server and client markup drift apart", Mitigation: "assert hydration warnings fail CI", Likelihood: "high"},
	"violation-backlog":  {Type: "regression", Description: "bulk fixes reintroduce violations elsewhere", Mitigation: "add automated checks per fixed rule", Likelihood: "medium"},
	"wide-surface":       {Type: "scope-creep", Description: "audits of wide surfaces expand past the budget", Mitigation: "timebox per component group", Likelihood: "high"},
	"dynamic-content":    {Type: "silent-failure", Description: "missing announcements are invisible in manual testing", Mitigation: "script screen-reader assertions", Likelihood: "medium"},
	"large-codebase":     {Type: "shallow-analysis", Description: "breadth crowds out depth", Mitigation: "cap breadth, go deep on hot paths", Likelihood: "high"},
	"module-sprawl":      {Type: "hidden-coupling", Description: "implicit dependencies break during restructuring", Mitigation: "verify builds per moved module", Likelihood: "medium"},
	"circular-deps":      {Type: "refactor-stall", Description: "cycle-breaking cascades into unrelated modules", Mitigation: "introduce interfaces at cycle edges first", Likelihood: "medium"},
	"many-services":      {Type: "partial-rollout", Description: "some services upgrade while others lag", Mitigation: "version the contracts between them", Likelihood: "high"},
	"large-team":         {Type: "merge-conflict", Description: "pipeline work collides with feature pushes", Mitigation: "announce and window the change", Likelihood: "high"},
	"multi-region":       {Type: "config-drift", Description: "per-region overrides diverge silently", Mitigation: "diff region configs in CI", Likelihood: "medium"},
	"coverage-hole":      {Type: "undetected-regression", Description: "changes to untested code ship broken", Mitigation: "characterization tests first", Likelihood: "high"},
	"coverage-gap":       {Type: "false-confidence", Description: "green builds despite untested churn", Mitigation: "coverage gate on changed files", Likelihood: "medium"},
	"requirement-volume": {Type: "estimation-drift", Description: "large sets are systematically underestimated", Mitigation: "estimate per slice, not in aggregate", Likelihood: "high"},
	"many-stakeholders":  {Type: "decision-churn", Description: "agreed requirements get reopened", Mitigation: "record decisions with owners", Likelihood: "medium"},
	"regulatory":         {Type: "compliance-gap", Description: "an implicit constraint is missed until audit", Mitigation: "trace each constraint to a test", Likelihood: "medium"},
}

// planByLevel scales phase count and total duration with complexity:
// low gets a single 1-2 week phase, very-high gets five phases over
// 10-16 weeks.
var planByLevel = map[Level]Plan{
	LevelLow: {
		TotalDuration: "1-2 weeks",
		Phases: []PlanPhase{
			{Name: "implement", Duration: "1-2 weeks", Focus: "apply the direct fixes identified"},
		},
	},
	LevelMedium: {
		TotalDuration: "2-4 weeks",
		Phases: []PlanPhase{
			{Name: "stabilize", Duration: "1-2 weeks", Focus: "address triggered hot spots"},
			{Name: "harden", Duration: "1-2 weeks", Focus: "verify and lock in the fixes"},
		},
	},
	LevelHigh: {
		TotalDuration: "6-10 weeks",
		Phases: []PlanPhase{
			{Name: "baseline", Duration: "1-2 weeks", Focus: "measure and document current behavior"},
			{Name: "restructure", Duration: "3-5 weeks", Focus: "work through triggered areas in priority order"},
			{Name: "validate", Duration: "2-3 weeks", Focus: "regression passes and sign-off"},
		},
	},
	LevelVeryHigh: {
		TotalDuration: "10-16 weeks",
		Phases: []PlanPhase{
			{Name: "baseline", Duration: "1-2 weeks", Focus: "measure and document current behavior"},
			{Name: "partition", Duration: "1-2 weeks", Focus: "split the work into independent tracks"},
			{Name: "execute", Duration: "4-6 weeks", Focus: "run the tracks with checkpoints"},
			{Name: "integrate", Duration: "2-3 weeks", Focus: "merge tracks and resolve interactions"},
			{Name: "validate", Duration: "2-3 weeks", Focus: "full regression and sign-off"},
		},
	},
}

// successMetricsByCommand is keyed by canonical command name.
var successMetricsByCommand = map[string][]string{
	"performance-audit":       {"bundle size under 1MB", "load time under 3s", "no regression in core web vitals"},
	"containerize":            {"image builds reproducibly", "cold start under 5s", "one-command local bring-up"},
	"requirements":            {"every requirement has an id and acceptance criteria", "no unresolved open questions"},
	"plan":                    {"every task traces to a requirement", "dependency graph has no cycles"},
	"adr":                     {"each decision records context, decision, and consequences"},
	"feature-status":          {"status reflects actual branch and test state"},
	"retrospective":           {"action items have owners and due dates"},
	"validate-implementation": {"all requirements covered by implementation evidence", "no critical findings open"},
	"expand-tests":            {"coverage gap closed on changed files", "new tests fail before the fix"},
	"expand-api":              {"new endpoints documented and versioned"},
	"expand-components":       {"new components reuse the shared design tokens"},
	"expand-models":           {"schema migrations are reversible"},
}

// PerformExtendedAnalysis deterministically expands already-computed
// triggers into the deep-analysis bundle. Same inputs always produce
// the same output; absent lookups yield empty lists, never an error.
func PerformExtendedAnalysis(command string, signals Signals, triggers []Trigger) *ExtendedAnalysis {
	category := CanonicalCategory(command)
	level := deriveLevel(triggers)

	insights := make([]Insight, 0, len(triggers))
	recommendations := make([]Recommendation, 0, len(triggers))
	risks := make([]Risk, 0, len(triggers))
	seenRisk := map[string]bool{}

	for _, t := range triggers {
		insights = append(insights, Insight{
			Category: category,
			Trigger:  t.Type,
			Summary:  fmt.Sprintf("%s severity: %s", t.Severity, t.Description),
		})
		if rec, ok := recommendationsByTrigger[t.Type]; ok {
			recommendations = append(recommendations, rec)
		}
		if risk, ok := risksByTrigger[t.Type]; ok && !seenRisk[t.Type] {
			seenRisk[t.Type] = true
			risks = append(risks, risk)
		}
	}

	metrics := successMetricsByCommand[canonicalCommand(command)]
	if metrics == nil {
		metrics = []string{}
	}

	return &ExtendedAnalysis{
		ComplexityLevel: level,
		Insights:        insights,
		Recommendations: recommendations,
		Plan:            planByLevel[level],
		Risks:           risks,
		SuccessMetrics:  metrics,
	}
}

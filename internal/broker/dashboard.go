package broker

import "log"

// Health status labels for categories and the overall dashboard.
const (
	StatusGood     = "good"
	StatusWarning  = "warning"
	StatusCritical = "critical"
	StatusUnknown  = "unknown"
)

// CategoryHealth scores one dashboard category.
type CategoryHealth struct {
	Status string  `json:"status"`
	Score  float64 `json:"score"`
}

// Dashboard is the persisted project health document.
type Dashboard struct {
	GeneratedAt string                    `json:"generatedAt"`
	Categories  map[string]CategoryHealth `json:"categories"`
	Overall     CategoryHealth            `json:"overall"`
}

// dashboardCategories fixes the assessed categories and their order of
// evaluation.
var dashboardCategories = []string{
	"performance", "accessibility", "architecture",
	"deployment", "monitoring", "testing", "workflow",
}

// categoryScorers derive a 0-100 score per category from the merged
// shared-context facts. ok false means no relevant facts are present.
var categoryScorers = map[string]func(facts map[string]any) (score float64, ok bool){
	"performance": func(f map[string]any) (float64, bool) {
		if s, ok := numFact(f, "performanceScore"); ok {
			return clampScore(s), true
		}
		if bs, ok := numFact(f, "bundleSize"); ok {
			switch {
			case bs > largeBundleBytes:
				return 40, true
			case bs > largeBundleBytes/2:
				return 70, true
			default:
				return 95, true
			}
		}
		return 0, false
	},
	"accessibility": scoreFact("accessibilityScore"),
	"architecture": func(f map[string]any) (float64, bool) {
		if s, ok := numFact(f, "architectureScore"); ok {
			return clampScore(s), true
		}
		if _, ok := f["architectureDecisions"]; ok {
			return 85, true
		}
		return 0, false
	},
	"deployment": func(f map[string]any) (float64, bool) {
		if s, ok := numFact(f, "deploymentScore"); ok {
			return clampScore(s), true
		}
		if _, ok := f["containerConfig"]; ok {
			return 90, true
		}
		return 0, false
	},
	"monitoring": scoreFact("monitoringScore"),
	"testing": func(f map[string]any) (float64, bool) {
		if s, ok := numFact(f, "testCoverage"); ok {
			return clampScore(s), true
		}
		return 0, false
	},
	"workflow": scoreFact("workflowScore"),
}

func scoreFact(name string) func(map[string]any) (float64, bool) {
	return func(f map[string]any) (float64, bool) {
		s, ok := numFact(f, name)
		if !ok {
			return 0, false
		}
		return clampScore(s), true
	}
}

func numFact(f map[string]any, name string) (float64, bool) {
	switch v := f[name].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// statusFor maps a score to a health status.
func statusFor(score float64) string {
	switch {
	case score > 80:
		return StatusGood
	case score > 60:
		return StatusWarning
	default:
		return StatusCritical
	}
}

// HealthDashboard reads the shared context once, scores each fixed
// category from whatever facts are present, averages only the known
// categories into the overall status, and persists the dashboard.
// Failures degrade to an all-unknown dashboard.
func (b *Broker) HealthDashboard() *Dashboard {
	dash := &Dashboard{
		GeneratedAt: timeNow().UTC().Format(timeFormat),
		Categories:  map[string]CategoryHealth{},
		Overall:     CategoryHealth{Status: StatusUnknown},
	}

	sc, err := b.docs.LoadSharedContext()
	if err != nil {
		log.Printf("WARNING: shared context unavailable, dashboard degraded: %v", err)
		for _, cat := range dashboardCategories {
			dash.Categories[cat] = CategoryHealth{Status: StatusUnknown}
		}
		return dash
	}
	facts := sc.mergedFacts()

	var sum float64
	var known int
	for _, cat := range dashboardCategories {
		score, ok := categoryScorers[cat](facts)
		if !ok {
			dash.Categories[cat] = CategoryHealth{Status: StatusUnknown, Score: 0}
			continue
		}
		dash.Categories[cat] = CategoryHealth{Status: statusFor(score), Score: score}
		sum += score
		known++
	}
	if known > 0 {
		avg := sum / float64(known)
		dash.Overall = CategoryHealth{Status: statusFor(avg), Score: avg}
	}

	if err := b.docs.SaveDashboard(dash); err != nil {
		log.Printf("WARNING: could not persist dashboard: %v", err)
	}
	return dash
}

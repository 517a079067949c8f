package prioritize

import (
	"testing"

	"github.com/siftlabs/sift/internal/config"
	"github.com/siftlabs/sift/internal/types"
)

func rec(title string, kind types.RecommendationKind, effort types.EffortLevel, patternIDs ...int) types.ConsolidatedRecommendation {
	return types.ConsolidatedRecommendation{
		Title:      title,
		Kind:       kind,
		Effort:     effort,
		PatternIDs: patternIDs,
		DraftIDs:   []string{title},
		Impact:     len(patternIDs),
	}
}

func testPrioritizer() *Prioritizer {
	cfg := config.Default()
	return New(&cfg)
}

func TestPlanRankingOrder(t *testing.T) {
	recs := []types.ConsolidatedRecommendation{
		rec("low impact", types.KindCode, types.EffortLow, 1),
		rec("high impact high effort", types.KindCode, types.EffortHigh, 2, 3, 4),
		rec("high impact low effort", types.KindCode, types.EffortLow, 5, 6, 7),
		rec("design before nothing", types.KindDesign, types.EffortLow, 8, 9, 10),
	}

	plan := testPrioritizer().Plan(recs)

	got := make([]string, len(plan.Ranked))
	for i, r := range plan.Ranked {
		got[i] = r.Title
	}
	want := []string{
		"high impact low effort",  // impact 3, low effort, code
		"design before nothing",   // impact 3, low effort, design
		"high impact high effort", // impact 3, high effort
		"low impact",              // impact 1
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank %d = %q, want %q (full order %v)", i, got[i], want[i], got)
		}
	}
}

func TestPlanCoverageCurve(t *testing.T) {
	recs := []types.ConsolidatedRecommendation{
		rec("a", types.KindCode, types.EffortLow, 1, 2, 3),
		rec("b", types.KindCode, types.EffortLow, 3, 4),
		rec("c", types.KindPrompt, types.EffortLow, 5),
	}

	plan := testPrioritizer().Plan(recs)
	curve := plan.Coverage
	if len(curve) != 3 {
		t.Fatalf("curve has %d points, want 3", len(curve))
	}

	// Non-decreasing in K.
	for i := 1; i < len(curve); i++ {
		if curve[i].Percent < curve[i-1].Percent {
			t.Errorf("coverage decreased at K=%d: %v -> %v", curve[i].K, curve[i-1].Percent, curve[i].Percent)
		}
	}
	// Reaches exactly 100% at K = len(ranked).
	if curve[len(curve)-1].Percent != 100 {
		t.Errorf("final coverage = %v, want 100", curve[len(curve)-1].Percent)
	}
	// Top recommendation (a, 3 of 5 patterns) covers 60%.
	if curve[0].Percent != 60 {
		t.Errorf("K=1 coverage = %v, want 60", curve[0].Percent)
	}
}

func TestPlanQuickWins(t *testing.T) {
	recs := []types.ConsolidatedRecommendation{
		rec("qualifies", types.KindCode, types.EffortLow, 1, 2),
		rec("too much effort", types.KindCode, types.EffortHigh, 3, 4),
		rec("too little impact", types.KindCode, types.EffortLow, 5),
	}

	plan := testPrioritizer().Plan(recs)
	if len(plan.QuickWins) != 1 || plan.QuickWins[0].Title != "qualifies" {
		t.Fatalf("quick wins = %+v, want only the low-effort multi-pattern item", plan.QuickWins)
	}
}

func TestPlanPhases(t *testing.T) {
	recs := []types.ConsolidatedRecommendation{
		rec("prompt fix", types.KindPrompt, types.EffortLow, 1, 2),
		rec("design fix", types.KindDesign, types.EffortLow, 3),
	}

	plan := testPrioritizer().Plan(recs)
	if len(plan.Phases) != 2 {
		t.Fatalf("got %d phases, want 2 (empty code phase dropped)", len(plan.Phases))
	}
	// Survivors renumber from 1 and keep kind order.
	if plan.Phases[0].Number != 1 || plan.Phases[0].Name != "Agent Instructions" {
		t.Errorf("first phase = %+v", plan.Phases[0])
	}
	if plan.Phases[1].Number != 2 || plan.Phases[1].Name != "Edge Cases & Design" {
		t.Errorf("second phase = %+v", plan.Phases[1])
	}
}

func TestPlanEmptyInput(t *testing.T) {
	plan := testPrioritizer().Plan(nil)
	if len(plan.Ranked) != 0 || len(plan.Coverage) != 0 || len(plan.QuickWins) != 0 || len(plan.Phases) != 0 {
		t.Errorf("empty input should yield an empty plan, got %+v", plan)
	}
}

// Package prioritize orders consolidated recommendations by impact and
// effort, derives the cumulative coverage curve, classifies quick wins, and
// partitions the ranked list into an implementation-phase plan.
package prioritize

import (
	"sort"

	"github.com/siftlabs/sift/internal/config"
	"github.com/siftlabs/sift/internal/types"
)

// phaseNames maps recommendation kinds to their phase, in implementation
// order: infrastructure and code fixes land first, prompt and instruction
// changes second, design and edge-case work last.
var phaseNames = []struct {
	kind types.RecommendationKind
	name string
}{
	{types.KindCode, "Infrastructure & Data Quality"},
	{types.KindPrompt, "Agent Instructions"},
	{types.KindDesign, "Edge Cases & Design"},
}

// Prioritizer builds the priority plan.
type Prioritizer struct {
	cfg *config.Config
}

// New creates a prioritizer bound to a validated configuration.
func New(cfg *config.Config) *Prioritizer {
	return &Prioritizer{cfg: cfg}
}

// Plan ranks the recommendations and derives coverage, quick wins, and
// phases. The input slice is not mutated.
func (p *Prioritizer) Plan(recs []types.ConsolidatedRecommendation) *types.PriorityPlan {
	ranked := append([]types.ConsolidatedRecommendation{}, recs...)
	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].Impact != ranked[b].Impact {
			return ranked[a].Impact > ranked[b].Impact
		}
		if ranked[a].Effort.Rank() != ranked[b].Effort.Rank() {
			return ranked[a].Effort.Rank() < ranked[b].Effort.Rank()
		}
		if ranked[a].Kind.Rank() != ranked[b].Kind.Rank() {
			return ranked[a].Kind.Rank() < ranked[b].Kind.Rank()
		}
		// Final tie-break keeps the order independent of input order.
		return ranked[a].Title < ranked[b].Title
	})

	plan := &types.PriorityPlan{
		Ranked:    ranked,
		Coverage:  coverageCurve(ranked),
		QuickWins: p.quickWins(ranked),
		Phases:    phases(ranked),
	}
	return plan
}

// coverageCurve computes, for each K, the percentage of addressable failing
// patterns covered by the union of the top K recommendations' pattern sets.
// The curve is non-decreasing in K and reaches 100% at K = len(ranked),
// because the denominator is exactly the union over all recommendations
// (which, by the consolidation invariant, equals the set of patterns that
// received at least one draft).
func coverageCurve(ranked []types.ConsolidatedRecommendation) []types.CoveragePoint {
	total := make(map[int]struct{})
	for _, r := range ranked {
		for _, id := range r.PatternIDs {
			total[id] = struct{}{}
		}
	}
	if len(total) == 0 {
		return nil
	}

	curve := make([]types.CoveragePoint, 0, len(ranked))
	covered := make(map[int]struct{})
	for k, r := range ranked {
		for _, id := range r.PatternIDs {
			covered[id] = struct{}{}
		}
		curve = append(curve, types.CoveragePoint{
			K:       k + 1,
			Percent: float64(len(covered)) / float64(len(total)) * 100,
		})
	}
	return curve
}

// quickWins selects recommendations with effort at or below the configured
// ceiling and impact at or above the configured floor, preserving rank
// order.
func (p *Prioritizer) quickWins(ranked []types.ConsolidatedRecommendation) []types.ConsolidatedRecommendation {
	var wins []types.ConsolidatedRecommendation
	for _, r := range ranked {
		if r.Effort.Rank() <= p.cfg.QuickWinMaxEffort.Rank() && r.Impact >= p.cfg.QuickWinMinImpact {
			wins = append(wins, r)
		}
	}
	return wins
}

// phases partitions the ranked list by kind, preserving within-phase rank
// order. Empty phases are dropped and the survivors numbered sequentially.
func phases(ranked []types.ConsolidatedRecommendation) []types.Phase {
	var out []types.Phase
	for _, ph := range phaseNames {
		var members []types.ConsolidatedRecommendation
		for _, r := range ranked {
			if r.Kind == ph.kind {
				members = append(members, r)
			}
		}
		if len(members) == 0 {
			continue
		}
		out = append(out, types.Phase{
			Number:          len(out) + 1,
			Name:            ph.name,
			Recommendations: members,
		})
	}
	return out
}

// Package consolidate collapses per-pattern recommendation drafts into a
// small set of merged, de-duplicated recommendations. Consolidation is a
// selection and grouping operation, never a rewriting one: merged titles
// and descriptions are chosen from an existing draft, and set-union over
// identifiers (not any deep merge) keeps the coverage invariant
// mechanically checkable: no pattern's recommendation is ever silently
// dropped from the impact accounting.
package consolidate

import (
	"fmt"
	"sort"

	"github.com/siftlabs/sift/internal/config"
	"github.com/siftlabs/sift/internal/similarity"
	"github.com/siftlabs/sift/internal/types"
)

// Consolidator groups drafts by text similarity.
type Consolidator struct {
	cfg *config.Config
}

// New creates a consolidator bound to a validated configuration.
func New(cfg *config.Config) *Consolidator {
	return &Consolidator{cfg: cfg}
}

// Consolidate merges the run's drafts. patterns supplies failure counts for
// the optional impact weighting; it must contain every pattern referenced
// by a draft.
func (c *Consolidator) Consolidate(drafts []types.RecommendationDraft, patterns []types.Pattern) ([]types.ConsolidatedRecommendation, error) {
	for i := range drafts {
		if err := drafts[i].Validate(); err != nil {
			return nil, fmt.Errorf("cannot consolidate: %w", err)
		}
	}

	failureCounts := make(map[int]int, len(patterns))
	for _, p := range patterns {
		failureCounts[p.ID] = p.FailureCount
	}
	for _, d := range drafts {
		if _, ok := failureCounts[d.PatternID]; !ok {
			return nil, fmt.Errorf("draft %s references unknown pattern %d", d.ID, d.PatternID)
		}
	}

	// Draft id order is the deterministic processing order.
	ordered := append([]types.RecommendationDraft{}, drafts...)
	sort.Slice(ordered, func(a, b int) bool { return ordered[a].ID < ordered[b].ID })

	groups := c.group(ordered)

	out := make([]types.ConsolidatedRecommendation, 0, len(groups))
	for _, g := range groups {
		rec, err := c.merge(g, failureCounts)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	if err := VerifyCoverage(drafts, out); err != nil {
		return nil, err
	}
	return out, nil
}

// group seeds a new group with each yet-unassigned draft (in id order) and
// pulls in every later draft of the same kind whose text similarity to the
// seed meets the threshold (inclusive).
func (c *Consolidator) group(ordered []types.RecommendationDraft) [][]types.RecommendationDraft {
	var groups [][]types.RecommendationDraft
	assigned := make([]bool, len(ordered))

	for i := range ordered {
		if assigned[i] {
			continue
		}
		group := []types.RecommendationDraft{ordered[i]}
		assigned[i] = true
		for j := i + 1; j < len(ordered); j++ {
			if assigned[j] {
				continue
			}
			if ordered[i].Kind != ordered[j].Kind {
				continue
			}
			if c.draftSimilarity(ordered[i], ordered[j]) >= c.cfg.ConsolidationThreshold {
				group = append(group, ordered[j])
				assigned[j] = true
			}
		}
		groups = append(groups, group)
	}
	return groups
}

// draftSimilarity weighs title similarity over description similarity:
// titles are short and specific, descriptions drift.
func (c *Consolidator) draftSimilarity(a, b types.RecommendationDraft) float64 {
	return 0.7*similarity.Text(a.Title, b.Title) + 0.3*similarity.Text(a.Description, b.Description)
}

// merge collapses one group into a ConsolidatedRecommendation.
func (c *Consolidator) merge(group []types.RecommendationDraft, failureCounts map[int]int) (types.ConsolidatedRecommendation, error) {
	rep := representative(group, c)

	patternSet := make(map[int]struct{})
	effort := group[0].Effort
	var draftIDs []string
	fileRefs := make(map[string]struct{})

	for _, d := range group {
		patternSet[d.PatternID] = struct{}{}
		effort = types.MaxEffort(effort, d.Effort)
		draftIDs = append(draftIDs, d.ID)
		if d.FileRef != "" {
			fileRefs[d.FileRef] = struct{}{}
		}
	}

	patternIDs := make([]int, 0, len(patternSet))
	for id := range patternSet {
		patternIDs = append(patternIDs, id)
	}
	sort.Ints(patternIDs)
	sort.Strings(draftIDs)

	refs := make([]string, 0, len(fileRefs))
	for r := range fileRefs {
		refs = append(refs, r)
	}
	sort.Strings(refs)

	impact := len(patternIDs)
	if c.cfg.WeightImpactByFailures {
		impact = 0
		for _, id := range patternIDs {
			impact += failureCounts[id]
		}
	}

	rec := types.ConsolidatedRecommendation{
		Title:       rep.Title,
		Description: rep.Description,
		Kind:        rep.Kind,
		Effort:      effort,
		PatternIDs:  patternIDs,
		DraftIDs:    draftIDs,
		Impact:      impact,
		FileRefs:    refs,
	}
	if err := rec.Validate(); err != nil {
		return types.ConsolidatedRecommendation{}, fmt.Errorf("merged recommendation invalid: %w", err)
	}
	return rec, nil
}

// representative selects the draft whose text the merged item carries: the
// one with the most distinct source patterns among group drafts similar to
// it, ties broken by earliest draft id. Group order is already id order, so
// a later draft must be strictly better to win.
func representative(group []types.RecommendationDraft, c *Consolidator) types.RecommendationDraft {
	if len(group) == 1 {
		return group[0]
	}
	best := 0
	bestPatterns := -1
	for i := range group {
		pats := make(map[int]struct{})
		for j := range group {
			if i == j || c.draftSimilarity(group[i], group[j]) >= c.cfg.ConsolidationThreshold {
				pats[group[j].PatternID] = struct{}{}
			}
		}
		if len(pats) > bestPatterns {
			best, bestPatterns = i, len(pats)
		}
	}
	return group[best]
}

// VerifyCoverage checks the consolidation invariant: the union of source
// pattern ids across all consolidated recommendations equals the set of
// pattern ids that received at least one draft.
func VerifyCoverage(drafts []types.RecommendationDraft, recs []types.ConsolidatedRecommendation) error {
	want := make(map[int]struct{})
	for _, d := range drafts {
		want[d.PatternID] = struct{}{}
	}
	got := make(map[int]struct{})
	for _, r := range recs {
		for _, id := range r.PatternIDs {
			got[id] = struct{}{}
		}
	}
	for id := range want {
		if _, ok := got[id]; !ok {
			return fmt.Errorf("pattern %d received drafts but no consolidated recommendation covers it", id)
		}
	}
	for id := range got {
		if _, ok := want[id]; !ok {
			return fmt.Errorf("consolidated recommendations cover pattern %d which received no drafts", id)
		}
	}
	return nil
}

// Package registry freezes the cluster builder's output into the run's
// pattern set: stable identifiers, counts, percentages, and a per-pattern
// exemplar for the external naming and root-cause collaborators. The
// registry makes no external calls and has no side effects beyond the
// frozen set it returns.
package registry

import (
	"fmt"

	"github.com/siftlabs/sift/internal/cluster"
	"github.com/siftlabs/sift/internal/config"
	"github.com/siftlabs/sift/internal/features"
	"github.com/siftlabs/sift/internal/types"
)

// Freeze assigns ids to the final clusters and builds the frozen Pattern
// set. The unclustered bucket always receives id 0, even when empty.
// totalFailures is the count of all failing records in the run, used for
// percentage-of-total.
func Freeze(res *cluster.Result, vectors map[string]*features.FeatureVector, totalFailures int, cfg *config.Config) ([]types.Pattern, error) {
	patterns := make([]types.Pattern, 0, len(res.Clusters)+1)

	unclustered := types.Pattern{
		ID:           types.UnclusteredPatternID,
		Slug:         types.UnclusteredPatternSlug,
		Members:      append([]string{}, res.Unclustered...),
		FailureCount: len(res.Unclustered),
		Percentage:   percentage(len(res.Unclustered), totalFailures),
	}
	if len(unclustered.Members) > 0 {
		unclustered.ExemplarID = unclustered.Members[0]
	}
	patterns = append(patterns, unclustered)

	for i, c := range res.Clusters {
		id := i + 1
		p := types.Pattern{
			ID:           id,
			Slug:         fmt.Sprintf("pattern-%d", id),
			Members:      append([]string{}, c.Members...),
			ExemplarID:   exemplar(c, vectors, cfg),
			FailureCount: len(c.Members),
			Percentage:   percentage(len(c.Members), totalFailures),
		}
		patterns = append(patterns, p)
	}

	if err := checkCoverage(patterns, totalFailures); err != nil {
		return nil, err
	}
	for i := range patterns {
		if err := patterns[i].Validate(); err != nil {
			return nil, fmt.Errorf("frozen pattern set is invalid: %w", err)
		}
	}
	return patterns, nil
}

// exemplar picks the member whose feature vector is closest to the cluster
// centroid. Members are sorted and later members must be strictly closer to
// win, so the choice is deterministic.
func exemplar(c cluster.Candidate, vectors map[string]*features.FeatureVector, cfg *config.Config) string {
	best := ""
	bestSim := -1.0
	for _, id := range c.Members {
		fv, ok := vectors[id]
		if !ok {
			continue
		}
		sim := c.Centroid.MemberSimilarity(fv, cfg)
		if sim > bestSim {
			best, bestSim = id, sim
		}
	}
	if best == "" && len(c.Members) > 0 {
		best = c.Members[0]
	}
	return best
}

// checkCoverage enforces the core invariant mechanically: every failing
// record belongs to exactly one pattern.
func checkCoverage(patterns []types.Pattern, totalFailures int) error {
	seen := make(map[string]int)
	for _, p := range patterns {
		for _, m := range p.Members {
			seen[m]++
		}
	}
	for id, n := range seen {
		if n > 1 {
			return fmt.Errorf("record %s assigned to %d patterns", id, n)
		}
	}
	if len(seen) != totalFailures {
		return fmt.Errorf("pattern membership covers %d records, expected %d failing records",
			len(seen), totalFailures)
	}
	return nil
}

func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

// Package cluster implements the three-stage hierarchical grouping of
// failing test records: input similarity, then output-pattern similarity,
// then delta-signature similarity. Each stage is a density-based grouping
// over a similarity graph; each stage only splits groups proposed by the
// previous one, so cluster precision only increases with later stages.
//
// All stage decisions depend only on the complete set of precomputed
// feature vectors, never on arrival order, which keeps the result
// deterministic no matter how extraction was scheduled.
package cluster

import (
	"sort"

	"github.com/siftlabs/sift/internal/config"
	"github.com/siftlabs/sift/internal/features"
	"github.com/siftlabs/sift/internal/similarity"
)

// Candidate is one cluster produced by the builder, before the registry
// assigns public pattern ids.
type Candidate struct {
	// Members is the sorted set of record ids.
	Members []string

	// Centroid is the mean feature vector of the members.
	Centroid *similarity.Centroid
}

// Result is the flat pattern set collapsed from the stage tree.
type Result struct {
	// Clusters holds every candidate that reached MinClusterSize, in
	// deterministic order: larger first, ties by smallest member id.
	Clusters []Candidate

	// Unclustered collects the residual records that never joined any
	// cluster, sorted. Together with the clusters it covers every
	// failing record exactly once.
	Unclustered []string

	// EmptyFeature lists records routed straight to the unclustered
	// bucket because their features carried no signal. Reported, not
	// fatal. Subset of Unclustered.
	EmptyFeature []string
}

// Builder runs the staged grouping.
type Builder struct {
	cfg    *config.Config
	engine *similarity.Engine
}

// New creates a builder over a validated configuration.
func New(cfg *config.Config, engine *similarity.Engine) *Builder {
	return &Builder{cfg: cfg, engine: engine}
}

// stage pairs a similarity metric with its inclusive threshold.
type stage struct {
	sim       func(a, b *features.FeatureVector) float64
	threshold float64
}

// Build groups the given failing records. vectors must hold one feature
// vector per failing record id.
func (b *Builder) Build(vectors map[string]*features.FeatureVector) *Result {
	res := &Result{}

	// Records with no usable features skip similarity entirely.
	var pool []string
	for id, fv := range vectors {
		if fv.Empty {
			res.EmptyFeature = append(res.EmptyFeature, id)
		} else {
			pool = append(pool, id)
		}
	}
	sort.Strings(res.EmptyFeature)
	sort.Strings(pool)

	stages := []stage{
		{b.engine.Input, b.cfg.InputThreshold},
		{b.engine.Output, b.cfg.OutputThreshold},
		{b.engine.Delta, b.cfg.DeltaThreshold},
	}

	// Stages 1 and 2 propose groups; sub-threshold components pool
	// together into one extra group for the next stage rather than being
	// discarded.
	groups := [][]string{pool}
	for _, st := range stages[:2] {
		var next [][]string
		var pooled []string
		for _, g := range groups {
			for _, comp := range b.components(g, vectors, st) {
				if len(comp) >= b.cfg.MinClusterSize {
					next = append(next, comp)
				} else {
					pooled = append(pooled, comp...)
				}
			}
		}
		if len(pooled) > 0 {
			sort.Strings(pooled)
			next = append(next, pooled)
		}
		groups = next
	}

	// Stage 3 produces the candidate clusters, small ones included: the
	// merge pass decides their fate.
	var candidates []Candidate
	for _, g := range groups {
		for _, comp := range b.components(g, vectors, stages[2]) {
			candidates = append(candidates, Candidate{
				Members:  comp,
				Centroid: centroidOf(comp, vectors),
			})
		}
	}

	candidates = b.mergeSmall(candidates, vectors)

	for _, c := range candidates {
		if len(c.Members) >= b.cfg.MinClusterSize {
			res.Clusters = append(res.Clusters, c)
		} else {
			res.Unclustered = append(res.Unclustered, c.Members...)
		}
	}
	res.Unclustered = append(res.Unclustered, res.EmptyFeature...)
	sort.Strings(res.Unclustered)

	sortCandidates(res.Clusters)
	return res
}

// components computes connected components of the similarity graph over the
// given ids: an edge connects two records whose stage similarity meets the
// threshold (inclusive boundary). Components come back with sorted members,
// ordered by their smallest member id.
func (b *Builder) components(ids []string, vectors map[string]*features.FeatureVector, st stage) [][]string {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) == 1 {
		return [][]string{{ids[0]}}
	}

	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	parent := make([]int, len(ids))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if st.sim(vectors[ids[i]], vectors[ids[j]]) >= st.threshold {
				union(i, j)
			}
		}
	}

	byRoot := make(map[int][]string)
	for i, id := range ids {
		r := find(i)
		byRoot[r] = append(byRoot[r], id)
	}

	comps := make([][]string, 0, len(byRoot))
	for _, members := range byRoot {
		sort.Strings(members)
		comps = append(comps, members)
	}
	sort.Slice(comps, func(a, b int) bool {
		return comps[a][0] < comps[b][0]
	})
	return comps
}

// mergeSmall is the scalability pass: sub-threshold clusters are compared
// pairwise on centroid input similarity only, and unioned when they meet
// the relaxed merge threshold. Comparing centroids keeps this O(clusters²)
// instead of a second full O(records²) sweep. Ties join the larger cluster,
// then the lower-numbered one, keeping merges deterministic and favoring
// statistically meaningful clusters.
func (b *Builder) mergeSmall(candidates []Candidate, vectors map[string]*features.FeatureVector) []Candidate {
	// Numeric ids follow deterministic candidate order.
	sortCandidates(candidates)

	var kept []Candidate
	var small []Candidate
	for _, c := range candidates {
		if len(c.Members) >= b.cfg.MinClusterSize {
			kept = append(kept, c)
		} else {
			small = append(small, c)
		}
	}

	merged := make([]bool, len(small))
	for {
		didMerge := false
		for i := range small {
			if merged[i] {
				continue
			}
			best := -1
			bestSim := -1.0
			for j := range small {
				if j == i || merged[j] {
					continue
				}
				sim := small[i].Centroid.InputSimilarity(small[j].Centroid)
				if sim < b.cfg.MergeThreshold {
					continue
				}
				if sim > bestSim {
					best, bestSim = j, sim
					continue
				}
				if sim == bestSim && best >= 0 {
					// Equidistant: prefer the larger partner, then
					// the lower cluster id (== lower index here).
					if len(small[j].Members) > len(small[best].Members) {
						best = j
					}
				}
			}
			if best < 0 {
				continue
			}
			members := append(append([]string{}, small[i].Members...), small[best].Members...)
			sort.Strings(members)
			small[i] = Candidate{Members: members, Centroid: centroidOf(members, vectors)}
			merged[best] = true
			didMerge = true
		}
		if !didMerge {
			break
		}
	}

	for i, c := range small {
		if !merged[i] {
			kept = append(kept, c)
		}
	}
	sortCandidates(kept)
	return kept
}

func centroidOf(members []string, vectors map[string]*features.FeatureVector) *similarity.Centroid {
	vs := make([]*features.FeatureVector, 0, len(members))
	for _, id := range members {
		vs = append(vs, vectors[id])
	}
	return similarity.NewCentroid(vs)
}

// sortCandidates orders clusters deterministically: larger first, ties by
// smallest member id.
func sortCandidates(cs []Candidate) {
	sort.Slice(cs, func(a, b int) bool {
		if len(cs[a].Members) != len(cs[b].Members) {
			return len(cs[a].Members) > len(cs[b].Members)
		}
		return cs[a].Members[0] < cs[b].Members[0]
	})
}

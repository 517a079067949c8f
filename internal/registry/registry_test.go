package registry

import (
	"testing"

	"github.com/siftlabs/sift/internal/cluster"
	"github.com/siftlabs/sift/internal/config"
	"github.com/siftlabs/sift/internal/features"
	"github.com/siftlabs/sift/internal/similarity"
	"github.com/siftlabs/sift/internal/types"
)

func testVectors(ids ...string) map[string]*features.FeatureVector {
	out := make(map[string]*features.FeatureVector, len(ids))
	for _, id := range ids {
		out[id] = &features.FeatureVector{
			RecordID:     id,
			InputTokens:  []string{"tok", id},
			OutputTokens: []string{"out"},
			DeltaTokens:  []string{"changed:x"},
		}
	}
	return out
}

func candidate(vectors map[string]*features.FeatureVector, ids ...string) cluster.Candidate {
	vs := make([]*features.FeatureVector, 0, len(ids))
	for _, id := range ids {
		vs = append(vs, vectors[id])
	}
	return cluster.Candidate{Members: ids, Centroid: similarity.NewCentroid(vs)}
}

func TestFreezeAssignsIDsAndCoverage(t *testing.T) {
	cfg := config.Default()
	vectors := testVectors("a", "b", "c", "d", "e")
	res := &cluster.Result{
		Clusters: []cluster.Candidate{
			candidate(vectors, "a", "b", "c"),
			candidate(vectors, "d"),
		},
		Unclustered: []string{"e"},
	}

	patterns, err := Freeze(res, vectors, 5, &cfg)
	if err != nil {
		t.Fatalf("Freeze failed: %v", err)
	}

	if len(patterns) != 3 {
		t.Fatalf("got %d patterns, want 3 (bucket + 2 clusters)", len(patterns))
	}
	if patterns[0].ID != types.UnclusteredPatternID || patterns[0].Slug != types.UnclusteredPatternSlug {
		t.Errorf("first pattern should be the unclustered bucket, got %+v", patterns[0])
	}
	if patterns[1].ID != 1 || patterns[1].Slug != "pattern-1" {
		t.Errorf("cluster ids should start at 1, got %+v", patterns[1])
	}
	if patterns[1].Percentage != 60 {
		t.Errorf("pattern 1 percentage = %v, want 60", patterns[1].Percentage)
	}

	// Every failing record in exactly one pattern.
	seen := make(map[string]int)
	for _, p := range patterns {
		for _, m := range p.Members {
			seen[m]++
		}
	}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		if seen[id] != 1 {
			t.Errorf("record %s appears in %d patterns, want exactly 1", id, seen[id])
		}
	}
}

func TestFreezeExemplarIsMember(t *testing.T) {
	cfg := config.Default()
	vectors := testVectors("a", "b", "c")
	res := &cluster.Result{
		Clusters: []cluster.Candidate{candidate(vectors, "a", "b", "c")},
	}

	patterns, err := Freeze(res, vectors, 3, &cfg)
	if err != nil {
		t.Fatalf("Freeze failed: %v", err)
	}
	p := patterns[1]
	if p.ExemplarID == "" || !p.HasMember(p.ExemplarID) {
		t.Errorf("exemplar %q must be a cluster member", p.ExemplarID)
	}
}

func TestFreezeEmptyRun(t *testing.T) {
	cfg := config.Default()
	patterns, err := Freeze(&cluster.Result{}, nil, 0, &cfg)
	if err != nil {
		t.Fatalf("Freeze failed: %v", err)
	}
	// The bucket exists even when nothing failed.
	if len(patterns) != 1 || !patterns[0].IsUnclustered() {
		t.Fatalf("empty run should yield only the unclustered bucket, got %+v", patterns)
	}
	if patterns[0].FailureCount != 0 || patterns[0].Percentage != 0 {
		t.Errorf("empty bucket should have zero counts, got %+v", patterns[0])
	}
}

func TestFreezeDetectsBadCoverage(t *testing.T) {
	cfg := config.Default()
	vectors := testVectors("a", "b")
	res := &cluster.Result{
		Clusters:    []cluster.Candidate{candidate(vectors, "a", "b")},
		Unclustered: []string{"a"}, // double assignment
	}
	if _, err := Freeze(res, vectors, 2, &cfg); err == nil {
		t.Error("double-assigned record should fail the coverage check")
	}

	res = &cluster.Result{
		Clusters: []cluster.Candidate{candidate(vectors, "a")},
	}
	if _, err := Freeze(res, vectors, 2, &cfg); err == nil {
		t.Error("uncovered record should fail the coverage check")
	}
}

package similarity

import (
	"github.com/siftlabs/sift/internal/config"
	"github.com/siftlabs/sift/internal/features"
)

// Centroid is the mean term-frequency vector of a cluster, one channel per
// sub-score. Built from a member set, so it is independent of insertion
// order. The merge pass compares centroids instead of records, bounding the
// pass at O(clusters²).
type Centroid struct {
	Input  map[string]float64
	Output map[string]float64
	Delta  map[string]float64
	Size   int
}

// NewCentroid averages the member vectors.
func NewCentroid(members []*features.FeatureVector) *Centroid {
	c := &Centroid{
		Input:  make(map[string]float64),
		Output: make(map[string]float64),
		Delta:  make(map[string]float64),
		Size:   len(members),
	}
	if len(members) == 0 {
		return c
	}
	for _, m := range members {
		for t, v := range counts(m.InputTokens) {
			c.Input[t] += v
		}
		for t, v := range counts(m.OutputTokens) {
			c.Output[t] += v
		}
		for t, v := range counts(m.DeltaTokens) {
			c.Delta[t] += v
		}
	}
	n := float64(len(members))
	for t := range c.Input {
		c.Input[t] /= n
	}
	for t := range c.Output {
		c.Output[t] /= n
	}
	for t := range c.Delta {
		c.Delta[t] /= n
	}
	return c
}

// InputSimilarity compares two centroids on the input channel only, the
// cheapest signal, which is all the merge pass uses.
func (c *Centroid) InputSimilarity(other *Centroid) float64 {
	return cosine(c.Input, other.Input)
}

// MemberSimilarity scores how close a member vector sits to the centroid
// under the configured weights. The registry uses this to pick each
// pattern's exemplar.
func (c *Centroid) MemberSimilarity(v *features.FeatureVector, cfg *config.Config) float64 {
	return cfg.InputWeight*cosine(c.Input, counts(v.InputTokens)) +
		cfg.OutputWeight*cosine(c.Output, counts(v.OutputTokens)) +
		cfg.DeltaWeight*cosine(c.Delta, counts(v.DeltaTokens))
}

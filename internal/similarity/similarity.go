// Package similarity computes deterministic pairwise similarity over
// extracted features. Every score is in [0,1], symmetric, and reflexive;
// the package is stateless given the feature vectors.
package similarity

import (
	"math"

	"github.com/siftlabs/sift/internal/config"
	"github.com/siftlabs/sift/internal/features"
)

// counts builds the term-frequency vector of a token slice.
func counts(tokens []string) map[string]float64 {
	m := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		m[t]++
	}
	return m
}

// cosine computes the cosine of two term-frequency vectors. Two empty
// vectors are identical (1); one empty vector shares nothing with a
// non-empty one (0).
func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, na, nb float64
	for t, av := range a {
		na += av * av
		if bv, ok := b[t]; ok {
			dot += av * bv
		}
	}
	for _, bv := range b {
		nb += bv * bv
	}
	if dot == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// TokenCosine is the text-similarity primitive: cosine over token frequency
// vectors.
func TokenCosine(a, b []string) float64 {
	return cosine(counts(a), counts(b))
}

// Jaccard computes set overlap of two token slices. Used for delta
// signatures, where presence of a shape token matters and repetition does
// not.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	as := make(map[string]struct{}, len(a))
	for _, t := range a {
		as[t] = struct{}{}
	}
	inter, union := 0, 0
	seen := make(map[string]struct{}, len(b))
	for _, t := range b {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		union++
		if _, ok := as[t]; ok {
			inter++
		}
	}
	for t := range as {
		if _, ok := seen[t]; !ok {
			union++
		}
	}
	return float64(inter) / float64(union)
}

// Text compares two raw strings with the token-cosine primitive. The
// consolidator reuses this for draft titles and descriptions.
func Text(a, b string) float64 {
	return TokenCosine(features.Tokenize(a), features.Tokenize(b))
}

// Engine combines the three sub-scores under the configured weights.
type Engine struct {
	cfg *config.Config
}

// NewEngine creates a similarity engine bound to a validated configuration.
func NewEngine(cfg *config.Config) *Engine {
	return &Engine{cfg: cfg}
}

// Input scores input similarity only (stage 1, also the merge pass metric).
func (e *Engine) Input(a, b *features.FeatureVector) float64 {
	return TokenCosine(a.InputTokens, b.InputTokens)
}

// Output scores actual-output/error-message similarity (stage 2).
func (e *Engine) Output(a, b *features.FeatureVector) float64 {
	return TokenCosine(a.OutputTokens, b.OutputTokens)
}

// Delta scores delta-signature similarity (stage 3). Jaccard, not cosine:
// the signature is a set of structural shape tokens.
func (e *Engine) Delta(a, b *features.FeatureVector) float64 {
	return Jaccard(a.DeltaTokens, b.DeltaTokens)
}

// Similarity is the full weighted combination. Reflexive (every sub-score
// of a vector with itself is 1 and the weights sum to 1), symmetric, and
// deterministic.
func (e *Engine) Similarity(a, b *features.FeatureVector) float64 {
	return e.cfg.InputWeight*e.Input(a, b) +
		e.cfg.OutputWeight*e.Output(a, b) +
		e.cfg.DeltaWeight*e.Delta(a, b)
}

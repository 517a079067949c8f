package types

import "testing"

func TestEffortOrdering(t *testing.T) {
	if MaxEffort(EffortLow, EffortHigh) != EffortHigh {
		t.Error("MaxEffort(low, high) should be high")
	}
	if MaxEffort(EffortMedium, EffortLow) != EffortMedium {
		t.Error("MaxEffort(medium, low) should be medium")
	}
	if MaxEffort(EffortLow, EffortLow) != EffortLow {
		t.Error("MaxEffort(low, low) should be low")
	}
	// Unknown levels rank as high, the conservative choice.
	if EffortLevel("weird").Rank() != EffortHigh.Rank() {
		t.Error("unknown effort should rank as high")
	}
}

func TestKindOrdering(t *testing.T) {
	if !(KindCode.Rank() < KindPrompt.Rank() && KindPrompt.Rank() < KindDesign.Rank()) {
		t.Error("kinds should rank code < prompt < design")
	}
	if RecommendationKind("other").Valid() {
		t.Error("unrecognized kind should not be valid")
	}
}

func TestConsolidatedRecommendationValidate(t *testing.T) {
	valid := ConsolidatedRecommendation{
		Title:      "Fix parser",
		Kind:       KindCode,
		Effort:     EffortLow,
		PatternIDs: []int{1, 3},
		DraftIDs:   []string{"p001-d01", "p003-d01"},
		Impact:     2,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid recommendation rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*ConsolidatedRecommendation)
	}{
		{"no patterns", func(r *ConsolidatedRecommendation) { r.PatternIDs = nil }},
		{"unsorted patterns", func(r *ConsolidatedRecommendation) { r.PatternIDs = []int{3, 1} }},
		{"duplicate patterns", func(r *ConsolidatedRecommendation) { r.PatternIDs = []int{1, 1} }},
		{"no drafts", func(r *ConsolidatedRecommendation) { r.DraftIDs = nil }},
		{"impact below pattern count", func(r *ConsolidatedRecommendation) { r.Impact = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			r.PatternIDs = append([]int{}, valid.PatternIDs...)
			r.DraftIDs = append([]string{}, valid.DraftIDs...)
			tt.mutate(&r)
			if err := r.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

package types

import (
	"fmt"
	"sort"
)

// RecommendationKind classifies what a fix touches. The order of the
// constants is the tie-break and phase order: infrastructure/code fixes
// come before prompt changes, which come before design changes.
type RecommendationKind string

const (
	KindCode   RecommendationKind = "code"
	KindPrompt RecommendationKind = "prompt"
	KindDesign RecommendationKind = "design"
)

// kindRank orders kinds for sorting and phase partitioning.
var kindRank = map[RecommendationKind]int{
	KindCode:   0,
	KindPrompt: 1,
	KindDesign: 2,
}

// Rank returns the sort position of the kind, with unknown kinds last.
func (k RecommendationKind) Rank() int {
	if r, ok := kindRank[k]; ok {
		return r
	}
	return len(kindRank)
}

// Valid reports whether the kind is one of the recognized values.
func (k RecommendationKind) Valid() bool {
	_, ok := kindRank[k]
	return ok
}

// EffortLevel is a coarse effort estimate attached to a draft.
type EffortLevel string

const (
	EffortLow    EffortLevel = "low"
	EffortMedium EffortLevel = "medium"
	EffortHigh   EffortLevel = "high"
)

var effortRank = map[EffortLevel]int{
	EffortLow:    0,
	EffortMedium: 1,
	EffortHigh:   2,
}

// Rank returns the ordering of the effort level; unknown levels sort as
// high effort, the conservative choice.
func (e EffortLevel) Rank() int {
	if r, ok := effortRank[e]; ok {
		return r
	}
	return effortRank[EffortHigh]
}

// MaxEffort returns the more conservative of two effort levels.
func MaxEffort(a, b EffortLevel) EffortLevel {
	if a.Rank() >= b.Rank() {
		return a
	}
	return b
}

// RecommendationDraft is one fix suggestion produced by the external
// root-cause analyst for a single pattern. The consolidator only reads and
// groups drafts; it never rewrites them.
type RecommendationDraft struct {
	// ID identifies the draft within a run (assigned by the analyst in
	// issue order, so earlier ids break consolidation ties).
	ID string `json:"id"`

	// PatternID is the pattern this draft addresses.
	PatternID int `json:"pattern_id"`

	Title       string             `json:"title"`
	Kind        RecommendationKind `json:"kind"`
	Effort      EffortLevel        `json:"effort"`
	Description string             `json:"description"`

	// FileRef is an optional file or file:line reference into the
	// analyzed codebase.
	FileRef string `json:"file_ref,omitempty"`
}

// Validate checks draft fields before consolidation.
func (d *RecommendationDraft) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("recommendation draft is missing an id")
	}
	if d.Title == "" {
		return fmt.Errorf("recommendation draft %s is missing a title", d.ID)
	}
	if !d.Kind.Valid() {
		return fmt.Errorf("recommendation draft %s has unrecognized kind %q", d.ID, d.Kind)
	}
	return nil
}

// ConsolidatedRecommendation is a group of drafts that propose the same fix
// across one or more patterns, collapsed into a single ranked item.
type ConsolidatedRecommendation struct {
	// Title and Description are selected from the merged draft with the
	// most source patterns (ties broken by earliest draft id), never
	// synthesized.
	Title       string `json:"title"`
	Description string `json:"description"`

	Kind RecommendationKind `json:"kind"`

	// Effort is the maximum effort among merged drafts.
	Effort EffortLevel `json:"effort"`

	// PatternIDs is the sorted set of distinct source pattern ids the
	// merged drafts address. Never empty.
	PatternIDs []int `json:"pattern_ids"`

	// DraftIDs lists the original drafts merged into this item, sorted.
	DraftIDs []string `json:"draft_ids"`

	// Impact is the number of distinct patterns addressed, optionally
	// weighted by those patterns' failure counts (see
	// Config.WeightImpactByFailures).
	Impact int `json:"impact"`

	// FileRefs collects the distinct file references of merged drafts.
	FileRefs []string `json:"file_refs,omitempty"`
}

// Validate checks the consolidated recommendation's structural invariants.
func (c *ConsolidatedRecommendation) Validate() error {
	if len(c.PatternIDs) == 0 {
		return fmt.Errorf("consolidated recommendation %q addresses no patterns", c.Title)
	}
	if !sort.IntsAreSorted(c.PatternIDs) {
		return fmt.Errorf("consolidated recommendation %q has unsorted pattern ids", c.Title)
	}
	for i := 1; i < len(c.PatternIDs); i++ {
		if c.PatternIDs[i] == c.PatternIDs[i-1] {
			return fmt.Errorf("consolidated recommendation %q repeats pattern %d", c.Title, c.PatternIDs[i])
		}
	}
	if len(c.DraftIDs) == 0 {
		return fmt.Errorf("consolidated recommendation %q merged no drafts", c.Title)
	}
	if c.Impact < len(c.PatternIDs) {
		return fmt.Errorf("consolidated recommendation %q impact %d below distinct pattern count %d",
			c.Title, c.Impact, len(c.PatternIDs))
	}
	return nil
}

// CoveragePoint is one point of the cumulative coverage curve: taking the
// top K ranked recommendations addresses Percent of all failing patterns.
type CoveragePoint struct {
	K       int     `json:"k"`
	Percent float64 `json:"percent"`
}

// Phase is one ordered slice of the implementation plan.
type Phase struct {
	Number          int                          `json:"number"`
	Name            string                       `json:"name"`
	Recommendations []ConsolidatedRecommendation `json:"recommendations"`
}

// PriorityPlan is the prioritizer's output: ranked recommendations plus the
// derived coverage curve, quick wins, and phase partition.
type PriorityPlan struct {
	Ranked    []ConsolidatedRecommendation `json:"ranked"`
	Coverage  []CoveragePoint              `json:"coverage"`
	QuickWins []ConsolidatedRecommendation `json:"quick_wins"`
	Phases    []Phase                      `json:"phases"`
}

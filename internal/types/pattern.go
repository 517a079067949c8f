package types

import (
	"fmt"
	"sort"
)

// UnclusteredPatternID is the fixed id of the bucket that collects failures
// matching no other cluster. It always exists in a run's pattern set, even
// when empty membership keeps it out of the final report.
const UnclusteredPatternID = 0

// UnclusteredPatternSlug is the well-known slug of the unclustered bucket.
const UnclusteredPatternSlug = "unclustered"

// Pattern is a cluster of failing test records believed to share one root
// cause. Patterns are created by the cluster builder and frozen once the
// registry assigns ids; all downstream stages treat them as read-only.
type Pattern struct {
	// ID is stable within a run. 0 is reserved for the unclustered bucket.
	ID int `json:"id"`

	// Slug is a short stable identifier derived from the id (or
	// "unclustered" for the reserved bucket) until enrichment names the
	// pattern.
	Slug string `json:"slug"`

	// Members holds the ids of the failing records in this pattern,
	// sorted, with set semantics (no duplicates).
	Members []string `json:"members"`

	// ExemplarID is the member whose feature vector sits closest to the
	// cluster centroid. External collaborators receive the exemplar when
	// naming the pattern or drafting recommendations.
	ExemplarID string `json:"exemplar_id"`

	// FailureCount is len(Members), denormalized for reporting.
	FailureCount int `json:"failure_count"`

	// Percentage is FailureCount as a share of all failing records in
	// the run, in [0,100].
	Percentage float64 `json:"percentage"`

	// Name and Description are attached by the external naming
	// collaborator after the registry freezes the pattern set. A pattern
	// whose enrichment failed carries deterministic placeholders.
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`

	// RootCause is the analyst's root-cause text, when available.
	RootCause string `json:"root_cause,omitempty"`
}

// IsUnclustered reports whether this is the reserved outlier bucket.
func (p *Pattern) IsUnclustered() bool {
	return p.ID == UnclusteredPatternID
}

// HasMember reports whether the given record id belongs to this pattern.
// Members is sorted, so this is a binary search.
func (p *Pattern) HasMember(recordID string) bool {
	i := sort.SearchStrings(p.Members, recordID)
	return i < len(p.Members) && p.Members[i] == recordID
}

// Validate checks the pattern invariants that must hold after the registry
// freezes the set.
func (p *Pattern) Validate() error {
	if p.ID < 0 {
		return fmt.Errorf("pattern id cannot be negative (got %d)", p.ID)
	}
	if p.IsUnclustered() {
		if p.Slug != UnclusteredPatternSlug {
			return fmt.Errorf("pattern 0 must use slug %q (got %q)", UnclusteredPatternSlug, p.Slug)
		}
	} else if len(p.Members) == 0 {
		return fmt.Errorf("pattern %d has no members", p.ID)
	}
	if p.FailureCount != len(p.Members) {
		return fmt.Errorf("pattern %d failure_count (%d) does not match member count (%d)",
			p.ID, p.FailureCount, len(p.Members))
	}
	if p.Percentage < 0 || p.Percentage > 100 {
		return fmt.Errorf("pattern %d percentage out of range: %.2f", p.ID, p.Percentage)
	}
	if !sort.StringsAreSorted(p.Members) {
		return fmt.Errorf("pattern %d members are not sorted", p.ID)
	}
	for i := 1; i < len(p.Members); i++ {
		if p.Members[i] == p.Members[i-1] {
			return fmt.Errorf("pattern %d has duplicate member %s", p.ID, p.Members[i])
		}
	}
	if len(p.Members) > 0 && p.ExemplarID != "" && !p.HasMember(p.ExemplarID) {
		return fmt.Errorf("pattern %d exemplar %s is not a member", p.ID, p.ExemplarID)
	}
	return nil
}

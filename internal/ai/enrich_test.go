package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/siftlabs/sift/internal/types"
)

// stubCollaborator returns canned responses, with per-pattern failure
// injection for the error paths.
type stubCollaborator struct {
	failNaming   map[int]bool
	failAnalysis map[int]bool
}

func (s *stubCollaborator) GenerateFailureReason(_ context.Context, record types.TestRecord) (string, error) {
	return "stub reason for " + record.ID, nil
}

func (s *stubCollaborator) NamePattern(_ context.Context, pattern types.Pattern, _ []types.TestRecord) (string, string, error) {
	if s.failNaming[pattern.ID] {
		return "", "", errors.New("naming boom")
	}
	return fmt.Sprintf("Named pattern %d", pattern.ID), fmt.Sprintf("Description %d", pattern.ID), nil
}

func (s *stubCollaborator) AnalyzePattern(_ context.Context, pattern types.Pattern, _ []types.TestRecord) (string, []types.RecommendationDraft, error) {
	if s.failAnalysis[pattern.ID] {
		return "", nil, errors.New("analysis boom")
	}
	return fmt.Sprintf("Root cause %d", pattern.ID), []types.RecommendationDraft{
		{
			ID:        DraftID(pattern.ID, 0),
			PatternID: pattern.ID,
			Title:     fmt.Sprintf("Fix pattern %d", pattern.ID),
			Kind:      types.KindCode,
			Effort:    types.EffortLow,
		},
	}, nil
}

func enrichFixture() ([]types.Pattern, map[string]types.TestRecord) {
	patterns := []types.Pattern{
		{ID: 0, Slug: "unclustered", Members: []string{"t9"}, FailureCount: 1, Percentage: 20},
		{ID: 1, Slug: "pattern-1", Members: []string{"t1", "t2"}, ExemplarID: "t1", FailureCount: 2, Percentage: 40},
		{ID: 2, Slug: "pattern-2", Members: []string{"t3", "t4"}, ExemplarID: "t3", FailureCount: 2, Percentage: 40},
	}
	records := make(map[string]types.TestRecord)
	for _, id := range []string{"t1", "t2", "t3", "t4", "t9"} {
		records[id] = types.TestRecord{
			ID:       id,
			Input:    types.TextValue("input " + id),
			Expected: types.TextValue("expected"),
			Actual:   types.TextValue("actual"),
		}
	}
	return patterns, records
}

func TestEnrich(t *testing.T) {
	patterns, records := enrichFixture()
	enricher := NewEnricher(&stubCollaborator{})

	enriched, drafts, errs := enricher.Enrich(context.Background(), patterns, records)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	if enriched[0].Name != "Unclustered failures" {
		t.Errorf("bucket name = %q", enriched[0].Name)
	}
	if enriched[1].Name != "Named pattern 1" || enriched[1].RootCause != "Root cause 1" {
		t.Errorf("pattern 1 not enriched: %+v", enriched[1])
	}
	if enriched[2].Description != "Description 2" {
		t.Errorf("pattern 2 description = %q", enriched[2].Description)
	}

	if len(drafts) != 2 {
		t.Fatalf("drafts = %d, want 2", len(drafts))
	}
	if drafts[0].ID != "p001-d01" || drafts[1].ID != "p002-d01" {
		t.Errorf("drafts not sorted by id: %v, %v", drafts[0].ID, drafts[1].ID)
	}

	// Input patterns must be untouched.
	if patterns[1].Name != "" || patterns[0].Name != "" {
		t.Error("Enrich mutated its input")
	}
}

func TestEnrichNamingFailureKeepsPlaceholder(t *testing.T) {
	patterns, records := enrichFixture()
	enricher := NewEnricher(&stubCollaborator{failNaming: map[int]bool{1: true}})

	enriched, drafts, errs := enricher.Enrich(context.Background(), patterns, records)
	if len(errs) != 1 {
		t.Fatalf("errs = %v, want one naming error", errs)
	}
	var ee *EnrichmentError
	if !errors.As(errs[0], &ee) || ee.PatternID != 1 || ee.Op != "naming" {
		t.Fatalf("unexpected error: %v", errs[0])
	}

	if enriched[1].Name != "Pattern 1" {
		t.Errorf("placeholder name = %q", enriched[1].Name)
	}
	// Analysis still ran for the pattern whose naming failed.
	if enriched[1].RootCause != "Root cause 1" || len(drafts) != 2 {
		t.Errorf("analysis should proceed after naming failure: %+v, %d drafts", enriched[1], len(drafts))
	}
}

func TestEnrichAnalysisFailureDropsDrafts(t *testing.T) {
	patterns, records := enrichFixture()
	enricher := NewEnricher(&stubCollaborator{failAnalysis: map[int]bool{2: true}})

	enriched, drafts, errs := enricher.Enrich(context.Background(), patterns, records)
	if len(errs) != 1 {
		t.Fatalf("errs = %v, want one analysis error", errs)
	}
	var ee *EnrichmentError
	if !errors.As(errs[0], &ee) || ee.PatternID != 2 || ee.Op != "analysis" {
		t.Fatalf("unexpected error: %v", errs[0])
	}

	if enriched[2].Name != "Named pattern 2" {
		t.Errorf("naming should survive analysis failure: %q", enriched[2].Name)
	}
	if enriched[2].RootCause != "" {
		t.Errorf("root cause should be empty after analysis failure: %q", enriched[2].RootCause)
	}
	if len(drafts) != 1 || drafts[0].PatternID != 1 {
		t.Errorf("only pattern 1 should have drafts: %+v", drafts)
	}
}

func TestEnrichCanceledContext(t *testing.T) {
	patterns, records := enrichFixture()
	enricher := NewEnricher(&stubCollaborator{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	enriched, _, _ := enricher.Enrich(ctx, patterns, records)
	// The bucket is named without any collaborator call even when the
	// context is already canceled.
	if enriched[0].Name != "Unclustered failures" {
		t.Errorf("bucket name = %q", enriched[0].Name)
	}
}

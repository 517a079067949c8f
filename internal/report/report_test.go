package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/siftlabs/sift/internal/types"
)

func testData() *Data {
	rec := types.ConsolidatedRecommendation{
		Title:       "Raise the response length limit",
		Description: "Outputs are truncated before the expected length.",
		Kind:        types.KindCode,
		Effort:      types.EffortLow,
		PatternIDs:  []int{1, 2},
		DraftIDs:    []string{"p001-d01", "p002-d01"},
		Impact:      2,
		FileRefs:    []string{"server/respond.go:88"},
	}
	return &Data{
		RunID:          "run-123",
		GeneratedAt:    time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Source:         "results.json",
		TotalRecords:   20,
		PassedRecords:  14,
		FailedRecords:  5,
		SkippedRecords: 1,
		Patterns: []types.Pattern{
			{ID: 0, Slug: "unclustered", Members: []string{"t9"}, FailureCount: 1, Percentage: 20, Name: "Unclustered failures"},
			{
				ID: 1, Slug: "pattern-1", Name: "Truncated output",
				Members: []string{"t1", "t2"}, ExemplarID: "t1",
				FailureCount: 2, Percentage: 40,
				Description: "Responses stop mid-sentence.",
				RootCause:   "A 200 character response limit cuts answers short.",
			},
			{
				ID: 2, Slug: "pattern-2", Name: "Currency mismatch",
				Members: []string{"t3", "t4"}, ExemplarID: "t3",
				FailureCount: 2, Percentage: 40,
			},
		},
		Plan: types.PriorityPlan{
			Ranked: []types.ConsolidatedRecommendation{rec},
			Coverage: []types.CoveragePoint{
				{K: 1, Percent: 100},
			},
			QuickWins: []types.ConsolidatedRecommendation{rec},
			Phases: []types.Phase{
				{Number: 1, Name: "Infrastructure & Data Quality", Recommendations: []types.ConsolidatedRecommendation{rec}},
			},
		},
		EnrichmentIssues: []string{"pattern 2: analysis failed: rate limit exceeded"},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(testData())

	for _, want := range []string{
		"# Failure Pattern Analysis",
		"**Run:** run-123",
		"**Source:** results.json",
		"5 of 20 tests failed (1 records skipped as invalid). The failures group into 2 patterns.",
		"1. **Raise the response length limit** (impact 2, low effort)",
		"| 1 | Truncated output | 2 | 40.0% |",
		"### Pattern 1: Truncated output",
		"**Root cause:** A 200 character response limit cuts answers short.",
		"Exemplar: `t1`. Members: `t1`, `t2`",
		"## Recommendations",
		"- **Patterns:** 1, 2",
		"- **Files:** `server/respond.go:88`",
		"## Quick Wins",
		"| 1 | 100.0% |",
		"### Phase 1: Infrastructure & Data Quality",
		"## Analysis Caveats",
		"- pattern 2: analysis failed: rate limit exceeded",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestMarkdownOmitsEmptySections(t *testing.T) {
	data := testData()
	data.Plan = types.PriorityPlan{}
	data.EnrichmentIssues = nil

	md := Markdown(data)
	for _, section := range []string{"## Recommendations", "## Quick Wins", "## Coverage", "## Implementation Plan", "## Analysis Caveats"} {
		if strings.Contains(md, section) {
			t.Errorf("markdown should omit %q when there is nothing to report", section)
		}
	}
	if !strings.Contains(md, "## Failure Patterns") {
		t.Error("patterns section must always render")
	}
}

func TestMarkdownElidesLongMemberLists(t *testing.T) {
	members := make([]string, 14)
	for i := range members {
		members[i] = "t" + string(rune('a'+i))
	}
	got := memberList(members)
	if !strings.Contains(got, "and 4 more") {
		t.Errorf("memberList = %q", got)
	}
}

func TestJSON(t *testing.T) {
	out, err := JSON(testData())
	if err != nil {
		t.Fatalf("JSON failed: %v", err)
	}
	var decoded Data
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("report JSON does not round-trip: %v", err)
	}
	if decoded.RunID != "run-123" || len(decoded.Patterns) != 3 {
		t.Errorf("decoded report wrong: %+v", decoded)
	}
}

func TestHTML(t *testing.T) {
	out, err := HTML(testData())
	if err != nil {
		t.Fatalf("HTML failed: %v", err)
	}
	html := string(out)
	for _, want := range []string{"<!DOCTYPE html>", "<table>", "Truncated output", "</html>"} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

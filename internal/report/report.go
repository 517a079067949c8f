// Package report renders an analysis run as Markdown, HTML, or JSON. The
// Markdown document is the primary artifact; HTML is a GFM rendering of it.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/siftlabs/sift/internal/types"
)

// topRecommendations caps the executive summary list; the full ranking
// follows in its own section.
const topRecommendations = 5

// Data is everything a report needs, assembled by the analyzer.
type Data struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Source      string    `json:"source"`

	TotalRecords   int `json:"total_records"`
	PassedRecords  int `json:"passed_records"`
	FailedRecords  int `json:"failed_records"`
	SkippedRecords int `json:"skipped_records"`

	Patterns []types.Pattern    `json:"patterns"`
	Plan     types.PriorityPlan `json:"plan"`

	// EnrichmentIssues lists per-pattern analysis failures so degraded
	// sections are explainable from the report alone.
	EnrichmentIssues []string `json:"enrichment_issues,omitempty"`
}

// JSON renders the full report data as indented JSON.
func JSON(data *Data) ([]byte, error) {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return out, nil
}

// Markdown renders the report document.
func Markdown(data *Data) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Failure Pattern Analysis\n\n")
	fmt.Fprintf(&b, "- **Run:** %s\n", data.RunID)
	fmt.Fprintf(&b, "- **Generated:** %s\n", data.GeneratedAt.UTC().Format(time.RFC3339))
	if data.Source != "" {
		fmt.Fprintf(&b, "- **Source:** %s\n", data.Source)
	}
	b.WriteString("\n")

	writeSummary(&b, data)
	writePatterns(&b, data)
	writeRecommendations(&b, data)
	writeQuickWins(&b, data)
	writeCoverage(&b, data)
	writePhases(&b, data)
	writeIssues(&b, data)

	return b.String()
}

func writeSummary(b *strings.Builder, data *Data) {
	b.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(b, "%d of %d tests failed", data.FailedRecords, data.TotalRecords)
	if data.SkippedRecords > 0 {
		fmt.Fprintf(b, " (%d records skipped as invalid)", data.SkippedRecords)
	}
	clustered := 0
	for _, p := range data.Patterns {
		if !p.IsUnclustered() {
			clustered++
		}
	}
	fmt.Fprintf(b, ". The failures group into %d patterns.\n\n", clustered)

	if len(data.Plan.Ranked) > 0 {
		b.WriteString("Top recommendations:\n\n")
		for i, rec := range data.Plan.Ranked {
			if i >= topRecommendations {
				break
			}
			fmt.Fprintf(b, "%d. **%s** (impact %d, %s effort)\n", i+1, rec.Title, rec.Impact, rec.Effort)
		}
		b.WriteString("\n")
	}
}

func writePatterns(b *strings.Builder, data *Data) {
	b.WriteString("## Failure Patterns\n\n")
	b.WriteString("| ID | Pattern | Failures | Share |\n")
	b.WriteString("|---:|---------|---------:|------:|\n")
	for _, p := range data.Patterns {
		if p.FailureCount == 0 {
			continue
		}
		fmt.Fprintf(b, "| %d | %s | %d | %.1f%% |\n", p.ID, patternTitle(p), p.FailureCount, p.Percentage)
	}
	b.WriteString("\n")

	for _, p := range data.Patterns {
		if p.IsUnclustered() || p.FailureCount == 0 {
			continue
		}
		fmt.Fprintf(b, "### Pattern %d: %s\n\n", p.ID, patternTitle(p))
		fmt.Fprintf(b, "%d failures (%.1f%% of all failures).\n\n", p.FailureCount, p.Percentage)
		if p.Description != "" {
			fmt.Fprintf(b, "%s\n\n", p.Description)
		}
		if p.RootCause != "" {
			fmt.Fprintf(b, "**Root cause:** %s\n\n", p.RootCause)
		}
		if p.ExemplarID != "" {
			fmt.Fprintf(b, "Exemplar: `%s`. Members: %s\n\n", p.ExemplarID, memberList(p.Members))
		}
	}
}

func writeRecommendations(b *strings.Builder, data *Data) {
	if len(data.Plan.Ranked) == 0 {
		return
	}
	b.WriteString("## Recommendations\n\n")
	for i, rec := range data.Plan.Ranked {
		fmt.Fprintf(b, "### %d. %s\n\n", i+1, rec.Title)
		fmt.Fprintf(b, "- **Kind:** %s\n- **Effort:** %s\n- **Impact:** %d\n- **Patterns:** %s\n",
			rec.Kind, rec.Effort, rec.Impact, intList(rec.PatternIDs))
		if len(rec.FileRefs) > 0 {
			fmt.Fprintf(b, "- **Files:** %s\n", "`"+strings.Join(rec.FileRefs, "`, `")+"`")
		}
		b.WriteString("\n")
		if rec.Description != "" {
			fmt.Fprintf(b, "%s\n\n", rec.Description)
		}
	}
}

func writeQuickWins(b *strings.Builder, data *Data) {
	if len(data.Plan.QuickWins) == 0 {
		return
	}
	b.WriteString("## Quick Wins\n\n")
	for _, rec := range data.Plan.QuickWins {
		fmt.Fprintf(b, "- **%s** (impact %d, %s effort)\n", rec.Title, rec.Impact, rec.Effort)
	}
	b.WriteString("\n")
}

func writeCoverage(b *strings.Builder, data *Data) {
	if len(data.Plan.Coverage) == 0 {
		return
	}
	b.WriteString("## Coverage\n\n")
	b.WriteString("Patterns addressed by implementing the top K recommendations:\n\n")
	b.WriteString("| K | Coverage |\n|--:|---------:|\n")
	for _, point := range data.Plan.Coverage {
		fmt.Fprintf(b, "| %d | %.1f%% |\n", point.K, point.Percent)
	}
	b.WriteString("\n")
}

func writePhases(b *strings.Builder, data *Data) {
	if len(data.Plan.Phases) == 0 {
		return
	}
	b.WriteString("## Implementation Plan\n\n")
	for _, phase := range data.Plan.Phases {
		fmt.Fprintf(b, "### Phase %d: %s\n\n", phase.Number, phase.Name)
		for _, rec := range phase.Recommendations {
			fmt.Fprintf(b, "- %s (impact %d, %s effort)\n", rec.Title, rec.Impact, rec.Effort)
		}
		b.WriteString("\n")
	}
}

func writeIssues(b *strings.Builder, data *Data) {
	if len(data.EnrichmentIssues) == 0 {
		return
	}
	b.WriteString("## Analysis Caveats\n\n")
	for _, issue := range data.EnrichmentIssues {
		fmt.Fprintf(b, "- %s\n", issue)
	}
	b.WriteString("\n")
}

func patternTitle(p types.Pattern) string {
	if p.Name != "" {
		return p.Name
	}
	return p.Slug
}

// memberList renders member ids, eliding long lists.
func memberList(members []string) string {
	const maxShown = 10
	shown := members
	suffix := ""
	if len(members) > maxShown {
		shown = members[:maxShown]
		suffix = fmt.Sprintf(" and %d more", len(members)-maxShown)
	}
	return "`" + strings.Join(shown, "`, `") + "`" + suffix
}

func intList(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}

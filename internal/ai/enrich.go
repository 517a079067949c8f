package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/siftlabs/sift/internal/types"
)

// maxEnrichWorkers bounds concurrent pattern enrichment. API-level
// concurrency is additionally bounded by the analyst's semaphore.
const maxEnrichWorkers = 4

// Enricher runs naming and root-cause analysis over a frozen pattern set.
// Patterns are enriched concurrently and independently: a pattern whose
// calls fail keeps deterministic placeholders while the others proceed.
type Enricher struct {
	collab Collaborator
}

// NewEnricher creates an enricher around a collaborator.
func NewEnricher(collab Collaborator) *Enricher {
	return &Enricher{collab: collab}
}

// Enrich returns a copy of the pattern set with names, descriptions, and
// root causes attached, plus all recommendation drafts produced. Per-pattern
// failures are collected as EnrichmentError values and never abort the run;
// on context cancellation the patterns enriched so far are still returned.
func (e *Enricher) Enrich(ctx context.Context, patterns []types.Pattern, records map[string]types.TestRecord) ([]types.Pattern, []types.RecommendationDraft, []error) {
	enriched := make([]types.Pattern, len(patterns))
	copy(enriched, patterns)

	draftsByIdx := make([][]types.RecommendationDraft, len(patterns))
	errsByIdx := make([][]error, len(patterns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxEnrichWorkers)

	for i := range enriched {
		if enriched[i].IsUnclustered() {
			// The outlier bucket has no shared root cause to analyze.
			enriched[i].Name = "Unclustered failures"
			enriched[i].Description = "Failures that matched no other pattern."
			continue
		}

		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return nil
			}
			p := &enriched[i]
			examples := memberRecords(*p, records)

			name, description, err := e.collab.NamePattern(gctx, *p, examples)
			if err != nil {
				errsByIdx[i] = append(errsByIdx[i], &EnrichmentError{PatternID: p.ID, Op: "naming", Err: err})
				slog.Warn("pattern naming failed, keeping placeholder",
					"pattern", p.ID, "error", err)
				name = fmt.Sprintf("Pattern %d", p.ID)
				description = ""
			}
			p.Name = name
			p.Description = description

			rootCause, drafts, err := e.collab.AnalyzePattern(gctx, *p, examples)
			if err != nil {
				errsByIdx[i] = append(errsByIdx[i], &EnrichmentError{PatternID: p.ID, Op: "analysis", Err: err})
				slog.Warn("pattern analysis failed, pattern will have no drafts",
					"pattern", p.ID, "error", err)
				return nil
			}
			p.RootCause = rootCause
			draftsByIdx[i] = drafts
			return nil
		})
	}

	// Per-pattern errors are collected, not returned, so Wait only
	// surfaces cancellation.
	_ = g.Wait()

	var drafts []types.RecommendationDraft
	var errs []error
	for i := range patterns {
		drafts = append(drafts, draftsByIdx[i]...)
		errs = append(errs, errsByIdx[i]...)
	}
	sort.Slice(drafts, func(a, b int) bool { return drafts[a].ID < drafts[b].ID })
	return enriched, drafts, errs
}

// memberRecords resolves a pattern's member ids to records, preserving the
// sorted member order.
func memberRecords(p types.Pattern, records map[string]types.TestRecord) []types.TestRecord {
	out := make([]types.TestRecord, 0, len(p.Members))
	for _, id := range p.Members {
		if rec, ok := records[id]; ok {
			out = append(out, rec)
		}
	}
	return out
}

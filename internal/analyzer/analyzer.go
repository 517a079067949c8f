// Package analyzer orchestrates the full pipeline: ingest, feature
// extraction, clustering, pattern freezing, enrichment, consolidation, and
// prioritization. Each stage consumes the previous stage's output; only
// extraction and enrichment fan out to workers, and both join before the
// next stage starts.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/siftlabs/sift/internal/ai"
	"github.com/siftlabs/sift/internal/cluster"
	"github.com/siftlabs/sift/internal/config"
	"github.com/siftlabs/sift/internal/consolidate"
	"github.com/siftlabs/sift/internal/features"
	"github.com/siftlabs/sift/internal/ingest"
	"github.com/siftlabs/sift/internal/prioritize"
	"github.com/siftlabs/sift/internal/registry"
	"github.com/siftlabs/sift/internal/report"
	"github.com/siftlabs/sift/internal/similarity"
	"github.com/siftlabs/sift/internal/storage"
	"github.com/siftlabs/sift/internal/types"
)

// Analyzer runs the pipeline end to end.
type Analyzer struct {
	cfg    *config.Config
	collab ai.Collaborator
	store  storage.Storage // nil disables persistence
}

// New creates an analyzer. store may be nil to skip persistence.
func New(cfg *config.Config, collab ai.Collaborator, store storage.Storage) *Analyzer {
	return &Analyzer{cfg: cfg, collab: collab, store: store}
}

// Result is one completed analysis run.
type Result struct {
	Report *report.Data
	Run    *storage.Run
}

// Analyze runs the pipeline over one results file.
func (a *Analyzer) Analyze(ctx context.Context, path string, format ingest.Format) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()

	batch, err := ingest.ParseFile(path, format)
	if err != nil {
		return nil, fmt.Errorf("ingest failed: %w", err)
	}
	failing := batch.Failing()
	slog.Info("ingested results",
		"run", runID,
		"records", len(batch.Records),
		"failing", len(failing),
		"skipped", batch.Skipped)

	extractor := features.NewExtractor(a.cfg, a.collab)
	vectors, err := extractor.ExtractAll(ctx, failing)
	if err != nil {
		return nil, fmt.Errorf("feature extraction failed: %w", err)
	}

	engine := similarity.NewEngine(a.cfg)
	clusters := cluster.New(a.cfg, engine).Build(vectors)

	patterns, err := registry.Freeze(clusters, vectors, len(failing), a.cfg)
	if err != nil {
		return nil, fmt.Errorf("pattern registry failed: %w", err)
	}
	slog.Info("clustered failures",
		"run", runID,
		"patterns", len(patterns)-1,
		"unclustered", unclusteredCount(patterns))

	recordsByID := make(map[string]types.TestRecord, len(failing))
	for _, rec := range failing {
		recordsByID[rec.ID] = rec
	}
	enricher := ai.NewEnricher(a.collab)
	patterns, drafts, enrichErrs := enricher.Enrich(ctx, patterns, recordsByID)
	if err := ctx.Err(); err != nil {
		// Cancellation stops external calls; the stages that remain are
		// local, so the partially enriched run is still assembled and
		// reported with a caveat.
		slog.Warn("enrichment interrupted, assembling partial results", "run", runID, "error", err)
		enrichErrs = append(enrichErrs, fmt.Errorf("enrichment interrupted, results are partial: %w", err))
	}

	recs, err := consolidate.New(a.cfg).Consolidate(drafts, patterns)
	if err != nil {
		return nil, fmt.Errorf("consolidation failed: %w", err)
	}
	if err := consolidate.VerifyCoverage(drafts, recs); err != nil {
		return nil, fmt.Errorf("consolidation coverage check failed: %w", err)
	}

	plan := prioritize.New(a.cfg).Plan(recs)
	slog.Info("analysis complete",
		"run", runID,
		"recommendations", len(plan.Ranked),
		"quick_wins", len(plan.QuickWins),
		"elapsed", time.Since(start).Round(time.Millisecond))

	data := &report.Data{
		RunID:          runID,
		GeneratedAt:    time.Now(),
		Source:         path,
		TotalRecords:   len(batch.Records),
		PassedRecords:  len(batch.Records) - len(failing),
		FailedRecords:  len(failing),
		SkippedRecords: batch.Skipped,
		Patterns:       patterns,
		Plan:           *plan,
	}
	for _, e := range enrichErrs {
		data.EnrichmentIssues = append(data.EnrichmentIssues, e.Error())
	}

	run := &storage.Run{
		ID:             runID,
		CreatedAt:      data.GeneratedAt,
		Source:         path,
		TotalRecords:   data.TotalRecords,
		FailedRecords:  data.FailedRecords,
		SkippedRecords: data.SkippedRecords,
		PatternCount:   len(patterns) - 1,
		Patterns:       patterns,
		Plan:           *plan,
	}
	if a.store != nil {
		if err := a.store.SaveRun(ctx, run); err != nil {
			// Persistence failure degrades to an unsaved run; the
			// report is still produced.
			slog.Warn("failed to persist run", "run", runID, "error", err)
			data.EnrichmentIssues = append(data.EnrichmentIssues,
				fmt.Sprintf("run was not persisted: %v", err))
		}
	}

	return &Result{Report: data, Run: run}, nil
}

func unclusteredCount(patterns []types.Pattern) int {
	for _, p := range patterns {
		if p.IsUnclustered() {
			return p.FailureCount
		}
	}
	return 0
}

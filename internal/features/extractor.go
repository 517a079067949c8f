// Package features turns test records into comparable feature vectors:
// normalized token sets for input and output text plus a structured delta
// between expected and actual output. Extraction is deterministic: the
// same record and configuration always produce a byte-identical vector.
package features

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/siftlabs/sift/internal/config"
	"github.com/siftlabs/sift/internal/types"
)

// reasonTimeout bounds the fallback failure-reason call. Extraction never
// blocks indefinitely on the analyst: after the timeout the record proceeds
// with a heuristic context string.
const reasonTimeout = 20 * time.Second

// FeatureVector is the comparable representation of one failing record,
// keyed 1:1 to the record's id. Never mutated after creation.
type FeatureVector struct {
	RecordID string `json:"record_id"`

	// InputTokens is the normalized token set of the record's input.
	InputTokens []string `json:"input_tokens"`

	// OutputTokens combines the normalized actual output and the failure
	// reason (harness-provided or backfilled).
	OutputTokens []string `json:"output_tokens"`

	// Delta is the structured expected/actual difference.
	Delta Delta `json:"delta"`

	// DeltaTokens is Delta.Signature(), cached because every stage-3
	// comparison reads it.
	DeltaTokens []string `json:"delta_tokens"`

	// Reason is the failure reason used for OutputTokens, retained for
	// prompts and reports.
	Reason string `json:"reason"`

	// Empty marks a record whose features carry no signal (empty input
	// and empty actual output). Empty vectors skip similarity entirely
	// and land in the unclustered bucket.
	Empty bool `json:"empty"`
}

// ReasonGenerator backfills a failure reason when the harness recorded none.
// The AI analyst implements this; tests substitute a stub.
type ReasonGenerator interface {
	GenerateFailureReason(ctx context.Context, record types.TestRecord) (string, error)
}

// Extractor derives feature vectors from test records.
type Extractor struct {
	cfg     *config.Config
	reasons ReasonGenerator // nil disables the LLM fallback
}

// NewExtractor creates an extractor. reasons may be nil, in which case
// records without an error message get a deterministic heuristic context.
func NewExtractor(cfg *config.Config, reasons ReasonGenerator) *Extractor {
	return &Extractor{cfg: cfg, reasons: reasons}
}

// Extract computes the feature vector for one record.
func (e *Extractor) Extract(ctx context.Context, rec types.TestRecord) *FeatureVector {
	reason := rec.ErrorMessage
	if reason == "" {
		reason = e.fallbackReason(ctx, rec)
	}

	inputText := Normalize(rec.Input.Flatten())
	outputText := Normalize(rec.Actual.Flatten() + " " + reason)
	delta := ComputeDelta(rec.Expected, rec.Actual)

	fv := &FeatureVector{
		RecordID:     rec.ID,
		InputTokens:  Tokenize(inputText),
		OutputTokens: Tokenize(outputText),
		Delta:        delta,
		DeltaTokens:  delta.Signature(),
		Reason:       reason,
	}
	fv.Empty = len(fv.InputTokens) == 0 && len(fv.OutputTokens) == 0
	return fv
}

// ExtractAll extracts vectors for all failing records on a worker pool.
// Completion order is unconstrained; results are keyed by record id so
// downstream clustering is deterministic regardless of scheduling.
func (e *Extractor) ExtractAll(ctx context.Context, records []types.TestRecord) (map[string]*FeatureVector, error) {
	workers := e.cfg.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	vectors := make(map[string]*FeatureVector, len(records))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fv := e.Extract(gctx, rec)
			mu.Lock()
			vectors[rec.ID] = fv
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("feature extraction aborted: %w", err)
	}
	return vectors, nil
}

// fallbackReason asks the analyst for a synthetic failure reason, degrading
// to a deterministic heuristic context when the call fails or no analyst is
// configured.
func (e *Extractor) fallbackReason(ctx context.Context, rec types.TestRecord) string {
	if e.reasons != nil {
		callCtx, cancel := context.WithTimeout(ctx, reasonTimeout)
		defer cancel()
		reason, err := e.reasons.GenerateFailureReason(callCtx, rec)
		if err == nil && strings.TrimSpace(reason) != "" {
			return strings.TrimSpace(reason)
		}
		if err != nil {
			slog.Debug("failure-reason fallback failed, using heuristic context",
				"record", rec.ID, "error", err)
		}
	}
	return HeuristicContext(rec)
}

// HeuristicContext derives a deterministic failure context from the record
// itself, used when no failure reason is available from the harness or the
// analyst. The tags are coarse on purpose: they only need to give the
// similarity engine something to hold on to.
func HeuristicContext(rec types.TestRecord) string {
	var parts []string

	expected := rec.Expected.Flatten()
	actual := rec.Actual.Flatten()
	if expected != "" && actual != "" {
		switch {
		case len(actual)*2 < len(expected):
			parts = append(parts, "output_too_short")
		case len(actual) > len(expected)*2:
			parts = append(parts, "output_too_long")
		case !strings.Contains(strings.ToLower(actual), strings.ToLower(expected)):
			parts = append(parts, "output_mismatch")
		}
	}

	lowerOut := strings.ToLower(actual)
	if containsAny(lowerOut, "error", "exception", "failed", "invalid") {
		parts = append(parts, "contains_error_keywords")
	}
	if containsAny(lowerOut, "sorry", "cannot", "unable", "not found") {
		parts = append(parts, "contains_refusal_keywords")
	}

	if len(parts) == 0 {
		return "unknown_failure"
	}
	return strings.Join(parts, " ")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

package analyzer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/siftlabs/sift/internal/ai"
	"github.com/siftlabs/sift/internal/config"
	"github.com/siftlabs/sift/internal/ingest"
	"github.com/siftlabs/sift/internal/storage"
	"github.com/siftlabs/sift/internal/types"
)

const resultsFixture = `[
  {"test_id": "t1", "input": "what is the total price of three widgets", "expected_output": "the total price is 42 dollars", "actual_output": "42", "passed": false},
  {"test_id": "t2", "input": "what is the total price of five widgets", "expected_output": "the total price is 70 dollars", "actual_output": "70", "passed": false},
  {"test_id": "t3", "input": "what is the total price of two widgets", "expected_output": "the total price is 28 dollars", "actual_output": "28", "passed": false},
  {"test_id": "t4", "input": "capital of france", "expected_output": "paris", "actual_output": "geo lookup offline", "passed": false},
  {"test_id": "t5", "input": "two plus two", "expected_output": "4", "actual_output": "4", "passed": true},
  {"test_id": "t6", "input": "three plus three", "expected_output": "6", "actual_output": "6", "passed": true}
]`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.json")
	if err := os.WriteFile(path, []byte(resultsFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFixtureParsesExpectedAndActual(t *testing.T) {
	batch, err := ingest.ParseFile(writeFixture(t), ingest.FormatJSON)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if len(batch.Records) != 6 {
		t.Fatalf("records = %d", len(batch.Records))
	}
	for _, rec := range batch.Records {
		if rec.Expected.Kind != types.ValueText || rec.Actual.Kind != types.ValueText {
			t.Errorf("record %s parsed as expected=%s actual=%s, want text/text",
				rec.ID, rec.Expected.Kind, rec.Actual.Kind)
		}
	}
}

func TestAnalyzeEndToEnd(t *testing.T) {
	cfg := config.Default()
	a := New(&cfg, ai.NewHeuristic(), nil)

	result, err := a.Analyze(context.Background(), writeFixture(t), ingest.FormatAuto)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	data := result.Report
	if data.TotalRecords != 6 || data.FailedRecords != 4 || data.PassedRecords != 2 {
		t.Errorf("counts wrong: total=%d failed=%d passed=%d",
			data.TotalRecords, data.FailedRecords, data.PassedRecords)
	}

	// The three widget-pricing failures share inputs and delta shape; the
	// geography failure matches nothing.
	if len(data.Patterns) != 2 {
		t.Fatalf("patterns = %d, want bucket plus one cluster", len(data.Patterns))
	}
	bucket, pattern := data.Patterns[0], data.Patterns[1]
	if !bucket.IsUnclustered() || bucket.FailureCount != 1 || !bucket.HasMember("t4") {
		t.Errorf("bucket wrong: %+v", bucket)
	}
	if pattern.FailureCount != 3 || !pattern.HasMember("t1") || !pattern.HasMember("t3") {
		t.Errorf("pattern wrong: %+v", pattern)
	}
	if pattern.Name == "" || pattern.RootCause == "" {
		t.Errorf("pattern not enriched: %+v", pattern)
	}

	if len(data.Plan.Ranked) == 0 {
		t.Fatal("plan has no recommendations")
	}
	for _, rec := range data.Plan.Ranked {
		if err := rec.Validate(); err != nil {
			t.Errorf("invalid recommendation: %v", err)
		}
	}
	if len(data.EnrichmentIssues) != 0 {
		t.Errorf("offline analysis should not degrade: %v", data.EnrichmentIssues)
	}

	if result.Run.PatternCount != 1 || result.Run.ID != data.RunID {
		t.Errorf("run header wrong: %+v", result.Run)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	cfg := config.Default()
	a := New(&cfg, ai.NewHeuristic(), nil)
	path := writeFixture(t)

	first, err := a.Analyze(context.Background(), path, ingest.FormatJSON)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		next, err := a.Analyze(context.Background(), path, ingest.FormatJSON)
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}
		if len(next.Report.Patterns) != len(first.Report.Patterns) {
			t.Fatalf("pattern count changed between runs")
		}
		for j := range next.Report.Patterns {
			p1, p2 := first.Report.Patterns[j], next.Report.Patterns[j]
			if p1.ID != p2.ID || p1.Name != p2.Name || strings.Join(p1.Members, ",") != strings.Join(p2.Members, ",") {
				t.Fatalf("pattern %d differs between runs: %+v vs %+v", j, p1, p2)
			}
		}
		if len(next.Report.Plan.Ranked) != len(first.Report.Plan.Ranked) {
			t.Fatalf("ranking changed between runs")
		}
	}
}

// memStore records SaveRun calls, optionally failing them.
type memStore struct {
	saved []*storage.Run
	fail  bool
}

func (m *memStore) SaveRun(_ context.Context, run *storage.Run) error {
	if m.fail {
		return errors.New("disk full")
	}
	m.saved = append(m.saved, run)
	return nil
}

func (m *memStore) GetRun(context.Context, string) (*storage.Run, error) {
	return nil, errors.New("not implemented")
}

func (m *memStore) ListRuns(context.Context, int) ([]*storage.Run, error) {
	return nil, errors.New("not implemented")
}

func (m *memStore) DeleteRun(context.Context, string) error { return errors.New("not implemented") }
func (m *memStore) Close() error                            { return nil }

func TestAnalyzePersistsRun(t *testing.T) {
	cfg := config.Default()
	store := &memStore{}
	a := New(&cfg, ai.NewHeuristic(), store)

	result, err := a.Analyze(context.Background(), writeFixture(t), ingest.FormatAuto)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(store.saved) != 1 || store.saved[0].ID != result.Run.ID {
		t.Errorf("run not persisted: %+v", store.saved)
	}
}

// cancelingCollab cancels the run context on the first naming call,
// simulating an interrupt arriving mid-enrichment.
type cancelingCollab struct {
	cancel context.CancelFunc
}

func (c *cancelingCollab) GenerateFailureReason(context.Context, types.TestRecord) (string, error) {
	return "output diverged from expectation", nil
}

func (c *cancelingCollab) NamePattern(ctx context.Context, _ types.Pattern, _ []types.TestRecord) (string, string, error) {
	c.cancel()
	return "", "", ctx.Err()
}

func (c *cancelingCollab) AnalyzePattern(ctx context.Context, _ types.Pattern, _ []types.TestRecord) (string, []types.RecommendationDraft, error) {
	return "", nil, ctx.Err()
}

func TestAnalyzeCancellationReturnsPartialResults(t *testing.T) {
	cfg := config.Default()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := New(&cfg, &cancelingCollab{cancel: cancel}, nil)

	result, err := a.Analyze(ctx, writeFixture(t), ingest.FormatAuto)
	if err != nil {
		t.Fatalf("cancellation mid-enrichment should degrade, not fail: %v", err)
	}

	// Clustering finished before the cancellation, so the pattern set is
	// intact even though enrichment is partial.
	if len(result.Report.Patterns) != 2 {
		t.Fatalf("patterns = %d, want bucket plus one cluster", len(result.Report.Patterns))
	}
	partial := false
	for _, issue := range result.Report.EnrichmentIssues {
		if strings.Contains(issue, "results are partial") {
			partial = true
		}
	}
	if !partial {
		t.Errorf("report should flag the interrupted enrichment: %v", result.Report.EnrichmentIssues)
	}
}

func TestAnalyzePersistenceFailureIsNotFatal(t *testing.T) {
	cfg := config.Default()
	a := New(&cfg, ai.NewHeuristic(), &memStore{fail: true})

	result, err := a.Analyze(context.Background(), writeFixture(t), ingest.FormatAuto)
	if err != nil {
		t.Fatalf("Analyze should survive a persistence failure: %v", err)
	}
	found := false
	for _, issue := range result.Report.EnrichmentIssues {
		if strings.Contains(issue, "not persisted") {
			found = true
		}
	}
	if !found {
		t.Errorf("persistence failure should surface as a caveat: %v", result.Report.EnrichmentIssues)
	}
}

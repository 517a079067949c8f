package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/siftlabs/sift/internal/storage"
	"github.com/siftlabs/sift/internal/types"
)

func testStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "sift.db"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testRun(id string, createdAt time.Time) *storage.Run {
	return &storage.Run{
		ID:             id,
		CreatedAt:      createdAt,
		Source:         "results.json",
		TotalRecords:   10,
		FailedRecords:  4,
		SkippedRecords: 1,
		PatternCount:   2,
		Patterns: []types.Pattern{
			{ID: 0, Slug: "unclustered", FailureCount: 0, Percentage: 0},
			{
				ID: 1, Slug: "pattern-1", Name: "Truncated output",
				Members: []string{"t1", "t2"}, ExemplarID: "t1",
				FailureCount: 2, Percentage: 50,
				RootCause: "response limit",
			},
			{
				ID: 2, Slug: "pattern-2",
				Members: []string{"t3", "t4"}, ExemplarID: "t3",
				FailureCount: 2, Percentage: 50,
			},
		},
		Plan: types.PriorityPlan{
			Ranked: []types.ConsolidatedRecommendation{
				{
					Title: "Raise the response length limit", Kind: types.KindCode,
					Effort: types.EffortLow, PatternIDs: []int{1, 2},
					DraftIDs: []string{"p001-d01"}, Impact: 2,
				},
			},
			Coverage: []types.CoveragePoint{{K: 1, Percent: 100}},
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	want := testRun("run-1", time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))
	if err := store.SaveRun(ctx, want); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Source != want.Source || got.FailedRecords != 4 || got.PatternCount != 2 {
		t.Errorf("run header wrong: %+v", got)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	if len(got.Patterns) != 3 || got.Patterns[1].Name != "Truncated output" {
		t.Errorf("patterns wrong: %+v", got.Patterns)
	}
	if got.Patterns[1].Members[1] != "t2" {
		t.Errorf("members wrong: %v", got.Patterns[1].Members)
	}
	if len(got.Plan.Ranked) != 1 || got.Plan.Ranked[0].Impact != 2 {
		t.Errorf("plan wrong: %+v", got.Plan)
	}
}

func TestSaveRunRejectsDuplicateID(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	run := testRun("run-1", time.Now())
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := store.SaveRun(ctx, run); err == nil {
		t.Fatal("duplicate run id should fail")
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := testStore(t)
	if _, err := store.GetRun(context.Background(), "nope"); err == nil {
		t.Fatal("missing run should be an error")
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		run := testRun(id, base.Add(time.Duration(i)*time.Hour))
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun(%s) failed: %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-c" || runs[1].ID != "run-b" {
		t.Errorf("ListRuns order wrong: %v, %v", runs[0].ID, runs[1].ID)
	}
	// Headers only.
	if len(runs[0].Patterns) != 0 {
		t.Errorf("list should not load patterns, got %d", len(runs[0].Patterns))
	}
}

func TestDeleteRun(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.SaveRun(ctx, testRun("run-1", time.Now())); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := store.DeleteRun(ctx, "run-1"); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := store.GetRun(ctx, "run-1"); err == nil {
		t.Fatal("deleted run should be gone")
	}
	if err := store.DeleteRun(ctx, "run-1"); err == nil {
		t.Fatal("deleting a missing run should be an error")
	}
}

// Package storage persists analysis runs so past results can be listed and
// re-inspected without re-running the pipeline.
package storage

import (
	"context"
	"time"

	"github.com/siftlabs/sift/internal/types"
)

// Run is one persisted analysis run: the frozen pattern set and the priority
// plan, plus the input totals the report header shows.
type Run struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Source is the path of the analyzed results file.
	Source string `json:"source"`

	TotalRecords   int `json:"total_records"`
	FailedRecords  int `json:"failed_records"`
	SkippedRecords int `json:"skipped_records"`

	// PatternCount excludes the unclustered bucket.
	PatternCount int `json:"pattern_count"`

	Patterns []types.Pattern    `json:"patterns,omitempty"`
	Plan     types.PriorityPlan `json:"plan,omitempty"`
}

// Storage defines the run persistence backend.
type Storage interface {
	// SaveRun persists a run with its patterns and plan atomically.
	SaveRun(ctx context.Context, run *Run) error

	// GetRun loads one run in full, including patterns and plan.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns run headers (no patterns or plan), newest first.
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// DeleteRun removes a run and its patterns and plan.
	DeleteRun(ctx context.Context, id string) error

	Close() error
}

// Package ingest parses test-result files into records. It accepts JSON
// (array or {"results": [...]} envelope), CSV, and JUnit XML, detecting the
// format from the extension and content when not specified. Malformed
// records are counted and skipped; only an unreadable or structurally
// unparseable file fails the run.
package ingest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/siftlabs/sift/internal/types"
)

// Format identifies an input file format.
type Format string

const (
	FormatAuto  Format = "auto"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatJUnit Format = "junit"
)

// ParseFormat converts a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatJUnit, Format("junit_xml"), Format("xml"):
		return FormatJUnit, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want json, csv, junit, or auto)", s)
	}
}

// Batch is the result of parsing one input file.
type Batch struct {
	// Records holds the valid records, in file order.
	Records []types.TestRecord

	// Skipped counts records dropped by validation.
	Skipped int

	// Issues describes each skipped record.
	Issues []string

	seen map[string]bool
}

// Failing returns the failing records of the batch, in file order.
func (b *Batch) Failing() []types.TestRecord {
	var out []types.TestRecord
	for _, r := range b.Records {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// ParseFile reads and parses one results file.
func ParseFile(path string, format Format) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}
	if format == FormatAuto || format == "" {
		format = detectFormat(path, data)
	}

	switch format {
	case FormatJSON:
		return parseJSON(data)
	case FormatCSV:
		return parseCSV(data)
	case FormatJUnit:
		return parseJUnit(data)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// detectFormat picks a format from the extension, falling back to content
// sniffing for extensionless files.
func detectFormat(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".csv":
		return FormatCSV
	case ".xml":
		return FormatJUnit
	}
	trimmed := strings.TrimSpace(string(data))
	switch {
	case strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{"):
		return FormatJSON
	case strings.HasPrefix(trimmed, "<"):
		return FormatJUnit
	default:
		return FormatCSV
	}
}

// wireRecord accepts the field aliases seen across harnesses: test_id/id,
// test_name/name, passed/status, error_message/failure_reason.
type wireRecord struct {
	TestID        string      `json:"test_id"`
	ID            string      `json:"id"`
	TestName      string      `json:"test_name"`
	Name          string      `json:"name"`
	Input         types.Value `json:"input"`
	Expected      types.Value `json:"expected_output"`
	Actual        types.Value `json:"actual_output"`
	Passed        *bool       `json:"passed"`
	Status        string      `json:"status"`
	ErrorMessage  string      `json:"error_message"`
	FailureReason string      `json:"failure_reason"`
	Category      string      `json:"category"`
	Tags          []string    `json:"tags"`
}

func (w *wireRecord) toRecord() types.TestRecord {
	rec := types.TestRecord{
		ID:           firstNonEmpty(w.TestID, w.ID),
		Name:         firstNonEmpty(w.TestName, w.Name),
		Input:        w.Input,
		Expected:     w.Expected,
		Actual:       w.Actual,
		ErrorMessage: firstNonEmpty(w.ErrorMessage, w.FailureReason),
		Context:      buildContext(w.Category, w.Tags),
	}
	if w.Passed != nil {
		rec.Passed = *w.Passed
	} else {
		rec.Passed = strings.EqualFold(w.Status, "passed")
	}
	return rec
}

// buildContext folds category and tags down to one context string.
func buildContext(category string, tags []string) string {
	parts := make([]string, 0, 1+len(tags))
	if category != "" {
		parts = append(parts, category)
	}
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseJSON accepts a bare array of records or a {"results": [...]} envelope.
func parseJSON(data []byte) (*Batch, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		var envelope struct {
			Results []json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil || envelope.Results == nil {
			return nil, fmt.Errorf("input is neither a JSON array of records nor a results envelope")
		}
		items = envelope.Results
	}

	batch := &Batch{}
	for i, raw := range items {
		var w wireRecord
		if err := json.Unmarshal(raw, &w); err != nil {
			batch.skip(fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		batch.add(w.toRecord(), i)
	}
	return batch, nil
}

// add validates and appends one record, skipping it on failure. Records
// reusing an earlier test_id are skipped too: ids key the clustering
// pipeline, and a duplicate must degrade to a per-record issue rather than
// corrupt pattern membership downstream.
func (b *Batch) add(rec types.TestRecord, index int) {
	if err := rec.Validate(); err != nil {
		b.skip(fmt.Sprintf("record %d: %v", index, err))
		return
	}
	if b.seen[rec.ID] {
		b.skip(fmt.Sprintf("record %d: duplicate test_id %s", index, rec.ID))
		return
	}
	if b.seen == nil {
		b.seen = make(map[string]bool)
	}
	b.seen[rec.ID] = true
	b.Records = append(b.Records, rec)
}

func (b *Batch) skip(issue string) {
	b.Skipped++
	b.Issues = append(b.Issues, issue)
	slog.Warn("skipping invalid record", "issue", issue)
}

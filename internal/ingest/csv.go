package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/siftlabs/sift/internal/types"
)

// csv column names mapped to record fields. Unknown columns fold into the
// record's context string.
var csvKnownColumns = map[string]bool{
	"test_id":         true,
	"id":              true,
	"test_name":       true,
	"name":            true,
	"input":           true,
	"expected_output": true,
	"actual_output":   true,
	"passed":          true,
	"status":          true,
	"error_message":   true,
	"failure_reason":  true,
	"category":        true,
	"tags":            true,
}

// parseCSV reads a headered CSV where each row is one record. Rows with the
// wrong field count or failing validation are skipped, not fatal.
func parseCSV(data []byte) (*Batch, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	batch := &Batch{}
	for rowNum := 1; ; rowNum++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			batch.skip(fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		if len(row) != len(header) {
			batch.skip(fmt.Sprintf("row %d: has %d fields, header has %d", rowNum, len(row), len(header)))
			continue
		}

		fields := make(map[string]string, len(header))
		for i, col := range header {
			fields[col] = row[i]
		}
		batch.add(csvRecord(fields), rowNum)
	}
	return batch, nil
}

func csvRecord(fields map[string]string) types.TestRecord {
	w := wireRecord{
		TestID:        fields["test_id"],
		ID:            fields["id"],
		TestName:      fields["test_name"],
		Name:          fields["name"],
		Status:        fields["status"],
		ErrorMessage:  fields["error_message"],
		FailureReason: fields["failure_reason"],
		Category:      fields["category"],
	}
	if v := fields["input"]; v != "" {
		w.Input = types.TextValue(v)
	}
	if v := fields["expected_output"]; v != "" {
		w.Expected = types.TextValue(v)
	}
	if v := fields["actual_output"]; v != "" {
		w.Actual = types.TextValue(v)
	}
	if v, ok := fields["passed"]; ok && v != "" {
		passed := strings.EqualFold(v, "true") || v == "1"
		w.Passed = &passed
	}
	if v := fields["tags"]; v != "" {
		w.Tags = strings.Split(v, ",")
	}

	rec := w.toRecord()

	// Map iteration order is random; sort the extra columns so the
	// context string is deterministic.
	var extras []string
	for col, v := range fields {
		if !csvKnownColumns[col] && v != "" {
			extras = append(extras, col+":"+v)
		}
	}
	if len(extras) > 0 {
		sort.Strings(extras)
		if rec.Context != "" {
			rec.Context += " "
		}
		rec.Context += strings.Join(extras, " ")
	}
	return rec
}

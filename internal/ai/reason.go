package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/siftlabs/sift/internal/types"
)

// maxFieldChars bounds how much of each record field a prompt carries.
// Oversized inputs (long transcripts, large payloads) are truncated rather
// than rejected.
const maxFieldChars = 2000

type reasonResponse struct {
	Reason string `json:"reason"`
}

// GenerateFailureReason asks the lightweight model to state, in one or two
// sentences, why a failing record failed. Used to backfill records whose
// harness recorded no error message.
func (a *Analyst) GenerateFailureReason(ctx context.Context, record types.TestRecord) (string, error) {
	prompt := buildReasonPrompt(record)

	text, err := a.call(ctx, "generate-failure-reason", a.simpleModel, prompt, 300)
	if err != nil {
		return "", err
	}

	resp, err := parseJSON[reasonResponse](text, "failure reason for "+record.ID)
	if err != nil {
		return "", err
	}
	reason := strings.TrimSpace(resp.Reason)
	if reason == "" {
		return "", fmt.Errorf("model returned an empty failure reason for record %s", record.ID)
	}
	return reason, nil
}

func buildReasonPrompt(record types.TestRecord) string {
	var b strings.Builder
	b.WriteString("You are analyzing a failing AI system test case. State concisely why it failed.\n\n")
	writeRecordSection(&b, record)
	b.WriteString(`
Respond with ONLY a JSON object in this exact format:
{"reason": "one or two sentences describing why the actual output fails the test"}

Focus on the observable discrepancy between expected and actual output. Do not speculate about implementation details you cannot see.`)
	return b.String()
}

// writeRecordSection renders one record for a prompt, truncating long fields.
func writeRecordSection(b *strings.Builder, record types.TestRecord) {
	fmt.Fprintf(b, "Test: %s\n", record.ID)
	if record.Name != "" {
		fmt.Fprintf(b, "Name: %s\n", record.Name)
	}
	fmt.Fprintf(b, "Input: %s\n", truncate(record.Input.Flatten(), maxFieldChars))
	if !record.Expected.IsEmpty() {
		fmt.Fprintf(b, "Expected output: %s\n", truncate(record.Expected.Flatten(), maxFieldChars))
	}
	fmt.Fprintf(b, "Actual output: %s\n", truncate(record.Actual.Flatten(), maxFieldChars))
	if record.ErrorMessage != "" {
		fmt.Fprintf(b, "Harness error: %s\n", truncate(record.ErrorMessage, maxFieldChars))
	}
	if record.Context != "" {
		fmt.Fprintf(b, "Context: %s\n", truncate(record.Context, maxFieldChars))
	}
}

package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/siftlabs/sift/internal/types"
)

// maxAnalysisExamples caps how many member records a root-cause prompt
// includes.
const maxAnalysisExamples = 8

type analysisResponse struct {
	RootCause       string          `json:"root_cause"`
	Recommendations []draftResponse `json:"recommendations"`
}

type draftResponse struct {
	Title       string `json:"title"`
	Kind        string `json:"kind"`
	Effort      string `json:"effort"`
	Description string `json:"description"`
	FileRef     string `json:"file_ref"`
}

// AnalyzePattern asks the analysis model for a root cause and fix drafts for
// one pattern. Draft ids are assigned deterministically from the pattern id
// and the model's issue order, so re-running the same response yields the
// same ids.
func (a *Analyst) AnalyzePattern(ctx context.Context, pattern types.Pattern, examples []types.TestRecord) (string, []types.RecommendationDraft, error) {
	prompt := buildAnalysisPrompt(pattern, examples)

	text, err := a.call(ctx, "analyze-pattern", a.model, prompt, 2000)
	if err != nil {
		return "", nil, err
	}

	resp, err := parseJSON[analysisResponse](text, fmt.Sprintf("analysis for pattern %d", pattern.ID))
	if err != nil {
		return "", nil, err
	}
	if strings.TrimSpace(resp.RootCause) == "" {
		return "", nil, fmt.Errorf("model returned an empty root cause for pattern %d", pattern.ID)
	}

	drafts := make([]types.RecommendationDraft, 0, len(resp.Recommendations))
	for i, rec := range resp.Recommendations {
		draft := types.RecommendationDraft{
			ID:          DraftID(pattern.ID, i),
			PatternID:   pattern.ID,
			Title:       strings.TrimSpace(rec.Title),
			Kind:        normalizeKind(rec.Kind),
			Effort:      normalizeEffort(rec.Effort),
			Description: strings.TrimSpace(rec.Description),
			FileRef:     strings.TrimSpace(rec.FileRef),
		}
		if err := draft.Validate(); err != nil {
			// One malformed draft does not discard the others.
			continue
		}
		drafts = append(drafts, draft)
	}
	return strings.TrimSpace(resp.RootCause), drafts, nil
}

// DraftID derives the deterministic id of the i-th draft for a pattern.
func DraftID(patternID, i int) string {
	return fmt.Sprintf("p%03d-d%02d", patternID, i+1)
}

func buildAnalysisPrompt(pattern types.Pattern, examples []types.TestRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are diagnosing a failure pattern in an AI system's test suite. The pattern covers %d failing cases (%.1f%% of all failures).",
		pattern.FailureCount, pattern.Percentage)
	if pattern.Name != "" {
		fmt.Fprintf(&b, " It has been named: %q.", pattern.Name)
	}
	b.WriteString("\n\nRepresentative failing cases:\n\n")

	for i, record := range orderExamples(pattern, examples, maxAnalysisExamples) {
		fmt.Fprintf(&b, "--- Case %d ---\n", i+1)
		writeRecordSection(&b, record)
		b.WriteString("\n")
	}

	b.WriteString(`Identify the single most likely root cause shared by these cases, then propose concrete fixes.

Respond with ONLY a JSON object in this exact format:
{
  "root_cause": "one paragraph stating the most likely shared root cause",
  "recommendations": [
    {
      "title": "imperative one-line fix title",
      "kind": "code|prompt|design",
      "effort": "low|medium|high",
      "description": "what to change and why it fixes these cases",
      "file_ref": "optional file or file:line reference, empty string if unknown"
    }
  ]
}

Rules:
- "kind" is "code" for infrastructure/data/parsing fixes, "prompt" for agent instruction changes, "design" for product or spec changes.
- Propose 1 to 4 recommendations, most impactful first.
- Recommendations must be actionable by an engineer who has only this report.`)
	return b.String()
}

// normalizeKind maps model output onto the closed kind set, defaulting
// unrecognized values to design (the least prescriptive bucket).
func normalizeKind(s string) types.RecommendationKind {
	switch types.RecommendationKind(strings.ToLower(strings.TrimSpace(s))) {
	case types.KindCode:
		return types.KindCode
	case types.KindPrompt:
		return types.KindPrompt
	default:
		return types.KindDesign
	}
}

// normalizeEffort maps model output onto the effort scale, defaulting
// unrecognized values to medium.
func normalizeEffort(s string) types.EffortLevel {
	switch types.EffortLevel(strings.ToLower(strings.TrimSpace(s))) {
	case types.EffortLow:
		return types.EffortLow
	case types.EffortHigh:
		return types.EffortHigh
	default:
		return types.EffortMedium
	}
}

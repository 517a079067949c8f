package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/siftlabs/sift/internal/features"
	"github.com/siftlabs/sift/internal/types"
)

// Heuristic is the offline Collaborator used when no API key is configured.
// Everything it produces is deterministic: the same pattern and examples
// always yield the same name, root cause, and drafts.
type Heuristic struct{}

var _ Collaborator = (*Heuristic)(nil)

// NewHeuristic creates the offline collaborator.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// GenerateFailureReason derives a failure context from the record itself.
func (h *Heuristic) GenerateFailureReason(_ context.Context, record types.TestRecord) (string, error) {
	return features.HeuristicContext(record), nil
}

// NamePattern derives a name from the signals shared across the pattern's
// examples: the dominant heuristic tag when one exists, otherwise a generic
// name keyed to the pattern id.
func (h *Heuristic) NamePattern(_ context.Context, pattern types.Pattern, examples []types.TestRecord) (string, string, error) {
	tag := dominantTag(examples)
	name := tagNames[tag]
	if name == "" {
		name = fmt.Sprintf("Failure pattern %d", pattern.ID)
	}
	description := fmt.Sprintf("%d failing cases (%.1f%% of all failures) grouped by input, output, and delta similarity.",
		pattern.FailureCount, pattern.Percentage)
	if tag != "" {
		description += fmt.Sprintf(" Shared signal: %s.", strings.ReplaceAll(tag, "_", " "))
	}
	return name, description, nil
}

// AnalyzePattern maps the pattern's dominant signal onto a canned root cause
// and one draft. Users who want real diagnosis configure the API analyst.
func (h *Heuristic) AnalyzePattern(_ context.Context, pattern types.Pattern, examples []types.TestRecord) (string, []types.RecommendationDraft, error) {
	tag := dominantTag(examples)

	rootCause := tagRootCauses[tag]
	if rootCause == "" {
		rootCause = "The cases share similar inputs and output deltas but expose no recognizable heuristic signal. Manual review of the exemplar is required to determine the root cause."
	}

	tmpl, ok := tagDrafts[tag]
	if !ok {
		tmpl = tagDrafts[""]
	}
	draft := types.RecommendationDraft{
		ID:          DraftID(pattern.ID, 0),
		PatternID:   pattern.ID,
		Title:       tmpl.title,
		Kind:        tmpl.kind,
		Effort:      tmpl.effort,
		Description: tmpl.description,
	}
	return rootCause, []types.RecommendationDraft{draft}, nil
}

// dominantTag returns the most frequent heuristic context tag across the
// examples, ties broken alphabetically. Empty when no example carries a tag.
func dominantTag(examples []types.TestRecord) string {
	counts := make(map[string]int)
	for _, rec := range examples {
		for _, tag := range strings.Fields(features.HeuristicContext(rec)) {
			if tag != "unknown_failure" {
				counts[tag]++
			}
		}
	}
	if len(counts) == 0 {
		return ""
	}
	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	return tags[0]
}

var tagNames = map[string]string{
	"output_too_short":          "Truncated or incomplete output",
	"output_too_long":           "Overlong or padded output",
	"output_mismatch":           "Output diverges from expectation",
	"contains_error_keywords":   "Errors surfaced in output",
	"contains_refusal_keywords": "Refusals or capability gaps",
}

var tagRootCauses = map[string]string{
	"output_too_short":          "Actual outputs are substantially shorter than expected, which usually indicates truncation, an early stop condition, or a response limit being hit.",
	"output_too_long":           "Actual outputs are substantially longer than expected, which usually indicates missing length constraints or the system padding answers with unrequested content.",
	"output_mismatch":           "Actual outputs do not contain the expected content, pointing at the system answering a different question than the one asked.",
	"contains_error_keywords":   "Actual outputs contain error or exception text, so upstream failures are leaking into user-facing responses instead of being handled.",
	"contains_refusal_keywords": "Actual outputs contain refusal language, so the system declines requests the test suite expects it to handle.",
}

type draftTemplate struct {
	title       string
	kind        types.RecommendationKind
	effort      types.EffortLevel
	description string
}

var tagDrafts = map[string]draftTemplate{
	"output_too_short": {
		title:       "Raise or remove the response length limit",
		kind:        types.KindCode,
		effort:      types.EffortLow,
		description: "Outputs in this pattern are cut off well before the expected length. Check response token limits and truncation logic in the serving path.",
	},
	"output_too_long": {
		title:       "Constrain response length in the instructions",
		kind:        types.KindPrompt,
		effort:      types.EffortLow,
		description: "Outputs in this pattern run far past the expected length. Add explicit length and scope constraints to the agent instructions.",
	},
	"output_mismatch": {
		title:       "Review task framing for this input class",
		kind:        types.KindPrompt,
		effort:      types.EffortMedium,
		description: "Outputs in this pattern answer something other than what was asked. Review how inputs of this shape are framed for the model.",
	},
	"contains_error_keywords": {
		title:       "Handle upstream errors before responding",
		kind:        types.KindCode,
		effort:      types.EffortMedium,
		description: "Raw error text reaches the user in this pattern. Catch upstream failures and convert them to a controlled response or retry.",
	},
	"contains_refusal_keywords": {
		title:       "Clarify intended capabilities in the instructions",
		kind:        types.KindPrompt,
		effort:      types.EffortMedium,
		description: "The system refuses requests the suite expects it to handle. Clarify in the instructions that these requests are in scope, or adjust the suite if they are not.",
	},
	"": {
		title:       "Manually review the exemplar failures",
		kind:        types.KindDesign,
		effort:      types.EffortMedium,
		description: "No heuristic signal distinguishes this pattern. Review the exemplar cases by hand, or configure an API key to enable automated root-cause analysis.",
	},
}

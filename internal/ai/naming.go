package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/siftlabs/sift/internal/types"
)

// maxNamingExamples caps how many member records a naming prompt includes.
// The exemplar always comes first; more examples add cost without improving
// the name.
const maxNamingExamples = 5

type namingResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NamePattern asks the lightweight model for a short name and a one-paragraph
// description of a frozen pattern, given its exemplar and member examples.
func (a *Analyst) NamePattern(ctx context.Context, pattern types.Pattern, examples []types.TestRecord) (string, string, error) {
	prompt := buildNamingPrompt(pattern, examples)

	text, err := a.call(ctx, "name-pattern", a.simpleModel, prompt, 500)
	if err != nil {
		return "", "", err
	}

	resp, err := parseJSON[namingResponse](text, fmt.Sprintf("naming for pattern %d", pattern.ID))
	if err != nil {
		return "", "", err
	}
	name := strings.TrimSpace(resp.Name)
	if name == "" {
		return "", "", fmt.Errorf("model returned an empty name for pattern %d", pattern.ID)
	}
	return name, strings.TrimSpace(resp.Description), nil
}

func buildNamingPrompt(pattern types.Pattern, examples []types.TestRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A clustering pass grouped %d failing AI test cases into one pattern (%.1f%% of all failures). The cases below are believed to share a single failure mode.\n\n",
		pattern.FailureCount, pattern.Percentage)

	for i, record := range orderExamples(pattern, examples, maxNamingExamples) {
		fmt.Fprintf(&b, "--- Case %d ---\n", i+1)
		writeRecordSection(&b, record)
		b.WriteString("\n")
	}

	b.WriteString(`Respond with ONLY a JSON object in this exact format:
{
  "name": "short noun phrase naming the failure mode (max 8 words)",
  "description": "one paragraph describing what these failures have in common"
}`)
	return b.String()
}

// orderExamples puts the exemplar first, keeps the rest in given order, and
// caps the list at limit.
func orderExamples(pattern types.Pattern, examples []types.TestRecord, limit int) []types.TestRecord {
	ordered := make([]types.TestRecord, 0, len(examples))
	for _, r := range examples {
		if r.ID == pattern.ExemplarID {
			ordered = append([]types.TestRecord{r}, ordered...)
		} else {
			ordered = append(ordered, r)
		}
	}
	if len(ordered) > limit {
		ordered = ordered[:limit]
	}
	return ordered
}

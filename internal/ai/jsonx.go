package ai

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Pre-compiled patterns for cleaning up model output before JSON decode.
var (
	// Matches ```json\n{...}\n```, ```{...}```, ``` json{...}```, etc.
	codeFenceStartRegex = regexp.MustCompile(`(?s)^` + "`" + `{3}(?:json)?\s*\n?([\s\S]*?)\n?` + "`" + `{3}\s*$`)
	codeFenceAnyRegex   = regexp.MustCompile(`(?s)` + "`" + `{3}(?:json)?\s*\n?([\s\S]*?)\n?` + "`" + `{3}`)

	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)

	// Greedy so nested structures stay intact.
	objectRegex = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	arrayRegex  = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
)

// parseJSON decodes model output into T, tolerating the usual formatting
// quirks of LLM responses. Strategy sequence:
//  1. Direct JSON decode
//  2. Strip markdown code fences and retry
//  3. Remove trailing commas and retry
//  4. Extract the first JSON object or array from mixed prose and retry
func parseJSON[T any](text, context string) (T, error) {
	var zero T

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return zero, fmt.Errorf("%s: empty response", context)
	}

	if v, err := tryDecode[T](trimmed); err == nil {
		return v, nil
	}

	slog.Debug("direct JSON decode failed, trying cleanup strategies",
		"context", context,
		"preview", truncate(trimmed, 100))

	withoutFences := removeCodeFences(trimmed)
	if withoutFences != trimmed {
		if v, err := tryDecode[T](withoutFences); err == nil {
			return v, nil
		}
	}

	cleaned := strings.TrimSpace(trailingCommaRegex.ReplaceAllString(withoutFences, "$1"))
	if v, err := tryDecode[T](cleaned); err == nil {
		return v, nil
	}

	if extracted := extractJSON(cleaned); extracted != "" {
		if v, err := tryDecode[T](extracted); err == nil {
			return v, nil
		}
	}

	return zero, fmt.Errorf("%s: no JSON decode strategy succeeded", context)
}

func tryDecode[T any](text string) (T, error) {
	var v T
	err := json.Unmarshal([]byte(text), &v)
	return v, err
}

// removeCodeFences strips markdown code fences, preferring a fence that
// wraps the entire response over one embedded in prose.
func removeCodeFences(text string) string {
	cleaned := codeFenceStartRegex.ReplaceAllString(text, "$1")
	if cleaned == text {
		cleaned = codeFenceAnyRegex.ReplaceAllString(text, "$1")
	}
	if strings.HasPrefix(cleaned, "`") && strings.HasSuffix(cleaned, "`") {
		cleaned = strings.TrimSuffix(strings.TrimPrefix(cleaned, "`"), "`")
	}
	return strings.TrimSpace(cleaned)
}

// extractJSON pulls a JSON object or array out of mixed prose. The first
// JSON-like character decides the type so an object is not carved out of
// an array that contains it.
func extractJSON(text string) string {
	objIdx := strings.IndexByte(text, '{')
	arrIdx := strings.IndexByte(text, '[')
	if arrIdx >= 0 && (objIdx < 0 || arrIdx < objIdx) {
		if match := arrayRegex.FindString(text); match != "" {
			return match
		}
	}
	if match := objectRegex.FindString(text); match != "" {
		return match
	}
	return arrayRegex.FindString(text)
}

// truncate shortens s to at most maxLen bytes, backing up to a rune
// boundary so the result stays valid UTF-8.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

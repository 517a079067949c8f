package features

import (
	"strings"
	"unicode"
)

// stopwords are filler tokens that carry no clustering signal. The list is
// intentionally small: over-filtering hurts short error messages more than
// under-filtering hurts long ones.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "this": {}, "that": {}, "it": {}, "as": {}, "from": {},
}

// Normalize lowercases text and collapses runs of whitespace to single
// spaces. Extraction is deterministic: same text in, same text out.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Tokenize splits normalized text into comparable tokens: lowercase runs of
// letters and digits, stopwords removed, order preserved, duplicates kept
// (the similarity engine decides set vs bag semantics).
func Tokenize(s string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		tok := cur.String()
		cur.Reset()
		if len(tok) < 2 {
			return
		}
		if _, skip := stopwords[tok]; skip {
			return
		}
		tokens = append(tokens, tok)
	}
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

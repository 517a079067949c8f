package features

import (
	"sort"

	"github.com/siftlabs/sift/internal/types"
)

// ValuePair retains the expected/actual values of a key that differs.
type ValuePair struct {
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// Delta is the structured difference between expected and actual output.
// When both sides are key-value mappings the delta is field-level; otherwise
// it degenerates to a text-diff descriptor over token spans. Keys with equal
// values are elided.
type Delta struct {
	// Structured is true when both expected and actual were mappings.
	Structured bool `json:"structured"`

	// MissingKeys are present only in expected (sorted).
	MissingKeys []string `json:"missing_keys,omitempty"`

	// UnexpectedKeys are present only in actual (sorted).
	UnexpectedKeys []string `json:"unexpected_keys,omitempty"`

	// ChangedKeys have differing values; value pairs are retained for
	// reporting (sorted by key).
	ChangedKeys map[string]ValuePair `json:"changed_keys,omitempty"`

	// OmittedTokens / AddedTokens describe the text diff when the delta
	// is unstructured: tokens present only in expected, respectively only
	// in actual.
	OmittedTokens []string `json:"omitted_tokens,omitempty"`
	AddedTokens   []string `json:"added_tokens,omitempty"`
}

// ComputeDelta derives the delta between expected and actual. A null
// expected yields an empty delta: there is nothing to compare against, and
// the error message carries the signal instead.
func ComputeDelta(expected, actual types.Value) Delta {
	if expected.Kind == types.ValueNull {
		return Delta{}
	}

	if expected.Kind == types.ValueMap && actual.Kind == types.ValueMap {
		return structuredDelta(expected.Map, actual.Map)
	}

	// Mixed or text values fall back to the token-span descriptor.
	return textDelta(expected.Flatten(), actual.Flatten())
}

func structuredDelta(expected, actual map[string]string) Delta {
	d := Delta{Structured: true}

	for k, ev := range expected {
		av, ok := actual[k]
		if !ok {
			d.MissingKeys = append(d.MissingKeys, k)
			continue
		}
		if ev != av {
			if d.ChangedKeys == nil {
				d.ChangedKeys = make(map[string]ValuePair)
			}
			d.ChangedKeys[k] = ValuePair{Expected: ev, Actual: av}
		}
		// Equal values are elided.
	}
	for k := range actual {
		if _, ok := expected[k]; !ok {
			d.UnexpectedKeys = append(d.UnexpectedKeys, k)
		}
	}
	sort.Strings(d.MissingKeys)
	sort.Strings(d.UnexpectedKeys)
	return d
}

func textDelta(expected, actual string) Delta {
	expTokens := Tokenize(expected)
	actTokens := Tokenize(actual)

	expSet := make(map[string]struct{}, len(expTokens))
	for _, t := range expTokens {
		expSet[t] = struct{}{}
	}
	actSet := make(map[string]struct{}, len(actTokens))
	for _, t := range actTokens {
		actSet[t] = struct{}{}
	}

	d := Delta{}
	for t := range expSet {
		if _, ok := actSet[t]; !ok {
			d.OmittedTokens = append(d.OmittedTokens, t)
		}
	}
	for t := range actSet {
		if _, ok := expSet[t]; !ok {
			d.AddedTokens = append(d.AddedTokens, t)
		}
	}
	sort.Strings(d.OmittedTokens)
	sort.Strings(d.AddedTokens)
	return d
}

// IsEmpty reports whether the delta recorded no difference.
func (d Delta) IsEmpty() bool {
	return len(d.MissingKeys) == 0 && len(d.UnexpectedKeys) == 0 &&
		len(d.ChangedKeys) == 0 && len(d.OmittedTokens) == 0 && len(d.AddedTokens) == 0
}

// Signature renders the structural shape of the delta as sorted tokens,
// independent of the specific values involved. "missing field X" and "value
// mismatch on field Y" produce distinct tokens; two failures that omit the
// same field share a signature even when every value differs.
func (d Delta) Signature() []string {
	var sig []string
	for _, k := range d.MissingKeys {
		sig = append(sig, "missing:"+k)
	}
	for _, k := range d.UnexpectedKeys {
		sig = append(sig, "unexpected:"+k)
	}
	changed := make([]string, 0, len(d.ChangedKeys))
	for k := range d.ChangedKeys {
		changed = append(changed, k)
	}
	sort.Strings(changed)
	for _, k := range changed {
		sig = append(sig, "changed:"+k)
	}
	for _, t := range d.OmittedTokens {
		sig = append(sig, "omits:"+t)
	}
	for _, t := range d.AddedTokens {
		sig = append(sig, "adds:"+t)
	}
	sort.Strings(sig)
	return sig
}
